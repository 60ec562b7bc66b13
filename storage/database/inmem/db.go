package inmemdb

import (
	"sort"
	"strings"
	"sync"

	"github.com/charlesacademy/portal/core/attendance"
	"github.com/charlesacademy/portal/core/classroom"
	"github.com/charlesacademy/portal/core/exam"
	"github.com/charlesacademy/portal/core/fee"
	"github.com/charlesacademy/portal/core/parent"
	"github.com/charlesacademy/portal/core/school"
	"github.com/charlesacademy/portal/core/student"
	"github.com/charlesacademy/portal/core/teacher"
	"github.com/charlesacademy/portal/core/user"
)

type (
	// DB keeps every record in memory. It backs the test environments of the core and API packages.
	DB struct {
		user              *userTable
		classroom         *table[classroom.ClassRoom]
		subject           *table[classroom.Subject]
		student           *table[student.Student]
		teacher           *table[teacher.Teacher]
		studentAttendance *table[attendance.StudentAttendance]
		teacherAttendance *table[attendance.TeacherAttendance]
		exam              *table[exam.Exam]
		result            *table[exam.Result]
		feeStructure      *table[fee.Structure]
		payment           *table[fee.Payment]
		parent            *table[parent.Parent]
		announcement      *table[school.Announcement]
		settings          *settingsTable
	}

	userTable struct {
		sync.RWMutex
		rows map[string]*user.User
	}

	settingsTable struct {
		sync.RWMutex
		row *school.Settings
	}

	// table is a serial keyed table.
	table[T any] struct {
		sync.RWMutex
		seq  int64
		rows map[int64]*T
	}
)

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[int64]*T)}
}

// insert stores row under the next primary key and returns that key.
func (t *table[T]) insert(row T, setID func(*T, int64)) T {
	t.seq++
	setID(&row, t.seq)
	t.rows[t.seq] = &row
	return row
}

// all returns copies of the rows ordered by primary key.
func (t *table[T]) all() []T {
	ids := make([]int64, 0, len(t.rows))
	for id := range t.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	rows := make([]T, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, *t.rows[id])
	}
	return rows
}

func (t *table[T]) get(id int64) (T, bool) {
	if row, ok := t.rows[id]; ok {
		return *row, true
	}
	var zero T
	return zero, false
}

func (t *table[T]) replace(id int64, row T) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	t.rows[id] = &row
	return true
}

func (t *table[T]) remove(id int64) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	return true
}

func Open() *DB {
	return &DB{
		user:              &userTable{rows: make(map[string]*user.User)},
		classroom:         newTable[classroom.ClassRoom](),
		subject:           newTable[classroom.Subject](),
		student:           newTable[student.Student](),
		teacher:           newTable[teacher.Teacher](),
		studentAttendance: newTable[attendance.StudentAttendance](),
		teacherAttendance: newTable[attendance.TeacherAttendance](),
		exam:              newTable[exam.Exam](),
		result:            newTable[exam.Result](),
		feeStructure:      newTable[fee.Structure](),
		payment:           newTable[fee.Payment](),
		parent:            newTable[parent.Parent](),
		announcement:      newTable[school.Announcement](),
		settings:          &settingsTable{},
	}
}

// removeWhere deletes the rows of t matching match and returns their keys.
func removeWhere[T any](t *table[T], match func(*T) bool) []int64 {
	t.Lock()
	defer t.Unlock()

	var ids []int64
	for id, row := range t.rows {
		if match(row) {
			delete(t.rows, id)
			ids = append(ids, id)
		}
	}
	return ids
}

// updateWhere replaces each row of t for which update reports a change.
func updateWhere[T any](t *table[T], update func(T) (T, bool)) {
	t.Lock()
	defer t.Unlock()

	for id, row := range t.rows {
		if updated, ok := update(*row); ok {
			t.rows[id] = &updated
		}
	}
}

// withoutID returns a copy of ids without id and whether id was there.
func withoutID(ids []int64, id int64) ([]int64, bool) {
	if !containsID(ids, id) {
		return ids, false
	}
	res := make([]int64, 0, len(ids)-1)
	for _, i := range ids {
		if i != id {
			res = append(res, i)
		}
	}
	return res, true
}

// The on*Deleted hooks apply the ON DELETE rules of the SQL schema.
// Callers may hold the lock of the deleted row's table, never of a dependent one.

func (db *DB) onUserDeleted(id string) {
	updateWhere(db.student, func(s student.Student) (student.Student, bool) {
		if s.UserID != id {
			return s, false
		}
		s.UserID = ""
		return s, true
	})
	removeWhere(db.parent, func(p *parent.Parent) bool { return p.UserID == id })
}

func (db *DB) onClassRoomDeleted(id int64) {
	for _, sid := range removeWhere(db.subject, func(s *classroom.Subject) bool { return s.ClassroomID == id }) {
		db.onSubjectDeleted(sid)
	}
	for _, eid := range removeWhere(db.exam, func(e *exam.Exam) bool { return e.ClassroomID == id }) {
		db.onExamDeleted(eid)
	}
	removeWhere(db.feeStructure, func(fs *fee.Structure) bool { return fs.ClassroomID == id })
	updateWhere(db.student, func(s student.Student) (student.Student, bool) {
		if s.ClassroomID != id {
			return s, false
		}
		s.ClassroomID = 0
		return s, true
	})
	updateWhere(db.teacher, func(t teacher.Teacher) (teacher.Teacher, bool) {
		var ok bool
		t.ClassroomIDs, ok = withoutID(t.ClassroomIDs, id)
		return t, ok
	})
}

func (db *DB) onSubjectDeleted(id int64) {
	removeWhere(db.result, func(r *exam.Result) bool { return r.SubjectID == id })
	updateWhere(db.teacher, func(t teacher.Teacher) (teacher.Teacher, bool) {
		var ok bool
		t.SubjectIDs, ok = withoutID(t.SubjectIDs, id)
		return t, ok
	})
}

func (db *DB) onExamDeleted(id int64) {
	removeWhere(db.result, func(r *exam.Result) bool { return r.ExamID == id })
}

func (db *DB) onStudentDeleted(id int64) {
	removeWhere(db.studentAttendance, func(a *attendance.StudentAttendance) bool { return a.StudentID == id })
	removeWhere(db.result, func(r *exam.Result) bool { return r.StudentID == id })
	removeWhere(db.payment, func(p *fee.Payment) bool { return p.StudentID == id })
	updateWhere(db.parent, func(p parent.Parent) (parent.Parent, bool) {
		var ok bool
		p.StudentIDs, ok = withoutID(p.StudentIDs, id)
		return p, ok
	})
}

func (db *DB) onTeacherDeleted(id int64) {
	removeWhere(db.teacherAttendance, func(a *attendance.TeacherAttendance) bool { return a.TeacherID == id })
}

// containsFold reports whether any of the fields contains sub, ignoring case.
func containsFold(sub string, fields ...string) bool {
	sub = strings.ToLower(sub)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), sub) {
			return true
		}
	}
	return false
}

func containsID(ids []int64, id int64) bool {
	for _, i := range ids {
		if i == id {
			return true
		}
	}
	return false
}

func cloneIDs(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return append([]int64{}, ids...)
}
