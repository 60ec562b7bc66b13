package inmemdb

import (
	"context"
	"sort"

	"github.com/charlesacademy/portal/core/classroom"
)

type classroomRepository struct {
	classes  *table[classroom.ClassRoom]
	subjects *table[classroom.Subject]
	schema   *DB
}

var _ classroom.Repository = (*classroomRepository)(nil)

func NewClassroomRepository(db *DB) classroom.Repository {
	return &classroomRepository{classes: db.classroom, subjects: db.subject, schema: db}
}

func (repo *classroomRepository) codeTaken(c classroom.ClassRoom) bool {
	for _, cls := range repo.classes.rows {
		if cls.Code == c.Code && cls.ID != c.ID {
			return true
		}
	}
	return false
}

func (repo *classroomRepository) CreateClassRoom(ctx context.Context, c classroom.ClassRoom) (classroom.ClassRoom, error) {
	repo.classes.Lock()
	defer repo.classes.Unlock()

	if repo.codeTaken(c) {
		return classroom.ClassRoom{}, classroom.ErrCodeExists
	}
	return repo.classes.insert(c, func(c *classroom.ClassRoom, id int64) { c.ID = id }), nil
}

func (repo *classroomRepository) QueryClassRooms(ctx context.Context, filter *classroom.QueryFilter) ([]classroom.ClassRoom, error) {
	repo.classes.RLock()
	defer repo.classes.RUnlock()

	classes := make([]classroom.ClassRoom, 0, len(repo.classes.rows))
	for _, c := range repo.classes.all() {
		if filter != nil && filter.Search != "" && !containsFold(filter.Search, c.Name, c.Code) {
			continue
		}
		classes = append(classes, c)
	}
	sort.SliceStable(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })
	return classes, nil
}

func (repo *classroomRepository) GetClassRoom(ctx context.Context, id int64) (classroom.ClassRoom, error) {
	repo.classes.RLock()
	defer repo.classes.RUnlock()

	if c, ok := repo.classes.get(id); ok {
		return c, nil
	}
	return classroom.ClassRoom{}, classroom.ErrNotFound
}

func (repo *classroomRepository) GetClassRoomByCode(ctx context.Context, code string) (classroom.ClassRoom, error) {
	repo.classes.RLock()
	defer repo.classes.RUnlock()

	for _, c := range repo.classes.rows {
		if c.Code == code {
			return *c, nil
		}
	}
	return classroom.ClassRoom{}, classroom.ErrNotFound
}

func (repo *classroomRepository) UpdateClassRoom(ctx context.Context, c classroom.ClassRoom) (classroom.ClassRoom, error) {
	repo.classes.Lock()
	defer repo.classes.Unlock()

	if repo.codeTaken(c) {
		return classroom.ClassRoom{}, classroom.ErrCodeExists
	}
	if !repo.classes.replace(c.ID, c) {
		return classroom.ClassRoom{}, classroom.ErrNotFound
	}
	return c, nil
}

func (repo *classroomRepository) DeleteClassRoom(ctx context.Context, id int64) error {
	repo.classes.Lock()
	defer repo.classes.Unlock()

	if !repo.classes.remove(id) {
		return classroom.ErrNotFound
	}
	repo.schema.onClassRoomDeleted(id)
	return nil
}

func (repo *classroomRepository) CountClassRooms(ctx context.Context) (int, error) {
	repo.classes.RLock()
	defer repo.classes.RUnlock()
	return len(repo.classes.rows), nil
}

func (repo *classroomRepository) nameTaken(s classroom.Subject) bool {
	for _, sub := range repo.subjects.rows {
		if sub.ClassroomID == s.ClassroomID && sub.Name == s.Name && sub.ID != s.ID {
			return true
		}
	}
	return false
}

func (repo *classroomRepository) CreateSubject(ctx context.Context, s classroom.Subject) (classroom.Subject, error) {
	repo.subjects.Lock()
	defer repo.subjects.Unlock()

	if repo.nameTaken(s) {
		return classroom.Subject{}, classroom.ErrSubjectExists
	}
	return repo.subjects.insert(s, func(s *classroom.Subject, id int64) { s.ID = id }), nil
}

func sortSubjects(subjects []classroom.Subject) {
	sort.SliceStable(subjects, func(i, j int) bool {
		if subjects[i].ClassroomID != subjects[j].ClassroomID {
			return subjects[i].ClassroomID < subjects[j].ClassroomID
		}
		return subjects[i].Name < subjects[j].Name
	})
}

func (repo *classroomRepository) QuerySubjects(ctx context.Context, classroomIDs ...int64) ([]classroom.Subject, error) {
	repo.subjects.RLock()
	defer repo.subjects.RUnlock()

	subjects := make([]classroom.Subject, 0, len(repo.subjects.rows))
	for _, s := range repo.subjects.all() {
		if len(classroomIDs) > 0 && !containsID(classroomIDs, s.ClassroomID) {
			continue
		}
		subjects = append(subjects, s)
	}
	sortSubjects(subjects)
	return subjects, nil
}

func (repo *classroomRepository) GetSubject(ctx context.Context, id int64) (classroom.Subject, error) {
	repo.subjects.RLock()
	defer repo.subjects.RUnlock()

	if s, ok := repo.subjects.get(id); ok {
		return s, nil
	}
	return classroom.Subject{}, classroom.ErrSubjectNotFound
}

func (repo *classroomRepository) GetSubjectsByID(ctx context.Context, ids ...int64) ([]classroom.Subject, error) {
	repo.subjects.RLock()
	defer repo.subjects.RUnlock()

	subjects := make([]classroom.Subject, 0, len(ids))
	for _, s := range repo.subjects.all() {
		if containsID(ids, s.ID) {
			subjects = append(subjects, s)
		}
	}
	sortSubjects(subjects)
	return subjects, nil
}

func (repo *classroomRepository) UpdateSubject(ctx context.Context, s classroom.Subject) (classroom.Subject, error) {
	repo.subjects.Lock()
	defer repo.subjects.Unlock()

	if repo.nameTaken(s) {
		return classroom.Subject{}, classroom.ErrSubjectExists
	}
	if !repo.subjects.replace(s.ID, s) {
		return classroom.Subject{}, classroom.ErrSubjectNotFound
	}
	return s, nil
}

func (repo *classroomRepository) DeleteSubject(ctx context.Context, id int64) error {
	repo.subjects.Lock()
	defer repo.subjects.Unlock()

	if !repo.subjects.remove(id) {
		return classroom.ErrSubjectNotFound
	}
	repo.schema.onSubjectDeleted(id)
	return nil
}

func (repo *classroomRepository) CountSubjects(ctx context.Context) (int, error) {
	repo.subjects.RLock()
	defer repo.subjects.RUnlock()
	return len(repo.subjects.rows), nil
}
