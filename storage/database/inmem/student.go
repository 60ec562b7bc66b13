package inmemdb

import (
	"context"
	"sort"

	"github.com/charlesacademy/portal/core/student"
)

type studentRepository struct {
	db     *table[student.Student]
	schema *DB
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db.student, schema: db}
}

func (repo *studentRepository) checkUniqueness(s student.Student) error {
	for _, st := range repo.db.rows {
		if st.ID == s.ID {
			continue
		}
		if s.Email != "" && st.Email == s.Email {
			return student.ErrEmailExists
		}
		if st.RegistrationNumber == s.RegistrationNumber {
			return student.ErrRegNoExists
		}
	}
	return nil
}

func (repo *studentRepository) CreateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if err := repo.checkUniqueness(s); err != nil {
		return student.Student{}, err
	}
	return repo.db.insert(s, func(s *student.Student, id int64) { s.ID = id }), nil
}

func matchStudent(s student.Student, filter *student.QueryFilter) bool {
	if filter == nil {
		return true
	}
	switch {
	case filter.Search != "" && !containsFold(filter.Search, s.FullName, s.Email, s.RegistrationNumber),
		filter.ClassroomID > 0 && s.ClassroomID != filter.ClassroomID,
		filter.Status != "" && s.Status != filter.Status,
		filter.AdmissionYear > 0 && s.AdmissionYear != filter.AdmissionYear,
		len(filter.IDs) > 0 && !containsID(filter.IDs, s.ID),
		filter.Unlinked && s.UserID != "":
		return false
	}
	return true
}

func (repo *studentRepository) QueryStudents(ctx context.Context, filter *student.QueryFilter) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := make([]student.Student, 0, len(repo.db.rows))
	for _, s := range repo.db.all() {
		if matchStudent(s, filter) {
			students = append(students, s)
		}
	}
	sort.SliceStable(students, func(i, j int) bool { return students[i].FullName < students[j].FullName })
	return students, nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, filter student.GetFilter) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var match func(s *student.Student) bool
	switch {
	case filter.ID != 0:
		match = func(s *student.Student) bool { return s.ID == filter.ID }
	case filter.UserID != "":
		match = func(s *student.Student) bool { return s.UserID == filter.UserID }
	case filter.RegistrationNumber != "":
		match = func(s *student.Student) bool { return s.RegistrationNumber == filter.RegistrationNumber }
	case filter.Email != "":
		match = func(s *student.Student) bool { return s.Email == filter.Email }
	default:
		return student.Student{}, student.ErrNotFound
	}
	for _, s := range repo.db.rows {
		if match(s) {
			return *s, nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if err := repo.checkUniqueness(s); err != nil {
		return student.Student{}, err
	}
	if !repo.db.replace(s.ID, s) {
		return student.Student{}, student.ErrNotFound
	}
	return s, nil
}

func (repo *studentRepository) DeleteStudent(ctx context.Context, id int64) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if !repo.db.remove(id) {
		return student.ErrNotFound
	}
	repo.schema.onStudentDeleted(id)
	return nil
}

func (repo *studentRepository) CountStudents(ctx context.Context, filter *student.QueryFilter) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	n := 0
	for _, s := range repo.db.rows {
		if matchStudent(*s, filter) {
			n++
		}
	}
	return n, nil
}
