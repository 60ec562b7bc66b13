package inmemdb

import (
	"context"
	"sort"

	"github.com/charlesacademy/portal/core/teacher"
)

type teacherRepository struct {
	db     *table[teacher.Teacher]
	schema *DB
}

var _ teacher.Repository = (*teacherRepository)(nil)

func NewTeacherRepository(db *DB) teacher.Repository {
	return &teacherRepository{db: db.teacher, schema: db}
}

func (repo *teacherRepository) emailTaken(t teacher.Teacher) bool {
	for _, tch := range repo.db.rows {
		if tch.Email == t.Email && tch.ID != t.ID {
			return true
		}
	}
	return false
}

func (repo *teacherRepository) CreateTeacher(ctx context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.emailTaken(t) {
		return teacher.Teacher{}, teacher.ErrEmailExists
	}
	t.SubjectIDs, t.ClassroomIDs = cloneIDs(t.SubjectIDs), cloneIDs(t.ClassroomIDs)
	return repo.db.insert(t, func(t *teacher.Teacher, id int64) { t.ID = id }), nil
}

func (repo *teacherRepository) QueryTeachers(ctx context.Context, filter *teacher.QueryFilter) ([]teacher.Teacher, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	teachers := make([]teacher.Teacher, 0, len(repo.db.rows))
	for _, t := range repo.db.all() {
		if filter != nil {
			if filter.Search != "" && !containsFold(filter.Search, t.FirstName, t.LastName, t.Email) {
				continue
			}
			if filter.IsAvailable != nil && t.IsAvailable != *filter.IsAvailable {
				continue
			}
			if filter.ClassroomID > 0 && !containsID(t.ClassroomIDs, filter.ClassroomID) {
				continue
			}
		}
		teachers = append(teachers, t)
	}
	sort.SliceStable(teachers, func(i, j int) bool {
		if teachers[i].FirstName != teachers[j].FirstName {
			return teachers[i].FirstName < teachers[j].FirstName
		}
		return teachers[i].LastName < teachers[j].LastName
	})
	return teachers, nil
}

func (repo *teacherRepository) GetTeacher(ctx context.Context, id int64) (teacher.Teacher, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if t, ok := repo.db.get(id); ok {
		return t, nil
	}
	return teacher.Teacher{}, teacher.ErrNotFound
}

func (repo *teacherRepository) GetTeacherByEmail(ctx context.Context, email string) (teacher.Teacher, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, t := range repo.db.rows {
		if t.Email == email {
			return *t, nil
		}
	}
	return teacher.Teacher{}, teacher.ErrNotFound
}

func (repo *teacherRepository) UpdateTeacher(ctx context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.emailTaken(t) {
		return teacher.Teacher{}, teacher.ErrEmailExists
	}
	t.SubjectIDs, t.ClassroomIDs = cloneIDs(t.SubjectIDs), cloneIDs(t.ClassroomIDs)
	if !repo.db.replace(t.ID, t) {
		return teacher.Teacher{}, teacher.ErrNotFound
	}
	return t, nil
}

func (repo *teacherRepository) DeleteTeacher(ctx context.Context, id int64) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if !repo.db.remove(id) {
		return teacher.ErrNotFound
	}
	repo.schema.onTeacherDeleted(id)
	return nil
}

func (repo *teacherRepository) CountTeachers(ctx context.Context) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return len(repo.db.rows), nil
}
