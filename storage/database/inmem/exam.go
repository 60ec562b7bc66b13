package inmemdb

import (
	"context"
	"sort"

	"github.com/charlesacademy/portal/core/exam"
)

type examRepository struct {
	exams   *table[exam.Exam]
	results *table[exam.Result]
	schema  *DB
}

var _ exam.Repository = (*examRepository)(nil)

func NewExamRepository(db *DB) exam.Repository {
	return &examRepository{exams: db.exam, results: db.result, schema: db}
}

func (repo *examRepository) CreateExam(ctx context.Context, e exam.Exam) (exam.Exam, error) {
	repo.exams.Lock()
	defer repo.exams.Unlock()
	return repo.exams.insert(e, func(e *exam.Exam, id int64) { e.ID = id }), nil
}

func (repo *examRepository) QueryExams(ctx context.Context, filter *exam.QueryFilter) ([]exam.Exam, error) {
	repo.exams.RLock()
	defer repo.exams.RUnlock()

	exams := make([]exam.Exam, 0, len(repo.exams.rows))
	for _, e := range repo.exams.all() {
		if filter != nil {
			if filter.ClassroomID > 0 && e.ClassroomID != filter.ClassroomID {
				continue
			}
			if filter.ExamType != "" && e.ExamType != filter.ExamType {
				continue
			}
		}
		exams = append(exams, e)
	}
	sort.SliceStable(exams, func(i, j int) bool {
		if !exams[i].Date.Equal(exams[j].Date) {
			return exams[i].Date.After(exams[j].Date)
		}
		return exams[i].ID > exams[j].ID
	})
	return exams, nil
}

func (repo *examRepository) GetExam(ctx context.Context, id int64) (exam.Exam, error) {
	repo.exams.RLock()
	defer repo.exams.RUnlock()

	if e, ok := repo.exams.get(id); ok {
		return e, nil
	}
	return exam.Exam{}, exam.ErrNotFound
}

func (repo *examRepository) DeleteExam(ctx context.Context, id int64) error {
	repo.exams.Lock()
	defer repo.exams.Unlock()

	if !repo.exams.remove(id) {
		return exam.ErrNotFound
	}
	repo.schema.onExamDeleted(id)
	return nil
}

func (repo *examRepository) UpsertResults(ctx context.Context, results []exam.Result) (int, error) {
	repo.results.Lock()
	defer repo.results.Unlock()

	for _, res := range results {
		found := false
		for _, row := range repo.results.rows {
			if row.StudentID == res.StudentID && row.ExamID == res.ExamID && row.SubjectID == res.SubjectID {
				row.Marks, found = res.Marks, true
				break
			}
		}
		if !found {
			repo.results.insert(res, func(r *exam.Result, id int64) { r.ID = id })
		}
	}
	return len(results), nil
}

func (repo *examRepository) QueryResults(ctx context.Context, filter exam.ResultFilter) ([]exam.Result, error) {
	repo.exams.RLock()
	defer repo.exams.RUnlock()
	repo.results.RLock()
	defer repo.results.RUnlock()

	results := make([]exam.Result, 0)
	for _, r := range repo.results.all() {
		if filter.ExamID > 0 && r.ExamID != filter.ExamID {
			continue
		}
		if len(filter.StudentIDs) > 0 && !containsID(filter.StudentIDs, r.StudentID) {
			continue
		}
		results = append(results, r)
	}
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.ExamID != b.ExamID {
			ea, eb := repo.exams.rows[a.ExamID], repo.exams.rows[b.ExamID]
			if ea != nil && eb != nil && !ea.Date.Equal(eb.Date) {
				return ea.Date.Before(eb.Date)
			}
			return a.ExamID < b.ExamID
		}
		if a.SubjectID != b.SubjectID {
			return a.SubjectID < b.SubjectID
		}
		return a.StudentID < b.StudentID
	})
	return results, nil
}
