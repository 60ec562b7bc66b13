package inmemdb

import (
	"context"
	"sort"

	"github.com/charlesacademy/portal/core/parent"
)

type parentRepository struct {
	db *table[parent.Parent]
}

var _ parent.Repository = (*parentRepository)(nil)

func NewParentRepository(db *DB) parent.Repository {
	return &parentRepository{db: db.parent}
}

func sortedIDs(ids []int64) []int64 {
	ids = cloneIDs(ids)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (repo *parentRepository) CreateParent(ctx context.Context, p parent.Parent) (parent.Parent, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	p.StudentIDs = sortedIDs(p.StudentIDs)
	return repo.db.insert(p, func(p *parent.Parent, id int64) { p.ID = id }), nil
}

func (repo *parentRepository) QueryParents(ctx context.Context, filter *parent.QueryFilter) ([]parent.Parent, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	parents := make([]parent.Parent, 0, len(repo.db.rows))
	for _, p := range repo.db.all() {
		if filter != nil {
			if filter.Search != "" && !containsFold(filter.Search, p.FullName, p.Email, p.Phone) {
				continue
			}
			if filter.IsActive != nil && p.IsActive != *filter.IsActive {
				continue
			}
			if filter.StudentID != 0 && !p.HasChild(filter.StudentID) {
				continue
			}
		}
		parents = append(parents, p)
	}
	sort.SliceStable(parents, func(i, j int) bool {
		if !parents[i].CreatedAt.Equal(parents[j].CreatedAt) {
			return parents[i].CreatedAt.After(parents[j].CreatedAt)
		}
		return parents[i].ID > parents[j].ID
	})
	return parents, nil
}

func (repo *parentRepository) GetParent(ctx context.Context, filter parent.GetFilter) (parent.Parent, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	switch {
	case filter.ID != 0:
		if p, ok := repo.db.get(filter.ID); ok {
			return p, nil
		}
	case filter.UserID != "":
		for _, p := range repo.db.rows {
			if p.UserID == filter.UserID {
				return *p, nil
			}
		}
	}
	return parent.Parent{}, parent.ErrNotFound
}

// UpdateParent saves everything but the linked students, which have their own methods.
func (repo *parentRepository) UpdateParent(ctx context.Context, p parent.Parent) (parent.Parent, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.get(p.ID)
	if !ok {
		return parent.Parent{}, parent.ErrNotFound
	}
	p.StudentIDs = orig.StudentIDs
	repo.db.replace(p.ID, p)
	return p, nil
}

func (repo *parentRepository) DeleteParent(ctx context.Context, id int64) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if !repo.db.remove(id) {
		return parent.ErrNotFound
	}
	return nil
}

func (repo *parentRepository) LinkStudents(ctx context.Context, parentID int64, studentIDs ...int64) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	p, ok := repo.db.rows[parentID]
	if !ok {
		return parent.ErrNotFound
	}
	ids := cloneIDs(p.StudentIDs)
	for _, id := range studentIDs {
		if !containsID(ids, id) {
			ids = append(ids, id)
		}
	}
	p.StudentIDs = sortedIDs(ids)
	return nil
}

func (repo *parentRepository) UnlinkStudents(ctx context.Context, parentID int64, studentIDs ...int64) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	p, ok := repo.db.rows[parentID]
	if !ok {
		return nil
	}
	ids := make([]int64, 0, len(p.StudentIDs))
	for _, id := range p.StudentIDs {
		if !containsID(studentIDs, id) {
			ids = append(ids, id)
		}
	}
	p.StudentIDs = ids
	return nil
}

func (repo *parentRepository) CountParentsOfStudent(ctx context.Context, studentID int64) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	n := 0
	for _, p := range repo.db.rows {
		if containsID(p.StudentIDs, studentID) {
			n++
		}
	}
	return n, nil
}
