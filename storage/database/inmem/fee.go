package inmemdb

import (
	"context"
	"sort"

	"github.com/charlesacademy/portal/core/fee"
)

type feeRepository struct {
	structures *table[fee.Structure]
	payments   *table[fee.Payment]
}

var _ fee.Repository = (*feeRepository)(nil)

func NewFeeRepository(db *DB) fee.Repository {
	return &feeRepository{structures: db.feeStructure, payments: db.payment}
}

func (repo *feeRepository) CreateStructure(ctx context.Context, fs fee.Structure) (fee.Structure, error) {
	repo.structures.Lock()
	defer repo.structures.Unlock()

	for _, s := range repo.structures.rows {
		if s.ClassroomID == fs.ClassroomID {
			return fee.Structure{}, fee.ErrStructureExists
		}
	}
	return repo.structures.insert(fs, func(s *fee.Structure, id int64) { s.ID = id }), nil
}

func (repo *feeRepository) QueryStructures(ctx context.Context) ([]fee.Structure, error) {
	repo.structures.RLock()
	defer repo.structures.RUnlock()

	structures := repo.structures.all()
	sort.SliceStable(structures, func(i, j int) bool { return structures[i].ClassroomID < structures[j].ClassroomID })
	return structures, nil
}

func (repo *feeRepository) GetStructure(ctx context.Context, id int64) (fee.Structure, error) {
	repo.structures.RLock()
	defer repo.structures.RUnlock()

	if s, ok := repo.structures.get(id); ok {
		return s, nil
	}
	return fee.Structure{}, fee.ErrStructureNotFound
}

func (repo *feeRepository) GetStructureByClassroom(ctx context.Context, classroomID int64) (fee.Structure, error) {
	repo.structures.RLock()
	defer repo.structures.RUnlock()

	for _, s := range repo.structures.rows {
		if s.ClassroomID == classroomID {
			return *s, nil
		}
	}
	return fee.Structure{}, fee.ErrStructureNotFound
}

func (repo *feeRepository) UpdateStructure(ctx context.Context, fs fee.Structure) (fee.Structure, error) {
	repo.structures.Lock()
	defer repo.structures.Unlock()

	orig, ok := repo.structures.get(fs.ID)
	if !ok {
		return fee.Structure{}, fee.ErrStructureNotFound
	}
	orig.TotalFee = fs.TotalFee
	repo.structures.replace(fs.ID, orig)
	return orig, nil
}

func (repo *feeRepository) DeleteStructure(ctx context.Context, id int64) error {
	repo.structures.Lock()
	defer repo.structures.Unlock()

	if !repo.structures.remove(id) {
		return fee.ErrStructureNotFound
	}
	return nil
}

func (repo *feeRepository) CreatePayment(ctx context.Context, p fee.Payment) (fee.Payment, error) {
	repo.payments.Lock()
	defer repo.payments.Unlock()

	for _, pmt := range repo.payments.rows {
		if pmt.ReceiptNo == p.ReceiptNo {
			return fee.Payment{}, fee.ErrReceiptExists
		}
	}
	return repo.payments.insert(p, func(p *fee.Payment, id int64) { p.ID = id }), nil
}

func (repo *feeRepository) QueryPayments(ctx context.Context, filter *fee.PaymentFilter) ([]fee.Payment, error) {
	repo.payments.RLock()
	defer repo.payments.RUnlock()

	payments := make([]fee.Payment, 0)
	for _, p := range repo.payments.all() {
		if filter != nil {
			if len(filter.StudentIDs) > 0 && !containsID(filter.StudentIDs, p.StudentID) {
				continue
			}
			if !filter.From.IsZero() && p.Date.Before(filter.From) {
				continue
			}
			if !filter.To.IsZero() && p.Date.After(filter.To) {
				continue
			}
		}
		payments = append(payments, p)
	}
	sort.SliceStable(payments, func(i, j int) bool {
		if !payments[i].Date.Equal(payments[j].Date) {
			return payments[i].Date.After(payments[j].Date)
		}
		return payments[i].ID > payments[j].ID
	})
	return payments, nil
}

func (repo *feeRepository) SumPayments(ctx context.Context, studentIDs ...int64) (map[int64]int64, error) {
	repo.payments.RLock()
	defer repo.payments.RUnlock()

	sums := make(map[int64]int64)
	for _, p := range repo.payments.rows {
		if len(studentIDs) == 0 || containsID(studentIDs, p.StudentID) {
			sums[p.StudentID] += p.AmountPaid
		}
	}
	return sums, nil
}

func (repo *feeRepository) TotalCollected(ctx context.Context) (int64, error) {
	repo.payments.RLock()
	defer repo.payments.RUnlock()

	var total int64
	for _, p := range repo.payments.rows {
		total += p.AmountPaid
	}
	return total, nil
}
