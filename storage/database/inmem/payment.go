package inmemdb

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/trezcool/schooloffice/core"
	"github.com/trezcool/schooloffice/core/payment"
)

type paymentRepository struct {
	db *DB
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *DB) *paymentRepository {
	return &paymentRepository{db: db}
}

// installmentExists must be called with a lock held.
func (repo *paymentRepository) installmentExists(studentID, number int) bool {
	for _, inst := range repo.db.installments {
		if inst.StudentID == studentID && inst.InstallmentNumber == number {
			return true
		}
	}
	return false
}

func (repo *paymentRepository) InstallmentExists(_ context.Context, studentID, number int, _ ...core.DBExecutor) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.installmentExists(studentID, number), nil
}

func (repo *paymentRepository) CreateInstallment(_ context.Context, inst payment.Installment, _ ...core.DBExecutor) (payment.Installment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if repo.installmentExists(inst.StudentID, inst.InstallmentNumber) {
		return payment.Installment{}, payment.ErrDuplicateInstallment
	}
	inst.ID = repo.db.nextID("installments")
	repo.db.installments[inst.ID] = inst
	return inst, nil
}

func (repo *paymentRepository) GetInstallment(_ context.Context, id int, _ ...core.DBExecutor) (payment.Installment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if inst, ok := repo.db.installments[id]; ok {
		return inst, nil
	}
	return payment.Installment{}, payment.ErrInstallmentNotFound
}

func (repo *paymentRepository) QueryInstallments(_ context.Context, filter payment.QueryFilter, _ ...core.DBExecutor) ([]payment.Installment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	insts := make([]payment.Installment, 0)
	for _, inst := range repo.db.installments {
		if filter.StudentID == 0 || inst.StudentID == filter.StudentID {
			insts = append(insts, inst)
		}
	}
	if filter.StudentID != 0 {
		sort.Slice(insts, func(i, j int) bool { return insts[i].InstallmentNumber < insts[j].InstallmentNumber })
	} else {
		sortInstallmentsNewestFirst(insts)
	}
	return insts, nil
}

func sortInstallmentsNewestFirst(insts []payment.Installment) {
	sort.Slice(insts, func(i, j int) bool {
		if !insts[i].CreatedAt.Equal(insts[j].CreatedAt) {
			return insts[i].CreatedAt.After(insts[j].CreatedAt)
		}
		return insts[i].ID > insts[j].ID
	})
}

func (repo *paymentRepository) SumInstallments(_ context.Context, studentID int, _ ...core.DBExecutor) (decimal.Decimal, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	total := decimal.Zero
	for _, inst := range repo.db.installments {
		if inst.StudentID == studentID {
			total = total.Add(inst.Amount)
		}
	}
	return total, nil
}

// receiptView fills in the student & installment fields of a receipt. Callers must hold a lock.
func (repo *paymentRepository) receiptView(rcpt payment.Receipt) payment.Receipt {
	std := repo.db.students[rcpt.StudentID]
	rcpt.StudentName = std.Name
	rcpt.StudentCode = std.StudentCode
	rcpt.InstallmentNumber = repo.db.installments[rcpt.InstallmentID].InstallmentNumber
	return rcpt
}

func (repo *paymentRepository) CreateReceipt(_ context.Context, rcpt payment.Receipt, _ ...core.DBExecutor) (payment.Receipt, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	rcpt.ID = repo.db.nextID("receipts")
	repo.db.receipts[rcpt.ID] = rcpt
	return repo.receiptView(rcpt), nil
}

func (repo *paymentRepository) GetReceipt(_ context.Context, id int, _ ...core.DBExecutor) (payment.Receipt, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rcpt, ok := repo.db.receipts[id]; ok {
		return repo.receiptView(rcpt), nil
	}
	return payment.Receipt{}, payment.ErrReceiptNotFound
}

func (repo *paymentRepository) QueryReceipts(_ context.Context, filter payment.QueryFilter, _ ...core.DBExecutor) ([]payment.Receipt, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rcpts := make([]payment.Receipt, 0)
	for _, rcpt := range repo.db.receipts {
		if filter.StudentID == 0 || rcpt.StudentID == filter.StudentID {
			rcpts = append(rcpts, repo.receiptView(rcpt))
		}
	}
	sort.Slice(rcpts, func(i, j int) bool {
		if !rcpts[i].CreatedAt.Equal(rcpts[j].CreatedAt) {
			return rcpts[i].CreatedAt.After(rcpts[j].CreatedAt)
		}
		return rcpts[i].ID > rcpts[j].ID
	})
	return rcpts, nil
}
