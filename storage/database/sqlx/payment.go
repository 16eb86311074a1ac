package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/schooloffice/core"
	"github.com/trezcool/schooloffice/core/payment"
)

const (
	installmentColumns = "id, student_id, installment_number, amount, payment_date, created_at"

	receiptSelect = `
		SELECT r.id, r.receipt_number, r.student_id, s.name AS student_name, s.student_code,
		       r.installment_id, i.installment_number, r.total_paid, r.remaining_amount, r.created_at
		FROM receipts r
		JOIN students s ON s.id = r.student_id
		JOIN installments i ON i.id = r.installment_id`
)

type paymentRepository struct {
	repository
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(exec core.DBExecutor) *paymentRepository {
	return &paymentRepository{repository{exec: exec}}
}

func (repo paymentRepository) InstallmentExists(ctx context.Context, studentID, number int, exec ...core.DBExecutor) (bool, error) {
	var exists bool
	err := repo.getExec(exec).GetContext(ctx, &exists,
		"SELECT EXISTS (SELECT 1 FROM installments WHERE student_id = $1 AND installment_number = $2)",
		studentID, number)
	return exists, errors.Wrap(err, "checking installment")
}

func (repo paymentRepository) CreateInstallment(ctx context.Context, inst payment.Installment, exec ...core.DBExecutor) (payment.Installment, error) {
	var created payment.Installment
	err := repo.getExec(exec).GetContext(ctx, &created, `
		INSERT INTO installments (student_id, installment_number, amount, payment_date, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+installmentColumns,
		inst.StudentID, inst.InstallmentNumber, inst.Amount, inst.PaymentDate.UTC(), inst.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return payment.Installment{}, payment.ErrDuplicateInstallment
		}
		return payment.Installment{}, errors.Wrap(err, "inserting installment")
	}
	return created, nil
}

func (repo paymentRepository) GetInstallment(ctx context.Context, id int, exec ...core.DBExecutor) (payment.Installment, error) {
	var inst payment.Installment
	err := repo.getExec(exec).GetContext(ctx, &inst, "SELECT "+installmentColumns+" FROM installments WHERE id = $1", id)
	if err != nil {
		return payment.Installment{}, trapNoRowsErr(err, payment.ErrInstallmentNotFound, "selecting installment")
	}
	return inst, nil
}

// QueryInstallments lists a student's installments by number, or everyone's newest first.
func (repo paymentRepository) QueryInstallments(ctx context.Context, filter payment.QueryFilter, exec ...core.DBExecutor) ([]payment.Installment, error) {
	query := "SELECT " + installmentColumns + " FROM installments"
	var args []interface{}
	if filter.StudentID != 0 {
		query += " WHERE student_id = $1 ORDER BY installment_number"
		args = append(args, filter.StudentID)
	} else {
		query += " ORDER BY created_at DESC, id DESC"
	}

	insts := make([]payment.Installment, 0)
	if err := repo.getExec(exec).SelectContext(ctx, &insts, query, args...); err != nil {
		return nil, errors.Wrap(err, "selecting installments")
	}
	return insts, nil
}

func (repo paymentRepository) SumInstallments(ctx context.Context, studentID int, exec ...core.DBExecutor) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := repo.getExec(exec).GetContext(ctx, &total,
		"SELECT COALESCE(SUM(amount), 0) FROM installments WHERE student_id = $1", studentID)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "summing installments")
	}
	return total, nil
}

func (repo paymentRepository) CreateReceipt(ctx context.Context, rcpt payment.Receipt, exec ...core.DBExecutor) (payment.Receipt, error) {
	var id int
	err := repo.getExec(exec).GetContext(ctx, &id, `
		INSERT INTO receipts (receipt_number, student_id, installment_id, total_paid, remaining_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		rcpt.ReceiptNumber, rcpt.StudentID, rcpt.InstallmentID, rcpt.TotalPaid, rcpt.RemainingAmount, rcpt.CreatedAt.UTC())
	if err != nil {
		return payment.Receipt{}, errors.Wrap(err, "inserting receipt")
	}
	return repo.GetReceipt(ctx, id, exec...)
}

func (repo paymentRepository) GetReceipt(ctx context.Context, id int, exec ...core.DBExecutor) (payment.Receipt, error) {
	var rcpt payment.Receipt
	err := repo.getExec(exec).GetContext(ctx, &rcpt, receiptSelect+" WHERE r.id = $1", id)
	if err != nil {
		return payment.Receipt{}, trapNoRowsErr(err, payment.ErrReceiptNotFound, "selecting receipt")
	}
	return rcpt, nil
}

func (repo paymentRepository) QueryReceipts(ctx context.Context, filter payment.QueryFilter, exec ...core.DBExecutor) ([]payment.Receipt, error) {
	query := receiptSelect
	var args []interface{}
	if filter.StudentID != 0 {
		query += " WHERE r.student_id = $1"
		args = append(args, filter.StudentID)
	}
	query += " ORDER BY r.created_at DESC, r.id DESC"

	rcpts := make([]payment.Receipt, 0)
	if err := repo.getExec(exec).SelectContext(ctx, &rcpts, query, args...); err != nil {
		return nil, errors.Wrap(err, "selecting receipts")
	}
	return rcpts, nil
}
