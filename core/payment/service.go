package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/schooloffice/core"
	"github.com/trezcool/schooloffice/core/ledger"
)

var (
	// errors
	ErrInstallmentNotFound  = errors.New("installment not found")
	ErrReceiptNotFound      = errors.New("receipt not found")
	ErrDuplicateInstallment = errors.New("installment already exists")

	errStudentNotFound = core.NewNotFoundError("Student not found.")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		InstallmentExists(ctx context.Context, studentID, number int, exec ...core.DBExecutor) (bool, error)
		// CreateInstallment returns ErrDuplicateInstallment when the (student, number) pair is taken.
		CreateInstallment(ctx context.Context, inst Installment, exec ...core.DBExecutor) (Installment, error)
		GetInstallment(ctx context.Context, id int, exec ...core.DBExecutor) (Installment, error)
		QueryInstallments(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Installment, error)
		SumInstallments(ctx context.Context, studentID int, exec ...core.DBExecutor) (decimal.Decimal, error)
		CreateReceipt(ctx context.Context, rcpt Receipt, exec ...core.DBExecutor) (Receipt, error)
		GetReceipt(ctx context.Context, id int, exec ...core.DBExecutor) (Receipt, error)
		QueryReceipts(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Receipt, error)
	}

	// StudentChecker is the part of the student repository payments rely on.
	StudentChecker interface {
		StudentExists(ctx context.Context, id int, exec ...core.DBExecutor) (bool, error)
	}

	Service struct {
		db       core.Transactor
		repo     Repository
		students StudentChecker
		rules    *ledger.Rules
		policy   core.FeePolicy
	}
)

func NewService(db core.Transactor, repo Repository, students StudentChecker, rules *ledger.Rules, policy core.FeePolicy) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(db, "db"),
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(students, "students"),
		vala.IsNotNil(rules, "rules"),
	).CheckAndPanic()

	return &Service{
		db:       db,
		repo:     repo,
		students: students,
		rules:    rules,
		policy:   policy,
	}
}

func (svc *Service) Policy() core.FeePolicy {
	return svc.policy
}

func duplicateErr(number int) error {
	return core.NewConflictError(fmt.Sprintf("Installment %d already paid for this student.", number))
}

// checkPreconditions makes sure the student exists and has not paid this installment yet.
func (svc *Service) checkPreconditions(ctx context.Context, studentID, number int) error {
	exists, err := svc.students.StudentExists(ctx, studentID)
	if err != nil {
		return errors.Wrap(err, "checking student")
	}
	if !exists {
		return errStudentNotFound
	}

	paid, err := svc.repo.InstallmentExists(ctx, studentID, number)
	if err != nil {
		return errors.Wrap(err, "checking installment")
	}
	if paid {
		return duplicateErr(number)
	}
	return nil
}

// createInstallment inserts the installment then applies the ledger rules, within `exec`'s transaction.
func (svc *Service) createInstallment(ctx context.Context, np NewPayment, paidAt *time.Time, exec core.DBExecutor) (Installment, ledger.Unlock, error) {
	now := NowFunc().UTC()
	paymentDate := now
	if paidAt != nil && !paidAt.IsZero() {
		paymentDate = paidAt.UTC()
	}
	number := np.InstallmentNumber
	inst, err := svc.repo.CreateInstallment(ctx, Installment{
		StudentID:         np.StudentID,
		InstallmentNumber: number,
		Amount:            *np.Amount,
		PaymentDate:       paymentDate,
		CreatedAt:         now,
	}, exec)
	if err != nil {
		if errors.Cause(err) == ErrDuplicateInstallment {
			return Installment{}, ledger.Unlock{}, duplicateErr(number)
		}
		return Installment{}, ledger.Unlock{}, errors.Wrap(err, "creating installment")
	}

	unlock, err := svc.rules.ApplyInstallment(ctx, inst.StudentID, inst.InstallmentNumber, inst.Amount, exec)
	if err != nil {
		return Installment{}, ledger.Unlock{}, errors.Wrap(err, "applying ledger rules")
	}
	return inst, unlock, nil
}

// RecordPayment creates an installment along with its receipt, unlocking uniform & books when due.
// No write happens when a precondition fails; any failing write rolls the whole payment back.
func (svc *Service) RecordPayment(ctx context.Context, np NewPayment) (Payment, error) {
	if err := np.check(svc.policy); err != nil {
		return Payment{}, err
	}
	if err := svc.checkPreconditions(ctx, np.StudentID, np.InstallmentNumber); err != nil {
		return Payment{}, err
	}

	var pmt Payment
	err := svc.db.InTx(ctx, func(exec core.DBExecutor) error {
		inst, unlock, err := svc.createInstallment(ctx, np, nil, exec)
		if err != nil {
			return err
		}

		totalPaid, err := svc.repo.SumInstallments(ctx, inst.StudentID, exec)
		if err != nil {
			return errors.Wrap(err, "summing installments")
		}

		rcpt, err := svc.repo.CreateReceipt(ctx, Receipt{
			ReceiptNumber:   uuid.New().String(),
			StudentID:       inst.StudentID,
			InstallmentID:   inst.ID,
			TotalPaid:       totalPaid,
			RemainingAmount: svc.policy.TotalFee.Sub(totalPaid),
			CreatedAt:       inst.CreatedAt,
		}, exec)
		if err != nil {
			return errors.Wrap(err, "creating receipt")
		}

		pmt = Payment{
			Installment:     inst,
			Receipt:         rcpt,
			UniformUnlocked: unlock.Uniform,
			BooksUnlocked:   unlock.Books,
		}
		return nil
	})
	if err != nil {
		return Payment{}, err
	}
	return pmt, nil
}

// CreateInstallment records an installment without issuing a receipt. Ledger rules still apply.
func (svc *Service) CreateInstallment(ctx context.Context, ni NewInstallment) (Installment, error) {
	np := ni.payment()
	if err := np.check(svc.policy); err != nil {
		return Installment{}, err
	}
	if err := svc.checkPreconditions(ctx, np.StudentID, np.InstallmentNumber); err != nil {
		return Installment{}, err
	}

	var inst Installment
	err := svc.db.InTx(ctx, func(exec core.DBExecutor) error {
		var err error
		inst, _, err = svc.createInstallment(ctx, np, ni.PaymentDate, exec)
		return err
	})
	return inst, err
}

func (svc *Service) GetInstallment(ctx context.Context, id int) (Installment, error) {
	return svc.repo.GetInstallment(ctx, id)
}

func (svc *Service) QueryInstallments(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Installment, error) {
	return svc.repo.QueryInstallments(ctx, filter, exec...)
}

func (svc *Service) GetReceipt(ctx context.Context, id int) (Receipt, error) {
	return svc.repo.GetReceipt(ctx, id)
}

func (svc *Service) QueryReceipts(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Receipt, error) {
	return svc.repo.QueryReceipts(ctx, filter, exec...)
}

// StudentTotals returns what a student paid so far and what remains of the total fee.
func (svc *Service) StudentTotals(ctx context.Context, studentID int, exec ...core.DBExecutor) (paid, remaining decimal.Decimal, err error) {
	paid, err = svc.repo.SumInstallments(ctx, studentID, exec...)
	if err != nil {
		return decimal.Zero, decimal.Zero, errors.Wrap(err, "summing installments")
	}
	return paid, svc.policy.TotalFee.Sub(paid), nil
}
