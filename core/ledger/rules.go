// Package ledger ties installments to the one-way unlock of uniform & book deliveries.
package ledger

import (
	"context"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/schooloffice/core"
)

// Item is a deliverable handed to students once their first installment is paid.
type Item string

const (
	ItemUniform Item = "uniform"
	ItemBooks   Item = "books"
)

var (
	// errors
	ErrStatusNotFound = errors.New("delivery status not found")

	Items = []Item{ItemUniform, ItemBooks}

	NowFunc = time.Now // mockable
)

// DeliveryStatus tracks whether an Item has been delivered to a student.
type DeliveryStatus struct {
	ID          int       `json:"id" db:"id"`
	StudentID   int       `json:"-" db:"student_id"`
	IsDelivered bool      `json:"is_delivered" db:"is_delivered"`
	DeliveredAt null.Time `json:"delivered_at" db:"delivered_at"`
	CreatedAt   time.Time `json:"-" db:"created_at"`
	UpdatedAt   time.Time `json:"-" db:"updated_at"`
}

// Unlock reports which items a payment unlocks.
type Unlock struct {
	Uniform bool
	Books   bool
}

type (
	DeliveryRepository interface {
		// CreateStatuses creates the not-delivered status of every Item for a new student.
		CreateStatuses(ctx context.Context, studentID int, exec ...core.DBExecutor) error
		// CreateMissingStatuses creates the statuses students are missing and returns how many were created.
		CreateMissingStatuses(ctx context.Context, exec ...core.DBExecutor) (int, error)
		GetStatus(ctx context.Context, item Item, studentID int, exec ...core.DBExecutor) (DeliveryStatus, error)
		// MarkDelivered flips the status to delivered only if it is not already; it reports whether it changed.
		MarkDelivered(ctx context.Context, item Item, studentID int, at time.Time, exec ...core.DBExecutor) (bool, error)
		// SetDelivered sets the status as is; delivered_at is kept when already delivered and cleared when not delivered.
		SetDelivered(ctx context.Context, item Item, studentID int, delivered bool, at time.Time, exec ...core.DBExecutor) (DeliveryStatus, error)
	}

	Rules struct {
		policy core.FeePolicy
		repo   DeliveryRepository
	}
)

func NewRules(policy core.FeePolicy, repo DeliveryRepository) *Rules {
	vala.BeginValidation().Validate(vala.IsNotNil(repo, "repo")).CheckAndPanic()
	return &Rules{policy: policy, repo: repo}
}

// Unlocks tells whether an installment unlocks the uniform & books.
func (r *Rules) Unlocks(installmentNumber int, amount decimal.Decimal) bool {
	return installmentNumber == core.UnlockInstallment && amount.GreaterThanOrEqual(r.policy.UnlockThreshold)
}

// ApplyInstallment runs the unlock rules for a freshly created installment.
// It must run with the executor of the transaction that inserted the installment.
func (r *Rules) ApplyInstallment(ctx context.Context, studentID, installmentNumber int, amount decimal.Decimal, exec core.DBExecutor) (Unlock, error) {
	if !r.Unlocks(installmentNumber, amount) {
		return Unlock{}, nil
	}

	now := NowFunc().UTC()
	for _, item := range Items {
		if _, err := r.repo.MarkDelivered(ctx, item, studentID, now, exec); err != nil {
			return Unlock{}, errors.Wrapf(err, "marking %s delivered", item)
		}
	}
	return Unlock{Uniform: true, Books: true}, nil
}

// CreateStatuses creates the not-delivered statuses of a new student.
func (r *Rules) CreateStatuses(ctx context.Context, studentID int, exec ...core.DBExecutor) error {
	return errors.Wrap(r.repo.CreateStatuses(ctx, studentID, exec...), "creating delivery statuses")
}

// Statuses returns the uniform & books statuses of a student.
// A missing status reads as not delivered.
func (r *Rules) Statuses(ctx context.Context, studentID int, exec ...core.DBExecutor) (uniform, books DeliveryStatus, err error) {
	if uniform, err = r.status(ctx, ItemUniform, studentID, exec); err != nil {
		return DeliveryStatus{}, DeliveryStatus{}, err
	}
	if books, err = r.status(ctx, ItemBooks, studentID, exec); err != nil {
		return DeliveryStatus{}, DeliveryStatus{}, err
	}
	return uniform, books, nil
}

func (r *Rules) status(ctx context.Context, item Item, studentID int, exec []core.DBExecutor) (DeliveryStatus, error) {
	status, err := r.repo.GetStatus(ctx, item, studentID, exec...)
	if err != nil {
		if errors.Cause(err) == ErrStatusNotFound {
			return DeliveryStatus{StudentID: studentID}, nil
		}
		return DeliveryStatus{}, errors.Wrapf(err, "getting %s status", item)
	}
	return status, nil
}

// SetDelivery is the manual override of an Item's status, regardless of payments.
func (r *Rules) SetDelivery(ctx context.Context, item Item, studentID int, delivered bool, exec ...core.DBExecutor) (DeliveryStatus, error) {
	status, err := r.repo.SetDelivered(ctx, item, studentID, delivered, NowFunc().UTC(), exec...)
	return status, errors.Wrapf(err, "setting %s delivery", item)
}

// Backfill creates the statuses students are missing.
func (r *Rules) Backfill(ctx context.Context, exec ...core.DBExecutor) (int, error) {
	n, err := r.repo.CreateMissingStatuses(ctx, exec...)
	return n, errors.Wrap(err, "creating missing delivery statuses")
}
