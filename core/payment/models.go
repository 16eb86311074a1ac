package payment

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/trezcool/schooloffice/core"
)

// Installment is one of the tuition payments of a student. It is never updated.
type Installment struct {
	ID                int             `json:"id" db:"id"`
	StudentID         int             `json:"student" db:"student_id"`
	InstallmentNumber int             `json:"installment_number" db:"installment_number"`
	Amount            decimal.Decimal `json:"amount" db:"amount"`
	PaymentDate       time.Time       `json:"payment_date" db:"payment_date"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
}

// Receipt is the proof of payment of an Installment, a snapshot of the student's totals at the time.
type Receipt struct {
	ID                int             `json:"id" db:"id"`
	ReceiptNumber     string          `json:"receipt_number" db:"receipt_number"`
	StudentID         int             `json:"student" db:"student_id"`
	StudentName       string          `json:"student_name" db:"student_name"`
	StudentCode       string          `json:"student_code" db:"student_code"`
	InstallmentID     int             `json:"installment" db:"installment_id"`
	InstallmentNumber int             `json:"installment_number" db:"installment_number"`
	TotalPaid         decimal.Decimal `json:"total_paid" db:"total_paid"`
	RemainingAmount   decimal.Decimal `json:"remaining_amount" db:"remaining_amount"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
}

// Payment is the outcome of RecordPayment.
// The unlock flags tell whether this payment satisfies the unlock condition, even if the items were already delivered.
type Payment struct {
	Installment     Installment `json:"installment"`
	Receipt         Receipt     `json:"receipt"`
	UniformUnlocked bool        `json:"uniform_unlocked"`
	BooksUnlocked   bool        `json:"books_unlocked"`
}

// NewPayment contains information needed to record a payment.
type NewPayment struct {
	StudentID         int              `json:"student_id" validate:"required"`
	InstallmentNumber int              `json:"installment_number" validate:"required"`
	Amount            *decimal.Decimal `json:"amount"` // defaults to the policy's installment amount
}

func (np *NewPayment) Validate(validate *validator.Validate, policy core.FeePolicy) error {
	if err := validate.Struct(np); err != nil {
		return err
	}
	return np.check(policy)
}

// check applies the fee policy rules and sets the default amount.
func (np *NewPayment) check(policy core.FeePolicy) error {
	var flds []core.FieldError
	if np.StudentID <= 0 {
		flds = append(flds, core.FieldError{Field: "student_id", Error: "this field is required"})
	}
	if np.InstallmentNumber < 1 || np.InstallmentNumber > policy.MaxInstallments {
		flds = append(flds, core.FieldError{
			Field: "installment_number",
			Error: fmt.Sprintf("installment_number must be between 1 and %d", policy.MaxInstallments),
		})
	}
	if np.Amount == nil {
		amount := policy.InstallmentAmount
		np.Amount = &amount
	} else if fErr := checkAmount(*np.Amount); fErr != nil {
		flds = append(flds, *fErr)
	}

	if flds != nil {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

func checkAmount(amount decimal.Decimal) *core.FieldError {
	switch {
	case !amount.IsPositive():
		return &core.FieldError{Field: "amount", Error: "amount must be greater than 0"}
	case !amount.Equal(amount.Round(2)):
		return &core.FieldError{Field: "amount", Error: "amount must not have more than 2 decimal places"}
	case amount.GreaterThan(core.MaxAmount):
		return &core.FieldError{Field: "amount", Error: "amount must not have more than 10 digits in total"}
	}
	return nil
}

// NewInstallment is the plain installment creation payload (no receipt is issued).
type NewInstallment struct {
	StudentID         int              `json:"student" validate:"required"`
	InstallmentNumber int              `json:"installment_number" validate:"required"`
	Amount            *decimal.Decimal `json:"amount"`
	PaymentDate       *time.Time       `json:"payment_date"`
}

func (ni *NewInstallment) Validate(validate *validator.Validate, policy core.FeePolicy) error {
	if err := validate.Struct(ni); err != nil {
		return err
	}
	np := ni.payment()
	err := np.check(policy)
	ni.Amount = np.Amount
	return err
}

func (ni NewInstallment) payment() NewPayment {
	return NewPayment{StudentID: ni.StudentID, InstallmentNumber: ni.InstallmentNumber, Amount: ni.Amount}
}

type QueryFilter struct {
	StudentID int `query:"student"`
}
