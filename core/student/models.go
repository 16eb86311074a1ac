package student

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/trezcool/schooloffice/core"
	"github.com/trezcool/schooloffice/core/ledger"
	"github.com/trezcool/schooloffice/core/payment"
	"github.com/trezcool/schooloffice/core/result"
)

// Specializations
const (
	SpecGeneral    = "Gen"
	SpecScientific = "Sci"
	SpecLiterary   = "Lit"
)

const minLevel = 1

var Specializations = []Specialization{
	{Name: "General", Value: SpecGeneral},
	{Name: "Scientific", Value: SpecScientific},
	{Name: "Literary", Value: SpecLiterary},
}

type Specialization struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Student struct {
	ID             int       `json:"id" db:"id"`
	StudentCode    string    `json:"student_code" db:"student_code"`
	Name           string    `json:"name" db:"name"`
	Phone          string    `json:"phone" db:"phone"`
	Address        string    `json:"address" db:"address"`
	ParentName     string    `json:"parent_name" db:"parent_name"`
	ParentPhone    string    `json:"parent_phone" db:"parent_phone"`
	AcademicLevel  int       `json:"academic_level" db:"academic_level"`
	Specialization string    `json:"specialization" db:"specialization"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// ListItem is a Student as listed, along with its payment, delivery and score summary.
type ListItem struct {
	Student
	TotalPaid        decimal.Decimal `json:"total_paid" db:"total_paid"`
	RemainingAmount  decimal.Decimal `json:"remaining_amount" db:"remaining_amount"`
	UniformDelivered bool            `json:"uniform_delivered" db:"uniform_delivered"`
	BooksDelivered   bool            `json:"books_delivered" db:"books_delivered"`
	TotalScore       decimal.Decimal `json:"total_score" db:"total_score"`
}

// Detail is a Student with everything it owns.
type Detail struct {
	Student
	TotalPaid       decimal.Decimal       `json:"total_paid"`
	RemainingAmount decimal.Decimal       `json:"remaining_amount"`
	Installments    []payment.Installment `json:"installments"`
	Receipts        []payment.Receipt     `json:"receipts"`
	UniformStatus   ledger.DeliveryStatus `json:"uniform_status"`
	BookStatus      ledger.DeliveryStatus `json:"book_status"`
	Result          *result.Result        `json:"result"`
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	StudentCode    string           `json:"student_code" validate:"required,max=20,studentcode"`
	Name           string           `json:"name" validate:"required,max=200"`
	Phone          string           `json:"phone" validate:"omitempty,max=20"`
	Address        string           `json:"address"`
	ParentName     string           `json:"parent_name" validate:"omitempty,max=200"`
	ParentPhone    string           `json:"parent_phone" validate:"omitempty,max=20"`
	AcademicLevel  int              `json:"academic_level" validate:"min=1,max=3"`
	Specialization string           `json:"specialization" validate:"oneof=Gen Sci Lit"`
	TotalScore     *decimal.Decimal `json:"total_score"` // administrative override of the result's total score
}

func (ns *NewStudent) clean() {
	ns.StudentCode = core.CleanString(ns.StudentCode)
	ns.Name = core.CleanString(ns.Name)
	ns.Phone = core.CleanString(ns.Phone)
	ns.Address = core.CleanString(ns.Address)
	ns.ParentName = core.CleanString(ns.ParentName)
	ns.ParentPhone = core.CleanString(ns.ParentPhone)
	if ns.AcademicLevel == 0 {
		ns.AcademicLevel = minLevel
	}
	if ns.Specialization == "" {
		ns.Specialization = SpecGeneral
	}
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.clean()
	if err := validate.Struct(ns); err != nil {
		return err
	}
	return checkTotalScore(ns.TotalScore)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// Nil fields are left untouched.
type UpdateStudent struct {
	StudentCode    *string          `json:"student_code" validate:"omitempty,min=1,max=20,studentcode"`
	Name           *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Phone          *string          `json:"phone" validate:"omitempty,max=20"`
	Address        *string          `json:"address"`
	ParentName     *string          `json:"parent_name" validate:"omitempty,max=200"`
	ParentPhone    *string          `json:"parent_phone" validate:"omitempty,max=20"`
	AcademicLevel  *int             `json:"academic_level" validate:"omitempty,min=1,max=3"`
	Specialization *string          `json:"specialization" validate:"omitempty,oneof=Gen Sci Lit"`
	TotalScore     *decimal.Decimal `json:"total_score"`
}

func (us *UpdateStudent) Validate(validate *validator.Validate) error {
	for _, s := range []*string{us.StudentCode, us.Name, us.Phone, us.Address, us.ParentName, us.ParentPhone, us.Specialization} {
		if s != nil {
			*s = core.CleanString(*s)
		}
	}
	if err := validate.Struct(us); err != nil {
		return err
	}
	return checkTotalScore(us.TotalScore)
}

// apply copies the provided fields onto std.
func (us UpdateStudent) apply(std *Student) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&std.StudentCode, us.StudentCode)
	set(&std.Name, us.Name)
	set(&std.Phone, us.Phone)
	set(&std.Address, us.Address)
	set(&std.ParentName, us.ParentName)
	set(&std.ParentPhone, us.ParentPhone)
	set(&std.Specialization, us.Specialization)
	if us.AcademicLevel != nil {
		std.AcademicLevel = *us.AcademicLevel
	}
}

func checkTotalScore(score *decimal.Decimal) error {
	if score == nil {
		return nil
	}
	if fErr := result.CheckScore("total_score", *score); fErr != nil {
		return core.NewValidationError(nil, *fErr)
	}
	return nil
}

// DeliveryUpdate manually sets the uniform and/or books delivery flags.
type DeliveryUpdate struct {
	Uniform *bool `json:"uniform_delivered"`
	Books   *bool `json:"books_delivered"`
}

type QueryFilter struct {
	Search         string `query:"search"`
	Level          int    `query:"level"`
	Specialization string `query:"specialization"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Specialization = core.CleanString(qf.Specialization)
}
