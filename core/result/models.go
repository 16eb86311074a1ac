package result

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/trezcool/schooloffice/core"
)

// MaxScore is the largest value a numeric(5,2) score holds.
var MaxScore = decimal.RequireFromString("999.99")

// Result aggregates a student's subject scores. TotalScore is the sum of its Subjects
// unless it was set by an administrative override since the last subject change.
type Result struct {
	ID         int             `json:"id" db:"id"`
	StudentID  int             `json:"student" db:"student_id"`
	TotalScore decimal.Decimal `json:"total_score" db:"total_score"`
	Subjects   []SubjectResult `json:"subjects" db:"-"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}

type SubjectResult struct {
	ID          int             `json:"id" db:"id"`
	ResultID    int             `json:"-" db:"result_id"`
	SubjectName string          `json:"subject_name" db:"subject_name"`
	Score       decimal.Decimal `json:"score" db:"score"`
}

// NewSubjectScore contains information needed to add a subject score to a student's Result.
type NewSubjectScore struct {
	StudentID   int              `json:"student_id" validate:"required"`
	SubjectName string           `json:"subject_name" validate:"required,max=100"`
	Score       *decimal.Decimal `json:"score" validate:"required"`
}

func (ns *NewSubjectScore) Validate(validate *validator.Validate) error {
	ns.SubjectName = core.CleanString(ns.SubjectName)
	if err := validate.Struct(ns); err != nil {
		return err
	}
	return ns.check()
}

func (ns *NewSubjectScore) check() error {
	ns.SubjectName = core.CleanString(ns.SubjectName)

	var flds []core.FieldError
	if ns.StudentID <= 0 {
		flds = append(flds, core.FieldError{Field: "student_id", Error: "this field is required"})
	}
	if ns.SubjectName == "" {
		flds = append(flds, core.FieldError{Field: "subject_name", Error: "this field is required"})
	}
	if ns.Score == nil {
		flds = append(flds, core.FieldError{Field: "score", Error: "this field is required"})
	} else if fErr := CheckScore("score", *ns.Score); fErr != nil {
		flds = append(flds, *fErr)
	}
	if flds != nil {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

// CheckScore validates a score (or a total score) against the numeric(5,2) bounds.
func CheckScore(field string, score decimal.Decimal) *core.FieldError {
	switch {
	case score.IsNegative():
		return &core.FieldError{Field: field, Error: field + " must be greater than or equal to 0"}
	case !score.Equal(score.Round(2)):
		return &core.FieldError{Field: field, Error: field + " must not have more than 2 decimal places"}
	case score.GreaterThan(MaxScore):
		return &core.FieldError{Field: field, Error: field + " must be less than or equal to " + MaxScore.String()}
	}
	return nil
}

// NewResult creates the Result of a student, optionally with an explicit total score.
type NewResult struct {
	StudentID  int              `json:"student" validate:"required"`
	TotalScore *decimal.Decimal `json:"total_score"`
}

// UpdateResult overrides the total score of a Result.
type UpdateResult struct {
	TotalScore *decimal.Decimal `json:"total_score" validate:"required"`
}

type QueryFilter struct {
	StudentID int `query:"student"`
}
