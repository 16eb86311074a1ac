package result

import (
	"context"
	"fmt"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/schooloffice/core"
)

var (
	// errors
	ErrNotFound         = errors.New("result not found")
	ErrSubjectNotFound  = errors.New("subject result not found")
	ErrDuplicateSubject = errors.New("subject already exists")

	errStudentNotFound = core.NewNotFoundError("Student not found.")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		// GetOrCreateResult returns the student's Result, creating an empty one if needed.
		GetOrCreateResult(ctx context.Context, studentID int, now time.Time, exec ...core.DBExecutor) (Result, error)
		// GetResult and the other getters load the Result's Subjects too.
		GetResult(ctx context.Context, id int, exec ...core.DBExecutor) (Result, error)
		GetResultByStudent(ctx context.Context, studentID int, exec ...core.DBExecutor) (Result, error)
		QueryResults(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Result, error)
		// CreateMissingResults creates empty results for students without one and returns how many were created.
		CreateMissingResults(ctx context.Context, exec ...core.DBExecutor) (int, error)
		DeleteResults(ctx context.Context, ids []int, exec ...core.DBExecutor) (int, error)

		SubjectExists(ctx context.Context, resultID int, name string, exec ...core.DBExecutor) (bool, error)
		// CreateSubject returns ErrDuplicateSubject when the name is taken within the Result.
		CreateSubject(ctx context.Context, sr SubjectResult, exec ...core.DBExecutor) (SubjectResult, error)
		DeleteSubject(ctx context.Context, resultID, subjectID int, exec ...core.DBExecutor) error
		SumScores(ctx context.Context, resultID int, exec ...core.DBExecutor) (decimal.Decimal, error)
		SetTotalScore(ctx context.Context, resultID int, score decimal.Decimal, now time.Time, exec ...core.DBExecutor) error
	}

	// StudentChecker is the part of the student repository results rely on.
	StudentChecker interface {
		StudentExists(ctx context.Context, id int, exec ...core.DBExecutor) (bool, error)
	}

	Service struct {
		db       core.Transactor
		repo     Repository
		students StudentChecker
	}
)

func NewService(db core.Transactor, repo Repository, students StudentChecker) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(db, "db"),
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(students, "students"),
	).CheckAndPanic()

	return &Service{db: db, repo: repo, students: students}
}

func (svc *Service) checkStudent(ctx context.Context, studentID int) error {
	exists, err := svc.students.StudentExists(ctx, studentID)
	if err != nil {
		return errors.Wrap(err, "checking student")
	}
	if !exists {
		return errStudentNotFound
	}
	return nil
}

// recompute sets the Result's total score to the sum of its subject scores.
func (svc *Service) recompute(ctx context.Context, resultID int, exec core.DBExecutor) error {
	total, err := svc.repo.SumScores(ctx, resultID, exec)
	if err != nil {
		return errors.Wrap(err, "summing scores")
	}
	if fErr := CheckScore("total_score", total); fErr != nil {
		return core.NewValidationError(nil, *fErr)
	}
	return errors.Wrap(svc.repo.SetTotalScore(ctx, resultID, total, NowFunc().UTC(), exec), "setting total score")
}

// AddSubjectScore adds a subject score to the student's Result (created if needed) and recomputes its total.
func (svc *Service) AddSubjectScore(ctx context.Context, ns NewSubjectScore) (Result, error) {
	if err := ns.check(); err != nil {
		return Result{}, err
	}
	if err := svc.checkStudent(ctx, ns.StudentID); err != nil {
		return Result{}, err
	}

	var res Result
	err := svc.db.InTx(ctx, func(exec core.DBExecutor) error {
		r, err := svc.repo.GetOrCreateResult(ctx, ns.StudentID, NowFunc().UTC(), exec)
		if err != nil {
			return errors.Wrap(err, "getting or creating result")
		}

		conflict := core.NewConflictError(fmt.Sprintf("Subject %q already recorded for this student.", ns.SubjectName))
		exists, err := svc.repo.SubjectExists(ctx, r.ID, ns.SubjectName, exec)
		if err != nil {
			return errors.Wrap(err, "checking subject")
		}
		if exists {
			return conflict
		}
		if _, err = svc.repo.CreateSubject(ctx, SubjectResult{ResultID: r.ID, SubjectName: ns.SubjectName, Score: *ns.Score}, exec); err != nil {
			if errors.Cause(err) == ErrDuplicateSubject {
				return conflict
			}
			return errors.Wrap(err, "creating subject result")
		}

		if err = svc.recompute(ctx, r.ID, exec); err != nil {
			return err
		}
		res, err = svc.repo.GetResult(ctx, r.ID, exec)
		return errors.Wrap(err, "reloading result")
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// RemoveSubject deletes a subject score from a Result and recomputes its total.
func (svc *Service) RemoveSubject(ctx context.Context, resultID, subjectID int) (Result, error) {
	var res Result
	err := svc.db.InTx(ctx, func(exec core.DBExecutor) error {
		if err := svc.repo.DeleteSubject(ctx, resultID, subjectID, exec); err != nil {
			return err
		}
		if err := svc.recompute(ctx, resultID, exec); err != nil {
			return err
		}
		var err error
		res, err = svc.repo.GetResult(ctx, resultID, exec)
		return errors.Wrap(err, "reloading result")
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// SetTotalScore overrides the student's total score, bypassing subject aggregation.
func (svc *Service) SetTotalScore(ctx context.Context, studentID int, score decimal.Decimal, exec ...core.DBExecutor) (Result, error) {
	if fErr := CheckScore("total_score", score); fErr != nil {
		return Result{}, core.NewValidationError(nil, *fErr)
	}
	now := NowFunc().UTC()
	r, err := svc.repo.GetOrCreateResult(ctx, studentID, now, exec...)
	if err != nil {
		return Result{}, errors.Wrap(err, "getting or creating result")
	}
	if err = svc.repo.SetTotalScore(ctx, r.ID, score, now, exec...); err != nil {
		return Result{}, errors.Wrap(err, "setting total score")
	}
	return svc.repo.GetResult(ctx, r.ID, exec...)
}

// CreateForStudent creates the Result that goes along a new student.
func (svc *Service) CreateForStudent(ctx context.Context, studentID int, totalScore *decimal.Decimal, exec ...core.DBExecutor) (Result, error) {
	if totalScore != nil {
		return svc.SetTotalScore(ctx, studentID, *totalScore, exec...)
	}
	return svc.repo.GetOrCreateResult(ctx, studentID, NowFunc().UTC(), exec...)
}

// Create gets or creates a student's Result; an explicit total score is applied as an override.
func (svc *Service) Create(ctx context.Context, nr NewResult) (Result, error) {
	if err := svc.checkStudent(ctx, nr.StudentID); err != nil {
		return Result{}, err
	}
	var res Result
	err := svc.db.InTx(ctx, func(exec core.DBExecutor) error {
		var err error
		res, err = svc.CreateForStudent(ctx, nr.StudentID, nr.TotalScore, exec)
		return err
	})
	return res, err
}

func (svc *Service) Update(ctx context.Context, id int, ur UpdateResult) (Result, error) {
	if ur.TotalScore == nil {
		return Result{}, core.NewValidationError(nil, core.FieldError{Field: "total_score", Error: "this field is required"})
	}
	r, err := svc.repo.GetResult(ctx, id)
	if err != nil {
		return Result{}, err
	}
	return svc.SetTotalScore(ctx, r.StudentID, *ur.TotalScore)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Result, error) {
	return svc.repo.GetResult(ctx, id)
}

func (svc *Service) GetByStudent(ctx context.Context, studentID int, exec ...core.DBExecutor) (Result, error) {
	return svc.repo.GetResultByStudent(ctx, studentID, exec...)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Result, error) {
	return svc.repo.QueryResults(ctx, filter)
}

func (svc *Service) CreateMissing(ctx context.Context, exec ...core.DBExecutor) (int, error) {
	return svc.repo.CreateMissingResults(ctx, exec...)
}

func (svc *Service) Delete(ctx context.Context, ids ...int) (int, error) {
	return svc.repo.DeleteResults(ctx, ids)
}
