package student

import (
	"context"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/schooloffice/core"
	"github.com/trezcool/schooloffice/core/ledger"
	"github.com/trezcool/schooloffice/core/payment"
	"github.com/trezcool/schooloffice/core/result"
)

var (
	// errors
	ErrNotFound   = errors.New("student not found")
	ErrCodeExists = errors.New("student code already exists")

	errCodeTaken = core.NewValidationError(nil, core.FieldError{
		Field: "student_code",
		Error: "student with this student code already exists.",
	})

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		// CreateStudent returns ErrCodeExists when the student code is taken.
		CreateStudent(ctx context.Context, std Student, exec ...core.DBExecutor) (Student, error)
		GetStudent(ctx context.Context, id int, exec ...core.DBExecutor) (Student, error)
		StudentExists(ctx context.Context, id int, exec ...core.DBExecutor) (bool, error)
		// QueryStudents returns list rows with their total paid, delivery flags and total score filled in.
		QueryStudents(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]ListItem, error)
		// UpdateStudent returns ErrCodeExists when the student code is taken.
		UpdateStudent(ctx context.Context, std Student, exec ...core.DBExecutor) (Student, error)
		// DeleteStudents also deletes everything the students own.
		DeleteStudents(ctx context.Context, ids []int) (int, error)
	}

	Service struct {
		db       core.Transactor
		repo     Repository
		rules    *ledger.Rules
		payments *payment.Service
		results  *result.Service
	}
)

func NewService(
	db core.Transactor,
	repo Repository,
	rules *ledger.Rules,
	payments *payment.Service,
	results *result.Service,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(db, "db"),
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(rules, "rules"),
		vala.IsNotNil(payments, "payments"),
		vala.IsNotNil(results, "results"),
	).CheckAndPanic()

	return &Service{
		db:       db,
		repo:     repo,
		rules:    rules,
		payments: payments,
		results:  results,
	}
}

// Create inserts a student along with its delivery statuses and Result.
func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	if err := checkTotalScore(ns.TotalScore); err != nil {
		return Student{}, err
	}

	var std Student
	err := svc.db.InTx(ctx, func(exec core.DBExecutor) error {
		now := NowFunc().UTC()
		var err error
		std, err = svc.repo.CreateStudent(ctx, Student{
			StudentCode:    ns.StudentCode,
			Name:           ns.Name,
			Phone:          ns.Phone,
			Address:        ns.Address,
			ParentName:     ns.ParentName,
			ParentPhone:    ns.ParentPhone,
			AcademicLevel:  ns.AcademicLevel,
			Specialization: ns.Specialization,
			CreatedAt:      now,
			UpdatedAt:      now,
		}, exec)
		if err != nil {
			if errors.Cause(err) == ErrCodeExists {
				return errCodeTaken
			}
			return errors.Wrap(err, "creating student")
		}

		if err = svc.rules.CreateStatuses(ctx, std.ID, exec); err != nil {
			return err
		}
		_, err = svc.results.CreateForStudent(ctx, std.ID, ns.TotalScore, exec)
		return errors.Wrap(err, "creating result")
	})
	if err != nil {
		return Student{}, err
	}
	return std, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]ListItem, error) {
	filter.Clean()
	items, err := svc.repo.QueryStudents(ctx, filter, ordering)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	totalFee := svc.payments.Policy().TotalFee
	for i := range items {
		items[i].RemainingAmount = totalFee.Sub(items[i].TotalPaid)
	}
	return items, nil
}

func (svc *Service) GetByID(ctx context.Context, id int) (Student, error) {
	return svc.repo.GetStudent(ctx, id)
}

// GetDetail returns a student along with its payments, delivery statuses and Result.
func (svc *Service) GetDetail(ctx context.Context, id int) (Detail, error) {
	std, err := svc.repo.GetStudent(ctx, id)
	if err != nil {
		return Detail{}, err
	}

	dtl := Detail{Student: std}
	if dtl.TotalPaid, dtl.RemainingAmount, err = svc.payments.StudentTotals(ctx, id); err != nil {
		return Detail{}, err
	}
	filter := payment.QueryFilter{StudentID: id}
	if dtl.Installments, err = svc.payments.QueryInstallments(ctx, filter); err != nil {
		return Detail{}, errors.Wrap(err, "querying installments")
	}
	if dtl.Receipts, err = svc.payments.QueryReceipts(ctx, filter); err != nil {
		return Detail{}, errors.Wrap(err, "querying receipts")
	}
	if dtl.UniformStatus, dtl.BookStatus, err = svc.rules.Statuses(ctx, id); err != nil {
		return Detail{}, err
	}

	res, err := svc.results.GetByStudent(ctx, id)
	switch {
	case err == nil:
		dtl.Result = &res
	case errors.Cause(err) != result.ErrNotFound:
		return Detail{}, errors.Wrap(err, "getting result")
	}

	if dtl.Installments == nil {
		dtl.Installments = []payment.Installment{}
	}
	if dtl.Receipts == nil {
		dtl.Receipts = []payment.Receipt{}
	}
	return dtl, nil
}

// Update applies a partial update; an explicit total score overrides the student's Result total.
func (svc *Service) Update(ctx context.Context, id int, us UpdateStudent) (Student, error) {
	if err := checkTotalScore(us.TotalScore); err != nil {
		return Student{}, err
	}

	var std Student
	err := svc.db.InTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if std, err = svc.repo.GetStudent(ctx, id, exec); err != nil {
			return err
		}
		us.apply(&std)
		std.UpdatedAt = NowFunc().UTC()
		if std, err = svc.repo.UpdateStudent(ctx, std, exec); err != nil {
			if errors.Cause(err) == ErrCodeExists {
				return errCodeTaken
			}
			return errors.Wrap(err, "updating student")
		}

		if us.TotalScore != nil {
			_, err = svc.results.SetTotalScore(ctx, std.ID, *us.TotalScore, exec)
		}
		return err
	})
	if err != nil {
		return Student{}, err
	}
	return std, nil
}

func (svc *Service) Delete(ctx context.Context, ids ...int) (int, error) {
	return svc.repo.DeleteStudents(ctx, ids)
}

// SetDelivery manually sets the delivery flags of a student; nil flags are left untouched.
func (svc *Service) SetDelivery(ctx context.Context, id int, du DeliveryUpdate) (Detail, error) {
	exists, err := svc.repo.StudentExists(ctx, id)
	if err != nil {
		return Detail{}, errors.Wrap(err, "checking student")
	}
	if !exists {
		return Detail{}, ErrNotFound
	}

	err = svc.db.InTx(ctx, func(exec core.DBExecutor) error {
		if du.Uniform != nil {
			if _, err := svc.rules.SetDelivery(ctx, ledger.ItemUniform, id, *du.Uniform, exec); err != nil {
				return err
			}
		}
		if du.Books != nil {
			if _, err := svc.rules.SetDelivery(ctx, ledger.ItemBooks, id, *du.Books, exec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Detail{}, err
	}
	return svc.GetDetail(ctx, id)
}

// BackfillStatuses creates the delivery statuses and results students are missing.
// It returns how many rows were created.
func (svc *Service) BackfillStatuses(ctx context.Context) (int, error) {
	var created int
	err := svc.db.InTx(ctx, func(exec core.DBExecutor) error {
		statuses, err := svc.rules.Backfill(ctx, exec)
		if err != nil {
			return err
		}
		results, err := svc.results.CreateMissing(ctx, exec)
		if err != nil {
			return errors.Wrap(err, "creating missing results")
		}
		created = statuses + results
		return nil
	})
	return created, err
}

func (svc *Service) StudentExists(ctx context.Context, id int) (bool, error) {
	return svc.repo.StudentExists(ctx, id)
}
