package sqlxrepos

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/schooloffice/core"
	"github.com/trezcool/schooloffice/core/ledger"
)

const deliveryColumns = "id, student_id, is_delivered, delivered_at, created_at, updated_at"

var deliveryTables = map[ledger.Item]string{
	ledger.ItemUniform: "uniform_statuses",
	ledger.ItemBooks:   "book_statuses",
}

type deliveryRepository struct {
	repository
}

var _ ledger.DeliveryRepository = (*deliveryRepository)(nil) // interface compliance check

func NewDeliveryRepository(exec core.DBExecutor) *deliveryRepository {
	return &deliveryRepository{repository{exec: exec}}
}

func table(item ledger.Item) (string, error) {
	tbl, ok := deliveryTables[item]
	if !ok {
		return "", errors.Errorf("unknown item %q", item)
	}
	return tbl, nil
}

func (repo deliveryRepository) CreateStatuses(ctx context.Context, studentID int, exec ...core.DBExecutor) error {
	for _, item := range ledger.Items {
		tbl, err := table(item)
		if err != nil {
			return err
		}
		_, err = repo.getExec(exec).ExecContext(ctx, fmt.Sprintf(
			"INSERT INTO %s (student_id) VALUES ($1) ON CONFLICT (student_id) DO NOTHING", tbl), studentID)
		if err != nil {
			return errors.Wrapf(err, "inserting %s status", item)
		}
	}
	return nil
}

func (repo deliveryRepository) CreateMissingStatuses(ctx context.Context, exec ...core.DBExecutor) (int, error) {
	var created int
	for _, item := range ledger.Items {
		tbl, err := table(item)
		if err != nil {
			return 0, err
		}
		res, err := repo.getExec(exec).ExecContext(ctx, fmt.Sprintf(`
			INSERT INTO %[1]s (student_id)
			SELECT s.id FROM students s
			WHERE NOT EXISTS (SELECT 1 FROM %[1]s t WHERE t.student_id = s.id)`, tbl))
		if err != nil {
			return 0, errors.Wrapf(err, "inserting missing %s statuses", item)
		}
		n, err := rowsAffected(res)
		if err != nil {
			return 0, err
		}
		created += n
	}
	return created, nil
}

func (repo deliveryRepository) GetStatus(ctx context.Context, item ledger.Item, studentID int, exec ...core.DBExecutor) (ledger.DeliveryStatus, error) {
	tbl, err := table(item)
	if err != nil {
		return ledger.DeliveryStatus{}, err
	}
	var status ledger.DeliveryStatus
	err = repo.getExec(exec).GetContext(ctx, &status,
		fmt.Sprintf("SELECT %s FROM %s WHERE student_id = $1", deliveryColumns, tbl), studentID)
	if err != nil {
		return ledger.DeliveryStatus{}, trapNoRowsErr(err, ledger.ErrStatusNotFound, "selecting "+string(item)+" status")
	}
	return status, nil
}

// MarkDelivered upserts the status; an already delivered status is left as is.
func (repo deliveryRepository) MarkDelivered(ctx context.Context, item ledger.Item, studentID int, at time.Time, exec ...core.DBExecutor) (bool, error) {
	tbl, err := table(item)
	if err != nil {
		return false, err
	}
	res, err := repo.getExec(exec).ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %[1]s AS t (student_id, is_delivered, delivered_at, updated_at)
		VALUES ($1, TRUE, $2, $2)
		ON CONFLICT (student_id) DO UPDATE
		SET is_delivered = TRUE, delivered_at = EXCLUDED.delivered_at, updated_at = EXCLUDED.updated_at
		WHERE t.is_delivered = FALSE`, tbl),
		studentID, at.UTC())
	if err != nil {
		return false, errors.Wrapf(err, "marking %s delivered", item)
	}
	n, err := rowsAffected(res)
	return n > 0, err
}

func (repo deliveryRepository) SetDelivered(ctx context.Context, item ledger.Item, studentID int, delivered bool, at time.Time, exec ...core.DBExecutor) (ledger.DeliveryStatus, error) {
	tbl, err := table(item)
	if err != nil {
		return ledger.DeliveryStatus{}, err
	}
	deliveredAt := null.NewTime(at.UTC(), delivered)

	var status ledger.DeliveryStatus
	err = repo.getExec(exec).GetContext(ctx, &status, fmt.Sprintf(`
		INSERT INTO %[1]s AS t (student_id, is_delivered, delivered_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (student_id) DO UPDATE
		SET is_delivered = EXCLUDED.is_delivered,
		    delivered_at = CASE WHEN EXCLUDED.is_delivered THEN COALESCE(t.delivered_at, EXCLUDED.delivered_at) END,
		    updated_at = EXCLUDED.updated_at
		RETURNING %[2]s`, tbl, deliveryColumns),
		studentID, delivered, deliveredAt, at.UTC())
	if err != nil {
		return ledger.DeliveryStatus{}, errors.Wrapf(err, "setting %s delivery", item)
	}
	return status, nil
}
