package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/schooloffice/core"
	"github.com/trezcool/schooloffice/core/contact"
	"github.com/trezcool/schooloffice/core/dashboard"
	"github.com/trezcool/schooloffice/core/payment"
)

type dashboardRepository struct {
	repository
}

var _ dashboard.Repository = (*dashboardRepository)(nil) // interface compliance check

func NewDashboardRepository(exec core.DBExecutor) *dashboardRepository {
	return &dashboardRepository{repository{exec: exec}}
}

func (repo dashboardRepository) CountStudents(ctx context.Context) (int, error) {
	return count(ctx, repo.exec, "SELECT COUNT(*) FROM students")
}

func (repo dashboardRepository) CountStudentsByLevel(ctx context.Context) (map[int]int, error) {
	var rows []struct {
		Level int `db:"academic_level"`
		Count int `db:"count"`
	}
	err := repo.exec.SelectContext(ctx, &rows,
		"SELECT academic_level, COUNT(*) AS count FROM students GROUP BY academic_level")
	if err != nil {
		return nil, errors.Wrap(err, "counting students by level")
	}
	byLevel := make(map[int]int, len(rows))
	for _, row := range rows {
		byLevel[row.Level] = row.Count
	}
	return byLevel, nil
}

func (repo dashboardRepository) CountUniformsDelivered(ctx context.Context) (int, error) {
	return count(ctx, repo.exec, "SELECT COUNT(*) FROM uniform_statuses WHERE is_delivered")
}

func (repo dashboardRepository) CountInstallments(ctx context.Context) (int, error) {
	return count(ctx, repo.exec, "SELECT COUNT(*) FROM installments")
}

func (repo dashboardRepository) RecentInstallments(ctx context.Context, limit int) ([]payment.Installment, error) {
	insts := make([]payment.Installment, 0, limit)
	err := repo.exec.SelectContext(ctx, &insts,
		"SELECT "+installmentColumns+" FROM installments ORDER BY created_at DESC, id DESC LIMIT $1", limit)
	return insts, errors.Wrap(err, "selecting recent installments")
}

func (repo dashboardRepository) CountUnreadMessages(ctx context.Context) (int, error) {
	return count(ctx, repo.exec, "SELECT COUNT(*) FROM contact_messages WHERE NOT is_read")
}

func (repo dashboardRepository) RecentMessages(ctx context.Context, limit int) ([]contact.Message, error) {
	msgs := make([]contact.Message, 0, limit)
	err := repo.exec.SelectContext(ctx, &msgs,
		"SELECT "+contactColumns+" FROM contact_messages ORDER BY created_at DESC, id DESC LIMIT $1", limit)
	return msgs, errors.Wrap(err, "selecting recent messages")
}
