package inmemdb

import (
	"context"

	"github.com/trezcool/schooloffice/core/contact"
	"github.com/trezcool/schooloffice/core/dashboard"
	"github.com/trezcool/schooloffice/core/ledger"
	"github.com/trezcool/schooloffice/core/payment"
)

type dashboardRepository struct {
	db *DB
}

var _ dashboard.Repository = (*dashboardRepository)(nil) // interface compliance check

func NewDashboardRepository(db *DB) *dashboardRepository {
	return &dashboardRepository{db: db}
}

func (repo *dashboardRepository) CountStudents(_ context.Context) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return len(repo.db.students), nil
}

func (repo *dashboardRepository) CountStudentsByLevel(_ context.Context) (map[int]int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	byLevel := make(map[int]int)
	for _, std := range repo.db.students {
		byLevel[std.AcademicLevel]++
	}
	return byLevel, nil
}

func (repo *dashboardRepository) CountUniformsDelivered(_ context.Context) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var n int
	for _, status := range repo.db.deliveries[ledger.ItemUniform] {
		if status.IsDelivered {
			n++
		}
	}
	return n, nil
}

func (repo *dashboardRepository) CountInstallments(_ context.Context) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return len(repo.db.installments), nil
}

func (repo *dashboardRepository) RecentInstallments(_ context.Context, limit int) ([]payment.Installment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	insts := make([]payment.Installment, 0, len(repo.db.installments))
	for _, inst := range repo.db.installments {
		insts = append(insts, inst)
	}
	sortInstallmentsNewestFirst(insts)
	if len(insts) > limit {
		insts = insts[:limit]
	}
	return insts, nil
}

func (repo *dashboardRepository) CountUnreadMessages(_ context.Context) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var n int
	for _, msg := range repo.db.messages {
		if !msg.IsRead {
			n++
		}
	}
	return n, nil
}

func (repo *dashboardRepository) RecentMessages(_ context.Context, limit int) ([]contact.Message, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	msgs := repo.db.newestMessages(nil)
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}
