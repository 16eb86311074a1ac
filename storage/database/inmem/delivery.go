package inmemdb

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/schooloffice/core"
	"github.com/trezcool/schooloffice/core/ledger"
)

type deliveryRepository struct {
	db *DB
}

var _ ledger.DeliveryRepository = (*deliveryRepository)(nil) // interface compliance check

func NewDeliveryRepository(db *DB) *deliveryRepository {
	return &deliveryRepository{db: db}
}

// newStatus inserts a not-delivered status. Callers must hold the write lock.
func (repo *deliveryRepository) newStatus(item ledger.Item, studentID int, now time.Time) ledger.DeliveryStatus {
	status := ledger.DeliveryStatus{
		ID:        repo.db.nextID(string(item)),
		StudentID: studentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	repo.db.deliveries[item][studentID] = status
	return status
}

func (repo *deliveryRepository) CreateStatuses(_ context.Context, studentID int, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	now := ledger.NowFunc().UTC()
	for _, item := range ledger.Items {
		if _, ok := repo.db.deliveries[item][studentID]; !ok {
			repo.newStatus(item, studentID, now)
		}
	}
	return nil
}

func (repo *deliveryRepository) CreateMissingStatuses(_ context.Context, _ ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	now := ledger.NowFunc().UTC()
	var created int
	for _, item := range ledger.Items {
		for id := range repo.db.students {
			if _, ok := repo.db.deliveries[item][id]; !ok {
				repo.newStatus(item, id, now)
				created++
			}
		}
	}
	return created, nil
}

func (repo *deliveryRepository) GetStatus(_ context.Context, item ledger.Item, studentID int, _ ...core.DBExecutor) (ledger.DeliveryStatus, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if status, ok := repo.db.deliveries[item][studentID]; ok {
		return status, nil
	}
	return ledger.DeliveryStatus{}, ledger.ErrStatusNotFound
}

func (repo *deliveryRepository) MarkDelivered(_ context.Context, item ledger.Item, studentID int, at time.Time, _ ...core.DBExecutor) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	status, ok := repo.db.deliveries[item][studentID]
	if !ok {
		status = repo.newStatus(item, studentID, at)
	}
	if status.IsDelivered {
		return false, nil
	}
	status.IsDelivered = true
	status.DeliveredAt = null.TimeFrom(at)
	status.UpdatedAt = at
	repo.db.deliveries[item][studentID] = status
	return true, nil
}

func (repo *deliveryRepository) SetDelivered(_ context.Context, item ledger.Item, studentID int, delivered bool, at time.Time, _ ...core.DBExecutor) (ledger.DeliveryStatus, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	status, ok := repo.db.deliveries[item][studentID]
	if !ok {
		status = repo.newStatus(item, studentID, at)
	}
	switch {
	case !delivered:
		status.DeliveredAt = null.Time{}
	case !status.IsDelivered:
		status.DeliveredAt = null.TimeFrom(at)
	}
	status.IsDelivered = delivered
	status.UpdatedAt = at
	repo.db.deliveries[item][studentID] = status
	return status, nil
}
