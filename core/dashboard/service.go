// Package dashboard computes the back office summary. It never writes and never caches.
package dashboard

import (
	"context"
	"fmt"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/schooloffice/core/contact"
	"github.com/trezcool/schooloffice/core/payment"
)

const (
	recentLimit = 5
	levelCount  = 3
)

type Stats struct {
	TotalStudents          int                   `json:"total_students"`
	TotalUniformsDelivered int                   `json:"total_uniforms_delivered"`
	TotalPayments          int                   `json:"total_payments"`
	StudentsByLevel        map[string]int        `json:"students_by_level"`
	RecentPayments         []payment.Installment `json:"recent_payments"`
	UnreadMessages         int                   `json:"unread_messages"`
	RecentMessages         []contact.Message     `json:"recent_messages"`
}

type (
	Repository interface {
		CountStudents(ctx context.Context) (int, error)
		// CountStudentsByLevel maps academic levels to their student count; levels without students may be absent.
		CountStudentsByLevel(ctx context.Context) (map[int]int, error)
		CountUniformsDelivered(ctx context.Context) (int, error)
		CountInstallments(ctx context.Context) (int, error)
		RecentInstallments(ctx context.Context, limit int) ([]payment.Installment, error)
		CountUnreadMessages(ctx context.Context) (int, error)
		RecentMessages(ctx context.Context, limit int) ([]contact.Message, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	vala.BeginValidation().Validate(vala.IsNotNil(repo, "repo")).CheckAndPanic()
	return &Service{repo: repo}
}

func (svc *Service) Stats(ctx context.Context) (Stats, error) {
	var (
		stats Stats
		err   error
	)

	if stats.TotalStudents, err = svc.repo.CountStudents(ctx); err != nil {
		return Stats{}, errors.Wrap(err, "counting students")
	}
	if stats.TotalUniformsDelivered, err = svc.repo.CountUniformsDelivered(ctx); err != nil {
		return Stats{}, errors.Wrap(err, "counting delivered uniforms")
	}
	if stats.TotalPayments, err = svc.repo.CountInstallments(ctx); err != nil {
		return Stats{}, errors.Wrap(err, "counting installments")
	}

	byLevel, err := svc.repo.CountStudentsByLevel(ctx)
	if err != nil {
		return Stats{}, errors.Wrap(err, "counting students by level")
	}
	stats.StudentsByLevel = make(map[string]int, levelCount)
	for level := 1; level <= levelCount; level++ {
		stats.StudentsByLevel[fmt.Sprintf("level_%d", level)] = byLevel[level]
	}

	if stats.RecentPayments, err = svc.repo.RecentInstallments(ctx, recentLimit); err != nil {
		return Stats{}, errors.Wrap(err, "querying recent installments")
	}
	if stats.UnreadMessages, err = svc.repo.CountUnreadMessages(ctx); err != nil {
		return Stats{}, errors.Wrap(err, "counting unread messages")
	}
	if stats.RecentMessages, err = svc.repo.RecentMessages(ctx, recentLimit); err != nil {
		return Stats{}, errors.Wrap(err, "querying recent messages")
	}

	if stats.RecentPayments == nil {
		stats.RecentPayments = []payment.Installment{}
	}
	if stats.RecentMessages == nil {
		stats.RecentMessages = []contact.Message{}
	}
	return stats, nil
}
