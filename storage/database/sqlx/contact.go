package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/schooloffice/core"
	"github.com/trezcool/schooloffice/core/contact"
)

const contactColumns = "id, name, email, phone, subject, message, is_read, created_at"

type contactRepository struct {
	repository
}

var _ contact.Repository = (*contactRepository)(nil) // interface compliance check

func NewContactRepository(exec core.DBExecutor) *contactRepository {
	return &contactRepository{repository{exec: exec}}
}

func (repo contactRepository) CreateMessage(ctx context.Context, msg contact.Message) (contact.Message, error) {
	var created contact.Message
	err := repo.exec.GetContext(ctx, &created, `
		INSERT INTO contact_messages (name, email, phone, subject, message, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+contactColumns,
		msg.Name, msg.Email, msg.Phone, msg.Subject, msg.Message, msg.IsRead, msg.CreatedAt.UTC())
	if err != nil {
		return contact.Message{}, errors.Wrap(err, "inserting contact message")
	}
	return created, nil
}

func (repo contactRepository) GetMessage(ctx context.Context, id int) (contact.Message, error) {
	var msg contact.Message
	err := repo.exec.GetContext(ctx, &msg, "SELECT "+contactColumns+" FROM contact_messages WHERE id = $1", id)
	if err != nil {
		return contact.Message{}, trapNoRowsErr(err, contact.ErrNotFound, "selecting contact message")
	}
	return msg, nil
}

func (repo contactRepository) QueryMessages(ctx context.Context, filter contact.QueryFilter) ([]contact.Message, error) {
	query := "SELECT " + contactColumns + " FROM contact_messages"
	var args []interface{}
	if filter.IsRead != nil {
		query += " WHERE is_read = $1"
		args = append(args, *filter.IsRead)
	}
	query += " ORDER BY created_at DESC, id DESC"

	msgs := make([]contact.Message, 0)
	if err := repo.exec.SelectContext(ctx, &msgs, query, args...); err != nil {
		return nil, errors.Wrap(err, "selecting contact messages")
	}
	return msgs, nil
}

func (repo contactRepository) SetRead(ctx context.Context, id int, isRead bool) (contact.Message, error) {
	var msg contact.Message
	err := repo.exec.GetContext(ctx, &msg,
		"UPDATE contact_messages SET is_read = $2 WHERE id = $1 RETURNING "+contactColumns, id, isRead)
	if err != nil {
		return contact.Message{}, trapNoRowsErr(err, contact.ErrNotFound, "updating contact message")
	}
	return msg, nil
}

func (repo contactRepository) DeleteMessages(ctx context.Context, ids []int) (int, error) {
	return deleteByIDs(ctx, repo.exec, "contact_messages", ids)
}
