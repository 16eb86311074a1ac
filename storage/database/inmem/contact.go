package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/schooloffice/core/contact"
)

type contactRepository struct {
	db *DB
}

var _ contact.Repository = (*contactRepository)(nil) // interface compliance check

func NewContactRepository(db *DB) *contactRepository {
	return &contactRepository{db: db}
}

func (repo *contactRepository) CreateMessage(_ context.Context, msg contact.Message) (contact.Message, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	msg.ID = repo.db.nextID("contact_messages")
	repo.db.messages[msg.ID] = msg
	return msg, nil
}

func (repo *contactRepository) GetMessage(_ context.Context, id int) (contact.Message, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if msg, ok := repo.db.messages[id]; ok {
		return msg, nil
	}
	return contact.Message{}, contact.ErrNotFound
}

// newestMessages returns the messages matching `keep`, newest first. Callers must hold a lock.
func (db *DB) newestMessages(keep func(contact.Message) bool) []contact.Message {
	msgs := make([]contact.Message, 0)
	for _, msg := range db.messages {
		if keep == nil || keep(msg) {
			msgs = append(msgs, msg)
		}
	}
	sort.Slice(msgs, func(i, j int) bool {
		if !msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].CreatedAt.After(msgs[j].CreatedAt)
		}
		return msgs[i].ID > msgs[j].ID
	})
	return msgs
}

func (repo *contactRepository) QueryMessages(_ context.Context, filter contact.QueryFilter) ([]contact.Message, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var keep func(contact.Message) bool
	if filter.IsRead != nil {
		keep = func(msg contact.Message) bool { return msg.IsRead == *filter.IsRead }
	}
	return repo.db.newestMessages(keep), nil
}

func (repo *contactRepository) SetRead(_ context.Context, id int, isRead bool) (contact.Message, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	msg, ok := repo.db.messages[id]
	if !ok {
		return contact.Message{}, contact.ErrNotFound
	}
	msg.IsRead = isRead
	repo.db.messages[id] = msg
	return msg, nil
}

func (repo *contactRepository) DeleteMessages(_ context.Context, ids []int) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var deleted int
	for _, id := range ids {
		if _, ok := repo.db.messages[id]; ok {
			delete(repo.db.messages, id)
			deleted++
		}
	}
	return deleted, nil
}
