// Package inmemdb implements the core repositories in memory, for development and tests.
package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/schooloffice/core"
	"github.com/trezcool/schooloffice/core/contact"
	"github.com/trezcool/schooloffice/core/ledger"
	"github.com/trezcool/schooloffice/core/payment"
	"github.com/trezcool/schooloffice/core/result"
	"github.com/trezcool/schooloffice/core/student"
	"github.com/trezcool/schooloffice/core/user"
)

type (
	DB struct {
		mutex sync.RWMutex
		txMu  sync.Mutex
		*tables
	}

	tables struct {
		seq          map[string]int
		users        map[string]user.User
		students     map[int]student.Student
		deliveries   map[ledger.Item]map[int]ledger.DeliveryStatus // by student ID
		installments map[int]payment.Installment
		receipts     map[int]payment.Receipt
		results      map[int]result.Result
		subjects     map[int]result.SubjectResult
		messages     map[int]contact.Message
	}
)

var _ core.Transactor = (*DB)(nil) // interface compliance check

func Open() *DB {
	return &DB{tables: newTables()}
}

func newTables() *tables {
	t := &tables{
		seq:          make(map[string]int),
		users:        make(map[string]user.User),
		students:     make(map[int]student.Student),
		deliveries:   make(map[ledger.Item]map[int]ledger.DeliveryStatus, len(ledger.Items)),
		installments: make(map[int]payment.Installment),
		receipts:     make(map[int]payment.Receipt),
		results:      make(map[int]result.Result),
		subjects:     make(map[int]result.SubjectResult),
		messages:     make(map[int]contact.Message),
	}
	for _, item := range ledger.Items {
		t.deliveries[item] = make(map[int]ledger.DeliveryStatus)
	}
	return t
}

func (t *tables) clone() *tables {
	c := newTables()
	for k, v := range t.seq {
		c.seq[k] = v
	}
	for k, v := range t.users {
		c.users[k] = v
	}
	for k, v := range t.students {
		c.students[k] = v
	}
	for item, statuses := range t.deliveries {
		for k, v := range statuses {
			c.deliveries[item][k] = v
		}
	}
	for k, v := range t.installments {
		c.installments[k] = v
	}
	for k, v := range t.receipts {
		c.receipts[k] = v
	}
	for k, v := range t.results {
		c.results[k] = v
	}
	for k, v := range t.subjects {
		c.subjects[k] = v
	}
	for k, v := range t.messages {
		c.messages[k] = v
	}
	return c
}

// nextID returns the next primary key of `table`. Callers must hold the write lock.
func (t *tables) nextID(table string) int {
	t.seq[table]++
	return t.seq[table]
}

// InTx runs units of work one at a time; the tables are restored when fn fails or panics.
// Repositories ignore the executor they get from fn.
//
// The restore covers every table, so a write made outside of a unit of work while a failing
// one runs (a contact message, say) is lost with it. Only the SQL store isolates them.
func (db *DB) InTx(ctx context.Context, fn func(exec core.DBExecutor) error) (err error) {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.mutex.RLock()
	snapshot := db.tables.clone()
	db.mutex.RUnlock()

	rollback := func() {
		db.mutex.Lock()
		db.tables = snapshot
		db.mutex.Unlock()
	}
	defer func() {
		if p := recover(); p != nil {
			rollback()
			panic(p)
		}
	}()

	if err = fn(nil); err != nil {
		rollback()
	}
	return err
}

// deleteStudent deletes a student and everything it owns. Callers must hold the write lock.
func (t *tables) deleteStudent(id int) {
	delete(t.students, id)
	for _, statuses := range t.deliveries {
		delete(statuses, id)
	}
	for instID, inst := range t.installments {
		if inst.StudentID == id {
			delete(t.installments, instID)
		}
	}
	for rcptID, rcpt := range t.receipts {
		if rcpt.StudentID == id {
			delete(t.receipts, rcptID)
		}
	}
	for resID, res := range t.results {
		if res.StudentID == id {
			t.deleteResult(resID)
		}
	}
}

// deleteResult deletes a result along with its subjects. Callers must hold the write lock.
func (t *tables) deleteResult(id int) {
	delete(t.results, id)
	for srID, sr := range t.subjects {
		if sr.ResultID == id {
			delete(t.subjects, srID)
		}
	}
}
