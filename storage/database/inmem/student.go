package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/trezcool/schooloffice/core"
	"github.com/trezcool/schooloffice/core/ledger"
	"github.com/trezcool/schooloffice/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{db: db}
}

// codeTaken tells whether another student has `code`. Callers must hold a lock.
func (repo *studentRepository) codeTaken(code string, excludedID int) bool {
	for _, std := range repo.db.students {
		if std.StudentCode == code && std.ID != excludedID {
			return true
		}
	}
	return false
}

func (repo *studentRepository) CreateStudent(_ context.Context, std student.Student, _ ...core.DBExecutor) (student.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if repo.codeTaken(std.StudentCode, 0) {
		return student.Student{}, student.ErrCodeExists
	}
	std.ID = repo.db.nextID("students")
	repo.db.students[std.ID] = std
	return std, nil
}

func (repo *studentRepository) GetStudent(_ context.Context, id int, _ ...core.DBExecutor) (student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if std, ok := repo.db.students[id]; ok {
		return std, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) StudentExists(_ context.Context, id int, _ ...core.DBExecutor) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	_, ok := repo.db.students[id]
	return ok, nil
}

func matchesSearch(std student.Student, search string) bool {
	search = strings.ToLower(search)
	for _, val := range []string{std.Name, std.StudentCode, std.ParentName} {
		if strings.Contains(strings.ToLower(val), search) {
			return true
		}
	}
	return false
}

func (repo *studentRepository) QueryStudents(_ context.Context, filter student.QueryFilter, ordering []core.DBOrdering) ([]student.ListItem, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	paid := make(map[int]decimal.Decimal)
	for _, inst := range repo.db.installments {
		paid[inst.StudentID] = paid[inst.StudentID].Add(inst.Amount)
	}
	scores := make(map[int]decimal.Decimal)
	for _, res := range repo.db.results {
		scores[res.StudentID] = res.TotalScore
	}

	items := make([]student.ListItem, 0, len(repo.db.students))
	for _, std := range repo.db.students {
		if filter.Search != "" && !matchesSearch(std, filter.Search) {
			continue
		}
		if filter.Level != 0 && std.AcademicLevel != filter.Level {
			continue
		}
		if filter.Specialization != "" && std.Specialization != filter.Specialization {
			continue
		}
		items = append(items, student.ListItem{
			Student:          std,
			TotalPaid:        paid[std.ID],
			UniformDelivered: repo.db.deliveries[ledger.ItemUniform][std.ID].IsDelivered,
			BooksDelivered:   repo.db.deliveries[ledger.ItemBooks][std.ID].IsDelivered,
			TotalScore:       scores[std.ID],
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		for _, ord := range ordering {
			if c := compareStudents(items[i].Student, items[j].Student, ord.Field); c != 0 {
				return (c < 0) == ord.Ascending
			}
		}
		// newest first
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID > items[j].ID
	})
	return items, nil
}

func compareStudents(a, b student.Student, field string) int {
	switch field {
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "student_code":
		return strings.Compare(a.StudentCode, b.StudentCode)
	case "specialization":
		return strings.Compare(a.Specialization, b.Specialization)
	case "academic_level":
		return a.AcademicLevel - b.AcademicLevel
	case "created_at":
		switch {
		case a.CreatedAt.Before(b.CreatedAt):
			return -1
		case a.CreatedAt.After(b.CreatedAt):
			return 1
		}
	}
	return 0
}

func (repo *studentRepository) UpdateStudent(_ context.Context, std student.Student, _ ...core.DBExecutor) (student.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.students[std.ID]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	if repo.codeTaken(std.StudentCode, std.ID) {
		return student.Student{}, student.ErrCodeExists
	}
	std.CreatedAt = orig.CreatedAt
	repo.db.students[std.ID] = std
	return std, nil
}

func (repo *studentRepository) DeleteStudents(_ context.Context, ids []int) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var deleted int
	for _, id := range ids {
		if _, ok := repo.db.students[id]; ok {
			repo.db.deleteStudent(id)
			deleted++
		}
	}
	return deleted, nil
}
