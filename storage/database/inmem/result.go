package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trezcool/schooloffice/core"
	"github.com/trezcool/schooloffice/core/result"
)

type resultRepository struct {
	db *DB
}

var _ result.Repository = (*resultRepository)(nil) // interface compliance check

func NewResultRepository(db *DB) *resultRepository {
	return &resultRepository{db: db}
}

// withSubjects fills in the Subjects of a result. Callers must hold a lock.
func (repo *resultRepository) withSubjects(res result.Result) result.Result {
	res.Subjects = make([]result.SubjectResult, 0)
	for _, sr := range repo.db.subjects {
		if sr.ResultID == res.ID {
			res.Subjects = append(res.Subjects, sr)
		}
	}
	sort.Slice(res.Subjects, func(i, j int) bool {
		if res.Subjects[i].SubjectName != res.Subjects[j].SubjectName {
			return res.Subjects[i].SubjectName < res.Subjects[j].SubjectName
		}
		return res.Subjects[i].ID < res.Subjects[j].ID
	})
	return res
}

// byStudent must be called with a lock held.
func (repo *resultRepository) byStudent(studentID int) (result.Result, bool) {
	for _, res := range repo.db.results {
		if res.StudentID == studentID {
			return res, true
		}
	}
	return result.Result{}, false
}

// create must be called with the write lock held.
func (repo *resultRepository) create(studentID int, now time.Time) result.Result {
	res := result.Result{
		ID:         repo.db.nextID("results"),
		StudentID:  studentID,
		TotalScore: decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	repo.db.results[res.ID] = res
	return res
}

func (repo *resultRepository) GetOrCreateResult(_ context.Context, studentID int, now time.Time, _ ...core.DBExecutor) (result.Result, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	res, ok := repo.byStudent(studentID)
	if !ok {
		res = repo.create(studentID, now)
	}
	return repo.withSubjects(res), nil
}

func (repo *resultRepository) GetResult(_ context.Context, id int, _ ...core.DBExecutor) (result.Result, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if res, ok := repo.db.results[id]; ok {
		return repo.withSubjects(res), nil
	}
	return result.Result{}, result.ErrNotFound
}

func (repo *resultRepository) GetResultByStudent(_ context.Context, studentID int, _ ...core.DBExecutor) (result.Result, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if res, ok := repo.byStudent(studentID); ok {
		return repo.withSubjects(res), nil
	}
	return result.Result{}, result.ErrNotFound
}

func (repo *resultRepository) QueryResults(_ context.Context, filter result.QueryFilter, _ ...core.DBExecutor) ([]result.Result, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	results := make([]result.Result, 0)
	for _, res := range repo.db.results {
		if filter.StudentID == 0 || res.StudentID == filter.StudentID {
			results = append(results, repo.withSubjects(res))
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if !results[i].CreatedAt.Equal(results[j].CreatedAt) {
			return results[i].CreatedAt.After(results[j].CreatedAt)
		}
		return results[i].ID > results[j].ID
	})
	return results, nil
}

func (repo *resultRepository) CreateMissingResults(_ context.Context, _ ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	now := result.NowFunc().UTC()
	var created int
	for id := range repo.db.students {
		if _, ok := repo.byStudent(id); !ok {
			repo.create(id, now)
			created++
		}
	}
	return created, nil
}

func (repo *resultRepository) DeleteResults(_ context.Context, ids []int, _ ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var deleted int
	for _, id := range ids {
		if _, ok := repo.db.results[id]; ok {
			repo.db.deleteResult(id)
			deleted++
		}
	}
	return deleted, nil
}

// subjectExists must be called with a lock held.
func (repo *resultRepository) subjectExists(resultID int, name string) bool {
	for _, sr := range repo.db.subjects {
		if sr.ResultID == resultID && sr.SubjectName == name {
			return true
		}
	}
	return false
}

func (repo *resultRepository) SubjectExists(_ context.Context, resultID int, name string, _ ...core.DBExecutor) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.subjectExists(resultID, name), nil
}

func (repo *resultRepository) CreateSubject(_ context.Context, sr result.SubjectResult, _ ...core.DBExecutor) (result.SubjectResult, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if repo.subjectExists(sr.ResultID, sr.SubjectName) {
		return result.SubjectResult{}, result.ErrDuplicateSubject
	}
	sr.ID = repo.db.nextID("subject_results")
	repo.db.subjects[sr.ID] = sr
	return sr, nil
}

func (repo *resultRepository) DeleteSubject(_ context.Context, resultID, subjectID int, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	sr, ok := repo.db.subjects[subjectID]
	if !ok || sr.ResultID != resultID {
		return result.ErrSubjectNotFound
	}
	delete(repo.db.subjects, subjectID)
	return nil
}

func (repo *resultRepository) SumScores(_ context.Context, resultID int, _ ...core.DBExecutor) (decimal.Decimal, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	total := decimal.Zero
	for _, sr := range repo.db.subjects {
		if sr.ResultID == resultID {
			total = total.Add(sr.Score)
		}
	}
	return total, nil
}

func (repo *resultRepository) SetTotalScore(_ context.Context, resultID int, score decimal.Decimal, now time.Time, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	res, ok := repo.db.results[resultID]
	if !ok {
		return result.ErrNotFound
	}
	res.TotalScore = score
	res.UpdatedAt = now
	repo.db.results[resultID] = res
	return nil
}
