package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/schooloffice/core"
	"github.com/trezcool/schooloffice/core/result"
)

const (
	resultColumns  = "id, student_id, total_score, created_at, updated_at"
	subjectColumns = "id, result_id, subject_name, score"
)

type resultRepository struct {
	repository
}

var _ result.Repository = (*resultRepository)(nil) // interface compliance check

func NewResultRepository(exec core.DBExecutor) *resultRepository {
	return &resultRepository{repository{exec: exec}}
}

// loadSubjects fills in the Subjects of `results`.
func (repo resultRepository) loadSubjects(ctx context.Context, exec core.DBExecutor, results []result.Result) error {
	if len(results) == 0 {
		return nil
	}
	ids := make([]int, 0, len(results))
	for _, res := range results {
		ids = append(ids, res.ID)
	}
	query, args, err := sqlx.In(
		"SELECT "+subjectColumns+" FROM subject_results WHERE result_id IN (?) ORDER BY subject_name, id", ids)
	if err != nil {
		return errors.Wrap(err, "building subjects query")
	}

	var subjects []result.SubjectResult
	if err = exec.SelectContext(ctx, &subjects, exec.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "selecting subject results")
	}
	byResult := make(map[int][]result.SubjectResult, len(results))
	for _, sr := range subjects {
		byResult[sr.ResultID] = append(byResult[sr.ResultID], sr)
	}
	for i := range results {
		results[i].Subjects = byResult[results[i].ID]
		if results[i].Subjects == nil {
			results[i].Subjects = []result.SubjectResult{}
		}
	}
	return nil
}

func (repo resultRepository) getResult(ctx context.Context, exec core.DBExecutor, where string, arg interface{}) (result.Result, error) {
	var res result.Result
	if err := exec.GetContext(ctx, &res, "SELECT "+resultColumns+" FROM results WHERE "+where, arg); err != nil {
		return result.Result{}, trapNoRowsErr(err, result.ErrNotFound, "selecting result")
	}
	results := []result.Result{res}
	if err := repo.loadSubjects(ctx, exec, results); err != nil {
		return result.Result{}, err
	}
	return results[0], nil
}

func (repo resultRepository) GetOrCreateResult(ctx context.Context, studentID int, now time.Time, exec ...core.DBExecutor) (result.Result, error) {
	ex := repo.getExec(exec)
	_, err := ex.ExecContext(ctx, `
		INSERT INTO results (student_id, created_at, updated_at) VALUES ($1, $2, $2)
		ON CONFLICT (student_id) DO NOTHING`,
		studentID, now.UTC())
	if err != nil {
		return result.Result{}, errors.Wrap(err, "inserting result")
	}
	return repo.getResult(ctx, ex, "student_id = $1", studentID)
}

func (repo resultRepository) GetResult(ctx context.Context, id int, exec ...core.DBExecutor) (result.Result, error) {
	return repo.getResult(ctx, repo.getExec(exec), "id = $1", id)
}

func (repo resultRepository) GetResultByStudent(ctx context.Context, studentID int, exec ...core.DBExecutor) (result.Result, error) {
	return repo.getResult(ctx, repo.getExec(exec), "student_id = $1", studentID)
}

func (repo resultRepository) QueryResults(ctx context.Context, filter result.QueryFilter, exec ...core.DBExecutor) ([]result.Result, error) {
	ex := repo.getExec(exec)
	query := "SELECT " + resultColumns + " FROM results"
	var args []interface{}
	if filter.StudentID != 0 {
		query += " WHERE student_id = $1"
		args = append(args, filter.StudentID)
	}
	query += " ORDER BY created_at DESC, id DESC"

	results := make([]result.Result, 0)
	if err := ex.SelectContext(ctx, &results, query, args...); err != nil {
		return nil, errors.Wrap(err, "selecting results")
	}
	if err := repo.loadSubjects(ctx, ex, results); err != nil {
		return nil, err
	}
	return results, nil
}

func (repo resultRepository) CreateMissingResults(ctx context.Context, exec ...core.DBExecutor) (int, error) {
	res, err := repo.getExec(exec).ExecContext(ctx, `
		INSERT INTO results (student_id)
		SELECT s.id FROM students s
		WHERE NOT EXISTS (SELECT 1 FROM results r WHERE r.student_id = s.id)`)
	if err != nil {
		return 0, errors.Wrap(err, "inserting missing results")
	}
	return rowsAffected(res)
}

func (repo resultRepository) DeleteResults(ctx context.Context, ids []int, exec ...core.DBExecutor) (int, error) {
	return deleteByIDs(ctx, repo.getExec(exec), "results", ids)
}

func (repo resultRepository) SubjectExists(ctx context.Context, resultID int, name string, exec ...core.DBExecutor) (bool, error) {
	var exists bool
	err := repo.getExec(exec).GetContext(ctx, &exists,
		"SELECT EXISTS (SELECT 1 FROM subject_results WHERE result_id = $1 AND subject_name = $2)",
		resultID, name)
	return exists, errors.Wrap(err, "checking subject result")
}

func (repo resultRepository) CreateSubject(ctx context.Context, sr result.SubjectResult, exec ...core.DBExecutor) (result.SubjectResult, error) {
	var created result.SubjectResult
	err := repo.getExec(exec).GetContext(ctx, &created, `
		INSERT INTO subject_results (result_id, subject_name, score) VALUES ($1, $2, $3)
		RETURNING `+subjectColumns,
		sr.ResultID, sr.SubjectName, sr.Score)
	if err != nil {
		if isUniqueViolation(err) {
			return result.SubjectResult{}, result.ErrDuplicateSubject
		}
		return result.SubjectResult{}, errors.Wrap(err, "inserting subject result")
	}
	return created, nil
}

func (repo resultRepository) DeleteSubject(ctx context.Context, resultID, subjectID int, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx,
		"DELETE FROM subject_results WHERE id = $1 AND result_id = $2", subjectID, resultID)
	if err != nil {
		return errors.Wrap(err, "deleting subject result")
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return result.ErrSubjectNotFound
	}
	return nil
}

func (repo resultRepository) SumScores(ctx context.Context, resultID int, exec ...core.DBExecutor) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := repo.getExec(exec).GetContext(ctx, &total,
		"SELECT COALESCE(SUM(score), 0) FROM subject_results WHERE result_id = $1", resultID)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "summing scores")
	}
	return total, nil
}

func (repo resultRepository) SetTotalScore(ctx context.Context, resultID int, score decimal.Decimal, now time.Time, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx,
		"UPDATE results SET total_score = $2, updated_at = $3 WHERE id = $1", resultID, score, now.UTC())
	if err != nil {
		return errors.Wrap(err, "updating total score")
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return result.ErrNotFound
	}
	return nil
}
