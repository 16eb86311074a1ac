package sqlxrepos

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/schooloffice/core"
	"github.com/trezcool/schooloffice/core/student"
)

const studentColumns = "id, student_code, name, phone, address, parent_name, parent_phone, academic_level, specialization, created_at, updated_at"

var studentOrderings = map[string]string{
	"name":           "s.name",
	"student_code":   "s.student_code",
	"academic_level": "s.academic_level",
	"specialization": "s.specialization",
	"created_at":     "s.created_at",
}

type studentRepository struct {
	repository
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(exec core.DBExecutor) *studentRepository {
	return &studentRepository{repository{exec: exec}}
}

func (repo studentRepository) CreateStudent(ctx context.Context, std student.Student, exec ...core.DBExecutor) (student.Student, error) {
	var created student.Student
	err := repo.getExec(exec).GetContext(ctx, &created, `
		INSERT INTO students (student_code, name, phone, address, parent_name, parent_phone, academic_level, specialization, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+studentColumns,
		std.StudentCode, std.Name, std.Phone, std.Address, std.ParentName, std.ParentPhone,
		std.AcademicLevel, std.Specialization, std.CreatedAt.UTC(), std.UpdatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return student.Student{}, student.ErrCodeExists
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return created, nil
}

func (repo studentRepository) GetStudent(ctx context.Context, id int, exec ...core.DBExecutor) (student.Student, error) {
	var std student.Student
	err := repo.getExec(exec).GetContext(ctx, &std, "SELECT "+studentColumns+" FROM students WHERE id = $1", id)
	if err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "selecting student")
	}
	return std, nil
}

func (repo studentRepository) StudentExists(ctx context.Context, id int, exec ...core.DBExecutor) (bool, error) {
	var exists bool
	err := repo.getExec(exec).GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM students WHERE id = $1)", id)
	return exists, errors.Wrap(err, "checking student")
}

func (repo studentRepository) QueryStudents(ctx context.Context, filter student.QueryFilter, ordering []core.DBOrdering) ([]student.ListItem, error) {
	var (
		conds []string
		args  []interface{}
	)
	// students with Name, Code or Parent name matching the search keyword
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		conds = append(conds, "(s.name ILIKE ? OR s.student_code ILIKE ? OR s.parent_name ILIKE ?)")
		args = append(args, val, val, val)
	}
	if filter.Level != 0 {
		conds = append(conds, "s.academic_level = ?")
		args = append(args, filter.Level)
	}
	if filter.Specialization != "" {
		conds = append(conds, "s.specialization = ?")
		args = append(args, filter.Specialization)
	}

	var query strings.Builder
	query.WriteString(`
		SELECT s.*,
		       COALESCE(p.total_paid, 0)      AS total_paid,
		       COALESCE(us.is_delivered, FALSE) AS uniform_delivered,
		       COALESCE(bs.is_delivered, FALSE) AS books_delivered,
		       COALESCE(r.total_score, 0)     AS total_score
		FROM students s
		LEFT JOIN (
			SELECT student_id, SUM(amount) AS total_paid FROM installments GROUP BY student_id
		) p ON p.student_id = s.id
		LEFT JOIN uniform_statuses us ON us.student_id = s.id
		LEFT JOIN book_statuses bs ON bs.student_id = s.id
		LEFT JOIN results r ON r.student_id = s.id`)
	if len(conds) > 0 {
		query.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	query.WriteString(core.OrderingClause(ordering, studentOrderings, "s.created_at DESC, s.id DESC"))

	items := make([]student.ListItem, 0)
	if err := repo.exec.SelectContext(ctx, &items, repo.exec.Rebind(query.String()), args...); err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	return items, nil
}

func (repo studentRepository) UpdateStudent(ctx context.Context, std student.Student, exec ...core.DBExecutor) (student.Student, error) {
	var updated student.Student
	err := repo.getExec(exec).GetContext(ctx, &updated, `
		UPDATE students
		SET student_code = $2, name = $3, phone = $4, address = $5, parent_name = $6, parent_phone = $7,
		    academic_level = $8, specialization = $9, updated_at = $10
		WHERE id = $1
		RETURNING `+studentColumns,
		std.ID, std.StudentCode, std.Name, std.Phone, std.Address, std.ParentName, std.ParentPhone,
		std.AcademicLevel, std.Specialization, std.UpdatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return student.Student{}, student.ErrCodeExists
		}
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "updating student")
	}
	return updated, nil
}

func (repo studentRepository) DeleteStudents(ctx context.Context, ids []int) (int, error) {
	return deleteByIDs(ctx, repo.exec, "students", ids)
}
