package sqlxrepos

import (
	"context"

	"github.com/google/uuid"

	"github.com/academia/sims/core"
	"github.com/academia/sims/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{db: db}
}

const studentColumns = `id, user_id, code, full_name, program_id, department_id, admission_date, admission_type, gpa, total_credits, status, created_at, updated_at`

func (repo *studentRepository) CreateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	std.ID = uuid.New().String()
	err := repo.db.namedExec(ctx, `
		INSERT INTO student (`+studentColumns+`)
		VALUES (:id, :user_id, :code, :full_name, :program_id, :department_id, :admission_date, :admission_type, :gpa, :total_credits, :status, :created_at, :updated_at)`,
		std,
	)
	if err != nil {
		return student.Student{}, repo.db.fail("inserting student", err, nil)
	}
	return std, nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, filter student.GetFilter) (student.Student, error) {
	var f filters
	switch {
	case filter.ID != "":
		f.add("id = ?", filter.ID)
	case filter.UserID != "":
		f.add("user_id = ?", filter.UserID)
	case filter.Code != "":
		f.add("code = ?", filter.Code)
	default:
		return student.Student{}, student.ErrNotFound
	}

	var std student.Student
	if err := repo.db.get(ctx, &std, `SELECT `+studentColumns+` FROM student`+f.where(), f.args...); err != nil {
		return student.Student{}, repo.db.fail("getting student", err, student.ErrNotFound)
	}
	return std, nil
}

var studentOrderColumns = map[string]string{
	"code":           "code",
	"full_name":      "full_name",
	"gpa":            "gpa",
	"admission_date": "admission_date",
	"created_at":     "created_at",
}

func (repo *studentRepository) QueryStudents(ctx context.Context, filter *student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	var f filters
	if filter != nil {
		f.search(filter.Search, "code", "full_name")
		if filter.ProgramID != "" {
			f.add("program_id::text = ?", filter.ProgramID)
		}
		if filter.DepartmentID != "" {
			f.add("department_id::text = ?", filter.DepartmentID)
		}
		if filter.Status != "" {
			f.add("status = ?", filter.Status)
		}
	}

	stds := make([]student.Student, 0)
	query := `SELECT ` + studentColumns + ` FROM student` + f.where() + orderBy(ordering, studentOrderColumns, "code ASC")
	if err := repo.db.selectAll(ctx, &stds, query, f.args...); err != nil {
		return nil, repo.db.fail("querying students", err, nil)
	}
	return stds, nil
}

// UpdateStudent leaves gpa and total_credits alone; the ledger owns them.
func (repo *studentRepository) UpdateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	err := repo.db.get(ctx, &std, `
		UPDATE student
		SET code = ?, full_name = ?, program_id = ?, department_id = ?, admission_type = ?, status = ?, updated_at = ?
		WHERE id = ?
		RETURNING `+studentColumns,
		std.Code, std.FullName, std.ProgramID, std.DepartmentID, std.AdmissionType, std.Status, std.UpdatedAt, std.ID,
	)
	if err != nil {
		return student.Student{}, repo.db.fail("updating student", err, student.ErrNotFound)
	}
	return std, nil
}

func (repo *studentRepository) CountStudentEnrollments(ctx context.Context, id string) (int, error) {
	return repo.db.count(ctx, `SELECT COUNT(*) FROM enrollment WHERE student_id = ?`, id)
}

func (repo *studentRepository) DeleteStudent(ctx context.Context, id string) error {
	for _, q := range []string{
		`DELETE FROM grade WHERE student_id = ?`,
		`DELETE FROM enrollment WHERE student_id = ?`,
		`DELETE FROM student WHERE id = ?`,
	} {
		if _, err := repo.db.exec(ctx, q, id); err != nil {
			return repo.db.fail("deleting student", err, student.ErrNotFound)
		}
	}
	return nil
}

func (repo *studentRepository) CountStudents(ctx context.Context) (int, error) {
	return repo.db.count(ctx, `SELECT COUNT(*) FROM student`)
}
