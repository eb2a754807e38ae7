package sqlxrepos

import (
	"context"

	"github.com/google/uuid"

	"github.com/academia/sims/core/faculty"
)

type facultyRepository struct {
	db *DB
}

var _ faculty.Repository = (*facultyRepository)(nil) // interface compliance check

func NewFacultyRepository(db *DB) *facultyRepository {
	return &facultyRepository{db: db}
}

const facultyColumns = `id, user_id, employee_code, full_name, department_id, qualification, specialization, position, office_location, hire_date, created_at`

func (repo *facultyRepository) CreateFaculty(ctx context.Context, fac faculty.Faculty) (faculty.Faculty, error) {
	fac.ID = uuid.New().String()
	err := repo.db.namedExec(ctx, `
		INSERT INTO faculty (`+facultyColumns+`)
		VALUES (:id, :user_id, :employee_code, :full_name, :department_id, :qualification, :specialization, :position, :office_location, :hire_date, :created_at)`,
		fac,
	)
	if err != nil {
		return faculty.Faculty{}, repo.db.fail("inserting faculty", err, nil)
	}
	return fac, nil
}

func (repo *facultyRepository) GetFaculty(ctx context.Context, filter faculty.GetFilter) (faculty.Faculty, error) {
	var f filters
	switch {
	case filter.ID != "":
		f.add("id = ?", filter.ID)
	case filter.UserID != "":
		f.add("user_id = ?", filter.UserID)
	default:
		return faculty.Faculty{}, faculty.ErrNotFound
	}

	var fac faculty.Faculty
	if err := repo.db.get(ctx, &fac, `SELECT `+facultyColumns+` FROM faculty`+f.where(), f.args...); err != nil {
		return faculty.Faculty{}, repo.db.fail("getting faculty", err, faculty.ErrNotFound)
	}
	return fac, nil
}

func (repo *facultyRepository) QueryFaculty(ctx context.Context, filter *faculty.QueryFilter) ([]faculty.Faculty, error) {
	var f filters
	if filter != nil {
		f.search(filter.Search, "employee_code", "full_name")
		if filter.DepartmentID != "" {
			f.add("department_id::text = ?", filter.DepartmentID)
		}
	}

	facs := make([]faculty.Faculty, 0)
	if err := repo.db.selectAll(ctx, &facs, `SELECT `+facultyColumns+` FROM faculty`+f.where()+` ORDER BY full_name, employee_code`, f.args...); err != nil {
		return nil, repo.db.fail("querying faculty", err, nil)
	}
	return facs, nil
}

func (repo *facultyRepository) UpdateFaculty(ctx context.Context, fac faculty.Faculty) (faculty.Faculty, error) {
	n, err := repo.db.exec(ctx, `
		UPDATE faculty
		SET employee_code = ?, full_name = ?, department_id = ?, qualification = ?, specialization = ?,
			position = ?, office_location = ?, hire_date = ?
		WHERE id = ?`,
		fac.EmployeeCode, fac.FullName, fac.DepartmentID, fac.Qualification, fac.Specialization,
		fac.Position, fac.OfficeLocation, fac.HireDate, fac.ID,
	)
	if err != nil {
		return faculty.Faculty{}, repo.db.fail("updating faculty", err, faculty.ErrNotFound)
	}
	if n == 0 {
		return faculty.Faculty{}, faculty.ErrNotFound
	}
	return fac, nil
}

func (repo *facultyRepository) CountCoursesTaught(ctx context.Context, id string) (int, error) {
	return repo.db.count(ctx, `SELECT COUNT(*) FROM course WHERE instructor_id = ?`, id)
}

func (repo *facultyRepository) DeleteFaculty(ctx context.Context, id string) error {
	for _, q := range []string{
		`UPDATE grade SET graded_by = NULL WHERE graded_by = ?`,
		`DELETE FROM faculty WHERE id = ?`,
	} {
		if _, err := repo.db.exec(ctx, q, id); err != nil {
			return repo.db.fail("deleting faculty", err, faculty.ErrNotFound)
		}
	}
	return nil
}

func (repo *facultyRepository) CountFaculty(ctx context.Context) (int, error) {
	return repo.db.count(ctx, `SELECT COUNT(*) FROM faculty`)
}
