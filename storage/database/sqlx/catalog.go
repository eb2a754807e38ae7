package sqlxrepos

import (
	"context"

	"github.com/google/uuid"

	"github.com/academia/sims/core"
	"github.com/academia/sims/core/catalog"
)

type catalogRepository struct {
	db *DB
}

var _ catalog.Repository = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(db *DB) *catalogRepository {
	return &catalogRepository{db: db}
}

// Departments

const departmentColumns = `id, code, name, location, created_at`

func (repo *catalogRepository) CreateDepartment(ctx context.Context, dept catalog.Department) (catalog.Department, error) {
	dept.ID = uuid.New().String()
	err := repo.db.namedExec(ctx, `
		INSERT INTO department (`+departmentColumns+`)
		VALUES (:id, :code, :name, :location, :created_at)`,
		dept,
	)
	if err != nil {
		return catalog.Department{}, repo.db.fail("inserting department", err, nil)
	}
	return dept, nil
}

func (repo *catalogRepository) GetDepartment(ctx context.Context, id string) (catalog.Department, error) {
	var dept catalog.Department
	if err := repo.db.get(ctx, &dept, `SELECT `+departmentColumns+` FROM department WHERE id = ?`, id); err != nil {
		return catalog.Department{}, repo.db.fail("getting department", err, catalog.ErrDepartmentNotFound)
	}
	return dept, nil
}

func (repo *catalogRepository) QueryDepartments(ctx context.Context, search string) ([]catalog.Department, error) {
	var f filters
	f.search(search, "code", "name")

	depts := make([]catalog.Department, 0)
	if err := repo.db.selectAll(ctx, &depts, `SELECT `+departmentColumns+` FROM department`+f.where()+` ORDER BY name`, f.args...); err != nil {
		return nil, repo.db.fail("querying departments", err, nil)
	}
	return depts, nil
}

func (repo *catalogRepository) UpdateDepartment(ctx context.Context, dept catalog.Department) (catalog.Department, error) {
	n, err := repo.db.exec(ctx, `UPDATE department SET code = ?, name = ?, location = ? WHERE id = ?`,
		dept.Code, dept.Name, dept.Location, dept.ID)
	if err != nil {
		return catalog.Department{}, repo.db.fail("updating department", err, catalog.ErrDepartmentNotFound)
	}
	if n == 0 {
		return catalog.Department{}, catalog.ErrDepartmentNotFound
	}
	return dept, nil
}

func (repo *catalogRepository) DeleteDepartment(ctx context.Context, id string) error {
	if _, err := repo.db.exec(ctx, `DELETE FROM department WHERE id = ?`, id); err != nil {
		return repo.db.fail("deleting department", err, catalog.ErrDepartmentNotFound)
	}
	return nil
}

func (repo *catalogRepository) DepartmentUsage(ctx context.Context, id string) (catalog.DepartmentUsage, error) {
	var usage struct {
		Courses  int `db:"courses"`
		Programs int `db:"programs"`
		Students int `db:"students"`
		Faculty  int `db:"faculty"`
	}
	err := repo.db.get(ctx, &usage, `
		SELECT
			(SELECT COUNT(*) FROM course WHERE department_id = $1)  AS courses,
			(SELECT COUNT(*) FROM program WHERE department_id = $1) AS programs,
			(SELECT COUNT(*) FROM student WHERE department_id = $1) AS students,
			(SELECT COUNT(*) FROM faculty WHERE department_id = $1) AS faculty`,
		id,
	)
	if err != nil {
		return catalog.DepartmentUsage{}, repo.db.fail("counting department usage", err, catalog.ErrDepartmentNotFound)
	}
	return catalog.DepartmentUsage(usage), nil
}

func (repo *catalogRepository) CountDepartments(ctx context.Context) (int, error) {
	return repo.db.count(ctx, `SELECT COUNT(*) FROM department`)
}

// Programs

const programColumns = `id, code, name, degree_type, duration_years, required_credits, department_id, description, is_active, created_at`

func (repo *catalogRepository) CreateProgram(ctx context.Context, prog catalog.Program) (catalog.Program, error) {
	prog.ID = uuid.New().String()
	err := repo.db.namedExec(ctx, `
		INSERT INTO program (`+programColumns+`)
		VALUES (:id, :code, :name, :degree_type, :duration_years, :required_credits, :department_id, :description, :is_active, :created_at)`,
		prog,
	)
	if err != nil {
		return catalog.Program{}, repo.db.fail("inserting program", err, nil)
	}
	return prog, nil
}

func (repo *catalogRepository) GetProgram(ctx context.Context, id string) (catalog.Program, error) {
	var prog catalog.Program
	if err := repo.db.get(ctx, &prog, `SELECT `+programColumns+` FROM program WHERE id = ?`, id); err != nil {
		return catalog.Program{}, repo.db.fail("getting program", err, catalog.ErrProgramNotFound)
	}
	return prog, nil
}

func (repo *catalogRepository) QueryPrograms(ctx context.Context, filter *catalog.ProgramFilter) ([]catalog.Program, error) {
	var f filters
	if filter != nil {
		f.search(filter.Search, "code", "name")
		if filter.DepartmentID != "" {
			f.add("department_id::text = ?", filter.DepartmentID)
		}
		if filter.IsActive != nil {
			f.add("is_active = ?", *filter.IsActive)
		}
	}

	progs := make([]catalog.Program, 0)
	if err := repo.db.selectAll(ctx, &progs, `SELECT `+programColumns+` FROM program`+f.where()+` ORDER BY name`, f.args...); err != nil {
		return nil, repo.db.fail("querying programs", err, nil)
	}
	return progs, nil
}

func (repo *catalogRepository) UpdateProgram(ctx context.Context, prog catalog.Program) (catalog.Program, error) {
	n, err := repo.db.exec(ctx, `
		UPDATE program
		SET code = ?, name = ?, degree_type = ?, duration_years = ?, required_credits = ?, department_id = ?, description = ?, is_active = ?
		WHERE id = ?`,
		prog.Code, prog.Name, prog.DegreeType, prog.DurationYears, prog.RequiredCredits, prog.DepartmentID, prog.Description, prog.IsActive, prog.ID,
	)
	if err != nil {
		return catalog.Program{}, repo.db.fail("updating program", err, catalog.ErrProgramNotFound)
	}
	if n == 0 {
		return catalog.Program{}, catalog.ErrProgramNotFound
	}
	return prog, nil
}

// DeleteProgram relies on ON DELETE CASCADE to drop the program's course assignments.
func (repo *catalogRepository) DeleteProgram(ctx context.Context, id string) error {
	if _, err := repo.db.exec(ctx, `DELETE FROM program WHERE id = ?`, id); err != nil {
		return repo.db.fail("deleting program", err, catalog.ErrProgramNotFound)
	}
	return nil
}

func (repo *catalogRepository) CountProgramStudents(ctx context.Context, id string) (int, error) {
	return repo.db.count(ctx, `SELECT COUNT(*) FROM student WHERE program_id = ?`, id)
}

const programCourseQuery = `
	SELECT pc.id, pc.program_id, pc.course_id, pc.is_required, pc.semester_recommended,
		c.code AS course_code, c.name AS course_name, c.credits
	FROM program_course pc
	JOIN course c ON c.id = pc.course_id`

func (repo *catalogRepository) CreateProgramCourse(ctx context.Context, pc catalog.ProgramCourse) (catalog.ProgramCourse, error) {
	pc.ID = uuid.New().String()
	err := repo.db.namedExec(ctx, `
		INSERT INTO program_course (id, program_id, course_id, is_required, semester_recommended)
		VALUES (:id, :program_id, :course_id, :is_required, :semester_recommended)`,
		pc,
	)
	if err != nil {
		return catalog.ProgramCourse{}, repo.db.fail("inserting program course", err, nil)
	}

	var created catalog.ProgramCourse
	if err = repo.db.get(ctx, &created, programCourseQuery+` WHERE pc.id = ?`, pc.ID); err != nil {
		return catalog.ProgramCourse{}, repo.db.fail("getting program course", err, catalog.ErrProgramCourseNotFound)
	}
	return created, nil
}

func (repo *catalogRepository) DeleteProgramCourse(ctx context.Context, programID, courseID string) error {
	n, err := repo.db.exec(ctx, `DELETE FROM program_course WHERE program_id = ? AND course_id = ?`, programID, courseID)
	if err != nil {
		return repo.db.fail("deleting program course", err, catalog.ErrProgramCourseNotFound)
	}
	if n == 0 {
		return catalog.ErrProgramCourseNotFound
	}
	return nil
}

func (repo *catalogRepository) QueryProgramCourses(ctx context.Context, programID string) ([]catalog.ProgramCourse, error) {
	pcs := make([]catalog.ProgramCourse, 0)
	if err := repo.db.selectAll(ctx, &pcs, programCourseQuery+` WHERE pc.program_id = ? ORDER BY c.code`, programID); err != nil {
		return nil, repo.db.fail("querying program courses", err, catalog.ErrProgramNotFound)
	}
	return pcs, nil
}

// Courses

const courseColumns = `id, code, name, description, credits, capacity, department_id, instructor_id, term, year, schedule, room, is_active, created_at`

func (repo *catalogRepository) CreateCourse(ctx context.Context, crs catalog.Course) (catalog.Course, error) {
	crs.ID = uuid.New().String()
	err := repo.db.namedExec(ctx, `
		INSERT INTO course (`+courseColumns+`)
		VALUES (:id, :code, :name, :description, :credits, :capacity, :department_id, :instructor_id, :term, :year, :schedule, :room, :is_active, :created_at)`,
		crs,
	)
	if err != nil {
		return catalog.Course{}, repo.db.fail("inserting course", err, nil)
	}
	return crs, nil
}

func (repo *catalogRepository) GetCourse(ctx context.Context, id string) (catalog.Course, error) {
	var crs catalog.Course
	if err := repo.db.get(ctx, &crs, `SELECT `+courseColumns+` FROM course WHERE id = ?`, id); err != nil {
		return catalog.Course{}, repo.db.fail("getting course", err, catalog.ErrCourseNotFound)
	}
	return crs, nil
}

var courseOrderColumns = map[string]string{
	"code":       "code",
	"name":       "name",
	"credits":    "credits",
	"year":       "year",
	"term":       "term",
	"created_at": "created_at",
}

func (repo *catalogRepository) QueryCourses(ctx context.Context, filter *catalog.CourseFilter, ordering []core.DBOrdering) ([]catalog.Course, error) {
	var f filters
	if filter != nil {
		f.search(filter.Search, "code", "name")
		if filter.DepartmentID != "" {
			f.add("department_id::text = ?", filter.DepartmentID)
		}
		if filter.InstructorID != "" {
			f.add("instructor_id::text = ?", filter.InstructorID)
		}
		if filter.Term != "" {
			f.add("term = ?", filter.Term)
		}
		if filter.Year != 0 {
			f.add("year = ?", filter.Year)
		}
		if filter.IsActive != nil {
			f.add("is_active = ?", *filter.IsActive)
		}
	}

	courses := make([]catalog.Course, 0)
	query := `SELECT ` + courseColumns + ` FROM course` + f.where() + orderBy(ordering, courseOrderColumns, "code ASC")
	if err := repo.db.selectAll(ctx, &courses, query, f.args...); err != nil {
		return nil, repo.db.fail("querying courses", err, nil)
	}
	return courses, nil
}

func (repo *catalogRepository) UpdateCourse(ctx context.Context, crs catalog.Course) (catalog.Course, error) {
	n, err := repo.db.exec(ctx, `
		UPDATE course
		SET code = ?, name = ?, description = ?, credits = ?, capacity = ?, department_id = ?, instructor_id = ?,
			term = ?, year = ?, schedule = ?, room = ?, is_active = ?
		WHERE id = ?`,
		crs.Code, crs.Name, crs.Description, crs.Credits, crs.Capacity, crs.DepartmentID, crs.InstructorID,
		crs.Term, crs.Year, crs.Schedule, crs.Room, crs.IsActive, crs.ID,
	)
	if err != nil {
		return catalog.Course{}, repo.db.fail("updating course", err, catalog.ErrCourseNotFound)
	}
	if n == 0 {
		return catalog.Course{}, catalog.ErrCourseNotFound
	}
	return crs, nil
}

func (repo *catalogRepository) DeleteCourse(ctx context.Context, id string) error {
	if _, err := repo.db.exec(ctx, `DELETE FROM course WHERE id = ?`, id); err != nil {
		return repo.db.fail("deleting course", err, catalog.ErrCourseNotFound)
	}
	return nil
}

func (repo *catalogRepository) CountCourseEnrollments(ctx context.Context, id string) (int, error) {
	return repo.db.count(ctx, `SELECT COUNT(*) FROM enrollment WHERE course_id = ?`, id)
}

func (repo *catalogRepository) CountCourses(ctx context.Context) (int, error) {
	return repo.db.count(ctx, `SELECT COUNT(*) FROM course`)
}

func (repo *catalogRepository) CourseFilterOptions(ctx context.Context) (catalog.FilterOptions, error) {
	opts := catalog.FilterOptions{Terms: make([]string, 0), Years: make([]int, 0)}
	if err := repo.db.selectAll(ctx, &opts.Terms, `SELECT DISTINCT term FROM course ORDER BY term`); err != nil {
		return catalog.FilterOptions{}, repo.db.fail("listing course terms", err, nil)
	}
	if err := repo.db.selectAll(ctx, &opts.Years, `SELECT DISTINCT year FROM course ORDER BY year DESC`); err != nil {
		return catalog.FilterOptions{}, repo.db.fail("listing course years", err, nil)
	}
	return opts, nil
}

func (repo *catalogRepository) InstructorExists(ctx context.Context, facultyID string) (bool, error) {
	if _, err := uuid.Parse(facultyID); err != nil {
		return false, nil
	}
	var exists bool
	if err := repo.db.get(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM faculty WHERE id = ?)`, facultyID); err != nil {
		return false, repo.db.fail("checking instructor", err, nil)
	}
	return exists, nil
}
