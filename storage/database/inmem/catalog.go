package inmemdb

import (
	"context"
	"sort"
	"strings"

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

func (repo *catalogRepository) departmentCodeTaken(code, excludedID string) bool {
	for _, d := range repo.db.tables.departments {
		if d.ID != excludedID && strings.EqualFold(d.Code, code) {
			return true
		}
	}
	return false
}

func (repo *catalogRepository) CreateDepartment(ctx context.Context, dept catalog.Department) (catalog.Department, error) {
	defer repo.db.lock(ctx)()

	if repo.departmentCodeTaken(dept.Code, "") {
		return catalog.Department{}, catalog.ErrDepartmentCodeExists
	}
	dept.ID = uuid.New().String()
	repo.db.tables.departments[dept.ID] = dept
	return dept, nil
}

func (repo *catalogRepository) GetDepartment(ctx context.Context, id string) (catalog.Department, error) {
	defer repo.db.lock(ctx)()

	if dept, ok := repo.db.tables.departments[id]; ok {
		return dept, nil
	}
	return catalog.Department{}, catalog.ErrDepartmentNotFound
}

func (repo *catalogRepository) QueryDepartments(ctx context.Context, search string) ([]catalog.Department, error) {
	defer repo.db.lock(ctx)()

	depts := make([]catalog.Department, 0, len(repo.db.tables.departments))
	for _, d := range repo.db.tables.departments {
		if search == "" || contains(search, d.Code, d.Name) {
			depts = append(depts, d)
		}
	}
	sort.Slice(depts, func(i, j int) bool { return depts[i].Name < depts[j].Name })
	return depts, nil
}

func (repo *catalogRepository) UpdateDepartment(ctx context.Context, dept catalog.Department) (catalog.Department, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.tables.departments[dept.ID]; !ok {
		return catalog.Department{}, catalog.ErrDepartmentNotFound
	}
	if repo.departmentCodeTaken(dept.Code, dept.ID) {
		return catalog.Department{}, catalog.ErrDepartmentCodeExists
	}
	repo.db.tables.departments[dept.ID] = dept
	return dept, nil
}

func (repo *catalogRepository) DeleteDepartment(ctx context.Context, id string) error {
	defer repo.db.lock(ctx)()

	delete(repo.db.tables.departments, id)
	return nil
}

func (repo *catalogRepository) DepartmentUsage(ctx context.Context, id string) (catalog.DepartmentUsage, error) {
	defer repo.db.lock(ctx)()

	var usage catalog.DepartmentUsage
	for _, c := range repo.db.tables.courses {
		if c.DepartmentID == id {
			usage.Courses++
		}
	}
	for _, p := range repo.db.tables.programs {
		if p.DepartmentID == id {
			usage.Programs++
		}
	}
	for _, s := range repo.db.tables.students {
		if s.DepartmentID.Valid && s.DepartmentID.String == id {
			usage.Students++
		}
	}
	for _, f := range repo.db.tables.faculty {
		if f.DepartmentID.Valid && f.DepartmentID.String == id {
			usage.Faculty++
		}
	}
	return usage, nil
}

func (repo *catalogRepository) CountDepartments(ctx context.Context) (int, error) {
	defer repo.db.lock(ctx)()
	return len(repo.db.tables.departments), nil
}

// Programs

func (repo *catalogRepository) programCodeTaken(code, excludedID string) bool {
	for _, p := range repo.db.tables.programs {
		if p.ID != excludedID && strings.EqualFold(p.Code, code) {
			return true
		}
	}
	return false
}

func (repo *catalogRepository) CreateProgram(ctx context.Context, prog catalog.Program) (catalog.Program, error) {
	defer repo.db.lock(ctx)()

	if repo.programCodeTaken(prog.Code, "") {
		return catalog.Program{}, catalog.ErrProgramCodeExists
	}
	prog.ID = uuid.New().String()
	repo.db.tables.programs[prog.ID] = prog
	return prog, nil
}

func (repo *catalogRepository) GetProgram(ctx context.Context, id string) (catalog.Program, error) {
	defer repo.db.lock(ctx)()

	if prog, ok := repo.db.tables.programs[id]; ok {
		return prog, nil
	}
	return catalog.Program{}, catalog.ErrProgramNotFound
}

func (repo *catalogRepository) QueryPrograms(ctx context.Context, filter *catalog.ProgramFilter) ([]catalog.Program, error) {
	defer repo.db.lock(ctx)()

	progs := make([]catalog.Program, 0, len(repo.db.tables.programs))
	for _, p := range repo.db.tables.programs {
		if filter != nil {
			if filter.Search != "" && !contains(filter.Search, p.Code, p.Name) {
				continue
			}
			if filter.DepartmentID != "" && p.DepartmentID != filter.DepartmentID {
				continue
			}
			if filter.IsActive != nil && p.IsActive != *filter.IsActive {
				continue
			}
		}
		progs = append(progs, p)
	}
	sort.Slice(progs, func(i, j int) bool { return progs[i].Name < progs[j].Name })
	return progs, nil
}

func (repo *catalogRepository) UpdateProgram(ctx context.Context, prog catalog.Program) (catalog.Program, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.tables.programs[prog.ID]; !ok {
		return catalog.Program{}, catalog.ErrProgramNotFound
	}
	if repo.programCodeTaken(prog.Code, prog.ID) {
		return catalog.Program{}, catalog.ErrProgramCodeExists
	}
	repo.db.tables.programs[prog.ID] = prog
	return prog, nil
}

func (repo *catalogRepository) DeleteProgram(ctx context.Context, id string) error {
	defer repo.db.lock(ctx)()

	delete(repo.db.tables.programs, id)
	for pcID, pc := range repo.db.tables.programCourses {
		if pc.ProgramID == id {
			delete(repo.db.tables.programCourses, pcID)
		}
	}
	return nil
}

func (repo *catalogRepository) CountProgramStudents(ctx context.Context, id string) (int, error) {
	defer repo.db.lock(ctx)()

	var n int
	for _, s := range repo.db.tables.students {
		if s.ProgramID == id {
			n++
		}
	}
	return n, nil
}

func (repo *catalogRepository) CreateProgramCourse(ctx context.Context, pc catalog.ProgramCourse) (catalog.ProgramCourse, error) {
	defer repo.db.lock(ctx)()

	for _, existing := range repo.db.tables.programCourses {
		if existing.ProgramID == pc.ProgramID && existing.CourseID == pc.CourseID {
			return catalog.ProgramCourse{}, catalog.ErrProgramCourseExists
		}
	}
	crs, ok := repo.db.tables.courses[pc.CourseID]
	if !ok {
		return catalog.ProgramCourse{}, catalog.ErrCourseNotFound
	}
	pc.ID = uuid.New().String()
	repo.db.tables.programCourses[pc.ID] = pc
	pc.CourseCode, pc.CourseName, pc.Credits = crs.Code, crs.Name, crs.Credits
	return pc, nil
}

func (repo *catalogRepository) DeleteProgramCourse(ctx context.Context, programID, courseID string) error {
	defer repo.db.lock(ctx)()

	for id, pc := range repo.db.tables.programCourses {
		if pc.ProgramID == programID && pc.CourseID == courseID {
			delete(repo.db.tables.programCourses, id)
			return nil
		}
	}
	return catalog.ErrProgramCourseNotFound
}

func (repo *catalogRepository) QueryProgramCourses(ctx context.Context, programID string) ([]catalog.ProgramCourse, error) {
	defer repo.db.lock(ctx)()

	pcs := make([]catalog.ProgramCourse, 0)
	for _, pc := range repo.db.tables.programCourses {
		if pc.ProgramID != programID {
			continue
		}
		crs := repo.db.tables.courses[pc.CourseID]
		pc.CourseCode, pc.CourseName, pc.Credits = crs.Code, crs.Name, crs.Credits
		pcs = append(pcs, pc)
	}
	sort.Slice(pcs, func(i, j int) bool { return pcs[i].CourseCode < pcs[j].CourseCode })
	return pcs, nil
}

// Courses

func (repo *catalogRepository) courseCodeTaken(code, excludedID string) bool {
	for _, c := range repo.db.tables.courses {
		if c.ID != excludedID && strings.EqualFold(c.Code, code) {
			return true
		}
	}
	return false
}

func (repo *catalogRepository) CreateCourse(ctx context.Context, crs catalog.Course) (catalog.Course, error) {
	defer repo.db.lock(ctx)()

	if repo.courseCodeTaken(crs.Code, "") {
		return catalog.Course{}, catalog.ErrCourseCodeExists
	}
	crs.ID = uuid.New().String()
	repo.db.tables.courses[crs.ID] = crs
	return crs, nil
}

func (repo *catalogRepository) GetCourse(ctx context.Context, id string) (catalog.Course, error) {
	defer repo.db.lock(ctx)()

	if crs, ok := repo.db.tables.courses[id]; ok {
		return crs, nil
	}
	return catalog.Course{}, catalog.ErrCourseNotFound
}

func (repo *catalogRepository) QueryCourses(ctx context.Context, filter *catalog.CourseFilter, ordering []core.DBOrdering) ([]catalog.Course, error) {
	defer repo.db.lock(ctx)()

	courses := make([]catalog.Course, 0, len(repo.db.tables.courses))
	for _, c := range repo.db.tables.courses {
		if filter != nil {
			if filter.Search != "" && !contains(filter.Search, c.Code, c.Name) {
				continue
			}
			if filter.DepartmentID != "" && c.DepartmentID != filter.DepartmentID {
				continue
			}
			if filter.InstructorID != "" && !c.TaughtBy(filter.InstructorID) {
				continue
			}
			if filter.Term != "" && c.Term != filter.Term {
				continue
			}
			if filter.Year != 0 && c.Year != filter.Year {
				continue
			}
			if filter.IsActive != nil && c.IsActive != *filter.IsActive {
				continue
			}
		}
		courses = append(courses, c)
	}

	sort.SliceStable(courses, func(i, j int) bool {
		for _, ord := range ordering {
			c := compareCourses(courses[i], courses[j], ord.Field)
			if c == 0 {
				continue
			}
			return (c < 0) == ord.Ascending
		}
		return courses[i].Code < courses[j].Code
	})
	return courses, nil
}

func compareCourses(a, b catalog.Course, field string) int {
	switch field {
	case "code":
		return strings.Compare(a.Code, b.Code)
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "credits":
		return a.Credits - b.Credits
	case "year":
		return a.Year - b.Year
	case "term":
		return strings.Compare(a.Term, b.Term)
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	}
	return 0
}

func (repo *catalogRepository) UpdateCourse(ctx context.Context, crs catalog.Course) (catalog.Course, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.tables.courses[crs.ID]; !ok {
		return catalog.Course{}, catalog.ErrCourseNotFound
	}
	if repo.courseCodeTaken(crs.Code, crs.ID) {
		return catalog.Course{}, catalog.ErrCourseCodeExists
	}
	repo.db.tables.courses[crs.ID] = crs
	return crs, nil
}

func (repo *catalogRepository) DeleteCourse(ctx context.Context, id string) error {
	defer repo.db.lock(ctx)()

	delete(repo.db.tables.courses, id)
	for pcID, pc := range repo.db.tables.programCourses {
		if pc.CourseID == id {
			delete(repo.db.tables.programCourses, pcID)
		}
	}
	return nil
}

func (repo *catalogRepository) CountCourseEnrollments(ctx context.Context, id string) (int, error) {
	defer repo.db.lock(ctx)()

	var n int
	for _, enr := range repo.db.tables.enrollments {
		if enr.CourseID == id {
			n++
		}
	}
	return n, nil
}

func (repo *catalogRepository) CountCourses(ctx context.Context) (int, error) {
	defer repo.db.lock(ctx)()
	return len(repo.db.tables.courses), nil
}

func (repo *catalogRepository) CourseFilterOptions(ctx context.Context) (catalog.FilterOptions, error) {
	defer repo.db.lock(ctx)()

	terms := make(map[string]bool)
	years := make(map[int]bool)
	opts := catalog.FilterOptions{Terms: make([]string, 0), Years: make([]int, 0)}
	for _, c := range repo.db.tables.courses {
		if !terms[c.Term] {
			terms[c.Term] = true
			opts.Terms = append(opts.Terms, c.Term)
		}
		if !years[c.Year] {
			years[c.Year] = true
			opts.Years = append(opts.Years, c.Year)
		}
	}
	sort.Strings(opts.Terms)
	sort.Sort(sort.Reverse(sort.IntSlice(opts.Years)))
	return opts, nil
}

func (repo *catalogRepository) InstructorExists(ctx context.Context, facultyID string) (bool, error) {
	defer repo.db.lock(ctx)()

	_, ok := repo.db.tables.faculty[facultyID]
	return ok, nil
}
