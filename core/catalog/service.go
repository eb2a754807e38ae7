package catalog

import (
	"context"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/academia/sims/core"
)

var (
	// errors
	ErrDepartmentNotFound    = errors.New("department not found")
	ErrDepartmentCodeExists  = errors.New("a department with this code already exists")
	ErrProgramNotFound       = errors.New("program not found")
	ErrProgramCodeExists     = errors.New("a program with this code already exists")
	ErrCourseNotFound        = errors.New("course not found")
	ErrCourseCodeExists      = errors.New("a course with this code already exists")
	ErrProgramCourseExists   = errors.New("course is already part of this program")
	ErrProgramCourseNotFound = errors.New("course is not part of this program")
	ErrInstructorNotFound    = errors.New("instructor not found")
)

type (
	Repository interface {
		CreateDepartment(ctx context.Context, dept Department) (Department, error)
		GetDepartment(ctx context.Context, id string) (Department, error)
		QueryDepartments(ctx context.Context, search string) ([]Department, error)
		UpdateDepartment(ctx context.Context, dept Department) (Department, error)
		DeleteDepartment(ctx context.Context, id string) error
		DepartmentUsage(ctx context.Context, id string) (DepartmentUsage, error)
		CountDepartments(ctx context.Context) (int, error)

		CreateProgram(ctx context.Context, prog Program) (Program, error)
		GetProgram(ctx context.Context, id string) (Program, error)
		QueryPrograms(ctx context.Context, filter *ProgramFilter) ([]Program, error)
		UpdateProgram(ctx context.Context, prog Program) (Program, error)
		DeleteProgram(ctx context.Context, id string) error
		CountProgramStudents(ctx context.Context, id string) (int, error)
		CreateProgramCourse(ctx context.Context, pc ProgramCourse) (ProgramCourse, error)
		DeleteProgramCourse(ctx context.Context, programID, courseID string) error
		QueryProgramCourses(ctx context.Context, programID string) ([]ProgramCourse, error)

		CreateCourse(ctx context.Context, crs Course) (Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		// QueryCourses applies AND operation on available CourseFilter fields.
		// CourseFilter.Search does a case-insensitive match on one of Course.Code or Course.Name.
		QueryCourses(ctx context.Context, filter *CourseFilter, ordering []core.DBOrdering) ([]Course, error)
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		DeleteCourse(ctx context.Context, id string) error
		CountCourseEnrollments(ctx context.Context, id string) (int, error)
		CountCourses(ctx context.Context) (int, error)
		CourseFilterOptions(ctx context.Context) (FilterOptions, error)

		InstructorExists(ctx context.Context, facultyID string) (bool, error)
	}

	Service struct {
		tx   core.Transactor
		repo Repository
	}
)

func NewService(tx core.Transactor, repo Repository) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(tx, "tx"),
		vala.IsNotNil(repo, "repo"),
	).CheckAndPanic()

	return &Service{tx: tx, repo: repo}
}

// fieldErr turns known conflicts into a ValidationError on field, and wraps anything else.
func fieldErr(err error, field, msg string, known ...error) error {
	cause := errors.Cause(err)
	for _, k := range known {
		if cause == k {
			return core.NewValidationError(cause, core.FieldError{Field: field, Error: cause.Error()})
		}
	}
	return errors.Wrap(err, msg)
}

func (svc *Service) checkDepartment(ctx context.Context, id string) error {
	if _, err := svc.repo.GetDepartment(ctx, id); err != nil {
		return fieldErr(err, "department_id", "finding department", ErrDepartmentNotFound)
	}
	return nil
}

func (svc *Service) checkInstructor(ctx context.Context, id null.String) error {
	if !id.Valid {
		return nil
	}
	exists, err := svc.repo.InstructorExists(ctx, id.String)
	if err != nil {
		return errors.Wrap(err, "finding instructor")
	}
	if !exists {
		return core.NewValidationError(ErrInstructorNotFound, core.FieldError{Field: "instructor_id", Error: ErrInstructorNotFound.Error()})
	}
	return nil
}

// Departments

func (svc *Service) CreateDepartment(ctx context.Context, in DepartmentInput) (Department, error) {
	dept, err := svc.repo.CreateDepartment(ctx, Department{
		Code:      in.Code,
		Name:      in.Name,
		Location:  in.Location,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return Department{}, fieldErr(err, "code", "creating department", ErrDepartmentCodeExists)
	}
	return dept, nil
}

func (svc *Service) GetDepartment(ctx context.Context, id string) (Department, error) {
	return svc.repo.GetDepartment(ctx, id)
}

func (svc *Service) QueryDepartments(ctx context.Context, search string) ([]Department, error) {
	return svc.repo.QueryDepartments(ctx, core.CleanString(search))
}

func (svc *Service) UpdateDepartment(ctx context.Context, dept Department, in DepartmentInput) (Department, error) {
	dept.Code = in.Code
	dept.Name = in.Name
	dept.Location = in.Location
	dept, err := svc.repo.UpdateDepartment(ctx, dept)
	if err != nil {
		return Department{}, fieldErr(err, "code", "updating department", ErrDepartmentCodeExists)
	}
	return dept, nil
}

// DeleteDepartment removes a department nothing references any more.
func (svc *Service) DeleteDepartment(ctx context.Context, id string) error {
	return svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := svc.repo.GetDepartment(ctx, id); err != nil {
			return err
		}
		usage, err := svc.repo.DepartmentUsage(ctx, id)
		if err != nil {
			return errors.Wrap(err, "counting department usage")
		}
		switch {
		case usage.Courses > 0:
			return core.NewDependentRecordsError("department", "courses", usage.Courses)
		case usage.Programs > 0:
			return core.NewDependentRecordsError("department", "programs", usage.Programs)
		case usage.Students > 0:
			return core.NewDependentRecordsError("department", "students", usage.Students)
		case usage.Faculty > 0:
			return core.NewDependentRecordsError("department", "faculty members", usage.Faculty)
		}
		return svc.repo.DeleteDepartment(ctx, id)
	})
}

func (svc *Service) CountDepartments(ctx context.Context) (int, error) {
	return svc.repo.CountDepartments(ctx)
}

// Programs

func (svc *Service) CreateProgram(ctx context.Context, in ProgramInput) (Program, error) {
	if err := svc.checkDepartment(ctx, in.DepartmentID); err != nil {
		return Program{}, err
	}
	isActive := true
	if in.IsActive != nil {
		isActive = *in.IsActive
	}
	prog, err := svc.repo.CreateProgram(ctx, Program{
		Code:            in.Code,
		Name:            in.Name,
		DegreeType:      in.DegreeType,
		DurationYears:   in.DurationYears,
		RequiredCredits: in.RequiredCredits,
		DepartmentID:    in.DepartmentID,
		Description:     in.Description,
		IsActive:        isActive,
		CreatedAt:       time.Now().UTC(),
	})
	if err != nil {
		return Program{}, fieldErr(err, "code", "creating program", ErrProgramCodeExists)
	}
	return prog, nil
}

func (svc *Service) GetProgram(ctx context.Context, id string) (Program, error) {
	return svc.repo.GetProgram(ctx, id)
}

func (svc *Service) QueryPrograms(ctx context.Context, filter *ProgramFilter) ([]Program, error) {
	return svc.repo.QueryPrograms(ctx, filter)
}

func (svc *Service) UpdateProgram(ctx context.Context, prog Program, in ProgramInput) (Program, error) {
	if err := svc.checkDepartment(ctx, in.DepartmentID); err != nil {
		return Program{}, err
	}
	prog.Code = in.Code
	prog.Name = in.Name
	prog.DegreeType = in.DegreeType
	prog.DurationYears = in.DurationYears
	prog.RequiredCredits = in.RequiredCredits
	prog.DepartmentID = in.DepartmentID
	prog.Description = in.Description
	if in.IsActive != nil {
		prog.IsActive = *in.IsActive
	}
	prog, err := svc.repo.UpdateProgram(ctx, prog)
	if err != nil {
		return Program{}, fieldErr(err, "code", "updating program", ErrProgramCodeExists)
	}
	return prog, nil
}

// DeleteProgram removes a program no student follows. Its course assignments go with it.
func (svc *Service) DeleteProgram(ctx context.Context, id string) error {
	return svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := svc.repo.GetProgram(ctx, id); err != nil {
			return err
		}
		n, err := svc.repo.CountProgramStudents(ctx, id)
		if err != nil {
			return errors.Wrap(err, "counting program students")
		}
		if n > 0 {
			return core.NewDependentRecordsError("program", "students", n)
		}
		return svc.repo.DeleteProgram(ctx, id)
	})
}

func (svc *Service) AssignCourse(ctx context.Context, programID string, in ProgramCourseInput) (ProgramCourse, error) {
	if _, err := svc.repo.GetProgram(ctx, programID); err != nil {
		return ProgramCourse{}, err
	}
	if _, err := svc.repo.GetCourse(ctx, in.CourseID); err != nil {
		return ProgramCourse{}, fieldErr(err, "course_id", "finding course", ErrCourseNotFound)
	}
	isRequired := true
	if in.IsRequired != nil {
		isRequired = *in.IsRequired
	}
	pc, err := svc.repo.CreateProgramCourse(ctx, ProgramCourse{
		ProgramID:           programID,
		CourseID:            in.CourseID,
		IsRequired:          isRequired,
		SemesterRecommended: in.SemesterRecommended,
	})
	if err != nil {
		return ProgramCourse{}, fieldErr(err, "course_id", "assigning course", ErrProgramCourseExists)
	}
	return pc, nil
}

func (svc *Service) RemoveCourse(ctx context.Context, programID, courseID string) error {
	return svc.repo.DeleteProgramCourse(ctx, programID, courseID)
}

func (svc *Service) ListProgramCourses(ctx context.Context, programID string) ([]ProgramCourse, error) {
	if _, err := svc.repo.GetProgram(ctx, programID); err != nil {
		return nil, err
	}
	return svc.repo.QueryProgramCourses(ctx, programID)
}

// Courses

func (svc *Service) CreateCourse(ctx context.Context, in CourseInput) (Course, error) {
	if err := svc.checkDepartment(ctx, in.DepartmentID); err != nil {
		return Course{}, err
	}
	if err := svc.checkInstructor(ctx, in.InstructorID); err != nil {
		return Course{}, err
	}
	isActive := true
	if in.IsActive != nil {
		isActive = *in.IsActive
	}
	crs, err := svc.repo.CreateCourse(ctx, Course{
		Code:         in.Code,
		Name:         in.Name,
		Description:  in.Description,
		Credits:      in.Credits,
		Capacity:     in.Capacity,
		DepartmentID: in.DepartmentID,
		InstructorID: in.InstructorID,
		Term:         in.Term,
		Year:         in.Year,
		Schedule:     in.Schedule,
		Room:         in.Room,
		IsActive:     isActive,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return Course{}, fieldErr(err, "code", "creating course", ErrCourseCodeExists)
	}
	return crs, nil
}

func (svc *Service) GetCourse(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *Service) QueryCourses(ctx context.Context, filter *CourseFilter, ordering []core.DBOrdering) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, filter, ordering)
}

func (svc *Service) UpdateCourse(ctx context.Context, crs Course, in CourseInput) (Course, error) {
	if err := svc.checkDepartment(ctx, in.DepartmentID); err != nil {
		return Course{}, err
	}
	if err := svc.checkInstructor(ctx, in.InstructorID); err != nil {
		return Course{}, err
	}
	crs.Code = in.Code
	crs.Name = in.Name
	crs.Description = in.Description
	crs.Credits = in.Credits
	crs.Capacity = in.Capacity
	crs.DepartmentID = in.DepartmentID
	crs.InstructorID = in.InstructorID
	crs.Term = in.Term
	crs.Year = in.Year
	crs.Schedule = in.Schedule
	crs.Room = in.Room
	if in.IsActive != nil {
		crs.IsActive = *in.IsActive
	}
	crs, err := svc.repo.UpdateCourse(ctx, crs)
	if err != nil {
		return Course{}, fieldErr(err, "code", "updating course", ErrCourseCodeExists)
	}
	return crs, nil
}

// DeleteCourse removes a course no enrollment references; otherwise the course and its
// enrollments are left untouched and a core.DependentRecordsError is returned.
func (svc *Service) DeleteCourse(ctx context.Context, id string) error {
	return svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := svc.repo.GetCourse(ctx, id); err != nil {
			return err
		}
		n, err := svc.repo.CountCourseEnrollments(ctx, id)
		if err != nil {
			return errors.Wrap(err, "counting course enrollments")
		}
		if n > 0 {
			return core.NewDependentRecordsError("course", "enrollments", n)
		}
		return svc.repo.DeleteCourse(ctx, id)
	})
}

func (svc *Service) CountCourses(ctx context.Context) (int, error) {
	return svc.repo.CountCourses(ctx)
}

func (svc *Service) FilterOptions(ctx context.Context) (FilterOptions, error) {
	return svc.repo.CourseFilterOptions(ctx)
}
