package catalog

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/academia/sims/core"
)

type Department struct {
	ID        string      `json:"id" db:"id"`
	Code      string      `json:"code" db:"code"`
	Name      string      `json:"name" db:"name"`
	Location  null.String `json:"location" db:"location"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}

// DepartmentUsage counts the records that reference a Department.
type DepartmentUsage struct {
	Courses  int
	Programs int
	Students int
	Faculty  int
}

type Program struct {
	ID              string      `json:"id" db:"id"`
	Code            string      `json:"code" db:"code"`
	Name            string      `json:"name" db:"name"`
	DegreeType      string      `json:"degree_type" db:"degree_type"`
	DurationYears   int         `json:"duration_years" db:"duration_years"`
	RequiredCredits int         `json:"required_credits" db:"required_credits"`
	DepartmentID    string      `json:"department_id" db:"department_id"`
	Description     null.String `json:"description" db:"description"`
	IsActive        bool        `json:"is_active" db:"is_active"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
}

// ProgramCourse assigns a Course to a Program's curriculum.
type ProgramCourse struct {
	ID                  string   `json:"id" db:"id"`
	ProgramID           string   `json:"program_id" db:"program_id"`
	CourseID            string   `json:"course_id" db:"course_id"`
	IsRequired          bool     `json:"is_required" db:"is_required"`
	SemesterRecommended null.Int `json:"semester_recommended" db:"semester_recommended"`

	// read-only
	CourseCode string `json:"course_code" db:"course_code"`
	CourseName string `json:"course_name" db:"course_name"`
	Credits    int    `json:"credits" db:"credits"`
}

type Course struct {
	ID           string      `json:"id" db:"id"`
	Code         string      `json:"code" db:"code"`
	Name         string      `json:"name" db:"name"`
	Description  null.String `json:"description" db:"description"`
	Credits      int         `json:"credits" db:"credits"`
	Capacity     int         `json:"capacity" db:"capacity"` // 0: no limit
	DepartmentID string      `json:"department_id" db:"department_id"`
	InstructorID null.String `json:"instructor_id" db:"instructor_id"`
	Term         string      `json:"term" db:"term"`
	Year         int         `json:"year" db:"year"`
	Schedule     null.String `json:"schedule" db:"schedule"`
	Room         null.String `json:"room" db:"room"`
	IsActive     bool        `json:"is_active" db:"is_active"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
}

// TaughtBy reports whether facultyID is the instructor of the course.
func (c Course) TaughtBy(facultyID string) bool {
	return facultyID != "" && c.InstructorID.Valid && c.InstructorID.String == facultyID
}

// HasCapacityLimit reports whether the course caps its enrollments.
func (c Course) HasCapacityLimit() bool {
	return c.Capacity > 0
}

// DepartmentInput holds the editable fields of a Department, for creation and full updates.
type DepartmentInput struct {
	Code     string      `json:"code" validate:"required,max=20,code"`
	Name     string      `json:"name" validate:"required,max=100"`
	Location null.String `json:"location"`
}

func (in *DepartmentInput) Validate(validate *validator.Validate) error {
	in.Code = core.CleanString(in.Code)
	in.Name = core.CleanString(in.Name)
	return validate.Struct(in)
}

type ProgramInput struct {
	Code            string      `json:"code" validate:"required,max=20,code"`
	Name            string      `json:"name" validate:"required,max=100"`
	DegreeType      string      `json:"degree_type" validate:"max=50"`
	DurationYears   int         `json:"duration_years" validate:"min=1,max=10"`
	RequiredCredits int         `json:"required_credits" validate:"min=0"`
	DepartmentID    string      `json:"department_id" validate:"required,uuid"`
	Description     null.String `json:"description"`
	IsActive        *bool       `json:"is_active"`
}

func (in *ProgramInput) Validate(validate *validator.Validate) error {
	in.Code = core.CleanString(in.Code)
	in.Name = core.CleanString(in.Name)
	in.DegreeType = core.CleanString(in.DegreeType)
	if in.DurationYears == 0 {
		in.DurationYears = 4
	}
	return validate.Struct(in)
}

type ProgramCourseInput struct {
	CourseID            string   `json:"course_id" validate:"required,uuid"`
	IsRequired          *bool    `json:"is_required"`
	SemesterRecommended null.Int `json:"semester_recommended"`
}

func (in *ProgramCourseInput) Validate(validate *validator.Validate) error {
	return validate.Struct(in)
}

type CourseInput struct {
	Code         string      `json:"code" validate:"required,max=20,code"`
	Name         string      `json:"name" validate:"required,max=200"`
	Description  null.String `json:"description"`
	Credits      int         `json:"credits" validate:"required,min=1,max=30"`
	Capacity     int         `json:"capacity" validate:"min=0"`
	DepartmentID string      `json:"department_id" validate:"required,uuid"`
	InstructorID null.String `json:"instructor_id"`
	Term         string      `json:"term" validate:"required,max=20"`
	Year         int         `json:"year" validate:"required,min=1900,max=2999"`
	Schedule     null.String `json:"schedule"`
	Room         null.String `json:"room"`
	IsActive     *bool       `json:"is_active"`
}

func (in *CourseInput) Validate(validate *validator.Validate) error {
	in.Code = core.CleanString(in.Code)
	in.Name = core.CleanString(in.Name)
	in.Term = core.CleanString(in.Term)
	if in.InstructorID.Valid && core.CleanString(in.InstructorID.String) == "" {
		in.InstructorID = null.String{}
	}
	return validate.Struct(in)
}

type ProgramFilter struct {
	Search       string `query:"search"`
	DepartmentID string `query:"department_id"`
	IsActive     *bool  `query:"is_active"`
}

func (qf *ProgramFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

type CourseFilter struct {
	Search       string `query:"search"`
	DepartmentID string `query:"department_id"`
	InstructorID string `query:"instructor_id"`
	Term         string `query:"term"`
	Year         int    `query:"year"`
	IsActive     *bool  `query:"is_active"`
}

func (qf *CourseFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Term = core.CleanString(qf.Term)
}

// FilterOptions lists the distinct values UIs offer when filtering courses.
type FilterOptions struct {
	Terms []string `json:"terms"`
	Years []int    `json:"years"`
}
