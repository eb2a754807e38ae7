// Package dashboard builds the landing view of each kind of user.
package dashboard

import (
	"context"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/academia/sims/core"
	"github.com/academia/sims/core/catalog"
	"github.com/academia/sims/core/faculty"
	"github.com/academia/sims/core/ledger"
	"github.com/academia/sims/core/student"
	"github.com/academia/sims/core/user"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleFaculty Role = "faculty"
	RoleStudent Role = "student"
)

var ErrNoProfile = errors.New("user has no dashboard")

// Dashboard holds exactly one of Admin, Faculty or Student, as told by Role.
type Dashboard struct {
	Role    Role              `json:"role"`
	Admin   *AdminDashboard   `json:"admin,omitempty"`
	Faculty *FacultyDashboard `json:"faculty,omitempty"`
	Student *StudentDashboard `json:"student,omitempty"`
}

type AdminDashboard struct {
	Students    int `json:"students"`
	Faculty     int `json:"faculty"`
	Courses     int `json:"courses"`
	Departments int `json:"departments"`
}

type FacultyDashboard struct {
	Profile          faculty.Faculty  `json:"profile"`
	Courses          []catalog.Course `json:"courses"`
	EnrolledStudents int              `json:"enrolled_students"`
	CurrentTerm      string           `json:"current_term"`
	CurrentYear      int              `json:"current_year"`
}

type StudentDashboard struct {
	Profile              student.Student     `json:"profile"`
	Program              catalog.Program     `json:"program"`
	School               core.SchoolConfig   `json:"school"`
	TotalEnrollments     int                 `json:"total_enrollments"`
	CompletedEnrollments int                 `json:"completed_enrollments"`
	CurrentEnrollments   []ledger.Enrollment `json:"current_enrollments"`
	GPA                  float64             `json:"gpa"`
	TotalCredits         int                 `json:"total_credits"`
}

type Service struct {
	catalogSvc *catalog.Service
	stdSvc     *student.Service
	facSvc     *faculty.Service
	ledgerSvc  *ledger.Service
	conf       *core.Config
}

func NewService(
	catalogSvc *catalog.Service,
	stdSvc *student.Service,
	facSvc *faculty.Service,
	ledgerSvc *ledger.Service,
	conf *core.Config,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(catalogSvc, "catalogSvc"),
		vala.IsNotNil(stdSvc, "stdSvc"),
		vala.IsNotNil(facSvc, "facSvc"),
		vala.IsNotNil(ledgerSvc, "ledgerSvc"),
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()

	return &Service{catalogSvc: catalogSvc, stdSvc: stdSvc, facSvc: facSvc, ledgerSvc: ledgerSvc, conf: conf}
}

// ForUser builds the dashboard of the user's highest role.
func (svc *Service) ForUser(ctx context.Context, usr user.User) (Dashboard, error) {
	switch {
	case usr.IsAdmin():
		d, err := svc.admin(ctx)
		return Dashboard{Role: RoleAdmin, Admin: d}, err
	case usr.IsFaculty():
		d, err := svc.faculty(ctx, usr)
		return Dashboard{Role: RoleFaculty, Faculty: d}, err
	case usr.IsStudent():
		d, err := svc.student(ctx, usr)
		return Dashboard{Role: RoleStudent, Student: d}, err
	}
	return Dashboard{}, ErrNoProfile
}

func (svc *Service) admin(ctx context.Context) (*AdminDashboard, error) {
	var (
		d   AdminDashboard
		err error
	)
	if d.Students, err = svc.stdSvc.Count(ctx); err != nil {
		return nil, errors.Wrap(err, "counting students")
	}
	if d.Faculty, err = svc.facSvc.Count(ctx); err != nil {
		return nil, errors.Wrap(err, "counting faculty")
	}
	if d.Courses, err = svc.catalogSvc.CountCourses(ctx); err != nil {
		return nil, errors.Wrap(err, "counting courses")
	}
	if d.Departments, err = svc.catalogSvc.CountDepartments(ctx); err != nil {
		return nil, errors.Wrap(err, "counting departments")
	}
	return &d, nil
}

func (svc *Service) faculty(ctx context.Context, usr user.User) (*FacultyDashboard, error) {
	fac, err := svc.facSvc.GetByUserID(ctx, usr.ID)
	if err != nil {
		if errors.Cause(err) == faculty.ErrNotFound {
			return nil, ErrNoProfile
		}
		return nil, errors.Wrap(err, "finding faculty profile")
	}

	active := true
	courses, err := svc.catalogSvc.QueryCourses(ctx, &catalog.CourseFilter{InstructorID: fac.ID, IsActive: &active}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "listing courses taught")
	}

	d := FacultyDashboard{Profile: fac, Courses: courses}
	for _, crs := range courses {
		enrs, err := svc.ledgerSvc.ListEnrollments(ctx, &ledger.EnrollmentFilter{CourseID: crs.ID, Status: ledger.StatusEnrolled})
		if err != nil {
			return nil, errors.Wrap(err, "listing course enrollments")
		}
		d.EnrolledStudents += len(enrs)
		if crs.Year > d.CurrentYear || (crs.Year == d.CurrentYear && crs.Term > d.CurrentTerm) {
			d.CurrentTerm, d.CurrentYear = crs.Term, crs.Year
		}
	}
	return &d, nil
}

func (svc *Service) student(ctx context.Context, usr user.User) (*StudentDashboard, error) {
	std, err := svc.stdSvc.GetByUserID(ctx, usr.ID)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return nil, ErrNoProfile
		}
		return nil, errors.Wrap(err, "finding student profile")
	}
	prog, err := svc.catalogSvc.GetProgram(ctx, std.ProgramID)
	if err != nil {
		return nil, errors.Wrap(err, "finding program")
	}
	enrs, err := svc.ledgerSvc.ListEnrollments(ctx, &ledger.EnrollmentFilter{StudentID: std.ID})
	if err != nil {
		return nil, errors.Wrap(err, "listing enrollments")
	}

	d := StudentDashboard{
		Profile:            std,
		Program:            prog,
		School:             svc.conf.School,
		TotalEnrollments:   len(enrs),
		CurrentEnrollments: make([]ledger.Enrollment, 0),
		GPA:                std.GPA,
		TotalCredits:       std.TotalCredits,
	}
	for _, enr := range enrs {
		switch enr.Status {
		case ledger.StatusCompleted:
			d.CompletedEnrollments++
		case ledger.StatusEnrolled:
			d.CurrentEnrollments = append(d.CurrentEnrollments, enr)
		}
	}
	return &d, nil
}
