package student

import (
	"context"
	"net/mail"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/academia/sims/core"
	"github.com/academia/sims/core/catalog"
	"github.com/academia/sims/core/user"
)

var (
	// errors
	ErrNotFound   = errors.New("student not found")
	ErrCodeExists = errors.New("a student with this code already exists")
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, std Student) (Student, error)
		GetStudent(ctx context.Context, filter GetFilter) (Student, error)
		// QueryStudents applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Student.Code or Student.FullName.
		QueryStudents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error)
		UpdateStudent(ctx context.Context, std Student) (Student, error)
		CountStudentEnrollments(ctx context.Context, id string) (int, error)
		// DeleteStudent removes the student's grades, enrollments and the student itself.
		DeleteStudent(ctx context.Context, id string) error
		CountStudents(ctx context.Context) (int, error)
	}

	Service struct {
		tx         core.Transactor
		repo       Repository
		catalogSvc *catalog.Service
		usrSvc     *user.Service
		mailSvc    core.EmailService
		conf       *core.Config
	}
)

func NewService(
	tx core.Transactor,
	repo Repository,
	catalogSvc *catalog.Service,
	usrSvc *user.Service,
	mailSvc core.EmailService,
	conf *core.Config,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(tx, "tx"),
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(catalogSvc, "catalogSvc"),
		vala.IsNotNil(usrSvc, "usrSvc"),
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()

	return &Service{tx: tx, repo: repo, catalogSvc: catalogSvc, usrSvc: usrSvc, mailSvc: mailSvc, conf: conf}
}

// programDepartment checks the references of a student and returns the department to record:
// the one given, or else the program's.
func (svc *Service) programDepartment(ctx context.Context, programID string, deptID null.String) (null.String, error) {
	prog, err := svc.catalogSvc.GetProgram(ctx, programID)
	if err != nil {
		if errors.Cause(err) == catalog.ErrProgramNotFound {
			return deptID, core.NewValidationError(err, core.FieldError{Field: "program_id", Error: err.Error()})
		}
		return deptID, errors.Wrap(err, "finding program")
	}
	if !deptID.Valid || deptID.String == "" {
		return null.StringFrom(prog.DepartmentID), nil
	}
	if _, err = svc.catalogSvc.GetDepartment(ctx, deptID.String); err != nil {
		if errors.Cause(err) == catalog.ErrDepartmentNotFound {
			return deptID, core.NewValidationError(err, core.FieldError{Field: "department_id", Error: err.Error()})
		}
		return deptID, errors.Wrap(err, "finding department")
	}
	return deptID, nil
}

// Create registers the student and their login account in one unit of work,
// then mails the account details.
func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	var (
		std Student
		usr user.User
	)
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		deptID, err := svc.programDepartment(ctx, ns.ProgramID, ns.DepartmentID)
		if err != nil {
			return err
		}
		if err = svc.usrSvc.CheckUniqueness(ctx, ns.Account.Username, ns.Account.Email); err != nil {
			return err
		}
		if usr, err = svc.usrSvc.Create(ctx, ns.Account); err != nil {
			return errors.Wrap(err, "creating user account")
		}

		now := time.Now().UTC()
		std, err = svc.repo.CreateStudent(ctx, Student{
			UserID:        usr.ID,
			Code:          ns.Code,
			FullName:      usr.Name,
			ProgramID:     ns.ProgramID,
			DepartmentID:  deptID,
			AdmissionDate: ns.AdmissionDate.UTC().Truncate(24 * time.Hour),
			AdmissionType: ns.AdmissionType,
			Status:        StatusActive,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		if err != nil {
			if errors.Cause(err) == ErrCodeExists {
				return core.NewValidationError(ErrCodeExists, core.FieldError{Field: "code", Error: ErrCodeExists.Error()})
			}
			return errors.Wrap(err, "creating student")
		}
		return nil
	})
	if err != nil {
		return Student{}, err
	}

	svc.sendWelcomeMail(usr)
	return std, nil
}

func (svc *Service) sendWelcomeMail(usr user.User) {
	if usr.Email == "" {
		return
	}
	login := usr.Username
	if login == "" {
		login = usr.Email
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Welcome to " + svc.conf.School.Name,
		TemplateName: "welcome",
		TemplateData: map[string]interface{}{
			"Name":     usr.Name,
			"Username": login,
			"School":   svc.conf.School.Name,
		},
	})
}

func (svc *Service) Get(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByUserID(ctx context.Context, userID string) (Student, error) {
	return svc.repo.GetStudent(ctx, GetFilter{UserID: userID})
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, filter, ordering)
}

func (svc *Service) Count(ctx context.Context) (int, error) {
	return svc.repo.CountStudents(ctx)
}

func (svc *Service) Update(ctx context.Context, std Student, us UpdateStudent) (Student, error) {
	deptID, err := svc.programDepartment(ctx, us.ProgramID, us.DepartmentID)
	if err != nil {
		return Student{}, err
	}
	std.FullName = us.FullName
	std.Code = us.Code
	std.ProgramID = us.ProgramID
	std.DepartmentID = deptID
	std.AdmissionType = us.AdmissionType
	std.Status = us.Status
	std.UpdatedAt = time.Now().UTC()

	std, err = svc.repo.UpdateStudent(ctx, std)
	if err != nil {
		if errors.Cause(err) == ErrCodeExists {
			return Student{}, core.NewValidationError(ErrCodeExists, core.FieldError{Field: "code", Error: ErrCodeExists.Error()})
		}
		return Student{}, errors.Wrap(err, "updating student")
	}
	return std, nil
}

// Delete removes a student and their login account.
// Without cascade, a student with enrollments is kept and a core.DependentRecordsError is returned;
// with cascade, their grades and enrollments are removed in the same unit of work.
func (svc *Service) Delete(ctx context.Context, id string, cascade bool) error {
	return svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		std, err := svc.repo.GetStudent(ctx, GetFilter{ID: id})
		if err != nil {
			return err
		}
		n, err := svc.repo.CountStudentEnrollments(ctx, id)
		if err != nil {
			return errors.Wrap(err, "counting student enrollments")
		}
		if n > 0 && !cascade {
			return core.NewDependentRecordsError("student", "enrollments", n)
		}
		if err = svc.repo.DeleteStudent(ctx, id); err != nil {
			return errors.Wrap(err, "deleting student")
		}
		if err = svc.usrSvc.Delete(ctx, std.UserID); err != nil {
			return errors.Wrap(err, "deleting user account")
		}
		return nil
	})
}
