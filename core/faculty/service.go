package faculty

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
	ErrNotFound           = errors.New("faculty member not found")
	ErrEmployeeCodeExists = errors.New("a faculty member with this employee code already exists")
)

type (
	Repository interface {
		CreateFaculty(ctx context.Context, fac Faculty) (Faculty, error)
		GetFaculty(ctx context.Context, filter GetFilter) (Faculty, error)
		// QueryFaculty applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Faculty.EmployeeCode or Faculty.FullName.
		QueryFaculty(ctx context.Context, filter *QueryFilter) ([]Faculty, error)
		UpdateFaculty(ctx context.Context, fac Faculty) (Faculty, error)
		CountCoursesTaught(ctx context.Context, id string) (int, error)
		// DeleteFaculty clears the faculty member from the grades they recorded, then removes them.
		DeleteFaculty(ctx context.Context, id string) error
		CountFaculty(ctx context.Context) (int, error)
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

func (svc *Service) checkDepartment(ctx context.Context, id null.String) error {
	if !id.Valid {
		return nil
	}
	if _, err := svc.catalogSvc.GetDepartment(ctx, id.String); err != nil {
		if errors.Cause(err) == catalog.ErrDepartmentNotFound {
			return core.NewValidationError(err, core.FieldError{Field: "department_id", Error: err.Error()})
		}
		return errors.Wrap(err, "finding department")
	}
	return nil
}

func codeErr(err error, msg string) error {
	if errors.Cause(err) == ErrEmployeeCodeExists {
		return core.NewValidationError(ErrEmployeeCodeExists, core.FieldError{Field: "employee_code", Error: ErrEmployeeCodeExists.Error()})
	}
	return errors.Wrap(err, msg)
}

// Create registers the faculty member and their login account in one unit of work.
func (svc *Service) Create(ctx context.Context, nf NewFaculty) (Faculty, error) {
	var (
		fac Faculty
		usr user.User
	)
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := svc.checkDepartment(ctx, nf.DepartmentID); err != nil {
			return err
		}
		if err := svc.usrSvc.CheckUniqueness(ctx, nf.Account.Username, nf.Account.Email); err != nil {
			return err
		}
		var err error
		if usr, err = svc.usrSvc.Create(ctx, nf.Account); err != nil {
			return errors.Wrap(err, "creating user account")
		}
		fac, err = svc.repo.CreateFaculty(ctx, Faculty{
			UserID:         usr.ID,
			EmployeeCode:   nf.EmployeeCode,
			FullName:       usr.Name,
			DepartmentID:   nf.DepartmentID,
			Qualification:  nf.Qualification,
			Specialization: nf.Specialization,
			Position:       nf.Position,
			OfficeLocation: nf.OfficeLocation,
			HireDate:       nf.HireDate,
			CreatedAt:      time.Now().UTC(),
		})
		if err != nil {
			return codeErr(err, "creating faculty")
		}
		return nil
	})
	if err != nil {
		return Faculty{}, err
	}

	if usr.Email != "" {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
			Subject:      "Welcome to " + svc.conf.School.Name,
			TemplateName: "welcome",
			TemplateData: map[string]interface{}{
				"Name":     usr.Name,
				"Username": usr.Username,
				"School":   svc.conf.School.Name,
			},
		})
	}
	return fac, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Faculty, error) {
	return svc.repo.GetFaculty(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByUserID(ctx context.Context, userID string) (Faculty, error) {
	return svc.repo.GetFaculty(ctx, GetFilter{UserID: userID})
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Faculty, error) {
	return svc.repo.QueryFaculty(ctx, filter)
}

func (svc *Service) Count(ctx context.Context) (int, error) {
	return svc.repo.CountFaculty(ctx)
}

func (svc *Service) Update(ctx context.Context, fac Faculty, uf UpdateFaculty) (Faculty, error) {
	if err := svc.checkDepartment(ctx, uf.DepartmentID); err != nil {
		return Faculty{}, err
	}
	fac.FullName = uf.FullName
	fac.EmployeeCode = uf.EmployeeCode
	fac.DepartmentID = uf.DepartmentID
	fac.Qualification = uf.Qualification
	fac.Specialization = uf.Specialization
	fac.Position = uf.Position
	fac.OfficeLocation = uf.OfficeLocation
	fac.HireDate = uf.HireDate

	fac, err := svc.repo.UpdateFaculty(ctx, fac)
	if err != nil {
		return Faculty{}, codeErr(err, "updating faculty")
	}
	return fac, nil
}

// Delete removes a faculty member who instructs no course, along with their login account.
func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		fac, err := svc.repo.GetFaculty(ctx, GetFilter{ID: id})
		if err != nil {
			return err
		}
		n, err := svc.repo.CountCoursesTaught(ctx, id)
		if err != nil {
			return errors.Wrap(err, "counting courses taught")
		}
		if n > 0 {
			return core.NewDependentRecordsError("faculty member", "courses", n)
		}
		if err = svc.repo.DeleteFaculty(ctx, id); err != nil {
			return errors.Wrap(err, "deleting faculty")
		}
		if err = svc.usrSvc.Delete(ctx, fac.UserID); err != nil {
			return errors.Wrap(err, "deleting user account")
		}
		return nil
	})
}
