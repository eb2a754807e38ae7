package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/academia/sims/core/faculty"
	"github.com/academia/sims/core/student"
	"github.com/academia/sims/core/user"
)

// access is the authenticated user with the academic records they act through.
type access struct {
	usr user.User
	std *student.Student
	fac *faculty.Faculty
}

// loadAccess reads the context user and, for the services given, their student and faculty records.
func loadAccess(ctx echo.Context, auth *authenticator, stdSvc *student.Service, facSvc *faculty.Service) (access, error) {
	usr, err := auth.contextUser(ctx)
	if err != nil {
		return access{}, errors.Wrap(err, "getting context user")
	}
	acc := access{usr: usr}

	rctx := ctx.Request().Context()
	if stdSvc != nil && usr.IsStudent() {
		std, err := stdSvc.GetByUserID(rctx, usr.ID)
		switch errors.Cause(err) {
		case nil:
			acc.std = &std
		case student.ErrNotFound:
		default:
			return access{}, errors.Wrap(err, "finding student profile")
		}
	}
	if facSvc != nil && usr.IsFaculty() {
		fac, err := facSvc.GetByUserID(rctx, usr.ID)
		switch errors.Cause(err) {
		case nil:
			acc.fac = &fac
		case faculty.ErrNotFound:
		default:
			return access{}, errors.Wrap(err, "finding faculty profile")
		}
	}
	return acc, nil
}

func (acc access) isAdmin() bool {
	return acc.usr.IsAdmin()
}

func (acc access) isStudent(studentID string) bool {
	return acc.std != nil && acc.std.ID == studentID
}

// facultyID is empty when the user has no faculty record; no course is taught by "".
func (acc access) facultyID() string {
	if acc.fac == nil {
		return ""
	}
	return acc.fac.ID
}
