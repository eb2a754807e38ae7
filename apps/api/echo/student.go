package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/academia/sims/core/ledger"
	"github.com/academia/sims/core/student"
	"github.com/academia/sims/core/transcript"
)

var errStdNotFoundInCtx = errors.New("student object not found in echo.Context")

type studentApi struct {
	auth          *authenticator
	svc           *student.Service
	ledgerSvc     *ledger.Service
	transcriptSvc *transcript.Service
	validate      *validator.Validate
}

func registerStudentAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	auth *authenticator,
	svc *student.Service,
	ledgerSvc *ledger.Service,
	transcriptSvc *transcript.Service,
	validate *validator.Validate,
) {
	api := studentApi{auth: auth, svc: svc, ledgerSvc: ledgerSvc, transcriptSvc: transcriptSvc, validate: validate}
	admin := adminMiddleware()

	sg := g.Group("/students", jwt)
	sg.GET("", api.query, admin)
	sg.POST("", api.create, admin)

	// detail endpoints
	dg := sg.Group("/:id", api.selfOrAdminMiddleware())
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, admin)
	dg.DELETE("", api.destroy, admin)
	dg.GET("/enrollments", api.queryEnrollments)
	dg.GET("/grades", api.queryGrades)
	dg.GET("/transcript", api.transcript)
	dg.POST("/assign-program-courses", api.assignProgramCourses, admin)
	dg.POST("/recalculate-gpa", api.recalculateGPA, admin)
}

func ctxStudent(ctx echo.Context) (student.Student, error) {
	std, ok := ctx.Get("object").(student.Student)
	if !ok {
		return student.Student{}, errors.Wrap(errStdNotFoundInCtx, "retrieving object from context")
	}
	return std, nil
}

func (api *studentApi) query(ctx echo.Context) error {
	filter := new(student.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []student.Student{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	stds, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, stds)
}

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := bind(ctx, &data, "NewStudent"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	std, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, std)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	std, err := ctxStudent(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *studentApi) update(ctx echo.Context) error {
	std, err := ctxStudent(ctx)
	if err != nil {
		return err
	}
	var data student.UpdateStudent
	if err = bind(ctx, &data, "UpdateStudent"); err != nil {
		return err
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	if std, err = api.svc.Update(ctx.Request().Context(), std, data); err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, std)
}

// destroy removes the student; ?cascade=true also removes their enrollments and grades.
func (api *studentApi) destroy(ctx echo.Context) error {
	std, err := ctxStudent(ctx)
	if err != nil {
		return err
	}
	cascade, _ := strconv.ParseBool(ctx.QueryParam("cascade"))
	if err = api.svc.Delete(ctx.Request().Context(), std.ID, cascade); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studentApi) queryEnrollments(ctx echo.Context) error {
	std, err := ctxStudent(ctx)
	if err != nil {
		return err
	}
	filter := new(ledger.EnrollmentFilter)
	if err = ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []ledger.Enrollment{})
	}
	filter.Clean()
	filter.StudentID = std.ID

	enrs, err := api.ledgerSvc.ListEnrollments(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "listing enrollments")
	}
	return ctx.JSON(http.StatusOK, enrs)
}

func (api *studentApi) queryGrades(ctx echo.Context) error {
	std, err := ctxStudent(ctx)
	if err != nil {
		return err
	}
	grades, err := api.ledgerSvc.ListGrades(ctx.Request().Context(), &ledger.GradeFilter{StudentID: std.ID})
	if err != nil {
		return errors.Wrap(err, "listing grades")
	}
	return ctx.JSON(http.StatusOK, grades)
}

func (api *studentApi) transcript(ctx echo.Context) error {
	std, err := ctxStudent(ctx)
	if err != nil {
		return err
	}
	tr, err := api.transcriptSvc.ForStudent(ctx.Request().Context(), std.ID)
	if err != nil {
		return errors.Wrap(err, "building transcript")
	}
	return ctx.JSON(http.StatusOK, tr)
}

func (api *studentApi) assignProgramCourses(ctx echo.Context) error {
	std, err := ctxStudent(ctx)
	if err != nil {
		return err
	}
	res, err := api.ledgerSvc.AssignProgramCourses(ctx.Request().Context(), std.ID)
	if err != nil {
		return errors.Wrap(err, "assigning program courses")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *studentApi) recalculateGPA(ctx echo.Context) error {
	std, err := ctxStudent(ctx)
	if err != nil {
		return err
	}
	st, err := api.ledgerSvc.RecalculateGPA(ctx.Request().Context(), std.ID)
	if err != nil {
		return errors.Wrap(err, "recalculating GPA")
	}
	return ctx.JSON(http.StatusOK, st)
}

// selfOrAdminMiddleware loads the student of the :id param for admins and for that student.
func (api *studentApi) selfOrAdminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			acc, err := loadAccess(ctx, api.auth, api.svc, nil)
			if err != nil {
				return err
			}
			id := ctx.Param("id")
			if acc.isAdmin() || acc.isStudent(id) {
				if std, err := api.svc.Get(ctx.Request().Context(), id); err == nil {
					ctx.Set("object", std)
					return next(ctx)
				} else if errors.Cause(err) != student.ErrNotFound {
					return errors.Wrap(err, "finding student by ID")
				}
			}
			return errHttpNotFound
		}
	}
}
