package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/academia/sims/core/catalog"
	"github.com/academia/sims/core/faculty"
	"github.com/academia/sims/core/ledger"
	"github.com/academia/sims/core/student"
)

var errEnrNotFoundInCtx = errors.New("enrollment object not found in echo.Context")

type ledgerApi struct {
	auth       *authenticator
	svc        *ledger.Service
	stdSvc     *student.Service
	facSvc     *faculty.Service
	catalogSvc *catalog.Service
	validate   *validator.Validate
}

func registerLedgerAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	auth *authenticator,
	svc *ledger.Service,
	stdSvc *student.Service,
	facSvc *faculty.Service,
	catalogSvc *catalog.Service,
	validate *validator.Validate,
) {
	api := ledgerApi{auth: auth, svc: svc, stdSvc: stdSvc, facSvc: facSvc, catalogSvc: catalogSvc, validate: validate}
	admin := adminMiddleware()

	eg := g.Group("/enrollments", jwt)
	eg.POST("", api.enroll, admin)
	eg.GET("", api.query, admin)

	// grading is checked against the course instructor by the ledger
	eg.PUT("/:id/scores", api.recordScores, facultyMiddleware())
	eg.PUT("/:id/grade", api.upsertGrade, facultyMiddleware())

	// detail endpoints
	dg := eg.Group("/:id", api.participantMiddleware())
	dg.GET("", api.retrieve)
	dg.DELETE("", api.destroy, admin)
	dg.PATCH("/status", api.updateStatus, admin)
	dg.GET("/grade", api.retrieveGrade)
}

func ctxEnrollment(ctx echo.Context) (ledger.Enrollment, error) {
	enr, ok := ctx.Get("object").(ledger.Enrollment)
	if !ok {
		return ledger.Enrollment{}, errors.Wrap(errEnrNotFoundInCtx, "retrieving object from context")
	}
	return enr, nil
}

func (api *ledgerApi) enroll(ctx echo.Context) error {
	var data ledger.NewEnrollment
	if err := bind(ctx, &data, "NewEnrollment"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	enr, err := api.svc.Enroll(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *ledgerApi) query(ctx echo.Context) error {
	filter := new(ledger.EnrollmentFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []ledger.Enrollment{})
	}
	filter.Clean()
	enrs, err := api.svc.ListEnrollments(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "listing enrollments")
	}
	return ctx.JSON(http.StatusOK, enrs)
}

func (api *ledgerApi) retrieve(ctx echo.Context) error {
	enr, err := ctxEnrollment(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *ledgerApi) destroy(ctx echo.Context) error {
	enr, err := ctxEnrollment(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteEnrollment(ctx.Request().Context(), enr.ID); err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *ledgerApi) updateStatus(ctx echo.Context) error {
	enr, err := ctxEnrollment(ctx)
	if err != nil {
		return err
	}
	var data ledger.StatusUpdate
	if err = bind(ctx, &data, "StatusUpdate"); err != nil {
		return err
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	if enr, err = api.svc.UpdateEnrollmentStatus(ctx.Request().Context(), enr.ID, data.Status); err != nil {
		return errors.Wrap(err, "updating enrollment status")
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *ledgerApi) retrieveGrade(ctx echo.Context) error {
	enr, err := ctxEnrollment(ctx)
	if err != nil {
		return err
	}
	grd, err := api.svc.GetGradeForEnrollment(ctx.Request().Context(), enr.ID)
	if err != nil {
		return errors.Wrap(err, "finding grade")
	}
	return ctx.JSON(http.StatusOK, grd)
}

func (api *ledgerApi) recordScores(ctx echo.Context) error {
	acc, err := loadAccess(ctx, api.auth, nil, api.facSvc)
	if err != nil {
		return err
	}
	var data ledger.Scores
	if err = bind(ctx, &data, "Scores"); err != nil {
		return err
	}
	enr, err := api.svc.RecordScores(ctx.Request().Context(), ctx.Param("id"), acc.facultyID(), data)
	if err != nil {
		return errors.Wrap(err, "recording scores")
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *ledgerApi) upsertGrade(ctx echo.Context) error {
	acc, err := loadAccess(ctx, api.auth, nil, api.facSvc)
	if err != nil {
		return err
	}
	var data ledger.GradeEntry
	if err = bind(ctx, &data, "GradeEntry"); err != nil {
		return err
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	data.EnrollmentID = ctx.Param("id")
	data.GraderID = acc.facultyID()

	grd, err := api.svc.UpsertGrade(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "grading enrollment")
	}
	return ctx.JSON(http.StatusOK, grd)
}

// participantMiddleware loads the enrollment of the :id param for admins, for the enrolled
// student and for the course instructor.
func (api *ledgerApi) participantMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			rctx := ctx.Request().Context()
			enr, err := api.svc.GetEnrollment(rctx, ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == ledger.ErrEnrollmentNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding enrollment")
			}
			acc, err := loadAccess(ctx, api.auth, api.stdSvc, api.facSvc)
			if err != nil {
				return err
			}

			allowed := acc.isAdmin() || acc.isStudent(enr.StudentID)
			if !allowed && acc.fac != nil {
				crs, err := api.catalogSvc.GetCourse(rctx, enr.CourseID)
				if err != nil {
					return errors.Wrap(err, "finding course")
				}
				allowed = crs.TaughtBy(acc.fac.ID)
			}
			if !allowed {
				return errHttpNotFound
			}
			ctx.Set("object", enr)
			return next(ctx)
		}
	}
}
