package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/academia/sims/core/catalog"
	"github.com/academia/sims/core/faculty"
	"github.com/academia/sims/core/ledger"
)

type catalogApi struct {
	auth      *authenticator
	svc       *catalog.Service
	facSvc    *faculty.Service
	ledgerSvc *ledger.Service
	validate  *validator.Validate
}

func registerCatalogAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	auth *authenticator,
	svc *catalog.Service,
	facSvc *faculty.Service,
	ledgerSvc *ledger.Service,
	validate *validator.Validate,
) {
	api := catalogApi{auth: auth, svc: svc, facSvc: facSvc, ledgerSvc: ledgerSvc, validate: validate}
	admin := adminMiddleware()

	dg := g.Group("/departments", jwt)
	dg.GET("", api.queryDepartments)
	dg.POST("", api.createDepartment, admin)
	dg.GET("/:id", api.retrieveDepartment)
	dg.PUT("/:id", api.updateDepartment, admin)
	dg.DELETE("/:id", api.destroyDepartment, admin)

	pg := g.Group("/programs", jwt)
	pg.GET("", api.queryPrograms)
	pg.POST("", api.createProgram, admin)
	pg.GET("/:id", api.retrieveProgram)
	pg.PUT("/:id", api.updateProgram, admin)
	pg.DELETE("/:id", api.destroyProgram, admin)
	pg.GET("/:id/courses", api.queryProgramCourses)
	pg.POST("/:id/courses", api.assignCourse, admin)
	pg.DELETE("/:id/courses/:courseID", api.removeCourse, admin)

	cg := g.Group("/courses", jwt)
	cg.GET("", api.queryCourses)
	cg.POST("", api.createCourse, admin)
	cg.GET("/filter-options", api.filterOptions)
	cg.GET("/:id", api.retrieveCourse)
	cg.PUT("/:id", api.updateCourse, admin)
	cg.DELETE("/:id", api.destroyCourse, admin)
	cg.GET("/:id/enrollments", api.queryCourseEnrollments)
}

// Departments

func (api *catalogApi) queryDepartments(ctx echo.Context) error {
	depts, err := api.svc.QueryDepartments(ctx.Request().Context(), ctx.QueryParam("search"))
	if err != nil {
		return errors.Wrap(err, "querying departments")
	}
	return ctx.JSON(http.StatusOK, depts)
}

func (api *catalogApi) createDepartment(ctx echo.Context) error {
	var data catalog.DepartmentInput
	if err := bind(ctx, &data, "DepartmentInput"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	dept, err := api.svc.CreateDepartment(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating department")
	}
	return ctx.JSON(http.StatusCreated, dept)
}

func (api *catalogApi) retrieveDepartment(ctx echo.Context) error {
	dept, err := api.svc.GetDepartment(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding department")
	}
	return ctx.JSON(http.StatusOK, dept)
}

func (api *catalogApi) updateDepartment(ctx echo.Context) error {
	dept, err := api.svc.GetDepartment(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding department")
	}
	var data catalog.DepartmentInput
	if err = bind(ctx, &data, "DepartmentInput"); err != nil {
		return err
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	if dept, err = api.svc.UpdateDepartment(ctx.Request().Context(), dept, data); err != nil {
		return errors.Wrap(err, "updating department")
	}
	return ctx.JSON(http.StatusOK, dept)
}

func (api *catalogApi) destroyDepartment(ctx echo.Context) error {
	if err := api.svc.DeleteDepartment(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting department")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Programs

func (api *catalogApi) queryPrograms(ctx echo.Context) error {
	filter := new(catalog.ProgramFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []catalog.Program{})
	}
	filter.Clean()
	progs, err := api.svc.QueryPrograms(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying programs")
	}
	return ctx.JSON(http.StatusOK, progs)
}

func (api *catalogApi) createProgram(ctx echo.Context) error {
	var data catalog.ProgramInput
	if err := bind(ctx, &data, "ProgramInput"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	prog, err := api.svc.CreateProgram(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating program")
	}
	return ctx.JSON(http.StatusCreated, prog)
}

func (api *catalogApi) retrieveProgram(ctx echo.Context) error {
	prog, err := api.svc.GetProgram(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding program")
	}
	return ctx.JSON(http.StatusOK, prog)
}

func (api *catalogApi) updateProgram(ctx echo.Context) error {
	prog, err := api.svc.GetProgram(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding program")
	}
	var data catalog.ProgramInput
	if err = bind(ctx, &data, "ProgramInput"); err != nil {
		return err
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	if prog, err = api.svc.UpdateProgram(ctx.Request().Context(), prog, data); err != nil {
		return errors.Wrap(err, "updating program")
	}
	return ctx.JSON(http.StatusOK, prog)
}

func (api *catalogApi) destroyProgram(ctx echo.Context) error {
	if err := api.svc.DeleteProgram(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting program")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *catalogApi) queryProgramCourses(ctx echo.Context) error {
	pcs, err := api.svc.ListProgramCourses(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing program courses")
	}
	return ctx.JSON(http.StatusOK, pcs)
}

func (api *catalogApi) assignCourse(ctx echo.Context) error {
	var data catalog.ProgramCourseInput
	if err := bind(ctx, &data, "ProgramCourseInput"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	pc, err := api.svc.AssignCourse(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "assigning course")
	}
	return ctx.JSON(http.StatusCreated, pc)
}

func (api *catalogApi) removeCourse(ctx echo.Context) error {
	if err := api.svc.RemoveCourse(ctx.Request().Context(), ctx.Param("id"), ctx.Param("courseID")); err != nil {
		return errors.Wrap(err, "removing course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Courses

func (api *catalogApi) queryCourses(ctx echo.Context) error {
	filter := new(catalog.CourseFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []catalog.Course{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	courses, err := api.svc.QueryCourses(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *catalogApi) createCourse(ctx echo.Context) error {
	var data catalog.CourseInput
	if err := bind(ctx, &data, "CourseInput"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	crs, err := api.svc.CreateCourse(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *catalogApi) filterOptions(ctx echo.Context) error {
	opts, err := api.svc.FilterOptions(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing filter options")
	}
	return ctx.JSON(http.StatusOK, opts)
}

func (api *catalogApi) retrieveCourse(ctx echo.Context) error {
	crs, err := api.svc.GetCourse(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *catalogApi) updateCourse(ctx echo.Context) error {
	crs, err := api.svc.GetCourse(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course")
	}
	var data catalog.CourseInput
	if err = bind(ctx, &data, "CourseInput"); err != nil {
		return err
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	if crs, err = api.svc.UpdateCourse(ctx.Request().Context(), crs, data); err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *catalogApi) destroyCourse(ctx echo.Context) error {
	if err := api.svc.DeleteCourse(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// queryCourseEnrollments lists a course's roster to admins and to its instructor.
func (api *catalogApi) queryCourseEnrollments(ctx echo.Context) error {
	crs, err := api.svc.GetCourse(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course")
	}
	acc, err := loadAccess(ctx, api.auth, nil, api.facSvc)
	if err != nil {
		return err
	}
	if !acc.isAdmin() && !crs.TaughtBy(acc.facultyID()) {
		return errHttpForbidden
	}

	filter := &ledger.EnrollmentFilter{CourseID: crs.ID, Status: ledger.EnrollmentStatus(ctx.QueryParam("status"))}
	enrs, err := api.ledgerSvc.ListEnrollments(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "listing course enrollments")
	}
	return ctx.JSON(http.StatusOK, enrs)
}
