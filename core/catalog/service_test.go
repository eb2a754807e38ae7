package catalog_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/academia/sims/core"
	"github.com/academia/sims/core/catalog"
	"github.com/academia/sims/core/ledger"
	"github.com/academia/sims/testutil"
)

var ctx = context.Background()

func requireFieldErr(t *testing.T, err error, wantErr error, field string) {
	t.Helper()
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Equal(t, wantErr, verr.Err)
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, field, verr.Fields[0].Field)
}

func TestService_Departments(t *testing.T) {
	env := testutil.NewEnv(t)

	cs, err := env.Catalog.CreateDepartment(ctx, catalog.DepartmentInput{Code: "CS", Name: "Computer Science"})
	require.NoError(t, err)
	math, err := env.Catalog.CreateDepartment(ctx, catalog.DepartmentInput{Code: "MATH", Name: "Mathematics", Location: null.StringFrom("Hall B")})
	require.NoError(t, err)

	_, err = env.Catalog.CreateDepartment(ctx, catalog.DepartmentInput{Code: "CS", Name: "Other"})
	requireFieldErr(t, err, catalog.ErrDepartmentCodeExists, "code")

	depts, err := env.Catalog.QueryDepartments(ctx, " math ")
	require.NoError(t, err)
	require.Len(t, depts, 1)
	assert.Equal(t, math.ID, depts[0].ID)

	_, err = env.Catalog.UpdateDepartment(ctx, math, catalog.DepartmentInput{Code: "CS", Name: "Mathematics"})
	requireFieldErr(t, err, catalog.ErrDepartmentCodeExists, "code")

	cs, err = env.Catalog.UpdateDepartment(ctx, cs, catalog.DepartmentInput{Code: "CSC", Name: "Computing"})
	require.NoError(t, err)
	assert.Equal(t, "CSC", cs.Code)

	n, err := env.Catalog.CountDepartments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestService_DeleteDepartment(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(t *testing.T, env *testutil.Env, deptID string)
		dependent string
	}{
		{name: "unused"},
		{
			name:      "with courses",
			setup:     func(t *testing.T, env *testutil.Env, deptID string) { env.NewCourse(t, deptID) },
			dependent: "courses",
		},
		{
			name:      "with programs",
			setup:     func(t *testing.T, env *testutil.Env, deptID string) { env.NewProgram(t, deptID) },
			dependent: "programs",
		},
		{
			name:      "with faculty",
			setup:     func(t *testing.T, env *testutil.Env, deptID string) { env.NewFaculty(t, deptID) },
			dependent: "faculty members",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testutil.NewEnv(t)
			dept := env.NewDepartment(t)
			if tt.setup != nil {
				tt.setup(t, env, dept.ID)
			}

			err := env.Catalog.DeleteDepartment(ctx, dept.ID)
			if tt.dependent == "" {
				require.NoError(t, err)
				_, err = env.Catalog.GetDepartment(ctx, dept.ID)
				assert.Equal(t, catalog.ErrDepartmentNotFound, errors.Cause(err))
				return
			}
			var derr *core.DependentRecordsError
			require.True(t, errors.As(err, &derr), "got %v", err)
			assert.Equal(t, tt.dependent, derr.Dependent)
			assert.Equal(t, 1, derr.Count)
			_, err = env.Catalog.GetDepartment(ctx, dept.ID)
			assert.NoError(t, err)
		})
	}

	t.Run("unknown", func(t *testing.T) {
		env := testutil.NewEnv(t)
		err := env.Catalog.DeleteDepartment(ctx, "00000000-0000-0000-0000-000000000000")
		assert.Equal(t, catalog.ErrDepartmentNotFound, errors.Cause(err))
	})
}

func TestService_Programs(t *testing.T) {
	env := testutil.NewEnv(t)
	dept := env.NewDepartment(t)

	prog, err := env.Catalog.CreateProgram(ctx, catalog.ProgramInput{
		Code:            "BSC-CS",
		Name:            "BSc Computer Science",
		DurationYears:   3,
		RequiredCredits: 180,
		DepartmentID:    dept.ID,
	})
	require.NoError(t, err)
	assert.True(t, prog.IsActive)

	_, err = env.Catalog.CreateProgram(ctx, catalog.ProgramInput{Code: "BSC-CS", Name: "Dupe", DurationYears: 3, DepartmentID: dept.ID})
	requireFieldErr(t, err, catalog.ErrProgramCodeExists, "code")

	_, err = env.Catalog.CreateProgram(ctx, catalog.ProgramInput{Code: "X", Name: "X", DurationYears: 3, DepartmentID: "00000000-0000-0000-0000-000000000000"})
	requireFieldErr(t, err, catalog.ErrDepartmentNotFound, "department_id")

	inactive := false
	prog, err = env.Catalog.UpdateProgram(ctx, prog, catalog.ProgramInput{
		Code:          "BSC-CS",
		Name:          "BSc Computing",
		DurationYears: 4,
		DepartmentID:  dept.ID,
		IsActive:      &inactive,
	})
	require.NoError(t, err)
	assert.False(t, prog.IsActive)
	assert.Equal(t, 4, prog.DurationYears)

	progs, err := env.Catalog.QueryPrograms(ctx, &catalog.ProgramFilter{IsActive: &inactive})
	require.NoError(t, err)
	require.Len(t, progs, 1)
	assert.Equal(t, prog.ID, progs[0].ID)
}

func TestService_DeleteProgram(t *testing.T) {
	env := testutil.NewEnv(t)
	dept := env.NewDepartment(t)
	taken := env.NewProgram(t, dept.ID)
	free := env.NewProgram(t, dept.ID)
	crs := env.NewCourse(t, dept.ID)
	env.NewStudent(t, taken.ID)

	_, err := env.Catalog.AssignCourse(ctx, free.ID, catalog.ProgramCourseInput{CourseID: crs.ID})
	require.NoError(t, err)

	err = env.Catalog.DeleteProgram(ctx, taken.ID)
	var derr *core.DependentRecordsError
	require.True(t, errors.As(err, &derr), "got %v", err)
	assert.Equal(t, "students", derr.Dependent)

	require.NoError(t, env.Catalog.DeleteProgram(ctx, free.ID))
	_, err = env.Catalog.ListProgramCourses(ctx, free.ID)
	assert.Equal(t, catalog.ErrProgramNotFound, errors.Cause(err))

	// the course itself is untouched
	_, err = env.Catalog.GetCourse(ctx, crs.ID)
	assert.NoError(t, err)
}

func TestService_ProgramCourses(t *testing.T) {
	env := testutil.NewEnv(t)
	dept := env.NewDepartment(t)
	prog := env.NewProgram(t, dept.ID)
	core1 := env.NewCourse(t, dept.ID, testutil.WithCredits(4))
	elective := env.NewCourse(t, dept.ID)

	pc, err := env.Catalog.AssignCourse(ctx, prog.ID, catalog.ProgramCourseInput{CourseID: core1.ID, SemesterRecommended: null.IntFrom(1)})
	require.NoError(t, err)
	assert.True(t, pc.IsRequired)

	optional := false
	_, err = env.Catalog.AssignCourse(ctx, prog.ID, catalog.ProgramCourseInput{CourseID: elective.ID, IsRequired: &optional})
	require.NoError(t, err)

	_, err = env.Catalog.AssignCourse(ctx, prog.ID, catalog.ProgramCourseInput{CourseID: core1.ID})
	requireFieldErr(t, err, catalog.ErrProgramCourseExists, "course_id")

	_, err = env.Catalog.AssignCourse(ctx, prog.ID, catalog.ProgramCourseInput{CourseID: "00000000-0000-0000-0000-000000000000"})
	requireFieldErr(t, err, catalog.ErrCourseNotFound, "course_id")

	pcs, err := env.Catalog.ListProgramCourses(ctx, prog.ID)
	require.NoError(t, err)
	require.Len(t, pcs, 2)
	assert.Equal(t, core1.Code, pcs[0].CourseCode)
	assert.Equal(t, 4, pcs[0].Credits)
	assert.False(t, pcs[1].IsRequired)

	require.NoError(t, env.Catalog.RemoveCourse(ctx, prog.ID, elective.ID))
	err = env.Catalog.RemoveCourse(ctx, prog.ID, elective.ID)
	assert.Equal(t, catalog.ErrProgramCourseNotFound, errors.Cause(err))
}

func TestService_Courses(t *testing.T) {
	env := testutil.NewEnv(t)
	dept := env.NewDepartment(t)
	fac := env.NewFaculty(t, dept.ID)

	in := catalog.CourseInput{
		Code:         "CS101",
		Name:         "Intro to Programming",
		Credits:      4,
		Capacity:     30,
		DepartmentID: dept.ID,
		InstructorID: null.StringFrom(fac.ID),
		Term:         "Fall",
		Year:         2024,
	}
	crs, err := env.Catalog.CreateCourse(ctx, in)
	require.NoError(t, err)
	assert.True(t, crs.IsActive)
	assert.True(t, crs.TaughtBy(fac.ID))
	assert.False(t, crs.TaughtBy(""))

	t.Run("invalid", func(t *testing.T) {
		tests := []struct {
			name    string
			mutate  func(in *catalog.CourseInput)
			wantErr error
			field   string
		}{
			{name: "code taken", mutate: func(in *catalog.CourseInput) {}, wantErr: catalog.ErrCourseCodeExists, field: "code"},
			{
				name:    "unknown department",
				mutate:  func(in *catalog.CourseInput) { in.Code, in.DepartmentID = "CS102", "00000000-0000-0000-0000-000000000000" },
				wantErr: catalog.ErrDepartmentNotFound,
				field:   "department_id",
			},
			{
				name:    "unknown instructor",
				mutate:  func(in *catalog.CourseInput) { in.Code, in.InstructorID = "CS103", null.StringFrom("00000000-0000-0000-0000-000000000000") },
				wantErr: catalog.ErrInstructorNotFound,
				field:   "instructor_id",
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				bad := in
				tt.mutate(&bad)
				_, err := env.Catalog.CreateCourse(ctx, bad)
				requireFieldErr(t, err, tt.wantErr, tt.field)
			})
		}
	})

	env.NewCourse(t, dept.ID, testutil.WithTerm("Spring", 2025))
	env.NewCourse(t, dept.ID, testutil.WithTerm("Fall", 2023), testutil.Inactive())

	t.Run("query", func(t *testing.T) {
		active := true
		tests := []struct {
			name   string
			filter *catalog.CourseFilter
			want   int
		}{
			{name: "all", want: 3},
			{name: "active", filter: &catalog.CourseFilter{IsActive: &active}, want: 2},
			{name: "instructor", filter: &catalog.CourseFilter{InstructorID: fac.ID}, want: 1},
			{name: "term", filter: &catalog.CourseFilter{Term: "Fall"}, want: 2},
			{name: "year", filter: &catalog.CourseFilter{Year: 2025}, want: 1},
			{name: "search", filter: &catalog.CourseFilter{Search: "programming"}, want: 1},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				crss, err := env.Catalog.QueryCourses(ctx, tt.filter, nil)
				require.NoError(t, err)
				assert.Len(t, crss, tt.want)
			})
		}
	})

	t.Run("filter options", func(t *testing.T) {
		opts, err := env.Catalog.FilterOptions(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Fall", "Spring"}, opts.Terms)
		assert.Equal(t, []int{2025, 2024, 2023}, opts.Years)
	})

	t.Run("update", func(t *testing.T) {
		upd := testutil.CourseInputOf(crs)
		upd.Capacity = 0
		upd.InstructorID = null.String{}
		got, err := env.Catalog.UpdateCourse(ctx, crs, upd)
		require.NoError(t, err)
		assert.False(t, got.HasCapacityLimit())
		assert.False(t, got.InstructorID.Valid)
	})
}

func TestService_DeleteCourse(t *testing.T) {
	env := testutil.NewEnv(t)
	dept := env.NewDepartment(t)
	prog := env.NewProgram(t, dept.ID)
	std := env.NewStudent(t, prog.ID)
	crs := env.NewCourse(t, dept.ID)
	unused := env.NewCourse(t, dept.ID)

	enr, err := env.Ledger.Enroll(ctx, ledger.NewEnrollment{StudentID: std.ID, CourseID: crs.ID})
	require.NoError(t, err)
	_, err = env.Ledger.UpdateEnrollmentStatus(ctx, enr.ID, ledger.StatusDropped)
	require.NoError(t, err)

	// dropped enrollments still reference the course
	err = env.Catalog.DeleteCourse(ctx, crs.ID)
	assert.True(t, errors.Is(err, core.ErrDependentRecordsExist))

	require.NoError(t, env.Catalog.DeleteCourse(ctx, unused.ID))
	_, err = env.Catalog.GetCourse(ctx, unused.ID)
	assert.Equal(t, catalog.ErrCourseNotFound, errors.Cause(err))
}
