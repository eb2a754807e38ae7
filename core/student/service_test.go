package student_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/academia/sims/core"
	"github.com/academia/sims/core/student"
	"github.com/academia/sims/core/user"
	"github.com/academia/sims/testutil"
)

var ctx = context.Background()

func newStudent(code, uname, programID string) student.NewStudent {
	return student.NewStudent{
		Account: user.NewUser{
			Name:            "Ada " + code,
			Username:        uname,
			Email:           uname + "@sims.test",
			Password:        testutil.Password,
			PasswordConfirm: testutil.Password,
			Roles:           user.StudentRoles,
		},
		Code:      code,
		ProgramID: programID,
	}
}

func TestService_Create(t *testing.T) {
	env := testutil.NewEnv(t)
	dept := env.NewDepartment(t)
	prog := env.NewProgram(t, dept.ID)

	std, err := env.Students.Create(ctx, newStudent("S-100", "ada100", prog.ID))
	require.NoError(t, err)
	assert.NotEmpty(t, std.ID)
	assert.Equal(t, "Ada S-100", std.FullName)
	assert.Equal(t, student.StatusActive, std.Status)
	assert.Equal(t, null.StringFrom(dept.ID), std.DepartmentID)
	assert.Equal(t, 0.0, std.GPA)
	assert.Equal(t, 0, std.TotalCredits)

	usr := env.UserOf(t, std.UserID)
	assert.True(t, usr.IsStudent())
	assert.NoError(t, usr.CheckPassword(testutil.Password))

	sent := env.Mail.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "ada100@sims.test", sent[0].To[0].Address)

	got, err := env.Students.GetByUserID(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, std.ID, got.ID)

	tests := []struct {
		name  string
		ns    student.NewStudent
		field string
	}{
		{name: "code taken", ns: newStudent("S-100", "grace", prog.ID), field: "code"},
		{name: "username taken", ns: newStudent("S-101", "ada100", prog.ID), field: "username"},
		{name: "unknown program", ns: newStudent("S-102", "linus", "00000000-0000-0000-0000-000000000000"), field: "program_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Students.Create(ctx, tt.ns)
			var verr *core.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			require.Len(t, verr.Fields, 1)
			assert.Equal(t, tt.field, verr.Fields[0].Field)
		})
	}

	t.Run("rolled back account", func(t *testing.T) {
		_, err := env.Users.GetByUsernameOrEmail(ctx, "grace")
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
		n, err := env.Students.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestService_Query(t *testing.T) {
	env := testutil.NewEnv(t)
	dept := env.NewDepartment(t)
	p1 := env.NewProgram(t, dept.ID)
	p2 := env.NewProgram(t, dept.ID)
	s1 := env.NewStudent(t, p1.ID)
	s2 := env.NewStudent(t, p2.ID)
	s3 := env.NewStudent(t, p2.ID)

	_, err := env.Students.Update(ctx, s3, student.UpdateStudent{
		FullName:  "Grace Hopper",
		Code:      s3.Code,
		ProgramID: p2.ID,
		Status:    student.StatusGraduated,
	})
	require.NoError(t, err)

	ids := func(stds []student.Student) []string {
		out := make([]string, 0, len(stds))
		for _, s := range stds {
			out = append(out, s.ID)
		}
		return out
	}

	tests := []struct {
		name     string
		filter   *student.QueryFilter
		ordering []core.DBOrdering
		want     []string
	}{
		{name: "all", want: []string{s1.ID, s2.ID, s3.ID}},
		{name: "program", filter: &student.QueryFilter{ProgramID: p2.ID}, want: []string{s2.ID, s3.ID}},
		{name: "status", filter: &student.QueryFilter{Status: student.StatusGraduated}, want: []string{s3.ID}},
		{name: "search", filter: &student.QueryFilter{Search: "hopper"}, want: []string{s3.ID}},
		{name: "code desc", ordering: []core.DBOrdering{{Field: "code"}}, want: []string{s3.ID, s2.ID, s1.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stds, err := env.Students.Query(ctx, tt.filter, tt.ordering)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(stds))
		})
	}
}

func TestService_UpdateKeepsStanding(t *testing.T) {
	env := testutil.NewEnv(t)
	dept := env.NewDepartment(t)
	prog := env.NewProgram(t, dept.ID)
	fac := env.NewFaculty(t, dept.ID)
	std := env.NewStudent(t, prog.ID)
	other := env.NewStudent(t, prog.ID)

	crs := env.NewCourse(t, dept.ID, testutil.WithInstructor(fac.ID))
	enr, err := env.Ledger.Enroll(ctx, ledgerEnrollment(std.ID, crs.ID))
	require.NoError(t, err)
	_, err = env.Ledger.UpsertGrade(ctx, gradeEntry(enr.ID, fac.ID, 91))
	require.NoError(t, err)

	std, err = env.Students.Get(ctx, std.ID)
	require.NoError(t, err)
	updated, err := env.Students.Update(ctx, std, student.UpdateStudent{
		FullName:  "Renamed",
		Code:      std.Code,
		ProgramID: prog.ID,
		Status:    student.StatusSuspended,
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.FullName)
	assert.Equal(t, 4.0, updated.GPA)
	assert.Equal(t, 3, updated.TotalCredits)

	_, err = env.Students.Update(ctx, updated, student.UpdateStudent{
		FullName:  "Renamed",
		Code:      other.Code,
		ProgramID: prog.ID,
		Status:    student.StatusActive,
	})
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, student.ErrCodeExists, verr.Err)
}

func TestService_Delete(t *testing.T) {
	env := testutil.NewEnv(t)
	dept := env.NewDepartment(t)
	prog := env.NewProgram(t, dept.ID)
	std := env.NewStudent(t, prog.ID)

	err := env.Students.Delete(ctx, "00000000-0000-0000-0000-000000000000", false)
	assert.Equal(t, student.ErrNotFound, errors.Cause(err))

	require.NoError(t, env.Students.Delete(ctx, std.ID, false))
	_, err = env.Students.Get(ctx, std.ID)
	assert.Equal(t, student.ErrNotFound, errors.Cause(err))
	_, err = env.Users.GetByID(ctx, std.UserID)
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
}
