package main

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/academia/sims/core/ledger"
	"github.com/academia/sims/core/user"
	"github.com/academia/sims/testutil"
)

func setup(t *testing.T) (*commandLine, *testutil.Env, *bytes.Buffer) {
	env := testutil.NewEnv(t)
	out := new(bytes.Buffer)
	return &commandLine{
		out:       out,
		migrate:   fakeGoose,
		usrSvc:    env.Users,
		ledgerSvc: env.Ledger,
	}, env, out
}

// fakeGoose checks arguments the way goose does without touching a database.
func fakeGoose(command string, args ...string) error {
	switch command {
	case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
	case "up-to", "down-to":
		if len(args) == 0 {
			return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
		}
		if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
			return fmt.Errorf("version must be a number (got '%s')", args[0])
		}
	case "create":
		if len(args) == 0 {
			return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
		}
	default:
		return fmt.Errorf("%q: no such command", command)
	}
	return nil
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string
	wantErr    error
	wantErrStr string
}

func (tt cliTest) check(t *testing.T, cli *commandLine) error {
	t.Helper()
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte(tt.pwd), nil }

	err := cli.run(append([]string{"admin"}, tt.args...))
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, errors.Cause(err))
	case tt.wantErrStr != "":
		require.Error(t, err)
		assert.Contains(t, err.Error(), tt.wantErrStr)
	default:
		assert.NoError(t, err)
	}
	return err
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, _ := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "course_prerequisites", "sql"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli)
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, env, _ := setup(t)
	ctx := context.Background()
	existing := testutil.CreateUser(t, env.UserRepo, "Registrar", "registrar", "registrar@sims.test", testutil.Password, nil, false)

	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no email", args: []string{"adduser", "-username", "root"}, pwd: "x", wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-username", "root", "-email", "root@sims.test"}, wantErr: errHelp},
		{name: "create admin", args: []string{"adduser", "-username", "Root", "-email", "root@sims.test", "-admin"}, pwd: "N3w-pass!"},
		{name: "email taken", args: []string{"adduser", "-username", "other", "-email", "root@sims.test"}, pwd: "N3w-pass!",
			wantErrStr: user.ErrEmailExists.Error()},
		{name: "update existing", args: []string{"adduser", "-username", "registrar", "-email", "desk@sims.test", "-admin"}, pwd: "N3w-pass!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli)
		})
	}

	root, err := env.Users.GetByUsernameOrEmail(ctx, "root")
	require.NoError(t, err)
	assert.True(t, root.IsActive)
	assert.True(t, root.IsAdmin())
	assert.NoError(t, root.CheckPassword("N3w-pass!"))

	updated, err := env.Users.GetByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.True(t, updated.IsActive)
	assert.True(t, updated.IsAdmin())
	assert.Equal(t, "desk@sims.test", updated.Email)
	assert.NoError(t, updated.CheckPassword("N3w-pass!"))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, env, _ := setup(t)
	usr := testutil.CreateUser(t, env.UserRepo, "User", "awe", "awe@test.cd", "mdr", nil, true)

	tests := []cliTest{
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, pwd: "lol", wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, pwd: "lol"},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, pwd: "lmao"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.check(t, cli); err == nil && tt.pwd != "" {
				refreshed, err := env.Users.GetByID(context.Background(), usr.ID)
				require.NoError(t, err)
				assert.NoError(t, refreshed.CheckPassword(tt.pwd))
			}
		})
	}
}

func Test_commandLine_recalculateGPA(t *testing.T) {
	cli, env, out := setup(t)
	ctx := context.Background()

	dept := env.NewDepartment(t)
	prog := env.NewProgram(t, dept.ID)
	std := env.NewStudent(t, prog.ID)
	env.NewStudent(t, prog.ID)
	fac := env.NewFaculty(t, dept.ID)
	crs := env.NewCourse(t, dept.ID, testutil.WithInstructor(fac.ID), testutil.WithCredits(4))

	enr, err := env.Ledger.Enroll(ctx, ledger.NewEnrollment{StudentID: std.ID, CourseID: crs.ID})
	require.NoError(t, err)
	_, err = env.Ledger.UpsertGrade(ctx, ledger.GradeEntry{EnrollmentID: enr.ID, FinalScore: null.Float64From(95), GraderID: fac.ID})
	require.NoError(t, err)

	tests := []cliTest{
		{name: "unknown student", args: []string{"recalcgpa", "-student", "9b0a5f2c-0000-4000-8000-000000000000"}, wantErr: ledger.ErrStudentNotFound},
		{name: "one student", args: []string{"recalcgpa", "-student", std.ID}},
		{name: "every student", args: []string{"recalcgpa"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli)
		})
	}

	assert.Contains(t, out.String(), std.ID+": gpa=4.00 credits=4")
	assert.Contains(t, out.String(), "recalculated 2 students")
}
