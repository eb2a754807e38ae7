// Package testutil wires the services over the in-memory store and builds fixtures for tests.
package testutil

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/academia/sims/core"
	"github.com/academia/sims/core/catalog"
	"github.com/academia/sims/core/dashboard"
	"github.com/academia/sims/core/faculty"
	"github.com/academia/sims/core/ledger"
	"github.com/academia/sims/core/student"
	"github.com/academia/sims/core/transcript"
	"github.com/academia/sims/core/user"
	"github.com/academia/sims/services/email"
	"github.com/academia/sims/services/logger"
	"github.com/academia/sims/services/transcript"
	"github.com/academia/sims/storage/database"
	"github.com/academia/sims/storage/database/inmem"
	"github.com/academia/sims/storage/database/sqlx"
)

const Password = "Sup3r-s3cret"

// DatabaseURLEnv names the variable holding the PostgreSQL URL of the integration tests.
const DatabaseURLEnv = "TEST_DATABASE_URL"

// Store is one storage backend: a Transactor and the repositories sharing it.
type Store struct {
	Tx       core.Transactor
	Users    user.Repository
	Catalog  catalog.Repository
	Students student.Repository
	Faculty  faculty.Repository
	Ledger   ledger.Repository
}

func InmemStore() Store {
	db := inmemdb.Open()
	return Store{
		Tx:       db,
		Users:    inmemdb.NewUserRepository(db),
		Catalog:  inmemdb.NewCatalogRepository(db),
		Students: inmemdb.NewStudentRepository(db),
		Faculty:  inmemdb.NewFacultyRepository(db),
		Ledger:   inmemdb.NewLedgerRepository(db),
	}
}

// PostgresStore migrates the database at TEST_DATABASE_URL and returns a Store over it.
// The test is skipped when the variable is unset.
func PostgresStore(t *testing.T) Store {
	t.Helper()

	dsn := os.Getenv(DatabaseURLEnv)
	if dsn == "" {
		t.Skipf("%s is not set", DatabaseURLEnv)
	}
	conn, err := database.OpenURL(dsn)
	if err != nil {
		t.Fatalf("PostgresStore() failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	if err = database.Migrate(conn, "up"); err != nil {
		t.Fatalf("PostgresStore() failed: %v", err)
	}

	db := sqlxrepos.New(conn)
	return Store{
		Tx:       db,
		Users:    sqlxrepos.NewUserRepository(db),
		Catalog:  sqlxrepos.NewCatalogRepository(db),
		Students: sqlxrepos.NewStudentRepository(db),
		Faculty:  sqlxrepos.NewFacultyRepository(db),
		Ledger:   sqlxrepos.NewLedgerRepository(db),
	}
}

// Env holds a complete set of services sharing one store.
type Env struct {
	Conf   *core.Config
	Logger core.Logger
	Mail   *emailsvc.ConsoleServiceMock

	UserRepo    user.Repository
	LedgerRepo  ledger.Repository
	Users       *user.Service
	Catalog     *catalog.Service
	Students    *student.Service
	Faculty     *faculty.Service
	Ledger      *ledger.Service
	Dashboards  *dashboard.Service
	Transcripts *transcript.Service

	run string // keeps codes unique across runs on a shared database
	seq int
}

func NewConfig() *core.Config {
	conf := core.NewConfig()
	conf.Env = "TEST"
	conf.TestMode = true
	conf.Debug = true
	conf.Transcript.LegacyDir = ""
	return conf
}

// NewEnv builds an Env over a fresh in-memory store.
// opts may adjust the configuration before the services are created.
func NewEnv(t *testing.T, opts ...func(conf *core.Config)) *Env {
	t.Helper()
	return NewEnvWith(t, InmemStore(), opts...)
}

// NewPostgresEnv builds an Env over TEST_DATABASE_URL, or skips the test.
func NewPostgresEnv(t *testing.T, opts ...func(conf *core.Config)) *Env {
	t.Helper()
	env := NewEnvWith(t, PostgresStore(t), opts...)
	env.run = strings.ToUpper(uuid.New().String()[:6])
	return env
}

func NewEnvWith(t *testing.T, store Store, opts ...func(conf *core.Config)) *Env {
	t.Helper()

	conf := NewConfig()
	for _, opt := range opts {
		opt(conf)
	}
	logger := logsvc.NewRollbarLogger(logsvc.NewStdLogger(io.Discard, "TEST"), conf)
	mail := emailsvc.NewConsoleServiceMock(conf, logger)

	env := &Env{
		Conf:       conf,
		Logger:     logger,
		Mail:       mail,
		UserRepo:   store.Users,
		LedgerRepo: store.Ledger,
	}
	env.Users = user.NewService(store.Users, mail, conf)
	env.Catalog = catalog.NewService(store.Tx, store.Catalog)
	env.Students = student.NewService(store.Tx, store.Students, env.Catalog, env.Users, mail, conf)
	env.Faculty = faculty.NewService(store.Tx, store.Faculty, env.Catalog, env.Users, mail, conf)
	env.Ledger = ledger.NewService(store.Tx, store.Ledger, conf)
	env.Dashboards = dashboard.NewService(env.Catalog, env.Students, env.Faculty, env.Ledger, conf)
	env.Transcripts = transcript.NewService(env.Students, env.Ledger, transcriptsvc.NewLegacySource(conf.Transcript.LegacyDir, logger))
	return env
}

func (env *Env) next(prefix string) string {
	env.seq++
	return fmt.Sprintf("%s%s%03d", prefix, env.run, env.seq)
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func (env *Env) NewAdmin(t *testing.T) user.User {
	t.Helper()
	uname := strings.ToLower(env.next("admin"))
	return CreateUser(t, env.UserRepo, "Admin "+uname, uname, uname+"@sims.test", Password, []string{user.RoleAdmin}, true)
}

func (env *Env) NewDepartment(t *testing.T) catalog.Department {
	t.Helper()
	code := env.next("DEP")
	dept, err := env.Catalog.CreateDepartment(context.Background(), catalog.DepartmentInput{Code: code, Name: "Department " + code})
	if err != nil {
		t.Fatalf("NewDepartment() failed: %v", err)
	}
	return dept
}

func (env *Env) NewProgram(t *testing.T, deptID string) catalog.Program {
	t.Helper()
	code := env.next("PRG")
	prog, err := env.Catalog.CreateProgram(context.Background(), catalog.ProgramInput{
		Code:            code,
		Name:            "Program " + code,
		DurationYears:   4,
		RequiredCredits: 120,
		DepartmentID:    deptID,
	})
	if err != nil {
		t.Fatalf("NewProgram() failed: %v", err)
	}
	return prog
}

// CourseOpts adjusts a course before it is created.
type CourseOpts func(in *catalog.CourseInput)

func WithCredits(credits int) CourseOpts {
	return func(in *catalog.CourseInput) { in.Credits = credits }
}

func WithCapacity(capacity int) CourseOpts {
	return func(in *catalog.CourseInput) { in.Capacity = capacity }
}

func WithInstructor(facultyID string) CourseOpts {
	return func(in *catalog.CourseInput) { in.InstructorID = null.StringFrom(facultyID) }
}

func WithTerm(term string, year int) CourseOpts {
	return func(in *catalog.CourseInput) { in.Term, in.Year = term, year }
}

func Inactive() CourseOpts {
	return func(in *catalog.CourseInput) {
		active := false
		in.IsActive = &active
	}
}

func (env *Env) NewCourse(t *testing.T, deptID string, opts ...CourseOpts) catalog.Course {
	t.Helper()
	code := env.next("CRS")
	in := catalog.CourseInput{
		Code:         code,
		Name:         "Course " + code,
		Credits:      3,
		DepartmentID: deptID,
		Term:         "Fall",
		Year:         2024,
	}
	for _, opt := range opts {
		opt(&in)
	}
	crs, err := env.Catalog.CreateCourse(context.Background(), in)
	if err != nil {
		t.Fatalf("NewCourse() failed: %v", err)
	}
	return crs
}

func newAccount(uname string) user.NewUser {
	return user.NewUser{
		Name:            "User " + uname,
		Username:        uname,
		Email:           uname + "@sims.test",
		Password:        Password,
		PasswordConfirm: Password,
	}
}

func (env *Env) NewFaculty(t *testing.T, deptID string) faculty.Faculty {
	t.Helper()
	code := env.next("FAC")
	acc := newAccount(strings.ToLower(code))
	acc.Roles = user.FacultyRoles
	nf := faculty.NewFaculty{Account: acc}
	nf.EmployeeCode = code
	nf.DepartmentID = null.StringFrom(deptID)
	fac, err := env.Faculty.Create(context.Background(), nf)
	if err != nil {
		t.Fatalf("NewFaculty() failed: %v", err)
	}
	return fac
}

func (env *Env) NewStudent(t *testing.T, programID string) student.Student {
	t.Helper()
	code := env.next("STU")
	acc := newAccount(strings.ToLower(code))
	acc.Roles = user.StudentRoles
	std, err := env.Students.Create(context.Background(), student.NewStudent{
		Account:       acc,
		Code:          code,
		ProgramID:     programID,
		AdmissionDate: time.Date(2023, time.September, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("NewStudent() failed: %v", err)
	}
	return std
}

// UserOf returns the login account behind a student or faculty record.
func (env *Env) UserOf(t *testing.T, userID string) user.User {
	t.Helper()
	usr, err := env.Users.GetByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("UserOf() failed: %v", err)
	}
	return usr
}

// CourseInputOf returns the input that would recreate crs, for update tests.
func CourseInputOf(crs catalog.Course) catalog.CourseInput {
	active := crs.IsActive
	return catalog.CourseInput{
		Code:         crs.Code,
		Name:         crs.Name,
		Description:  crs.Description,
		Credits:      crs.Credits,
		Capacity:     crs.Capacity,
		DepartmentID: crs.DepartmentID,
		InstructorID: crs.InstructorID,
		Term:         crs.Term,
		Year:         crs.Year,
		Schedule:     crs.Schedule,
		Room:         crs.Room,
		IsActive:     &active,
	}
}
