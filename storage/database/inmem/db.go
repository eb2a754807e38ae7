package inmemdb

import (
	"context"
	"strings"
	"sync"

	"github.com/academia/sims/core"
	"github.com/academia/sims/core/catalog"
	"github.com/academia/sims/core/faculty"
	"github.com/academia/sims/core/ledger"
	"github.com/academia/sims/core/student"
	"github.com/academia/sims/core/user"
)

type (
	// DB keeps every table in memory behind a single lock.
	// A unit of work holds the lock for its whole duration and restores the tables on failure.
	DB struct {
		mu     sync.Mutex
		tables tables
	}

	tables struct {
		users          map[string]user.User
		departments    map[string]catalog.Department
		programs       map[string]catalog.Program
		programCourses map[string]catalog.ProgramCourse
		courses        map[string]catalog.Course
		students       map[string]student.Student
		faculty        map[string]faculty.Faculty
		enrollments    map[string]ledger.Enrollment
		grades         map[string]ledger.Grade
	}

	txKey struct{}
)

var _ core.Transactor = (*DB)(nil) // interface compliance check

func Open() *DB {
	return &DB{tables: tables{
		users:          make(map[string]user.User),
		departments:    make(map[string]catalog.Department),
		programs:       make(map[string]catalog.Program),
		programCourses: make(map[string]catalog.ProgramCourse),
		courses:        make(map[string]catalog.Course),
		students:       make(map[string]student.Student),
		faculty:        make(map[string]faculty.Faculty),
		enrollments:    make(map[string]ledger.Enrollment),
		grades:         make(map[string]ledger.Grade),
	}}
}

func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if db.inTx(ctx) {
		return fn(ctx)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	snap := db.tables.clone()
	defer func() {
		if p := recover(); p != nil {
			db.tables = snap
			panic(p)
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, db)); err != nil {
		db.tables = snap
	}
	return err
}

func (db *DB) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*DB)
	return owner == db
}

// lock acquires the table lock unless ctx already runs in a unit of work of db.
func (db *DB) lock(ctx context.Context) func() {
	if db.inTx(ctx) {
		return func() {}
	}
	db.mu.Lock()
	return db.mu.Unlock
}

func (t tables) clone() tables {
	return tables{
		users:          cloneMap(t.users),
		departments:    cloneMap(t.departments),
		programs:       cloneMap(t.programs),
		programCourses: cloneMap(t.programCourses),
		courses:        cloneMap(t.courses),
		students:       cloneMap(t.students),
		faculty:        cloneMap(t.faculty),
		enrollments:    cloneMap(t.enrollments),
		grades:         cloneMap(t.grades),
	}
}

func cloneMap[V any](m map[string]V) map[string]V {
	c := make(map[string]V, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// contains does a case-insensitive substring match of search in any of vals.
func contains(search string, vals ...string) bool {
	search = strings.ToLower(search)
	for _, v := range vals {
		if strings.Contains(strings.ToLower(v), search) {
			return true
		}
	}
	return false
}
