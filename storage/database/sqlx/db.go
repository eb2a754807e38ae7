// Package sqlxrepos implements the repositories over PostgreSQL with sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/academia/sims/core"
	"github.com/academia/sims/core/catalog"
	"github.com/academia/sims/core/faculty"
	"github.com/academia/sims/core/ledger"
	"github.com/academia/sims/core/student"
	"github.com/academia/sims/core/user"
)

type (
	// DB runs statements on the transaction carried by the context, if any, or on the pool.
	DB struct {
		conn *sqlx.DB
	}

	txKey struct{}
)

var _ core.Transactor = (*DB)(nil) // interface compliance check

// constraint name -> domain error
var constraintErrors = map[string]error{
	"user_username_key":                  user.ErrUsernameExists,
	"user_email_key":                     user.ErrEmailExists,
	"department_code_key":                catalog.ErrDepartmentCodeExists,
	"program_code_key":                   catalog.ErrProgramCodeExists,
	"program_department_id_fkey":         catalog.ErrDepartmentNotFound,
	"program_course_key":                 catalog.ErrProgramCourseExists,
	"program_course_course_id_fkey":      catalog.ErrCourseNotFound,
	"course_code_key":                    catalog.ErrCourseCodeExists,
	"course_department_id_fkey":          catalog.ErrDepartmentNotFound,
	"course_instructor_id_fkey":          catalog.ErrInstructorNotFound,
	"student_code_key":                   student.ErrCodeExists,
	"student_program_id_fkey":            catalog.ErrProgramNotFound,
	"faculty_employee_code_key":          faculty.ErrEmployeeCodeExists,
	"enrollment_student_course_term_key": ledger.ErrDuplicateEnrollment,
	"enrollment_student_id_fkey":         ledger.ErrStudentNotFound,
	"enrollment_course_id_fkey":          ledger.ErrCourseNotFound,
	"grade_enrollment_key":               core.ErrConcurrentModification,
	"grade_enrollment_id_fkey":           ledger.ErrEnrollmentNotFound,
}

func New(conn *sqlx.DB) *DB {
	return &DB{conn: conn}
}

// WithinTx runs fn in a transaction, committed when fn succeeds and rolled back otherwise.
// Calls nested inside an open transaction join it.
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return core.NewPersistenceError("beginning transaction", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err = tx.Commit(); err != nil {
		return db.fail("committing transaction", err, nil)
	}
	return nil
}

func (db *DB) ext(ctx context.Context) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db.conn
}

func (db *DB) get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return sqlx.GetContext(ctx, db.ext(ctx), dest, db.conn.Rebind(query), args...)
}

func (db *DB) selectAll(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return sqlx.SelectContext(ctx, db.ext(ctx), dest, db.conn.Rebind(query), args...)
}

func (db *DB) exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	res, err := db.ext(ctx).ExecContext(ctx, db.conn.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (db *DB) namedExec(ctx context.Context, query string, arg interface{}) error {
	_, err := sqlx.NamedExecContext(ctx, db.ext(ctx), query, arg)
	return err
}

func (db *DB) count(ctx context.Context, query string, args ...interface{}) (int, error) {
	var n int
	if err := db.get(ctx, &n, query, args...); err != nil {
		return 0, db.fail("counting", err, nil)
	}
	return n, nil
}

// fail translates a driver error into the domain error it stands for: notFound for a missing
// row or a malformed ID, the error mapped to a violated constraint, or else a
// core.PersistenceError.
func (db *DB) fail(op string, err error, notFound error) error {
	if errors.Is(err, sql.ErrNoRows) && notFound != nil {
		return notFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "unique_violation", "foreign_key_violation":
			if domainErr, ok := constraintErrors[pqErr.Constraint]; ok {
				return domainErr
			}
		case "invalid_text_representation":
			if notFound != nil {
				return notFound
			}
		case "serialization_failure", "deadlock_detected":
			return core.ErrConcurrentModification
		}
	}
	return core.NewPersistenceError(op, err)
}

// filters accumulates AND-ed conditions with ? placeholders.
type filters struct {
	conds []string
	args  []interface{}
}

func (f *filters) add(cond string, args ...interface{}) {
	f.conds = append(f.conds, cond)
	f.args = append(f.args, args...)
}

func (f *filters) search(term string, cols ...string) {
	if term == "" {
		return
	}
	pattern := "%" + escapeLike(term) + "%"
	ors := make([]string, 0, len(cols))
	for _, col := range cols {
		ors = append(ors, col+" ILIKE ?")
		f.args = append(f.args, pattern)
	}
	f.conds = append(f.conds, "("+strings.Join(ors, " OR ")+")")
}

func (f *filters) where() string {
	if len(f.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.conds, " AND ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// orderBy renders the ordering on known columns only; unknown fields are ignored.
func orderBy(ordering []core.DBOrdering, columns map[string]string, fallback string) string {
	parts := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		if col, ok := columns[ord.Field]; ok {
			parts = append(parts, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	parts = append(parts, fallback)
	return " ORDER BY " + strings.Join(parts, ", ")
}
