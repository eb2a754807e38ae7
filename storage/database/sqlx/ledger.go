package sqlxrepos

import (
	"context"

	"github.com/google/uuid"

	"github.com/academia/sims/core"
	"github.com/academia/sims/core/catalog"
	"github.com/academia/sims/core/ledger"
	"github.com/academia/sims/core/student"
)

type ledgerRepository struct {
	db *DB
}

var _ ledger.Repository = (*ledgerRepository)(nil) // interface compliance check

func NewLedgerRepository(db *DB) *ledgerRepository {
	return &ledgerRepository{db: db}
}

// Lock* take a row lock held until the enclosing transaction ends.

func (repo *ledgerRepository) LockStudent(ctx context.Context, id string) (student.Student, error) {
	var std student.Student
	if err := repo.db.get(ctx, &std, `SELECT `+studentColumns+` FROM student WHERE id = ? FOR UPDATE`, id); err != nil {
		return student.Student{}, repo.db.fail("locking student", err, ledger.ErrStudentNotFound)
	}
	return std, nil
}

func (repo *ledgerRepository) UpdateStudentStanding(ctx context.Context, st ledger.Standing) error {
	n, err := repo.db.exec(ctx, `UPDATE student SET gpa = ?, total_credits = ? WHERE id = ?`, st.GPA, st.TotalCredits, st.StudentID)
	if err != nil {
		return repo.db.fail("updating student standing", err, ledger.ErrStudentNotFound)
	}
	if n == 0 {
		return ledger.ErrStudentNotFound
	}
	return nil
}

func (repo *ledgerRepository) StudentIDs(ctx context.Context) ([]string, error) {
	ids := make([]string, 0)
	if err := repo.db.selectAll(ctx, &ids, `SELECT id FROM student ORDER BY id`); err != nil {
		return nil, repo.db.fail("listing student ids", err, nil)
	}
	return ids, nil
}

func (repo *ledgerRepository) LockCourse(ctx context.Context, id string) (catalog.Course, error) {
	var crs catalog.Course
	if err := repo.db.get(ctx, &crs, `SELECT `+courseColumns+` FROM course WHERE id = ? FOR UPDATE`, id); err != nil {
		return catalog.Course{}, repo.db.fail("locking course", err, ledger.ErrCourseNotFound)
	}
	return crs, nil
}

func (repo *ledgerRepository) GetCourse(ctx context.Context, id string) (catalog.Course, error) {
	var crs catalog.Course
	if err := repo.db.get(ctx, &crs, `SELECT `+courseColumns+` FROM course WHERE id = ?`, id); err != nil {
		return catalog.Course{}, repo.db.fail("getting course", err, ledger.ErrCourseNotFound)
	}
	return crs, nil
}

func (repo *ledgerRepository) ProgramCourses(ctx context.Context, programID string) ([]catalog.Course, error) {
	courses := make([]catalog.Course, 0)
	err := repo.db.selectAll(ctx, &courses, `
		SELECT c.id, c.code, c.name, c.description, c.credits, c.capacity, c.department_id, c.instructor_id,
			c.term, c.year, c.schedule, c.room, c.is_active, c.created_at
		FROM program_course pc
		JOIN course c ON c.id = pc.course_id
		WHERE pc.program_id = ? AND c.is_active
		ORDER BY c.code`,
		programID,
	)
	if err != nil {
		return nil, repo.db.fail("listing program courses", err, nil)
	}
	return courses, nil
}

func (repo *ledgerRepository) CountLiveEnrollments(ctx context.Context, courseID string) (int, error) {
	return repo.db.count(ctx, `SELECT COUNT(*) FROM enrollment WHERE course_id = ? AND status <> ?`, courseID, ledger.StatusDropped)
}

func (repo *ledgerRepository) EnrollmentExists(ctx context.Context, studentID, courseID, term string, year int) (bool, error) {
	var exists bool
	err := repo.db.get(ctx, &exists, `
		SELECT EXISTS (SELECT 1 FROM enrollment WHERE student_id = ? AND course_id = ? AND term = ? AND year = ?)`,
		studentID, courseID, term, year,
	)
	if err != nil {
		return false, repo.db.fail("checking enrollment", err, nil)
	}
	return exists, nil
}

const enrollmentQuery = `
	SELECT e.id, e.student_id, e.course_id, e.term, e.year, e.status, e.enrolled_at,
		e.midterm_score, e.final_score, e.attendance_count,
		c.code AS course_code, c.name AS course_name, c.credits,
		s.code AS student_code, s.full_name AS student_name
	FROM enrollment e
	JOIN course c ON c.id = e.course_id
	JOIN student s ON s.id = e.student_id`

func (repo *ledgerRepository) CreateEnrollment(ctx context.Context, enr ledger.Enrollment) (ledger.Enrollment, error) {
	enr.ID = uuid.New().String()
	err := repo.db.namedExec(ctx, `
		INSERT INTO enrollment (id, student_id, course_id, term, year, status, enrolled_at, midterm_score, final_score, attendance_count)
		VALUES (:id, :student_id, :course_id, :term, :year, :status, :enrolled_at, :midterm_score, :final_score, :attendance_count)`,
		enr,
	)
	if err != nil {
		return ledger.Enrollment{}, repo.db.fail("inserting enrollment", err, nil)
	}
	return repo.GetEnrollment(ctx, enr.ID)
}

func (repo *ledgerRepository) GetEnrollment(ctx context.Context, id string) (ledger.Enrollment, error) {
	var enr ledger.Enrollment
	if err := repo.db.get(ctx, &enr, enrollmentQuery+` WHERE e.id = ?`, id); err != nil {
		return ledger.Enrollment{}, repo.db.fail("getting enrollment", err, ledger.ErrEnrollmentNotFound)
	}
	return enr, nil
}

func (repo *ledgerRepository) UpdateEnrollment(ctx context.Context, enr ledger.Enrollment) (ledger.Enrollment, error) {
	n, err := repo.db.exec(ctx, `
		UPDATE enrollment SET status = ?, midterm_score = ?, final_score = ?, attendance_count = ? WHERE id = ?`,
		enr.Status, enr.MidtermScore, enr.FinalScore, enr.AttendanceCount, enr.ID,
	)
	if err != nil {
		return ledger.Enrollment{}, repo.db.fail("updating enrollment", err, ledger.ErrEnrollmentNotFound)
	}
	if n == 0 {
		return ledger.Enrollment{}, ledger.ErrEnrollmentNotFound
	}
	return repo.GetEnrollment(ctx, enr.ID)
}

func (repo *ledgerRepository) DeleteEnrollment(ctx context.Context, id string) error {
	if _, err := repo.db.exec(ctx, `DELETE FROM grade WHERE enrollment_id = ?`, id); err != nil {
		return repo.db.fail("deleting grade", err, ledger.ErrEnrollmentNotFound)
	}
	n, err := repo.db.exec(ctx, `DELETE FROM enrollment WHERE id = ?`, id)
	if err != nil {
		return repo.db.fail("deleting enrollment", err, ledger.ErrEnrollmentNotFound)
	}
	if n == 0 {
		return ledger.ErrEnrollmentNotFound
	}
	return nil
}

func (repo *ledgerRepository) QueryEnrollments(ctx context.Context, filter *ledger.EnrollmentFilter) ([]ledger.Enrollment, error) {
	var f filters
	if filter != nil {
		if filter.StudentID != "" {
			f.add("e.student_id::text = ?", filter.StudentID)
		}
		if filter.CourseID != "" {
			f.add("e.course_id::text = ?", filter.CourseID)
		}
		if filter.Term != "" {
			f.add("e.term = ?", filter.Term)
		}
		if filter.Year != 0 {
			f.add("e.year = ?", filter.Year)
		}
		if filter.Status != "" {
			f.add("e.status = ?", filter.Status)
		}
	}

	enrs := make([]ledger.Enrollment, 0)
	query := enrollmentQuery + f.where() + ` ORDER BY e.year DESC, e.term DESC, c.code, s.code`
	if err := repo.db.selectAll(ctx, &enrs, query, f.args...); err != nil {
		return nil, repo.db.fail("querying enrollments", err, nil)
	}
	return enrs, nil
}

const gradeQuery = `
	SELECT g.id, g.enrollment_id, g.student_id, g.course_id, g.final_score, g.letter_grade, g.status,
		g.graded_at, g.graded_by, g.comments, g.version,
		c.code AS course_code, c.name AS course_name, c.credits, e.term, e.year
	FROM grade g
	JOIN enrollment e ON e.id = g.enrollment_id
	JOIN course c ON c.id = g.course_id`

func (repo *ledgerRepository) GetGrade(ctx context.Context, enrollmentID string) (ledger.Grade, error) {
	var g ledger.Grade
	if err := repo.db.get(ctx, &g, gradeQuery+` WHERE g.enrollment_id = ?`, enrollmentID); err != nil {
		return ledger.Grade{}, repo.db.fail("getting grade", err, ledger.ErrGradeNotFound)
	}
	return g, nil
}

// CreateGrade loses to a concurrent first entry on grade_enrollment_key, which maps to
// core.ErrConcurrentModification.
func (repo *ledgerRepository) CreateGrade(ctx context.Context, g ledger.Grade) (ledger.Grade, error) {
	g.ID = uuid.New().String()
	g.Version = 1
	err := repo.db.namedExec(ctx, `
		INSERT INTO grade (id, enrollment_id, student_id, course_id, final_score, letter_grade, status, graded_at, graded_by, comments, version)
		VALUES (:id, :enrollment_id, :student_id, :course_id, :final_score, :letter_grade, :status, :graded_at, :graded_by, :comments, :version)`,
		g,
	)
	if err != nil {
		return ledger.Grade{}, repo.db.fail("inserting grade", err, nil)
	}
	return repo.GetGrade(ctx, g.EnrollmentID)
}

// UpdateGrade is a compare-and-set on version: under READ COMMITTED a writer that waited on the
// row lock re-evaluates the predicate against the committed row and updates nothing.
func (repo *ledgerRepository) UpdateGrade(ctx context.Context, g ledger.Grade) (ledger.Grade, error) {
	n, err := repo.db.exec(ctx, `
		UPDATE grade
		SET final_score = ?, letter_grade = ?, status = ?, graded_at = ?, graded_by = ?, comments = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		g.FinalScore, g.LetterGrade, g.Status, g.GradedAt, g.GradedBy, g.Comments, g.ID, g.Version,
	)
	if err != nil {
		return ledger.Grade{}, repo.db.fail("updating grade", err, ledger.ErrGradeNotFound)
	}
	if n == 0 {
		return ledger.Grade{}, core.ErrConcurrentModification
	}
	return repo.GetGrade(ctx, g.EnrollmentID)
}

func (repo *ledgerRepository) QueryGrades(ctx context.Context, filter *ledger.GradeFilter) ([]ledger.Grade, error) {
	var f filters
	if filter != nil {
		if filter.StudentID != "" {
			f.add("g.student_id::text = ?", filter.StudentID)
		}
		if filter.CourseID != "" {
			f.add("g.course_id::text = ?", filter.CourseID)
		}
	}

	grades := make([]ledger.Grade, 0)
	query := gradeQuery + f.where() + ` ORDER BY e.year DESC, e.term DESC, c.code`
	if err := repo.db.selectAll(ctx, &grades, query, f.args...); err != nil {
		return nil, repo.db.fail("querying grades", err, nil)
	}
	return grades, nil
}

func (repo *ledgerRepository) GradedCredits(ctx context.Context, studentID string) ([]ledger.CreditScore, error) {
	rows := make([]ledger.CreditScore, 0)
	err := repo.db.selectAll(ctx, &rows, `
		SELECT g.final_score, c.credits, g.status
		FROM grade g
		JOIN course c ON c.id = g.course_id
		WHERE g.student_id = ?`,
		studentID,
	)
	if err != nil {
		return nil, repo.db.fail("loading graded credits", err, ledger.ErrStudentNotFound)
	}
	return rows, nil
}
