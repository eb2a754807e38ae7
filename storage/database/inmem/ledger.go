package inmemdb

import (
	"context"
	"sort"

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

// Rows are already held by the table lock of the enclosing unit of work.

func (repo *ledgerRepository) LockStudent(ctx context.Context, id string) (student.Student, error) {
	defer repo.db.lock(ctx)()

	if std, ok := repo.db.tables.students[id]; ok {
		return std, nil
	}
	return student.Student{}, ledger.ErrStudentNotFound
}

func (repo *ledgerRepository) UpdateStudentStanding(ctx context.Context, st ledger.Standing) error {
	defer repo.db.lock(ctx)()

	std, ok := repo.db.tables.students[st.StudentID]
	if !ok {
		return ledger.ErrStudentNotFound
	}
	std.GPA, std.TotalCredits = st.GPA, st.TotalCredits
	repo.db.tables.students[std.ID] = std
	return nil
}

func (repo *ledgerRepository) StudentIDs(ctx context.Context) ([]string, error) {
	defer repo.db.lock(ctx)()

	ids := make([]string, 0, len(repo.db.tables.students))
	for id := range repo.db.tables.students {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (repo *ledgerRepository) LockCourse(ctx context.Context, id string) (catalog.Course, error) {
	return repo.GetCourse(ctx, id)
}

func (repo *ledgerRepository) GetCourse(ctx context.Context, id string) (catalog.Course, error) {
	defer repo.db.lock(ctx)()

	if crs, ok := repo.db.tables.courses[id]; ok {
		return crs, nil
	}
	return catalog.Course{}, ledger.ErrCourseNotFound
}

func (repo *ledgerRepository) ProgramCourses(ctx context.Context, programID string) ([]catalog.Course, error) {
	defer repo.db.lock(ctx)()

	courses := make([]catalog.Course, 0)
	for _, pc := range repo.db.tables.programCourses {
		if pc.ProgramID != programID {
			continue
		}
		if crs, ok := repo.db.tables.courses[pc.CourseID]; ok && crs.IsActive {
			courses = append(courses, crs)
		}
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Code < courses[j].Code })
	return courses, nil
}

func (repo *ledgerRepository) CountLiveEnrollments(ctx context.Context, courseID string) (int, error) {
	defer repo.db.lock(ctx)()

	var n int
	for _, enr := range repo.db.tables.enrollments {
		if enr.CourseID == courseID && enr.Status.Live() {
			n++
		}
	}
	return n, nil
}

func (repo *ledgerRepository) enrollmentExists(studentID, courseID, term string, year int) bool {
	for _, enr := range repo.db.tables.enrollments {
		if enr.StudentID == studentID && enr.CourseID == courseID && enr.Term == term && enr.Year == year {
			return true
		}
	}
	return false
}

func (repo *ledgerRepository) EnrollmentExists(ctx context.Context, studentID, courseID, term string, year int) (bool, error) {
	defer repo.db.lock(ctx)()
	return repo.enrollmentExists(studentID, courseID, term, year), nil
}

// withCourse fills the read-only fields of an enrollment.
func (repo *ledgerRepository) withCourse(enr ledger.Enrollment) ledger.Enrollment {
	crs := repo.db.tables.courses[enr.CourseID]
	std := repo.db.tables.students[enr.StudentID]
	enr.CourseCode, enr.CourseName, enr.Credits = crs.Code, crs.Name, crs.Credits
	enr.StudentCode, enr.StudentName = std.Code, std.FullName
	return enr
}

func (repo *ledgerRepository) CreateEnrollment(ctx context.Context, enr ledger.Enrollment) (ledger.Enrollment, error) {
	defer repo.db.lock(ctx)()

	if repo.enrollmentExists(enr.StudentID, enr.CourseID, enr.Term, enr.Year) {
		return ledger.Enrollment{}, ledger.ErrDuplicateEnrollment
	}
	enr.ID = uuid.New().String()
	repo.db.tables.enrollments[enr.ID] = enr
	return repo.withCourse(enr), nil
}

func (repo *ledgerRepository) GetEnrollment(ctx context.Context, id string) (ledger.Enrollment, error) {
	defer repo.db.lock(ctx)()

	if enr, ok := repo.db.tables.enrollments[id]; ok {
		return repo.withCourse(enr), nil
	}
	return ledger.Enrollment{}, ledger.ErrEnrollmentNotFound
}

func (repo *ledgerRepository) UpdateEnrollment(ctx context.Context, enr ledger.Enrollment) (ledger.Enrollment, error) {
	defer repo.db.lock(ctx)()

	orig, ok := repo.db.tables.enrollments[enr.ID]
	if !ok {
		return ledger.Enrollment{}, ledger.ErrEnrollmentNotFound
	}
	orig.Status = enr.Status
	orig.MidtermScore = enr.MidtermScore
	orig.FinalScore = enr.FinalScore
	orig.AttendanceCount = enr.AttendanceCount
	repo.db.tables.enrollments[enr.ID] = orig
	return repo.withCourse(orig), nil
}

func (repo *ledgerRepository) DeleteEnrollment(ctx context.Context, id string) error {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.tables.enrollments[id]; !ok {
		return ledger.ErrEnrollmentNotFound
	}
	for gID, g := range repo.db.tables.grades {
		if g.EnrollmentID == id {
			delete(repo.db.tables.grades, gID)
		}
	}
	delete(repo.db.tables.enrollments, id)
	return nil
}

func (repo *ledgerRepository) QueryEnrollments(ctx context.Context, filter *ledger.EnrollmentFilter) ([]ledger.Enrollment, error) {
	defer repo.db.lock(ctx)()

	enrs := make([]ledger.Enrollment, 0)
	for _, enr := range repo.db.tables.enrollments {
		if filter != nil {
			if filter.StudentID != "" && enr.StudentID != filter.StudentID {
				continue
			}
			if filter.CourseID != "" && enr.CourseID != filter.CourseID {
				continue
			}
			if filter.Term != "" && enr.Term != filter.Term {
				continue
			}
			if filter.Year != 0 && enr.Year != filter.Year {
				continue
			}
			if filter.Status != "" && enr.Status != filter.Status {
				continue
			}
		}
		enrs = append(enrs, repo.withCourse(enr))
	}

	sort.Slice(enrs, func(i, j int) bool {
		a, b := enrs[i], enrs[j]
		if a.Year != b.Year {
			return a.Year > b.Year
		}
		if a.Term != b.Term {
			return a.Term > b.Term
		}
		if a.CourseCode != b.CourseCode {
			return a.CourseCode < b.CourseCode
		}
		return a.StudentCode < b.StudentCode
	})
	return enrs, nil
}

func (repo *ledgerRepository) withEnrollment(g ledger.Grade) ledger.Grade {
	enr := repo.db.tables.enrollments[g.EnrollmentID]
	crs := repo.db.tables.courses[g.CourseID]
	g.CourseCode, g.CourseName, g.Credits = crs.Code, crs.Name, crs.Credits
	g.Term, g.Year = enr.Term, enr.Year
	return g
}

func (repo *ledgerRepository) gradeOf(enrollmentID string) (ledger.Grade, bool) {
	for _, g := range repo.db.tables.grades {
		if g.EnrollmentID == enrollmentID {
			return g, true
		}
	}
	return ledger.Grade{}, false
}

func (repo *ledgerRepository) GetGrade(ctx context.Context, enrollmentID string) (ledger.Grade, error) {
	defer repo.db.lock(ctx)()

	if g, ok := repo.gradeOf(enrollmentID); ok {
		return repo.withEnrollment(g), nil
	}
	return ledger.Grade{}, ledger.ErrGradeNotFound
}

func (repo *ledgerRepository) CreateGrade(ctx context.Context, g ledger.Grade) (ledger.Grade, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.gradeOf(g.EnrollmentID); ok {
		return ledger.Grade{}, core.ErrConcurrentModification
	}
	g.ID = uuid.New().String()
	g.Version = 1
	repo.db.tables.grades[g.ID] = g
	return repo.withEnrollment(g), nil
}

func (repo *ledgerRepository) UpdateGrade(ctx context.Context, g ledger.Grade) (ledger.Grade, error) {
	defer repo.db.lock(ctx)()

	orig, ok := repo.db.tables.grades[g.ID]
	if !ok || orig.Version != g.Version {
		return ledger.Grade{}, core.ErrConcurrentModification
	}
	g.Version++
	repo.db.tables.grades[g.ID] = g
	return repo.withEnrollment(g), nil
}

func (repo *ledgerRepository) QueryGrades(ctx context.Context, filter *ledger.GradeFilter) ([]ledger.Grade, error) {
	defer repo.db.lock(ctx)()

	grades := make([]ledger.Grade, 0)
	for _, g := range repo.db.tables.grades {
		if filter != nil {
			if filter.StudentID != "" && g.StudentID != filter.StudentID {
				continue
			}
			if filter.CourseID != "" && g.CourseID != filter.CourseID {
				continue
			}
		}
		grades = append(grades, repo.withEnrollment(g))
	}
	sort.Slice(grades, func(i, j int) bool {
		a, b := grades[i], grades[j]
		if a.Year != b.Year {
			return a.Year > b.Year
		}
		if a.Term != b.Term {
			return a.Term > b.Term
		}
		return a.CourseCode < b.CourseCode
	})
	return grades, nil
}

func (repo *ledgerRepository) GradedCredits(ctx context.Context, studentID string) ([]ledger.CreditScore, error) {
	defer repo.db.lock(ctx)()

	rows := make([]ledger.CreditScore, 0)
	for _, g := range repo.db.tables.grades {
		if g.StudentID != studentID {
			continue
		}
		rows = append(rows, ledger.CreditScore{
			FinalScore: g.FinalScore,
			Credits:    repo.db.tables.courses[g.CourseID].Credits,
			Status:     g.Status,
		})
	}
	return rows, nil
}
