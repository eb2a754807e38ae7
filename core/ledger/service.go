package ledger

import (
	"context"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/academia/sims/core"
	"github.com/academia/sims/core/catalog"
	"github.com/academia/sims/core/gradescale"
	"github.com/academia/sims/core/student"
)

var (
	// errors
	ErrStudentNotFound         = student.ErrNotFound
	ErrCourseNotFound          = catalog.ErrCourseNotFound
	ErrEnrollmentNotFound      = errors.New("enrollment not found")
	ErrGradeNotFound           = errors.New("grade not found")
	ErrDuplicateEnrollment     = errors.New("student is already enrolled in this course for this term")
	ErrCapacityExceeded        = errors.New("course has reached its capacity")
	ErrCourseInactive          = errors.New("course is not open for enrollment")
	ErrInvalidStatusTransition = errors.New("enrollment status transition is not allowed")
	ErrUnauthorizedGrader      = errors.New("only the course instructor may grade this enrollment")
	ErrScoreOutOfRange         = errors.New("score must be between 0 and 100")
)

type (
	// Repository persists enrollments and grades.
	// Lock* methods hold the row until the enclosing unit of work ends.
	Repository interface {
		LockStudent(ctx context.Context, id string) (student.Student, error)
		UpdateStudentStanding(ctx context.Context, st Standing) error
		StudentIDs(ctx context.Context) ([]string, error)

		LockCourse(ctx context.Context, id string) (catalog.Course, error)
		GetCourse(ctx context.Context, id string) (catalog.Course, error)
		// ProgramCourses returns the active courses of a program's curriculum.
		ProgramCourses(ctx context.Context, programID string) ([]catalog.Course, error)

		CountLiveEnrollments(ctx context.Context, courseID string) (int, error)
		EnrollmentExists(ctx context.Context, studentID, courseID, term string, year int) (bool, error)
		// CreateEnrollment returns ErrDuplicateEnrollment when (student, course, term, year) is taken.
		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		GetEnrollment(ctx context.Context, id string) (Enrollment, error)
		UpdateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		// DeleteEnrollment removes the enrollment and its grade.
		DeleteEnrollment(ctx context.Context, id string) error
		// QueryEnrollments orders by year and term, most recent first, then by course code.
		QueryEnrollments(ctx context.Context, filter *EnrollmentFilter) ([]Enrollment, error)

		GetGrade(ctx context.Context, enrollmentID string) (Grade, error)
		// CreateGrade returns core.ErrConcurrentModification when the enrollment already has a grade.
		CreateGrade(ctx context.Context, g Grade) (Grade, error)
		// UpdateGrade writes g only if the stored version still equals g.Version, and bumps it.
		// Otherwise it returns core.ErrConcurrentModification.
		UpdateGrade(ctx context.Context, g Grade) (Grade, error)
		QueryGrades(ctx context.Context, filter *GradeFilter) ([]Grade, error)
		GradedCredits(ctx context.Context, studentID string) ([]CreditScore, error)
	}

	Service struct {
		tx   core.Transactor
		repo Repository
		conf *core.Config
	}
)

func NewService(tx core.Transactor, repo Repository, conf *core.Config) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(tx, "tx"),
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()

	return &Service{tx: tx, repo: repo, conf: conf}
}

// Enrollments

// Enroll registers a student in a course. The student then the course are locked for the
// duplicate and capacity checks.
func (svc *Service) Enroll(ctx context.Context, ne NewEnrollment) (Enrollment, error) {
	var enr Enrollment
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := svc.repo.LockStudent(ctx, ne.StudentID); err != nil {
			return err
		}
		crs, err := svc.repo.LockCourse(ctx, ne.CourseID)
		if err != nil {
			return err
		}
		if !crs.IsActive {
			return ErrCourseInactive
		}
		term, year := ne.Term, ne.Year
		if term == "" {
			term = crs.Term
		}
		if year == 0 {
			year = crs.Year
		}

		enr, err = svc.enroll(ctx, ne.StudentID, crs, term, year)
		return err
	})
	if err != nil {
		return Enrollment{}, err
	}
	return enr, nil
}

// enroll expects crs to be locked by the caller.
func (svc *Service) enroll(ctx context.Context, studentID string, crs catalog.Course, term string, year int) (Enrollment, error) {
	exists, err := svc.repo.EnrollmentExists(ctx, studentID, crs.ID, term, year)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "checking enrollment uniqueness")
	}
	if exists {
		return Enrollment{}, ErrDuplicateEnrollment
	}
	if err = svc.checkCapacity(ctx, crs); err != nil {
		return Enrollment{}, err
	}
	return svc.repo.CreateEnrollment(ctx, Enrollment{
		StudentID:  studentID,
		CourseID:   crs.ID,
		Term:       term,
		Year:       year,
		Status:     StatusEnrolled,
		EnrolledAt: time.Now().UTC(),
	})
}

func (svc *Service) checkCapacity(ctx context.Context, crs catalog.Course) error {
	if !svc.conf.Ledger.EnforceCapacity || !crs.HasCapacityLimit() {
		return nil
	}
	n, err := svc.repo.CountLiveEnrollments(ctx, crs.ID)
	if err != nil {
		return errors.Wrap(err, "counting course enrollments")
	}
	if n >= crs.Capacity {
		return ErrCapacityExceeded
	}
	return nil
}

func (svc *Service) GetEnrollment(ctx context.Context, id string) (Enrollment, error) {
	return svc.repo.GetEnrollment(ctx, id)
}

func (svc *Service) ListEnrollments(ctx context.Context, filter *EnrollmentFilter) ([]Enrollment, error) {
	return svc.repo.QueryEnrollments(ctx, filter)
}

// UpdateEnrollmentStatus moves an enrollment to status. Any move is accepted unless
// status transitions are enforced; a dropped enrollment coming back takes a seat again.
func (svc *Service) UpdateEnrollmentStatus(ctx context.Context, id string, status EnrollmentStatus) (Enrollment, error) {
	if !status.Valid() {
		return Enrollment{}, core.NewValidationError(nil, core.FieldError{Field: "status", Error: "invalid enrollment status"})
	}

	var enr Enrollment
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if enr, err = svc.repo.GetEnrollment(ctx, id); err != nil {
			return err
		}
		if enr.Status == status {
			return nil
		}
		if svc.conf.Ledger.EnforceStatusTransitions && !enr.Status.CanBecome(status) {
			return ErrInvalidStatusTransition
		}
		if !enr.Status.Live() && status.Live() {
			crs, err := svc.repo.LockCourse(ctx, enr.CourseID)
			if err != nil {
				return errors.Wrap(err, "locking course")
			}
			if err = svc.checkCapacity(ctx, crs); err != nil {
				return err
			}
		}
		enr.Status = status
		enr, err = svc.repo.UpdateEnrollment(ctx, enr)
		return err
	})
	if err != nil {
		return Enrollment{}, err
	}
	return enr, nil
}

// RecordScores keeps the midterm and final marks on the enrollment.
// Grading rules are those of UpsertGrade.
func (svc *Service) RecordScores(ctx context.Context, id, graderID string, sc Scores) (Enrollment, error) {
	var enr Enrollment
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if enr, err = svc.repo.GetEnrollment(ctx, id); err != nil {
			return err
		}
		if err = svc.checkGrader(ctx, enr, graderID); err != nil {
			return err
		}
		if enr.MidtermScore, err = cleanScore(sc.Midterm); err != nil {
			return err
		}
		if enr.FinalScore, err = cleanScore(sc.Final); err != nil {
			return err
		}
		enr, err = svc.repo.UpdateEnrollment(ctx, enr)
		return err
	})
	if err != nil {
		return Enrollment{}, err
	}
	return enr, nil
}

// DeleteEnrollment removes an enrollment with its grade, then recalculates the student's GPA.
func (svc *Service) DeleteEnrollment(ctx context.Context, id string) error {
	return svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		enr, err := svc.repo.GetEnrollment(ctx, id)
		if err != nil {
			return err
		}
		if err = svc.repo.DeleteEnrollment(ctx, id); err != nil {
			return errors.Wrap(err, "deleting enrollment")
		}
		_, err = svc.recalculateGPA(ctx, enr.StudentID)
		return err
	})
}

// AssignProgramCourses enrolls a student in every active course of their program, for the
// course's own term and year. Courses already taken that term, or full, are skipped.
func (svc *Service) AssignProgramCourses(ctx context.Context, studentID string) (Assignment, error) {
	res := Assignment{Enrolled: make([]Enrollment, 0)}
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		std, err := svc.repo.LockStudent(ctx, studentID)
		if err != nil {
			return err
		}
		courses, err := svc.repo.ProgramCourses(ctx, std.ProgramID)
		if err != nil {
			return errors.Wrap(err, "listing program courses")
		}
		for _, c := range courses {
			crs, err := svc.repo.LockCourse(ctx, c.ID)
			if err != nil {
				return errors.Wrap(err, "locking course")
			}
			enr, err := svc.enroll(ctx, std.ID, crs, crs.Term, crs.Year)
			switch errors.Cause(err) {
			case nil:
				res.Enrolled = append(res.Enrolled, enr)
			case ErrDuplicateEnrollment, ErrCapacityExceeded:
				res.Skipped++
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Assignment{}, err
	}
	return res, nil
}

// Grades

func (svc *Service) checkGrader(ctx context.Context, enr Enrollment, graderID string) error {
	crs, err := svc.repo.GetCourse(ctx, enr.CourseID)
	if err != nil {
		return errors.Wrap(err, "finding course")
	}
	if !crs.TaughtBy(graderID) {
		return ErrUnauthorizedGrader
	}
	return nil
}

func cleanScore(score null.Float64) (null.Float64, error) {
	if !score.Valid {
		return score, nil
	}
	if !gradescale.InRange(score.Float64) {
		return score, ErrScoreOutOfRange
	}
	return null.Float64From(gradescale.Round(score.Float64)), nil
}

// UpsertGrade records the grade of an enrollment, creating it on first entry and updating it
// in place afterwards, then recalculates the student's GPA in the same unit of work.
func (svc *Service) UpsertGrade(ctx context.Context, ge GradeEntry) (Grade, error) {
	var g Grade
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		enr, err := svc.repo.GetEnrollment(ctx, ge.EnrollmentID)
		if err != nil {
			return err
		}
		if err = svc.checkGrader(ctx, enr, ge.GraderID); err != nil {
			return err
		}
		score, err := cleanScore(ge.FinalScore)
		if err != nil {
			return err
		}
		status := ge.Status
		if status == "" {
			status = DeriveGradeStatus(score)
		}

		g, err = svc.repo.GetGrade(ctx, enr.ID)
		switch {
		case errors.Cause(err) == ErrGradeNotFound:
			if ge.Version != nil && *ge.Version != 0 {
				return core.ErrConcurrentModification
			}
			g = Grade{EnrollmentID: enr.ID, StudentID: enr.StudentID, CourseID: enr.CourseID, Version: 1}
		case err != nil:
			return errors.Wrap(err, "finding grade")
		case ge.Version != nil && *ge.Version != g.Version:
			return core.ErrConcurrentModification
		}

		g.FinalScore = score
		g.LetterGrade = gradescale.Letter(score)
		g.Status = status
		g.Comments = ge.Comments
		g.GradedBy = null.StringFrom(ge.GraderID)
		g.GradedAt = time.Now().UTC()
		if g.ID == "" {
			g, err = svc.repo.CreateGrade(ctx, g)
		} else {
			g, err = svc.repo.UpdateGrade(ctx, g)
		}
		if err != nil {
			return err
		}

		_, err = svc.recalculateGPA(ctx, enr.StudentID)
		return err
	})
	if err != nil {
		return Grade{}, err
	}
	return g, nil
}

func (svc *Service) GetGradeForEnrollment(ctx context.Context, enrollmentID string) (Grade, error) {
	if _, err := svc.repo.GetEnrollment(ctx, enrollmentID); err != nil {
		return Grade{}, err
	}
	return svc.repo.GetGrade(ctx, enrollmentID)
}

func (svc *Service) ListGrades(ctx context.Context, filter *GradeFilter) ([]Grade, error) {
	return svc.repo.QueryGrades(ctx, filter)
}

// GPA

// ComputeStanding recomputes a standing from all of a student's grades.
// Grades without a score are left out of the GPA, and a GPA with no graded credits stays at
// current: removing a student's last scored grade keeps the previous GPA while credits may
// drop to 0. Credits are earned by passed grades only.
func ComputeStanding(current float64, grades []CreditScore) (gpa float64, credits int) {
	var points float64
	var weights int
	for _, g := range grades {
		if g.Status == GradePassed {
			credits += g.Credits
		}
		if !g.FinalScore.Valid {
			continue
		}
		points += gradescale.Point(g.FinalScore.Float64) * float64(g.Credits)
		weights += g.Credits
	}
	if weights == 0 {
		return current, credits
	}
	return gradescale.Round(points / float64(weights)), credits
}

// RecalculateGPA recomputes and stores a student's GPA and earned credits from their grades.
// It joins the unit of work carried by ctx, if any.
func (svc *Service) RecalculateGPA(ctx context.Context, studentID string) (Standing, error) {
	var st Standing
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		st, err = svc.recalculateGPA(ctx, studentID)
		return err
	})
	if err != nil {
		return Standing{}, err
	}
	return st, nil
}

func (svc *Service) recalculateGPA(ctx context.Context, studentID string) (Standing, error) {
	std, err := svc.repo.LockStudent(ctx, studentID)
	if err != nil {
		return Standing{}, err
	}
	grades, err := svc.repo.GradedCredits(ctx, studentID)
	if err != nil {
		return Standing{}, errors.Wrap(err, "loading graded credits")
	}
	st := Standing{StudentID: studentID}
	st.GPA, st.TotalCredits = ComputeStanding(std.GPA, grades)
	if st.GPA == std.GPA && st.TotalCredits == std.TotalCredits {
		return st, nil
	}
	if err = svc.repo.UpdateStudentStanding(ctx, st); err != nil {
		return Standing{}, errors.Wrap(err, "updating student standing")
	}
	return st, nil
}

// RecalculateAll recalculates every student's GPA, one unit of work per student.
// It returns the number of students processed before the first failure.
func (svc *Service) RecalculateAll(ctx context.Context) (int, error) {
	ids, err := svc.repo.StudentIDs(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "listing students")
	}
	for i, id := range ids {
		if _, err = svc.RecalculateGPA(ctx, id); err != nil {
			return i, errors.Wrapf(err, "recalculating student %s", id)
		}
	}
	return len(ids), nil
}
