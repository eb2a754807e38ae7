package ledger

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/academia/sims/core"
	"github.com/academia/sims/core/gradescale"
)

type EnrollmentStatus string

const (
	StatusEnrolled  EnrollmentStatus = "Enrolled"
	StatusCompleted EnrollmentStatus = "Completed"
	StatusDropped   EnrollmentStatus = "Dropped"
)

var (
	EnrollmentStatuses = []EnrollmentStatus{StatusEnrolled, StatusCompleted, StatusDropped}

	// transitions accepted when status transitions are enforced
	transitions = map[EnrollmentStatus][]EnrollmentStatus{
		StatusEnrolled: {StatusCompleted, StatusDropped},
		StatusDropped:  {StatusEnrolled},
	}
)

func (s EnrollmentStatus) Valid() bool {
	for _, st := range EnrollmentStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// CanBecome reports whether the lifecycle allows moving from s to next.
func (s EnrollmentStatus) CanBecome(next EnrollmentStatus) bool {
	for _, st := range transitions[s] {
		if st == next {
			return true
		}
	}
	return false
}

// Live reports whether the enrollment holds a seat in its course.
func (s EnrollmentStatus) Live() bool {
	return s != StatusDropped
}

type GradeStatus string

const (
	GradePending    GradeStatus = "Pending"
	GradePassed     GradeStatus = "Passed"
	GradeFailed     GradeStatus = "Failed"
	GradeIncomplete GradeStatus = "Incomplete"
)

var GradeStatuses = []GradeStatus{GradePending, GradePassed, GradeFailed, GradeIncomplete}

func (s GradeStatus) Valid() bool {
	for _, st := range GradeStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// DeriveGradeStatus is the status recorded when a grade is entered without one.
func DeriveGradeStatus(score null.Float64) GradeStatus {
	switch {
	case !score.Valid:
		return GradePending
	case gradescale.Passed(score.Float64):
		return GradePassed
	default:
		return GradeFailed
	}
}

// Enrollment links a student to a course for one term of one year.
type Enrollment struct {
	ID              string           `json:"id" db:"id"`
	StudentID       string           `json:"student_id" db:"student_id"`
	CourseID        string           `json:"course_id" db:"course_id"`
	Term            string           `json:"term" db:"term"`
	Year            int              `json:"year" db:"year"`
	Status          EnrollmentStatus `json:"status" db:"status"`
	EnrolledAt      time.Time        `json:"enrolled_at" db:"enrolled_at"`
	MidtermScore    null.Float64     `json:"midterm_score" db:"midterm_score"`
	FinalScore      null.Float64     `json:"final_score" db:"final_score"`
	AttendanceCount int              `json:"attendance_count" db:"attendance_count"`

	// read-only
	CourseCode  string `json:"course_code" db:"course_code"`
	CourseName  string `json:"course_name" db:"course_name"`
	Credits     int    `json:"credits" db:"credits"`
	StudentCode string `json:"student_code" db:"student_code"`
	StudentName string `json:"student_name" db:"student_name"`
}

// Grade is the single result recorded for an Enrollment.
// Version increases with every write and guards concurrent updates.
type Grade struct {
	ID           string       `json:"id" db:"id"`
	EnrollmentID string       `json:"enrollment_id" db:"enrollment_id"`
	StudentID    string       `json:"student_id" db:"student_id"`
	CourseID     string       `json:"course_id" db:"course_id"`
	FinalScore   null.Float64 `json:"final_score" db:"final_score"`
	LetterGrade  null.String  `json:"letter_grade" db:"letter_grade"`
	Status       GradeStatus  `json:"status" db:"status"`
	GradedAt     time.Time    `json:"graded_at" db:"graded_at"`
	GradedBy     null.String  `json:"graded_by" db:"graded_by"`
	Comments     null.String  `json:"comments" db:"comments"`
	Version      int          `json:"version" db:"version"`

	// read-only
	CourseCode string `json:"course_code" db:"course_code"`
	CourseName string `json:"course_name" db:"course_name"`
	Credits    int    `json:"credits" db:"credits"`
	Term       string `json:"term" db:"term"`
	Year       int    `json:"year" db:"year"`
}

// GradePoint is the grade point of the recorded score, if any.
func (g Grade) GradePoint() null.Float64 {
	if !g.FinalScore.Valid {
		return null.Float64{}
	}
	return null.Float64From(gradescale.Point(g.FinalScore.Float64))
}

// NewEnrollment registers a student in a course. Term and Year default to the course's.
type NewEnrollment struct {
	StudentID string `json:"student_id" validate:"required,uuid"`
	CourseID  string `json:"course_id" validate:"required,uuid"`
	Term      string `json:"term" validate:"omitempty,term"`
	Year      int    `json:"year" validate:"omitempty,min=1900,max=2999"`
}

func (ne *NewEnrollment) Validate(validate *validator.Validate) error {
	ne.Term = core.CleanString(ne.Term)
	return validate.Struct(ne)
}

type StatusUpdate struct {
	Status EnrollmentStatus `json:"status" validate:"required,enrollmentstatus"`
}

func (su StatusUpdate) Validate(validate *validator.Validate) error { return validate.Struct(su) }

// Scores are the partial marks kept on an Enrollment.
type Scores struct {
	Midterm null.Float64 `json:"midterm_score"`
	Final   null.Float64 `json:"final_score"`
}

// GradeEntry is a grading action on an enrollment by GraderID (a faculty ID).
// A nil Version skips the optimistic concurrency check; 0 means "no grade recorded yet".
type GradeEntry struct {
	EnrollmentID string       `json:"-"`
	FinalScore   null.Float64 `json:"final_score"`
	Status       GradeStatus  `json:"status" validate:"omitempty,gradestatus"`
	Comments     null.String  `json:"comments" validate:"omitempty"`
	GraderID     string       `json:"-"`
	Version      *int         `json:"version" validate:"omitempty,min=0"`
}

func (ge *GradeEntry) Validate(validate *validator.Validate) error {
	if ge.Comments.Valid && core.CleanString(ge.Comments.String) == "" {
		ge.Comments = null.String{}
	}
	return validate.Struct(ge)
}

type EnrollmentFilter struct {
	StudentID string           `query:"student_id"`
	CourseID  string           `query:"course_id"`
	Term      string           `query:"term"`
	Year      int              `query:"year"`
	Status    EnrollmentStatus `query:"status"`
}

func (qf *EnrollmentFilter) Clean() {
	qf.Term = core.CleanString(qf.Term)
}

type GradeFilter struct {
	StudentID string `query:"student_id"`
	CourseID  string `query:"course_id"`
}

// CreditScore is one grade of a student weighted by its course credits.
type CreditScore struct {
	FinalScore null.Float64 `db:"final_score"`
	Credits    int          `db:"credits"`
	Status     GradeStatus  `db:"status"`
}

// Standing is a student's cumulative GPA and earned credits.
type Standing struct {
	StudentID    string  `json:"student_id"`
	GPA          float64 `json:"gpa"`
	TotalCredits int     `json:"total_credits"`
}

// Assignment reports the outcome of enrolling a student in their program's courses.
type Assignment struct {
	Enrolled []Enrollment `json:"enrolled"`
	Skipped  int          `json:"skipped"`
}
