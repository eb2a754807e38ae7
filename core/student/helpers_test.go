package student_test

import (
	"github.com/volatiletech/null/v8"

	"github.com/academia/sims/core/ledger"
)

func ledgerEnrollment(studentID, courseID string) ledger.NewEnrollment {
	return ledger.NewEnrollment{StudentID: studentID, CourseID: courseID}
}

func gradeEntry(enrollmentID, graderID string, score float64) ledger.GradeEntry {
	return ledger.GradeEntry{EnrollmentID: enrollmentID, FinalScore: null.Float64From(score), GraderID: graderID}
}
