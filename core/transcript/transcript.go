package transcript

import (
	"context"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/academia/sims/core/ledger"
	"github.com/academia/sims/core/student"
)

// ExternalGrade is a result obtained outside the ledger, e.g. from a legacy system.
type ExternalGrade struct {
	CourseCode  string       `json:"course_code"`
	CourseName  string       `json:"course_name"`
	Score       null.Float64 `json:"score"`
	LetterGrade null.String  `json:"letter_grade"`
	Term        string       `json:"term"`
}

// Source provides the external grades of a student, by student code.
// A student unknown to the source has no external grades.
type Source interface {
	ExternalGrades(ctx context.Context, studentCode string) ([]ExternalGrade, error)
}

type Transcript struct {
	Student  student.Student `json:"student"`
	Grades   []ledger.Grade  `json:"grades"`
	External []ExternalGrade `json:"external"`
}

type Service struct {
	stdSvc    *student.Service
	ledgerSvc *ledger.Service
	source    Source
}

func NewService(stdSvc *student.Service, ledgerSvc *ledger.Service, source Source) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(stdSvc, "stdSvc"),
		vala.IsNotNil(ledgerSvc, "ledgerSvc"),
		vala.IsNotNil(source, "source"),
	).CheckAndPanic()

	return &Service{stdSvc: stdSvc, ledgerSvc: ledgerSvc, source: source}
}

// ForStudent gathers the ledger grades of a student along with their external grades.
func (svc *Service) ForStudent(ctx context.Context, studentID string) (Transcript, error) {
	std, err := svc.stdSvc.Get(ctx, studentID)
	if err != nil {
		return Transcript{}, err
	}
	grades, err := svc.ledgerSvc.ListGrades(ctx, &ledger.GradeFilter{StudentID: std.ID})
	if err != nil {
		return Transcript{}, errors.Wrap(err, "listing grades")
	}
	ext, err := svc.source.ExternalGrades(ctx, std.Code)
	if err != nil {
		return Transcript{}, errors.Wrap(err, "reading external grades")
	}
	if ext == nil {
		ext = make([]ExternalGrade, 0)
	}
	return Transcript{Student: std, Grades: grades, External: ext}, nil
}
