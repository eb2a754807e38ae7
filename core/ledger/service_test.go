package ledger_test

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/academia/sims/core"
	"github.com/academia/sims/core/catalog"
	"github.com/academia/sims/core/ledger"
	"github.com/academia/sims/core/student"
	"github.com/academia/sims/testutil"
)

var ctx = context.Background()

type fixture struct {
	env        *testutil.Env
	dept       catalog.Department
	prog       catalog.Program
	instructor string // faculty ID
	std        student.Student
}

func setup(t *testing.T, opts ...func(conf *core.Config)) fixture {
	env := testutil.NewEnv(t, opts...)
	dept := env.NewDepartment(t)
	prog := env.NewProgram(t, dept.ID)
	return fixture{
		env:        env,
		dept:       dept,
		prog:       prog,
		instructor: env.NewFaculty(t, dept.ID).ID,
		std:        env.NewStudent(t, prog.ID),
	}
}

func (f fixture) enroll(t *testing.T, studentID string, crs catalog.Course) ledger.Enrollment {
	enr, err := f.env.Ledger.Enroll(ctx, ledger.NewEnrollment{StudentID: studentID, CourseID: crs.ID})
	require.NoError(t, err)
	return enr
}

func (f fixture) grade(t *testing.T, enr ledger.Enrollment, score float64) ledger.Grade {
	g, err := f.env.Ledger.UpsertGrade(ctx, ledger.GradeEntry{
		EnrollmentID: enr.ID,
		FinalScore:   null.Float64From(score),
		GraderID:     f.instructor,
	})
	require.NoError(t, err)
	return g
}

func (f fixture) student(t *testing.T, id string) student.Student {
	std, err := f.env.Students.Get(ctx, id)
	require.NoError(t, err)
	return std
}

func TestService_Enroll(t *testing.T) {
	f := setup(t)
	crs := f.env.NewCourse(t, f.dept.ID, testutil.WithTerm("Spring", 2025))

	enr := f.enroll(t, f.std.ID, crs)
	assert.NotEmpty(t, enr.ID)
	assert.Equal(t, ledger.StatusEnrolled, enr.Status)
	assert.Equal(t, "Spring", enr.Term)
	assert.Equal(t, 2025, enr.Year)
	assert.Equal(t, crs.Code, enr.CourseCode)
	assert.Equal(t, crs.Credits, enr.Credits)

	t.Run("duplicate", func(t *testing.T) {
		_, err := f.env.Ledger.Enroll(ctx, ledger.NewEnrollment{StudentID: f.std.ID, CourseID: crs.ID, Term: "Spring", Year: 2025})
		assert.Equal(t, ledger.ErrDuplicateEnrollment, errors.Cause(err))

		enrs, err := f.env.Ledger.ListEnrollments(ctx, &ledger.EnrollmentFilter{StudentID: f.std.ID})
		require.NoError(t, err)
		assert.Len(t, enrs, 1)
	})

	t.Run("other term", func(t *testing.T) {
		enr, err := f.env.Ledger.Enroll(ctx, ledger.NewEnrollment{StudentID: f.std.ID, CourseID: crs.ID, Term: "Fall", Year: 2025})
		require.NoError(t, err)
		assert.Equal(t, "Fall", enr.Term)
	})

	tests := []struct {
		name    string
		ne      ledger.NewEnrollment
		wantErr error
	}{
		{name: "unknown student", ne: ledger.NewEnrollment{StudentID: "00000000-0000-0000-0000-000000000000", CourseID: crs.ID}, wantErr: ledger.ErrStudentNotFound},
		{name: "unknown course", ne: ledger.NewEnrollment{StudentID: f.std.ID, CourseID: "00000000-0000-0000-0000-000000000000"}, wantErr: ledger.ErrCourseNotFound},
		{name: "inactive course", ne: ledger.NewEnrollment{StudentID: f.std.ID, CourseID: f.env.NewCourse(t, f.dept.ID, testutil.Inactive()).ID}, wantErr: ledger.ErrCourseInactive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.env.Ledger.Enroll(ctx, tt.ne)
			assert.Equal(t, tt.wantErr, errors.Cause(err))
		})
	}
}

func TestService_Enroll_Capacity(t *testing.T) {
	tests := []struct {
		name     string
		enforce  bool
		capacity int
		students int
		wantErr  error
	}{
		{name: "under capacity", enforce: true, capacity: 3, students: 2},
		{name: "at capacity", enforce: true, capacity: 2, students: 2, wantErr: ledger.ErrCapacityExceeded},
		{name: "no limit", enforce: true, capacity: 0, students: 5},
		{name: "not enforced", enforce: false, capacity: 1, students: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, func(conf *core.Config) { conf.Ledger.EnforceCapacity = tt.enforce })
			crs := f.env.NewCourse(t, f.dept.ID, testutil.WithCapacity(tt.capacity))
			for i := 0; i < tt.students; i++ {
				f.enroll(t, f.env.NewStudent(t, f.prog.ID).ID, crs)
			}

			_, err := f.env.Ledger.Enroll(ctx, ledger.NewEnrollment{StudentID: f.std.ID, CourseID: crs.ID})
			assert.Equal(t, tt.wantErr, errors.Cause(err))
		})
	}

	t.Run("dropped seats are free", func(t *testing.T) {
		f := setup(t)
		crs := f.env.NewCourse(t, f.dept.ID, testutil.WithCapacity(1))
		other := f.enroll(t, f.env.NewStudent(t, f.prog.ID).ID, crs)

		_, err := f.env.Ledger.UpdateEnrollmentStatus(ctx, other.ID, ledger.StatusDropped)
		require.NoError(t, err)
		mine := f.enroll(t, f.std.ID, crs)

		_, err = f.env.Ledger.UpdateEnrollmentStatus(ctx, other.ID, ledger.StatusEnrolled)
		assert.Equal(t, ledger.ErrCapacityExceeded, errors.Cause(err))
		assert.NotEmpty(t, mine.ID)
	})
}

func TestService_Enroll_Concurrent(t *testing.T) {
	f := setup(t)
	crs := f.env.NewCourse(t, f.dept.ID)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		dupes     int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.env.Ledger.Enroll(ctx, ledger.NewEnrollment{StudentID: f.std.ID, CourseID: crs.ID})
			mu.Lock()
			defer mu.Unlock()
			switch errors.Cause(err) {
			case nil:
				succeeded++
			case ledger.ErrDuplicateEnrollment:
				dupes++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 9, dupes)
}

func TestService_UpdateEnrollmentStatus(t *testing.T) {
	tests := []struct {
		name    string
		enforce bool
		path    []ledger.EnrollmentStatus
		wantErr error
	}{
		{name: "permissive", path: []ledger.EnrollmentStatus{ledger.StatusCompleted, ledger.StatusEnrolled, ledger.StatusDropped, ledger.StatusCompleted}},
		{name: "enforced complete", enforce: true, path: []ledger.EnrollmentStatus{ledger.StatusCompleted}},
		{name: "enforced drop and back", enforce: true, path: []ledger.EnrollmentStatus{ledger.StatusDropped, ledger.StatusEnrolled}},
		{name: "enforced reopen", enforce: true, path: []ledger.EnrollmentStatus{ledger.StatusCompleted, ledger.StatusEnrolled}, wantErr: ledger.ErrInvalidStatusTransition},
		{name: "enforced dropped to completed", enforce: true, path: []ledger.EnrollmentStatus{ledger.StatusDropped, ledger.StatusCompleted}, wantErr: ledger.ErrInvalidStatusTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, func(conf *core.Config) { conf.Ledger.EnforceStatusTransitions = tt.enforce })
			enr := f.enroll(t, f.std.ID, f.env.NewCourse(t, f.dept.ID))

			var err error
			for _, status := range tt.path {
				var updated ledger.Enrollment
				if updated, err = f.env.Ledger.UpdateEnrollmentStatus(ctx, enr.ID, status); err != nil {
					break
				}
				assert.Equal(t, status, updated.Status)
				enr = updated
			}
			assert.Equal(t, tt.wantErr, errors.Cause(err))

			stored, err := f.env.Ledger.GetEnrollment(ctx, enr.ID)
			require.NoError(t, err)
			assert.Equal(t, enr.Status, stored.Status)
		})
	}

	t.Run("errors", func(t *testing.T) {
		f := setup(t)
		_, err := f.env.Ledger.UpdateEnrollmentStatus(ctx, "00000000-0000-0000-0000-000000000000", ledger.StatusDropped)
		assert.Equal(t, ledger.ErrEnrollmentNotFound, errors.Cause(err))

		_, err = f.env.Ledger.UpdateEnrollmentStatus(ctx, "00000000-0000-0000-0000-000000000000", "Graduated")
		var verr *core.ValidationError
		assert.True(t, errors.As(err, &verr))
	})
}

func TestService_ListEnrollments(t *testing.T) {
	f := setup(t)
	c1 := f.env.NewCourse(t, f.dept.ID, testutil.WithTerm("Fall", 2023))
	c2 := f.env.NewCourse(t, f.dept.ID, testutil.WithTerm("Spring", 2024))
	c3 := f.env.NewCourse(t, f.dept.ID, testutil.WithTerm("Fall", 2024))
	c4 := f.env.NewCourse(t, f.dept.ID, testutil.WithTerm("Fall", 2024))
	for _, crs := range []catalog.Course{c1, c2, c4, c3} {
		f.enroll(t, f.std.ID, crs)
	}
	dropped := f.enroll(t, f.env.NewStudent(t, f.prog.ID).ID, c1)
	_, err := f.env.Ledger.UpdateEnrollmentStatus(ctx, dropped.ID, ledger.StatusDropped)
	require.NoError(t, err)

	codes := func(enrs []ledger.Enrollment) []string {
		out := make([]string, 0, len(enrs))
		for _, e := range enrs {
			out = append(out, e.CourseCode)
		}
		return out
	}

	tests := []struct {
		name   string
		filter *ledger.EnrollmentFilter
		want   []string
	}{
		{name: "student", filter: &ledger.EnrollmentFilter{StudentID: f.std.ID}, want: []string{c2.Code, c3.Code, c4.Code, c1.Code}},
		{name: "year", filter: &ledger.EnrollmentFilter{StudentID: f.std.ID, Year: 2024}, want: []string{c2.Code, c3.Code, c4.Code}},
		{name: "term", filter: &ledger.EnrollmentFilter{StudentID: f.std.ID, Term: "Fall"}, want: []string{c3.Code, c4.Code, c1.Code}},
		{name: "course", filter: &ledger.EnrollmentFilter{CourseID: c1.ID}, want: []string{c1.Code, c1.Code}},
		{name: "status", filter: &ledger.EnrollmentFilter{Status: ledger.StatusDropped}, want: []string{c1.Code}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enrs, err := f.env.Ledger.ListEnrollments(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, codes(enrs))
		})
	}
}

func TestService_UpsertGrade(t *testing.T) {
	f := setup(t)
	crs := f.env.NewCourse(t, f.dept.ID, testutil.WithInstructor(f.instructor), testutil.WithCredits(4))
	enr := f.enroll(t, f.std.ID, crs)

	t.Run("create", func(t *testing.T) {
		g := f.grade(t, enr, 84.456)
		assert.Equal(t, null.Float64From(84.46), g.FinalScore)
		assert.Equal(t, null.StringFrom("B"), g.LetterGrade)
		assert.Equal(t, ledger.GradePassed, g.Status)
		assert.Equal(t, null.StringFrom(f.instructor), g.GradedBy)
		assert.Equal(t, 1, g.Version)
		assert.Equal(t, 3.0, f.student(t, f.std.ID).GPA)
		assert.Equal(t, 4, f.student(t, f.std.ID).TotalCredits)
	})

	t.Run("update in place", func(t *testing.T) {
		first, err := f.env.Ledger.GetGradeForEnrollment(ctx, enr.ID)
		require.NoError(t, err)

		g, err := f.env.Ledger.UpsertGrade(ctx, ledger.GradeEntry{
			EnrollmentID: enr.ID,
			FinalScore:   null.Float64From(42),
			Comments:     null.StringFrom("resit"),
			GraderID:     f.instructor,
		})
		require.NoError(t, err)
		assert.Equal(t, first.ID, g.ID)
		assert.Equal(t, null.StringFrom("F"), g.LetterGrade)
		assert.Equal(t, ledger.GradeFailed, g.Status)
		assert.Equal(t, null.StringFrom("resit"), g.Comments)
		assert.Equal(t, first.Version+1, g.Version)
		assert.False(t, g.GradedAt.Before(first.GradedAt))

		std := f.student(t, f.std.ID)
		assert.Equal(t, 0.0, std.GPA)
		assert.Equal(t, 0, std.TotalCredits)
	})

	t.Run("explicit status", func(t *testing.T) {
		g, err := f.env.Ledger.UpsertGrade(ctx, ledger.GradeEntry{EnrollmentID: enr.ID, Status: ledger.GradeIncomplete, GraderID: f.instructor})
		require.NoError(t, err)
		assert.Equal(t, ledger.GradeIncomplete, g.Status)
		assert.False(t, g.FinalScore.Valid)
		assert.False(t, g.LetterGrade.Valid)
	})

	tests := []struct {
		name    string
		entry   ledger.GradeEntry
		wantErr error
	}{
		{
			name:    "unknown enrollment",
			entry:   ledger.GradeEntry{EnrollmentID: "00000000-0000-0000-0000-000000000000", FinalScore: null.Float64From(80), GraderID: f.instructor},
			wantErr: ledger.ErrEnrollmentNotFound,
		},
		{
			name:    "score too high",
			entry:   ledger.GradeEntry{EnrollmentID: enr.ID, FinalScore: null.Float64From(100.01), GraderID: f.instructor},
			wantErr: ledger.ErrScoreOutOfRange,
		},
		{
			name:    "negative score",
			entry:   ledger.GradeEntry{EnrollmentID: enr.ID, FinalScore: null.Float64From(-1), GraderID: f.instructor},
			wantErr: ledger.ErrScoreOutOfRange,
		},
		{
			name:    "no grader",
			entry:   ledger.GradeEntry{EnrollmentID: enr.ID, FinalScore: null.Float64From(80)},
			wantErr: ledger.ErrUnauthorizedGrader,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, err := f.env.Ledger.GetGradeForEnrollment(ctx, enr.ID)
			require.NoError(t, err)

			_, err = f.env.Ledger.UpsertGrade(ctx, tt.entry)
			assert.Equal(t, tt.wantErr, errors.Cause(err))

			after, err := f.env.Ledger.GetGradeForEnrollment(ctx, enr.ID)
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}

func TestService_UpsertGrade_UnauthorizedGrader(t *testing.T) {
	f := setup(t)
	crs := f.env.NewCourse(t, f.dept.ID, testutil.WithInstructor(f.instructor))
	other := f.env.NewFaculty(t, f.dept.ID)
	enr := f.enroll(t, f.std.ID, crs)

	_, err := f.env.Ledger.UpsertGrade(ctx, ledger.GradeEntry{EnrollmentID: enr.ID, FinalScore: null.Float64From(95), GraderID: other.ID})
	assert.Equal(t, ledger.ErrUnauthorizedGrader, errors.Cause(err))

	_, err = f.env.Ledger.GetGradeForEnrollment(ctx, enr.ID)
	assert.Equal(t, ledger.ErrGradeNotFound, errors.Cause(err))
	std := f.student(t, f.std.ID)
	assert.Equal(t, f.std.GPA, std.GPA)
	assert.Equal(t, f.std.TotalCredits, std.TotalCredits)
}

func TestService_UpsertGrade_Idempotent(t *testing.T) {
	f := setup(t)
	enr := f.enroll(t, f.std.ID, f.env.NewCourse(t, f.dept.ID, testutil.WithInstructor(f.instructor)))
	entry := ledger.GradeEntry{
		EnrollmentID: enr.ID,
		FinalScore:   null.Float64From(77),
		Comments:     null.StringFrom("steady work"),
		GraderID:     f.instructor,
	}

	first, err := f.env.Ledger.UpsertGrade(ctx, entry)
	require.NoError(t, err)
	second, err := f.env.Ledger.UpsertGrade(ctx, entry)
	require.NoError(t, err)

	grades, err := f.env.Ledger.ListGrades(ctx, &ledger.GradeFilter{StudentID: f.std.ID})
	require.NoError(t, err)
	require.Len(t, grades, 1)
	assert.Equal(t, first.ID, grades[0].ID)
	assert.Equal(t, second.FinalScore, grades[0].FinalScore)
	assert.Equal(t, second.LetterGrade, grades[0].LetterGrade)
	assert.Equal(t, second.Comments, grades[0].Comments)
	assert.Equal(t, second.Version, grades[0].Version)
}

func TestService_UpsertGrade_Versions(t *testing.T) {
	version := func(v int) *int { return &v }

	tests := []struct {
		name     string
		existing bool
		version  *int
		wantErr  error
	}{
		{name: "first entry, no version", version: nil},
		{name: "first entry, version 0", version: version(0)},
		{name: "first entry, stale version", version: version(1), wantErr: core.ErrConcurrentModification},
		{name: "update, no version", existing: true, version: nil},
		{name: "update, current version", existing: true, version: version(1)},
		{name: "update, version 0", existing: true, version: version(0), wantErr: core.ErrConcurrentModification},
		{name: "update, stale version", existing: true, version: version(7), wantErr: core.ErrConcurrentModification},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			enr := f.enroll(t, f.std.ID, f.env.NewCourse(t, f.dept.ID, testutil.WithInstructor(f.instructor)))
			if tt.existing {
				f.grade(t, enr, 60)
			}

			_, err := f.env.Ledger.UpsertGrade(ctx, ledger.GradeEntry{
				EnrollmentID: enr.ID,
				FinalScore:   null.Float64From(90),
				GraderID:     f.instructor,
				Version:      tt.version,
			})
			assert.Equal(t, tt.wantErr, errors.Cause(err))
			assert.True(t, errors.Is(err, core.ErrConcurrentModification) == (tt.wantErr != nil))
		})
	}
}

func TestService_UpsertGrade_ConcurrentSameVersion(t *testing.T) {
	f := setup(t)
	enr := f.enroll(t, f.std.ID, f.env.NewCourse(t, f.dept.ID, testutil.WithInstructor(f.instructor)))
	g := f.grade(t, enr, 55)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(score float64) {
			defer wg.Done()
			v := g.Version
			_, err := f.env.Ledger.UpsertGrade(ctx, ledger.GradeEntry{
				EnrollmentID: enr.ID,
				FinalScore:   null.Float64From(score),
				GraderID:     f.instructor,
				Version:      &v,
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if errors.Cause(err) == core.ErrConcurrentModification {
				conflicts++
			}
		}(float64(60 + i))
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 7, conflicts)

	stored, err := f.env.Ledger.GetGradeForEnrollment(ctx, enr.ID)
	require.NoError(t, err)
	assert.Equal(t, g.Version+1, stored.Version)
}

func TestService_GPAScenario(t *testing.T) {
	f := setup(t)
	a := f.env.NewCourse(t, f.dept.ID, testutil.WithInstructor(f.instructor), testutil.WithCredits(3))
	b := f.env.NewCourse(t, f.dept.ID, testutil.WithInstructor(f.instructor), testutil.WithCredits(4))

	ga := f.grade(t, f.enroll(t, f.std.ID, a), 92)
	gb := f.grade(t, f.enroll(t, f.std.ID, b), 78)
	assert.Equal(t, null.StringFrom("A"), ga.LetterGrade)
	assert.Equal(t, null.StringFrom("C+"), gb.LetterGrade)

	std := f.student(t, f.std.ID)
	assert.Equal(t, 3.14, std.GPA)
	assert.Equal(t, 7, std.TotalCredits)

	// recalculation is idempotent and agrees with the stored value
	for i := 0; i < 2; i++ {
		st, err := f.env.Ledger.RecalculateGPA(ctx, f.std.ID)
		require.NoError(t, err)
		assert.Equal(t, ledger.Standing{StudentID: f.std.ID, GPA: 3.14, TotalCredits: 7}, st)
	}
	assert.Equal(t, std, f.student(t, f.std.ID))
}

func TestService_RecalculateGPA_NoGradedCredits(t *testing.T) {
	f := setup(t)
	enr := f.enroll(t, f.std.ID, f.env.NewCourse(t, f.dept.ID, testutil.WithInstructor(f.instructor)))
	_, err := f.env.Ledger.UpsertGrade(ctx, ledger.GradeEntry{EnrollmentID: enr.ID, GraderID: f.instructor})
	require.NoError(t, err)

	st, err := f.env.Ledger.RecalculateGPA(ctx, f.std.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, st.GPA)
	assert.Equal(t, 0, st.TotalCredits)

	_, err = f.env.Ledger.RecalculateGPA(ctx, "00000000-0000-0000-0000-000000000000")
	assert.Equal(t, ledger.ErrStudentNotFound, errors.Cause(err))
}

func TestService_RecalculateAll(t *testing.T) {
	f := setup(t)
	crs := f.env.NewCourse(t, f.dept.ID, testutil.WithInstructor(f.instructor))
	f.grade(t, f.enroll(t, f.std.ID, crs), 88)
	f.env.NewStudent(t, f.prog.ID)

	n, err := f.env.Ledger.RecalculateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 3.5, f.student(t, f.std.ID).GPA)
}

func TestService_ConcurrentGradesSameStudent(t *testing.T) {
	f := setup(t)
	scores := []float64{91, 86, 81, 76, 71, 66}
	enrs := make([]ledger.Enrollment, 0, len(scores))
	for range scores {
		crs := f.env.NewCourse(t, f.dept.ID, testutil.WithInstructor(f.instructor), testutil.WithCredits(2))
		enrs = append(enrs, f.enroll(t, f.std.ID, crs))
	}

	var wg sync.WaitGroup
	for i := range scores {
		wg.Add(1)
		go func(enr ledger.Enrollment, score float64) {
			defer wg.Done()
			_, err := f.env.Ledger.UpsertGrade(ctx, ledger.GradeEntry{EnrollmentID: enr.ID, FinalScore: null.Float64From(score), GraderID: f.instructor})
			assert.NoError(t, err)
		}(enrs[i], scores[i])
	}
	wg.Wait()

	// (4.0 + 3.5 + 3.0 + 2.5 + 2.0 + 1.5) * 2 / 12
	std := f.student(t, f.std.ID)
	assert.Equal(t, 2.75, std.GPA)
	assert.Equal(t, 12, std.TotalCredits)
}

func TestService_RecordScores(t *testing.T) {
	f := setup(t)
	enr := f.enroll(t, f.std.ID, f.env.NewCourse(t, f.dept.ID, testutil.WithInstructor(f.instructor)))

	got, err := f.env.Ledger.RecordScores(ctx, enr.ID, f.instructor, ledger.Scores{Midterm: null.Float64From(65.555)})
	require.NoError(t, err)
	assert.Equal(t, null.Float64From(65.56), got.MidtermScore)
	assert.False(t, got.FinalScore.Valid)

	_, err = f.env.Ledger.RecordScores(ctx, enr.ID, f.instructor, ledger.Scores{Final: null.Float64From(101)})
	assert.Equal(t, ledger.ErrScoreOutOfRange, errors.Cause(err))

	_, err = f.env.Ledger.RecordScores(ctx, enr.ID, f.env.NewFaculty(t, f.dept.ID).ID, ledger.Scores{Final: null.Float64From(70)})
	assert.Equal(t, ledger.ErrUnauthorizedGrader, errors.Cause(err))

	stored, err := f.env.Ledger.GetEnrollment(ctx, enr.ID)
	require.NoError(t, err)
	assert.Equal(t, got.MidtermScore, stored.MidtermScore)
}

func TestService_DeleteEnrollment(t *testing.T) {
	f := setup(t)
	a := f.env.NewCourse(t, f.dept.ID, testutil.WithInstructor(f.instructor), testutil.WithCredits(3))
	b := f.env.NewCourse(t, f.dept.ID, testutil.WithInstructor(f.instructor), testutil.WithCredits(3))
	f.grade(t, f.enroll(t, f.std.ID, a), 95)
	enrB := f.enroll(t, f.std.ID, b)
	f.grade(t, enrB, 62)
	assert.Equal(t, 2.5, f.student(t, f.std.ID).GPA)

	require.NoError(t, f.env.Ledger.DeleteEnrollment(ctx, enrB.ID))

	_, err := f.env.Ledger.GetEnrollment(ctx, enrB.ID)
	assert.Equal(t, ledger.ErrEnrollmentNotFound, errors.Cause(err))
	grades, err := f.env.Ledger.ListGrades(ctx, &ledger.GradeFilter{StudentID: f.std.ID})
	require.NoError(t, err)
	assert.Len(t, grades, 1)
	assert.Equal(t, 4.0, f.student(t, f.std.ID).GPA)
}

func TestService_DeleteEnrollment_LastGraded(t *testing.T) {
	f := setup(t)
	crs := f.env.NewCourse(t, f.dept.ID, testutil.WithInstructor(f.instructor), testutil.WithCredits(3))
	enr := f.enroll(t, f.std.ID, crs)
	f.grade(t, enr, 85)
	std := f.student(t, f.std.ID)
	assert.Equal(t, 3.5, std.GPA)
	assert.Equal(t, 3, std.TotalCredits)

	require.NoError(t, f.env.Ledger.DeleteEnrollment(ctx, enr.ID))

	// no graded credits left: the GPA is kept, the credits are not
	std = f.student(t, f.std.ID)
	assert.Equal(t, 3.5, std.GPA)
	assert.Equal(t, 0, std.TotalCredits)
}

func TestService_AssignProgramCourses(t *testing.T) {
	f := setup(t)
	c1 := f.env.NewCourse(t, f.dept.ID)
	c2 := f.env.NewCourse(t, f.dept.ID, testutil.WithCapacity(1))
	c3 := f.env.NewCourse(t, f.dept.ID, testutil.Inactive())
	f.env.NewCourse(t, f.dept.ID) // not in the program
	for _, crs := range []catalog.Course{c1, c2, c3} {
		_, err := f.env.Catalog.AssignCourse(ctx, f.prog.ID, catalog.ProgramCourseInput{CourseID: crs.ID})
		require.NoError(t, err)
	}
	f.enroll(t, f.env.NewStudent(t, f.prog.ID).ID, c2) // fills c2

	res, err := f.env.Ledger.AssignProgramCourses(ctx, f.std.ID)
	require.NoError(t, err)
	require.Len(t, res.Enrolled, 1)
	assert.Equal(t, c1.ID, res.Enrolled[0].CourseID)
	assert.Equal(t, 1, res.Skipped)

	res, err = f.env.Ledger.AssignProgramCourses(ctx, f.std.ID)
	require.NoError(t, err)
	assert.Empty(t, res.Enrolled)
	assert.Equal(t, 2, res.Skipped)
}

func TestCourseDeleteWithEnrollments(t *testing.T) {
	f := setup(t)
	crs := f.env.NewCourse(t, f.dept.ID)
	enr := f.enroll(t, f.std.ID, crs)
	_, err := f.env.Ledger.UpdateEnrollmentStatus(ctx, enr.ID, ledger.StatusDropped)
	require.NoError(t, err)

	err = f.env.Catalog.DeleteCourse(ctx, crs.ID)
	assert.True(t, errors.Is(err, core.ErrDependentRecordsExist))
	var derr *core.DependentRecordsError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, 1, derr.Count)

	_, err = f.env.Catalog.GetCourse(ctx, crs.ID)
	assert.NoError(t, err)
	_, err = f.env.Ledger.GetEnrollment(ctx, enr.ID)
	assert.NoError(t, err)
}

func TestStudentDelete(t *testing.T) {
	f := setup(t)
	crs := f.env.NewCourse(t, f.dept.ID, testutil.WithInstructor(f.instructor))
	f.grade(t, f.enroll(t, f.std.ID, crs), 70)

	err := f.env.Students.Delete(ctx, f.std.ID, false)
	assert.True(t, errors.Is(err, core.ErrDependentRecordsExist))
	_, err = f.env.Students.Get(ctx, f.std.ID)
	require.NoError(t, err)

	require.NoError(t, f.env.Students.Delete(ctx, f.std.ID, true))
	_, err = f.env.Students.Get(ctx, f.std.ID)
	assert.Equal(t, student.ErrNotFound, errors.Cause(err))
	enrs, err := f.env.Ledger.ListEnrollments(ctx, &ledger.EnrollmentFilter{CourseID: crs.ID})
	require.NoError(t, err)
	assert.Empty(t, enrs)
	grades, err := f.env.Ledger.ListGrades(ctx, &ledger.GradeFilter{CourseID: crs.ID})
	require.NoError(t, err)
	assert.Empty(t, grades)
	_, err = f.env.Users.GetByID(ctx, f.std.UserID)
	assert.Error(t, err)
}
