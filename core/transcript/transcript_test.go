package transcript_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/academia/sims/core"
	"github.com/academia/sims/core/ledger"
	"github.com/academia/sims/core/student"
	"github.com/academia/sims/core/transcript"
	"github.com/academia/sims/testutil"
)

func TestService_ForStudent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	env := testutil.NewEnv(t, func(conf *core.Config) { conf.Transcript.LegacyDir = dir })

	dept := env.NewDepartment(t)
	prog := env.NewProgram(t, dept.ID)
	fac := env.NewFaculty(t, dept.ID)
	std := env.NewStudent(t, prog.ID)
	fresh := env.NewStudent(t, prog.ID)
	crs := env.NewCourse(t, dept.ID, testutil.WithInstructor(fac.ID))

	enr, err := env.Ledger.Enroll(ctx, ledger.NewEnrollment{StudentID: std.ID, CourseID: crs.ID})
	require.NoError(t, err)
	_, err = env.Ledger.UpsertGrade(ctx, ledger.GradeEntry{EnrollmentID: enr.ID, FinalScore: null.Float64From(71), GraderID: fac.ID})
	require.NoError(t, err)

	legacy := "# exported from the old registry\n" +
		"OLD100|Old Algebra|88.5|Fall 2019\n" +
		"broken line\n" +
		"OLD200|Old Seminar||Spring 2020\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, std.Code+".txt"), []byte(legacy), 0o600))

	tr, err := env.Transcripts.ForStudent(ctx, std.ID)
	require.NoError(t, err)
	assert.Equal(t, std.ID, tr.Student.ID)
	require.Len(t, tr.Grades, 1)
	assert.Equal(t, null.StringFrom("C"), tr.Grades[0].LetterGrade)
	assert.Equal(t, []transcript.ExternalGrade{
		{CourseCode: "OLD100", CourseName: "Old Algebra", Score: null.Float64From(88.5), LetterGrade: null.StringFrom("B+"), Term: "Fall 2019"},
		{CourseCode: "OLD200", CourseName: "Old Seminar", Term: "Spring 2020"},
	}, tr.External)

	tr, err = env.Transcripts.ForStudent(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Empty(t, tr.Grades)
	assert.NotNil(t, tr.External)
	assert.Empty(t, tr.External)

	_, err = env.Transcripts.ForStudent(ctx, "00000000-0000-0000-0000-000000000000")
	assert.Equal(t, student.ErrNotFound, errors.Cause(err))
}
