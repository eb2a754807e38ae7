package transcriptsvc

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/academia/sims/core"
	"github.com/academia/sims/core/transcript"
	"github.com/academia/sims/services/logger"
)

func newSource(t *testing.T, files map[string]string) *LegacySource {
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), &core.Config{Debug: true})
	return NewLegacySource(dir, logger)
}

func TestLegacySource_ExternalGrades(t *testing.T) {
	src := newSource(t, map[string]string{
		"STU001.txt": "# legacy export\n" +
			"MTH100|Calculus I|91.5|Fall 2019\n" +
			"PHY100|Physics I||Fall 2019\n" +
			"\n" +
			"bad line\n" +
			"CHM100|Chemistry|abc|Spring 2020\n" +
			"BIO100|Biology|120|Spring 2020\n" +
			"ENG100 | English | 49.996 | Spring 2020\n",
	})

	tests := []struct {
		name        string
		studentCode string
		want        []transcript.ExternalGrade
	}{
		{name: "missing file", studentCode: "STU999", want: nil},
		{name: "path traversal", studentCode: "../STU001", want: nil},
		{name: "empty code", studentCode: "", want: nil},
		{
			name:        "parsed lines",
			studentCode: "STU001",
			want: []transcript.ExternalGrade{
				{CourseCode: "MTH100", CourseName: "Calculus I", Score: null.Float64From(91.5), LetterGrade: null.StringFrom("A"), Term: "Fall 2019"},
				{CourseCode: "PHY100", CourseName: "Physics I", Term: "Fall 2019"},
				{CourseCode: "ENG100", CourseName: "English", Score: null.Float64From(50), LetterGrade: null.StringFrom("E"), Term: "Spring 2020"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := src.ExternalGrades(context.Background(), tt.studentCode)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLegacySource_NoDir(t *testing.T) {
	src := NewLegacySource("", nil)
	got, err := src.ExternalGrades(context.Background(), "STU001")
	assert.NoError(t, err)
	assert.Nil(t, got)
}
