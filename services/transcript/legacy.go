package transcriptsvc

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/academia/sims/core"
	"github.com/academia/sims/core/gradescale"
	"github.com/academia/sims/core/transcript"
)

// LegacySource reads the grade exports of the previous records system: one file per student,
// <dir>/<studentCode>.txt, with lines of the form CODE|Course Name|Score|Term.
type LegacySource struct {
	dir    string
	logger core.Logger
}

var _ transcript.Source = (*LegacySource)(nil)

func NewLegacySource(dir string, logger core.Logger) *LegacySource {
	return &LegacySource{dir: dir, logger: logger}
}

func (src *LegacySource) ExternalGrades(ctx context.Context, studentCode string) ([]transcript.ExternalGrade, error) {
	if src.dir == "" || studentCode == "" || strings.ContainsAny(studentCode, `/\.`) {
		return nil, nil
	}

	f, err := os.Open(filepath.Join(src.dir, studentCode+".txt"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "opening legacy grades")
	}
	defer f.Close()

	grades := make([]transcript.ExternalGrade, 0)
	scanner := bufio.NewScanner(f)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		g, ok := parseLine(line)
		if !ok {
			src.logger.Warn("skipping malformed legacy grade line", map[string]interface{}{
				"student": studentCode,
				"line":    lineNo,
			})
			continue
		}
		grades = append(grades, g)
	}
	if err = scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading legacy grades")
	}
	return grades, nil
}

// parseLine reads CODE|Course Name|Score|Term. An empty score is recorded as absent.
func parseLine(line string) (transcript.ExternalGrade, bool) {
	parts := strings.Split(line, "|")
	if len(parts) != 4 {
		return transcript.ExternalGrade{}, false
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if parts[0] == "" {
		return transcript.ExternalGrade{}, false
	}

	var score null.Float64
	if parts[2] != "" {
		v, err := strconv.ParseFloat(parts[2], 64)
		if err != nil || !gradescale.InRange(v) {
			return transcript.ExternalGrade{}, false
		}
		score = null.Float64From(gradescale.Round(v))
	}
	return transcript.ExternalGrade{
		CourseCode:  parts[0],
		CourseName:  parts[1],
		Score:       score,
		LetterGrade: gradescale.Letter(score),
		Term:        parts[3],
	}, true
}
