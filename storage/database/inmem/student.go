package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/academia/sims/core"
	"github.com/academia/sims/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) codeTaken(code, excludedID string) bool {
	for _, s := range repo.db.tables.students {
		if s.ID != excludedID && strings.EqualFold(s.Code, code) {
			return true
		}
	}
	return false
}

func (repo *studentRepository) CreateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	defer repo.db.lock(ctx)()

	if repo.codeTaken(std.Code, "") {
		return student.Student{}, student.ErrCodeExists
	}
	std.ID = uuid.New().String()
	repo.db.tables.students[std.ID] = std
	return std, nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, filter student.GetFilter) (student.Student, error) {
	defer repo.db.lock(ctx)()

	if filter.ID != "" {
		if std, ok := repo.db.tables.students[filter.ID]; ok {
			return std, nil
		}
		return student.Student{}, student.ErrNotFound
	}
	for _, std := range repo.db.tables.students {
		if (filter.UserID != "" && std.UserID == filter.UserID) || (filter.Code != "" && std.Code == filter.Code) {
			return std, nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) QueryStudents(ctx context.Context, filter *student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	defer repo.db.lock(ctx)()

	stds := make([]student.Student, 0, len(repo.db.tables.students))
	for _, s := range repo.db.tables.students {
		if filter != nil {
			if filter.Search != "" && !contains(filter.Search, s.Code, s.FullName) {
				continue
			}
			if filter.ProgramID != "" && s.ProgramID != filter.ProgramID {
				continue
			}
			if filter.DepartmentID != "" && s.DepartmentID.String != filter.DepartmentID {
				continue
			}
			if filter.Status != "" && s.Status != filter.Status {
				continue
			}
		}
		stds = append(stds, s)
	}

	sort.SliceStable(stds, func(i, j int) bool {
		for _, ord := range ordering {
			c := compareStudents(stds[i], stds[j], ord.Field)
			if c == 0 {
				continue
			}
			return (c < 0) == ord.Ascending
		}
		return stds[i].Code < stds[j].Code
	})
	return stds, nil
}

func compareStudents(a, b student.Student, field string) int {
	switch field {
	case "code":
		return strings.Compare(a.Code, b.Code)
	case "full_name":
		return strings.Compare(a.FullName, b.FullName)
	case "gpa":
		switch {
		case a.GPA < b.GPA:
			return -1
		case a.GPA > b.GPA:
			return 1
		}
	case "admission_date":
		return a.AdmissionDate.Compare(b.AdmissionDate)
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	}
	return 0
}

// UpdateStudent keeps the stored standing; it is only written by UpdateStudentStanding.
func (repo *studentRepository) UpdateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	defer repo.db.lock(ctx)()

	orig, ok := repo.db.tables.students[std.ID]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	if repo.codeTaken(std.Code, std.ID) {
		return student.Student{}, student.ErrCodeExists
	}
	std.GPA, std.TotalCredits = orig.GPA, orig.TotalCredits
	repo.db.tables.students[std.ID] = std
	return std, nil
}

func (repo *studentRepository) CountStudentEnrollments(ctx context.Context, id string) (int, error) {
	defer repo.db.lock(ctx)()

	var n int
	for _, enr := range repo.db.tables.enrollments {
		if enr.StudentID == id {
			n++
		}
	}
	return n, nil
}

func (repo *studentRepository) DeleteStudent(ctx context.Context, id string) error {
	defer repo.db.lock(ctx)()

	for gID, g := range repo.db.tables.grades {
		if g.StudentID == id {
			delete(repo.db.tables.grades, gID)
		}
	}
	for eID, enr := range repo.db.tables.enrollments {
		if enr.StudentID == id {
			delete(repo.db.tables.enrollments, eID)
		}
	}
	delete(repo.db.tables.students, id)
	return nil
}

func (repo *studentRepository) CountStudents(ctx context.Context) (int, error) {
	defer repo.db.lock(ctx)()
	return len(repo.db.tables.students), nil
}
