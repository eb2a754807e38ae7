package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/academia/sims/core/faculty"
)

type facultyRepository struct {
	db *DB
}

var _ faculty.Repository = (*facultyRepository)(nil) // interface compliance check

func NewFacultyRepository(db *DB) *facultyRepository {
	return &facultyRepository{db: db}
}

func (repo *facultyRepository) codeTaken(code, excludedID string) bool {
	for _, f := range repo.db.tables.faculty {
		if f.ID != excludedID && strings.EqualFold(f.EmployeeCode, code) {
			return true
		}
	}
	return false
}

func (repo *facultyRepository) CreateFaculty(ctx context.Context, fac faculty.Faculty) (faculty.Faculty, error) {
	defer repo.db.lock(ctx)()

	if repo.codeTaken(fac.EmployeeCode, "") {
		return faculty.Faculty{}, faculty.ErrEmployeeCodeExists
	}
	fac.ID = uuid.New().String()
	repo.db.tables.faculty[fac.ID] = fac
	return fac, nil
}

func (repo *facultyRepository) GetFaculty(ctx context.Context, filter faculty.GetFilter) (faculty.Faculty, error) {
	defer repo.db.lock(ctx)()

	if filter.ID != "" {
		if fac, ok := repo.db.tables.faculty[filter.ID]; ok {
			return fac, nil
		}
		return faculty.Faculty{}, faculty.ErrNotFound
	}
	for _, fac := range repo.db.tables.faculty {
		if filter.UserID != "" && fac.UserID == filter.UserID {
			return fac, nil
		}
	}
	return faculty.Faculty{}, faculty.ErrNotFound
}

func (repo *facultyRepository) QueryFaculty(ctx context.Context, filter *faculty.QueryFilter) ([]faculty.Faculty, error) {
	defer repo.db.lock(ctx)()

	facs := make([]faculty.Faculty, 0, len(repo.db.tables.faculty))
	for _, f := range repo.db.tables.faculty {
		if filter != nil {
			if filter.Search != "" && !contains(filter.Search, f.EmployeeCode, f.FullName) {
				continue
			}
			if filter.DepartmentID != "" && f.DepartmentID.String != filter.DepartmentID {
				continue
			}
		}
		facs = append(facs, f)
	}
	sort.Slice(facs, func(i, j int) bool { return facs[i].FullName < facs[j].FullName })
	return facs, nil
}

func (repo *facultyRepository) UpdateFaculty(ctx context.Context, fac faculty.Faculty) (faculty.Faculty, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.tables.faculty[fac.ID]; !ok {
		return faculty.Faculty{}, faculty.ErrNotFound
	}
	if repo.codeTaken(fac.EmployeeCode, fac.ID) {
		return faculty.Faculty{}, faculty.ErrEmployeeCodeExists
	}
	repo.db.tables.faculty[fac.ID] = fac
	return fac, nil
}

func (repo *facultyRepository) CountCoursesTaught(ctx context.Context, id string) (int, error) {
	defer repo.db.lock(ctx)()

	var n int
	for _, c := range repo.db.tables.courses {
		if c.TaughtBy(id) {
			n++
		}
	}
	return n, nil
}

func (repo *facultyRepository) DeleteFaculty(ctx context.Context, id string) error {
	defer repo.db.lock(ctx)()

	for gID, g := range repo.db.tables.grades {
		if g.GradedBy.Valid && g.GradedBy.String == id {
			g.GradedBy = null.String{}
			repo.db.tables.grades[gID] = g
		}
	}
	delete(repo.db.tables.faculty, id)
	return nil
}

func (repo *facultyRepository) CountFaculty(ctx context.Context) (int, error) {
	defer repo.db.lock(ctx)()
	return len(repo.db.tables.faculty), nil
}
