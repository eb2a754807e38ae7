package faculty

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/academia/sims/core"
	"github.com/academia/sims/core/user"
)

// Faculty is the staff record of a user holding the faculty role.
type Faculty struct {
	ID             string      `json:"id" db:"id"`
	UserID         string      `json:"user_id" db:"user_id"`
	EmployeeCode   string      `json:"employee_code" db:"employee_code"`
	FullName       string      `json:"full_name" db:"full_name"`
	DepartmentID   null.String `json:"department_id" db:"department_id"`
	Qualification  null.String `json:"qualification" db:"qualification"`
	Specialization null.String `json:"specialization" db:"specialization"`
	Position       null.String `json:"position" db:"position"`
	OfficeLocation null.String `json:"office_location" db:"office_location"`
	HireDate       null.Time   `json:"hire_date" db:"hire_date"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
}

// Profile holds the editable fields shared by NewFaculty and UpdateFaculty.
type Profile struct {
	EmployeeCode   string      `json:"employee_code" validate:"required,max=20,code"`
	DepartmentID   null.String `json:"department_id"`
	Qualification  null.String `json:"qualification"`
	Specialization null.String `json:"specialization"`
	Position       null.String `json:"position"`
	OfficeLocation null.String `json:"office_location"`
	HireDate       null.Time   `json:"hire_date"`
}

func (p *Profile) clean() {
	p.EmployeeCode = core.CleanString(p.EmployeeCode)
	if p.DepartmentID.Valid && core.CleanString(p.DepartmentID.String) == "" {
		p.DepartmentID = null.String{}
	}
}

type NewFaculty struct {
	Account user.NewUser `json:"account"`
	Profile
}

func (nf *NewFaculty) Validate(validate *validator.Validate) error {
	nf.Account.Clean()
	nf.Account.Roles = user.FacultyRoles
	nf.clean()
	return validate.Struct(nf)
}

type UpdateFaculty struct {
	FullName string `json:"full_name" validate:"required,max=100"`
	Profile
}

func (uf *UpdateFaculty) Validate(validate *validator.Validate) error {
	uf.FullName = core.CleanString(uf.FullName)
	uf.clean()
	return validate.Struct(uf)
}

type QueryFilter struct {
	Search       string `query:"search"`
	DepartmentID string `query:"department_id"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// GetFilter selects a single Faculty. The first non-empty field wins.
type GetFilter struct {
	ID     string
	UserID string
}
