package student

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/academia/sims/core"
	"github.com/academia/sims/core/user"
)

type Status string

const (
	StatusActive    Status = "Active"
	StatusInactive  Status = "Inactive"
	StatusGraduated Status = "Graduated"
	StatusSuspended Status = "Suspended"
	StatusWithdrawn Status = "Withdrawn"
)

var Statuses = []Status{StatusActive, StatusInactive, StatusGraduated, StatusSuspended, StatusWithdrawn}

func (s Status) Valid() bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

// Student is the academic record of a user holding the student role.
// GPA and TotalCredits are derived from the student's grades and only written by the ledger.
type Student struct {
	ID            string      `json:"id" db:"id"`
	UserID        string      `json:"user_id" db:"user_id"`
	Code          string      `json:"code" db:"code"`
	FullName      string      `json:"full_name" db:"full_name"`
	ProgramID     string      `json:"program_id" db:"program_id"`
	DepartmentID  null.String `json:"department_id" db:"department_id"`
	AdmissionDate time.Time   `json:"admission_date" db:"admission_date"`
	AdmissionType null.String `json:"admission_type" db:"admission_type"`
	GPA           float64     `json:"gpa" db:"gpa"`
	TotalCredits  int         `json:"total_credits" db:"total_credits"`
	Status        Status      `json:"status" db:"status"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at" db:"updated_at"`
}

// NewStudent holds what is needed to register a student together with their login account.
type NewStudent struct {
	Account       user.NewUser `json:"account"`
	Code          string       `json:"code" validate:"required,max=20,code"`
	ProgramID     string       `json:"program_id" validate:"required,uuid"`
	DepartmentID  null.String  `json:"department_id"`
	AdmissionDate time.Time    `json:"admission_date"`
	AdmissionType null.String  `json:"admission_type"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Account.Clean()
	ns.Account.Roles = user.StudentRoles
	ns.Code = core.CleanString(ns.Code)
	if ns.AdmissionDate.IsZero() {
		ns.AdmissionDate = time.Now().UTC()
	}
	return validate.Struct(ns)
}

// UpdateStudent holds the editable academic fields of a Student.
type UpdateStudent struct {
	FullName      string      `json:"full_name" validate:"required,max=100"`
	Code          string      `json:"code" validate:"required,max=20,code"`
	ProgramID     string      `json:"program_id" validate:"required,uuid"`
	DepartmentID  null.String `json:"department_id"`
	AdmissionType null.String `json:"admission_type"`
	Status        Status      `json:"status" validate:"required,studentstatus"`
}

func (us *UpdateStudent) Validate(validate *validator.Validate) error {
	us.FullName = core.CleanString(us.FullName)
	us.Code = core.CleanString(us.Code)
	return validate.Struct(us)
}

type QueryFilter struct {
	Search       string `query:"search"`
	ProgramID    string `query:"program_id"`
	DepartmentID string `query:"department_id"`
	Status       Status `query:"status"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// GetFilter selects a single Student. The first non-empty field wins.
type GetFilter struct {
	ID     string
	UserID string
	Code   string
}
