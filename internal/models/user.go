package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleTeacher UserRole = "TEACHER"
	RoleStudent UserRole = "STUDENT"
)

// Valid returns true when the role is a supported value.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	default:
		return false
	}
}

// ApprovalState gates student login eligibility.
type ApprovalState string

const (
	ApprovalPending  ApprovalState = "PENDING"
	ApprovalApproved ApprovalState = "APPROVED"
	ApprovalRejected ApprovalState = "REJECTED"
)

// Valid returns true when the state is a supported value.
func (s ApprovalState) Valid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	default:
		return false
	}
}

// User represents any actor stored in the users table. Role-specific
// fields stay nullable; the single-table layout is validated by Validate.
type User struct {
	ID              string        `db:"id" json:"id"`
	Username        string        `db:"username" json:"username"`
	Email           string        `db:"email" json:"email"`
	PasswordHash    string        `db:"password_hash" json:"-"`
	FirstName       string        `db:"first_name" json:"first_name"`
	LastName        string        `db:"last_name" json:"last_name"`
	Role            UserRole      `db:"role" json:"role"`
	ApprovalState   ApprovalState `db:"approval_state" json:"approval_state"`
	RejectionReason *string       `db:"rejection_reason" json:"rejection_reason,omitempty"`
	GroupID         *string       `db:"group_id" json:"group_id,omitempty"`
	StudentNumber   *string       `db:"student_number" json:"student_number,omitempty"`
	Program         *string       `db:"program" json:"program,omitempty"`
	Semester        *int          `db:"semester" json:"semester,omitempty"`
	Phone           *string       `db:"phone" json:"phone,omitempty"`
	PicturePath     *string       `db:"picture_path" json:"picture_path,omitempty"`
	LastLogin       *time.Time    `db:"last_login" json:"last_login,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// Validate enforces the single cross-role invariant: only students carry
// a group reference or a non-approved state.
func (u *User) Validate() error {
	if !u.Role.Valid() {
		return ErrInvalidRole
	}
	if u.Role != RoleStudent {
		if u.GroupID != nil {
			return ErrNonStudentGroup
		}
		if u.ApprovalState != ApprovalApproved {
			return ErrNonStudentApproval
		}
	}
	if !u.ApprovalState.Valid() {
		return ErrInvalidApprovalState
	}
	return nil
}

// FullName joins the name parts for display.
func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role          *UserRole
	ApprovalState *ApprovalState
	GroupID       string
	Search        string
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
