package models

import "time"

type UserRole string

const (
	RoleSuperAdmin      UserRole = "super_admin"
	RoleAdmin           UserRole = "admin"
	RoleUniversityAdmin UserRole = "university_admin"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleUniversityAdmin:
		return true
	}
	return false
}

type AdminAccount struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         UserRole  `json:"role"`
	UniversityID string    `json:"university_id,omitempty"`
	PasswordHash string    `json:"password_hash,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Public strips the password hash before the account leaves the service layer.
func (a AdminAccount) Public() AdminAccount {
	a.PasswordHash = ""
	return a
}

type AdminRequestStatus string

const (
	AdminRequestPending  AdminRequestStatus = "pending"
	AdminRequestApproved AdminRequestStatus = "approved"
	AdminRequestRejected AdminRequestStatus = "rejected"
)

// Decided reports whether the request reached a terminal state.
func (s AdminRequestStatus) Decided() bool {
	return s == AdminRequestApproved || s == AdminRequestRejected
}

type AdminRequest struct {
	ID            string             `json:"id"`
	Email         string             `json:"email"`
	Name          string             `json:"name"`
	UniversityID  string             `json:"university_id,omitempty"`
	RequestedRole UserRole           `json:"requested_role"`
	Reason        string             `json:"reason,omitempty"`
	PasswordHash  string             `json:"password_hash,omitempty"`
	Status        AdminRequestStatus `json:"status"`
	ReviewedBy    string             `json:"reviewed_by,omitempty"`
	ReviewNote    string             `json:"review_note,omitempty"`
	ReviewedAt    *time.Time         `json:"reviewed_at,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

func (r AdminRequest) Public() AdminRequest {
	r.PasswordHash = ""
	return r
}
