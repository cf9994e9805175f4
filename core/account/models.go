package account

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/darien/gradebook/core"
)

// Roles
const (
	RoleOwner   = "owner"
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// StaffRoles are the roles a StaffUser may hold.
var StaffRoles = []string{RoleAdmin, RoleTeacher}

func HashPassword(pwd string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether pwd matches the stored bcrypt hash.
// Garbled or empty hashes never match.
func CheckPassword(hash, pwd string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pwd)) == nil
}

// Owner is a platform-level super-admin. Not scoped to any center.
type Owner struct {
	ID           int64     `json:"id" db:"id"`
	FullName     string    `json:"full_name" db:"full_name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type Staff struct {
	ID           int64  `json:"id" db:"id"`
	CenterID     int64  `json:"center_id" db:"center_id"`
	FullName     string `json:"full_name" db:"full_name"`
	Email        string `json:"email" db:"email"`
	Role         string `json:"role" db:"role"`
	PasswordHash string `json:"-" db:"password_hash"`
}

func (s *Staff) SetPassword(pwd string) error {
	hash, err := HashPassword(pwd)
	if err != nil {
		return err
	}
	s.PasswordHash = hash
	return nil
}

func (s Staff) IsAdmin() bool   { return s.Role == RoleAdmin }
func (s Staff) IsTeacher() bool { return s.Role == RoleTeacher }

// StudentAccount is the login of a student. FullName & ClassName are joined from the student row.
type StudentAccount struct {
	ID           int64  `json:"id" db:"id"`
	CenterID     int64  `json:"center_id" db:"center_id"`
	StudentID    int64  `json:"student_id" db:"student_id"`
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password_hash"`
	FullName     string `json:"full_name" db:"full_name"`
	ClassName    string `json:"class_name" db:"class_name"`
}

// StudentEmail is the deterministic synthetic login of an auto-provisioned student.
func StudentEmail(studentID int64, domain string) string {
	return fmt.Sprintf("student%d@%s", studentID, domain)
}

// NewOwner contains information needed to create a new Owner.
type NewOwner struct {
	FullName string `json:"full_name" validate:"required,notblank"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (no *NewOwner) Validate(validate *validator.Validate) error {
	no.FullName = core.CleanString(no.FullName)
	no.Email = core.CleanString(no.Email, true /* lower */)
	return validate.Struct(no)
}

// NewStaff contains information needed to create a new StaffUser.
// An empty Password provisions the account with the shared password.
type NewStaff struct {
	FullName string `json:"full_name" validate:"required,notblank"`
	Email    string `json:"email" validate:"required,email"`
	Role     string `json:"role" validate:"required,staffrole"`
	Password string `json:"password"`
}

func (ns *NewStaff) Validate(validate *validator.Validate) error {
	ns.FullName = core.CleanString(ns.FullName)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Role = core.CleanString(ns.Role, true /* lower */)
	return validate.Struct(ns)
}

// UpdateStaff defines what information may be provided to modify an existing StaffUser.
// Blank fields keep their current value.
type UpdateStaff struct {
	FullName string `json:"full_name"`
	Email    string `json:"email" validate:"omitempty,email"`
	Role     string `json:"role" validate:"omitempty,staffrole"`
	Password string `json:"password"`
}

func (us *UpdateStaff) Validate(orig Staff, validate *validator.Validate) error {
	if name := core.CleanString(us.FullName); name != "" {
		us.FullName = name
	} else {
		us.FullName = orig.FullName
	}
	if email := core.CleanString(us.Email, true /* lower */); email != "" {
		us.Email = email
	} else {
		us.Email = orig.Email
	}
	if role := core.CleanString(us.Role, true /* lower */); role != "" {
		us.Role = role
	} else {
		us.Role = orig.Role
	}
	return validate.Struct(us)
}
