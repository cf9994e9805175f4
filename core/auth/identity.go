// Package auth resolves a login against the owner, staff & student tiers and keeps
// the resulting sessions.
package auth

import (
	"context"
	"crypto/subtle"

	"github.com/pkg/errors"

	"github.com/darien/gradebook/core"
	"github.com/darien/gradebook/core/account"
)

// ErrInvalidCredentials is the only failure a login surfaces. It never tells which tier or field was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Identity kinds
const (
	KindOwner   = "owner"
	KindStaff   = "staff"
	KindStudent = "student"
)

// Identity is the authenticated principal of a session.
type Identity struct {
	Kind      string `json:"kind"`
	Role      string `json:"role"`
	ID        int64  `json:"id"`
	StudentID int64  `json:"student_id,omitempty"`
	CenterID  int64  `json:"center_id"`
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	ClassName string `json:"class_name,omitempty"`
}

func (i Identity) IsOwner() bool   { return i.Role == account.RoleOwner }
func (i Identity) IsAdmin() bool   { return i.Role == account.RoleAdmin }
func (i Identity) IsTeacher() bool { return i.Role == account.RoleTeacher }
func (i Identity) IsStudent() bool { return i.Role == account.RoleStudent }

// HasRole reports whether the identity holds one of roles. Owners hold every role but student.
func (i Identity) HasRole(roles ...string) bool {
	for _, r := range roles {
		if i.Role == r || (i.IsOwner() && r != account.RoleStudent) {
			return true
		}
	}
	return false
}

// Policy decides which roles may log in with the center-wide shared password.
// Owners & admins are always held to their own password hash, whatever AllowSharedSecret says.
type Policy struct {
	SharedPassword    string
	AllowSharedSecret map[string]bool
}

func NewPolicy(conf *core.Config) Policy {
	return Policy{
		SharedPassword: conf.Auth.SharedPassword,
		AllowSharedSecret: map[string]bool{
			account.RoleTeacher: conf.Auth.TeacherSharedPassword,
			account.RoleStudent: conf.Auth.StudentSharedPassword,
		},
	}
}

func (p Policy) acceptsSharedSecret(role, pwd string) bool {
	if role == account.RoleOwner || role == account.RoleAdmin {
		return false
	}
	if p.SharedPassword == "" || !p.AllowSharedSecret[role] {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(pwd), []byte(p.SharedPassword)) == 1
}

// verify checks pwd against hash, then against the shared password if role is allowed to use it.
func (p Policy) verify(role, hash, pwd string) bool {
	return account.CheckPassword(hash, pwd) || p.acceptsSharedSecret(role, pwd)
}

// Repository is the subset of account.Repository the resolver reads.
type Repository interface {
	GetOwnerByEmail(ctx context.Context, email string) (account.Owner, error)
	GetStaffByEmail(ctx context.Context, centerID int64, email string) (account.Staff, error)
	GetStudentAccountByEmail(ctx context.Context, centerID int64, email string) (account.StudentAccount, error)
}

type Resolver struct {
	repo   Repository
	policy Policy
}

func NewResolver(repo Repository, policy Policy) *Resolver {
	return &Resolver{repo: repo, policy: policy}
}

// Authenticate resolves (email, pwd) within centerID. Tiers are tried in order:
// owner (global), staff of the center, student accounts of the center.
// A password mismatch in one tier falls through to the next.
func (r *Resolver) Authenticate(ctx context.Context, email, pwd string, centerID int64) (Identity, error) {
	email = core.CleanString(email, true /* lower */)
	if email == "" || pwd == "" {
		return Identity{}, ErrInvalidCredentials
	}

	own, err := r.repo.GetOwnerByEmail(ctx, email)
	switch {
	case err == nil:
		if r.policy.verify(account.RoleOwner, own.PasswordHash, pwd) {
			return Identity{
				Kind:     KindOwner,
				Role:     account.RoleOwner,
				ID:       own.ID,
				CenterID: centerID,
				FullName: own.FullName,
				Email:    own.Email,
			}, nil
		}
	case errors.Cause(err) != account.ErrNotFound:
		return Identity{}, errors.Wrap(err, "looking up owner")
	}

	stf, err := r.repo.GetStaffByEmail(ctx, centerID, email)
	switch {
	case err == nil:
		if r.policy.verify(stf.Role, stf.PasswordHash, pwd) {
			return Identity{
				Kind:     KindStaff,
				Role:     stf.Role,
				ID:       stf.ID,
				CenterID: stf.CenterID,
				FullName: stf.FullName,
				Email:    stf.Email,
			}, nil
		}
	case errors.Cause(err) != account.ErrNotFound:
		return Identity{}, errors.Wrap(err, "looking up staff")
	}

	sa, err := r.repo.GetStudentAccountByEmail(ctx, centerID, email)
	switch {
	case err == nil:
		if r.policy.verify(account.RoleStudent, sa.PasswordHash, pwd) {
			return Identity{
				Kind:      KindStudent,
				Role:      account.RoleStudent,
				ID:        sa.ID,
				StudentID: sa.StudentID,
				CenterID:  sa.CenterID,
				FullName:  sa.FullName,
				Email:     sa.Email,
				ClassName: sa.ClassName,
			}, nil
		}
	case errors.Cause(err) != account.ErrNotFound:
		return Identity{}, errors.Wrap(err, "looking up student account")
	}

	return Identity{}, ErrInvalidCredentials
}
