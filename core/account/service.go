package account

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/darien/gradebook/core"
)

var (
	// errors
	ErrNotFound       = errors.New("account not found")
	ErrEmailExists    = errors.New("an account with this email already exists")
	ErrCannotDemote   = errors.New("cannot change the role of the last admin")
	ErrLastAdmin      = errors.New("cannot delete the last admin")
	ErrNoSharedSecret = errors.New("shared password is not configured")
)

type (
	Repository interface {
		CreateOwner(ctx context.Context, o Owner) (Owner, error)
		GetOwnerByEmail(ctx context.Context, email string) (Owner, error)

		// StaffEmailExists reports whether email is taken in the center, ignoring excludedID.
		StaffEmailExists(ctx context.Context, centerID int64, email string, excludedID int64) (bool, error)
		CreateStaff(ctx context.Context, s Staff) (Staff, error)
		GetStaff(ctx context.Context, centerID, id int64) (Staff, error)
		GetStaffByEmail(ctx context.Context, centerID int64, email string) (Staff, error)
		// QueryStaff lists the center's staff, optionally restricted to role, ordered by name.
		QueryStaff(ctx context.Context, centerID int64, role string) ([]Staff, error)
		UpdateStaff(ctx context.Context, s Staff) (Staff, error)
		DeleteStaff(ctx context.Context, centerID, id int64) error

		GetStudentAccountByEmail(ctx context.Context, centerID int64, email string) (StudentAccount, error)
		QueryStudentAccounts(ctx context.Context, centerID int64) ([]StudentAccount, error)
		// StudentsWithoutAccount returns the ids of the center's students lacking a StudentAccount.
		StudentsWithoutAccount(ctx context.Context, centerID int64) ([]int64, error)
		CreateStudentAccount(ctx context.Context, sa StudentAccount) (StudentAccount, error)
	}

	Options struct {
		SharedPassword     string
		StudentEmailDomain string
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
		opts     Options
	}
)

func NewService(repo Repository, validate *validator.Validate, opts Options) *Service {
	if opts.StudentEmailDomain == "" {
		opts.StudentEmailDomain = "darien.local"
	}
	return &Service{repo: repo, validate: validate, opts: opts}
}

func (svc *Service) checkUniqueness(ctx context.Context, centerID int64, email string, excludedID int64) error {
	exists, err := svc.repo.StaffEmailExists(ctx, centerID, email, excludedID)
	if err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return core.NewFieldValidationError(ErrEmailExists, "email")
	}
	return nil
}

// trapUniqueErr turns a storage level uniqueness conflict into a validation error.
func trapUniqueErr(err error, msg string) error {
	if errors.Cause(err) == ErrEmailExists {
		return core.NewFieldValidationError(ErrEmailExists, "email")
	}
	return errors.Wrap(err, msg)
}

func (svc *Service) CreateOwner(ctx context.Context, no NewOwner) (Owner, error) {
	if err := no.Validate(svc.validate); err != nil {
		return Owner{}, err
	}
	hash, err := HashPassword(no.Password)
	if err != nil {
		return Owner{}, errors.Wrap(err, "hashing password")
	}
	o, err := svc.repo.CreateOwner(ctx, Owner{
		FullName:     no.FullName,
		Email:        no.Email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return Owner{}, trapUniqueErr(err, "creating owner")
	}
	return o, nil
}

func (svc *Service) CreateStaff(ctx context.Context, centerID int64, ns NewStaff) (Staff, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return Staff{}, err
	}
	if err := svc.checkUniqueness(ctx, centerID, ns.Email, 0); err != nil {
		return Staff{}, err
	}

	stf := Staff{
		CenterID: centerID,
		FullName: ns.FullName,
		Email:    ns.Email,
		Role:     ns.Role,
	}
	pwd := ns.Password
	if pwd == "" {
		if svc.opts.SharedPassword == "" {
			return Staff{}, core.NewFieldValidationError(ErrNoSharedSecret, "password")
		}
		pwd = svc.opts.SharedPassword
	}
	if err := stf.SetPassword(pwd); err != nil {
		return Staff{}, errors.Wrap(err, "hashing password")
	}

	stf, err := svc.repo.CreateStaff(ctx, stf)
	if err != nil {
		return Staff{}, trapUniqueErr(err, "creating staff")
	}
	return stf, nil
}

func (svc *Service) GetStaff(ctx context.Context, centerID, id int64) (Staff, error) {
	return svc.repo.GetStaff(ctx, centerID, id)
}

func (svc *Service) ListStaff(ctx context.Context, centerID int64, role string) ([]Staff, error) {
	return svc.repo.QueryStaff(ctx, centerID, core.CleanString(role, true /* lower */))
}

func (svc *Service) UpdateStaff(ctx context.Context, centerID, id int64, us UpdateStaff) (Staff, error) {
	stf, err := svc.repo.GetStaff(ctx, centerID, id)
	if err != nil {
		return Staff{}, err
	}
	if err = us.Validate(stf, svc.validate); err != nil {
		return Staff{}, err
	}
	if us.Email != stf.Email {
		if err = svc.checkUniqueness(ctx, centerID, us.Email, stf.ID); err != nil {
			return Staff{}, err
		}
	}
	if stf.IsAdmin() && us.Role != RoleAdmin {
		if err = svc.ensureOtherAdmin(ctx, centerID, stf.ID, ErrCannotDemote); err != nil {
			return Staff{}, err
		}
	}

	stf.FullName = us.FullName
	stf.Email = us.Email
	stf.Role = us.Role
	if us.Password != "" {
		if err = stf.SetPassword(us.Password); err != nil {
			return Staff{}, errors.Wrap(err, "hashing password")
		}
	}
	stf, err = svc.repo.UpdateStaff(ctx, stf)
	if err != nil {
		return Staff{}, trapUniqueErr(err, "updating staff")
	}
	return stf, nil
}

// ResetStaffPassword sets a new password on the staff member of the center owning email.
// The password policy applies.
func (svc *Service) ResetStaffPassword(ctx context.Context, centerID int64, email, pwd string) (Staff, error) {
	stf, err := svc.repo.GetStaffByEmail(ctx, centerID, core.CleanString(email, true /* lower */))
	if err != nil {
		return Staff{}, err
	}
	return svc.UpdateStaff(ctx, centerID, stf.ID, UpdateStaff{Password: pwd})
}

// DeleteStaff removes a staff member; their enrollments, lessons & grades cascade.
func (svc *Service) DeleteStaff(ctx context.Context, centerID, id int64) error {
	stf, err := svc.repo.GetStaff(ctx, centerID, id)
	if err != nil {
		return err
	}
	if stf.IsAdmin() {
		if err = svc.ensureOtherAdmin(ctx, centerID, stf.ID, ErrLastAdmin); err != nil {
			return err
		}
	}
	return svc.repo.DeleteStaff(ctx, centerID, id)
}

// ensureOtherAdmin keeps at least one admin per center.
func (svc *Service) ensureOtherAdmin(ctx context.Context, centerID, exceptID int64, failure error) error {
	admins, err := svc.repo.QueryStaff(ctx, centerID, RoleAdmin)
	if err != nil {
		return errors.Wrap(err, "querying admins")
	}
	for _, a := range admins {
		if a.ID != exceptID {
			return nil
		}
	}
	return core.NewFieldValidationError(failure, "role")
}

func (svc *Service) ListStudentAccounts(ctx context.Context, centerID int64) ([]StudentAccount, error) {
	return svc.repo.QueryStudentAccounts(ctx, centerID)
}

// ProvisionStudentAccounts creates the missing StudentAccount of every student of the center,
// using the synthetic email and the shared password. Returns the number of accounts created.
func (svc *Service) ProvisionStudentAccounts(ctx context.Context, centerID int64) (int, error) {
	ids, err := svc.repo.StudentsWithoutAccount(ctx, centerID)
	if err != nil {
		return 0, errors.Wrap(err, "querying students without account")
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if svc.opts.SharedPassword == "" {
		return 0, ErrNoSharedSecret
	}

	// one hash serves the whole batch
	hash, err := HashPassword(svc.opts.SharedPassword)
	if err != nil {
		return 0, errors.Wrap(err, "hashing shared password")
	}

	var created int
	for _, id := range ids {
		_, err = svc.repo.CreateStudentAccount(ctx, StudentAccount{
			CenterID:     centerID,
			StudentID:    id,
			Email:        StudentEmail(id, svc.opts.StudentEmailDomain),
			PasswordHash: hash,
		})
		if err != nil {
			if errors.Cause(err) == ErrEmailExists {
				continue // provisioned concurrently
			}
			return created, errors.Wrapf(err, "creating account of student %d", id)
		}
		created++
	}
	return created, nil
}
