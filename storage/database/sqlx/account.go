package sqlxrepos

import (
	"context"

	"github.com/darien/gradebook/core"
	"github.com/darien/gradebook/core/account"
)

const (
	ownerColumns = `id, full_name, email, password_hash, created_at`
	staffColumns = `id, center_id, full_name, email, role, password_hash`

	studentAccountSelect = `
		SELECT sa.id, sa.center_id, sa.student_id, sa.email, sa.password_hash, s.full_name, s.class_name
		FROM student_accounts sa
		JOIN students s ON s.id = sa.student_id`
)

type AccountRepository struct {
	db core.DB
}

var _ account.Repository = (*AccountRepository)(nil)

func NewAccountRepository(db core.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (repo *AccountRepository) CreateOwner(ctx context.Context, o account.Owner) (account.Owner, error) {
	err := repo.db.GetContext(ctx, &o.ID,
		`INSERT INTO owners (full_name, email, password_hash, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		o.FullName, o.Email, o.PasswordHash, o.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return account.Owner{}, account.ErrEmailExists
		}
		return account.Owner{}, wrapErr(err, "inserting owner")
	}
	return o, nil
}

func (repo *AccountRepository) GetOwnerByEmail(ctx context.Context, email string) (account.Owner, error) {
	var o account.Owner
	err := repo.db.GetContext(ctx, &o, `SELECT `+ownerColumns+` FROM owners WHERE lower(email) = lower($1)`, email)
	if err != nil {
		return account.Owner{}, notFound(err, account.ErrNotFound, "selecting owner")
	}
	return o, nil
}

func (repo *AccountRepository) StaffEmailExists(ctx context.Context, centerID int64, email string, excludedID int64) (bool, error) {
	var exists bool
	err := repo.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM users WHERE center_id = $1 AND lower(email) = lower($2) AND id <> $3)`,
		centerID, email, excludedID,
	)
	return exists, wrapErr(err, "checking staff email")
}

func (repo *AccountRepository) CreateStaff(ctx context.Context, s account.Staff) (account.Staff, error) {
	err := repo.db.GetContext(ctx, &s.ID, `
		INSERT INTO users (center_id, full_name, email, role, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		s.CenterID, s.FullName, s.Email, s.Role, s.PasswordHash,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return account.Staff{}, account.ErrEmailExists
		}
		return account.Staff{}, wrapErr(err, "inserting staff")
	}
	return s, nil
}

func (repo *AccountRepository) GetStaff(ctx context.Context, centerID, id int64) (account.Staff, error) {
	var s account.Staff
	err := repo.db.GetContext(ctx, &s, `SELECT `+staffColumns+` FROM users WHERE center_id = $1 AND id = $2`, centerID, id)
	if err != nil {
		return account.Staff{}, notFound(err, account.ErrNotFound, "selecting staff")
	}
	return s, nil
}

func (repo *AccountRepository) GetStaffByEmail(ctx context.Context, centerID int64, email string) (account.Staff, error) {
	var s account.Staff
	err := repo.db.GetContext(ctx, &s,
		`SELECT `+staffColumns+` FROM users WHERE center_id = $1 AND lower(email) = lower($2) ORDER BY id LIMIT 1`,
		centerID, email,
	)
	if err != nil {
		return account.Staff{}, notFound(err, account.ErrNotFound, "selecting staff")
	}
	return s, nil
}

func (repo *AccountRepository) QueryStaff(ctx context.Context, centerID int64, role string) ([]account.Staff, error) {
	conds := &conditions{}
	conds.add("center_id = ?", centerID)
	if role != "" {
		conds.add("role = ?", role)
	}
	staff := make([]account.Staff, 0)
	err := repo.db.SelectContext(ctx, &staff,
		`SELECT `+staffColumns+` FROM users`+conds.where()+` ORDER BY full_name, id`, conds.args...)
	if err != nil {
		return nil, wrapErr(err, "selecting staff")
	}
	return staff, nil
}

func (repo *AccountRepository) UpdateStaff(ctx context.Context, s account.Staff) (account.Staff, error) {
	res, err := repo.db.ExecContext(ctx, `
		UPDATE users SET full_name = $1, email = $2, role = $3, password_hash = $4
		WHERE center_id = $5 AND id = $6`,
		s.FullName, s.Email, s.Role, s.PasswordHash, s.CenterID, s.ID,
	)
	if err != nil && isUniqueViolation(err) {
		return account.Staff{}, account.ErrEmailExists
	}
	if err = affected(res, err, account.ErrNotFound, "updating staff"); err != nil {
		return account.Staff{}, err
	}
	return s, nil
}

func (repo *AccountRepository) DeleteStaff(ctx context.Context, centerID, id int64) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM users WHERE center_id = $1 AND id = $2`, centerID, id)
	return affected(res, err, account.ErrNotFound, "deleting staff")
}

func (repo *AccountRepository) GetStudentAccountByEmail(ctx context.Context, centerID int64, email string) (account.StudentAccount, error) {
	var sa account.StudentAccount
	err := repo.db.GetContext(ctx, &sa,
		studentAccountSelect+` WHERE sa.center_id = $1 AND lower(sa.email) = lower($2)`, centerID, email)
	if err != nil {
		return account.StudentAccount{}, notFound(err, account.ErrNotFound, "selecting student account")
	}
	return sa, nil
}

func (repo *AccountRepository) QueryStudentAccounts(ctx context.Context, centerID int64) ([]account.StudentAccount, error) {
	accounts := make([]account.StudentAccount, 0)
	err := repo.db.SelectContext(ctx, &accounts,
		studentAccountSelect+` WHERE sa.center_id = $1 ORDER BY s.class_name, s.full_name, sa.id`, centerID)
	if err != nil {
		return nil, wrapErr(err, "selecting student accounts")
	}
	return accounts, nil
}

func (repo *AccountRepository) StudentsWithoutAccount(ctx context.Context, centerID int64) ([]int64, error) {
	ids := make([]int64, 0)
	err := repo.db.SelectContext(ctx, &ids, `
		SELECT s.id FROM students s
		WHERE s.center_id = $1
			AND NOT EXISTS (SELECT 1 FROM student_accounts sa WHERE sa.student_id = s.id)
		ORDER BY s.id`, centerID)
	if err != nil {
		return nil, wrapErr(err, "selecting students without account")
	}
	return ids, nil
}

func (repo *AccountRepository) CreateStudentAccount(ctx context.Context, sa account.StudentAccount) (account.StudentAccount, error) {
	err := repo.db.GetContext(ctx, &sa.ID, `
		INSERT INTO student_accounts (center_id, student_id, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		sa.CenterID, sa.StudentID, sa.Email, sa.PasswordHash,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return account.StudentAccount{}, account.ErrEmailExists
		}
		return account.StudentAccount{}, wrapErr(err, "inserting student account")
	}
	return sa, nil
}
