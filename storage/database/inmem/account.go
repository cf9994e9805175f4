package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/darien/gradebook/core/account"
)

type AccountRepository struct {
	db *DB
}

var _ account.Repository = (*AccountRepository)(nil)

func (repo *AccountRepository) CreateOwner(_ context.Context, o account.Owner) (account.Owner, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, own := range repo.db.owners {
		if strings.EqualFold(own.Email, o.Email) {
			return account.Owner{}, account.ErrEmailExists
		}
	}
	o.ID = repo.db.nextID()
	repo.db.owners[o.ID] = &o
	return o, nil
}

func (repo *AccountRepository) GetOwnerByEmail(_ context.Context, email string) (account.Owner, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, o := range repo.db.owners {
		if strings.EqualFold(o.Email, email) {
			return *o, nil
		}
	}
	return account.Owner{}, account.ErrNotFound
}

// staffEmailTaken must be called with the lock held.
func (repo *AccountRepository) staffEmailTaken(centerID int64, email string, excludedID int64) bool {
	for _, s := range repo.db.staff {
		if s.CenterID == centerID && s.ID != excludedID && strings.EqualFold(s.Email, email) {
			return true
		}
	}
	return false
}

func (repo *AccountRepository) StaffEmailExists(_ context.Context, centerID int64, email string, excludedID int64) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.staffEmailTaken(centerID, email, excludedID), nil
}

func (repo *AccountRepository) CreateStaff(_ context.Context, s account.Staff) (account.Staff, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if repo.staffEmailTaken(s.CenterID, s.Email, 0) {
		return account.Staff{}, account.ErrEmailExists
	}
	s.ID = repo.db.nextID()
	repo.db.staff[s.ID] = &s
	return s, nil
}

func (repo *AccountRepository) GetStaff(_ context.Context, centerID, id int64) (account.Staff, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.staff[id]; ok && s.CenterID == centerID {
		return *s, nil
	}
	return account.Staff{}, account.ErrNotFound
}

func (repo *AccountRepository) GetStaffByEmail(_ context.Context, centerID int64, email string) (account.Staff, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, s := range repo.db.staff {
		if s.CenterID == centerID && strings.EqualFold(s.Email, email) {
			return *s, nil
		}
	}
	return account.Staff{}, account.ErrNotFound
}

func (repo *AccountRepository) QueryStaff(_ context.Context, centerID int64, role string) ([]account.Staff, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	staff := make([]account.Staff, 0)
	for _, s := range repo.db.staff {
		if s.CenterID == centerID && (role == "" || s.Role == role) {
			staff = append(staff, *s)
		}
	}
	sort.Slice(staff, func(i, j int) bool {
		if staff[i].FullName != staff[j].FullName {
			return staff[i].FullName < staff[j].FullName
		}
		return staff[i].ID < staff[j].ID
	})
	return staff, nil
}

func (repo *AccountRepository) UpdateStaff(_ context.Context, s account.Staff) (account.Staff, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.staff[s.ID]
	if !ok || orig.CenterID != s.CenterID {
		return account.Staff{}, account.ErrNotFound
	}
	if repo.staffEmailTaken(s.CenterID, s.Email, s.ID) {
		return account.Staff{}, account.ErrEmailExists
	}
	repo.db.staff[s.ID] = &s
	return s, nil
}

func (repo *AccountRepository) DeleteStaff(_ context.Context, centerID, id int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if s, ok := repo.db.staff[id]; !ok || s.CenterID != centerID {
		return account.ErrNotFound
	}
	repo.db.deleteStaff(id)
	return nil
}

// withStudent fills the joined student fields; lock held.
func (repo *AccountRepository) withStudent(sa account.StudentAccount) account.StudentAccount {
	sa.FullName, sa.ClassName = repo.db.studentName(sa.StudentID)
	return sa
}

func (repo *AccountRepository) GetStudentAccountByEmail(_ context.Context, centerID int64, email string) (account.StudentAccount, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, sa := range repo.db.studentAccounts {
		if sa.CenterID == centerID && strings.EqualFold(sa.Email, email) {
			return repo.withStudent(*sa), nil
		}
	}
	return account.StudentAccount{}, account.ErrNotFound
}

func (repo *AccountRepository) QueryStudentAccounts(_ context.Context, centerID int64) ([]account.StudentAccount, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	accounts := make([]account.StudentAccount, 0)
	for _, sa := range repo.db.studentAccounts {
		if sa.CenterID == centerID {
			accounts = append(accounts, repo.withStudent(*sa))
		}
	}
	sort.Slice(accounts, func(i, j int) bool {
		a, b := accounts[i], accounts[j]
		if a.ClassName != b.ClassName {
			return a.ClassName < b.ClassName
		}
		if a.FullName != b.FullName {
			return a.FullName < b.FullName
		}
		return a.ID < b.ID
	})
	return accounts, nil
}

func (repo *AccountRepository) StudentsWithoutAccount(_ context.Context, centerID int64) ([]int64, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	hasAccount := make(map[int64]bool, len(repo.db.studentAccounts))
	for _, sa := range repo.db.studentAccounts {
		hasAccount[sa.StudentID] = true
	}
	ids := make([]int64, 0)
	for _, s := range repo.db.students {
		if s.CenterID == centerID && !hasAccount[s.ID] {
			ids = append(ids, s.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (repo *AccountRepository) CreateStudentAccount(_ context.Context, sa account.StudentAccount) (account.StudentAccount, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, other := range repo.db.studentAccounts {
		if strings.EqualFold(other.Email, sa.Email) ||
			(other.CenterID == sa.CenterID && other.StudentID == sa.StudentID) {
			return account.StudentAccount{}, account.ErrEmailExists
		}
	}
	sa.ID = repo.db.nextID()
	stored := sa
	stored.FullName, stored.ClassName = "", ""
	repo.db.studentAccounts[sa.ID] = &stored
	return sa, nil
}
