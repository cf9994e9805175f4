package account_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darien/gradebook/core"
	"github.com/darien/gradebook/core/account"
	inmemdb "github.com/darien/gradebook/storage/database/inmem"
	testutil "github.com/darien/gradebook/tests"
)

func setup(t *testing.T, opts account.Options) (*account.Service, *inmemdb.Repositories) {
	validate, translator := core.NewValidator()
	account.InitValidators(validate, translator)

	repos := inmemdb.NewRepositories(inmemdb.Open())
	testutil.CreateCenter(t, repos.Centers, "Main", core.DefaultCenterID)
	return account.NewService(repos.Accounts, validate, opts), repos
}

// fieldErrors maps the failing fields of err to their error, for both the
// validator's and the service's own validation errors.
func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	flds := make(map[string]string)
	switch vErr := err.(type) {
	case *core.ValidationError:
		for _, f := range vErr.Fields {
			flds[f.Field] = f.Error
		}
	case validator.ValidationErrors:
		for _, f := range vErr {
			flds[f.Field()] = f.Tag()
		}
	default:
		t.Fatalf("want a validation error, got %T: %v", err, err)
	}
	return flds
}

func TestService_CreateStaff(t *testing.T) {
	svc, repos := setup(t, account.Options{SharedPassword: testutil.SharedPassword})
	ctx := context.Background()
	other := testutil.CreateCenter(t, repos.Centers, "Other")

	_, err := svc.CreateStaff(ctx, core.DefaultCenterID, account.NewStaff{
		FullName: "Ada Teacher",
		Email:    "Ada@School.test ",
		Role:     "teacher",
	})
	require.NoError(t, err)

	tests := []struct {
		name       string
		centerID   int64
		data       account.NewStaff
		wantFields []string
	}{
		{
			name:     "same email in another center",
			centerID: other.ID,
			data:     account.NewStaff{FullName: "Ada Teacher", Email: "ada@school.test", Role: "teacher"},
		},
		{
			name:       "duplicate email, case insensitive",
			centerID:   core.DefaultCenterID,
			data:       account.NewStaff{FullName: "Ada Again", Email: "ADA@school.test", Role: "admin"},
			wantFields: []string{"email"},
		},
		{
			name:       "bad role",
			centerID:   core.DefaultCenterID,
			data:       account.NewStaff{FullName: "Bob", Email: "bob@school.test", Role: "janitor"},
			wantFields: []string{"role"},
		},
		{
			name:       "owner is not a staff role",
			centerID:   core.DefaultCenterID,
			data:       account.NewStaff{FullName: "Bob", Email: "bob@school.test", Role: "owner"},
			wantFields: []string{"role"},
		},
		{
			name:       "short password",
			centerID:   core.DefaultCenterID,
			data:       account.NewStaff{FullName: "Bob", Email: "bob@school.test", Role: "teacher", Password: "abc"},
			wantFields: []string{"password"},
		},
		{
			name:       "password like the email",
			centerID:   core.DefaultCenterID,
			data:       account.NewStaff{FullName: "Bob", Email: "bob@school.test", Role: "teacher", Password: "bob@school.tes"},
			wantFields: []string{"password"},
		},
		{
			name:     "explicit password",
			centerID: core.DefaultCenterID,
			data:     account.NewStaff{FullName: "Bob", Email: "bob@school.test", Role: "admin", Password: "Xq7#pLm2"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stf, err := svc.CreateStaff(ctx, tt.centerID, tt.data)
			if tt.wantFields != nil {
				flds := fieldErrors(t, err)
				for _, f := range tt.wantFields {
					assert.Contains(t, flds, f)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.centerID, stf.CenterID)
			assert.NotEmpty(t, stf.PasswordHash)
		})
	}
}

func TestService_CreateStaff_SharedPassword(t *testing.T) {
	ctx := context.Background()

	svc, _ := setup(t, account.Options{SharedPassword: testutil.SharedPassword})
	stf, err := svc.CreateStaff(ctx, core.DefaultCenterID, account.NewStaff{
		FullName: "Ada Teacher", Email: "ada@school.test", Role: "teacher",
	})
	require.NoError(t, err)
	assert.True(t, account.CheckPassword(stf.PasswordHash, testutil.SharedPassword))

	svc, _ = setup(t, account.Options{})
	_, err = svc.CreateStaff(ctx, core.DefaultCenterID, account.NewStaff{
		FullName: "Ada Teacher", Email: "ada@school.test", Role: "teacher",
	})
	assert.Equal(t, map[string]string{"password": account.ErrNoSharedSecret.Error()}, fieldErrors(t, err))
}

func TestService_LastAdmin(t *testing.T) {
	svc, repos := setup(t, account.Options{SharedPassword: testutil.SharedPassword})
	ctx := context.Background()

	admin := testutil.CreateStaff(t, repos.Accounts, core.DefaultCenterID, "Admin", "admin@school.test", account.RoleAdmin, "")

	_, err := svc.UpdateStaff(ctx, core.DefaultCenterID, admin.ID, account.UpdateStaff{Role: account.RoleTeacher})
	assert.Equal(t, map[string]string{"role": account.ErrCannotDemote.Error()}, fieldErrors(t, err))

	err = svc.DeleteStaff(ctx, core.DefaultCenterID, admin.ID)
	assert.Equal(t, map[string]string{"role": account.ErrLastAdmin.Error()}, fieldErrors(t, err))

	second := testutil.CreateStaff(t, repos.Accounts, core.DefaultCenterID, "Admin 2", "admin2@school.test", account.RoleAdmin, "")
	updated, err := svc.UpdateStaff(ctx, core.DefaultCenterID, admin.ID, account.UpdateStaff{Role: account.RoleTeacher})
	require.NoError(t, err)
	assert.Equal(t, account.RoleTeacher, updated.Role)
	assert.Equal(t, "Admin", updated.FullName, "blank fields are kept")

	err = svc.DeleteStaff(ctx, core.DefaultCenterID, second.ID)
	assert.Error(t, err, "second is now the last admin")

	err = svc.DeleteStaff(ctx, core.DefaultCenterID, admin.ID)
	assert.NoError(t, err)
	_, err = svc.GetStaff(ctx, core.DefaultCenterID, admin.ID)
	assert.Equal(t, account.ErrNotFound, err)
}

func TestService_UpdateStaff_Email(t *testing.T) {
	svc, repos := setup(t, account.Options{SharedPassword: testutil.SharedPassword})
	ctx := context.Background()

	testutil.CreateStaff(t, repos.Accounts, core.DefaultCenterID, "Ada", "ada@school.test", account.RoleTeacher, "")
	bob := testutil.CreateStaff(t, repos.Accounts, core.DefaultCenterID, "Bob", "bob@school.test", account.RoleTeacher, "")

	_, err := svc.UpdateStaff(ctx, core.DefaultCenterID, bob.ID, account.UpdateStaff{Email: "ADA@school.test"})
	assert.Contains(t, fieldErrors(t, err), "email")

	_, err = svc.UpdateStaff(ctx, 4242, bob.ID, account.UpdateStaff{FullName: "Robert"})
	assert.Equal(t, account.ErrNotFound, err, "staff of another center")

	updated, err := svc.UpdateStaff(ctx, core.DefaultCenterID, bob.ID, account.UpdateStaff{Email: "robert@school.test"})
	require.NoError(t, err)
	assert.Equal(t, "robert@school.test", updated.Email)
}

func TestService_ProvisionStudentAccounts(t *testing.T) {
	ctx := context.Background()
	svc, repos := setup(t, account.Options{SharedPassword: testutil.SharedPassword, StudentEmailDomain: "school.test"})

	s1 := testutil.CreateStudent(t, repos.Academic, core.DefaultCenterID, "Bea", "5A")
	s2 := testutil.CreateStudent(t, repos.Academic, core.DefaultCenterID, "Cal", "5B")
	other := testutil.CreateCenter(t, repos.Centers, "Other")
	testutil.CreateStudent(t, repos.Academic, other.ID, "Dee", "5A")

	n, err := svc.ProvisionStudentAccounts(ctx, core.DefaultCenterID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = svc.ProvisionStudentAccounts(ctx, core.DefaultCenterID)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "provisioning is idempotent")

	accounts, err := svc.ListStudentAccounts(ctx, core.DefaultCenterID)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	emails := []string{accounts[0].Email, accounts[1].Email}
	assert.ElementsMatch(t, []string{account.StudentEmail(s1.ID, "school.test"), account.StudentEmail(s2.ID, "school.test")}, emails)
	for _, sa := range accounts {
		assert.True(t, account.CheckPassword(sa.PasswordHash, testutil.SharedPassword))
		assert.NotEmpty(t, sa.FullName)
	}

	noSecret, repos2 := setup(t, account.Options{})
	testutil.CreateStudent(t, repos2.Academic, core.DefaultCenterID, "Eve", "5A")
	_, err = noSecret.ProvisionStudentAccounts(ctx, core.DefaultCenterID)
	assert.Equal(t, account.ErrNoSharedSecret, err)
}

func TestService_CreateOwner(t *testing.T) {
	svc, _ := setup(t, account.Options{})
	ctx := context.Background()

	o, err := svc.CreateOwner(ctx, account.NewOwner{FullName: "Olga", Email: " Olga@Darien.test", Password: "owner-pass"})
	require.NoError(t, err)
	assert.Equal(t, "olga@darien.test", o.Email)
	assert.True(t, account.CheckPassword(o.PasswordHash, "owner-pass"))

	_, err = svc.CreateOwner(ctx, account.NewOwner{FullName: "Olga 2", Email: "olga@darien.test", Password: "x"})
	assert.Contains(t, fieldErrors(t, err), "email")
}

func TestStudentEmail(t *testing.T) {
	assert.Equal(t, "student42@darien.local", account.StudentEmail(42, "darien.local"))
}
