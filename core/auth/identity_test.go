package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darien/gradebook/core"
	"github.com/darien/gradebook/core/account"
	"github.com/darien/gradebook/core/auth"
	inmemdb "github.com/darien/gradebook/storage/database/inmem"
	testutil "github.com/darien/gradebook/tests"
)

type resolverFixture struct {
	repos   *inmemdb.Repositories
	center  int64
	other   int64
	student int64
}

func newResolverFixture(t *testing.T) resolverFixture {
	ctx := context.Background()
	repos := inmemdb.NewRepositories(inmemdb.Open())
	mainCenter := testutil.CreateCenter(t, repos.Centers, "Main", core.DefaultCenterID)
	other := testutil.CreateCenter(t, repos.Centers, "Other")

	testutil.CreateOwner(t, repos.Accounts, "Olga", "olga@darien.test", "owner-pass")
	testutil.CreateStaff(t, repos.Accounts, mainCenter.ID, "Adam", "adam@darien.test", account.RoleAdmin, "admin-pass")
	testutil.CreateStaff(t, repos.Accounts, mainCenter.ID, "Tess", "tess@darien.test", account.RoleTeacher, "teacher-pass")
	testutil.CreateStaff(t, repos.Accounts, mainCenter.ID, "Nina", "nina@darien.test", account.RoleTeacher, "")
	testutil.CreateStaff(t, repos.Accounts, other.ID, "Otto", "otto@darien.test", account.RoleTeacher, "teacher-pass")

	// a teacher sharing the owner email
	testutil.CreateStaff(t, repos.Accounts, mainCenter.ID, "Olga Staff", "olga@darien.test", account.RoleTeacher, "staff-pass")

	// garbled hashes never match, the shared password still may
	_, err := repos.Accounts.CreateStaff(ctx, account.Staff{
		CenterID: mainCenter.ID, FullName: "Gary", Email: "gary@darien.test", Role: account.RoleTeacher, PasswordHash: "garbled",
	})
	require.NoError(t, err)
	_, err = repos.Accounts.CreateStaff(ctx, account.Staff{
		CenterID: mainCenter.ID, FullName: "Gina", Email: "gina@darien.test", Role: account.RoleAdmin, PasswordHash: "garbled",
	})
	require.NoError(t, err)

	std := testutil.CreateStudent(t, repos.Academic, mainCenter.ID, "Bea", "5A")
	hash, err := account.HashPassword("student-pass")
	require.NoError(t, err)
	_, err = repos.Accounts.CreateStudentAccount(ctx, account.StudentAccount{
		CenterID: mainCenter.ID, StudentID: std.ID, Email: "bea@darien.test", PasswordHash: hash,
	})
	require.NoError(t, err)

	return resolverFixture{repos: repos, center: mainCenter.ID, other: other.ID, student: std.ID}
}

func TestResolver_Authenticate(t *testing.T) {
	f := newResolverFixture(t)
	resolver := auth.NewResolver(f.repos.Accounts, auth.NewPolicy(testutil.Config()))
	ctx := context.Background()

	tests := []struct {
		name      string
		email     string
		pwd       string
		centerID  int64
		wantKind  string
		wantRole  string
		wantName  string
		wantError bool
	}{
		{name: "owner", email: "olga@darien.test", pwd: "owner-pass", centerID: f.center, wantKind: auth.KindOwner, wantRole: account.RoleOwner, wantName: "Olga"},
		{name: "owner in any center", email: "OLGA@darien.test ", pwd: "owner-pass", centerID: f.other, wantKind: auth.KindOwner, wantRole: account.RoleOwner, wantName: "Olga"},
		{name: "owner mismatch falls through to staff", email: "olga@darien.test", pwd: "staff-pass", centerID: f.center, wantKind: auth.KindStaff, wantRole: account.RoleTeacher, wantName: "Olga Staff"},
		{name: "owner never takes the shared password", email: "olga@darien.test", pwd: testutil.SharedPassword, centerID: f.other, wantError: true},
		{name: "admin", email: "adam@darien.test", pwd: "admin-pass", centerID: f.center, wantKind: auth.KindStaff, wantRole: account.RoleAdmin, wantName: "Adam"},
		{name: "admin never takes the shared password", email: "adam@darien.test", pwd: testutil.SharedPassword, centerID: f.center, wantError: true},
		{name: "admin with garbled hash", email: "gina@darien.test", pwd: testutil.SharedPassword, centerID: f.center, wantError: true},
		{name: "teacher", email: "tess@darien.test", pwd: "teacher-pass", centerID: f.center, wantKind: auth.KindStaff, wantRole: account.RoleTeacher, wantName: "Tess"},
		{name: "teacher with shared password", email: "tess@darien.test", pwd: testutil.SharedPassword, centerID: f.center, wantKind: auth.KindStaff, wantRole: account.RoleTeacher, wantName: "Tess"},
		{name: "teacher without hash", email: "nina@darien.test", pwd: testutil.SharedPassword, centerID: f.center, wantKind: auth.KindStaff, wantRole: account.RoleTeacher, wantName: "Nina"},
		{name: "teacher with garbled hash", email: "gary@darien.test", pwd: testutil.SharedPassword, centerID: f.center, wantKind: auth.KindStaff, wantRole: account.RoleTeacher, wantName: "Gary"},
		{name: "teacher wrong password", email: "tess@darien.test", pwd: "nope", centerID: f.center, wantError: true},
		{name: "teacher of another center", email: "otto@darien.test", pwd: "teacher-pass", centerID: f.center, wantError: true},
		{name: "student", email: "bea@darien.test", pwd: "student-pass", centerID: f.center, wantKind: auth.KindStudent, wantRole: account.RoleStudent, wantName: "Bea"},
		{name: "student with shared password", email: "bea@darien.test", pwd: testutil.SharedPassword, centerID: f.center, wantKind: auth.KindStudent, wantRole: account.RoleStudent, wantName: "Bea"},
		{name: "student of another center", email: "bea@darien.test", pwd: "student-pass", centerID: f.other, wantError: true},
		{name: "unknown email", email: "nobody@darien.test", pwd: testutil.SharedPassword, centerID: f.center, wantError: true},
		{name: "blank email", email: "  ", pwd: "x", centerID: f.center, wantError: true},
		{name: "blank password", email: "tess@darien.test", pwd: "", centerID: f.center, wantError: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ident, err := resolver.Authenticate(ctx, tt.email, tt.pwd, tt.centerID)
			if tt.wantError {
				assert.Equal(t, auth.ErrInvalidCredentials, err)
				assert.Equal(t, auth.Identity{}, ident)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, ident.Kind)
			assert.Equal(t, tt.wantRole, ident.Role)
			assert.Equal(t, tt.wantName, ident.FullName)
			assert.Equal(t, tt.centerID, ident.CenterID)
		})
	}

	t.Run("student identity carries the student row", func(t *testing.T) {
		ident, err := resolver.Authenticate(ctx, "bea@darien.test", "student-pass", f.center)
		require.NoError(t, err)
		assert.Equal(t, f.student, ident.StudentID)
		assert.Equal(t, "5A", ident.ClassName)
		assert.True(t, ident.IsStudent())
	})
}

func TestResolver_Authenticate_PolicyFlags(t *testing.T) {
	f := newResolverFixture(t)
	ctx := context.Background()

	conf := testutil.Config()
	conf.Auth.TeacherSharedPassword = false
	resolver := auth.NewResolver(f.repos.Accounts, auth.NewPolicy(conf))

	_, err := resolver.Authenticate(ctx, "tess@darien.test", testutil.SharedPassword, f.center)
	assert.Equal(t, auth.ErrInvalidCredentials, err, "teacher bypass disabled")
	_, err = resolver.Authenticate(ctx, "tess@darien.test", "teacher-pass", f.center)
	assert.NoError(t, err, "own password still works")
	_, err = resolver.Authenticate(ctx, "bea@darien.test", testutil.SharedPassword, f.center)
	assert.NoError(t, err, "student bypass still enabled")

	conf = testutil.Config()
	conf.Auth.SharedPassword = ""
	resolver = auth.NewResolver(f.repos.Accounts, auth.NewPolicy(conf))
	_, err = resolver.Authenticate(ctx, "nina@darien.test", "", f.center)
	assert.Equal(t, auth.ErrInvalidCredentials, err, "empty shared password never matches")
	_, err = resolver.Authenticate(ctx, "nina@darien.test", testutil.SharedPassword, f.center)
	assert.Equal(t, auth.ErrInvalidCredentials, err)
}

func TestIdentity_HasRole(t *testing.T) {
	owner := auth.Identity{Role: account.RoleOwner}
	admin := auth.Identity{Role: account.RoleAdmin}
	student := auth.Identity{Role: account.RoleStudent}

	assert.True(t, owner.HasRole(account.RoleAdmin))
	assert.True(t, owner.HasRole(account.RoleTeacher))
	assert.False(t, owner.HasRole(account.RoleStudent))
	assert.True(t, admin.HasRole(account.RoleAdmin, account.RoleOwner))
	assert.False(t, admin.HasRole(account.RoleOwner))
	assert.False(t, admin.HasRole(account.RoleTeacher))
	assert.True(t, student.HasRole(account.RoleStudent))
	assert.False(t, student.HasRole())
}
