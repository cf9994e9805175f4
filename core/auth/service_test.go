package auth_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darien/gradebook/core"
	"github.com/darien/gradebook/core/account"
	"github.com/darien/gradebook/core/auth"
	"github.com/darien/gradebook/core/center"
	inmemdb "github.com/darien/gradebook/storage/database/inmem"
	testutil "github.com/darien/gradebook/tests"
)

func newService(t *testing.T, conf *core.Config) (*auth.Service, *inmemdb.Repositories) {
	validate, translator := core.NewValidator()
	account.InitValidators(validate, translator)

	repos := inmemdb.NewRepositories(inmemdb.Open())
	testutil.CreateCenter(t, repos.Centers, "Main", core.DefaultCenterID)

	accSvc := account.NewService(repos.Accounts, validate, account.Options{
		SharedPassword:     conf.Auth.SharedPassword,
		StudentEmailDomain: conf.Auth.StudentEmailDomain,
	})
	svc := auth.NewService(
		center.NewService(repos.Centers, validate),
		accSvc,
		auth.NewResolver(repos.Accounts, auth.NewPolicy(conf)),
		auth.NewSessionStore(),
		validate,
		testutil.NopLogger{},
	)
	return svc, repos
}

func TestService_Login(t *testing.T) {
	conf := testutil.Config()
	svc, repos := newService(t, conf)
	ctx := context.Background()

	testutil.CreateStaff(t, repos.Accounts, core.DefaultCenterID, "Tess", "tess@darien.test", account.RoleTeacher, "teacher-pass")
	std := testutil.CreateStudent(t, repos.Academic, core.DefaultCenterID, "Bea", "5A")

	t.Run("zero center id selects the default center", func(t *testing.T) {
		sess, err := svc.Login(ctx, auth.Credentials{Email: " TESS@darien.test", Password: "teacher-pass"})
		require.NoError(t, err)
		assert.Equal(t, core.DefaultCenterID, sess.CenterID)
		assert.Equal(t, "Tess", sess.Identity.FullName)
		assert.NotEmpty(t, sess.ID)

		got, err := svc.Session(sess.ID)
		require.NoError(t, err)
		assert.Equal(t, sess, got)
	})

	t.Run("login provisions student accounts", func(t *testing.T) {
		email := account.StudentEmail(std.ID, conf.Auth.StudentEmailDomain)
		sess, err := svc.Login(ctx, auth.Credentials{Email: email, Password: testutil.SharedPassword, CenterID: core.DefaultCenterID})
		require.NoError(t, err)
		assert.True(t, sess.Identity.IsStudent())
		assert.Equal(t, std.ID, sess.Identity.StudentID)
		assert.Equal(t, "5A", sess.Identity.ClassName)
	})

	t.Run("unknown center", func(t *testing.T) {
		_, err := svc.Login(ctx, auth.Credentials{Email: "tess@darien.test", Password: "teacher-pass", CenterID: 4242})
		vErr, ok := err.(*core.ValidationError)
		require.True(t, ok, "want *core.ValidationError, got %T", err)
		assert.Equal(t, "center_id", vErr.Fields[0].Field)
	})

	t.Run("bad password is generic", func(t *testing.T) {
		_, err := svc.Login(ctx, auth.Credentials{Email: "tess@darien.test", Password: "nope"})
		assert.Equal(t, auth.ErrInvalidCredentials, err)
		_, err = svc.Login(ctx, auth.Credentials{Email: "ghost@darien.test", Password: "nope"})
		assert.Equal(t, auth.ErrInvalidCredentials, err)
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := svc.Login(ctx, auth.Credentials{Email: "tess@darien.test"})
		assert.Error(t, err)
		assert.NotEqual(t, auth.ErrInvalidCredentials, err)
	})

	t.Run("logout", func(t *testing.T) {
		sess, err := svc.Login(ctx, auth.Credentials{Email: "tess@darien.test", Password: "teacher-pass"})
		require.NoError(t, err)
		svc.Logout(sess.ID)
		_, err = svc.Session(sess.ID)
		assert.Equal(t, auth.ErrSessionNotFound, err)
		svc.Logout(sess.ID) // no-op
	})
}

func TestService_Login_WithoutSharedPassword(t *testing.T) {
	conf := testutil.Config()
	conf.Auth.SharedPassword = ""
	svc, repos := newService(t, conf)

	testutil.CreateStaff(t, repos.Accounts, core.DefaultCenterID, "Tess", "tess@darien.test", account.RoleTeacher, "teacher-pass")
	testutil.CreateStudent(t, repos.Academic, core.DefaultCenterID, "Bea", "5A")

	sess, err := svc.Login(context.Background(), auth.Credentials{Email: "tess@darien.test", Password: "teacher-pass"})
	require.NoError(t, err, "provisioning failure must not block staff logins")
	assert.True(t, sess.Identity.IsTeacher())

	accounts, err := repos.Accounts.QueryStudentAccounts(context.Background(), core.DefaultCenterID)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestSessionStore(t *testing.T) {
	store := auth.NewSessionStore()
	ident := auth.Identity{Kind: auth.KindStaff, Role: account.RoleAdmin, ID: 7, CenterID: 2}

	s1 := store.Create(ident, 2)
	s2 := store.Create(ident, 2)
	assert.NotEqual(t, s1.ID, s2.ID)
	assert.Equal(t, 2, store.Len())

	got, err := store.Get(s1.ID)
	require.NoError(t, err)
	assert.Equal(t, ident, got.Identity)
	assert.Equal(t, int64(2), got.CenterID)

	store.Delete(s1.ID)
	_, err = store.Get(s1.ID)
	assert.Equal(t, auth.ErrSessionNotFound, err)
	_, err = store.Get(s2.ID)
	assert.NoError(t, err, "deleting one session keeps the others")

	store.Delete("unknown")
	assert.Equal(t, 1, store.Len())
}

func TestSessionStore_Concurrent(t *testing.T) {
	store := auth.NewSessionStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			sess := store.Create(auth.Identity{ID: id}, 1)
			_, _ = store.Get(sess.ID)
			store.Delete(sess.ID)
		}(int64(i))
	}
	wg.Wait()
	assert.Equal(t, 0, store.Len())
}
