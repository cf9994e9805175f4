// Package testutil holds the fixtures shared by the test suites.
package testutil

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/darien/gradebook/core"
	"github.com/darien/gradebook/core/academic"
	"github.com/darien/gradebook/core/account"
	"github.com/darien/gradebook/core/center"
)

// SharedPassword is the shared password of Config.
const SharedPassword = "shared-secret"

// Config returns a test configuration. The database url is TEST_DATABASE_URL.
func Config() *core.Config {
	return &core.Config{
		Env:       "TEST",
		Build:     "test",
		AppName:   "Darien Gradebook",
		TestMode:  true,
		SecretKey: "test-secret-key",
		Database:  core.DatabaseConfig{URL: os.Getenv("TEST_DATABASE_URL"), MaxOpenConns: 4},
		Server: core.ServerConfig{
			Address:         ":0",
			Host:            "localhost",
			DisableReqLogs:  true,
			ShutdownTimeout: time.Second,
		},
		Auth: core.AuthConfig{
			SharedPassword:        SharedPassword,
			TeacherSharedPassword: true,
			StudentSharedPassword: true,
			StudentEmailDomain:    "darien.local",
		},
		Bootstrap: core.BootstrapConfig{
			CenterName:    "Main Center",
			OwnerName:     "Owner",
			OwnerEmail:    "owner@darien.local",
			OwnerPassword: "owner-pass",
			AdminName:     "Administrator",
			AdminEmail:    "admin@darien.local",
			AdminPassword: "admin-pass",
		},
	}
}

// NopLogger discards every entry.
type NopLogger struct{}

var _ core.Logger = NopLogger{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Fatal(msg string, _ ...interface{}) {
	panic(msg)
}

// PrepareDB returns a connection to a fresh, empty postgres schema dropped when t ends.
// The test is skipped when TEST_DATABASE_URL is not set.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	schema := "test_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	ctx := context.Background()

	admin, err := sqlx.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	if _, err = admin.ExecContext(ctx, fmt.Sprintf(`CREATE SCHEMA %s`, schema)); err != nil {
		_ = admin.Close()
		t.Fatalf("PrepareDB() failed: %v", err)
	}

	db, err := sqlx.Open("postgres", withSearchPath(t, dsn, schema))
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	if err = db.PingContext(ctx); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
		if _, err := admin.ExecContext(ctx, fmt.Sprintf(`DROP SCHEMA %s CASCADE`, schema)); err != nil {
			t.Errorf("dropping schema %s: %v", schema, err)
		}
		_ = admin.Close()
	})
	return db
}

// withSearchPath pins every pooled connection of dsn to schema.
func withSearchPath(t *testing.T, dsn, schema string) string {
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return dsn + " search_path=" + schema
	}
	u, err := url.Parse(dsn)
	if err != nil {
		t.Fatalf("parsing TEST_DATABASE_URL: %v", err)
	}
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()
	return u.String()
}

// Fixtures

func CreateCenter(t *testing.T, repo center.Repository, name string, id ...int64) center.Center {
	t.Helper()
	c := center.Center{Name: name, CreatedAt: time.Now().UTC()}
	if len(id) > 0 {
		c.ID = id[0]
	}
	c, err := repo.CreateCenter(context.Background(), c)
	if err != nil {
		t.Fatalf("CreateCenter() failed: %v", err)
	}
	return c
}

func CreateOwner(t *testing.T, repo account.Repository, name, email, pwd string) account.Owner {
	t.Helper()
	hash, err := account.HashPassword(pwd)
	if err != nil {
		t.Fatalf("CreateOwner() failed: %v", err)
	}
	o, err := repo.CreateOwner(context.Background(), account.Owner{
		FullName:     name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateOwner() failed: %v", err)
	}
	return o
}

// CreateStaff stores a staff member. An empty pwd leaves the password hash empty.
func CreateStaff(t *testing.T, repo account.Repository, centerID int64, name, email, role, pwd string) account.Staff {
	t.Helper()
	stf := account.Staff{
		CenterID: centerID,
		FullName: name,
		Email:    email,
		Role:     role,
	}
	if pwd != "" {
		if err := stf.SetPassword(pwd); err != nil {
			t.Fatalf("CreateStaff() failed: %v", err)
		}
	}
	stf, err := repo.CreateStaff(context.Background(), stf)
	if err != nil {
		t.Fatalf("CreateStaff() failed: %v", err)
	}
	return stf
}

func CreateStudent(t *testing.T, repo academic.Repository, centerID int64, name, className string) academic.Student {
	t.Helper()
	s, err := repo.CreateStudent(context.Background(), academic.Student{
		CenterID:  centerID,
		FullName:  name,
		ClassName: className,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return s
}

func CreateSubject(t *testing.T, repo academic.Repository, centerID int64, name string) academic.Subject {
	t.Helper()
	s, err := repo.CreateSubject(context.Background(), academic.Subject{CenterID: centerID, Name: name})
	if err != nil {
		t.Fatalf("CreateSubject() failed: %v", err)
	}
	return s
}

func Enroll(t *testing.T, repo academic.Repository, centerID, studentID, subjectID, teacherID int64) academic.Enrollment {
	t.Helper()
	e, err := repo.CreateEnrollment(context.Background(), academic.Enrollment{
		CenterID:  centerID,
		StudentID: studentID,
		SubjectID: subjectID,
		TeacherID: teacherID,
	})
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	return e
}
