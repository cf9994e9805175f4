package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	. "github.com/darien/gradebook/apps/api/echo"
	"github.com/darien/gradebook/core"
	"github.com/darien/gradebook/core/academic"
	"github.com/darien/gradebook/core/account"
	"github.com/darien/gradebook/core/auth"
	"github.com/darien/gradebook/core/center"
	"github.com/darien/gradebook/core/grading"
	inmemdb "github.com/darien/gradebook/storage/database/inmem"
	testutil "github.com/darien/gradebook/tests"
)

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errUnauthed     = httpErr{Error: "user not authenticated"}
	errForbidden    = httpErr{Error: "permission denied"}
)

// testApp is a server over an in-memory database holding one center with
// an owner, an admin, a teacher & an enrolled student.
type testApp struct {
	*Server
	conf    *core.Config
	repos   *inmemdb.Repositories
	teacher account.Staff
	student academic.Student
	subject academic.Subject
}

func newTestApp(t *testing.T) testApp {
	conf := testutil.Config()
	validate, translator := core.NewValidator()
	account.InitValidators(validate, translator)
	academic.InitValidators(validate, translator)
	grading.InitValidators(validate, translator)

	repos := inmemdb.NewRepositories(inmemdb.Open())
	centers := center.NewService(repos.Centers, validate)
	accounts := account.NewService(repos.Accounts, validate, account.Options{
		SharedPassword:     conf.Auth.SharedPassword,
		StudentEmailDomain: conf.Auth.StudentEmailDomain,
	})
	acaSvc := academic.NewService(repos.Academic, accounts, validate)

	app := testApp{
		Server: NewServer(ServerDeps{
			Conf:     conf,
			Logger:   testutil.NopLogger{},
			Centers:  centers,
			Accounts: accounts,
			Auth: auth.NewService(
				centers,
				accounts,
				auth.NewResolver(repos.Accounts, auth.NewPolicy(conf)),
				auth.NewSessionStore(),
				validate,
				testutil.NopLogger{},
			),
			Academic:   acaSvc,
			Grading:    grading.NewService(repos.Grading, acaSvc, validate),
			Validate:   validate,
			Translator: translator,
		}),
		conf:  conf,
		repos: repos,
	}

	c := testutil.CreateCenter(t, repos.Centers, conf.Bootstrap.CenterName, core.DefaultCenterID)
	testutil.CreateOwner(t, repos.Accounts, "Olga", "olga@darien.test", "owner-pass")
	testutil.CreateStaff(t, repos.Accounts, c.ID, "Adam", "adam@darien.test", account.RoleAdmin, "admin-pass")
	app.teacher = testutil.CreateStaff(t, repos.Accounts, c.ID, "Tess", "tess@darien.test", account.RoleTeacher, "")
	app.student = testutil.CreateStudent(t, repos.Academic, c.ID, "Bea", "5A")
	app.subject = testutil.CreateSubject(t, repos.Academic, c.ID, "Maths")
	testutil.Enroll(t, repos.Academic, c.ID, app.student.ID, app.subject.ID, app.teacher.ID)

	return app
}

func (app testApp) do(req *http.Request, rec *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	app.ServeHTTP(rec, req)
	return rec
}

// login returns a token for the credentials, failing t unless the login succeeds.
func (app testApp) login(t *testing.T, email, pwd string) string {
	t.Helper()
	rec := app.do(newRequest(http.MethodPost, "/v1/auth/login", marchallObj(t, auth.Credentials{Email: email, Password: pwd})))
	if rec.Code != http.StatusOK {
		t.Fatalf("login(%s) failed! code = %v; body %s", email, rec.Code, rec.Body.String())
	}
	var resp LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("login(%s): %v", email, err)
	}
	return resp.Token
}

func (app testApp) studentEmail() string {
	return account.StudentEmail(app.student.ID, app.conf.Auth.StudentEmailDomain)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	if method == "" {
		method = http.MethodGet
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app testApp, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(newAuthRequest(tt.method, tt.path, tt.token, tt.body))
			checkCodeAndData(t, tt, rec)
		})
	}
}
