package echoapi_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darien/gradebook/core/account"
	"github.com/darien/gradebook/core/auth"
	"github.com/darien/gradebook/core/center"
	"github.com/darien/gradebook/core/grading"
	testutil "github.com/darien/gradebook/tests"
)

func TestServer_home(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(newRequest(http.MethodGet, "/"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to "+app.conf.AppName+" API!", rec.Body.String())
}

func Test_sessionApi(t *testing.T) {
	app := newTestApp(t)

	tests := []httpTest{
		{
			name: "wrong password", method: http.MethodPost, path: "/v1/auth/login",
			body:     marchallObj(t, auth.Credentials{Email: "adam@darien.test", Password: "nope"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "invalid credentials"}),
		},
		{
			name: "admin cannot use the shared password", method: http.MethodPost, path: "/v1/auth/login",
			body:     marchallObj(t, auth.Credentials{Email: "adam@darien.test", Password: testutil.SharedPassword}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "invalid credentials"}),
		},
		{
			name: "missing password", method: http.MethodPost, path: "/v1/auth/login",
			body:     marchallObj(t, auth.Credentials{Email: "adam@darien.test"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"password": "this field is required"}),
		},
		{
			name: "unknown center", method: http.MethodPost, path: "/v1/auth/login",
			body:     marchallObj(t, auth.Credentials{Email: "adam@darien.test", Password: "admin-pass", CenterID: 4242}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"center_id": center.ErrNotFound.Error()}),
		},
		{name: "me requires a token", path: "/v1/auth/me", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "bad token", path: "/v1/auth/me", token: "not.a.jwt", wantCode: http.StatusUnauthorized},
	}
	runHTTPTests(t, app, tests)

	t.Run("login, me & logout", func(t *testing.T) {
		token := app.login(t, "tess@darien.test", testutil.SharedPassword)

		rec := app.do(newAuthRequest(http.MethodGet, "/v1/auth/me", token))
		require.Equal(t, http.StatusOK, rec.Code)
		var sess auth.Session
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
		assert.Equal(t, app.teacher.ID, sess.Identity.ID)
		assert.Equal(t, account.RoleTeacher, sess.Identity.Role)

		rec = app.do(newAuthRequest(http.MethodPost, "/v1/auth/logout", token))
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = app.do(newAuthRequest(http.MethodGet, "/v1/auth/me", token))
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errUnauthed)}, rec)
	})
}

func TestServer_roleGating(t *testing.T) {
	app := newTestApp(t)

	owner := app.login(t, "olga@darien.test", "owner-pass")
	admin := app.login(t, "adam@darien.test", "admin-pass")
	teacher := app.login(t, "tess@darien.test", testutil.SharedPassword)
	student := app.login(t, app.studentEmail(), testutil.SharedPassword)

	forbidden := marchallObj(t, errForbidden)
	tests := []httpTest{
		{name: "admin area without token", path: "/v1/admin/classes", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "admin area as owner", path: "/v1/admin/classes", token: owner, wantCode: http.StatusOK, wantData: []byte(`["5A"]`)},
		{name: "admin area as admin", path: "/v1/admin/classes", token: admin, wantCode: http.StatusOK, wantData: []byte(`["5A"]`)},
		{name: "admin area as teacher", path: "/v1/admin/classes", token: teacher, wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "admin area as student", path: "/v1/admin/classes", token: student, wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "teacher area as teacher", path: "/v1/teacher/classes", token: teacher, wantCode: http.StatusOK, wantData: []byte(`["5A"]`)},
		{name: "teacher area as admin", path: "/v1/teacher/classes", token: admin, wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "teacher area as student", path: "/v1/teacher/classes", token: student, wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "student area as student", path: "/v1/student/grades", token: student, wantCode: http.StatusOK, wantData: []byte(`[]`)},
		{name: "student area as teacher", path: "/v1/student/grades", token: teacher, wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "student area as owner", path: "/v1/student/grades", token: owner, wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "centers are public", path: "/v1/centers", wantCode: http.StatusOK},
		{
			name: "only owners create centers", method: http.MethodPost, path: "/v1/centers", token: admin,
			body: []byte(`{"name": "North"}`), wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{
			name: "owner creates a center", method: http.MethodPost, path: "/v1/centers", token: owner,
			body: []byte(`{"name": "North"}`), wantCode: http.StatusCreated,
		},
		{name: "unknown staff", path: "/v1/admin/staff/4242", token: admin, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})},
		{name: "bad id", path: "/v1/admin/staff/abc", token: admin, wantCode: http.StatusNotFound},
	}
	runHTTPTests(t, app, tests)
}

func TestServer_grades(t *testing.T) {
	app := newTestApp(t)
	teacher := app.login(t, "tess@darien.test", testutil.SharedPassword)
	student := app.login(t, app.studentEmail(), testutil.SharedPassword)
	admin := app.login(t, "adam@darien.test", "admin-pass")

	body := func(studentID int64, score float64) []byte {
		return []byte(fmt.Sprintf(
			`{"student_id": %d, "subject_id": %d, "date": "2024-03-11", "score": %g, "note": "well done", "note_teacher": "keep an eye", "note_admin": "ok"}`,
			studentID, app.subject.ID, score))
	}

	t.Run("record", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodPost, "/v1/teacher/grades", teacher, body(app.student.ID, 95)))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var eval grading.Evaluation
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &eval))
		assert.Equal(t, grading.LabelExcellent, eval.Label)
		assert.Equal(t, grading.BasisAbsolute, eval.Basis)
		assert.Equal(t, app.teacher.ID, eval.Grade.TeacherID)
		assert.True(t, eval.Grade.NoteTeacher.Valid)
		assert.False(t, eval.Grade.NoteAdmin.Valid, "teachers do not read admin notes")
	})

	t.Run("not enrolled", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodPost, "/v1/teacher/grades", teacher, body(4242, 50)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing score", func(t *testing.T) {
		data := []byte(fmt.Sprintf(`{"student_id": %d, "subject_id": %d, "date": "2024-03-11"}`, app.student.ID, app.subject.ID))
		rec := app.do(newAuthRequest(http.MethodPost, "/v1/teacher/grades", teacher, data))
		require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

		var fldErrs map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fldErrs))
		assert.Equal(t, map[string]string{"score": "this field is required"}, fldErrs)
	})

	t.Run("bad date", func(t *testing.T) {
		data := []byte(fmt.Sprintf(`{"student_id": %d, "subject_id": %d, "date": "11/03/2024", "score": 50}`, app.student.ID, app.subject.ID))
		rec := app.do(newAuthRequest(http.MethodPost, "/v1/teacher/grades", teacher, data))
		require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), `"date"`)
	})

	t.Run("student reads own grades", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodGet, "/v1/student/grades", student))
		require.Equal(t, http.StatusOK, rec.Code)
		var grades []grading.Grade
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &grades))
		require.Len(t, grades, 1)
		assert.Equal(t, "well done", grades[0].Note.String)
		assert.False(t, grades[0].NoteTeacher.Valid)
		assert.False(t, grades[0].NoteAdmin.Valid)
	})

	t.Run("admin report", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodGet, "/v1/admin/grades?class_name=5A&from=2024-03-01&to=2024-03-31", admin))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var grades []grading.Grade
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &grades))
		require.Len(t, grades, 1)
		assert.True(t, grades[0].NoteAdmin.Valid)

		rec = app.do(newAuthRequest(http.MethodGet, "/v1/admin/grades?from=2024-03-31&to=2024-03-01", admin))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		rec = app.do(newAuthRequest(http.MethodGet, "/v1/admin/grades?date=11/03/2024", admin))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("honor board", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodGet, "/v1/admin/honor-board?class_name=5A", admin))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var board []grading.HonorEntry
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &board))
		require.Len(t, board, 1)
		assert.Equal(t, 95.0, board[0].Score)
	})
}
