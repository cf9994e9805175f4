package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darien/gradebook/core/academic"
	"github.com/darien/gradebook/core/auth"
	"github.com/darien/gradebook/core/grading"
)

// studentApi serves the student portal: a student only ever reads their own rows.
type studentApi struct {
	academic *academic.Service
	grading  *grading.Service
}

func registerStudentAPI(g *echo.Group, deps ServerDeps) {
	api := studentApi{
		academic: deps.Academic,
		grading:  deps.Grading,
	}

	g.GET("/grades", api.queryGrades)
	g.GET("/attendance", api.queryAttendance)
}

// studentSession returns the session of a student identity bound to a student row.
func studentSession(ctx echo.Context) (auth.Session, error) {
	sess, err := getContextSession(ctx)
	if err != nil {
		return auth.Session{}, err
	}
	if sess.Identity.StudentID == 0 {
		return auth.Session{}, errHttpForbidden
	}
	return sess, nil
}

func (api *studentApi) queryGrades(ctx echo.Context) error {
	sess, err := studentSession(ctx)
	if err != nil {
		return err
	}
	grades, err := api.grading.GradeReport(ctx.Request().Context(), grading.GradeFilter{
		CenterID:  sess.CenterID,
		StudentID: sess.Identity.StudentID,
	})
	if err != nil {
		return errors.Wrap(err, "querying grades")
	}
	for i := range grades {
		grades[i] = grades[i].ForAudience(grading.AudienceStudent)
	}
	return ctx.JSON(http.StatusOK, grades)
}

func (api *studentApi) queryAttendance(ctx echo.Context) error {
	sess, err := studentSession(ctx)
	if err != nil {
		return err
	}
	records, err := api.academic.ListAttendance(ctx.Request().Context(), academic.AttendanceFilter{
		CenterID:  sess.CenterID,
		StudentID: sess.Identity.StudentID,
	})
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	return ctx.JSON(http.StatusOK, records)
}
