package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darien/gradebook/core/academic"
	"github.com/darien/gradebook/core/grading"
)

// teacherApi serves the teacher portal. The teacher is always the session identity.
type teacherApi struct {
	academic *academic.Service
	grading  *grading.Service
}

func registerTeacherAPI(g *echo.Group, deps ServerDeps) {
	api := teacherApi{
		academic: deps.Academic,
		grading:  deps.Grading,
	}

	g.GET("/classes", api.queryClasses)
	g.GET("/students", api.queryStudents)
	g.GET("/students/:id/subjects", api.queryStudentSubjects)

	g.GET("/grades", api.queryRecentGrades)
	g.POST("/grades", api.recordGrade)

	g.GET("/attendance", api.queryAttendance)
	g.POST("/attendance", api.recordAttendance)
}

func (api *teacherApi) queryClasses(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	classes, err := api.academic.TeacherClasses(ctx.Request().Context(), sess.CenterID, sess.Identity.ID)
	if err != nil {
		return errors.Wrap(err, "querying teacher classes")
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *teacherApi) queryStudents(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	students, err := api.academic.TeacherStudents(
		ctx.Request().Context(),
		sess.CenterID,
		sess.Identity.ID,
		ctx.QueryParam("class_name"),
	)
	if err != nil {
		return errors.Wrap(err, "querying teacher students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *teacherApi) queryStudentSubjects(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	subjects, err := api.academic.StudentSubjects(ctx.Request().Context(), sess.CenterID, sess.Identity.ID, id)
	if err != nil {
		return errors.Wrap(err, "querying student subjects")
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *teacherApi) queryRecentGrades(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	grades, err := api.grading.GradeReport(ctx.Request().Context(), grading.GradeFilter{
		CenterID:  sess.CenterID,
		TeacherID: sess.Identity.ID,
		Limit:     grading.RecentGradesLimit,
	})
	if err != nil {
		return errors.Wrap(err, "querying recent grades")
	}
	for i := range grades {
		grades[i] = grades[i].ForAudience(grading.AudienceTeacher)
	}
	return ctx.JSON(http.StatusOK, grades)
}

func (api *teacherApi) recordGrade(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	var data grading.NewGrade
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGrade")
	}
	data.TeacherID = sess.Identity.ID

	eval, err := api.grading.RecordGrade(ctx.Request().Context(), sess.CenterID, data)
	if err != nil {
		return errors.Wrap(err, "recording grade")
	}
	eval.Grade = eval.Grade.ForAudience(grading.AudienceTeacher)
	return ctx.JSON(http.StatusCreated, eval)
}

func (api *teacherApi) queryAttendance(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	var query attendanceQuery
	if err = query.Bind(ctx); err != nil {
		return err
	}
	query.TeacherID = sess.Identity.ID
	filter, err := query.Filter(sess.CenterID)
	if err != nil {
		return err
	}

	records, err := api.academic.ListAttendance(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *teacherApi) recordAttendance(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	var data academic.NewAttendance
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAttendance")
	}
	data.TeacherID = sess.Identity.ID

	att, err := api.academic.RecordAttendance(ctx.Request().Context(), sess.CenterID, data)
	if err != nil {
		return errors.Wrap(err, "recording attendance")
	}
	return ctx.JSON(http.StatusCreated, att)
}
