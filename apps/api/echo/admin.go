package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darien/gradebook/core"
	"github.com/darien/gradebook/core/academic"
	"github.com/darien/gradebook/core/account"
	"github.com/darien/gradebook/core/grading"
)

// adminApi serves the admin portal. Every call operates on the center of the session.
type adminApi struct {
	accounts *account.Service
	academic *academic.Service
	grading  *grading.Service
}

func registerAdminAPI(g *echo.Group, deps ServerDeps) {
	api := adminApi{
		accounts: deps.Accounts,
		academic: deps.Academic,
		grading:  deps.Grading,
	}

	g.GET("/classes", api.queryClasses)

	g.GET("/students", api.queryStudents)
	g.POST("/students", api.createStudent)
	g.PUT("/students/:id", api.updateStudent)
	g.DELETE("/students/:id", api.destroyStudent)

	g.GET("/student-accounts", api.queryStudentAccounts)
	g.POST("/student-accounts", api.provisionStudentAccounts)

	g.GET("/subjects", api.querySubjects)
	g.POST("/subjects", api.createSubject)
	g.PUT("/subjects/:id", api.updateSubject)
	g.DELETE("/subjects/:id", api.destroySubject)

	g.GET("/staff", api.queryStaff)
	g.POST("/staff", api.createStaff)
	g.GET("/staff/:id", api.retrieveStaff)
	g.PUT("/staff/:id", api.updateStaff)
	g.DELETE("/staff/:id", api.destroyStaff)

	g.GET("/enrollments", api.queryEnrollments)
	g.POST("/enrollments", api.enroll)
	g.DELETE("/enrollments/:id", api.unenroll)

	g.GET("/lessons", api.queryLessons)
	g.POST("/lessons", api.createLesson)
	g.DELETE("/lessons/:id", api.destroyLesson)

	g.GET("/schemes", api.querySchemes)
	g.POST("/schemes", api.createScheme)

	g.GET("/grades", api.gradeReport)
	g.GET("/honor-board", api.honorBoard)
	g.GET("/attendance", api.queryAttendance)
}

// centerID is the center the session operates on.
func centerID(ctx echo.Context) (int64, error) {
	sess, err := getContextSession(ctx)
	if err != nil {
		return 0, err
	}
	return sess.CenterID, nil
}

// Students

func (api *adminApi) queryClasses(ctx echo.Context) error {
	cID, err := centerID(ctx)
	if err != nil {
		return err
	}
	classes, err := api.academic.ListClasses(ctx.Request().Context(), cID)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *adminApi) queryStudents(ctx echo.Context) error {
	cID, err := centerID(ctx)
	if err != nil {
		return err
	}
	students, err := api.academic.ListStudents(ctx.Request().Context(), cID, ctx.QueryParam("class_name"))
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *adminApi) createStudent(ctx echo.Context) error {
	cID, err := centerID(ctx)
	if err != nil {
		return err
	}
	var data academic.NewStudent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}

	std, err := api.academic.CreateStudent(ctx.Request().Context(), cID, data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, std)
}

func (api *adminApi) updateStudent(ctx echo.Context) error {
	cID, err := centerID(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	var data academic.UpdateStudent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}

	std, err := api.academic.UpdateStudent(ctx.Request().Context(), cID, id, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *adminApi) destroyStudent(ctx echo.Context) error {
	cID, err := centerID(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err = api.academic.DeleteStudent(ctx.Request().Context(), cID, id); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *adminApi) queryStudentAccounts(ctx echo.Context) error {
	cID, err := centerID(ctx)
	if err != nil {
		return err
	}
	accounts, err := api.accounts.ListStudentAccounts(ctx.Request().Context(), cID)
	if err != nil {
		return errors.Wrap(err, "querying student accounts")
	}
	return ctx.JSON(http.StatusOK, accounts)
}

type provisionResponse struct {
	Created int `json:"created"`
}

func (api *adminApi) provisionStudentAccounts(ctx echo.Context) error {
	cID, err := centerID(ctx)
	if err != nil {
		return err
	}
	n, err := api.accounts.ProvisionStudentAccounts(ctx.Request().Context(), cID)
	if err != nil {
		if errors.Cause(err) == account.ErrNoSharedSecret {
			return core.NewValidationError(err)
		}
		return errors.Wrap(err, "provisioning student accounts")
	}
	return ctx.JSON(http.StatusOK, provisionResponse{Created: n})
}

// Subjects

func (api *adminApi) querySubjects(ctx echo.Context) error {
	cID, err := centerID(ctx)
	if err != nil {
		return err
	}
	subjects, err := api.academic.ListSubjects(ctx.Request().Context(), cID)
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *adminApi) createSubject(ctx echo.Context) error {
	cID, err := centerID(ctx)
	if err != nil {
		return err
	}
	var data academic.NewSubject
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}

	sub, err := api.academic.CreateSubject(ctx.Request().Context(), cID, data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *adminApi) updateSubject(ctx echo.Context) error {
	cID, err := centerID(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	var data academic.NewSubject
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}

	sub, err := api.academic.UpdateSubject(ctx.Request().Context(), cID, id, data)
	if err != nil {
		return errors.Wrap(err, "updating subject")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *adminApi) destroySubject(ctx echo.Context) error {
	cID, err := centerID(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err = api.academic.DeleteSubject(ctx.Request().Context(), cID, id); err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Staff

func (api *adminApi) queryStaff(ctx echo.Context) error {
	cID, err := centerID(ctx)
	if err != nil {
		return err
	}
	role := core.CleanString(ctx.QueryParam("role"), true /* lower */)
	staff, err := api.accounts.ListStaff(ctx.Request().Context(), cID, role)
	if err != nil {
		return errors.Wrap(err, "querying staff")
	}
	return ctx.JSON(http.StatusOK, staff)
}

func (api *adminApi) createStaff(ctx echo.Context) error {
	cID, err := centerID(ctx)
	if err != nil {
		return err
	}
	var data account.NewStaff
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStaff")
	}

	stf, err := api.accounts.CreateStaff(ctx.Request().Context(), cID, data)
	if err != nil {
		return errors.Wrap(err, "creating staff")
	}
	return ctx.JSON(http.StatusCreated, stf)
}

func (api *adminApi) retrieveStaff(ctx echo.Context) error {
	cID, err := centerID(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	stf, err := api.accounts.GetStaff(ctx.Request().Context(), cID, id)
	if err != nil {
		return errors.Wrap(err, "finding staff by ID")
	}
	return ctx.JSON(http.StatusOK, stf)
}

func (api *adminApi) updateStaff(ctx echo.Context) error {
	cID, err := centerID(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	var data account.UpdateStaff
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStaff")
	}

	stf, err := api.accounts.UpdateStaff(ctx.Request().Context(), cID, id, data)
	if err != nil {
		return errors.Wrap(err, "updating staff")
	}
	return ctx.JSON(http.StatusOK, stf)
}

func (api *adminApi) destroyStaff(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	// Say No to Suicide! an admin cannot delete themselves
	if sess.Identity.IsAdmin() && sess.Identity.ID == id {
		return errHttpForbidden
	}
	if err = api.accounts.DeleteStaff(ctx.Request().Context(), sess.CenterID, id); err != nil {
		return errors.Wrap(err, "deleting staff")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Enrollments

func (api *adminApi) queryEnrollments(ctx echo.Context) error {
	cID, err := centerID(ctx)
	if err != nil {
		return err
	}
	var query enrollmentQuery
	if err = query.Bind(ctx); err != nil {
		return err
	}
	enrs, err := api.academic.ListEnrollments(ctx.Request().Context(), query.Filter(cID))
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	return ctx.JSON(http.StatusOK, enrs)
}

func (api *adminApi) enroll(ctx echo.Context) error {
	cID, err := centerID(ctx)
	if err != nil {
		return err
	}
	var data academic.NewEnrollment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}

	enr, err := api.academic.Enroll(ctx.Request().Context(), cID, data)
	if err != nil {
		return errors.Wrap(err, "enrolling")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *adminApi) unenroll(ctx echo.Context) error {
	cID, err := centerID(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err = api.academic.Unenroll(ctx.Request().Context(), cID, id); err != nil {
		return errors.Wrap(err, "unenrolling")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Lessons

func (api *adminApi) queryLessons(ctx echo.Context) error {
	cID, err := centerID(ctx)
	if err != nil {
		return err
	}
	lessons, err := api.academic.ListLessons(ctx.Request().Context(), cID, ctx.QueryParam("class_name"))
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	return ctx.JSON(http.StatusOK, lessons)
}

func (api *adminApi) createLesson(ctx echo.Context) error {
	cID, err := centerID(ctx)
	if err != nil {
		return err
	}
	var data academic.NewLesson
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}

	l, err := api.academic.CreateLesson(ctx.Request().Context(), cID, data)
	if err != nil {
		return errors.Wrap(err, "creating lesson")
	}
	return ctx.JSON(http.StatusCreated, l)
}

func (api *adminApi) destroyLesson(ctx echo.Context) error {
	cID, err := centerID(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err = api.academic.DeleteLesson(ctx.Request().Context(), cID, id); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Grading

func (api *adminApi) querySchemes(ctx echo.Context) error {
	cID, err := centerID(ctx)
	if err != nil {
		return err
	}
	schemes, err := api.grading.ListSchemes(ctx.Request().Context(), cID)
	if err != nil {
		return errors.Wrap(err, "querying schemes")
	}
	return ctx.JSON(http.StatusOK, schemes)
}

func (api *adminApi) createScheme(ctx echo.Context) error {
	cID, err := centerID(ctx)
	if err != nil {
		return err
	}
	var data grading.NewScheme
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewScheme")
	}

	s, err := api.grading.CreateScheme(ctx.Request().Context(), cID, data)
	if err != nil {
		return errors.Wrap(err, "creating scheme")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *adminApi) gradeReport(ctx echo.Context) error {
	cID, err := centerID(ctx)
	if err != nil {
		return err
	}
	var query gradeQuery
	if err = query.Bind(ctx); err != nil {
		return err
	}
	filter, err := query.Filter(cID)
	if err != nil {
		return err
	}

	grades, err := api.grading.GradeReport(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying grades")
	}
	return ctx.JSON(http.StatusOK, grades)
}

func (api *adminApi) honorBoard(ctx echo.Context) error {
	cID, err := centerID(ctx)
	if err != nil {
		return err
	}
	var query gradeQuery
	if err = query.Bind(ctx); err != nil {
		return err
	}
	filter, err := query.Filter(cID)
	if err != nil {
		return err
	}

	board, err := api.grading.HonorBoard(ctx.Request().Context(), grading.HonorFilter{
		CenterID:  cID,
		ClassName: filter.ClassName,
		SubjectID: filter.SubjectID,
		Date:      filter.Date,
	})
	if err != nil {
		return errors.Wrap(err, "computing honor board")
	}
	return ctx.JSON(http.StatusOK, board)
}

func (api *adminApi) queryAttendance(ctx echo.Context) error {
	cID, err := centerID(ctx)
	if err != nil {
		return err
	}
	var query attendanceQuery
	if err = query.Bind(ctx); err != nil {
		return err
	}
	filter, err := query.Filter(cID)
	if err != nil {
		return err
	}

	records, err := api.academic.ListAttendance(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	return ctx.JSON(http.StatusOK, records)
}
