package echoapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darien/gradebook/core"
	"github.com/darien/gradebook/core/academic"
	"github.com/darien/gradebook/core/grading"
)

// pathID reads the numeric :id path parameter. Malformed ids are reported as not found.
func pathID(ctx echo.Context) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}

// parseDateParam parses an optional YYYY-MM-DD query value; "" gives the zero time.
func parseDateParam(val, field string) (time.Time, error) {
	if val == "" {
		return time.Time{}, nil
	}
	date, err := core.ParseDate(val)
	if err != nil {
		return time.Time{}, core.NewFieldValidationError(errors.New(errHttpInvalidDate), field)
	}
	return date, nil
}

// gradeQuery holds the query parameters of the grade listings.
type gradeQuery struct {
	ClassName string `query:"class_name"`
	SubjectID int64  `query:"subject_id"`
	StudentID int64  `query:"student_id"`
	TeacherID int64  `query:"teacher_id"`
	Date      string `query:"date"`
	From      string `query:"from"`
	To        string `query:"to"`
}

func (q *gradeQuery) Bind(ctx echo.Context) error {
	if err := ctx.Bind(q); err != nil {
		return errors.Wrap(err, "binding grade query")
	}
	q.ClassName = core.CleanString(q.ClassName)
	return nil
}

func (q *gradeQuery) Filter(centerID int64) (grading.GradeFilter, error) {
	date, err := parseDateParam(q.Date, "date")
	if err != nil {
		return grading.GradeFilter{}, err
	}
	from, err := parseDateParam(q.From, "from")
	if err != nil {
		return grading.GradeFilter{}, err
	}
	to, err := parseDateParam(q.To, "to")
	if err != nil {
		return grading.GradeFilter{}, err
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return grading.GradeFilter{}, core.NewFieldValidationError(errors.New(errHttpInvalidDateSpan), "to")
	}
	return grading.GradeFilter{
		CenterID:  centerID,
		ClassName: q.ClassName,
		SubjectID: q.SubjectID,
		StudentID: q.StudentID,
		TeacherID: q.TeacherID,
		Date:      date,
		From:      from,
		To:        to,
	}, nil
}

// attendanceQuery holds the query parameters of the attendance listings.
type attendanceQuery struct {
	StudentID int64  `query:"student_id"`
	TeacherID int64  `query:"teacher_id"`
	From      string `query:"from"`
	To        string `query:"to"`
}

func (q *attendanceQuery) Bind(ctx echo.Context) error {
	if err := ctx.Bind(q); err != nil {
		return errors.Wrap(err, "binding attendance query")
	}
	return nil
}

func (q *attendanceQuery) Filter(centerID int64) (academic.AttendanceFilter, error) {
	from, err := parseDateParam(q.From, "from")
	if err != nil {
		return academic.AttendanceFilter{}, err
	}
	to, err := parseDateParam(q.To, "to")
	if err != nil {
		return academic.AttendanceFilter{}, err
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return academic.AttendanceFilter{}, core.NewFieldValidationError(errors.New(errHttpInvalidDateSpan), "to")
	}
	return academic.AttendanceFilter{
		CenterID:  centerID,
		StudentID: q.StudentID,
		TeacherID: q.TeacherID,
		From:      from,
		To:        to,
	}, nil
}

// enrollmentQuery holds the query parameters of the enrollment listing.
type enrollmentQuery struct {
	StudentID int64  `query:"student_id"`
	SubjectID int64  `query:"subject_id"`
	TeacherID int64  `query:"teacher_id"`
	ClassName string `query:"class_name"`
}

func (q *enrollmentQuery) Bind(ctx echo.Context) error {
	if err := ctx.Bind(q); err != nil {
		return errors.Wrap(err, "binding enrollment query")
	}
	q.ClassName = core.CleanString(q.ClassName)
	return nil
}

func (q *enrollmentQuery) Filter(centerID int64) academic.EnrollmentFilter {
	return academic.EnrollmentFilter{
		CenterID:  centerID,
		StudentID: q.StudentID,
		SubjectID: q.SubjectID,
		TeacherID: q.TeacherID,
		ClassName: q.ClassName,
	}
}
