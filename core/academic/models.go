package academic

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/darien/gradebook/core"
)

// Attendance statuses
const (
	StatusPresent         = "present"
	StatusAbsentExcused   = "absent_excused"
	StatusAbsentUnexcused = "absent_unexcused"
)

var AttendanceStatuses = []string{StatusPresent, StatusAbsentExcused, StatusAbsentUnexcused}

// Student is a learner of a center. ClassName is a free-text grouping key.
type Student struct {
	ID        int64  `json:"id" db:"id"`
	CenterID  int64  `json:"center_id" db:"center_id"`
	FullName  string `json:"full_name" db:"full_name"`
	ClassName string `json:"class_name" db:"class_name"`
}

type NewStudent struct {
	FullName  string `json:"full_name" validate:"required,notblank"`
	ClassName string `json:"class_name" validate:"required,notblank"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.FullName = core.CleanString(ns.FullName)
	ns.ClassName = core.CleanString(ns.ClassName)
	return validate.Struct(ns)
}

// UpdateStudent modifies a Student. Blank fields keep their current value.
type UpdateStudent struct {
	FullName  string `json:"full_name"`
	ClassName string `json:"class_name"`
}

func (us *UpdateStudent) apply(s Student) Student {
	if name := core.CleanString(us.FullName); name != "" {
		s.FullName = name
	}
	if class := core.CleanString(us.ClassName); class != "" {
		s.ClassName = class
	}
	return s
}

type Subject struct {
	ID       int64  `json:"id" db:"id"`
	CenterID int64  `json:"center_id" db:"center_id"`
	Name     string `json:"name" db:"name"`
}

type NewSubject struct {
	Name string `json:"name" validate:"required,notblank,max=100"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	return validate.Struct(ns)
}

// Enrollment assigns a teacher to a student for a subject.
// The name fields are joined on read.
type Enrollment struct {
	ID          int64  `json:"id" db:"id"`
	CenterID    int64  `json:"center_id" db:"center_id"`
	StudentID   int64  `json:"student_id" db:"student_id"`
	SubjectID   int64  `json:"subject_id" db:"subject_id"`
	TeacherID   int64  `json:"teacher_id" db:"teacher_id"`
	StudentName string `json:"student_name" db:"student_name"`
	ClassName   string `json:"class_name" db:"class_name"`
	SubjectName string `json:"subject_name" db:"subject_name"`
	TeacherName string `json:"teacher_name" db:"teacher_name"`
}

type NewEnrollment struct {
	StudentID int64 `json:"student_id" validate:"required,gt=0"`
	SubjectID int64 `json:"subject_id" validate:"required,gt=0"`
	TeacherID int64 `json:"teacher_id" validate:"required,gt=0"`
}

// EnrollmentFilter narrows QueryEnrollments. Zero fields are ignored.
type EnrollmentFilter struct {
	CenterID  int64
	StudentID int64
	SubjectID int64
	TeacherID int64
	ClassName string
}

// Lesson is a recurring weekly timetable slot.
type Lesson struct {
	ID          int64  `json:"id" db:"id"`
	CenterID    int64  `json:"center_id" db:"center_id"`
	ClassName   string `json:"class_name" db:"class_name"`
	SubjectID   int64  `json:"subject_id" db:"subject_id"`
	TeacherID   int64  `json:"teacher_id" db:"teacher_id"`
	DayOfWeek   int    `json:"day_of_week" db:"day_of_week"`
	StartTime   string `json:"start_time" db:"start_time"`
	EndTime     string `json:"end_time" db:"end_time"`
	SubjectName string `json:"subject_name" db:"subject_name"`
	TeacherName string `json:"teacher_name" db:"teacher_name"`
}

type NewLesson struct {
	ClassName string `json:"class_name" validate:"required,notblank"`
	SubjectID int64  `json:"subject_id" validate:"required,gt=0"`
	TeacherID int64  `json:"teacher_id" validate:"required,gt=0"`
	DayOfWeek int    `json:"day_of_week" validate:"min=0,max=6"`
	StartTime string `json:"start_time" validate:"required,hhmm"`
	EndTime   string `json:"end_time" validate:"required,hhmm"`
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.ClassName = core.CleanString(nl.ClassName)
	nl.StartTime = core.CleanString(nl.StartTime)
	nl.EndTime = core.CleanString(nl.EndTime)
	return validate.Struct(nl)
}

type Attendance struct {
	ID          int64       `json:"id" db:"id"`
	CenterID    int64       `json:"center_id" db:"center_id"`
	StudentID   int64       `json:"student_id" db:"student_id"`
	SubjectID   int64       `json:"subject_id" db:"subject_id"`
	TeacherID   int64       `json:"teacher_id" db:"teacher_id"`
	Date        time.Time   `json:"date" db:"att_date"`
	Status      string      `json:"status" db:"status"`
	Note        null.String `json:"note" db:"note"`
	StudentName string      `json:"student_name" db:"student_name"`
	SubjectName string      `json:"subject_name" db:"subject_name"`
}

// NewAttendance is a teacher's attendance mark. TeacherID comes from the session.
type NewAttendance struct {
	StudentID int64  `json:"student_id" validate:"required,gt=0"`
	SubjectID int64  `json:"subject_id" validate:"required,gt=0"`
	TeacherID int64  `json:"-"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Status    string `json:"status" validate:"required,attstatus"`
	Note      string `json:"note" validate:"max=1000"`
}

func (na *NewAttendance) Validate(validate *validator.Validate) error {
	na.Status = core.CleanString(na.Status, true /* lower */)
	na.Note = core.CleanString(na.Note)
	na.Date = core.CleanString(na.Date)
	return validate.Struct(na)
}

// AttendanceFilter narrows QueryAttendance. Zero fields are ignored.
type AttendanceFilter struct {
	CenterID  int64
	StudentID int64
	TeacherID int64
	From      time.Time
	To        time.Time
}
