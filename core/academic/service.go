// Package academic manages the students, subjects, teacher enrollments, timetable & attendance of a center.
package academic

import (
	"context"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darien/gradebook/core"
	"github.com/darien/gradebook/core/account"
)

var (
	// errors
	ErrNotFound        = errors.New("not found")
	ErrStudentNotFound = errors.New("student not found")
	ErrSubjectNotFound = errors.New("subject not found")
	ErrTeacherNotFound = errors.New("teacher not found")
	ErrSubjectExists   = errors.New("a subject with this name already exists")
	ErrAlreadyEnrolled = errors.New("this enrollment already exists")
	ErrNotEnrolled     = errors.New("student is not enrolled with this teacher for this subject")
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, s Student) (Student, error)
		GetStudent(ctx context.Context, centerID, id int64) (Student, error)
		// QueryStudents lists the center's students, optionally of one class, ordered by class then name.
		QueryStudents(ctx context.Context, centerID int64, className string) ([]Student, error)
		QueryClasses(ctx context.Context, centerID int64) ([]string, error)
		UpdateStudent(ctx context.Context, s Student) (Student, error)
		DeleteStudent(ctx context.Context, centerID, id int64) error

		SubjectNameExists(ctx context.Context, centerID int64, name string, excludedID int64) (bool, error)
		CreateSubject(ctx context.Context, s Subject) (Subject, error)
		GetSubject(ctx context.Context, centerID, id int64) (Subject, error)
		QuerySubjects(ctx context.Context, centerID int64) ([]Subject, error)
		UpdateSubject(ctx context.Context, s Subject) (Subject, error)
		DeleteSubject(ctx context.Context, centerID, id int64) error

		EnrollmentExists(ctx context.Context, centerID, studentID, subjectID, teacherID int64) (bool, error)
		CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
		QueryEnrollments(ctx context.Context, filter EnrollmentFilter) ([]Enrollment, error)
		DeleteEnrollment(ctx context.Context, centerID, id int64) error

		CreateLesson(ctx context.Context, l Lesson) (Lesson, error)
		QueryLessons(ctx context.Context, centerID int64, className string) ([]Lesson, error)
		DeleteLesson(ctx context.Context, centerID, id int64) error

		CreateAttendance(ctx context.Context, a Attendance) (Attendance, error)
		QueryAttendance(ctx context.Context, filter AttendanceFilter) ([]Attendance, error)
	}

	// StaffFinder looks up staff members of a center. *account.Service satisfies it.
	StaffFinder interface {
		GetStaff(ctx context.Context, centerID, id int64) (account.Staff, error)
	}

	Service struct {
		repo     Repository
		staff    StaffFinder
		validate *validator.Validate
	}
)

func NewService(repo Repository, staff StaffFinder, validate *validator.Validate) *Service {
	return &Service{repo: repo, staff: staff, validate: validate}
}

// references

func (svc *Service) getStudent(ctx context.Context, centerID, id int64) (Student, error) {
	s, err := svc.repo.GetStudent(ctx, centerID, id)
	if err != nil {
		if errors.Cause(err) == ErrStudentNotFound {
			return Student{}, core.NewFieldValidationError(ErrStudentNotFound, "student_id")
		}
		return Student{}, errors.Wrap(err, "getting student")
	}
	return s, nil
}

func (svc *Service) getSubject(ctx context.Context, centerID, id int64) (Subject, error) {
	s, err := svc.repo.GetSubject(ctx, centerID, id)
	if err != nil {
		if errors.Cause(err) == ErrSubjectNotFound {
			return Subject{}, core.NewFieldValidationError(ErrSubjectNotFound, "subject_id")
		}
		return Subject{}, errors.Wrap(err, "getting subject")
	}
	return s, nil
}

func (svc *Service) getTeacher(ctx context.Context, centerID, id int64) (account.Staff, error) {
	t, err := svc.staff.GetStaff(ctx, centerID, id)
	if err != nil {
		if errors.Cause(err) == account.ErrNotFound {
			return account.Staff{}, core.NewFieldValidationError(ErrTeacherNotFound, "teacher_id")
		}
		return account.Staff{}, errors.Wrap(err, "getting teacher")
	}
	if !t.IsTeacher() {
		return account.Staff{}, core.NewFieldValidationError(ErrTeacherNotFound, "teacher_id")
	}
	return t, nil
}

// Students

func (svc *Service) CreateStudent(ctx context.Context, centerID int64, ns NewStudent) (Student, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return Student{}, err
	}
	return svc.repo.CreateStudent(ctx, Student{
		CenterID:  centerID,
		FullName:  ns.FullName,
		ClassName: ns.ClassName,
	})
}

func (svc *Service) GetStudent(ctx context.Context, centerID, id int64) (Student, error) {
	return svc.repo.GetStudent(ctx, centerID, id)
}

func (svc *Service) ListStudents(ctx context.Context, centerID int64, className string) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, centerID, core.CleanString(className))
}

func (svc *Service) ListClasses(ctx context.Context, centerID int64) ([]string, error) {
	return svc.repo.QueryClasses(ctx, centerID)
}

func (svc *Service) UpdateStudent(ctx context.Context, centerID, id int64, us UpdateStudent) (Student, error) {
	s, err := svc.repo.GetStudent(ctx, centerID, id)
	if err != nil {
		return Student{}, err
	}
	return svc.repo.UpdateStudent(ctx, us.apply(s))
}

// DeleteStudent removes the student with its account, enrollments, grades & attendance.
func (svc *Service) DeleteStudent(ctx context.Context, centerID, id int64) error {
	return svc.repo.DeleteStudent(ctx, centerID, id)
}

// Subjects

func (svc *Service) checkSubjectName(ctx context.Context, centerID int64, name string, excludedID int64) error {
	exists, err := svc.repo.SubjectNameExists(ctx, centerID, name, excludedID)
	if err != nil {
		return errors.Wrap(err, "checking subject name")
	}
	if exists {
		return core.NewFieldValidationError(ErrSubjectExists, "name")
	}
	return nil
}

func (svc *Service) CreateSubject(ctx context.Context, centerID int64, ns NewSubject) (Subject, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return Subject{}, err
	}
	if err := svc.checkSubjectName(ctx, centerID, ns.Name, 0); err != nil {
		return Subject{}, err
	}
	sub, err := svc.repo.CreateSubject(ctx, Subject{CenterID: centerID, Name: ns.Name})
	if err != nil {
		if errors.Cause(err) == ErrSubjectExists {
			return Subject{}, core.NewFieldValidationError(ErrSubjectExists, "name")
		}
		return Subject{}, errors.Wrap(err, "creating subject")
	}
	return sub, nil
}

func (svc *Service) ListSubjects(ctx context.Context, centerID int64) ([]Subject, error) {
	return svc.repo.QuerySubjects(ctx, centerID)
}

func (svc *Service) GetSubject(ctx context.Context, centerID, id int64) (Subject, error) {
	return svc.repo.GetSubject(ctx, centerID, id)
}

func (svc *Service) UpdateSubject(ctx context.Context, centerID, id int64, ns NewSubject) (Subject, error) {
	sub, err := svc.repo.GetSubject(ctx, centerID, id)
	if err != nil {
		return Subject{}, err
	}
	if err = ns.Validate(svc.validate); err != nil {
		return Subject{}, err
	}
	if ns.Name == sub.Name {
		return sub, nil
	}
	if err = svc.checkSubjectName(ctx, centerID, ns.Name, sub.ID); err != nil {
		return Subject{}, err
	}
	sub.Name = ns.Name
	return svc.repo.UpdateSubject(ctx, sub)
}

func (svc *Service) DeleteSubject(ctx context.Context, centerID, id int64) error {
	return svc.repo.DeleteSubject(ctx, centerID, id)
}

// Enrollments

// Enroll assigns a teacher to a student for a subject. All three must belong to the center,
// and an identical enrollment must not exist yet.
func (svc *Service) Enroll(ctx context.Context, centerID int64, ne NewEnrollment) (Enrollment, error) {
	if err := svc.validate.Struct(ne); err != nil {
		return Enrollment{}, err
	}
	std, err := svc.getStudent(ctx, centerID, ne.StudentID)
	if err != nil {
		return Enrollment{}, err
	}
	sub, err := svc.getSubject(ctx, centerID, ne.SubjectID)
	if err != nil {
		return Enrollment{}, err
	}
	tchr, err := svc.getTeacher(ctx, centerID, ne.TeacherID)
	if err != nil {
		return Enrollment{}, err
	}

	exists, err := svc.repo.EnrollmentExists(ctx, centerID, std.ID, sub.ID, tchr.ID)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "checking enrollment")
	}
	if exists {
		return Enrollment{}, core.NewValidationError(ErrAlreadyEnrolled)
	}

	enr, err := svc.repo.CreateEnrollment(ctx, Enrollment{
		CenterID:  centerID,
		StudentID: std.ID,
		SubjectID: sub.ID,
		TeacherID: tchr.ID,
	})
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "creating enrollment")
	}
	enr.StudentName = std.FullName
	enr.ClassName = std.ClassName
	enr.SubjectName = sub.Name
	enr.TeacherName = tchr.FullName
	return enr, nil
}

func (svc *Service) Unenroll(ctx context.Context, centerID, id int64) error {
	return svc.repo.DeleteEnrollment(ctx, centerID, id)
}

func (svc *Service) ListEnrollments(ctx context.Context, filter EnrollmentFilter) ([]Enrollment, error) {
	return svc.repo.QueryEnrollments(ctx, filter)
}

// IsEnrolled reports whether teacherID teaches subjectID to studentID.
func (svc *Service) IsEnrolled(ctx context.Context, centerID, studentID, subjectID, teacherID int64) (bool, error) {
	return svc.repo.EnrollmentExists(ctx, centerID, studentID, subjectID, teacherID)
}

// TeacherClasses lists the classes a teacher has at least one enrolled student in.
func (svc *Service) TeacherClasses(ctx context.Context, centerID, teacherID int64) ([]string, error) {
	enrs, err := svc.repo.QueryEnrollments(ctx, EnrollmentFilter{CenterID: centerID, TeacherID: teacherID})
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	seen := make(map[string]bool)
	classes := make([]string, 0)
	for _, e := range enrs {
		if !seen[e.ClassName] {
			seen[e.ClassName] = true
			classes = append(classes, e.ClassName)
		}
	}
	sort.Strings(classes)
	return classes, nil
}

// TeacherStudents lists the students of className a teacher is enrolled with.
func (svc *Service) TeacherStudents(ctx context.Context, centerID, teacherID int64, className string) ([]Student, error) {
	enrs, err := svc.repo.QueryEnrollments(ctx, EnrollmentFilter{
		CenterID:  centerID,
		TeacherID: teacherID,
		ClassName: core.CleanString(className),
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	seen := make(map[int64]bool)
	students := make([]Student, 0)
	for _, e := range enrs {
		if !seen[e.StudentID] {
			seen[e.StudentID] = true
			students = append(students, Student{
				ID:        e.StudentID,
				CenterID:  e.CenterID,
				FullName:  e.StudentName,
				ClassName: e.ClassName,
			})
		}
	}
	sort.SliceStable(students, func(i, j int) bool { return students[i].FullName < students[j].FullName })
	return students, nil
}

// StudentSubjects lists the subjects a teacher teaches to studentID.
func (svc *Service) StudentSubjects(ctx context.Context, centerID, teacherID, studentID int64) ([]Subject, error) {
	enrs, err := svc.repo.QueryEnrollments(ctx, EnrollmentFilter{
		CenterID:  centerID,
		TeacherID: teacherID,
		StudentID: studentID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	seen := make(map[int64]bool)
	subjects := make([]Subject, 0)
	for _, e := range enrs {
		if !seen[e.SubjectID] {
			seen[e.SubjectID] = true
			subjects = append(subjects, Subject{ID: e.SubjectID, CenterID: e.CenterID, Name: e.SubjectName})
		}
	}
	sort.SliceStable(subjects, func(i, j int) bool { return subjects[i].Name < subjects[j].Name })
	return subjects, nil
}

// Lessons

func (svc *Service) CreateLesson(ctx context.Context, centerID int64, nl NewLesson) (Lesson, error) {
	if err := nl.Validate(svc.validate); err != nil {
		return Lesson{}, err
	}
	sub, err := svc.getSubject(ctx, centerID, nl.SubjectID)
	if err != nil {
		return Lesson{}, err
	}
	tchr, err := svc.getTeacher(ctx, centerID, nl.TeacherID)
	if err != nil {
		return Lesson{}, err
	}
	l, err := svc.repo.CreateLesson(ctx, Lesson{
		CenterID:  centerID,
		ClassName: nl.ClassName,
		SubjectID: sub.ID,
		TeacherID: tchr.ID,
		DayOfWeek: nl.DayOfWeek,
		StartTime: nl.StartTime,
		EndTime:   nl.EndTime,
	})
	if err != nil {
		return Lesson{}, errors.Wrap(err, "creating lesson")
	}
	l.SubjectName = sub.Name
	l.TeacherName = tchr.FullName
	return l, nil
}

// ListLessons returns the timetable ordered by day then start time.
func (svc *Service) ListLessons(ctx context.Context, centerID int64, className string) ([]Lesson, error) {
	return svc.repo.QueryLessons(ctx, centerID, core.CleanString(className))
}

func (svc *Service) DeleteLesson(ctx context.Context, centerID, id int64) error {
	return svc.repo.DeleteLesson(ctx, centerID, id)
}

// Attendance

// RecordAttendance stores a teacher's mark for a student they are enrolled with.
func (svc *Service) RecordAttendance(ctx context.Context, centerID int64, na NewAttendance) (Attendance, error) {
	if err := na.Validate(svc.validate); err != nil {
		return Attendance{}, err
	}
	date, err := core.ParseDate(na.Date)
	if err != nil {
		return Attendance{}, core.NewFieldValidationError(err, "date")
	}

	enrolled, err := svc.repo.EnrollmentExists(ctx, centerID, na.StudentID, na.SubjectID, na.TeacherID)
	if err != nil {
		return Attendance{}, errors.Wrap(err, "checking enrollment")
	}
	if !enrolled {
		return Attendance{}, core.NewFieldValidationError(ErrNotEnrolled, "student_id")
	}

	att, err := svc.repo.CreateAttendance(ctx, Attendance{
		CenterID:  centerID,
		StudentID: na.StudentID,
		SubjectID: na.SubjectID,
		TeacherID: na.TeacherID,
		Date:      date,
		Status:    na.Status,
		Note:      null.NewString(na.Note, na.Note != ""),
	})
	if err != nil {
		return Attendance{}, errors.Wrap(err, "creating attendance")
	}
	return att, nil
}

// ListAttendance returns the matching marks, most recent day first.
func (svc *Service) ListAttendance(ctx context.Context, filter AttendanceFilter) ([]Attendance, error) {
	return svc.repo.QueryAttendance(ctx, filter)
}
