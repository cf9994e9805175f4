package sqlxrepos

import (
	"context"

	"github.com/darien/gradebook/core"
	"github.com/darien/gradebook/core/academic"
)

const (
	studentColumns = `id, center_id, full_name, class_name`
	subjectColumns = `id, center_id, name`

	enrollmentSelect = `
		SELECT e.id, e.center_id, e.student_id, e.subject_id, e.teacher_id,
			s.full_name AS student_name, s.class_name, sub.name AS subject_name, u.full_name AS teacher_name
		FROM enrollments e
		JOIN students s ON s.id = e.student_id
		JOIN subjects sub ON sub.id = e.subject_id
		JOIN users u ON u.id = e.teacher_id`

	lessonSelect = `
		SELECT l.id, l.center_id, l.class_name, l.subject_id, l.teacher_id, l.day_of_week, l.start_time, l.end_time,
			sub.name AS subject_name, u.full_name AS teacher_name
		FROM lessons l
		JOIN subjects sub ON sub.id = l.subject_id
		JOIN users u ON u.id = l.teacher_id`

	attendanceSelect = `
		SELECT a.id, a.center_id, a.student_id, a.subject_id, a.teacher_id, a.att_date, a.status, a.note,
			s.full_name AS student_name, sub.name AS subject_name
		FROM attendance a
		JOIN students s ON s.id = a.student_id
		JOIN subjects sub ON sub.id = a.subject_id`
)

type AcademicRepository struct {
	db core.DB
}

var _ academic.Repository = (*AcademicRepository)(nil)

func NewAcademicRepository(db core.DB) *AcademicRepository {
	return &AcademicRepository{db: db}
}

// Students

func (repo *AcademicRepository) CreateStudent(ctx context.Context, s academic.Student) (academic.Student, error) {
	err := repo.db.GetContext(ctx, &s.ID,
		`INSERT INTO students (center_id, full_name, class_name) VALUES ($1, $2, $3) RETURNING id`,
		s.CenterID, s.FullName, s.ClassName,
	)
	if err != nil {
		return academic.Student{}, wrapErr(err, "inserting student")
	}
	return s, nil
}

func (repo *AcademicRepository) GetStudent(ctx context.Context, centerID, id int64) (academic.Student, error) {
	var s academic.Student
	err := repo.db.GetContext(ctx, &s, `SELECT `+studentColumns+` FROM students WHERE center_id = $1 AND id = $2`, centerID, id)
	if err != nil {
		return academic.Student{}, notFound(err, academic.ErrStudentNotFound, "selecting student")
	}
	return s, nil
}

func (repo *AcademicRepository) QueryStudents(ctx context.Context, centerID int64, className string) ([]academic.Student, error) {
	conds := &conditions{}
	conds.add("center_id = ?", centerID)
	if className != "" {
		conds.add("class_name = ?", className)
	}
	students := make([]academic.Student, 0)
	err := repo.db.SelectContext(ctx, &students,
		`SELECT `+studentColumns+` FROM students`+conds.where()+` ORDER BY class_name, full_name, id`, conds.args...)
	if err != nil {
		return nil, wrapErr(err, "selecting students")
	}
	return students, nil
}

func (repo *AcademicRepository) QueryClasses(ctx context.Context, centerID int64) ([]string, error) {
	classes := make([]string, 0)
	err := repo.db.SelectContext(ctx, &classes,
		`SELECT DISTINCT class_name FROM students WHERE center_id = $1 ORDER BY class_name`, centerID)
	if err != nil {
		return nil, wrapErr(err, "selecting classes")
	}
	return classes, nil
}

func (repo *AcademicRepository) UpdateStudent(ctx context.Context, s academic.Student) (academic.Student, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE students SET full_name = $1, class_name = $2 WHERE center_id = $3 AND id = $4`,
		s.FullName, s.ClassName, s.CenterID, s.ID,
	)
	if err = affected(res, err, academic.ErrStudentNotFound, "updating student"); err != nil {
		return academic.Student{}, err
	}
	return s, nil
}

func (repo *AcademicRepository) DeleteStudent(ctx context.Context, centerID, id int64) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM students WHERE center_id = $1 AND id = $2`, centerID, id)
	return affected(res, err, academic.ErrStudentNotFound, "deleting student")
}

// Subjects

func (repo *AcademicRepository) SubjectNameExists(ctx context.Context, centerID int64, name string, excludedID int64) (bool, error) {
	var exists bool
	err := repo.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM subjects WHERE center_id = $1 AND lower(name) = lower($2) AND id <> $3)`,
		centerID, name, excludedID,
	)
	return exists, wrapErr(err, "checking subject name")
}

func (repo *AcademicRepository) CreateSubject(ctx context.Context, s academic.Subject) (academic.Subject, error) {
	err := repo.db.GetContext(ctx, &s.ID,
		`INSERT INTO subjects (center_id, name) VALUES ($1, $2) RETURNING id`, s.CenterID, s.Name)
	if err != nil {
		if isUniqueViolation(err) {
			return academic.Subject{}, academic.ErrSubjectExists
		}
		return academic.Subject{}, wrapErr(err, "inserting subject")
	}
	return s, nil
}

func (repo *AcademicRepository) GetSubject(ctx context.Context, centerID, id int64) (academic.Subject, error) {
	var s academic.Subject
	err := repo.db.GetContext(ctx, &s, `SELECT `+subjectColumns+` FROM subjects WHERE center_id = $1 AND id = $2`, centerID, id)
	if err != nil {
		return academic.Subject{}, notFound(err, academic.ErrSubjectNotFound, "selecting subject")
	}
	return s, nil
}

func (repo *AcademicRepository) QuerySubjects(ctx context.Context, centerID int64) ([]academic.Subject, error) {
	subjects := make([]academic.Subject, 0)
	err := repo.db.SelectContext(ctx, &subjects,
		`SELECT `+subjectColumns+` FROM subjects WHERE center_id = $1 ORDER BY name, id`, centerID)
	if err != nil {
		return nil, wrapErr(err, "selecting subjects")
	}
	return subjects, nil
}

func (repo *AcademicRepository) UpdateSubject(ctx context.Context, s academic.Subject) (academic.Subject, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE subjects SET name = $1 WHERE center_id = $2 AND id = $3`, s.Name, s.CenterID, s.ID)
	if err != nil && isUniqueViolation(err) {
		return academic.Subject{}, academic.ErrSubjectExists
	}
	if err = affected(res, err, academic.ErrSubjectNotFound, "updating subject"); err != nil {
		return academic.Subject{}, err
	}
	return s, nil
}

func (repo *AcademicRepository) DeleteSubject(ctx context.Context, centerID, id int64) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM subjects WHERE center_id = $1 AND id = $2`, centerID, id)
	return affected(res, err, academic.ErrSubjectNotFound, "deleting subject")
}

// Enrollments

func (repo *AcademicRepository) EnrollmentExists(ctx context.Context, centerID, studentID, subjectID, teacherID int64) (bool, error) {
	var exists bool
	err := repo.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM enrollments
			WHERE center_id = $1 AND student_id = $2 AND subject_id = $3 AND teacher_id = $4
		)`,
		centerID, studentID, subjectID, teacherID,
	)
	return exists, wrapErr(err, "checking enrollment")
}

func (repo *AcademicRepository) CreateEnrollment(ctx context.Context, e academic.Enrollment) (academic.Enrollment, error) {
	err := repo.db.GetContext(ctx, &e.ID, `
		INSERT INTO enrollments (center_id, student_id, subject_id, teacher_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		e.CenterID, e.StudentID, e.SubjectID, e.TeacherID,
	)
	if err != nil {
		return academic.Enrollment{}, wrapErr(err, "inserting enrollment")
	}
	return e, nil
}

func (repo *AcademicRepository) QueryEnrollments(ctx context.Context, filter academic.EnrollmentFilter) ([]academic.Enrollment, error) {
	conds := &conditions{}
	conds.add("e.center_id = ?", filter.CenterID)
	if filter.StudentID != 0 {
		conds.add("e.student_id = ?", filter.StudentID)
	}
	if filter.SubjectID != 0 {
		conds.add("e.subject_id = ?", filter.SubjectID)
	}
	if filter.TeacherID != 0 {
		conds.add("e.teacher_id = ?", filter.TeacherID)
	}
	if filter.ClassName != "" {
		conds.add("s.class_name = ?", filter.ClassName)
	}
	enrollments := make([]academic.Enrollment, 0)
	err := repo.db.SelectContext(ctx, &enrollments,
		enrollmentSelect+conds.where()+` ORDER BY s.class_name, s.full_name, sub.name, e.id`, conds.args...)
	if err != nil {
		return nil, wrapErr(err, "selecting enrollments")
	}
	return enrollments, nil
}

func (repo *AcademicRepository) DeleteEnrollment(ctx context.Context, centerID, id int64) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM enrollments WHERE center_id = $1 AND id = $2`, centerID, id)
	return affected(res, err, academic.ErrNotFound, "deleting enrollment")
}

// Lessons

func (repo *AcademicRepository) CreateLesson(ctx context.Context, l academic.Lesson) (academic.Lesson, error) {
	err := repo.db.GetContext(ctx, &l.ID, `
		INSERT INTO lessons (center_id, class_name, subject_id, teacher_id, day_of_week, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		l.CenterID, l.ClassName, l.SubjectID, l.TeacherID, l.DayOfWeek, l.StartTime, l.EndTime,
	)
	if err != nil {
		return academic.Lesson{}, wrapErr(err, "inserting lesson")
	}
	return l, nil
}

func (repo *AcademicRepository) QueryLessons(ctx context.Context, centerID int64, className string) ([]academic.Lesson, error) {
	conds := &conditions{}
	conds.add("l.center_id = ?", centerID)
	if className != "" {
		conds.add("l.class_name = ?", className)
	}
	lessons := make([]academic.Lesson, 0)
	err := repo.db.SelectContext(ctx, &lessons,
		lessonSelect+conds.where()+` ORDER BY l.day_of_week, l.start_time, l.class_name, l.id`, conds.args...)
	if err != nil {
		return nil, wrapErr(err, "selecting lessons")
	}
	return lessons, nil
}

func (repo *AcademicRepository) DeleteLesson(ctx context.Context, centerID, id int64) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM lessons WHERE center_id = $1 AND id = $2`, centerID, id)
	return affected(res, err, academic.ErrNotFound, "deleting lesson")
}

// Attendance

func (repo *AcademicRepository) CreateAttendance(ctx context.Context, a academic.Attendance) (academic.Attendance, error) {
	err := repo.db.GetContext(ctx, &a.ID, `
		INSERT INTO attendance (center_id, student_id, subject_id, teacher_id, att_date, status, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		a.CenterID, a.StudentID, a.SubjectID, a.TeacherID, a.Date, a.Status, a.Note,
	)
	if err != nil {
		return academic.Attendance{}, wrapErr(err, "inserting attendance")
	}
	return a, nil
}

func (repo *AcademicRepository) QueryAttendance(ctx context.Context, filter academic.AttendanceFilter) ([]academic.Attendance, error) {
	conds := &conditions{}
	conds.add("a.center_id = ?", filter.CenterID)
	if filter.StudentID != 0 {
		conds.add("a.student_id = ?", filter.StudentID)
	}
	if filter.TeacherID != 0 {
		conds.add("a.teacher_id = ?", filter.TeacherID)
	}
	if !filter.From.IsZero() {
		conds.add("a.att_date >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		conds.add("a.att_date <= ?", filter.To)
	}
	records := make([]academic.Attendance, 0)
	err := repo.db.SelectContext(ctx, &records,
		attendanceSelect+conds.where()+` ORDER BY a.att_date DESC, a.id DESC`, conds.args...)
	if err != nil {
		return nil, wrapErr(err, "selecting attendance")
	}
	return records, nil
}
