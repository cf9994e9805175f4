package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/darien/gradebook/core/academic"
)

type AcademicRepository struct {
	db *DB
}

var _ academic.Repository = (*AcademicRepository)(nil)

// Students

func (repo *AcademicRepository) CreateStudent(_ context.Context, s academic.Student) (academic.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	s.ID = repo.db.nextID()
	repo.db.students[s.ID] = &s
	return s, nil
}

func (repo *AcademicRepository) GetStudent(_ context.Context, centerID, id int64) (academic.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.students[id]; ok && s.CenterID == centerID {
		return *s, nil
	}
	return academic.Student{}, academic.ErrStudentNotFound
}

func (repo *AcademicRepository) QueryStudents(_ context.Context, centerID int64, className string) ([]academic.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	students := make([]academic.Student, 0)
	for _, s := range repo.db.students {
		if s.CenterID == centerID && (className == "" || s.ClassName == className) {
			students = append(students, *s)
		}
	}
	sort.Slice(students, func(i, j int) bool {
		a, b := students[i], students[j]
		if a.ClassName != b.ClassName {
			return a.ClassName < b.ClassName
		}
		if a.FullName != b.FullName {
			return a.FullName < b.FullName
		}
		return a.ID < b.ID
	})
	return students, nil
}

func (repo *AcademicRepository) QueryClasses(_ context.Context, centerID int64) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	seen := make(map[string]bool)
	classes := make([]string, 0)
	for _, s := range repo.db.students {
		if s.CenterID == centerID && !seen[s.ClassName] {
			seen[s.ClassName] = true
			classes = append(classes, s.ClassName)
		}
	}
	sort.Strings(classes)
	return classes, nil
}

func (repo *AcademicRepository) UpdateStudent(_ context.Context, s academic.Student) (academic.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if orig, ok := repo.db.students[s.ID]; !ok || orig.CenterID != s.CenterID {
		return academic.Student{}, academic.ErrStudentNotFound
	}
	repo.db.students[s.ID] = &s
	return s, nil
}

func (repo *AcademicRepository) DeleteStudent(_ context.Context, centerID, id int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if s, ok := repo.db.students[id]; !ok || s.CenterID != centerID {
		return academic.ErrStudentNotFound
	}
	repo.db.deleteStudent(id)
	return nil
}

// Subjects

// subjectNameTaken must be called with the lock held.
func (repo *AcademicRepository) subjectNameTaken(centerID int64, name string, excludedID int64) bool {
	for _, s := range repo.db.subjects {
		if s.CenterID == centerID && s.ID != excludedID && strings.EqualFold(s.Name, name) {
			return true
		}
	}
	return false
}

func (repo *AcademicRepository) SubjectNameExists(_ context.Context, centerID int64, name string, excludedID int64) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.subjectNameTaken(centerID, name, excludedID), nil
}

func (repo *AcademicRepository) CreateSubject(_ context.Context, s academic.Subject) (academic.Subject, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if repo.subjectNameTaken(s.CenterID, s.Name, 0) {
		return academic.Subject{}, academic.ErrSubjectExists
	}
	s.ID = repo.db.nextID()
	repo.db.subjects[s.ID] = &s
	return s, nil
}

func (repo *AcademicRepository) GetSubject(_ context.Context, centerID, id int64) (academic.Subject, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.subjects[id]; ok && s.CenterID == centerID {
		return *s, nil
	}
	return academic.Subject{}, academic.ErrSubjectNotFound
}

func (repo *AcademicRepository) QuerySubjects(_ context.Context, centerID int64) ([]academic.Subject, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	subjects := make([]academic.Subject, 0)
	for _, s := range repo.db.subjects {
		if s.CenterID == centerID {
			subjects = append(subjects, *s)
		}
	}
	sort.Slice(subjects, func(i, j int) bool {
		if subjects[i].Name != subjects[j].Name {
			return subjects[i].Name < subjects[j].Name
		}
		return subjects[i].ID < subjects[j].ID
	})
	return subjects, nil
}

func (repo *AcademicRepository) UpdateSubject(_ context.Context, s academic.Subject) (academic.Subject, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if orig, ok := repo.db.subjects[s.ID]; !ok || orig.CenterID != s.CenterID {
		return academic.Subject{}, academic.ErrSubjectNotFound
	}
	if repo.subjectNameTaken(s.CenterID, s.Name, s.ID) {
		return academic.Subject{}, academic.ErrSubjectExists
	}
	repo.db.subjects[s.ID] = &s
	return s, nil
}

func (repo *AcademicRepository) DeleteSubject(_ context.Context, centerID, id int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if s, ok := repo.db.subjects[id]; !ok || s.CenterID != centerID {
		return academic.ErrSubjectNotFound
	}
	repo.db.deleteSubject(id)
	return nil
}

// Enrollments

func (repo *AcademicRepository) EnrollmentExists(_ context.Context, centerID, studentID, subjectID, teacherID int64) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, e := range repo.db.enrollments {
		if e.CenterID == centerID && e.StudentID == studentID && e.SubjectID == subjectID && e.TeacherID == teacherID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *AcademicRepository) CreateEnrollment(_ context.Context, e academic.Enrollment) (academic.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	e.ID = repo.db.nextID()
	stored := academic.Enrollment{
		ID:        e.ID,
		CenterID:  e.CenterID,
		StudentID: e.StudentID,
		SubjectID: e.SubjectID,
		TeacherID: e.TeacherID,
	}
	repo.db.enrollments[e.ID] = &stored
	return e, nil
}

func (repo *AcademicRepository) QueryEnrollments(_ context.Context, filter academic.EnrollmentFilter) ([]academic.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	enrollments := make([]academic.Enrollment, 0)
	for _, stored := range repo.db.enrollments {
		e := *stored
		e.StudentName, e.ClassName = repo.db.studentName(e.StudentID)
		e.SubjectName = repo.db.subjectName(e.SubjectID)
		e.TeacherName = repo.db.staffName(e.TeacherID)

		switch {
		case e.CenterID != filter.CenterID,
			filter.StudentID != 0 && e.StudentID != filter.StudentID,
			filter.SubjectID != 0 && e.SubjectID != filter.SubjectID,
			filter.TeacherID != 0 && e.TeacherID != filter.TeacherID,
			filter.ClassName != "" && e.ClassName != filter.ClassName:
			continue
		}
		enrollments = append(enrollments, e)
	}
	sort.Slice(enrollments, func(i, j int) bool {
		a, b := enrollments[i], enrollments[j]
		switch {
		case a.ClassName != b.ClassName:
			return a.ClassName < b.ClassName
		case a.StudentName != b.StudentName:
			return a.StudentName < b.StudentName
		case a.SubjectName != b.SubjectName:
			return a.SubjectName < b.SubjectName
		}
		return a.ID < b.ID
	})
	return enrollments, nil
}

func (repo *AcademicRepository) DeleteEnrollment(_ context.Context, centerID, id int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if e, ok := repo.db.enrollments[id]; !ok || e.CenterID != centerID {
		return academic.ErrNotFound
	}
	delete(repo.db.enrollments, id)
	return nil
}

// Lessons

func (repo *AcademicRepository) CreateLesson(_ context.Context, l academic.Lesson) (academic.Lesson, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	l.ID = repo.db.nextID()
	stored := l
	stored.SubjectName, stored.TeacherName = "", ""
	repo.db.lessons[l.ID] = &stored
	return l, nil
}

func (repo *AcademicRepository) QueryLessons(_ context.Context, centerID int64, className string) ([]academic.Lesson, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	lessons := make([]academic.Lesson, 0)
	for _, stored := range repo.db.lessons {
		if stored.CenterID != centerID || (className != "" && stored.ClassName != className) {
			continue
		}
		l := *stored
		l.SubjectName = repo.db.subjectName(l.SubjectID)
		l.TeacherName = repo.db.staffName(l.TeacherID)
		lessons = append(lessons, l)
	}
	sort.Slice(lessons, func(i, j int) bool {
		a, b := lessons[i], lessons[j]
		switch {
		case a.DayOfWeek != b.DayOfWeek:
			return a.DayOfWeek < b.DayOfWeek
		case a.StartTime != b.StartTime:
			return a.StartTime < b.StartTime
		case a.ClassName != b.ClassName:
			return a.ClassName < b.ClassName
		}
		return a.ID < b.ID
	})
	return lessons, nil
}

func (repo *AcademicRepository) DeleteLesson(_ context.Context, centerID, id int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if l, ok := repo.db.lessons[id]; !ok || l.CenterID != centerID {
		return academic.ErrNotFound
	}
	delete(repo.db.lessons, id)
	return nil
}

// Attendance

func (repo *AcademicRepository) CreateAttendance(_ context.Context, a academic.Attendance) (academic.Attendance, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	a.ID = repo.db.nextID()
	stored := a
	stored.StudentName, stored.SubjectName = "", ""
	repo.db.attendance[a.ID] = &stored
	return a, nil
}

func (repo *AcademicRepository) QueryAttendance(_ context.Context, filter academic.AttendanceFilter) ([]academic.Attendance, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	records := make([]academic.Attendance, 0)
	for _, stored := range repo.db.attendance {
		switch {
		case stored.CenterID != filter.CenterID,
			filter.StudentID != 0 && stored.StudentID != filter.StudentID,
			filter.TeacherID != 0 && stored.TeacherID != filter.TeacherID,
			!filter.From.IsZero() && stored.Date.Before(filter.From),
			!filter.To.IsZero() && stored.Date.After(filter.To):
			continue
		}
		a := *stored
		a.StudentName, _ = repo.db.studentName(a.StudentID)
		a.SubjectName = repo.db.subjectName(a.SubjectID)
		records = append(records, a)
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date) {
			return records[i].Date.After(records[j].Date)
		}
		return records[i].ID > records[j].ID
	})
	return records, nil
}
