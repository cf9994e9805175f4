// Package inmemdb implements the domain repositories in memory, with the same
// scoping, uniqueness & cascade rules as the postgres schema.
package inmemdb

import (
	"sync"

	"github.com/darien/gradebook/core/academic"
	"github.com/darien/gradebook/core/account"
	"github.com/darien/gradebook/core/center"
	"github.com/darien/gradebook/core/grading"
)

type DB struct {
	mutex sync.RWMutex
	seq   int64

	centers         map[int64]*center.Center
	owners          map[int64]*account.Owner
	staff           map[int64]*account.Staff
	studentAccounts map[int64]*account.StudentAccount
	students        map[int64]*academic.Student
	subjects        map[int64]*academic.Subject
	enrollments     map[int64]*academic.Enrollment
	lessons         map[int64]*academic.Lesson
	attendance      map[int64]*academic.Attendance
	schemes         map[int64]*grading.Scheme
	grades          map[int64]*grading.Grade
}

func Open() *DB {
	return &DB{
		centers:         make(map[int64]*center.Center),
		owners:          make(map[int64]*account.Owner),
		staff:           make(map[int64]*account.Staff),
		studentAccounts: make(map[int64]*account.StudentAccount),
		students:        make(map[int64]*academic.Student),
		subjects:        make(map[int64]*academic.Subject),
		enrollments:     make(map[int64]*academic.Enrollment),
		lessons:         make(map[int64]*academic.Lesson),
		attendance:      make(map[int64]*academic.Attendance),
		schemes:         make(map[int64]*grading.Scheme),
		grades:          make(map[int64]*grading.Grade),
	}
}

// nextID must be called with the write lock held. Ids are unique across tables.
func (db *DB) nextID() int64 {
	db.seq++
	return db.seq
}

// cascade helpers; write lock held

func (db *DB) deleteStudent(id int64) {
	delete(db.students, id)
	for k, sa := range db.studentAccounts {
		if sa.StudentID == id {
			delete(db.studentAccounts, k)
		}
	}
	for k, e := range db.enrollments {
		if e.StudentID == id {
			delete(db.enrollments, k)
		}
	}
	for k, a := range db.attendance {
		if a.StudentID == id {
			delete(db.attendance, k)
		}
	}
	for k, g := range db.grades {
		if g.StudentID == id {
			delete(db.grades, k)
		}
	}
}

func (db *DB) deleteSubject(id int64) {
	delete(db.subjects, id)
	for k, e := range db.enrollments {
		if e.SubjectID == id {
			delete(db.enrollments, k)
		}
	}
	for k, l := range db.lessons {
		if l.SubjectID == id {
			delete(db.lessons, k)
		}
	}
	for k, a := range db.attendance {
		if a.SubjectID == id {
			delete(db.attendance, k)
		}
	}
	for k, s := range db.schemes {
		if s.SubjectID.Valid && s.SubjectID.Int64 == id {
			delete(db.schemes, k)
		}
	}
	for k, g := range db.grades {
		if g.SubjectID == id {
			delete(db.grades, k)
		}
	}
}

func (db *DB) deleteStaff(id int64) {
	delete(db.staff, id)
	for k, e := range db.enrollments {
		if e.TeacherID == id {
			delete(db.enrollments, k)
		}
	}
	for k, l := range db.lessons {
		if l.TeacherID == id {
			delete(db.lessons, k)
		}
	}
	for k, a := range db.attendance {
		if a.TeacherID == id {
			delete(db.attendance, k)
		}
	}
	for k, g := range db.grades {
		if g.TeacherID == id {
			delete(db.grades, k)
		}
	}
}

// name lookups; read lock held

func (db *DB) studentName(id int64) (string, string) {
	if s, ok := db.students[id]; ok {
		return s.FullName, s.ClassName
	}
	return "", ""
}

func (db *DB) subjectName(id int64) string {
	if s, ok := db.subjects[id]; ok {
		return s.Name
	}
	return ""
}

func (db *DB) staffName(id int64) string {
	if s, ok := db.staff[id]; ok {
		return s.FullName
	}
	return ""
}

// Repositories bundles every in-memory repository of db.
type Repositories struct {
	Centers  *CenterRepository
	Accounts *AccountRepository
	Academic *AcademicRepository
	Grading  *GradingRepository
}

func NewRepositories(db *DB) *Repositories {
	return &Repositories{
		Centers:  &CenterRepository{db: db},
		Accounts: &AccountRepository{db: db},
		Academic: &AcademicRepository{db: db},
		Grading:  &GradingRepository{db: db},
	}
}
