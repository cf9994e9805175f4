package grading

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/darien/gradebook/core"
)

// Label is the qualitative evaluation of a score.
type Label string

const (
	LabelExcellent Label = "excellent"
	LabelHigh      Label = "high"
	LabelAverage   Label = "average"
	LabelLow       Label = "low"
)

// Note audiences
const (
	AudienceStudent  = "student"
	AudienceTeacher  = "teacher"
	AudienceGuardian = "guardian"
	AudienceAdmin    = "admin"
)

// Scheme configures the score range & percentage cut points of a class, optionally for one subject.
// Schemes are never updated: a new row supersedes the previous ones.
type Scheme struct {
	ID          int64        `json:"id" db:"id"`
	CenterID    int64        `json:"center_id" db:"center_id"`
	ClassName   string       `json:"class_name" db:"class_name"`
	SubjectID   null.Int64   `json:"subject_id" db:"subject_id"`
	SubjectName null.String  `json:"subject_name" db:"subject_name"`
	MinScore    float64      `json:"min_score" db:"min_score"`
	MaxScore    float64      `json:"max_score" db:"max_score"`
	Excellent   null.Float64 `json:"excellent" db:"excellent"`
	High        null.Float64 `json:"high" db:"high"`
	Average     null.Float64 `json:"average" db:"average"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
}

// usable reports whether the scheme can classify on its own.
func (s *Scheme) usable() bool {
	return s != nil &&
		s.Excellent.Valid && s.High.Valid && s.Average.Valid &&
		s.MaxScore > s.MinScore
}

// withRange returns a copy of s whose cut points apply to min..max.
func (s *Scheme) withRange(min, max float64) *Scheme {
	if s == nil {
		return nil
	}
	r := *s
	r.MinScore, r.MaxScore = min, max
	return &r
}

// NewScheme contains information needed to create a new Scheme.
// A zero SubjectID makes the scheme class-wide. Cut points are percentages.
type NewScheme struct {
	ClassName string   `json:"class_name" validate:"required,notblank"`
	SubjectID int64    `json:"subject_id" validate:"gte=0"`
	MinScore  float64  `json:"min_score"`
	MaxScore  float64  `json:"max_score"`
	Excellent *float64 `json:"excellent" validate:"omitempty,min=0,max=100"`
	High      *float64 `json:"high" validate:"omitempty,min=0,max=100"`
	Average   *float64 `json:"average" validate:"omitempty,min=0,max=100"`
}

func (ns *NewScheme) Validate(validate *validator.Validate) error {
	ns.ClassName = core.CleanString(ns.ClassName)
	return validate.Struct(ns)
}

// Grade is a scored event. MinScore & MaxScore are the bounds in force when it was recorded,
// they are null on rows that predate bound capture.
type Grade struct {
	ID           int64        `json:"id" db:"id"`
	CenterID     int64        `json:"center_id" db:"center_id"`
	StudentID    int64        `json:"student_id" db:"student_id"`
	SubjectID    int64        `json:"subject_id" db:"subject_id"`
	TeacherID    int64        `json:"teacher_id" db:"teacher_id"`
	Date         time.Time    `json:"date" db:"grade_date"`
	Score        float64      `json:"score" db:"score"`
	MinScore     null.Float64 `json:"min_score" db:"min_score"`
	MaxScore     null.Float64 `json:"max_score" db:"max_score"`
	Note         null.String  `json:"note" db:"note"`
	NoteTeacher  null.String  `json:"note_teacher" db:"note_teacher"`
	NoteGuardian null.String  `json:"note_guardian" db:"note_parent"`
	NoteAdmin    null.String  `json:"note_admin" db:"note_admin"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`

	StudentName string `json:"student_name" db:"student_name"`
	ClassName   string `json:"class_name" db:"class_name"`
	SubjectName string `json:"subject_name" db:"subject_name"`
	TeacherName string `json:"teacher_name" db:"teacher_name"`
}

// ForAudience returns a copy of g without the notes aud may not read.
// Student sees the student note, teacher adds the private note, guardian adds the guardian note,
// admin sees every note.
func (g Grade) ForAudience(aud string) Grade {
	switch aud {
	case AudienceAdmin:
	case AudienceTeacher:
		g.NoteGuardian = null.String{}
		g.NoteAdmin = null.String{}
	case AudienceGuardian:
		g.NoteTeacher = null.String{}
		g.NoteAdmin = null.String{}
	default:
		g.NoteTeacher = null.String{}
		g.NoteGuardian = null.String{}
		g.NoteAdmin = null.String{}
	}
	return g
}

// NewGrade is a teacher's score submission. TeacherID comes from the session.
// Omitted bounds default to the resolved scheme's, else to 0..100.
type NewGrade struct {
	StudentID    int64    `json:"student_id" validate:"required,gt=0"`
	SubjectID    int64    `json:"subject_id" validate:"required,gt=0"`
	TeacherID    int64    `json:"-"`
	Date         string   `json:"date" validate:"required,datetime=2006-01-02"`
	Score        *float64 `json:"score" validate:"required"`
	MinScore     *float64 `json:"min_score" validate:"required_with=MaxScore"`
	MaxScore     *float64 `json:"max_score" validate:"required_with=MinScore"`
	Note         string   `json:"note" validate:"max=2000"`
	NoteTeacher  string   `json:"note_teacher" validate:"max=2000"`
	NoteGuardian string   `json:"note_guardian" validate:"max=2000"`
	NoteAdmin    string   `json:"note_admin" validate:"max=2000"`
}

func (ng *NewGrade) Validate(validate *validator.Validate) error {
	ng.Date = core.CleanString(ng.Date)
	ng.Note = core.CleanString(ng.Note)
	ng.NoteTeacher = core.CleanString(ng.NoteTeacher)
	ng.NoteGuardian = core.CleanString(ng.NoteGuardian)
	ng.NoteAdmin = core.CleanString(ng.NoteAdmin)
	return validate.Struct(ng)
}

// GradeFilter narrows QueryGrades. Zero fields are ignored.
// Results are ordered by date then id, most recent first.
type GradeFilter struct {
	CenterID  int64
	ClassName string
	SubjectID int64
	StudentID int64
	TeacherID int64
	Date      time.Time
	From      time.Time
	To        time.Time
	Limit     int
}

// HonorEntry is a row of the honor board.
type HonorEntry struct {
	GradeID     int64     `json:"grade_id"`
	StudentID   int64     `json:"student_id"`
	StudentName string    `json:"student_name"`
	ClassName   string    `json:"class_name"`
	SubjectID   int64     `json:"subject_id"`
	SubjectName string    `json:"subject_name"`
	Date        time.Time `json:"date"`
	Score       float64   `json:"score"`
}

// Evaluation is the outcome of recording a grade.
type Evaluation struct {
	Grade Grade   `json:"grade"`
	Label Label   `json:"label"`
	Basis string  `json:"basis"`
	Peers int     `json:"peers"`
	Mean  float64 `json:"mean"`
}
