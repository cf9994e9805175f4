// Package grading holds the grading schemes, the grade ledger & the evaluation of scores.
package grading

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darien/gradebook/core"
	"github.com/darien/gradebook/core/academic"
)

const (
	defaultMinScore = 0
	defaultMaxScore = 100

	// RecentGradesLimit caps a teacher's recent grades listing.
	RecentGradesLimit = 200
)

var (
	// errors
	ErrScoreOutOfBounds = errors.New("score is out of bounds")
	ErrNotEnrolled      = errors.New("student is not enrolled with you for this subject")
)

type (
	Repository interface {
		CreateScheme(ctx context.Context, s Scheme) (Scheme, error)
		// QuerySchemes lists the center's schemes, optionally of one class, ordered by class, subject & id.
		QuerySchemes(ctx context.Context, centerID int64, className string) ([]Scheme, error)

		CreateGrade(ctx context.Context, g Grade) (Grade, error)
		QueryGrades(ctx context.Context, filter GradeFilter) ([]Grade, error)
		// QueryPeerScores returns every score of the center's className students for subjectID on date.
		QueryPeerScores(ctx context.Context, centerID int64, className string, subjectID int64, date time.Time) ([]float64, error)
	}

	// Roster resolves the academic references of a grade. *academic.Service satisfies it.
	Roster interface {
		GetStudent(ctx context.Context, centerID, id int64) (academic.Student, error)
		GetSubject(ctx context.Context, centerID, id int64) (academic.Subject, error)
		IsEnrolled(ctx context.Context, centerID, studentID, subjectID, teacherID int64) (bool, error)
	}

	Service struct {
		repo     Repository
		roster   Roster
		validate *validator.Validate
	}
)

func NewService(repo Repository, roster Roster, validate *validator.Validate) *Service {
	return &Service{repo: repo, roster: roster, validate: validate}
}

// Schemes

// pickScheme prefers a scheme of subjectID over a class-wide one, then the most recent.
func pickScheme(schemes []Scheme, subjectID int64) *Scheme {
	var best *Scheme
	for i := range schemes {
		s := &schemes[i]
		if s.SubjectID.Valid && s.SubjectID.Int64 != subjectID {
			continue
		}
		switch {
		case best == nil:
			best = s
		case s.SubjectID.Valid != best.SubjectID.Valid:
			if s.SubjectID.Valid {
				best = s
			}
		case s.ID > best.ID:
			best = s
		}
	}
	return best
}

// LookupScheme returns the scheme in force for a class & subject, nil if none is configured.
func (svc *Service) LookupScheme(ctx context.Context, centerID int64, className string, subjectID int64) (*Scheme, error) {
	schemes, err := svc.repo.QuerySchemes(ctx, centerID, core.CleanString(className))
	if err != nil {
		return nil, errors.Wrap(err, "querying schemes")
	}
	return pickScheme(schemes, subjectID), nil
}

// CreateScheme appends a scheme. It supersedes the earlier ones of the same class & subject.
func (svc *Service) CreateScheme(ctx context.Context, centerID int64, ns NewScheme) (Scheme, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return Scheme{}, err
	}

	s := Scheme{
		CenterID:  centerID,
		ClassName: ns.ClassName,
		MinScore:  ns.MinScore,
		MaxScore:  ns.MaxScore,
		Excellent: null.Float64FromPtr(ns.Excellent),
		High:      null.Float64FromPtr(ns.High),
		Average:   null.Float64FromPtr(ns.Average),
		CreatedAt: time.Now().UTC(),
	}
	if ns.SubjectID != 0 {
		sub, err := svc.roster.GetSubject(ctx, centerID, ns.SubjectID)
		if err != nil {
			if errors.Cause(err) == academic.ErrSubjectNotFound {
				return Scheme{}, core.NewFieldValidationError(err, "subject_id")
			}
			return Scheme{}, errors.Wrap(err, "getting subject")
		}
		s.SubjectID = null.Int64From(sub.ID)
		s.SubjectName = null.StringFrom(sub.Name)
	}

	created, err := svc.repo.CreateScheme(ctx, s)
	if err != nil {
		return Scheme{}, errors.Wrap(err, "creating scheme")
	}
	created.SubjectName = s.SubjectName
	return created, nil
}

func (svc *Service) ListSchemes(ctx context.Context, centerID int64) ([]Scheme, error) {
	return svc.repo.QuerySchemes(ctx, centerID, "")
}

// Ledger

// bounds picks the score range of a submission: its own, else the scheme's, else 0..100.
func bounds(ng NewGrade, scheme *Scheme) (float64, float64) {
	switch {
	case ng.MinScore != nil && ng.MaxScore != nil:
		return *ng.MinScore, *ng.MaxScore
	case scheme != nil && scheme.MaxScore > scheme.MinScore:
		return scheme.MinScore, scheme.MaxScore
	default:
		return defaultMinScore, defaultMaxScore
	}
}

// RecordGrade inserts a grade and evaluates it against the scheme in force or,
// lacking one, against the same-day scores of the class in that subject.
// Every submission is a new row, even for an already scored (student, subject, date).
func (svc *Service) RecordGrade(ctx context.Context, centerID int64, ng NewGrade) (Evaluation, error) {
	if err := ng.Validate(svc.validate); err != nil {
		return Evaluation{}, err
	}
	date, err := core.ParseDate(ng.Date)
	if err != nil {
		return Evaluation{}, core.NewFieldValidationError(err, "date")
	}

	std, err := svc.roster.GetStudent(ctx, centerID, ng.StudentID)
	if err != nil {
		if errors.Cause(err) == academic.ErrStudentNotFound {
			return Evaluation{}, core.NewFieldValidationError(err, "student_id")
		}
		return Evaluation{}, errors.Wrap(err, "getting student")
	}
	sub, err := svc.roster.GetSubject(ctx, centerID, ng.SubjectID)
	if err != nil {
		if errors.Cause(err) == academic.ErrSubjectNotFound {
			return Evaluation{}, core.NewFieldValidationError(err, "subject_id")
		}
		return Evaluation{}, errors.Wrap(err, "getting subject")
	}
	enrolled, err := svc.roster.IsEnrolled(ctx, centerID, std.ID, sub.ID, ng.TeacherID)
	if err != nil {
		return Evaluation{}, errors.Wrap(err, "checking enrollment")
	}
	if !enrolled {
		return Evaluation{}, core.NewFieldValidationError(ErrNotEnrolled, "student_id")
	}

	scheme, err := svc.LookupScheme(ctx, centerID, std.ClassName, sub.ID)
	if err != nil {
		return Evaluation{}, err
	}
	minScore, maxScore := bounds(ng, scheme)
	score := *ng.Score
	if score < minScore || score > maxScore {
		return Evaluation{}, core.NewValidationError(
			ErrScoreOutOfBounds,
			core.FieldError{Field: "score", Error: fmt.Sprintf("score must be between %g and %g", minScore, maxScore)},
		)
	}

	g, err := svc.repo.CreateGrade(ctx, Grade{
		CenterID:     centerID,
		StudentID:    std.ID,
		SubjectID:    sub.ID,
		TeacherID:    ng.TeacherID,
		Date:         date,
		Score:        score,
		MinScore:     null.Float64From(minScore),
		MaxScore:     null.Float64From(maxScore),
		Note:         null.NewString(ng.Note, ng.Note != ""),
		NoteTeacher:  null.NewString(ng.NoteTeacher, ng.NoteTeacher != ""),
		NoteGuardian: null.NewString(ng.NoteGuardian, ng.NoteGuardian != ""),
		NoteAdmin:    null.NewString(ng.NoteAdmin, ng.NoteAdmin != ""),
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return Evaluation{}, errors.Wrap(err, "creating grade")
	}
	g.StudentName = std.FullName
	g.ClassName = std.ClassName
	g.SubjectName = sub.Name

	// the sample includes the grade just recorded
	peers, err := svc.repo.QueryPeerScores(ctx, centerID, std.ClassName, sub.ID, date)
	if err != nil {
		return Evaluation{}, errors.Wrap(err, "querying peer scores")
	}
	// cut points are percentages of the range stored on the row, which may be the submitter's own
	label, basis := classify(score, scheme.withRange(minScore, maxScore), peers)
	mean, _ := MeanStd(peers)
	return Evaluation{Grade: g, Label: label, Basis: basis, Peers: len(peers), Mean: mean}, nil
}

// GradeReport lists the grades matching filter, most recent first.
func (svc *Service) GradeReport(ctx context.Context, filter GradeFilter) ([]Grade, error) {
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, core.NewFieldValidationError(errors.New("end date is before start date"), "to")
	}
	grades, err := svc.repo.QueryGrades(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}
	return grades, nil
}

// HonorFilter narrows the honor board. Zero fields are ignored.
type HonorFilter struct {
	CenterID  int64
	ClassName string
	SubjectID int64
	Date      time.Time
}

// HonorBoard returns the top 10% grades by score among those matching filter.
func (svc *Service) HonorBoard(ctx context.Context, filter HonorFilter) ([]HonorEntry, error) {
	grades, err := svc.repo.QueryGrades(ctx, GradeFilter{
		CenterID:  filter.CenterID,
		ClassName: core.CleanString(filter.ClassName),
		SubjectID: filter.SubjectID,
		Date:      filter.Date,
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}
	// ties at the cut are settled by insertion order
	sort.SliceStable(grades, func(i, j int) bool { return grades[i].ID < grades[j].ID })
	return TopDecile(grades), nil
}
