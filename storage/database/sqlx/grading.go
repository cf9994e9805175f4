package sqlxrepos

import (
	"context"
	"time"

	"github.com/darien/gradebook/core"
	"github.com/darien/gradebook/core/grading"
)

const (
	schemeSelect = `
		SELECT gs.id, gs.center_id, gs.class_name, gs.subject_id, sub.name AS subject_name,
			gs.min_score, gs.max_score, gs.excellent, gs.high, gs.average, gs.created_at
		FROM grading_schemes gs
		LEFT JOIN subjects sub ON sub.id = gs.subject_id`

	gradeSelect = `
		SELECT g.id, g.center_id, g.student_id, g.subject_id, g.teacher_id, g.grade_date, g.score,
			g.min_score, g.max_score, g.note, g.note_teacher, g.note_parent, g.note_admin, g.created_at,
			s.full_name AS student_name, s.class_name, sub.name AS subject_name, u.full_name AS teacher_name
		FROM grades g
		JOIN students s ON s.id = g.student_id
		JOIN subjects sub ON sub.id = g.subject_id
		JOIN users u ON u.id = g.teacher_id`
)

type GradingRepository struct {
	db core.DB
}

var _ grading.Repository = (*GradingRepository)(nil)

func NewGradingRepository(db core.DB) *GradingRepository {
	return &GradingRepository{db: db}
}

func (repo *GradingRepository) CreateScheme(ctx context.Context, s grading.Scheme) (grading.Scheme, error) {
	err := repo.db.GetContext(ctx, &s.ID, `
		INSERT INTO grading_schemes (center_id, class_name, subject_id, min_score, max_score, excellent, high, average, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		s.CenterID, s.ClassName, s.SubjectID, s.MinScore, s.MaxScore, s.Excellent, s.High, s.Average, s.CreatedAt,
	)
	if err != nil {
		return grading.Scheme{}, wrapErr(err, "inserting scheme")
	}
	return s, nil
}

func (repo *GradingRepository) QuerySchemes(ctx context.Context, centerID int64, className string) ([]grading.Scheme, error) {
	conds := &conditions{}
	conds.add("gs.center_id = ?", centerID)
	if className != "" {
		conds.add("gs.class_name = ?", className)
	}
	schemes := make([]grading.Scheme, 0)
	err := repo.db.SelectContext(ctx, &schemes,
		schemeSelect+conds.where()+` ORDER BY gs.class_name, gs.subject_id NULLS LAST, gs.id`, conds.args...)
	if err != nil {
		return nil, wrapErr(err, "selecting schemes")
	}
	return schemes, nil
}

func (repo *GradingRepository) CreateGrade(ctx context.Context, g grading.Grade) (grading.Grade, error) {
	err := repo.db.GetContext(ctx, &g.ID, `
		INSERT INTO grades (
			center_id, student_id, subject_id, teacher_id, grade_date, score, min_score, max_score,
			note, note_teacher, note_parent, note_admin, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`,
		g.CenterID, g.StudentID, g.SubjectID, g.TeacherID, g.Date, g.Score, g.MinScore, g.MaxScore,
		g.Note, g.NoteTeacher, g.NoteGuardian, g.NoteAdmin, g.CreatedAt,
	)
	if err != nil {
		return grading.Grade{}, wrapErr(err, "inserting grade")
	}
	return g, nil
}

func (repo *GradingRepository) QueryGrades(ctx context.Context, filter grading.GradeFilter) ([]grading.Grade, error) {
	conds := &conditions{}
	conds.add("g.center_id = ?", filter.CenterID)
	if filter.ClassName != "" {
		conds.add("s.class_name = ?", filter.ClassName)
	}
	if filter.SubjectID != 0 {
		conds.add("g.subject_id = ?", filter.SubjectID)
	}
	if filter.StudentID != 0 {
		conds.add("g.student_id = ?", filter.StudentID)
	}
	if filter.TeacherID != 0 {
		conds.add("g.teacher_id = ?", filter.TeacherID)
	}
	if !filter.Date.IsZero() {
		conds.add("g.grade_date = ?", filter.Date)
	}
	if !filter.From.IsZero() {
		conds.add("g.grade_date >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		conds.add("g.grade_date <= ?", filter.To)
	}
	query := gradeSelect + conds.where() + ` ORDER BY g.grade_date DESC, g.id DESC`
	query += conds.limit(filter.Limit)

	grades := make([]grading.Grade, 0)
	if err := repo.db.SelectContext(ctx, &grades, query, conds.args...); err != nil {
		return nil, wrapErr(err, "selecting grades")
	}
	return grades, nil
}

func (repo *GradingRepository) QueryPeerScores(
	ctx context.Context,
	centerID int64,
	className string,
	subjectID int64,
	date time.Time,
) ([]float64, error) {
	scores := make([]float64, 0)
	err := repo.db.SelectContext(ctx, &scores, `
		SELECT g.score
		FROM grades g
		JOIN students s ON s.id = g.student_id
		WHERE g.center_id = $1 AND s.class_name = $2 AND g.subject_id = $3 AND g.grade_date = $4
		ORDER BY g.id`,
		centerID, className, subjectID, date,
	)
	if err != nil {
		return nil, wrapErr(err, "selecting peer scores")
	}
	return scores, nil
}
