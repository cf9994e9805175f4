package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/darien/gradebook/core/grading"
)

type GradingRepository struct {
	db *DB
}

var _ grading.Repository = (*GradingRepository)(nil)

func (repo *GradingRepository) CreateScheme(_ context.Context, s grading.Scheme) (grading.Scheme, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	s.ID = repo.db.nextID()
	stored := s
	stored.SubjectName = null.String{}
	repo.db.schemes[s.ID] = &stored
	return s, nil
}

func (repo *GradingRepository) QuerySchemes(_ context.Context, centerID int64, className string) ([]grading.Scheme, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	schemes := make([]grading.Scheme, 0)
	for _, stored := range repo.db.schemes {
		if stored.CenterID != centerID || (className != "" && stored.ClassName != className) {
			continue
		}
		s := *stored
		if s.SubjectID.Valid {
			s.SubjectName = null.StringFrom(repo.db.subjectName(s.SubjectID.Int64))
		}
		schemes = append(schemes, s)
	}
	sort.Slice(schemes, func(i, j int) bool {
		a, b := schemes[i], schemes[j]
		switch {
		case a.ClassName != b.ClassName:
			return a.ClassName < b.ClassName
		case a.SubjectID.Valid != b.SubjectID.Valid:
			return a.SubjectID.Valid // nulls last
		case a.SubjectID.Int64 != b.SubjectID.Int64:
			return a.SubjectID.Int64 < b.SubjectID.Int64
		}
		return a.ID < b.ID
	})
	return schemes, nil
}

func (repo *GradingRepository) CreateGrade(_ context.Context, g grading.Grade) (grading.Grade, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	g.ID = repo.db.nextID()
	stored := g
	stored.StudentName, stored.ClassName, stored.SubjectName, stored.TeacherName = "", "", "", ""
	repo.db.grades[g.ID] = &stored
	return g, nil
}

// joined fills the joined name fields; lock held.
func (repo *GradingRepository) joined(g grading.Grade) grading.Grade {
	g.StudentName, g.ClassName = repo.db.studentName(g.StudentID)
	g.SubjectName = repo.db.subjectName(g.SubjectID)
	g.TeacherName = repo.db.staffName(g.TeacherID)
	return g
}

func (repo *GradingRepository) QueryGrades(_ context.Context, filter grading.GradeFilter) ([]grading.Grade, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	grades := make([]grading.Grade, 0)
	for _, stored := range repo.db.grades {
		g := repo.joined(*stored)
		switch {
		case g.CenterID != filter.CenterID,
			filter.ClassName != "" && g.ClassName != filter.ClassName,
			filter.SubjectID != 0 && g.SubjectID != filter.SubjectID,
			filter.StudentID != 0 && g.StudentID != filter.StudentID,
			filter.TeacherID != 0 && g.TeacherID != filter.TeacherID,
			!filter.Date.IsZero() && !g.Date.Equal(filter.Date),
			!filter.From.IsZero() && g.Date.Before(filter.From),
			!filter.To.IsZero() && g.Date.After(filter.To):
			continue
		}
		grades = append(grades, g)
	}
	sort.Slice(grades, func(i, j int) bool {
		if !grades[i].Date.Equal(grades[j].Date) {
			return grades[i].Date.After(grades[j].Date)
		}
		return grades[i].ID > grades[j].ID
	})
	if filter.Limit > 0 && len(grades) > filter.Limit {
		grades = grades[:filter.Limit]
	}
	return grades, nil
}

func (repo *GradingRepository) QueryPeerScores(
	_ context.Context,
	centerID int64,
	className string,
	subjectID int64,
	date time.Time,
) ([]float64, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	peers := make([]*grading.Grade, 0)
	for _, g := range repo.db.grades {
		if g.CenterID != centerID || g.SubjectID != subjectID || !g.Date.Equal(date) {
			continue
		}
		if _, class := repo.db.studentName(g.StudentID); class != className {
			continue
		}
		peers = append(peers, g)
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i].ID < peers[j].ID })

	scores := make([]float64, 0, len(peers))
	for _, g := range peers {
		scores = append(scores, g.Score)
	}
	return scores, nil
}
