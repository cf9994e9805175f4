package grading

import (
	"math"
	"sort"
)

// Classification bases
const (
	BasisScheme     = "scheme"
	BasisStatistics = "statistics"
	BasisAbsolute   = "absolute"
)

// fixed thresholds used when neither a scheme nor a meaningful peer sample is available
const (
	absExcellent = 90
	absHigh      = 75
	absAverage   = 50
)

const stdEpsilon = 1e-9

// Classify labels score. A usable scheme classifies by percentage of its range,
// otherwise score is compared to mean ± one population standard deviation of peers.
// Fewer than 2 peers, or no spread among them, falls back to the fixed thresholds.
func Classify(score float64, scheme *Scheme, peers []float64) Label {
	label, _ := classify(score, scheme, peers)
	return label
}

func classify(score float64, scheme *Scheme, peers []float64) (Label, string) {
	if scheme.usable() {
		pct := (score - scheme.MinScore) / (scheme.MaxScore - scheme.MinScore) * 100
		return byThresholds(pct, scheme.Excellent.Float64, scheme.High.Float64, scheme.Average.Float64), BasisScheme
	}

	if len(peers) < 2 {
		return byThresholds(score, absExcellent, absHigh, absAverage), BasisAbsolute
	}
	mean, std := MeanStd(peers)
	if std < stdEpsilon {
		return byThresholds(score, absExcellent, absHigh, absAverage), BasisAbsolute
	}
	return byThresholds(score, mean+std, mean, mean-std), BasisStatistics
}

func byThresholds(v, excellent, high, average float64) Label {
	switch {
	case v >= excellent:
		return LabelExcellent
	case v >= high:
		return LabelHigh
	case v >= average:
		return LabelAverage
	default:
		return LabelLow
	}
}

// MeanStd returns the mean & population standard deviation of xs.
func MeanStd(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean = sum / float64(len(xs))

	var sq float64
	for _, x := range xs {
		sq += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(sq / float64(len(xs)))
}

// honorSize is ceil(n/10): the top decile of n rows, at least one row when n > 0.
// Integer arithmetic keeps n=30 at 3 where float 30*0.1 would ceil to 4.
func honorSize(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + 9) / 10
}

// TopDecile orders grades by score, highest first, and keeps the top 10%.
// Equal scores keep their input order; the cut is positional.
func TopDecile(grades []Grade) []HonorEntry {
	sorted := make([]Grade, len(grades))
	copy(sorted, grades)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	sorted = sorted[:honorSize(len(sorted))]
	board := make([]HonorEntry, 0, len(sorted))
	for _, g := range sorted {
		board = append(board, HonorEntry{
			GradeID:     g.ID,
			StudentID:   g.StudentID,
			StudentName: g.StudentName,
			ClassName:   g.ClassName,
			SubjectID:   g.SubjectID,
			SubjectName: g.SubjectName,
			Date:        g.Date,
			Score:       g.Score,
		})
	}
	return board
}
