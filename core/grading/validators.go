package grading

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/darien/gradebook/core"
)

var (
	rangeTag  = "scorerange"
	rangeText = "max score must be greater than min score"

	cutOrderTag  = "cutorder"
	cutOrderText = "cut points must satisfy average <= high <= excellent"
)

// InitValidators registers the grading validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(schemeStructValidation, NewScheme{})
	validate.RegisterStructValidation(gradeStructValidation, NewGrade{})
	core.RegisterCustomTranslation(validate, translator, rangeTag, rangeText)
	core.RegisterCustomTranslation(validate, translator, cutOrderTag, cutOrderText)
}

func schemeStructValidation(sl validator.StructLevel) {
	ns := sl.Current().Interface().(NewScheme)
	if ns.MaxScore <= ns.MinScore {
		sl.ReportError(ns.MaxScore, "max_score", "MaxScore", rangeTag, "")
	}

	// cut points may be partially set; the ones set must not decrease
	cuts := []struct {
		val   *float64
		field string
		name  string
	}{
		{ns.Average, "average", "Average"},
		{ns.High, "high", "High"},
		{ns.Excellent, "excellent", "Excellent"},
	}
	var prev *float64
	for _, c := range cuts {
		if c.val == nil {
			continue
		}
		if prev != nil && *c.val < *prev {
			sl.ReportError(*c.val, c.field, c.name, cutOrderTag, "")
			return
		}
		prev = c.val
	}
}

func gradeStructValidation(sl validator.StructLevel) {
	ng := sl.Current().Interface().(NewGrade)
	if ng.MinScore != nil && ng.MaxScore != nil && *ng.MaxScore <= *ng.MinScore {
		sl.ReportError(*ng.MaxScore, "max_score", "MaxScore", rangeTag, "")
	}
}
