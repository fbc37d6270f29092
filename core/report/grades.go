package report

import (
	"github.com/pkg/errors"
)

var (
	ErrInvalidGrade = errors.New("invalid grade")
	ErrNoWeight     = errors.New("grades carry no weight")
)

// Grade is one assessment result. Weight is relative to the other grades of the same average.
type Grade struct {
	Label    string  `json:"label"`
	Score    float64 `json:"score" validate:"gte=0"`
	MaxScore float64 `json:"max_score" validate:"gt=0"`
	Weight   float64 `json:"weight" validate:"gte=0"`
}

func (g Grade) validate() error {
	if g.MaxScore <= 0 {
		return errors.Wrapf(ErrInvalidGrade, "%s: max score must be positive", g.Label)
	}
	if g.Score < 0 || g.Score > g.MaxScore {
		return errors.Wrapf(ErrInvalidGrade, "%s: score %.2f is outside [0, %.2f]", g.Label, g.Score, g.MaxScore)
	}
	if g.Weight < 0 {
		return errors.Wrapf(ErrInvalidGrade, "%s: weight cannot be negative", g.Label)
	}
	return nil
}

// WeightedAverage normalizes every grade by its max score and returns their weighted mean,
// as a percentage rounded to two decimals.
func WeightedAverage(grades []Grade) (float64, error) {
	var sum, weights float64
	for _, g := range grades {
		if err := g.validate(); err != nil {
			return 0, err
		}
		sum += g.Score / g.MaxScore * g.Weight
		weights += g.Weight
	}
	if weights == 0 {
		return 0, ErrNoWeight
	}
	return round2(sum / weights * 100), nil
}

// GradesRequest is the payload of the grade average endpoint.
type GradesRequest struct {
	Grades []Grade `json:"grades" validate:"required,min=1,dive"`
}

type GradesSummary struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
}
