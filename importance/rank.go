// Package importance ranks model coefficients by magnitude and renders the
// ranking as a bar chart.
package importance

import (
	"fmt"
	"math"
	"sort"

	"github.com/YuminosukeSato/churnkit/pkg/errors"
)

// FeatureImportance is one row of the ranking.
type FeatureImportance struct {
	Feature     string
	Coefficient float64
	// Importance は係数の絶対値
	Importance float64
}

// Rank pairs coef with names and orders them by |coef|, largest first.
// Features with equal magnitude keep their input order.
func Rank(coef []float64, names []string) ([]FeatureImportance, error) {
	if len(coef) != len(names) {
		return nil, errors.NewDimensionError("importance.Rank", len(names), len(coef), 1)
	}
	if len(coef) == 0 {
		return nil, errors.NewValueError("importance.Rank", "no coefficients to rank")
	}

	out := make([]FeatureImportance, len(coef))
	for i, c := range coef {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, errors.NewValidationError("coef", fmt.Sprintf("coefficient for %q is not finite", names[i]), c)
		}
		out[i] = FeatureImportance{Feature: names[i], Coefficient: c, Importance: math.Abs(c)}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Importance > out[j].Importance
	})
	return out, nil
}

// Top returns at most n leading entries of ranking.
func Top(ranking []FeatureImportance, n int) []FeatureImportance {
	if n <= 0 || n >= len(ranking) {
		return ranking
	}
	return ranking[:n]
}
