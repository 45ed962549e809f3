package model_selection

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/churnkit/core/model"
	"github.com/YuminosukeSato/churnkit/metrics"
	"github.com/YuminosukeSato/churnkit/pkg/errors"
)

// CrossValScore fits a fresh clone of estimator on the training part of
// every fold from cv and returns the accuracy on the held-out part, one
// score per fold. A fold whose fit fails scores NaN and raises a
// FitFailedWarning instead of aborting the whole run.
func CrossValScore(estimator model.Cloner, X, y mat.Matrix, cv Splitter) ([]float64, error) {
	nX, _ := X.Dims()
	nY, _ := y.Dims()
	if nX != nY {
		return nil, errors.NewDimensionError("CrossValScore", nX, nY, 0)
	}

	folds, err := cv.Split(X, y)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(folds))
	for i, fold := range folds {
		clf := estimator.Clone()
		if err := clf.Fit(Rows(X, fold.TrainIndices), Rows(y, fold.TrainIndices)); err != nil {
			errors.Warn(errors.NewFitFailedWarning(i, err))
			scores[i] = math.NaN()
			continue
		}

		pred, err := clf.Predict(Rows(X, fold.TestIndices))
		if err != nil {
			return nil, errors.Wrapf(err, "fold %d", i)
		}
		acc, err := metrics.Accuracy(Rows(y, fold.TestIndices), pred)
		if err != nil {
			return nil, errors.Wrapf(err, "fold %d", i)
		}
		scores[i] = acc
	}
	return scores, nil
}

// CrossValScoreK runs CrossValScore with an unshuffled StratifiedKFold of k
// folds, the default for classifiers.
func CrossValScoreK(estimator model.Cloner, X, y mat.Matrix, k int) ([]float64, error) {
	return CrossValScore(estimator, X, y, NewStratifiedKFold(k, false, 0))
}

// MeanScore returns the mean of the non-NaN scores, or NaN if there are none.
func MeanScore(scores []float64) float64 {
	var sum float64
	n := 0
	for _, s := range scores {
		if math.IsNaN(s) {
			continue
		}
		sum += s
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
