// Package model_selection splits data for holdout evaluation and
// cross-validation.
package model_selection

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/churnkit/dataset"
	"github.com/YuminosukeSato/churnkit/pkg/errors"
)

// Split is a 4-way holdout partition of a table.
type Split struct {
	XTrain, XTest *mat.Dense
	YTrain, YTest *mat.Dense

	// FeatureNames are the columns of X, in order.
	FeatureNames []string

	// TrainIndices and TestIndices are row positions in the source table.
	TrainIndices []int
	TestIndices  []int
}

type splitOptions struct {
	testSize    float64
	randomState int64
	drop        []string
}

// SplitOption configures TrainTestSplit.
type SplitOption func(*splitOptions)

// WithTestSize sets the fraction of rows held out (default 0.2).
func WithTestSize(size float64) SplitOption {
	return func(o *splitOptions) {
		o.testSize = size
	}
}

// WithRandomState sets the shuffle seed (default 42).
func WithRandomState(seed int64) SplitOption {
	return func(o *splitOptions) {
		o.randomState = seed
	}
}

// WithDropColumns removes columns from the feature matrix. Columns absent
// from the table are ignored.
func WithDropColumns(columns ...string) SplitOption {
	return func(o *splitOptions) {
		o.drop = append(o.drop, columns...)
	}
}

// TrainTestSplit drops the label and the configured columns, turns the rest
// into a feature matrix and partitions the rows. The test set holds
// round(testSize*N) rows taken from a seeded permutation, so the same seed
// always yields the same partition. There is no stratification.
func TrainTestSplit(df dataframe.DataFrame, label string, options ...SplitOption) (*Split, error) {
	const op = "TrainTestSplit"
	o := splitOptions{testSize: 0.2, randomState: 42}
	for _, opt := range options {
		opt(&o)
	}

	if df.Err != nil {
		return nil, errors.Wrap(df.Err, op)
	}
	if err := dataset.RequireColumns(op, df, label); err != nil {
		return nil, err
	}
	if o.testSize <= 0 || o.testSize >= 1 {
		return nil, errors.NewValidationError("test_size", "must be in (0, 1)", o.testSize)
	}

	n := df.Nrow()
	nTest := int(math.Round(o.testSize * float64(n)))
	nTrain := n - nTest
	if nTest < 1 || nTrain < 1 {
		return nil, errors.NewValueError(op, fmt.Sprintf(
			"with n_samples=%d and test_size=%v the train or test set would be empty", n, o.testSize))
	}

	y, err := LabelVector(df.Col(label))
	if err != nil {
		return nil, err
	}

	drop := append([]string{label}, o.drop...)
	featureFrame := df
	if cols := dataset.ExistingColumns(df, drop...); len(cols) > 0 {
		featureFrame = df.Drop(cols)
	}
	X, names, err := FeatureMatrix(featureFrame)
	if err != nil {
		return nil, err
	}

	r := rand.New(rand.NewPCG(uint64(o.randomState), uint64(o.randomState)))
	perm := r.Perm(n)
	testIdx := append([]int(nil), perm[:nTest]...)
	trainIdx := append([]int(nil), perm[nTest:]...)

	return &Split{
		XTrain:       Rows(X, trainIdx),
		XTest:        Rows(X, testIdx),
		YTrain:       Rows(y, trainIdx),
		YTest:        Rows(y, testIdx),
		FeatureNames: names,
		TrainIndices: trainIdx,
		TestIndices:  testIdx,
	}, nil
}

// FeatureMatrix converts every column of df to a float matrix. Only Int,
// Float and Bool columns are accepted, and they may not contain missing
// values.
func FeatureMatrix(df dataframe.DataFrame) (*mat.Dense, []string, error) {
	names := df.Names()
	if len(names) == 0 {
		return nil, nil, errors.NewValueError("FeatureMatrix", "no feature columns left")
	}
	n := df.Nrow()
	X := mat.NewDense(n, len(names), nil)
	for j, name := range names {
		col := df.Col(name)
		switch col.Type() {
		case series.Int, series.Float, series.Bool:
		default:
			return nil, nil, errors.NewValidationError(name, "feature column is not numeric", col.Type())
		}
		for i, v := range col.Float() {
			if math.IsNaN(v) {
				return nil, nil, errors.NewValidationError(name, "feature column contains missing values", i)
			}
			X.Set(i, j, v)
		}
	}
	return X, append([]string(nil), names...), nil
}

// LabelVector parses a churn label column into an n×1 matrix of 0/1.
// Numeric columns must hold 0 or 1; string columns may use yes/no, y/n,
// true/false or 1/0 in any case.
func LabelVector(col series.Series) (*mat.Dense, error) {
	n := col.Len()
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		el := col.Elem(i)
		if el.IsNA() {
			return nil, errors.NewParseError(col.Name, i, "", errors.New("missing label"))
		}
		v, ok := parseLabel(col.Type(), el)
		if !ok {
			return nil, errors.NewParseError(col.Name, i, el.String(), errors.New("label must be binary"))
		}
		y.Set(i, 0, v)
	}
	return y, nil
}

func parseLabel(t series.Type, el series.Element) (float64, bool) {
	switch t {
	case series.Int, series.Float, series.Bool:
		v := el.Float()
		if v == 0 || v == 1 {
			return v, true
		}
		return 0, false
	}
	switch strings.ToLower(strings.TrimSpace(el.String())) {
	case "1", "yes", "y", "true":
		return 1, true
	case "0", "no", "n", "false":
		return 0, true
	}
	return 0, false
}

// Rows gathers the given rows of X, in the order of idx.
func Rows(X mat.Matrix, idx []int) *mat.Dense {
	_, c := X.Dims()
	out := mat.NewDense(len(idx), c, nil)
	for i, row := range idx {
		for j := 0; j < c; j++ {
			out.Set(i, j, X.At(row, j))
		}
	}
	return out
}
