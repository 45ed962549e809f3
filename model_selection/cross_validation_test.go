package model_selection

import (
	"math"
	"sort"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/churnkit/core/model"
	"github.com/YuminosukeSato/churnkit/linear_model"
	"github.com/YuminosukeSato/churnkit/pkg/errors"
)

func TestKFold_Split(t *testing.T) {
	X := mat.NewDense(10, 1, nil)
	folds, err := NewKFold(3, false, 0).Split(X, nil)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(folds) != 3 {
		t.Fatalf("got %d folds", len(folds))
	}

	wantSizes := []int{4, 3, 3}
	seen := make([]int, 10)
	for i, f := range folds {
		if len(f.TestIndices) != wantSizes[i] {
			t.Errorf("fold %d test size = %d, want %d", i, len(f.TestIndices), wantSizes[i])
		}
		if len(f.TrainIndices)+len(f.TestIndices) != 10 {
			t.Errorf("fold %d does not cover all samples", i)
		}
		for _, idx := range f.TestIndices {
			seen[idx]++
		}
	}
	for idx, c := range seen {
		if c != 1 {
			t.Errorf("sample %d appears in %d test folds", idx, c)
		}
	}

	if _, err := NewKFold(5, false, 0).Split(mat.NewDense(3, 1, nil), nil); err == nil {
		t.Error("more splits than samples should fail")
	}
}

func TestStratifiedKFold_Split(t *testing.T) {
	X := mat.NewDense(10, 1, nil)
	y := mat.NewDense(10, 1, []float64{0, 0, 0, 0, 0, 0, 1, 1, 1, 1})

	folds, err := NewStratifiedKFold(2, false, 0).Split(X, y)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	for i, f := range folds {
		var pos int
		for _, idx := range f.TestIndices {
			if y.At(idx, 0) == 1 {
				pos++
			}
		}
		if len(f.TestIndices) != 5 || pos != 2 {
			t.Errorf("fold %d: %d test samples with %d positives, want 5 and 2", i, len(f.TestIndices), pos)
		}
		if !sort.IntsAreSorted(f.TestIndices) || !sort.IntsAreSorted(f.TrainIndices) {
			t.Errorf("fold %d indices must be sorted", i)
		}
	}

	// 少数クラスの余りが同じ fold に偏らない
	y3 := mat.NewDense(3, 1, []float64{0, 0, 1})
	folds, err = NewStratifiedKFold(2, false, 0).Split(mat.NewDense(3, 1, nil), y3)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	for i, f := range folds {
		if len(f.TestIndices) == 0 {
			t.Errorf("fold %d has an empty test set", i)
		}
	}
}

// majority always predicts the most frequent training label.
type majority struct {
	label float64
}

func (m *majority) Fit(_, y mat.Matrix) error {
	r, _ := y.Dims()
	var ones int
	for i := 0; i < r; i++ {
		if y.At(i, 0) == 1 {
			ones++
		}
	}
	m.label = 0
	if 2*ones > r {
		m.label = 1
	}
	return nil
}

func (m *majority) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, _ := X.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, m.label)
	}
	return out, nil
}

func (m *majority) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	r, _ := X.Dims()
	return mat.NewDense(r, 2, nil), nil
}

func (m *majority) Classes() []int { return []int{0, 1} }

func (m *majority) Clone() model.Classifier { return &majority{} }

func TestCrossValScore(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{1, 2, 3, 4, 5, 6})
	y := mat.NewDense(6, 1, []float64{0, 0, 0, 0, 1, 1})

	scores, err := CrossValScore(&majority{}, X, y, NewKFold(3, false, 0))
	if err != nil {
		t.Fatalf("CrossValScore failed: %v", err)
	}
	want := []float64{1, 1, 0}
	for i := range want {
		if scores[i] != want[i] {
			t.Errorf("fold %d score = %v, want %v", i, scores[i], want[i])
		}
	}
	if got := MeanScore(scores); math.Abs(got-2.0/3.0) > 1e-12 {
		t.Errorf("MeanScore = %v", got)
	}
}

func TestCrossValScore_LogisticRegression(t *testing.T) {
	X := mat.NewDense(10, 1, []float64{-5, -4, -3, -2, -1, 1, 2, 3, 4, 5})
	y := mat.NewDense(10, 1, []float64{0, 0, 0, 0, 0, 1, 1, 1, 1, 1})

	lr := linear_model.NewLogisticRegression(linear_model.WithLRClassWeight(linear_model.ClassWeightBalanced))
	scores, err := CrossValScoreK(lr, X, y, 5)
	if err != nil {
		t.Fatalf("CrossValScoreK failed: %v", err)
	}
	if len(scores) != 5 {
		t.Fatalf("got %d scores", len(scores))
	}
	for i, s := range scores {
		if s != 1 {
			t.Errorf("fold %d accuracy = %v, want 1", i, s)
		}
	}
	if lr.IsFitted() {
		t.Error("the prototype estimator must stay unfitted")
	}
}

func TestCrossValScore_FitFailureScoresNaN(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(func(error) {})

	// fold 0 の訓練データには陰性しか残らない
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := mat.NewDense(3, 1, []float64{0, 0, 1})

	scores, err := CrossValScoreK(linear_model.NewLogisticRegression(), X, y, 2)
	if err != nil {
		t.Fatalf("CrossValScoreK failed: %v", err)
	}
	nan := 0
	for _, s := range scores {
		if math.IsNaN(s) {
			nan++
		}
	}
	if nan == 0 {
		t.Fatalf("expected a NaN score, got %v", scores)
	}
	var ffw *errors.FitFailedWarning
	if len(warnings) == 0 || !errors.As(warnings[0], &ffw) {
		t.Errorf("expected FitFailedWarning, got %v", warnings)
	}
}
