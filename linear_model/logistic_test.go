package linear_model

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/churnkit/core/model"
	"github.com/YuminosukeSato/churnkit/pkg/errors"
)

var (
	_ model.Classifier          = (*LogisticRegression)(nil)
	_ model.Cloner              = (*LogisticRegression)(nil)
	_ model.CoefficientProvider = (*LogisticRegression)(nil)
)

// TestLogisticRegression_FitPredict_Binary tests binary classification
func TestLogisticRegression_FitPredict_Binary(t *testing.T) {
	// Class 0: points around (1, 1)
	// Class 1: points around (3, 3)
	X := mat.NewDense(6, 2, []float64{
		0.5, 0.5,
		1.0, 1.5,
		1.5, 1.0,
		3.0, 2.5,
		2.5, 3.0,
		3.5, 3.5,
	})
	y := mat.NewDense(6, 1, []float64{
		0, 0, 0, // Class 0
		1, 1, 1, // Class 1
	})

	lr := NewLogisticRegression(WithLRMaxIter(1000), WithLRTol(1e-6))
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit model: %v", err)
	}

	predictions, err := lr.Predict(X)
	if err != nil {
		t.Fatalf("Failed to predict: %v", err)
	}
	for i := 0; i < 6; i++ {
		if pred, actual := predictions.At(i, 0), y.At(i, 0); pred != actual {
			t.Errorf("Sample %d: expected %v, got %v", i, actual, pred)
		}
	}

	XTest := mat.NewDense(2, 2, []float64{
		1.0, 1.0, // Should be class 0
		3.0, 3.0, // Should be class 1
	})
	testPreds, err := lr.Predict(XTest)
	if err != nil {
		t.Fatalf("Failed to predict on test data: %v", err)
	}
	if testPreds.At(0, 0) != 0 {
		t.Errorf("Test point (1,1) should be class 0, got %v", testPreds.At(0, 0))
	}
	if testPreds.At(1, 0) != 1 {
		t.Errorf("Test point (3,3) should be class 1, got %v", testPreds.At(1, 0))
	}

	// 対称なデータなので係数はほぼ等しい
	coef := lr.Coef()
	if len(coef) != 2 || math.Abs(coef[0]-coef[1]) > 1e-3 || coef[0] <= 0 {
		t.Errorf("unexpected coefficients %v", coef)
	}

	score, err := lr.Score(X, y)
	if err != nil || score != 1.0 {
		t.Errorf("Score = %v, %v; want 1", score, err)
	}
}

// TestLogisticRegression_PredictProba tests probability predictions
func TestLogisticRegression_PredictProba(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		1, 1,
	})
	y := mat.NewDense(4, 1, []float64{0, 0, 0, 1})

	lr := NewLogisticRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit model: %v", err)
	}

	probas, err := lr.PredictProba(X)
	if err != nil {
		t.Fatalf("Failed to predict probabilities: %v", err)
	}
	rows, cols := probas.Dims()
	if rows != 4 || cols != 2 {
		t.Fatalf("Expected shape (4, 2), got (%d, %d)", rows, cols)
	}
	for i := 0; i < rows; i++ {
		sum := probas.At(i, 0) + probas.At(i, 1)
		if math.Abs(sum-1.0) > 1e-10 {
			t.Errorf("Row %d: probabilities sum to %v, expected 1.0", i, sum)
		}
	}
	if probas.At(3, 1) <= probas.At(0, 1) {
		t.Errorf("P(y=1|1,1)=%v should exceed P(y=1|0,0)=%v", probas.At(3, 1), probas.At(0, 1))
	}

	// PredictProba と DecisionFunction の整合性
	z, err := lr.DecisionFunction(X)
	if err != nil {
		t.Fatalf("DecisionFunction failed: %v", err)
	}
	for i := 0; i < rows; i++ {
		if want := errors.Sigmoid(z.At(i, 0)); math.Abs(probas.At(i, 1)-want) > 1e-12 {
			t.Errorf("Row %d: proba %v, sigmoid(z) %v", i, probas.At(i, 1), want)
		}
	}
}

func TestLogisticRegression_ClassWeights(t *testing.T) {
	lr := NewLogisticRegression(WithLRClassWeight(ClassWeightBalanced))
	w, err := lr.classWeights(5, [2]int{4, 1})
	if err != nil {
		t.Fatalf("classWeights failed: %v", err)
	}
	if w[0] != 5.0/8.0 || w[1] != 5.0/2.0 {
		t.Errorf("balanced weights = %v, want [0.625 2.5]", w)
	}

	if _, err := NewLogisticRegression(WithLRClassWeight("bogus")).classWeights(5, [2]int{4, 1}); err == nil {
		t.Error("unknown class_weight should fail")
	}
}

func TestLogisticRegression_BalancedFavoursMinority(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{0, 1, 2, 3, 4, 5})
	y := mat.NewDense(6, 1, []float64{0, 0, 0, 0, 1, 0})
	probe := mat.NewDense(1, 1, []float64{4})

	proba := func(mode string) float64 {
		lr := NewLogisticRegression(WithLRClassWeight(mode), WithLRRandomState(42))
		if err := lr.Fit(X, y); err != nil {
			t.Fatalf("Fit(%s) failed: %v", mode, err)
		}
		p, err := lr.PredictProba(probe)
		if err != nil {
			t.Fatalf("PredictProba(%s) failed: %v", mode, err)
		}
		return p.At(0, 1)
	}

	if none, balanced := proba(ClassWeightNone), proba(ClassWeightBalanced); balanced <= none {
		t.Errorf("balanced P(y=1)=%v should exceed unweighted %v", balanced, none)
	}
}

func TestLogisticRegression_OriginalLabels(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{-2, -1, 1, 2})
	y := mat.NewDense(4, 1, []float64{3, 3, 7, 7})

	lr := NewLogisticRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if c := lr.Classes(); len(c) != 2 || c[0] != 3 || c[1] != 7 {
		t.Errorf("Classes = %v", c)
	}
	pred, err := lr.Predict(X)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if pred.At(0, 0) != 3 || pred.At(3, 0) != 7 {
		t.Errorf("predictions should use original labels, got %v", mat.Formatted(pred))
	}
}

func TestLogisticRegression_Errors(t *testing.T) {
	lr := NewLogisticRegression()

	_, err := lr.Predict(mat.NewDense(1, 1, []float64{1}))
	var nfe *errors.NotFittedError
	if !errors.As(err, &nfe) {
		t.Errorf("expected NotFittedError, got %v", err)
	}

	err = lr.Fit(mat.NewDense(3, 1, []float64{1, 2, 3}), mat.NewDense(3, 1, []float64{1, 1, 1}))
	if !errors.Is(err, errors.ErrSingleClass) {
		t.Errorf("expected ErrSingleClass, got %v", err)
	}

	err = lr.Fit(mat.NewDense(3, 1, []float64{1, 2, 3}), mat.NewDense(3, 1, []float64{0, 1, 2}))
	var ve *errors.ValueError
	if !errors.As(err, &ve) {
		t.Errorf("expected ValueError for 3 classes, got %v", err)
	}

	err = lr.Fit(mat.NewDense(3, 1, []float64{1, 2, 3}), mat.NewDense(2, 1, []float64{0, 1}))
	var de *errors.DimensionError
	if !errors.As(err, &de) {
		t.Errorf("expected DimensionError, got %v", err)
	}

	if err := lr.Fit(mat.NewDense(2, 1, []float64{0, 1}), mat.NewDense(2, 1, []float64{0, 1})); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	_, err = lr.Predict(mat.NewDense(1, 2, []float64{0, 1}))
	if !errors.As(err, &de) {
		t.Errorf("expected DimensionError for wrong feature count, got %v", err)
	}
}

func TestLogisticRegression_ConvergenceWarning(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(func(error) {})

	X := mat.NewDense(6, 2, []float64{0, 1, 1, 0, 2, 2, 5, 4, 4, 5, 6, 6})
	y := mat.NewDense(6, 1, []float64{0, 0, 0, 1, 1, 1})

	lr := NewLogisticRegression(WithLRMaxIter(1), WithLRTol(1e-12))
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit should keep the last iterate, got %v", err)
	}
	if !lr.IsFitted() {
		t.Fatal("model should be fitted after a non-converged run")
	}

	found := false
	for _, w := range warnings {
		var cw *errors.ConvergenceWarning
		if errors.As(w, &cw) {
			found = true
		}
	}
	if !found {
		t.Errorf("expected ConvergenceWarning, got %v", warnings)
	}
}

func TestLogisticRegression_Clone(t *testing.T) {
	lr := NewLogisticRegression(WithLRC(0.5), WithLRClassWeight(ClassWeightBalanced), WithLRRandomState(42))
	if err := lr.Fit(mat.NewDense(2, 1, []float64{0, 1}), mat.NewDense(2, 1, []float64{0, 1})); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	clone, ok := lr.Clone().(*LogisticRegression)
	if !ok {
		t.Fatalf("Clone returned %T", lr.Clone())
	}
	if clone.IsFitted() {
		t.Error("clone must be unfitted")
	}
	params := clone.GetParams()
	if params["C"] != 0.5 || params["class_weight"] != ClassWeightBalanced || params["random_state"] != int64(42) {
		t.Errorf("clone params = %v", params)
	}
}

func TestLogisticRegression_SetParams(t *testing.T) {
	lr := NewLogisticRegression()
	if err := lr.SetParams(map[string]interface{}{"C": 2.0, "max_iter": 50}); err != nil {
		t.Fatalf("SetParams failed: %v", err)
	}
	if lr.C != 2.0 || lr.maxIter != 50 {
		t.Errorf("params not applied: C=%v max_iter=%v", lr.C, lr.maxIter)
	}
	if err := lr.SetParams(map[string]interface{}{"C": "big"}); err == nil {
		t.Error("wrong type should fail")
	}
	if err := lr.SetParams(map[string]interface{}{"penalty": "l1"}); err == nil {
		t.Error("unknown parameter should fail")
	}
}
