// Package linear_model provides a binary, class-weighted logistic
// regression compatible with scikit-learn's LogisticRegression(solver="lbfgs").
package linear_model

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/YuminosukeSato/churnkit/core/model"
	"github.com/YuminosukeSato/churnkit/pkg/errors"
	"github.com/YuminosukeSato/churnkit/pkg/log"
)

// Class weight modes.
const (
	ClassWeightNone     = "none"
	ClassWeightBalanced = "balanced"
)

// LogisticRegression implements L2-regularised binary logistic regression.
//
// The objective minimised by L-BFGS is
//
//	(1/S) Σ s_i [log(1+exp(z_i)) - y_i z_i] + ||w||² / (2·C·S)
//
// where z_i = w·x_i + b, s_i is the weight of sample i's class and S = Σ s_i.
// The intercept b is not penalised.
type LogisticRegression struct {
	state  *model.StateManager // State management (composition)
	logger log.Logger

	// Hyperparameters
	C            float64 // Inverse regularization strength (1/alpha)
	fitIntercept bool    // Whether to fit intercept
	classWeight  string  // Class weight: "balanced", "none"
	randomState  int64   // Random seed (kept for reproducible clones; lbfgs is deterministic)
	maxIter      int     // Maximum iterations
	tol          float64 // Gradient tolerance for stopping

	// Model parameters
	coef_      []float64 // Coefficients, one per feature
	intercept_ float64   // Intercept term
	classes_   []int     // Class labels, ascending
	nIter_     int       // Iterations run by the solver
}

// LogisticRegressionOption is a functional option for LogisticRegression
type LogisticRegressionOption func(*LogisticRegression)

// NewLogisticRegression creates a new LogisticRegression classifier
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		state:        model.NewStateManager(),
		logger:       log.Nop(),
		C:            1.0,
		fitIntercept: true,
		classWeight:  ClassWeightNone,
		randomState:  -1,
		maxIter:      100,
		tol:          1e-4,
	}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// WithLRC sets the inverse regularization strength
func WithLRC(c float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.C = c
	}
}

// WithLogisticFitIntercept sets whether to fit intercept
func WithLogisticFitIntercept(fit bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.fitIntercept = fit
	}
}

// WithLRClassWeight sets the class weighting ("balanced" or "none")
func WithLRClassWeight(mode string) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.classWeight = mode
	}
}

// WithLRMaxIter sets the maximum number of iterations
func WithLRMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.maxIter = maxIter
	}
}

// WithLRTol sets the tolerance for stopping criteria
func WithLRTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.tol = tol
	}
}

// WithLRRandomState sets the random seed
func WithLRRandomState(seed int64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.randomState = seed
	}
}

// WithLRLogger sets the logger
func WithLRLogger(logger log.Logger) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.logger = logger
	}
}

// Fit trains the logistic regression model. y must be an n×1 column of
// integer labels with exactly two distinct values.
func (lr *LogisticRegression) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "LogisticRegression.Fit")

	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return errors.NewModelError("LogisticRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if nSamples != yRows {
		return errors.NewDimensionError("LogisticRegression.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewValueError("LogisticRegression.Fit", fmt.Sprintf("y must be a column vector: got shape (%d, %d)", yRows, yCols))
	}
	if lr.C <= 0 {
		return errors.NewValidationError("C", "must be positive", lr.C)
	}
	if err := errors.CheckMatrix("LogisticRegression.Fit", X, nSamples, nFeatures, 0); err != nil {
		return err
	}

	classes, counts := extractClasses(y)
	switch {
	case len(classes) < 2:
		return errors.NewModelError("LogisticRegression.Fit",
			fmt.Sprintf("needs samples of 2 classes, got only %v", classes), errors.ErrSingleClass)
	case len(classes) > 2:
		return errors.NewValueError("LogisticRegression.Fit",
			fmt.Sprintf("only binary classification is supported, got classes %v", classes))
	}

	weights, err := lr.classWeights(nSamples, counts)
	if err != nil {
		return err
	}

	target := make([]float64, nSamples)
	sampleWeight := make([]float64, nSamples)
	for i := 0; i < nSamples; i++ {
		if int(y.At(i, 0)) == classes[1] {
			target[i] = 1
			sampleWeight[i] = weights[1]
		} else {
			sampleWeight[i] = weights[0]
		}
	}

	obj := newObjective(mat.DenseCopyOf(X), target, sampleWeight, lr.C, lr.fitIntercept)
	problem := optimize.Problem{Func: obj.value, Grad: obj.gradient}
	settings := &optimize.Settings{
		GradientThreshold: lr.tol,
		MajorIterations:   lr.maxIter,
	}

	// 初期値はゼロ
	x0 := make([]float64, obj.dim())
	result, optErr := optimize.Minimize(problem, x0, settings, &optimize.LBFGS{})
	if result == nil || result.X == nil {
		return errors.NewModelError("LogisticRegression.Fit", "optimization failed", optErr)
	}
	if optErr != nil || result.Status == optimize.IterationLimit {
		msg := result.Status.String()
		if optErr != nil {
			msg = optErr.Error()
		}
		errors.Warn(errors.NewConvergenceWarning("lbfgs", result.Stats.MajorIterations, msg))
	}
	if err := errors.CheckNumericalStability("LogisticRegression.Fit", result.X, result.Stats.MajorIterations); err != nil {
		return err
	}

	lr.coef_ = append([]float64(nil), result.X[:nFeatures]...)
	lr.intercept_ = 0
	if lr.fitIntercept {
		lr.intercept_ = result.X[nFeatures]
	}
	lr.classes_ = classes
	lr.nIter_ = result.Stats.MajorIterations
	lr.state.SetDimensions(nFeatures, nSamples)
	lr.state.SetFitted()

	lr.logger.Debug("Training completed",
		log.ModelNameKey, "LogisticRegression",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.IterationKey, lr.nIter_,
		log.LossKey, result.F,
	)
	return nil
}

// classWeights returns the weight of classes_[0] and classes_[1].
func (lr *LogisticRegression) classWeights(n int, counts [2]int) ([2]float64, error) {
	switch lr.classWeight {
	case ClassWeightBalanced:
		// n_samples / (n_classes * np.bincount(y))
		return [2]float64{
			float64(n) / (2 * float64(counts[0])),
			float64(n) / (2 * float64(counts[1])),
		}, nil
	case ClassWeightNone, "":
		return [2]float64{1, 1}, nil
	default:
		return [2]float64{}, errors.NewValidationError("class_weight", "must be \"balanced\" or \"none\"", lr.classWeight)
	}
}

// extractClasses identifies unique class labels and how often each occurs
func extractClasses(y mat.Matrix) ([]int, [2]int) {
	rows, _ := y.Dims()
	classMap := make(map[int]int)
	for i := 0; i < rows; i++ {
		classMap[int(y.At(i, 0))]++
	}

	classes := make([]int, 0, len(classMap))
	for class := range classMap {
		classes = append(classes, class)
	}
	sort.Ints(classes)

	var counts [2]int
	if len(classes) == 2 {
		counts = [2]int{classMap[classes[0]], classMap[classes[1]]}
	}
	return classes, counts
}

// DecisionFunction returns w·x + b for every row as an n×1 matrix
func (lr *LogisticRegression) DecisionFunction(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.state.RequireFitted("LogisticRegression", "DecisionFunction"); err != nil {
		return nil, err
	}
	nSamples, nFeatures := X.Dims()
	if err := lr.state.RequireFeatures("LogisticRegression.DecisionFunction", nFeatures); err != nil {
		return nil, err
	}

	z := mat.NewVecDense(nSamples, nil)
	z.MulVec(X, mat.NewVecDense(nFeatures, lr.coef_))
	out := mat.NewDense(nSamples, 1, nil)
	for i := 0; i < nSamples; i++ {
		out.Set(i, 0, z.AtVec(i)+lr.intercept_)
	}
	return out, nil
}

// Predict makes predictions for input data, returning the original labels
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	z, err := lr.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	nSamples, _ := z.Dims()
	predictions := mat.NewDense(nSamples, 1, nil)
	for i := 0; i < nSamples; i++ {
		label := lr.classes_[0]
		if z.At(i, 0) > 0 {
			label = lr.classes_[1]
		}
		predictions.Set(i, 0, float64(label))
	}
	return predictions, nil
}

// PredictProba returns probability estimates for each class (n×2, columns in
// the order of Classes)
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	z, err := lr.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	nSamples, _ := z.Dims()
	probas := mat.NewDense(nSamples, 2, nil)
	for i := 0; i < nSamples; i++ {
		p1 := errors.Sigmoid(z.At(i, 0))
		probas.Set(i, 0, 1.0-p1)
		probas.Set(i, 1, p1)
	}
	return probas, nil
}

// Score returns the mean accuracy on the given test data and labels
func (lr *LogisticRegression) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	nSamples, _ := X.Dims()
	if yr, _ := y.Dims(); yr != nSamples {
		return 0, errors.NewDimensionError("LogisticRegression.Score", nSamples, yr, 0)
	}

	correct := 0
	for i := 0; i < nSamples; i++ {
		if predictions.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(nSamples), nil
}

// Coef returns a copy of the coefficient vector, one weight per feature
func (lr *LogisticRegression) Coef() []float64 {
	return append([]float64(nil), lr.coef_...)
}

// Intercept returns the fitted intercept
func (lr *LogisticRegression) Intercept() float64 {
	return lr.intercept_
}

// Classes returns the class labels seen during Fit, ascending
func (lr *LogisticRegression) Classes() []int {
	return append([]int(nil), lr.classes_...)
}

// NIter returns the number of solver iterations of the last Fit
func (lr *LogisticRegression) NIter() int {
	return lr.nIter_
}

// IsFitted reports whether Fit has completed
func (lr *LogisticRegression) IsFitted() bool {
	return lr.state.IsFitted()
}

// Clone returns an unfitted model with the same hyperparameters
func (lr *LogisticRegression) Clone() model.Classifier {
	return NewLogisticRegression(
		WithLRC(lr.C),
		WithLogisticFitIntercept(lr.fitIntercept),
		WithLRClassWeight(lr.classWeight),
		WithLRRandomState(lr.randomState),
		WithLRMaxIter(lr.maxIter),
		WithLRTol(lr.tol),
		WithLRLogger(lr.logger),
	)
}

// GetParams returns the model hyperparameters
func (lr *LogisticRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"penalty":       "l2",
		"solver":        "lbfgs",
		"C":             lr.C,
		"fit_intercept": lr.fitIntercept,
		"class_weight":  lr.classWeight,
		"random_state":  lr.randomState,
		"max_iter":      lr.maxIter,
		"tol":           lr.tol,
	}
}

// SetParams sets the model hyperparameters
func (lr *LogisticRegression) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var ok bool
		switch key {
		case "C":
			lr.C, ok = value.(float64)
		case "fit_intercept":
			lr.fitIntercept, ok = value.(bool)
		case "class_weight":
			lr.classWeight, ok = value.(string)
		case "random_state":
			lr.randomState, ok = value.(int64)
		case "max_iter":
			lr.maxIter, ok = value.(int)
		case "tol":
			lr.tol, ok = value.(float64)
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
		if !ok {
			return errors.NewValidationError(key, "wrong type", value)
		}
	}
	return nil
}

// String returns a short description of the model
func (lr *LogisticRegression) String() string {
	return fmt.Sprintf("LogisticRegression(C=%g, class_weight=%s, max_iter=%d, random_state=%d)",
		lr.C, lr.classWeight, lr.maxIter, lr.randomState)
}

// objective is the weighted, L2-penalised log loss over [w..., b].
type objective struct {
	X            *mat.Dense
	y            []float64
	sw           []float64
	sumWeights   float64
	alpha        float64 // 1 / (C · S)
	fitIntercept bool

	z   *mat.VecDense
	res *mat.VecDense
}

func newObjective(X *mat.Dense, y, sw []float64, C float64, fitIntercept bool) *objective {
	n, _ := X.Dims()
	s := floats.Sum(sw)
	return &objective{
		X:            X,
		y:            y,
		sw:           sw,
		sumWeights:   s,
		alpha:        1 / (C * s),
		fitIntercept: fitIntercept,
		z:            mat.NewVecDense(n, nil),
		res:          mat.NewVecDense(n, nil),
	}
}

func (o *objective) dim() int {
	_, p := o.X.Dims()
	if o.fitIntercept {
		return p + 1
	}
	return p
}

func (o *objective) linear(x []float64) {
	_, p := o.X.Dims()
	o.z.MulVec(o.X, mat.NewVecDense(p, x[:p]))
	if o.fitIntercept {
		b := x[p]
		for i := 0; i < o.z.Len(); i++ {
			o.z.SetVec(i, o.z.AtVec(i)+b)
		}
	}
}

func (o *objective) value(x []float64) float64 {
	_, p := o.X.Dims()
	o.linear(x)
	var loss float64
	for i, yi := range o.y {
		zi := o.z.AtVec(i)
		loss += o.sw[i] * (errors.Softplus(zi) - yi*zi)
	}
	w := x[:p]
	return loss/o.sumWeights + 0.5*o.alpha*floats.Dot(w, w)
}

func (o *objective) gradient(grad, x []float64) {
	_, p := o.X.Dims()
	o.linear(x)
	var gb float64
	for i, yi := range o.y {
		r := o.sw[i] * (errors.Sigmoid(o.z.AtVec(i)) - yi) / o.sumWeights
		o.res.SetVec(i, r)
		gb += r
	}

	gw := mat.NewVecDense(p, grad[:p])
	gw.MulVec(o.X.T(), o.res)
	floats.AddScaled(grad[:p], o.alpha, x[:p])
	if o.fitIntercept {
		grad[p] = gb
	}
}
