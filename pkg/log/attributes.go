// Package log defines standard attribute keys for pipeline operations.
//
// Keys follow a hierarchical naming convention (e.g. "model.name",
// "data.samples") so log lines from different stages can be filtered the
// same way.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of model or transformer.
	// Examples: "LogisticRegression", "StandardScaler", "OneHotEncoder"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "fit_transform", "score"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component is logging.
	ComponentKey = "component"

	// PhaseKey indicates the phase of model lifecycle.
	PhaseKey = "ml.phase"

	// StageKey names the pipeline stage, e.g. "create_new_features".
	StageKey = "pipeline.stage"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	FeaturesKey = "data.features"

	// ColumnsKey lists column names involved in an operation.
	ColumnsKey = "data.columns"

	// CustomersKey counts distinct customer identifiers.
	CustomersKey = "data.customers"

	// PathKey records a file read or written.
	PathKey = "io.path"
)

// Performance and evaluation metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// AccuracyKey records model accuracy for evaluation operations.
	AccuracyKey = "metrics.accuracy"

	// PrecisionKey records precision of the positive class.
	PrecisionKey = "metrics.precision"

	// RecallKey records recall of the positive class.
	RecallKey = "metrics.recall"

	// F1Key records the F1 score of the positive class.
	F1Key = "metrics.f1"

	// LossKey records loss value during training or evaluation.
	LossKey = "metrics.loss"

	// IterationKey records the number of optimizer iterations.
	IterationKey = "training.iteration"

	// FoldKey identifies a cross-validation fold.
	FoldKey = "cv.fold"
)

// Error and Warning Context
const (
	// ErrorKey carries the error value itself.
	ErrorKey = "error"

	// StacktraceKey contains stack trace information for debugging.
	StacktraceKey = "error.stacktrace"

	// WarningKey carries a structured warning.
	WarningKey = "warning"
)

// Hyperparameters and Configuration
const (
	// HyperParamsKey contains model hyperparameters as a structured object.
	HyperParamsKey = "model.hyperparams"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"

	// TestSizeKey records the holdout fraction.
	TestSizeKey = "config.test_size"
)

// Standard attribute values.
const (
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"
	OperationScore        = "score"

	PhaseTraining      = "training"
	PhaseValidation    = "validation"
	PhaseTesting       = "testing"
	PhasePreprocessing = "preprocessing"
	PhaseReporting     = "reporting"
)
