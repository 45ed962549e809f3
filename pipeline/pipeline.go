package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/spf13/viper"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/churnkit/config"
	"github.com/YuminosukeSato/churnkit/core/model"
	"github.com/YuminosukeSato/churnkit/dataset"
	"github.com/YuminosukeSato/churnkit/features"
	"github.com/YuminosukeSato/churnkit/importance"
	"github.com/YuminosukeSato/churnkit/linear_model"
	"github.com/YuminosukeSato/churnkit/metrics"
	"github.com/YuminosukeSato/churnkit/model_selection"
	"github.com/YuminosukeSato/churnkit/pkg/errors"
	"github.com/YuminosukeSato/churnkit/pkg/log"
	"github.com/YuminosukeSato/churnkit/preprocessing"
)

// Stage names, used in logs and error messages.
const (
	StageCreateFeatures = "create_new_features"
	StageSave           = "save_preprocessed_data"
	StageEncode         = "encode_categorical_features"
	StageSplit          = "split_train_test_data"
	StageScale          = "scale_features"
	StageTrain          = "train_model"
	StageEvaluate       = "evaluate_model"
	StageCompare        = "compare_result"
	StageCrossValidate  = "cross_validate_model"
	StageImportance     = "plot_feature_importance"
)

// Column names of the comparison table.
const (
	ActualColumn    = "Actual"
	PredictedColumn = "Predicted"
)

// FeatureEngineering implements Repository for one input schema.
type FeatureEngineering struct {
	schema    dataset.Schema
	cfg       config.Config
	cfgSet    bool
	logger    log.Logger
	modelOpts []linear_model.LogisticRegressionOption
}

// Option configures a FeatureEngineering.
type Option func(*FeatureEngineering)

// WithSchema sets the column names of the input table.
func WithSchema(schema dataset.Schema) Option {
	return func(fe *FeatureEngineering) {
		fe.schema = schema
	}
}

// WithConfig sets the run configuration. Without it the configuration is
// loaded from the environment.
func WithConfig(cfg config.Config) Option {
	return func(fe *FeatureEngineering) {
		fe.cfg = cfg
		fe.cfgSet = true
	}
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(fe *FeatureEngineering) {
		fe.logger = logger
	}
}

// WithModelOptions passes extra options to the logistic regression built by
// TrainModel. They are applied after the pipeline defaults.
func WithModelOptions(opts ...linear_model.LogisticRegressionOption) Option {
	return func(fe *FeatureEngineering) {
		fe.modelOpts = append(fe.modelOpts, opts...)
	}
}

// NewFeatureEngineering creates a pipeline with the default schema.
func NewFeatureEngineering(options ...Option) *FeatureEngineering {
	fe := &FeatureEngineering{
		schema: dataset.DefaultSchema(),
		cfg:    config.Default(),
		logger: log.Nop(),
	}
	for _, opt := range options {
		opt(fe)
	}

	if !fe.cfgSet {
		cfg, err := config.Load(viper.New())
		if err != nil {
			fe.logger.Warn("Invalid environment configuration, using defaults", log.ErrorKey, err)
		} else {
			fe.cfg = cfg
		}
	}
	return fe
}

// Config returns the configuration in use.
func (fe *FeatureEngineering) Config() config.Config {
	return fe.cfg
}

// Schema returns the input schema.
func (fe *FeatureEngineering) Schema() dataset.Schema {
	return fe.schema
}

// CreateNewFeatures runs the feature deriver over the raw purchase table.
func (fe *FeatureEngineering) CreateNewFeatures(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	d := features.NewDeriver(features.WithSchema(fe.schema), features.WithLogger(fe.logger))
	out, err := d.Transform(df)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	fe.logger.Info("Derived features",
		log.SamplesKey, out.Nrow(),
		log.ColumnsKey, []string{
			fe.schema.MembershipDays, fe.schema.PurchaseInterval,
			fe.schema.AvgPurchaseInterval, fe.schema.AvgPurchaseAmount,
		})
	return out, nil
}

// SavePreprocessedData writes df to the configured output path, which
// PREPROCESSED_DATA_PATH overrides.
func (fe *FeatureEngineering) SavePreprocessedData(df dataframe.DataFrame) (string, error) {
	path := fe.cfg.OutputPath
	if path == "" {
		path = config.DefaultOutputPath
	}
	if err := dataset.WriteCSVFile(path, df); err != nil {
		return "", err
	}
	fe.logger.Info("Saved preprocessed data", log.PathKey, path, log.SamplesKey, df.Nrow())
	return path, nil
}

// EncodeCategoricalFeatures one-hot encodes every string column except the
// identifier, the label and the raw dates.
func (fe *FeatureEngineering) EncodeCategoricalFeatures(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	enc := preprocessing.NewOneHotEncoder(
		preprocessing.WithReserved(fe.schema.Reserved()...),
		preprocessing.WithEncoderLogger(fe.logger),
	)
	return enc.FitTransform(df)
}

// SplitTrainTestData drops the identifier, label, company name and raw date
// columns and partitions the rows.
func (fe *FeatureEngineering) SplitTrainTestData(df dataframe.DataFrame) (*model_selection.Split, error) {
	split, err := model_selection.TrainTestSplit(df, fe.schema.Churned,
		model_selection.WithTestSize(fe.cfg.TestSize),
		model_selection.WithRandomState(fe.cfg.RandomState),
		model_selection.WithDropColumns(fe.schema.Excluded()...),
	)
	if err != nil {
		return nil, err
	}
	trainRows, nFeatures := split.XTrain.Dims()
	testRows, _ := split.XTest.Dims()
	fe.logger.Info("Split data",
		"train_samples", trainRows,
		"test_samples", testRows,
		log.FeaturesKey, nFeatures,
		log.TestSizeKey, fe.cfg.TestSize,
		log.RandomSeedKey, fe.cfg.RandomState)
	return split, nil
}

// ScaleFeatures standardizes both matrices with statistics of XTrain.
func (fe *FeatureEngineering) ScaleFeatures(XTrain, XTest mat.Matrix) (mat.Matrix, mat.Matrix, error) {
	scaler := preprocessing.NewStandardScalerDefault()
	scaler.SetLogger(fe.logger)

	trainScaled, err := scaler.FitTransform(XTrain)
	if err != nil {
		return nil, nil, err
	}
	testScaled, err := scaler.Transform(XTest)
	if err != nil {
		return nil, nil, err
	}
	fe.logger.Debug("Scaled features", log.OperationKey, log.OperationFitTransform, log.ModelNameKey, "StandardScaler")
	return trainScaled, testScaled, nil
}

func (fe *FeatureEngineering) newModel() *linear_model.LogisticRegression {
	opts := []linear_model.LogisticRegressionOption{
		linear_model.WithLRClassWeight(linear_model.ClassWeightBalanced),
		linear_model.WithLRRandomState(fe.cfg.RandomState),
		linear_model.WithLRLogger(fe.logger),
	}
	return linear_model.NewLogisticRegression(append(opts, fe.modelOpts...)...)
}

// TrainModel fits a class-balanced logistic regression.
func (fe *FeatureEngineering) TrainModel(XTrain, yTrain mat.Matrix) (model.Classifier, error) {
	lr := fe.newModel()
	if err := lr.Fit(XTrain, yTrain); err != nil {
		return nil, err
	}
	fe.logger.Info("Trained model", log.ModelNameKey, "LogisticRegression", log.HyperParamsKey, lr.GetParams())
	return lr, nil
}

// EvaluateModel predicts XTest and scores the predictions against yTest.
func (fe *FeatureEngineering) EvaluateModel(clf model.Classifier, XTest, yTest mat.Matrix) (*metrics.ClassificationReport, mat.Matrix, error) {
	pred, err := clf.Predict(XTest)
	if err != nil {
		return nil, nil, err
	}
	report, err := metrics.Evaluate(yTest, pred)
	if err != nil {
		return nil, nil, err
	}
	fe.logger.Info("Evaluated model",
		log.OperationKey, log.OperationPredict,
		log.AccuracyKey, report.Accuracy,
		log.PrecisionKey, report.Precision,
		log.RecallKey, report.Recall,
		log.F1Key, report.F1,
		"confusion_matrix", report.ConfusionMatrix)
	return report, pred, nil
}

// CompareResult pairs actual and predicted labels row by row.
func (fe *FeatureEngineering) CompareResult(yTest, yPred mat.Matrix) (dataframe.DataFrame, error) {
	n, _ := yTest.Dims()
	m, _ := yPred.Dims()
	if n != m {
		return dataframe.DataFrame{}, errors.NewDimensionError("CompareResult", n, m, 0)
	}
	actual := make([]int, n)
	predicted := make([]int, n)
	for i := 0; i < n; i++ {
		actual[i] = int(yTest.At(i, 0))
		predicted[i] = int(yPred.At(i, 0))
	}
	return dataframe.New(
		series.New(actual, series.Int, ActualColumn),
		series.New(predicted, series.Int, PredictedColumn),
	), nil
}

// CrossValidateModel returns the per-fold accuracy of estimator over cv
// stratified folds.
func (fe *FeatureEngineering) CrossValidateModel(estimator model.Cloner, X, y mat.Matrix, cv int) ([]float64, error) {
	if cv <= 0 {
		cv = config.DefaultCVFolds
	}
	scores, err := model_selection.CrossValScoreK(estimator, X, y, cv)
	if err != nil {
		return nil, err
	}
	for i, score := range scores {
		fe.logger.Debug("Fold scored", log.FoldKey, i, log.AccuracyKey, score)
	}
	fe.logger.Info("Cross validation finished",
		log.OperationKey, log.OperationScore,
		"folds", cv,
		"scores", scores,
		log.AccuracyKey, model_selection.MeanScore(scores))
	return scores, nil
}

// PlotFeatureImportance ranks the coefficients of clf and renders the bar
// chart to the configured plot path. An empty plot path skips rendering.
func (fe *FeatureEngineering) PlotFeatureImportance(clf model.Classifier, featureNames []string) ([]importance.FeatureImportance, error) {
	cp, ok := clf.(model.CoefficientProvider)
	if !ok {
		fe.logger.Info("Model does not expose coefficients, skipping feature importance")
		return nil, nil
	}

	ranking, err := importance.Rank(cp.Coef(), featureNames)
	if err != nil {
		return nil, err
	}
	if fe.cfg.PlotPath == "" {
		return ranking, nil
	}
	if err := importance.PlotBar(ranking, fe.cfg.PlotPath); err != nil {
		return nil, err
	}
	fe.logger.Info("Saved feature importance plot", log.PathKey, fe.cfg.PlotPath, log.FeaturesKey, len(ranking))
	return ranking, nil
}

// Result collects everything a Run produces.
type Result struct {
	Features     dataframe.DataFrame
	SnapshotPath string
	Encoded      dataframe.DataFrame
	Split        *model_selection.Split
	// XTrain and XTest are the scaled feature matrices.
	XTrain     mat.Matrix
	XTest      mat.Matrix
	Model      model.Classifier
	Report     *metrics.ClassificationReport
	Predicted  mat.Matrix
	Comparison dataframe.DataFrame
	CVScores   []float64
	Importance []importance.FeatureImportance
	PlotPath   string
}

// Run executes every stage in order. The first failing stage stops the run
// and its name is part of the returned error. Cross validation uses the
// scaled training data.
func (fe *FeatureEngineering) Run(ctx context.Context, df dataframe.DataFrame) (*Result, error) {
	start := time.Now()
	res := &Result{}
	fe.logger.Info("Pipeline started", log.SamplesKey, df.Nrow(), log.FeaturesKey, df.Ncol())

	stages := []struct {
		name  string
		phase string
		fn    func() error
	}{
		{StageCreateFeatures, log.PhasePreprocessing, func() (err error) {
			res.Features, err = fe.CreateNewFeatures(df)
			return err
		}},
		{StageSave, log.PhasePreprocessing, func() (err error) {
			res.SnapshotPath, err = fe.SavePreprocessedData(res.Features)
			return err
		}},
		{StageEncode, log.PhasePreprocessing, func() (err error) {
			res.Encoded, err = fe.EncodeCategoricalFeatures(res.Features)
			return err
		}},
		{StageSplit, log.PhasePreprocessing, func() (err error) {
			res.Split, err = fe.SplitTrainTestData(res.Encoded)
			return err
		}},
		{StageScale, log.PhasePreprocessing, func() (err error) {
			res.XTrain, res.XTest, err = fe.ScaleFeatures(res.Split.XTrain, res.Split.XTest)
			return err
		}},
		{StageTrain, log.PhaseTraining, func() (err error) {
			res.Model, err = fe.TrainModel(res.XTrain, res.Split.YTrain)
			return err
		}},
		{StageEvaluate, log.PhaseTesting, func() (err error) {
			res.Report, res.Predicted, err = fe.EvaluateModel(res.Model, res.XTest, res.Split.YTest)
			return err
		}},
		{StageCompare, log.PhaseTesting, func() (err error) {
			res.Comparison, err = fe.CompareResult(res.Split.YTest, res.Predicted)
			return err
		}},
		{StageCrossValidate, log.PhaseValidation, func() (err error) {
			cloner, ok := res.Model.(model.Cloner)
			if !ok {
				return nil
			}
			res.CVScores, err = fe.CrossValidateModel(cloner, res.XTrain, res.Split.YTrain, fe.cfg.CVFolds)
			return err
		}},
		{StageImportance, log.PhaseReporting, func() (err error) {
			res.Importance, err = fe.PlotFeatureImportance(res.Model, res.Split.FeatureNames)
			if err == nil && res.Importance != nil {
				res.PlotPath = fe.cfg.PlotPath
			}
			return err
		}},
	}

	for _, s := range stages {
		if err := fe.runStage(ctx, s.name, s.phase, s.fn); err != nil {
			return nil, err
		}
	}

	fe.logger.Info("Pipeline finished", log.DurationMsKey, time.Since(start).Milliseconds())
	return res, nil
}

func (fe *FeatureEngineering) runStage(ctx context.Context, name, phase string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrapf(err, "stage %s", name)
	}

	start := time.Now()
	if err := errors.SafeExecute(name, fn); err != nil {
		fe.logger.Error("Stage failed", err, log.StageKey, name, log.PhaseKey, phase)
		return errors.Wrapf(err, "stage %s", name)
	}
	fe.logger.Debug(fmt.Sprintf("Stage %s finished", name),
		log.StageKey, name,
		log.PhaseKey, phase,
		log.DurationMsKey, time.Since(start).Milliseconds())
	return nil
}
