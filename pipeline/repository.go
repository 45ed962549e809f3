// Package pipeline chains feature derivation, encoding, splitting, scaling,
// training and evaluation into a single churn modelling run.
package pipeline

import (
	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/churnkit/core/model"
	"github.com/YuminosukeSato/churnkit/importance"
	"github.com/YuminosukeSato/churnkit/metrics"
	"github.com/YuminosukeSato/churnkit/model_selection"
)

// Repository is the set of stages a churn feature engineering pipeline
// provides. FeatureEngineering is the implementation shipped here.
type Repository interface {
	// CreateNewFeatures derives membership days, purchase intervals and
	// average purchase amount.
	CreateNewFeatures(df dataframe.DataFrame) (dataframe.DataFrame, error)
	// SavePreprocessedData writes df as CSV and returns the path written.
	SavePreprocessedData(df dataframe.DataFrame) (string, error)
	EncodeCategoricalFeatures(df dataframe.DataFrame) (dataframe.DataFrame, error)
	SplitTrainTestData(df dataframe.DataFrame) (*model_selection.Split, error)
	// ScaleFeatures fits on the training matrix only.
	ScaleFeatures(XTrain, XTest mat.Matrix) (mat.Matrix, mat.Matrix, error)
	TrainModel(XTrain, yTrain mat.Matrix) (model.Classifier, error)
	// EvaluateModel returns the report and the predictions on XTest.
	EvaluateModel(clf model.Classifier, XTest, yTest mat.Matrix) (*metrics.ClassificationReport, mat.Matrix, error)
	CompareResult(yTest, yPred mat.Matrix) (dataframe.DataFrame, error)
	CrossValidateModel(estimator model.Cloner, X, y mat.Matrix, cv int) ([]float64, error)
	// PlotFeatureImportance returns nil without error when clf has no
	// coefficients.
	PlotFeatureImportance(clf model.Classifier, featureNames []string) ([]importance.FeatureImportance, error)
}

var _ Repository = (*FeatureEngineering)(nil)
