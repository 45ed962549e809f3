// Package churnkit builds churn prediction features from a customer purchase
// table and trains a baseline classifier on them.
//
// The work is split into small packages that the pipeline package chains
// together:
//
//   - dataset: CSV loading and saving with gota, column schema
//   - features: membership days, purchase intervals and averages per customer
//   - preprocessing: one-hot encoding and standard scaling
//   - model_selection: seeded train/test split, k-fold and cross validation
//   - linear_model: class-weighted logistic regression (L-BFGS)
//   - metrics: accuracy, precision, recall, F1 and the confusion matrix
//   - importance: coefficient ranking and the bar chart
//   - config: viper/pflag settings, PREPROCESSED_DATA_PATH and friends
//
// # Quick Start
//
//	df, err := dataset.ReadCSVFile("purchases.csv", dataset.DefaultSchema())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fe := pipeline.NewFeatureEngineering()
//	res, err := fe.Run(context.Background(), df)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Report)
//
// # Errors
//
// Errors are built with github.com/cockroachdb/errors and carry stack traces.
// Warnings such as ConvergenceWarning or UndefinedMetricWarning never abort a
// run; they go through errors.Warn, which log.InstallWarningHandler routes to
// zerolog.
package churnkit
