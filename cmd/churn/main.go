// Command churn runs the churn feature engineering pipeline over a purchase
// CSV and prints the evaluation report.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/YuminosukeSato/churnkit/config"
	"github.com/YuminosukeSato/churnkit/dataset"
	"github.com/YuminosukeSato/churnkit/model_selection"
	"github.com/YuminosukeSato/churnkit/pipeline"
	"github.com/YuminosukeSato/churnkit/pkg/errors"
	"github.com/YuminosukeSato/churnkit/pkg/log"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "churn: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	v := viper.New()
	fs := pflag.NewFlagSet("churn", pflag.ContinueOnError)
	if err := config.BindFlags(v, fs); err != nil {
		return err
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	// 位置引数は --input の代わりに使える
	if cfg.InputPath == "" && fs.NArg() > 0 {
		cfg.InputPath = fs.Arg(0)
	}
	if cfg.InputPath == "" {
		return errors.NewValidationError("input_path", "no input CSV given (use --input or "+config.EnvInputPath+")", "")
	}

	provider := log.NewZerologProvider(cfg.Level())
	logger := provider.GetLoggerWithName("churn")
	log.InstallWarningHandler(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	schema := dataset.DefaultSchema()
	df, err := dataset.ReadCSVFile(cfg.InputPath, schema)
	if err != nil {
		return err
	}
	logger.Info("Loaded input", log.PathKey, cfg.InputPath, log.SamplesKey, df.Nrow())

	fe := pipeline.NewFeatureEngineering(
		pipeline.WithSchema(schema),
		pipeline.WithConfig(cfg),
		pipeline.WithLogger(logger),
	)
	res, err := fe.Run(ctx, df)
	if err != nil {
		logger.Error("Pipeline failed", err)
		return err
	}

	fmt.Println(res.Report)
	fmt.Println(res.Comparison)
	fmt.Printf("Cross-validation accuracy: %v (mean %.4f)\n", res.CVScores, model_selection.MeanScore(res.CVScores))
	for _, fi := range res.Importance {
		fmt.Printf("%-24s %+.4f\n", fi.Feature, fi.Coefficient)
	}
	if res.PlotPath != "" {
		fmt.Printf("Feature importance chart: %s\n", res.PlotPath)
	}
	return nil
}
