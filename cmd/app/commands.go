package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/antonbeski0/Predflux/internal/di"
	"github.com/antonbeski0/Predflux/internal/domain/models"
	"github.com/antonbeski0/Predflux/internal/services/features"
	"github.com/antonbeski0/Predflux/pkg/config"
)

var (
	configPath     string
	csvPaths       []string
	sentimentQuery []string
	lookback       int
	horizon        int
	resetWeights   bool
	slot           string

	rootCmd = &cobra.Command{
		Use:           "predflux",
		Short:         "Recurrent-network price forecasting service",
		SilenceUsage: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, request consumer and live collector",
		RunE:  runServe,
	}

	forecastCmd = &cobra.Command{
		Use:   "forecast",
		Short: "Train the single-asset model on a CSV series and print the forecast",
		RunE:  runForecast,
	}

	forecastMultiCmd = &cobra.Command{
		Use:   "forecast-multi",
		Short: "Train the multi-asset model on several CSV series and print the forecast",
		RunE:  runForecastMulti,
	}

	modelCmd = &cobra.Command{
		Use:   "model",
		Short: "Inspect persisted models",
	}

	modelShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the architecture and training state of a stored model",
		RunE:  runModelShow,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "config file path")

	forecastCmd.Flags().StringSliceVar(&csvPaths, "csv", nil, "CSV file with one numeric series")
	forecastCmd.Flags().IntVar(&lookback, "lookback", 0, "window length (0 uses the configured value)")
	forecastCmd.Flags().IntVar(&horizon, "horizon", 0, "steps to forecast (0 uses the configured value)")
	forecastCmd.Flags().BoolVar(&resetWeights, "reset", false, "train from fresh weights")
	_ = forecastCmd.MarkFlagRequired("csv")

	forecastMultiCmd.Flags().StringSliceVar(&csvPaths, "csv", nil, "CSV file per asset; the file name is the asset name")
	forecastMultiCmd.Flags().StringSliceVar(&sentimentQuery, "sentiment-query", nil, "news query per asset, in --csv order")
	forecastMultiCmd.Flags().IntVar(&lookback, "lookback", 0, "window length (0 uses the configured value)")
	forecastMultiCmd.Flags().IntVar(&horizon, "horizon", 0, "steps to forecast (0 uses the configured value)")
	forecastMultiCmd.Flags().BoolVar(&resetWeights, "reset", false, "train from fresh weights")
	_ = forecastMultiCmd.MarkFlagRequired("csv")

	modelShowCmd.Flags().StringVar(&slot, "slot", models.SingleAssetModel, "model slot name")

	modelCmd.AddCommand(modelShowCmd)
	rootCmd.AddCommand(serveCmd, forecastCmd, forecastMultiCmd, modelCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("app initialization failed: %w", err)
	}
	defer cleanup()
	return app.Run(cmd.Context())
}

func runForecast(cmd *cobra.Command, _ []string) error {
	if len(csvPaths) != 1 {
		return fmt.Errorf("forecast takes exactly one --csv")
	}
	values, err := readCSV(csvPaths[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	runner, cleanup, err := di.InitializeRunner(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := runner.RunSingle(cmd.Context(), models.SingleForecastRequest{
		Values:       values,
		Lookback:     orDefault(lookback, cfg.Forecast.Single.Lookback),
		Horizon:      orDefault(horizon, cfg.Forecast.Single.Horizon),
		ResetWeights: resetWeights,
	})
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res)
}

func runForecastMulti(cmd *cobra.Command, _ []string) error {
	if len(sentimentQuery) > 0 && len(sentimentQuery) != len(csvPaths) {
		return fmt.Errorf("--sentiment-query must be given once per --csv")
	}
	assets := make([]models.AssetInput, len(csvPaths))
	for i, p := range csvPaths {
		values, err := readCSV(p)
		if err != nil {
			return err
		}
		assets[i] = models.AssetInput{Name: assetName(p), Values: values}
		if len(sentimentQuery) > 0 {
			assets[i].SentimentQuery = sentimentQuery[i]
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	runner, cleanup, err := di.InitializeRunner(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := runner.RunMulti(cmd.Context(), models.MultiForecastRequest{
		Assets:       assets,
		Lookback:     orDefault(lookback, cfg.Forecast.Multi.Lookback),
		Horizon:      orDefault(horizon, cfg.Forecast.Multi.Horizon),
		ResetWeights: resetWeights,
	})
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res)
}

func runModelShow(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, cleanup, err := di.InitializeModelStore(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	a, err := store.MustLoad(cmd.Context(), slot)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), struct {
		Name         string              `json:"name"`
		Architecture models.Architecture `json:"architecture"`
		Epochs       int                 `json:"epochs"`
		Tensors      int                 `json:"tensors"`
		SavedAt      time.Time           `json:"saved_at"`
	}{a.Name, a.Architecture, a.Epochs, len(a.Weights), a.SavedAt})
}

func readCSV(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	values, err := features.ReadValues(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return values, nil
}

func assetName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
