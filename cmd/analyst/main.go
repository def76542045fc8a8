// cmd/analyst/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"financial-analyst/internal/common/config"
	"financial-analyst/internal/common/logger"
	"financial-analyst/internal/models"

	fda "financial-analyst/internal/workers/analysis/financial-data-analyst"
)

func main() {
	symbols := flag.String("symbols", "AAPL,MSFT", "Comma-separated ticker symbols")
	period := flag.String("period", "1y", "Price history period (e.g. 1mo, 6mo, 1y, 5y)")
	analysisType := flag.String("type", "comprehensive", "Analysis type passed to the model")
	metrics := flag.String("metrics", strings.Join(fda.DefaultMetrics, ","), "Comma-separated metrics to extract")
	input := flag.String("input", "", "Run request as JSON, or @file to read it from a file; overrides the request flags")
	model := flag.String("model", "", "Model override, e.g. gpt-4o, gemini-2.0-flash, claude-3-5-sonnet-latest")
	temperature := flag.Float64("temperature", -1, "Temperature override (0-2)")
	configPath := flag.String("config", "", "Path to a config file; defaults to configs/config.yaml discovery")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, "console")
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	handler, err := fda.NewHandler(fda.HandlerOptions{
		AppConfig: cfg,
		Logger:    log,
	})
	if err != nil {
		zapLog.Fatal("failed to create analyst", zap.Error(err))
	}

	runInput := fda.RunInput{
		Inputs: fda.InputSchema{
			ToolName: fda.ToolName,
			ToolInputData: models.AnalysisRequest{
				TickerSymbols:   splitList(*symbols),
				TimePeriod:      *period,
				AnalysisType:    *analysisType,
				SpecificMetrics: splitList(*metrics),
			},
		},
	}
	if *input != "" {
		raw, err := readInput(*input)
		if err != nil {
			zapLog.Fatal("failed to read input", zap.Error(err))
		}
		runInput.Inputs = raw
	}

	override := &fda.LLMConfig{Model: *model}
	if *temperature >= 0 {
		override.Temperature = temperature
	}
	runInput.LLMConfig = override

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := handler.Service().Run(ctx, runInput)
	if err != nil {
		zapLog.Fatal("analysis failed", zap.Error(err))
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		zapLog.Fatal("failed to render result", zap.Error(err))
	}
	fmt.Println(string(out))
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func readInput(arg string) ([]byte, error) {
	if strings.HasPrefix(arg, "@") {
		return os.ReadFile(strings.TrimPrefix(arg, "@"))
	}
	return []byte(arg), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
