package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/r-uben/mistral-ocr-cli/internal/adapters/mistral"
	"github.com/r-uben/mistral-ocr-cli/internal/config"
	"github.com/r-uben/mistral-ocr-cli/internal/core/domain"
	"github.com/r-uben/mistral-ocr-cli/internal/service"
)

const version = "1.0.0"

func main() {
	outputPath := flag.String("output-path", "", "Output directory (default: <input-dir>/mistral_ocr_output/)")
	model := flag.String("model", "", "Mistral OCR model to use (default: mistral-ocr-latest)")
	envFile := flag.String("env-file", "", "Path to a .env file containing configuration")
	includeImages := flag.Bool("include-images", true, "Include extracted images in output")
	addTimestamp := flag.Bool("add-timestamp", false, "Add a timestamp to the output folder name")
	reprocess := flag.Bool("reprocess", false, "Reprocess files already recorded in metadata.json")
	verbose := flag.Bool("verbose", false, "Enable verbose output")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("mistral-ocr %s\n", version)
		return
	}

	if flag.NArg() != 1 {
		fmt.Println("Usage: mistral-ocr [flags] <file-or-directory>")
		fmt.Println("\nExamples:")
		fmt.Println("  mistral-ocr document.pdf")
		fmt.Println("  mistral-ocr ./documents -output-path ./results")
		fmt.Println("  mistral-ocr doc.pdf -env-file .env.production")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}
	inputPath := flag.Arg(0)

	// Setup logger
	logger := log.New(os.Stdout, "", log.LstdFlags)

	// Load .env file if it exists
	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			logger.Fatalf("Failed to load env file %s: %v", *envFile, err)
		}
	} else if err := godotenv.Load(); err != nil {
		// It's okay if .env doesn't exist, environment variables might be set manually
		logger.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Configuration error: %v", err)
	}
	if *model != "" {
		cfg.Model = *model
	}
	cfg.IncludeImages = *includeImages
	cfg.Verbose = *verbose

	client, err := mistral.NewClient(cfg.APIKey, cfg.Model, cfg.IncludeImages)
	if err != nil {
		logger.Fatalf("Failed to initialize OCR client: %v", err)
	}

	pipeline := service.NewPipeline(client, cfg, logger)

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Println("\nReceived interrupt signal, cancelling...")
		cancel()
	}()

	opts := service.Options{
		OutputPath:   *outputPath,
		Reprocess:    *reprocess,
		AddTimestamp: *addTimestamp,
	}
	summary, err := pipeline.Run(ctx, inputPath, opts)
	if err != nil {
		if errors.Is(err, domain.ErrInterrupted) {
			logger.Println("Processing interrupted by user")
			os.Exit(130)
		}
		logger.Printf("Run failed: %v", err)
		os.Exit(1)
	}

	// Print summary
	fmt.Println("\n=== Run Summary ===")
	fmt.Printf("Run ID:     %s\n", summary.RunID)
	fmt.Printf("Input:      %s\n", summary.InputPath)
	if summary.OutputDir != "" {
		fmt.Printf("Output:     %s\n", summary.OutputDir)
	}
	fmt.Printf("Processed:  %d/%d\n", summary.SuccessCount, summary.AttemptedCount)
	fmt.Printf("Skipped:    %d\n", summary.SkippedCount)
	if len(summary.Errors) > 0 {
		fmt.Printf("Failed:     %d\n", len(summary.Errors))
		for _, e := range summary.Errors {
			fmt.Printf("  - %s: %s\n", e.File, e.Error)
		}
	}
}
