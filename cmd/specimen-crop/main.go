package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/morphosource/specimen-crop/internal/conf"
	"github.com/morphosource/specimen-crop/internal/detector"
	"github.com/morphosource/specimen-crop/internal/logging"
	"github.com/morphosource/specimen-crop/internal/pipeline"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:   "specimen-crop",
		Short: "Locate and crop individual specimens from group photographs",
		Long: "specimen-crop reconciles zero-shot detector boxes with recorded\n" +
			"measurement points to cut one crop per specimen out of each group\n" +
			"photograph, and writes a record table accounting for every specimen.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to the configuration file")

	run := &cobra.Command{
		Use:   "run",
		Short: "Process every image named by the measurement table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd.Context(), configFile)
		},
	}

	version := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(*cobra.Command, []string) {
			fmt.Printf("specimen-crop %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
		},
	}

	root.AddCommand(run, version)
	return root
}

func runPipeline(ctx context.Context, configFile string) error {
	settings, err := conf.Load(configFile)
	if err != nil {
		return err
	}

	logger, err := logging.Setup(settings.LogLevel)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	det := detector.NewHTTPDetector(
		settings.Detector.URL,
		settings.Detector.BoxThreshold,
		settings.Detector.TextThreshold,
		settings.Detector.Timeout,
	)

	p, err := pipeline.New(settings, det, logger)
	if err != nil {
		return err
	}
	summary, err := p.Run(ctx)
	if err != nil {
		return err
	}
	if summary.OK < summary.Total {
		logger.Warn("run finished with unresolved specimens",
			"resolved", summary.OK,
			"total", summary.Total,
		)
	}
	return nil
}
