package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/joshuapare/artifactkit/internal/config"
)

var (
	// Global flags
	configPath  string
	imagePath   string
	outputPath  string
	folderName  string
	vendorList  string
	logLevel    string
	jsonLogs    bool
	gzipOut     bool
	workers     int
	metricsFile string
	controlSet  uint32
	snakeCase   bool
	quiet       bool
	jsonOut     bool
)

var rootCmd = &cobra.Command{
	Use:   "artifactctl",
	Short: "Extract forensic artifacts from offline Windows images",
	Long: `artifactctl reads the registry hives and event logs of a mounted Windows
image and writes USB device history, account usage and system information
as JSON lines, one file per artifact.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	defaults := config.Default()
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	pf.StringVarP(&imagePath, "image", "i", "", "Root of the mounted Windows image")
	pf.StringVarP(&outputPath, "output", "o", defaults.OutputPath, "Directory the result folder is created in")
	pf.StringVarP(&folderName, "folder", "f", defaults.FolderName, "Name of the result folder")
	pf.StringVarP(&vendorList, "vidpid", "v", "", "USB vendor list (JSON) used to name devices")
	pf.StringVar(&logLevel, "log-level", defaults.LogLevel, "Log level (debug, info, warn, error)")
	pf.BoolVar(&jsonLogs, "json-logs", false, "Write logs as JSON")
	pf.BoolVar(&gzipOut, "gzip", false, "Compress artifact files with gzip")
	pf.IntVar(&workers, "workers", defaults.Workers, "Extractors run in parallel")
	pf.StringVar(&metricsFile, "metrics-file", "", "Write extraction metrics in Prometheus text format to this file")
	pf.Uint32Var(&controlSet, "control-set", 0, "Force ControlSet00N instead of Select\\Current")
	pf.BoolVar(&snakeCase, "snake-case", false, "Convert event data keys to snake_case")
	pf.BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	pf.BoolVar(&jsonOut, "json", false, "Output in JSON format")
}

func execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError("%v\n", err)
		stop()
		os.Exit(1)
	}
}

// loadConfig reads the configuration file, if any, and applies every flag
// given on the command line over it.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(afero.NewOsFs(), configPath)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	set("image", func() { cfg.ImagePath = imagePath })
	set("output", func() { cfg.OutputPath = outputPath })
	set("folder", func() { cfg.FolderName = folderName })
	set("vidpid", func() { cfg.VendorList = vendorList })
	set("log-level", func() { cfg.LogLevel = logLevel })
	set("json-logs", func() { cfg.JSONLogs = jsonLogs })
	set("gzip", func() { cfg.Gzip = gzipOut })
	set("workers", func() { cfg.Workers = workers })
	set("metrics-file", func() { cfg.MetricsFile = metricsFile })
	set("control-set", func() { cfg.ControlSet = controlSet })
	set("snake-case", func() { cfg.SnakeCase = snakeCase })
	return cfg, nil
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
