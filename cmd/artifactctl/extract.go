package main

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/joshuapare/artifactkit/internal/artifacts"
	"github.com/joshuapare/artifactkit/internal/image"
	"github.com/joshuapare/artifactkit/internal/logging"
	"github.com/joshuapare/artifactkit/internal/metrics"
	"github.com/joshuapare/artifactkit/internal/output"
	"github.com/joshuapare/artifactkit/internal/vendors"
)

func init() {
	rootCmd.AddCommand(
		newExtractCmd("all", "Extract every artifact from hives and event logs", nil, artifacts.ModeAll, false),
		newExtractCmd("registry", "Extract every registry artifact", nil, artifacts.ModeRegistry, false),
		newExtractCmd("eventlogs", "Extract every event log artifact", nil, artifacts.ModeEventLogs, false),
		newExtractCmd("account-usage", "Extract logons, authentication, RDP and service events and user profiles",
			[]artifacts.Category{artifacts.AccountUsage}, artifacts.ModeAll, true),
		newExtractCmd("external-devices", "Extract USB, HID, SCSI and volume history",
			[]artifacts.Category{artifacts.ExternalDevices}, artifacts.ModeAll, true),
		newExtractCmd("system-info", "Extract computer name, OS versions and shutdown time",
			[]artifacts.Category{artifacts.SystemInfo}, artifacts.ModeAll, true),
	)
}

func newExtractCmd(use, short string, cats []artifacts.Category, mode artifacts.Mode, withMode bool) *cobra.Command {
	var modeFlag string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := mode
			if withMode {
				var err error
				if m, err = artifacts.ParseMode(modeFlag); err != nil {
					return err
				}
			}
			return runExtract(cmd, cats, m)
		},
	}
	if withMode {
		cmd.Long = short + `.

Example:
  artifactctl ` + use + ` -i /mnt/win -v vidpid.json
  artifactctl ` + use + ` -i /mnt/win -m registry-only`
		cmd.Flags().StringVarP(&modeFlag, "mode", "m", "all", "Sources to read: all, registry-only or eventlog-only")
	}
	return cmd
}

// needsVendors tells whether a run reads device artifacts, which name
// vendors and products from the vendor list.
func needsVendors(cats []artifacts.Category, mode artifacts.Mode) bool {
	if mode == artifacts.ModeEventLogs {
		return false
	}
	return len(cats) == 0 || slices.Contains(cats, artifacts.ExternalDevices)
}

func runExtract(cmd *cobra.Command, cats []artifacts.Category, mode artifacts.Mode) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(needsVendors(cats, mode)); err != nil {
		return err
	}
	log := logging.New(os.Stderr, cfg.LogLevel, cfg.JSONLogs)
	fs := afero.NewOsFs()

	img, err := image.New(fs, cfg.ImagePath)
	if err != nil {
		return err
	}
	var vl vendors.List
	if needsVendors(cats, mode) {
		if vl, err = vendors.Load(fs, cfg.VendorList); err != nil {
			return err
		}
		log.Debug("loaded vendor list", "path", cfg.VendorList, "vendors", len(vl))
	}
	sink, err := output.New(fs, cfg.OutputDir(), output.Options{Gzip: cfg.Gzip})
	if err != nil {
		return err
	}
	m := metrics.New()

	start := time.Now()
	r := artifacts.NewRunner(img, sink, m,
		&artifacts.Env{Vendors: vl, Snake: cfg.SnakeCase, Log: log},
		artifacts.Options{Categories: cats, Mode: mode, Workers: cfg.Workers, ControlSet: cfg.ControlSet},
	)
	sum, runErr := r.Run(cmd.Context())
	if err := sink.Close(); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if cfg.MetricsFile != "" {
		if err := m.WriteFile(fs, cfg.MetricsFile); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}

	if jsonOut {
		return printJSON(sink.Manifest())
	}
	printInfo("Wrote %d records to %d artifacts in %s (%.2fs)\n",
		sum.Records, sum.Artifacts, sink.Dir(), time.Since(start).Seconds())
	if len(sum.Failed) > 0 {
		printInfo("Incomplete: %s\n", strings.Join(sum.Failed, ", "))
	}
	return nil
}
