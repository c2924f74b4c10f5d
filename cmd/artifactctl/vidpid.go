package main

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/joshuapare/artifactkit/internal/vendors"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "vidpid <source-dir> <out.json>",
		Short: "Build the USB vendor list from idVendor/idProduct text files",
		Long: `The vidpid command scans a directory of text files listing
"idVendor 0x046d ... idProduct 0xc52b ..." pairs and writes the vendor list
consumed by --vidpid.

Example:
  artifactctl vidpid ./usb-ids vidpid.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVidPid(args)
		},
	})
}

func runVidPid(args []string) error {
	fs := afero.NewOsFs()
	l, err := vendors.Scrape(fs, args[0])
	if err != nil {
		return fmt.Errorf("failed to scrape %s: %w", args[0], err)
	}
	if err := vendors.Save(fs, args[1], l); err != nil {
		return err
	}
	products := 0
	for _, v := range l {
		products += len(v.Devices)
	}
	printInfo("Wrote %d vendors and %d products to %s\n", len(l), products, args[1])
	return nil
}
