package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/Velocidex/ordereddict"
	"github.com/spf13/cobra"

	"github.com/joshuapare/artifactkit/pkg/event"
	"github.com/joshuapare/artifactkit/pkg/evtx"
)

var (
	eventIDs    []uint
	eventsLimit int
	eventsXML   bool
)

func init() {
	cmd := newEventsCmd()
	cmd.Flags().UintSliceVar(&eventIDs, "id", nil, "Only show these event ids")
	cmd.Flags().IntVarP(&eventsLimit, "limit", "n", 0, "Stop after this many events (0 = all)")
	cmd.Flags().BoolVar(&eventsXML, "xml", false, "Print the rendered XML instead of decoded events")
	rootCmd.AddCommand(cmd)
}

func newEventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events <file.evtx>",
		Short: "Dump the records of an event log",
		Long: `The events command decodes every record of an EVTX file and prints one
JSON object per line. Undecodable records are reported on stderr and skipped.

Example:
  artifactctl events Security.evtx --id 4624 --id 4625
  artifactctl events System.evtx --xml -n 10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(args)
		},
	}
}

type eventLine struct {
	RecordID uint64            `json:"record_id"`
	Written  time.Time         `json:"written"`
	EventID  uint32            `json:"event_id"`
	Provider string            `json:"provider"`
	Channel  string            `json:"channel"`
	Computer string            `json:"computer"`
	Data     *ordereddict.Dict `json:"data"`
}

func runEvents(args []string) error {
	f, err := evtx.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open event log: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	shown, skipped := 0, 0
	for rec, err := range f.Records() {
		if err != nil {
			var re *evtx.RecordError
			if !errors.As(err, &re) {
				return err
			}
			printError("%v\n", err)
			skipped++
			continue
		}
		ev, err := event.Decode(rec.XML)
		if err != nil {
			printError("record %d: %v\n", rec.ID, err)
			skipped++
			continue
		}
		if len(eventIDs) > 0 && !slices.Contains(eventIDs, uint(ev.System.EventID)) {
			continue
		}
		if eventsXML {
			fmt.Fprintln(os.Stdout, rec.XML)
		} else if err := enc.Encode(eventLine{
			RecordID: rec.ID,
			Written:  rec.Written,
			EventID:  ev.System.EventID,
			Provider: ev.System.Provider.Name,
			Channel:  ev.System.Channel,
			Computer: ev.System.Computer,
			Data:     ev.Dict(snakeCase),
		}); err != nil {
			return err
		}
		shown++
		if eventsLimit > 0 && shown >= eventsLimit {
			break
		}
	}
	if skipped > 0 && !quiet {
		fmt.Fprintf(os.Stderr, "%d records skipped\n", skipped)
	}
	return nil
}
