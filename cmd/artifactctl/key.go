package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshuapare/artifactkit/pkg/hive"
	"github.com/joshuapare/artifactkit/pkg/types"
)

var (
	keyRecursive bool
	keyDepth     int
)

func init() {
	cmd := newKeyCmd()
	cmd.Flags().BoolVarP(&keyRecursive, "recursive", "r", false, "Print the key tree below the path instead of one key")
	cmd.Flags().IntVar(&keyDepth, "depth", 0, "Maximum tree depth with --recursive (0 = unlimited)")
	rootCmd.AddCommand(cmd)
}

func newKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "key <hive> [path]",
		Short: "Show a key, its subkeys and its values",
		Long: `The key command prints one key of a hive file. Paths starting with
CurrentControlSet are resolved through Select\Current, or through
--control-set when given.

Example:
  artifactctl key SYSTEM "CurrentControlSet\\Enum\\USBSTOR"
  artifactctl key SOFTWARE "Microsoft\\Windows NT\\CurrentVersion" --json
  artifactctl key SYSTEM "CurrentControlSet\\Enum\\USB" -r --depth 2`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKey(args)
		},
	}
}

type valueInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Data any    `json:"data"`
}

type keyInfo struct {
	Path      string      `json:"path"`
	LastWrite time.Time   `json:"last_write"`
	Subkeys   []string    `json:"subkeys"`
	Values    []valueInfo `json:"values"`
}

func runKey(args []string) error {
	h, err := hive.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open hive: %w", err)
	}
	defer h.Close()
	if controlSet != 0 {
		h.SetControlSet(controlSet)
	}

	var keyPath string
	if len(args) > 1 {
		keyPath = args[1]
	}
	k, found, err := h.Navigate(keyPath)
	if err != nil {
		return fmt.Errorf("failed to navigate: %w", err)
	}
	if !found {
		return fmt.Errorf("key not found: %s", keyPath)
	}
	if keyRecursive {
		return printTree(k)
	}

	info := keyInfo{Path: k.Path(), LastWrite: k.LastWrite(), Subkeys: []string{}, Values: []valueInfo{}}
	subs, _, err := k.Subkeys()
	if err != nil {
		return err
	}
	for _, s := range subs {
		info.Subkeys = append(info.Subkeys, s.Name())
	}
	values, err := k.Values()
	if err != nil {
		return err
	}
	for _, v := range values {
		data, err := valueData(v)
		if err != nil {
			return fmt.Errorf("value %q: %w", v.Name(), err)
		}
		info.Values = append(info.Values, valueInfo{Name: v.Name(), Type: v.Type().String(), Data: data})
	}

	if jsonOut {
		return printJSON(info)
	}
	printInfo("%s\n  last write: %s\n", displayPath(info.Path), info.LastWrite.Format(time.RFC3339))
	printInfo("\nSubkeys (%d):\n", len(info.Subkeys))
	for _, s := range info.Subkeys {
		printInfo("  %s\n", s)
	}
	printInfo("\nValues (%d):\n", len(info.Values))
	for _, v := range info.Values {
		name := v.Name
		if name == "" {
			name = "(default)"
		}
		printInfo("  %s [%s] = %v\n", name, v.Type, v.Data)
	}
	return nil
}

type treeLine struct {
	Path      string    `json:"path"`
	LastWrite time.Time `json:"last_write"`
	Values    int       `json:"values"`
}

// printTree prints every key below k, one per line. JSON output uses one
// object per line.
func printTree(k hive.Key) error {
	var enc *json.Encoder
	if jsonOut {
		enc = json.NewEncoder(os.Stdout)
		enc.SetEscapeHTML(false)
	}
	return k.Walk(func(key hive.Key, depth int) error {
		if enc != nil {
			if err := enc.Encode(treeLine{Path: key.Path(), LastWrite: key.LastWrite(), Values: key.ValueCount()}); err != nil {
				return err
			}
		} else {
			name := key.Name()
			if depth == 0 {
				name = displayPath(key.Path())
			}
			printInfo("%s%s  (%s)\n", strings.Repeat("  ", depth), name, key.LastWrite().Format(time.RFC3339))
		}
		if keyDepth > 0 && depth >= keyDepth {
			return hive.SkipKey
		}
		return nil
	})
}

func displayPath(p string) string {
	if p == "" {
		return `\`
	}
	return p
}

// valueData decodes a value for display. Types without a text form are
// shown as hex.
func valueData(v hive.Value) (any, error) {
	switch v.Type() {
	case types.REG_SZ, types.REG_EXPAND_SZ:
		return v.StringData()
	case types.REG_DWORD, types.REG_DWORD_BE:
		return v.DwordData()
	case types.REG_QWORD:
		return v.QwordData()
	case types.REG_MULTI_SZ:
		s, err := v.MultiStringData()
		if err != nil {
			return nil, err
		}
		return strings.Join(s, "; "), nil
	}
	b, err := v.Data()
	if err != nil {
		return nil, err
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}
