// Package replay implements a command for replaying captured assistant
// streams.
package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mkarvala/sidekick-go/internal/conf"
	"github.com/mkarvala/sidekick-go/internal/packet"
	"github.com/mkarvala/sidekick-go/internal/streaming"
)

// Command returns a cobra command that decodes an NDJSON capture file and
// prints the timeline descriptors a frontend would render for it.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		mode    string
		asJSON  bool
		showRaw bool
	)

	cmd := &cobra.Command{
		Use:   "replay <capture-file>",
		Short: "Decode an NDJSON capture and print its timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), args[0], packet.ParseRenderMode(mode), asJSON, showRaw)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "full", "Render mode (full, highlighted, inline)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print descriptors as JSON")
	cmd.Flags().BoolVar(&showRaw, "raw", false, "Print each decoded record before the timeline")

	return cmd
}

func runReplay(ctx context.Context, path string, mode packet.RenderMode, asJSON, showRaw bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer f.Close()

	dec := streaming.NewDecoder(ctx, f)

	var records []json.RawMessage
	if err := dec.ForEach(func(rec json.RawMessage) error {
		if showRaw {
			fmt.Println(string(rec))
		}
		records = append(records, rec)
		return nil
	}); err != nil {
		return fmt.Errorf("failed to decode capture: %w", err)
	}

	packets := packet.ParseAll(records)
	descriptors := packet.Timeline(packets, mode)

	if asJSON {
		out, err := json.MarshalIndent(descriptors, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal descriptors: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Printf("%d records, %d packets, %d steps\n\n", len(records), len(packets), len(descriptors))
	for i, d := range descriptors {
		fmt.Printf("%2d. [%s] %s", i+1, d.Icon, d.Status)
		var flags []string
		if d.Collapsible {
			flags = append(flags, "collapsible")
		}
		if d.Layout != "" {
			flags = append(flags, string(d.Layout))
		}
		if len(flags) > 0 {
			fmt.Printf("  (%s)", strings.Join(flags, ", "))
		}
		fmt.Println()
	}

	return nil
}
