package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/prepbrief/config"
	"github.com/otherjamesbrown/prepbrief/pkg/ledger"
)

// LedgerCommandDeps holds the dependencies for ledger commands.
type LedgerCommandDeps struct {
	LoadConfig func() (*config.CLIConfig, error)
	OpenLedger func(ctx context.Context, cfg *config.CLIConfig) (ledger.Ledger, func(), error)
}

// DefaultLedgerDeps returns the default dependencies for production use.
func DefaultLedgerDeps() *LedgerCommandDeps {
	return &LedgerCommandDeps{
		LoadConfig: config.LoadConfig,
		OpenLedger: OpenLedger,
	}
}

// LedgerEntry reports whether one event ID is recorded as processed.
type LedgerEntry struct {
	EventID   string `json:"event_id" yaml:"event_id"`
	Processed bool   `json:"processed" yaml:"processed"`
}

// NewLedgerCommand creates the ledger command with all subcommands.
func NewLedgerCommand(deps *LedgerCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultLedgerDeps()
	}
	var output string

	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect and update the processed-event ledger",
		Long: `Inspect and update the ledger of calendar event IDs that have already been
prepared or definitively skipped.

The ledger is a local file by default (processed_event_ids.txt in the
config directory) or a Redis set when ledger.backend is redis.

Examples:
  prepbrief ledger check 3q9v0k2abc
  prepbrief ledger mark 3q9v0k2abc 7hd81kq0xyz`,
	}
	cmd.PersistentFlags().StringVarP(&output, "output", "o", "", "Output format: text, json, yaml")

	cmd.AddCommand(&cobra.Command{
		Use:   "check <event-id>...",
		Short: "Report whether events are recorded as processed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLedger(cmd.Context(), cmd.OutOrStdout(), deps, output, args, false)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "mark <event-id>...",
		Short: "Record events as processed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLedger(cmd.Context(), cmd.OutOrStdout(), deps, output, args, true)
		},
	})

	return cmd
}

func runLedger(ctx context.Context, w io.Writer, deps *LedgerCommandDeps, output string, ids []string, mark bool) error {
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("event id must not be empty")
		}
	}

	cfg, err := loadConfigWith(deps.LoadConfig)
	if err != nil {
		return err
	}
	format, err := resolveOutputFormat(output, cfg)
	if err != nil {
		return err
	}

	l, closeFn, err := deps.OpenLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	entries := make([]LedgerEntry, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if mark {
			if err := l.Mark(ctx, id); err != nil {
				return fmt.Errorf("marking %s: %w", id, err)
			}
			entries = append(entries, LedgerEntry{EventID: id, Processed: true})
			continue
		}
		seen, err := l.Seen(ctx, id)
		if err != nil {
			return fmt.Errorf("checking %s: %w", id, err)
		}
		entries = append(entries, LedgerEntry{EventID: id, Processed: seen})
	}

	if done, err := writeStructured(w, format, entries); done {
		return err
	}
	for _, e := range entries {
		state := "not processed"
		if e.Processed {
			state = "processed"
		}
		fmt.Fprintf(w, "%s\t%s\n", e.EventID, state)
	}
	return nil
}
