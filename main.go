// Package main provides the prepbrief CLI entry point.
// prepbrief prepares sales meeting briefs: it screens calendar events,
// works out whether the people attending have met the brand before, and
// assembles the history an account team needs before the meeting.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/otherjamesbrown/prepbrief/cmd"
	"github.com/otherjamesbrown/prepbrief/config"
	"github.com/otherjamesbrown/prepbrief/pkg/buildinfo"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	timeout time.Duration
	debug   bool
	logJSON bool
}

// loader returns a config loader applying the persistent flag overrides.
func (g *globalFlags) loader() func() (*config.CLIConfig, error) {
	return func() (*config.CLIConfig, error) {
		cfg, err := config.LoadConfig()
		if err != nil {
			return nil, err
		}
		g.apply(cfg)
		return cfg, nil
	}
}

func (g *globalFlags) apply(cfg *config.CLIConfig) {
	if g.timeout > 0 {
		cfg.Timeout = g.timeout
	}
	if g.debug {
		cfg.Debug = true
	}
	if g.logJSON {
		cfg.LogJSON = true
	}
}

// noTimeout lists commands that run until interrupted.
var noTimeout = map[string]bool{"watch": true, "set-key": true}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}
	load := flags.loader()
	var cancelTimeout context.CancelFunc

	root := &cobra.Command{
		Use:   "prepbrief",
		Short: "Prepare sales meeting briefs with engagement continuity",
		Long: `prepbrief prepares briefs for upcoming sales meetings.

For each meeting it screens the calendar event, finds the brand's past
meetings in the history export, and decides whether this is a direct
follow-up by the same team, a first meeting, or a meeting with a brand
another team is already talking to. Details of other teams' meetings are
never included; only their date and team are mentioned.

COMMON WORKFLOWS:
  One-off check:     prepbrief resolve --brand Acme --internal "S Dakhane" --history meetings.csv
  Prepare events:    prepbrief prep event.json --draft
  Drop folder:       prepbrief watch ./inbox --metrics-addr :9102
  Google Calendar:   prepbrief upcoming --list  →  prepbrief upcoming --draft

CONFIGURATION:
  prepbrief config init       Write ~/.prepbrief/config.yaml with defaults
  prepbrief auth set-key      Store the LLM API key in the system keyring`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(c *cobra.Command, args []string) error {
			if c.Name() == "version" || c.Name() == "help" || c.Name() == "completion" || noTimeout[c.Name()] {
				return nil
			}
			timeout := flags.timeout
			if timeout <= 0 {
				timeout = config.DefaultTimeout
				if cfg, err := config.LoadConfig(); err == nil {
					timeout = cfg.Timeout
				}
			}
			ctx, cancel := context.WithTimeout(c.Context(), timeout)
			cancelTimeout = cancel
			c.SetContext(ctx)
			return nil
		},
		PersistentPostRunE: func(c *cobra.Command, args []string) error {
			if cancelTimeout != nil {
				cancelTimeout()
			}
			return nil
		},
	}

	root.PersistentFlags().DurationVar(&flags.timeout, "timeout", 0, "overall timeout (e.g., 30s, 2m)")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&flags.logJSON, "log-json", false, "write logs as JSON")

	resolveDeps := cmd.DefaultResolveDeps()
	resolveDeps.LoadConfig = load
	root.AddCommand(cmd.NewResolveCommand(resolveDeps))

	prepDeps := cmd.DefaultPrepDeps()
	prepDeps.LoadConfig = load
	root.AddCommand(cmd.NewPrepCommand(prepDeps))

	watchDeps := cmd.DefaultWatchDeps()
	watchDeps.LoadConfig = load
	root.AddCommand(cmd.NewWatchCommand(watchDeps))

	upcomingDeps := cmd.DefaultUpcomingDeps()
	upcomingDeps.LoadConfig = load
	root.AddCommand(cmd.NewUpcomingCommand(upcomingDeps))

	inspectDeps := cmd.DefaultInspectDeps()
	inspectDeps.LoadConfig = load
	root.AddCommand(cmd.NewNamesCommand(inspectDeps))
	root.AddCommand(cmd.NewBrandCommand(inspectDeps))

	ledgerDeps := cmd.DefaultLedgerDeps()
	ledgerDeps.LoadConfig = load
	root.AddCommand(cmd.NewLedgerCommand(ledgerDeps))

	root.AddCommand(cmd.NewAuthCommand(nil))
	root.AddCommand(newConfigCommand(load))
	root.AddCommand(newVersionCommand())

	return root
}

func newVersionCommand() *cobra.Command {
	var output string
	c := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print the version, commit hash, and build time of prepbrief.

Examples:
  prepbrief version
  prepbrief version -o json`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			info := buildinfo.Get("prepbrief")
			out := c.OutOrStdout()
			switch config.OutputFormat(output) {
			case config.OutputFormatJSON, config.OutputFormatYAML:
				data, err := marshalAs(config.OutputFormat(output), info)
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			case "", config.OutputFormatText:
				fmt.Fprintf(out, "prepbrief version %s\n", info.Version)
				fmt.Fprintf(out, "  commit:     %s\n", info.Commit)
				fmt.Fprintf(out, "  built:      %s\n", info.BuildTime)
				fmt.Fprintf(out, "  go:         %s\n", info.GoVersion)
				return nil
			default:
				return fmt.Errorf("invalid output format: %s (must be text, json, or yaml)", output)
			}
		},
	}
	c.Flags().StringVarP(&output, "output", "o", "", "Output format: text, json, yaml")
	return c
}

func marshalAs(format config.OutputFormat, v any) ([]byte, error) {
	if format == config.OutputFormatJSON {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
	return yaml.Marshal(v)
}

func newConfigCommand(load func() (*config.CLIConfig, error)) *cobra.Command {
	c := &cobra.Command{
		Use:   "config",
		Short: "Manage prepbrief configuration",
		Long:  `View and initialize the prepbrief configuration file.`,
	}

	c.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long:  `Display the configuration after defaults, the config file and PREPBRIEF_* environment variables are applied.`,
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			configPath, _ := config.ConfigPath()
			data, err := config.Marshal(cfg)
			if err != nil {
				return err
			}
			out := c.OutOrStdout()
			fmt.Fprintf(out, "# %s\n", configPath)
			_, err = out.Write(data)
			return err
		},
	})

	c.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file",
		Long:  `Create a new configuration file with default values if one doesn't exist.`,
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			configPath, err := config.ConfigPath()
			if err != nil {
				return fmt.Errorf("getting config path: %w", err)
			}
			out := c.OutOrStdout()

			if _, err := os.Stat(configPath); err == nil {
				fmt.Fprintf(out, "Configuration file already exists: %s\n", configPath)
				fmt.Fprintln(out, "Use 'prepbrief config show' to view current settings.")
				return nil
			}

			defaultCfg := config.DefaultConfig()
			if err := config.SaveConfig(defaultCfg); err != nil {
				return fmt.Errorf("saving configuration: %w", err)
			}
			fmt.Fprintf(out, "Created configuration file: %s\n", configPath)
			fmt.Fprintln(out, "\nSet history.csv_path (or history.source: postgres) before running prep.")
			return nil
		},
	})

	return c
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
