package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/prepbrief/config"
	"github.com/otherjamesbrown/prepbrief/pkg/brand"
	"github.com/otherjamesbrown/prepbrief/pkg/identity"
)

// InspectCommandDeps holds the dependencies for the names and brand commands.
type InspectCommandDeps struct {
	LoadConfig func() (*config.CLIConfig, error)
}

// DefaultInspectDeps returns the default dependencies for production use.
func DefaultInspectDeps() *InspectCommandDeps {
	return &InspectCommandDeps{LoadConfig: config.LoadConfig}
}

// NormalizedName is one row of 'names normalize'.
type NormalizedName struct {
	Raw    string   `json:"raw" yaml:"raw"`
	Tokens []string `json:"tokens" yaml:"tokens"`
}

// NameMatch is the output of 'names match'.
type NameMatch struct {
	Overlap bool            `json:"overlap" yaml:"overlap"`
	Pairs   []NamePairMatch `json:"pairs" yaml:"pairs"`
}

// NamePairMatch is one matched pair of names.
type NamePairMatch struct {
	A    string             `json:"a" yaml:"a"`
	B    string             `json:"b" yaml:"b"`
	Kind identity.MatchKind `json:"kind" yaml:"kind"`
}

// NewNamesCommand creates the names command with its subcommands.
func NewNamesCommand(deps *InspectCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultInspectDeps()
	}
	var output string

	cmd := &cobra.Command{
		Use:   "names",
		Short: "Inspect how attendee names are normalized and matched",
		Long: `Inspect the attendee-name rules used to decide whether the same people
met a brand before.

Examples:
  prepbrief names normalize "Dr. Shubham K. Dakhane" "s.dakhane@nobroker.in"
  prepbrief names split "Shubham Dakhane, Meera Iyer (NBH Sales) & Ravi"
  prepbrief names match --a "Shubham Dakhane" --b "S Dakhane; Ravi Kumar"`,
	}
	cmd.PersistentFlags().StringVarP(&output, "output", "o", "", "Output format: text, json, yaml")

	cmd.AddCommand(newNamesNormalizeCommand(deps, &output))
	cmd.AddCommand(newNamesSplitCommand(deps, &output))
	cmd.AddCommand(newNamesMatchCommand(deps, &output))
	return cmd
}

func newNamesNormalizeCommand(deps *InspectCommandDeps, output *string) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <name>...",
		Short: "Show the tokens a name reduces to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := resolveOutputFormat(*output, nil)
			if err != nil {
				return err
			}
			rows := make([]NormalizedName, 0, len(args))
			for _, raw := range args {
				source := raw
				if strings.Contains(raw, "@") {
					source = identity.NameFromEmail(raw)
				}
				rows = append(rows, NormalizedName{Raw: raw, Tokens: identity.Normalize(source).Sorted()})
			}
			return writeNormalized(cmd.OutOrStdout(), format, rows)
		},
	}
}

func writeNormalized(w io.Writer, format config.OutputFormat, rows []NormalizedName) error {
	if done, err := writeStructured(w, format, rows); done {
		return err
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%-32s -> %s\n", r.Raw, joinOrDash(r.Tokens))
	}
	return nil
}

func newNamesSplitCommand(deps *InspectCommandDeps, output *string) *cobra.Command {
	return &cobra.Command{
		Use:   "split <cell>",
		Short: "Split a spreadsheet attendee cell into names",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigWith(deps.LoadConfig)
			if err != nil {
				return err
			}
			format, err := resolveOutputFormat(*output, cfg)
			if err != nil {
				return err
			}

			names := cfg.People().BuildFromCells(args[0], "").InternalRaw()
			w := cmd.OutOrStdout()
			if done, err := writeStructured(w, format, names); done {
				return err
			}
			if len(names) == 0 {
				fmt.Fprintln(w, "(nobody)")
				return nil
			}
			for _, n := range names {
				fmt.Fprintln(w, n)
			}
			return nil
		},
	}
}

func newNamesMatchCommand(deps *InspectCommandDeps, output *string) *cobra.Command {
	var a, b []string
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match two attendee lists the way history classification does",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigWith(deps.LoadConfig)
			if err != nil {
				return err
			}
			format, err := resolveOutputFormat(*output, cfg)
			if err != nil {
				return err
			}

			g := cfg.People().BuildFromCells(strings.Join(a, "; "), strings.Join(b, "; "))
			result := NameMatch{Pairs: []NamePairMatch{}}
			for _, p := range identity.Pairs(g.Internal, g.External) {
				result.Pairs = append(result.Pairs, NamePairMatch{A: p.A.Raw, B: p.B.Raw, Kind: p.Kind})
			}
			result.Overlap = len(result.Pairs) > 0

			w := cmd.OutOrStdout()
			if done, err := writeStructured(w, format, result); done {
				return err
			}
			if !result.Overlap {
				fmt.Fprintln(w, "No overlap.")
				return nil
			}
			for _, p := range result.Pairs {
				fmt.Fprintf(w, "%s <-> %s (%s)\n", p.A, p.B, p.Kind)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&a, "a", nil, "Name or cell on side A (repeatable)")
	cmd.Flags().StringArrayVar(&b, "b", nil, "Name or cell on side B (repeatable)")
	return cmd
}

// BrandComparison is one row of 'brand match'.
type BrandComparison struct {
	Target    string     `json:"target" yaml:"target"`
	Candidate string     `json:"candidate" yaml:"candidate"`
	Tier      brand.Tier `json:"tier" yaml:"tier"`
	Match     bool       `json:"match" yaml:"match"`
}

// NewBrandCommand creates the brand command.
func NewBrandCommand(deps *InspectCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultInspectDeps()
	}
	var output string
	var minLength int

	cmd := &cobra.Command{
		Use:   "brand",
		Short: "Inspect brand name matching",
	}
	cmd.PersistentFlags().StringVarP(&output, "output", "o", "", "Output format: text, json, yaml")

	match := &cobra.Command{
		Use:   "match <target> <candidate>...",
		Short: "Compare a brand against history brand names",
		Long: `Compare a brand against one or more brand names as they appear in the
history export. Names match exactly after normalization, or when the
shorter name appears as whole words in the longer one.

Examples:
  prepbrief brand match "Acme" "ACME Foods Pvt Ltd" "Acmeville"`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigWith(deps.LoadConfig)
			if err != nil {
				return err
			}
			format, err := resolveOutputFormat(output, cfg)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("min-length") {
				minLength = cfg.MinBrandLength
			}

			m := brand.NewMatcher(minLength)
			rows := make([]BrandComparison, 0, len(args)-1)
			for _, candidate := range args[1:] {
				tier := m.Compare(args[0], candidate)
				rows = append(rows, BrandComparison{Target: args[0], Candidate: candidate, Tier: tier, Match: tier != brand.TierNone})
			}

			w := cmd.OutOrStdout()
			if done, err := writeStructured(w, format, rows); done {
				return err
			}
			for _, r := range rows {
				fmt.Fprintf(w, "%-30s %-10s %q\n", r.Candidate, r.Tier, brand.Normalize(r.Candidate))
			}
			return nil
		},
	}
	match.Flags().IntVar(&minLength, "min-length", 0, "Minimum normalized length for whole-word matches")
	cmd.AddCommand(match)

	return cmd
}
