package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/otherjamesbrown/prepbrief/credentials"
)

// SecretStore is the subset of credentials.Store the auth commands use.
type SecretStore interface {
	Set(secret credentials.Secret, value string) error
	Delete(secret credentials.Secret) error
	Status(secrets ...credentials.Secret) []credentials.Status
}

// AuthCommandDeps holds the dependencies for auth commands.
type AuthCommandDeps struct {
	Store      SecretStore
	ReadSecret func(prompt string, stderr io.Writer) (string, error)
}

// DefaultAuthDeps returns the default dependencies for production use.
func DefaultAuthDeps() *AuthCommandDeps {
	return &AuthCommandDeps{
		Store:      credentials.NewStore(),
		ReadSecret: readSecret,
	}
}

// readSecret prompts without echo on a terminal and reads one line otherwise.
func readSecret(prompt string, stderr io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(stderr, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(stderr)
		if err != nil {
			return "", fmt.Errorf("reading secret: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// NewAuthCommand creates the auth command with all subcommands.
func NewAuthCommand(deps *AuthCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultAuthDeps()
	}

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage stored API keys and passwords",
		Long: `Manage the secrets prepbrief uses, stored in the system keyring (` + credentials.KeyringDescription() + `).

Secrets:
  openai    LLM API key for --draft (env: PREPBRIEF_OPENAI_API_KEY, OPENAI_API_KEY)
  db        Postgres password for the history table (env: DB_PASSWORD)
  redis     Redis password for the ledger (env: PREPBRIEF_REDIS_PASSWORD)

Environment variables take precedence over the keyring.

Examples:
  prepbrief auth set-key
  echo "$KEY" | prepbrief auth set-key openai
  prepbrief auth status
  prepbrief auth clear db`,
	}

	cmd.AddCommand(newAuthSetKeyCommand(deps))
	cmd.AddCommand(newAuthStatusCommand(deps))
	cmd.AddCommand(newAuthClearCommand(deps))
	return cmd
}

func secretArg(args []string) (credentials.Secret, error) {
	if len(args) == 0 {
		return credentials.SecretOpenAIKey, nil
	}
	return credentials.ParseSecret(args[0])
}

func newAuthSetKeyCommand(deps *AuthCommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "set-key [openai|db|redis]",
		Short: "Store a secret in the keyring (default: openai)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := secretArg(args)
			if err != nil {
				return err
			}
			value, err := deps.ReadSecret(fmt.Sprintf("Enter %s: ", secret), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if err := deps.Store.Set(secret, value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %s (%s)\n", secret, credentials.MaskCredential(strings.TrimSpace(value)))
			return nil
		},
	}
}

func newAuthStatusCommand(deps *AuthCommandDeps) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show where each secret is resolved from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := resolveOutputFormat(output, nil)
			if err != nil {
				return err
			}
			statuses := deps.Store.Status()

			w := cmd.OutOrStdout()
			if done, err := writeStructured(w, format, statuses); done {
				return err
			}
			fmt.Fprintf(w, "%-16s %-8s %s\n", "SECRET", "SOURCE", "VALUE")
			for _, st := range statuses {
				value := st.Masked
				switch {
				case st.Error != "":
					value = "error: " + st.Error
				case value == "":
					value = "(not set)"
				}
				fmt.Fprintf(w, "%-16s %-8s %s\n", st.Secret, st.Source, value)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output format: text, json, yaml")
	return cmd
}

func newAuthClearCommand(deps *AuthCommandDeps) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "clear [openai|db|redis]",
		Short: "Remove a secret from the keyring (default: openai)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secrets := credentials.AllSecrets
			if !all {
				secret, err := secretArg(args)
				if err != nil {
					return err
				}
				secrets = []credentials.Secret{secret}
			}
			for _, s := range secrets {
				if err := deps.Store.Delete(s); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", s)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Remove every stored secret")
	return cmd
}
