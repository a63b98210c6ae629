package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bimmerbailey/tokenoptimizer/internal/apperr"
	"github.com/bimmerbailey/tokenoptimizer/internal/auth"
	"github.com/bimmerbailey/tokenoptimizer/internal/config"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newAuthCmd(app *App) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth <set|show|delete|path>",
		Short: "Manage the stored API key",
		Long: `Manage the API key used to authenticate with The Token Company API.

The key is resolved per invocation from, in order: --api-key, the
TOKENOPTIMIZER_API_KEY environment variable, then the config file.

Examples:
  tokenoptimizer auth set
  tokenoptimizer auth set --key YOUR_API_KEY
  tokenoptimizer auth show
  tokenoptimizer auth delete
  tokenoptimizer auth path`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return apperr.New(apperr.Usage, "unknown auth action %q (expected set, show, delete or path)", args[0])
			}
			_ = cmd.Help()
			return apperr.New(apperr.Usage, "missing auth action (expected set, show, delete or path)")
		},
	}

	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Save an API key to the config file",
		Long: `Save an API key to the config file. Without --key the key is read from
stdin; on a terminal the input is hidden.`,
		Args: cobra.NoArgs,
		RunE: app.runAuthSet,
	}
	setCmd.Flags().StringP("key", "k", "", "API key (prompted for when omitted)")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective API key (masked) and where it comes from",
		Args:  cobra.NoArgs,
		RunE:  app.runAuthShow,
	}

	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Remove the API key from the config file",
		Args:  cobra.NoArgs,
		RunE:  app.runAuthDelete,
	}

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), app.Store.Path())
			return err
		},
	}

	authCmd.AddCommand(setCmd, showCmd, deleteCmd, pathCmd)
	return authCmd
}

func (a *App) runAuthSet(cmd *cobra.Command, args []string) error {
	key, _ := cmd.Flags().GetString("key")
	if key == "" {
		var err error
		key, err = a.promptForKey(cmd)
		if err != nil {
			return err
		}
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return apperr.New(apperr.Usage, "API key cannot be empty")
	}

	if err := a.Store.Save(config.Record{APIKey: key}); err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "API key saved to %s\n", a.Store.Path())
	if a.Getenv != nil && strings.TrimSpace(a.Getenv(config.EnvAPIKey)) != "" {
		fmt.Fprintf(stderr, "note: %s is set and takes precedence over the saved key\n", config.EnvAPIKey)
	}
	return nil
}

// promptForKey reads the key from stdin, hiding the input when stdin is a
// terminal.
func (a *App) promptForKey(cmd *cobra.Command) (string, error) {
	stdin := cmd.InOrStdin()
	stderr := cmd.ErrOrStderr()

	fmt.Fprint(stderr, "Enter your API key: ")

	if f, ok := stdin.(*os.File); ok && a.IsTerminal != nil && a.IsTerminal(stdin) {
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read API key: %w", err)
		}
		return string(secret), nil
	}

	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read API key: %w", err)
	}
	return line, nil
}

func (a *App) runAuthShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	resolver := auth.NewResolver(a.Store, a.Getenv)
	cred, err := resolver.Resolve("")
	if apperr.Is(err, apperr.NoCredential) {
		fmt.Fprintln(out, "No API key configured")
		fmt.Fprintln(out, "Set one with: tokenoptimizer auth set")
		fmt.Fprintf(out, "Or set the %s environment variable\n", config.EnvAPIKey)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "API key: %s\n", auth.Mask(cred.Key))
	fmt.Fprintf(out, "Source: %s\n", cred.Source)
	fmt.Fprintf(out, "Config file: %s\n", a.Store.Path())
	return nil
}

func (a *App) runAuthDelete(cmd *cobra.Command, args []string) error {
	removed, err := a.Store.Delete()
	if err != nil {
		return err
	}

	if removed {
		fmt.Fprintln(cmd.ErrOrStderr(), "API key deleted")
	} else {
		fmt.Fprintln(cmd.ErrOrStderr(), "No stored API key found")
	}
	return nil
}
