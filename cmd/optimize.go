package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/bimmerbailey/tokenoptimizer/internal/auth"
	"github.com/bimmerbailey/tokenoptimizer/internal/config"
	"github.com/bimmerbailey/tokenoptimizer/internal/logging"
	"github.com/bimmerbailey/tokenoptimizer/internal/output"
	"github.com/bimmerbailey/tokenoptimizer/internal/prompt"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// runOptimize resolves the credential, builds and validates the request,
// submits it once and renders the result. Nothing reaches the network until
// every local check has passed.
func (a *App) runOptimize(cmd *cobra.Command, v *viper.Viper, args []string) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.New(cmd.ErrOrStderr(), cfg.Verbose)
	logger.Debug().Str("settings", cfg.String()).Msg("resolved settings")

	flags := cmd.Flags()
	apiKey, _ := flags.GetString("api-key")
	filePath, _ := flags.GetString("file")
	quiet, _ := flags.GetBool("quiet")
	statsOnly, _ := flags.GetBool("stats-only")

	var levels prompt.LevelFlags
	if flags.Changed("aggressiveness") {
		custom, _ := flags.GetFloat64("aggressiveness")
		levels.Custom = &custom
	}
	levels.Light, _ = flags.GetBool("light")
	levels.Moderate, _ = flags.GetBool("moderate")
	levels.Aggressive, _ = flags.GetBool("aggressive")

	opts := prompt.Options{
		Aggressiveness: levels.Resolve(cfg.Aggressiveness),
		TimeoutSeconds: cfg.Timeout,
	}
	opts.MaxTokens = changedInt(flags, "max-tokens")
	opts.MinTokens = changedInt(flags, "min-tokens")

	resolver := auth.NewResolver(a.Store, a.Getenv)
	cred, err := resolver.Resolve(apiKey)
	if err != nil {
		return err
	}
	logger.Debug().Str("source", cred.Source.String()).Msg("resolved api key")

	stdin := cmd.InOrStdin()
	req, err := prompt.Build(prompt.Source{
		Args:            args,
		File:            filePath,
		Stdin:           stdin,
		StdinIsTerminal: a.IsTerminal != nil && a.IsTerminal(stdin),
	}, opts)
	if err != nil {
		return err
	}

	optimizer, err := a.NewOptimizer(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := optimizer.Submit(ctx, req, cred.Key)
	if err != nil {
		return err
	}

	colorMode := output.ColorAuto
	if cfg.NoColor {
		colorMode = output.ColorNever
	}

	mode := output.ResolveMode(quiet, statsOnly)
	return output.New(cmd.OutOrStdout(), colorMode).Render(result, mode)
}

// changedInt returns the flag's value only when it was given on the command
// line, so an explicit 0 is still validated instead of read as "unset".
func changedInt(flags *pflag.FlagSet, name string) *int {
	if !flags.Changed(name) {
		return nil
	}
	n, err := flags.GetInt(name)
	if err != nil {
		return nil
	}
	return &n
}
