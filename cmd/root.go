package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bimmerbailey/tokenoptimizer/internal/api"
	"github.com/bimmerbailey/tokenoptimizer/internal/apperr"
	"github.com/bimmerbailey/tokenoptimizer/internal/config"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// CredentialStore is the persisted credential record.
type CredentialStore interface {
	Path() string
	Load() (*config.Record, error)
	Save(config.Record) error
	Delete() (bool, error)
}

// App holds the resources one invocation works with. Execute builds the real
// one; tests inject fakes.
type App struct {
	Store  CredentialStore
	Getenv func(string) string

	// NewOptimizer builds the client used for the single network call.
	NewOptimizer func(cfg *config.Config, logger zerolog.Logger) (api.Optimizer, error)

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// IsTerminal reports whether r is an interactive terminal.
	IsTerminal func(r io.Reader) bool
}

// DefaultApp wires the process environment, the per-user config store and
// the HTTPS client.
func DefaultApp() (*App, error) {
	path, err := config.DefaultPath()
	if err != nil {
		return nil, err
	}

	return &App{
		Store:        config.NewStore(path),
		Getenv:       os.Getenv,
		NewOptimizer: newAPIOptimizer,
		Stdin:        os.Stdin,
		Stdout:       os.Stdout,
		Stderr:       os.Stderr,
		IsTerminal:   isTerminal,
	}, nil
}

func newAPIOptimizer(cfg *config.Config, logger zerolog.Logger) (api.Optimizer, error) {
	return api.New(api.Config{
		URL:       cfg.APIURL,
		Model:     cfg.Model,
		UserAgent: "tokenoptimizer/" + version,
	}, logger)
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// NewRootCmd builds the command tree around app.
func NewRootCmd(app *App) *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:   "tokenoptimizer [flags] [prompt...]",
		Short: "Compress prompts with The Token Company API",
		Long: `tokenoptimizer sends text to The Token Company compression API and prints
the compressed version together with token statistics.

The prompt is taken from the arguments, from --file, or from stdin when it is
piped, in that order.

Examples:
  tokenoptimizer "Your prompt here"
  echo "Your prompt" | tokenoptimizer
  tokenoptimizer --file prompt.txt
  tokenoptimizer --aggressive "Your prompt"
  tokenoptimizer -a 0.8 -q "Your prompt"
  tokenoptimizer auth set --key YOUR_API_KEY

Aggressiveness levels:
  --light       0.2 - preserves content safely
  --moderate    0.5 - balances compression with quality (default)
  --aggressive  0.8 - maximizes token reduction
  -a wins over the presets; --light wins over --moderate over --aggressive.

Output modes:
  default       optimized text, then statistics
  -q            optimized text only (safe for $(...) capture)
  -s            statistics only (wins over -q)

Environment variables:
  TOKENOPTIMIZER_API_KEY    API key (overrides the config file)
  TOKENOPTIMIZER_API_URL, TOKENOPTIMIZER_MODEL, TOKENOPTIMIZER_TIMEOUT,
  TOKENOPTIMIZER_AGGRESSIVENESS    defaults for the matching flags`,
		Version:           version,
		Args:              cobra.ArbitraryArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return initConfig(cmd, v) },
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runOptimize(cmd, v, args)
		},
	}

	rootCmd.SetVersionTemplate(versionString() + "\n")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetIn(app.Stdin)
	rootCmd.SetOut(app.Stdout)
	rootCmd.SetErr(app.Stderr)
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return apperr.Wrap(apperr.Usage, err, "")
	})

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "settings file (yaml) with defaults for api_url, model, timeout, aggressiveness")
	pf.String("env-file", "", "load environment variables from this file (existing variables win)")
	pf.BoolP("verbose", "v", false, "enable debug logging on stderr")

	f := rootCmd.Flags()
	f.StringP("file", "f", "", "read prompt from file")
	f.Float64P("aggressiveness", "a", config.DefaultAggressiveness, "compression aggressiveness 0.0-1.0")
	f.BoolP("light", "l", false, "light compression (aggressiveness=0.2)")
	f.BoolP("moderate", "m", false, "moderate compression (aggressiveness=0.5)")
	f.BoolP("aggressive", "A", false, "aggressive compression (aggressiveness=0.8)")
	f.Int("max-tokens", 0, "maximum output tokens")
	f.Int("min-tokens", 0, "minimum output tokens")
	f.BoolP("quiet", "q", false, "print only the optimized text")
	f.BoolP("stats-only", "s", false, "print only the statistics")
	f.Int("timeout", config.DefaultTimeout, "request timeout in seconds")
	f.String("model", config.DefaultModel, "compression model")
	f.String("api-url", config.DefaultAPIURL, "compression endpoint")
	f.String("api-key", "", "API key for this invocation (overrides environment and config file)")
	f.Bool("no-color", false, "disable colored statistics")

	_ = v.BindPFlag("verbose", pf.Lookup("verbose"))
	_ = v.BindPFlag("aggressiveness", f.Lookup("aggressiveness"))
	_ = v.BindPFlag("timeout", f.Lookup("timeout"))
	_ = v.BindPFlag("model", f.Lookup("model"))
	_ = v.BindPFlag("api_url", f.Lookup("api-url"))
	_ = v.BindPFlag("no_color", f.Lookup("no-color"))

	rootCmd.AddCommand(newAuthCmd(app))

	return rootCmd
}

// initConfig layers the optional env file, environment variables and
// settings file beneath the command-line flags.
func initConfig(cmd *cobra.Command, v *viper.Viper) error {
	if envFile, _ := cmd.Flags().GetString("env-file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return apperr.Wrap(apperr.Usage, err, "failed to load env file %s", envFile)
		}
	}

	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	config.SetDefaults(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return apperr.Wrap(apperr.Usage, err, "failed to read settings file %s", cfgFile)
		}
	}

	return nil
}

// Execute is called by main.main(). It runs the root command and prints any
// error once to stderr; the caller maps it to an exit code.
func Execute() error {
	app, err := DefaultApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return err
	}

	if err := NewRootCmd(app).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return err
	}
	return nil
}
