package main

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/oueway/jsonapikit"
	"github.com/oueway/jsonapikit/config"
)

// needsClient marks commands that talk to the backend; only they load the
// configuration.
const needsClient = "jactl/client"

// app carries what every subcommand needs once the root has loaded the
// configuration.
type app struct {
	v      *viper.Viper
	holder *config.Holder
	client *jsonapikit.Client
	logger zerolog.Logger
}

// NewRootCommand creates the root command. Flags can also be set through
// JACTL_* environment variables, which may come from an env file.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "jactl",
		Short: "Query JSON:API backends from the command line",
		Long: `jactl sends JSON:API requests using a jsonapikit configuration file
and prints the response with included resources resolved into the
relationships that reference them.

Examples:
  jactl get articles 1 --include author --types people
  jactl list articles --filter search=go --sort -createdAt --all`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "jsonapikit.yaml", "config file path")
	flags.String("env-file", ".env", "env file loaded before reading the configuration")
	flags.StringSlice("types", nil, "resource types that may appear in included")
	flags.Bool("compact", false, "print JSON on a single line")

	a.v.SetEnvPrefix("JACTL")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	_ = a.v.BindPFlags(flags)

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(newGetCommand(a))
	rootCmd.AddCommand(newListCommand(a))

	return rootCmd
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[needsClient] == "" {
		return nil
	}

	if err := godotenv.Load(a.v.GetString("env-file")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file: %w", err)
	}

	cfg, err := config.LoadWithFallback(a.v.GetString("config"))
	if err != nil {
		return err
	}

	a.logger = cfg.NewLogger(cmd.ErrOrStderr())
	a.holder = config.NewHolderFromConfig(cfg, a.logger)
	a.holder.OnUnauthorized(func() {
		a.logger.Error().Msg("the access token was rejected; update token or token_file")
	})

	registry := jsonapikit.NewRegistry()
	jsonapikit.RegisterGenericTypes(registry, a.v.GetStringSlice("types")...)

	opts := append(cfg.ClientOptions(a.logger),
		jsonapikit.WithRegistry(registry),
		jsonapikit.WithMiddleware(userAgent),
	)
	a.client = jsonapikit.New(a.holder, opts...)
	return a.client.ValidationError()
}

func userAgent(req *http.Request, next jsonapikit.RoundTripper) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", jsonapikit.UserAgent())
	}
	return next.RoundTrip(req)
}

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := jsonapikit.GetVersionInfo()
			fmt.Fprintf(cmd.OutOrStdout(), "jactl %s\n", info.Version)
			fmt.Fprintf(cmd.OutOrStdout(), "  commit:  %s\n", info.Commit)
			fmt.Fprintf(cmd.OutOrStdout(), "  built:   %s\n", info.BuildDate)
			fmt.Fprintf(cmd.OutOrStdout(), "  go:      %s\n", info.GoVersion)
		},
	}
}

// describe adds a hint to errors the user can act on.
func describe(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jsonapikit.ErrAuthExpired):
		return fmt.Errorf("%w; refresh token or token_file", err)
	case jsonapikit.IsAuthFailure(err):
		return fmt.Errorf("%w; check the token and its permissions", err)
	}
	return err
}
