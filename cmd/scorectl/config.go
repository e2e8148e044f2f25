package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/okian/scorehub/internal/loadgen"
	"github.com/okian/scorehub/pkg/logger"
)

// Config holds flag values shared by every subcommand.
type Config struct {
	server  string
	id      string
	name    string
	timeout time.Duration
	verbose bool

	game string

	players int
	workers int
	settle  time.Duration
}

func (c *Config) validate() error {
	u, err := url.Parse(c.server)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid --server %q", c.server)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("--server must be an http or https URL")
	}
	return nil
}

// websocketURL maps the REST base URL onto the hub's websocket endpoint.
func (c *Config) websocketURL() string {
	u, err := url.Parse(c.server)
	if err != nil {
		return c.server
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String()
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("SCORECTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:     "scorectl",
		Short:   "Watch, query and load-test a scorehub server.",
		Version: releaseVersion,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfg.verbose {
				_ = logger.SetLevelString("debug")
			} else {
				_ = logger.SetLevelString("warn")
			}
			return cfg.validate()
		},
	}

	pfs := cmd.PersistentFlags()
	pfs.StringVarP(&cfg.server, "server", "s", "http://localhost:3026", "scorehub base URL (env: SCORECTL_SERVER)")
	pfs.StringVar(&cfg.id, "id", "", "player id, random when empty (env: SCORECTL_ID)")
	pfs.StringVarP(&cfg.name, "name", "n", "", "display name, random when empty (env: SCORECTL_NAME)")
	pfs.DurationVar(&cfg.timeout, "timeout", 10*time.Second, "HTTP request timeout (env: SCORECTL_TIMEOUT)")
	pfs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display debug logs (env: SCORECTL_VERBOSE)")
	bindEnv(v, pfs)

	watch := &cobra.Command{
		Use:   "watch",
		Short: "Join the hub and print live events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	submit := &cobra.Command{
		Use:   "submit <game> <score>",
		Short: "Submit one score over HTTP",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd.Context(), cfg, cmd.OutOrStdout(), args[0], args[1])
		},
	}

	leaderboard := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the current leaderboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLeaderboard(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}
	leaderboard.Flags().StringVarP(&cfg.game, "game", "g", "", "rank by one game: reaction, typing or pattern (env: SCORECTL_GAME)")
	bindEnv(v, leaderboard.Flags())

	scores := &cobra.Command{
		Use:   "scores",
		Short: "Print the most recent scores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScores(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	load := &cobra.Command{
		Use:   "loadgen",
		Short: "Submit synthetic scores and verify the leaderboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoadgen(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}
	lfs := load.Flags()
	lfs.IntVar(&cfg.players, "players", loadgen.DefaultPlayers, "synthetic players (env: SCORECTL_PLAYERS)")
	lfs.IntVar(&cfg.workers, "workers", loadgen.DefaultWorkers, "concurrent submitters (env: SCORECTL_WORKERS)")
	lfs.DurationVar(&cfg.settle, "settle", loadgen.DefaultSettle, "wait before verifying (env: SCORECTL_SETTLE)")
	bindEnv(v, lfs)

	cmd.AddCommand(watch, submit, leaderboard, scores, load)

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetVersionTemplate("scorectl v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

// bindEnv lets SCORECTL_* variables fill flags the user did not set.
func bindEnv(v *viper.Viper, fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}
