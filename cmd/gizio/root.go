package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ucsd-galaxy-lab/gizio"
	"github.com/ucsd-galaxy-lab/gizio/snap"
)

// config holds the settings shared by every subcommand. Values come from
// flags, GIZIO_* environment variables and .gizio.toml, in that order.
type config struct {
	Spec     string `mapstructure:"spec"`
	Suffix   string `mapstructure:"suffix"`
	LogLevel string `mapstructure:"log_level"`
}

// app carries the state one invocation of the command tree needs.
type app struct {
	v   *viper.Viper
	cfg config
	log zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), log: zerolog.Nop()}

	root := &cobra.Command{
		Use:           "gizio",
		Short:         "Inspect particle snapshots",
		Long:          "gizio reads multi-file particle snapshots and reports on their headers and fields.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default .gizio.toml)")
	flags.String("spec", "gizmo", "snapshot format: a built-in name or a TOML file")
	flags.String("suffix", gizio.DefaultSuffix, "snapshot file suffix")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")

	_ = a.v.BindPFlag("spec", flags.Lookup("spec"))
	_ = a.v.BindPFlag("suffix", flags.Lookup("suffix"))
	_ = a.v.BindPFlag("log_level", flags.Lookup("log-level"))

	root.AddCommand(a.headerCmd(), a.keysCmd(), a.statCmd())
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
	} else {
		a.v.SetConfigName(".gizio")
		a.v.SetConfigType("toml")
		a.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			a.v.AddConfigPath(home)
		}
	}

	a.v.SetEnvPrefix("GIZIO")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		// A missing default config file is fine, an explicit one isn't.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	if err := a.v.Unmarshal(&a.cfg); err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}

	level, err := zerolog.ParseLevel(a.cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("bad log level '%s': %w", a.cfg.LogLevel, err)
	}
	a.log = zerolog.New(cmd.ErrOrStderr()).With().Timestamp().Logger().Level(level)
	return nil
}

// load opens the snapshot at prefix with the configured format and suffix.
func (a *app) load(prefix string) (*gizio.Snapshot, error) {
	a.log.Info().
		Str("prefix", prefix).
		Str("spec", a.cfg.Spec).
		Str("suffix", a.cfg.Suffix).
		Msg("loading snapshot")
	return gizio.Load(prefix, a.cfg.Suffix, a.cfg.Spec, snap.WithLogger(a.log))
}
