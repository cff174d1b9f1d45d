// Package cli implements the taskbench command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Swind/go-task-scheduler/core"
	"github.com/Swind/go-task-scheduler/internal/report"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "TASKBENCH"

// app carries the state shared by every subcommand of one root command.
type app struct {
	v       *viper.Viper
	cfgFile string
	logger  core.Logger
	zl      zerolog.Logger
}

// Execute runs the root command with the provided context
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

// newRootCmd creates the root command
func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), logger: core.NewNoOpLogger(), zl: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "taskbench",
		Short: "taskbench - work-stealing scheduler benchmarks",
		Long: `taskbench measures the work-stealing task scheduler against a shared-queue
pool and a goroutine-per-task pool over a grid of task and thread counts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.taskbench.yaml)")
	flags.StringP("output", "o", "table", "output format (table, json, yaml)")
	flags.BoolP("verbose", "v", false, "verbose output with debug logging")
	flags.Bool("no-color", false, "disable colored output")

	a.bind(flags.Lookup("output"), "output")
	a.bind(flags.Lookup("verbose"), "verbose")
	a.bind(flags.Lookup("no-color"), "no-color")

	rootCmd.AddCommand(newRunCmd(a))
	rootCmd.AddCommand(newListCmd(a))
	rootCmd.AddCommand(newVersionCmd(a))

	return rootCmd
}

// initConfig initializes configuration and logging
func (a *app) initConfig(cmd *cobra.Command) error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		a.v.AddConfigPath(home)
		a.v.SetConfigType("yaml")
		a.v.SetConfigName(".taskbench")
	}

	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	a.setupLogging(cmd.ErrOrStderr())
	return nil
}

// setupLogging builds the zerolog console logger used by the scheduler,
// the pools and the commands.
func (a *app) setupLogging(w io.Writer) {
	level := zerolog.InfoLevel
	if a.v.GetBool("verbose") {
		level = zerolog.DebugLevel
	}

	a.zl = zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    a.v.GetBool("no-color"),
		TimeFormat: "15:04:05.000",
	}).Level(level).With().Timestamp().Logger()
	a.logger = core.NewZerologLogger(a.zl)

	if used := a.v.ConfigFileUsed(); used != "" {
		a.logger.Debug("loaded configuration", core.F("file", used))
	}
}

func (a *app) formatter() (report.Formatter, error) {
	format, err := report.ParseFormat(a.v.GetString("output"))
	if err != nil {
		return nil, err
	}
	return report.NewFormatter(format, report.WithNoColor(a.v.GetBool("no-color"))), nil
}

// bind ties a flag to a viper key so flags override env and config file.
func (a *app) bind(flag *pflag.Flag, key string) {
	if err := a.v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind flag %q: %v", key, err))
	}
}
