// Command clearspeech scores spoken transcripts against target phrases and
// runs interactive speech practice with coaching feedback.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MrWong99/clearspeech/internal/config"
)

// defaultConfigPath is read when --config is not given and the file exists.
const defaultConfigPath = "clearspeech.yaml"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "clearspeech: %v\n", err)
		}
		return 1
	}
	return 0
}

// newRootCmd builds the command tree. Persistent flags are bound through
// viper so CLEARSPEECH_CONFIG, CLEARSPEECH_LOG_LEVEL and CLEARSPEECH_HISTORY
// override them from the environment.
func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("CLEARSPEECH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "clearspeech",
		Short:         "Score speech transcripts and practise clear speech",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.String("config", "", "path to the YAML configuration file (default "+defaultConfigPath+" when present)")
	pf.String("log-level", "", "log level override: debug, info, warn or error")
	pf.String("history", "", "history file override")
	if err := v.BindPFlags(pf); err != nil {
		panic("clearspeech: bind flags: " + err.Error())
	}

	root.AddCommand(
		newScoreCmd(v),
		newBatchCmd(v),
		newPracticeCmd(v),
		newExercisesCmd(v),
		newStatsCmd(v),
		newInsightsCmd(v),
	)
	return root
}

// loadConfig resolves the configuration file and applies flag and
// environment overrides. It returns the config and the file it was read
// from, which is empty when defaults are used.
func loadConfig(v *viper.Viper) (*config.Config, string, error) {
	path := v.GetString("config")
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}

	cfg, err := config.Load(path)
	switch {
	case err == nil:
	case !explicit && errors.Is(err, os.ErrNotExist):
		cfg, path = config.Default(), ""
	default:
		return nil, "", err
	}

	if lvl := v.GetString("log-level"); lvl != "" {
		cfg.LogLevel = config.LogLevel(strings.ToLower(lvl))
	}
	if h := v.GetString("history"); h != "" {
		cfg.History.Path = h
	}
	if err := config.Validate(cfg); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// ── Logger ─────────────────────────────────────────────────────────────────────

// newLogger returns a text logger on stderr whose level can be changed
// through the returned LevelVar.
func newLogger(level config.LogLevel) (*slog.Logger, *slog.LevelVar) {
	lv := new(slog.LevelVar)
	lv.Set(slogLevel(level))
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lv})), lv
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
