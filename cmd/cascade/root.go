package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ClaytonHunt/cascade/internal/watcher"
)

var rootCmd = &cobra.Command{
	Use:   "cascade",
	Short: "Live hierarchical view over markdown planning records",
	Long: `Cascade keeps a directory of markdown planning records synchronized with
an in-memory hierarchy of projects, epics, features, stories, and bugs.

Records are plain markdown files with YAML frontmatter, named by ID
(P1-alpha.md, E10-auth.md, S30-form.md). Parent/child relationships come
from the directory layout, with an optional explicit project reference on
epics. Cascade watches the tree, rebuilds the view after edits settle, and
propagates completion upward: a feature whose stories are all completed is
marked completed in its own file.

Configuration is read from cascade.yaml in the planning directory (or the
working directory); flags override the file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringP("dir", "d", ".", "Planning directory to operate on")
	rootCmd.PersistentFlags().String("config", "", "Config file (default: cascade.yaml in the planning directory)")
	rootCmd.PersistentFlags().String("log-file", "", "Log to this file with rotation instead of stderr")
}

// settings is the resolved configuration for one invocation: defaults,
// overlaid by cascade.yaml, overlaid by flags.
type settings struct {
	Dir           string
	Debounce      time.Duration
	CacheCapacity int
	LogFile       string
	DashboardAddr string
}

// loadSettings resolves configuration for cmd. A missing config file is not
// an error; a malformed one is.
func loadSettings(cmd *cobra.Command) (*settings, error) {
	dir, _ := cmd.Flags().GetString("dir")

	v := viper.New()
	v.SetDefault("watch.debounce_ms", int(watcher.DefaultDebounce/time.Millisecond))
	v.SetDefault("cache.capacity", 0)
	v.SetDefault("log.file", "")
	v.SetDefault("dashboard.addr", ":8080")

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName("cascade")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config: %w", err)
			}
		}
	}

	s := &settings{
		Dir:           dir,
		Debounce:      time.Duration(v.GetInt("watch.debounce_ms")) * time.Millisecond,
		CacheCapacity: v.GetInt("cache.capacity"),
		LogFile:       v.GetString("log.file"),
		DashboardAddr: v.GetString("dashboard.addr"),
	}

	if logFile, _ := cmd.Flags().GetString("log-file"); logFile != "" {
		s.LogFile = logFile
	}

	return s, nil
}

// newLogger builds the process logger: a rotating file when configured,
// stderr otherwise.
func newLogger(s *settings) *log.Logger {
	if s.LogFile == "" {
		return log.New(os.Stderr, "[cascade] ", log.LstdFlags)
	}
	return log.New(&lumberjack.Logger{
		Filename:   s.LogFile,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}, "[cascade] ", log.LstdFlags)
}
