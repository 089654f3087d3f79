package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ClaytonHunt/cascade/internal/engine"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one refresh cycle and propagate statuses",
	Long: `Run a single refresh cycle over the planning directory: reload every
record, rebuild the hierarchy, and propagate statuses bottom-up. Parent
files whose children have all completed are rewritten in place (atomic
write-then-rename, only the status and updated lines change).

The command is idempotent: running it again immediately rewrites nothing.

Example usage:
  cascade sync -d ./plans`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		logger := newLogger(s)

		eng, err := engine.New(engine.Config{
			Dir:           s.Dir,
			CacheCapacity: s.CacheCapacity,
			Logger:        logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create engine: %w", err)
		}

		sum := eng.Refresh()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Synced %d records in %v\n", sum.Records, sum.Duration.Round(time.Millisecond))
		for _, path := range sum.Propagation.Touched {
			fmt.Fprintf(out, "  updated %s\n", path)
		}
		if sum.Propagation.Skipped > 0 {
			fmt.Fprintf(out, "  %d file(s) could not be rewritten, see log\n", sum.Propagation.Skipped)
		}
		if sum.Propagation.Writes == 0 {
			fmt.Fprintln(out, "Nothing to propagate")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
