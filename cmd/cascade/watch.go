package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ClaytonHunt/cascade/internal/dashboard"
	"github.com/ClaytonHunt/cascade/internal/engine"
	"github.com/ClaytonHunt/cascade/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the planning directory and keep the view synchronized",
	Long: `Watch the planning directory for record file changes and keep the
hierarchical view synchronized.

File events are debounced per path so editor write bursts and bulk
operations (git checkout, generators) collapse into a single refresh once
the files settle. Each refresh reloads the record set, rebuilds the tree,
and propagates statuses bottom-up, rewriting parent files whose children
have all completed.

With --dashboard, a WebSocket server broadcasts refresh completions,
propagated status changes, and forest statistics to connected clients:
  ws://<addr>/ws

Example usage:
  cascade watch -d ./plans
  cascade watch -d ./plans --dashboard
  cascade watch -d ./plans --read-only --log-file cascade.log`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		logger := newLogger(s)
		readOnly, _ := cmd.Flags().GetBool("read-only")

		eng, err := engine.New(engine.Config{
			Dir:           s.Dir,
			CacheCapacity: s.CacheCapacity,
			Logger:        logger,
			ReadOnly:      readOnly,
		})
		if err != nil {
			return fmt.Errorf("failed to create engine: %w", err)
		}

		w, err := watcher.New()
		if err != nil {
			return fmt.Errorf("failed to create watcher: %w", err)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		eng.Start(ctx)

		deb := watcher.NewDebouncer(s.Debounce, eng.OnSettled)
		defer deb.Stop()

		if err := w.Start(s.Dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", s.Dir, err)
		}
		defer w.Stop()

		if useDashboard, _ := cmd.Flags().GetBool("dashboard"); useDashboard {
			if addr, _ := cmd.Flags().GetString("dashboard-addr"); addr != "" {
				s.DashboardAddr = addr
			}
			server := dashboard.NewServer(&dashboard.Config{
				Addr:   s.DashboardAddr,
				Logger: logger,
			})
			if err := server.Start(); err != nil {
				return fmt.Errorf("failed to start dashboard: %w", err)
			}
			defer server.Stop()

			handler := dashboard.NewHandler(server, eng, logger)
			go handler.Watch(ctx)

			fmt.Printf("Dashboard: ws://%s/ws\n", server.GetAddr())
		}

		// Populate the view before the first event arrives.
		sum := eng.Refresh()
		fmt.Printf("Watching %s (%d records)\n", s.Dir, sum.Records)
		fmt.Println("Press Ctrl+C to stop...")

		for {
			select {
			case <-ctx.Done():
				fmt.Println("\nShutting down...")
				return nil
			case ev, ok := <-w.Events():
				if !ok {
					return nil
				}
				logger.Printf("fs: %s %s", ev.Op, ev.Path)
				deb.Notify(ev.Path)
			case err, ok := <-w.Errors():
				if !ok {
					return nil
				}
				logger.Printf("watch error: %v", err)
			}
		}
	},
}

func init() {
	watchCmd.Flags().Bool("dashboard", false, "Serve the WebSocket dashboard")
	watchCmd.Flags().String("dashboard-addr", "", "Dashboard listen address (overrides config)")
	watchCmd.Flags().Bool("read-only", false, "Never rewrite record files (no status propagation)")
	rootCmd.AddCommand(watchCmd)
}
