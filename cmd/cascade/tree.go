package main

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ClaytonHunt/cascade/internal/engine"
	"github.com/ClaytonHunt/cascade/internal/hierarchy"
	"github.com/ClaytonHunt/cascade/internal/record"
)

// Status colors follow the usual traffic-light reading: green for done,
// yellow for active, red for blocked, dim for idle.
var (
	styleID       = lipgloss.NewStyle().Bold(true)
	styleProgress = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	statusStyles = map[record.Status]lipgloss.Style{
		record.StatusNotStarted: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		record.StatusInPlanning: lipgloss.NewStyle().Foreground(lipgloss.Color("75")),
		record.StatusReady:      lipgloss.NewStyle().Foreground(lipgloss.Color("81")),
		record.StatusInProgress: lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		record.StatusBlocked:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		record.StatusCompleted:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		record.StatusArchived:   lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Strikethrough(true),
	}
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the current planning hierarchy",
	Long: `Print the planning hierarchy as an indented tree with per-record status
and leaf progress counts.

The tree is built from a one-shot read-only refresh: no record file is
rewritten. Progress counts leaf records (stories and bugs) in each subtree:

  P1 alpha [4/9] in-progress
    E10 auth [4/5] in-progress
      F20 login [4/5] in-progress
        S30 form completed
        ...

Example usage:
  cascade tree -d ./plans`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}

		eng, err := engine.New(engine.Config{
			Dir:           s.Dir,
			CacheCapacity: s.CacheCapacity,
			Logger:        log.New(io.Discard, "", 0),
			ReadOnly:      true,
		})
		if err != nil {
			return fmt.Errorf("failed to create engine: %w", err)
		}

		sum := eng.Refresh()
		if sum.Records == 0 {
			fmt.Printf("No planning records under %s\n", s.Dir)
			return nil
		}

		for _, root := range eng.Roots() {
			printTree(cmd.OutOrStdout(), eng, root, 0)
		}
		return nil
	},
}

func printTree(w io.Writer, eng *engine.Engine, n *hierarchy.Node, depth int) {
	indent := strings.Repeat("  ", depth)

	line := indent + styleID.Render(n.Record.ID) + " " + n.Record.Title
	if p := eng.ProgressOf(n); p != nil {
		line += " " + styleProgress.Render(fmt.Sprintf("[%d/%d]", p.Completed, p.Total))
	}
	if style, ok := statusStyles[n.Record.Status]; ok {
		line += " " + style.Render(string(n.Record.Status))
	} else {
		line += " " + string(n.Record.Status)
	}
	fmt.Fprintln(w, line)

	for _, child := range n.Children {
		printTree(w, eng, child, depth+1)
	}
}

func init() {
	rootCmd.AddCommand(treeCmd)
}
