package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"rtool/pkg/journal"
)

const defaultHistoryLimit = 20

func (a *App) newHistoryCmd() *cobra.Command {
	var (
		limit     int
		artifacts bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs recorded in the journal",
		Args:  usageArgs(cobra.NoArgs),
		RunE: runE(func(ctx context.Context, _ []string) error {
			if err := a.setup(ctx); err != nil {
				return err
			}
			if err := a.requireJournal(); err != nil {
				return err
			}

			runs, err := a.journal.RecentRuns(ctx, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(a.out, "No runs recorded yet.")
				return nil
			}
			fmt.Fprintln(a.out, runsTable(runs, time.Now()))

			if !artifacts {
				return nil
			}
			for i := range runs {
				list, err := a.journal.Artifacts(ctx, runs[i].ID)
				if err != nil {
					return err
				}
				if len(list) == 0 {
					continue
				}
				fmt.Fprintf(a.out, "\n%s %s\n", runs[i].Command, shortID(runs[i].ID))
				fmt.Fprintln(a.out, artifactsTable(list))
			}
			return nil
		}),
	}
	cmd.Flags().IntVar(&limit, "limit", defaultHistoryLimit, "Number of runs to show")
	cmd.Flags().BoolVar(&artifacts, "artifacts", false, "List the artifacts published by each run")
	return cmd
}

func runsTable(runs []journal.Run, now time.Time) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("RUN", "COMMAND", "PROJECTS", "VERSION", "STATUS", "STARTED", "DURATION")
	for i := range runs {
		r := &runs[i]
		duration := "-"
		if !r.FinishedAt.IsZero() {
			duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		status := string(r.Status)
		if r.Error != "" {
			status += ": " + firstLine(r.Error)
		}
		t.Row(shortID(r.ID), r.Command, strings.Join(r.Projects, ","), r.Version, status,
			humanize.RelTime(r.StartedAt, now, "ago", "from now"), duration)
	}
	return t.String()
}

func artifactsTable(list []journal.Artifact) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("PROJECT", "KIND", "NAME", "DESTINATION", "SIZE")
	for i := range list {
		art := &list[i]
		t.Row(art.Project, art.Kind, art.Name, art.Destination, humanize.Bytes(uint64(max(art.Size, 0))))
	}
	return t.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
