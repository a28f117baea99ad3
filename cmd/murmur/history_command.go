package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"murmur/internal/config"
	"murmur/internal/history"
)

func newHistoryCommand() *cobra.Command {
	var limit int
	var showFiles bool

	historyCmd := &cobra.Command{
		Use:         "history",
		Short:       "List recent transcription runs",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			store, ok, err := openHistory()
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			defer store.Close()

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, renderRunsTable(runs))
			if showFiles {
				for _, run := range runs {
					fmt.Fprintln(out, renderFilesTable(run))
				}
			}
			return nil
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")
	historyCmd.Flags().BoolVar(&showFiles, "files", false, "Show per-file results for each run")

	historyCmd.AddCommand(newHistoryPruneCommand())
	return historyCmd
}

func newHistoryPruneCommand() *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete runs older than a given age",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return errors.New("--older-than must be positive")
			}
			out := cmd.OutOrStdout()
			store, ok, err := openHistory()
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			defer store.Close()
			removed, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return fmt.Errorf("prune history: %w", err)
			}
			fmt.Fprintf(out, "Removed %d run(s)\n", removed)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Remove runs started longer ago than this")
	return cmd
}

// openHistory opens the history database if one exists. It never creates
// one.
func openHistory() (*history.Store, bool, error) {
	path := filepath.Join(config.DefaultDataDir(), history.FileName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	store, err := history.Open(path)
	if err != nil {
		return nil, false, err
	}
	return store, true, nil
}

func renderRunsTable(runs []history.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortRunID(run.ID),
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			formatElapsed(run.FinishedAt.Sub(run.StartedAt)),
			strconv.Itoa(run.Total),
			strconv.Itoa(run.Succeeded),
			strconv.Itoa(run.Failed),
			strconv.Itoa(run.Cancelled),
		})
	}
	return renderTable("",
		[]string{"Run", "Started", "Took", "Files", "Done", "Failed", "Cancelled"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
	)
}

func renderFilesTable(run history.Run) string {
	rows := make([][]string, 0, len(run.Files))
	for _, f := range run.Files {
		detail := f.OutputPath
		if f.ErrorKind != "" {
			detail = f.ErrorKind
		}
		segments, confidence := "", ""
		if f.Status == "done" {
			segments = strconv.Itoa(f.Segments)
			confidence = fmt.Sprintf("%.2f", f.AvgConfidence)
		}
		rows = append(rows, []string{
			filepath.Base(f.Path),
			f.Status,
			f.Language,
			segments,
			confidence,
			detail,
		})
	}
	return renderTable("Run "+shortRunID(run.ID),
		[]string{"File", "Status", "Language", "Segments", "Confidence", "Output / Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	)
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatElapsed(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Minute {
		return d.Round(100 * time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}
