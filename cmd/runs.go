package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/parkprofile/internal/model"
	"github.com/sells-group/parkprofile/internal/store"
	"github.com/sells-group/parkprofile/internal/table"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect profiling run history",
	Long:  "Commands for listing, viewing, and summarizing profiling runs and their stored rows.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiling runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		mode, _ := cmd.Flags().GetString("mode")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status: model.RunStatus(status),
			Mode:   model.RunMode(mode),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

// -- runs rows --

var runsRowsCmd = &cobra.Command{
	Use:   "rows <run-id>",
	Short: "Print the stored profile rows of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		rs, err := st.ListRows(ctx, args[0], limit, offset)
		if err != nil {
			return eris.Wrap(err, "runs rows")
		}

		formatRowSet(os.Stdout, rs)
		return nil
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		mode, _ := cmd.Flags().GetString("mode")
		runs, err := st.ListRuns(ctx, store.RunFilter{
			Mode:  model.RunMode(mode),
			Limit: 10000, // high limit for stats
		})
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		formatRunStats(os.Stdout, computeRunStats(runs))
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (queued, loading, profiling, exporting, complete, failed)")
	runsListCmd.Flags().String("mode", "", "filter by mode (villages, countries)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsRowsCmd.Flags().Int("limit", 20, "max number of rows to display")
	runsRowsCmd.Flags().Int("offset", 0, "number of rows to skip")

	runsStatsCmd.Flags().String("mode", "", "filter by mode (villages, countries)")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsRowsCmd)
	runsCmd.AddCommand(runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}

// runStats holds aggregate statistics computed from a set of runs.
type runStats struct {
	Total      int
	Complete   int
	Failed     int
	Other      int
	Rows       int
	Nulled     int
	Unknown    map[string]int
	AvgDurSecs float64
}

// computeRunStats computes aggregate statistics from a list of runs.
func computeRunStats(runs []model.Run) runStats {
	s := runStats{Total: len(runs), Unknown: make(map[string]int)}

	var totalMs int64
	var durCount int

	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete:
			s.Complete++
			if r.Summary == nil {
				continue
			}
			s.Rows += r.Summary.Rows
			s.Nulled += r.Summary.Nulled
			for layer, n := range r.Summary.UnknownCodes {
				s.Unknown[layer] += n
			}
			totalMs += r.Summary.DurationMs
			durCount++
		case model.RunStatusFailed:
			s.Failed++
		default:
			s.Other++
		}
	}

	if durCount > 0 {
		s.AvgDurSecs = float64(totalMs) / 1000 / float64(durCount)
	}
	return s
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tMODE\tSTATUS\tROWS\tNULLED\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t----\t------\t----\t------\t-------\t--------")

	for _, r := range runs {
		rows, nulled, dur := "", "", ""
		if r.Summary != nil {
			rows = fmt.Sprint(r.Summary.Rows)
			nulled = fmt.Sprint(r.Summary.Nulled)
			dur = (time.Duration(r.Summary.DurationMs) * time.Millisecond).Round(time.Millisecond).String()
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.Mode,
			r.Status,
			rows,
			nulled,
			r.CreatedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// formatRunStats writes aggregate stats to w.
func formatRunStats(out io.Writer, s runStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Complete:\t%d\n", s.Complete)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "Other:\t%d\n", s.Other)
	_, _ = fmt.Fprintf(w, "Rows:\t%d\n", s.Rows)
	_, _ = fmt.Fprintf(w, "Nulled cells:\t%d\n", s.Nulled)

	layers := make([]string, 0, len(s.Unknown))
	for l := range s.Unknown {
		layers = append(layers, l)
	}
	sort.Strings(layers)
	for _, l := range layers {
		_, _ = fmt.Fprintf(w, "  Unknown %s codes:\t%d\n", l, s.Unknown[l])
	}
	if s.AvgDurSecs > 0 {
		_, _ = fmt.Fprintf(w, "Avg duration:\t%.1fs\n", s.AvgDurSecs)
	}
	_ = w.Flush()
}

// formatRowSet writes stored rows as a table, nulls left blank.
func formatRowSet(out io.Writer, rs *store.RowSet) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(rs.Columns, "\t"))

	cells := make([]string, len(rs.Columns))
	for _, row := range rs.Rows {
		for i := range cells {
			cells[i] = ""
			if i < len(row) {
				cells[i] = table.FormatCell(row[i])
			}
		}
		_, _ = fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	_ = w.Flush()
	_, _ = fmt.Fprintf(out, "%d of %d rows\n", len(rs.Rows), rs.Total)
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
