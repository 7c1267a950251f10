package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/resumewise/refine-cli/internal/trace"
)

var sessionsLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recent refinement sessions from the trace database",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("sessions"); err != nil {
			return err
		}
		if cfg.Trace.SQLitePath == "" {
			return eris.New("trace.sqlite_path is not configured")
		}

		sink, err := trace.NewSQLiteSink(cfg.Trace.SQLitePath)
		if err != nil {
			return eris.Wrap(err, "open trace database")
		}
		defer sink.Close()

		summaries, err := sink.RecentSessions(cmd.Context(), sessionsLimit)
		if err != nil {
			return eris.Wrap(err, "query sessions")
		}
		if len(summaries) == 0 {
			fmt.Println("no sessions recorded")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SESSION\tSECTIONS\tDECISIONS\tLAST OUTCOME\tLAST ACTIVITY")
		for _, s := range summaries {
			fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n",
				s.SessionID, s.Sections, s.Decisions, s.LastOutcome,
				s.LastAt.Format("2006-01-02 15:04:05"),
			)
		}
		return w.Flush()
	},
}

func init() {
	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "max sessions to list")
	rootCmd.AddCommand(sessionsCmd)
}
