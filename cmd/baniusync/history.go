package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"baniusync/internal/config"
	"baniusync/internal/journal"
	"baniusync/internal/progress"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List uploads recorded in the journal",
		RunE:  runHistory,
	}
	cmd.Flags().String("session", "", "Only show this session")
	cmd.Flags().Int("limit", 50, "Number of recent uploads to show")
	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Resolve(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.Journal == "" {
		return errors.New("journal is disabled")
	}

	store, err := journal.NewSQLiteStore(cfg.Journal)
	if err != nil {
		return err
	}
	defer store.Close()

	session, _ := cmd.Flags().GetString("session")
	limit, _ := cmd.Flags().GetInt("limit")

	var records []*journal.Record
	if session != "" {
		records, err = store.ListSession(session)
	} else {
		records, err = store.Recent(limit)
	}
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "UPLOADED\tSESSION\tKEY\tSIZE\tPATH")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			rec.UploadedAt.Local().Format("2006-01-02 15:04:05"),
			rec.Session,
			rec.RemoteKey,
			progress.FormatBytes(rec.Size),
			rec.LocalPath,
		)
	}
	return w.Flush()
}
