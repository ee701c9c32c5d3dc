package commands

import (
	"os"
	"path/filepath"
	"time"

	"canvasgrab/lib/serviceutil"
	"canvasgrab/lib/sqliteutil"
	"canvasgrab/services/archiver"
	"canvasgrab/services/archiver/db"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	manifestDb      *string
	manifestFlagged *bool
)

func init() {
	manifestDb = manifestCmd.Flags().String("db", "", "The manifest database path, defaults to <download_dir>/manifest.db.")
	manifestFlagged = manifestCmd.Flags().Bool("flagged", false, "Only show downloads that failed content validation.")
	rootCmd.AddCommand(manifestCmd)
}

var manifestCmd = &cobra.Command{
	Use:   "manifest [--db <path/to/manifest.db>] [--flagged]",
	Short: "Shows the download outcomes recorded by previous archive runs.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()

		dbPath := *manifestDb
		if dbPath == "" {
			dbPath = filepath.Join(cfg.DownloadDir, "manifest.db")
		}
		database, err := sqliteutil.OpenDB(db.Schema, dbPath)
		if err != nil {
			serviceutil.Fatal("failed to open manifest db", err)
		}
		defer database.Close()

		manifest := archiver.NewManifest(database)
		var entries []archiver.ManifestEntry
		if *manifestFlagged {
			entries, err = manifest.Flagged(cmd.Context())
		} else {
			entries, err = manifest.All(cmd.Context())
		}
		if err != nil {
			serviceutil.Fatal("failed to read manifest", err)
		}

		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Path", "Bytes", "Valid", "Message", "Time"})
		for _, e := range entries {
			t.AppendRow(table.Row{
				e.LocalPath,
				e.ByteCount,
				e.Validated,
				e.Message,
				e.CreatedAt.Format(time.DateTime),
			})
		}
		t.Render()
	},
}
