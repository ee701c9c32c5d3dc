package commands

import (
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"canvasgrab/lib/serviceutil"
	"canvasgrab/lib/sqliteutil"
	"canvasgrab/services/archiver"
	"canvasgrab/services/archiver/db"

	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/spf13/cobra"
)

var errMissingBaseUrl = errors.New("base_url is required")

var archiveDb *string

func init() {
	archiveDb = archiveCmd.Flags().String("db", "", "The manifest database path, defaults to <download_dir>/manifest.db.")
	rootCmd.AddCommand(archiveCmd)
}

var archiveCmd = &cobra.Command{
	Use:   "archive [--db <path/to/manifest.db>]",
	Short: "Downloads every course, module and item the session can see.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()
		client := createClient(cmd.Context(), cfg)

		dbPath := *archiveDb
		if dbPath == "" {
			dbPath = filepath.Join(cfg.DownloadDir, "manifest.db")
		}
		database, err := sqliteutil.OpenDB(db.Schema, dbPath)
		if err != nil {
			serviceutil.Fatal("failed to open manifest db", err)
		}
		defer database.Close()

		pw := progress.NewWriter()
		pw.SetUpdateFrequency(time.Millisecond * 250)
		go pw.Render()
		defer pw.Stop()

		downloader := &archiver.Downloader{
			Client:   client.Core,
			Progress: pw,
			Manifest: archiver.NewManifest(database),
		}
		a := archiver.New(client, downloader, archiver.Options{
			Root:  cfg.DownloadDir,
			Delay: cfg.Delay(),
		})

		t1 := time.Now()
		err = a.Run(cmd.Context())
		t2 := time.Now()
		if err != nil {
			serviceutil.Fatal("archive run failed", err)
		}

		slog.Info("archive run finished", "seconds", t2.Sub(t1).Seconds())
	},
}
