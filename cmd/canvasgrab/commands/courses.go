package commands

import (
	"os"

	"canvasgrab/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(coursesCmd)
}

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "Lists the courses visible to the current session.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()
		client := createClient(cmd.Context(), cfg)

		courses, err := client.Courses(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to list courses", err)
		}

		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Id", "Name"})
		for _, c := range courses {
			t.AppendRow(table.Row{c.Id, c.Name})
		}
		t.Render()
	},
}
