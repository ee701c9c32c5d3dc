package commands

import (
	"context"
	"fmt"
	"os"

	"canvasgrab/lib/telemetry"

	"github.com/spf13/cobra"
)

var verbose *bool

var rootCmd = &cobra.Command{
	Use:   "canvasgrab",
	Short: "canvasgrab archives canvas course content to local files.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*verbose)
	},
}

func init() {
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging and request dumps.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
