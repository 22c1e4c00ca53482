// bearmake run [manifest] [-- args]
package cmd

import (
	"github.com/spf13/cobra"
)

func doRun(cmd *cobra.Command, args []string) {
	var programArgs []string
	if len(args) > 0 {
		programArgs = args[1:] // other arguments will be passed to program
	}
	if err := newBuilder(args).BuildAndRun(programArgs); err != nil {
		fatal(err)
	}
}

var runCmd = &cobra.Command{
	Use:   "run [manifest] [-- args...]",
	Short: "Build and run the executable",
	Long:  `Build the executable, then run it with the remaining arguments.`,
	Args:  cobra.MinimumNArgs(1),
	Run:   doRun,
}

func init() {
	// bearmake run subcommand
	rootCmd.AddCommand(runCmd)
	addBuildFlags(runCmd)
}
