// bearmake [manifest], bearmake build [manifest]
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/qobs-build/bearmake/internal/builder"
	"github.com/qobs-build/bearmake/internal/manifest"
	"github.com/qobs-build/bearmake/internal/msg"
	"github.com/spf13/cobra"
)

var (
	flagExample bool
	flagNoCache bool
	flagRelease bool
	flagVerbose bool
	flagColor   EnumValue = NewEnumValue("auto", map[string]string{
		"auto":   "Color when writing to a terminal (default)",
		"always": "Always color output",
		"never":  "Never color output",
	})
)

var errNoManifest = errors.New("no manifest given (use --example to print a sample one)")

// newBuilder creates a builder for the manifest at args[0], in the current
// directory
func newBuilder(args []string) *builder.Builder {
	if len(args) == 0 {
		msg.Fatal("%v", errNoManifest)
	}
	b, err := builder.NewBuilder(builder.Options{
		ManifestPath: args[0],
		Release:      flagRelease,
		NoCache:      flagNoCache,
	})
	if err != nil {
		fatal(err)
	}
	return b
}

// fatal reports err and exits 1. Compiler and linker output is printed
// as-is ahead of the headline.
func fatal(err error) {
	var berr *builder.Error
	switch {
	case errors.As(err, &berr) && berr.Output != "":
		fmt.Fprintln(os.Stderr, color.RedString(berr.Output))
		headline := *berr
		headline.Output = ""
		msg.Fatal("%v", &headline)
	default:
		msg.Fatal("%v", err)
	}
}

func doBuild(cmd *cobra.Command, args []string) {
	if flagExample {
		fmt.Print(manifest.Example)
		return
	}
	if _, err := newBuilder(args).Build(); err != nil {
		fatal(err)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bearmake [manifest]",
	Short: "Incremental build driver for C and C++ programs",
	Long: `bearmake compiles the sources listed in a manifest into one executable,
recompiling only the files whose contents (or included headers) changed
since the last run. Object files and hashes are kept in the build folder.`,
	Args:             cobra.MaximumNArgs(1),
	Run:              doBuild,
	PersistentPreRun: applyGlobalFlags,
}

var buildCmd = &cobra.Command{
	Use:   "build [manifest]",
	Short: "Build the executable described by the manifest",
	Args:  cobra.MaximumNArgs(1),
	Run:   doBuild,
}

func init() {
	rootCmd.Flags().BoolVarP(&flagExample, "example", "e", false, "Print an example manifest and exit")
	addBuildFlags(rootCmd)

	// bearmake build subcommand
	rootCmd.AddCommand(buildCmd)
	addBuildFlags(buildCmd)

	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Explain why each file is (or is not) recompiled")
	rootCmd.PersistentFlags().Var(&flagColor, "color", "Colorize output, one of "+flagColor.HelpString())
	rootCmd.RegisterFlagCompletionFunc("color", flagColor.CompletionFunc())
}

func addBuildFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&flagNoCache, "no-optimization", "n", false, "Recompile everything, without keeping object files or hashes")
	cmd.Flags().BoolVarP(&flagRelease, "release", "r", false, "Build in release mode (optimized, no debug info)")
}

func applyGlobalFlags(cmd *cobra.Command, args []string) {
	msg.Verbose = flagVerbose
	switch flagColor.Value() {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
