// bearmake init [path], bearmake clean [manifest]
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/qobs-build/bearmake/internal/manifest"
	"github.com/qobs-build/bearmake/internal/msg"
	"github.com/spf13/cobra"
)

const defaultManifestName = "bear.make"

// writefile creates path with content unless it already exists
func writefile(content string, elem ...string) bool {
	path := filepath.Join(elem...)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err = os.WriteFile(path, []byte(content), 0o644); err != nil {
			msg.Fatal("create file %s: %v", path, err)
		}
		fmt.Printf("%s file: %s\n", color.HiGreenString("Created"), filepath.ToSlash(path))
		return true
	}
	return false
}

func getProgramName() string {
	if len(os.Args) == 0 {
		return "bearmake"
	}
	basename := filepath.Base(os.Args[0])
	return strings.TrimSuffix(basename, filepath.Ext(basename))
}

func doInit(path string) {
	if !writefile(manifest.Example, path) {
		msg.Warn("%s already exists, leaving it alone", path)
		return
	}
	fmt.Printf("Edit it, then run %s to build.\n", color.HiCyanString(getProgramName()+" "+path))
}

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write an example manifest",
	Long:  `Write an example manifest to path (default "` + defaultManifestName + `"). Existing files are never overwritten.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := defaultManifestName
		if len(args) > 0 {
			path = args[0]
		}
		doInit(path)
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean [manifest]",
	Short: "Remove the build folder, forcing a full rebuild next time",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		b := newBuilder(args)
		if err := b.Clean(); err != nil {
			fatal(err)
		}
		msg.Info("removed %s", b.BuildRoot())
	},
}

func init() {
	// bearmake init subcommand
	rootCmd.AddCommand(initCmd)

	// bearmake clean subcommand
	rootCmd.AddCommand(cleanCmd)
}
