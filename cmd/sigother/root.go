package main

import (
	"github.com/spf13/cobra"

	"sigother/internal/version"
)

var (
	// verbosity counts -v flags: one for info, two for debug
	verbosity   int
	quietFlag   bool
	projectFlag string
)

var rootCmd = &cobra.Command{
	Use:   "sigother",
	Short: "sigother - find a file's significant other",
	Long: `sigother pairs source files with their tests. Given lib/post.rb it finds
test/models/post_test.rb or spec/post_spec.rb, and the other way around.

The search widens one directory at a time, so a file can have its
counterpart anywhere in the project as long as the trailing directories
and the file name agree.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("sigother version {{.Version}}\n")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v",
		"Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false,
		"Suppress all log output")
	rootCmd.PersistentFlags().StringVar(&projectFlag, "project", "",
		"Project root (default: nearest directory with .sigother, .git or a manifest)")
}
