package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"sigother/internal/lookup"
)

const notFoundMessage = "No significant other found"

var (
	resolveRoots    []string
	resolveStrategy string
	resolveNoCache  bool
	resolveFormat   string
)

var resolveCmd = &cobra.Command{
	Use:     "resolve <file>",
	Aliases: []string{"toggle", "find"},
	Short:   "Print the complementary file of a source or test file",
	Long: `Print the path of the file that pairs with <file>: its test when <file>
is a source file, its source when <file> is a test.

Exits with status 1 when nothing is found.

Examples:
  sigother resolve lib/views/hunk-view.js
  sigother resolve spec/octokit_spec.rb --strategy first
  sigother resolve app/models/post.rb --root . --root ../engine --format json`,
	Args: cobra.ExactArgs(1),
	Run:  runResolve,
}

func init() {
	resolveCmd.Flags().StringArrayVar(&resolveRoots, "root", nil,
		"Project root to search (repeatable; replaces the project root and roots.extra)")
	resolveCmd.Flags().StringVar(&resolveStrategy, "strategy", "",
		"Root strategy: first or all (default from roots.strategy)")
	resolveCmd.Flags().BoolVar(&resolveNoCache, "no-cache", false, "Skip the result cache")
	resolveCmd.Flags().StringVar(&resolveFormat, "format", "human", "Output format (human, json, yaml)")

	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) {
	ctx, cancel := signalContext()
	defer cancel()

	found, err := resolveFile(ctx, os.Stdout, os.Stderr, args[0])
	if err != nil {
		exitWithError(err)
	}
	if !found {
		os.Exit(1)
	}
}

// resolveFile runs one lookup and writes the answer to stdout. It reports
// whether a complement was found.
func resolveFile(ctx context.Context, stdout, stderr io.Writer, file string) (bool, error) {
	format, err := parseOutputFormat(resolveFormat, FormatHuman, FormatJSON, FormatYAML)
	if err != nil {
		return false, err
	}

	candidate, err := filepath.Abs(file)
	if err != nil {
		return false, err
	}

	a, err := loadApp(candidate, stderr)
	if err != nil {
		return false, err
	}
	defer a.Close()

	svc, err := a.lookupService(resolveStrategy, !resolveNoCache)
	if err != nil {
		return false, err
	}

	res, err := svc.Find(ctx, candidate, a.roots(resolveRoots), lookup.FindOptions{NoCache: resolveNoCache})
	if err != nil {
		return false, err
	}

	if format == FormatHuman && !res.Found {
		fmt.Fprintln(stderr, notFoundMessage)
		return false, nil
	}

	out, err := FormatResponse(res, format)
	if err != nil {
		return false, err
	}
	fmt.Fprintln(stdout, out)
	return res.Found, nil
}
