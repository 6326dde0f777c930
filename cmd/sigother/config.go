package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sigother/internal/config"
	"sigother/internal/paths"
)

var (
	configFormat    string
	configInitForce bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage sigother configuration",
	Long:  "View and manage sigother configuration stored in .sigother/config.toml",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Display the configuration after defaults, the config file and
SIGOTHER_* environment overrides are applied.

Examples:
  sigother config show
  sigother config show --format json
  sigother config show --format toml > .sigother/config.toml`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := showConfig(os.Stdout, mustGetwd()); err != nil {
			exitWithError(err)
		}
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default .sigother/config.toml",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		path, err := initConfig(mustGetwd(), configInitForce)
		if err != nil {
			exitWithError(err)
		}
		fmt.Printf("Wrote %s\n", path)
	},
}

var configEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "List supported environment variables",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		listEnvVars(os.Stdout)
	},
}

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "human", "Output format (human, toml, json, yaml)")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configEnvCmd)
	rootCmd.AddCommand(configCmd)
}

func showConfig(w io.Writer, start string) error {
	format, err := parseOutputFormat(configFormat, FormatHuman, FormatTOML, FormatJSON, FormatYAML)
	if err != nil {
		return err
	}
	root, err := findProjectRoot(start)
	if err != nil {
		return err
	}
	result, err := config.LoadConfigWithDetails(root)
	if err != nil {
		return err
	}

	var resp interface{} = &ConfigShowResponse{
		ConfigPath:   result.ConfigPath,
		UsedDefaults: result.UsedDefaults,
		EnvOverrides: result.EnvOverrides,
		Config:       result.Config,
	}
	// toml output is meant to be written back as a config file
	if format == FormatTOML {
		resp = result.Config
	}

	out, err := FormatResponse(resp, format)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, out)
	return nil
}

func initConfig(start string, force bool) (string, error) {
	root, err := findProjectRoot(start)
	if err != nil {
		return "", err
	}
	path := paths.ConfigPath(root)
	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.DefaultConfig().Save(root); err != nil {
		return "", err
	}
	return path, nil
}

func listEnvVars(w io.Writer) {
	fmt.Fprintln(w, "Supported environment variables:")
	fmt.Fprintf(w, "  %-38s %s\n", config.EnvConfigPath, "config file location")
	for _, name := range config.GetSupportedEnvVars() {
		path, _ := config.EnvVarPath(name)
		fmt.Fprintf(w, "  %-38s %s\n", name, path)
	}

	if _, err := config.ApplyEnvOverrides(config.DefaultConfig()); err != nil {
		fmt.Fprintln(w, "\nInvalid values:")
		for _, line := range strings.Split(err.Error(), "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
}

func mustGetwd() string {
	cwd, err := os.Getwd()
	if err != nil {
		exitWithError(err)
	}
	return cwd
}
