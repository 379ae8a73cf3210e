package main

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/ldcrawl/internal/config"
)

//go:embed templates/ldcrawl.yaml
var configTemplate []byte

// configFileName is where init writes by default.
const configFileName = config.DefaultConfigFile

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter site configuration file",
		Long: `Init writes a commented site configuration: link-following defaults
plus examples of per-host cookies, headers and URL patterns.

Without flags the file is .ldcrawl in the current directory. With --global
it goes to the user's XDG config directory, where every crawl finds it.

Examples:
  ldcrawl init
  ldcrawl init --global
  ldcrawl init -o sites.yaml -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", configFileName, "file to write")
	cmd.Flags().Bool("global", false, "write to the XDG config directory")
	cmd.Flags().BoolP("force", "f", false, "replace an existing file")
	cmd.MarkFlagsMutuallyExclusive("output", "global")

	return cmd
}

func runInitCmd(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	path, err := flags.GetString("output")
	if err != nil {
		return err
	}
	global, err := flags.GetBool("global")
	if err != nil {
		return err
	}
	force, err := flags.GetBool("force")
	if err != nil {
		return err
	}
	if global {
		path = filepath.Join(config.XDGConfigDir(), "config.yaml")
	}

	if err := writeConfigTemplate(path, force); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n\n", path)
	fmt.Fprintln(out, "Without --config, crawl reads the first of:")
	for _, p := range config.SearchPaths() {
		fmt.Fprintf(out, "  %s\n", p)
	}
	return nil
}

// writeConfigTemplate creates path with the embedded template. An existing
// file is only replaced when force is set.
func writeConfigTemplate(path string, force bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	mode := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		mode = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, mode, 0600) //nolint:gosec // path comes from the user
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", path)
	}
	if err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	if _, err := f.Write(configTemplate); err != nil {
		f.Close()
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	return f.Close()
}
