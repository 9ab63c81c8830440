// Command quark inspects, benchmarks and configures the quark reactive
// runtime.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/quark/internal/config"
	"github.com/vango-dev/quark/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╔═╗ ╦ ╦┌─┐┬─┐┬┌─
  ║═╬╗║ ║├─┤├┬┘├┴┐
  ╚═╝╚╚═╝┴ ┴┴└─┴ ┴
`

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	dir        string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.Fprint(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "quark",
		Short: "Fine-grained reactive state for Go",
		Long: `quark is a fine-grained reactive state engine for Go.

The CLI works with the runtime directly:

  • Benchmark propagation, batching and teardown
  • Inspect a live graph over HTTP and WebSocket
  • Create and validate quark.json / quark.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file (default: quark.json or quark.yaml in --dir)")
	rootCmd.PersistentFlags().StringVarP(&flags.dir, "dir", "C", ".", "Directory to look for config files in")

	rootCmd.AddCommand(
		versionCmd(),
		configCmd(flags),
		benchCmd(flags),
		inspectCmd(flags),
	)

	return rootCmd
}

// loadConfig loads the configuration selected by the global flags.
func (f *globalFlags) loadConfig() (*config.Config, error) {
	if f.configPath != "" {
		return config.LoadFile(f.configPath)
	}
	return config.Load(f.dir)
}

// setupLogger builds the command logger and installs it as the default, so
// the runtime's fallback error reporter uses it too.
func setupLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	logger := cfg.NewLogger(w)
	slog.SetDefault(logger)
	return logger
}

// printBanner prints the quark ASCII art banner.
func printBanner(w io.Writer) {
	fmt.Fprint(w, banner)
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}
