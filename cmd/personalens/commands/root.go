package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"personalens/internal/config"
	"personalens/internal/logging"
	"personalens/internal/metrics"
)

// app holds what every subcommand shares once flags are parsed.
type app struct {
	configPath  string
	jsonOut     bool
	metricsAddr string
	cfg         config.Config
}

// NewRootCmd builds the command tree. Each call returns independent flag state.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "personalens",
		Short:         "personalens reads Nitter timeline snapshots into posts, profile headers and posting cadence.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries command output; log lines go to stderr
			logging.SetOutput(cmd.ErrOrStderr())
			cfg, err := config.LoadOrDefault(a.configPath)
			if err != nil {
				return fmt.Errorf("load config %s: %w", a.configPath, err)
			}
			if a.metricsAddr != "" {
				cfg.Metrics.Addr = a.metricsAddr
			}
			a.cfg = cfg
			metrics.StartServer(cfg.Metrics.Addr)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "./personalens.yaml", "path to config file")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "print JSON instead of tables")
	root.PersistentFlags().StringVar(&a.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")

	root.AddCommand(
		newInitCmd(a),
		newParseCmd(a),
		newAccountCmd(a),
		newCadenceCmd(a),
		newAnalyzeCmd(a),
		newDecodeCmd(a),
		newFetchCmd(a),
		newHistoryCmd(a),
	)
	return root
}

// ExecuteContext runs the CLI and returns the process exit code.
func ExecuteContext(ctx context.Context) int {
	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

// readSnapshot reads a snapshot file, or stdin when path is "-".
func readSnapshot(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func normalizeUsername(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), "@")
}
