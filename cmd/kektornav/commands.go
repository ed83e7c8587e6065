package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	rootCmd = &cobra.Command{
		Use:   "kektornav",
		Short: "A* pathfinding server for waypoint graphs and tile grids",
		Long: `KektorNav keeps named navigation graphs and tile grids in memory,
persists them to an append-only file and answers shortest-path queries
over HTTP and MCP.`,
		SilenceUsage: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API (and optionally an MCP server on stdio)",
		Args:  cobra.NoArgs,
		RunE:  runServe, // Defined in cmd_serve.go
	}

	pathCmd = &cobra.Command{
		Use:   "path [document] [start] [end]",
		Short: "Find a path in a YAML graph document without a server",
		Args:  cobra.ExactArgs(3),
		RunE:  runPath, // Defined in cmd_path.go
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "kektornav %s\n", version)
		},
	}
)

func init() {
	serveCmd.Flags().StringVarP(&serveFlags.configPath, "config", "c", "", "Path to the YAML configuration file")
	serveCmd.Flags().StringVar(&serveFlags.httpAddr, "http-addr", "", "HTTP listen address (overrides http_addr)")
	serveCmd.Flags().StringVar(&serveFlags.dataDir, "data-dir", "", "Directory of the append-only file (overrides data_dir)")
	serveCmd.Flags().StringVar(&serveFlags.logLevel, "log-level", "", "debug, info, warn or error (overrides log_level)")
	serveCmd.Flags().BoolVar(&serveFlags.mcp, "mcp", false, "Also serve the MCP tools on stdin/stdout")

	pathCmd.Flags().StringVar(&pathFlags.heuristic, "heuristic", "", "euclidean (default), manhattan or zero")
	pathCmd.Flags().Float64Var(&pathFlags.scale, "heuristic-scale", 0, "Multiplier applied to heuristic estimates")
	pathCmd.Flags().UintSliceVar(&pathFlags.exclude, "exclude-area", nil, "Area tags the path must not enter")
	pathCmd.Flags().BoolVar(&pathFlags.partial, "partial", false, "Print the best partial path when the goal is unreachable")
	pathCmd.Flags().IntVar(&pathFlags.maxNodes, "max-nodes", 0, "Cap on node expansions (0 means unlimited)")
	pathCmd.Flags().BoolVar(&pathFlags.json, "json", false, "Print the result as JSON")

	rootCmd.AddCommand(serveCmd, pathCmd, versionCmd)
}

// setupLogging installs the default text logger on stderr, keeping stdout
// free for MCP traffic.
func setupLogging(level slog.Level) {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
