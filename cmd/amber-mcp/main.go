package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/bio-mcp/bio-mcp-amber/internal/amber"
	"github.com/bio-mcp/bio-mcp-amber/internal/config"
	"github.com/bio-mcp/bio-mcp-amber/internal/mcp"
)

func main() {
	root := &cobra.Command{
		Use:          "amber-mcp",
		Short:        "MCP server exposing AMBER structure relaxation",
		SilenceUsage: true,
		RunE:         runServe,
	}

	pf := root.PersistentFlags()
	pf.Int64("max-file-size", 100_000_000, "Largest accepted input file in bytes")
	pf.String("timeout", "300", "Budget for the external tools of one request (seconds or Go duration)")
	pf.String("amber-path", "amber", "AMBER installation directory, exported as AMBERHOME when it exists")
	pf.String("pmemd-path", "pmemd", "pmemd (or sander) executable")
	pf.String("tleap-path", "tleap", "tleap executable")
	pf.String("cpptraj-path", "cpptraj", "cpptraj executable")
	pf.String("temp-dir", "", "Root for per-request workspaces (default: system temp dir)")
	pf.Int("structure-preview-bytes", 2000, "Bytes of the relaxed structure returned inline")
	pf.Int("max-concurrent-runs", 0, "Maximum simultaneous runs (0: unlimited)")
	pf.String("force-field-catalog", "", "YAML catalog of force fields and water models")
	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	pf.String("postgres-url", "", "Postgres URL of the run ledger (empty: disabled)")
	pf.Bool("db-debug", false, "Log every ledger query")
	pf.Int("run-history-max", 500, "Ledger rows kept")
	pf.Bool("auto-migrate", false, "Apply pending ledger migrations on startup")
	pf.String("db-migrations-dir", "", "Migrations directory (default: embedded)")
	pf.String("transport", "stdio", "MCP transport: stdio or http")
	pf.String("host", "0.0.0.0", "HTTP host")
	pf.Int("port", 8000, "HTTP port")

	root.AddCommand(serveCmd(), relaxCmd(), prepareCmd(), runsCmd())

	config.Init(root)

	if err := root.Execute(); err != nil {
		log.Fatalf("amber-mcp: %v", err)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the AMBER tools over MCP",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := mcp.DefaultConfig(ctx)
	if err != nil {
		return err
	}
	srv := mcp.New(cfg)
	defer srv.Close()

	switch transport := config.Transport(); transport {
	case "stdio":
		srv.Log.Info("serving MCP over stdio")
		return server.ServeStdio(srv.MCP)
	case "http":
		return serveHTTP(ctx, srv)
	default:
		return fmt.Errorf("unknown transport %q (expected stdio or http)", transport)
	}
}

func serveHTTP(ctx context.Context, srv *mcp.Server) error {
	addr := net.JoinHostPort(config.Host(), strconv.Itoa(config.Port()))

	mux := http.NewServeMux()
	mux.Handle(mcp.EndpointPath, srv.Handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		srv.Log.Info("MCP server listening", "addr", addr, "endpoint", mcp.EndpointPath)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func relaxCmd() *cobra.Command {
	req := amber.NewRelaxRequest("")
	cmd := &cobra.Command{
		Use:   "relax <input.pdb>",
		Short: "Relax one structure and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.InputFile = args[0]
			rt, err := mcp.NewRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := rt.Service.Relax(cmd.Context(), req)
			if err != nil {
				return err
			}
			return outputResponse(res)
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.ForceField, "force-field", req.ForceField, "Protein force field")
	f.StringVar(&req.WaterModel, "water-model", req.WaterModel, "Water model")
	f.IntVar(&req.Steps, "steps", req.Steps, "Minimization cycles")
	f.BoolVar(&req.Restraints, "restraints", false, "Restrain atoms selected by --restraint-mask")
	f.StringVar(&req.RestraintMask, "restraint-mask", req.RestraintMask, "Amber mask of restrained atoms")
	f.Float64Var(&req.RestraintWeight, "restraint-weight", req.RestraintWeight, "Restraint force constant (kcal/mol/A^2)")
	f.StringVar(&req.OutputDir, "output-dir", "", "Directory that receives the relaxed structure and log")
	return cmd
}

func prepareCmd() *cobra.Command {
	req := amber.NewPrepareRequest("")
	cmd := &cobra.Command{
		Use:   "prepare <input.pdb>",
		Short: "Build AMBER topology and coordinates for one structure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.InputFile = args[0]
			rt, err := mcp.NewRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := rt.Service.Prepare(cmd.Context(), req)
			if err != nil {
				return err
			}
			return outputResponse(res)
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.ForceField, "force-field", req.ForceField, "Protein force field")
	f.StringVar(&req.WaterModel, "water-model", req.WaterModel, "Water model")
	f.StringVar(&req.OutputDir, "output-dir", "", "Directory that receives topology, coordinates and prepared structure")
	return cmd
}

func runsCmd() *cobra.Command {
	var (
		limit int
		id    string
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recorded runs from the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.PostgresURL() == "" {
				return errors.New("--postgres-url (BIO_MCP_POSTGRES_URL) is required")
			}
			rt, err := mcp.NewRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			if id != "" {
				run, err := rt.Runs().GetRun(cmd.Context(), id)
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("run %s not found", id)
				}
				return outputResponse(run)
			}
			runs, err := rt.Service.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return outputResponse(runs)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to list")
	cmd.Flags().StringVar(&id, "id", "", "Show a single run")
	return cmd
}

func outputResponse(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
