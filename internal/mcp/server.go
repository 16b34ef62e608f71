package mcp

import (
	"context"
	"net/http"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bio-mcp/bio-mcp-amber/internal/amber"
	"github.com/bio-mcp/bio-mcp-amber/internal/db"
	"github.com/bio-mcp/bio-mcp-amber/internal/logging"
)

const (
	ServerName    = "bio-mcp-amber"
	ServerVersion = "0.1.0"

	ToolListRuns = "amber_list_runs"
)

type ToolAdapter interface {
	ToolAdapter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

type Server struct {
	MCP     *server.MCPServer
	HTTP    *server.StreamableHTTPServer
	Handler http.Handler
	DB      *db.Database
	Log     logging.Logger
}

// toolDefinitions builds the schemas of every tool the server can expose.
// Enumerations come from the force-field catalog in effect.
func toolDefinitions(catalog *amber.Catalog) map[string]mcp.Tool {
	if catalog == nil {
		catalog = amber.DefaultCatalog()
	}
	forceFields := catalog.ForceFieldNames()
	waterModels := catalog.WaterModelNames()

	return map[string]mcp.Tool{
		amber.ToolRelax: mcp.NewTool(amber.ToolRelax,
			mcp.WithDescription("Relax a protein structure with AMBER: build the system with tleap, minimize it with pmemd and write the minimized model back to PDB with cpptraj. Returns the relaxed structure path, the energy log and the final energy."),
			mcp.WithString("input_file",
				mcp.Required(),
				mcp.Description("Path to the input PDB file on the server"),
			),
			mcp.WithString("force_field",
				mcp.Description("Protein force field (default: ff19SB)"),
				mcp.Enum(forceFields...),
			),
			mcp.WithString("water_model",
				mcp.Description("Water model whose parameters are loaded (default: tip3p)"),
				mcp.Enum(waterModels...),
			),
			mcp.WithNumber("steps",
				mcp.Description("Number of minimization cycles (default: 10000)"),
			),
			mcp.WithBoolean("restraints",
				mcp.Description("Apply positional restraints during minimization (default: false)"),
			),
			mcp.WithString("restraint_mask",
				mcp.Description("Amber mask of restrained atoms (default: @CA,C,N)"),
			),
			mcp.WithNumber("restraint_weight",
				mcp.Description("Restraint force constant in kcal/mol/A^2 (default: 10.0)"),
			),
			mcp.WithString("output_dir",
				mcp.Description("Optional: existing directory that receives copies of the relaxed structure and the minimization log"),
			),
		),
		amber.ToolPrepare: mcp.NewTool(amber.ToolPrepare,
			mcp.WithDescription("Prepare an AMBER system with tleap: load the structure, neutralize it and write topology (prmtop) and coordinates (inpcrd)."),
			mcp.WithString("input_file",
				mcp.Required(),
				mcp.Description("Path to the input PDB file on the server"),
			),
			mcp.WithString("force_field",
				mcp.Description("Protein force field (default: ff19SB)"),
				mcp.Enum(forceFields...),
			),
			mcp.WithString("water_model",
				mcp.Description("Water model (default: tip3p)"),
				mcp.Enum(waterModels...),
			),
			mcp.WithString("output_dir",
				mcp.Description("Optional: existing directory that receives copies of the topology, coordinates and prepared structure"),
			),
		),
		ToolListRuns: mcp.NewTool(ToolListRuns,
			mcp.WithDescription("List the most recent AMBER runs recorded by this server, newest first, with status, error kind and final energy."),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of runs to return (default: 20, max: 200)"),
			),
		),
	}
}

func New(cfg Config) *Server {
	log := cfg.Logger
	if log.IsZero() {
		log = logging.New(logging.DefaultLogger())
	}
	log = log.WithName("mcp")

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	definitions := toolDefinitions(cfg.Catalog)
	names := make([]string, 0, len(cfg.ToolAdapters))
	for name, adapter := range cfg.ToolAdapters {
		tool, ok := definitions[name]
		if !ok {
			log.Info("skipping tool without a schema", "tool", name)
			continue
		}
		mcpServer.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return adapter.ToolAdapter(ctx, req)
		})
		names = append(names, name)
	}
	sort.Strings(names)
	log.Info("tools registered", "tools", names)

	httpServer := server.NewStreamableHTTPServer(mcpServer, cfg.Options...)

	return &Server{
		MCP:     mcpServer,
		HTTP:    httpServer,
		Handler: httpServer,
		DB:      cfg.Database,
		Log:     log,
	}
}

func (s *Server) Close() {
	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			s.Log.Error(err, "error closing database")
		}
	}
}
