package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/config"
	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/logger"
	"github.com/Epistemic-Technology/esa-assembly-mcp/server"
)

var (
	serveTransport string
	serveAddr      string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the MCP server exposing the assembly tools and artifact resources.

Examples:
  esa-assembly serve                                   # stdio, for local MCP clients
  esa-assembly serve --transport http --addr :8080     # streamable HTTP`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cm, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		cfg, err := serveConfig(cmd, cm)
		if err != nil {
			return err
		}

		log, err := newLogger(cfg)
		if err != nil {
			return err
		}
		log.Info("Starting esa-assembly server %s", version)
		if used := cm.ConfigFileUsed(); used != "" {
			log.Info("Loaded configuration from %s", used)
		}

		svc, store, err := server.NewService(cfg, log)
		if err != nil {
			return err
		}
		defer store.Close()

		cm.OnChange(func(c *config.Config) {
			svc.SetOptions(server.PipelineOptions(c))
			if c.Log.Level != "" {
				log.SetLevel(logger.ParseLevel(c.Log.Level))
			}
			log.Info("Reloaded configuration")
		})
		if cm.ConfigFileUsed() != "" {
			cm.WatchConfig(log.Named("config"))
		}

		srv := server.CreateServer(svc, log, version)
		switch cfg.Server.Transport {
		case "http":
			return serveHTTP(ctx, srv, cfg.Server.Addr, log)
		default:
			if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Server failed: %v", err)
				return err
			}
			return nil
		}
	},
}

// serveConfig applies the command line flags to a copy of the loaded
// configuration. The manager's configuration is left untouched.
func serveConfig(cmd *cobra.Command, cm *config.Manager) (*config.Config, error) {
	cfg := *cm.Get()
	if cmd.Flags().Changed("transport") {
		cfg.Server.Transport = serveTransport
	}
	if cmd.Flags().Changed("addr") {
		cfg.Server.Addr = serveAddr
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func serveHTTP(ctx context.Context, srv *mcp.Server, addr string, log logger.Logger) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return srv }, nil)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Listening for MCP connections on http://%s", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

func init() {
	serveCmd.Flags().StringVar(&serveTransport, "transport", "stdio", "MCP transport: stdio or http")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "localhost:8080", "listen address for the http transport")
}
