package main

import (
	"testing"

	"github.com/spf13/cobra"

	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/config"
)

func newServeFlagsCommand(t *testing.T) *cobra.Command {
	t.Helper()
	transport, addr := serveTransport, serveAddr
	t.Cleanup(func() { serveTransport, serveAddr = transport, addr })

	cmd := &cobra.Command{Use: "serve"}
	cmd.Flags().StringVar(&serveTransport, "transport", "stdio", "")
	cmd.Flags().StringVar(&serveAddr, "addr", "localhost:8080", "")
	return cmd
}

func TestServeConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cm, err := config.NewManager("")
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	tests := []struct {
		name          string
		flags         map[string]string
		wantTransport string
		wantAddr      string
		wantErr       bool
	}{
		{"defaults", nil, "stdio", "localhost:8080", false},
		{"http with address", map[string]string{"transport": "http", "addr": ":9090"}, "http", ":9090", false},
		{"invalid transport", map[string]string{"transport": "carrier-pigeon"}, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newServeFlagsCommand(t)
			for name, value := range tt.flags {
				if err := cmd.Flags().Set(name, value); err != nil {
					t.Fatalf("failed to set --%s: %v", name, err)
				}
			}

			cfg, err := serveConfig(cmd, cm)
			if tt.wantErr {
				if err == nil {
					t.Error("expected an error")
				}
			} else {
				if err != nil {
					t.Fatalf("serveConfig failed: %v", err)
				}
				if cfg.Server.Transport != tt.wantTransport || cfg.Server.Addr != tt.wantAddr {
					t.Errorf("server config = %+v, want %s %s", cfg.Server, tt.wantTransport, tt.wantAddr)
				}
			}

			if shared := cm.Get().Server; shared.Transport != "stdio" || shared.Addr != "localhost:8080" {
				t.Errorf("flags leaked into the managed configuration: %+v", shared)
			}
		})
	}
}
