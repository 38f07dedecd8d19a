// Package helpers provides server lifecycle and fixture helpers for the
// tracking sync API integration suite.
package helpers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/onsi/gomega"

	syncapp "github.com/trackhouse/trackhouse-sync-server/internal/app"
	"github.com/trackhouse/trackhouse-sync-server/internal/config"
)

// ServerTestHelper manages the sync API server lifecycle for testing
type ServerTestHelper struct {
	ctx        context.Context
	configPath string
	baseURL    string
	httpClient *http.Client
	app        *syncapp.SyncApp
	port       int
}

// NewServerTestHelper creates a new server test helper bound to a free port
func NewServerTestHelper(ctx context.Context, configPath string) *ServerTestHelper {
	port := freePort()
	return &ServerTestHelper{
		ctx:        ctx,
		configPath: configPath,
		baseURL:    fmt.Sprintf("http://127.0.0.1:%d", port),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		port: port,
	}
}

// freePort asks the kernel for an unused TCP port
func freePort() int {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	port := l.Addr().(*net.TCPAddr).Port
	gomega.Expect(l.Close()).To(gomega.Succeed())
	return port
}

// StartServer builds and starts the sync API server programmatically
func (s *ServerTestHelper) StartServer() error {
	cfg, err := config.LoadConfig(config.WithConfigPath(s.configPath))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	app, err := syncapp.NewSyncApp(s.ctx,
		syncapp.WithConfig(cfg),
		syncapp.WithAddress(fmt.Sprintf("127.0.0.1:%d", s.port)),
	)
	if err != nil {
		return fmt.Errorf("failed to build app: %w", err)
	}

	s.app = app

	// Start the server in a goroutine (non-blocking)
	go func() {
		if err := app.Start(); err != nil {
			// The test fails when it cannot connect
			fmt.Fprintf(os.Stderr, "Server start failed: %v\n", err)
		}
	}()

	return nil
}

// StopServer gracefully stops the sync API server
func (s *ServerTestHelper) StopServer() error {
	if s.app != nil {
		return s.app.Stop(5 * time.Second)
	}
	return nil
}

// WaitForServerReady waits for the server to be ready to accept requests
func (s *ServerTestHelper) WaitForServerReady(timeout time.Duration) {
	gomega.Eventually(func() error {
		resp, err := s.httpClient.Get(s.baseURL + "/health")
		if err != nil {
			return err
		}
		defer func() {
			_ = resp.Body.Close()
		}()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("server returned status %d", resp.StatusCode)
		}
		return nil
	}, timeout, 100*time.Millisecond).Should(gomega.Succeed(), "Server should be ready")
}

// GetOrders makes a GET request to /orders with an optional raw query string
func (s *ServerTestHelper) GetOrders(query string) (*http.Response, error) {
	return s.httpClient.Get(s.baseURL + "/orders" + query)
}

// GetTracking makes a GET request to /tracking with an optional raw query string
func (s *ServerTestHelper) GetTracking(query string) (*http.Response, error) {
	return s.httpClient.Get(s.baseURL + "/tracking" + query)
}

// TriggerOrderSync makes a POST request to /sync/orders
func (s *ServerTestHelper) TriggerOrderSync() (*http.Response, error) {
	return s.httpClient.Post(s.baseURL+"/sync/orders", "application/json", nil)
}

// RefreshTracking makes a POST request to /tracking/single
func (s *ServerTestHelper) RefreshTracking(trackingNumber string) (*http.Response, error) {
	body, err := json.Marshal(map[string]string{"trackingNumber": trackingNumber})
	if err != nil {
		return nil, err
	}
	return s.httpClient.Post(s.baseURL+"/tracking/single", "application/json", bytes.NewReader(body))
}

// SetFlag makes a POST request to /flag
func (s *ServerTestHelper) SetFlag(orderNumber, trackingNumber string, flagged bool) (*http.Response, error) {
	body, err := json.Marshal(map[string]any{
		"orderNumber":    orderNumber,
		"trackingNumber": trackingNumber,
		"flagged":        flagged,
	})
	if err != nil {
		return nil, err
	}
	return s.httpClient.Post(s.baseURL+"/flag", "application/json", bytes.NewReader(body))
}

// GetHealth makes a GET request to /health
func (s *ServerTestHelper) GetHealth() (*http.Response, error) {
	return s.httpClient.Get(s.baseURL + "/health")
}

// GetReadiness makes a GET request to /readiness
func (s *ServerTestHelper) GetReadiness() (*http.Response, error) {
	return s.httpClient.Get(s.baseURL + "/readiness")
}

// GetBaseURL returns the base URL of the server
func (s *ServerTestHelper) GetBaseURL() string {
	return s.baseURL
}

// DecodeJSON decodes a response body into out and closes the body
func DecodeJSON(resp *http.Response, out any) {
	defer func() {
		_ = resp.Body.Close()
	}()
	err := json.NewDecoder(resp.Body).Decode(out)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
}

// ConfigOptions holds the knobs for WriteConfigYAML. Exactly one of
// OrdersFile or OrdersEndpoint must be set.
type ConfigOptions struct {
	OrdersFile      string
	OrdersEndpoint  string
	CarrierEndpoint string

	Cooldown         string
	IssuesScanWindow int
	AutoSyncEnabled  bool
	AutoSyncInterval string
}

// WriteConfigYAML writes a YAML configuration file for testing and returns
// its path. Storage is always the in-memory backend.
func WriteConfigYAML(dir string, opts ConfigOptions) string {
	configContent := `storage:
  type: memory

sources:
  orders:
`

	switch {
	case opts.OrdersFile != "":
		configContent += fmt.Sprintf("    file:\n      path: %s\n", opts.OrdersFile)
	case opts.OrdersEndpoint != "":
		configContent += fmt.Sprintf("    api:\n      endpoint: %s\n", opts.OrdersEndpoint)
	}

	configContent += fmt.Sprintf(`  carrier:
    api:
      endpoint: %s
  timeout: 10s
`, opts.CarrierEndpoint)

	configContent += "\nsync:\n"
	if opts.Cooldown != "" {
		configContent += fmt.Sprintf("  cooldown: %s\n", opts.Cooldown)
	}
	if opts.IssuesScanWindow > 0 {
		configContent += fmt.Sprintf("  issuesScanWindow: %d\n", opts.IssuesScanWindow)
	}
	if opts.AutoSyncEnabled {
		configContent += "  autoSync:\n    enabled: true\n"
		if opts.AutoSyncInterval != "" {
			configContent += fmt.Sprintf("    interval: %s\n", opts.AutoSyncInterval)
		}
	}

	configPath := fmt.Sprintf("%s/config.yaml", dir)
	err := os.WriteFile(configPath, []byte(configContent), 0600)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	return configPath
}
