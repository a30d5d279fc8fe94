package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	zigralcmd "github.com/zigral/zigral/pkg/cmd"
	"github.com/zigral/zigral/pkg/contextstore"
	"github.com/zigral/zigral/pkg/log"
	"github.com/zigral/zigral/pkg/orchestrator"
	"github.com/zigral/zigral/pkg/ratelimit"
	"github.com/zigral/zigral/pkg/updates"
	"github.com/zigral/zigral/pkg/web"
)

const testToken = "zigral_dev_token_123"

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	logger := log.WithModule("test")

	store := contextstore.NewMemoryStore()
	reg := zigralcmd.NewRegistry(logger)
	eventBus := zigralcmd.NewEventBus("gochannel", logger)

	t.Cleanup(func() {
		if err := eventBus.Close(); err != nil {
			t.Logf("Failed to close event bus: %v", err)
		}
	})

	orch := orchestrator.NewOrchestrator(
		nil, reg, store, eventBus, nil, orchestrator.Config{}, logger)

	api := NewAPI(
		logger,
		store,
		reg,
		eventBus,
		orch,
		updates.NewHub(logger),
		ratelimit.NewWindow(100, time.Minute),
		testToken,
	)

	return api.App()
}

func TestAPI_RootEndpoint(t *testing.T) {
	app := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	defer func() {
		if err := resp.Body.Close(); err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Zigral Orchestrator", string(body))
}

func TestAPI_HealthIsOpen(t *testing.T) {
	app := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var health map[string]any
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, web.ServiceName, health["service"])
}

func TestAPI_RequiresAuthToken(t *testing.T) {
	app := setupTestApp(t)

	payload, err := json.Marshal(web.CreateContextRequest{
		JobID:       "job-1",
		ContextData: map[string]any{"industry": "fintech"},
	})
	require.NoError(t, err)

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{name: "missing token", authHeader: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong token", authHeader: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "valid token", authHeader: "Bearer " + testToken, wantStatus: http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/context", bytes.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")

			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}
