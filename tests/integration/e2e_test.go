//go:build integration
// +build integration

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/WebDesk/internal/domain/stack"
	"github.com/GriffinCanCode/WebDesk/internal/domain/supervisor"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/config"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/logging"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/server"
	"github.com/GriffinCanCode/WebDesk/tests/helpers/testutil"
)

// metrics is shared across the suite; promauto registers collectors in the
// default registry, which tolerates only one registration per name.
var metrics = monitoring.NewMetrics()

// TestFullStackLifecycle boots a stack of plain shell stages, observes it
// through the status API and the event stream, then cancels and expects a
// clean exit. No X binaries are needed; every stage is sh.
func TestFullStackLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping end-to-end test in short mode")
	}

	statusPort := testutil.FreePort(t)
	servicesFile := testutil.WriteServicesFile(t, "services.yaml", `
stages:
  - name: display
    argv: ["sh", "-c", "echo DISPLAY-UP; exec sleep 60"]
    probe:
      type: log
      target: DISPLAY-UP
  - name: desktop
    argv: ["sh", "-c", "echo LISTENING; exec sleep 60"]
    depends_on: [display]
    probe:
      type: log
      target: LISTENING
  - name: app
    argv: ["sleep", "60"]
    depends_on: [display]
    foreground: true
`)

	t.Setenv("SERVICES_FILE", servicesFile)
	t.Setenv("STATUS_PORT", strconv.Itoa(statusPort))
	t.Setenv("READY_TIMEOUT", "5s")
	t.Setenv("GRACE_PERIOD", "1s")

	cfg, err := config.Load()
	require.NoError(t, err)

	topo, err := stack.FromConfig(cfg)
	require.NoError(t, err)

	logger := logging.NewNop()

	sup, err := supervisor.New(topo, supervisor.Options{
		Logger:       logger,
		Metrics:      metrics,
		ReadyTimeout: cfg.Stack.ReadyTimeout,
		GracePeriod:  cfg.Stack.GracePeriod,
	})
	require.NoError(t, err)

	srv := server.New(cfg, sup, metrics, logger)
	srv.Start()
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	outcomeCh := make(chan supervisor.Outcome, 1)
	go func() { outcomeCh <- sup.Run(ctx) }()

	base := fmt.Sprintf("http://127.0.0.1:%d", statusPort)
	testutil.WaitForHTTP(t, base+"/health", 5*time.Second)
	waitForReady(t, base, 10*time.Second)

	t.Run("Stack Snapshot", func(t *testing.T) {
		snap := getSnapshot(t, base)
		require.True(t, snap.Ready)
		require.Len(t, snap.Stages, 3)
		for _, st := range snap.Stages {
			assert.Equal(t, "running", st.State, "stage %s", st.Name)
		}
	})

	t.Run("Stage Output", func(t *testing.T) {
		body := getBody(t, base+"/stack/display/output")
		assert.Contains(t, string(body), "DISPLAY-UP")
	})

	t.Run("Unknown Stage Output", func(t *testing.T) {
		resp, err := http.Get(base + "/stack/ghost/output")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("Prometheus Metrics", func(t *testing.T) {
		body := getBody(t, base+"/metrics")
		assert.Contains(t, string(body), "webdesk_stage_transitions_total")
		assert.Contains(t, string(body), "webdesk_stack_ready 1")
	})

	// Event stream: a new subscriber gets a snapshot frame first, then
	// the teardown transitions once the run is canceled.
	wsURL := fmt.Sprintf("ws://127.0.0.1:%d/events", statusPort)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(10 * time.Second))

	var first frame
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "snapshot", first.Type)
	require.NotNil(t, first.Stack)
	assert.True(t, first.Stack.Ready)

	cancel()

	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	sawExited := false
	for !sawExited {
		var fr frame
		if err := conn.ReadJSON(&fr); err != nil {
			break
		}
		if fr.Type == "event" && fr.Event != nil && fr.Event.State == "exited" {
			sawExited = true
		}
	}
	assert.True(t, sawExited, "expected an exited event after cancellation")

	select {
	case outcome := <-outcomeCh:
		assert.Equal(t, 0, outcome.ExitCode())
	case <-time.After(15 * time.Second):
		t.Fatal("stack did not tear down")
	}

	snap := getSnapshot(t, base)
	assert.False(t, snap.Ready)
	for _, st := range snap.Stages {
		assert.Equal(t, "exited", st.State, "stage %s", st.Name)
	}
}

// TestFailurePropagatesToStatusAPI kills a background stage and checks the
// failure classification via the exit code and the snapshot.
func TestFailurePropagatesToStatusAPI(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping end-to-end test in short mode")
	}

	statusPort := testutil.FreePort(t)
	servicesFile := testutil.WriteServicesFile(t, "services.yaml", `
stages:
  - name: flaky
    argv: ["sh", "-c", "echo UP; sleep 0.5; exit 1"]
    probe:
      type: log
      target: UP
  - name: app
    argv: ["sleep", "60"]
    foreground: true
`)

	t.Setenv("SERVICES_FILE", servicesFile)
	t.Setenv("STATUS_PORT", strconv.Itoa(statusPort))
	t.Setenv("READY_TIMEOUT", "5s")
	t.Setenv("GRACE_PERIOD", "1s")

	cfg, err := config.Load()
	require.NoError(t, err)

	topo, err := stack.FromConfig(cfg)
	require.NoError(t, err)

	logger := logging.NewNop()

	sup, err := supervisor.New(topo, supervisor.Options{
		Logger:       logger,
		Metrics:      metrics,
		ReadyTimeout: cfg.Stack.ReadyTimeout,
		GracePeriod:  cfg.Stack.GracePeriod,
	})
	require.NoError(t, err)

	srv := server.New(cfg, sup, metrics, logger)
	srv.Start()
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	outcome := sup.Run(ctx)
	require.NotNil(t, outcome.Failure)
	assert.Equal(t, supervisor.ClassDependencyLost, outcome.Failure.Class)
	assert.Equal(t, supervisor.ExitDepLost, outcome.ExitCode())

	base := fmt.Sprintf("http://127.0.0.1:%d", statusPort)
	snap := getSnapshot(t, base)
	assert.False(t, snap.Ready)

	var flaky *stageView
	for i := range snap.Stages {
		if snap.Stages[i].Name == "flaky" {
			flaky = &snap.Stages[i]
		}
	}
	require.NotNil(t, flaky)
	assert.Equal(t, "failed", flaky.State)
}

type stackView struct {
	Ready  bool        `json:"ready"`
	Stages []stageView `json:"stages"`
}

type stageView struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

type frame struct {
	Type  string     `json:"type"`
	Stack *stackView `json:"stack"`
	Event *struct {
		Stage string `json:"stage"`
		State string `json:"state"`
	} `json:"event"`
}

func getBody(t *testing.T, url string) []byte {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return body
}

func getSnapshot(t *testing.T, base string) stackView {
	t.Helper()

	var snap stackView
	require.NoError(t, json.Unmarshal(getBody(t, base+"/stack"), &snap))
	return snap
}

// waitForReady polls the snapshot endpoint until the stack reports ready.
func waitForReady(t *testing.T, base string, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(base + "/stack")
		if err == nil {
			body, rerr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if rerr == nil {
				var snap stackView
				if json.Unmarshal(body, &snap) == nil && snap.Ready {
					return
				}
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("stack never became ready")
}
