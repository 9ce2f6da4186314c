package liveness

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPublisher_BootIDConstantForLifetime(t *testing.T) {
	p := NewPublisher(nil)
	defer p.Shutdown()

	id := p.BootID()
	require.NotEmpty(t, id)
	for i := 0; i < 10; i++ {
		require.Equal(t, id, p.BootID())
	}

	// A new publisher (new process lifetime) gets a different identifier.
	other := NewPublisher(nil)
	defer other.Shutdown()
	require.NotEqual(t, id, other.BootID())
}

func TestPublisher_PollEndpoint(t *testing.T) {
	p := NewPublisher(nil)
	defer p.Shutdown()

	rec := httptest.NewRecorder()
	p.HandleBoot(rec, httptest.NewRequest(http.MethodGet, "/kiosk/boot", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp BootResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, p.BootID(), resp.BootID)
}

// readBootEvent reads SSE lines until a boot event's data line is seen.
func readBootEvent(t *testing.T, r *bufio.Reader, timeout time.Duration) string {
	t.Helper()
	deadline := time.Now().Add(timeout)
	sawEvent := false
	for time.Now().Before(deadline) {
		line, err := r.ReadString('\n')
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if line == "event: "+BootEvent {
			sawEvent = true
			continue
		}
		if sawEvent && strings.HasPrefix(line, "data: ") {
			return strings.TrimPrefix(line, "data: ")
		}
	}
	t.Fatal("no boot event received")
	return ""
}

func TestPublisher_PushEmitsBootOnConnect(t *testing.T) {
	p := NewPublisher(nil)
	defer p.Shutdown()

	server := httptest.NewServer(p)
	defer server.Close()

	req, _ := http.NewRequestWithContext(t.Context(), http.MethodGet, server.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	got := readBootEvent(t, bufio.NewReader(resp.Body), 2*time.Second)
	require.Equal(t, p.BootID(), got)
}

func TestPublisher_SubscriberDisconnectIsolated(t *testing.T) {
	p := NewPublisher(nil)
	defer p.Shutdown()

	server := httptest.NewServer(p)
	defer server.Close()

	// First subscriber connects and then drops.
	req1, _ := http.NewRequestWithContext(t.Context(), http.MethodGet, server.URL, nil)
	resp1, err := http.DefaultClient.Do(req1)
	require.NoError(t, err)
	readBootEvent(t, bufio.NewReader(resp1.Body), 2*time.Second)
	_ = resp1.Body.Close()

	// Second subscriber still gets the boot event after the first is gone.
	req2, _ := http.NewRequestWithContext(t.Context(), http.MethodGet, server.URL, nil)
	resp2, err := http.DefaultClient.Do(req2)
	require.NoError(t, err)
	defer func() { _ = resp2.Body.Close() }()

	got := readBootEvent(t, bufio.NewReader(resp2.Body), 2*time.Second)
	require.Equal(t, p.BootID(), got)

	require.Eventually(t, func() bool {
		return p.SubscriberCount() == 1
	}, 2*time.Second, 10*time.Millisecond, "dropped subscriber should be reaped")
}

func TestPublisher_ShutdownRefusesNewSubscribers(t *testing.T) {
	p := NewPublisher(nil)
	p.Shutdown()

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/kiosk/events", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMonitorScript_ReloadOwnedByBootHandler(t *testing.T) {
	// Recovery success must route through handleBootId, whose offline branch
	// issues the single forced reload; no second call site may exist outside it.
	require.Contains(t, MonitorScript, "handleBootId(p.bootId)")
	require.Equal(t, 2, strings.Count(MonitorScript, "reload();"))
}
