package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/liveness"
)

// HTTPFetcher polls the gateway's boot endpoint.
type HTTPFetcher struct {
	client  *http.Client
	bootURL string
}

// NewHTTPFetcher creates a fetcher against the gateway base URL.
func NewHTTPFetcher(gatewayURL string) *HTTPFetcher {
	return &HTTPFetcher{
		client:  &http.Client{Timeout: 5 * time.Second},
		bootURL: strings.TrimRight(gatewayURL, "/") + "/kiosk/boot",
	}
}

func (f *HTTPFetcher) FetchBootID(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.bootURL, nil)
	if err != nil {
		return "", fmt.Errorf("building boot request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching boot id: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("boot endpoint returned status %d", resp.StatusCode)
	}

	var body liveness.BootResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decoding boot response: %w", err)
	}
	if body.BootID == "" {
		return "", fmt.Errorf("boot endpoint returned empty id")
	}
	return body.BootID, nil
}

// SSESubscriber consumes the gateway's push stream and delivers boot
// identifiers from "boot" events.
type SSESubscriber struct {
	client    *http.Client
	eventsURL string
}

// NewSSESubscriber creates a subscriber against the gateway base URL.
func NewSSESubscriber(gatewayURL string) *SSESubscriber {
	return &SSESubscriber{
		// No timeout: the stream stays open indefinitely.
		client:    &http.Client{},
		eventsURL: strings.TrimRight(gatewayURL, "/") + "/kiosk/events",
	}
}

func (s *SSESubscriber) Subscribe(ctx context.Context) (<-chan string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.eventsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building events request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connecting to event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("event stream returned status %d", resp.StatusCode)
	}

	ch := make(chan string, 4)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		var event string
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "event:"):
				event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
				if event == liveness.BootEvent && data != "" {
					select {
					case ch <- data:
					case <-ctx.Done():
						return
					}
				}
			case line == "":
				event = ""
			}
		}
	}()
	return ch, nil
}

// ExecReloader reloads the kiosk client by running an external command, for
// example a kiosk-browser restart script.
type ExecReloader struct {
	command string
}

func NewExecReloader(command string) *ExecReloader {
	return &ExecReloader{command: command}
}

func (r *ExecReloader) Reload(ctx context.Context) error {
	if r.command == "" {
		slog.Warn("No reload command configured, skipping reload")
		return nil
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", r.command)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("reload command failed: %w (output: %s)", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// FileIDStore persists the last known boot identifier as a small JSON file.
type FileIDStore struct {
	path string
}

func NewFileIDStore(path string) *FileIDStore {
	return &FileIDStore{path: path}
}

type storedID struct {
	LastKnownBootID string `json:"lastKnownBootId"`
}

func (s *FileIDStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading boot id file: %w", err)
	}

	var stored storedID
	if err := json.Unmarshal(data, &stored); err != nil {
		return "", fmt.Errorf("parsing boot id file: %w", err)
	}
	return stored.LastKnownBootID, nil
}

func (s *FileIDStore) Save(id string) error {
	data, err := json.MarshalIndent(storedID{LastKnownBootID: id}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling boot id: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing boot id file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing boot id file: %w", err)
	}
	return nil
}

// LogPresenter is the headless overlay: it records the offline transitions in
// the log. The in-browser overlay is driven by the injected monitor script.
type LogPresenter struct{}

func (LogPresenter) ShowOffline() {
	slog.Warn("Gateway unreachable, offline overlay shown")
}

func (LogPresenter) HideOffline() {
	slog.Info("Gateway reachable again, offline overlay hidden")
}
