package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/S1riyS/happyphone/server/internal/download"
	"github.com/S1riyS/happyphone/server/internal/middleware"
	"github.com/S1riyS/happyphone/server/internal/network"
	"github.com/S1riyS/happyphone/server/internal/packages"
	"github.com/S1riyS/happyphone/server/internal/repository"
	"github.com/S1riyS/happyphone/server/internal/service"
	"github.com/S1riyS/happyphone/server/pkg/response"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	blobs := repository.NewMemoryBlobStore()
	netConfigs := network.NewConfigService(repository.NewNetworkRepository(blobs))
	reg := download.NewRegistry(time.Now, nil)
	svc := service.NewTerminalService(
		repository.NewDirectTransactor(),
		repository.NewFilesystemRepository(blobs),
		repository.NewHistoryRepository(blobs),
		netConfigs,
		packages.NewManager(packages.DefaultCatalog(), reg, netConfigs),
		service.Options{Hostname: "happyphone", HistorySize: 16, MaxContentLength: 10000},
	)

	mux := http.NewServeMux()
	NewHandler(svc).RegisterRoutes(mux, middleware.NewAuth("", time.Hour).Middleware)
	srv := httptest.NewServer(middleware.RequestIDMiddleware(mux))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string, out any) int {
	t.Helper()

	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set(middleware.UserIDHeader, "u1")
	req.Header.Set(middleware.UserNameHeader, "alice")

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func TestCommandRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	var resp service.Response
	status := do(t, srv, http.MethodPost, "/api/command", `{"line":"pkg install unknownpkg"}`, &resp)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	want := "alice@happyphone:/$ pkg install unknownpkg\npkg: Package 'unknownpkg' not found."
	if resp.Output != want {
		t.Errorf("output = %q, want %q", resp.Output, want)
	}

	var history struct {
		History []string `json:"history"`
	}
	if status := do(t, srv, http.MethodGet, "/api/history", "", &history); status != http.StatusOK {
		t.Fatalf("history status = %d", status)
	}
	if len(history.History) != 2 {
		t.Errorf("history = %q", history.History)
	}

	if status := do(t, srv, http.MethodDelete, "/api/history", "", nil); status != http.StatusNoContent {
		t.Errorf("clear status = %d", status)
	}
}

func TestEditErrors(t *testing.T) {
	srv := newTestServer(t)

	var body response.ErrorBody
	status := do(t, srv, http.MethodPost, "/api/edit", `{"path":"a.txt","content":"x"}`, &body)
	if status != http.StatusPreconditionFailed {
		t.Fatalf("status = %d", status)
	}
	if body.Kind != "PackageNotInstalled" {
		t.Errorf("kind = %q", body.Kind)
	}

	do(t, srv, http.MethodPost, "/api/command", `{"line":"net off && pkg install edit"}`, nil)

	status = do(t, srv, http.MethodPost, "/api/edit", `{"path":"/sys/os/ssh.bin","content":"x"}`, &body)
	if status != http.StatusForbidden {
		t.Fatalf("read-only status = %d", status)
	}
	if body.Error != "Error: This file is read-only and cannot be edited." {
		t.Errorf("message = %q", body.Error)
	}

	var buf service.EditBuffer
	do(t, srv, http.MethodPost, "/api/edit", `{"path":"a.txt","content":"hello"}`, nil)
	if status := do(t, srv, http.MethodGet, "/api/edit?path=a.txt", "", &buf); status != http.StatusOK {
		t.Fatalf("buffer status = %d", status)
	}
	if buf.Path != "/a.txt" || buf.Content != "hello" {
		t.Errorf("buffer = %+v", buf)
	}
}

func TestBadRequests(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"wrong method", http.MethodGet, "/api/command", "", http.StatusMethodNotAllowed},
		{"bad json", http.MethodPost, "/api/command", "{", http.StatusBadRequest},
		{"empty line", http.MethodPost, "/api/command", `{"line":"  "}`, http.StatusBadRequest},
		{"history put", http.MethodPut, "/api/history", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if status := do(t, srv, tt.method, tt.path, tt.body, nil); status != tt.status {
				t.Errorf("status = %d, want %d", status, tt.status)
			}
		})
	}
}

func TestDownloadsAndHealth(t *testing.T) {
	srv := newTestServer(t)

	var poll service.PollResult
	if status := do(t, srv, http.MethodGet, "/api/downloads", "", &poll); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if len(poll.ActiveDownloads) != 0 || poll.Lines == nil {
		t.Errorf("poll = %+v", poll)
	}

	resp, err := srv.Client().Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}
}
