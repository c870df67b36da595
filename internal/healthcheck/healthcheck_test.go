package healthcheck

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"
)

func TestNormalizeListen(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  ", ""},
		{"8080", ":8080"},
		{":8080", ":8080"},
		{"127.0.0.1:9090", "127.0.0.1:9090"},
	}
	for _, tc := range cases {
		if got := NormalizeListen(tc.in); got != tc.want {
			t.Fatalf("NormalizeListen(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestStartServer_ServesHealthz(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, err := StartServer(ctx, nil, "127.0.0.1:0", "vipbot")
	if err != nil {
		t.Fatalf("StartServer() error = %v", err)
	}
	defer func() {
		shutdownCtx, c := context.WithTimeout(context.Background(), time.Second)
		_ = srv.Shutdown(shutdownCtx)
		c()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+srv.Addr+"/healthz", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("healthz request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Status    string `json:"status"`
		Component string `json:"component"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "ok" || body.Component != "vipbot" {
		t.Fatalf("unexpected body: %+v", body)
	}
}
