package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/showpayouts/internal/auth"
	"github.com/mmynk/showpayouts/internal/middleware"
	"github.com/mmynk/showpayouts/internal/service"
	"github.com/mmynk/showpayouts/internal/storage/sqlite"
	"github.com/mmynk/showpayouts/pkg/api"
)

const testSecret = "payoutctl-test-secret"

// startServer serves the payout API behind RequireAuth and points the CLI at it.
func startServer(t *testing.T) {
	t.Helper()

	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("JWT_SECRET", testSecret)

	store, err := sqlite.New(filepath.Join(dir, "payouts.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	jwtManager := auth.NewJWTManager(testSecret, time.Hour)
	path, handler := api.NewPayoutServiceHandler(service.NewPayoutService(store, nil),
		connect.WithInterceptors(middleware.RequireAuth(jwtManager)))

	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		store.Close()
	})

	serverURL = server.URL
	token = ""
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--server=" + serverURL}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

const showJSON = `{
  "id": "show-1",
  "production_id": "prod-1",
  "financials": {
    "revenue_type": "ticket_sales",
    "ticket_count": 140,
    "ticket_revenue": "1400",
    "expenses": "200",
    "data_confirmed": true
  },
  "roster": [
    {"role_name": "Lead", "payee": {"type": "Person", "id": "p1"}},
    {"role_name": "Band", "payee": {"type": "Group", "id": "g1"}},
    {"role_name": "Cameo", "payee": {"type": "Guest", "guest_name": "Guest Star"}}
  ]
}`

func TestPayoutctl_CalculateAndApprove(t *testing.T) {
	startServer(t)
	rules := writeFile(t, "rules.json", `{"distribution": {"method": "equal"}}`)

	out, err := run(t, "show", "put", writeFile(t, "show.json", showJSON))
	if err != nil {
		t.Fatalf("show put failed: %v", err)
	}
	if !strings.Contains(out, "Saved show show-1") {
		t.Errorf("show put output = %q", out)
	}

	if _, err := run(t, "scheme", "save", "--production", "prod-1", "--name", "standard", "--rules", rules, "--default"); err != nil {
		t.Fatalf("scheme save failed: %v", err)
	}

	out, err = run(t, "calculate", "show-1")
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	var calc api.CalculatePayoutResponse
	if err := json.Unmarshal([]byte(out), &calc); err != nil {
		t.Fatalf("calculate output is not JSON: %v\n%s", err, out)
	}
	if calc.Payout.TotalPayout != "1200.00" || len(calc.LineItems) != 3 {
		t.Fatalf("calculate = %+v", calc)
	}

	out, err = run(t, "payout", "approve", calc.Payout.ID)
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	var approved api.Payout
	if err := json.Unmarshal([]byte(out), &approved); err != nil {
		t.Fatalf("approve output is not JSON: %v\n%s", err, out)
	}
	if approved.Status != "approved" {
		t.Errorf("status = %q, want approved", approved.Status)
	}

	_, err = run(t, "calculate", "show-1")
	if err == nil || !strings.Contains(err.Error(), "already_approved") {
		t.Errorf("recalculating an approved payout: err = %v, want already_approved", err)
	}
}

func TestPayoutctl_Preview(t *testing.T) {
	startServer(t)
	rules := writeFile(t, "rules.json", `{"distribution": {"method": "equal"}}`)
	financials := writeFile(t, "financials.json", `{"revenue_type": "ticket_sales", "ticket_count": 140, "ticket_revenue": "1400", "expenses": "200", "data_confirmed": true}`)

	out, err := run(t, "preview", "--rules", rules, "--financials", financials, "--performers", "4")
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	var preview api.PreviewPayoutResponse
	if err := json.Unmarshal([]byte(out), &preview); err != nil {
		t.Fatalf("preview output is not JSON: %v\n%s", err, out)
	}
	if preview.PerPerson != "300.00" || preview.Total != "1200.00" {
		t.Errorf("preview = %+v", preview)
	}
}

func TestPayoutctl_Unauthenticated(t *testing.T) {
	startServer(t)
	t.Setenv("JWT_SECRET", "")

	_, err := run(t, "scheme", "list", "prod-1")
	if err == nil || !strings.Contains(err.Error(), "unauthenticated") {
		t.Errorf("err = %v, want unauthenticated", err)
	}
}

func TestReadJSONFile(t *testing.T) {
	if _, err := readJSONFile(writeFile(t, "bad.json", `{"distribution":`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
	if _, err := readJSONFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
