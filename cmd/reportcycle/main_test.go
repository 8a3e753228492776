package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/neomorfeo/reportcycle/internal/adapter/fsm"
	"github.com/neomorfeo/reportcycle/internal/adapter/sqlite"
	"github.com/neomorfeo/reportcycle/internal/app"
	"github.com/neomorfeo/reportcycle/internal/config"
	"github.com/neomorfeo/reportcycle/internal/domain"
)

func TestSplitIDs(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{in: "w1", want: []string{"w1"}},
		{in: "w1,w2", want: []string{"w1", "w2"}},
		{in: " w1 , ,w2,", want: []string{"w1", "w2"}},
		{in: "", want: nil},
	}
	for _, tt := range tests {
		got := splitIDs(tt.in)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
			t.Errorf("splitIDs(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestSmoke wires the HTTP API like serve() and verifies it responds.
func TestSmoke(t *testing.T) {
	repo, err := sqlite.New(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("database: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	svc := app.NewReportService(app.Deps{
		Registry:  repo,
		Source:    repo,
		State:     repo,
		Validator: fsm.New(),
	}, app.Settings{})

	srv := httptest.NewServer(newRouter(svc, "reportcycle-test"))
	t.Cleanup(srv.Close)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+"/api/v1/tenants", nil)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /api/v1/tenants failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var tenants []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&tenants); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tenants) != 0 {
		t.Errorf("got %d tenants, want 0 (empty database)", len(tenants))
	}
}

func TestPrintSummary(t *testing.T) {
	day := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)
	summary := domain.RunSummary{
		RunID:    "run-1",
		Mode:     domain.ModeScheduled,
		Today:    day,
		DueTotal: 1,
		Tenants: []domain.TenantOutcome{{
			Slug:     "acme",
			Window:   domain.Window{Start: time.Date(2024, 4, 16, 0, 0, 0, 0, time.UTC), End: day},
			StateDay: 15,
		}},
		Workers: []domain.WorkerOutcome{
			{
				TenantSlug: "acme", WorkerID: "w1", WorkerName: "Jane Doe",
				Stage: domain.StageUploaded, Reached: domain.StageUploaded,
				Artifact: "acme-Jane_Doe-Mai-2024.pdf", Size: 1500,
			},
			{
				TenantSlug: "acme", WorkerID: "w2",
				Stage: domain.StageSkipped, Reached: domain.StageFetched,
				Err: domain.NewStepError(domain.KindRender, errors.New("template failed")),
			},
		},
	}

	var buf bytes.Buffer
	printSummary(&buf, summary)
	out := strings.ToLower(buf.String())

	for _, want := range []string{
		"run-1",
		"2024-04-16 .. 2024-05-15",
		"day 15",
		"acme-Jane_Doe-Mai-2024.pdf",
		"Jane Doe (w1)",
		"1.5 kB",
		"render: template failed",
		"1 uploaded",
		"1 skipped",
		"Run finished with skipped work.",
	} {
		if !strings.Contains(out, strings.ToLower(want)) {
			t.Errorf("summary output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintReminders(t *testing.T) {
	var buf bytes.Buffer
	printReminders(&buf, app.ReminderResult{Due: 3, Sent: 2, NoContact: 1})

	if !strings.Contains(buf.String(), "NO CONTACT") {
		t.Errorf("reminder table missing header:\n%s", buf.String())
	}
}

// runCLI executes run() with output captured.
func runCLI(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	var stdout bytes.Buffer
	err := run(ctx, args, &stdout, io.Discard)
	return stdout.String(), err
}

func TestRun_ConfigurationError(t *testing.T) {
	t.Setenv("REPORTCYCLE_STORAGE_BUCKET", "statements")
	t.Setenv("REPORTCYCLE_LOCALE", "fr")

	_, err := runCLI(t, context.Background(), "remind")

	var cfgErr *domain.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want ConfigurationError", err)
	}
	if cfgErr.Field != "locale" {
		t.Errorf("Field = %q, want %q", cfgErr.Field, "locale")
	}
}

func TestRun_RemindWithoutSMTP(t *testing.T) {
	t.Setenv("DATABASE_PATH", t.TempDir()+"/remind.db")
	t.Setenv("REPORTCYCLE_STORAGE_BUCKET", "statements")

	_, err := runCLI(t, context.Background(), "remind", "--date", "2024-05-15")

	var cfgErr *domain.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want ConfigurationError", err)
	}
	if cfgErr.Field != "smtp.host" {
		t.Errorf("Field = %q, want %q", cfgErr.Field, "smtp.host")
	}
}

func TestRun_RemindInvalidDate(t *testing.T) {
	t.Setenv("DATABASE_PATH", t.TempDir()+"/remind.db")
	t.Setenv("REPORTCYCLE_STORAGE_BUCKET", "statements")

	_, err := runCLI(t, context.Background(), "remind", "--date", "15.05.2024")

	var cfgErr *domain.ConfigurationError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "date" {
		t.Fatalf("error = %v, want ConfigurationError on date", err)
	}
}

// TestRun_InvalidDB verifies run() returns an error for an invalid database path.
func TestRun_InvalidDB(t *testing.T) {
	t.Setenv("DATABASE_PATH", "/nonexistent/path/db.sqlite")
	t.Setenv("REPORTCYCLE_STORAGE_BUCKET", "statements")

	if _, err := runCLI(t, context.Background(), "remind"); err == nil {
		t.Fatal("expected error for invalid database path, got nil")
	}
}

func TestRun_ManualRequiresArgs(t *testing.T) {
	if _, err := runCLI(t, context.Background(), "manual", "acme"); err == nil {
		t.Fatal("expected an argument error, got nil")
	}
}

func TestNewScheduler(t *testing.T) {
	cfg := &config.Config{
		Timezone: "UTC",
		Serve:    config.ServeConfig{CycleCron: "0 6 * * *", ReminderCron: "0 7 * * *"},
	}
	logger := newLogger(io.Discard, &config.Config{Log: config.LogConfig{Level: "error"}})
	observe := func(context.Context, domain.RunSummary) {}

	t.Run("reminders need smtp", func(t *testing.T) {
		scheduler, err := newScheduler(context.Background(), nil, cfg, observe, logger)
		if err != nil {
			t.Fatalf("newScheduler: %v", err)
		}
		if got := len(scheduler.Entries()); got != 1 {
			t.Errorf("entries = %d, want 1", got)
		}
	})

	t.Run("both schedules", func(t *testing.T) {
		withSMTP := *cfg
		withSMTP.SMTP.Host = "mail.example.com"
		scheduler, err := newScheduler(context.Background(), nil, &withSMTP, observe, logger)
		if err != nil {
			t.Fatalf("newScheduler: %v", err)
		}
		if got := len(scheduler.Entries()); got != 2 {
			t.Errorf("entries = %d, want 2", got)
		}
	})

	t.Run("invalid spec", func(t *testing.T) {
		invalid := *cfg
		invalid.Serve.CycleCron = "every morning"
		_, err := newScheduler(context.Background(), nil, &invalid, observe, logger)

		var cfgErr *domain.ConfigurationError
		if !errors.As(err, &cfgErr) || cfgErr.Field != "serve.cycle_cron" {
			t.Fatalf("error = %v, want ConfigurationError on serve.cycle_cron", err)
		}
	})
}

// TestRun_Serve exercises serve end to end: telemetry, River, cron, the HTTP
// server and graceful shutdown. A browser is required for the rasterizer.
func TestRun_Serve(t *testing.T) {
	execPath := os.Getenv("CHROMIUM_PATH")
	if execPath == "" {
		for _, name := range []string{"chromium", "chromium-browser", "google-chrome", "headless-shell"} {
			if p, err := exec.LookPath(name); err == nil {
				execPath = p
				break
			}
		}
	}
	if execPath == "" {
		t.Skip("no Chrome or Chromium installed")
	}

	t.Setenv("DATABASE_PATH", t.TempDir()+"/serve.db")
	t.Setenv("PORT", "19876")
	t.Setenv("REPORTCYCLE_STORAGE_BACKEND", "file")
	t.Setenv("REPORTCYCLE_STORAGE_DIR", t.TempDir())
	t.Setenv("REPORTCYCLE_CHROMIUM_EXEC_PATH", execPath)
	if os.Geteuid() == 0 {
		t.Setenv("REPORTCYCLE_CHROMIUM_NO_SANDBOX", "true")
	}
	t.Setenv("REPORTCYCLE_LOG_LEVEL", "error")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		_, err := runCLI(t, ctx, "serve")
		errCh <- err
	}()

	serverURL := "http://localhost:19876"
	ready := false
	for i := 0; i < 100; i++ {
		req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, serverURL+"/api/v1/tenants", nil)
		resp, reqErr := http.DefaultClient.Do(req)
		if reqErr == nil {
			resp.Body.Close()
			ready = resp.StatusCode == http.StatusOK
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if !ready {
		cancel()
		t.Fatal("server did not start within 10 seconds")
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("serve returned error: %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("serve did not exit within 15 seconds")
	}
}
