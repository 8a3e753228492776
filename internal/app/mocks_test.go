package app_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/coder/quartz"

	"github.com/neomorfeo/reportcycle/internal/adapter/fsm"
	"github.com/neomorfeo/reportcycle/internal/app"
	"github.com/neomorfeo/reportcycle/internal/domain"
)

// --- Mocks ---

type mockRegistry struct {
	tenants []domain.Tenant
	listErr error
}

func (m *mockRegistry) List(_ context.Context, _ domain.ListFilter) ([]domain.Tenant, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return slices.Clone(m.tenants), nil
}

func (m *mockRegistry) GetByID(_ context.Context, id string) (domain.Tenant, error) {
	for _, t := range m.tenants {
		if t.ID == id {
			return t, nil
		}
	}
	return domain.Tenant{}, domain.ErrTenantNotFound
}

func (m *mockRegistry) GetBySlug(_ context.Context, slug string) (domain.Tenant, error) {
	for _, t := range m.tenants {
		if t.Slug == slug {
			return t, nil
		}
	}
	return domain.Tenant{}, domain.ErrTenantNotFound
}

func (m *mockRegistry) Create(_ context.Context, t domain.Tenant) error {
	m.tenants = append(m.tenants, t)
	return nil
}

func (m *mockRegistry) UpdateStatus(_ context.Context, id string, status domain.Status) error {
	for i := range m.tenants {
		if m.tenants[i].ID == id {
			m.tenants[i].Status = status
			return nil
		}
	}
	return domain.ErrTenantNotFound
}

type entriesCall struct {
	tenantID, workerID string
	start, end         time.Time
}

type mockSource struct {
	workers    map[string][]domain.Worker
	entries    map[string][]domain.TimeEntry
	workersErr map[string]error
	calls      []entriesCall
}

func newMockSource() *mockSource {
	return &mockSource{
		workers:    make(map[string][]domain.Worker),
		entries:    make(map[string][]domain.TimeEntry),
		workersErr: make(map[string]error),
	}
}

func (m *mockSource) ListWorkers(_ context.Context, tenantID string) ([]domain.Worker, error) {
	if err := m.workersErr[tenantID]; err != nil {
		return nil, err
	}
	return m.workers[tenantID], nil
}

func (m *mockSource) ListTimeEntries(_ context.Context, tenantID, workerID string, start, end time.Time) ([]domain.TimeEntry, error) {
	m.calls = append(m.calls, entriesCall{tenantID: tenantID, workerID: workerID, start: start, end: end})
	return m.entries[workerID], nil
}

type mockState struct {
	days map[string]int
	err  error
}

func (m *mockState) SetLastDispatched(_ context.Context, tenantID string, day int) error {
	if m.err != nil {
		return m.err
	}
	if m.days == nil {
		m.days = make(map[string]int)
	}
	m.days[tenantID] = day
	return nil
}

type mockRenderer struct {
	failFor  string
	contexts []domain.ReportContext
}

func (m *mockRenderer) Render(_ context.Context, rc domain.ReportContext) ([]byte, error) {
	m.contexts = append(m.contexts, rc)
	if rc.Worker.ID == m.failFor {
		return nil, errors.New("template: missing field")
	}
	return []byte("<html>" + rc.Worker.Name + "</html>"), nil
}

type mockRasterizer struct{}

func (mockRasterizer) Rasterize(_ context.Context, markup []byte) ([]byte, error) {
	return append([]byte("%PDF-"), markup...), nil
}

type upload struct {
	object domain.Object
	upsert bool
}

type mockStore struct {
	names   []string
	uploads []upload
	listErr error
}

func (m *mockStore) List(_ context.Context, prefix string) ([]string, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []string
	for _, n := range m.names {
		if strings.HasPrefix(n, prefix) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *mockStore) Upload(_ context.Context, obj domain.Object, upsert bool) error {
	if !upsert && slices.Contains(m.names, obj.Name) {
		return domain.ErrObjectExists
	}
	m.names = append(m.names, obj.Name)
	m.uploads = append(m.uploads, upload{object: obj, upsert: upsert})
	return nil
}

type mockCounter struct {
	next int
}

func (m *mockCounter) NextRevision(_ context.Context, _ string, floor int) (int, error) {
	m.next = max(m.next+1, floor)
	return m.next, nil
}

type mockMailer struct {
	sent   []domain.Message
	failTo string
}

func (m *mockMailer) Send(_ context.Context, msg domain.Message) error {
	if msg.To == m.failTo {
		return errors.New("550 mailbox unavailable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

type mockQueue struct {
	requests []domain.OnDemandRequest
}

func (m *mockQueue) Enqueue(_ context.Context, req domain.OnDemandRequest) (string, error) {
	m.requests = append(m.requests, req)
	return "42", nil
}

// --- Fixture ---

type fixture struct {
	registry *mockRegistry
	source   *mockSource
	state    *mockState
	renderer *mockRenderer
	store    *mockStore
	mailer   *mockMailer
	queue    *mockQueue
	clock    *quartz.Mock
	settings app.Settings
	counter  domain.RevisionCounter
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	clock := quartz.NewMock(t)
	clock.Set(now)
	return &fixture{
		registry: &mockRegistry{},
		source:   newMockSource(),
		state:    &mockState{},
		renderer: &mockRenderer{},
		store:    &mockStore{},
		mailer:   &mockMailer{},
		queue:    &mockQueue{},
		clock:    clock,
		settings: app.Settings{
			Location:   time.UTC,
			Locale:     domain.LocaleGerman,
			MailFrom:   "reports@chronopilot.test",
			SenderName: "ChronoPilot",
		},
	}
}

func (f *fixture) service() *app.ReportService {
	return app.NewReportService(app.Deps{
		Registry:   f.registry,
		Source:     f.source,
		State:      f.state,
		Counter:    f.counter,
		Renderer:   f.renderer,
		Rasterizer: mockRasterizer{},
		Store:      f.store,
		Mailer:     f.mailer,
		Queue:      f.queue,
		Validator:  fsm.New(),
		Clock:      f.clock,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, f.settings)
}

func tenant(id, slug string, dispatchDay int, last *int) domain.Tenant {
	t := domain.NewTenant(id, strings.ToUpper(slug)+" GmbH", slug, slug+"@example.com", dispatchDay)
	t.LastDispatchedDay = last
	return t
}

func intPtr(v int) *int { return &v }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func workEntry(d time.Time, net, overtime string) domain.TimeEntry {
	return domain.TimeEntry{Date: d, Status: "Arbeit", Net: net, Overtime: overtime, Break: "00:30:00"}
}
