package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/digiexchris/HeatTreatFurnace/internal/fsm"
	"github.com/digiexchris/HeatTreatFurnace/internal/models"
	"github.com/digiexchris/HeatTreatFurnace/internal/profile"
	"github.com/digiexchris/HeatTreatFurnace/internal/service"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

// mockFurnace records every command. err is returned by all of them.
type mockFurnace struct {
	mu    sync.Mutex
	err   error
	calls []string

	lastProgram string
	lastProfile *profile.Profile
	lastTemp    float64
	lastSegment uint16
	lastOffset  time.Duration
	lastFault   fsm.Fault
}

func (m *mockFurnace) record(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
	return m.err
}

func (m *mockFurnace) setErr(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *mockFurnace) called() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockFurnace) LoadProfile(ctx context.Context, p *profile.Profile) error {
	m.mu.Lock()
	m.lastProfile = p
	m.mu.Unlock()
	return m.record("load_profile")
}
func (m *mockFurnace) LoadProgram(ctx context.Context, name string) error {
	m.mu.Lock()
	m.lastProgram = name
	m.mu.Unlock()
	return m.record("load_program")
}
func (m *mockFurnace) Start(ctx context.Context) error { return m.record("start") }
func (m *mockFurnace) StartAt(ctx context.Context, seg uint16, off time.Duration) error {
	m.mu.Lock()
	m.lastSegment, m.lastOffset = seg, off
	m.mu.Unlock()
	return m.record("start_at")
}
func (m *mockFurnace) Pause(ctx context.Context) error        { return m.record("pause") }
func (m *mockFurnace) Resume(ctx context.Context) error       { return m.record("resume") }
func (m *mockFurnace) Cancel(ctx context.Context) error       { return m.record("cancel") }
func (m *mockFurnace) ClearProgram(ctx context.Context) error { return m.record("clear") }
func (m *mockFurnace) Reset(ctx context.Context) error        { return m.record("reset") }
func (m *mockFurnace) SetManualTemp(ctx context.Context, t float64) error {
	m.mu.Lock()
	m.lastTemp = t
	m.mu.Unlock()
	return m.record("set_temp")
}
func (m *mockFurnace) SetNextSegment(ctx context.Context, seg uint16, off time.Duration) error {
	m.mu.Lock()
	m.lastSegment, m.lastOffset = seg, off
	m.mu.Unlock()
	return m.record("set_segment")
}
func (m *mockFurnace) RaiseFault(ctx context.Context, code fsm.ErrorCode, domain fsm.Domain, msg string) error {
	m.mu.Lock()
	m.lastFault = fsm.Fault{Code: code, Domain: domain, Message: msg}
	m.mu.Unlock()
	return m.record("fault")
}

type mockMonitoring struct {
	state models.FurnaceState
	err   error
}

func (m *mockMonitoring) GetState(ctx context.Context) (models.FurnaceState, error) {
	return m.state, m.err
}

type mockEventLog struct {
	resp   []models.FurnaceEvent
	err    error
	filter service.LogFilter
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.FurnaceEvent, error) {
	m.filter = f
	return m.resp, m.err
}

type mockPrograms struct {
	programs map[string]models.Program
	saveErr  error
	saved    []models.Program
}

func (m *mockPrograms) List(ctx context.Context) ([]models.Program, error) {
	out := make([]models.Program, 0, len(m.programs))
	for _, p := range m.programs {
		out = append(out, p)
	}
	return out, nil
}
func (m *mockPrograms) Get(ctx context.Context, name string) (models.Program, error) {
	p, ok := m.programs[name]
	if !ok {
		return models.Program{}, service.ErrProgramNotFound
	}
	return p, nil
}
func (m *mockPrograms) Save(ctx context.Context, p models.Program) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, p)
	if m.programs == nil {
		m.programs = map[string]models.Program{}
	}
	m.programs[p.Name] = p
	return nil
}
func (m *mockPrograms) Delete(ctx context.Context, name string) error {
	if _, ok := m.programs[name]; !ok {
		return service.ErrProgramNotFound
	}
	delete(m.programs, name)
	return nil
}
func (m *mockPrograms) Import(ctx context.Context, dir string) (int, error) { return 0, nil }

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

func doRequest(r http.Handler, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vv := range header {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
