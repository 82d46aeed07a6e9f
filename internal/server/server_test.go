package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/bikeguard/internal/alert"
	"github.com/manav03panchal/bikeguard/internal/config"
	"github.com/manav03panchal/bikeguard/internal/guard"
	"github.com/manav03panchal/bikeguard/internal/model"
	"github.com/manav03panchal/bikeguard/internal/sensor"
	"github.com/manav03panchal/bikeguard/internal/storage"
)

type notes struct {
	mu     sync.Mutex
	titles []string
}

func (n *notes) Notify(title, _ string) {
	n.mu.Lock()
	n.titles = append(n.titles, title)
	n.mu.Unlock()
}

func (n *notes) has(title string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, t := range n.titles {
		if t == title {
			return true
		}
	}
	return false
}

type countingSender struct{}

func (countingSender) SendAll(_ context.Context, contacts []model.Contact, fix *model.Fix) *alert.Report {
	r := &alert.Report{Location: fix, SentAt: time.Now()}
	for _, c := range contacts {
		r.Results = append(r.Results, alert.Result{Contact: c})
	}
	return r
}

type testServer struct {
	srv       *Server
	guard     *guard.Guard
	profiles  *storage.ProfileRepo
	incidents *storage.IncidentRepo
	notes     *notes
}

func setupServer(t *testing.T, motionSrc *sensor.ChanSource) *testServer {
	t.Helper()

	db, err := storage.Open(storage.Options{InMemory: true})
	require.NoError(t, err)

	profiles := storage.NewProfileRepo(db)
	incidents := storage.NewIncidentRepo(db)
	n := &notes{}
	p, err := profiles.Get()
	require.NoError(t, err)

	g := guard.New(guard.Options{
		Profile:   p,
		Sender:    countingSender{},
		Notifier:  n,
		Incidents: incidents,
	})
	srv := New(Options{
		Config:    config.ServerConfig{Addr: "127.0.0.1:0"},
		Guard:     g,
		Profiles:  profiles,
		Incidents: incidents,
		Motion:    motionSrc,
		Notifier:  n,
	})
	t.Cleanup(func() {
		srv.Close()
		g.Close()
		db.Close()
	})

	return &testServer{srv: srv, guard: g, profiles: profiles, incidents: incidents, notes: n}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// =============================================================================
// Status and Protection Tests
// =============================================================================

func TestHealthz(t *testing.T) {
	ts := setupServer(t, nil)
	rec := ts.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestStatusEndpoint(t *testing.T) {
	ts := setupServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	st := decode[guard.Status](t, rec)
	assert.Equal(t, guard.StateInactive, st.State)
	assert.Equal(t, model.DefaultThreshold, st.Threshold)
	assert.Equal(t, model.DefaultCountdownTime, st.CountdownTime)
}

func TestProtectionEndpoints(t *testing.T) {
	ts := setupServer(t, nil)

	tests := []struct {
		path   string
		active bool
	}{
		{"/api/activate", true},
		{"/api/activate", true},
		{"/api/deactivate", false},
		{"/api/toggle", true},
		{"/api/toggle", false},
	}

	for _, tt := range tests {
		rec := ts.do(t, http.MethodPost, tt.path, "")
		require.Equal(t, http.StatusOK, rec.Code, tt.path)
		st := decode[guard.Status](t, rec)
		assert.Equal(t, tt.active, st.Active, tt.path)
		assert.Equal(t, tt.active, ts.guard.Active(), tt.path)
	}
}

// =============================================================================
// Contact Tests
// =============================================================================

func TestAddContact(t *testing.T) {
	ts := setupServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/contacts", `{"name":"Alex","phone":"+1 (555) 010-2000"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	c := decode[model.Contact](t, rec)
	assert.Equal(t, "Alex", c.Name)
	assert.NotZero(t, c.ID)
	assert.True(t, ts.notes.has("Contact saved"))

	// The guard sees the new contact immediately.
	st := ts.guard.Status()
	require.Len(t, st.Contacts, 1)
	assert.Equal(t, c.ID, st.Contacts[0].ID)

	rec = ts.do(t, http.MethodGet, "/api/contacts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Contact](t, rec), 1)
}

func TestAddContactValidation(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		note   bool
	}{
		{"missing_name", `{"name":"  ","phone":"555"}`, http.StatusBadRequest, true},
		{"missing_phone", `{"name":"Alex"}`, http.StatusBadRequest, true},
		{"bad_phone", `{"name":"Alex","phone":"call me"}`, http.StatusBadRequest, false},
		{"bad_json", `{"name":`, http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := setupServer(t, nil)
			rec := ts.do(t, http.MethodPost, "/api/contacts", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.note, ts.notes.has("Please fill all fields"))
			assert.False(t, ts.notes.has("Contact saved"))
		})
	}
}

func TestDeleteContact(t *testing.T) {
	ts := setupServer(t, nil)
	c, err := ts.profiles.AddContact("Alex", "5550102000")
	require.NoError(t, err)

	rec := ts.do(t, http.MethodDelete, "/api/contacts/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/contacts/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	errResp := decode[errorResponse](t, rec)
	assert.Equal(t, "contact not found", errResp.Error)

	rec = ts.do(t, http.MethodDelete, "/api/contacts/"+jsonInt(c.ID), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, ts.guard.Status().Contacts)
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// =============================================================================
// Settings Tests
// =============================================================================

func TestSettings(t *testing.T) {
	ts := setupServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"countdownTime":10`)

	rec = ts.do(t, http.MethodPut, "/api/settings", `{"threshold":5,"countdownTime":20,"enableSound":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	p := decode[model.Profile](t, rec)
	assert.Equal(t, 5.0, p.Threshold)
	assert.Equal(t, 20, p.CountdownTime)
	assert.False(t, p.Settings.EnableSound)
	assert.True(t, p.Settings.EnableVibration)

	st := ts.guard.Status()
	assert.Equal(t, 5.0, st.Threshold)
	assert.Equal(t, 20, st.CountdownTime)
}

func TestSettingsRejectsOutOfRange(t *testing.T) {
	ts := setupServer(t, nil)

	rec := ts.do(t, http.MethodPut, "/api/settings", `{"threshold":0.5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, "/api/settings", `{"countdownTime":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, model.DefaultThreshold, ts.guard.Status().Threshold)
}

func TestSettingsRejectedUpdateSavesNothing(t *testing.T) {
	ts := setupServer(t, nil)

	rec := ts.do(t, http.MethodPut, "/api/settings", `{"threshold":5,"countdownTime":1,"enableSound":false}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	p, err := ts.profiles.Get()
	require.NoError(t, err)
	assert.Equal(t, model.DefaultThreshold, p.Threshold)
	assert.Equal(t, model.DefaultCountdownTime, p.CountdownTime)
	assert.True(t, p.Settings.EnableSound)
	assert.Equal(t, model.DefaultThreshold, ts.guard.Status().Threshold)
}

// =============================================================================
// Alert Tests
// =============================================================================

func TestTestAlertRequiresActive(t *testing.T) {
	ts := setupServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/test", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.True(t, ts.notes.has("Please activate system first"))
}

func TestCancelWithoutAlert(t *testing.T) {
	ts := setupServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/cancel", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/send", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTestAlertAndCancel(t *testing.T) {
	ts := setupServer(t, nil)
	ts.do(t, http.MethodPost, "/api/activate", "")

	rec := ts.do(t, http.MethodPost, "/api/test", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	st := decode[guard.Status](t, rec)
	assert.Equal(t, guard.StateTriggered, st.State)

	rec = ts.do(t, http.MethodPost, "/api/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code)
	st = decode[guard.Status](t, rec)
	assert.Equal(t, guard.StateActive, st.State)
}

func TestSendNow(t *testing.T) {
	ts := setupServer(t, nil)
	_, err := ts.profiles.AddContact("Alex", "5550102000")
	require.NoError(t, err)
	_, err = ts.profiles.AddContact("Sam", "5550103000")
	require.NoError(t, err)
	p, err := ts.profiles.Get()
	require.NoError(t, err)
	ts.guard.ApplyProfile(p)

	ts.do(t, http.MethodPost, "/api/activate", "")
	require.Equal(t, http.StatusAccepted, ts.do(t, http.MethodPost, "/api/test", "").Code)

	rec := ts.do(t, http.MethodPost, "/api/send", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[sendResponse](t, rec)
	assert.Equal(t, 2, resp.Delivered)
	assert.True(t, ts.notes.has("Emergency alert sent!"))

	rec = ts.do(t, http.MethodGet, "/api/incidents", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]model.Incident](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, model.OutcomeSent, list[0].Outcome)
	assert.Equal(t, model.IncidentTest, list[0].Kind)
}

// =============================================================================
// Incident Tests
// =============================================================================

func TestIncidents(t *testing.T) {
	ts := setupServer(t, nil)
	now := time.Now()
	for _, age := range []time.Duration{time.Hour, 2 * time.Hour, 72 * time.Hour} {
		require.NoError(t, ts.incidents.Create(model.NewIncident(model.IncidentImpact, 4, 2, now.Add(-age))))
	}

	rec := ts.do(t, http.MethodGet, "/api/incidents", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Incident](t, rec), 3)

	since := now.Add(-24 * time.Hour).UTC().Format(time.RFC3339)
	rec = ts.do(t, http.MethodGet, "/api/incidents?since="+since, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Incident](t, rec), 2)

	rec = ts.do(t, http.MethodGet, "/api/incidents?limit=1", "")
	assert.Len(t, decode[[]model.Incident](t, rec), 1)

	rec = ts.do(t, http.MethodGet, "/api/incidents?since=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIncidentsEmpty(t *testing.T) {
	ts := setupServer(t, nil)
	rec := ts.do(t, http.MethodGet, "/api/incidents", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

// =============================================================================
// Motion Tests
// =============================================================================

func TestMotionToGuard(t *testing.T) {
	ts := setupServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/motion", `{"x":0,"y":0,"z":9.81}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	st := ts.guard.Status()
	require.NotNil(t, st.LastReading)
	assert.InDelta(t, 1.0, st.LastReading.GForce, 0.001)
}

func TestMotionToSource(t *testing.T) {
	src := sensor.NewChanSource(1)
	ts := setupServer(t, src)

	rec := ts.do(t, http.MethodPost, "/api/motion", `{"x":3,"z":4}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	samples, err := src.Samples(context.Background())
	require.NoError(t, err)
	s := <-samples
	require.NotNil(t, s.Accel)
	assert.Nil(t, s.Accel.Y)
	assert.Equal(t, 4.0, *s.Accel.Z)
	assert.False(t, s.At.IsZero())

	// Buffer of one: the second push fills it, the third is refused.
	assert.Equal(t, http.StatusAccepted, ts.do(t, http.MethodPost, "/api/motion", `{"x":1}`).Code)
	assert.Equal(t, http.StatusServiceUnavailable, ts.do(t, http.MethodPost, "/api/motion", `{"x":1}`).Code)
}

func TestMotionNullSample(t *testing.T) {
	ts := setupServer(t, nil)
	rec := ts.do(t, http.MethodPost, "/api/motion", `{}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Nil(t, ts.guard.Status().LastReading)
}

// =============================================================================
// CORS and Websocket Tests
// =============================================================================

func TestCORSPreflight(t *testing.T) {
	ts := setupServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/status", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestWebsocketStream(t *testing.T) {
	ts := setupServer(t, nil)
	httpSrv := httptest.NewServer(ts.srv.Handler())
	defer httpSrv.Close()

	url := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first guard.Event
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, guard.EventStatus, first.Type)
	require.NotNil(t, first.Status)
	assert.Equal(t, guard.StateInactive, first.Status.State)

	require.Eventually(t, func() bool { return ts.srv.hub.Clients() == 1 }, time.Second, 10*time.Millisecond)
	ts.guard.Activate()

	var next guard.Event
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, guard.EventStatus, next.Type)
	require.NotNil(t, next.Status)
	assert.True(t, next.Status.Active)
}

func TestHubDropsSlowClients(t *testing.T) {
	h := NewHub(nil)
	c := &client{send: make(chan guard.Event, 1)}
	require.True(t, h.add(c))

	h.broadcast(guard.Event{Type: guard.EventTick})
	h.broadcast(guard.Event{Type: guard.EventTick})
	assert.Equal(t, 1, h.dropped)

	h.Close()
	_, ok := <-c.send
	assert.True(t, ok, "buffered event still readable")
	_, ok = <-c.send
	assert.False(t, ok)
	assert.False(t, h.add(&client{send: make(chan guard.Event)}))
}
