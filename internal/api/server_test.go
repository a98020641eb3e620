package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"commentator/internal/artifacts"
	"commentator/internal/commentary"
	"commentator/internal/logging"
	"commentator/internal/services"
	"commentator/internal/session"
	"commentator/internal/timeline"
)

type fakeSession struct {
	mu        sync.Mutex
	id        string
	events    []session.Event
	handleErr error
	finishErr error
	finished  string
	cancelled bool
	subs      []chan session.Outcome
	closed    bool
}

func (f *fakeSession) ID() string { return f.id }

func (f *fakeSession) Handle(_ context.Context, ev session.Event) (session.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handleErr != nil {
		return session.Outcome{}, f.handleErr
	}
	f.events = append(f.events, ev)
	o := session.Outcome{
		SessionID: f.id,
		OffsetMs:  int64(len(f.events)) * 1000,
		Line:      commentary.Line{Text: "Line " + ev.Event, Role: "color"},
		Artifact:  "commentary_1000.mp3",
	}
	for _, ch := range f.subs {
		ch <- o
	}
	return o, nil
}

func (f *fakeSession) Finish(_ context.Context, output string) (timeline.Result, error) {
	if f.finishErr != nil {
		return timeline.Result{}, f.finishErr
	}
	f.finished = output
	return timeline.Result{
		OutputPath: output,
		Clips:      []artifacts.Clip{{Name: "commentary_0.mp3"}},
		Cleanup:    artifacts.Report{Removed: []string{"commentary_0.mp3"}},
	}, nil
}

func (f *fakeSession) Cancel(context.Context) (artifacts.Report, error) {
	f.cancelled = true
	return artifacts.Report{Removed: []string{"race.mp4"}}, nil
}

func (f *fakeSession) Status() session.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return session.Status{ID: f.id, State: session.StateActive, Lines: len(f.events)}
}

func (f *fakeSession) Subscribe(buffer int) (<-chan session.Outcome, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan session.Outcome, buffer)
	f.subs = append(f.subs, ch)
	return ch, func() {}
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

type factoryStub struct {
	created []*fakeSession
	err     error
}

func (fs *factoryStub) factory(context.Context) (Session, error) {
	if fs.err != nil {
		return nil, fs.err
	}
	sess := &fakeSession{id: "sess-" + string(rune('a'+len(fs.created)))}
	fs.created = append(fs.created, sess)
	return sess, nil
}

func doJSON(t *testing.T, h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestEventCreatesSessionAndReturnsLine(t *testing.T) {
	stub := &factoryStub{}
	srv := New(Options{}, stub.factory, logging.NewNop())

	w := doJSON(t, srv.Handler(), http.MethodPost, eventsPath, `{"event":"Overtake","role":"color","lap_fraction":0.5}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var outcome session.Outcome
	if err := json.Unmarshal(w.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if outcome.Line.Text != "Line Overtake" || outcome.SessionID != "sess-a" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if len(stub.created) != 1 {
		t.Fatalf("expected one session, got %d", len(stub.created))
	}
	ev := stub.created[0].events[0]
	if ev.LapFraction == nil || *ev.LapFraction != 0.5 {
		t.Fatalf("lap fraction not decoded: %+v", ev)
	}

	doJSON(t, srv.Handler(), http.MethodPost, eventsPath, `{"event":"Again","role":"color"}`, nil)
	if len(stub.created) != 1 {
		t.Fatalf("second event should reuse the session")
	}
}

func TestErrorKindsMapToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		kind string
	}{
		{"validation", services.Wrap(services.ErrValidation, "x", "y", "", nil), http.StatusBadRequest, services.KindValidation},
		{"configuration", services.Wrap(services.ErrConfiguration, "x", "y", "", nil), http.StatusBadRequest, services.KindConfiguration},
		{"backend", services.Wrap(services.ErrBackend, "x", "y", "", nil), http.StatusBadGateway, services.KindBackend},
		{"timeout", services.Wrap(services.ErrTimeout, "x", "y", "", nil), http.StatusGatewayTimeout, services.KindTimeout},
		{"artifact", services.Wrap(services.ErrArtifact, "x", "y", "", nil), http.StatusConflict, services.KindArtifact},
		{"busy", services.Wrap(services.ErrBusy, "x", "y", "", nil), http.StatusConflict, services.KindBusy},
		{"internal", errors.New("boom"), http.StatusInternalServerError, services.KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &factoryStub{}
			srv := New(Options{}, stub.factory, logging.NewNop())
			if _, err := srv.session(context.Background(), true); err != nil {
				t.Fatal(err)
			}
			stub.created[0].handleErr = tt.err

			w := doJSON(t, srv.Handler(), http.MethodPost, eventsPath, `{"event":"x","role":"color"}`, nil)
			if w.Code != tt.code {
				t.Fatalf("status = %d, want %d", w.Code, tt.code)
			}
			var body ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Kind != tt.kind || body.Error == "" {
				t.Fatalf("unexpected body: %+v", body)
			}
		})
	}
}

func TestMalformedEventIsValidationError(t *testing.T) {
	srv := New(Options{}, (&factoryStub{}).factory, logging.NewNop())
	w := doJSON(t, srv.Handler(), http.MethodPost, eventsPath, `{"event":`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestFinishExportsAndRetiresSession(t *testing.T) {
	stub := &factoryStub{}
	srv := New(Options{}, stub.factory, logging.NewNop())
	doJSON(t, srv.Handler(), http.MethodPost, eventsPath, `{"event":"x","role":"color"}`, nil)

	w := doJSON(t, srv.Handler(), http.MethodPost, finishPath, `{"output":"/out/race.mp4"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp FinishResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.OutputPath != "/out/race.mp4" || resp.Clips != 1 || resp.Cancelled {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if stub.created[0].finished != "/out/race.mp4" {
		t.Fatalf("session not finished")
	}

	doJSON(t, srv.Handler(), http.MethodPost, eventsPath, `{"event":"y","role":"color"}`, nil)
	if len(stub.created) != 2 {
		t.Fatalf("expected a fresh session after finish")
	}
}

func TestFinishFailureKeepsSession(t *testing.T) {
	stub := &factoryStub{}
	srv := New(Options{}, stub.factory, logging.NewNop())
	doJSON(t, srv.Handler(), http.MethodPost, eventsPath, `{"event":"x","role":"color"}`, nil)
	stub.created[0].finishErr = services.Wrap(services.ErrExternalTool, "timeline", "ffmpeg", "export failed", nil)

	w := doJSON(t, srv.Handler(), http.MethodPost, finishPath, `{"output":"/out/race.mp4"}`, nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	current, _ := srv.session(context.Background(), false)
	if current == nil {
		t.Fatalf("failed export should keep the session for a retry")
	}
}

func TestFinishWithEmptyOutputCancels(t *testing.T) {
	stub := &factoryStub{}
	srv := New(Options{}, stub.factory, logging.NewNop())
	doJSON(t, srv.Handler(), http.MethodPost, eventsPath, `{"event":"x","role":"color"}`, nil)

	w := doJSON(t, srv.Handler(), http.MethodPost, finishPath, `{"output":""}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp FinishResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.Cancelled || !stub.created[0].cancelled {
		t.Fatalf("expected cancellation, got %+v", resp)
	}
}

func TestCancelWithoutSession(t *testing.T) {
	srv := New(Options{}, (&factoryStub{}).factory, logging.NewNop())
	w := doJSON(t, srv.Handler(), http.MethodPost, cancelPath, "", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestStatusReportsSession(t *testing.T) {
	stub := &factoryStub{}
	srv := New(Options{}, stub.factory, logging.NewNop())

	w := doJSON(t, srv.Handler(), http.MethodGet, statusPath, "", nil)
	var resp StatusResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Active || resp.Session != nil {
		t.Fatalf("expected no session yet: %+v", resp)
	}
	if len(stub.created) != 0 {
		t.Fatalf("status must not start a session")
	}

	doJSON(t, srv.Handler(), http.MethodPost, eventsPath, `{"event":"x","role":"color"}`, nil)
	w = doJSON(t, srv.Handler(), http.MethodGet, statusPath, "", nil)
	resp = StatusResponse{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.Active || resp.Session == nil || resp.Session.Lines != 1 {
		t.Fatalf("unexpected status: %+v", resp)
	}
}

func TestTokenRequired(t *testing.T) {
	srv := New(Options{Token: "secret"}, (&factoryStub{}).factory, logging.NewNop())

	if w := doJSON(t, srv.Handler(), http.MethodGet, statusPath, "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	if w := doJSON(t, srv.Handler(), http.MethodGet, statusPath, "", map[string]string{"Authorization": "Bearer wrong"}); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", w.Code)
	}
	if w := doJSON(t, srv.Handler(), http.MethodGet, statusPath, "", map[string]string{"Authorization": "Bearer secret"}); w.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", w.Code)
	}
	if w := doJSON(t, srv.Handler(), http.MethodGet, "/healthz", "", nil); w.Code != http.StatusOK {
		t.Fatalf("health check should not need a token, got %d", w.Code)
	}
}

func TestStreamBroadcastsLines(t *testing.T) {
	stub := &factoryStub{}
	srv := New(Options{}, stub.factory, logging.NewNop())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + streamPath
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for srv.hub.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("stream client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp, err := http.Post(ts.URL+eventsPath, "application/json", strings.NewReader(`{"event":"Pit","role":"color"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var outcome session.Outcome
	if err := conn.ReadJSON(&outcome); err != nil {
		t.Fatalf("read: %v", err)
	}
	if outcome.Line.Text != "Line Pit" {
		t.Fatalf("unexpected streamed outcome: %+v", outcome)
	}
}

type heldSession struct {
	fakeSession
	entered chan context.Context
}

func (h *heldSession) Handle(ctx context.Context, ev session.Event) (session.Outcome, error) {
	h.entered <- ctx
	<-ctx.Done()
	return session.Outcome{}, ctx.Err()
}

func TestEventOutlivesClientDisconnect(t *testing.T) {
	held := &heldSession{fakeSession: fakeSession{id: "sess-held"}, entered: make(chan context.Context, 1)}
	srv := New(Options{}, func(context.Context) (Session, error) { return held, nil }, logging.NewNop())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	_, err := client.Post(ts.URL+eventsPath, "application/json", strings.NewReader(`{"event":"Overtake","role":"color"}`))
	if err == nil {
		t.Fatal("expected the client to give up while the event was held")
	}

	var flow context.Context
	select {
	case flow = <-held.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("event never reached the session")
	}
	// Give the server time to notice the dropped connection.
	time.Sleep(50 * time.Millisecond)
	if flow.Err() != nil {
		t.Fatalf("event context ended with the client: %v", flow.Err())
	}

	srv.Stop()
	select {
	case <-flow.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("event context survived server shutdown")
	}
}
