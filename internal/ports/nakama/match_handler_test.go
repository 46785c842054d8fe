package nakama

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"testing"
	"time"

	"thirteen/internal/app"
	"thirteen/internal/domain"
	"thirteen/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

// sentFrame is one decoded outbound message captured by the dispatcher.
type sentFrame struct {
	opCode   int64
	frame    serverFrame
	targeted []string // session ids, nil for a full broadcast
}

// mockDispatcher records match dispatcher calls for assertions.
type mockDispatcher struct {
	sent         []sentFrame
	labelUpdates []string
}

func (md *mockDispatcher) BroadcastMessage(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	var frame serverFrame
	_ = json.Unmarshal(data, &frame)
	var targeted []string
	for _, p := range presences {
		targeted = append(targeted, p.GetSessionId())
	}
	md.sent = append(md.sent, sentFrame{opCode: opCode, frame: frame, targeted: targeted})
	return nil
}

func (md *mockDispatcher) BroadcastMessageDeferred(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	return nil
}

func (md *mockDispatcher) MatchKick(presences []runtime.Presence) error {
	return nil
}

func (md *mockDispatcher) MatchLabelUpdate(label string) error {
	md.labelUpdates = append(md.labelUpdates, label)
	return nil
}

func (md *mockDispatcher) framesOfType(frameType string) []sentFrame {
	var out []sentFrame
	for _, f := range md.sent {
		if f.frame.Type == frameType {
			out = append(out, f)
		}
	}
	return out
}

// mockPresence implements runtime.Presence.
type mockPresence struct {
	userID    string
	sessionID string
	username  string
}

func (p *mockPresence) GetUserId() string    { return p.userID }
func (p *mockPresence) GetSessionId() string { return p.sessionID }
func (p *mockPresence) GetNodeId() string    { return "node-1" }
func (p *mockPresence) GetHidden() bool      { return false }
func (p *mockPresence) GetPersistence() bool { return true }
func (p *mockPresence) GetUsername() string  { return p.username }
func (p *mockPresence) GetStatus() string    { return "" }
func (p *mockPresence) GetReason() runtime.PresenceReason {
	return runtime.PresenceReason(0)
}

// mockMatchData is a client frame wrapped in a presence.
type mockMatchData struct {
	mockPresence
	opCode int64
	data   []byte
}

func (m *mockMatchData) GetOpCode() int64      { return m.opCode }
func (m *mockMatchData) GetData() []byte       { return m.data }
func (m *mockMatchData) GetReliable() bool     { return true }
func (m *mockMatchData) GetReceiveTime() int64 { return 0 }

// fakeTourneyStore is an in-memory ports.TourneyStore with the same
// conditional-write semantics as the Nakama adapter.
type fakeTourneyStore struct {
	value     []byte
	version   int
	failSaves int // inject this many version conflicts
	saves     int
}

func (s *fakeTourneyStore) Load(ctx context.Context) (*domain.Tourney, string, error) {
	if s.value == nil {
		return nil, "", nil
	}
	var t domain.Tourney
	if err := json.Unmarshal(s.value, &t); err != nil {
		return nil, "", err
	}
	return &t, strconv.Itoa(s.version), nil
}

func (s *fakeTourneyStore) Save(ctx context.Context, t *domain.Tourney, version string) (string, error) {
	if s.failSaves > 0 {
		s.failSaves--
		return "", fmt.Errorf("%w: injected", ports.ErrVersionConflict)
	}
	if version == "" {
		if s.value != nil {
			return "", fmt.Errorf("%w: snapshot already exists", ports.ErrVersionConflict)
		}
	} else if version != strconv.Itoa(s.version) {
		return "", fmt.Errorf("%w: stale version %s", ports.ErrVersionConflict, version)
	}
	data, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	s.value = data
	s.version++
	s.saves++
	return strconv.Itoa(s.version), nil
}

func (s *fakeTourneyStore) Delete(ctx context.Context) error {
	s.value = nil
	return nil
}

func (s *fakeTourneyStore) mustLoad(t *testing.T) *domain.Tourney {
	t.Helper()
	tn, _, err := s.Load(context.Background())
	if err != nil || tn == nil {
		t.Fatalf("load snapshot: %v (nil=%v)", err, tn == nil)
	}
	return tn
}

// fakeConnStore is an in-memory ports.ConnectionStore.
type fakeConnStore struct {
	records map[string]*ports.ConnectionRecord
}

func newFakeConnStore() *fakeConnStore {
	return &fakeConnStore{records: make(map[string]*ports.ConnectionRecord)}
}

func (s *fakeConnStore) Put(ctx context.Context, rec *ports.ConnectionRecord) error {
	cp := *rec
	s.records[rec.ConnectionID] = &cp
	return nil
}

func (s *fakeConnStore) Get(ctx context.Context, connectionID string) (*ports.ConnectionRecord, error) {
	rec, ok := s.records[connectionID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (s *fakeConnStore) Delete(ctx context.Context, connectionID string) error {
	delete(s.records, connectionID)
	return nil
}

func (s *fakeConnStore) All(ctx context.Context) ([]*ports.ConnectionRecord, error) {
	var out []*ports.ConnectionRecord
	for _, rec := range s.records {
		cp := *rec
		out = append(out, &cp)
	}
	return out, nil
}

func (s *fakeConnStore) ReapExpired(ctx context.Context, now int64) (int, error) {
	reaped := 0
	for id, rec := range s.records {
		if rec.TTL > 0 && rec.TTL <= now {
			delete(s.records, id)
			reaped++
		}
	}
	return reaped, nil
}

func newTestState() (*matchState, *fakeTourneyStore, *fakeConnStore) {
	tourneys := &fakeTourneyStore{}
	conns := newFakeConnStore()
	ms := &matchState{
		svc:       app.NewService(rand.New(rand.NewSource(1))),
		tourneys:  tourneys,
		conns:     conns,
		presences: make(map[string]runtime.Presence),
		ttlHours:  2,
		now:       func() time.Time { return time.Unix(5000, 0) },
	}
	return ms, tourneys, conns
}

func joinPlayer(ms *matchState, conns *fakeConnStore, userID, sessionID, name string) *mockPresence {
	p := &mockPresence{userID: userID, sessionID: sessionID, username: name}
	ms.presences[sessionID] = p
	conns.records[sessionID] = &ports.ConnectionRecord{
		ConnectionID: sessionID,
		PlayerID:     userID,
		PlayerName:   name,
		ConnectedAt:  1000,
		LastPing:     1000,
		TTL:          1000 + 7200,
	}
	return p
}

func frameMsg(p *mockPresence, action string, payload any) *mockMatchData {
	raw, _ := json.Marshal(payload)
	data, _ := json.Marshal(clientFrame{Action: action, Payload: raw})
	return &mockMatchData{mockPresence: *p, opCode: OpClientFrame, data: data}
}

func TestMatchJoinRegistersConnection(t *testing.T) {
	ms, _, conns := newTestState()
	mh := newMatchHandler()

	p := &mockPresence{userID: "user-1", sessionID: "sess-1", username: "Alice"}
	mh.MatchJoin(context.Background(), noopLogger{}, nil, nil, &mockDispatcher{}, 1, ms, []runtime.Presence{p})

	rec, _ := conns.Get(context.Background(), "sess-1")
	if rec == nil || rec.PlayerID != "user-1" || rec.PlayerName != "Alice" {
		t.Fatalf("connection record = %+v", rec)
	}
	if rec.TTL != rec.ConnectedAt+2*3600 {
		t.Errorf("ttl = %d, want connectedAt+2h", rec.TTL)
	}
	if _, ok := ms.presences["sess-1"]; !ok {
		t.Error("presence not tracked")
	}
}

func TestPingRepliesPong(t *testing.T) {
	ms, _, conns := newTestState()
	p := joinPlayer(ms, conns, "user-1", "sess-1", "Alice")
	md := &mockDispatcher{}

	ms.handleFrame(context.Background(), noopLogger{}, md, frameMsg(p, "ping", map[string]int64{"timestamp": 777}))

	pongs := md.framesOfType("pong")
	if len(pongs) != 1 {
		t.Fatalf("pong frames = %d", len(pongs))
	}
	if got := pongs[0].targeted; len(got) != 1 || got[0] != "sess-1" {
		t.Errorf("pong targets = %v", got)
	}
	payload := pongs[0].frame.Payload.(map[string]interface{})
	if payload["timestamp"].(float64) != 777 {
		t.Errorf("pong payload = %v", payload)
	}
	if rec, _ := conns.Get(context.Background(), "sess-1"); rec.LastPing == 1000 {
		t.Error("lastPing not refreshed")
	}
}

func TestMalformedFrameReturnsInvalidJSON(t *testing.T) {
	ms, _, conns := newTestState()
	p := joinPlayer(ms, conns, "user-1", "sess-1", "Alice")
	md := &mockDispatcher{}

	msg := &mockMatchData{mockPresence: *p, opCode: OpClientFrame, data: []byte("{nope")}
	ms.handleFrame(context.Background(), noopLogger{}, md, msg)

	assertErrorCode(t, md, app.CodeInvalidJSON)
}

func TestUnknownActionRejected(t *testing.T) {
	ms, _, conns := newTestState()
	p := joinPlayer(ms, conns, "user-1", "sess-1", "Alice")
	md := &mockDispatcher{}

	ms.handleFrame(context.Background(), noopLogger{}, md, frameMsg(p, "tourney/does_not_exist", nil))

	assertErrorCode(t, md, app.CodeUnknownAction)
}

func TestUnregisteredConnectionRejected(t *testing.T) {
	ms, _, _ := newTestState()
	md := &mockDispatcher{}
	p := &mockPresence{userID: "user-1", sessionID: "sess-unknown", username: "Alice"}

	ms.handleFrame(context.Background(), noopLogger{}, md, frameMsg(p, "tourney/claim_seat", nil))

	assertErrorCode(t, md, app.CodeUnauthorized)
}

func TestClaimSeatPersistsAndBroadcasts(t *testing.T) {
	ms, tourneys, conns := newTestState()
	md := &mockDispatcher{}

	players := []struct{ user, sess, name string }{
		{"user-1", "sess-1", "Alice"},
		{"user-2", "sess-2", "Bob"},
		{"user-3", "sess-3", "Carol"},
		{"user-4", "sess-4", "Dave"},
	}
	for _, pl := range players {
		p := joinPlayer(ms, conns, pl.user, pl.sess, pl.name)
		ms.handleFrame(context.Background(), noopLogger{}, md, frameMsg(p, "tourney/claim_seat", nil))
	}

	tn := tourneys.mustLoad(t)
	if tn.Status != domain.StatusStarting {
		t.Errorf("status = %s, want STARTING", tn.Status)
	}
	if tn.OccupiedCount() != 4 {
		t.Errorf("occupied = %d", tn.OccupiedCount())
	}
	if got := md.framesOfType("tourney/updated"); len(got) != 4 {
		t.Errorf("tourney/updated frames = %d, want 4", len(got))
	}
	if len(md.labelUpdates) != 4 {
		t.Errorf("label updates = %d, want 4", len(md.labelUpdates))
	}
	if last := md.labelUpdates[3]; last == "" {
		t.Error("empty label")
	}
}

func TestRuleErrorRepliesToCallerOnly(t *testing.T) {
	ms, _, conns := newTestState()
	md := &mockDispatcher{}
	alice := joinPlayer(ms, conns, "user-1", "sess-1", "Alice")
	bob := joinPlayer(ms, conns, "user-2", "sess-2", "Bob")

	pos := 0
	ms.handleFrame(context.Background(), noopLogger{}, md, frameMsg(alice, "tourney/claim_seat", map[string]int{"seatPosition": pos}))
	ms.handleFrame(context.Background(), noopLogger{}, md, frameMsg(bob, "tourney/claim_seat", map[string]int{"seatPosition": pos}))

	errs := md.framesOfType("error")
	if len(errs) != 1 {
		t.Fatalf("error frames = %d, want 1", len(errs))
	}
	if got := errs[0].targeted; len(got) != 1 || got[0] != "sess-2" {
		t.Errorf("error targets = %v, want the violator only", got)
	}
	payload := errs[0].frame.Payload.(map[string]interface{})
	if payload["code"] != domain.CodeSeatTaken {
		t.Errorf("code = %v, want SEAT_TAKEN", payload["code"])
	}
}

func TestMatchLeaveStampsDisconnect(t *testing.T) {
	ms, tourneys, conns := newTestState()
	mh := newMatchHandler()
	md := &mockDispatcher{}

	alice := joinPlayer(ms, conns, "user-1", "sess-1", "Alice")
	ms.handleFrame(context.Background(), noopLogger{}, md, frameMsg(alice, "tourney/claim_seat", nil))

	mh.MatchLeave(context.Background(), noopLogger{}, nil, nil, md, 2, ms, []runtime.Presence{alice})

	if rec, _ := conns.Get(context.Background(), "sess-1"); rec != nil {
		t.Error("connection record not deleted")
	}
	tn := tourneys.mustLoad(t)
	seat := tn.SeatOf("user-1")
	if seat == nil {
		t.Fatal("seat vanished on disconnect")
	}
	if seat.DisconnectedAt == 0 {
		t.Error("disconnectedAt not stamped")
	}
}

func TestQuickStartEndToEnd(t *testing.T) {
	ms, tourneys, conns := newTestState()
	md := &mockDispatcher{}
	alice := joinPlayer(ms, conns, "user-1", "sess-1", "Alice")

	ms.handleFrame(context.Background(), noopLogger{}, md, frameMsg(alice, "debug/quick_start", nil))

	tn := tourneys.mustLoad(t)
	if tn.Status != domain.StatusInProgress || tn.CurrentGame == nil {
		t.Fatalf("status = %s", tn.Status)
	}
	started := md.framesOfType("game/started")
	if len(started) != 1 {
		t.Fatalf("game/started frames = %d, want 1", len(started))
	}
	if got := started[0].targeted; len(got) != 1 || got[0] != "sess-1" {
		t.Errorf("game/started targets = %v", got)
	}
}

func TestVersionConflictRetries(t *testing.T) {
	ms, tourneys, conns := newTestState()
	md := &mockDispatcher{}
	alice := joinPlayer(ms, conns, "user-1", "sess-1", "Alice")

	// Seed a snapshot, then make the next save fail once.
	ms.handleFrame(context.Background(), noopLogger{}, md, frameMsg(alice, "tourney/info", nil))
	ms.handleFrame(context.Background(), noopLogger{}, md, frameMsg(alice, "tourney/claim_seat", nil))
	tourneys.failSaves = 1

	bob := joinPlayer(ms, conns, "user-2", "sess-2", "Bob")
	ms.handleFrame(context.Background(), noopLogger{}, md, frameMsg(bob, "tourney/claim_seat", nil))

	if errs := md.framesOfType("error"); len(errs) != 0 {
		t.Fatalf("unexpected errors: %+v", errs)
	}
	tn := tourneys.mustLoad(t)
	if tn.SeatOf("user-2") == nil {
		t.Error("claim lost to a transient conflict")
	}
}

func TestInfoReapsExpiredConnections(t *testing.T) {
	ms, _, conns := newTestState()
	md := &mockDispatcher{}
	alice := joinPlayer(ms, conns, "user-1", "sess-1", "Alice")
	joinPlayer(ms, conns, "user-2", "sess-2", "Bob")
	conns.records["sess-2"].TTL = 4000 // expired at the fixture clock (5000)

	ms.handleFrame(context.Background(), noopLogger{}, md, frameMsg(alice, "tourney/info", nil))

	if rec, _ := conns.Get(context.Background(), "sess-2"); rec != nil {
		t.Error("expired record not reaped")
	}
	if rec, _ := conns.Get(context.Background(), "sess-1"); rec == nil {
		t.Fatal("live record reaped")
	}
	// The live caller stays authorized for further actions.
	ms.handleFrame(context.Background(), noopLogger{}, md, frameMsg(alice, "tourney/claim_seat", nil))
	if errs := md.framesOfType("error"); len(errs) != 0 {
		t.Errorf("unexpected errors: %+v", errs)
	}
}

func TestDebugResetClearsTourney(t *testing.T) {
	ms, tourneys, conns := newTestState()
	md := &mockDispatcher{}
	alice := joinPlayer(ms, conns, "user-1", "sess-1", "Alice")

	ms.handleFrame(context.Background(), noopLogger{}, md, frameMsg(alice, "debug/quick_start", nil))
	ms.handleFrame(context.Background(), noopLogger{}, md, frameMsg(alice, "debug/reset", nil))

	tn := tourneys.mustLoad(t)
	if tn.Status != domain.StatusWaiting || tn.OccupiedCount() != 0 {
		t.Errorf("after reset: status = %s, occupied = %d", tn.Status, tn.OccupiedCount())
	}
}

func assertErrorCode(t *testing.T, md *mockDispatcher, want string) {
	t.Helper()
	errs := md.framesOfType("error")
	if len(errs) != 1 {
		t.Fatalf("error frames = %d, want 1", len(errs))
	}
	payload, ok := errs[0].frame.Payload.(map[string]interface{})
	if !ok {
		t.Fatalf("payload = %T", errs[0].frame.Payload)
	}
	if payload["code"] != want {
		t.Errorf("code = %v, want %s", payload["code"], want)
	}
}
