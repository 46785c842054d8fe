package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"thirteen/internal/app"
	"thirteen/internal/config"
	"thirteen/internal/domain"
	"thirteen/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// saveAttempts bounds the load-mutate-save retry loop on version conflicts.
const saveAttempts = 3

// matchState holds the per-match collaborators. The tournament itself is
// never cached here: every action reloads it from the store so concurrent
// workers serialize through the conditional write.
type matchState struct {
	svc       *app.Service
	tourneys  ports.TourneyStore
	conns     ports.ConnectionStore
	presences map[string]runtime.Presence // connection id -> presence
	ttlHours  int64
	tick      int64
	now       func() time.Time
}

// clientFrame is the wire envelope of every client message.
type clientFrame struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

type seatPayload struct {
	SeatPosition *int   `json:"seatPosition"`
	BotProfile   string `json:"botProfile"`
}

type cardsPayload struct {
	Cards []domain.Card `json:"cards"`
}

type pingPayload struct {
	Timestamp int64 `json:"timestamp"`
}

// mutation runs against a freshly loaded tournament. It returns the
// snapshot to persist (nil when nothing changed) and the events to send.
type mutation func(t *domain.Tourney) (*domain.Tourney, []app.Event, error)

type matchHandler struct{}

func newMatchHandler() *matchHandler {
	return &matchHandler{}
}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: initializing tournament match.")

	configPath := "data/game_config.json"
	if env, ok := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string); ok {
		if p := env["thirteen_config_path"]; p != "" {
			configPath = p
		}
	}
	if err := config.LoadGameConfig(configPath); err != nil {
		logger.Warn("MatchInit: could not load game config: %v", err)
	}

	svc := app.NewService(nil)
	svc.SetTargetScore(config.GetTargetScore())
	svc.SetDisconnectGrace(int64(config.GetDisconnectGraceSeconds()))

	state := &matchState{
		svc:       svc,
		tourneys:  NewTourneyStore(nk),
		conns:     NewConnectionStore(nk),
		presences: make(map[string]runtime.Presence),
		ttlHours:  int64(config.GetConnectionTTLHours()),
		now:       time.Now,
	}

	// Advertise the persisted tournament if one survived a match restart.
	open, status := domain.SeatCount, domain.StatusWaiting
	if t, _, err := state.tourneys.Load(ctx); err != nil {
		logger.Warn("MatchInit: could not load tourney snapshot: %v", err)
	} else if t != nil {
		open, status = openSeats(t), t.Status
	}
	label, err := marshalLabel(open, status)
	if err != nil {
		logger.Error("MatchInit: failed to marshal label: %v", err)
		return nil, 0, ""
	}

	tickRate := 1
	return state, tickRate, label
}

// MatchJoinAttempt admits everyone; non-seated presences spectate.
func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	return state, true, ""
}

// MatchJoin registers the new connections and reaps expired records.
func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	ms, ok := state.(*matchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	now := ms.now().Unix()
	for _, p := range presences {
		connID := p.GetSessionId()
		ms.presences[connID] = p
		rec := &ports.ConnectionRecord{
			ConnectionID: connID,
			PlayerID:     p.GetUserId(),
			PlayerName:   p.GetUsername(),
			ConnectedAt:  now,
			LastPing:     now,
			TTL:          now + ms.ttlHours*3600,
		}
		if err := ms.conns.Put(ctx, rec); err != nil {
			logger.Error("MatchJoin: failed to store connection %s: %v", connID, err)
		}
	}
	if reaped, err := ms.conns.ReapExpired(ctx, now); err != nil {
		logger.Warn("MatchJoin: reaping expired connections failed: %v", err)
	} else if reaped > 0 {
		logger.Debug("MatchJoin: reaped %d expired connection records.", reaped)
	}
	return ms
}

// MatchLeave drops the connection records and stamps the disconnect time on
// any seat the leavers held, while the tournament has not started.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	ms, ok := state.(*matchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	leavers := make([]string, 0, len(presences))
	for _, p := range presences {
		connID := p.GetSessionId()
		delete(ms.presences, connID)
		if err := ms.conns.Delete(ctx, connID); err != nil {
			logger.Warn("MatchLeave: failed to delete connection %s: %v", connID, err)
		}
		leavers = append(leavers, p.GetUserId())
	}

	now := ms.now().Unix()
	_, _, err := ms.withTourney(ctx, func(t *domain.Tourney) (*domain.Tourney, []app.Event, error) {
		if t.Status != domain.StatusWaiting && t.Status != domain.StatusStarting {
			return nil, nil, nil
		}
		stamped := false
		for _, playerID := range leavers {
			if seat := t.SeatOf(playerID); seat != nil && !seat.IsBot {
				seat.DisconnectedAt = now
				stamped = true
			}
		}
		if !stamped {
			return nil, nil, nil
		}
		return t, nil, nil
	})
	if err != nil {
		logger.Error("MatchLeave: failed to stamp disconnects: %v", err)
	}
	return ms
}

// MatchLoop routes the queued client frames.
func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	ms, ok := state.(*matchState)
	if !ok {
		return state
	}
	ms.tick = tick

	for _, msg := range messages {
		if msg.GetOpCode() != OpClientFrame {
			logger.Warn("MatchLoop: unknown opcode received: %d", msg.GetOpCode())
			continue
		}
		ms.handleFrame(ctx, logger, dispatcher, msg)
	}
	return ms
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	return nil
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}

// handleFrame parses and dispatches one client frame.
func (ms *matchState) handleFrame(ctx context.Context, logger runtime.Logger, dispatcher runtime.MatchDispatcher, msg runtime.MatchData) {
	connID := msg.GetSessionId()

	var frame clientFrame
	if err := json.Unmarshal(msg.GetData(), &frame); err != nil {
		sendError(logger, dispatcher, msg, app.NewError(app.CodeInvalidJSON, "malformed frame"))
		return
	}

	switch frame.Action {
	case "ping":
		ms.handlePing(ctx, logger, dispatcher, connID, frame.Payload)
		return
	case "debug/reset":
		ms.runMutation(ctx, logger, dispatcher, msg, frame.Action, func(*domain.Tourney) (*domain.Tourney, []app.Event, error) {
			nt, events := ms.svc.Reset()
			return nt, events, nil
		})
		return
	}

	// Every other action requires a registered connection.
	rec, err := ms.conns.Get(ctx, connID)
	if err != nil {
		logger.Error("handleFrame: connection lookup failed: %v", err)
		sendError(logger, dispatcher, msg, app.NewError(app.CodeInternalError, "internal error"))
		return
	}
	if rec == nil {
		sendError(logger, dispatcher, msg, app.NewError(app.CodeUnauthorized, "connection not registered"))
		return
	}

	var mutate mutation
	switch frame.Action {
	case "tourney/info":
		if reaped, err := ms.conns.ReapExpired(ctx, ms.now().Unix()); err != nil {
			logger.Warn("handleFrame: reaping expired connections failed: %v", err)
		} else if reaped > 0 {
			logger.Debug("handleFrame: reaped %d expired connection records.", reaped)
		}
		mutate = func(t *domain.Tourney) (*domain.Tourney, []app.Event, error) {
			events, changed := ms.svc.Info(t, connID)
			if !changed {
				return nil, events, nil
			}
			return t, events, nil
		}
	case "tourney/claim_seat":
		var p seatPayload
		if !decodePayload(frame.Payload, &p, logger, dispatcher, msg) {
			return
		}
		mutate = func(t *domain.Tourney) (*domain.Tourney, []app.Event, error) {
			events, err := ms.svc.ClaimSeat(t, rec.PlayerID, playerName(rec), connID, p.SeatPosition)
			return t, events, err
		}
	case "tourney/leave":
		mutate = func(t *domain.Tourney) (*domain.Tourney, []app.Event, error) {
			events, err := ms.svc.Leave(t, rec.PlayerID)
			return t, events, err
		}
	case "tourney/ready":
		mutate = func(t *domain.Tourney) (*domain.Tourney, []app.Event, error) {
			events, err := ms.svc.Ready(t, rec.PlayerID)
			return t, events, err
		}
	case "tourney/add_bot":
		var p seatPayload
		if !decodePayload(frame.Payload, &p, logger, dispatcher, msg) {
			return
		}
		mutate = func(t *domain.Tourney) (*domain.Tourney, []app.Event, error) {
			events, err := ms.svc.AddBot(t, p.SeatPosition, p.BotProfile)
			return t, events, err
		}
	case "tourney/kick_bot":
		var p seatPayload
		if !decodePayload(frame.Payload, &p, logger, dispatcher, msg) {
			return
		}
		mutate = func(t *domain.Tourney) (*domain.Tourney, []app.Event, error) {
			events, err := ms.svc.KickBot(t, p.SeatPosition)
			return t, events, err
		}
	case "tourney/reconnect":
		var p seatPayload
		if !decodePayload(frame.Payload, &p, logger, dispatcher, msg) {
			return
		}
		mutate = func(t *domain.Tourney) (*domain.Tourney, []app.Event, error) {
			events, err := ms.svc.Reconnect(t, rec.PlayerID, connID, p.SeatPosition)
			return t, events, err
		}
	case "game/play":
		var p cardsPayload
		if !decodePayload(frame.Payload, &p, logger, dispatcher, msg) {
			return
		}
		mutate = func(t *domain.Tourney) (*domain.Tourney, []app.Event, error) {
			events, err := ms.svc.Play(t, rec.PlayerID, p.Cards)
			return t, events, err
		}
	case "game/pass":
		mutate = func(t *domain.Tourney) (*domain.Tourney, []app.Event, error) {
			events, err := ms.svc.Pass(t, rec.PlayerID)
			return t, events, err
		}
	case "debug/quick_start":
		var p seatPayload
		if !decodePayload(frame.Payload, &p, logger, dispatcher, msg) {
			return
		}
		mutate = func(*domain.Tourney) (*domain.Tourney, []app.Event, error) {
			return ms.svc.QuickStart(rec.PlayerID, playerName(rec), connID, p.SeatPosition)
		}
	default:
		sendError(logger, dispatcher, msg, app.NewError(app.CodeUnknownAction, "unknown action "+frame.Action))
		return
	}

	ms.runMutation(ctx, logger, dispatcher, msg, frame.Action, mutate)
}

// runMutation executes a mutation under the retry loop and publishes its
// outcome.
func (ms *matchState) runMutation(ctx context.Context, logger runtime.Logger, dispatcher runtime.MatchDispatcher, sender runtime.Presence, action string, mutate mutation) {
	t, events, err := ms.withTourney(ctx, mutate)
	if err != nil {
		var appErr *app.Error
		if errors.As(err, &appErr) {
			sendError(logger, dispatcher, sender, appErr)
			return
		}
		logger.Error("runMutation: %s failed: %v", action, err)
		sendError(logger, dispatcher, sender, app.NewError(app.CodeInternalError, "internal error"))
		return
	}
	ms.sendEvents(logger, dispatcher, events)
	if t != nil {
		ms.updateLabel(t, dispatcher, logger)
	}
}

// withTourney runs one load-mutate-save cycle, retrying on version
// conflicts. A nil snapshot from the mutation skips the save.
func (ms *matchState) withTourney(ctx context.Context, mutate mutation) (*domain.Tourney, []app.Event, error) {
	var lastErr error
	for attempt := 0; attempt < saveAttempts; attempt++ {
		t, version, err := ms.tourneys.Load(ctx)
		if err != nil {
			return nil, nil, err
		}
		if t == nil {
			t = ms.svc.NewTourney()
			version = ""
		}
		save, events, err := mutate(t)
		if err != nil {
			return nil, nil, err
		}
		if save == nil {
			return t, events, nil
		}
		if _, err := ms.tourneys.Save(ctx, save, version); err != nil {
			if errors.Is(err, ports.ErrVersionConflict) {
				lastErr = err
				continue
			}
			return nil, nil, err
		}
		return save, events, nil
	}
	return nil, nil, lastErr
}

func (ms *matchState) handlePing(ctx context.Context, logger runtime.Logger, dispatcher runtime.MatchDispatcher, connID string, payload json.RawMessage) {
	var p pingPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p); err != nil {
			logger.Debug("handlePing: ignoring malformed payload: %v", err)
		}
	}
	if rec, err := ms.conns.Get(ctx, connID); err != nil {
		logger.Warn("handlePing: connection lookup failed: %v", err)
	} else if rec != nil {
		rec.LastPing = ms.now().Unix()
		if err := ms.conns.Put(ctx, rec); err != nil {
			logger.Warn("handlePing: failed to refresh connection %s: %v", connID, err)
		}
	}
	ms.sendEvents(logger, dispatcher, []app.Event{{
		Kind:       app.EventPong,
		Payload:    app.PongPayload{Timestamp: p.Timestamp},
		Recipients: []string{connID},
	}})
}

func decodePayload(raw json.RawMessage, into any, logger runtime.Logger, dispatcher runtime.MatchDispatcher, sender runtime.Presence) bool {
	if len(raw) == 0 {
		return true
	}
	if err := json.Unmarshal(raw, into); err != nil {
		sendError(logger, dispatcher, sender, app.NewError(app.CodeInvalidJSON, "malformed payload"))
		return false
	}
	return true
}

func playerName(rec *ports.ConnectionRecord) string {
	if rec.PlayerName != "" {
		return rec.PlayerName
	}
	return "Player_" + shortID(rec.PlayerID)
}

func shortID(id string) string {
	if len(id) > 6 {
		return id[:6]
	}
	return id
}

func openSeats(t *domain.Tourney) int {
	return domain.SeatCount - t.OccupiedCount()
}
