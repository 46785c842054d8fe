package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"thirteen/internal/domain"

	jwt "github.com/form3tech-oss/jwt-go"
	"github.com/heroiclabs/nakama-common/runtime"
)

// reconnectTokenTTL is how long a reconnect token stays redeemable.
const reconnectTokenTTL = 15 * time.Minute

// tokenSecret resolves the HMAC key for reconnect tokens from the runtime
// environment, with a test default when unset.
func tokenSecret(ctx context.Context, logger runtime.Logger) []byte {
	if env, ok := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string); ok {
		if s := env["thirteen_token_secret"]; s != "" {
			return []byte(s)
		}
	}
	logger.Warn("Reconnect token secret missing from env, using test default.")
	return []byte("test-secret")
}

// RpcReconnectToken issues a signed token binding the caller to a seat, so
// a client can prove seat ownership after its transport session dies.
//
// Payload: {"seatPosition": 0..3}
// Returns: {"token": "<jwt>"}
func RpcReconnectToken(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userId, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userId == "" {
		return "", runtime.NewError("No user session", 16) // UNAUTHENTICATED
	}

	var req struct {
		SeatPosition *int `json:"seatPosition"`
	}
	if err := json.Unmarshal([]byte(payload), &req); err != nil || req.SeatPosition == nil {
		return "", runtime.NewError("Invalid payload", 3) // INVALID_ARGUMENT
	}
	if *req.SeatPosition < 0 || *req.SeatPosition >= domain.SeatCount {
		return "", runtime.NewError("Seat position out of range", 3)
	}

	claims := jwt.MapClaims{
		"pid":  userId,
		"seat": *req.SeatPosition,
		"exp":  time.Now().Add(reconnectTokenTTL).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tokenSecret(ctx, logger))
	if err != nil {
		logger.Error("RpcReconnectToken: Failed to sign token: %v", err)
		return "", runtime.NewError("Internal error", 13) // INTERNAL
	}

	res, _ := json.Marshal(map[string]string{"token": signed})
	return string(res), nil
}

// RpcRedeemReconnectToken verifies a reconnect token and returns the seat
// the caller may rebind with tourney/reconnect.
//
// Payload: {"token": "<jwt>"}
// Returns: {"seatPosition": n}
func RpcRedeemReconnectToken(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userId, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userId == "" {
		return "", runtime.NewError("No user session", 16)
	}

	var req struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal([]byte(payload), &req); err != nil || req.Token == "" {
		return "", runtime.NewError("Invalid payload", 3)
	}

	parsed, err := jwt.Parse(req.Token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return tokenSecret(ctx, logger), nil
	})
	if err != nil || !parsed.Valid {
		return "", runtime.NewError("Invalid token", 16)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", runtime.NewError("Invalid token", 16)
	}
	pid, _ := claims["pid"].(string)
	if pid != userId {
		return "", runtime.NewError("Token belongs to another player", 7) // PERMISSION_DENIED
	}
	seatFloat, ok := claims["seat"].(float64)
	if !ok {
		return "", runtime.NewError("Invalid token", 16)
	}

	res, _ := json.Marshal(map[string]int{"seatPosition": int(seatFloat)})
	return string(res), nil
}
