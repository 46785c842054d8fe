package app

// Error codes sent to clients in error frames. Rule codes raised inside the
// domain (seating, readiness, play legality) share the same wire values.
const (
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeInvalidJSON         = "INVALID_JSON"
	CodeUnknownAction       = "UNKNOWN_ACTION"
	CodeMissingSeatPosition = "MISSING_SEAT_POSITION"
	CodeNoActiveGame        = "NO_ACTIVE_GAME"
	CodeCantPass            = "CANT_PASS"
	CodeInternalError       = "INTERNAL_ERROR"
	CodeNotImplemented      = "NOT_IMPLEMENTED"
)

// Error is a rule violation reported to the caller only. It never aborts
// the worker and never mutates state.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// NewError builds a coded client error.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// ruleMessages maps domain rule codes to their human strings.
var ruleMessages = map[string]string{
	"TOURNEY_IN_PROGRESS": "tournament already in progress",
	"TOURNEY_FULL":        "all seats are taken",
	"SEAT_TAKEN":          "seat is already taken",
	"INVALID_SEAT":        "seat position out of range",
	"SEAT_EMPTY":          "seat is empty",
	"NOT_A_BOT":           "seat is not occupied by a bot",
	"NOT_IN_TOURNEY":      "you are not seated in the tournament",
	"INVALID_STATE":       "action not allowed in the current state",
	"SEAT_NOT_FOUND":      "no seat found for reconnection",
	"NOT_YOUR_TURN":       "it is not your turn",
	"ALREADY_PASSED":      "you already passed this round",
	"INVALID_COMBO":       "those cards do not form a valid combination",
	"CANT_OPEN_WITH_BOMB": "a bomb cannot open a round",
	"CANT_BEAT_LAST_PLAY": "that does not beat the last play",
}

// ruleError wraps a domain rule code in a client error.
func ruleError(code string) *Error {
	msg, ok := ruleMessages[code]
	if !ok {
		msg = "request rejected"
	}
	return &Error{Code: code, Message: msg}
}
