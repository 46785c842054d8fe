package nakama

const (
	// MatchNameThirteen is the authoritative match handler name registered
	// with Nakama. One instance hosts the global tournament.
	MatchNameThirteen = "thirteen_tourney"

	// RpcFindTourneyID finds or creates the tournament match.
	RpcFindTourneyID = "find_tourney"
	// RpcReconnectTokenID issues a signed reconnect token for a seat.
	RpcReconnectTokenID = "reconnect_token"
	// RpcRedeemReconnectTokenID verifies a reconnect token.
	RpcRedeemReconnectTokenID = "redeem_reconnect_token"
)

// Storage collections.
const (
	CollectionTourneys    = "tourneys"
	CollectionConnections = "connections"
)

// Op codes. All client actions travel in JSON frames under one opcode; the
// action tag inside the frame routes them.
const (
	OpClientFrame int64 = 1
	OpServerFrame int64 = 2
)

// Match label keys, queried by RpcFindTourney.
const (
	MatchLabelKeyOpenSeats = "open"
	MatchLabelKeyGame      = "game"
	MatchLabelKeyStatus    = "status"
)
