package nakama

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/heroiclabs/nakama-common/runtime"
)

// RpcFindTourney returns the id of the tournament match, searching for a
// running instance first and creating one when none exists.
//
// Payload: unused.
// Returns: string containing the Match ID.
func RpcFindTourney(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userId, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	limit := 1
	authoritative := true
	labelQuery := fmt.Sprintf("+label.%s:>=1", MatchLabelKeyOpenSeats)
	minSize := 0
	maxSize := 4

	matches, err := nk.MatchList(ctx, limit, authoritative, "", &minSize, &maxSize, labelQuery)
	if err != nil {
		logger.Error("RpcFindTourney [User:%s]: Failed to list matches: %v", userId, err)
		return "", err
	}

	if len(matches) > 0 {
		matchId := matches[0].MatchId
		logger.Info("RpcFindTourney [User:%s]: Found existing match %s", userId, matchId)
		return matchId, nil
	}

	matchId, err := nk.MatchCreate(ctx, MatchNameThirteen, nil)
	if err != nil {
		logger.Error("RpcFindTourney [User:%s]: Failed to create match: %v", userId, err)
		return "", err
	}

	logger.Info("RpcFindTourney [User:%s]: Created new match %s", userId, matchId)
	return matchId, nil
}
