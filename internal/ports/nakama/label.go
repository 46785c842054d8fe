package nakama

import (
	"thirteen/internal/domain"

	"github.com/heroiclabs/nakama-common/runtime"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// marshalLabel builds the advertised match label. RpcFindTourney queries it
// with "+label.open:>=1".
func marshalLabel(open int, status domain.Status) (string, error) {
	label, err := structpb.NewStruct(map[string]interface{}{
		MatchLabelKeyOpenSeats: open,
		MatchLabelKeyGame:      "thirteen",
		MatchLabelKeyStatus:    string(status),
	})
	if err != nil {
		return "", err
	}
	data, err := (&protojson.MarshalOptions{EmitUnpopulated: true}).Marshal(label)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// updateLabel re-advertises the label after a seat or status change.
func (ms *matchState) updateLabel(t *domain.Tourney, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	label, err := marshalLabel(openSeats(t), t.Status)
	if err != nil {
		logger.Error("updateLabel: failed to marshal label: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("updateLabel: label update failed: %v", err)
	}
}
