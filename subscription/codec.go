package subscription

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/arloliu/streamgrid/types"
)

var (
	errMissingKey = errors.New("missing key")
	errInvalidOp  = errors.New("invalid op")
)

// wireMessage is the inbound frame shape.
type wireMessage struct {
	Topic  string          `json:"topic"`
	Key    json.RawMessage `json:"key"`
	Op     types.Op        `json:"op"`
	Fields map[string]any  `json:"fields"`
}

// Decode parses one inbound frame.
//
// Numeric keys are normalized to their decimal text so 1 and "1" address the same
// row. A frame without a topic takes the transport subject as its topic. Field
// values are kept as decoded by encoding/json.
//
// Parameters:
//   - raw: Frame received from the transport
//
// Returns:
//   - types.UpdateMessage: Decoded update
//   - error: *types.MessageParseError when the frame is malformed
func Decode(raw types.RawMessage) (types.UpdateMessage, error) {
	var w wireMessage
	if err := json.Unmarshal(raw.Data, &w); err != nil {
		return types.UpdateMessage{}, &types.MessageParseError{Subject: raw.Subject, Err: err}
	}

	key, err := decodeKey(w.Key)
	if err != nil {
		return types.UpdateMessage{}, &types.MessageParseError{Subject: raw.Subject, Err: err}
	}
	if !w.Op.Valid() {
		return types.UpdateMessage{}, &types.MessageParseError{
			Subject: raw.Subject,
			Err:     fmt.Errorf("%w %q for key %q", errInvalidOp, w.Op, key),
		}
	}

	topic := w.Topic
	if topic == "" {
		topic = raw.Subject
	}

	msg := types.UpdateMessage{
		Topic:      topic,
		Key:        key,
		Op:         w.Op,
		ReceivedAt: raw.ReceivedAt,
	}
	if w.Op == types.OpUpdate {
		msg.Fields = w.Fields
	}

	return msg, nil
}

func decodeKey(raw json.RawMessage) (types.Key, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", errMissingKey
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("key: %w", err)
		}
		if s == "" {
			return "", errMissingKey
		}

		return types.Key(s), nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("key must be a string or number: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		return types.Key(strconv.FormatInt(i, 10)), nil
	}
	f, err := n.Float64()
	if err != nil {
		return "", fmt.Errorf("key: %w", err)
	}

	return types.Key(strconv.FormatFloat(f, 'f', -1, 64)), nil
}
