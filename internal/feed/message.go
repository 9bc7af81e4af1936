package feed

import (
	"encoding/json"

	"github.com/arloliu/streamgrid/types"
)

// Message is one generated update in wire form.
type Message struct {
	Topic  string         `json:"topic,omitempty"`
	Key    string         `json:"key"`
	Op     types.Op       `json:"op"`
	Fields map[string]any `json:"fields,omitempty"`
}

// Marshal encodes the message as JSON.
func (m Message) Marshal() ([]byte, error) {
	return json.Marshal(m)
}
