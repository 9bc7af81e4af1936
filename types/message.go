package types

import "time"

// Op is the operation carried by an update message.
type Op string

const (
	// OpUpdate creates the row when absent or shallow-merges fields into it when present.
	OpUpdate Op = "update"

	// OpRemove deletes the row.
	OpRemove Op = "remove"
)

// Valid reports whether op is a known operation.
func (op Op) Valid() bool {
	return op == OpUpdate || op == OpRemove
}

// UpdateMessage is one decoded inbound message. It is treated as immutable once created.
type UpdateMessage struct {
	Topic      string
	Key        Key
	Op         Op
	Fields     map[string]any
	ReceivedAt time.Time
}

// IsRemove reports whether the message removes its row.
func (m UpdateMessage) IsRemove() bool {
	return m.Op == OpRemove
}

// Batch is the ordered set of messages collected within one flush window.
type Batch []UpdateMessage

// Diff is the minimal delta produced by one reconciliation cycle.
//
// Added and Updated never contain a key listed in RemovedKeys.
type Diff struct {
	Added       []Row
	Updated     []Row
	RemovedKeys []Key
}

// IsEmpty reports whether the diff carries no change.
func (d Diff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.RemovedKeys) == 0
}

// Size returns the total number of row operations in the diff.
func (d Diff) Size() int {
	return len(d.Added) + len(d.Updated) + len(d.RemovedKeys)
}
