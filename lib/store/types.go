package store

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Action
// --------------------------------------------------------------------------

// Action names the operation that produced a Result.
type Action string

const (
	ActionGet              Action = "get"
	ActionSet              Action = "set"
	ActionCompareAndSwap   Action = "compare_and_swap"
	ActionDelete           Action = "delete"
	ActionCompareAndDelete Action = "compare_and_delete"
)

// --------------------------------------------------------------------------
// Record & Result
// --------------------------------------------------------------------------

// Record is the state of a single key: its value and version.
// The version starts at 1 and grows by one with every successful mutation of the key.
type Record struct {
	Key     string          `json:"key"`
	Value   json.RawMessage `json:"value"`
	Version uint64          `json:"version"`
}

// Decode unmarshals the value of the record into v.
func (r *Record) Decode(v any) error {
	return json.Unmarshal(r.Value, v)
}

func (r *Record) String() string {
	return fmt.Sprintf("%s@%d=%s", r.Key, r.Version, r.Value)
}

// Result is returned by every store operation.
// Node is the state after the operation (nil after a delete), PrevNode the state before it
// (nil if the key did not exist). Queued is set for mutations that were accepted by the write
// queue but not applied yet; Node and PrevNode are nil in that case.
type Result struct {
	Action   Action  `json:"action"`
	Node     *Record `json:"node,omitempty"`
	PrevNode *Record `json:"prev_node,omitempty"`
	Queued   bool    `json:"queued,omitempty"`
}
