// Package model defines the data types shared by every Workflow Execution
// Core component: execution keys, statuses, symbols, call outputs, and the
// wire-level types exchanged with Backend, DataAccess, and IoClient.
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// KeyKind tags the variant of an ExecutionKey.
type KeyKind int

const (
	CallKeyKind KeyKind = iota
	ScatterKeyKind
	CollectorKeyKind
)

func (k KeyKind) String() string {
	switch k {
	case CallKeyKind:
		return "call"
	case ScatterKeyKind:
		return "scatter"
	case CollectorKeyKind:
		return "collector"
	default:
		return "unknown"
	}
}

// ExecutionKey uniquely identifies one execution-store entry within a
// workflow: (scope, index) for CallKey/ScatterKey, (scope) for CollectorKey.
// A CollectorKey's Index is always nil.
type ExecutionKey struct {
	Kind  KeyKind
	Scope string // fully-qualified name of the scatter/call/collector node
	Index *int   // shard index, nil outside (or above) a scatter
}

// NewCallKey builds a CallKey, optionally scattered.
func NewCallKey(scope string, index *int) ExecutionKey {
	return ExecutionKey{Kind: CallKeyKind, Scope: scope, Index: index}
}

// NewScatterKey builds a ScatterKey for the scatter node itself.
func NewScatterKey(scope string, index *int) ExecutionKey {
	return ExecutionKey{Kind: ScatterKeyKind, Scope: scope, Index: index}
}

// NewCollectorKey builds a CollectorKey for a scattered call's shard-merge point.
func NewCollectorKey(scope string) ExecutionKey {
	return ExecutionKey{Kind: CollectorKeyKind, Scope: scope, Index: nil}
}

// String renders a stable, human-readable identity — also used as the map
// key internally by ExecutionStore so two ExecutionKey values with equal
// fields always collide on the same entry.
func (k ExecutionKey) String() string {
	idx := "_"
	if k.Index != nil {
		idx = fmt.Sprintf("%d", *k.Index)
	}
	return fmt.Sprintf("%s:%s[%s]", k.Kind, k.Scope, idx)
}

// IsShard reports whether this key lives inside a scatter (has a concrete index).
func (k ExecutionKey) IsShard() bool {
	return k.Index != nil
}

// ParseExecutionKeyString is the inverse of String, used by the Workflow FSM
// to reconstruct structured keys from DataAccess.getExecutionStatuses'
// string-keyed map on restart.
func ParseExecutionKeyString(s string) (ExecutionKey, bool) {
	colon := strings.Index(s, ":")
	if colon < 0 {
		return ExecutionKey{}, false
	}
	var kind KeyKind
	switch s[:colon] {
	case "call":
		kind = CallKeyKind
	case "scatter":
		kind = ScatterKeyKind
	case "collector":
		kind = CollectorKeyKind
	default:
		return ExecutionKey{}, false
	}

	rest := s[colon+1:]
	open := strings.LastIndex(rest, "[")
	if open < 0 || !strings.HasSuffix(rest, "]") {
		return ExecutionKey{}, false
	}
	scope := rest[:open]
	idxStr := rest[open+1 : len(rest)-1]

	var index *int
	if idxStr != "_" {
		n, err := strconv.Atoi(idxStr)
		if err != nil {
			return ExecutionKey{}, false
		}
		index = &n
	}
	return ExecutionKey{Kind: kind, Scope: scope, Index: index}, true
}
