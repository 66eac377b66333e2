// Package cachecopy implements the Cache-Hit Copy FSM (C8): replaying a
// cache hit's output files and detritus onto a new call's own paths,
// consulting the Blacklist Cache (C9) before any I/O and updating it from
// the results (spec §4.8).
package cachecopy

import "github.com/lyzr/workflow-engine/engine/model"

// CacheHit is the source side of one cache-hit copy attempt: the prior
// call's detritus map, which must carry model.CallRootPathKey.
type CacheHit struct {
	ID       string
	Detritus map[string]string
}

// CopyOutputsCommand is the Idle-state entry message (spec §4.8 "Entry").
type CopyOutputsCommand struct {
	Key        model.ExecutionKey
	Attempt    int
	ReturnCode int

	// Simpletons maps output name -> source file path, for file-valued
	// outputs only (non-file outputs pass through untouched and aren't
	// part of this type at all).
	Simpletons map[string]string

	CacheHit CacheHit

	// DestCallRoot is this call's own call-root path, the re-rooting target
	// for every source-relative file path.
	DestCallRoot string

	// DestDetritusKnown is this call's own already-known detritus paths,
	// keyed the same as CacheHit.Detritus, used wherever a detritus key
	// exists on both sides (excluding CallRootPathKey).
	DestDetritusKnown map[string]string
}

// FilePair is one source/destination path pair to copy.
type FilePair struct {
	Src, Dst string
}
