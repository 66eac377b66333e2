package cachecopy

import (
	"context"
	"strings"

	"github.com/lyzr/workflow-engine/engine/model"
)

// Capability is the backend-specific hook set the base FSM dispatches to
// instead of subclassing (SPEC_FULL.md §9 design note: "a backend provides
// them via an interface value, not subclassing").
type Capability interface {
	// Duplicate attempts a server-side copy optimization (e.g. same-bucket
	// rename). attempted=false means "no opinion, fall through to the I/O
	// broker" — the Option::None case in the source design; attempted=true
	// with a non-nil error means the optimization was tried and failed.
	Duplicate(ctx context.Context, pairs []FilePair) (attempted bool, err error)

	// AdditionalIoCommands returns extra commands, dispatched together as one
	// further command set once the primary copy set has fully drained (e.g.
	// Touch for cache freshness). At most one additional set is supported.
	AdditionalIoCommands(ctx context.Context, hit CacheHit, destCallRoot string) ([]model.IoCommand, error)

	// ExtractBlacklistPrefix derives the bucket/prefix blacklist key from a
	// file path.
	ExtractBlacklistPrefix(path string) string
}

// NoopCapability is the default Capability: no server-side optimization, no
// additional commands, and a coarse path-prefix blacklist key (everything up
// to and including the third "/"-separated segment, which captures a
// "scheme://bucket" style root for typical object-storage paths).
type NoopCapability struct{}

func (NoopCapability) Duplicate(ctx context.Context, pairs []FilePair) (bool, error) {
	return false, nil
}

func (NoopCapability) AdditionalIoCommands(ctx context.Context, hit CacheHit, destCallRoot string) ([]model.IoCommand, error) {
	return nil, nil
}

func (NoopCapability) ExtractBlacklistPrefix(path string) string {
	parts := strings.SplitN(path, "/", 4)
	if len(parts) <= 3 {
		return path
	}
	return strings.Join(parts[:3], "/")
}
