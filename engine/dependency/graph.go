// Package dependency implements the Dependency Resolver (C2): deciding
// whether an ExecutionKey's prerequisites are satisfied, including
// scatter-shard alignment (spec §4.2).
package dependency

// Graph is the external collaborator (the parsed workflow's Namespace/Scope
// tree, out of scope per SPEC_FULL.md §1) that the resolver consults for
// structural facts about the workflow. A reimplementation of the language
// front-end supplies this; engine/dependency never inspects the AST itself.
type Graph interface {
	// Prerequisites returns the scopes that scope directly depends on.
	Prerequisites(scope string) []string

	// SameShard reports whether the closest common ancestor of prerequisite
	// and dependent is a Scatter node — i.e. whether the dependency is
	// shard-aligned (same index) rather than aggregated (index = nil).
	SameShard(prerequisite, dependent string) bool

	// HasScatterAncestor reports whether scope is lexically nested inside a
	// Scatter block (directly or transitively).
	HasScatterAncestor(scope string) bool
}
