package symbols

// ScatterAncestor describes one Scatter block lexically enclosing a scope,
// nearest first.
type ScatterAncestor struct {
	ItemName string // the scatter's iteration variable name
	Scope    string // the scatter node's own scope, used to key shard symbols
}

// Graph is the external collaborator (parsed Namespace/Scope tree) the
// Symbol Resolver consults for structural facts. Distinct from
// engine/dependency.Graph because it answers identifier-resolution
// questions rather than runnability questions, even though both are backed
// by the same parsed workflow in a full deployment.
type Graph interface {
	// ScatterAncestors returns every Scatter block enclosing scope, nearest first.
	ScatterAncestors(scope string) []ScatterAncestor

	// ImportedNamespace resolves an "importedAs" alias to the scope prefix
	// of the imported namespace's calls.
	ImportedNamespace(alias string) (namespaceScope string, ok bool)

	// CallByName resolves a bare call name, visible from scope, to its
	// fully-qualified scope.
	CallByName(scope, name string) (callScope string, ok bool)

	// DeclarationByName resolves a bare declaration name, visible from
	// scope, to its fully-qualified name.
	DeclarationByName(scope, name string) (fqn string, ok bool)

	// SharesScatterAncestor reports whether a and b are nested in the same
	// innermost Scatter block (so a's shard output applies directly to b's
	// shard, rather than requiring the collected array).
	SharesScatterAncestor(a, b string) bool
}
