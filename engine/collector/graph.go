package collector

// Graph is the external collaborator the Collector consults for the
// structural facts of the underlying task being merged across shards.
type Graph interface {
	// DeclaredOutputs returns the task's declared output names, in
	// declaration order, for the call scope underlying collectorScope.
	DeclaredOutputs(collectorScope string) []string
}
