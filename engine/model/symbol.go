package model

// WdlType is a coarse value-type tag used for coercion at call boundaries.
// Named after the source workflow language's type system but intentionally
// minimal — the language's own type checker is an external collaborator.
type WdlType int

const (
	TypeString WdlType = iota
	TypeInt
	TypeFloat
	TypeBool
	TypeFile
	TypeArray
	TypeMap
	TypeObject
)

func (t WdlType) String() string {
	switch t {
	case TypeString:
		return "String"
	case TypeInt:
		return "Int"
	case TypeFloat:
		return "Float"
	case TypeBool:
		return "Boolean"
	case TypeFile:
		return "File"
	case TypeArray:
		return "Array"
	case TypeMap:
		return "Map"
	case TypeObject:
		return "Object"
	default:
		return "Unknown"
	}
}

// TypeFromValue infers the coarse WdlType tag of a decoded JSON-ish value,
// used when persisting symbols (e.g. scatter items) that never went through
// declared-type coercion.
func TypeFromValue(v any) WdlType {
	switch v.(type) {
	case string:
		return TypeString
	case int, int64:
		return TypeInt
	case float64, float32:
		return TypeFloat
	case bool:
		return TypeBool
	case []any:
		return TypeArray
	case map[string]any:
		return TypeObject
	default:
		return TypeString
	}
}

// Symbol is a single named value in a workflow: a declared input, a call
// output, or an intermediate declaration. Symbols are write-once.
type Symbol struct {
	Scope    string // fully-qualified name of the owning declaration/call
	Name     string
	Index    *int // present when the symbol belongs to a scatter shard
	IsInput  bool
	WdlType  WdlType
	WdlValue any // nil until resolved/produced
}

// FullyQualifiedName is Scope.Name, the identity gjson/CAS paths are keyed by.
func (s Symbol) FullyQualifiedName() string {
	if s.Name == "" {
		return s.Scope
	}
	return s.Scope + "." + s.Name
}

// CallOutputs maps a call's locally-declared output name to its value.
type CallOutputs map[string]any

// JobPaths is the set of filesystem locations a call's backend assigns it.
type JobPaths struct {
	CallRoot string
	Detritus map[string]string // e.g. "stdout" -> path, "script" -> path, CallRootPathKey -> call root
}

// CallRootPathKey is the well-known detritus key carrying the call root path,
// required by the Cache-Hit Copy FSM (spec §4.8) to derive source/destination
// roots.
const CallRootPathKey = "callRootPath"

// WorkflowDescriptor is the immutable identity and options of one workflow run.
type WorkflowDescriptor struct {
	ID              string
	NamespaceName   string // the parsed namespace's root workflow name (external collaborator's identity)
	WorkflowOptions map[string]any
}
