package callrunner

import "github.com/lyzr/workflow-engine/engine/model"

// InputDecl is one declared input of a call: the expression to evaluate for
// it (an identifier reference or a literal the Evaluator accepts) and the
// declared type it must coerce to.
type InputDecl struct {
	Name       string
	Expression string
	Type       model.WdlType
}

// OutputDecl is one declared output of a call.
type OutputDecl struct {
	Name       string
	Expression string
	Type       model.WdlType
}

// Graph is the external collaborator the Call Runner consults for a call's
// declared input/output shape.
type Graph interface {
	Inputs(callScope string) []InputDecl
	Outputs(callScope string) []OutputDecl
}
