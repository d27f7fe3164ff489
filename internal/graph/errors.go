package graph

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes graph errors.
type ErrorCode string

const (
	// CodeDuplicateNode indicates a node name is already registered.
	CodeDuplicateNode ErrorCode = "DUPLICATE_NODE"

	// CodeInvalidNode indicates a node with no name.
	CodeInvalidNode ErrorCode = "INVALID_NODE"

	// CodeUnknownNode indicates an edge endpoint or lookup that names no node.
	CodeUnknownNode ErrorCode = "UNKNOWN_NODE"

	// CodeRootLoop indicates an edge that leads back to the root.
	CodeRootLoop ErrorCode = "ROOT_LOOP"

	// CodeNoPath indicates no enabled outgoing edge.
	CodeNoPath ErrorCode = "NO_PATH"

	// CodeCycle indicates a traversal revisiting a node.
	CodeCycle ErrorCode = "CYCLE"
)

// Error is returned by construction and traversal.
type Error struct {
	Code    ErrorCode
	Node    string
	Message string
}

func (e *Error) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("%s: %s (node=%s)", e.Code, e.Message, e.Node)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code ErrorCode, node, format string, args ...any) *Error {
	return &Error{Code: code, Node: node, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code of the *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ""
}

// IsNoPath reports whether err is a traversal dead end.
func IsNoPath(err error) bool {
	return CodeOf(err) == CodeNoPath
}

// IsConstructionError reports whether err came from InsertNode or InsertEdge.
func IsConstructionError(err error) bool {
	switch CodeOf(err) {
	case CodeDuplicateNode, CodeInvalidNode, CodeUnknownNode, CodeRootLoop:
		return true
	}
	return false
}
