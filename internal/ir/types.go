package ir

import (
	"strconv"
	"strings"
)

// Module is the unit tmlink loads from a bitstream, transforms and writes back.
type Module struct {
	Name         string     `json:"name"`
	TargetLayout string     `json:"target_layout,omitempty"`
	Globals      []Global   `json:"globals,omitempty"`
	Functions    []Function `json:"functions,omitempty"`
}

// Linkage values.
const (
	LinkageExternal = "external"
	LinkageInternal = "internal"
)

// ValidLinkages defines allowed linkage strings.
var ValidLinkages = map[string]bool{
	LinkageExternal: true,
	LinkageInternal: true,
}

// Global is a module-level integer variable.
type Global struct {
	Name    string `json:"name"`
	Linkage string `json:"linkage"`
	Init    int64  `json:"init,omitempty"`
}

// Function is a declaration when it has no blocks.
type Function struct {
	Name    string   `json:"name"`
	Linkage string   `json:"linkage"`
	Params  []string `json:"params,omitempty"` // "%a", "%b"
	Attrs   []string `json:"attrs,omitempty"`  // "transaction", ...
	Blocks  []Block  `json:"blocks,omitempty"`
}

// IsDeclaration reports whether f has no body.
func (f *Function) IsDeclaration() bool {
	return len(f.Blocks) == 0
}

// HasAttr reports whether f carries the named attribute.
func (f *Function) HasAttr(name string) bool {
	for _, a := range f.Attrs {
		if a == name {
			return true
		}
	}
	return false
}

// Block is a labeled straight-line instruction sequence ending in a terminator.
type Block struct {
	Label  string  `json:"label"`
	Instrs []Instr `json:"instrs"`
}

// Instr is a single instruction. Result is empty for instructions that do
// not produce a value.
type Instr struct {
	Result string   `json:"result,omitempty"`
	Op     Opcode   `json:"op"`
	Args   []string `json:"args,omitempty"`
}

// Opcode names an instruction kind.
type Opcode string

const (
	OpAlloca  Opcode = "alloca"
	OpLoad    Opcode = "load"
	OpStore   Opcode = "store"
	OpTMLoad  Opcode = "tmload"
	OpTMStore Opcode = "tmstore"
	OpAdd     Opcode = "add"
	OpSub     Opcode = "sub"
	OpMul     Opcode = "mul"
	OpEq      Opcode = "eq"
	OpCall    Opcode = "call"
	OpBr      Opcode = "br"
	OpCondBr  Opcode = "condbr"
	OpRet     Opcode = "ret"
)

// OpInfo describes the static shape of an opcode.
type OpInfo struct {
	MinArgs     int
	MaxArgs     int  // -1 means unbounded
	Result      bool // produces a value
	ResultOpt   bool // result may be omitted (call)
	SideEffects bool
	Terminator  bool
}

// Opcodes is the instruction table used by the verifier and the passes.
var Opcodes = map[Opcode]OpInfo{
	OpAlloca:  {MinArgs: 0, MaxArgs: 0, Result: true},
	OpLoad:    {MinArgs: 1, MaxArgs: 1, Result: true},
	OpStore:   {MinArgs: 2, MaxArgs: 2, SideEffects: true},
	OpTMLoad:  {MinArgs: 1, MaxArgs: 1, Result: true, SideEffects: true},
	OpTMStore: {MinArgs: 2, MaxArgs: 2, SideEffects: true},
	OpAdd:     {MinArgs: 2, MaxArgs: 2, Result: true},
	OpSub:     {MinArgs: 2, MaxArgs: 2, Result: true},
	OpMul:     {MinArgs: 2, MaxArgs: 2, Result: true},
	OpEq:      {MinArgs: 2, MaxArgs: 2, Result: true},
	OpCall:    {MinArgs: 1, MaxArgs: -1, Result: true, ResultOpt: true, SideEffects: true},
	OpBr:      {MinArgs: 1, MaxArgs: 1, SideEffects: true, Terminator: true},
	OpCondBr:  {MinArgs: 3, MaxArgs: 3, SideEffects: true, Terminator: true},
	OpRet:     {MinArgs: 0, MaxArgs: 1, SideEffects: true, Terminator: true},
}

// IsTerminator reports whether op ends a block.
func (op Opcode) IsTerminator() bool {
	return Opcodes[op].Terminator
}

// ValueOperands returns the operands of in that refer to values, skipping
// branch labels.
func (in Instr) ValueOperands() []string {
	switch in.Op {
	case OpBr:
		return nil
	case OpCondBr:
		if len(in.Args) > 0 {
			return in.Args[:1]
		}
		return nil
	default:
		return in.Args
	}
}

// Labels returns the branch targets of in.
func (in Instr) Labels() []string {
	switch in.Op {
	case OpBr:
		return in.Args
	case OpCondBr:
		if len(in.Args) > 1 {
			return in.Args[1:]
		}
	}
	return nil
}

// Undef is the operand used for a value that was never defined.
const Undef = "undef"

// IsLocal reports whether s names a parameter or instruction result.
func IsLocal(s string) bool {
	return len(s) > 1 && s[0] == '%'
}

// IsGlobalRef reports whether s names a global or function.
func IsGlobalRef(s string) bool {
	return len(s) > 1 && s[0] == '@'
}

// IsLiteral reports whether s is an integer literal or undef.
func IsLiteral(s string) bool {
	if s == Undef {
		return true
	}
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

// Function returns the function named name, or nil.
func (m *Module) Function(name string) *Function {
	name = strings.TrimPrefix(name, "@")
	for i := range m.Functions {
		if m.Functions[i].Name == name {
			return &m.Functions[i]
		}
	}
	return nil
}
