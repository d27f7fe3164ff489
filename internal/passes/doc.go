// Package passes implements the transformation and analysis passes tmlink
// runs over an ir.Module, the process-wide pass registry, and the sequential
// pass manager.
//
// # Registration
//
// Every pass registers an Info from an init function. The registry is keyed
// by the pass argument (the name users type after --pass); nothing depends on
// the order in which init functions run.
//
//	func init() {
//	    Register(Info{Argument: "dce", Description: "...", New: func() Pass { return &DCE{} }})
//	}
//
// # Lookup
//
// FindByName enumerates every registered Info and instantiates the one whose
// argument matches exactly. Matching is case-sensitive; there is no prefix or
// fuzzy matching. A miss is reported as (nil, false), never a panic.
//
// # Built-in passes
//
//   - target-layout: annotate the module with its data layout
//   - internalize: give every non-entry-point definition internal linkage
//   - mem2reg: promote block-local stack slots to values
//   - verify: structural verification
//   - tm-instrument: route memory access in transactional functions through the STM
//   - dce: remove unused side-effect-free instructions
//   - noop: leave the module unchanged
package passes
