// Package pipeline loads an IR module, runs the fixed pass sequence over it
// and writes the result.
//
// The sequence is always:
//
//	target-layout -> internalize -> mem2reg -> <named pass> -> verify
//
// The named pass is resolved from the passes registry before any pass runs
// and before the output path is touched, so an unknown name never leaves a
// file behind. Output is written to a temporary file beside the destination
// and renamed into place; the temporary file is registered for removal on
// SIGINT/SIGTERM before the first byte is written.
package pipeline
