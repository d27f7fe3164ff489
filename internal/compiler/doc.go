// Package compiler turns CUE graph definitions into a populated
// graph.Graph.
//
// A definition has two top-level fields:
//
//	tools: {
//	    <name>: {
//	        inputs: [...string]   // accepted input kinds
//	        output: string        // produced kind
//	        join?:  bool
//	        empty?: bool          // works on zero inputs
//	        suffix?: string
//	        // exactly one of:
//	        cmd?:  string
//	        args?: [...{priority?: int, value: string}]
//	        transform?: {pass: string}
//	    }
//	}
//	edges: [...{from: string, to: string, when?: string}]
//
// Tools are inserted in declaration order, then edges in list order. A
// when of "flag" enables the edge when the flag is set, "!flag" when it is
// not. Argument values and transform pass names may reference ${param}
// placeholders, resolved by Populate.
package compiler
