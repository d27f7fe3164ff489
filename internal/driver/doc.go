// Package driver walks the compilation graph for a set of inputs and runs
// the resulting actions.
//
// A build is strictly sequential. The plan is fixed up front from the
// graph and the flags. Each stage generates all of its actions before any
// of them runs, so an arity or kind problem is reported before the stage
// has side effects. Actions then run one at a time: external commands
// through the Executor, in-process work by calling it directly.
//
// Every action is stamped with a sequence number from a logical Clock and,
// when a Journal is configured, recorded there.
package driver
