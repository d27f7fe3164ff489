// Package action turns a tool stage and its concrete inputs into the work
// that stage has to do.
//
// Generate never performs work itself. It returns one of two variants:
//
//   - *ExternalCommand: a program and its arguments, run by the driver's
//     executor.
//   - *InProcessWork: a function the driver calls directly, used for the
//     module transformation stage.
//
// Both carry the stage name, the output path and whether this stage is the
// end of the chain.
package action
