// Package liverange computes buffer live ranges over a scheduled program.
//
// For every value produced by a computation the pass decides the closed
// time interval during which its buffer must stay allocated. A buffer
// allocator uses these intervals to decide which buffers may share storage.
// The pass measures liveness for a fixed order; it never reorders
// instructions or allocates memory.
//
// PIPELINE:
//
//  1. Flatten: the schedule of the analyzed computation becomes one global
//     instruction order with integer timestamps and a [start, end) span per
//     computation. In module-scoped mode called computations (call and
//     conditional targets, while condition and body) are inlined just
//     before their caller. Each computation is expanded once.
//  2. Bounds: every value gets {start, end, end position}. Parameters start
//     at their computation's start; uses extend the end; loop-carried
//     inputs end at the while body's parameter (module-scoped only); values
//     reaching a root live to the end of that computation; read-only entry
//     parameters live to the end of the program.
//  3. Normalize: bounds of values aliasing one buffer are made
//     non-overlapping in a single sorted pass.
//  4. Peak and report: read-only sweeps over the final bounds.
//
// DEGRADED INPUT:
//
// A computation without a sequence in the schedule makes the result not
// totally ordered. Run still succeeds, returns no bounds, and reports
// TotallyOrdered() == false. Callers must check it.
//
// INVARIANTS:
//   - start <= end for every bound
//   - each instruction gets exactly one timestamp per walk
//   - each value gets exactly one bound
//
// Violations return *InvariantError and abort the pass.
//
// The pass is single-threaded and keeps all state local to one Run call.
// Independent computations may be analyzed by independent Run calls.
package liverange
