// Package engine orchestrates live-range analysis runs.
//
// One run of Engine.Analyze:
//  1. Resolve the requested computation (default: module entry)
//  2. Hash the program (ir.ProgramHash) so runs of the same input group together
//  3. Warn about recursive computations (compiler.AnalyzeCycles)
//  4. Build values and buffers (dataflow.Build)
//  5. Run the live-range pass (liverange.Run)
//  6. Compute the peak and render the report
//  7. Stamp the run with a UUIDv7 ID and a logical seq, then record it
//
// A schedule that is not totally ordered degrades the run instead of
// failing it: the Analysis has TotallyOrdered false and empty ranges, and
// it is still recorded so history shows the attempt.
//
// # Logical Clock
//
// Runs are ordered by seq from Clock.Next. NEVER order history by
// wall-clock time. A CLI invocation resumes the clock from the latest seq
// in the store (NewWithClock + NewClockAt).
//
// # Replay
//
// Engine.Replay re-analyzes a program against a recorded run and lists
// differences. The pass is deterministic, so a replay of an unchanged
// program with an unchanged analyzer is always identical.
package engine
