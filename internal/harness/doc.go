// Package harness provides conformance testing for live-range analyses.
//
// A scenario names a CUE program, the computation to analyze and the
// scope, then pins down what the analysis must produce. The harness runs
// the real engine against a fresh in-memory store and checks the run it
// reads back.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: while_loop
//	description: "Loop state is live across the whole body"
//	program: ../programs/while.cue
//	computation: main
//	module_scoped: true
//	expect:
//	  totally_ordered: true
//	  schedule_end: 6
//	  peak_time: 2
//	  peak_bytes: 32
//	  sequence: [p, cp, c, bp, b, w]
//	  ranges:
//	    - {value: p, start: 0, end: 0}
//	assertions:
//	  - type: live_at
//	    time: 2
//	    values: [cp, c]
//	  - type: disjoint
//	    values: [cp, b]
//
// Value refs are written "name" for the top-level value of an instruction
// or "name{i,j}" for a tuple element.
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - sequence_order: Verifies instructions were flattened in the given relative order
//   - live_at: Verifies every listed value is live at a time
//   - live_count: Verifies exactly N values are live at a time
//   - disjoint: Verifies the listed values never overlap
//
// # Deterministic Testing
//
// All scenarios execute with a fixed run ID and a fresh logical clock so
// recorded runs are identical across executions. The harness uses:
//   - Fixed run IDs (from scenario.run_id or "test-run-default")
//   - A new engine clock per scenario (seq starts at 1)
//   - In-memory SQLite database (isolated per test)
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/while.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, err := range result.Errors {
//	        log.Println(err)
//	    }
//	}
package harness
