package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/liverange/internal/compiler"
	"github.com/roach88/liverange/internal/dataflow"
	"github.com/roach88/liverange/internal/engine"
	"github.com/roach88/liverange/internal/store"
	"github.com/roach88/liverange/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios through the real engine with a fixed run ID and a
// fresh logical clock.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Load, compile and validate the program
// 3. Analyze the requested computation through the engine
// 4. Read the recorded run back from the store
// 5. Check expectations and assertions against the recorded run
func Run(scenario *Scenario) (*Result, error) {
	// Create fresh in-memory SQLite database
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	h := &Harness{
		store:  st,
		engine: engine.New(st, testutil.NewFixedRunIDGenerator(scenario.RunID), engine.WithLogger(logger)),
		logger: logger,
	}

	return h.run(context.Background(), scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	prog, err := compiler.LoadProgram(scenario.Program)
	if err != nil {
		return nil, fmt.Errorf("failed to load program: %w", err)
	}
	if errs := compiler.Validate(prog); len(errs) > 0 {
		return nil, fmt.Errorf("invalid program: %w", errs[0])
	}

	a, err := h.engine.Analyze(ctx, prog, engine.Request{
		Computation:  scenario.Computation,
		ModuleScoped: scenario.ModuleScoped,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to analyze: %w", err)
	}

	run, err := h.store.ReadRun(ctx, a.RunID)
	if err != nil {
		return nil, fmt.Errorf("failed to read recorded run: %w", err)
	}

	result := resultFromRun(run)
	h.logger.Debug("scenario analyzed",
		"scenario", scenario.Name,
		"run_id", run.ID,
		"ranges", len(result.Ranges),
	)

	for _, msg := range checkExpectations(result, scenario.Expect) {
		result.AddError(msg)
	}

	assertionErrors := EvaluateAssertions(result, scenario.Assertions)
	for _, errMsg := range assertionErrors {
		result.AddError(errMsg)
	}

	return result, nil
}

// resultFromRun copies a recorded run into a passing Result.
func resultFromRun(run store.Run) *Result {
	result := NewResult()
	result.RunID = run.ID
	result.TotallyOrdered = run.TotallyOrdered
	result.ScheduleEnd = run.ScheduleEnd
	result.Peak.Time = run.PeakTime
	result.Peak.Bytes = run.PeakBytes
	result.Report = run.Report
	for _, inst := range run.Instructions {
		result.Sequence = append(result.Sequence, inst.Name)
	}
	for _, r := range run.Ranges {
		result.Ranges = append(result.Ranges, RangeResult{
			Value: r.Value,
			Start: r.Start,
			End:   r.End,
			Size:  r.Size,
		})
	}
	return result
}

// normalizeValueName rewrites a value ref to the stored "name{i}" form.
// Unparseable refs are returned unchanged; scenarios are validated on load.
func normalizeValueName(ref string) string {
	r, err := dataflow.ParseValueRef(ref)
	if err != nil {
		return ref
	}
	return r.String()
}
