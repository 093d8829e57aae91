package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/liverange/internal/compiler"
	"github.com/roach88/liverange/internal/dataflow"
	"github.com/roach88/liverange/internal/ir"
	"github.com/roach88/liverange/internal/liverange"
	"github.com/roach88/liverange/internal/store"
)

// Engine runs live-range analyses over compiled programs and records each
// run in the store.
//
// An analysis is synchronous and single-threaded: dataflow, then the
// live-range pass, then peak and report. The engine's own state is the
// logical clock and the run ID generator, both safe for concurrent use.
type Engine struct {
	store  *store.Store // nil: runs are not recorded
	clock  *Clock
	runIDs RunIDGenerator
	logger *slog.Logger
	sizeOf liverange.SizeFunc
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithLogger sets the logger for run lifecycle and pass tracing.
// Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithSizeFunc overrides how value sizes are computed.
// Default: liverange.DefaultSizeFunc.
func WithSizeFunc(sizeOf liverange.SizeFunc) Option {
	return func(e *Engine) {
		if sizeOf != nil {
			e.sizeOf = sizeOf
		}
	}
}

// New creates an Engine with the given store and run ID generator. The
// store may be nil, in which case runs are analyzed but not recorded.
func New(s *store.Store, runIDs RunIDGenerator, opts ...Option) *Engine {
	return NewWithClock(s, runIDs, NewClock(), opts...)
}

// NewWithClock creates an Engine with a pre-configured clock.
// Used to resume sequence numbers after the latest stored run.
func NewWithClock(s *store.Store, runIDs RunIDGenerator, clock *Clock, opts ...Option) *Engine {
	e := &Engine{
		store:  s,
		clock:  clock,
		runIDs: runIDs,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		sizeOf: liverange.DefaultSizeFunc,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Request selects what to analyze.
type Request struct {
	// Computation to analyze. Empty means the module entry.
	Computation string

	// ModuleScoped inlines called computations into the flattened order.
	ModuleScoped bool
}

// Analysis is the outcome of one run.
type Analysis struct {
	RunID          string
	Seq            int64
	ProgramHash    string
	Module         string
	Computation    string
	ModuleScoped   bool
	TotallyOrdered bool
	Peak           liverange.Peak
	Report         string
	Warnings       []compiler.CycleWarning

	LiveRange *liverange.LiveRange
	Dataflow  *dataflow.Analysis
}

// Analyze runs the live-range analysis of one computation of prog and
// records the run when the engine has a store.
//
// A schedule that is not totally ordered still yields an Analysis, with
// TotallyOrdered false and empty ranges. Callers decide how to surface it.
func (e *Engine) Analyze(ctx context.Context, prog *compiler.Program, req Request) (*Analysis, error) {
	a, err := e.analyze(ctx, prog, req)
	if err != nil {
		return nil, err
	}

	a.RunID = e.runIDs.Generate()
	a.Seq = e.clock.Next()

	if e.store != nil {
		rec, err := e.toRecord(a)
		if err != nil {
			return nil, e.failRun(ErrCodeSize, a, "size of recorded value", err)
		}
		if err := e.store.WriteRun(ctx, rec); err != nil {
			return nil, e.failRun(ErrCodeRecord, a, "write run", err)
		}
	}

	e.logger.Info("analysis complete",
		"run_id", a.RunID,
		"seq", a.Seq,
		"computation", a.Computation,
		"module_scoped", a.ModuleScoped,
		"totally_ordered", a.TotallyOrdered,
		"peak_time", a.Peak.Time,
		"peak_bytes", a.Peak.Bytes,
	)
	return a, nil
}

// analyze does the work of Analyze without issuing a run ID or writing to
// the store.
func (e *Engine) analyze(ctx context.Context, prog *compiler.Program, req Request) (*Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := prog.Module
	comp, err := resolveComputation(m, req.Computation)
	if err != nil {
		return nil, err
	}

	hash, err := ir.ProgramHash(m, prog.Schedule, prog.AliasGroups)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", m.Name(), err)
	}

	a := &Analysis{
		ProgramHash:  hash,
		Module:       m.Name(),
		Computation:  comp.Name(),
		ModuleScoped: req.ModuleScoped,
	}
	e.logger.Debug("analysis starting",
		"module", a.Module,
		"computation", a.Computation,
		"module_scoped", a.ModuleScoped,
		"program_hash", hash,
	)

	a.Warnings = compiler.AnalyzeCycles(m)
	for _, w := range a.Warnings {
		e.logger.Warn("recursive computations", "path", w.Path, "message", w.Message)
	}

	df, err := dataflow.Build(m, prog.AliasGroups)
	if err != nil {
		return nil, e.fail(ErrCodeDataflow, a, "build dataflow", err)
	}
	a.Dataflow = df

	lr, err := liverange.Run(prog.Schedule, df, comp, req.ModuleScoped, liverange.WithLogger(e.logger))
	if err != nil {
		if liverange.IsInvariantError(err) {
			return nil, e.fail(ErrCodeInvariant, a, "live range pass aborted", err)
		}
		return nil, fmt.Errorf("analyze %s: %w", a.Computation, err)
	}
	a.LiveRange = lr
	a.TotallyOrdered = lr.TotallyOrdered()

	if !a.TotallyOrdered {
		e.logger.Warn("schedule is not totally ordered; live ranges are empty",
			"computation", a.Computation,
		)
	} else {
		peak, err := lr.PeakMemoryMoment(e.sizeOf)
		if err != nil {
			return nil, e.fail(ErrCodeSize, a, "peak memory", err)
		}
		a.Peak = peak
	}

	report, err := lr.Report(e.sizeOf)
	if err != nil {
		return nil, e.fail(ErrCodeSize, a, "report", err)
	}
	a.Report = report

	return a, nil
}

// resolveComputation returns the named computation, or the module entry
// when name is empty.
func resolveComputation(m *ir.Module, name string) (*ir.Computation, error) {
	comp := m.Entry()
	if name != "" {
		c, ok := m.Computation(name)
		if !ok {
			return nil, newAnalysisError(ErrCodeUnknownComputation, name,
				fmt.Sprintf("module %s has no computation %q", m.Name(), name), nil)
		}
		comp = c
	}
	if comp == nil {
		return nil, newAnalysisError(ErrCodeUnknownComputation, "",
			fmt.Sprintf("module %s has no computations", m.Name()), nil)
	}
	return comp, nil
}

func (e *Engine) fail(code AnalysisErrorCode, a *Analysis, message string, err error) error {
	e.logger.Error("analysis failed",
		"code", code,
		"computation", a.Computation,
		"error", err,
	)
	return newAnalysisError(code, a.Computation, message, err)
}

// failRun is fail for errors raised once a.RunID has been issued.
func (e *Engine) failRun(code AnalysisErrorCode, a *Analysis, message string, err error) error {
	e.logger.Error("analysis failed",
		"code", code,
		"run_id", a.RunID,
		"computation", a.Computation,
		"error", err,
	)
	ae := newAnalysisError(code, a.Computation, message, err)
	ae.RunID = a.RunID
	return ae
}

// toRecord flattens an analysis into the store's row model.
func (e *Engine) toRecord(a *Analysis) (store.Run, error) {
	rec := store.Run{
		ID:              a.RunID,
		Seq:             a.Seq,
		ProgramHash:     a.ProgramHash,
		Module:          a.Module,
		Computation:     a.Computation,
		ModuleScoped:    a.ModuleScoped,
		TotallyOrdered:  a.TotallyOrdered,
		ScheduleEnd:     a.LiveRange.ScheduleEndTime(),
		PeakTime:        a.Peak.Time,
		PeakBytes:       a.Peak.Bytes,
		Report:          a.Report,
		AnalyzerVersion: ir.AnalyzerVersion,
		FormatVersion:   ir.FormatVersion,
	}
	for _, w := range a.Warnings {
		rec.Warnings = append(rec.Warnings, w.Message)
	}
	if !a.TotallyOrdered {
		return rec, nil
	}

	tl := a.LiveRange.Timeline()
	for i, inst := range tl.Sequence() {
		rec.Instructions = append(rec.Instructions, store.RunInstruction{
			Position:    int64(i),
			Name:        inst.Name,
			Computation: inst.Parent().Name(),
		})
	}
	for _, c := range a.Dataflow.Module().Computations() {
		if span, ok := tl.Span(c); ok {
			rec.Spans = append(rec.Spans, store.RunSpan{Computation: c.Name(), Start: span.Start, End: span.End})
		}
	}
	for _, v := range a.LiveRange.Values() {
		bound, _ := a.LiveRange.Bound(v)
		size, err := e.sizeOf(v)
		if err != nil {
			return store.Run{}, fmt.Errorf("size of %s: %w", v, err)
		}
		rec.Ranges = append(rec.Ranges, store.RunRange{
			Value:       v.String(),
			Start:       bound.Start,
			End:         bound.End,
			EndPosition: bound.EndPosition.String(),
			Size:        size,
		})
	}
	return rec, nil
}

// ErrNoStore is returned by operations that need recorded history when the
// engine was created without a store.
var ErrNoStore = errors.New("engine has no store")
