package liverange

import (
	"io"
	"log/slog"

	"github.com/roach88/liverange/internal/ir"
)

// AliasAnalysis is what the pass needs from dataflow and alias analysis:
// every value, in a deterministic order, and the buffers grouping values
// that may share storage.
type AliasAnalysis interface {
	Values() []*ir.Value
	Buffers() []*ir.Buffer
}

// Option configures Run.
type Option func(*runConfig)

type runConfig struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for debug tracing of the pass.
// The default discards all output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *runConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// LiveRange is the result of one analysis pass. It is immutable once Run
// returns.
type LiveRange struct {
	timeline *Timeline
	values   []*ir.Value
	bounds   map[*ir.Value]TimeBound
}

// Run flattens the schedule of computation, computes a TimeBound for every
// value defined inside the flattened scope, and normalizes bounds of
// aliased values.
//
// If the schedule is not totally ordered the result is empty and
// TotallyOrdered() is false; callers must check before using it.
// Internal consistency failures return *InvariantError.
func Run(schedule *ir.Schedule, aliases AliasAnalysis, computation *ir.Computation, moduleScoped bool, opts ...Option) (*LiveRange, error) {
	cfg := &runConfig{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	tl, err := flatten(computation, schedule, moduleScoped, cfg.logger)
	if err != nil {
		return nil, err
	}

	lr := &LiveRange{
		timeline: tl,
		bounds:   make(map[*ir.Value]TimeBound),
	}
	if !tl.TotallyOrdered() {
		cfg.logger.Debug("skipping live range calculation: schedule not totally ordered",
			"computation", computation.Name(),
		)
		return lr, nil
	}

	values := aliases.Values()
	bounds, err := calculateBounds(tl, values, cfg.logger)
	if err != nil {
		return nil, err
	}
	normalizeAliasedBuffers(aliases.Buffers(), bounds)

	lr.bounds = bounds
	for _, v := range values {
		if _, ok := bounds[v]; ok {
			lr.values = append(lr.values, v)
		}
	}

	cfg.logger.Debug("live ranges calculated",
		"computation", computation.Name(),
		"instructions", tl.EndTime(),
		"values", len(lr.values),
	)
	return lr, nil
}

// Timeline returns the flattened schedule.
func (lr *LiveRange) Timeline() *Timeline {
	return lr.timeline
}

// TotallyOrdered reports whether the result can be trusted.
func (lr *LiveRange) TotallyOrdered() bool {
	return lr.timeline.TotallyOrdered()
}

// Check returns ErrNotTotallyOrdered for a degraded result, nil otherwise.
func (lr *LiveRange) Check() error {
	if !lr.TotallyOrdered() {
		return ErrNotTotallyOrdered
	}
	return nil
}

// ScheduleEndTime is the length of the flattened sequence.
func (lr *LiveRange) ScheduleEndTime() int64 {
	return lr.timeline.EndTime()
}

// Values returns the values that received a bound, in analysis order.
func (lr *LiveRange) Values() []*ir.Value {
	out := make([]*ir.Value, len(lr.values))
	copy(out, lr.values)
	return out
}

// Bound returns the bound of v, or false if v is outside the analyzed
// scope.
func (lr *LiveRange) Bound(v *ir.Value) (TimeBound, bool) {
	b, ok := lr.bounds[v]
	return b, ok
}

// BufferLiveRanges returns a copy of every computed bound.
func (lr *LiveRange) BufferLiveRanges() map[*ir.Value]TimeBound {
	out := make(map[*ir.Value]TimeBound, len(lr.bounds))
	for v, b := range lr.bounds {
		out[v] = b
	}
	return out
}

// PeakMemoryMoment returns the peak of concurrently-live bytes over the
// computed bounds.
func (lr *LiveRange) PeakMemoryMoment(sizeOf SizeFunc) (Peak, error) {
	return PeakMemoryMoment(lr.values, lr.bounds, sizeOf)
}
