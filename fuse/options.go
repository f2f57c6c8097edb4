package fuse

// Option configures a BatchFuse call. The zero-value configuration uses
// NewStdLogger and DefaultRegistry.
type Option func(*options)

type options struct {
	logger   Logger
	registry *Registry
	tracer   GapTracer
}

func defaultOptions() options {
	return options{logger: NewStdLogger(), registry: DefaultRegistry}
}

// WithLogger overrides the pass's diagnostic logger.
func WithLogger(l Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRegistry overrides the operator-kind handler registry, letting
// callers (and tests) run the pass against a partial or stubbed handler
// set instead of fuse/ops.RegisterAll's full production registry.
func WithRegistry(r *Registry) Option {
	return func(o *options) { o.registry = r }
}

// GapTracer observes every gap-inference commit (SetForwardGap), one call
// per tensor per revision. It exists so a caller can record a structured
// trace (cmd/batchfuse's -trace flag writes one to Parquet via the diag
// package) without the fuse package itself depending on a trace format.
type GapTracer func(tensorID int, opKind string, w, h Gap, revision int)

// WithGapTracer installs a GapTracer. A nil tracer (the default) is a no-op.
func WithGapTracer(t GapTracer) Option {
	return func(o *options) { o.tracer = t }
}
