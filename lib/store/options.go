package store

// Options holds the per-call settings of a store operation.
// Use the With* functions to build them.
type Options struct {
	Namespace string  // Namespace of the key ("" = root space)
	PrevNode  *Record // Expected current state for conditional writes (nil = unconditional)
	Wait      bool    // Whether to bypass the write queue / read cache
}

// Option customizes a single store call.
type Option func(*Options)

// WithNamespace selects the namespace the key lives in.
// The empty string selects the root space.
func WithNamespace(ns string) Option {
	return func(o *Options) {
		o.Namespace = ns
	}
}

// WithPrevNode turns a Set into a compare-and-swap and a Delete into a compare-and-delete.
// The mutation only applies if the stored version equals prev.Version.
// A nil prev leaves the call unconditional.
func WithPrevNode(prev *Record) Option {
	return func(o *Options) {
		if prev == nil {
			o.PrevNode = nil
			return
		}
		cp := *prev
		o.PrevNode = &cp
	}
}

// WithPrevAbsent turns a Set into a create: it only applies if the key does not exist yet.
// It is a compare-and-swap against version 0, which no stored record ever has.
func WithPrevAbsent() Option {
	return func(o *Options) {
		o.PrevNode = &Record{Version: 0}
	}
}

// WithWait makes the call synchronous: mutations are applied before returning and report
// their errors, reads wait for queued mutations and read the file instead of the cache.
func WithWait() Option {
	return func(o *Options) {
		o.Wait = true
	}
}

// BuildOptions applies opts in order and returns the result.
func BuildOptions(opts ...Option) Options {
	var o Options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
