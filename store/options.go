package store

import "time"

type options struct {
	fs          FileSystem
	lockFactory LockFactory
	timeFunc    func() time.Time
	idFunc      func() string
}

// Option configures a Tree or a State
type Option func(*options)

// WithFileSystem sets a custom FileSystem implementation
func WithFileSystem(fs FileSystem) Option {
	return func(o *options) {
		o.fs = fs
	}
}

// WithLockFactory sets a custom LockFactory implementation
func WithLockFactory(factory LockFactory) Option {
	return func(o *options) {
		o.lockFactory = factory
	}
}

// WithTimeFunc sets a custom time function for testing.
// The tree uses it to decide which daily document is today's.
func WithTimeFunc(fn func() time.Time) Option {
	return func(o *options) {
		o.timeFunc = fn
	}
}

// WithIDFunc sets the generator for new node ids (uuid by default)
func WithIDFunc(fn func() string) Option {
	return func(o *options) {
		o.idFunc = fn
	}
}

func buildOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.fs == nil {
		o.fs = OSFileSystem{}
	}
	if o.lockFactory == nil {
		o.lockFactory = FlockFactory
	}
	if o.timeFunc == nil {
		o.timeFunc = time.Now
	}
	return o
}
