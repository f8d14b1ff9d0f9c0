package ddbsdk

import "sync"

// Lazy is a memoizing thunk for computed fields. The compute function runs
// at most once, on first Get, and every later Get returns the cached result.
// A Lazy must not be copied after first use.
type Lazy[T any] struct {
	once sync.Once
	fn   func() (T, error)
	val  T
	err  error
}

// NewLazy defers fn until the value is first read.
func NewLazy[T any](fn func() (T, error)) *Lazy[T] {
	return &Lazy[T]{fn: fn}
}

// LazyValue returns an already resolved Lazy, used when the value was read
// from storage.
func LazyValue[T any](v T) *Lazy[T] {
	l := &Lazy[T]{val: v}
	l.once.Do(func() {})
	return l
}

func (l *Lazy[T]) Get() (T, error) {
	if l == nil {
		var zero T
		return zero, nil
	}
	l.once.Do(func() {
		if l.fn != nil {
			l.val, l.err = l.fn()
		}
	})
	return l.val, l.err
}

// MustGet is Get for values known to be resolved, such as those read from
// storage. It panics on a compute error.
func (l *Lazy[T]) MustGet() T {
	v, err := l.Get()
	if err != nil {
		panic(err)
	}
	return v
}
