package extraction

import (
	"context"
	"errors"
	"fmt"
)

// FailureReason classifies why a call to an external service did not
// produce a usable value.
type FailureReason string

const (
	// ReasonNone means the call succeeded.
	ReasonNone FailureReason = ""
	// ReasonUnavailable means no service was configured.
	ReasonUnavailable FailureReason = "unavailable"
	// ReasonCallFailed means the service returned an error or panicked.
	ReasonCallFailed FailureReason = "call_failed"
	// ReasonBadShape means the service answered with an unusable value.
	ReasonBadShape FailureReason = "bad_shape"
)

// ErrBadShape is wrapped when a service answers with an unusable value.
var ErrBadShape = errors.New("unexpected result shape")

// Fallible is the outcome of a call that may degrade.
type Fallible[T any] struct {
	Value  T
	Reason FailureReason
	Err    error
}

// OK reports whether Value is usable.
func (f Fallible[T]) OK() bool {
	return f.Reason == ReasonNone
}

// attempt runs fn, converting errors, panics and failed shape checks into a
// typed reason. A nil check accepts every value.
func attempt[T any](fn func() (T, error), check func(T) error) (out Fallible[T]) {
	defer func() {
		if r := recover(); r != nil {
			out = Fallible[T]{Reason: ReasonCallFailed, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	v, err := fn()
	if err != nil {
		return Fallible[T]{Reason: ReasonCallFailed, Err: err}
	}
	if check != nil {
		if err := check(v); err != nil {
			return Fallible[T]{Reason: ReasonBadShape, Err: err}
		}
	}
	return Fallible[T]{Value: v}
}

func unavailable[T any]() Fallible[T] {
	return Fallible[T]{Reason: ReasonUnavailable}
}

// embed calls the embedder and checks it returned one non-empty vector of a
// consistent length per input.
func embed(ctx context.Context, e Embedder, texts []string) Fallible[[][]float32] {
	if e == nil {
		return unavailable[[][]float32]()
	}
	return attempt(func() ([][]float32, error) {
		return e.EmbedDocuments(ctx, texts)
	}, func(vecs [][]float32) error {
		if len(vecs) != len(texts) {
			return fmt.Errorf("%w: %d vectors for %d texts", ErrBadShape, len(vecs), len(texts))
		}
		for _, v := range vecs {
			if len(v) == 0 || len(v) != len(vecs[0]) {
				return fmt.Errorf("%w: inconsistent vector length", ErrBadShape)
			}
		}
		return nil
	})
}
