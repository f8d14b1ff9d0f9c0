package cdc

import (
	"context"
	"errors"
	"fmt"

	"github.com/acksell/ddbsdl/dynamodb/ddbsdk"
	"github.com/aws/aws-lambda-go/events"
	"github.com/sirupsen/logrus"
)

// DefaultMaxAttempts bounds the merges an Enricher runs for one event.
const DefaultMaxAttempts = 3

// Enricher merges the changes of a source model S into a target model T.
// C and U are the generated create and update inputs of T.
type Enricher[S, T, C, U any] struct {
	SourceType string
	TargetType string
	Unmarshall func(ddbsdk.Item) (*S, error)

	// Load reads the target keyed by fields of the source. It returns an
	// error matching ddbsdk.ErrNotFound when the target does not exist.
	Load func(ctx context.Context, source *S) (*T, error)

	// MapCreate builds the target for a source without one. A nil input
	// skips the change.
	MapCreate func(ctx context.Context, change Change[S]) (*C, error)
	// MapUpdate merges the source into the loaded target. A nil input
	// leaves the target untouched.
	MapUpdate func(ctx context.Context, change Change[S], target *T) (*U, error)

	Create func(ctx context.Context, in *C) error
	// Update writes in conditioned on the version of the loaded target.
	Update func(ctx context.Context, target *T, in *U) error

	// MaxAttempts defaults to DefaultMaxAttempts.
	MaxAttempts int
	Logger      logrus.FieldLogger
}

// Handle runs the merge for one change. A merge that loses a race with
// another writer, seen as AlreadyExists or OptimisticLockConflict, runs again
// from the load. After MaxAttempts the last error is returned so the rule's
// retry policy and dead-letter queue take over.
func (e *Enricher[S, T, C, U]) Handle(ctx context.Context, ev events.EventBridgeEvent) error {
	env, err := decodeFor(ev, e.SourceType)
	if err != nil {
		return err
	}
	change, err := decodeChange(env, e.Unmarshall)
	if err != nil {
		return err
	}
	log := loggerFor(e.Logger, env).WithField("target", e.TargetType)

	attempts := e.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	for attempt := 1; ; attempt++ {
		err := e.merge(ctx, change, log)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			log.WithError(err).Error("merge failed")
			return err
		}
		if attempt >= attempts {
			log.WithError(err).WithField("attempts", attempt).Error("merge kept conflicting")
			return fmt.Errorf("merge %s into %s: giving up after %d attempts: %w", e.SourceType, e.TargetType, attempt, err)
		}
		log.WithError(err).WithField("attempt", attempt).Warn("merge conflicted, retrying")
	}
}

func (e *Enricher[S, T, C, U]) merge(ctx context.Context, change Change[S], log logrus.FieldLogger) error {
	target, err := e.Load(ctx, change.Record)
	switch {
	case errors.Is(err, ddbsdk.ErrNotFound):
		in, err := e.MapCreate(ctx, change)
		if err != nil {
			return err
		}
		if in == nil {
			log.Debug("create mapper skipped change")
			return nil
		}
		if err := e.Create(ctx, in); err != nil {
			return err
		}
		log.Info("created target")
		return nil
	case err != nil:
		return err
	}

	if e.MapUpdate == nil {
		return nil
	}
	in, err := e.MapUpdate(ctx, change, target)
	if err != nil {
		return err
	}
	if in == nil {
		log.Debug("update mapper skipped change")
		return nil
	}
	if err := e.Update(ctx, target, in); err != nil {
		return err
	}
	log.Info("updated target")
	return nil
}

func retryable(err error) bool {
	return errors.Is(err, ddbsdk.ErrAlreadyExists) || errors.Is(err, ddbsdk.ErrOptimisticLockConflict)
}
