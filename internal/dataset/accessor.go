package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jengzang/world-cell-towers/internal/cluster"
	"github.com/jengzang/world-cell-towers/internal/repository"
	"github.com/sirupsen/logrus"
)

// Store reads raw payloads from the published namespace
type Store interface {
	Get(ctx context.Context, name string) ([]byte, error)
}

// Accessor fetches published datasets, waiting a bounded time for names
// that are not published yet.
type Accessor struct {
	store    Store
	notifier cluster.Notifier
	timeout  time.Duration
	log      *logrus.Entry
}

// DefaultTimeout bounds the wait for an unpublished dataset
const DefaultTimeout = 6 * time.Second

// NewAccessor creates an accessor. notifier may be nil, in which case the
// accessor only sleeps between attempts. A non-positive timeout means
// DefaultTimeout.
func NewAccessor(store Store, notifier cluster.Notifier, timeout time.Duration, log *logrus.Entry) *Accessor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Accessor{
		store:    store,
		notifier: notifier,
		timeout:  timeout,
		log:      log.WithField("component", "dataset"),
	}
}

func (a *Accessor) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.Multiplier = 2
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = a.timeout
	b.RandomizationFactor = 0.1
	b.Reset()
	return b
}

// Get decodes the dataset published under name into out. A name that stays
// unpublished for the whole timeout fails with an error wrapping
// repository.ErrNotPublished. Other store errors are returned at once.
func (a *Accessor) Get(ctx context.Context, name string, out any) error {
	bkf := a.newBackOff()
	attempt := 0
	for {
		attempt++
		var gen <-chan struct{}
		if a.notifier != nil {
			gen = a.notifier.Generation()
		}
		payload, err := a.store.Get(ctx, name)
		if err == nil {
			if err := json.Unmarshal(payload, out); err != nil {
				return fmt.Errorf("failed to decode dataset %s: %w", name, err)
			}
			return nil
		}
		if !errors.Is(err, repository.ErrNotPublished) {
			return err
		}

		wait := bkf.NextBackOff()
		if wait == backoff.Stop {
			return fmt.Errorf("dataset %s unavailable after %d attempts: %w", name, attempt, err)
		}
		a.log.WithFields(logrus.Fields{"dataset": name, "attempt": attempt}).
			Debugf("dataset not published, retrying in %s", wait)

		cluster.Wait(ctx, gen, wait)
		if ctx.Err() != nil {
			return fmt.Errorf("waiting for dataset %s: %w", name, ctx.Err())
		}
	}
}
