package database

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tourbooking/internal/pkg/logger"
)

// RetryPolicy drives Gateway.Read. MaxRetries is the number of extra attempts.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.BaseDelay << attempt
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Gateway is the single entry point repositories use to reach the database.
// Reads get a per-query timeout and retry with exponential backoff; writes get
// the timeout only, so a booking or payment mutation is never replayed.
type Gateway struct {
	db           *gorm.DB
	policy       RetryPolicy
	queryTimeout time.Duration
	log          logrus.FieldLogger
}

func NewGateway(db *gorm.DB, policy RetryPolicy, queryTimeout time.Duration, log logrus.FieldLogger) *Gateway {
	return &Gateway{
		db:           db,
		policy:       policy,
		queryTimeout: queryTimeout,
		log:          logger.OrDiscard(log),
	}
}

func (g *Gateway) DB() *gorm.DB { return g.db }

func (g *Gateway) Read(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = g.run(ctx, fn)
		if err == nil || !IsTransient(err) || attempt >= g.policy.MaxRetries {
			return err
		}
		wait := g.policy.delay(attempt)
		g.log.WithFields(logrus.Fields{"attempt": attempt + 1, "wait": wait}).WithError(err).Warn("transient database error, retrying read")

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (g *Gateway) Write(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.run(ctx, fn)
}

// Transaction runs fn in a single database transaction under the query timeout.
func (g *Gateway) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.run(ctx, func(tx *gorm.DB) error {
		return tx.Transaction(fn)
	})
}

func (g *Gateway) run(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if g.db == nil {
		return ErrNotConnected
	}
	if g.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.queryTimeout)
		defer cancel()
	}
	return fn(g.db.WithContext(ctx))
}
