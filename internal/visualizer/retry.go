package visualizer

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tphakala/audioviz/internal/audiocore"
	"github.com/tphakala/audioviz/internal/errors"
	"github.com/tphakala/audioviz/internal/logger"
)

// RetryConfig bounds reconnect attempts after a device interruption.
type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig returns the reconnect policy used when none is set.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     5,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

func (rc RetryConfig) withDefaults() RetryConfig {
	def := DefaultRetryConfig()
	if rc.MaxAttempts <= 0 {
		rc.MaxAttempts = def.MaxAttempts
	}
	if rc.InitialInterval <= 0 {
		rc.InitialInterval = def.InitialInterval
	}
	if rc.MaxInterval < rc.InitialInterval {
		rc.MaxInterval = max(def.MaxInterval, rc.InitialInterval)
	}
	return rc
}

func (rc RetryConfig) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = rc.InitialInterval
	exp.MaxInterval = rc.MaxInterval
	exp.MaxElapsedTime = 0 // bounded by attempts instead
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(rc.MaxAttempts-1)), ctx)
}

// reconnect closes and reopens the source with the same configuration until
// it succeeds, attempts run out or ctx is done. Exhausted retries return
// ErrDeviceUnavailable.
func (s *session) reconnect(ctx context.Context, cause error) error {
	src := s.engine.source
	attempt := 0

	s.log.Warn("audio source interrupted, reconnecting",
		logger.String("source_id", src.ID()),
		logger.Error(cause))

	operation := func() error {
		attempt++
		if cerr := src.Close(); cerr != nil {
			s.log.Debug("failed to close audio source before reopening",
				logger.Int("attempt", attempt),
				logger.Error(cerr))
		}
		err := src.Open(ctx)
		if err != nil && errors.Is(err, audiocore.ErrPermissionDenied) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		audiocore.GetMetrics().RecordReconnect(src.ID(), false)
		s.log.Debug("reconnect attempt failed",
			logger.Int("attempt", attempt),
			logger.Duration("next_retry", wait),
			logger.Error(err))
	}

	err := backoff.RetryNotify(operation, s.engine.retry.backOff(ctx), notify)
	if err == nil {
		s.engine.reconnects.Add(1)
		audiocore.GetMetrics().RecordReconnect(src.ID(), true)
		s.log.Info("audio source reconnected",
			logger.String("source_id", src.ID()),
			logger.Int("attempts", attempt))
		return nil
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	audiocore.GetMetrics().RecordReconnect(src.ID(), false)
	if errors.Is(err, audiocore.ErrPermissionDenied) {
		return err
	}
	return errors.New(errors.Join(audiocore.ErrDeviceUnavailable, err)).
		Component(componentVisualizer).
		Category(errors.CategoryAudioDevice).
		Context("source_id", src.ID()).
		Context("attempts", attempt).
		Context("operation", "reconnect").
		Build()
}
