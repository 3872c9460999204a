// Package worker procesos en segundo plano del servicio.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

const sweepLockKey = "lock:enrichment-sweep"

// PendingEnricher completa maestros con GSTIN sin enriquecer. Lo implementa identity.Resolver.
type PendingEnricher interface {
	EnrichPending(ctx context.Context, limit int) (int, error)
}

// Locker lock distribuido para que una sola réplica barra a la vez.
// ok=false significa que otra réplica tiene el lock.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// RedisLocker Locker sobre bsm/redislock.
type RedisLocker struct {
	client *redislock.Client
}

// NewRedisLocker envuelve el cliente de locks.
func NewRedisLocker(client *redislock.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

// TryLock intenta tomar key sin reintentos.
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	lock, err := l.client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return func() { _ = lock.Release(context.Background()) }, true, nil
}

// SweeperConfig parámetros del barrido.
type SweeperConfig struct {
	Interval time.Duration
	Batch    int
}

// EnrichmentSweeper reintenta periódicamente el enriquecimiento que falló durante la resolución.
type EnrichmentSweeper struct {
	enricher PendingEnricher
	locker   Locker // nil = sin coordinación entre réplicas
	cfg      SweeperConfig
	log      *logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEnrichmentSweeper construye el barrido. locker puede ser nil.
func NewEnrichmentSweeper(enricher PendingEnricher, locker Locker, cfg SweeperConfig, log *logger.Logger) *EnrichmentSweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Batch <= 0 {
		cfg.Batch = 50
	}
	return &EnrichmentSweeper{enricher: enricher, locker: locker, cfg: cfg, log: log.Component("enrichment_sweeper")}
}

// Start lanza el ciclo en segundo plano.
func (s *EnrichmentSweeper) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go s.loop(ctx)
	s.log.Info().Dur("interval", s.cfg.Interval).Int("batch", s.cfg.Batch).Msg("barrido de enriquecimiento iniciado")
}

// Stop detiene el ciclo y espera a que termine la pasada en curso.
func (s *EnrichmentSweeper) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *EnrichmentSweeper) loop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
				s.log.Error().Err(err).Msg("barrido de enriquecimiento falló")
			}
		}
	}
}

// RunOnce ejecuta una pasada si obtiene el lock. Devuelve cuántos maestros quedaron enriquecidos.
func (s *EnrichmentSweeper) RunOnce(ctx context.Context) (int, error) {
	if s.locker != nil {
		release, ok, err := s.locker.TryLock(ctx, sweepLockKey, 2*s.cfg.Interval)
		if err != nil {
			return 0, err
		}
		if !ok {
			s.log.Debug().Msg("otra réplica está barriendo")
			return 0, nil
		}
		defer release()
	}

	n, err := s.enricher.EnrichPending(ctx, s.cfg.Batch)
	if err != nil {
		return n, err
	}
	if n > 0 {
		s.log.Info().Int("enriched", n).Msg("maestros enriquecidos")
	}
	return n, nil
}
