package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger/internal/application/tenancy"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/metrics"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// LinkStore links (tenant, maestro) con anotaciones privadas del tenant.
type LinkStore struct {
	runner   repository.TxRunner
	attempts int
	log      *logger.Logger
	now      func() time.Time
}

// NewLinkStore construye el store.
func NewLinkStore(runner repository.TxRunner, attempts int, log *logger.Logger) *LinkStore {
	if attempts < 1 {
		attempts = 1
	}
	return &LinkStore{runner: runner, attempts: attempts, log: log.Component("tenant_links"), now: time.Now}
}

// EnsureLink devuelve el link del par (tenant, maestro), creándolo vacío si no existe.
// La inserción es condicional sobre el índice único; quien pierde la carrera lee el link ganador.
func (s *LinkStore) EnsureLink(ctx context.Context, tenantID, masterID, createdBy string) (*entity.TenantLink, bool, error) {
	if tenantID == "" || masterID == "" {
		return nil, false, domain.ErrInvalidInput
	}
	for attempt := 1; attempt <= s.attempts; attempt++ {
		var (
			link    *entity.TenantLink
			created bool
		)
		err := s.runner.Run(ctx, func(repos repository.TxRepos) error {
			existing, err := repos.Links.GetByMaster(ctx, tenantID, masterID)
			if err != nil {
				return err
			}
			if existing != nil {
				link = existing
				return nil
			}
			now := s.now()
			candidate := &entity.TenantLink{
				ID:        uuid.New().String(),
				TenantID:  tenantID,
				MasterID:  masterID,
				CreatedBy: createdBy,
				CreatedAt: now,
				UpdatedAt: now,
			}
			inserted, err := repos.Links.InsertIfAbsent(ctx, candidate)
			if err != nil {
				return err
			}
			if inserted {
				link, created = candidate, true
				return nil
			}
			metrics.ObserveUpsertConflict("link")
			link, err = repos.Links.GetByMaster(ctx, tenantID, masterID)
			return err
		})
		if err != nil {
			return nil, false, err
		}
		if link != nil {
			return link, created, nil
		}
		s.log.Debug().Int("attempt", attempt).Str("tenant_id", tenantID).Msg("link ganador aún no visible; reintentando")
	}
	return nil, false, fmt.Errorf("ensure_link: %d intentos agotados: %w", s.attempts, domain.ErrConflict)
}

// GetLink devuelve el link del tenant junto con su maestro (lectura no restringida por tenant).
func (s *LinkStore) GetLink(ctx context.Context, tenantID, actor, linkID string) (*entity.TenantLink, *entity.MasterCustomer, error) {
	var (
		link   *entity.TenantLink
		master *entity.MasterCustomer
	)
	err := s.runner.Run(ctx, func(repos repository.TxRepos) error {
		var err error
		link, err = s.requireLink(ctx, repos, tenantID, actor, linkID)
		if err != nil {
			return err
		}
		master, err = repos.Masters.GetByID(ctx, link.MasterID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return link, master, nil
}

// UpdateLink modifica las anotaciones privadas del tenant.
func (s *LinkStore) UpdateLink(ctx context.Context, tenantID, actor, linkID string, a entity.LinkAnnotations) (*entity.TenantLink, error) {
	var link *entity.TenantLink
	err := s.runner.Run(ctx, func(repos repository.TxRepos) error {
		var err error
		link, err = s.requireLink(ctx, repos, tenantID, actor, linkID)
		if err != nil {
			return err
		}
		a.Apply(link)
		link.UpdatedAt = s.now()
		return repos.Links.UpdateAnnotations(ctx, link)
	})
	if err != nil {
		return nil, err
	}
	return link, nil
}

// ListLinks links del tenant, más recientes primero.
func (s *LinkStore) ListLinks(ctx context.Context, tenantID string, limit, offset int) ([]*entity.TenantLink, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	var out []*entity.TenantLink
	err := s.runner.Run(ctx, func(repos repository.TxRepos) error {
		var err error
		out, err = repos.Links.ListByTenant(ctx, tenantID, limit, offset)
		return err
	})
	return out, err
}

func (s *LinkStore) requireLink(ctx context.Context, repos repository.TxRepos, tenantID, actor, linkID string) (*entity.TenantLink, error) {
	link, err := repos.Links.GetByID(ctx, tenantID, linkID)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, tenancy.Missing(ctx, s.log, repos.Links.OwnerOf, tenancy.Access{TenantID: tenantID, Actor: actor, Resource: "link", ID: linkID})
	}
	return link, nil
}
