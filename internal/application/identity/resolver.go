package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/metrics"
	"github.com/jhoicas/stock-ledger/pkg/identifier"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// Resolver orquesta normalización, registro maestro y link del tenant.
type Resolver struct {
	registry      *MasterRegistry
	links         *LinkStore
	enricher      Enricher // nil = enriquecimiento deshabilitado
	strength      identifier.Strength
	enrichTimeout time.Duration
	principal     Principal
	log           *logger.Logger
}

// ResolverConfig opciones del resolvedor.
type ResolverConfig struct {
	Strength      identifier.Strength
	EnrichTimeout time.Duration
}

// NewResolver construye el resolvedor. enricher puede ser nil.
func NewResolver(registry *MasterRegistry, links *LinkStore, enricher Enricher, cfg ResolverConfig, log *logger.Logger) *Resolver {
	if cfg.EnrichTimeout <= 0 {
		cfg.EnrichTimeout = 1500 * time.Millisecond
	}
	return &Resolver{
		registry:      registry,
		links:         links,
		enricher:      enricher,
		strength:      cfg.Strength,
		enrichTimeout: cfg.EnrichTimeout,
		principal:     systemPrincipal("identity_resolver"),
		log:           log.Component("identity_resolver"),
	}
}

// Resolution par resuelto y si alguno de los dos se creó en esta llamada.
type Resolution struct {
	Kind          identifier.Kind
	Master        *entity.MasterCustomer
	Link          *entity.TenantLink
	MasterCreated bool
	LinkCreated   bool
}

// Resolve devuelve el único maestro y el único link del tenant para el identificador crudo.
// Idempotente: N llamadas concurrentes producen un maestro y un link por tenant.
func (r *Resolver) Resolve(ctx context.Context, tenantID, raw, userID, displayName string) (*Resolution, error) {
	if tenantID == "" {
		return nil, domain.ErrInvalidInput
	}
	res := identifier.Classify(raw, r.strength)
	if !res.Valid() {
		return nil, fmt.Errorf("%q: %w", raw, domain.ErrInvalidIdentifier)
	}

	in := MasterInput{FallbackDisplayName: displayName}
	switch res.Kind {
	case identifier.KindPhone:
		in.Phone = &res.Canonical
	case identifier.KindTaxID:
		in.TaxID = &res.Canonical
		in.JurisdictionCode = res.JurisdictionCode
		in.RegistrationClass = res.RegistrationClass
	}

	master, masterCreated, err := r.registry.ResolveMaster(ctx, r.principal, in)
	if err != nil {
		return nil, err
	}
	link, linkCreated, err := r.links.EnsureLink(ctx, tenantID, master.ID, userID)
	if err != nil {
		return nil, err
	}

	if res.Kind == identifier.KindTaxID && master.EnrichedAt == nil {
		if enriched := r.enrich(ctx, master); enriched != nil {
			master = enriched
		}
	}

	metrics.ObserveResolution(res.Kind.String(), masterCreated, linkCreated)
	r.log.Info().
		Str("tenant_id", tenantID).
		Str("user_id", userID).
		Str("kind", res.Kind.String()).
		Str("master_id", master.ID).
		Str("link_id", link.ID).
		Bool("master_created", masterCreated).
		Bool("link_created", linkCreated).
		Msg("identificador resuelto")

	return &Resolution{
		Kind:          res.Kind,
		Master:        master,
		Link:          link,
		MasterCreated: masterCreated,
		LinkCreated:   linkCreated,
	}, nil
}

// enrich consulta el servicio externo con timeout corto. Los fallos se registran y se ignoran.
func (r *Resolver) enrich(ctx context.Context, master *entity.MasterCustomer) *entity.MasterCustomer {
	if r.enricher == nil || master.TaxID == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.enrichTimeout)
	defer cancel()

	data, err := r.enricher.Lookup(ctx, *master.TaxID)
	if err != nil {
		r.log.Warn().Err(err).Str("master_id", master.ID).Msg("enriquecimiento de GSTIN falló; se reintentará en el barrido")
		return nil
	}
	if data == nil {
		data = &entity.MasterEnrichment{JurisdictionStatus: entity.JurisdictionStatusNotFound}
	}
	updated, err := r.registry.ApplyEnrichment(ctx, r.principal, master.ID, *data)
	if err != nil {
		r.log.Warn().Err(err).Str("master_id", master.ID).Msg("no se pudo guardar el enriquecimiento")
		return nil
	}
	return updated
}

// EnrichPending enriquece hasta limit maestros pendientes. Lo usa el barrido en segundo plano.
// Devuelve cuántos quedaron enriquecidos.
func (r *Resolver) EnrichPending(ctx context.Context, limit int) (int, error) {
	if r.enricher == nil {
		return 0, nil
	}
	pending, err := r.registry.PendingEnrichment(ctx, r.principal, limit)
	if err != nil {
		return 0, err
	}
	done := 0
	for _, m := range pending {
		if ctx.Err() != nil {
			break
		}
		if r.enrich(ctx, m) != nil {
			done++
		}
	}
	return done, nil
}
