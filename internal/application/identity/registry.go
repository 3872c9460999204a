package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/metrics"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// MasterRegistry único escritor del registro maestro de clientes.
// Corre sobre el runner privilegiado y exige ScopeMasterWrite en cada llamada.
type MasterRegistry struct {
	runner   repository.PrivilegedTxRunner
	attempts int
	log      *logger.Logger
	now      func() time.Time
}

// NewMasterRegistry construye el registro. attempts acota los reintentos por carrera de inserción.
func NewMasterRegistry(runner repository.PrivilegedTxRunner, attempts int, log *logger.Logger) *MasterRegistry {
	if attempts < 1 {
		attempts = 1
	}
	return &MasterRegistry{runner: runner, attempts: attempts, log: log.Component("master_registry"), now: time.Now}
}

// MasterInput identificadores ya normalizados. Al menos uno de Phone/TaxID es obligatorio.
type MasterInput struct {
	Phone               *string
	TaxID               *string
	JurisdictionCode    string
	RegistrationClass   string
	FallbackDisplayName string
}

func (r *MasterRegistry) authorize(p Principal, op string) error {
	if p.Has(ScopeMasterWrite) {
		return nil
	}
	r.log.Error().Str("principal", p.Name()).Str("operation", op).Msg("escritura en registro maestro sin privilegio")
	return fmt.Errorf("%s: %w", op, domain.ErrForbidden)
}

// ResolveMaster busca por teléfono y luego por GSTIN; si existe avanza last_seen y adjunta los
// identificadores nuevos sin sobrescribir, si no lo inserta. Una inserción que pierde la carrera
// contra otro escritor vuelve a buscar y adopta la fila ganadora.
func (r *MasterRegistry) ResolveMaster(ctx context.Context, p Principal, in MasterInput) (*entity.MasterCustomer, bool, error) {
	if err := r.authorize(p, "resolve_master"); err != nil {
		return nil, false, err
	}
	if in.Phone == nil && in.TaxID == nil {
		return nil, false, domain.ErrInvalidIdentifier
	}

	for attempt := 1; attempt <= r.attempts; attempt++ {
		var (
			master  *entity.MasterCustomer
			created bool
		)
		err := r.runner.RunPrivileged(ctx, func(masters repository.MasterCustomerWriter) error {
			now := r.now()
			existing, err := lookup(ctx, masters, in)
			if err != nil {
				return err
			}
			if existing != nil {
				master, err = masters.Touch(ctx, existing.ID, repository.MasterMerge{
					Phone:             in.Phone,
					TaxID:             in.TaxID,
					JurisdictionCode:  in.JurisdictionCode,
					RegistrationClass: in.RegistrationClass,
				}, now)
				if err != nil {
					return err
				}
				if master == nil {
					return domain.ErrConflictResolved
				}
				return nil
			}

			m := newMaster(in, now)
			inserted, err := masters.InsertIfAbsent(ctx, m)
			if err != nil {
				return err
			}
			if !inserted {
				return domain.ErrConflictResolved
			}
			master, created = m, true
			return nil
		})
		if errors.Is(err, domain.ErrConflictResolved) {
			metrics.ObserveUpsertConflict("master")
			r.log.Debug().Int("attempt", attempt).Msg("carrera de inserción en maestro resuelta; reintentando búsqueda")
			continue
		}
		if err != nil {
			return nil, false, err
		}
		return master, created, nil
	}
	return nil, false, fmt.Errorf("resolve_master: %d intentos agotados: %w", r.attempts, domain.ErrConflict)
}

// lookup teléfono primero, luego GSTIN.
func lookup(ctx context.Context, masters repository.MasterCustomerReader, in MasterInput) (*entity.MasterCustomer, error) {
	if in.Phone != nil {
		m, err := masters.GetByPhone(ctx, *in.Phone)
		if err != nil || m != nil {
			return m, err
		}
	}
	if in.TaxID != nil {
		return masters.GetByTaxID(ctx, *in.TaxID)
	}
	return nil, nil
}

func newMaster(in MasterInput, now time.Time) *entity.MasterCustomer {
	display := in.FallbackDisplayName
	if display == "" {
		if in.TaxID != nil {
			display = *in.TaxID
		} else if in.Phone != nil {
			display = *in.Phone
		}
	}
	m := &entity.MasterCustomer{
		ID:          uuid.New().String(),
		Phone:       in.Phone,
		TaxID:       in.TaxID,
		DisplayName: display,
		LastSeenAt:  now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.TaxID != nil {
		m.JurisdictionCode = in.JurisdictionCode
		m.RegistrationClass = in.RegistrationClass
	}
	return m
}

// ApplyEnrichment guarda razón social, dirección y estado devueltos por el servicio externo.
func (r *MasterRegistry) ApplyEnrichment(ctx context.Context, p Principal, masterID string, e entity.MasterEnrichment) (*entity.MasterCustomer, error) {
	if err := r.authorize(p, "apply_enrichment"); err != nil {
		return nil, err
	}
	var out *entity.MasterCustomer
	err := r.runner.RunPrivileged(ctx, func(masters repository.MasterCustomerWriter) error {
		var err error
		out, err = masters.ApplyEnrichment(ctx, masterID, e, r.now())
		if err != nil {
			return err
		}
		if out == nil {
			return fmt.Errorf("master %s: %w", masterID, domain.ErrNotFound)
		}
		return nil
	})
	return out, err
}

// PendingEnrichment maestros con GSTIN que aún no fueron enriquecidos.
func (r *MasterRegistry) PendingEnrichment(ctx context.Context, p Principal, limit int) ([]*entity.MasterCustomer, error) {
	if err := r.authorize(p, "pending_enrichment"); err != nil {
		return nil, err
	}
	var out []*entity.MasterCustomer
	err := r.runner.RunPrivileged(ctx, func(masters repository.MasterCustomerWriter) error {
		var err error
		out, err = masters.ListPendingEnrichment(ctx, limit)
		return err
	})
	return out, err
}
