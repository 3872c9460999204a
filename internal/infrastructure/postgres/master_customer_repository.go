package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.MasterCustomerWriter = (*MasterCustomerRepo)(nil)

// MasterCustomerRepo registro maestro global (sin tenant_id).
type MasterCustomerRepo struct {
	q Querier
}

// NewMasterCustomerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMasterCustomerRepository(q Querier) *MasterCustomerRepo {
	return &MasterCustomerRepo{q: q}
}

const masterColumns = `id, phone, tax_id, display_name, legal_name, address, jurisdiction_code,
	registration_class, jurisdiction_status, enriched_at, last_seen_at, created_at, updated_at`

func scanMaster(row pgx.Row) (*entity.MasterCustomer, error) {
	var m entity.MasterCustomer
	err := row.Scan(&m.ID, &m.Phone, &m.TaxID, &m.DisplayName, &m.LegalName, &m.Address,
		&m.JurisdictionCode, &m.RegistrationClass, &m.JurisdictionStatus, &m.EnrichedAt,
		&m.LastSeenAt, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MasterCustomerRepo) getOne(ctx context.Context, where string, arg any) (*entity.MasterCustomer, error) {
	m, err := scanMaster(r.q.QueryRow(ctx, `SELECT `+masterColumns+` FROM master_customers WHERE `+where, arg))
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get master customer: %w", err)
	}
	return m, nil
}

// GetByID obtiene un maestro por ID.
func (r *MasterCustomerRepo) GetByID(ctx context.Context, id string) (*entity.MasterCustomer, error) {
	if !validID(id) {
		return nil, nil
	}
	return r.getOne(ctx, "id = $1", id)
}

// GetByPhone obtiene un maestro por teléfono normalizado.
func (r *MasterCustomerRepo) GetByPhone(ctx context.Context, phone string) (*entity.MasterCustomer, error) {
	return r.getOne(ctx, "phone = $1", phone)
}

// GetByTaxID obtiene un maestro por GSTIN.
func (r *MasterCustomerRepo) GetByTaxID(ctx context.Context, taxID string) (*entity.MasterCustomer, error) {
	return r.getOne(ctx, "tax_id = $1", taxID)
}

// InsertIfAbsent ON CONFLICT DO NOTHING sin objetivo: cubre la PK y los dos índices parciales.
func (r *MasterCustomerRepo) InsertIfAbsent(ctx context.Context, m *entity.MasterCustomer) (bool, error) {
	query := `
		INSERT INTO master_customers (id, phone, tax_id, display_name, legal_name, address, jurisdiction_code,
			registration_class, jurisdiction_status, enriched_at, last_seen_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT DO NOTHING`
	tag, err := r.q.Exec(ctx, query,
		m.ID, m.Phone, m.TaxID, m.DisplayName, m.LegalName, m.Address, m.JurisdictionCode,
		m.RegistrationClass, m.JurisdictionStatus, m.EnrichedAt, m.LastSeenAt, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert master customer: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Touch completa identificadores nulos solo si ningún otro maestro los tiene y avanza last_seen_at
// con GREATEST. Si un escritor concurrente toma el mismo identificador entre la comprobación y el
// UPDATE, el índice único lo rechaza y se devuelve ErrConflictResolved para reintentar.
func (r *MasterCustomerRepo) Touch(ctx context.Context, id string, merge repository.MasterMerge, seenAt time.Time) (*entity.MasterCustomer, error) {
	if !validID(id) {
		return nil, nil
	}
	query := `
		UPDATE master_customers m SET
			phone = CASE
				WHEN m.phone IS NULL AND $2::varchar IS NOT NULL
					AND NOT EXISTS (SELECT 1 FROM master_customers o WHERE o.phone = $2 AND o.id <> m.id)
				THEN $2 ELSE m.phone END,
			tax_id = CASE
				WHEN m.tax_id IS NULL AND $3::varchar IS NOT NULL
					AND NOT EXISTS (SELECT 1 FROM master_customers o WHERE o.tax_id = $3 AND o.id <> m.id)
				THEN $3 ELSE m.tax_id END,
			jurisdiction_code = CASE
				WHEN m.tax_id IS NULL AND $3::varchar IS NOT NULL
					AND NOT EXISTS (SELECT 1 FROM master_customers o WHERE o.tax_id = $3 AND o.id <> m.id)
				THEN $4 ELSE m.jurisdiction_code END,
			registration_class = CASE
				WHEN m.tax_id IS NULL AND $3::varchar IS NOT NULL
					AND NOT EXISTS (SELECT 1 FROM master_customers o WHERE o.tax_id = $3 AND o.id <> m.id)
				THEN $5 ELSE m.registration_class END,
			last_seen_at = GREATEST(m.last_seen_at, $6),
			updated_at = $6
		WHERE m.id = $1
		RETURNING ` + masterColumns
	m, err := scanMaster(r.q.QueryRow(ctx, query, id, merge.Phone, merge.TaxID, merge.JurisdictionCode, merge.RegistrationClass, seenAt))
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("touch master %s (%s): %w", id, constraintName(err), domain.ErrConflictResolved)
		}
		return nil, fmt.Errorf("touch master customer: %w", err)
	}
	return m, nil
}

// ApplyEnrichment guarda los datos externos; la razón social reemplaza un nombre de respaldo.
func (r *MasterCustomerRepo) ApplyEnrichment(ctx context.Context, id string, e entity.MasterEnrichment, at time.Time) (*entity.MasterCustomer, error) {
	if !validID(id) {
		return nil, nil
	}
	query := `
		UPDATE master_customers SET
			display_name = CASE
				WHEN $2 <> '' AND (display_name = '' OR display_name = tax_id) THEN $2
				ELSE display_name END,
			legal_name = $2,
			address = $3,
			jurisdiction_status = $4,
			enriched_at = $5,
			updated_at = $5
		WHERE id = $1
		RETURNING ` + masterColumns
	m, err := scanMaster(r.q.QueryRow(ctx, query, id, e.LegalName, e.Address, e.JurisdictionStatus, at))
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("apply enrichment: %w", err)
	}
	return m, nil
}

// ListPendingEnrichment maestros con GSTIN sin enriquecer, más antiguos primero.
func (r *MasterCustomerRepo) ListPendingEnrichment(ctx context.Context, limit int) ([]*entity.MasterCustomer, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+masterColumns+` FROM master_customers
		WHERE tax_id IS NOT NULL AND enriched_at IS NULL
		ORDER BY created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending enrichment: %w", err)
	}
	defer rows.Close()

	var out []*entity.MasterCustomer
	for rows.Next() {
		m, err := scanMaster(rows)
		if err != nil {
			return nil, fmt.Errorf("scan master customer: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
