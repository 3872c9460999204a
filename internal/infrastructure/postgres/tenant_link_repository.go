package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.TenantLinkRepository = (*TenantLinkRepo)(nil)

// TenantLinkRepo links tenant-maestro con anotaciones privadas.
type TenantLinkRepo struct {
	q Querier
}

// NewTenantLinkRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTenantLinkRepository(q Querier) *TenantLinkRepo {
	return &TenantLinkRepo{q: q}
}

const linkColumns = `id, tenant_id, master_id, nickname, billing_address, shipping_address, notes,
	created_by, created_at, updated_at`

func scanLink(row pgx.Row) (*entity.TenantLink, error) {
	var l entity.TenantLink
	if err := row.Scan(&l.ID, &l.TenantID, &l.MasterID, &l.Nickname, &l.BillingAddress,
		&l.ShippingAddress, &l.Notes, &l.CreatedBy, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

// InsertIfAbsent ON CONFLICT (tenant_id, master_id) DO NOTHING.
func (r *TenantLinkRepo) InsertIfAbsent(ctx context.Context, l *entity.TenantLink) (bool, error) {
	query := `
		INSERT INTO tenant_links (id, tenant_id, master_id, nickname, billing_address, shipping_address,
			notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (tenant_id, master_id) DO NOTHING`
	tag, err := r.q.Exec(ctx, query, l.ID, l.TenantID, l.MasterID, l.Nickname, l.BillingAddress,
		l.ShippingAddress, l.Notes, l.CreatedBy, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, fmt.Errorf("master %s: %w", l.MasterID, domain.ErrNotFound)
		}
		return false, fmt.Errorf("insert tenant link: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *TenantLinkRepo) getOne(ctx context.Context, where string, args ...any) (*entity.TenantLink, error) {
	l, err := scanLink(r.q.QueryRow(ctx, `SELECT `+linkColumns+` FROM tenant_links WHERE `+where, args...))
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get tenant link: %w", err)
	}
	return l, nil
}

// GetByMaster link del tenant para el maestro.
func (r *TenantLinkRepo) GetByMaster(ctx context.Context, tenantID, masterID string) (*entity.TenantLink, error) {
	if !validID(masterID) {
		return nil, nil
	}
	return r.getOne(ctx, "tenant_id = $1 AND master_id = $2", tenantID, masterID)
}

// GetByID link del tenant por ID.
func (r *TenantLinkRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.TenantLink, error) {
	if !validID(id) {
		return nil, nil
	}
	return r.getOne(ctx, "tenant_id = $1 AND id = $2", tenantID, id)
}

// UpdateAnnotations guarda apodo, direcciones y notas.
func (r *TenantLinkRepo) UpdateAnnotations(ctx context.Context, l *entity.TenantLink) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE tenant_links
		SET nickname = $3, billing_address = $4, shipping_address = $5, notes = $6, updated_at = $7
		WHERE tenant_id = $1 AND id = $2`,
		l.TenantID, l.ID, l.Nickname, l.BillingAddress, l.ShippingAddress, l.Notes, l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update tenant link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByTenant links del tenant, más recientes primero.
func (r *TenantLinkRepo) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*entity.TenantLink, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+linkColumns+` FROM tenant_links
		WHERE tenant_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list tenant links: %w", err)
	}
	defer rows.Close()

	out := []*entity.TenantLink{}
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tenant link: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// OwnerOf tenant dueño del link.
func (r *TenantLinkRepo) OwnerOf(ctx context.Context, id string) (string, error) {
	return ownerOf(ctx, r.q, "tenant_links", id)
}

// ownerOf lee solo tenant_id.
func ownerOf(ctx context.Context, q Querier, table, id string) (string, error) {
	if !validID(id) {
		return "", nil
	}
	var tenantID string
	err := q.QueryRow(ctx, `SELECT tenant_id FROM `+table+` WHERE id = $1`, id).Scan(&tenantID)
	if err != nil {
		if noRows(err) {
			return "", nil
		}
		return "", fmt.Errorf("owner of %s: %w", table, err)
	}
	return tenantID, nil
}
