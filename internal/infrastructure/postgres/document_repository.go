package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

// DocumentRepo cabeceras (documents) y líneas (document_lines).
type DocumentRepo struct {
	q Querier
}

// NewDocumentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDocumentRepository(q Querier) *DocumentRepo {
	return &DocumentRepo{q: q}
}

const documentColumns = `id, tenant_id, direction, number, normalized_number, counterparty_link_id,
	counterparty_ref, doc_date, state, mismatch_fields, created_by, approved_by, posted_by, posted_at,
	created_at, updated_at`

// Create inserta cabecera y líneas. El índice único (tenant_id, normalized_number) es el árbitro
// de números duplicados.
func (r *DocumentRepo) Create(ctx context.Context, d *entity.Document) error {
	var linkID *string
	if d.CounterpartyLinkID != "" {
		linkID = &d.CounterpartyLinkID
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		d.ID, d.TenantID, d.Direction, d.Number, d.NormalizedNumber, linkID, d.CounterpartyRef,
		d.Date, d.State, nonNil(d.MismatchFields), d.CreatedBy, d.ApprovedBy, d.PostedBy, d.PostedAt,
		d.CreatedAt, d.UpdatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err) && constraintName(err) == "documents_tenant_number_uq":
			return domain.ErrDuplicateDocumentNumber
		case isForeignKeyViolation(err):
			return fmt.Errorf("%s: %w", constraintName(err), domain.ErrNotFound)
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return r.insertLines(ctx, d)
}

func (r *DocumentRepo) insertLines(ctx context.Context, d *entity.Document) error {
	for _, l := range d.Lines {
		_, err := r.q.Exec(ctx, `
			INSERT INTO document_lines (id, document_id, line_no, product_id, quantity, unit_price, tax_rate, tax_code)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			l.ID, d.ID, l.LineNo, l.ProductID, l.Quantity, l.UnitPrice, l.TaxRate, l.TaxCode)
		if err != nil {
			return fmt.Errorf("insert document line %d: %w", l.LineNo, err)
		}
	}
	return nil
}

// GetByID documento del tenant con sus líneas.
func (r *DocumentRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.Document, error) {
	return r.get(ctx, tenantID, id, "")
}

// GetForUpdate como GetByID pero bloquea la cabecera (SELECT ... FOR UPDATE).
func (r *DocumentRepo) GetForUpdate(ctx context.Context, tenantID, id string) (*entity.Document, error) {
	return r.get(ctx, tenantID, id, " FOR UPDATE")
}

func (r *DocumentRepo) get(ctx context.Context, tenantID, id, lock string) (*entity.Document, error) {
	if !validID(id) {
		return nil, nil
	}
	var (
		d      entity.Document
		linkID *string
	)
	err := r.q.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE tenant_id = $1 AND id = $2`+lock, tenantID, id).Scan(
		&d.ID, &d.TenantID, &d.Direction, &d.Number, &d.NormalizedNumber, &linkID, &d.CounterpartyRef,
		&d.Date, &d.State, &d.MismatchFields, &d.CreatedBy, &d.ApprovedBy, &d.PostedBy, &d.PostedAt,
		&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	if linkID != nil {
		d.CounterpartyLinkID = *linkID
	}
	if len(d.MismatchFields) == 0 {
		d.MismatchFields = nil
	}
	d.Lines, err = r.lines(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DocumentRepo) lines(ctx context.Context, documentID string) ([]entity.DocumentLine, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, document_id, line_no, product_id, quantity, unit_price, tax_rate, tax_code
		FROM document_lines WHERE document_id = $1 ORDER BY line_no`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list document lines: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.DocumentLine, error) {
		var l entity.DocumentLine
		err := row.Scan(&l.ID, &l.DocumentID, &l.LineNo, &l.ProductID, &l.Quantity, &l.UnitPrice, &l.TaxRate, &l.TaxCode)
		return l, err
	})
}

// OwnerOf tenant dueño del documento.
func (r *DocumentRepo) OwnerOf(ctx context.Context, id string) (string, error) {
	return ownerOf(ctx, r.q, "documents", id)
}

// UpdateState UPDATE condicionado al estado previo (WHERE state = fromState).
func (r *DocumentRepo) UpdateState(ctx context.Context, d *entity.Document, fromState string) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE documents
		SET state = $3, mismatch_fields = $4, approved_by = $5, posted_by = $6, posted_at = $7, updated_at = $8
		WHERE tenant_id = $1 AND id = $2 AND state = $9`,
		d.TenantID, d.ID, d.State, nonNil(d.MismatchFields), d.ApprovedBy, d.PostedBy, d.PostedAt, d.UpdatedAt, fromState)
	if err != nil {
		return fmt.Errorf("update document state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("documento %s ya no está en %s: %w", d.ID, fromState, domain.ErrConflict)
	}
	return nil
}

// ReplaceLines borra y vuelve a insertar las líneas del documento.
func (r *DocumentRepo) ReplaceLines(ctx context.Context, d *entity.Document) error {
	tag, err := r.q.Exec(ctx, `UPDATE documents SET updated_at = $3 WHERE tenant_id = $1 AND id = $2`, d.TenantID, d.ID, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("touch document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("documents: %w", domain.ErrNotFound)
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM document_lines WHERE document_id = $1`, d.ID); err != nil {
		return fmt.Errorf("delete document lines: %w", err)
	}
	return r.insertLines(ctx, d)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
