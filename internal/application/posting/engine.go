// Package posting implementa el ciclo de vida de facturas de compra y venta y su contabilización
// en el libro de stock.
package posting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger/internal/application/stock"
	"github.com/jhoicas/stock-ledger/internal/application/tenancy"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/document"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/metrics"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/shopspring/decimal"
)

// Engine crea, corrige, aprueba y contabiliza documentos.
type Engine struct {
	runner repository.TxRunner
	ledger *stock.Service
	log    *logger.Logger
	now    func() time.Time
}

// NewEngine construye el motor. La política de stock negativo es la del servicio de stock.
func NewEngine(runner repository.TxRunner, ledger *stock.Service, log *logger.Logger) *Engine {
	return &Engine{runner: runner, ledger: ledger, log: log.Component("posting"), now: time.Now}
}

// LineInput línea tal como la envía el usuario.
type LineInput struct {
	ProductID string
	Quantity  int64
	UnitPrice decimal.Decimal
	TaxRate   decimal.Decimal
	TaxCode   string
}

// CreateInput cabecera y líneas de un documento nuevo.
type CreateInput struct {
	TenantID           string
	Actor              string
	Direction          string
	Number             string
	CounterpartyLinkID string
	CounterpartyRef    string
	Date               time.Time
	Lines              []LineInput
}

// PostResult entradas del libro del documento. AlreadyPosted indica un reintento sin efectos nuevos.
type PostResult struct {
	Document      *entity.Document
	Entries       []*entity.LedgerEntry
	AlreadyPosted bool
	Warnings      []stock.Warning
}

// Create guarda el documento en draft. El número se normaliza y debe ser único por tenant.
func (e *Engine) Create(ctx context.Context, in CreateInput) (*entity.Document, error) {
	normalized := document.NormalizeNumber(in.Number)
	if in.TenantID == "" || normalized == "" || !document.IsValidDirection(in.Direction) {
		return nil, domain.ErrInvalidInput
	}
	now := e.now()
	doc := &entity.Document{
		ID:                 uuid.New().String(),
		TenantID:           in.TenantID,
		Direction:          in.Direction,
		Number:             strings.TrimSpace(in.Number),
		NormalizedNumber:   normalized,
		CounterpartyLinkID: in.CounterpartyLinkID,
		CounterpartyRef:    strings.TrimSpace(in.CounterpartyRef),
		Date:               in.Date,
		State:              entity.DocumentStateDraft,
		CreatedBy:          in.Actor,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	doc.Lines = buildLines(doc.ID, in.Lines)

	err := e.runner.Run(ctx, func(repos repository.TxRepos) error {
		if doc.CounterpartyLinkID != "" {
			if err := e.requireLink(ctx, repos, doc.TenantID, in.Actor, doc.CounterpartyLinkID); err != nil {
				return err
			}
		}
		return repos.Documents.Create(ctx, doc)
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateDocumentNumber) {
			e.log.Info().Str("tenant_id", in.TenantID).Str("number", normalized).Msg("número de documento duplicado")
		}
		return nil, err
	}

	e.log.Info().
		Str("tenant_id", doc.TenantID).
		Str("user_id", in.Actor).
		Str("document_id", doc.ID).
		Str("direction", doc.Direction).
		Str("number", doc.NormalizedNumber).
		Int("lines", len(doc.Lines)).
		Msg("documento creado")
	return doc, nil
}

// Correct reemplaza las líneas de un documento en draft o mismatch; mismatch vuelve a draft.
func (e *Engine) Correct(ctx context.Context, tenantID, docID, actor string, lines []LineInput) (*entity.Document, error) {
	var doc *entity.Document
	err := e.runner.Run(ctx, func(repos repository.TxRepos) error {
		var err error
		doc, err = e.lockDocument(ctx, repos, tenantID, actor, docID)
		if err != nil {
			return err
		}
		if !document.IsEditable(doc.State) {
			return fmt.Errorf("corregir documento en %s: %w", doc.State, domain.ErrInvalidTransition)
		}
		prev := doc.State
		if prev == entity.DocumentStateMismatch {
			if err := document.Transition(doc, entity.DocumentStateDraft); err != nil {
				return err
			}
		}
		doc.Lines = buildLines(doc.ID, lines)
		doc.UpdatedAt = e.now()
		if err := repos.Documents.ReplaceLines(ctx, doc); err != nil {
			return err
		}
		return repos.Documents.UpdateState(ctx, doc, prev)
	})
	if err != nil {
		return nil, err
	}
	e.log.Info().Str("tenant_id", tenantID).Str("user_id", actor).Str("document_id", docID).Int("lines", len(doc.Lines)).Msg("líneas corregidas")
	return doc, nil
}

// Reopen devuelve un documento en mismatch a draft sin cambiar sus líneas.
func (e *Engine) Reopen(ctx context.Context, tenantID, docID, actor string) (*entity.Document, error) {
	var doc *entity.Document
	err := e.runner.Run(ctx, func(repos repository.TxRepos) error {
		var err error
		doc, err = e.lockDocument(ctx, repos, tenantID, actor, docID)
		if err != nil {
			return err
		}
		prev := doc.State
		if err := document.Transition(doc, entity.DocumentStateDraft); err != nil {
			return err
		}
		doc.UpdatedAt = e.now()
		return repos.Documents.UpdateState(ctx, doc, prev)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Approve valida el documento contra el catálogo. Si falla, el documento queda en mismatch con
// los campos en conflicto y se devuelve *domain.MismatchError; si pasa, queda en approved.
func (e *Engine) Approve(ctx context.Context, tenantID, docID, actor string) (*entity.Document, error) {
	var (
		doc    *entity.Document
		fields []string
	)
	err := e.runner.Run(ctx, func(repos repository.TxRepos) error {
		var err error
		doc, err = e.lockDocument(ctx, repos, tenantID, actor, docID)
		if err != nil {
			return err
		}
		if doc.State != entity.DocumentStateDraft && doc.State != entity.DocumentStateApproved {
			return fmt.Errorf("aprobar documento en %s: %w", doc.State, domain.ErrInvalidTransition)
		}
		products, err := e.catalogFor(ctx, repos, doc, actor)
		if err != nil {
			return err
		}

		prev := doc.State
		fields = document.Validate(doc, products)
		if len(fields) > 0 {
			if err := document.Transition(doc, entity.DocumentStateMismatch); err != nil {
				return err
			}
			doc.MismatchFields = fields
		} else if prev == entity.DocumentStateDraft {
			if err := document.Transition(doc, entity.DocumentStateApproved); err != nil {
				return err
			}
			doc.ApprovedBy = actor
		} else {
			return nil
		}
		doc.UpdatedAt = e.now()
		// El mismatch se confirma: queda persistido aunque la llamada devuelva error.
		return repos.Documents.UpdateState(ctx, doc, prev)
	})
	if err != nil {
		metrics.ObserveApproval("error")
		return nil, err
	}

	if len(fields) > 0 {
		metrics.ObserveApproval("mismatch")
		e.log.Warn().
			Str("tenant_id", tenantID).
			Str("user_id", actor).
			Str("document_id", docID).
			Strs("fields", fields).
			Msg("documento retenido por inconsistencias")
		return doc, &domain.MismatchError{Fields: fields}
	}
	metrics.ObserveApproval("approved")
	e.log.Info().Str("tenant_id", tenantID).Str("user_id", actor).Str("document_id", docID).Msg("documento aprobado")
	return doc, nil
}

// Post contabiliza un documento aprobado en una única transacción: una entrada por línea con
// signo según la dirección. Repetir la llamada sobre un documento posted devuelve las entradas
// existentes sin crear nuevas.
func (e *Engine) Post(ctx context.Context, tenantID, docID, actor string) (*PostResult, error) {
	var (
		out       PostResult
		direction string
	)
	err := e.runner.Run(ctx, func(repos repository.TxRepos) error {
		doc, err := e.lockDocument(ctx, repos, tenantID, actor, docID)
		if err != nil {
			return err
		}
		out.Document = doc
		direction = doc.Direction

		if doc.State == entity.DocumentStatePosted {
			out.Entries, err = repos.Ledger.ListByDocument(ctx, tenantID, docID)
			out.AlreadyPosted = true
			return err
		}
		if doc.State != entity.DocumentStateApproved {
			return fmt.Errorf("contabilizar documento en %s: %w", doc.State, domain.ErrInvalidTransition)
		}

		ids := productIDs(doc)
		locked, err := repos.Products.LockForPosting(ctx, tenantID, ids)
		if err != nil {
			return err
		}
		running := make(map[string]int64, len(ids))
		for _, id := range ids {
			if locked[id] == nil {
				return tenancy.Missing(ctx, e.log, repos.Products.OwnerOf, tenancy.Access{TenantID: tenantID, Actor: actor, Resource: "product", ID: id})
			}
			running[id], err = repos.Ledger.CurrentStock(ctx, tenantID, id)
			if err != nil {
				return err
			}
		}

		policy := e.ledger.Policy()
		now := e.now()
		for i := range doc.Lines {
			line := &doc.Lines[i]
			delta := doc.Sign() * line.Quantity
			warn, err := policy.Evaluate(line.ProductID, running[line.ProductID], delta)
			if err != nil {
				return err
			}
			if warn != nil {
				out.Warnings = append(out.Warnings, *warn)
			}
			entry := &entity.LedgerEntry{
				TenantID:       tenantID,
				ProductID:      line.ProductID,
				Delta:          delta,
				Kind:           doc.MovementKind(),
				DocumentID:     &doc.ID,
				DocumentLineID: &line.ID,
				Actor:          actor,
				CreatedAt:      now,
			}
			if err := e.ledger.AppendEntry(ctx, repos, entry); err != nil {
				return err
			}
			running[line.ProductID] += delta
			out.Entries = append(out.Entries, entry)
		}

		if err := document.Transition(doc, entity.DocumentStatePosted); err != nil {
			return err
		}
		doc.PostedBy = actor
		doc.PostedAt = &now
		doc.UpdatedAt = now
		return repos.Documents.UpdateState(ctx, doc, entity.DocumentStateApproved)
	})
	if err != nil {
		var insufficient *domain.InsufficientStockError
		if errors.As(err, &insufficient) {
			metrics.ObservePosting(direction, "insufficient_stock")
			e.log.Info().
				Str("tenant_id", tenantID).
				Str("document_id", docID).
				Str("product_id", insufficient.ProductID).
				Int64("available", insufficient.Available).
				Int64("requested", insufficient.Requested).
				Msg("contabilización rechazada por stock insuficiente")
		} else {
			metrics.ObservePosting(direction, "error")
		}
		return nil, err
	}

	if out.AlreadyPosted {
		metrics.ObservePosting(direction, "already_posted")
		e.log.Info().Str("tenant_id", tenantID).Str("document_id", docID).Msg("documento ya contabilizado")
		return &out, nil
	}

	metrics.ObservePosting(direction, "posted")
	metrics.ObserveLedgerEntries(out.Document.MovementKind(), len(out.Entries))
	for _, w := range out.Warnings {
		e.ledger.WarnNegative(tenantID, actor, w)
	}
	e.log.Info().
		Str("tenant_id", tenantID).
		Str("user_id", actor).
		Str("document_id", docID).
		Int("entries", len(out.Entries)).
		Msg("documento contabilizado")
	return &out, nil
}

// Get devuelve el documento del tenant.
func (e *Engine) Get(ctx context.Context, tenantID, actor, docID string) (*entity.Document, error) {
	var doc *entity.Document
	err := e.runner.Run(ctx, func(repos repository.TxRepos) error {
		var err error
		doc, err = repos.Documents.GetByID(ctx, tenantID, docID)
		if err != nil {
			return err
		}
		if doc == nil {
			return tenancy.Missing(ctx, e.log, repos.Documents.OwnerOf, tenancy.Access{TenantID: tenantID, Actor: actor, Resource: "document", ID: docID})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (e *Engine) lockDocument(ctx context.Context, repos repository.TxRepos, tenantID, actor, docID string) (*entity.Document, error) {
	doc, err := repos.Documents.GetForUpdate(ctx, tenantID, docID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, tenancy.Missing(ctx, e.log, repos.Documents.OwnerOf, tenancy.Access{TenantID: tenantID, Actor: actor, Resource: "document", ID: docID})
	}
	return doc, nil
}

func (e *Engine) requireLink(ctx context.Context, repos repository.TxRepos, tenantID, actor, linkID string) error {
	link, err := repos.Links.GetByID(ctx, tenantID, linkID)
	if err != nil {
		return err
	}
	if link == nil {
		return tenancy.Missing(ctx, e.log, repos.Links.OwnerOf, tenancy.Access{TenantID: tenantID, Actor: actor, Resource: "link", ID: linkID})
	}
	return nil
}

// catalogFor productos del tenant referenciados por las líneas. Un producto inexistente queda
// fuera del mapa (campo en mismatch); uno de otro tenant es una violación de aislamiento.
func (e *Engine) catalogFor(ctx context.Context, repos repository.TxRepos, doc *entity.Document, actor string) (map[string]*entity.Product, error) {
	products := make(map[string]*entity.Product)
	for _, id := range productIDs(doc) {
		p, err := repos.Products.GetByID(ctx, doc.TenantID, id)
		if err != nil {
			return nil, err
		}
		if p != nil {
			products[id] = p
			continue
		}
		err = tenancy.Missing(ctx, e.log, repos.Products.OwnerOf, tenancy.Access{TenantID: doc.TenantID, Actor: actor, Resource: "product", ID: id})
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	return products, nil
}

// productIDs IDs distintos de las líneas, ordenados para bloquear siempre en el mismo orden.
func productIDs(doc *entity.Document) []string {
	seen := make(map[string]bool, len(doc.Lines))
	var ids []string
	for _, l := range doc.Lines {
		if l.ProductID == "" || seen[l.ProductID] {
			continue
		}
		seen[l.ProductID] = true
		ids = append(ids, l.ProductID)
	}
	sort.Strings(ids)
	return ids
}

func buildLines(docID string, in []LineInput) []entity.DocumentLine {
	lines := make([]entity.DocumentLine, 0, len(in))
	for i, l := range in {
		lines = append(lines, entity.DocumentLine{
			ID:         uuid.New().String(),
			DocumentID: docID,
			LineNo:     i + 1,
			ProductID:  l.ProductID,
			Quantity:   l.Quantity,
			UnitPrice:  l.UnitPrice,
			TaxRate:    l.TaxRate,
			TaxCode:    strings.TrimSpace(l.TaxCode),
		})
	}
	return lines
}
