package stock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger/internal/application/tenancy"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/metrics"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// Service libro de stock: escritura append-only y stock derivado como suma de deltas.
type Service struct {
	runner repository.TxRunner
	policy NegativePolicy
	log    *logger.Logger
	now    func() time.Time
}

// NewService construye el servicio.
func NewService(runner repository.TxRunner, policy NegativePolicy, log *logger.Logger) *Service {
	return &Service{runner: runner, policy: policy, log: log.Component("stock"), now: time.Now}
}

// Policy política de stock negativo configurada.
func (s *Service) Policy() NegativePolicy { return s.policy }

// AppendEntry agrega una entrada usando los repositorios de la transacción del llamador.
// No lee ni modifica ningún contador.
func (s *Service) AppendEntry(ctx context.Context, repos repository.TxRepos, e *entity.LedgerEntry) error {
	if e.TenantID == "" || e.ProductID == "" || !entity.ValidMovementDelta(e.Delta) || !entity.IsValidMovementKind(e.Kind) {
		return domain.ErrInvalidInput
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	if err := repos.Ledger.Append(ctx, e); err != nil {
		return fmt.Errorf("append ledger: %w", err)
	}
	return nil
}

// CurrentStock suma de deltas del producto, leída dentro de una transacción.
func (s *Service) CurrentStock(ctx context.Context, tenantID, actor, productID string) (int64, error) {
	var stock int64
	err := s.runner.Run(ctx, func(repos repository.TxRepos) error {
		if err := s.requireProduct(ctx, repos, tenantID, actor, productID); err != nil {
			return err
		}
		var err error
		stock, err = repos.Ledger.CurrentStock(ctx, tenantID, productID)
		return err
	})
	return stock, err
}

// AdjustInput corrección manual fuera del ciclo de documentos.
type AdjustInput struct {
	TenantID          string
	RequestedTenantID string // tenant enviado por el cliente; vacío = el autenticado
	ProductID         string
	Delta             int64
	Reason            string
	Actor             string
}

// AdjustResult entrada creada y stock resultante.
type AdjustResult struct {
	Entry    *entity.LedgerEntry
	Stock    int64
	Warnings []Warning
}

// Adjust agrega una única entrada de tipo adjustment en su propia transacción.
// La fila del producto se bloquea para que la política de stock negativo vea un saldo estable.
func (s *Service) Adjust(ctx context.Context, in AdjustInput) (*AdjustResult, error) {
	access := tenancy.Access{TenantID: in.TenantID, Actor: in.Actor, Resource: "product", ID: in.ProductID}
	if err := tenancy.CheckRequested(s.log, access, in.RequestedTenantID); err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(in.Reason)
	if in.ProductID == "" || !entity.ValidMovementDelta(in.Delta) || reason == "" {
		return nil, domain.ErrInvalidInput
	}

	var out AdjustResult
	err := s.runner.Run(ctx, func(repos repository.TxRepos) error {
		locked, err := repos.Products.LockForPosting(ctx, in.TenantID, []string{in.ProductID})
		if err != nil {
			return err
		}
		if locked[in.ProductID] == nil {
			return tenancy.Missing(ctx, s.log, repos.Products.OwnerOf, access)
		}
		available, err := repos.Ledger.CurrentStock(ctx, in.TenantID, in.ProductID)
		if err != nil {
			return err
		}
		warn, err := s.policy.Evaluate(in.ProductID, available, in.Delta)
		if err != nil {
			return err
		}
		entry := &entity.LedgerEntry{
			TenantID:  in.TenantID,
			ProductID: in.ProductID,
			Delta:     in.Delta,
			Kind:      entity.MovementKindAdjustment,
			Reason:    reason,
			Actor:     in.Actor,
		}
		if err := s.AppendEntry(ctx, repos, entry); err != nil {
			return err
		}
		out.Entry = entry
		out.Stock = available + in.Delta
		if warn != nil {
			out.Warnings = append(out.Warnings, *warn)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ObserveLedgerEntries(entity.MovementKindAdjustment, 1)
	for _, w := range out.Warnings {
		s.WarnNegative(in.TenantID, in.Actor, w)
	}
	s.log.Info().
		Str("tenant_id", in.TenantID).
		Str("user_id", in.Actor).
		Str("product_id", in.ProductID).
		Int64("delta", in.Delta).
		Int64("stock", out.Stock).
		Msg("ajuste de stock registrado")
	return &out, nil
}

// History entradas del producto, más recientes primero.
func (s *Service) History(ctx context.Context, tenantID, actor, productID string, limit, offset int) ([]*entity.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var out []*entity.LedgerEntry
	err := s.runner.Run(ctx, func(repos repository.TxRepos) error {
		if err := s.requireProduct(ctx, repos, tenantID, actor, productID); err != nil {
			return err
		}
		var err error
		out, err = repos.Ledger.ListByProduct(ctx, tenantID, productID, limit, offset)
		return err
	})
	return out, err
}

// LowStock productos del tenant con stock derivado por debajo de su mínimo.
func (s *Service) LowStock(ctx context.Context, tenantID string) ([]entity.LowStockItem, error) {
	var out []entity.LowStockItem
	err := s.runner.Run(ctx, func(repos repository.TxRepos) error {
		var err error
		out, err = repos.Ledger.BelowMinimum(ctx, tenantID)
		return err
	})
	return out, err
}

func (s *Service) requireProduct(ctx context.Context, repos repository.TxRepos, tenantID, actor, productID string) error {
	p, err := repos.Products.GetByID(ctx, tenantID, productID)
	if err != nil {
		return err
	}
	if p == nil {
		return tenancy.Missing(ctx, s.log, repos.Products.OwnerOf, tenancy.Access{TenantID: tenantID, Actor: actor, Resource: "product", ID: productID})
	}
	return nil
}

// WarnNegative registra un movimiento aceptado con stock negativo (política warn).
func (s *Service) WarnNegative(tenantID, actor string, w Warning) {
	metrics.ObserveNegativeStockWarning()
	s.log.Warn().
		Str("tenant_id", tenantID).
		Str("user_id", actor).
		Str("product_id", w.ProductID).
		Int64("available", w.Available).
		Int64("requested", w.Requested).
		Int64("resulting", w.Resulting).
		Msg("stock negativo aceptado por política warn")
}
