//go:build integration

package postgres

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jhoicas/stock-ledger/internal/application/identity"
	"github.com/jhoicas/stock-ledger/internal/application/posting"
	"github.com/jhoicas/stock-ledger/internal/application/stock"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/identifier"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_ConcurrentResolveYieldsSingleMaster(t *testing.T) {
	pool := newTestPool(t)
	runner := NewTxRunner(pool)
	registry := identity.NewMasterRegistry(NewPrivilegedTxRunner(pool), 5, logger.Nop())
	links := identity.NewLinkStore(runner, 5, logger.Nop())
	resolver := identity.NewResolver(registry, links, nil, identity.ResolverConfig{Strength: identifier.StrengthBasic}, logger.Nop())
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	ids := make(chan string, 2*n)
	for i := 0; i < n; i++ {
		for _, tenant := range []string{"tenant-a", "tenant-b"} {
			wg.Add(1)
			go func(tenant string) {
				defer wg.Done()
				res, err := resolver.Resolve(ctx, tenant, "9876543210", "u", "")
				if assert.NoError(t, err) {
					ids <- res.Master.ID
				}
			}(tenant)
		}
	}
	wg.Wait()
	close(ids)

	distinct := map[string]bool{}
	for id := range ids {
		distinct[id] = true
	}
	assert.Len(t, distinct, 1)

	var masters, tenantLinks int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM master_customers`).Scan(&masters))
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM tenant_links`).Scan(&tenantLinks))
	assert.Equal(t, 1, masters)
	assert.Equal(t, 2, tenantLinks)
}

func TestIntegration_TouchKeepsLastSeenMonotonic(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	repo := NewMasterCustomerRepository(pool)

	phone := "9876543210"
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := &entity.MasterCustomer{ID: uuid.New().String(), Phone: &phone, DisplayName: phone, LastSeenAt: t0, CreatedAt: t0, UpdatedAt: t0}
	ok, err := repo.InsertIfAbsent(ctx, m)
	require.NoError(t, err)
	require.True(t, ok)

	dup := *m
	dup.ID = uuid.New().String()
	ok, err = repo.InsertIfAbsent(ctx, &dup)
	require.NoError(t, err)
	assert.False(t, ok, "el índice parcial de teléfono gana")

	tax := "27AAPFU0939F1ZV"
	got, err := repo.Touch(ctx, m.ID, repository.MasterMerge{TaxID: &tax, JurisdictionCode: "27", RegistrationClass: "AAPFU0939F"}, t0.Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, got.LastSeenAt.Equal(t0))
	require.NotNil(t, got.TaxID)
	assert.Equal(t, tax, *got.TaxID)
	assert.Equal(t, "27", got.JurisdictionCode)

	pending, err := repo.ListPendingEnrichment(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	enriched, err := repo.ApplyEnrichment(ctx, m.ID, entity.MasterEnrichment{LegalName: "ACME"}, t0)
	require.NoError(t, err)
	assert.Equal(t, "ACME", enriched.LegalName)
	assert.NotNil(t, enriched.EnrichedAt)
}

func seedProduct(t *testing.T, runner *TxRunner, tenantID, sku string) string {
	t.Helper()
	id := uuid.New().String()
	now := time.Now()
	require.NoError(t, runner.Run(context.Background(), func(r repository.TxRepos) error {
		return r.Products.Create(context.Background(), &entity.Product{
			ID: id, TenantID: tenantID, SKU: sku, Name: sku, TaxCode: "8471",
			Price: decimal.NewFromInt(10), TaxRate: decimal.NewFromInt(18), MinStock: 100,
			CreatedAt: now, UpdatedAt: now,
		})
	}))
	return id
}

func TestIntegration_LedgerIsAppendOnly(t *testing.T) {
	pool := newTestPool(t)
	runner := NewTxRunner(pool)
	productID := seedProduct(t, runner, "tenant-a", "SKU-1")
	svc := stock.NewService(runner, stock.PolicyBlock, logger.Nop())
	ctx := context.Background()

	res, err := svc.Adjust(ctx, stock.AdjustInput{TenantID: "tenant-a", ProductID: productID, Delta: 50, Reason: "conteo", Actor: "u"})
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `UPDATE stock_ledger SET delta = 1 WHERE id = $1`, res.Entry.ID)
	assert.Error(t, err)
	_, err = pool.Exec(ctx, `DELETE FROM stock_ledger WHERE id = $1`, res.Entry.ID)
	assert.Error(t, err)

	// Un producto de otro tenant no puede recibir entradas.
	other := seedProduct(t, runner, "tenant-b", "SKU-1")
	err = runner.Run(ctx, func(r repository.TxRepos) error {
		return svc.AppendEntry(ctx, r, &entity.LedgerEntry{TenantID: "tenant-a", ProductID: other, Delta: 1, Kind: entity.MovementKindAdjustment, Reason: "x"})
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	low, err := svc.LowStock(ctx, "tenant-a")
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, int64(50), low[0].CurrentStock)
}

func TestIntegration_PostingLifecycle(t *testing.T) {
	pool := newTestPool(t)
	runner := NewTxRunner(pool)
	svc := stock.NewService(runner, stock.PolicyBlock, logger.Nop())
	engine := posting.NewEngine(runner, svc, logger.Nop())
	ctx := context.Background()
	p1 := seedProduct(t, runner, "tenant-a", "SKU-1")
	p2 := seedProduct(t, runner, "tenant-a", "SKU-2")

	line := func(id string, qty int64) posting.LineInput {
		return posting.LineInput{ProductID: id, Quantity: qty, UnitPrice: decimal.NewFromInt(10), TaxRate: decimal.NewFromInt(18), TaxCode: "8471"}
	}
	doc, err := engine.Create(ctx, posting.CreateInput{
		TenantID: "tenant-a", Actor: "u", Direction: entity.DirectionInbound, Number: "PO-001",
		CounterpartyRef: "Proveedor", Date: time.Now(), Lines: []posting.LineInput{line(p1, 50), line(p2, 5)},
	})
	require.NoError(t, err)

	_, err = engine.Create(ctx, posting.CreateInput{
		TenantID: "tenant-a", Actor: "u", Direction: entity.DirectionInbound, Number: "po-001",
		CounterpartyRef: "Proveedor", Date: time.Now(), Lines: []posting.LineInput{line(p1, 1)},
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateDocumentNumber)

	_, err = engine.Approve(ctx, "tenant-a", doc.ID, "u")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	fresh := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := engine.Post(ctx, "tenant-a", doc.ID, "u")
			if assert.NoError(t, err) && !res.AlreadyPosted {
				mu.Lock()
				fresh++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, fresh)

	s1, err := svc.CurrentStock(ctx, "tenant-a", "u", p1)
	require.NoError(t, err)
	assert.Equal(t, int64(50), s1)

	sale, err := engine.Create(ctx, posting.CreateInput{
		TenantID: "tenant-a", Actor: "u", Direction: entity.DirectionOutbound, Number: "INV-001",
		CounterpartyRef: "mostrador", Date: time.Now(), Lines: []posting.LineInput{line(p1, 5), line(p2, 6)},
	})
	require.NoError(t, err)
	_, err = engine.Approve(ctx, "tenant-a", sale.ID, "u")
	var mismatch *domain.MismatchError
	require.ErrorAs(t, err, &mismatch, "las ventas requieren cliente")
	assert.Equal(t, []string{"counterparty_link_id"}, mismatch.Fields)

	got, err := engine.Get(ctx, "tenant-a", "u", sale.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStateMismatch, got.State)
	assert.Equal(t, []string{"counterparty_link_id"}, got.MismatchFields)

	_, err = engine.Get(ctx, "tenant-b", "u", sale.ID)
	assert.ErrorIs(t, err, domain.ErrTenantIsolationViolation)
}

func TestIntegration_ConcurrentOutboundNeverGoesNegative(t *testing.T) {
	pool := newTestPool(t)
	runner := NewTxRunner(pool)
	svc := stock.NewService(runner, stock.PolicyBlock, logger.Nop())
	engine := posting.NewEngine(runner, svc, logger.Nop())
	registry := identity.NewMasterRegistry(NewPrivilegedTxRunner(pool), 5, logger.Nop())
	links := identity.NewLinkStore(runner, 5, logger.Nop())
	resolver := identity.NewResolver(registry, links, nil, identity.ResolverConfig{Strength: identifier.StrengthBasic}, logger.Nop())
	ctx := context.Background()

	productID := seedProduct(t, runner, "tenant-a", "SKU-1")
	_, err := svc.Adjust(ctx, stock.AdjustInput{TenantID: "tenant-a", ProductID: productID, Delta: 5, Reason: "conteo", Actor: "u"})
	require.NoError(t, err)
	customer, err := resolver.Resolve(ctx, "tenant-a", "9876543210", "u", "Cliente")
	require.NoError(t, err)

	sales := make([]string, 2)
	for i := range sales {
		doc, err := engine.Create(ctx, posting.CreateInput{
			TenantID: "tenant-a", Actor: "u", Direction: entity.DirectionOutbound, Number: uuid.NewString(),
			CounterpartyLinkID: customer.Link.ID, Date: time.Now(),
			Lines: []posting.LineInput{{ProductID: productID, Quantity: 5, UnitPrice: decimal.NewFromInt(10), TaxRate: decimal.NewFromInt(18), TaxCode: "8471"}},
		})
		require.NoError(t, err)
		_, err = engine.Approve(ctx, "tenant-a", doc.ID, "u")
		require.NoError(t, err)
		sales[i] = doc.ID
	}

	errs := make([]error, len(sales))
	var wg sync.WaitGroup
	for i, id := range sales {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = engine.Post(ctx, "tenant-a", id, "u")
		}(i, id)
	}
	wg.Wait()

	posted := 0
	for _, err := range errs {
		if err == nil {
			posted++
			continue
		}
		var insufficient *domain.InsufficientStockError
		if assert.True(t, errors.As(err, &insufficient), "error inesperado: %v", err) {
			assert.Equal(t, int64(0), insufficient.Available)
			assert.Equal(t, int64(5), insufficient.Requested)
		}
	}
	assert.Equal(t, 1, posted, "solo una venta puede consumir el stock")

	current, err := svc.CurrentStock(ctx, "tenant-a", "u", productID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), current)

	var outbound int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT count(*) FROM stock_ledger WHERE product_id = $1 AND kind = 'outbound'`, productID).Scan(&outbound))
	assert.Equal(t, 1, outbound)

	for i, id := range sales {
		doc, err := engine.Get(ctx, "tenant-a", "u", id)
		require.NoError(t, err)
		if errs[i] == nil {
			assert.Equal(t, entity.DocumentStatePosted, doc.State)
		} else {
			assert.Equal(t, entity.DocumentStateApproved, doc.State, "la venta rechazada no cambia de estado")
		}
	}
}

func TestIntegration_TenantRoleCannotWriteMasters(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	_, err := pool.Exec(ctx, `CREATE ROLE stock_ledger_tenant NOLOGIN`)
	require.NoError(t, err)

	// Reaplica los permisos ahora que el rol existe.
	m, err := NewMigrator(pool, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, m.Steps(-1))
	require.NoError(t, m.Steps(1))

	privileges := map[string]bool{
		"master_customers:SELECT": true,
		"master_customers:INSERT": false,
		"master_customers:UPDATE": false,
		"master_customers:DELETE": false,
		"tenant_links:UPDATE":     true,
		"stock_ledger:INSERT":     true,
		"stock_ledger:UPDATE":     false,
		"stock_ledger:DELETE":     false,
	}
	for key, want := range privileges {
		table, priv, _ := strings.Cut(key, ":")
		var got bool
		require.NoError(t, pool.QueryRow(ctx, `SELECT has_table_privilege('stock_ledger_tenant', $1, $2)`, table, priv).Scan(&got))
		assert.Equal(t, want, got, key)
	}

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()
	_, err = tx.Exec(ctx, `SET LOCAL ROLE stock_ledger_tenant`)
	require.NoError(t, err)
	_, err = tx.Exec(ctx, `INSERT INTO master_customers (id, phone, last_seen_at, created_at, updated_at)
		VALUES ($1, '9876543210', now(), now(), now())`, uuid.NewString())
	var pgErr *pgconn.PgError
	require.True(t, errors.As(err, &pgErr), "se esperaba un error de PostgreSQL: %v", err)
	assert.Equal(t, "42501", pgErr.Code, "insufficient_privilege")
}
