package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func seedProduct(t *testing.T, s *Store, tenantID, id, sku string) {
	t.Helper()
	err := s.Run(context.Background(), func(r repository.TxRepos) error {
		return r.Products.Create(context.Background(), &entity.Product{ID: id, TenantID: tenantID, SKU: sku, Name: sku})
	})
	require.NoError(t, err)
}

func TestRun_RollbackOnError(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedProduct(t, s, "A", "p1", "SKU-1")

	boom := errors.New("falla a mitad de la transacción")
	err := s.Run(ctx, func(r repository.TxRepos) error {
		require.NoError(t, r.Ledger.Append(ctx, &entity.LedgerEntry{ID: "e1", TenantID: "A", ProductID: "p1", Delta: 10, Kind: entity.MovementKindInbound}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_ = s.Run(ctx, func(r repository.TxRepos) error {
		stock, err := r.Ledger.CurrentStock(ctx, "A", "p1")
		require.NoError(t, err)
		assert.Zero(t, stock)
		return nil
	})
}

func TestMasters_UniqueIdentifiers(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	now := time.Now()

	err := s.RunPrivileged(ctx, func(w repository.MasterCustomerWriter) error {
		ok, err := w.InsertIfAbsent(ctx, &entity.MasterCustomer{ID: "m1", Phone: strPtr("9876543210"), CreatedAt: now, LastSeenAt: now})
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = w.InsertIfAbsent(ctx, &entity.MasterCustomer{ID: "m2", Phone: strPtr("9876543210")})
		require.NoError(t, err)
		assert.False(t, ok, "el teléfono ya existe")

		ok, err = w.InsertIfAbsent(ctx, &entity.MasterCustomer{ID: "m3", TaxID: strPtr("27AAPFU0939F1ZV")})
		require.NoError(t, err)
		assert.True(t, ok)

		// El GSTIN ya pertenece a m3: el merge sobre m1 no lo adjunta.
		m, err := w.Touch(ctx, "m1", repository.MasterMerge{TaxID: strPtr("27AAPFU0939F1ZV")}, now.Add(time.Minute))
		require.NoError(t, err)
		assert.Nil(t, m.TaxID)
		assert.Equal(t, now.Add(time.Minute), m.LastSeenAt)

		// last_seen nunca retrocede.
		m, err = w.Touch(ctx, "m1", repository.MasterMerge{}, now.Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, now.Add(time.Minute), m.LastSeenAt)
		return nil
	})
	require.NoError(t, err)
}

func TestLinks_OnePerTenantAndMaster(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.RunPrivileged(ctx, func(w repository.MasterCustomerWriter) error {
		_, err := w.InsertIfAbsent(ctx, &entity.MasterCustomer{ID: "m1", Phone: strPtr("9876543210")})
		return err
	}))

	err := s.Run(ctx, func(r repository.TxRepos) error {
		ok, err := r.Links.InsertIfAbsent(ctx, &entity.TenantLink{ID: "l1", TenantID: "A", MasterID: "m1"})
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = r.Links.InsertIfAbsent(ctx, &entity.TenantLink{ID: "l2", TenantID: "A", MasterID: "m1"})
		require.NoError(t, err)
		assert.False(t, ok)
		ok, err = r.Links.InsertIfAbsent(ctx, &entity.TenantLink{ID: "l3", TenantID: "B", MasterID: "m1"})
		require.NoError(t, err)
		assert.True(t, ok)

		l, err := r.Links.GetByID(ctx, "B", "l1")
		require.NoError(t, err)
		assert.Nil(t, l, "un tenant no ve links ajenos")
		owner, err := r.Links.OwnerOf(ctx, "l1")
		require.NoError(t, err)
		assert.Equal(t, "A", owner)
		return nil
	})
	require.NoError(t, err)
}

func TestLedger_Constraints(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedProduct(t, s, "A", "p1", "SKU-1")

	err := s.Run(ctx, func(r repository.TxRepos) error {
		assert.Error(t, r.Ledger.Append(ctx, &entity.LedgerEntry{ID: "e0", TenantID: "A", ProductID: "p1", Delta: 0, Kind: entity.MovementKindAdjustment}))
		assert.ErrorIs(t, r.Ledger.Append(ctx, &entity.LedgerEntry{ID: "e1", TenantID: "B", ProductID: "p1", Delta: 1, Kind: entity.MovementKindAdjustment}), domain.ErrNotFound)

		line := strPtr("line-1")
		require.NoError(t, r.Ledger.Append(ctx, &entity.LedgerEntry{ID: "e2", TenantID: "A", ProductID: "p1", Delta: 5, Kind: entity.MovementKindInbound, DocumentLineID: line}))
		assert.ErrorIs(t, r.Ledger.Append(ctx, &entity.LedgerEntry{ID: "e3", TenantID: "A", ProductID: "p1", Delta: 5, Kind: entity.MovementKindInbound, DocumentLineID: line}), domain.ErrConflict)
		return nil
	})
	require.NoError(t, err)
}

func TestDocuments_UniqueNumberPerTenant(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	err := s.Run(ctx, func(r repository.TxRepos) error {
		require.NoError(t, r.Documents.Create(ctx, &entity.Document{ID: "d1", TenantID: "A", NormalizedNumber: "INV-001", State: entity.DocumentStateDraft}))
		assert.ErrorIs(t, r.Documents.Create(ctx, &entity.Document{ID: "d2", TenantID: "A", NormalizedNumber: "INV-001"}), domain.ErrDuplicateDocumentNumber)
		require.NoError(t, r.Documents.Create(ctx, &entity.Document{ID: "d3", TenantID: "B", NormalizedNumber: "INV-001"}))

		doc, err := r.Documents.GetByID(ctx, "A", "d1")
		require.NoError(t, err)
		doc.State = entity.DocumentStateApproved
		assert.ErrorIs(t, r.Documents.UpdateState(ctx, doc, entity.DocumentStateMismatch), domain.ErrConflict)
		require.NoError(t, r.Documents.UpdateState(ctx, doc, entity.DocumentStateDraft))
		return nil
	})
	require.NoError(t, err)
}
