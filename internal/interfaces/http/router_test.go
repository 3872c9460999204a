package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/catalog"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/identity"
	"github.com/jhoicas/stock-ledger/internal/application/posting"
	"github.com/jhoicas/stock-ledger/internal/application/stock"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	apphttp "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/pkg/identifier"
	pkgjwt "github.com/jhoicas/stock-ledger/pkg/jwt"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// newAPI arma el router completo sobre el store en memoria.
func newAPI(t *testing.T, policy stock.NegativePolicy) *fiber.App {
	t.Helper()
	store := memory.NewStore()
	log := logger.Nop()
	registry := identity.NewMasterRegistry(store, 3, log)
	links := identity.NewLinkStore(store, 3, log)
	resolver := identity.NewResolver(registry, links, nil, identity.ResolverConfig{Strength: identifier.StrengthBasic}, log)
	stockSvc := stock.NewService(store, policy, log)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Resolver:    resolver,
		Links:       links,
		ProductUC:   catalog.NewProductUseCase(store, log),
		Stock:       stockSvc,
		Posting:     posting.NewEngine(store, stockSvc, log),
		JWTSecret:   testJWTSecret,
		ServiceName: "stock-ledger-test",
		Log:         log,
	})
	return app
}

type client struct {
	t    *testing.T
	app  *fiber.App
	auth string
}

func newClient(t *testing.T, app *fiber.App, tenantID, role string) *client {
	return &client{t: t, app: app, auth: bearer(t, tenantID, role)}
}

// do envía la petición y decodifica el cuerpo en out (si no es nil).
func (c *client) do(method, path string, body interface{}, out interface{}) int {
	c.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.auth)
	resp, err := c.app.Test(req, -1)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (c *client) createProduct(sku, taxCode string) dto.ProductResponse {
	c.t.Helper()
	var p dto.ProductResponse
	status := c.do(http.MethodPost, "/api/products", fiber.Map{"sku": sku, "name": "Producto " + sku, "tax_code": taxCode, "price": "100", "tax_rate": "18", "min_stock": 10}, &p)
	require.Equal(c.t, http.StatusCreated, status)
	return p
}

func docBody(direction, number, linkID, productID string, qty int64, taxCode string) fiber.Map {
	body := fiber.Map{
		"direction": direction,
		"number":    number,
		"date":      "2026-03-01T00:00:00Z",
		"lines": []fiber.Map{
			{"product_id": productID, "quantity": qty, "unit_price": "100", "tax_rate": "18", "tax_code": taxCode},
		},
	}
	if direction == "outbound" {
		body["counterparty_link_id"] = linkID
	} else {
		body["counterparty_ref"] = "Proveedor Uno"
	}
	return body
}

// postDoc crea, aprueba y contabiliza; devuelve el resultado de la contabilización.
func (c *client) postDoc(body fiber.Map) dto.PostDocumentResponse {
	c.t.Helper()
	var doc dto.DocumentResponse
	require.Equal(c.t, http.StatusCreated, c.do(http.MethodPost, "/api/documents", body, &doc))
	require.Equal(c.t, http.StatusOK, c.do(http.MethodPost, "/api/documents/"+doc.ID+"/approve", nil, &doc))
	var res dto.PostDocumentResponse
	require.Equal(c.t, http.StatusOK, c.do(http.MethodPost, "/api/documents/"+doc.ID+"/post", nil, &res))
	return res
}

func (c *client) stockOf(productID string) int64 {
	c.t.Helper()
	var out dto.CurrentStockResponse
	require.Equal(c.t, http.StatusOK, c.do(http.MethodGet, "/api/stock/"+productID, nil, &out))
	return out.Stock
}

func TestAPI_ResolveIdentity(t *testing.T) {
	app := newAPI(t, stock.PolicyBlock)
	a := newClient(t, app, testTenantID, pkgjwt.RoleOperator)
	b := newClient(t, app, testTenantB, pkgjwt.RoleOperator)

	var ra, ra2, rb dto.ResolveIdentityResponse
	assert.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/identity/resolve", fiber.Map{"identifier": " 9876543210 "}, &ra))
	assert.Equal(t, http.StatusOK, a.do(http.MethodPost, "/api/identity/resolve", fiber.Map{"identifier": "9876543210"}, &ra2))
	assert.Equal(t, http.StatusCreated, b.do(http.MethodPost, "/api/identity/resolve", fiber.Map{"identifier": "9876543210"}, &rb))

	assert.Equal(t, "phone", ra.Kind)
	assert.True(t, ra.MasterCreated)
	assert.Equal(t, ra.Link.ID, ra2.Link.ID)
	assert.Equal(t, ra.Master.ID, rb.Master.ID, "un solo maestro compartido")
	assert.NotEqual(t, ra.Link.ID, rb.Link.ID, "un link por tenant")

	var errBody dto.ErrorResponse
	assert.Equal(t, http.StatusUnprocessableEntity, a.do(http.MethodPost, "/api/identity/resolve", fiber.Map{"identifier": "hola"}, &errBody))
	assert.Equal(t, "INVALID_IDENTIFIER", errBody.Code)

	viewer := newClient(t, app, testTenantID, pkgjwt.RoleViewer)
	assert.Equal(t, http.StatusForbidden, viewer.do(http.MethodPost, "/api/identity/resolve", fiber.Map{"identifier": "9876543210"}, nil))
}

func TestAPI_LinkAnnotationsAreTenantPrivate(t *testing.T) {
	app := newAPI(t, stock.PolicyBlock)
	a := newClient(t, app, testTenantID, pkgjwt.RoleOperator)
	b := newClient(t, app, testTenantB, pkgjwt.RoleOperator)

	var ra dto.ResolveIdentityResponse
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/identity/resolve", fiber.Map{"identifier": "9876543210"}, &ra))

	var updated dto.LinkResponse
	require.Equal(t, http.StatusOK, a.do(http.MethodPatch, "/api/links/"+ra.Link.ID, fiber.Map{"nickname": "Ravi"}, &updated))
	assert.Equal(t, "Ravi", updated.Nickname)

	var got dto.LinkResponse
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/links/"+ra.Link.ID, nil, &got))
	assert.Equal(t, "Ravi", got.Nickname)
	require.NotNil(t, got.Master)
	assert.Equal(t, ra.Master.ID, got.Master.ID)

	var list dto.LinkListResponse
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/links?limit=10", nil, &list))
	assert.Len(t, list.Items, 1)

	var errBody dto.ErrorResponse
	assert.Equal(t, http.StatusForbidden, b.do(http.MethodGet, "/api/links/"+ra.Link.ID, nil, &errBody))
	assert.Equal(t, "TENANT_ISOLATION_VIOLATION", errBody.Code)
	assert.Equal(t, http.StatusForbidden, b.do(http.MethodPatch, "/api/links/"+ra.Link.ID, fiber.Map{"nickname": "x"}, nil))
}

func TestAPI_PostingLifecycle(t *testing.T) {
	app := newAPI(t, stock.PolicyBlock)
	admin := newClient(t, app, testTenantID, pkgjwt.RoleAdmin)

	p := admin.createProduct("SKU-1", "8471")
	var ra dto.ResolveIdentityResponse
	require.Equal(t, http.StatusCreated, admin.do(http.MethodPost, "/api/identity/resolve", fiber.Map{"identifier": "9876543210"}, &ra))

	in := admin.postDoc(docBody("inbound", "PO-1", "", p.ID, 50, "8471"))
	assert.False(t, in.AlreadyPosted)
	require.Len(t, in.Entries, 1)
	assert.Equal(t, int64(50), in.Entries[0].Delta)
	assert.Equal(t, "posted", in.Document.State)

	admin.postDoc(docBody("outbound", "INV-1", ra.Link.ID, p.ID, 5, "8471"))
	assert.Equal(t, int64(45), admin.stockOf(p.ID))

	// Reintento: 200 sin entradas nuevas.
	var retry dto.PostDocumentResponse
	require.Equal(t, http.StatusOK, admin.do(http.MethodPost, "/api/documents/"+in.Document.ID+"/post", nil, &retry))
	assert.True(t, retry.AlreadyPosted)
	assert.Equal(t, int64(45), admin.stockOf(p.ID))

	var adj dto.AdjustStockResponse
	require.Equal(t, http.StatusCreated, admin.do(http.MethodPost, "/api/stock/adjustments", fiber.Map{"product_id": p.ID, "delta": -45, "reason": "stock count correction"}, &adj))
	assert.Equal(t, int64(0), adj.Stock)
	assert.Equal(t, "adjustment", adj.Entry.Kind)
	assert.Equal(t, int64(0), admin.stockOf(p.ID))

	var entries []dto.LedgerEntryResponse
	require.Equal(t, http.StatusOK, admin.do(http.MethodGet, "/api/stock/"+p.ID+"/entries", nil, &entries))
	assert.Len(t, entries, 3)

	var low []dto.LowStockResponse
	require.Equal(t, http.StatusOK, admin.do(http.MethodGet, "/api/stock/low", nil, &low))
	require.Len(t, low, 1)
	assert.Equal(t, p.ID, low[0].ProductID)
}

func TestAPI_InsufficientStockIsConflict(t *testing.T) {
	app := newAPI(t, stock.PolicyBlock)
	admin := newClient(t, app, testTenantID, pkgjwt.RoleAdmin)
	p := admin.createProduct("SKU-1", "8471")
	var ra dto.ResolveIdentityResponse
	require.Equal(t, http.StatusCreated, admin.do(http.MethodPost, "/api/identity/resolve", fiber.Map{"identifier": "9876543210"}, &ra))

	var doc dto.DocumentResponse
	require.Equal(t, http.StatusCreated, admin.do(http.MethodPost, "/api/documents", docBody("outbound", "INV-9", ra.Link.ID, p.ID, 3, "8471"), &doc))
	require.Equal(t, http.StatusOK, admin.do(http.MethodPost, "/api/documents/"+doc.ID+"/approve", nil, nil))

	var errBody dto.ErrorResponse
	assert.Equal(t, http.StatusConflict, admin.do(http.MethodPost, "/api/documents/"+doc.ID+"/post", nil, &errBody))
	assert.Equal(t, "INSUFFICIENT_STOCK", errBody.Code)
	assert.Equal(t, []string{p.ID}, errBody.Fields)

	var got dto.DocumentResponse
	require.Equal(t, http.StatusOK, admin.do(http.MethodGet, "/api/documents/"+doc.ID, nil, &got))
	assert.Equal(t, "approved", got.State)
	assert.Equal(t, int64(0), admin.stockOf(p.ID))
}

func TestAPI_WarnPolicyReturnsWarnings(t *testing.T) {
	app := newAPI(t, stock.PolicyWarn)
	admin := newClient(t, app, testTenantID, pkgjwt.RoleAdmin)
	p := admin.createProduct("SKU-1", "8471")

	var adj dto.AdjustStockResponse
	require.Equal(t, http.StatusCreated, admin.do(http.MethodPost, "/api/stock/adjustments", fiber.Map{"product_id": p.ID, "delta": -2, "reason": "merma"}, &adj))
	assert.Equal(t, int64(-2), adj.Stock)
	require.Len(t, adj.Warnings, 1)
	assert.Equal(t, int64(-2), adj.Warnings[0].Resulting)
}

func TestAPI_MismatchCorrectApprove(t *testing.T) {
	app := newAPI(t, stock.PolicyBlock)
	admin := newClient(t, app, testTenantID, pkgjwt.RoleAdmin)
	p := admin.createProduct("SKU-1", "8471")

	var doc dto.DocumentResponse
	require.Equal(t, http.StatusCreated, admin.do(http.MethodPost, "/api/documents", docBody("inbound", "PO-7", "", p.ID, 4, "9983"), &doc))

	var mismatch dto.MismatchResponse
	require.Equal(t, http.StatusUnprocessableEntity, admin.do(http.MethodPost, "/api/documents/"+doc.ID+"/approve", nil, &mismatch))
	assert.Equal(t, "VALIDATION_MISMATCH", mismatch.Code)
	assert.NotEmpty(t, mismatch.Message)
	assert.Equal(t, doc.ID, mismatch.Document.ID)
	assert.Equal(t, []string{"lines[0].tax_code"}, mismatch.Document.MismatchFields)
	assert.Equal(t, []string{"lines[0].tax_code"}, mismatch.Fields)
	assert.Equal(t, "mismatch", mismatch.Document.State)

	// Contabilizar un documento en mismatch no es una transición válida.
	assert.Equal(t, http.StatusConflict, admin.do(http.MethodPost, "/api/documents/"+doc.ID+"/post", nil, nil))

	lines := fiber.Map{"lines": []fiber.Map{{"product_id": p.ID, "quantity": 4, "unit_price": "100", "tax_rate": "18", "tax_code": "8471"}}}
	require.Equal(t, http.StatusOK, admin.do(http.MethodPut, "/api/documents/"+doc.ID+"/lines", lines, &doc))
	require.Equal(t, http.StatusOK, admin.do(http.MethodPost, "/api/documents/"+doc.ID+"/approve", nil, &doc))
	assert.Equal(t, "approved", doc.State)
}

func TestAPI_DocumentValidationAndDuplicates(t *testing.T) {
	app := newAPI(t, stock.PolicyBlock)
	admin := newClient(t, app, testTenantID, pkgjwt.RoleAdmin)
	p := admin.createProduct("SKU-1", "8471")

	var errBody dto.ErrorResponse
	bad := docBody("inbound", "PO-1", "", p.ID, 0, "8471")
	assert.Equal(t, http.StatusBadRequest, admin.do(http.MethodPost, "/api/documents", bad, &errBody))
	assert.Equal(t, "VALIDATION", errBody.Code)
	assert.Contains(t, errBody.Fields, "lines[0].quantity")

	require.Equal(t, http.StatusCreated, admin.do(http.MethodPost, "/api/documents", docBody("inbound", "PO-1", "", p.ID, 1, "8471"), nil))
	errBody = dto.ErrorResponse{}
	assert.Equal(t, http.StatusConflict, admin.do(http.MethodPost, "/api/documents", docBody("inbound", " po-1 ", "", p.ID, 1, "8471"), &errBody))
	assert.Equal(t, "DUPLICATE_DOCUMENT_NUMBER", errBody.Code)

	// El mismo número en otro tenant es válido.
	other := newClient(t, app, testTenantB, pkgjwt.RoleAdmin)
	pb := other.createProduct("SKU-1", "8471")
	assert.Equal(t, http.StatusCreated, other.do(http.MethodPost, "/api/documents", docBody("inbound", "PO-1", "", pb.ID, 1, "8471"), nil))

	assert.Equal(t, http.StatusConflict, admin.do(http.MethodPost, "/api/products", fiber.Map{"sku": "SKU-1", "name": "Otro", "tax_code": "8471"}, nil))
}

func TestAPI_QuantityBounds(t *testing.T) {
	app := newAPI(t, stock.PolicyBlock)
	admin := newClient(t, app, testTenantID, pkgjwt.RoleAdmin)
	p := admin.createProduct("SKU-1", "8471")

	var errBody dto.ErrorResponse
	huge := docBody("inbound", "PO-1", "", p.ID, 1_000_000_001, "8471")
	assert.Equal(t, http.StatusBadRequest, admin.do(http.MethodPost, "/api/documents", huge, &errBody))
	assert.Equal(t, "VALIDATION", errBody.Code)
	assert.Equal(t, []string{"lines[0].quantity"}, errBody.Fields)

	for _, delta := range []int64{math.MinInt64, -1_000_000_001, 1_000_000_001, math.MaxInt64} {
		errBody = dto.ErrorResponse{}
		body := fiber.Map{"product_id": p.ID, "delta": delta, "reason": "conteo"}
		assert.Equal(t, http.StatusBadRequest, admin.do(http.MethodPost, "/api/stock/adjustments", body, &errBody), "delta %d", delta)
		assert.Equal(t, []string{"delta"}, errBody.Fields)
	}
	assert.Zero(t, admin.stockOf(p.ID))

	// El límite exacto pasa la validación y llega a la política de stock.
	assert.Equal(t, http.StatusConflict, admin.do(http.MethodPost, "/api/stock/adjustments", fiber.Map{"product_id": p.ID, "delta": -1_000_000_000, "reason": "conteo"}, nil))
	assert.Equal(t, http.StatusCreated, admin.do(http.MethodPost, "/api/stock/adjustments", fiber.Map{"product_id": p.ID, "delta": 1_000_000_000, "reason": "conteo"}, nil))
	assert.Equal(t, int64(1_000_000_000), admin.stockOf(p.ID))
}

func TestAPI_TenantIsolation(t *testing.T) {
	app := newAPI(t, stock.PolicyBlock)
	a := newClient(t, app, testTenantID, pkgjwt.RoleAdmin)
	b := newClient(t, app, testTenantB, pkgjwt.RoleAdmin)
	p := a.createProduct("SKU-1", "8471")

	var errBody dto.ErrorResponse
	assert.Equal(t, http.StatusForbidden, b.do(http.MethodGet, "/api/products/"+p.ID, nil, &errBody))
	assert.Equal(t, "TENANT_ISOLATION_VIOLATION", errBody.Code)
	assert.Equal(t, http.StatusForbidden, b.do(http.MethodGet, "/api/stock/"+p.ID, nil, nil))
	assert.Equal(t, http.StatusForbidden, b.do(http.MethodGet, "/api/stock/"+p.ID+"/entries", nil, nil))
	assert.Equal(t, http.StatusForbidden, b.do(http.MethodPost, "/api/stock/adjustments", fiber.Map{"product_id": p.ID, "delta": 5, "reason": "x"}, nil))

	// tenant_id explícito distinto al del token.
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, "/api/stock/adjustments", fiber.Map{"tenant_id": testTenantB, "product_id": p.ID, "delta": 5, "reason": "x"}, nil))
	assert.Equal(t, int64(0), a.stockOf(p.ID))

	var doc dto.DocumentResponse
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/documents", docBody("inbound", "PO-1", "", p.ID, 1, "8471"), &doc))
	assert.Equal(t, http.StatusForbidden, b.do(http.MethodGet, "/api/documents/"+doc.ID, nil, nil))
	assert.Equal(t, http.StatusForbidden, b.do(http.MethodPost, "/api/documents/"+doc.ID+"/approve", nil, nil))

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/products/no-existe", nil, nil))
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/documents/no-existe", nil, nil))
}

func TestAPI_HealthAndMetrics(t *testing.T) {
	app := newAPI(t, stock.PolicyBlock)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "stockledger_http_requests_total")

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/products", nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
