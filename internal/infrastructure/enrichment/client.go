// Package enrichment consulta el servicio externo de registro de GSTIN.
package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/metrics"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

const cachePrefix = "gstin:"

// Cache almacenamiento de respuestas. Lo implementa el cliente Redis.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Client cliente HTTP del servicio de GSTIN: GET {baseURL}/{taxId}.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      Cache // nil = sin caché
	ttl        time.Duration
	log        *logger.Logger
}

// Config parámetros del cliente.
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// NewClient construye el cliente. cache puede ser nil.
func NewClient(cfg Config, cache Cache, log *logger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      cache,
		ttl:        cfg.CacheTTL,
		log:        log.Component("enrichment"),
	}
}

type lookupResponse struct {
	LegalName string `json:"legal_name"`
	Address   string `json:"address"`
	Status    string `json:"status"`
}

// cached entrada del caché; Found=false guarda también las respuestas 404.
type cached struct {
	Found bool           `json:"found"`
	Data  lookupResponse `json:"data"`
}

// Lookup devuelve los datos registrados del GSTIN, o nil si el servicio no lo conoce.
func (c *Client) Lookup(ctx context.Context, taxID string) (*entity.MasterEnrichment, error) {
	key := cachePrefix + taxID
	if c.cache != nil {
		var hit cached
		found, err := c.cache.GetJSON(ctx, key, &hit)
		if err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("lectura de caché falló; consultando servicio")
		} else if found {
			metrics.ObserveEnrichment("cache_hit")
			return hit.toEnrichment(), nil
		}
	}

	entry, err := c.fetch(ctx, taxID)
	if err != nil {
		metrics.ObserveEnrichment("error")
		return nil, err
	}
	if entry.Found {
		metrics.ObserveEnrichment("ok")
	} else {
		metrics.ObserveEnrichment("not_found")
	}

	if c.cache != nil {
		if err := c.cache.SetJSON(ctx, key, entry, c.ttl); err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("no se pudo guardar en caché")
		}
	}
	return entry.toEnrichment(), nil
}

func (c *Client) fetch(ctx context.Context, taxID string) (cached, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+url.PathEscape(taxID), nil)
	if err != nil {
		return cached{}, fmt.Errorf("crear request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return cached{}, fmt.Errorf("consultar GSTIN: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return cached{Found: false}, nil
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return cached{}, fmt.Errorf("servicio GSTIN respondió %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return cached{}, fmt.Errorf("decodificar respuesta GSTIN: %w", err)
	}
	return cached{Found: true, Data: out}, nil
}

func (e cached) toEnrichment() *entity.MasterEnrichment {
	if !e.Found {
		return nil
	}
	return &entity.MasterEnrichment{
		LegalName:          strings.TrimSpace(e.Data.LegalName),
		Address:            strings.TrimSpace(e.Data.Address),
		JurisdictionStatus: strings.TrimSpace(e.Data.Status),
	}
}
