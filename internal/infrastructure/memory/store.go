// Package memory implementa todos los puertos de persistencia en memoria (STORAGE_DRIVER=memory y tests).
// Las transacciones se serializan con un mutex y, si fn falla, se restaura la foto previa del estado.
// Los repositorios entregados a fn solo son válidos durante la transacción.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var (
	_ repository.TxRunner           = (*Store)(nil)
	_ repository.PrivilegedTxRunner = (*Store)(nil)
)

// Store almacenamiento en memoria compartido por todos los tenants.
type Store struct {
	mu   sync.Mutex
	data *state
}

type state struct {
	masters   map[string]*entity.MasterCustomer
	links     map[string]*entity.TenantLink
	products  map[string]*entity.Product
	documents map[string]*entity.Document
	ledger    []*entity.LedgerEntry // orden de inserción
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{data: &state{
		masters:   make(map[string]*entity.MasterCustomer),
		links:     make(map[string]*entity.TenantLink),
		products:  make(map[string]*entity.Product),
		documents: make(map[string]*entity.Document),
	}}
}

// Run ejecuta fn con repositorios de tenant; si fn devuelve error se descartan sus cambios.
func (s *Store) Run(ctx context.Context, fn func(repos repository.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.data.clone()
	repos := repository.TxRepos{
		Products:  &productRepo{st: s.data},
		Ledger:    &ledgerRepo{st: s.data},
		Documents: &documentRepo{st: s.data},
		Links:     &linkRepo{st: s.data},
		Masters:   &masterRepo{st: s.data},
	}
	if err := fn(repos); err != nil {
		s.data = snap
		return err
	}
	return nil
}

// RunPrivileged ejecuta fn con el escritor del registro maestro.
func (s *Store) RunPrivileged(ctx context.Context, fn func(masters repository.MasterCustomerWriter) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.data.clone()
	if err := fn(&masterRepo{st: s.data}); err != nil {
		s.data = snap
		return err
	}
	return nil
}

// clone copia profunda del estado; las entradas del libro son inmutables y se comparten.
func (st *state) clone() *state {
	c := &state{
		masters:   make(map[string]*entity.MasterCustomer, len(st.masters)),
		links:     make(map[string]*entity.TenantLink, len(st.links)),
		products:  make(map[string]*entity.Product, len(st.products)),
		documents: make(map[string]*entity.Document, len(st.documents)),
		ledger:    append([]*entity.LedgerEntry(nil), st.ledger...),
	}
	for k, v := range st.masters {
		c.masters[k] = copyMaster(v)
	}
	for k, v := range st.links {
		c.links[k] = copyLink(v)
	}
	for k, v := range st.products {
		c.products[k] = copyProduct(v)
	}
	for k, v := range st.documents {
		c.documents[k] = copyDocument(v)
	}
	return c
}

func copyMaster(m *entity.MasterCustomer) *entity.MasterCustomer {
	c := *m
	return &c
}

func copyLink(l *entity.TenantLink) *entity.TenantLink {
	c := *l
	return &c
}

func copyProduct(p *entity.Product) *entity.Product {
	c := *p
	return &c
}

func copyDocument(d *entity.Document) *entity.Document {
	c := *d
	c.Lines = append([]entity.DocumentLine(nil), d.Lines...)
	c.MismatchFields = append([]string(nil), d.MismatchFields...)
	if len(c.MismatchFields) == 0 {
		c.MismatchFields = nil
	}
	return &c
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
