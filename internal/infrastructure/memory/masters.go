package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

type masterRepo struct {
	st *state
}

func (r *masterRepo) GetByID(_ context.Context, id string) (*entity.MasterCustomer, error) {
	if m, ok := r.st.masters[id]; ok {
		return copyMaster(m), nil
	}
	return nil, nil
}

func (r *masterRepo) GetByPhone(_ context.Context, phone string) (*entity.MasterCustomer, error) {
	if m := r.byPhone(phone); m != nil {
		return copyMaster(m), nil
	}
	return nil, nil
}

func (r *masterRepo) GetByTaxID(_ context.Context, taxID string) (*entity.MasterCustomer, error) {
	if m := r.byTaxID(taxID); m != nil {
		return copyMaster(m), nil
	}
	return nil, nil
}

func (r *masterRepo) byPhone(phone string) *entity.MasterCustomer {
	for _, m := range r.st.masters {
		if m.Phone != nil && *m.Phone == phone {
			return m
		}
	}
	return nil
}

func (r *masterRepo) byTaxID(taxID string) *entity.MasterCustomer {
	for _, m := range r.st.masters {
		if m.TaxID != nil && *m.TaxID == taxID {
			return m
		}
	}
	return nil
}

// InsertIfAbsent emula INSERT ... ON CONFLICT DO NOTHING sobre los dos índices parciales.
func (r *masterRepo) InsertIfAbsent(_ context.Context, m *entity.MasterCustomer) (bool, error) {
	if _, ok := r.st.masters[m.ID]; ok {
		return false, nil
	}
	if m.Phone != nil && r.byPhone(*m.Phone) != nil {
		return false, nil
	}
	if m.TaxID != nil && r.byTaxID(*m.TaxID) != nil {
		return false, nil
	}
	r.st.masters[m.ID] = copyMaster(m)
	return true, nil
}

func (r *masterRepo) Touch(_ context.Context, id string, merge repository.MasterMerge, seenAt time.Time) (*entity.MasterCustomer, error) {
	m, ok := r.st.masters[id]
	if !ok {
		return nil, nil
	}
	if merge.Phone != nil && !m.HasPhone() && r.byPhone(*merge.Phone) == nil {
		v := *merge.Phone
		m.Phone = &v
	}
	if merge.TaxID != nil && !m.HasTaxID() && r.byTaxID(*merge.TaxID) == nil {
		v := *merge.TaxID
		m.TaxID = &v
		m.JurisdictionCode = merge.JurisdictionCode
		m.RegistrationClass = merge.RegistrationClass
	}
	if seenAt.After(m.LastSeenAt) {
		m.LastSeenAt = seenAt
	}
	m.UpdatedAt = seenAt
	return copyMaster(m), nil
}

func (r *masterRepo) ApplyEnrichment(_ context.Context, id string, e entity.MasterEnrichment, at time.Time) (*entity.MasterCustomer, error) {
	m, ok := r.st.masters[id]
	if !ok {
		return nil, nil
	}
	if e.LegalName != "" && (m.DisplayName == "" || (m.TaxID != nil && m.DisplayName == *m.TaxID)) {
		m.DisplayName = e.LegalName
	}
	m.LegalName = e.LegalName
	m.Address = e.Address
	m.JurisdictionStatus = e.JurisdictionStatus
	m.EnrichedAt = &at
	m.UpdatedAt = at
	return copyMaster(m), nil
}

func (r *masterRepo) ListPendingEnrichment(_ context.Context, limit int) ([]*entity.MasterCustomer, error) {
	var out []*entity.MasterCustomer
	for _, m := range r.st.masters {
		if m.HasTaxID() && m.EnrichedAt == nil {
			out = append(out, copyMaster(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return page(out, limit, 0), nil
}
