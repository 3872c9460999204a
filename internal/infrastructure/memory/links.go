package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

type linkRepo struct {
	st *state
}

func (r *linkRepo) InsertIfAbsent(_ context.Context, link *entity.TenantLink) (bool, error) {
	for _, l := range r.st.links {
		if l.TenantID == link.TenantID && l.MasterID == link.MasterID {
			return false, nil
		}
	}
	if _, ok := r.st.masters[link.MasterID]; !ok {
		return false, errForeignKey("tenant_links.master_id")
	}
	r.st.links[link.ID] = copyLink(link)
	return true, nil
}

func (r *linkRepo) GetByMaster(_ context.Context, tenantID, masterID string) (*entity.TenantLink, error) {
	for _, l := range r.st.links {
		if l.TenantID == tenantID && l.MasterID == masterID {
			return copyLink(l), nil
		}
	}
	return nil, nil
}

func (r *linkRepo) GetByID(_ context.Context, tenantID, id string) (*entity.TenantLink, error) {
	if l, ok := r.st.links[id]; ok && l.TenantID == tenantID {
		return copyLink(l), nil
	}
	return nil, nil
}

func (r *linkRepo) UpdateAnnotations(_ context.Context, link *entity.TenantLink) error {
	l, ok := r.st.links[link.ID]
	if !ok || l.TenantID != link.TenantID {
		return errNoRows("tenant_links")
	}
	l.Nickname = link.Nickname
	l.BillingAddress = link.BillingAddress
	l.ShippingAddress = link.ShippingAddress
	l.Notes = link.Notes
	l.UpdatedAt = link.UpdatedAt
	return nil
}

func (r *linkRepo) ListByTenant(_ context.Context, tenantID string, limit, offset int) ([]*entity.TenantLink, error) {
	var out []*entity.TenantLink
	for _, l := range r.st.links {
		if l.TenantID == tenantID {
			out = append(out, copyLink(l))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return page(out, limit, offset), nil
}

func (r *linkRepo) OwnerOf(_ context.Context, id string) (string, error) {
	if l, ok := r.st.links[id]; ok {
		return l.TenantID, nil
	}
	return "", nil
}
