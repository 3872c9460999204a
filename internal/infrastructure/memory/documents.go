package memory

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

type documentRepo struct {
	st *state
}

func (r *documentRepo) Create(_ context.Context, doc *entity.Document) error {
	for _, d := range r.st.documents {
		if d.TenantID == doc.TenantID && d.NormalizedNumber == doc.NormalizedNumber {
			return domain.ErrDuplicateDocumentNumber
		}
	}
	r.st.documents[doc.ID] = copyDocument(doc)
	return nil
}

func (r *documentRepo) GetByID(_ context.Context, tenantID, id string) (*entity.Document, error) {
	if d, ok := r.st.documents[id]; ok && d.TenantID == tenantID {
		return copyDocument(d), nil
	}
	return nil, nil
}

func (r *documentRepo) GetForUpdate(ctx context.Context, tenantID, id string) (*entity.Document, error) {
	return r.GetByID(ctx, tenantID, id)
}

func (r *documentRepo) OwnerOf(_ context.Context, id string) (string, error) {
	if d, ok := r.st.documents[id]; ok {
		return d.TenantID, nil
	}
	return "", nil
}

func (r *documentRepo) UpdateState(_ context.Context, doc *entity.Document, fromState string) error {
	d, ok := r.st.documents[doc.ID]
	if !ok || d.TenantID != doc.TenantID || d.State != fromState {
		return domain.ErrConflict
	}
	d.State = doc.State
	d.MismatchFields = append([]string(nil), doc.MismatchFields...)
	d.ApprovedBy = doc.ApprovedBy
	d.PostedBy = doc.PostedBy
	d.PostedAt = doc.PostedAt
	d.UpdatedAt = doc.UpdatedAt
	return nil
}

func (r *documentRepo) ReplaceLines(_ context.Context, doc *entity.Document) error {
	d, ok := r.st.documents[doc.ID]
	if !ok || d.TenantID != doc.TenantID {
		return errNoRows("documents")
	}
	d.Lines = append([]entity.DocumentLine(nil), doc.Lines...)
	d.UpdatedAt = doc.UpdatedAt
	return nil
}
