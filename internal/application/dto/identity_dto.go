package dto

import (
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ResolveIdentityRequest identificador libre (teléfono o GSTIN) a resolver.
type ResolveIdentityRequest struct {
	Identifier  string `json:"identifier" validate:"required,max=64"`
	DisplayName string `json:"display_name" validate:"omitempty,max=200"`
}

// MasterResponse vista de solo lectura del cliente maestro.
type MasterResponse struct {
	ID                 string     `json:"id"`
	Phone              *string    `json:"phone,omitempty"`
	TaxID              *string    `json:"tax_id,omitempty"`
	DisplayName        string     `json:"display_name"`
	LegalName          string     `json:"legal_name,omitempty"`
	Address            string     `json:"address,omitempty"`
	JurisdictionCode   string     `json:"jurisdiction_code,omitempty"`
	RegistrationClass  string     `json:"registration_class,omitempty"`
	JurisdictionStatus string     `json:"jurisdiction_status,omitempty"`
	EnrichedAt         *time.Time `json:"enriched_at,omitempty"`
	LastSeenAt         time.Time  `json:"last_seen_at"`
}

// LinkResponse link del tenant con sus anotaciones privadas.
type LinkResponse struct {
	ID              string          `json:"id"`
	MasterID        string          `json:"master_id"`
	Nickname        string          `json:"nickname"`
	BillingAddress  string          `json:"billing_address"`
	ShippingAddress string          `json:"shipping_address"`
	Notes           string          `json:"notes"`
	CreatedBy       string          `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Master          *MasterResponse `json:"master,omitempty"`
}

// ResolveIdentityResponse par (maestro, link) resuelto.
type ResolveIdentityResponse struct {
	Kind          string         `json:"kind"`
	Master        MasterResponse `json:"master"`
	Link          LinkResponse   `json:"link"`
	MasterCreated bool           `json:"master_created"`
	LinkCreated   bool           `json:"link_created"`
}

// UpdateLinkRequest anotaciones editables; campos ausentes no se modifican.
type UpdateLinkRequest struct {
	Nickname        *string `json:"nickname" validate:"omitempty,max=120"`
	BillingAddress  *string `json:"billing_address" validate:"omitempty,max=500"`
	ShippingAddress *string `json:"shipping_address" validate:"omitempty,max=500"`
	Notes           *string `json:"notes" validate:"omitempty,max=2000"`
}

// LinkListResponse lista paginada de links del tenant.
type LinkListResponse struct {
	Items []LinkResponse `json:"items"`
	Page  PageResponse   `json:"page"`
}

// ToMasterResponse convierte la entidad.
func ToMasterResponse(m *entity.MasterCustomer) MasterResponse {
	return MasterResponse{
		ID:                 m.ID,
		Phone:              m.Phone,
		TaxID:              m.TaxID,
		DisplayName:        m.DisplayName,
		LegalName:          m.LegalName,
		Address:            m.Address,
		JurisdictionCode:   m.JurisdictionCode,
		RegistrationClass:  m.RegistrationClass,
		JurisdictionStatus: m.JurisdictionStatus,
		EnrichedAt:         m.EnrichedAt,
		LastSeenAt:         m.LastSeenAt,
	}
}

// ToLinkResponse convierte la entidad; master es opcional.
func ToLinkResponse(l *entity.TenantLink, master *entity.MasterCustomer) LinkResponse {
	out := LinkResponse{
		ID:              l.ID,
		MasterID:        l.MasterID,
		Nickname:        l.Nickname,
		BillingAddress:  l.BillingAddress,
		ShippingAddress: l.ShippingAddress,
		Notes:           l.Notes,
		CreatedBy:       l.CreatedBy,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
	if master != nil {
		m := ToMasterResponse(master)
		out.Master = &m
	}
	return out
}
