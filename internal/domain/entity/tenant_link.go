package entity

import "time"

// TenantLink une un tenant con un MasterCustomer y guarda las anotaciones privadas del tenant.
// Único por (TenantID, MasterID).
type TenantLink struct {
	ID              string
	TenantID        string
	MasterID        string
	Nickname        string
	BillingAddress  string
	ShippingAddress string
	Notes           string
	CreatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// LinkAnnotations campos editables por el tenant. nil = no modificar.
type LinkAnnotations struct {
	Nickname        *string
	BillingAddress  *string
	ShippingAddress *string
	Notes           *string
}

// Apply copia sobre el link los campos presentes.
func (a LinkAnnotations) Apply(l *TenantLink) {
	if a.Nickname != nil {
		l.Nickname = *a.Nickname
	}
	if a.BillingAddress != nil {
		l.BillingAddress = *a.BillingAddress
	}
	if a.ShippingAddress != nil {
		l.ShippingAddress = *a.ShippingAddress
	}
	if a.Notes != nil {
		l.Notes = *a.Notes
	}
}
