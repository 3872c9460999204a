package entity

import "time"

// MasterCustomer representa un cliente global deduplicado, independiente del tenant.
// Se identifica por teléfono y/o GSTIN normalizados; al menos uno de los dos es no nulo.
// Solo se modifica a través del registro maestro (escritura privilegiada).
type MasterCustomer struct {
	ID                 string
	Phone              *string // 10 dígitos normalizados
	TaxID              *string // GSTIN en mayúsculas (15 caracteres)
	DisplayName        string
	LegalName          string // razón social devuelta por el servicio de enriquecimiento
	Address            string
	JurisdictionCode   string // 2 primeros caracteres del GSTIN (código de estado)
	RegistrationClass  string // caracteres 3 a 12 del GSTIN
	JurisdictionStatus string // estado de la registración según el servicio externo
	EnrichedAt         *time.Time
	LastSeenAt         time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// HasPhone indica si el maestro ya tiene teléfono.
func (m *MasterCustomer) HasPhone() bool { return m.Phone != nil && *m.Phone != "" }

// HasTaxID indica si el maestro ya tiene GSTIN.
func (m *MasterCustomer) HasTaxID() bool { return m.TaxID != nil && *m.TaxID != "" }

// JurisdictionStatusNotFound estado guardado cuando el servicio externo no conoce el GSTIN.
const JurisdictionStatusNotFound = "not_found"

// MasterEnrichment datos devueltos por el servicio externo de consulta de GSTIN.
type MasterEnrichment struct {
	LegalName          string
	Address            string
	JurisdictionStatus string
}
