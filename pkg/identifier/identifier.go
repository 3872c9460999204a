// Package identifier clasifica y normaliza los identificadores reales de un cliente:
// teléfono móvil de 10 dígitos o GSTIN de 15 caracteres.
package identifier

import (
	"regexp"
	"strings"

	"github.com/ttacon/libphonenumber"
)

// Kind resultado de la clasificación.
type Kind int

const (
	KindInvalid Kind = iota
	KindPhone
	KindTaxID
)

func (k Kind) String() string {
	switch k {
	case KindPhone:
		return "phone"
	case KindTaxID:
		return "tax_id"
	default:
		return "invalid"
	}
}

// Strength nivel de validación configurable.
type Strength int

const (
	// StrengthBasic solo patrón.
	StrengthBasic Strength = iota
	// StrengthStrict patrón + carácter de control del GSTIN + número posible según libphonenumber.
	StrengthStrict
)

// ParseStrength interpreta "basic" | "strict" (por defecto basic).
func ParseStrength(s string) Strength {
	if strings.EqualFold(strings.TrimSpace(s), "strict") {
		return StrengthStrict
	}
	return StrengthBasic
}

// PhoneRegion región usada por libphonenumber en validación estricta.
const PhoneRegion = "IN"

// primeros dígitos admitidos para móviles.
const phoneLeadingDigits = "6789"

var taxIDPattern = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)

// Result identificador clasificado y normalizado.
type Result struct {
	Kind              Kind
	Canonical         string
	JurisdictionCode  string // solo GSTIN
	RegistrationClass string // solo GSTIN
}

// Valid indica si el identificador es teléfono o GSTIN.
func (r Result) Valid() bool { return r.Kind != KindInvalid }

// Classify clasifica raw como teléfono, GSTIN o inválido. Función pura y total.
func Classify(raw string, strength Strength) Result {
	s := strings.TrimSpace(raw)
	if isPhone(s) {
		if strength == StrengthStrict && !isPossiblePhone(s) {
			return Result{Kind: KindInvalid}
		}
		return Result{Kind: KindPhone, Canonical: s}
	}
	up := strings.ToUpper(s)
	if taxIDPattern.MatchString(up) {
		if strength == StrengthStrict && !ValidTaxIDCheckChar(up) {
			return Result{Kind: KindInvalid}
		}
		return Result{
			Kind:              KindTaxID,
			Canonical:         up,
			JurisdictionCode:  up[0:2],
			RegistrationClass: up[2:12],
		}
	}
	return Result{Kind: KindInvalid}
}

func isPhone(s string) bool {
	if len(s) != 10 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return strings.IndexByte(phoneLeadingDigits, s[0]) >= 0
}

func isPossiblePhone(s string) bool {
	num, err := libphonenumber.Parse(s, PhoneRegion)
	if err != nil {
		return false
	}
	return libphonenumber.IsPossibleNumber(num)
}
