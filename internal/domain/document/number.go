package document

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// NormalizeNumber devuelve la clave de unicidad del número de documento:
// NFKC, ancho completo plegado a ASCII, sin distinción de mayúsculas y espacios colapsados.
// "inv-001", " INV-001 " e "ＩＮＶ－００１" producen la misma clave.
func NormalizeNumber(number string) string {
	s := norm.NFKC.String(number)
	s = width.Fold.String(s)
	s = cases.Fold().String(s)
	s = strings.Join(strings.Fields(s), " ")
	return strings.ToUpper(s)
}
