package identifier

import "strings"

// alfabeto del carácter de control del GSTIN (base 36).
const checkAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// TaxIDCheckChar calcula el carácter de control (posición 15) a partir de los 14 primeros
// caracteres de un GSTIN en mayúsculas. Pesos alternos 1 y 2; cada producto se reduce en base 36.
// ok=false si hay menos de 14 caracteres o alguno fuera del alfabeto.
func TaxIDCheckChar(taxID string) (byte, bool) {
	if len(taxID) < 14 {
		return 0, false
	}
	sum := 0
	for i := 0; i < 14; i++ {
		v := strings.IndexByte(checkAlphabet, taxID[i])
		if v < 0 {
			return 0, false
		}
		factor := 1
		if i%2 == 1 {
			factor = 2
		}
		p := v * factor
		sum += p/36 + p%36
	}
	return checkAlphabet[(36-sum%36)%36], true
}

// ValidTaxIDCheckChar valida el carácter de control de un GSTIN de 15 caracteres.
func ValidTaxIDCheckChar(taxID string) bool {
	if len(taxID) != 15 {
		return false
	}
	c, ok := TaxIDCheckChar(taxID)
	return ok && c == taxID[14]
}
