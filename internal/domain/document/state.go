// Package document contiene las reglas puras del ciclo de vida de documentos de compra y venta:
// máquina de estados, validación de aprobación y normalización del número.
package document

import (
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// transiciones permitidas: draft -> approved -> posted, mismatch alcanzable desde draft/approved
// y recuperable a draft. posted es terminal.
var transitions = map[string][]string{
	entity.DocumentStateDraft:    {entity.DocumentStateApproved, entity.DocumentStateMismatch},
	entity.DocumentStateApproved: {entity.DocumentStatePosted, entity.DocumentStateMismatch},
	entity.DocumentStateMismatch: {entity.DocumentStateDraft},
}

// IsValidState indica si s es un estado conocido.
func IsValidState(s string) bool {
	switch s {
	case entity.DocumentStateDraft, entity.DocumentStateApproved,
		entity.DocumentStatePosted, entity.DocumentStateMismatch:
		return true
	}
	return false
}

// CanTransition indica si el ciclo de vida permite pasar de from a to.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition cambia el estado del documento o devuelve ErrInvalidTransition.
func Transition(doc *entity.Document, to string) error {
	if !CanTransition(doc.State, to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, doc.State, to)
	}
	doc.State = to
	if to != entity.DocumentStateMismatch {
		doc.MismatchFields = nil
	}
	return nil
}

// IsEditable indica si se pueden corregir las líneas (draft o mismatch).
func IsEditable(state string) bool {
	return state == entity.DocumentStateDraft || state == entity.DocumentStateMismatch
}

// IsValidDirection indica si dir es inbound u outbound.
func IsValidDirection(dir string) bool {
	return dir == entity.DirectionInbound || dir == entity.DirectionOutbound
}
