package memory

import (
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

func errUnique(constraint string) error {
	return fmt.Errorf("%w: restricción única %s", domain.ErrConflict, constraint)
}

func errForeignKey(constraint string) error {
	return fmt.Errorf("%w: llave foránea %s", domain.ErrNotFound, constraint)
}

func errNoRows(table string) error {
	return fmt.Errorf("%s: %w", table, domain.ErrNotFound)
}
