package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "secreto-de-prueba"

func TestGenerateAndParse(t *testing.T) {
	tok, err := Generate(testSecret, "u-1", "t-1", RoleOperator, "stock-ledger", 5)
	require.NoError(t, err)

	id, err := Parse(testSecret, tok)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "u-1", TenantID: "t-1", Role: RoleOperator}, id)
}

func TestParse_Errors(t *testing.T) {
	valid, err := Generate(testSecret, "u-1", "t-1", RoleAdmin, "stock-ledger", 5)
	require.NoError(t, err)
	expired, err := Generate(testSecret, "u-1", "t-1", RoleAdmin, "stock-ledger", -1)
	require.NoError(t, err)
	noTenant, err := Generate(testSecret, "u-1", "", RoleAdmin, "stock-ledger", 5)
	require.NoError(t, err)

	tests := []struct {
		name   string
		secret string
		token  string
	}{
		{"firma incorrecta", "otro-secreto", valid},
		{"expirado", testSecret, expired},
		{"sin tenant", testSecret, noTenant},
		{"basura", testSecret, "no.es.jwt"},
		{"secret vacío", "", valid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.secret, tt.token)
			assert.Error(t, err)
		})
	}
}

func TestGenerate_EmptySecret(t *testing.T) {
	_, err := Generate("", "u", "t", RoleAdmin, "x", 5)
	assert.Error(t, err)
}
