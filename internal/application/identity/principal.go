package identity

// Scope capacidad que porta un Principal.
type Scope string

// ScopeMasterWrite permite escribir en el registro maestro.
const ScopeMasterWrite Scope = "master:write"

// Principal identidad interna con la que se invoca al registro maestro.
// Solo este paquete puede crear uno con ScopeMasterWrite.
type Principal struct {
	name   string
	scopes []Scope
}

// TenantPrincipal principal de una sesión de tenant: puede leer pero nunca escribir maestros.
func TenantPrincipal(tenantID string) Principal {
	return Principal{name: "tenant:" + tenantID}
}

func systemPrincipal(name string) Principal {
	return Principal{name: name, scopes: []Scope{ScopeMasterWrite}}
}

// Name nombre para logs.
func (p Principal) Name() string { return p.name }

// Has indica si el principal porta el scope.
func (p Principal) Has(s Scope) bool {
	for _, sc := range p.scopes {
		if sc == s {
			return true
		}
	}
	return false
}
