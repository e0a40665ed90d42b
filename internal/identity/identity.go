// Package identity fornece o principal autenticado usado para anotar eventos de diagnóstico.
// O motor não aplica autorização por conta própria.
package identity

import "sync/atomic"

// Anonymous é usado enquanto nenhuma sessão foi autenticada
const Anonymous = "anonymous"

// Provider fornece o identificador do principal da sessão atual
type Provider interface {
	Principal() string
}

// Static é um Provider de valor fixo
type Static string

func (s Static) Principal() string {
	if s == "" {
		return Anonymous
	}
	return string(s)
}

// Session guarda o principal da única sessão lógica ativa
type Session struct {
	principal atomic.Value
}

func NewSession(initial string) *Session {
	s := &Session{}
	s.SetPrincipal(initial)
	return s
}

func (s *Session) Principal() string {
	p, _ := s.principal.Load().(string)
	if p == "" {
		return Anonymous
	}
	return p
}

// SetPrincipal troca o principal da sessão, por exemplo após validar um token
func (s *Session) SetPrincipal(principal string) {
	s.principal.Store(principal)
}
