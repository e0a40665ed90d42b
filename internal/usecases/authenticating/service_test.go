package authenticating

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/pos-sync-engine/internal/domain"
	"github.com/vfg2006/pos-sync-engine/internal/identity"
)

func TestService_ValidateToken(t *testing.T) {
	tests := []struct {
		name        string
		token       func(s *Service) string
		expectedErr error
		principal   string
	}{
		{
			name: "token válido troca o principal da sessão",
			token: func(s *Service) string {
				token, _ := s.GenerateToken("ana@pos.test", domain.RoleWaiter, time.Hour)
				return token
			},
			principal: "ana@pos.test",
		},
		{
			name: "token expirado",
			token: func(s *Service) string {
				token, _ := s.GenerateToken("ana@pos.test", domain.RoleAdmin, -time.Minute)
				return token
			},
			expectedErr: ErrExpiredToken,
			principal:   identity.Anonymous,
		},
		{
			name: "assinado com outro segredo",
			token: func(s *Service) string {
				token, _ := NewService("outro", nil).GenerateToken("ana@pos.test", domain.RoleAdmin, time.Hour)
				return token
			},
			expectedErr: ErrInvalidToken,
			principal:   identity.Anonymous,
		},
		{
			name: "papel desconhecido",
			token: func(s *Service) string {
				token, _ := s.GenerateToken("ana@pos.test", "chef", time.Hour)
				return token
			},
			expectedErr: ErrUnknownRole,
			principal:   identity.Anonymous,
		},
		{
			name: "sem email",
			token: func(s *Service) string {
				token, _ := s.GenerateToken("", domain.RoleAdmin, time.Hour)
				return token
			},
			expectedErr: ErrMissingEmail,
			principal:   identity.Anonymous,
		},
		{
			name: "algoritmo none é recusado",
			token: func(s *Service) string {
				token := jwt.NewWithClaims(jwt.SigningMethodNone, &domain.Claims{Email: "ana@pos.test", Role: domain.RoleAdmin})
				signed, _ := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
				return signed
			},
			expectedErr: ErrInvalidToken,
			principal:   identity.Anonymous,
		},
		{
			name:        "lixo",
			token:       func(*Service) string { return "nao-e-um-token" },
			expectedErr: ErrInvalidToken,
			principal:   identity.Anonymous,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := identity.NewSession("")
			service := NewService("segredo", session)

			claims, err := service.ValidateToken(tt.token(service))

			assert.Equal(t, tt.principal, session.Principal())
			if tt.expectedErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.True(t, IsAuthorizationError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ana@pos.test", claims.Email)
		})
	}
}
