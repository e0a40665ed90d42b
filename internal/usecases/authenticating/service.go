// Package authenticating valida os tokens emitidos pelo provedor de identidade externo.
// O email validado passa a ser o principal da sessão usado nos diagnósticos.
package authenticating

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/pos-sync-engine/internal/domain"
	"github.com/vfg2006/pos-sync-engine/pkg/apiErrors"
)

type Authenticator interface {
	ValidateToken(tokenString string) (*domain.Claims, error)
	GenerateToken(email, role string, ttl time.Duration) (string, error)
}

// PrincipalSetter recebe o principal autenticado. É satisfeito por *identity.Session.
type PrincipalSetter interface {
	SetPrincipal(principal string)
}

type Service struct {
	secretKey []byte
	session   PrincipalSetter
	now       func() time.Time
}

func NewService(secretKey string, session PrincipalSetter) *Service {
	return &Service{
		secretKey: []byte(secretKey),
		session:   session,
		now:       time.Now,
	}
}

// GenerateToken emite um token HS256; usado por ferramentas locais e testes
func (s *Service) GenerateToken(email, role string, ttl time.Duration) (string, error) {
	claims := &domain.Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(s.now()),
			ExpiresAt: jwt.NewNumericDate(s.now().Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

func (s *Service) ValidateToken(tokenString string) (*domain.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &domain.Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("método de assinatura inesperado: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, NewAuthError(ErrExpiredToken, apiErrors.ErrExpiredToken, err.Error())
		}
		return nil, NewAuthError(ErrInvalidToken, apiErrors.ErrInvalidToken, err.Error())
	}

	claims, ok := token.Claims.(*domain.Claims)
	if !ok || !token.Valid {
		return nil, NewAuthError(ErrInvalidToken, apiErrors.ErrInvalidToken, "")
	}

	if claims.Email == "" {
		return nil, NewAuthError(ErrMissingEmail, apiErrors.ErrInvalidToken, "")
	}

	switch claims.Role {
	case domain.RoleAdmin, domain.RoleWaiter:
	default:
		return nil, NewAuthError(ErrUnknownRole, apiErrors.ErrInsufficientPrivilege, claims.Role)
	}

	if s.session != nil {
		s.session.SetPrincipal(claims.Email)
	}

	logrus.WithFields(logrus.Fields{
		"principal": claims.Email,
		"role":      claims.Role,
	}).Debug("Token validado")

	return claims, nil
}
