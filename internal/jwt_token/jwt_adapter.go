package jwttoken

import (
	"github.com/Elelei/Blockchain-Land-Registry-System/internal/platform/middleware"
)

// JWTServiceAdapter exposes the service as a middleware.JWTValidator.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	caller, err := claims.Caller()
	if err != nil {
		return nil, err
	}
	return &middleware.JWTClaims{Caller: caller, TokenID: claims.ID}, nil
}
