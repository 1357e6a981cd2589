package models

import "github.com/golang-jwt/jwt/v5"

// ServiceClaims are the JWT claims issued to authenticated service
// accounts.
type ServiceClaims struct {
	ClientID string `json:"cid"`
	jwt.RegisteredClaims
}

// TokenRequest carries service-account credentials.
type TokenRequest struct {
	ClientID     string `json:"client_id" validate:"required"`
	ClientSecret string `json:"client_secret" validate:"required"`
}

// TokenResponse returns an issued access token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}
