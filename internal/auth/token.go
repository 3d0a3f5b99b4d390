// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/holomush/holoauth/internal/apperr"
)

// SigningKey is the HMAC secret used to sign and verify tokens. It is built
// once at startup and never changes.
type SigningKey struct {
	secret []byte
}

// NewSigningKey copies secret into a SigningKey. An empty secret is rejected.
func NewSigningKey(secret string) (SigningKey, error) {
	if secret == "" {
		return SigningKey{}, oops.Code("AUTH_SIGNING_KEY_EMPTY").Errorf("signing secret cannot be empty")
	}
	return SigningKey{secret: []byte(secret)}, nil
}

// tokenClaims is the wire form of Claims.
type tokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type tokenHeader struct {
	Alg string `json:"alg"`
}

// TokenService issues and validates HS256 session tokens.
type TokenService struct {
	key    SigningKey
	now    func() time.Time
	parser *jwt.Parser
}

// TokenOption configures a TokenService.
type TokenOption func(*TokenService)

// WithClock sets the time source used for issuing and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

// NewTokenService creates a TokenService signing with key.
func NewTokenService(key SigningKey, opts ...TokenOption) *TokenService {
	s := &TokenService{
		key:    key,
		now:    time.Now,
		parser: jwt.NewParser(jwt.WithoutClaimsValidation()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue signs a token for subjectID valid for Lifetime from now.
func (s *TokenService) Issue(subjectID uuid.UUID, email string) (string, error) {
	iat := time.Unix(s.now().Unix(), 0)
	claims := tokenClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID.String(),
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(iat.Add(Lifetime)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key.secret)
	if err != nil {
		return "", apperr.Internal(oops.Code("AUTH_TOKEN_SIGN_FAILED").
			With("subject", subjectID.String()).
			Wrap(err))
	}
	return signed, nil
}

// Validate checks token and returns its claims.
//
// Checks run in a fixed order: structure, then signature, then claim
// shape, then expiry. The first failing check decides the error.
func (s *TokenService) Validate(token string) (Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Claims{}, tokenErr(ErrTokenMalformed, "token must have three segments")
	}

	headerJSON, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return Claims{}, tokenErr(ErrTokenMalformed, "header is not base64url")
	}
	var header tokenHeader
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return Claims{}, tokenErr(ErrTokenMalformed, "header is not JSON")
	}
	if header.Alg == "" {
		return Claims{}, tokenErr(ErrTokenMalformed, "header has no alg")
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return Claims{}, tokenErr(ErrTokenMalformed, "signature is not base64url")
	}

	if header.Alg != jwt.SigningMethodHS256.Alg() {
		return Claims{}, tokenErr(ErrTokenSignature, "unexpected signing algorithm "+header.Alg)
	}
	if err := jwt.SigningMethodHS256.Verify(parts[0]+"."+parts[1], sig, s.key.secret); err != nil {
		return Claims{}, tokenErr(ErrTokenSignature, "signature mismatch")
	}

	var tc tokenClaims
	if _, _, err := s.parser.ParseUnverified(token, &tc); err != nil {
		return Claims{}, tokenErr(ErrTokenMalformed, "payload is not valid claims")
	}
	if tc.IssuedAt == nil || tc.ExpiresAt == nil {
		return Claims{}, tokenErr(ErrTokenMalformed, "missing iat or exp")
	}
	subject, err := uuid.Parse(tc.Subject)
	if err != nil {
		return Claims{}, tokenErr(ErrTokenMalformed, "subject is not a UUID")
	}

	claims := Claims{
		SubjectID: subject,
		Email:     tc.Email,
		IssuedAt:  tc.IssuedAt.Unix(),
		ExpiresAt: tc.ExpiresAt.Unix(),
	}
	if claims.Expired(s.now()) {
		return Claims{}, tokenErr(ErrTokenExpired, "token expired")
	}
	return claims, nil
}

func tokenErr(sentinel error, reason string) error {
	return apperr.TokenInvalid(oops.Code("AUTH_TOKEN_INVALID").
		With("reason", reason).
		Wrap(sentinel))
}
