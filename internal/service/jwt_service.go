package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTService valida la identidad del caller a partir de access tokens. La
// emisión de credenciales (login, OTP) vive en otro servicio que comparte el
// secreto; IssueAccessToken existe para ese emisor y para los tests.
type JWTService struct {
	secret    []byte
	accessTTL time.Duration
	issuer    string
	store     SessionTokenStore
}

type Claims struct {
	UserID    string `json:"uid"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

var (
	ErrJWTInvalid = errors.New("jwt invalid")
	ErrJWTExpired = errors.New("jwt expired")
)

func NewJWTService(secret string, accessTTL time.Duration) *JWTService {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	return &JWTService{
		secret:    []byte(secret),
		accessTTL: accessTTL,
		issuer:    "linkup-chat",
		store:     NewMemorySessionTokenStore(),
	}
}

func NewJWTServiceWithStore(secret string, accessTTL time.Duration, store SessionTokenStore) *JWTService {
	svc := NewJWTService(secret, accessTTL)
	if store != nil {
		svc.store = store
	}
	return svc
}

// IssueAccessToken firma un access token para userID y registra su jti como
// sesión activa.
func (s *JWTService) IssueAccessToken(userID string) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrJWTInvalid
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", ErrJWTInvalid
	}

	now := time.Now().UTC()
	jti := uuid.NewString()
	claims := Claims{
		UserID:    userID,
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}
	if s.store != nil {
		if err := s.store.Store(jti, userID, s.accessTTL); err != nil {
			return "", err
		}
	}
	return signed, nil
}

// ParseAccessToken valida firma, claims y sesión activa del token.
func (s *JWTService) ParseAccessToken(accessToken string) (Claims, error) {
	if len(s.secret) == 0 {
		return Claims{}, ErrJWTInvalid
	}
	if strings.TrimSpace(accessToken) == "" {
		return Claims{}, ErrJWTInvalid
	}
	claims, err := s.parseToken(accessToken)
	if err != nil {
		return Claims{}, err
	}
	if claims.TokenType != "access" {
		return Claims{}, ErrJWTInvalid
	}
	if !s.isValidClaims(claims) {
		return Claims{}, ErrJWTInvalid
	}
	if s.store != nil && claims.ID != "" {
		ok, err := s.store.Exists(claims.ID)
		if err != nil || !ok {
			return Claims{}, ErrJWTInvalid
		}
	}
	return claims, nil
}

// RevokeAccessToken invalida la sesión del token eliminando su jti del store.
func (s *JWTService) RevokeAccessToken(accessToken string) error {
	if len(s.secret) == 0 {
		return ErrJWTInvalid
	}
	claims, err := s.parseToken(accessToken)
	if err != nil {
		return err
	}
	if !s.isValidClaims(claims) || claims.ID == "" {
		return ErrJWTInvalid
	}
	if s.store == nil {
		return ErrJWTInvalid
	}
	return s.store.Revoke(claims.ID)
}

func (s *JWTService) parseToken(tokenString string) (Claims, error) {
	var claims Claims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrJWTExpired
		}
		return Claims{}, ErrJWTInvalid
	}
	return claims, nil
}

func (s *JWTService) isValidClaims(claims Claims) bool {
	if strings.TrimSpace(claims.UserID) == "" {
		return false
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return false
	}
	if claims.Subject != claims.UserID {
		return false
	}
	return strings.TrimSpace(claims.Issuer) == s.issuer
}
