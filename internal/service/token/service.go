package token

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"GridPull/internal/domain/models"
	"GridPull/pkg/config"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalid is the uniform failure for every verification or issuance
// problem. Callers never learn which check failed.
var ErrInvalid = errors.New("token: invalid token or client")

// Claims is the signed token payload. IsRefresh distinguishes refresh tokens
// from access tokens so one cannot stand in for the other.
type Claims struct {
	ClientID  string `json:"client_id"`
	IsRefresh bool   `json:"isRefresh"`
	jwt.RegisteredClaims
}

type signingKey struct {
	id      string
	private *rsa.PrivateKey
	public  *rsa.PublicKey
	start   time.Time
	expire  time.Time
	revoked bool
}

// validAt reports whether the key may verify tokens at t.
func (k *signingKey) validAt(t time.Time) bool {
	return !k.revoked && !t.Before(k.start) && t.Before(k.expire)
}

// Service issues and verifies tokens with rotating RSA keys. The key set is
// an immutable snapshot loaded at startup; key selection is a pure function
// of (now, key list).
type Service struct {
	keys       []signingKey
	clients    map[string]struct{}
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// New parses the configured key set and allow-list. Keys may carry only the
// public half; such keys verify but are never selected for signing.
func New(cfgKeys []config.SigningKey, clientIDs []string, accessTTL, refreshTTL time.Duration) (*Service, error) {
	keys := make([]signingKey, 0, len(cfgKeys))
	for _, ck := range cfgKeys {
		if ck.ID == "" {
			return nil, fmt.Errorf("signing key without id")
		}
		k := signingKey{
			id:      ck.ID,
			start:   time.Unix(ck.Start, 0),
			expire:  time.Unix(ck.Expire, 0),
			revoked: ck.Revoked,
		}
		if ck.Private != "" {
			priv, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(ck.Private))
			if err != nil {
				return nil, fmt.Errorf("signing key %s: parse private: %w", ck.ID, err)
			}
			k.private = priv
			k.public = &priv.PublicKey
		}
		if ck.Public != "" {
			pub, err := jwt.ParseRSAPublicKeyFromPEM([]byte(ck.Public))
			if err != nil {
				return nil, fmt.Errorf("signing key %s: parse public: %w", ck.ID, err)
			}
			k.public = pub
		}
		if k.public == nil {
			return nil, fmt.Errorf("signing key %s: no key material", ck.ID)
		}
		keys = append(keys, k)
	}

	clients := make(map[string]struct{}, len(clientIDs))
	for _, id := range clientIDs {
		clients[id] = struct{}{}
	}

	return &Service{
		keys:       keys,
		clients:    clients,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// Issue validates clientID against the allow-list and returns a fresh access
// token plus a refresh token, both signed with the current key.
func (s *Service) Issue(clientID string) (*models.TokenResponse, error) {
	if _, ok := s.clients[clientID]; !ok {
		return nil, ErrInvalid
	}

	key := s.currentKey()
	if key == nil {
		return nil, ErrInvalid
	}

	access, err := s.sign(key, clientID, false, s.accessTTL)
	if err != nil {
		return nil, ErrInvalid
	}
	refresh, err := s.sign(key, clientID, true, s.refreshTTL)
	if err != nil {
		return nil, ErrInvalid
	}

	return &models.TokenResponse{
		TokenType:    "Bearer",
		AccessToken:  access,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
		RefreshToken: refresh,
	}, nil
}

// Refresh verifies a refresh token and mints a new access token. The refresh
// token itself is not rotated and stays usable until it expires.
func (s *Service) Refresh(refreshToken string) (*models.TokenResponse, error) {
	claims, err := s.Verify(refreshToken, true)
	if err != nil {
		return nil, ErrInvalid
	}
	if _, ok := s.clients[claims.ClientID]; !ok {
		return nil, ErrInvalid
	}

	key := s.currentKey()
	if key == nil {
		return nil, ErrInvalid
	}
	access, err := s.sign(key, claims.ClientID, false, s.accessTTL)
	if err != nil {
		return nil, ErrInvalid
	}

	return &models.TokenResponse{
		TokenType:   "Bearer",
		AccessToken: access,
		ExpiresIn:   int64(s.accessTTL.Seconds()),
	}, nil
}

// Verify checks signature, key validity window, expiry, and that the token's
// isRefresh flag matches expectRefresh. Every failure is ErrInvalid.
func (s *Service) Verify(tokenStr string, expectRefresh bool) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, ErrInvalid
		}
		kid, _ := t.Header["kid"].(string)
		key := s.keyByID(kid)
		if key == nil || !key.validAt(s.now()) {
			return nil, ErrInvalid
		}
		return key.public, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil {
		return nil, ErrInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalid
	}
	if claims.IsRefresh != expectRefresh {
		return nil, ErrInvalid
	}
	return claims, nil
}

func (s *Service) sign(key *signingKey, clientID string, isRefresh bool, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		ClientID:  clientID,
		IsRefresh: isRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	t.Header["kid"] = key.id
	return t.SignedString(key.private)
}

// currentKey selects the signing key: latest start among non-revoked keys
// whose validity window contains now and which carry a private half.
func (s *Service) currentKey() *signingKey {
	now := s.now()
	var current *signingKey
	for i := range s.keys {
		k := &s.keys[i]
		if !k.validAt(now) || k.private == nil {
			continue
		}
		if current == nil || k.start.After(current.start) {
			current = k
		}
	}
	return current
}

func (s *Service) keyByID(id string) *signingKey {
	if id == "" {
		return nil
	}
	for i := range s.keys {
		if s.keys[i].id == id {
			return &s.keys[i]
		}
	}
	return nil
}
