package token

import (
	"encoding/base64"
	"math/big"
)

// JWK is the public half of one RSA signing key.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKS is a public key set for third-party verification.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// PublishKeys returns every currently-valid, non-revoked public key. Tokens
// signed by a recently-retired key stay verifiable as long as that key's
// validity window has not elapsed.
func (s *Service) PublishKeys() *JWKS {
	now := s.now()
	set := &JWKS{Keys: []JWK{}}
	for i := range s.keys {
		k := &s.keys[i]
		if !k.validAt(now) {
			continue
		}
		set.Keys = append(set.Keys, JWK{
			Kty: "RSA",
			Use: "sig",
			Alg: "RS256",
			Kid: k.id,
			N:   base64.RawURLEncoding.EncodeToString(k.public.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(k.public.E)).Bytes()),
		})
	}
	return set
}
