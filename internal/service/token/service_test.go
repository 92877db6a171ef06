package token

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"strings"
	"testing"
	"time"

	"GridPull/pkg/config"
)

var testNow = time.Date(2026, 8, 23, 14, 0, 0, 0, time.UTC)

func genKeyPEM(t *testing.T) (private, public string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public: %v", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	return string(privPEM), string(pubPEM)
}

func signingKeyAt(t *testing.T, id string, start, expire time.Time, revoked bool) config.SigningKey {
	t.Helper()
	priv, pub := genKeyPEM(t)
	return config.SigningKey{
		ID:      id,
		Private: priv,
		Public:  pub,
		Start:   start.Unix(),
		Expire:  expire.Unix(),
		Revoked: revoked,
	}
}

func newTestService(t *testing.T, keys ...config.SigningKey) *Service {
	t.Helper()
	if len(keys) == 0 {
		keys = []config.SigningKey{
			signingKeyAt(t, "key-a", testNow.Add(-time.Hour), testNow.Add(24*time.Hour), false),
		}
	}
	s, err := New(keys, []string{"demo-client"}, 15*time.Minute, 14*24*time.Hour)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	s.now = func() time.Time { return testNow }
	return s
}

func TestIssueAndVerify(t *testing.T) {
	s := newTestService(t)

	resp, err := s.Issue("demo-client")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if resp.TokenType != "Bearer" || resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatalf("incomplete response: %+v", resp)
	}
	if resp.ExpiresIn != int64((15 * time.Minute).Seconds()) {
		t.Fatalf("wrong expires_in: %d", resp.ExpiresIn)
	}

	claims, err := s.Verify(resp.AccessToken, false)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if claims.ClientID != "demo-client" || claims.IsRefresh {
		t.Fatalf("wrong claims: %+v", claims)
	}

	claims, err = s.Verify(resp.RefreshToken, true)
	if err != nil {
		t.Fatalf("verify refresh: %v", err)
	}
	if !claims.IsRefresh {
		t.Fatalf("refresh token not flagged as refresh")
	}
}

func TestIssueRejectsUnknownClient(t *testing.T) {
	s := newTestService(t)
	if _, err := s.Issue("stranger"); err != ErrInvalid {
		t.Fatalf("got %v want ErrInvalid", err)
	}
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	s := newTestService(t)
	resp, err := s.Issue("demo-client")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := s.Verify(resp.AccessToken, true); err != ErrInvalid {
		t.Fatalf("access token accepted as refresh: %v", err)
	}
	if _, err := s.Verify(resp.RefreshToken, false); err != ErrInvalid {
		t.Fatalf("refresh token accepted as access: %v", err)
	}
}

func TestRefreshMintsNewAccessToken(t *testing.T) {
	s := newTestService(t)
	issued, err := s.Issue("demo-client")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	refreshed, err := s.Refresh(issued.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.AccessToken == "" {
		t.Fatalf("no access token from refresh")
	}
	if refreshed.RefreshToken != "" {
		t.Fatalf("refresh must not rotate the refresh token")
	}
	if _, err := s.Verify(refreshed.AccessToken, false); err != nil {
		t.Fatalf("verify refreshed access: %v", err)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	s := newTestService(t)
	issued, err := s.Issue("demo-client")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := s.Refresh(issued.AccessToken); err != ErrInvalid {
		t.Fatalf("got %v want ErrInvalid", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	s := newTestService(t)
	issued, err := s.Issue("demo-client")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	s.now = func() time.Time { return testNow.Add(16 * time.Minute) }
	if _, err := s.Verify(issued.AccessToken, false); err != ErrInvalid {
		t.Fatalf("expired token accepted: %v", err)
	}
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	s := newTestService(t)
	issued, err := s.Issue("demo-client")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	parts := strings.Split(issued.AccessToken, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape")
	}
	// Flip the payload; the signature no longer matches.
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]
	if _, err := s.Verify(tampered, false); err != ErrInvalid {
		t.Fatalf("tampered token accepted: %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	s := newTestService(t)
	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := s.Verify(tok, false); err != ErrInvalid {
			t.Fatalf("garbage %q accepted: %v", tok, err)
		}
	}
}

func TestRotationSignsWithNewestKey(t *testing.T) {
	old := signingKeyAt(t, "key-old", testNow.Add(-48*time.Hour), testNow.Add(24*time.Hour), false)
	fresh := signingKeyAt(t, "key-new", testNow.Add(-time.Hour), testNow.Add(48*time.Hour), false)
	s := newTestService(t, old, fresh)

	// Token issued under the old key while it was still current.
	s.now = func() time.Time { return testNow.Add(-70 * time.Minute) }
	before, err := s.Issue("demo-client")
	if err != nil {
		t.Fatalf("issue before rotation: %v", err)
	}

	// Shortly after rotation, inside the access TTL: the old-key token stays
	// verifiable because the old key's window has not closed.
	s.now = func() time.Time { return testNow.Add(-58 * time.Minute) }
	if kid := kidOf(t, s, before.AccessToken); kid != "key-old" {
		t.Fatalf("old token signed by %q want key-old", kid)
	}

	s.now = func() time.Time { return testNow }
	after, err := s.Issue("demo-client")
	if err != nil {
		t.Fatalf("issue after rotation: %v", err)
	}
	if kid := kidOf(t, s, after.AccessToken); kid != "key-new" {
		t.Fatalf("new token signed by %q want key-new", kid)
	}
}

func TestRevokedKeyStopsVerifying(t *testing.T) {
	key := signingKeyAt(t, "key-a", testNow.Add(-time.Hour), testNow.Add(24*time.Hour), false)
	s := newTestService(t, key)
	issued, err := s.Issue("demo-client")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	key.Revoked = true
	revoked := newTestService(t, key)
	if _, err := revoked.Verify(issued.AccessToken, false); err != ErrInvalid {
		t.Fatalf("token of revoked key accepted: %v", err)
	}
	if _, err := revoked.Issue("demo-client"); err != ErrInvalid {
		t.Fatalf("issue with only a revoked key must fail: %v", err)
	}
}

func TestNoUsableKeyFailsClosed(t *testing.T) {
	expired := signingKeyAt(t, "key-a", testNow.Add(-48*time.Hour), testNow.Add(-24*time.Hour), false)
	s := newTestService(t, expired)
	if _, err := s.Issue("demo-client"); err != ErrInvalid {
		t.Fatalf("got %v want ErrInvalid", err)
	}
}

func TestPublicOnlyKeyVerifiesButNeverSigns(t *testing.T) {
	signer := signingKeyAt(t, "key-signer", testNow.Add(-time.Hour), testNow.Add(24*time.Hour), false)
	verifyOnly := signingKeyAt(t, "key-verify", testNow.Add(-time.Hour), testNow.Add(24*time.Hour), false)
	verifyOnly.Private = ""
	s := newTestService(t, verifyOnly, signer)

	issued, err := s.Issue("demo-client")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if kid := kidOf(t, s, issued.AccessToken); kid != "key-signer" {
		t.Fatalf("signed by %q want key-signer", kid)
	}
}

func TestPublishKeysExcludesUnusableKeys(t *testing.T) {
	active := signingKeyAt(t, "key-active", testNow.Add(-time.Hour), testNow.Add(24*time.Hour), false)
	expired := signingKeyAt(t, "key-expired", testNow.Add(-48*time.Hour), testNow.Add(-24*time.Hour), false)
	revoked := signingKeyAt(t, "key-revoked", testNow.Add(-time.Hour), testNow.Add(24*time.Hour), true)
	s := newTestService(t, active, expired, revoked)

	set := s.PublishKeys()
	if len(set.Keys) != 1 {
		t.Fatalf("got %d keys want 1", len(set.Keys))
	}
	k := set.Keys[0]
	if k.Kid != "key-active" || k.Kty != "RSA" || k.Alg != "RS256" || k.Use != "sig" {
		t.Fatalf("unexpected jwk: %+v", k)
	}
	if k.N == "" || k.E == "" {
		t.Fatalf("jwk missing modulus or exponent")
	}
}

// kidOf decodes the JOSE header and returns its kid.
func kidOf(t *testing.T, s *Service, tokenStr string) string {
	t.Helper()
	if _, err := s.Verify(tokenStr, false); err != nil {
		t.Fatalf("verify: %v", err)
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.SplitN(tokenStr, ".", 2)[0])
	if err != nil {
		t.Fatalf("decode header: %v", err)
	}
	var header struct {
		Kid string `json:"kid"`
	}
	if err := json.Unmarshal(raw, &header); err != nil {
		t.Fatalf("parse header: %v", err)
	}
	return header.Kid
}
