package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/slidenote/server-go/internal/config"
)

type testSigner struct {
	key *rsa.PrivateKey
	kid string
	pem string
}

func newTestSigner(t *testing.T, kid string) *testSigner {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "securetoken.test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	pemText := string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))

	return &testSigner{key: key, kid: kid, pem: pemText}
}

func (s *testSigner) sign(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = s.kid
	signed, err := token.SignedString(s.key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func claimsFor(projectID string, subject string) jwt.Claims {
	return idTokenClaims{
		Email: "student@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    "https://securetoken.google.com/" + projectID,
			Audience:  jwt.ClaimStrings{projectID},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func newTestVerifier(t *testing.T, certs map[string]string) *FirebaseVerifier {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(certs)
	}))
	t.Cleanup(server.Close)

	verifier, err := NewFirebaseVerifier(config.AuthConfig{
		ProjectID: "slidenote-test",
		CertsURL:  server.URL,
	}, slog.Default())
	if err != nil {
		t.Fatalf("create verifier: %v", err)
	}
	return verifier
}

func TestVerifyValidToken(t *testing.T) {
	signer := newTestSigner(t, "kid-1")
	verifier := newTestVerifier(t, map[string]string{"kid-1": signer.pem})

	token := signer.sign(t, claimsFor("slidenote-test", "user-42"))
	identity, err := verifier.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if identity.UserID != "user-42" {
		t.Fatalf("unexpected user id: %s", identity.UserID)
	}
	if identity.Email != "student@example.com" {
		t.Fatalf("unexpected email: %s", identity.Email)
	}
}

func TestVerifyRejectsWrongAudience(t *testing.T) {
	signer := newTestSigner(t, "kid-1")
	verifier := newTestVerifier(t, map[string]string{"kid-1": signer.pem})

	token := signer.sign(t, claimsFor("another-project", "user-42"))
	if _, err := verifier.Verify(context.Background(), token); err == nil {
		t.Fatalf("expected error for wrong audience")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	signer := newTestSigner(t, "kid-1")
	verifier := newTestVerifier(t, map[string]string{"kid-1": signer.pem})

	claims := idTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			Issuer:    "https://securetoken.google.com/slidenote-test",
			Audience:  jwt.ClaimStrings{"slidenote-test"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	if _, err := verifier.Verify(context.Background(), signer.sign(t, claims)); err == nil {
		t.Fatalf("expected error for expired token")
	}
}

func TestVerifyRejectsUnknownSigner(t *testing.T) {
	trusted := newTestSigner(t, "kid-1")
	rogue := newTestSigner(t, "kid-1")
	verifier := newTestVerifier(t, map[string]string{"kid-1": trusted.pem})

	token := rogue.sign(t, claimsFor("slidenote-test", "user-42"))
	if _, err := verifier.Verify(context.Background(), token); err == nil {
		t.Fatalf("expected error for unknown signer")
	}
}

func TestVerifyRefreshesOnRotatedKey(t *testing.T) {
	old := newTestSigner(t, "kid-old")
	rotated := newTestSigner(t, "kid-new")

	certs := map[string]string{"kid-old": old.pem}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(certs)
	}))
	t.Cleanup(server.Close)

	verifier, err := NewFirebaseVerifier(config.AuthConfig{
		ProjectID: "slidenote-test",
		CertsURL:  server.URL,
	}, slog.Default())
	if err != nil {
		t.Fatalf("create verifier: %v", err)
	}

	// 캐시를 구 키로 채운다.
	oldToken := old.sign(t, claimsFor("slidenote-test", "user-1"))
	if _, err := verifier.Verify(context.Background(), oldToken); err != nil {
		t.Fatalf("verify with old key: %v", err)
	}

	// 키 회전 후 새 kid 토큰은 1회 갱신을 거쳐 통과해야 한다.
	certs = map[string]string{"kid-new": rotated.pem}
	newToken := rotated.sign(t, claimsFor("slidenote-test", "user-2"))
	identity, err := verifier.Verify(context.Background(), newToken)
	if err != nil {
		t.Fatalf("verify after rotation: %v", err)
	}
	if identity.UserID != "user-2" {
		t.Fatalf("unexpected user id: %s", identity.UserID)
	}
}

func TestVerifyParsesJWKSPayload(t *testing.T) {
	signer := newTestSigner(t, "kid-1")
	keys, err := parseCertsPayload([]byte(`{"keys":[]}`), slog.Default())
	if err == nil || keys != nil {
		t.Fatalf("expected error for empty jwks")
	}

	// x5c 없는 RSA n/e 형식도 처리된다.
	pub := signer.key.Public().(*rsa.PublicKey)
	payload := map[string]any{
		"keys": []map[string]any{{
			"kty": "RSA",
			"kid": "kid-1",
			"n":   base64RawURL(pub.N.Bytes()),
			"e":   base64RawURL(big.NewInt(int64(pub.E)).Bytes()),
		}},
	}
	raw, _ := json.Marshal(payload)
	keys, err = parseCertsPayload(raw, slog.Default())
	if err != nil {
		t.Fatalf("parse jwks: %v", err)
	}
	if _, ok := keys["kid-1"]; !ok {
		t.Fatalf("expected kid-1 key")
	}
}

func base64RawURL(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

func TestStaticVerifier(t *testing.T) {
	verifier := NewStaticVerifier()
	verifier.Register("tok-1", Identity{UserID: "user-1"})

	identity, err := verifier.Verify(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if identity.UserID != "user-1" {
		t.Fatalf("unexpected user id: %s", identity.UserID)
	}

	if _, err := verifier.Verify(context.Background(), "nope"); err == nil {
		t.Fatalf("expected error for unknown token")
	}
}
