package auth

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/binary"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"

	"github.com/slidenote/server-go/internal/config"
)

// Identity 는 검증된 호출자 신원이다.
type Identity struct {
	UserID string
	Email  string
}

// TokenVerifier 는 bearer 토큰을 신원으로 바꾸는 능력이다.
// 미들웨어에는 구현이 아니라 이 능력이 주입된다.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

type idTokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// FirebaseVerifier 는 Firebase 스타일 RS256 ID 토큰 검증기다.
// 서명 키는 공개 인증서 엔드포인트에서 받아 캐싱하고, 키 회전으로
// kid 를 못 찾으면 1회 갱신 후 재시도한다.
type FirebaseVerifier struct {
	certsURL    string
	expectedIss string
	expectedAUD string

	cacheTTL   time.Duration
	httpClient *http.Client
	logger     *slog.Logger

	mu        sync.RWMutex
	keysByKID map[string]crypto.PublicKey
	expiresAt time.Time
}

type jwksResponse struct {
	Keys []jwkKey `json:"keys"`
}

type jwkKey struct {
	Kty string   `json:"kty"`
	Kid string   `json:"kid"`
	Use string   `json:"use"`
	Alg string   `json:"alg"`
	N   string   `json:"n"`
	E   string   `json:"e"`
	X5c []string `json:"x5c"`
}

func (k jwkKey) publicKey() (crypto.PublicKey, error) {
	if len(k.X5c) > 0 {
		der, err := base64.StdEncoding.DecodeString(k.X5c[0])
		if err != nil {
			return nil, fmt.Errorf("x5c decode failed: %w", err)
		}
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, fmt.Errorf("x5c parse failed: %w", err)
		}
		return cert.PublicKey, nil
	}

	if !strings.EqualFold(k.Kty, "RSA") {
		return nil, fmt.Errorf("unsupported kty: %s", k.Kty)
	}
	if k.N == "" || k.E == "" {
		return nil, errors.New("missing n/e")
	}

	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("n decode failed: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("e decode failed: %w", err)
	}

	if len(eBytes) == 0 || len(eBytes) > 8 {
		return nil, fmt.Errorf("invalid e length: %d", len(eBytes))
	}
	buf := make([]byte, 8)
	copy(buf[8-len(eBytes):], eBytes)
	eInt := binary.BigEndian.Uint64(buf)
	if eInt > uint64(^uint(0)) {
		return nil, fmt.Errorf("e overflow: %d", eInt)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(eInt),
	}, nil
}

// NewFirebaseVerifier 는 설정으로부터 검증기를 생성한다.
func NewFirebaseVerifier(cfg config.AuthConfig, logger *slog.Logger) (*FirebaseVerifier, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("auth project id is empty")
	}
	if strings.TrimSpace(cfg.CertsURL) == "" {
		return nil, errors.New("auth certs url is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &FirebaseVerifier{
		certsURL:    cfg.CertsURL,
		expectedIss: cfg.Issuer(),
		expectedAUD: cfg.ProjectID,
		cacheTTL:    10 * time.Minute,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:    logger,
		keysByKID: make(map[string]crypto.PublicKey),
	}, nil
}

// Verify 는 RS256 ID 토큰을 검증하고 신원을 반환한다.
func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("token is empty")
	}

	if err := v.ensureFreshKeys(ctx); err != nil {
		return nil, fmt.Errorf("load signing keys: %w", err)
	}

	claims, err := v.parseAndValidate(token)
	if err != nil {
		// 키 회전 등으로 kid가 바뀐 경우를 고려해 1회 갱신 후 재시도합니다.
		if refreshErr := v.refreshKeys(ctx); refreshErr == nil {
			claims, err = v.parseAndValidate(token)
		}
	}
	if err != nil {
		return nil, err
	}

	return &Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

func (v *FirebaseVerifier) parseAndValidate(tokenString string) (*idTokenClaims, error) {
	claims := &idTokenClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithAudience(v.expectedAUD),
		jwt.WithIssuer(v.expectedIss),
	)
	_, err := parser.ParseWithClaims(tokenString, claims, v.keyFunc)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, errors.New("sub claim is empty")
	}
	return claims, nil
}

func (v *FirebaseVerifier) keyFunc(token *jwt.Token) (any, error) {
	kid, _ := token.Header["kid"].(string)
	if kid == "" {
		return nil, errors.New("missing kid")
	}

	v.mu.RLock()
	key, ok := v.keysByKID[kid]
	v.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown kid: %s", kid)
	}
	return key, nil
}

func (v *FirebaseVerifier) ensureFreshKeys(ctx context.Context) error {
	v.mu.RLock()
	needsRefresh := len(v.keysByKID) == 0 || time.Now().After(v.expiresAt)
	v.mu.RUnlock()

	if !needsRefresh {
		return nil
	}
	return v.refreshKeys(ctx)
}

func (v *FirebaseVerifier) refreshKeys(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.certsURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("create certs request failed: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch certs failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			v.logger.Warn("auth_certs_resp_body_close_failed", "err", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return fmt.Errorf("fetch certs failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return fmt.Errorf("read certs failed: %w", err)
	}

	keys, err := parseCertsPayload(raw, v.logger)
	if err != nil {
		return err
	}

	v.mu.Lock()
	v.keysByKID = keys
	v.expiresAt = time.Now().Add(v.cacheTTL)
	v.mu.Unlock()

	v.logger.Info("auth_certs_refreshed", "keys", len(keys), "expires_in", v.cacheTTL)
	return nil
}

// parseCertsPayload 는 두 가지 배포 형식을 받아들인다.
// Google 공개 인증서 엔드포인트는 {kid: PEM} 맵을, 일반 JWKS 엔드포인트는
// {keys: [...]} 를 반환한다.
func parseCertsPayload(raw []byte, logger *slog.Logger) (map[string]crypto.PublicKey, error) {
	var pemByKID map[string]string
	if err := json.Unmarshal(raw, &pemByKID); err == nil && len(pemByKID) > 0 {
		keys := make(map[string]crypto.PublicKey, len(pemByKID))
		for kid, pemText := range pemByKID {
			pub, err := publicKeyFromPEM(pemText)
			if err != nil {
				logger.Warn("auth_cert_parse_failed", "kid", kid, "err", err)
				continue
			}
			keys[kid] = pub
		}
		if len(keys) == 0 {
			return nil, errors.New("no usable certificates")
		}
		return keys, nil
	}

	var jwks jwksResponse
	if err := json.Unmarshal(raw, &jwks); err != nil {
		return nil, fmt.Errorf("certs unmarshal failed: %w", err)
	}
	if len(jwks.Keys) == 0 {
		return nil, errors.New("jwks keys is empty")
	}

	keys := make(map[string]crypto.PublicKey, len(jwks.Keys))
	for _, key := range jwks.Keys {
		if key.Kid == "" {
			continue
		}
		pub, err := key.publicKey()
		if err != nil {
			logger.Warn("auth_jwks_key_parse_failed", "kid", key.Kid, "err", err)
			continue
		}
		keys[key.Kid] = pub
	}
	if len(keys) == 0 {
		return nil, errors.New("jwks usable keys is empty")
	}
	return keys, nil
}

func publicKeyFromPEM(pemText string) (crypto.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemText))
	if block == nil {
		return nil, errors.New("invalid pem block")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse certificate: %w", err)
	}
	return cert.PublicKey, nil
}
