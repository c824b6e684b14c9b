package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidToken covers malformed tokens and signature mismatches.
	ErrInvalidToken = errors.New("invalid download token")
	// ErrTokenExpired is returned for well-formed tokens past their expiry.
	ErrTokenExpired = errors.New("download token expired")
)

const tokenSeparator = "."

// DownloadClaims is the content of a verified download token.
type DownloadClaims struct {
	JobID     string
	Path      string
	ExpiresAt time.Time
}

// SignedURLSigner mints and verifies opaque download tokens of the form
// jobID.expiryUnix.base64url(path).base64url(hmac-sha256).
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewSignedURLSigner constructs a signer. A non-positive ttl means 24h.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl}
}

// Generate returns a token for the export job's stored file.
func (s *SignedURLSigner) Generate(jobID, relPath string) (string, time.Time, error) {
	if jobID == "" || relPath == "" || strings.Contains(jobID, tokenSeparator) {
		return "", time.Time{}, errors.New("signed url: job id and path required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, errors.New("signed url: secret missing")
	}
	expiresAt := time.Now().Add(s.ttl).Truncate(time.Second)
	body := strings.Join([]string{
		jobID,
		strconv.FormatInt(expiresAt.Unix(), 10),
		base64.RawURLEncoding.EncodeToString([]byte(relPath)),
	}, tokenSeparator)
	return body + tokenSeparator + s.sign(body), expiresAt, nil
}

// Parse verifies the signature and expiry. allowExpired skips the expiry check so that
// cleanup can still locate files behind stale tokens.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (DownloadClaims, error) {
	cut := strings.LastIndex(token, tokenSeparator)
	if cut <= 0 || len(s.secret) == 0 {
		return DownloadClaims{}, ErrInvalidToken
	}
	body, signature := token[:cut], token[cut+1:]
	if !hmac.Equal([]byte(s.sign(body)), []byte(signature)) {
		return DownloadClaims{}, ErrInvalidToken
	}

	parts := strings.Split(body, tokenSeparator)
	if len(parts) != 3 {
		return DownloadClaims{}, ErrInvalidToken
	}
	expUnix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return DownloadClaims{}, ErrInvalidToken
	}
	path, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return DownloadClaims{}, ErrInvalidToken
	}

	claims := DownloadClaims{JobID: parts[0], Path: string(path), ExpiresAt: time.Unix(expUnix, 0)}
	if !allowExpired && time.Now().After(claims.ExpiresAt) {
		return claims, ErrTokenExpired
	}
	return claims, nil
}

func (s *SignedURLSigner) sign(body string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(body))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
