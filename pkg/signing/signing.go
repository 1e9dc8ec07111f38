package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Signer produces and verifies time-limited download tokens for digital
// assets. Tokens are HMAC-SHA256 over "<resource>|<expiry-unix>" so a token
// grants access to exactly one resource until its expiry.
type Signer struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

var (
	ErrTokenExpired = errors.New("download token expired")
	ErrTokenInvalid = errors.New("download token invalid")
)

// New builds a Signer. expiry bounds how long issued tokens stay valid.
func New(secret string, expiry time.Duration) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("signing secret is required")
	}
	if expiry <= 0 {
		return nil, errors.New("expiry must be positive")
	}
	return &Signer{
		secret: []byte(secret),
		expiry: expiry,
		now:    time.Now,
	}, nil
}

// Sign returns an opaque token plus its expiry for the given resource id.
func (s *Signer) Sign(resource string) (string, time.Time, error) {
	if resource == "" {
		return "", time.Time{}, errors.New("resource is required")
	}
	expiresAt := s.now().Add(s.expiry).UTC()
	sig := s.signature(resource, expiresAt.Unix())
	token := fmt.Sprintf("%d.%s", expiresAt.Unix(), base64.RawURLEncoding.EncodeToString(sig))
	return token, expiresAt, nil
}

// Verify checks the token against the resource and the current time.
func (s *Signer) Verify(resource, token string) error {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return ErrTokenInvalid
	}
	expiryUnix, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return ErrTokenInvalid
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return ErrTokenInvalid
	}
	if !hmac.Equal(sig, s.signature(resource, expiryUnix)) {
		return ErrTokenInvalid
	}
	if s.now().UTC().After(time.Unix(expiryUnix, 0).UTC()) {
		return ErrTokenExpired
	}
	return nil
}

func (s *Signer) signature(resource string, expiryUnix int64) []byte {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s|%d", resource, expiryUnix)
	return mac.Sum(nil)
}
