package uplink

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// #region signer

// Signer computes the per-request HMAC-SHA256 authentication material.
// The canonical signing string is
//
//	METHOD\nPATH\nTENANT\nTIMESTAMP\nNONCE\nBODY_SHA256
//
// keyed with the pre-shared per-tenant secret. Nonce and timestamp are
// regenerated on every attempt so a stale signature can never be
// replayed.
type Signer struct {
	tenant string
	secret []byte
}

// NewSigner creates a signer for the tenant's pre-shared secret.
func NewSigner(tenant string, secret []byte) *Signer {
	return &Signer{tenant: tenant, secret: secret}
}

// Tenant returns the tenant identifier carried in request headers.
func (s *Signer) Tenant() string {
	return s.tenant
}

// #endregion signer

// #region nonce

// NewNonce returns a fresh random nonce: a UUID plus 8 random bytes, so
// uniqueness holds even if the UUID source misbehaves.
func NewNonce() string {
	extra := make([]byte, 8)
	rand.Read(extra)
	return uuid.New().String() + "-" + hex.EncodeToString(extra)
}

// #endregion nonce

// #region compute

// ComputeSignature derives the hex HMAC-SHA256 over the canonical signing
// string. Deterministic for identical inputs.
func (s *Signer) ComputeSignature(method, path string, timestamp int64, nonce string, body []byte) string {
	bodySum := sha256.Sum256(body)
	canonical := strings.Join([]string{
		method,
		path,
		s.tenant,
		strconv.FormatInt(timestamp, 10),
		nonce,
		hex.EncodeToString(bodySum[:]),
	}, "\n")

	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

// #endregion compute

// #region headers

// Headers builds the authentication headers for one attempt with a fresh
// nonce and the current timestamp.
func (s *Signer) Headers(method, path string, body []byte, now time.Time) map[string]string {
	nonce := NewNonce()
	ts := now.Unix()
	return map[string]string{
		"X-Tenant-Id": s.tenant,
		"X-Signature": s.ComputeSignature(method, path, ts, nonce, body),
		"X-Nonce":     nonce,
		"X-Timestamp": fmt.Sprintf("%d", ts),
	}
}

// #endregion headers
