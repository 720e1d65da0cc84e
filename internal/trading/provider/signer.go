package tradingprovider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"sync"
)

// Signer produces hex-encoded HMAC-SHA256 signatures over canonical query
// strings. Mac construction is comparatively expensive, so instances are
// pooled and reset between uses instead of being rebuilt per request. Pooled
// and per-call construction produce byte-identical signatures.
type Signer struct {
	pool sync.Pool
}

// NewSigner creates a signer for the given API secret.
func NewSigner(secret string) *Signer {
	key := []byte(secret)

	return &Signer{
		pool: sync.Pool{
			New: func() any {
				return hmac.New(sha256.New, key)
			},
		},
	}
}

// Sign returns the hex signature of payload.
func (s *Signer) Sign(payload string) string {
	mac, _ := s.pool.Get().(hash.Hash)
	defer s.pool.Put(mac)

	mac.Reset()
	mac.Write([]byte(payload))

	return hex.EncodeToString(mac.Sum(nil))
}
