package tradingprovider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func referenceSignature(secret string, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))

	return hex.EncodeToString(mac.Sum(nil))
}

func TestSigner_Sign(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		payload string
	}{
		{
			name:    "binance documentation example",
			secret:  "NhqPtmdSJYdKjVHjA7PZj4Mge3R5YNiP1e3UZjInClVN65XAbvqqM6A7H5fATj0j",
			payload: "symbol=LTCBTC&side=BUY&type=LIMIT&timeInForce=GTC&quantity=1&price=0.1&recvWindow=5000&timestamp=1499827319559",
		},
		{
			name:    "empty payload",
			secret:  "secret",
			payload: "",
		},
		{
			name:    "typical order query",
			secret:  "secret",
			payload: "quantity=0.5&side=SELL&symbol=BTCUSDT&timestamp=1700000000000&type=MARKET",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signer := NewSigner(tt.secret)

			// Pooled signing must be byte-identical to per-call
			// construction, including repeat use of the same mac.
			want := referenceSignature(tt.secret, tt.payload)
			assert.Equal(t, want, signer.Sign(tt.payload))
			assert.Equal(t, want, signer.Sign(tt.payload))
		})
	}
}

func TestSigner_ConcurrentUse(t *testing.T) {
	const payload = "symbol=BTCUSDT&timestamp=1700000000000"

	signer := NewSigner("secret")
	want := referenceSignature("secret", payload)

	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for range 100 {
				assert.Equal(t, want, signer.Sign(payload))
			}
		}()
	}

	wg.Wait()
}
