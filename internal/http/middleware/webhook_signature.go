package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/wolfman30/wpchat-gateway/pkg/logging"
)

const (
	SignatureHeader    = "X-Hub-Signature-256"
	signaturePrefix    = "sha256="
	maxSignedBodyBytes = 1 << 20
)

// WebhookSignature checks the provider's HMAC-SHA256 body signature when
// secret is set. With an empty secret requests pass through unchanged.
func WebhookSignature(secret string, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	key := []byte(secret)
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSignedBodyBytes))
			if err != nil {
				http.Error(w, "invalid request body", http.StatusBadRequest)
				return
			}
			if !ValidSignature(key, body, r.Header.Get(SignatureHeader)) {
				logger.Warn("webhook signature rejected", "path", r.URL.Path, "remote_ip", r.RemoteAddr)
				http.Error(w, "invalid signature", http.StatusUnauthorized)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}

// ValidSignature reports whether header is "sha256=<hex hmac of payload>".
func ValidSignature(key, payload []byte, header string) bool {
	header = strings.TrimSpace(header)
	if len(key) == 0 || !strings.HasPrefix(header, signaturePrefix) {
		return false
	}
	provided, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), provided)
}
