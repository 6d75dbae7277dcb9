package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func sign(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

func TestValidSignature(t *testing.T) {
	payload := []byte(`{"event":"message_received"}`)
	good := sign("s3cret", string(payload))

	if !ValidSignature([]byte("s3cret"), payload, good) {
		t.Fatalf("expected signature to validate")
	}
	for name, header := range map[string]string{
		"empty":      "",
		"no prefix":  strings.TrimPrefix(good, signaturePrefix),
		"bad hex":    signaturePrefix + "zz",
		"wrong key":  sign("other", string(payload)),
		"wrong body": sign("s3cret", "{}"),
	} {
		if ValidSignature([]byte("s3cret"), payload, header) {
			t.Fatalf("%s: expected signature to be rejected", name)
		}
	}
}

func TestWebhookSignatureMiddleware(t *testing.T) {
	const body = `{"event":"message_received"}`
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		seen = string(b)
		w.WriteHeader(http.StatusOK)
	})

	send := func(secret, header string) int {
		seen = ""
		req := httptest.NewRequest(http.MethodPost, "/webhook/1", strings.NewReader(body))
		if header != "" {
			req.Header.Set(SignatureHeader, header)
		}
		rec := httptest.NewRecorder()
		WebhookSignature(secret, nil)(next).ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("", ""); code != http.StatusOK || seen != body {
		t.Fatalf("expected pass-through without secret, got %d", code)
	}
	if code := send("s3cret", ""); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing signature, got %d", code)
	}
	if code := send("s3cret", sign("s3cret", body)); code != http.StatusOK {
		t.Fatalf("expected 200 for valid signature, got %d", code)
	}
	if seen != body {
		t.Fatalf("expected body to be replayed to the handler, got %q", seen)
	}
}
