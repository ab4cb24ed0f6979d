package upstream

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

// signer implements AWS signature version 4 for the Product Advertising
// API: canonical request -> string-to-sign -> derived signing key ->
// signature, attached via the Authorization header.
type signer struct {
	accessKey string
	secretKey string
	region    string
	service   string
}

const signingAlgorithm = "AWS4-HMAC-SHA256"

// sign computes the v4 signature over req and payload at time t and sets
// the Authorization header. X-Amz-Date must already be set to t.
func (s signer) sign(req *http.Request, payload []byte, t time.Time) {
	amzDate := t.UTC().Format("20060102T150405Z")
	dateStamp := t.UTC().Format("20060102")

	canonicalHeaders, signedHeaders := s.canonicalHeaders(req)
	payloadHash := hashHex(payload)

	canonicalRequest := strings.Join([]string{
		req.Method,
		req.URL.EscapedPath(),
		req.URL.RawQuery,
		canonicalHeaders,
		signedHeaders,
		payloadHash,
	}, "\n")

	credentialScope := fmt.Sprintf("%s/%s/%s/aws4_request", dateStamp, s.region, s.service)
	stringToSign := strings.Join([]string{
		signingAlgorithm,
		amzDate,
		credentialScope,
		hashHex([]byte(canonicalRequest)),
	}, "\n")

	signature := hex.EncodeToString(hmacSHA256(s.signingKey(dateStamp), stringToSign))

	req.Header.Set("Authorization", fmt.Sprintf(
		"%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		signingAlgorithm, s.accessKey, credentialScope, signedHeaders, signature,
	))
}

// signingKey derives the per-request key via the nested keyed-hash chain
// seeded from the secret credential.
func (s signer) signingKey(dateStamp string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+s.secretKey), dateStamp)
	kRegion := hmacSHA256(kDate, s.region)
	kService := hmacSHA256(kRegion, s.service)
	return hmacSHA256(kService, "aws4_request")
}

func (s signer) canonicalHeaders(req *http.Request) (canonical, signed string) {
	names := make([]string, 0, len(req.Header)+1)
	values := map[string]string{"host": req.Host}
	names = append(names, "host")

	for name, vals := range req.Header {
		lower := strings.ToLower(name)
		if lower == "authorization" || lower == "user-agent" {
			continue
		}
		names = append(names, lower)
		values[lower] = strings.TrimSpace(strings.Join(vals, ","))
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteString(":")
		b.WriteString(values[name])
		b.WriteString("\n")
	}
	return b.String(), strings.Join(names, ";")
}

func hmacSHA256(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return h.Sum(nil)
}

func hashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
