package billing

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"hash"
	"strings"
)

// VerifyIPNSignature checks the x-nowpayments-sig header against the raw
// callback body. The gateway signs the payload re-serialized with its
// top-level keys in ascending order, HMAC-SHA512 with the IPN secret, hex
// encoded. Every failure mode (missing secret or header, malformed body,
// bad hex, mismatch) yields false; the verifier never errors out.
func VerifyIPNSignature(payload []byte, signatureHeader, ipnSecret string) bool {
	sig := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(ipnSecret)
	if sig == "" || secret == "" {
		return false
	}

	decodedSig, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}

	canonical, ok := canonicalizeIPNBody(payload)
	if !ok {
		return false
	}

	return verifyHMAC(canonical, decodedSig, []byte(secret), sha512.New)
}

// canonicalizeIPNBody re-marshals the body with sorted top-level keys.
// encoding/json emits map keys in ascending order, which matches the
// gateway's sorted-key serialization. Nested values keep their original
// bytes; only the top level is reordered. HTML escaping is off because the
// gateway does not escape &, < or > when it signs.
func canonicalizeIPNBody(payload []byte) ([]byte, bool) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, false
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, false
	}
	// Encode terminates with a newline that is not part of the signed form.
	return bytes.TrimRight(buf.Bytes(), "\n"), true
}

func verifyHMAC(payload, expectedSig, secret []byte, hashFunc func() hash.Hash) bool {
	mac := hmac.New(hashFunc, secret)
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), expectedSig)
}
