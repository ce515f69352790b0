package security

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestCheckoutTokenRoundTrip(t *testing.T) {
	token, err := GenerateCheckoutToken("ord-abc123", time.Minute, "s3cret")
	if err != nil {
		t.Fatalf("GenerateCheckoutToken returned error: %v", err)
	}

	claims, err := VerifyCheckoutToken(token, "s3cret")
	if err != nil {
		t.Fatalf("VerifyCheckoutToken returned error: %v", err)
	}
	if claims.OrderRef != "ord-abc123" {
		t.Errorf("order ref = %q", claims.OrderRef)
	}
}

func TestCheckoutTokenExpired(t *testing.T) {
	token, err := GenerateCheckoutToken("ord-abc123", -time.Minute, "s3cret")
	if err != nil {
		t.Fatalf("GenerateCheckoutToken returned error: %v", err)
	}
	if _, err := VerifyCheckoutToken(token, "s3cret"); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestCheckoutTokenWrongSecret(t *testing.T) {
	token, _ := GenerateCheckoutToken("ord-abc123", time.Minute, "s3cret")
	if _, err := VerifyCheckoutToken(token, "other"); err == nil {
		t.Fatal("expected token signed with another secret to be rejected")
	}
}

func TestCheckoutTokenTamperedPayload(t *testing.T) {
	token, _ := GenerateCheckoutToken("ord-abc123", time.Minute, "s3cret")
	parts := strings.SplitN(token, ".", 2)

	forged, _ := json.Marshal(CheckoutTokenClaims{OrderRef: "ord-other", ExpiresAt: time.Now().Add(time.Hour).Unix()})
	tampered := base64.RawURLEncoding.EncodeToString(forged) + "." + parts[1]

	if _, err := VerifyCheckoutToken(tampered, "s3cret"); err == nil {
		t.Fatal("expected tampered payload to be rejected")
	}
}

func TestCheckoutTokenMalformed(t *testing.T) {
	for _, token := range []string{"", "no-dot", "!!!.!!!", "Zm9v."} {
		if _, err := VerifyCheckoutToken(token, "s3cret"); err == nil {
			t.Errorf("expected malformed token %q to be rejected", token)
		}
	}
}

func TestCheckoutTokenRequiresInputs(t *testing.T) {
	if _, err := GenerateCheckoutToken("ord-abc123", time.Minute, ""); err == nil {
		t.Error("expected error without a secret")
	}
	if _, err := GenerateCheckoutToken("", time.Minute, "s3cret"); err == nil {
		t.Error("expected error without an order ref")
	}
	if _, err := VerifyCheckoutToken("x.y", ""); err == nil {
		t.Error("expected error verifying without a secret")
	}
}
