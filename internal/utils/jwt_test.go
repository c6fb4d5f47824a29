package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	at, err := NewAccessToken("secret", "system@ailabben.no", 15)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if time.Until(at.Exp) <= 0 {
		t.Fatal("expiry should be in the future")
	}
	email, err := ParseAccessToken("secret", at.Token)
	if err != nil || email != "system@ailabben.no" {
		t.Fatalf("parse: %q %v", email, err)
	}
	if _, err := ParseAccessToken("other", at.Token); err == nil {
		t.Fatal("token signed with another secret must be rejected")
	}
}

func TestParseAccessTokenRejectsExpiredAndAlgNone(t *testing.T) {
	expired, err := NewAccessToken("secret", "system@ailabben.no", -1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseAccessToken("secret", expired.Token); err == nil {
		t.Fatal("expired token accepted")
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"email": "x@y.z", "exp": time.Now().Add(time.Hour).Unix()})
	raw, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseAccessToken("secret", raw); err == nil {
		t.Fatal("alg=none token accepted")
	}
}

func TestNewOpaqueToken(t *testing.T) {
	a, err := NewOpaqueToken(32)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := NewOpaqueToken(32)
	if len(a) != 64 || a == b {
		t.Fatalf("unexpected tokens %q %q", a, b)
	}
	if ShortToken(a) != a[:8]+"..." || ShortToken("abc") != "abc" {
		t.Fatal("ShortToken truncation")
	}
}
