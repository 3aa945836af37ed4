package jwt

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

const testSecret = "test-secret"

func TestCreateAndValidate(t *testing.T) {
	claims := Claims{
		Issuer:         "beanvault",
		Subject:        "user0",
		Audience:       "beanvault",
		ExpirationTime: fmt.Sprint(time.Now().Add(time.Hour).Unix()),
		IssuedAt:       fmt.Sprint(time.Now().Unix()),
		JWTID:          "token0",
	}

	token, err := Create(claims, testSecret)
	if err != nil {
		t.Fatal(err)
	}

	header, parsed, err := Validate(token, testSecret)
	if err != nil {
		t.Fatal(err)
	}
	if header.Algorithm != "HS256" {
		t.Errorf("unexpected algorithm: %s", header.Algorithm)
	}
	if parsed.Subject != "user0" || parsed.Audience != "beanvault" {
		t.Errorf("claims mismatch: %+v", parsed)
	}
}

func TestValidateWrongSecret(t *testing.T) {
	token, err := Create(Claims{Subject: "user0"}, testSecret)
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err := Validate(token, "other-secret"); err == nil {
		t.Fatal("expected signature check to fail")
	}
}

func TestValidateTampered(t *testing.T) {
	token, err := Create(Claims{Subject: "user0"}, testSecret)
	if err != nil {
		t.Fatal(err)
	}

	parts := strings.Split(token, ".")
	forged, err := Create(Claims{Subject: "admin"}, testSecret)
	if err != nil {
		t.Fatal(err)
	}
	forgedParts := strings.Split(forged, ".")

	tampered := parts[0] + "." + forgedParts[1] + "." + parts[2]
	if _, _, err := Validate(tampered, testSecret); err == nil {
		t.Fatal("expected tampered payload to be rejected")
	}
}

func TestValidateExpired(t *testing.T) {
	claims := Claims{
		Subject:        "user0",
		ExpirationTime: fmt.Sprint(time.Now().Add(-time.Minute).Unix()),
	}
	token, err := Create(claims, testSecret)
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err := Validate(token, testSecret); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestValidateMalformed(t *testing.T) {
	if _, _, err := Validate("definitely-not-a-jwt", testSecret); err == nil {
		t.Fatal("expected malformed token to be rejected")
	}
}
