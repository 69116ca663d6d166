package utils

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func TestHashAndValidatePassword(t *testing.T) {
	hash, err := HashPassword("s3cret-password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "s3cret-password" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !ValidatePassword(hash, "s3cret-password") {
		t.Error("correct password should validate")
	}
	if ValidatePassword(hash, "wrong-password") {
		t.Error("wrong password should not validate")
	}
	if ValidatePassword("not-a-bcrypt-hash", "s3cret-password") {
		t.Error("garbage hash should not validate")
	}
}

func TestGenerateAndValidateJWT(t *testing.T) {
	tokenStr, err := GenerateJWT("user@example.com")
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	token, err := ValidateJWT(tokenStr)
	if err != nil {
		t.Fatalf("ValidateJWT: %v", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatal("expected map claims")
	}
	if claims["email"] != "user@example.com" {
		t.Errorf("email claim = %v", claims["email"])
	}
	if claims["type"] != "access" {
		t.Errorf("type claim = %v", claims["type"])
	}
}

func TestGenerateRefreshToken_CarriesSession(t *testing.T) {
	tokenStr, err := GenerateRefreshToken("user@example.com", "sess-42")
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}
	token, err := ValidateJWT(tokenStr)
	if err != nil {
		t.Fatalf("ValidateJWT: %v", err)
	}
	claims := token.Claims.(jwt.MapClaims)
	if claims["sessionId"] != "sess-42" {
		t.Errorf("sessionId claim = %v", claims["sessionId"])
	}
	if claims["type"] != "refresh" {
		t.Errorf("type claim = %v", claims["type"])
	}
}

func TestValidateJWT_RejectsGarbage(t *testing.T) {
	if _, err := ValidateJWT("not.a.token"); err == nil {
		t.Error("malformed token should be rejected")
	}
	if _, err := ValidateJWT(""); err == nil {
		t.Error("empty token should be rejected")
	}
}
