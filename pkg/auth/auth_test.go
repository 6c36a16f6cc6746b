package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// fakeUsers accepts exactly one username/password pair.
type fakeUsers struct {
	username, password string
}

func (f fakeUsers) VerifyUser(_ context.Context, username, password string) error {
	if username != f.username || password != f.password {
		return errors.New("invalid credentials")
	}
	return nil
}

// TestJWTTokenGeneration tests JWT token creation and validation
func TestJWTTokenGeneration(t *testing.T) {
	token, err := GenerateToken("alice")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	if token == "" {
		t.Error("Generated token should not be empty")
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}
	if claims.Username != "alice" {
		t.Errorf("Expected username alice, got %s", claims.Username)
	}
	if claims.SessionID == "" || claims.SessionID != claims.ID {
		t.Errorf("Session ID %q should be set and equal the token id %q", claims.SessionID, claims.ID)
	}

	other, err := GenerateToken("alice")
	if err != nil {
		t.Fatal(err)
	}
	otherClaims, _ := ValidateToken(other)
	if otherClaims != nil && otherClaims.SessionID == claims.SessionID {
		t.Error("Session IDs should be unique")
	}
}

// TestJWTTokenExpiration tests that expired tokens are rejected
func TestJWTTokenExpiration(t *testing.T) {
	expiredClaims := Claims{
		SessionID: "expired-session",
		Username:  "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-1 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			NotBefore: jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			Issuer:    tokenIssuer,
			Subject:   "alice",
		},
	}
	expiredToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, expiredClaims).SignedString([]byte(getJWTSecret()))
	if err != nil {
		t.Fatalf("Failed to create expired token: %v", err)
	}
	if _, err := ValidateToken(expiredToken); err == nil {
		t.Error("Expired token should be rejected")
	}
}

// TestTokenWithWrongSecret tests that a token signed with another key fails
func TestTokenWithWrongSecret(t *testing.T) {
	claims := Claims{
		Username: "mallory",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Issuer:    tokenIssuer,
		},
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("some-other-secret"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ValidateToken(forged); err == nil {
		t.Error("Token signed with a foreign secret should be rejected")
	}
}

// TestInvalidToken tests validation of malformed tokens
func TestInvalidToken(t *testing.T) {
	testCases := []string{
		"",
		"invalid.token.here",
		"eyJ0eXAiOiJKV1QiLCJhbGciOiJIUzI1NiJ9",
	}
	for _, token := range testCases {
		if _, err := ValidateToken(token); err == nil {
			t.Errorf("Token %q should be invalid", token)
		}
	}
}

// TestLoginHandler tests the login endpoint
func TestLoginHandler(t *testing.T) {
	handler := HandleLogin(fakeUsers{username: "alice", password: "wonderland"})

	reqBody, _ := json.Marshal(LoginRequest{Username: "alice", Password: "wonderland"})
	req := httptest.NewRequest("POST", "/api/login", bytes.NewBuffer(reqBody))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response LoginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if !response.Success || response.Token == "" {
		t.Fatalf("Unexpected response %+v", response)
	}

	claims, err := ValidateToken(response.Token)
	if err != nil {
		t.Fatalf("Generated token should be valid: %v", err)
	}
	if claims.Username != "alice" {
		t.Errorf("Token should name alice, got %s", claims.Username)
	}
}

// TestLoginHandlerInvalidRequest tests login with invalid requests
func TestLoginHandlerInvalidRequest(t *testing.T) {
	handler := HandleLogin(fakeUsers{username: "alice", password: "wonderland"})

	testCases := []struct {
		name         string
		method       string
		requestBody  string
		expectedCode int
	}{
		{"Empty request body", "POST", "", http.StatusBadRequest},
		{"Invalid JSON", "POST", "invalid json", http.StatusBadRequest},
		{"Missing password", "POST", `{"username":"alice"}`, http.StatusBadRequest},
		{"Wrong password", "POST", `{"username":"alice","password":"nope"}`, http.StatusUnauthorized},
		{"Unknown user", "POST", `{"username":"bob","password":"wonderland"}`, http.StatusUnauthorized},
		{"Wrong method", "GET", "", http.StatusMethodNotAllowed},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/api/login", bytes.NewBufferString(tc.requestBody))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			handler(w, req)

			if w.Code != tc.expectedCode {
				t.Errorf("Expected status %d, got %d", tc.expectedCode, w.Code)
			}
		})
	}
}

// TestRequireToken tests the middleware with and without tokens
func TestRequireToken(t *testing.T) {
	token, err := GenerateToken("alice")
	if err != nil {
		t.Fatal(err)
	}

	var seen *Claims
	handler := RequireToken(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClaimsFromContext(r.Context())
		if SessionIDFromContext(r.Context()) == "" {
			t.Error("Session ID missing from context")
		}
		w.WriteHeader(http.StatusNoContent)
	})

	testCases := []struct {
		name         string
		header       string
		query        string
		expectedCode int
	}{
		{"Bearer header", "Bearer " + token, "", http.StatusNoContent},
		{"Query parameter", "", "?token=" + token, http.StatusNoContent},
		{"No token", "", "", http.StatusUnauthorized},
		{"Invalid token", "Bearer invalid.token.here", "", http.StatusUnauthorized},
		{"Malformed header", "Token " + token, "", http.StatusUnauthorized},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest("GET", "/api/programs"+tc.query, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			handler(w, req)

			if w.Code != tc.expectedCode {
				t.Errorf("Expected status %d, got %d", tc.expectedCode, w.Code)
			}
			if tc.expectedCode == http.StatusNoContent && (seen == nil || seen.Username != "alice") {
				t.Errorf("Handler saw claims %+v", seen)
			}
		})
	}
}

// TestExtractTokenFromRequest tests token extraction from different sources
func TestExtractTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", "abc"))
	if token, err := ExtractTokenFromRequest(req); err != nil || token != "abc" {
		t.Errorf("Header: got %q, %v", token, err)
	}

	req = httptest.NewRequest("GET", "/test?token=xyz", nil)
	if token, err := ExtractTokenFromRequest(req); err != nil || token != "xyz" {
		t.Errorf("Query: got %q, %v", token, err)
	}

	req = httptest.NewRequest("GET", "/test", nil)
	token, err := ExtractTokenFromRequest(req)
	if !errors.Is(err, ErrNoToken) {
		t.Errorf("Expected ErrNoToken, got %v", err)
	}
	if token != "" {
		t.Errorf("Expected empty token, got %s", token)
	}
}

// BenchmarkTokenValidation benchmarks token validation performance
func BenchmarkTokenValidation(b *testing.B) {
	token, err := GenerateToken("benchmark")
	if err != nil {
		b.Fatalf("Failed to generate token: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ValidateToken(token); err != nil {
			b.Fatalf("Failed to validate token: %v", err)
		}
	}
}
