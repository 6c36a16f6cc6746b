package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/antibyte/linebasic/pkg/logger"
)

// Authenticator checks a username and password.
type Authenticator interface {
	VerifyUser(ctx context.Context, username, password string) error
}

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse answers a login.
type LoginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message"`
}

// HandleLogin returns a handler that trades valid credentials for a token.
func HandleLogin(users Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w, "POST, OPTIONS")
		w.Header().Set("Content-Type", "application/json")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != http.MethodPost {
			logger.AuthWarn("Invalid method for login: %s", r.Method)
			respondWithError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var loginReq LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&loginReq); err != nil {
			logger.AuthWarn("Invalid JSON in login request: %v", err)
			respondWithError(w, "Invalid request format", http.StatusBadRequest)
			return
		}
		if loginReq.Username == "" || loginReq.Password == "" {
			respondWithError(w, "Username and password required", http.StatusBadRequest)
			return
		}

		if err := users.VerifyUser(r.Context(), loginReq.Username, loginReq.Password); err != nil {
			logger.AuthWarn("Login failed for %s from %s: %v", loginReq.Username, getClientIP(r), err)
			respondWithError(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}

		token, err := GenerateToken(loginReq.Username)
		if err != nil {
			logger.Error(logger.AreaAuth, "Failed to generate token for %s: %v", loginReq.Username, err)
			respondWithError(w, "Failed to generate token", http.StatusInternalServerError)
			return
		}

		json.NewEncoder(w).Encode(LoginResponse{
			Success: true,
			Token:   token,
			Message: "Login successful",
		})
	}
}

func setCORSHeaders(w http.ResponseWriter, methods string) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods)
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
}

// getClientIP prefers proxy headers over RemoteAddr.
func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}

func respondWithError(w http.ResponseWriter, message string, statusCode int) {
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(LoginResponse{
		Success: false,
		Message: message,
	})
}
