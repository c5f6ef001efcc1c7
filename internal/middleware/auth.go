package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/AlexIndustrial/latebot/pkg/errors"
	"github.com/AlexIndustrial/latebot/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ContextKey represents keys used in request context
type ContextKey string

const (
	// AdminSubjectContextKey holds the authenticated admin subject
	AdminSubjectContextKey ContextKey = "admin_subject"
	// RequestIDContextKey is the key for request ID in context
	RequestIDContextKey ContextKey = "request_id"
)

// AdminAuth guards the admin stats API with an HMAC-signed JWT. The token
// comes in as "Authorization: Bearer <token>" and must be signed with the
// shared secret.
func AdminAuth(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeErrorResponse(w, apperrors.NewAuthenticationError("Authorization header is required"), log)
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeErrorResponse(w, apperrors.NewAuthenticationError("Invalid authorization header format"), log)
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == "" {
				writeErrorResponse(w, apperrors.NewAuthenticationError("Token is required"), log)
				return
			}

			claims := &jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, apperrors.NewAuthenticationError("Unexpected signing method")
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				log.WithError(err).Warn("Admin token validation failed")
				writeErrorResponse(w, apperrors.NewAuthenticationError("Invalid or expired token"), log)
				return
			}

			ctx := context.WithValue(r.Context(), AdminSubjectContextKey, claims.Subject)
			log.WithField("subject", claims.Subject).Debug("Admin authenticated")

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WebhookSecret verifies the X-Telegram-Bot-Api-Secret-Token header Telegram
// attaches when the webhook was registered with a secret. An empty configured
// secret disables the check.
func WebhookSecret(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret != "" && r.Header.Get("X-Telegram-Bot-Api-Secret-Token") != secret {
				log.Warn("Webhook request with wrong secret token")
				w.WriteHeader(http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestID tags each request with a unique ID for log correlation
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := uuid.NewString()

			ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
			w.Header().Set("X-Request-ID", requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeErrorResponse writes an AppError as the standard JSON error envelope
func writeErrorResponse(w http.ResponseWriter, appErr *apperrors.AppError, log *logger.Logger) {
	log.WithError(appErr).Debug("Request rejected")

	response := &apperrors.ErrorResponse{}
	response.Error.Type = appErr.Type
	response.Error.Message = appErr.Message
	response.Error.Details = appErr.Details
	response.Error.Timestamp = time.Now().UTC().Format(time.RFC3339)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.WithError(err).Error("Failed to encode error response")
	}
}
