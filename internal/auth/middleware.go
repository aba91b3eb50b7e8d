package auth

import (
	"errors"
	"net/http"
	"strings"

	"eventhub/internal/models"
	"eventhub/internal/utils"

	"github.com/golang-jwt/jwt/v5"
)

// ExtractTokenFromRequest pulls the bearer token out of the Authorization
// header.
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header is missing")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("authorization header format must be 'Bearer {token}'")
	}

	return parts[1], nil
}

// ParseActor verifies a platform-issued HS256 token and extracts the actor
// identity claims.
func ParseActor(tokenString, secret string) (Actor, error) {
	if tokenString == "" {
		return Actor{}, errors.New("empty token")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return Actor{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Actor{}, errors.New("invalid token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return Actor{}, errors.New("subject claim not found in token")
	}

	role, _ := claims["role"].(string)
	companyID, _ := claims["company_id"].(string)

	return Actor{
		ID:        sub,
		Role:      models.Role(role),
		CompanyID: companyID,
	}, nil
}

// Middleware authenticates requests and places the Actor into the request
// context. Every protected route group wraps with this.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := ExtractTokenFromRequest(r)
			if err != nil {
				utils.WriteErrorMessage(w, http.StatusUnauthorized, err.Error())
				return
			}

			actor, err := ParseActor(token, secret)
			if err != nil {
				utils.WriteErrorMessage(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}
