package api

import (
	"crypto/subtle"
	"log"
	"net/http"
	"strings"

	"github.com/lumenplay/StoryEngine/internal/config"
)

// operatorToken guards the mutating operator endpoints. Read-only endpoints
// stay open; the operator booth is on a trusted network but show control
// should still not be one curl away for anyone on it.
var operatorToken string

// InitAuth loads the operator token from STORY_OPERATOR_TOKEN (or the *_FILE
// variant). An empty token disables authentication, which is the dev setup.
func InitAuth() {
	token, err := config.ResolveSecret("STORY_OPERATOR_TOKEN")
	if err != nil {
		log.Fatalf("failed to resolve STORY_OPERATOR_TOKEN: %v", err)
	}
	operatorToken = token
}

// SetOperatorTokenForTest overrides the token directly.
func SetOperatorTokenForTest(token string) {
	operatorToken = token
}

func authorized(r *http.Request) bool {
	if operatorToken == "" {
		return true
	}
	header := r.Header.Get("Authorization")
	bearer, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(bearer), []byte(operatorToken)) == 1
}

// RequireOperator wraps a handler behind the operator token.
func RequireOperator(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		handler(w, r)
	}
}
