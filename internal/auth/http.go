package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ProductStore/pkg/kit"
)

const (
	maxBodyBytes = 1 << 20

	tokenLimitPerMin = 5
	limitWindow      = 60 * time.Second
)

type Server struct {
	Log   *zap.Logger
	Admin Admin
	JWT   *TokenMaker
	TTL   time.Duration
}

// Mount registers the token endpoint on r.
func (s *Server) Mount(r chi.Router) {
	limiter := kit.NewIPRateLimiter(tokenLimitPerMin, limitWindow)

	r.Route("/auth", func(rr chi.Router) {
		rr.With(limiter.Middleware).Post("/token", s.handleToken)
		rr.Get("/whoami", s.handleWhoAmI)
	})
}

type tokenReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResp struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req tokenReq
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Password) == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "email/password required", nil)
		return
	}

	if err := s.Admin.Verify(req.Email, req.Password); err != nil {
		kit.WriteError(w, r, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}

	ttl := s.TTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	tok, err := s.JWT.New(s.Admin.Email, RoleAdmin, ttl)
	if err != nil {
		if s.Log != nil {
			s.Log.Error("token issue", zap.Error(err))
		}
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	kit.WriteJSON(w, http.StatusOK, tokenResp{AccessToken: tok, ExpiresIn: int64(ttl.Seconds())})
}

func (s *Server) handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	claims, ok := bearerClaims(w, r, s.JWT)
	if !ok {
		return
	}

	kit.WriteJSON(w, http.StatusOK, map[string]any{
		"email": claims.Email,
		"role":  claims.Role,
	})
}

type ctxKey string

const claimsKey ctxKey = "claims"

func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(claimsKey).(Claims)
	return c, ok
}

// Guard protects catalog writes. Only admin tokens issued to the configured
// admin pass. Without a configured admin every request is refused.
func (s *Server) Guard() func(http.Handler) http.Handler {
	requireAdmin := RequireRole(s.JWT, RoleAdmin)

	return func(next http.Handler) http.Handler {
		if !s.Admin.Enabled() {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				kit.WriteError(w, r, http.StatusForbidden, "catalog changes are disabled", nil)
			})
		}

		return requireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, _ := ClaimsFromContext(r.Context())
			if normalizeEmail(claims.Email) != s.Admin.Email {
				kit.WriteError(w, r, http.StatusForbidden, "forbidden", nil)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

// RequireRole rejects requests without a valid bearer token carrying role.
func RequireRole(tm *TokenMaker, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := bearerClaims(w, r, tm)
			if !ok {
				return
			}
			if claims.Role != role {
				kit.WriteError(w, r, http.StatusForbidden, "forbidden", nil)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerClaims(w http.ResponseWriter, r *http.Request, tm *TokenMaker) (Claims, bool) {
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		kit.WriteError(w, r, http.StatusUnauthorized, "missing token", nil)
		return Claims{}, false
	}

	claims, err := tm.Parse(strings.TrimPrefix(authz, "Bearer "))
	if err != nil {
		kit.WriteError(w, r, http.StatusUnauthorized, "invalid token", nil)
		return Claims{}, false
	}
	return claims, true
}
