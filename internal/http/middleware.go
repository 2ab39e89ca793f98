package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fjod/butchershop/internal/auth"
	"github.com/fjod/butchershop/internal/domain"
	profilesrepo "github.com/fjod/butchershop/internal/profiles/repository"
	"github.com/fjod/butchershop/pkg/logger"
)

const (
	sessionCookie    = "session_token"
	cartCookie       = "cart_session"
	cartCookieMaxAge = 365 * 24 * 60 * 60
)

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = middleware.GetReqID(r.Context())
		}
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := logger.WithRequestID(r.Context(), requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken reads the session token from the Authorization header, falling back to the
// session cookie for browser clients and websocket upgrades.
func bearerToken(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.Fields(h)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return "", auth.ErrInvalidToken
		}
		return parts[1], nil
	}
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value, nil
	}
	return "", nil
}

// AuthMiddleware attaches the claims of a valid session token. Requests without a token pass
// through anonymous; a present but bad token is rejected.
func AuthMiddleware(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				respondUnauthenticated(w, "invalid authorization header")
				return
			}
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := authn.Authenticate(r.Context(), token)
			if err != nil {
				if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrRevokedToken) {
					respondUnauthenticated(w, "session expired, sign in again")
					return
				}
				respondError(w, http.StatusServiceUnavailable, "service_unavailable", "could not verify session")
				return
			}
			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claimsFromContext(r.Context()) == nil {
			respondUnauthenticated(w, "missing user authentication")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin lets through users whose profile has the admin role or whose email is configured
// as an admin. Must run after RequireAuth.
func RequireAdmin(profiles profilesrepo.ProfileRepository, isAdminEmail func(string) bool, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := identityFromContext(r.Context())
			if id == nil {
				respondUnauthenticated(w, "missing user authentication")
				return
			}
			if isAdminEmail != nil && isAdminEmail(id.Email) {
				next.ServeHTTP(w, r)
				return
			}
			profile, err := profiles.GetProfile(r.Context(), id.UserID)
			if err != nil && !errors.Is(err, profilesrepo.ErrProfileNotFound) {
				handleServiceError(w, r, log, err)
				return
			}
			if !profile.IsAdmin() {
				respondError(w, http.StatusForbidden, "permission_denied", "admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CartSessionMiddleware makes sure every browsing client carries a cart session cookie.
func CartSessionMiddleware(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(cartCookie); err == nil {
				if _, perr := uuid.Parse(c.Value); perr == nil {
					id = c.Value
				}
			}
			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     cartCookie,
					Value:    id,
					Path:     "/",
					MaxAge:   cartCookieMaxAge,
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(withCartSession(r.Context(), id)))
		})
	}
}

type ipLimiter struct {
	limiter *rate.Limiter
	last    time.Time
}

// RateLimiter throttles requests per client IP.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	idle  time.Duration

	mu       sync.Mutex
	limiters map[string]*ipLimiter
	swept    time.Time
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		idle:     30 * time.Minute,
		limiters: make(map[string]*ipLimiter),
		swept:    time.Now(),
	}
}

func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.swept) > 5*time.Minute {
		for k, l := range rl.limiters {
			if now.Sub(l.last) > rl.idle {
				delete(rl.limiters, k)
			}
		}
		rl.swept = now
	}

	l, ok := rl.limiters[ip]
	if !ok {
		l = &ipLimiter{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.limiters[ip] = l
	}
	l.last = now
	return l.limiter.Allow()
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(remoteIP(r)) {
			respondError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "too many attempts, try again shortly")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func remoteIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// withTimeout is the per-handler deadline used for downstream calls.
func withTimeout(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), d)
}

// loadProfile returns the caller's profile, nil when none was saved yet.
func loadProfile(ctx context.Context, profiles profilesrepo.ProfileRepository, userID string) (*domain.Profile, error) {
	p, err := profiles.GetProfile(ctx, userID)
	if errors.Is(err, profilesrepo.ErrProfileNotFound) {
		return nil, nil
	}
	return p, err
}
