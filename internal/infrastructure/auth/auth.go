package auth

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/quangtuanitmo18/qr-order-server/internal/config"
	"github.com/quangtuanitmo18/qr-order-server/internal/domain/account"
)

// actorContextKey is the gin context key carrying the authenticated actor.
const actorContextKey = "auth_actor"

// Validator validates JWTs using JWKS and resolves the calling account.
type Validator struct {
	cfg      *config.Config
	accounts account.Repository
	log      zerolog.Logger
	jwks     *keyfunc.JWKS
}

// NewValidator initializes JWKS fetching when auth is enabled.
func NewValidator(ctx context.Context, cfg *config.Config, accounts account.Repository, log zerolog.Logger) (*Validator, error) {
	if !cfg.AuthEnabled {
		return &Validator{cfg: cfg, accounts: accounts, log: log}, nil
	}

	options := keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			log.Error().Err(err).Msg("jwks refresh error")
		},
	}

	jwks, err := keyfunc.Get(cfg.AuthJWKSURL, options)
	if err != nil {
		return nil, err
	}

	return &Validator{
		cfg:      cfg,
		accounts: accounts,
		log:      log,
		jwks:     jwks,
	}, nil
}

// Middleware authenticates the request and stores the resolved actor in the
// gin context. With auth disabled it trusts the X-Account-ID header, which is
// only acceptable behind a gateway that strips it from outside traffic.
func (v *Validator) Middleware() gin.HandlerFunc {
	if v == nil || !v.cfg.AuthEnabled {
		return v.headerMiddleware()
	}

	return func(c *gin.Context) {
		tokenString := bearerToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}

		token, err := jwt.Parse(tokenString, v.jwks.Keyfunc,
			jwt.WithIssuer(v.cfg.AuthIssuer),
			jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
		)
		if err != nil || !token.Valid {
			abortUnauthorized(c, "invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abortUnauthorized(c, "invalid token claims")
			return
		}

		if !v.audienceAllowed(claims) {
			abortUnauthorized(c, "invalid token audience")
			return
		}

		accountID := accountIDClaim(claims)
		if accountID == 0 {
			abortUnauthorized(c, "token has no account id")
			return
		}

		actor, err := v.resolveActor(c.Request.Context(), accountID)
		if err != nil {
			v.log.Error().Err(err).Uint("account_id", accountID).Msg("actor lookup failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "account lookup failed"})
			return
		}
		if actor == nil {
			abortUnauthorized(c, "unknown account")
			return
		}

		c.Set(actorContextKey, *actor)
		c.Next()
	}
}

func (v *Validator) headerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("X-Account-ID"))
		if raw == "" {
			abortUnauthorized(c, "missing X-Account-ID header")
			return
		}
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || id == 0 {
			abortUnauthorized(c, "invalid X-Account-ID header")
			return
		}

		actor, err := v.resolveActor(c.Request.Context(), uint(id))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "account lookup failed"})
			return
		}
		if actor == nil {
			abortUnauthorized(c, "unknown account")
			return
		}

		c.Set(actorContextKey, *actor)
		c.Next()
	}
}

func (v *Validator) resolveActor(ctx context.Context, accountID uint) (*account.Actor, error) {
	acc, err := v.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, nil
	}
	return &account.Actor{ID: acc.ID, Role: acc.Role}, nil
}

func (v *Validator) audienceAllowed(claims jwt.MapClaims) bool {
	audience := strings.TrimSpace(v.cfg.AuthAudience)
	if audience == "" {
		return true
	}
	audClaim, hasAud := claims["aud"]
	if !hasAud {
		return true
	}
	switch aud := audClaim.(type) {
	case string:
		return aud == audience
	case []any:
		for _, entry := range aud {
			if s, ok := entry.(string); ok && s == audience {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Ready indicates if the validator is prepared.
func (v *Validator) Ready() bool {
	if v == nil || !v.cfg.AuthEnabled {
		return true
	}
	return v.jwks != nil
}

// ActorFrom returns the authenticated actor stored by Middleware.
func ActorFrom(c *gin.Context) (account.Actor, bool) {
	value, exists := c.Get(actorContextKey)
	if !exists {
		return account.Actor{}, false
	}
	actor, ok := value.(account.Actor)
	return actor, ok
}

func accountIDClaim(claims jwt.MapClaims) uint {
	for _, key := range []string{"account_id", "accountId"} {
		switch value := claims[key].(type) {
		case float64:
			if value > 0 {
				return uint(value)
			}
		case string:
			if id, err := strconv.ParseUint(value, 10, 32); err == nil {
				return uint(id)
			}
		}
	}
	if sub, ok := claims["sub"].(string); ok {
		if id, err := strconv.ParseUint(sub, 10, 32); err == nil {
			return uint(id)
		}
	}
	return 0
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": message,
	})
}
