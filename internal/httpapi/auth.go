package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pawloft/daycare/pkg/identity"
)

const actorContextKey = "auth_actor"

var errUnauthorized = errors.New("unauthorized")

// authenticator validates bearer tokens and resolves them to actors.
type authenticator struct {
	signingKey []byte
	issuer     string
}

func newAuthenticator(signingKey string, issuer string) (*authenticator, error) {
	if signingKey == "" {
		return nil, errors.New("httpapi: empty signing key")
	}
	return &authenticator{signingKey: []byte(signingKey), issuer: issuer}, nil
}

// IssueToken signs a bearer token for the actor. Used by operator tooling and
// tests; production tokens come from the identity provider sharing the key.
func IssueToken(signingKey string, issuer string, actor identity.Actor, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":  actor.ID.String(),
		"role": string(actor.Kind),
		"iss":  issuer,
		"exp":  time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(signingKey))
}

func (auth *authenticator) parse(raw string) (identity.Actor, error) {
	options := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if auth.issuer != "" {
		options = append(options, jwt.WithIssuer(auth.issuer))
	}
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		return auth.signingKey, nil
	}, options...)
	if err != nil || !token.Valid {
		return identity.Actor{}, fmt.Errorf("%w: %v", errUnauthorized, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return identity.Actor{}, errUnauthorized
	}
	subject, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	subjectID, err := uuid.Parse(subject)
	if err != nil {
		return identity.Actor{}, fmt.Errorf("%w: bad subject", errUnauthorized)
	}
	switch identity.ActorKind(role) {
	case identity.ActorStaff:
		return identity.NewStaffActor(subjectID)
	case identity.ActorCustomer:
		return identity.NewCustomerActor(subjectID)
	}
	return identity.Actor{}, fmt.Errorf("%w: bad role", errUnauthorized)
}

func (auth *authenticator) middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || raw == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing bearer token"))
			return
		}
		actor, err := auth.parse(raw)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthorized", "invalid token"))
			return
		}
		ctx.Set(actorContextKey, actor)
		ctx.Next()
	}
}

func actorFrom(ctx *gin.Context) (identity.Actor, bool) {
	value, ok := ctx.Get(actorContextKey)
	if !ok {
		return identity.Actor{}, false
	}
	actor, ok := value.(identity.Actor)
	return actor, ok
}
