package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"volunteerhub/api/internal/models"
	"volunteerhub/api/internal/repository"
)

const currentUserKey = "current_user"

type userContextKey struct{}

// TokenVerifier resolves a bearer token to the user id it was issued for.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// UserCache holds the last known public view of users. It stands in for the
// store only while the store is failing.
type UserCache interface {
	Get(ctx context.Context, id string) (models.User, bool, error)
	Set(ctx context.Context, user models.User) error
	Delete(ctx context.Context, id string) error
}

// Auth admits requests carrying a valid bearer token for an existing user.
// Every token failure gets the same 401 body. cache may be nil.
func Auth(tokens TokenVerifier, users repository.UserRepository, cache UserCache, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c)
			return
		}

		userID, err := tokens.Verify(token)
		if err != nil {
			log.Debug().Err(err).Str("request_id", GetRequestID(c)).Msg("bearer token rejected")
			abortUnauthorized(c)
			return
		}

		ctx := c.Request.Context()
		user, err := lookupUser(ctx, userID, users, cache, log)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				abortUnauthorized(c)
				return
			}
			log.Error().Err(err).Str("user_id", userID).Str("request_id", GetRequestID(c)).Msg("load current user")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Something went wrong",
			})
			return
		}

		c.Set(currentUserKey, user)
		c.Request = c.Request.WithContext(context.WithValue(ctx, userContextKey{}, user))

		c.Next()
	}
}

// lookupUser always asks the store, so a deleted account is refused as soon
// as the store stops returning it. The cache only answers when the store is
// faulting.
func lookupUser(ctx context.Context, id string, users repository.UserRepository, cache UserCache, log zerolog.Logger) (models.User, error) {
	user, err := users.GetByID(ctx, id)
	switch {
	case err == nil:
		if cache != nil {
			if err := cache.Set(ctx, user); err != nil {
				log.Warn().Err(err).Msg("user cache write failed")
			}
		}
		return user, nil
	case errors.Is(err, repository.ErrUserNotFound):
		if cache != nil {
			if err := cache.Delete(ctx, id); err != nil {
				log.Warn().Err(err).Msg("user cache evict failed")
			}
		}
		return models.User{}, err
	}

	if cache != nil {
		cached, hit, cacheErr := cache.Get(ctx, id)
		if cacheErr == nil && hit {
			log.Warn().Err(err).Str("user_id", id).Msg("user store unavailable, serving cached user")
			return cached, nil
		}
	}
	return models.User{}, err
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"message": "Not authorized",
	})
}

// CurrentUser returns the user attached by Auth.
func CurrentUser(c *gin.Context) (models.User, bool) {
	v, exists := c.Get(currentUserKey)
	if !exists {
		return models.User{}, false
	}
	user, ok := v.(models.User)
	return user, ok
}

// UserFromContext returns the user Auth attached to the request context.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userContextKey{}).(models.User)
	return user, ok
}
