package middleware

import (
	"errors"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/auratask/internal/constants"
	apierrors "github.com/yukikurage/auratask/internal/errors"
	"github.com/yukikurage/auratask/internal/permissions"
	"github.com/yukikurage/auratask/internal/repository"
	"gorm.io/gorm"
)

// LoadActor resolves the session user into a permissions.Actor for its
// organization. It must run after RequireAuth. A session whose user no longer
// exists is cleared.
func LoadActor(users repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		user, err := users.FindByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				session := sessions.Default(c)
				session.Clear()
				_ = session.Save()
				apierrors.Unauthorized(c, "Session is no longer valid")
				c.Abort()
				return
			}
			apierrors.InternalError(c, "Failed to load user")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyActor, permissions.NewActor(user.ID, user.OrganizationID, user.Role))
		c.Next()
	}
}

// GetActor retrieves the actor set by LoadActor
func GetActor(c *gin.Context) (permissions.Actor, bool) {
	value, exists := c.Get(constants.ContextKeyActor)
	if !exists {
		return permissions.Actor{}, false
	}
	actor, ok := value.(permissions.Actor)
	return actor, ok
}

// RequireCapability rejects actors lacking every capability in cap.
func RequireCapability(cap permissions.Capability, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}
		if !actor.Has(cap) {
			apierrors.Forbidden(c, message)
			c.Abort()
			return
		}
		c.Next()
	}
}
