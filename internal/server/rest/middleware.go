package rest

import (
	"errors"
	"strings"

	"github.com/dmitrijs2005/bazaar/internal/common"
	"github.com/dmitrijs2005/bazaar/internal/server/auth"
	"github.com/dmitrijs2005/bazaar/internal/server/models"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

const localUser = "user"

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(common.AuthorizationHeaderName)
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	// browsers cannot set headers on a websocket upgrade
	return c.Query(common.TokenQueryParam)
}

// authenticate verifies the session token and makes sure the local user row
// exists.
func (s *Server) authenticate(c *fiber.Ctx, token string) (*models.User, error) {
	sess, err := auth.ParseToken(token, s.secret, s.issuer)
	if err != nil {
		return nil, err
	}
	return s.svc.Users.Ensure(c.UserContext(), sess.UserID, sess.Name, sess.Email)
}

func (s *Server) requireAuth(c *fiber.Ctx) error {
	token := bearerToken(c)
	if token == "" {
		return common.ErrorUnauthorized
	}
	user, err := s.authenticate(c, token)
	if err != nil {
		return err
	}
	c.Locals(localUser, user)
	return c.Next()
}

// optionalAuth identifies the caller when a valid token is present and lets
// anonymous or stale-token requests through as guests.
func (s *Server) optionalAuth(c *fiber.Ctx) error {
	if token := bearerToken(c); token != "" {
		user, err := s.authenticate(c, token)
		if err == nil {
			c.Locals(localUser, user)
		} else if !errors.Is(err, common.ErrInvalidToken) && !errors.Is(err, common.ErrTokenExpired) {
			return err
		}
	}
	return c.Next()
}

func (s *Server) upgradeOnly(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// currentUser returns the authenticated user, or nil for guests.
func currentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(localUser).(*models.User)
	return u
}

// userID is the caller's external identity key, empty for guests.
func userID(c *fiber.Ctx) string {
	if u := currentUser(c); u != nil {
		return u.ClerkID
	}
	return ""
}
