package gate

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/catalog-gate/pkg/util/errorutil"
)

const subjectKey = "session_subject"

// Middleware runs Enforce to completion before the protected handler.
func (g *Guard) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		decision, err := g.Enforce(c.UserContext())
		if err != nil {
			return apperrors.NewStoreUnavailable(decision.RedirectTo, err)
		}
		if !decision.Allowed {
			return apperrors.NewUnauthenticated(decision.RedirectTo)
		}

		c.Locals(subjectKey, decision.Subject)
		return c.Next()
	}
}

// SubjectFromContext retrieves the authenticated subject.
func SubjectFromContext(c *fiber.Ctx) (string, bool) {
	subject, ok := c.Locals(subjectKey).(string)
	return subject, ok && subject != ""
}
