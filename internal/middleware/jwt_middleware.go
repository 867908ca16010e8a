package middleware

import (
	"errors"
	"regexp"

	"propverse/internal/apperr"
	"propverse/internal/models"
	"propverse/internal/repositories"
	"propverse/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"
)

// Outcome is the terminal state of one guard evaluation.
type Outcome string

const (
	OutcomeNoHeader        Outcome = "no_header"
	OutcomeMalformedHeader Outcome = "malformed_header"
	OutcomeExpiredToken    Outcome = "expired_token"
	OutcomeInvalidToken    Outcome = "invalid_token"
	OutcomeUserNotFound    Outcome = "user_not_found"
	OutcomeUserInactive    Outcome = "user_inactive"
	OutcomeLookupFailed    Outcome = "lookup_failed"
	OutcomeAuthorized      Outcome = "authorized"
)

const principalKey = "user"

var bearerPattern = regexp.MustCompile(`(?i)^bearer\s+(\S+)\s*$`)

// Authenticator verifies tokens and resolves their subject.
type Authenticator interface {
	VerifyToken(token string) (*services.Claims, error)
	GetUser(id uint) (*models.User, error)
}

// OutcomeRecorder counts guard decisions.
type OutcomeRecorder interface {
	GuardOutcome(outcome string)
}

// Decision is the result of evaluating one Authorization header. User is set
// only when Outcome is OutcomeAuthorized.
type Decision struct {
	Outcome Outcome
	User    *models.User
	Err     error
}

// Guard protects routes with bearer tokens.
type Guard struct {
	auth     Authenticator
	recorder OutcomeRecorder
	logger   *zap.Logger
}

// NewGuard creates a Guard. recorder may be nil.
func NewGuard(auth Authenticator, recorder OutcomeRecorder, logger *zap.Logger) *Guard {
	return &Guard{auth: auth, recorder: recorder, logger: logger}
}

// Evaluate walks the guard states in order and stops at the first failure.
// The user is loaded exactly once per call.
func (g *Guard) Evaluate(header string) Decision {
	if header == "" {
		return Decision{Outcome: OutcomeNoHeader, Err: apperr.Auth("Authorization header is missing", nil)}
	}

	m := bearerPattern.FindStringSubmatch(header)
	if m == nil {
		return Decision{Outcome: OutcomeMalformedHeader, Err: apperr.Auth("Invalid authorization format", nil)}
	}

	claims, err := g.auth.VerifyToken(m[1])
	if err != nil {
		if errors.Is(err, services.ErrTokenExpired) {
			return Decision{Outcome: OutcomeExpiredToken, Err: apperr.Auth("Token has expired", err)}
		}
		return Decision{Outcome: OutcomeInvalidToken, Err: apperr.Auth("Invalid or malformed token", err)}
	}

	user, err := g.auth.GetUser(claims.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return Decision{Outcome: OutcomeUserNotFound, Err: apperr.Auth("User not found", err)}
		}
		return Decision{Outcome: OutcomeLookupFailed, Err: apperr.Persistence("Could not load user", err)}
	}
	if !user.IsActive {
		return Decision{Outcome: OutcomeUserInactive, Err: apperr.Inactive("User account is inactive")}
	}

	return Decision{Outcome: OutcomeAuthorized, User: user}
}

// Handler returns the Fiber middleware. Authorized requests continue with the
// user stored as the principal; everything else is answered here.
func (g *Guard) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		d := g.Evaluate(c.Get(fiber.HeaderAuthorization))

		if g.recorder != nil {
			g.recorder.GuardOutcome(string(d.Outcome))
		}
		fields := []zap.Field{zap.String("outcome", string(d.Outcome)), zap.String("path", utils.CopyString(c.Path()))}
		if d.User != nil {
			fields = append(fields, zap.Uint("user_id", d.User.ID))
		}
		if d.Err != nil {
			fields = append(fields, zap.Error(d.Err))
		}
		if d.Outcome == OutcomeLookupFailed {
			g.logger.Error("access guard", fields...)
		} else {
			g.logger.Debug("access guard", fields...)
		}

		if d.Outcome != OutcomeAuthorized {
			return apperr.Respond(c, d.Err)
		}
		c.Locals(principalKey, d.User)
		return c.Next()
	}
}

// CurrentUser returns the principal attached by Guard, or nil on unguarded
// routes.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(principalKey).(*models.User)
	return user
}
