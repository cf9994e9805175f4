package auth

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/darien/gradebook/core"
	"github.com/darien/gradebook/core/account"
	"github.com/darien/gradebook/core/center"
)

// Credentials is the login form.
type Credentials struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	CenterID int64  `json:"center_id" validate:"gte=0"`
}

func (c *Credentials) Validate(validate *validator.Validate) error {
	c.Email = core.CleanString(c.Email, true /* lower */)
	return validate.Struct(c)
}

type Service struct {
	centers  *center.Service
	accounts *account.Service
	resolver *Resolver
	sessions *SessionStore
	validate *validator.Validate
	logger   core.Logger
}

func NewService(
	centers *center.Service,
	accounts *account.Service,
	resolver *Resolver,
	sessions *SessionStore,
	validate *validator.Validate,
	logger core.Logger,
) *Service {
	return &Service{
		centers:  centers,
		accounts: accounts,
		resolver: resolver,
		sessions: sessions,
		validate: validate,
		logger:   logger,
	}
}

// Login boots a session: it resolves the chosen center, provisions the missing student accounts
// of that center, then authenticates the credentials within it.
func (svc *Service) Login(ctx context.Context, creds Credentials) (Session, error) {
	if err := creds.Validate(svc.validate); err != nil {
		return Session{}, err
	}

	c, err := svc.centers.Resolve(ctx, creds.CenterID)
	if err != nil {
		if errors.Cause(err) == center.ErrNotFound {
			return Session{}, core.NewFieldValidationError(err, "center_id")
		}
		return Session{}, errors.Wrap(err, "resolving center")
	}

	n, err := svc.accounts.ProvisionStudentAccounts(ctx, c.ID)
	switch {
	case errors.Cause(err) == account.ErrNoSharedSecret:
		svc.logger.Warn("student accounts not provisioned: no shared password", map[string]interface{}{"center_id": c.ID})
	case err != nil:
		return Session{}, errors.Wrap(err, "provisioning student accounts")
	case n > 0:
		svc.logger.Info("student accounts provisioned", map[string]interface{}{"center_id": c.ID, "count": n})
	}

	ident, err := svc.resolver.Authenticate(ctx, creds.Email, creds.Password, c.ID)
	if err != nil {
		return Session{}, err
	}
	return svc.sessions.Create(ident, c.ID), nil
}

func (svc *Service) Session(id string) (Session, error) {
	return svc.sessions.Get(id)
}

func (svc *Service) Logout(id string) {
	svc.sessions.Delete(id)
}
