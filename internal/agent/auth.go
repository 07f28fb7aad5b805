// Package agent runs the headless marketplace client: it keeps a session
// alive, watches the account's appointments for status changes, and keeps
// conversation sessions open so messages are synced and archived.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/styleslot/styleslot-go/internal/api"
	"github.com/styleslot/styleslot-go/internal/creds"
	"github.com/styleslot/styleslot-go/pkg/logging"
)

// ErrNoCredentials means no stored session exists and no login credentials
// were configured.
var ErrNoCredentials = errors.New("agent: no session and no login credentials configured")

// Authenticator resolves a usable session: stored credentials when they are
// still valid, a fresh login otherwise.
type Authenticator struct {
	client   *api.Client
	store    creds.Store
	email    string
	password string
	logger   *logging.Logger
	now      func() time.Time
}

func NewAuthenticator(client *api.Client, store creds.Store, email, password string, logger *logging.Logger) *Authenticator {
	if client == nil {
		panic("agent: api client required")
	}
	if store == nil {
		panic("agent: credential store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Authenticator{
		client:   client,
		store:    store,
		email:    email,
		password: password,
		logger:   logger,
		now:      time.Now,
	}
}

// EnsureSession installs a valid session token on the client and returns the
// credentials in use. A stored, unexpired session is reused; otherwise the
// configured email and password are exchanged for a new one, which is then
// persisted.
func (a *Authenticator) EnsureSession(ctx context.Context) (creds.Credentials, error) {
	stored, err := a.store.Load(ctx)
	switch {
	case err == nil:
		if !creds.Expired(stored, a.now()) {
			a.client.SetToken(stored.Token)
			a.logger.Info("resumed stored session",
				"user_id", stored.User.ID,
				"role", stored.User.Role,
			)
			return stored, nil
		}
		a.logger.Info("stored session expired, logging in again", "user_id", stored.User.ID)
	case errors.Is(err, creds.ErrNotFound):
		// First run, fall through to login.
	default:
		return creds.Credentials{}, fmt.Errorf("agent: load credentials: %w", err)
	}

	if a.email == "" || a.password == "" {
		return creds.Credentials{}, ErrNoCredentials
	}

	session, err := a.client.Login(ctx, a.email, a.password)
	if err != nil {
		return creds.Credentials{}, fmt.Errorf("agent: login: %w", err)
	}
	fresh := creds.Credentials{Token: session.Token, User: session.User}
	if err := a.store.Save(ctx, fresh); err != nil {
		// The session works even if persistence fails; the next start just
		// logs in again.
		a.logger.Warn("could not persist credentials", "error", err)
	}
	a.logger.Info("logged in",
		"user_id", fresh.User.ID,
		"role", fresh.User.Role,
	)
	return fresh, nil
}

// Logout revokes the session and clears the stored credentials.
func (a *Authenticator) Logout(ctx context.Context) error {
	err := a.client.Logout(ctx)
	if clearErr := a.store.Clear(ctx); clearErr != nil && err == nil {
		err = clearErr
	}
	return err
}
