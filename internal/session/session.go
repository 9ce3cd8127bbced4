// Package session keeps the logged-in user and the durable preferences of a
// page in its client's local storage.
//
// Storage layout (one namespace per client):
//
//	user              JSON {"name", "role", "loggedIn"}; absent when logged out
//	darkMode          "true" or "false"
//	preferredLanguage language code, e.g. "hi"
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/BTreeMap/FarmGenius/internal/backend"
	"github.com/BTreeMap/FarmGenius/internal/models"
	"github.com/BTreeMap/FarmGenius/internal/store"
)

// Storage keys.
const (
	KeyUser     = "user"
	KeyDarkMode = "darkMode"
	KeyLanguage = "preferredLanguage"
)

// MinPasswordLength is the shortest password registration accepts.
const MinPasswordLength = 6

// LogoutPrompt is the question put to the Confirmer before logging out.
const LogoutPrompt = "Are you sure you want to log out?"

// Confirmer answers a yes/no question on behalf of the user.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// Always is a Confirmer with a fixed answer.
type Always bool

func (a Always) Confirm(context.Context, string) (bool, error) { return bool(a), nil }

// StartupState is what a page needs to render its first frame.
// Session is nil when nobody is logged in.
type StartupState struct {
	Session     *models.Session    `json:"session"`
	Preferences models.Preferences `json:"preferences"`
}

// Manager owns the session of one page.
type Manager struct {
	mu      sync.Mutex
	ls      *store.LocalStorage
	auth    backend.AuthBackend
	prefs   *PreferenceStore
	current *models.Session
}

// NewManager creates a session manager over a client's local storage.
func NewManager(ls *store.LocalStorage, auth backend.AuthBackend, prefs *PreferenceStore) *Manager {
	return &Manager{ls: ls, auth: auth, prefs: prefs}
}

// ValidateCredentials checks the login form without touching storage.
func ValidateCredentials(creds models.Credentials) (models.Role, error) {
	if strings.TrimSpace(creds.Phone) == "" {
		return "", &models.ValidationError{Kind: models.MissingField, Field: "phone", Message: "Please fill all required fields"}
	}
	if creds.Password == "" {
		return "", &models.ValidationError{Kind: models.MissingField, Field: "password", Message: "Please fill all required fields"}
	}
	return models.ParseRole(creds.Role)
}

// ValidateRegistration checks the sign-up form in the order the user sees the
// errors: missing fields, then mismatch, then length.
func ValidateRegistration(reg models.Registration) (models.Role, error) {
	required := []struct{ field, value string }{
		{"name", reg.Name},
		{"phone", reg.Phone},
		{"location", reg.Location},
		{"password", reg.Password},
		{"confirm_password", reg.ConfirmPassword},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return "", &models.ValidationError{Kind: models.MissingField, Field: r.field, Message: "Please fill all required fields"}
		}
	}
	if reg.Password != reg.ConfirmPassword {
		return "", &models.ValidationError{Kind: models.Mismatch, Field: "confirm_password", Message: "Passwords do not match!"}
	}
	if len([]rune(reg.Password)) < MinPasswordLength {
		return "", &models.ValidationError{Kind: models.TooShort, Field: "password", Message: fmt.Sprintf("Password must be at least %d characters", MinPasswordLength)}
	}
	return models.ParseRole(reg.Role)
}

// Login validates the form, resolves the identity and persists the session.
// Storage is untouched when validation fails.
func (m *Manager) Login(ctx context.Context, creds models.Credentials) (models.Session, error) {
	role, err := ValidateCredentials(creds)
	if err != nil {
		slog.Debug("Manager.Login: rejected form", "error", err)
		return models.Session{}, err
	}
	sess, err := m.auth.Authenticate(ctx, creds, role)
	if err != nil {
		slog.Warn("Manager.Login: authentication failed", "error", err)
		return models.Session{}, err
	}
	sess.LoggedIn = true
	data, err := json.Marshal(sess)
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to encode session: %w", err)
	}
	if err := m.ls.SetItem(ctx, KeyUser, string(data)); err != nil {
		return models.Session{}, fmt.Errorf("failed to persist session: %w", err)
	}

	m.mu.Lock()
	m.current = &sess
	m.mu.Unlock()
	slog.Info("Manager.Login: logged in", "namespace", m.ls.Namespace(), "role", sess.Role)
	return sess, nil
}

// Register validates and submits the sign-up form. It does not log in.
func (m *Manager) Register(ctx context.Context, reg models.Registration) error {
	if _, err := ValidateRegistration(reg); err != nil {
		return err
	}
	if err := m.auth.Register(ctx, reg); err != nil {
		slog.Warn("Manager.Register: backend rejected registration", "error", err)
		return err
	}
	slog.Info("Manager.Register: registered", "namespace", m.ls.Namespace())
	return nil
}

// Logout asks c for confirmation and, if given, removes the stored session.
// A declined confirmation returns models.ErrLogoutDeclined with nothing changed.
func (m *Manager) Logout(ctx context.Context, c Confirmer) error {
	ok, err := c.Confirm(ctx, LogoutPrompt)
	if err != nil {
		return fmt.Errorf("logout confirmation failed: %w", err)
	}
	if !ok {
		slog.Debug("Manager.Logout: declined")
		return models.ErrLogoutDeclined
	}
	if err := m.ls.RemoveItem(ctx, KeyUser); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()
	slog.Info("Manager.Logout: logged out", "namespace", m.ls.Namespace())
	return nil
}

// Current returns the in-memory session.
func (m *Manager) Current() (models.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return models.Session{}, false
	}
	return *m.current, true
}

// Restore reads the stored session and preferences once at startup. An
// unreadable session record is treated as logged out.
func (m *Manager) Restore(ctx context.Context) (StartupState, error) {
	var state StartupState
	raw, ok, err := m.ls.GetItem(ctx, KeyUser)
	if err != nil {
		return state, fmt.Errorf("failed to read session: %w", err)
	}
	if ok {
		var sess models.Session
		if err := json.Unmarshal([]byte(raw), &sess); err != nil {
			slog.Warn("Manager.Restore: ignoring unreadable session", "namespace", m.ls.Namespace(), "error", err)
		} else if sess.LoggedIn {
			if sess.Role == "" {
				sess.Role = models.RoleFarmer
			}
			state.Session = &sess
		}
	}

	prefs, err := m.prefs.Load(ctx)
	if err != nil {
		return state, err
	}
	state.Preferences = prefs

	m.mu.Lock()
	m.current = state.Session
	m.mu.Unlock()
	slog.Debug("Manager.Restore: restored", "namespace", m.ls.Namespace(), "logged_in", state.Session != nil, "language", prefs.Language, "dark_mode", prefs.DarkMode)
	return state, nil
}
