package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fullpega.cl/internal/ids"
	"fullpega.cl/internal/obs"
)

const (
	defaultTokenTTL = time.Hour
	defaultIssuer   = "fullpega"
	defaultAudience = "fullpega-frontend"

	// Wall-clock zone recorded alongside the UTC timestamps on the
	// session row. Falls back to UTC when tzdata is unavailable.
	queryTimeZone = "America/Santiago"

	unknownDevice = "Unknown device"
)

// Credentials is the raw login input. Both fields may be empty or
// whitespace; Login normalizes before validating.
type Credentials struct {
	Rut      string
	Password string
}

// ClientInfo carries the request metadata used for enrichment.
type ClientInfo struct {
	UserAgent    string
	ForwardedFor string
	RemoteAddr   string
}

// ClientContext is the best-effort device and network metadata
// attached to the session record.
type ClientContext struct {
	DeviceInfo string
	IPAddress  *string
	Country    *string
}

// Enricher derives client context from request metadata. The returned
// ClientContext is always usable; a non-nil error only reports that
// some part of the enrichment degraded.
type Enricher interface {
	Enrich(ctx context.Context, client ClientInfo) (ClientContext, error)
}

// LoginResult is returned to the caller on success.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
}

// Service orchestrates the login flow: credential verification,
// permission resolution, token minting and session-record persistence.
type Service struct {
	store    Store
	enricher Enricher
	now      func() time.Time
	logEvent func(event string, fields map[string]any)

	signingKey []byte
	issuer     string
	audience   string
	tokenTTL   time.Duration
	systemID   int
	queryTZ    *time.Location
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) ServiceOption {
	return func(s *Service) error {
		if v := strings.TrimSpace(issuer); v != "" {
			s.issuer = v
		}
		return nil
	}
}

// WithAudience overrides the token audience claim.
func WithAudience(audience string) ServiceOption {
	return func(s *Service) error {
		if v := strings.TrimSpace(audience); v != "" {
			s.audience = v
		}
		return nil
	}
}

// WithTokenTTL configures the token validity window.
func WithTokenTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
		return nil
	}
}

// WithSystemID sets the originating-system identifier stamped on
// session records.
func WithSystemID(id int) ServiceOption {
	return func(s *Service) error {
		s.systemID = id
		return nil
	}
}

// WithEnricher installs the client-context enricher.
func WithEnricher(e Enricher) ServiceOption {
	return func(s *Service) error {
		s.enricher = e
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// WithEventLogger overrides the structured event sink. Tests use this
// to assert on discarded best-effort errors.
func WithEventLogger(fn func(event string, fields map[string]any)) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.logEvent = fn
		}
		return nil
	}
}

// NewService constructs the login service. An empty signing key is
// tolerated here so callers control when to fail; signing then fails
// per request with ErrConfiguration.
func NewService(store Store, signingKey string, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	svc := &Service{
		store:    store,
		now:      time.Now,
		issuer:   defaultIssuer,
		audience: defaultAudience,
		tokenTTL: defaultTokenTTL,
		logEvent: func(event string, fields map[string]any) {
			obs.LogEvent(event, fields)
		},
	}
	if key := strings.TrimSpace(signingKey); key != "" {
		svc.signingKey = []byte(key)
	}
	if tz, err := time.LoadLocation(queryTimeZone); err == nil {
		svc.queryTZ = tz
	} else {
		svc.queryTZ = time.UTC
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// CanIssueTokens reports whether a signing key is configured. Startup
// uses this to fail loudly on misconfiguration.
func (s *Service) CanIssueTokens() bool {
	return len(s.signingKey) > 0
}

// NormalizeRut trims whitespace, upper-cases and strips the dot
// thousand separators, so "12.345.678-5" and " 12345678-5 " compare
// equal.
func NormalizeRut(rut string) string {
	rut = strings.ToUpper(strings.TrimSpace(rut))
	return strings.ReplaceAll(rut, ".", "")
}

// Login runs the full flow. Steps through password verification and
// token minting are fatal on failure; enrichment and the session
// write are best-effort and only logged when they fail.
func (s *Service) Login(ctx context.Context, creds Credentials, client ClientInfo) (LoginResult, error) {
	rut := NormalizeRut(creds.Rut)
	if rut == "" || strings.TrimSpace(creds.Password) == "" {
		return LoginResult{}, ErrValidation
	}

	user, err := s.store.FindUserByRut(ctx, rut)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return LoginResult{}, ErrNotFound
		}
		return LoginResult{}, fmt.Errorf("find user: %w", err)
	}

	if err := VerifyPassword(user.PasswordHash, creds.Password); err != nil {
		return LoginResult{}, ErrBadCredentials
	}

	permissions, err := s.resolvePermissions(ctx, user.ID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("resolve permissions: %w", err)
	}

	now := s.now().UTC()
	token, expiresAt, err := s.signToken(user, permissions, now)
	if err != nil {
		return LoginResult{}, err
	}

	clientCtx := s.enrichClient(ctx, rut, client)
	s.recordSession(ctx, user, token, clientCtx, now, expiresAt)

	return LoginResult{Token: token, ExpiresAt: expiresAt}, nil
}

// Sessions returns the most recent session records for the user
// identified by RUT, newest first.
func (s *Service) Sessions(ctx context.Context, rut string, limit int) ([]*SessionToken, error) {
	rut = NormalizeRut(rut)
	if rut == "" {
		return nil, ErrValidation
	}
	user, err := s.store.FindUserByRut(ctx, rut)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return s.store.SessionsForUser(ctx, user.ID, limit)
}

// resolvePermissions returns the permission names reachable through
// all of the user's roles. An empty role set yields an empty set.
func (s *Service) resolvePermissions(ctx context.Context, userID int64) ([]string, error) {
	roleIDs, err := s.store.RoleIDsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(roleIDs) == 0 {
		return nil, nil
	}
	return s.store.PermissionsForRoles(ctx, roleIDs)
}

func (s *Service) enrichClient(ctx context.Context, rut string, client ClientInfo) ClientContext {
	if s.enricher == nil {
		return ClientContext{DeviceInfo: unknownDevice}
	}
	clientCtx, err := s.enricher.Enrich(ctx, client)
	if err != nil {
		s.logEvent("auth.enrich.degraded", map[string]any{
			"rut":   rut,
			"error": err.Error(),
		})
	}
	if clientCtx.DeviceInfo == "" {
		clientCtx.DeviceInfo = unknownDevice
	}
	return clientCtx
}

// recordSession persists the audit row and touches last-login. Both
// are fire-and-forget: the issued token stays valid either way.
func (s *Service) recordSession(ctx context.Context, user *User, token string, clientCtx ClientContext, now, expiresAt time.Time) {
	rec := &SessionToken{
		ID:         ids.New(),
		UserID:     user.ID,
		Token:      token,
		DeviceInfo: clientCtx.DeviceInfo,
		IPAddress:  clientCtx.IPAddress,
		Country:    clientCtx.Country,
		CreatedAt:  now,
		ExpiresAt:  expiresAt,
		IsRevoked:  false,
		QueryAt:    now.In(s.queryTZ),
		SystemID:   s.systemID,
	}
	if err := s.store.CreateSessionToken(ctx, rec); err != nil {
		s.logEvent("auth.session.write_failed", map[string]any{
			"rut":   user.Rut,
			"error": err.Error(),
		})
	}
	if err := s.store.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.logEvent("auth.last_login.write_failed", map[string]any{
			"rut":   user.Rut,
			"error": err.Error(),
		})
	}
}
