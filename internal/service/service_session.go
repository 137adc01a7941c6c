package service

import (
	"context"
	"fmt"
	"time"

	"github.com/MKhiriev/go-vault-guard/internal/config"
	"github.com/MKhiriev/go-vault-guard/internal/logger"
	"github.com/MKhiriev/go-vault-guard/models"
	"github.com/golang-jwt/jwt/v5"
)

// sessionService signs and verifies JWT session tokens with HMAC-SHA256.
// The claims bind each token to the tenant, email and device fingerprint it
// was minted for, so a leaked token is useless with a different identity.
type sessionService struct {
	signKey []byte
	issuer  string

	sessionDuration           time.Duration
	deviceOnlySessionDuration time.Duration

	logger *logger.Logger
}

// NewSessionService constructs a SessionService from the application
// configuration. The returned service is safe for concurrent use; all state
// is read-only after construction.
func NewSessionService(cfg config.App, logger *logger.Logger) SessionService {
	return &sessionService{
		signKey:                   []byte(cfg.SessionSignKey),
		issuer:                    cfg.SessionIssuer,
		sessionDuration:           cfg.SessionDuration,
		deviceOnlySessionDuration: cfg.DeviceOnlySessionDuration,
		logger:                    logger,
	}
}

func (s *sessionService) CreateSession(ctx context.Context, tenantID int64, email, deviceUID string, deviceOnly bool) (models.Session, error) {
	log := logger.FromContext(ctx)

	now := time.Now()
	duration := s.sessionDuration
	if deviceOnly {
		duration = s.deviceOnlySessionDuration
	}

	claims := models.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
		},
		TenantID:   tenantID,
		Email:      email,
		DeviceID:   deviceUID,
		DeviceOnly: deviceOnly,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signKey)
	if err != nil {
		log.Err(err).Str("func", "*sessionService.CreateSession").Msg("failed to sign session token")
		return models.Session{}, fmt.Errorf("failed to sign session token: %w", err)
	}

	return models.Session{Token: token, Claims: claims}, nil
}

// CheckSession verifies signature, lifetime and issuer, then re-binds the
// claims to the presented identity. Every failure collapses into
// ErrSessionInvalid: callers never learn which check failed.
func (s *sessionService) CheckSession(ctx context.Context, token string, tenantID int64, email, deviceUID string, requireFull bool) (models.SessionClaims, error) {
	log := logger.FromContext(ctx)

	var claims models.SessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.signKey, nil
		},
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		log.Debug().Err(err).Str("func", "*sessionService.CheckSession").Msg("session token rejected")
		return models.SessionClaims{}, ErrSessionInvalid
	}

	if claims.TenantID != tenantID || claims.Email != email || claims.DeviceID != deviceUID {
		log.Warn().
			Str("func", "*sessionService.CheckSession").
			Msg("session token presented with a different identity")
		return models.SessionClaims{}, ErrSessionInvalid
	}

	if requireFull && claims.DeviceOnly {
		return models.SessionClaims{}, ErrSessionInvalid
	}

	return claims, nil
}
