package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-vault-guard/internal/config"
	"github.com/MKhiriev/go-vault-guard/internal/crypto"
	"github.com/MKhiriev/go-vault-guard/internal/logger"
	"github.com/MKhiriev/go-vault-guard/internal/store"
	"github.com/MKhiriev/go-vault-guard/models"
)

// authService is the concrete implementation of AuthService. It composes
// the two challenge factors over a single device lookup and owns the
// password-backoff bookkeeping.
type authService struct {
	deviceRepository store.DeviceRepository
	sessions         SessionService

	// challengeTTL is the validity window of an issued device challenge.
	challengeTTL time.Duration

	logger *logger.Logger
}

// NewAuthService constructs an AuthService wired to the given repository and
// session service. The returned service is safe for concurrent use.
func NewAuthService(deviceRepository store.DeviceRepository, sessions SessionService, cfg config.App, logger *logger.Logger) AuthService {
	return &authService{
		deviceRepository: deviceRepository,
		sessions:         sessions,
		challengeTTL:     cfg.ChallengeTTL,
		logger:           logger,
	}
}

// Authenticate runs the composite password+device flow.
//
// The evaluation order is deliberate and observable through the returned
// errors:
//  1. identity resolution (unknown device, deactivated vault, missing
//     device key) — all collapse into ErrAuthenticationFailed;
//  2. active lockout — *BlockedError, before the password is even looked at;
//  3. challenge expiry — ErrChallengeExpired;
//  4. password factor — a failure increments the counter and is reported
//     exclusively, without evaluating the device factor;
//  5. device factor — ErrBadDeviceResponse.
//
// On success the challenge and the error counter are cleared and a full
// session is minted.
func (a *authService) Authenticate(ctx context.Context, tenantID int64, req models.AuthenticateRequest) (models.Session, error) {
	log := logger.FromContext(ctx)

	if req.UserEmail == "" || req.DeviceID == "" || req.PasswordChallengeResponse == "" || req.DeviceChallengeResponse == "" {
		return models.Session{}, ErrInvalidDataProvided
	}

	device, err := a.loadDevice(ctx, tenantID, req.UserEmail, req.DeviceID)
	if err != nil {
		return models.Session{}, err
	}

	now := time.Now()

	errorCount := device.PasswordErrorCount
	lastSubmission := device.LastPasswordSubmissionAt
	if crypto.ShouldResetErrorCount(lastSubmission, now) {
		errorCount = 0
		lastSubmission = nil
	}

	if unblockAt := crypto.PasswordUnblockTime(lastSubmission, errorCount); unblockAt != nil && now.Before(*unblockAt) {
		log.Warn().
			Int64("deviceID", device.DeviceID).
			Time("nextRetryDate", *unblockAt).
			Msg("password factor locked out")
		return models.Session{}, &BlockedError{NextRetryDate: *unblockAt}
	}

	if err := checkChallengeWindow(device, now); err != nil {
		return models.Session{}, err
	}

	passwordOK, err := crypto.VerifyPasswordChallenge(device.EncryptedData, req.PasswordChallengeResponse)
	if err != nil {
		log.Err(err).Int64("vaultID", device.VaultID).Msg("stored password payload is unreadable")
		return models.Session{}, fmt.Errorf("password verification failed: %w", err)
	}

	if !passwordOK {
		newCount := errorCount + 1
		if err := a.deviceRepository.RecordPasswordFailure(ctx, device.DeviceID, newCount, now); err != nil {
			return models.Session{}, err
		}

		if unblockAt := crypto.PasswordUnblockTime(&now, newCount); unblockAt != nil {
			return models.Session{}, &BlockedError{NextRetryDate: *unblockAt}
		}
		return models.Session{}, ErrBadPassword
	}

	if !crypto.VerifyDeviceSignature(device.PendingChallenge, req.DeviceChallengeResponse, device.DevicePublicKey) {
		log.Warn().Int64("deviceID", device.DeviceID).Msg("device challenge signature rejected")
		return models.Session{}, ErrBadDeviceResponse
	}

	if err := a.deviceRepository.ClearAuthState(ctx, device.DeviceID); err != nil {
		return models.Session{}, err
	}

	return a.sessions.CreateSession(ctx, tenantID, req.UserEmail, req.DeviceID, false)
}

// AuthenticateDeviceOnly verifies the device factor alone. The password
// backoff state is untouched: only the challenge is consumed.
func (a *authService) AuthenticateDeviceOnly(ctx context.Context, tenantID int64, req models.DeviceOnlyAuthRequest) (models.DeviceAuth, models.Session, error) {
	auth, err := a.verifyDeviceFactor(ctx, tenantID, req)
	if err != nil {
		return models.DeviceAuth{}, models.Session{}, err
	}

	session, err := a.sessions.CreateSession(ctx, tenantID, req.UserEmail, req.DeviceID, true)
	if err != nil {
		return models.DeviceAuth{}, models.Session{}, err
	}

	return auth, session, nil
}

// IssueDeviceChallenge generates a fresh challenge and stores it on the
// device row, invalidating any previously issued challenge.
func (a *authService) IssueDeviceChallenge(ctx context.Context, tenantID int64, req models.DeviceChallengeRequest) (models.DeviceChallengeResponse, error) {
	if req.UserEmail == "" || req.DeviceID == "" {
		return models.DeviceChallengeResponse{}, ErrInvalidDataProvided
	}

	device, err := a.loadDevice(ctx, tenantID, req.UserEmail, req.DeviceID)
	if err != nil {
		return models.DeviceChallengeResponse{}, err
	}

	return a.issueChallenge(ctx, device.DeviceID)
}

// DeviceAuthWithChallenge is the single-endpoint variant of the device flow:
// an empty challenge response means "give me a challenge", a signed one
// means "authenticate me".
func (a *authService) DeviceAuthWithChallenge(ctx context.Context, tenantID int64, req models.DeviceOnlyAuthRequest) (models.DeviceAuth, *models.DeviceChallengeResponse, error) {
	if req.DeviceChallengeResponse == "" {
		device, err := a.loadDevice(ctx, tenantID, req.UserEmail, req.DeviceID)
		if err != nil {
			return models.DeviceAuth{}, nil, err
		}

		challenge, err := a.issueChallenge(ctx, device.DeviceID)
		if err != nil {
			return models.DeviceAuth{}, nil, err
		}
		return models.DeviceAuth{}, &challenge, nil
	}

	auth, err := a.verifyDeviceFactor(ctx, tenantID, req)
	if err != nil {
		return models.DeviceAuth{}, nil, err
	}

	return auth, nil, nil
}

// CheckBasicAuth validates the session envelope against the presented
// identity and runs the composed auth check in a single round trip.
func (a *authService) CheckBasicAuth(ctx context.Context, tenantID int64, req models.SessionRequest, opts ...store.AuthCheckOption) (models.AuthCheckResult, error) {
	if req.UserEmail == "" || req.DeviceID == "" || req.DeviceSession == "" {
		return models.AuthCheckResult{}, ErrInvalidDataProvided
	}

	if _, err := a.sessions.CheckSession(ctx, req.DeviceSession, tenantID, req.UserEmail, req.DeviceID, true); err != nil {
		return models.AuthCheckResult{}, err
	}

	result, err := a.deviceRepository.CheckAuthState(ctx, tenantID, req.UserEmail, req.DeviceID, opts...)
	if err != nil {
		if errors.Is(err, store.ErrAuthCheckNotGranted) {
			return models.AuthCheckResult{}, ErrSessionInvalid
		}
		return models.AuthCheckResult{}, err
	}

	return result, nil
}

// CheckDeviceAuth validates a device-only session token against the
// presented identity, then re-validates the device state: the token alone
// is not enough if the device has been revoked or the vault deactivated
// since it was minted. Full sessions pass as well.
func (a *authService) CheckDeviceAuth(ctx context.Context, tenantID int64, req models.DeviceSessionRequest) (models.DeviceAuth, error) {
	if req.UserEmail == "" || req.DeviceID == "" || req.DeviceOnlySession == "" {
		return models.DeviceAuth{}, ErrInvalidDataProvided
	}

	if _, err := a.sessions.CheckSession(ctx, req.DeviceOnlySession, tenantID, req.UserEmail, req.DeviceID, false); err != nil {
		return models.DeviceAuth{}, err
	}

	device, err := a.loadDevice(ctx, tenantID, req.UserEmail, req.DeviceID)
	if err != nil {
		return models.DeviceAuth{}, err
	}

	return models.DeviceAuth{VaultID: device.VaultID, DeviceID: device.DeviceID}, nil
}

// DevicesWithPasswordBackup lists the caller's devices that hold an
// encrypted local password backup, so a client that lost its password can
// find out where a backup still lives.
func (a *authService) DevicesWithPasswordBackup(ctx context.Context, tenantID int64, req models.DeviceSessionRequest) (models.DevicesWithPasswordBackupView, error) {
	auth, err := a.CheckDeviceAuth(ctx, tenantID, req)
	if err != nil {
		return models.DevicesWithPasswordBackupView{}, err
	}

	devices, err := a.deviceRepository.DevicesWithPasswordBackup(ctx, auth.VaultID)
	if err != nil {
		return models.DevicesWithPasswordBackupView{}, err
	}
	if devices == nil {
		devices = []models.DeviceWithPasswordBackup{}
	}

	return models.DevicesWithPasswordBackupView{Devices: devices}, nil
}

func (a *authService) loadDevice(ctx context.Context, tenantID int64, email, deviceUID string) (models.AuthDevice, error) {
	log := logger.FromContext(ctx)

	device, err := a.deviceRepository.FindAuthDevice(ctx, tenantID, email, deviceUID)
	if err != nil {
		if errors.Is(err, store.ErrDeviceNotFound) {
			log.Warn().Str("email", email).Str("deviceUID", deviceUID).Msg("no authorized device matches")
			return models.AuthDevice{}, ErrAuthenticationFailed
		}
		return models.AuthDevice{}, err
	}

	if device.Deactivated {
		log.Warn().Int64("vaultID", device.VaultID).Msg("vault is deactivated")
		return models.AuthDevice{}, ErrAuthenticationFailed
	}

	if device.DevicePublicKey == "" {
		log.Warn().Int64("deviceID", device.DeviceID).Msg("device has no registered public key")
		return models.AuthDevice{}, ErrAuthenticationFailed
	}

	return device, nil
}

func (a *authService) issueChallenge(ctx context.Context, deviceID int64) (models.DeviceChallengeResponse, error) {
	challenge, expiresAt, err := crypto.NewDeviceChallenge(time.Now(), a.challengeTTL)
	if err != nil {
		return models.DeviceChallengeResponse{}, fmt.Errorf("failed to generate device challenge: %w", err)
	}

	if err := a.deviceRepository.SetChallenge(ctx, deviceID, challenge, expiresAt); err != nil {
		return models.DeviceChallengeResponse{}, err
	}

	return models.DeviceChallengeResponse{DeviceChallenge: challenge}, nil
}

func (a *authService) verifyDeviceFactor(ctx context.Context, tenantID int64, req models.DeviceOnlyAuthRequest) (models.DeviceAuth, error) {
	log := logger.FromContext(ctx)

	if req.UserEmail == "" || req.DeviceID == "" || req.DeviceChallengeResponse == "" {
		return models.DeviceAuth{}, ErrInvalidDataProvided
	}

	device, err := a.loadDevice(ctx, tenantID, req.UserEmail, req.DeviceID)
	if err != nil {
		return models.DeviceAuth{}, err
	}

	if err := checkChallengeWindow(device, time.Now()); err != nil {
		return models.DeviceAuth{}, err
	}

	if !crypto.VerifyDeviceSignature(device.PendingChallenge, req.DeviceChallengeResponse, device.DevicePublicKey) {
		log.Warn().Int64("deviceID", device.DeviceID).Msg("device challenge signature rejected")
		return models.DeviceAuth{}, ErrBadDeviceResponse
	}

	if err := a.deviceRepository.ClearChallenge(ctx, device.DeviceID); err != nil {
		return models.DeviceAuth{}, err
	}

	return models.DeviceAuth{VaultID: device.VaultID, DeviceID: device.DeviceID}, nil
}

// checkChallengeWindow rejects devices without a pending challenge and
// challenges past their expiry time. A missing challenge is reported the
// same way as an expired one: in both cases the fix is requesting a fresh
// challenge.
func checkChallengeWindow(device models.AuthDevice, now time.Time) error {
	if device.PendingChallenge == "" || device.ChallengeExpiresAt == nil || now.After(*device.ChallengeExpiresAt) {
		return ErrChallengeExpired
	}
	return nil
}
