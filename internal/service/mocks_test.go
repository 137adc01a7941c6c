package service

import (
	"context"
	"time"

	"github.com/MKhiriev/go-vault-guard/internal/store"
	"github.com/MKhiriev/go-vault-guard/models"
	"github.com/rs/zerolog"
)

func testContext() context.Context {
	l := zerolog.Nop()
	return l.WithContext(context.Background())
}

// ─────────────────────────────────────────────
// Mock: store.DeviceRepository
// ─────────────────────────────────────────────

type mockDeviceRepository struct {
	findAuthDeviceFn            func(ctx context.Context, tenantID int64, email, deviceUID string) (models.AuthDevice, error)
	setChallengeFn              func(ctx context.Context, deviceID int64, challenge string, expiresAt time.Time) error
	clearChallengeFn            func(ctx context.Context, deviceID int64) error
	clearAuthStateFn            func(ctx context.Context, deviceID int64) error
	recordPasswordFailureFn     func(ctx context.Context, deviceID int64, errorCount int, at time.Time) error
	checkAuthStateFn            func(ctx context.Context, tenantID int64, email, deviceUID string, opts ...store.AuthCheckOption) (models.AuthCheckResult, error)
	devicesWithPasswordBackupFn func(ctx context.Context, vaultID int64) ([]models.DeviceWithPasswordBackup, error)
}

func (m *mockDeviceRepository) FindAuthDevice(ctx context.Context, tenantID int64, email, deviceUID string) (models.AuthDevice, error) {
	if m.findAuthDeviceFn != nil {
		return m.findAuthDeviceFn(ctx, tenantID, email, deviceUID)
	}
	return models.AuthDevice{}, nil
}

func (m *mockDeviceRepository) SetChallenge(ctx context.Context, deviceID int64, challenge string, expiresAt time.Time) error {
	if m.setChallengeFn != nil {
		return m.setChallengeFn(ctx, deviceID, challenge, expiresAt)
	}
	return nil
}

func (m *mockDeviceRepository) ClearChallenge(ctx context.Context, deviceID int64) error {
	if m.clearChallengeFn != nil {
		return m.clearChallengeFn(ctx, deviceID)
	}
	return nil
}

func (m *mockDeviceRepository) ClearAuthState(ctx context.Context, deviceID int64) error {
	if m.clearAuthStateFn != nil {
		return m.clearAuthStateFn(ctx, deviceID)
	}
	return nil
}

func (m *mockDeviceRepository) RecordPasswordFailure(ctx context.Context, deviceID int64, errorCount int, at time.Time) error {
	if m.recordPasswordFailureFn != nil {
		return m.recordPasswordFailureFn(ctx, deviceID, errorCount, at)
	}
	return nil
}

func (m *mockDeviceRepository) CheckAuthState(ctx context.Context, tenantID int64, email, deviceUID string, opts ...store.AuthCheckOption) (models.AuthCheckResult, error) {
	if m.checkAuthStateFn != nil {
		return m.checkAuthStateFn(ctx, tenantID, email, deviceUID, opts...)
	}
	return models.AuthCheckResult{}, nil
}

func (m *mockDeviceRepository) DevicesWithPasswordBackup(ctx context.Context, vaultID int64) ([]models.DeviceWithPasswordBackup, error) {
	if m.devicesWithPasswordBackupFn != nil {
		return m.devicesWithPasswordBackupFn(ctx, vaultID)
	}
	return nil, nil
}

// ─────────────────────────────────────────────
// Mock: store.ShamirRepository
// ─────────────────────────────────────────────

type mockShamirRepository struct {
	hasBackupFn                       func(ctx context.Context, vaultID int64) (bool, error)
	resolveBackupConfigFn             func(ctx context.Context, vaultID int64) (int64, error)
	replaceBackupFn                   func(ctx context.Context, ownerVaultID, configID int64, holderShares []models.HolderShares) error
	createRecoveryRequestFn           func(ctx context.Context, vaultID, deviceID, configID int64, publicKey string, expiryDate time.Time) (int64, error)
	pendingRequestByVaultConfigFn     func(ctx context.Context, vaultID, configID int64) (models.ShamirRecoveryRequest, error)
	pendingUnexpiredRequestByDeviceFn func(ctx context.Context, deviceID int64, now time.Time) (models.ShamirRecoveryRequest, error)
	setOpenSharesFn                   func(ctx context.Context, ownerVaultID, holderVaultID, configID int64, openShares [][]byte, at time.Time) error
	appendDenialFn                    func(ctx context.Context, ownerVaultID, holderVaultID, configID int64, now time.Time) (int64, error)
	isRefusedFn                       func(ctx context.Context, requestID int64) (bool, error)
	minSharesFn                       func(ctx context.Context, requestID int64) (int, error)
	holderShareStatesFn               func(ctx context.Context, requestID int64) ([]models.HolderShareState, error)
	abortPendingByDeviceFn            func(ctx context.Context, deviceID int64) error
	completePendingByDeviceFn         func(ctx context.Context, deviceID int64, at time.Time) error
	clearOpenSharesFn                 func(ctx context.Context, vaultID int64) error
	sweepExpiredOpenSharesFn          func(ctx context.Context, now time.Time) (int64, error)
	recoveriesToApproveFn             func(ctx context.Context, holderVaultID int64, now time.Time) ([]models.RecoveryToApprove, error)
	isTrustedHolderFn                 func(ctx context.Context, vaultID int64) (bool, error)
	activeConfigsFn                   func(ctx context.Context, tenantID, vaultID int64) ([]models.ShamirConfigView, error)
}

func (m *mockShamirRepository) HasBackup(ctx context.Context, vaultID int64) (bool, error) {
	if m.hasBackupFn != nil {
		return m.hasBackupFn(ctx, vaultID)
	}
	return false, nil
}

func (m *mockShamirRepository) ResolveBackupConfig(ctx context.Context, vaultID int64) (int64, error) {
	if m.resolveBackupConfigFn != nil {
		return m.resolveBackupConfigFn(ctx, vaultID)
	}
	return 0, nil
}

func (m *mockShamirRepository) ReplaceBackup(ctx context.Context, ownerVaultID, configID int64, holderShares []models.HolderShares) error {
	if m.replaceBackupFn != nil {
		return m.replaceBackupFn(ctx, ownerVaultID, configID, holderShares)
	}
	return nil
}

func (m *mockShamirRepository) CreateRecoveryRequest(ctx context.Context, vaultID, deviceID, configID int64, publicKey string, expiryDate time.Time) (int64, error) {
	if m.createRecoveryRequestFn != nil {
		return m.createRecoveryRequestFn(ctx, vaultID, deviceID, configID, publicKey, expiryDate)
	}
	return 0, nil
}

func (m *mockShamirRepository) PendingRequestByVaultConfig(ctx context.Context, vaultID, configID int64) (models.ShamirRecoveryRequest, error) {
	if m.pendingRequestByVaultConfigFn != nil {
		return m.pendingRequestByVaultConfigFn(ctx, vaultID, configID)
	}
	return models.ShamirRecoveryRequest{}, nil
}

func (m *mockShamirRepository) PendingUnexpiredRequestByDevice(ctx context.Context, deviceID int64, now time.Time) (models.ShamirRecoveryRequest, error) {
	if m.pendingUnexpiredRequestByDeviceFn != nil {
		return m.pendingUnexpiredRequestByDeviceFn(ctx, deviceID, now)
	}
	return models.ShamirRecoveryRequest{}, nil
}

func (m *mockShamirRepository) SetOpenShares(ctx context.Context, ownerVaultID, holderVaultID, configID int64, openShares [][]byte, at time.Time) error {
	if m.setOpenSharesFn != nil {
		return m.setOpenSharesFn(ctx, ownerVaultID, holderVaultID, configID, openShares, at)
	}
	return nil
}

func (m *mockShamirRepository) AppendDenial(ctx context.Context, ownerVaultID, holderVaultID, configID int64, now time.Time) (int64, error) {
	if m.appendDenialFn != nil {
		return m.appendDenialFn(ctx, ownerVaultID, holderVaultID, configID, now)
	}
	return 0, nil
}

func (m *mockShamirRepository) IsRefused(ctx context.Context, requestID int64) (bool, error) {
	if m.isRefusedFn != nil {
		return m.isRefusedFn(ctx, requestID)
	}
	return false, nil
}

func (m *mockShamirRepository) MinShares(ctx context.Context, requestID int64) (int, error) {
	if m.minSharesFn != nil {
		return m.minSharesFn(ctx, requestID)
	}
	return 0, nil
}

func (m *mockShamirRepository) HolderShareStates(ctx context.Context, requestID int64) ([]models.HolderShareState, error) {
	if m.holderShareStatesFn != nil {
		return m.holderShareStatesFn(ctx, requestID)
	}
	return nil, nil
}

func (m *mockShamirRepository) AbortPendingByDevice(ctx context.Context, deviceID int64) error {
	if m.abortPendingByDeviceFn != nil {
		return m.abortPendingByDeviceFn(ctx, deviceID)
	}
	return nil
}

func (m *mockShamirRepository) CompletePendingByDevice(ctx context.Context, deviceID int64, at time.Time) error {
	if m.completePendingByDeviceFn != nil {
		return m.completePendingByDeviceFn(ctx, deviceID, at)
	}
	return nil
}

func (m *mockShamirRepository) ClearOpenShares(ctx context.Context, vaultID int64) error {
	if m.clearOpenSharesFn != nil {
		return m.clearOpenSharesFn(ctx, vaultID)
	}
	return nil
}

func (m *mockShamirRepository) SweepExpiredOpenShares(ctx context.Context, now time.Time) (int64, error) {
	if m.sweepExpiredOpenSharesFn != nil {
		return m.sweepExpiredOpenSharesFn(ctx, now)
	}
	return 0, nil
}

func (m *mockShamirRepository) RecoveriesToApprove(ctx context.Context, holderVaultID int64, now time.Time) ([]models.RecoveryToApprove, error) {
	if m.recoveriesToApproveFn != nil {
		return m.recoveriesToApproveFn(ctx, holderVaultID, now)
	}
	return nil, nil
}

func (m *mockShamirRepository) IsTrustedHolder(ctx context.Context, vaultID int64) (bool, error) {
	if m.isTrustedHolderFn != nil {
		return m.isTrustedHolderFn(ctx, vaultID)
	}
	return false, nil
}

func (m *mockShamirRepository) ActiveConfigs(ctx context.Context, tenantID, vaultID int64) ([]models.ShamirConfigView, error) {
	if m.activeConfigsFn != nil {
		return m.activeConfigsFn(ctx, tenantID, vaultID)
	}
	return nil, nil
}

// ─────────────────────────────────────────────
// Mock: AuthService (for the shamir services)
// ─────────────────────────────────────────────

type mockAuthService struct {
	authenticateFn              func(ctx context.Context, tenantID int64, req models.AuthenticateRequest) (models.Session, error)
	authenticateDeviceOnlyFn    func(ctx context.Context, tenantID int64, req models.DeviceOnlyAuthRequest) (models.DeviceAuth, models.Session, error)
	issueDeviceChallengeFn      func(ctx context.Context, tenantID int64, req models.DeviceChallengeRequest) (models.DeviceChallengeResponse, error)
	deviceAuthWithChallengeFn   func(ctx context.Context, tenantID int64, req models.DeviceOnlyAuthRequest) (models.DeviceAuth, *models.DeviceChallengeResponse, error)
	checkBasicAuthFn            func(ctx context.Context, tenantID int64, req models.SessionRequest, opts ...store.AuthCheckOption) (models.AuthCheckResult, error)
	checkDeviceAuthFn           func(ctx context.Context, tenantID int64, req models.DeviceSessionRequest) (models.DeviceAuth, error)
	devicesWithPasswordBackupFn func(ctx context.Context, tenantID int64, req models.DeviceSessionRequest) (models.DevicesWithPasswordBackupView, error)
}

func (m *mockAuthService) Authenticate(ctx context.Context, tenantID int64, req models.AuthenticateRequest) (models.Session, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, tenantID, req)
	}
	return models.Session{}, nil
}

func (m *mockAuthService) AuthenticateDeviceOnly(ctx context.Context, tenantID int64, req models.DeviceOnlyAuthRequest) (models.DeviceAuth, models.Session, error) {
	if m.authenticateDeviceOnlyFn != nil {
		return m.authenticateDeviceOnlyFn(ctx, tenantID, req)
	}
	return models.DeviceAuth{}, models.Session{}, nil
}

func (m *mockAuthService) IssueDeviceChallenge(ctx context.Context, tenantID int64, req models.DeviceChallengeRequest) (models.DeviceChallengeResponse, error) {
	if m.issueDeviceChallengeFn != nil {
		return m.issueDeviceChallengeFn(ctx, tenantID, req)
	}
	return models.DeviceChallengeResponse{}, nil
}

func (m *mockAuthService) DeviceAuthWithChallenge(ctx context.Context, tenantID int64, req models.DeviceOnlyAuthRequest) (models.DeviceAuth, *models.DeviceChallengeResponse, error) {
	if m.deviceAuthWithChallengeFn != nil {
		return m.deviceAuthWithChallengeFn(ctx, tenantID, req)
	}
	return models.DeviceAuth{}, nil, nil
}

func (m *mockAuthService) CheckBasicAuth(ctx context.Context, tenantID int64, req models.SessionRequest, opts ...store.AuthCheckOption) (models.AuthCheckResult, error) {
	if m.checkBasicAuthFn != nil {
		return m.checkBasicAuthFn(ctx, tenantID, req, opts...)
	}
	return models.AuthCheckResult{}, nil
}

func (m *mockAuthService) CheckDeviceAuth(ctx context.Context, tenantID int64, req models.DeviceSessionRequest) (models.DeviceAuth, error) {
	if m.checkDeviceAuthFn != nil {
		return m.checkDeviceAuthFn(ctx, tenantID, req)
	}
	return models.DeviceAuth{}, nil
}

func (m *mockAuthService) DevicesWithPasswordBackup(ctx context.Context, tenantID int64, req models.DeviceSessionRequest) (models.DevicesWithPasswordBackupView, error) {
	if m.devicesWithPasswordBackupFn != nil {
		return m.devicesWithPasswordBackupFn(ctx, tenantID, req)
	}
	return models.DevicesWithPasswordBackupView{}, nil
}
