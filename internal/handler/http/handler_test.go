package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MKhiriev/go-vault-guard/internal/logger"
	"github.com/MKhiriev/go-vault-guard/internal/service"
	"github.com/MKhiriev/go-vault-guard/internal/store"
	"github.com/MKhiriev/go-vault-guard/models"
	"github.com/stretchr/testify/require"
)

const testTenantUUID = "6f1f9a36-2b9e-4a88-a53c-9d2b0f6b1a11"

// ─────────────────────────────────────────────
// Mock: store.TenantRepository
// ─────────────────────────────────────────────

type mockTenantRepository struct {
	resolveTenantFn func(ctx context.Context, publicUUID string) (int64, error)
}

func (m *mockTenantRepository) ResolveTenant(ctx context.Context, publicUUID string) (int64, error) {
	if m.resolveTenantFn != nil {
		return m.resolveTenantFn(ctx, publicUUID)
	}
	if publicUUID == testTenantUUID {
		return 1, nil
	}
	return 0, store.ErrTenantNotFound
}

// ─────────────────────────────────────────────
// Mock: service.AuthService
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

// ─────────────────────────────────────────────
// Mock: service.ShamirBackupService
// ─────────────────────────────────────────────

type mockBackupService struct {
	upsertBackupFn func(ctx context.Context, tenantID int64, req models.UpsertBackupRequest) error
	configsFn      func(ctx context.Context, tenantID int64, req models.SessionRequest) ([]models.ShamirConfigView, error)
}

func (m *mockBackupService) UpsertBackup(ctx context.Context, tenantID int64, req models.UpsertBackupRequest) error {
	if m.upsertBackupFn != nil {
		return m.upsertBackupFn(ctx, tenantID, req)
	}
	return nil
}

func (m *mockBackupService) Configs(ctx context.Context, tenantID int64, req models.SessionRequest) ([]models.ShamirConfigView, error) {
	if m.configsFn != nil {
		return m.configsFn(ctx, tenantID, req)
	}
	return nil, nil
}

// ─────────────────────────────────────────────
// Mock: service.ShamirRecoveryService
// ─────────────────────────────────────────────

type mockRecoveryService struct {
	requestRecoveryFn     func(ctx context.Context, tenantID int64, req models.RequestRecoveryRequest) (*models.DeviceChallengeResponse, error)
	statusFn              func(ctx context.Context, tenantID int64, req models.DeviceSessionRequest) (models.RecoveryStatusView, error)
	abortFn               func(ctx context.Context, tenantID int64, req models.DeviceOnlyAuthRequest) (*models.DeviceChallengeResponse, error)
	finishFn              func(ctx context.Context, tenantID int64, req models.SessionRequest) error
	openSharesFn          func(ctx context.Context, tenantID int64, req models.OpenSharesRequest) error
	denyFn                func(ctx context.Context, tenantID int64, req models.DenyRequest) error
	recoveriesToApproveFn func(ctx context.Context, tenantID int64, req models.SessionRequest) (models.RecoveriesToApproveView, error)
}

func (m *mockRecoveryService) RequestRecovery(ctx context.Context, tenantID int64, req models.RequestRecoveryRequest) (*models.DeviceChallengeResponse, error) {
	if m.requestRecoveryFn != nil {
		return m.requestRecoveryFn(ctx, tenantID, req)
	}
	return nil, nil
}

func (m *mockRecoveryService) Status(ctx context.Context, tenantID int64, req models.DeviceSessionRequest) (models.RecoveryStatusView, error) {
	if m.statusFn != nil {
		return m.statusFn(ctx, tenantID, req)
	}
	return models.RecoveryStatusView{}, nil
}

func (m *mockRecoveryService) Abort(ctx context.Context, tenantID int64, req models.DeviceOnlyAuthRequest) (*models.DeviceChallengeResponse, error) {
	if m.abortFn != nil {
		return m.abortFn(ctx, tenantID, req)
	}
	return nil, nil
}

func (m *mockRecoveryService) Finish(ctx context.Context, tenantID int64, req models.SessionRequest) error {
	if m.finishFn != nil {
		return m.finishFn(ctx, tenantID, req)
	}
	return nil
}

func (m *mockRecoveryService) OpenShares(ctx context.Context, tenantID int64, req models.OpenSharesRequest) error {
	if m.openSharesFn != nil {
		return m.openSharesFn(ctx, tenantID, req)
	}
	return nil
}

func (m *mockRecoveryService) Deny(ctx context.Context, tenantID int64, req models.DenyRequest) error {
	if m.denyFn != nil {
		return m.denyFn(ctx, tenantID, req)
	}
	return nil
}

func (m *mockRecoveryService) RecoveriesToApprove(ctx context.Context, tenantID int64, req models.SessionRequest) (models.RecoveriesToApproveView, error) {
	if m.recoveriesToApproveFn != nil {
		return m.recoveriesToApproveFn(ctx, tenantID, req)
	}
	return models.RecoveriesToApproveView{}, nil
}

func (m *mockRecoveryService) CleanupExpiredOpenShares(context.Context) (int64, error) {
	return 0, nil
}

// ─────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────

type handlerMocks struct {
	auth     *mockAuthService
	backup   *mockBackupService
	recovery *mockRecoveryService
	tenants  *mockTenantRepository
}

func newTestServer(t *testing.T, mocks handlerMocks) *httptest.Server {
	t.Helper()

	if mocks.auth == nil {
		mocks.auth = &mockAuthService{}
	}
	if mocks.backup == nil {
		mocks.backup = &mockBackupService{}
	}
	if mocks.recovery == nil {
		mocks.recovery = &mockRecoveryService{}
	}
	if mocks.tenants == nil {
		mocks.tenants = &mockTenantRepository{}
	}

	services := &service.Services{
		AuthService:           mocks.auth,
		ShamirBackupService:   mocks.backup,
		ShamirRecoveryService: mocks.recovery,
	}

	handler := NewHandler(services, mocks.tenants, logger.Nop())
	server := httptest.NewServer(handler.Init())
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, server *httptest.Server, path string, body any) *http.Response {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(server.URL+path, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func tenantPath(endpoint string) string {
	return "/api/" + testTenantUUID + endpoint
}
