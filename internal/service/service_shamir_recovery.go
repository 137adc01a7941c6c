package service

import (
	"context"
	"errors"
	"time"

	"github.com/MKhiriev/go-vault-guard/internal/config"
	"github.com/MKhiriev/go-vault-guard/internal/logger"
	"github.com/MKhiriev/go-vault-guard/internal/store"
	"github.com/MKhiriev/go-vault-guard/models"
)

// shamirRecoveryService is the concrete implementation of
// ShamirRecoveryService. RequestRecovery and Abort resolve their identity
// by device challenge (the vault password is what is being recovered);
// Status polls under a device-only session; Finish and the holder-side
// operations require a full session.
type shamirRecoveryService struct {
	auth             AuthService
	shamirRepository store.ShamirRepository

	// recoveryTTL is the lifetime of a recovery request.
	recoveryTTL time.Duration

	logger *logger.Logger
}

// NewShamirRecoveryService constructs a ShamirRecoveryService.
func NewShamirRecoveryService(auth AuthService, shamirRepository store.ShamirRepository, cfg config.App, logger *logger.Logger) ShamirRecoveryService {
	return &shamirRecoveryService{
		auth:             auth,
		shamirRepository: shamirRepository,
		recoveryTTL:      cfg.RecoveryRequestTTL,
		logger:           logger,
	}
}

// RequestRecovery opens a new recovery attempt for the device's vault.
// The configuration is resolved from the vault's existing backup; a vault
// that never uploaded one cannot be recovered (ErrConfigNotFound). Only one
// unexpired request per vault may be pending (ErrRecoveryAlreadyPending).
func (s *shamirRecoveryService) RequestRecovery(ctx context.Context, tenantID int64, req models.RequestRecoveryRequest) (*models.DeviceChallengeResponse, error) {
	log := logger.FromContext(ctx)

	auth, challenge, err := s.auth.DeviceAuthWithChallenge(ctx, tenantID, req.DeviceOnlyAuthRequest)
	if err != nil {
		return nil, err
	}
	if challenge != nil {
		return challenge, nil
	}

	if req.PublicKey == "" {
		return nil, ErrInvalidDataProvided
	}

	configID, err := s.shamirRepository.ResolveBackupConfig(ctx, auth.VaultID)
	if err != nil {
		if errors.Is(err, store.ErrConfigNotFound) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	now := time.Now()
	requestID, err := s.shamirRepository.CreateRecoveryRequest(ctx, auth.VaultID, auth.DeviceID, configID, req.PublicKey, now.Add(s.recoveryTTL))
	if err != nil {
		if errors.Is(err, store.ErrRecoveryAlreadyPending) {
			return nil, ErrRecoveryAlreadyPending
		}
		return nil, err
	}

	log.Info().
		Int64("vaultID", auth.VaultID).
		Int64("requestID", requestID).
		Int64("configID", configID).
		Msg("recovery request opened")
	return nil, nil
}

// Status reports the recovery progress of the device's vault. Gated by a
// device-only session so clients can poll it cheaply, without a challenge
// round trip per call.
func (s *shamirRecoveryService) Status(ctx context.Context, tenantID int64, req models.DeviceSessionRequest) (models.RecoveryStatusView, error) {
	auth, err := s.auth.CheckDeviceAuth(ctx, tenantID, req)
	if err != nil {
		return models.RecoveryStatusView{}, err
	}

	hasBackup, err := s.shamirRepository.HasBackup(ctx, auth.VaultID)
	if err != nil {
		return models.RecoveryStatusView{}, err
	}
	if !hasBackup {
		return models.RecoveryStatusView{Status: models.RecoveryStateNotSetup}, nil
	}

	request, err := s.shamirRepository.PendingUnexpiredRequestByDevice(ctx, auth.DeviceID, time.Now())
	if err != nil {
		if errors.Is(err, store.ErrNoPendingRequest) {
			return models.RecoveryStatusView{Status: models.RecoveryStateNoPendingRequest}, nil
		}
		return models.RecoveryStatusView{}, err
	}

	refused, err := s.shamirRepository.IsRefused(ctx, request.ID)
	if err != nil {
		return models.RecoveryStatusView{}, err
	}
	if refused {
		return models.RecoveryStatusView{Status: models.RecoveryStateRefused}, nil
	}

	return s.buildProgressView(ctx, request.ID)
}

// buildProgressView aggregates the per-holder share state into either a
// "pending" progress report or the "ready" view carrying every open share.
func (s *shamirRecoveryService) buildProgressView(ctx context.Context, requestID int64) (models.RecoveryStatusView, error) {
	minShares, err := s.shamirRepository.MinShares(ctx, requestID)
	if err != nil {
		return models.RecoveryStatusView{}, err
	}

	states, err := s.shamirRepository.HolderShareStates(ctx, requestID)
	if err != nil {
		return models.RecoveryStatusView{}, err
	}

	var openCount int
	var openShares [][]byte
	holderStatuses := make([]models.HolderStatus, 0, len(states))
	for _, state := range states {
		openCount += len(state.OpenShares)
		openShares = append(openShares, state.OpenShares...)
		holderStatuses = append(holderStatuses, models.HolderStatus{
			Email:     state.Email,
			NumShares: state.NumShares,
			// a holder is done only once every expected share is open
			Open: len(state.OpenShares) > 0 && len(state.OpenShares) == state.NumShares,
		})
	}

	if openCount >= minShares {
		return models.RecoveryStatusView{
			Status:     models.RecoveryStateReady,
			OpenShares: openShares,
		}, nil
	}

	return models.RecoveryStatusView{
		Status:         models.RecoveryStatePending,
		MissingShares:  minShares - openCount,
		NumOpenShares:  openCount,
		HolderStatuses: holderStatuses,
	}, nil
}

// Abort cancels the device's pending request and destroys every open share
// of the vault. Aborting with nothing pending is a no-op.
func (s *shamirRecoveryService) Abort(ctx context.Context, tenantID int64, req models.DeviceOnlyAuthRequest) (*models.DeviceChallengeResponse, error) {
	auth, challenge, err := s.auth.DeviceAuthWithChallenge(ctx, tenantID, req)
	if err != nil {
		return nil, err
	}
	if challenge != nil {
		return challenge, nil
	}

	if err := s.shamirRepository.AbortPendingByDevice(ctx, auth.DeviceID); err != nil {
		return nil, err
	}

	// open shares must never outlive the request they were opened for
	if err := s.shamirRepository.ClearOpenShares(ctx, auth.VaultID); err != nil {
		return nil, err
	}

	return nil, nil
}

// Finish marks the device's pending request COMPLETED after the client has
// reconstructed its secret, and destroys every open share of the vault.
// A recovered vault has re-authenticated fully by this point, so Finish is
// gated by a full session rather than a device challenge.
func (s *shamirRecoveryService) Finish(ctx context.Context, tenantID int64, req models.SessionRequest) error {
	result, err := s.auth.CheckBasicAuth(ctx, tenantID, req, store.WithDeviceID())
	if err != nil {
		return err
	}

	if err := s.shamirRepository.CompletePendingByDevice(ctx, result.DeviceID, time.Now()); err != nil {
		return err
	}

	// open shares must never outlive the request they were opened for
	return s.shamirRepository.ClearOpenShares(ctx, result.VaultID)
}

// OpenShares stores a holder's approval: the target's shares re-encrypted
// to the requesting device's ephemeral key. Requires a PENDING, unexpired
// request for the target vault.
func (s *shamirRecoveryService) OpenShares(ctx context.Context, tenantID int64, req models.OpenSharesRequest) error {
	log := logger.FromContext(ctx)

	result, err := s.auth.CheckBasicAuth(ctx, tenantID, req.SessionRequest)
	if err != nil {
		return err
	}

	if req.TargetVaultID == 0 || req.ConfigID == 0 || len(req.OpenShares) == 0 {
		return ErrInvalidDataProvided
	}

	now := time.Now()
	request, err := s.shamirRepository.PendingRequestByVaultConfig(ctx, req.TargetVaultID, req.ConfigID)
	if err != nil {
		if errors.Is(err, store.ErrNoPendingRequest) {
			return ErrNoPendingRecovery
		}
		return err
	}
	if now.After(request.ExpiryDate) {
		return ErrNoPendingRecovery
	}

	if err := s.shamirRepository.SetOpenShares(ctx, req.TargetVaultID, result.VaultID, req.ConfigID, req.OpenShares, now); err != nil {
		return err
	}

	log.Info().
		Int64("targetVaultID", req.TargetVaultID).
		Int64("holderVaultID", result.VaultID).
		Msg("holder opened shares")
	return nil
}

// Deny records the caller's refusal of the target's pending recovery.
// Denying twice, or denying a request that no longer exists, is a no-op.
func (s *shamirRecoveryService) Deny(ctx context.Context, tenantID int64, req models.DenyRequest) error {
	log := logger.FromContext(ctx)

	result, err := s.auth.CheckBasicAuth(ctx, tenantID, req.SessionRequest)
	if err != nil {
		return err
	}

	if req.TargetVaultID == 0 || req.ConfigID == 0 {
		return ErrInvalidDataProvided
	}

	requestID, err := s.shamirRepository.AppendDenial(ctx, req.TargetVaultID, result.VaultID, req.ConfigID, time.Now())
	if err != nil {
		return err
	}
	if requestID == 0 {
		return nil
	}

	refused, err := s.shamirRepository.IsRefused(ctx, requestID)
	if err != nil {
		return err
	}

	log.Info().
		Int64("requestID", requestID).
		Int64("holderVaultID", result.VaultID).
		Bool("refused", refused).
		Msg("holder denied recovery request")
	return nil
}

// RecoveriesToApprove lists every pending request the caller can still act
// on as a holder, along with whether the caller is a trusted holder at all.
func (s *shamirRecoveryService) RecoveriesToApprove(ctx context.Context, tenantID int64, req models.SessionRequest) (models.RecoveriesToApproveView, error) {
	result, err := s.auth.CheckBasicAuth(ctx, tenantID, req)
	if err != nil {
		return models.RecoveriesToApproveView{}, err
	}

	trusted, err := s.shamirRepository.IsTrustedHolder(ctx, result.VaultID)
	if err != nil {
		return models.RecoveriesToApproveView{}, err
	}

	if !trusted {
		return models.RecoveriesToApproveView{PendingRecoveryRequests: []models.RecoveryToApprove{}}, nil
	}

	recoveries, err := s.shamirRepository.RecoveriesToApprove(ctx, result.VaultID, time.Now())
	if err != nil {
		return models.RecoveriesToApproveView{}, err
	}
	if recoveries == nil {
		recoveries = []models.RecoveryToApprove{}
	}

	return models.RecoveriesToApproveView{
		IsShamirTrustedPerson:   true,
		PendingRecoveryRequests: recoveries,
	}, nil
}

// CleanupExpiredOpenShares is the sweep entry point: it nulls open shares
// for every vault without a valid PENDING request.
func (s *shamirRecoveryService) CleanupExpiredOpenShares(ctx context.Context) (int64, error) {
	log := logger.FromContext(ctx)

	cleared, err := s.shamirRepository.SweepExpiredOpenShares(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	if cleared > 0 {
		log.Info().Int64("cleared", cleared).Msg("expired open shares swept")
	}
	return cleared, nil
}
