package service

import (
	"context"
	"testing"
	"time"

	"github.com/MKhiriev/go-vault-guard/internal/config"
	"github.com/MKhiriev/go-vault-guard/internal/logger"
	"github.com/MKhiriev/go-vault-guard/internal/store"
	"github.com/MKhiriev/go-vault-guard/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authorizedDevice(vaultID, deviceID int64) *mockAuthService {
	return &mockAuthService{
		deviceAuthWithChallengeFn: func(ctx context.Context, tenantID int64, req models.DeviceOnlyAuthRequest) (models.DeviceAuth, *models.DeviceChallengeResponse, error) {
			return models.DeviceAuth{VaultID: vaultID, DeviceID: deviceID}, nil, nil
		},
		checkDeviceAuthFn: func(ctx context.Context, tenantID int64, req models.DeviceSessionRequest) (models.DeviceAuth, error) {
			return models.DeviceAuth{VaultID: vaultID, DeviceID: deviceID}, nil
		},
		checkBasicAuthFn: func(ctx context.Context, tenantID int64, req models.SessionRequest, opts ...store.AuthCheckOption) (models.AuthCheckResult, error) {
			return models.AuthCheckResult{VaultID: vaultID, DeviceID: deviceID}, nil
		},
	}
}

func newRecoveryService(auth AuthService, repo store.ShamirRepository) ShamirRecoveryService {
	return NewShamirRecoveryService(auth, repo, config.App{RecoveryRequestTTL: 7 * 24 * time.Hour}, logger.Nop())
}

func deviceReq() models.DeviceOnlyAuthRequest {
	return models.DeviceOnlyAuthRequest{
		UserEmail:               "owner@example.com",
		DeviceID:                "fp-01",
		DeviceChallengeResponse: "signed",
	}
}

func deviceSessionReq() models.DeviceSessionRequest {
	return models.DeviceSessionRequest{
		UserEmail:         "owner@example.com",
		DeviceID:          "fp-01",
		DeviceOnlySession: "token",
	}
}

func TestRequestRecovery(t *testing.T) {
	t.Run("success: expiry set seven days out", func(t *testing.T) {
		var gotExpiry time.Time
		repo := &mockShamirRepository{
			resolveBackupConfigFn: func(ctx context.Context, vaultID int64) (int64, error) {
				assert.Equal(t, int64(42), vaultID)
				return 5, nil
			},
			createRecoveryRequestFn: func(ctx context.Context, vaultID, deviceID, configID int64, publicKey string, expiryDate time.Time) (int64, error) {
				assert.Equal(t, int64(42), vaultID)
				assert.Equal(t, int64(7), deviceID)
				assert.Equal(t, int64(5), configID)
				assert.Equal(t, "ephemeralKey", publicKey)
				gotExpiry = expiryDate
				return 99, nil
			},
		}

		challenge, err := newRecoveryService(authorizedDevice(42, 7), repo).RequestRecovery(testContext(), 1, models.RequestRecoveryRequest{
			DeviceOnlyAuthRequest: deviceReq(),
			PublicKey:             "ephemeralKey",
		})

		require.NoError(t, err)
		assert.Nil(t, challenge)
		assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), gotExpiry, 5*time.Second)
	})

	t.Run("challenge issued when response is empty", func(t *testing.T) {
		auth := &mockAuthService{
			deviceAuthWithChallengeFn: func(ctx context.Context, tenantID int64, req models.DeviceOnlyAuthRequest) (models.DeviceAuth, *models.DeviceChallengeResponse, error) {
				return models.DeviceAuth{}, &models.DeviceChallengeResponse{DeviceChallenge: "fresh"}, nil
			},
		}
		repo := &mockShamirRepository{
			createRecoveryRequestFn: func(ctx context.Context, vaultID, deviceID, configID int64, publicKey string, expiryDate time.Time) (int64, error) {
				t.Fatal("no request expected before the device is authenticated")
				return 0, nil
			},
		}

		challenge, err := newRecoveryService(auth, repo).RequestRecovery(testContext(), 1, models.RequestRecoveryRequest{
			DeviceOnlyAuthRequest: models.DeviceOnlyAuthRequest{UserEmail: "owner@example.com", DeviceID: "fp-01"},
		})

		require.NoError(t, err)
		require.NotNil(t, challenge)
		assert.Equal(t, "fresh", challenge.DeviceChallenge)
	})

	t.Run("error: vault without backup", func(t *testing.T) {
		repo := &mockShamirRepository{
			resolveBackupConfigFn: func(ctx context.Context, vaultID int64) (int64, error) {
				return 0, store.ErrConfigNotFound
			},
		}

		_, err := newRecoveryService(authorizedDevice(42, 7), repo).RequestRecovery(testContext(), 1, models.RequestRecoveryRequest{
			DeviceOnlyAuthRequest: deviceReq(),
			PublicKey:             "ephemeralKey",
		})

		assert.ErrorIs(t, err, ErrConfigNotFound)
	})

	t.Run("error: request already pending", func(t *testing.T) {
		repo := &mockShamirRepository{
			resolveBackupConfigFn: func(ctx context.Context, vaultID int64) (int64, error) { return 5, nil },
			createRecoveryRequestFn: func(ctx context.Context, vaultID, deviceID, configID int64, publicKey string, expiryDate time.Time) (int64, error) {
				return 0, store.ErrRecoveryAlreadyPending
			},
		}

		_, err := newRecoveryService(authorizedDevice(42, 7), repo).RequestRecovery(testContext(), 1, models.RequestRecoveryRequest{
			DeviceOnlyAuthRequest: deviceReq(),
			PublicKey:             "ephemeralKey",
		})

		assert.ErrorIs(t, err, ErrRecoveryAlreadyPending)
	})

	t.Run("error: missing ephemeral key", func(t *testing.T) {
		_, err := newRecoveryService(authorizedDevice(42, 7), &mockShamirRepository{}).RequestRecovery(testContext(), 1, models.RequestRecoveryRequest{
			DeviceOnlyAuthRequest: deviceReq(),
		})

		assert.ErrorIs(t, err, ErrInvalidDataProvided)
	})
}

func TestStatus(t *testing.T) {
	pendingRequest := models.ShamirRecoveryRequest{ID: 99, VaultID: 42, ConfigID: 5, Status: models.RecoveryPending}

	t.Run("not setup", func(t *testing.T) {
		repo := &mockShamirRepository{
			hasBackupFn: func(ctx context.Context, vaultID int64) (bool, error) { return false, nil },
		}

		view, err := newRecoveryService(authorizedDevice(42, 7), repo).Status(testContext(), 1, deviceSessionReq())

		require.NoError(t, err)
		assert.Equal(t, models.RecoveryStateNotSetup, view.Status)
	})

	t.Run("device-only session is enough", func(t *testing.T) {
		auth := &mockAuthService{
			checkDeviceAuthFn: func(ctx context.Context, tenantID int64, req models.DeviceSessionRequest) (models.DeviceAuth, error) {
				assert.Equal(t, "token", req.DeviceOnlySession)
				return models.DeviceAuth{VaultID: 42, DeviceID: 7}, nil
			},
			deviceAuthWithChallengeFn: func(ctx context.Context, tenantID int64, req models.DeviceOnlyAuthRequest) (models.DeviceAuth, *models.DeviceChallengeResponse, error) {
				t.Fatal("polling must not trigger a challenge round trip")
				return models.DeviceAuth{}, nil, nil
			},
		}
		repo := &mockShamirRepository{
			hasBackupFn: func(ctx context.Context, vaultID int64) (bool, error) { return false, nil },
		}

		_, err := newRecoveryService(auth, repo).Status(testContext(), 1, deviceSessionReq())

		require.NoError(t, err)
	})

	t.Run("session rejected", func(t *testing.T) {
		auth := &mockAuthService{
			checkDeviceAuthFn: func(ctx context.Context, tenantID int64, req models.DeviceSessionRequest) (models.DeviceAuth, error) {
				return models.DeviceAuth{}, ErrSessionInvalid
			},
		}

		_, err := newRecoveryService(auth, &mockShamirRepository{}).Status(testContext(), 1, deviceSessionReq())

		assert.ErrorIs(t, err, ErrSessionInvalid)
	})

	t.Run("no pending request", func(t *testing.T) {
		repo := &mockShamirRepository{
			hasBackupFn: func(ctx context.Context, vaultID int64) (bool, error) { return true, nil },
			pendingUnexpiredRequestByDeviceFn: func(ctx context.Context, deviceID int64, now time.Time) (models.ShamirRecoveryRequest, error) {
				return models.ShamirRecoveryRequest{}, store.ErrNoPendingRequest
			},
		}

		view, err := newRecoveryService(authorizedDevice(42, 7), repo).Status(testContext(), 1, deviceSessionReq())

		require.NoError(t, err)
		assert.Equal(t, models.RecoveryStateNoPendingRequest, view.Status)
	})

	t.Run("refused", func(t *testing.T) {
		repo := &mockShamirRepository{
			hasBackupFn: func(ctx context.Context, vaultID int64) (bool, error) { return true, nil },
			pendingUnexpiredRequestByDeviceFn: func(ctx context.Context, deviceID int64, now time.Time) (models.ShamirRecoveryRequest, error) {
				return pendingRequest, nil
			},
			isRefusedFn: func(ctx context.Context, requestID int64) (bool, error) { return true, nil },
		}

		view, err := newRecoveryService(authorizedDevice(42, 7), repo).Status(testContext(), 1, deviceSessionReq())

		require.NoError(t, err)
		assert.Equal(t, models.RecoveryStateRefused, view.Status)
	})

	t.Run("pending with holder progress", func(t *testing.T) {
		repo := &mockShamirRepository{
			hasBackupFn: func(ctx context.Context, vaultID int64) (bool, error) { return true, nil },
			pendingUnexpiredRequestByDeviceFn: func(ctx context.Context, deviceID int64, now time.Time) (models.ShamirRecoveryRequest, error) {
				return pendingRequest, nil
			},
			minSharesFn: func(ctx context.Context, requestID int64) (int, error) { return 4, nil },
			holderShareStatesFn: func(ctx context.Context, requestID int64) ([]models.HolderShareState, error) {
				return []models.HolderShareState{
					{HolderVaultID: 11, Email: "one@example.com", NumShares: 1, OpenShares: [][]byte{[]byte("s1")}},
					{HolderVaultID: 12, Email: "two@example.com", NumShares: 2, OpenShares: [][]byte{[]byte("s2")}},
					{HolderVaultID: 13, Email: "three@example.com", NumShares: 1},
				}, nil
			},
		}

		view, err := newRecoveryService(authorizedDevice(42, 7), repo).Status(testContext(), 1, deviceSessionReq())

		require.NoError(t, err)
		assert.Equal(t, models.RecoveryStatePending, view.Status)
		assert.Equal(t, 2, view.MissingShares)
		assert.Equal(t, 2, view.NumOpenShares)
		require.Len(t, view.HolderStatuses, 3)
		assert.True(t, view.HolderStatuses[0].Open)
		// a holder with only part of its shares open is still outstanding
		assert.False(t, view.HolderStatuses[1].Open)
		assert.False(t, view.HolderStatuses[2].Open)
		assert.Empty(t, view.OpenShares)
	})

	t.Run("ready when quorum reached", func(t *testing.T) {
		repo := &mockShamirRepository{
			hasBackupFn: func(ctx context.Context, vaultID int64) (bool, error) { return true, nil },
			pendingUnexpiredRequestByDeviceFn: func(ctx context.Context, deviceID int64, now time.Time) (models.ShamirRecoveryRequest, error) {
				return pendingRequest, nil
			},
			minSharesFn: func(ctx context.Context, requestID int64) (int, error) { return 2, nil },
			holderShareStatesFn: func(ctx context.Context, requestID int64) ([]models.HolderShareState, error) {
				return []models.HolderShareState{
					{HolderVaultID: 11, NumShares: 2, OpenShares: [][]byte{[]byte("s1"), []byte("s2")}},
				}, nil
			},
		}

		view, err := newRecoveryService(authorizedDevice(42, 7), repo).Status(testContext(), 1, deviceSessionReq())

		require.NoError(t, err)
		assert.Equal(t, models.RecoveryStateReady, view.Status)
		assert.Equal(t, [][]byte{[]byte("s1"), []byte("s2")}, view.OpenShares)
	})
}

func TestAbortAndFinishClearOpenShares(t *testing.T) {
	t.Run("abort", func(t *testing.T) {
		var aborted, cleared bool
		repo := &mockShamirRepository{
			abortPendingByDeviceFn: func(ctx context.Context, deviceID int64) error {
				assert.Equal(t, int64(7), deviceID)
				aborted = true
				return nil
			},
			clearOpenSharesFn: func(ctx context.Context, vaultID int64) error {
				assert.Equal(t, int64(42), vaultID)
				cleared = true
				return nil
			},
		}

		challenge, err := newRecoveryService(authorizedDevice(42, 7), repo).Abort(testContext(), 1, deviceReq())

		require.NoError(t, err)
		assert.Nil(t, challenge)
		assert.True(t, aborted)
		assert.True(t, cleared)
	})

	t.Run("finish", func(t *testing.T) {
		var completed, cleared bool
		auth := &mockAuthService{
			checkBasicAuthFn: func(ctx context.Context, tenantID int64, req models.SessionRequest, opts ...store.AuthCheckOption) (models.AuthCheckResult, error) {
				// the device id must come back from the same auth round trip
				require.Len(t, opts, 1)
				return models.AuthCheckResult{VaultID: 42, DeviceID: 7}, nil
			},
		}
		repo := &mockShamirRepository{
			completePendingByDeviceFn: func(ctx context.Context, deviceID int64, at time.Time) error {
				assert.Equal(t, int64(7), deviceID)
				completed = true
				return nil
			},
			clearOpenSharesFn: func(ctx context.Context, vaultID int64) error {
				assert.Equal(t, int64(42), vaultID)
				cleared = true
				return nil
			},
		}

		err := newRecoveryService(auth, repo).Finish(testContext(), 1, models.SessionRequest{
			UserEmail:     "owner@example.com",
			DeviceID:      "fp-01",
			DeviceSession: "token",
		})

		require.NoError(t, err)
		assert.True(t, completed)
		assert.True(t, cleared)
	})

	t.Run("finish rejects a device-only session", func(t *testing.T) {
		auth := &mockAuthService{
			checkBasicAuthFn: func(ctx context.Context, tenantID int64, req models.SessionRequest, opts ...store.AuthCheckOption) (models.AuthCheckResult, error) {
				return models.AuthCheckResult{}, ErrSessionInvalid
			},
		}
		repo := &mockShamirRepository{
			completePendingByDeviceFn: func(ctx context.Context, deviceID int64, at time.Time) error {
				t.Fatal("no completion expected without a full session")
				return nil
			},
		}

		err := newRecoveryService(auth, repo).Finish(testContext(), 1, models.SessionRequest{
			UserEmail:     "owner@example.com",
			DeviceID:      "fp-01",
			DeviceSession: "device-only-token",
		})

		assert.ErrorIs(t, err, ErrSessionInvalid)
	})
}

func TestOpenShares(t *testing.T) {
	sessionReq := models.SessionRequest{UserEmail: "holder@example.com", DeviceID: "fp-02", DeviceSession: "token"}

	t.Run("success", func(t *testing.T) {
		var stored bool
		repo := &mockShamirRepository{
			pendingRequestByVaultConfigFn: func(ctx context.Context, vaultID, configID int64) (models.ShamirRecoveryRequest, error) {
				return models.ShamirRecoveryRequest{ID: 99, ExpiryDate: time.Now().Add(time.Hour)}, nil
			},
			setOpenSharesFn: func(ctx context.Context, ownerVaultID, holderVaultID, configID int64, openShares [][]byte, at time.Time) error {
				assert.Equal(t, int64(42), ownerVaultID)
				assert.Equal(t, int64(11), holderVaultID)
				stored = true
				return nil
			},
		}

		err := newRecoveryService(authorizedDevice(11, 0), repo).OpenShares(testContext(), 1, models.OpenSharesRequest{
			SessionRequest: sessionReq,
			TargetVaultID:  42,
			ConfigID:       5,
			OpenShares:     [][]byte{[]byte("reencrypted")},
		})

		require.NoError(t, err)
		assert.True(t, stored)
	})

	t.Run("error: request expired", func(t *testing.T) {
		repo := &mockShamirRepository{
			pendingRequestByVaultConfigFn: func(ctx context.Context, vaultID, configID int64) (models.ShamirRecoveryRequest, error) {
				return models.ShamirRecoveryRequest{ID: 99, ExpiryDate: time.Now().Add(-time.Minute)}, nil
			},
			setOpenSharesFn: func(ctx context.Context, ownerVaultID, holderVaultID, configID int64, openShares [][]byte, at time.Time) error {
				t.Fatal("no shares may be stored for an expired request")
				return nil
			},
		}

		err := newRecoveryService(authorizedDevice(11, 0), repo).OpenShares(testContext(), 1, models.OpenSharesRequest{
			SessionRequest: sessionReq,
			TargetVaultID:  42,
			ConfigID:       5,
			OpenShares:     [][]byte{[]byte("reencrypted")},
		})

		assert.ErrorIs(t, err, ErrNoPendingRecovery)
	})

	t.Run("error: no pending request", func(t *testing.T) {
		repo := &mockShamirRepository{
			pendingRequestByVaultConfigFn: func(ctx context.Context, vaultID, configID int64) (models.ShamirRecoveryRequest, error) {
				return models.ShamirRecoveryRequest{}, store.ErrNoPendingRequest
			},
		}

		err := newRecoveryService(authorizedDevice(11, 0), repo).OpenShares(testContext(), 1, models.OpenSharesRequest{
			SessionRequest: sessionReq,
			TargetVaultID:  42,
			ConfigID:       5,
			OpenShares:     [][]byte{[]byte("reencrypted")},
		})

		assert.ErrorIs(t, err, ErrNoPendingRecovery)
	})
}

func TestDeny(t *testing.T) {
	sessionReq := models.SessionRequest{UserEmail: "holder@example.com", DeviceID: "fp-02", DeviceSession: "token"}

	t.Run("denial recorded and refusal recomputed", func(t *testing.T) {
		var refusalChecked bool
		repo := &mockShamirRepository{
			appendDenialFn: func(ctx context.Context, ownerVaultID, holderVaultID, configID int64, now time.Time) (int64, error) {
				assert.Equal(t, int64(11), holderVaultID)
				return 99, nil
			},
			isRefusedFn: func(ctx context.Context, requestID int64) (bool, error) {
				assert.Equal(t, int64(99), requestID)
				refusalChecked = true
				return true, nil
			},
		}

		err := newRecoveryService(authorizedDevice(11, 0), repo).Deny(testContext(), 1, models.DenyRequest{
			SessionRequest: sessionReq,
			TargetVaultID:  42,
			ConfigID:       5,
		})

		require.NoError(t, err)
		assert.True(t, refusalChecked)
	})

	t.Run("repeated denial is a no-op", func(t *testing.T) {
		repo := &mockShamirRepository{
			appendDenialFn: func(ctx context.Context, ownerVaultID, holderVaultID, configID int64, now time.Time) (int64, error) {
				return 0, nil
			},
			isRefusedFn: func(ctx context.Context, requestID int64) (bool, error) {
				t.Fatal("no refusal check expected for a no-op denial")
				return false, nil
			},
		}

		err := newRecoveryService(authorizedDevice(11, 0), repo).Deny(testContext(), 1, models.DenyRequest{
			SessionRequest: sessionReq,
			TargetVaultID:  42,
			ConfigID:       5,
		})

		assert.NoError(t, err)
	})
}

func TestRecoveriesToApprove(t *testing.T) {
	sessionReq := models.SessionRequest{UserEmail: "holder@example.com", DeviceID: "fp-02", DeviceSession: "token"}

	t.Run("untrusted caller gets an empty listing", func(t *testing.T) {
		repo := &mockShamirRepository{
			isTrustedHolderFn: func(ctx context.Context, vaultID int64) (bool, error) { return false, nil },
			recoveriesToApproveFn: func(ctx context.Context, holderVaultID int64, now time.Time) ([]models.RecoveryToApprove, error) {
				t.Fatal("no listing expected for an untrusted caller")
				return nil, nil
			},
		}

		view, err := newRecoveryService(authorizedDevice(11, 0), repo).RecoveriesToApprove(testContext(), 1, sessionReq)

		require.NoError(t, err)
		assert.False(t, view.IsShamirTrustedPerson)
		assert.Empty(t, view.PendingRecoveryRequests)
		assert.NotNil(t, view.PendingRecoveryRequests)
	})

	t.Run("trusted caller gets pending requests", func(t *testing.T) {
		repo := &mockShamirRepository{
			isTrustedHolderFn: func(ctx context.Context, vaultID int64) (bool, error) { return true, nil },
			recoveriesToApproveFn: func(ctx context.Context, holderVaultID int64, now time.Time) ([]models.RecoveryToApprove, error) {
				return []models.RecoveryToApprove{{OwnerVaultID: 42, Email: "owner@example.com"}}, nil
			},
		}

		view, err := newRecoveryService(authorizedDevice(11, 0), repo).RecoveriesToApprove(testContext(), 1, sessionReq)

		require.NoError(t, err)
		assert.True(t, view.IsShamirTrustedPerson)
		require.Len(t, view.PendingRecoveryRequests, 1)
		assert.Equal(t, int64(42), view.PendingRecoveryRequests[0].OwnerVaultID)
	})
}

func TestCleanupExpiredOpenShares(t *testing.T) {
	repo := &mockShamirRepository{
		sweepExpiredOpenSharesFn: func(ctx context.Context, now time.Time) (int64, error) {
			return 4, nil
		},
	}

	cleared, err := newRecoveryService(&mockAuthService{}, repo).CleanupExpiredOpenShares(testContext())

	require.NoError(t, err)
	assert.Equal(t, int64(4), cleared)
}
