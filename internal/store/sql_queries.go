package store

const (
	resolveTenant = `SELECT id FROM tenants WHERE public_uuid = $1;`

	findAuthDevice = `SELECT
		ud.id,
		u.id,
		u.deactivated,
		COALESCE(ud.device_public_key_2, ''),
		COALESCE(ud.session_auth_challenge, ''),
		ud.session_auth_challenge_exp_time,
		ud.password_challenge_error_count,
		ud.last_password_challenge_submission_date,
		COALESCE(u.encrypted_data_2, '')
	FROM user_devices AS ud
	INNER JOIN users AS u ON ud.user_id = u.id
	WHERE
		u.email = $1
		AND ud.device_unique_id = $2
		AND ud.authorization_status = 'AUTHORIZED'
		AND u.tenant_id = $3
	LIMIT 1;`

	setDeviceChallenge = `UPDATE user_devices
	SET session_auth_challenge = $2, session_auth_challenge_exp_time = $3
	WHERE id = $1;`

	clearDeviceChallenge = `UPDATE user_devices
	SET session_auth_challenge = NULL, session_auth_challenge_exp_time = NULL
	WHERE id = $1;`

	clearDeviceAuthState = `UPDATE user_devices
	SET
		session_auth_challenge = NULL,
		session_auth_challenge_exp_time = NULL,
		password_challenge_error_count = 0,
		last_password_challenge_submission_date = NULL
	WHERE id = $1;`

	recordPasswordFailure = `UPDATE user_devices
	SET password_challenge_error_count = $2, last_password_challenge_submission_date = $3
	WHERE id = $1;`

	devicesWithPasswordBackup = `SELECT
		COALESCE(device_name, ''),
		device_unique_id,
		COALESCE(device_type, ''),
		COALESCE(os_family, '')
	FROM user_devices
	WHERE
		authorization_status = 'AUTHORIZED'
		AND encrypted_password_backup_2 IS NOT NULL
		AND encrypted_password_backup_2 != ''
		AND user_id = $1;`

	hasBackup = `SELECT EXISTS(SELECT 1 FROM shamir_shares WHERE vault_id = $1);`

	resolveBackupConfig = `SELECT ss.shamir_config_id
	FROM shamir_shares AS ss
	INNER JOIN shamir_configs AS sc ON sc.id = ss.shamir_config_id
	WHERE ss.vault_id = $1
	ORDER BY ss.shamir_config_id
	LIMIT 1;`

	deleteOwnerShares = `DELETE FROM shamir_shares WHERE vault_id = $1;`

	holderNumShares = `SELECT nb_shares FROM shamir_holders
	WHERE vault_id = $1 AND shamir_config_id = $2;`

	insertShare = `INSERT INTO shamir_shares (vault_id, shamir_config_id, holder_vault_id, closed_shares)
	VALUES ($1, $2, $3, $4);`

	abortPendingForOwnerConfig = `UPDATE shamir_recovery_requests
	SET status = 'ABORTED'
	WHERE vault_id = $1 AND shamir_config_id = $2 AND status = 'PENDING';`

	abortExpiredPendingForVault = `UPDATE shamir_recovery_requests
	SET status = 'ABORTED'
	WHERE vault_id = $1 AND status = 'PENDING' AND expiry_date <= $2;`

	clearOpenSharesForVault = `UPDATE shamir_shares
	SET open_shares = NULL, open_at = NULL
	WHERE vault_id = $1;`

	insertRecoveryRequest = `INSERT INTO shamir_recovery_requests
		(vault_id, device_id, shamir_config_id, public_key, status, expiry_date)
	VALUES ($1, $2, $3, $4, 'PENDING', $5)
	RETURNING id;`

	pendingRequestByVaultConfig = `SELECT
		id, device_id, vault_id, shamir_config_id, COALESCE(public_key, ''),
		status, created_at, completed_at, expiry_date, denied_by
	FROM shamir_recovery_requests
	WHERE vault_id = $1 AND shamir_config_id = $2 AND status = 'PENDING'
	LIMIT 1;`

	pendingUnexpiredRequestByDevice = `SELECT
		id, device_id, vault_id, shamir_config_id, COALESCE(public_key, ''),
		status, created_at, completed_at, expiry_date, denied_by
	FROM shamir_recovery_requests
	WHERE device_id = $1 AND status = 'PENDING' AND expiry_date > $2
	LIMIT 1;`

	setOpenShares = `UPDATE shamir_shares
	SET open_shares = $4, open_at = $5
	WHERE vault_id = $1 AND holder_vault_id = $2 AND shamir_config_id = $3;`

	// appendDenial touches only a PENDING, unexpired request, requires the
	// denier to actually hold shares of this backup, and is idempotent via
	// the NOT(... = ANY(denied_by)) guard.
	appendDenial = `UPDATE shamir_recovery_requests AS srr
	SET denied_by = array_append(srr.denied_by, $2)
	FROM shamir_shares AS ss
	WHERE
		srr.vault_id = $1
		AND srr.shamir_config_id = $3
		AND srr.status = 'PENDING'
		AND srr.expiry_date > $4
		AND NOT ($2 = ANY(srr.denied_by))
		AND ss.vault_id = $1
		AND ss.holder_vault_id = $2
		AND ss.shamir_config_id = $3
	RETURNING srr.id;`

	// isRefused sums the shares still reachable through holders that have
	// not denied the request; the request is refused when even all of those
	// would not reach the quorum.
	isRefused = `SELECT
		(sc.min_shares > COALESCE(SUM(
			CASE
				WHEN sh.vault_id = ANY(srr.denied_by) THEN 0
				ELSE sh.nb_shares
			END
		), 0)) AS is_refused
	FROM shamir_recovery_requests AS srr
	INNER JOIN shamir_configs AS sc ON sc.id = srr.shamir_config_id
	LEFT JOIN shamir_holders AS sh ON sh.shamir_config_id = srr.shamir_config_id
	WHERE srr.id = $1
	GROUP BY sc.id, srr.id;`

	minSharesByRequest = `SELECT sc.min_shares
	FROM shamir_configs AS sc
	INNER JOIN shamir_recovery_requests AS srr ON srr.shamir_config_id = sc.id
	WHERE srr.id = $1;`

	// holderShareStates excludes shares the owner holds of its own backup:
	// only other holders count towards the quorum.
	holderShareStates = `SELECT
		sh.vault_id,
		u.email,
		sh.nb_shares,
		ss.open_shares
	FROM shamir_recovery_requests AS srr
	INNER JOIN shamir_shares AS ss
		ON ss.vault_id = srr.vault_id AND ss.shamir_config_id = srr.shamir_config_id
	INNER JOIN shamir_holders AS sh
		ON sh.vault_id = ss.holder_vault_id AND sh.shamir_config_id = ss.shamir_config_id
	INNER JOIN users AS u ON u.id = sh.vault_id
	WHERE srr.id = $1 AND ss.holder_vault_id != srr.vault_id;`

	abortPendingByDevice = `UPDATE shamir_recovery_requests
	SET status = 'ABORTED'
	WHERE device_id = $1 AND status = 'PENDING';`

	completePendingByDevice = `UPDATE shamir_recovery_requests
	SET status = 'COMPLETED', completed_at = $2
	WHERE device_id = $1 AND status = 'PENDING';`

	// sweepExpiredOpenShares nulls open shares for every owner without a
	// still-valid PENDING request. Monotone cleanup, safe to re-run.
	sweepExpiredOpenShares = `UPDATE shamir_shares
	SET open_shares = NULL, open_at = NULL
	WHERE
		open_shares IS NOT NULL
		AND NOT EXISTS (
			SELECT 1
			FROM shamir_recovery_requests AS srr
			WHERE
				srr.vault_id = shamir_shares.vault_id
				AND srr.status = 'PENDING'
				AND srr.expiry_date >= $1
		);`

	recoveriesToApprove = `SELECT
		ss.vault_id,
		u.email,
		COALESCE(ud.device_name, ''),
		COALESCE(ud.device_type, ''),
		COALESCE(ud.os_family, ''),
		t.name,
		ss.shamir_config_id,
		ss.closed_shares,
		COALESCE(srr.public_key, ''),
		srr.created_at,
		srr.expiry_date
	FROM shamir_recovery_requests AS srr
	INNER JOIN user_devices AS ud ON ud.id = srr.device_id
	INNER JOIN users AS u ON u.id = srr.vault_id
	INNER JOIN tenants AS t ON t.id = u.tenant_id
	INNER JOIN shamir_shares AS ss
		ON ss.vault_id = srr.vault_id AND ss.shamir_config_id = srr.shamir_config_id
	WHERE
		srr.status = 'PENDING'
		AND srr.expiry_date > $2
		AND (ss.open_shares IS NULL OR ARRAY_LENGTH(ss.open_shares, 1) < ARRAY_LENGTH(ss.closed_shares, 1))
		AND ud.authorization_status = 'AUTHORIZED'
		AND ss.holder_vault_id = $1
		AND NOT ($1 = ANY(srr.denied_by));`

	isTrustedHolder = `SELECT
		(EXISTS(SELECT 1
			FROM shamir_configs AS sc
			INNER JOIN shamir_holders AS sh ON sh.shamir_config_id = sc.id
			WHERE sc.is_active AND sh.vault_id = $1))
		OR
		(EXISTS(SELECT 1
			FROM shamir_shares AS ss
			WHERE ss.holder_vault_id = $1)) AS is_trusted_person;`

	activeConfigs = `SELECT id, name, min_shares
	FROM shamir_configs
	WHERE is_active AND tenant_id = $1
	ORDER BY id;`

	configHolders = `SELECT sh.vault_id, sh.nb_shares, u.email, COALESCE(u.sharing_public_key_2, '')
	FROM shamir_holders AS sh
	INNER JOIN users AS u ON u.id = sh.vault_id
	WHERE sh.shamir_config_id = $1
	ORDER BY sh.id;`

	configNeedsUpdate = `SELECT
		COUNT(ss.*) = 0
		OR COALESCE(SUM(ARRAY_LENGTH(ss.closed_shares, 1)), 0) <
			(SELECT COALESCE(SUM(sh.nb_shares), 0)
			 FROM shamir_holders AS sh
			 WHERE sh.shamir_config_id = $1)
	FROM shamir_shares AS ss
	WHERE ss.shamir_config_id = $1 AND ss.vault_id = $2;`
)
