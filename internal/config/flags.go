package config

import (
	"errors"
	"flag"
	"net"
	"strconv"
	"strings"
	"time"
)

// NetAddress holds structured network address data for host and port.
// It implements the flag.Value interface.
type NetAddress struct {
	Host string
	Port int
}

// ParseFlags parses all configuration flags.
//
// Flags:
//
//	-a server address in format [host]:[port]
//	-d database DSN
//	-c/-config json file path with configs
//	-session-sign-key session token signing key
//	-session-issuer session token issuer name
//	-session-duration full session lifetime (e.g., "12h")
//	-device-session-duration device-only session lifetime (e.g., "30m")
//	-challenge-ttl device challenge validity window (e.g., "3m")
//	-recovery-ttl recovery request validity window (e.g., "168h")
//	-request-timeout request timeout (e.g., "30s", "1m")
//	-sweep-cron cron spec of the daily open-shares sweep
func ParseFlags() *StructuredConfig {
	var serverAddress NetAddress
	var databaseDSN string
	var jsonConfigPath string
	var sessionSignKey string
	var sessionIssuer string
	var sessionDuration time.Duration
	var deviceSessionDuration time.Duration
	var challengeTTL time.Duration
	var recoveryTTL time.Duration
	var requestTimeout time.Duration
	var sweepCronSpec string

	flag.Var(&serverAddress, "a", "Net address host:port")
	flag.StringVar(&databaseDSN, "d", "", "Database DSN")
	flag.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	flag.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	flag.StringVar(&sessionSignKey, "session-sign-key", "", "Session token signing key")
	flag.StringVar(&sessionIssuer, "session-issuer", "", "Session token issuer")
	flag.DurationVar(&sessionDuration, "session-duration", 0, "Full session lifetime (e.g., 12h)")
	flag.DurationVar(&deviceSessionDuration, "device-session-duration", 0, "Device-only session lifetime (e.g., 30m)")
	flag.DurationVar(&challengeTTL, "challenge-ttl", 0, "Device challenge TTL (e.g., 3m)")
	flag.DurationVar(&recoveryTTL, "recovery-ttl", 0, "Recovery request TTL (e.g., 168h)")
	flag.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 30s, 1m)")
	flag.StringVar(&sweepCronSpec, "sweep-cron", "", "Cron spec of the daily open-shares sweep")

	flag.Parse()

	return &StructuredConfig{
		App: App{
			SessionSignKey:            sessionSignKey,
			SessionIssuer:             sessionIssuer,
			SessionDuration:           sessionDuration,
			DeviceOnlySessionDuration: deviceSessionDuration,
			ChallengeTTL:              challengeTTL,
			RecoveryRequestTTL:        recoveryTTL,
		},
		Storage: Storage{
			DB: DB{
				DSN: databaseDSN,
			},
		},
		Server: Server{
			HTTPAddress:    serverAddress.String(),
			RequestTimeout: requestTimeout,
		},
		Workers: Workers{
			SweepCronSpec: sweepCronSpec,
		},
		JSONFilePath: jsonConfigPath,
	}
}

// String returns a canonical host:port string for a NetAddress.
// If neither Host nor Port are set, it returns an empty string.
func (a *NetAddress) String() string {
	if a.Host == "" && a.Port == 0 {
		return ""
	}

	return a.Host + ":" + strconv.Itoa(a.Port)
}

// Set parses the input string of form host:port and populates the NetAddress.
// It validates the port range, checks IP correctness unless host is "localhost",
// and returns an error if the format or values are invalid.
func (a *NetAddress) Set(s string) error {
	hostAndPort := strings.Split(s, ":")
	if len(hostAndPort) != 2 {
		return errors.New("need address in a form `host:port`")
	}

	host := hostAndPort[0]
	port, err := strconv.Atoi(hostAndPort[1])
	if err != nil {
		return err
	}

	if port < 1 {
		return errors.New("port number is a positive integer")
	}

	if host != "localhost" {
		ip := net.ParseIP(hostAndPort[0])
		if ip == nil {
			return errors.New("incorrect IP-address provided")
		}
	}

	a.Host = host
	a.Port = port
	return nil
}
