// Copyright 2015 ISRG.  All rights reserved
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package cmd

import (
	"time"

	"github.com/letsencrypt/validator/v10"
)

var structValidator = validator.New()

// Config is the top-level JSON configuration shape read by
// cmd/x509validate (cmd/x509tail takes flags only), unmarshalled via
// ReadConfigFile and checked with github.com/letsencrypt/validator/v10
// (Boulder's fork of go-playground/validator) struct tags before
// any subsystem is constructed from it -- the same "validate, then wire"
// bootstrap order the teacher's AMQP/CA/RA/VA configs used.
//
// Note: NO DEFAULTS are provided; every required field must appear in the
// config file or validation fails at startup.
type Config struct {
	Validate ValidateConfig `json:"validate" validate:"required"`
}

// ValidateConfig configures the certificate-validation engine itself:
// trust anchors, revocation fetching, caching, and the admin surfaces
// (debug/metrics HTTP, OpenTelemetry export).
type ValidateConfig struct {
	// ListenAddr is where the POST /v1/validate HTTP surface (web package)
	// binds.
	ListenAddr string `json:"listenAddr" validate:"required,hostname_port"`

	// DebugAddr is where DebugServer's expvar/pprof/Prometheus endpoint
	// binds. Optional -- DebugServer is only started if non-empty.
	DebugAddr string `json:"debugAddr,omitempty" validate:"omitempty,hostname_port"`

	// TrustAnchorDir holds PEM-encoded root certificates loaded at startup
	// via LoadCert, forming the anchor set passed to chainbuild.Builder.
	TrustAnchorDir string `json:"trustAnchorDir" validate:"required,dir"`

	// WeakKeyBlacklistDir holds the RSA-modulus-suffix blacklist consumed
	// by goodkey.LoadBlacklistDir. Optional.
	WeakKeyBlacklistDir string `json:"weakKeyBlacklistDir,omitempty" validate:"omitempty,dir"`

	// MaxChainLength bounds chainbuild.Builder's search depth (spec.md's
	// I-CB-3).
	MaxChainLength int `json:"maxChainLength" validate:"required,min=1,max=20"`

	HTTPTimeout Duration `json:"httpTimeout" validate:"required"`

	CRLCache CRLCacheConfig `json:"crlCache" validate:"required"`
	OCSP     OCSPConfig     `json:"ocsp" validate:"required"`

	Telemetry TelemetryConfig `json:"telemetry"`

	Syslog SyslogConfig `json:"syslog"`
}

// CRLCacheConfig controls crlcache.Cache sizing. RefreshThreshold is parsed
// and validated but not passed to any component; the refresh window in
// effect is the crlcache.RefreshThreshold constant.
type CRLCacheConfig struct {
	MaxEntries       int      `json:"maxEntries" validate:"required,min=1"`
	RefreshThreshold Duration `json:"refreshThreshold" validate:"required"`
}

// OCSPConfig holds OCSP settings. MaxResponseAge is parsed and validated but
// not passed to ocspclient.Client, which uses its own
// ocspclient.MaxResponseAge constant.
type OCSPConfig struct {
	MaxResponseAge Duration `json:"maxResponseAge" validate:"required"`
}

// TelemetryConfig is passed through to telemetry.Setup. CollectorAddr
// empty disables span export but still installs an SDK TracerProvider
// with no exporter,
// so otelhttp instrumentation in fetcher.HTTPFetcher never has to check
// whether tracing is enabled.
type TelemetryConfig struct {
	ServiceName   string `json:"serviceName" validate:"required"`
	CollectorAddr string `json:"collectorAddr,omitempty"`
}

// SyslogConfig controls audit.Logger verbosity. StdoutLevel/SyslogLevel
// follow the teacher's convention of separate thresholds for the local
// console stream versus the aggregated log sink. This engine's
// logrus-backed audit.Logger reads neither: audit.New takes only a
// component name, and both fields are kept for config compatibility.
type SyslogConfig struct {
	SyslogLevel int `json:"syslogLevel"`
	StdoutLevel int `json:"stdoutLevel"`
}

// Duration is a time.Duration that unmarshals from JSON strings like
// "30s" or "1h", rather than requiring callers to write raw nanosecond
// integers in config files.
type Duration struct {
	time.Duration
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Duration.String() + `"`), nil
}

// LoadConfig reads filename as JSON into a Config and runs struct-tag
// validation over the result, so a malformed deployment config is caught
// at startup rather than the first time a field is dereferenced.
func LoadConfig(filename string) (Config, error) {
	var c Config
	if err := ReadConfigFile(filename, &c); err != nil {
		return Config{}, err
	}
	if err := structValidator.Struct(&c); err != nil {
		return Config{}, err
	}
	return c, nil
}
