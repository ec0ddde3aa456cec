// Package rules implements the derivation engine for the application
// platform: pure, deterministic functions that compute secondary facts
// (document requirements, lock status, progress, deadlines) from student
// and application snapshots. The package performs no I/O and holds no
// mutable state; every function is safe to call concurrently.
package rules

import (
	"strings"
	"time"
)

// DefaultApprovalCountries lists the country codes whose applications are
// unlocked by policy unless the underlying program data is stale.
var DefaultApprovalCountries = []string{"de", "nl", "uk", "ch", "se", "at"}

const (
	// DefaultStalenessWindow is the age after which program data is
	// considered stale. Historically labelled "6 months" even though it
	// is 270 days; kept verbatim pending product confirmation.
	DefaultStalenessWindow = 270 * 24 * time.Hour

	// DefaultTestDateValidity bounds how old a pending language test may
	// be before it stops counting as filled.
	// TODO: confirm the intended certificate validity window with
	// product; 1 day matches current behaviour but certificates are
	// normally valid for 1-2 years.
	DefaultTestDateValidity = 24 * time.Hour

	// RLSpecificPrefix marks program-mandated recommendation letter
	// threads, e.g. "RL_A".
	RLSpecificPrefix = "RL_"

	// GeneralRLInfix marks student-level recommendation letter threads
	// shared across non-specific applications.
	GeneralRLInfix = "Recommendation_Letter_"
)

// Config carries the policy knobs of the engine. All fields have working
// defaults; the zero value is usable via New.
type Config struct {
	ApprovalCountries []string
	StalenessWindow   time.Duration
	TestDateValidity  time.Duration
	Now               func() time.Time
}

// DefaultConfig returns the production configuration.
func DefaultConfig() Config {
	return Config{
		ApprovalCountries: DefaultApprovalCountries,
		StalenessWindow:   DefaultStalenessWindow,
		TestDateValidity:  DefaultTestDateValidity,
		Now:               time.Now,
	}
}

// Engine evaluates derivation rules under a fixed configuration.
type Engine struct {
	cfg Config
}

// New constructs an engine, filling unset config fields with defaults.
func New(cfg Config) *Engine {
	if len(cfg.ApprovalCountries) == 0 {
		cfg.ApprovalCountries = DefaultApprovalCountries
	}
	if cfg.StalenessWindow <= 0 {
		cfg.StalenessWindow = DefaultStalenessWindow
	}
	if cfg.TestDateValidity <= 0 {
		cfg.TestDateValidity = DefaultTestDateValidity
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{cfg: cfg}
}

func (e *Engine) now() time.Time {
	return e.cfg.Now()
}

func (e *Engine) isApprovalCountry(code string) bool {
	normalized := strings.ToLower(strings.TrimSpace(code))
	for _, country := range e.cfg.ApprovalCountries {
		if normalized == strings.ToLower(country) {
			return true
		}
	}
	return false
}
