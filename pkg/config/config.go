package config

import (
	"fmt"
	"log/slog"
	"strings"
)

// Config represents the configuration for a registration run
type Config struct {
	// Portal account
	Credentials Credentials `yaml:"credentials" json:"credentials"`

	// Course to register for
	Registration Target `yaml:"registration" json:"registration"`

	// Page captures and the structured run log
	Artifacts ArtifactConfig `yaml:"artifacts" json:"artifacts"`

	// Waits, pauses and the error budget
	Timing Timing `yaml:"timing" json:"timing"`

	Portal       PortalConfig       `yaml:"portal" json:"portal"`
	Availability AvailabilityConfig `yaml:"availability" json:"availability"`
	Browser      BrowserConfig      `yaml:"browser" json:"browser"`
	Connectivity ConnectivityConfig `yaml:"connectivity" json:"connectivity"`
	Notify       NotifyConfig       `yaml:"notify" json:"notify"`
	Logging      LoggingConfig      `yaml:"logging" json:"logging"`
	Status       StatusConfig       `yaml:"status" json:"status"`
}

// Credentials is the portal username/password pair. It never prints the password.
type Credentials struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"-"`
}

func (c Credentials) String() string {
	return fmt.Sprintf("%s/%s", c.Username, mask(c.Password))
}

// LogValue keeps the password out of structured logs.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("username", c.Username),
		slog.String("password", mask(c.Password)),
	)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return strings.Repeat("*", len(s))
}

// Target identifies the course section to register for
type Target struct {
	// Term is the portal's term code, e.g. "202509"
	Term string `yaml:"term" json:"term"`

	// TermLabel is the human name of the term, e.g. "Fall"
	TermLabel string `yaml:"term_label" json:"term_label"`

	// CourseID is the section's registration number (CRN)
	CourseID string `yaml:"course_id" json:"course_id"`
}

// Timing holds every wait and pause of the run. Pauses are whole units; the
// inter-attempt delay should exceed the portal's rate-limit window.
type Timing struct {
	NavigationMs        int `yaml:"navigation_ms" json:"navigation_ms"`
	InterAttemptSec     int `yaml:"inter_attempt_sec" json:"inter_attempt_sec"`
	InterErrorMin       int `yaml:"inter_error_min" json:"inter_error_min"`
	InterPollSec        int `yaml:"inter_poll_sec" json:"inter_poll_sec"`
	ToleratedErrors     int `yaml:"tolerated_errors" json:"tolerated_errors"`
	MaxAttemptsPerLogin int `yaml:"max_attempts_per_login" json:"max_attempts_per_login"` // 0 means unlimited
}

// ArtifactConfig defines where captures and log.json are written
type ArtifactConfig struct {
	Dir string `yaml:"dir" json:"dir"`

	// Keep lists glob patterns of entries that survive the directory reset
	Keep []string `yaml:"keep" json:"keep"`

	// StampPDF adds run properties to every PDF capture
	StampPDF bool `yaml:"stamp_pdf" json:"stamp_pdf"`
}

// PortalConfig defines the registration portal
type PortalConfig struct {
	URL              string `yaml:"url" json:"url"`
	SubmitCandidates int    `yaml:"submit_candidates" json:"submit_candidates"`
}

// AvailabilityConfig defines the seat availability service
type AvailabilityConfig struct {
	URL          string `yaml:"url" json:"url"`
	FullSentinel string `yaml:"full_sentinel" json:"full_sentinel"`
}

// BrowserConfig defines how the browser is launched
type BrowserConfig struct {
	Headless bool     `yaml:"headless" json:"headless"`
	Install  bool     `yaml:"install" json:"install"`
	Args     []string `yaml:"args" json:"args"`
}

// ConnectivityConfig defines the reachability probe
type ConnectivityConfig struct {
	Host      string `yaml:"host" json:"host"`
	TimeoutMs int    `yaml:"timeout_ms" json:"timeout_ms"`
}

// NotifyConfig defines email notification
type NotifyConfig struct {
	Enabled       bool   `yaml:"enabled" json:"enabled"`
	APIKey        string `yaml:"api_key" json:"-"`
	From          string `yaml:"from" json:"from"`
	To            string `yaml:"to" json:"to"`
	Retries       int    `yaml:"retries" json:"retries"`
	RetryDelaySec int    `yaml:"retry_delay_sec" json:"retry_delay_sec"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Level is the diagnostics level: debug, info, warn, error
	Level string `yaml:"level" json:"level"`

	// Verbosity controls console output: quiet, normal, verbose, debug
	Verbosity string `yaml:"verbosity" json:"verbosity"`

	// File receives JSON diagnostics; empty means stderr
	File string `yaml:"file" json:"file"`
}

// StatusConfig defines the optional status server
type StatusConfig struct {
	Port int `yaml:"port" json:"port"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Credentials.Username == "" {
		return fmt.Errorf("credentials.username is required")
	}
	if c.Credentials.Password == "" {
		return fmt.Errorf("credentials.password is required")
	}

	if c.Registration.Term == "" {
		return fmt.Errorf("registration.term is required")
	}
	if c.Registration.CourseID == "" {
		return fmt.Errorf("registration.course_id is required")
	}

	if c.Artifacts.Dir == "" {
		return fmt.Errorf("artifacts.dir is required")
	}

	if c.Timing.NavigationMs <= 0 {
		return fmt.Errorf("timing.navigation_ms must be positive")
	}
	if c.Timing.InterAttemptSec < 0 {
		return fmt.Errorf("timing.inter_attempt_sec cannot be negative")
	}
	if c.Timing.InterErrorMin < 0 {
		return fmt.Errorf("timing.inter_error_min cannot be negative")
	}
	if c.Timing.InterPollSec < 0 {
		return fmt.Errorf("timing.inter_poll_sec cannot be negative")
	}
	if c.Timing.ToleratedErrors < 0 {
		return fmt.Errorf("timing.tolerated_errors cannot be negative")
	}
	if c.Timing.MaxAttemptsPerLogin < 0 {
		return fmt.Errorf("timing.max_attempts_per_login cannot be negative")
	}

	if c.Portal.URL == "" {
		return fmt.Errorf("portal.url is required")
	}
	if c.Portal.SubmitCandidates <= 0 {
		return fmt.Errorf("portal.submit_candidates must be positive")
	}
	if c.Availability.URL == "" {
		return fmt.Errorf("availability.url is required")
	}
	if c.Availability.FullSentinel == "" {
		return fmt.Errorf("availability.full_sentinel is required")
	}

	if c.Connectivity.Host == "" {
		return fmt.Errorf("connectivity.host is required")
	}

	if c.Notify.Enabled {
		if c.Notify.APIKey == "" || c.Notify.From == "" || c.Notify.To == "" {
			return fmt.Errorf("notify requires api_key, from and to when enabled")
		}
		if c.Notify.Retries < 0 {
			return fmt.Errorf("notify.retries cannot be negative")
		}
	}

	if c.Status.Port < 0 || c.Status.Port > 65535 {
		return fmt.Errorf("invalid status.port: %d", c.Status.Port)
	}

	// Set default verbosity if not specified
	if c.Logging.Verbosity == "" {
		c.Logging.Verbosity = "normal"
	}

	validVerbosity := map[string]bool{
		"quiet":   true,
		"normal":  true,
		"verbose": true,
		"debug":   true,
	}
	if !validVerbosity[c.Logging.Verbosity] {
		return fmt.Errorf("invalid logging verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", c.Logging.Verbosity)
	}

	return nil
}

// DefaultConfig returns a configuration with every setting except the
// account and course filled in
func DefaultConfig() *Config {
	return &Config{
		Artifacts: ArtifactConfig{
			Dir:      "./artifacts",
			Keep:     []string{".gitkeep"},
			StampPDF: true,
		},
		Timing: Timing{
			NavigationMs:        3000,
			InterAttemptSec:     30,
			InterErrorMin:       5,
			InterPollSec:        30,
			ToleratedErrors:     10,
			MaxAttemptsPerLogin: 5,
		},
		Portal: PortalConfig{
			URL:              "https://horizon.mcgill.ca/pban1/twbkwbis.P_WWWLogin",
			SubmitCandidates: 100,
		},
		Availability: AvailabilityConfig{
			URL:          "https://vsb.mcgill.ca/vsb/welcome.jsp",
			FullSentinel: "full",
		},
		Browser: BrowserConfig{
			Headless: true,
			Args: []string{
				"--no-sandbox",
				"--disable-setuid-sandbox",
				"--disable-gpu",
			},
		},
		Connectivity: ConnectivityConfig{
			Host:      "google.com",
			TimeoutMs: 5000,
		},
		Notify: NotifyConfig{
			Retries:       3,
			RetryDelaySec: 10,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Verbosity: "normal",
		},
	}
}
