package config

import (
	"fmt"
)

var validSampleRates = map[int]bool{250: true, 500: true, 1000: true, 2000: true}

var validCalibrationTypes = map[string]bool{"H3": true, "HV3": true, "HV5": true, "HV9": true, "HV13": true}

// Validate checks the configuration for consistency.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := validateServer(cfg); err != nil {
		return fmt.Errorf("server validation failed: %w", err)
	}
	if err := validateTracker(&cfg.Tracker); err != nil {
		return fmt.Errorf("tracker validation failed: %w", err)
	}
	if err := validateRecording(&cfg.Recording); err != nil {
		return fmt.Errorf("recording validation failed: %w", err)
	}
	if err := validateCalibration(&cfg.Calibration); err != nil {
		return fmt.Errorf("calibration validation failed: %w", err)
	}
	if err := validateAuth(&cfg.Auth); err != nil {
		return fmt.Errorf("auth validation failed: %w", err)
	}

	if cfg.Results.Dir == "" {
		return fmt.Errorf("results dir must be set")
	}
	if cfg.Events.BufferSize <= 0 {
		return fmt.Errorf("events buffer size must be positive, got %d", cfg.Events.BufferSize)
	}
	if cfg.Events.HeartbeatInterval <= 0 {
		return fmt.Errorf("events heartbeat interval must be positive, got %v", cfg.Events.HeartbeatInterval)
	}

	return nil
}

func validateServer(cfg *Config) error {
	s := cfg.Server
	if s.Addr == "" {
		return fmt.Errorf("addr must be set")
	}
	if s.ReadTimeout <= 0 || s.WriteTimeout <= 0 || s.IdleTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	// doTrackerSetup holds the request open for the whole calibration
	if s.WriteTimeout <= cfg.Calibration.Timeout {
		return fmt.Errorf("write timeout %v must exceed calibration timeout %v", s.WriteTimeout, cfg.Calibration.Timeout)
	}
	return nil
}

func validateTracker(t *TrackerConfig) error {
	if t.Driver == "" {
		return fmt.Errorf("driver must be set")
	}
	if t.CommandTimeout <= 0 {
		return fmt.Errorf("command timeout must be positive, got %v", t.CommandTimeout)
	}
	if t.TransferTimeout < t.CommandTimeout {
		return fmt.Errorf("transfer timeout %v must be >= command timeout %v", t.TransferTimeout, t.CommandTimeout)
	}
	return nil
}

func validateRecording(r *RecordingConfig) error {
	if !validSampleRates[r.SampleRate] {
		return fmt.Errorf("sample rate %d not one of 250, 500, 1000, 2000", r.SampleRate)
	}
	if !validCalibrationTypes[r.CalibrationType] {
		return fmt.Errorf("unknown calibration type %q", r.CalibrationType)
	}
	if r.SaccadeVelocityThreshold <= 0 || r.SaccadeAccelerationThreshold <= 0 {
		return fmt.Errorf("saccade thresholds must be positive")
	}
	if r.SettleDelay < 0 {
		return fmt.Errorf("settle delay must be non-negative, got %v", r.SettleDelay)
	}
	return nil
}

func validateCalibration(c *CalibrationConfig) error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.Toolkit == "" {
		return fmt.Errorf("toolkit must be set")
	}
	if c.MonitorWidthCm <= 0 || c.MonitorDistanceCm <= 0 {
		return fmt.Errorf("monitor width and distance must be positive")
	}
	if c.ScreenWidth <= 0 || c.ScreenHeight <= 0 {
		return fmt.Errorf("screen size must be positive")
	}
	switch c.TargetType {
	case "circle":
	case "picture":
		if c.PictureTarget == "" {
			return fmt.Errorf("picture target requires pictureTarget")
		}
	default:
		return fmt.Errorf("target type %q not one of picture, circle", c.TargetType)
	}
	for name, color := range map[string][]float64{"foreground": c.ForegroundColor, "background": c.BackgroundColor} {
		if len(color) != 3 {
			return fmt.Errorf("%s color needs 3 components, got %d", name, len(color))
		}
		for _, v := range color {
			if v < -1 || v > 1 {
				return fmt.Errorf("%s color component %v outside -1..1", name, v)
			}
		}
	}
	return nil
}

func validateAuth(a *AuthConfig) error {
	if !a.Enabled {
		return nil
	}
	switch a.Algorithm {
	case "HS256":
		if a.SecretKey == "" {
			return fmt.Errorf("HS256 requires secretKey")
		}
	case "RS256":
		if a.PublicKeyFile == "" {
			return fmt.Errorf("RS256 requires publicKeyFile")
		}
	default:
		return fmt.Errorf("unsupported algorithm %q", a.Algorithm)
	}
	return nil
}
