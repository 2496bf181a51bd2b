package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateDefaults(t *testing.T) {
	assert.NoError(t, Validate(Defaults()))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, "addr must be set"},
		{"write timeout below calibration", func(c *Config) { c.Server.WriteTimeout = time.Minute }, "must exceed calibration timeout"},
		{"no driver", func(c *Config) { c.Tracker.Driver = "" }, "driver must be set"},
		{"transfer shorter than command", func(c *Config) { c.Tracker.TransferTimeout = time.Second }, "transfer timeout"},
		{"bad calibration type", func(c *Config) { c.Recording.CalibrationType = "HV7" }, "unknown calibration type"},
		{"negative settle", func(c *Config) { c.Recording.SettleDelay = -time.Millisecond }, "settle delay"},
		{"bad target type", func(c *Config) { c.Calibration.TargetType = "star" }, "target type"},
		{"picture without file", func(c *Config) { c.Calibration.PictureTarget = "" }, "pictureTarget"},
		{"short color", func(c *Config) { c.Calibration.ForegroundColor = []float64{1, 1} }, "3 components"},
		{"color out of range", func(c *Config) { c.Calibration.BackgroundColor = []float64{0, 2, 0} }, "outside -1..1"},
		{"auth HS256 without secret", func(c *Config) { c.Auth.Enabled = true }, "requires secretKey"},
		{"auth RS256 without key", func(c *Config) {
			c.Auth.Enabled = true
			c.Auth.Algorithm = "RS256"
		}, "requires publicKeyFile"},
		{"no results dir", func(c *Config) { c.Results.Dir = "" }, "results dir"},
		{"zero buffer", func(c *Config) { c.Events.BufferSize = 0 }, "buffer size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := Validate(cfg)
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateAuthEnabled(t *testing.T) {
	cfg := Defaults()
	cfg.Auth.Enabled = true
	cfg.Auth.SecretKey = "s3cret"
	assert.NoError(t, Validate(cfg))
}

func TestValidateNil(t *testing.T) {
	assert.Error(t, Validate(nil))
}
