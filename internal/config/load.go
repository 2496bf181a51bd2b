package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ELG"

// Load reads the configuration. path may be empty, in which case elg.yaml
// (or .toml/.json) in the working directory is used if present. Missing
// env files are skipped.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	v := viper.New()
	setDefaults(v, Defaults())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("elg")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// setDefaults registers every key so environment overrides apply to it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.readTimeout", d.Server.ReadTimeout)
	v.SetDefault("server.writeTimeout", d.Server.WriteTimeout)
	v.SetDefault("server.idleTimeout", d.Server.IdleTimeout)
	v.SetDefault("server.shutdownTimeout", d.Server.ShutdownTimeout)

	v.SetDefault("tracker.driver", d.Tracker.Driver)
	v.SetDefault("tracker.address", d.Tracker.Address)
	v.SetDefault("tracker.dummyMode", d.Tracker.DummyMode)
	v.SetDefault("tracker.connectOnStart", d.Tracker.ConnectOnStart)
	v.SetDefault("tracker.commandTimeout", d.Tracker.CommandTimeout)
	v.SetDefault("tracker.transferTimeout", d.Tracker.TransferTimeout)

	v.SetDefault("recording.preamble", d.Recording.Preamble)
	v.SetDefault("recording.settleDelay", d.Recording.SettleDelay)
	v.SetDefault("recording.sampleRate", d.Recording.SampleRate)
	v.SetDefault("recording.calibrationType", d.Recording.CalibrationType)
	v.SetDefault("recording.saccadeVelocityThreshold", d.Recording.SaccadeVelocityThreshold)
	v.SetDefault("recording.saccadeAccelerationThreshold", d.Recording.SaccadeAccelerationThreshold)

	v.SetDefault("calibration.timeout", d.Calibration.Timeout)
	v.SetDefault("calibration.toolkit", d.Calibration.Toolkit)
	v.SetDefault("calibration.fullScreen", d.Calibration.FullScreen)
	v.SetDefault("calibration.monitorWidthCm", d.Calibration.MonitorWidthCm)
	v.SetDefault("calibration.monitorDistanceCm", d.Calibration.MonitorDistanceCm)
	v.SetDefault("calibration.screenWidth", d.Calibration.ScreenWidth)
	v.SetDefault("calibration.screenHeight", d.Calibration.ScreenHeight)
	v.SetDefault("calibration.targetType", d.Calibration.TargetType)
	v.SetDefault("calibration.pictureTarget", d.Calibration.PictureTarget)
	v.SetDefault("calibration.instructions", d.Calibration.Instructions)
	v.SetDefault("calibration.foregroundColor", d.Calibration.ForegroundColor)
	v.SetDefault("calibration.backgroundColor", d.Calibration.BackgroundColor)

	v.SetDefault("results.dir", d.Results.Dir)

	v.SetDefault("logging.dir", d.Logging.Dir)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.maxSizeMB", d.Logging.MaxSizeMB)
	v.SetDefault("logging.maxBackups", d.Logging.MaxBackups)
	v.SetDefault("logging.maxAgeDays", d.Logging.MaxAgeDays)

	v.SetDefault("auth.enabled", d.Auth.Enabled)
	v.SetDefault("auth.algorithm", d.Auth.Algorithm)
	v.SetDefault("auth.secretKey", d.Auth.SecretKey)
	v.SetDefault("auth.publicKeyFile", d.Auth.PublicKeyFile)
	v.SetDefault("auth.issuer", d.Auth.Issuer)

	v.SetDefault("cors.allowedOrigins", d.CORS.AllowedOrigins)

	v.SetDefault("events.bufferSize", d.Events.BufferSize)
	v.SetDefault("events.heartbeatInterval", d.Events.HeartbeatInterval)
}
