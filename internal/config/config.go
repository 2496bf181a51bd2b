package config

import (
	"time"
)

// Config is the complete gateway configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
	Tracker     TrackerConfig     `mapstructure:"tracker" yaml:"tracker"`
	Recording   RecordingConfig   `mapstructure:"recording" yaml:"recording"`
	Calibration CalibrationConfig `mapstructure:"calibration" yaml:"calibration"`
	Results     ResultsConfig     `mapstructure:"results" yaml:"results"`
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging"`
	Auth        AuthConfig        `mapstructure:"auth" yaml:"auth"`
	CORS        CORSConfig        `mapstructure:"cors" yaml:"cors"`
	Events      EventsConfig      `mapstructure:"events" yaml:"events"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout     time.Duration `mapstructure:"readTimeout" yaml:"readTimeout"`
	WriteTimeout    time.Duration `mapstructure:"writeTimeout" yaml:"writeTimeout"`
	IdleTimeout     time.Duration `mapstructure:"idleTimeout" yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout" yaml:"shutdownTimeout"`
}

// TrackerConfig selects and tunes the tracker driver.
type TrackerConfig struct {
	Driver          string        `mapstructure:"driver" yaml:"driver"`
	Address         string        `mapstructure:"address" yaml:"address"`
	DummyMode       bool          `mapstructure:"dummyMode" yaml:"dummyMode"`
	ConnectOnStart  bool          `mapstructure:"connectOnStart" yaml:"connectOnStart"`
	CommandTimeout  time.Duration `mapstructure:"commandTimeout" yaml:"commandTimeout"`
	TransferTimeout time.Duration `mapstructure:"transferTimeout" yaml:"transferTimeout"`
}

// RecordingConfig holds the recording configuration block.
type RecordingConfig struct {
	Preamble                     string        `mapstructure:"preamble" yaml:"preamble"`
	SettleDelay                  time.Duration `mapstructure:"settleDelay" yaml:"settleDelay"`
	SampleRate                   int           `mapstructure:"sampleRate" yaml:"sampleRate"`
	CalibrationType              string        `mapstructure:"calibrationType" yaml:"calibrationType"`
	SaccadeVelocityThreshold     int           `mapstructure:"saccadeVelocityThreshold" yaml:"saccadeVelocityThreshold"`
	SaccadeAccelerationThreshold int           `mapstructure:"saccadeAccelerationThreshold" yaml:"saccadeAccelerationThreshold"`
}

// CalibrationConfig configures the calibration child.
type CalibrationConfig struct {
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Toolkit           string        `mapstructure:"toolkit" yaml:"toolkit"`
	FullScreen        bool          `mapstructure:"fullScreen" yaml:"fullScreen"`
	MonitorWidthCm    float64       `mapstructure:"monitorWidthCm" yaml:"monitorWidthCm"`
	MonitorDistanceCm float64       `mapstructure:"monitorDistanceCm" yaml:"monitorDistanceCm"`
	ScreenWidth       int           `mapstructure:"screenWidth" yaml:"screenWidth"`
	ScreenHeight      int           `mapstructure:"screenHeight" yaml:"screenHeight"`
	TargetType        string        `mapstructure:"targetType" yaml:"targetType"`
	PictureTarget     string        `mapstructure:"pictureTarget" yaml:"pictureTarget"`
	Instructions      string        `mapstructure:"instructions" yaml:"instructions"`
	ForegroundColor   []float64     `mapstructure:"foregroundColor" yaml:"foregroundColor"`
	BackgroundColor   []float64     `mapstructure:"backgroundColor" yaml:"backgroundColor"`
}

// ResultsConfig configures where data files are transferred.
type ResultsConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// LoggingConfig configures the process log and the audit log.
type LoggingConfig struct {
	Dir        string `mapstructure:"dir" yaml:"dir"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"maxSizeMB" yaml:"maxSizeMB"`
	MaxBackups int    `mapstructure:"maxBackups" yaml:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAgeDays" yaml:"maxAgeDays"`
}

// AuthConfig configures optional bearer authentication.
type AuthConfig struct {
	Enabled       bool   `mapstructure:"enabled" yaml:"enabled"`
	Algorithm     string `mapstructure:"algorithm" yaml:"algorithm"`
	SecretKey     string `mapstructure:"secretKey" yaml:"secretKey,omitempty"`
	PublicKeyFile string `mapstructure:"publicKeyFile" yaml:"publicKeyFile,omitempty"`
	Issuer        string `mapstructure:"issuer" yaml:"issuer,omitempty"`
}

// CORSConfig configures cross-origin access.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins" yaml:"allowedOrigins"`
}

// EventsConfig configures the event stream.
type EventsConfig struct {
	BufferSize        int           `mapstructure:"bufferSize" yaml:"bufferSize"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeatInterval" yaml:"heartbeatInterval"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            "127.0.0.1:5000",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    11 * time.Minute,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Tracker: TrackerConfig{
			Driver:          "sim",
			Address:         "100.1.1.1",
			ConnectOnStart:  true,
			CommandTimeout:  5 * time.Second,
			TransferTimeout: 2 * time.Minute,
		},
		Recording: RecordingConfig{
			Preamble:                     "elg",
			SettleDelay:                  100 * time.Millisecond,
			SampleRate:                   1000,
			CalibrationType:              "HV9",
			SaccadeVelocityThreshold:     35,
			SaccadeAccelerationThreshold: 9500,
		},
		Calibration: CalibrationConfig{
			Timeout:           10 * time.Minute,
			Toolkit:           "headless",
			FullScreen:        true,
			MonitorWidthCm:    53.0,
			MonitorDistanceCm: 70.0,
			ScreenWidth:       1920,
			ScreenHeight:      1080,
			TargetType:        "picture",
			PictureTarget:     "images/fixTarget.bmp",
			Instructions:      "press ENTER twice to calibrate tracker",
			ForegroundColor:   []float64{-1, -1, -1},
			BackgroundColor:   []float64{0, 0, 0},
		},
		Results: ResultsConfig{
			Dir: "results",
		},
		Logging: LoggingConfig{
			Dir:        "logs",
			File:       "elg.log",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Auth: AuthConfig{
			Algorithm: "HS256",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Events: EventsConfig{
			BufferSize:        50,
			HeartbeatInterval: 15 * time.Second,
		},
	}
}
