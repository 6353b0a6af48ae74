package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed modes.yaml
var modesYAML []byte

type Config struct {
	Database DatabaseConfig
	Events   EventsConfig
	Detector DetectorConfig
	Camera   CameraConfig
	Session  SessionConfig
	Web      WebConfig
	Modes    ModesConfig
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
	MariaDSN     string // optional MariaDB DSN; when set, attendance records live there instead of PostgreSQL
}

type EventsConfig struct {
	MariaDSN string // optional MariaDB DSN for mirroring attendance events (e.g., attendance:attendance@tcp(mariadb:3306)/attendance)
}

type DetectorConfig struct {
	URL       string  // defaults to http://localhost:8000
	Dim       int     // embedding dimension, defaults to 512
	Downscale float64 // frame downscale factor sent to the detector, defaults to 0.25
	Threshold float64 // cosine distance acceptance threshold, defaults to 0.35
}

type CameraConfig struct {
	URL        string // MJPEG stream URL (e.g., http://camera:8080/stream)
	FramesDir  string // directory of still frames, used instead of URL when set
	IntervalMS int    // pacing between directory frames in milliseconds
}

type SessionConfig struct {
	Station         string // station identifier recorded with attendance events
	CooldownSeconds int    // seconds a subject stays ineligible after being marked (default 30)
	DisplayTicks    int    // frames the record screen stays up after a mark (default 10)
}

type WebConfig struct {
	Listen     string // listen address, defaults to :8090
	AdminToken string // bearer token guarding mutating endpoints, empty disables auth
}

type ModesConfig struct {
	Modes map[string]ModeScreen `yaml:"modes"`
}

type ModeScreen struct {
	Label      string `yaml:"label"`
	Background string `yaml:"background"`
	ShowRecord bool   `yaml:"show_record"`
}

// Screen returns the display description for a mode, falling back to the
// idle screen for modes missing from the catalog.
func (c *ModesConfig) Screen(mode string) ModeScreen {
	if screen, ok := c.Modes[mode]; ok {
		return screen
	}
	return c.Modes["idle"]
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func Load() *Config {
	var modes ModesConfig
	if err := yaml.Unmarshal(modesYAML, &modes); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded modes.yaml: " + err.Error())
	}

	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
			MariaDSN:     os.Getenv("DATABASE_MARIADB_DSN"),
		},
		Events: EventsConfig{
			MariaDSN: os.Getenv("EVENTS_MARIADB_DSN"),
		},
		Detector: DetectorConfig{
			URL:       envDefault("DETECTOR_URL", "http://localhost:8000"),
			Dim:       envInt("DETECTOR_DIM", 512),
			Downscale: envFloat("DETECTOR_DOWNSCALE", 0.25),
			Threshold: envFloat("ACCEPT_THRESHOLD", 0.35),
		},
		Camera: CameraConfig{
			URL:        os.Getenv("CAMERA_URL"),
			FramesDir:  os.Getenv("CAMERA_FRAMES_DIR"),
			IntervalMS: envInt("CAMERA_INTERVAL_MS", 100),
		},
		Session: SessionConfig{
			Station:         envDefault("STATION", "main"),
			CooldownSeconds: envInt("COOLDOWN_SECONDS", 30),
			DisplayTicks:    envInt("DISPLAY_TICKS", 10),
		},
		Web: WebConfig{
			Listen:     envDefault("WEB_LISTEN", ":8090"),
			AdminToken: os.Getenv("ADMIN_TOKEN"),
		},
		Modes: modes,
	}
}
