package config

import (
	_ "embed"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Camera CameraConfig
	Vision VisionConfig
	Access AccessConfig
	Notify NotifyConfig
	Store  StoreConfig
	Web    WebConfig
	Log    LogConfig
}

type CameraConfig struct {
	SnapshotURL string        // HTTP stills endpoint polled once per tick
	Dir         string        // directory of frames for development runs
	Tick        time.Duration // frame loop period
}

type VisionConfig struct {
	ServiceURL        string  // inference service base URL (detect + embed endpoints)
	EmbeddingDim      int     // fixed embedder output dimensionality
	CropSide          int     // square face crop side in pixels
	MinConfidence     float64 // detections below this never reach the embedder
	DistanceThreshold float64 // max L2 distance for a gallery match
	MatchIndex        string  // "linear" (default) or "hnsw"
}

type AccessConfig struct {
	HoldDuration time.Duration // door stays open this long after a match
	Cooldown     time.Duration // minimum gap between outbound notifications
}

type NotifyConfig struct {
	BotToken string
	ChatID   string // digits-only; anything else silently disables the sink
	Message  string
}

type StoreConfig struct {
	Driver string // "sqlite" or "postgres"
	DSN    string // postgres connection string
	Path   string // sqlite file path
	Reset  bool   // wipe enrolled identities at startup
}

type WebConfig struct {
	Host string
	Port int
}

type LogConfig struct {
	Level  string
	Format string // "console" or "json"
}

// defaults mirrors the embedded defaults.yaml layout.
type defaults struct {
	Recognition struct {
		EmbeddingDim      int     `yaml:"embedding_dim"`
		CropSide          int     `yaml:"crop_side"`
		MinConfidence     float64 `yaml:"min_confidence"`
		DistanceThreshold float64 `yaml:"distance_threshold"`
	} `yaml:"recognition"`
	Access struct {
		HoldMs     int `yaml:"hold_ms"`
		CooldownMs int `yaml:"cooldown_ms"`
	} `yaml:"access"`
	Camera struct {
		TickMs int `yaml:"tick_ms"`
	} `yaml:"camera"`
}

// envStr reads an environment variable, falling back to a default when unset.
func envStr(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
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

// envBool reads an environment variable as a boolean ("true", "1", "yes").
func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	switch s {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return defaultVal
}

func Load() *Config {
	var d defaults
	if err := yaml.Unmarshal(defaultsYAML, &d); err != nil {
		// Embedded file, cannot happen outside a broken build.
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	return &Config{
		Camera: CameraConfig{
			SnapshotURL: os.Getenv("CAMERA_SNAPSHOT_URL"),
			Dir:         os.Getenv("CAMERA_DIR"),
			Tick:        time.Duration(envInt("CAMERA_TICK_MS", d.Camera.TickMs)) * time.Millisecond,
		},
		Vision: VisionConfig{
			ServiceURL:        os.Getenv("INFERENCE_URL"),
			EmbeddingDim:      envInt("EMBEDDING_DIM", d.Recognition.EmbeddingDim),
			CropSide:          envInt("CROP_SIDE", d.Recognition.CropSide),
			MinConfidence:     envFloat("MIN_CONFIDENCE", d.Recognition.MinConfidence),
			DistanceThreshold: envFloat("DISTANCE_THRESHOLD", d.Recognition.DistanceThreshold),
			MatchIndex:        envStr("MATCH_INDEX", "linear"),
		},
		Access: AccessConfig{
			HoldDuration: time.Duration(envInt("DOOR_HOLD_MS", d.Access.HoldMs)) * time.Millisecond,
			Cooldown:     time.Duration(envInt("NOTIFY_COOLDOWN_MS", d.Access.CooldownMs)) * time.Millisecond,
		},
		Notify: NotifyConfig{
			BotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
			ChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
			Message:  envStr("NOTIFY_MESSAGE", "someone is here"),
		},
		Store: StoreConfig{
			Driver: envStr("STORE_DRIVER", "sqlite"),
			DSN:    os.Getenv("DATABASE_URL"),
			Path:   envStr("STORE_PATH", "facegate.db"),
			Reset:  envBool("STORE_RESET", false),
		},
		Web: WebConfig{
			Host: envStr("WEB_HOST", "127.0.0.1"),
			Port: envInt("WEB_PORT", 8080),
		},
		Log: LogConfig{
			Level:  envStr("LOG_LEVEL", "info"),
			Format: envStr("LOG_FORMAT", "console"),
		},
	}
}
