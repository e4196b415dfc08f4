package main

import (
	"crypto/rand"
	"encoding/binary"
	"os"
	"strconv"
	"strings"

	"hle-arena/server/engine"
	"hle-arena/server/learn"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type Config struct {
	DatabaseURL   string
	Port          string
	AutoMigrate   bool
	DeckSeed      int64
	Target        int
	SmoothingK    float64
	Advise        bool
	LearnRestore  bool
	RestoreLimit  int
	ReviewEpsilon float64
	EloStart      float64
	EloK          float64
	Debug         bool
	LogLevel      string
	NoColor       bool
}

// LoadConfig reads .env (dev) and then the process environment.
func LoadConfig() Config {
	_ = godotenv.Load()
	return configFromEnv(os.Getenv)
}

func configFromEnv(get func(string) string) Config {
	cfg := Config{
		DatabaseURL:   strings.TrimSpace(get("DATABASE_URL")),
		Port:          getenvWith(get, "PORT", "8080"),
		AutoMigrate:   asBool(get("AUTO_MIGRATE")),
		DeckSeed:      int64(atoiDef(get("DECK_SEED"), 0)),
		Target:        atoiDef(get("TARGET_SCORE"), engine.DefaultTarget),
		SmoothingK:    floatDef(get("NB_SMOOTHING_K"), learn.DefaultK),
		Advise:        boolDef(get("ADVISE"), true),
		LearnRestore:  boolDef(get("LEARN_RESTORE"), true),
		RestoreLimit:  atoiDef(get("LEARN_RESTORE_LIMIT"), 10000),
		ReviewEpsilon: floatDef(get("REVIEW_EPSILON"), 0.25),
		EloStart:      floatDef(get("ELO_START"), 1500),
		EloK:          floatDef(get("ELO_K"), 24),
		Debug:         asBool(get("DEBUG")),
		LogLevel:      strings.TrimSpace(get("LOG_LEVEL")),
		NoColor:       get("NO_COLOR") != "" || strings.TrimSpace(get("USE_COLOR")) == "0",
	}
	if cfg.Target <= 0 {
		cfg.Target = engine.DefaultTarget
	}
	if cfg.SmoothingK <= 0 {
		cfg.SmoothingK = learn.DefaultK
	}
	if cfg.DeckSeed == 0 {
		cfg.DeckSeed = secureSeed()
	}
	return cfg
}

// NewLogger writes human-readable lines to stderr.
func NewLogger(cfg Config) zerolog.Logger {
	level := zerolog.InfoLevel
	if cfg.LogLevel != "" {
		if l, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel)); err == nil {
			level = l
		}
	}
	if cfg.Debug {
		level = zerolog.DebugLevel
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: cfg.NoColor}).
		Level(level).
		With().Timestamp().Logger()
}

func secureSeed() int64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 1
	}
	s := int64(binary.LittleEndian.Uint64(b[:]) >> 1)
	if s == 0 {
		s = 1
	}
	return s
}

func getenvWith(get func(string) string, k, def string) string {
	if v := strings.TrimSpace(get(k)); v != "" {
		return v
	}
	return def
}

func atoiDef(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func floatDef(s string, def float64) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

func asBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func boolDef(s string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return def
	case "0", "false", "no", "n", "off":
		return false
	}
	return asBool(s)
}
