package config

import (
	"os"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// LLM providers.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// TTS modes.
const (
	TTSModeOffline    = "offline"
	TTSModeElevenLabs = "elevenlabs"
)

// Config holds everything the assistant reads from the environment.
// Every field has a fixed default; any of them can be overridden.
type Config struct {
	// LLM backend.
	OllamaHost  string
	OllamaModel string
	LLMProvider string
	OpenAIKey   string
	OpenAIModel string
	LLMTimeout  time.Duration

	// Paths.
	DataDir     string
	CapturesDir string

	// Voice out.
	TTSMode       string
	ElevenAPIKey  string
	ElevenVoiceID string
	Voice         string

	// Vision.
	TesseractPath string
	CameraDevice  string

	// Web search.
	SearchTimeout time.Duration
	UserAgent     string

	// Voice daemon.
	WhisperModel string
	ChimePath    string

	// Transport.
	ProxyAddr string
	BusURL    string
}

// FromEnv builds a Config from the process environment. Call godotenv.Load
// first if a dotenv file should be honored.
func FromEnv() *Config {
	return &Config{
		OllamaHost:  envOr("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel: envOr("OLLAMA_MODEL", "gemma:2b"),
		LLMProvider: envOr("LLM_PROVIDER", ProviderOllama),
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIModel: envOr("OPENAI_MODEL", "gpt-4o-mini"),
		LLMTimeout:  envDuration("LLM_TIMEOUT", 60*time.Second),

		DataDir:     envOr("LYRA_DATA_DIR", "data"),
		CapturesDir: envOr("LYRA_CAPTURES_DIR", "captures"),

		TTSMode:       envOr("TTS_MODE", TTSModeOffline),
		ElevenAPIKey:  os.Getenv("ELEVEN_API_KEY"),
		ElevenVoiceID: envOr("ELEVEN_VOICE_ID", "Bella"),
		Voice:         envOr("LYRA_VOICE", "en"),

		TesseractPath: envOr("TESSERACT_PATH", "tesseract"),
		CameraDevice:  envOr("CAMERA_DEVICE", "/dev/video0"),

		SearchTimeout: envDuration("SEARCH_TIMEOUT", 10*time.Second),
		UserAgent:     envOr("USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) LyraAI/1.0"),

		WhisperModel: envOr("WHISPER_MODEL", "models/ggml-base.en.bin"),
		ChimePath:    envOr("LYRA_CHIME", "beep.mp3"),

		ProxyAddr: os.Getenv("LYRA_PROXY"),
		BusURL:    envOr("BUS_URL", "ws://localhost:8092/ws"),
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.OllamaHost, validation.Required),
		validation.Field(&c.OllamaModel, validation.Required),
		validation.Field(&c.LLMProvider, validation.Required, validation.In(ProviderOllama, ProviderOpenAI)),
		validation.Field(&c.TTSMode, validation.Required, validation.In(TTSModeOffline, TTSModeElevenLabs)),
		validation.Field(&c.LLMTimeout, validation.Min(time.Second)),
		validation.Field(&c.SearchTimeout, validation.Min(time.Second)),
		validation.Field(&c.DataDir, validation.Required),
		validation.Field(&c.CapturesDir, validation.Required),
	)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envDuration reads a duration; a bare number is taken as seconds, matching
// the original SEARCH_TIMEOUT=10 style.
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return def
}
