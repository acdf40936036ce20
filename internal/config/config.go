package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vbonduro/breedchat/internal/llm/backend"
)

type Config struct {
	ListenAddr string
	DBPath     string
	ImagePath  string
	LogLevel   string
	LogFile    string

	LLMBackend      string
	GeminiAPIKey    string
	GeminiModel     string
	ClaudeAPIKey    string
	ClaudeModel     string
	OllamaHost      string
	OllamaModel     string
	MaxOutputTokens int

	BreedsJSONPath      string
	DietsJSONPath       string
	SampleQuestionsPath string
	ClassIndicesPath    string

	ModelPath          string
	HeadPath           string
	ORTLibraryPath     string
	ModelDevice        string
	ModelNormalization string
	InferenceWorkers   int
	EagerModelLoad     bool

	CORSOrigins []string
	JWTSecret   string
}

// Load reads configuration from the environment. An optional .env file
// (ENV_FILE) fills unset variables, and an optional YAML file (CONFIG_FILE)
// supplies values for keys the environment leaves unset.
func Load() (*Config, error) {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}

	src := source{}
	if path := getEnv("CONFIG_FILE", ""); path != "" {
		overlay, err := readOverlay(path)
		if err != nil {
			return nil, err
		}
		src.overlay = overlay
	}

	cfg := &Config{
		ListenAddr: src.get("LISTEN_ADDR", ":8000"),
		DBPath:     src.get("DB_PATH", "/data/breedchat.db"),
		ImagePath:  src.get("IMAGE_PATH", "/data/images"),
		LogLevel:   src.get("LOG_LEVEL", "info"),
		LogFile:    src.get("LOG_FILE", ""),

		LLMBackend:   src.get("LLM_BACKEND", backend.Gemini),
		GeminiAPIKey: src.get("GEMINI_API_KEY", ""),
		GeminiModel:  src.get("GEMINI_MODEL", "gemini-2.5-flash"),
		ClaudeAPIKey: src.get("CLAUDE_API_KEY", ""),
		ClaudeModel:  src.get("CLAUDE_MODEL", "claude-sonnet-4-5"),
		OllamaHost:   src.get("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:  src.get("OLLAMA_MODEL", "llava"),

		BreedsJSONPath:      src.get("BREEDS_JSON_PATH", "json_files/basic_info_dogs/breeds_info.json"),
		DietsJSONPath:       src.get("DIETS_JSON_PATH", "json_files/diets_info/diets_info.json"),
		SampleQuestionsPath: src.get("SAMPLE_QUESTIONS_PATH", "json_files/sample_questions/sample_questions.json"),
		ClassIndicesPath:    src.get("CLASS_INDICES_PATH", "json_files/class_indices.json"),

		ModelPath:          src.get("MODEL_PATH", "models/backbone.onnx"),
		HeadPath:           src.get("HEAD_PATH", ""),
		ORTLibraryPath:     src.get("ORT_LIBRARY_PATH", ""),
		ModelDevice:        src.get("MODEL_DEVICE", "cpu"),
		ModelNormalization: src.get("MODEL_NORMALIZATION", "imagenet"),

		CORSOrigins: splitList(src.get("CORS_ORIGINS", "*")),
		JWTSecret:   src.get("JWT_SECRET", ""),
	}

	var err error
	if cfg.MaxOutputTokens, err = src.getInt("MAX_OUTPUT_TOKENS", 300); err != nil {
		return nil, err
	}
	if cfg.InferenceWorkers, err = src.getInt("INFERENCE_WORKERS", runtime.NumCPU()); err != nil {
		return nil, err
	}
	if cfg.EagerModelLoad, err = src.getBool("EAGER_MODEL_LOAD", false); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LLM returns the backend selection for llm/backend.
func (c *Config) LLM() backend.Config {
	return backend.Config{
		Backend:      c.LLMBackend,
		GeminiAPIKey: c.GeminiAPIKey,
		GeminiModel:  c.GeminiModel,
		ClaudeAPIKey: c.ClaudeAPIKey,
		ClaudeModel:  c.ClaudeModel,
		OllamaHost:   c.OllamaHost,
		OllamaModel:  c.OllamaModel,
	}
}

func (c *Config) validate() error {
	switch c.LLMBackend {
	case backend.Gemini, backend.Claude, backend.Ollama:
	default:
		return fmt.Errorf("invalid LLM_BACKEND %q: want gemini, claude or ollama", c.LLMBackend)
	}
	switch c.ModelDevice {
	case "cpu", "cuda":
	default:
		return fmt.Errorf("invalid MODEL_DEVICE %q: want cpu or cuda", c.ModelDevice)
	}
	switch c.ModelNormalization {
	case "imagenet", "none", "unit":
	default:
		return fmt.Errorf("invalid MODEL_NORMALIZATION %q: want imagenet, none or unit", c.ModelNormalization)
	}
	if c.MaxOutputTokens <= 0 {
		return fmt.Errorf("invalid MAX_OUTPUT_TOKENS %d: must be positive", c.MaxOutputTokens)
	}
	if c.InferenceWorkers <= 0 {
		return fmt.Errorf("invalid INFERENCE_WORKERS %d: must be positive", c.InferenceWorkers)
	}
	return nil
}

func readOverlay(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	overlay := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		switch val := v.(type) {
		case []any:
			parts := make([]string, 0, len(val))
			for _, p := range val {
				parts = append(parts, fmt.Sprint(p))
			}
			overlay[strings.ToUpper(k)] = strings.Join(parts, ",")
		default:
			overlay[strings.ToUpper(k)] = fmt.Sprint(val)
		}
	}
	return overlay, nil
}

// source resolves a key from the environment, then the YAML overlay.
type source struct {
	overlay map[string]string
}

func (s source) get(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	if val, ok := s.overlay[key]; ok {
		return val
	}
	return defaultVal
}

func (s source) getInt(key string, defaultVal int) (int, error) {
	raw := s.get(key, "")
	if raw == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return n, nil
}

func (s source) getBool(key string, defaultVal bool) (bool, error) {
	raw := s.get(key, "")
	if raw == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}
