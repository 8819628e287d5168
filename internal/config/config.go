package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Limits   LimitsConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	BlobDir            string
	LMSBaseURL         string // host LMS, used for page-context extraction
	JWTSecret          string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	OllamaBaseURL      string
	OllamaModel        string
	OpenWebUIBaseURL   string
	OpenWebUIAPIKey    string
	OpenWebUIModel     string
	RequestTimeoutSecs int
	UploadTimeoutSecs  int

	// RasterizerURL points at the PDF rasterizer sidecar; empty disables PDF
	// inlining.
	RasterizerURL string

	// FileHandlingEnabled is the global content-safety switch: when false no
	// attachment content reaches any provider, in any mode.
	FileHandlingEnabled bool

	// RetrievalProviders lists provider ids for which retrieval-augmented
	// delivery is globally allowed.
	RetrievalProviders []string
}

type LimitsConfig struct {
	MaxInlineImageBytes int64 // total per request
	MaxImageItemBytes   int64 // per converted image
	MaxImagesPerMessage int
	MaxPDFPages         int
	MaxImageDimension   int
	JPEGQuality         int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			BlobDir:            getEnv("BLOB_DIR", "./uploads"),
			LMSBaseURL:         getEnv("LMS_BASE_URL", "http://localhost:8080"),
			JWTSecret:          getEnv("JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			OllamaBaseURL:       getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:         getEnv("OLLAMA_MODEL", "llama3.2-vision"),
			OpenWebUIBaseURL:    getEnv("OPENWEBUI_BASE_URL", "http://localhost:8081"),
			OpenWebUIAPIKey:     getEnv("OPENWEBUI_API_KEY", ""),
			OpenWebUIModel:      getEnv("OPENWEBUI_MODEL", "gpt-4o-mini"),
			RequestTimeoutSecs:  getEnvAsInt("AI_REQUEST_TIMEOUT_SECS", 120),
			UploadTimeoutSecs:   getEnvAsInt("AI_UPLOAD_TIMEOUT_SECS", 60),
			RasterizerURL:       getEnv("RASTERIZER_URL", ""),
			FileHandlingEnabled: getEnvAsBool("AI_FILE_HANDLING_ENABLED", true),
			RetrievalProviders:  splitList(getEnv("AI_RETRIEVAL_PROVIDERS", "openwebui")),
		},
		Limits: LimitsConfig{
			MaxInlineImageBytes: getEnvAsInt64("MAX_INLINE_IMAGE_BYTES", 15*1024*1024),
			MaxImageItemBytes:   getEnvAsInt64("MAX_IMAGE_ITEM_BYTES", 5*1024*1024),
			MaxImagesPerMessage: getEnvAsInt("MAX_IMAGES_PER_MESSAGE", 20),
			MaxPDFPages:         getEnvAsInt("MAX_PDF_PAGES", 20),
			MaxImageDimension:   getEnvAsInt("MAX_IMAGE_DIMENSION", 1024),
			JPEGQuality:         getEnvAsInt("JPEG_QUALITY", 80),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseInt(strValue, 10, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
