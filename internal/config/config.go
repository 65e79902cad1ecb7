package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type DB struct {
	DbHOST     string
	DbPORT     string
	DbUSER     string
	DbPASSWORD string
	DbNAME     string
	DbSSLMODE  string
	Migrations string
}

type Mongo struct {
	URI            string
	Database       string
	Collection     string
	Username       string
	Password       string
	ConnectTimeout time.Duration
	MaxPoolSize    uint64
}

type Redis struct {
	Address  string
	Password string
	DB       int
	CacheTTL time.Duration
}

type MinIO struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	BucketName string
	UseSSL     bool
	Region     string
	// PublicURL is the base used to build retrieval URLs. When empty the
	// client hands out presigned URLs valid for URLExpiry.
	PublicURL string
	URLExpiry time.Duration
}

type NATS struct {
	URL            string
	ConnectTimeout time.Duration
}

type Upload struct {
	MaxUploadSize int64
	Concurrency   int
	DraftTTL      time.Duration
}

type Log struct {
	Level  string
	Format string
}

type Tracing struct {
	ServiceName  string
	OTLPEndpoint string
}

type Config struct {
	ServerPort           int
	ShutdownTimeout      time.Duration
	AllowedOrigins       []string
	DB                   DB
	Mongo                Mongo
	Redis                Redis
	MinIO                MinIO
	NATS                 NATS
	Upload               Upload
	Log                  Log
	Tracing              Tracing
	JWTSecretKey         string
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseDuration accepts time.ParseDuration syntax plus a whole-day suffix ("7d").
func parseDuration(value string, fallback time.Duration) time.Duration {
	if days, ok := strings.CutSuffix(value, "d"); ok {
		if n, err := strconv.Atoi(days); err == nil && n > 0 {
			return time.Duration(n) * 24 * time.Hour
		}
		return fallback
	}

	duration, err := time.ParseDuration(value)
	if err != nil || duration <= 0 {
		return fallback
	}
	return duration
}

func parseSize(value string, fallback int64) int64 {
	size, err := strconv.ParseInt(value, 10, 64)
	if err != nil || size <= 0 {
		return fallback
	}
	return size
}

func LoadDB() DB {
	return DB{
		DbHOST:     getEnv("DB_HOST", "localhost"),
		DbPORT:     getEnv("DB_PORT", "5432"),
		DbUSER:     getEnv("DB_USER", "postgres"),
		DbPASSWORD: getEnv("DB_PASSWORD", "password"),
		DbNAME:     getEnv("DB_NAME", "prolar"),
		DbSSLMODE:  getEnv("DB_SSLMODE", "disable"),
		Migrations: getEnv("DB_MIGRATIONS", "migrations/001_create_tables.sql"),
	}
}

func LoadMongo() Mongo {
	return Mongo{
		URI:            getEnv("MONGO_URI", "mongodb://localhost:27017"),
		Database:       getEnv("MONGO_DATABASE", "prolar"),
		Collection:     getEnv("MONGO_COLLECTION", "listings"),
		Username:       getEnv("MONGO_USER", ""),
		Password:       getEnv("MONGO_PASSWORD", ""),
		ConnectTimeout: parseDuration(getEnv("MONGO_CONNECT_TIMEOUT", "10s"), 10*time.Second),
		MaxPoolSize:    uint64(getEnvAsInt("MONGO_MAX_POOL_SIZE", 50)),
	}
}

func LoadRedis() Redis {
	return Redis{
		Address:  getEnv("REDIS_ADDR", ""),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvAsInt("REDIS_DB", 0),
		CacheTTL: parseDuration(getEnv("CACHE_TTL", "5m"), 5*time.Minute),
	}
}

func LoadMinIO() MinIO {
	return MinIO{
		Endpoint:   getEnv("MINIO_ENDPOINT", "localhost:9000"),
		AccessKey:  getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		SecretKey:  getEnv("MINIO_SECRET_KEY", "minioadmin"),
		BucketName: getEnv("MINIO_BUCKET_NAME", "prolar"),
		UseSSL:     getEnvBool("MINIO_USE_SSL", false),
		Region:     getEnv("MINIO_REGION", "us-east-1"),
		PublicURL:  strings.TrimSuffix(getEnv("MINIO_PUBLIC_URL", ""), "/"),
		URLExpiry:  parseDuration(getEnv("MINIO_URL_EXPIRY", "7d"), 7*24*time.Hour),
	}
}

func LoadNATS() NATS {
	return NATS{
		URL:            getEnv("NATS_URL", ""),
		ConnectTimeout: parseDuration(getEnv("NATS_CONNECT_TIMEOUT", "5s"), 5*time.Second),
	}
}

func LoadUpload() Upload {
	return Upload{
		MaxUploadSize: parseSize(getEnv("MAX_UPLOAD_SIZE", "10485760"), 10*1024*1024),
		Concurrency:   getEnvAsInt("UPLOAD_CONCURRENCY", 4),
		DraftTTL:      parseDuration(getEnv("DRAFT_TTL", "1h"), time.Hour),
	}
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	return &Config{
		ServerPort:      getEnvAsInt("SERVER_PORT", 8080),
		ShutdownTimeout: parseDuration(getEnv("SHUTDOWN_TIMEOUT", "15s"), 15*time.Second),
		AllowedOrigins:  getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		DB:              LoadDB(),
		Mongo:           LoadMongo(),
		Redis:           LoadRedis(),
		MinIO:           LoadMinIO(),
		NATS:            LoadNATS(),
		Upload:          LoadUpload(),
		Log: Log{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Tracing: Tracing{
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "prolar"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		},
		JWTSecretKey:         getEnv("JWT_SECRET_KEY", ""),
		AccessTokenDuration:  parseDuration(getEnv("ACCESS_TOKEN_DURATION", "2h"), 2*time.Hour),
		RefreshTokenDuration: parseDuration(getEnv("REFRESH_TOKEN_DURATION", "168h"), 168*time.Hour),
	}
}
