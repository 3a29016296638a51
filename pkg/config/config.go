package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration from environment variables
type Config struct {
	// Application
	AppPort string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Auth
	JWTSecret        string
	JWTRefreshSecret string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration

	// Mail
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	MailFrom     string
	AdminEmail   string

	// Payment processor
	PaymentBaseURL   string
	PaymentSecretKey string

	// Image host
	ImageUploadURL string
	ImageAPIKey    string
	ImageFolder    string

	// OpenTelemetry
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPHeaders   string
	OTELExporterOTLPInsecure  bool
	OTELServiceName           string
	OTELServiceVersion        string
	OTELDeploymentEnvironment string
}

// LoadConfig loads configuration from .env file and environment variables with defaults
func LoadConfig() *Config {
	// .env file is optional
	if err := godotenv.Load(); err != nil {
		if _, ok := err.(*os.PathError); !ok {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	}

	return &Config{
		AppPort: getEnv("APP_PORT", "8080"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "ecommerce"),

		JWTSecret:        getEnv("JWT_SECRET", "supersecret"),
		JWTRefreshSecret: getEnv("JWT_REFRESH_SECRET", "supersecret-refresh"),
		AccessTokenTTL:   getEnvDuration("ACCESS_TOKEN_TTL", 24*time.Hour),
		RefreshTokenTTL:  getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		MailFrom:     getEnv("MAIL_FROM", "no-reply@shopstack.local"),
		AdminEmail:   getEnv("ADMIN_EMAIL", ""),

		PaymentBaseURL:   getEnv("PAYMENT_BASE_URL", "https://api.payments.example.com"),
		PaymentSecretKey: getEnv("PAYMENT_SECRET_KEY", ""),

		ImageUploadURL: getEnv("IMAGE_UPLOAD_URL", "https://api.imagehost.example.com/upload"),
		ImageAPIKey:    getEnv("IMAGE_API_KEY", ""),
		ImageFolder:    getEnv("IMAGE_FOLDER", "products"),

		OTELExporterOTLPEndpoint:  getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		OTELExporterOTLPHeaders:   getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
		OTELExporterOTLPInsecure:  getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELServiceName:           getEnv("OTEL_SERVICE_NAME", "ecommerce-api"),
		OTELServiceVersion:        getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
		OTELDeploymentEnvironment: getEnv("OTEL_DEPLOYMENT_ENVIRONMENT", "development"),
	}
}

// GetDSN returns the MySQL DSN string
func (c *Config) GetDSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true&charset=utf8mb4"
}

// GetAppPortInt returns the application port as an integer
func (c *Config) GetAppPortInt() int {
	port, err := strconv.Atoi(c.AppPort)
	if err != nil {
		return 8080
	}
	return port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if value == "true" || value == "1" || value == "yes" {
			return true
		}
		return false
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
