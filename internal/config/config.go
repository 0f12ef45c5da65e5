package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Storage   StorageConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Company   CompanyConfig
	Email     EmailConfig
	PDF       PDFConfig
	Receipt   ReceiptConfig
	Token     TokenConfig
	Audit     AuditConfig
	Webhook   WebhookConfig
}

type AppConfig struct {
	Name    string
	Env     string
	Port    string
	Debug   bool
	BaseURL string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	Timezone string
}

type JWTConfig struct {
	Secret      string
	ExpiryHours time.Duration
}

type StorageConfig struct {
	Path string
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

type RateLimitConfig struct {
	Requests int
	Duration int
}

// CompanyConfig is the issuing-company identity stamped onto every receipt.
// Receipts snapshot these values at creation; changing them never rewrites
// already issued documents.
type CompanyConfig struct {
	Name    string
	Address string
	GSTIN   string
	PAN     string
	// HomeState decides CGST+SGST vs IGST when the buyer state is known
	HomeState string
}

type EmailConfig struct {
	SMTPHost    string
	SMTPPort    int
	Username    string
	Password    string
	FromName    string
	FromEmail   string
	MaxAttempts int
	QueueSize   int
}

type PDFConfig struct {
	RenderTimeout time.Duration
}

// ReceiptConfig controls receipt number allocation. Width is the zero-padded
// sequence width after the YYYYMM period prefix; the per-period capacity is
// 10^width - 1.
type ReceiptConfig struct {
	NumberWidth    int
	DefaultTaxRate float64
}

type TokenConfig struct {
	TTL          time.Duration
	MaxDownloads int
}

type AuditConfig struct {
	RetentionDays int
	SweepInterval time.Duration
	QueueSize     int
}

// WebhookConfig holds the shared secret for verifying gateway callbacks.
// An empty secret disables signature checks (local development only).
type WebhookConfig struct {
	SigningSecret string
}

func Load() *Config {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables: %v", err)
	}

	// Set defaults
	viper.SetDefault("APP_NAME", "invoiceflow-api")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_DEBUG", true)
	viper.SetDefault("APP_BASE_URL", "http://localhost:8080")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_NAME", "invoiceflow")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_SSL_MODE", "disable")
	viper.SetDefault("DB_TIMEZONE", "Asia/Kolkata")
	viper.SetDefault("JWT_SECRET", "change-this-secret-in-production")
	viper.SetDefault("JWT_EXPIRY_HOURS", 24)
	viper.SetDefault("STORAGE_PATH", "./storage")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("CORS_ALLOWED_HEADERS", []string{})
	viper.SetDefault("RATE_LIMIT_REQUESTS", 30)
	viper.SetDefault("RATE_LIMIT_DURATION", 60)
	viper.SetDefault("COMPANY_NAME", "InvoiceFlow Technologies Pvt Ltd")
	viper.SetDefault("COMPANY_ADDRESS", "")
	viper.SetDefault("COMPANY_GSTIN", "")
	viper.SetDefault("COMPANY_PAN", "")
	viper.SetDefault("COMPANY_HOME_STATE", "")
	viper.SetDefault("SMTP_HOST", "localhost")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("SMTP_USERNAME", "")
	viper.SetDefault("SMTP_PASSWORD", "")
	viper.SetDefault("SMTP_FROM_NAME", "InvoiceFlow")
	viper.SetDefault("SMTP_FROM_EMAIL", "receipts@invoiceflow.local")
	viper.SetDefault("EMAIL_MAX_ATTEMPTS", 3)
	viper.SetDefault("EMAIL_QUEUE_SIZE", 256)
	viper.SetDefault("PDF_RENDER_TIMEOUT_SECONDS", 30)
	viper.SetDefault("RECEIPT_NUMBER_WIDTH", 3)
	viper.SetDefault("RECEIPT_DEFAULT_TAX_RATE", 18.0)
	viper.SetDefault("TOKEN_TTL_HOURS", 24)
	viper.SetDefault("TOKEN_MAX_DOWNLOADS", 5)
	viper.SetDefault("AUDIT_RETENTION_DAYS", 365)
	viper.SetDefault("AUDIT_SWEEP_INTERVAL_HOURS", 24)
	viper.SetDefault("AUDIT_QUEUE_SIZE", 1024)
	viper.SetDefault("WEBHOOK_SIGNING_SECRET", "")

	return &Config{
		App: AppConfig{
			Name:    viper.GetString("APP_NAME"),
			Env:     viper.GetString("APP_ENV"),
			Port:    viper.GetString("APP_PORT"),
			Debug:   viper.GetBool("APP_DEBUG"),
			BaseURL: viper.GetString("APP_BASE_URL"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			SSLMode:  viper.GetString("DB_SSL_MODE"),
			Timezone: viper.GetString("DB_TIMEZONE"),
		},
		JWT: JWTConfig{
			Secret:      viper.GetString("JWT_SECRET"),
			ExpiryHours: time.Duration(viper.GetInt("JWT_EXPIRY_HOURS")) * time.Hour,
		},
		Storage: StorageConfig{
			Path: viper.GetString("STORAGE_PATH"),
		},
		CORS: CORSConfig{
			AllowedOrigins: viper.GetStringSlice("CORS_ALLOWED_ORIGINS"),
			AllowedMethods: viper.GetStringSlice("CORS_ALLOWED_METHODS"),
			AllowedHeaders: viper.GetStringSlice("CORS_ALLOWED_HEADERS"),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Duration: viper.GetInt("RATE_LIMIT_DURATION"),
		},
		Company: CompanyConfig{
			Name:      viper.GetString("COMPANY_NAME"),
			Address:   viper.GetString("COMPANY_ADDRESS"),
			GSTIN:     viper.GetString("COMPANY_GSTIN"),
			PAN:       viper.GetString("COMPANY_PAN"),
			HomeState: viper.GetString("COMPANY_HOME_STATE"),
		},
		Email: EmailConfig{
			SMTPHost:    viper.GetString("SMTP_HOST"),
			SMTPPort:    viper.GetInt("SMTP_PORT"),
			Username:    viper.GetString("SMTP_USERNAME"),
			Password:    viper.GetString("SMTP_PASSWORD"),
			FromName:    viper.GetString("SMTP_FROM_NAME"),
			FromEmail:   viper.GetString("SMTP_FROM_EMAIL"),
			MaxAttempts: viper.GetInt("EMAIL_MAX_ATTEMPTS"),
			QueueSize:   viper.GetInt("EMAIL_QUEUE_SIZE"),
		},
		PDF: PDFConfig{
			RenderTimeout: time.Duration(viper.GetInt("PDF_RENDER_TIMEOUT_SECONDS")) * time.Second,
		},
		Receipt: ReceiptConfig{
			NumberWidth:    viper.GetInt("RECEIPT_NUMBER_WIDTH"),
			DefaultTaxRate: viper.GetFloat64("RECEIPT_DEFAULT_TAX_RATE"),
		},
		Token: TokenConfig{
			TTL:          time.Duration(viper.GetInt("TOKEN_TTL_HOURS")) * time.Hour,
			MaxDownloads: viper.GetInt("TOKEN_MAX_DOWNLOADS"),
		},
		Audit: AuditConfig{
			RetentionDays: viper.GetInt("AUDIT_RETENTION_DAYS"),
			SweepInterval: time.Duration(viper.GetInt("AUDIT_SWEEP_INTERVAL_HOURS")) * time.Hour,
			QueueSize:     viper.GetInt("AUDIT_QUEUE_SIZE"),
		},
		Webhook: WebhookConfig{
			SigningSecret: viper.GetString("WEBHOOK_SIGNING_SECRET"),
		},
	}
}

func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Name +
		" port=" + c.Port +
		" sslmode=" + c.SSLMode +
		" TimeZone=" + c.Timezone
}
