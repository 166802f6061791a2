package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config representa la configuración del servidor
type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Logging  LoggingConfig
	Supabase SupabaseConfig
	Report   ReportConfig
}

// ServerConfig representa la configuración del servidor HTTP
type ServerConfig struct {
	Port    string
	Host    string
	Env     string
	BaseURL string
}

// RedisConfig representa la configuración de Redis
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// LoggingConfig representa la configuración de logging
type LoggingConfig struct {
	Level  string
	Format string
}

// SupabaseConfig representa la configuración de Supabase (storage y auth)
type SupabaseConfig struct {
	ProjectReference string
	AnonKey          string
	ServiceKey       string
	StorageEndpoint  string
	StorageRegion    string
	AccessKeyID      string
	SecretAccessKey  string
	ConsentBucket    string
}

// ReportConfig representa las constantes de despliegue usadas por los
// reportes: el uid de la peluquera cuyos trabajos de la tarde se cuentan
// aparte y los nombres visibles por tenant.
type ReportConfig struct {
	LogoPath            string
	AfternoonStylistUID string
	TenantNames         map[string]string
	DefaultTenantName   string
}

// Load carga la configuración desde variables de entorno
func Load() (*Config, error) {
	// Cargar archivo .env si existe
	if err := godotenv.Load(); err != nil {
		// No es crítico si no existe el archivo .env
	}

	config := &Config{
		Server: ServerConfig{
			Port:    getEnv("SERVER_PORT", "8082"),
			Host:    getEnv("SERVER_HOST", "0.0.0.0"),
			Env:     getEnv("SERVER_ENV", "development"),
			BaseURL: getEnv("SERVER_BASE_URL", "http://localhost:8082"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Supabase: SupabaseConfig{
			ProjectReference: getEnv("SUPABASE_PROJECT_REF", ""),
			AnonKey:          getEnv("SUPABASE_ANON_KEY", ""),
			ServiceKey:       getEnv("SUPABASE_SERVICE_KEY", ""),
			StorageEndpoint:  getEnv("SUPABASE_STORAGE_ENDPOINT", ""),
			StorageRegion:    getEnv("SUPABASE_STORAGE_REGION", ""),
			AccessKeyID:      getEnv("SUPABASE_ACCESS_KEY_ID", ""),
			SecretAccessKey:  getEnv("SUPABASE_SECRET_ACCESS_KEY", ""),
			ConsentBucket:    getEnv("SUPABASE_CONSENT_BUCKET", "consent-documents"),
		},
		Report: ReportConfig{
			LogoPath:            getEnv("REPORT_LOGO_PATH", "./assets/logo.png"),
			AfternoonStylistUID: getEnv("REPORT_AFTERNOON_STYLIST_UID", "87HaSzqB34VDwk3GislJvbYWgDB3"),
			TenantNames:         getEnvAsMap("REPORT_TENANT_NAMES", "CH0001=Can Hijos"),
			DefaultTenantName:   getEnv("REPORT_DEFAULT_TENANT_NAME", "Puro Amor Arte Canino"),
		},
	}

	return config, nil
}

// getEnv obtiene una variable de entorno o retorna un valor por defecto
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt obtiene una variable de entorno como entero
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsMap obtiene una variable de entorno como pares clave=valor separados por comas
func getEnvAsMap(key, defaultValue string) map[string]string {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}

	result := make(map[string]string)
	for _, pair := range strings.Split(value, ",") {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) == 2 {
			result[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return result
}

// IsDevelopment retorna true si el entorno es de desarrollo
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction retorna true si el entorno es de producción
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// GetRedisAddr retorna la dirección de Redis
func (c *Config) GetRedisAddr() string {
	return c.Redis.Host + ":" + c.Redis.Port
}

// TenantDisplayName retorna el nombre visible de un tenant
func (c *Config) TenantDisplayName(tenantID string) string {
	if name, ok := c.Report.TenantNames[tenantID]; ok {
		return name
	}
	return c.Report.DefaultTenantName
}
