package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"Server"`
	Database DatabaseConfig `mapstructure:"Database"`
	Auth     AuthConfig     `mapstructure:"Auth"`
	Upload   UploadConfig   `mapstructure:"Upload"`
	Listing  ListingConfig  `mapstructure:"Listing"`
}

type ServerConfig struct {
	Port string `mapstructure:"Port"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"Host"`
	Port     string `mapstructure:"Port"`
	User     string `mapstructure:"User"`
	Password string `mapstructure:"Password"`
	Name     string `mapstructure:"Name"`
	SSLMode  string `mapstructure:"SSLMode"`
}

// AuthConfig содержит статические ключи API.
// Публичный ключ открывает обычные операции, админский — все
type AuthConfig struct {
	PublicKey string `mapstructure:"PublicKey"`
	AdminKey  string `mapstructure:"AdminKey"`
}

type UploadConfig struct {
	// Максимальный размер файла для multipart-загрузки
	MaxFileSize int64 `mapstructure:"MaxFileSize"`
	// Максимальный размер файла для простой загрузки одним запросом
	SimpleMaxSize int64 `mapstructure:"SimpleMaxSize"`
	// Префикс ключей для загружаемых архивов
	KeyPrefix string `mapstructure:"KeyPrefix"`
}

type ListingConfig struct {
	// Корневой сегмент, вне которого листинг и поиск запрещены
	RootPrefix string `mapstructure:"RootPrefix"`
	// Максимум страниц хранилища, сканируемых за один поисковый запрос
	MaxSearchPages int `mapstructure:"MaxSearchPages"`
	// Размер внутренней страницы хранилища при поиске
	SearchPageSize int32 `mapstructure:"SearchPageSize"`
}

func NewConfig(path string) (*Config, error) {
	v := viper.New()

	// Устанавливаем файл конфигурации
	v.SetConfigFile(path)

	// Привязываем переменные окружения
	v.BindEnv("Database.Host", "DATABASE_HOST")
	v.BindEnv("Database.Port", "DATABASE_PORT")
	v.BindEnv("Database.User", "DATABASE_USER")
	v.BindEnv("Database.Password", "DATABASE_PASSWORD")
	v.BindEnv("Database.Name", "DATABASE_NAME")
	v.BindEnv("Database.SSLMode", "DATABASE_SSLMODE")
	v.BindEnv("Server.Port", "HTTP_PORT")
	v.BindEnv("Auth.PublicKey", "API_KEY_PUBLIC")
	v.BindEnv("Auth.AdminKey", "API_KEY_ADMIN")
	v.BindEnv("Upload.MaxFileSize", "MAX_FILE_SIZE")

	// Читаем конфигурацию из файла
	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Warning: using only environment variables: %v\n", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Проверяем переменные окружения напрямую если конфигурация неполная
	if cfg.Database.Host == "" {
		cfg.Database.Host = v.GetString("DATABASE_HOST")
	}
	if cfg.Database.Port == "" {
		cfg.Database.Port = v.GetString("DATABASE_PORT")
	}
	if cfg.Database.User == "" {
		cfg.Database.User = v.GetString("DATABASE_USER")
	}
	if cfg.Database.Password == "" {
		cfg.Database.Password = v.GetString("DATABASE_PASSWORD")
	}
	if cfg.Database.Name == "" {
		cfg.Database.Name = v.GetString("DATABASE_NAME")
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = v.GetString("DATABASE_SSLMODE")
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = v.GetString("HTTP_PORT")
	}
	if cfg.Auth.PublicKey == "" {
		cfg.Auth.PublicKey = v.GetString("API_KEY_PUBLIC")
	}
	if cfg.Auth.AdminKey == "" {
		cfg.Auth.AdminKey = v.GetString("API_KEY_ADMIN")
	}

	// Проверяем, что все необходимые поля заполнены
	if cfg.Database.Host == "" ||
		cfg.Database.Port == "" ||
		cfg.Database.User == "" ||
		cfg.Database.Password == "" ||
		cfg.Database.Name == "" {
		return nil, fmt.Errorf("database configuration is incomplete: host=%s, port=%s, user=%s, name=%s",
			cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Name)
	}

	if cfg.Auth.PublicKey == "" && cfg.Auth.AdminKey == "" {
		return nil, fmt.Errorf("auth configuration is incomplete: at least one API key is required")
	}

	// Установка значений по умолчанию
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Upload.MaxFileSize == 0 {
		cfg.Upload.MaxFileSize = 5 * 1024 * 1024 * 1024 // 5GB
	}
	if cfg.Upload.SimpleMaxSize == 0 {
		cfg.Upload.SimpleMaxSize = 100 * 1024 * 1024 // 100MB
	}
	if cfg.Upload.KeyPrefix == "" {
		cfg.Upload.KeyPrefix = "uploads/"
	}
	if cfg.Listing.RootPrefix == "" {
		cfg.Listing.RootPrefix = "feeds/"
	}
	if cfg.Listing.MaxSearchPages == 0 {
		cfg.Listing.MaxSearchPages = 10
	}
	if cfg.Listing.SearchPageSize == 0 {
		cfg.Listing.SearchPageSize = 1000
	}

	return &cfg, nil
}

func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		c.SSLMode,
	)
}
