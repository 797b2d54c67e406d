package config

import (
	"errors"
	"fmt"
	"os"

	"salonbook/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Booking    BookingConfig    `yaml:"booking"`
	Ratings    RatingsConfig    `yaml:"ratings"`
	Exports    ExportConfig     `yaml:"exports"`
	Google     GoogleConfig     `yaml:"google"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	Port      int                `yaml:"port"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// BookingConfig drives the candidate slot grid and booking horizon.
type BookingConfig struct {
	DayStart          string `yaml:"day_start"`
	DayEnd            string `yaml:"day_end"`
	SlotMinutes       int    `yaml:"slot_minutes"`
	BookingWindowDays int    `yaml:"booking_window_days"`
	WizardTTLSeconds  int    `yaml:"wizard_ttl_seconds"`
}

type RatingsConfig struct {
	// SampleFallback substitutes a clearly marked example dataset when an
	// employee has no ratings. Ignored outside non-production environments.
	SampleFallback bool `yaml:"sample_fallback"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type GoogleConfig struct {
	CredentialsFile       string `yaml:"credentials_file"`
	ScheduleSpreadSheetID string `yaml:"schedule_spreadsheet_id"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional in production; env vars may come from the runtime.
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if _, err := models.ParseHHMM(c.Booking.DayStart); err != nil {
		return fmt.Errorf("booking.day_start: %w", err)
	}
	end, err := models.ParseHHMM(c.Booking.DayEnd)
	if err != nil {
		return fmt.Errorf("booking.day_end: %w", err)
	}
	start, _ := models.ParseHHMM(c.Booking.DayStart)
	if end <= start {
		return errors.New("booking.day_end must be after booking.day_start")
	}
	if c.Booking.SlotMinutes <= 0 {
		return errors.New("booking.slot_minutes must be positive")
	}

	return nil
}

// ValidateCatalog checks the reference data file loaded alongside the config.
func ValidateCatalog(catalog models.Catalog) error {
	serviceIDs := make(map[int64]bool)
	for _, svc := range catalog.Services {
		if svc.ID == 0 {
			return fmt.Errorf("service %q has invalid ID 0", svc.Name)
		}
		if serviceIDs[svc.ID] {
			return fmt.Errorf("duplicate service ID found: %d", svc.ID)
		}
		serviceIDs[svc.ID] = true
		if svc.DurationMinutes <= 0 {
			return fmt.Errorf("service %q has non-positive duration", svc.Name)
		}
	}

	employeeIDs := make(map[int64]bool)
	for _, emp := range catalog.Employees {
		if emp.ID == 0 {
			return fmt.Errorf("employee %q has invalid ID 0", emp.FullName)
		}
		if employeeIDs[emp.ID] {
			return fmt.Errorf("duplicate employee ID found: %d", emp.ID)
		}
		employeeIDs[emp.ID] = true
		if emp.WorkStart != "" {
			if _, err := models.ParseHHMM(emp.WorkStart); err != nil {
				return fmt.Errorf("employee %q work_start: %w", emp.FullName, err)
			}
		}
		if emp.WorkEnd != "" {
			if _, err := models.ParseHHMM(emp.WorkEnd); err != nil {
				return fmt.Errorf("employee %q work_end: %w", emp.FullName, err)
			}
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}

	if c.Booking.DayStart == "" {
		c.Booking.DayStart = models.DefaultDayStart
	}
	if c.Booking.DayEnd == "" {
		c.Booking.DayEnd = models.DefaultDayEnd
	}
	if c.Booking.SlotMinutes == 0 {
		c.Booking.SlotMinutes = models.DefaultSlotMinutes
	}
	if c.Booking.BookingWindowDays == 0 {
		c.Booking.BookingWindowDays = models.DefaultBookingWindowDays
	}
	if c.Booking.WizardTTLSeconds == 0 {
		c.Booking.WizardTTLSeconds = models.DefaultWizardTTL
	}
}
