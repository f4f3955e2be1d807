package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Minio      MinioConfig      `yaml:"minio"`
	Auth       AuthConfig       `yaml:"auth"`
	Store      StoreConfig      `yaml:"store"`
	Reference  ReferenceConfig  `yaml:"reference"`
	Rules      RulesConfig      `yaml:"rules"`
	Accounting AccountingConfig `yaml:"accounting"`
	Users      []User           `yaml:"users"`
}

type ServerConfig struct {
	Port              int `yaml:"port"`
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MinioConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Bucket     string `yaml:"bucket"`
	UseSSL     bool   `yaml:"use_ssl"`
	Region     string `yaml:"region"`
	ExpireDays int    `yaml:"expire_days"`
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
}

type StoreConfig struct {
	MaxRuns int `yaml:"max_runs"`
}

// Reference source kinds
const (
	SourceSmartsheet   = "smartsheet"
	SourceGoogleSheets = "gsheets"
	SourceDir          = "dir"
)

type ReferenceConfig struct {
	Source       string             `yaml:"source"`
	CacheTTL     time.Duration      `yaml:"cache_ttl"`
	Smartsheet   SmartsheetConfig   `yaml:"smartsheet"`
	GoogleSheets GoogleSheetsConfig `yaml:"gsheets"`
	Dir          string             `yaml:"dir"`
	Sheets       SheetKeys          `yaml:"sheets"`
}

type SmartsheetConfig struct {
	APIURL            string `yaml:"api_url"`
	AccessToken       string `yaml:"access_token"`
	WebhookSecret     string `yaml:"webhook_secret"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
}

type GoogleSheetsConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	SpreadsheetID   string `yaml:"spreadsheet_id"`
}

// SheetKeys names the reference tables in the configured source: sheet ids for
// Smartsheet, A1 ranges for Google Sheets, file stems for a directory.
type SheetKeys struct {
	Ignore   string `yaml:"ignore"`
	Cleans   string `yaml:"cleans"`
	Prices   string `yaml:"prices"`
	Cleaners string `yaml:"cleaners"`
}

type RulesConfig struct {
	ReservationKeywords []string `yaml:"reservation_keywords"`
	ValidStatuses       []string `yaml:"valid_statuses"`
	AssigneeDelimiter   string   `yaml:"assignee_delimiter"`
}

// Billing policies
const (
	BillAll              = "all"
	BillExcludeFlagged   = "exclude_flagged"
	BillExcludeMispriced = "exclude_mispriced"
)

type AccountingConfig struct {
	GuestCategory    string    `yaml:"guest_category"`
	OwnerCategory    string    `yaml:"owner_category"`
	AddressDelimiter string    `yaml:"address_delimiter"`
	BillPolicy       string    `yaml:"bill_policy"`
	VendorFix        VendorFix `yaml:"vendor_fix"`
}

// VendorFix rewrites one misspelled task-system vendor name in the vendor map.
type VendorFix struct {
	Issue string `yaml:"issue"`
	Fix   string `yaml:"fix"`
}

type User struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
}

var GlobalConfig *Config

func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	GlobalConfig = &cfg
	return &cfg, nil
}

// Default is the configuration used when no file is given, as for offline
// runs of the command-line tool. Reference tables are read from file stems
// named after each table.
func Default() *Config {
	cfg := &Config{
		Reference: ReferenceConfig{
			Source: SourceDir,
			Dir:    ".",
			Sheets: SheetKeys{Ignore: "ignore", Cleans: "cleans", Prices: "prices", Cleaners: "cleaners"},
		},
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SMARTSHEET_ACCESS_TOKEN"); v != "" {
		c.Reference.Smartsheet.AccessToken = v
	}
	if v := os.Getenv("SMARTSHEET_WEBHOOK_SECRET"); v != "" {
		c.Reference.Smartsheet.WebhookSecret = v
	}
	if v := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); v != "" {
		c.Reference.GoogleSheets.CredentialsFile = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		c.Minio.AccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		c.Minio.SecretKey = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.RequestsPerMinute == 0 {
		c.Server.RequestsPerMinute = 100
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Minio.ExpireDays == 0 {
		c.Minio.ExpireDays = 7
	}
	if c.Auth.TokenExpireHours == 0 {
		c.Auth.TokenExpireHours = 24
	}
	if c.Store.MaxRuns == 0 {
		c.Store.MaxRuns = 50
	}
	if c.Reference.Source == "" {
		c.Reference.Source = SourceSmartsheet
	}
	if c.Reference.CacheTTL == 0 {
		c.Reference.CacheTTL = 10 * time.Minute
	}
	if c.Reference.Smartsheet.APIURL == "" {
		c.Reference.Smartsheet.APIURL = "https://api.smartsheet.com/2.0"
	}
	if c.Reference.Smartsheet.RequestsPerMinute == 0 {
		c.Reference.Smartsheet.RequestsPerMinute = 300
	}
	if len(c.Rules.ReservationKeywords) == 0 {
		c.Rules.ReservationKeywords = []string{"RES", "HLD"}
	}
	if len(c.Rules.ValidStatuses) == 0 {
		c.Rules.ValidStatuses = []string{"Finished", "Approved"}
	}
	if c.Rules.AssigneeDelimiter == "" {
		c.Rules.AssigneeDelimiter = ";"
	}
	if c.Accounting.AddressDelimiter == "" {
		c.Accounting.AddressDelimiter = "-"
	}
	if c.Accounting.BillPolicy == "" {
		c.Accounting.BillPolicy = BillAll
	}
}

// Validate reports configuration that would make every run fail.
func (c *Config) Validate() error {
	var errs []error

	switch c.Reference.Source {
	case SourceSmartsheet, SourceGoogleSheets, SourceDir:
	default:
		errs = append(errs, fmt.Errorf("unknown reference source %q", c.Reference.Source))
	}
	switch c.Accounting.BillPolicy {
	case BillAll, BillExcludeFlagged, BillExcludeMispriced:
	default:
		errs = append(errs, fmt.Errorf("unknown bill policy %q", c.Accounting.BillPolicy))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}

	keys := c.Reference.Sheets
	if keys.Ignore == "" || keys.Cleans == "" || keys.Prices == "" || keys.Cleaners == "" {
		errs = append(errs, errors.New("reference.sheets needs ignore, cleans, prices and cleaners"))
	}

	return errors.Join(errs...)
}

// FindUser finds a user by username
func (c *Config) FindUser(username string) *User {
	for i := range c.Users {
		if c.Users[i].Username == username {
			return &c.Users[i]
		}
	}
	return nil
}
