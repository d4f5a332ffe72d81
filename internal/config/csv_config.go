package config

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aiverify/aiv-upload/internal/constants"
)

// Backend names accepted by the backend key / --backend flag.
const (
	BackendAPI   = "api"
	BackendS3    = "s3"
	BackendAzure = "azure"
)

// Upload kinds map to the gateway's folder upload endpoints.
const (
	KindDataset = "dataset"
	KindModel   = "model"
)

// Config represents the uploader configuration
type Config struct {
	// Backend selection
	Backend    string // "api", "s3", "azure"
	UploadKind string // "dataset" or "model"

	// API settings
	APIKey     string
	APIBaseURL string

	// Submission settings
	UploadWorkers int
	RetainFailed  bool // Keep failed folders queued after a round
	IncludeHidden bool // Collect dot-files and dot-directories

	// Proxy settings
	ProxyMode     string // "no-proxy", "ntlm", "basic", "system"
	ProxyHost     string
	ProxyPort     int
	ProxyUser     string
	ProxyPassword string
	NoProxy       string // Comma-separated list of hosts to bypass proxy
	ProxyWarmup   bool

	// S3 backend
	S3Bucket   string
	S3Region   string
	S3Prefix   string
	S3Endpoint string // Optional custom endpoint (MinIO and friends)

	// Azure backend
	AzureAccountURL string
	AzureContainer  string
	AzurePrefix     string
}

// Default returns a Config populated with defaults.
func Default() *Config {
	return &Config{
		Backend:       BackendAPI,
		UploadKind:    KindDataset,
		APIBaseURL:    constants.DefaultAPIBaseURL,
		UploadWorkers: constants.DefaultUploadWorkers,
		RetainFailed:  true,
		ProxyMode:     "no-proxy",
	}
}

// LoadConfigCSV loads configuration from a CSV file
// CSV format: key,value pairs
func LoadConfigCSV(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // Return defaults if config doesn't exist
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read config CSV: %w", err)
	}

	for i, record := range records {
		if i == 0 {
			// Skip header row if it looks like a header
			if len(record) >= 2 && strings.ToLower(record[0]) == "key" {
				continue
			}
		}

		if len(record) < 2 {
			continue
		}

		key := strings.TrimSpace(strings.ToLower(record[0]))
		value := strings.TrimSpace(record[1])

		switch key {
		case "backend":
			cfg.Backend = strings.ToLower(value)
		case "upload_kind":
			cfg.UploadKind = strings.ToLower(value)
		case "api_base_url":
			cfg.APIBaseURL = value
		case "api_key":
			// SECURITY: API keys belong in AIVERIFY_API_KEY or --api-key, not on disk
			if value != "" {
				log.Printf("[WARN] api_key in config file is ignored for security - use AIVERIFY_API_KEY env var or --api-key flag")
			}
		case "upload_workers":
			if v, err := strconv.Atoi(value); err == nil {
				cfg.UploadWorkers = v
			}
		case "retain_failed":
			cfg.RetainFailed = parseBool(value)
		case "include_hidden":
			cfg.IncludeHidden = parseBool(value)
		case "proxy_mode":
			cfg.ProxyMode = value
		case "proxy_host":
			cfg.ProxyHost = value
		case "proxy_port":
			if v, err := strconv.Atoi(value); err == nil {
				cfg.ProxyPort = v
			}
		case "proxy_user":
			cfg.ProxyUser = value
		case "proxy_password":
			if value != "" {
				log.Printf("[WARN] proxy_password in config file is ignored for security - use secure prompt at runtime")
			}
		case "no_proxy":
			cfg.NoProxy = value
		case "proxy_warmup":
			cfg.ProxyWarmup = parseBool(value)
		case "s3_bucket":
			cfg.S3Bucket = value
		case "s3_region":
			cfg.S3Region = value
		case "s3_prefix":
			cfg.S3Prefix = value
		case "s3_endpoint":
			cfg.S3Endpoint = value
		case "azure_account_url":
			cfg.AzureAccountURL = value
		case "azure_container":
			cfg.AzureContainer = value
		case "azure_prefix":
			cfg.AzurePrefix = value
		}
	}

	return cfg, nil
}

func parseBool(value string) bool {
	return strings.ToLower(value) == "true" || value == "1"
}

// SaveConfigCSV saves configuration to a CSV file
// CSV format: key,value pairs
func SaveConfigCSV(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"key", "value"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	// SECURITY: api_key and proxy_password are intentionally NOT saved
	records := [][]string{
		{"backend", cfg.Backend},
		{"upload_kind", cfg.UploadKind},
		{"api_base_url", cfg.APIBaseURL},
		{"upload_workers", strconv.Itoa(cfg.UploadWorkers)},
		{"retain_failed", strconv.FormatBool(cfg.RetainFailed)},
		{"include_hidden", strconv.FormatBool(cfg.IncludeHidden)},
		{"proxy_mode", cfg.ProxyMode},
		{"proxy_host", cfg.ProxyHost},
		{"proxy_port", strconv.Itoa(cfg.ProxyPort)},
		{"proxy_user", cfg.ProxyUser},
		{"no_proxy", cfg.NoProxy},
		{"proxy_warmup", strconv.FormatBool(cfg.ProxyWarmup)},
		{"s3_bucket", cfg.S3Bucket},
		{"s3_region", cfg.S3Region},
		{"s3_prefix", cfg.S3Prefix},
		{"s3_endpoint", cfg.S3Endpoint},
		{"azure_account_url", cfg.AzureAccountURL},
		{"azure_container", cfg.AzureContainer},
		{"azure_prefix", cfg.AzurePrefix},
	}

	for _, record := range records {
		// retain_failed defaults to true, so "false" must be written to round-trip
		if record[0] == "retain_failed" {
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("failed to write record: %w", err)
			}
			continue
		}
		if record[1] != "" && record[1] != "0" && record[1] != "false" {
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("failed to write record: %w", err)
			}
		}
	}

	return nil
}

// MergeWithFlags merges config with command-line flags and environment variables
// Priority: flags > environment > config file > defaults
func (c *Config) MergeWithFlags(apiKey, apiBaseURL, backend, kind string) {
	if envKey := os.Getenv("AIVERIFY_API_KEY"); envKey != "" {
		c.APIKey = envKey
	}
	if envURL := os.Getenv("AIVERIFY_API_URL"); envURL != "" {
		c.APIBaseURL = envURL
	}
	if envProxy := os.Getenv("HTTPS_PROXY"); envProxy != "" && c.ProxyHost == "" {
		c.parseProxyURL(envProxy)
	}

	if apiKey != "" {
		c.APIKey = apiKey
	}
	if apiBaseURL != "" {
		c.APIBaseURL = apiBaseURL
	}
	if backend != "" {
		c.Backend = strings.ToLower(backend)
	}
	if kind != "" {
		c.UploadKind = strings.ToLower(kind)
	}

	c.APIBaseURL = strings.TrimSuffix(c.APIBaseURL, "/")
	if c.APIBaseURL != "" && !strings.HasPrefix(c.APIBaseURL, "http") {
		c.APIBaseURL = "https://" + c.APIBaseURL
	}
}

// parseProxyURL parses a proxy URL from environment variable
func (c *Config) parseProxyURL(proxyURL string) {
	proxyURL = strings.TrimPrefix(proxyURL, "http://")
	proxyURL = strings.TrimPrefix(proxyURL, "https://")

	parts := strings.Split(proxyURL, ":")
	if len(parts) >= 1 {
		c.ProxyHost = parts[0]
	}
	if len(parts) >= 2 {
		if port, err := strconv.Atoi(strings.TrimSuffix(parts[1], "/")); err == nil {
			c.ProxyPort = port
		}
	}
	if c.ProxyHost != "" && c.ProxyMode == "no-proxy" {
		c.ProxyMode = "system"
	}
}

// UploadPath returns the gateway endpoint for the configured upload kind.
func (c *Config) UploadPath() string {
	if c.UploadKind == KindModel {
		return constants.ModelUploadPath
	}
	return constants.DatasetUploadPath
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.UploadWorkers < 1 || c.UploadWorkers > constants.MaxUploadWorkers {
		return fmt.Errorf("upload_workers must be between 1 and %d, got %d", constants.MaxUploadWorkers, c.UploadWorkers)
	}
	switch c.UploadKind {
	case KindDataset, KindModel:
	default:
		return fmt.Errorf("upload_kind must be %q or %q, got %q", KindDataset, KindModel, c.UploadKind)
	}

	switch c.Backend {
	case BackendAPI:
		if c.APIBaseURL == "" {
			return fmt.Errorf("API base URL is required for the api backend")
		}
	case BackendS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("s3_bucket is required for the s3 backend")
		}
	case BackendAzure:
		if c.AzureAccountURL == "" || c.AzureContainer == "" {
			return fmt.Errorf("azure_account_url and azure_container are required for the azure backend")
		}
	default:
		return fmt.Errorf("unsupported backend: %s", c.Backend)
	}
	return nil
}
