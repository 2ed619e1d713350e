package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"sync"

	"blocklucky/database"
	"blocklucky/models"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
)

// Store drivers
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL      string `toml:"database_url"`
	DatabaseName     string `toml:"database_name"`
	DatabaseMaxConns int32  `toml:"database_max_conns"` // 0 keeps the pgx default
	StoreDriver      string `toml:"store_driver"`       // "postgres" or "memory"

	// Lottery configuration
	LotteryID       int64  `toml:"lottery_id"`
	OwnerAddress    string `toml:"owner_address"`
	MinParticipants uint64 `toml:"min_participants"`
	TicketPriceWei  string `toml:"ticket_price_wei"`
	RandomSource    string `toml:"random_source"` // "crypto" or "block"

	// HTTP configuration
	HTTPAddr string `toml:"http_addr"`

	// NATS configuration
	NATSServers string `toml:"nats_servers"` // Comma-separated, empty disables publishing

	// Logging
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"` // "text" or "json"

	// Environment
	Environment string `toml:"environment"` // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// GetDatabaseURL returns the database URL with DatabaseName applied
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// Owner returns the configured owner address
func (c *Config) Owner() common.Address {
	return common.HexToAddress(c.OwnerAddress)
}

// TicketPrice returns the configured ticket price in wei
func (c *Config) TicketPrice() *big.Int {
	price, err := models.ParseWei(c.TicketPriceWei)
	if err != nil {
		return new(big.Int).Set(models.DefaultTicketPrice)
	}
	return price
}

// NATSServerList splits NATSServers into individual URLs
func (c *Config) NATSServerList() []string {
	var servers []string
	for _, s := range strings.Split(c.NATSServers, ",") {
		if s = strings.TrimSpace(s); s != "" {
			servers = append(servers, s)
		}
	}
	return servers
}

func defaults() *Config {
	return &Config{
		StoreDriver:     StoreDriverPostgres,
		LotteryID:       1,
		MinParticipants: 3,
		TicketPriceWei:  models.DefaultTicketPrice.String(),
		RandomSource:    "crypto",
		HTTPAddr:        ":8080",
		LogLevel:        "info",
		LogFormat:       "text",
		Environment:     "development",
	}
}

// load reads the optional TOML file named by BLOCKLUCKY_CONFIG, then
// applies environment variable overrides
func load() (*Config, error) {
	config := defaults()

	if path := os.Getenv("BLOCKLUCKY_CONFIG"); path != "" {
		if _, err := toml.DecodeFile(path, config); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	config.DatabaseURL = getEnvWithDefault("DATABASE_URL", config.DatabaseURL)
	config.DatabaseName = getEnvWithDefault("DATABASE_NAME", config.DatabaseName)
	config.StoreDriver = getEnvWithDefault("STORE_DRIVER", config.StoreDriver)
	config.OwnerAddress = getEnvWithDefault("OWNER_ADDRESS", config.OwnerAddress)
	config.TicketPriceWei = getEnvWithDefault("TICKET_PRICE_WEI", config.TicketPriceWei)
	config.RandomSource = getEnvWithDefault("RANDOM_SOURCE", config.RandomSource)
	config.HTTPAddr = getEnvWithDefault("HTTP_ADDR", config.HTTPAddr)
	config.NATSServers = getEnvWithDefault("NATS_SERVERS", config.NATSServers)
	config.LogLevel = getEnvWithDefault("LOG_LEVEL", config.LogLevel)
	config.LogFormat = getEnvWithDefault("LOG_FORMAT", config.LogFormat)
	config.Environment = getEnvWithDefault("ENVIRONMENT", config.Environment)

	if v := os.Getenv("LOTTERY_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid LOTTERY_ID %q: %w", v, err)
		}
		config.LotteryID = id
	}
	if v := os.Getenv("DATABASE_MAX_CONNS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid DATABASE_MAX_CONNS %q: %w", v, err)
		}
		config.DatabaseMaxConns = int32(n)
	}
	if v := os.Getenv("MIN_PARTICIPANTS"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid MIN_PARTICIPANTS %q: %w", v, err)
		}
		config.MinParticipants = n
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.Environment == "test" {
		return nil
	}

	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.OwnerAddress != "" && !common.IsHexAddress(c.OwnerAddress) {
		return fmt.Errorf("OWNER_ADDRESS %q is not a hex address", c.OwnerAddress)
	}
	if c.MinParticipants == 0 {
		return fmt.Errorf("MIN_PARTICIPANTS must be greater than 0")
	}
	if price, err := models.ParseWei(c.TicketPriceWei); err != nil || price.Sign() == 0 {
		return fmt.Errorf("TICKET_PRICE_WEI must be a positive integer, got %q", c.TicketPriceWei)
	}

	// If DatabaseName is provided, ensure it's not empty
	if c.DatabaseName != "" && strings.TrimSpace(c.DatabaseName) == "" {
		return fmt.Errorf("DATABASE_NAME cannot be empty when provided")
	}
	return nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	c := defaults()
	c.Environment = "test"
	c.StoreDriver = StoreDriverMemory
	c.OwnerAddress = "0x00000000000000000000000000000000000000aa"
	return c
}
