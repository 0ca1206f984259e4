package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// PenaltyRoute controls where a premature-withdrawal penalty goes.
const (
	PenaltyRouteBurn     = "burn"
	PenaltyRouteTreasury = "treasury"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Bank     BankConfig     `mapstructure:"bank"`
	Chain    ChainConfig    `mapstructure:"chain"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

// BankConfig holds the fixed-deposit and membership-lock policy knobs.
// Amounts are in the smallest unit; periods are in blocks.
type BankConfig struct {
	MinDepositAmount  int64    `mapstructure:"min_deposit_amount"`
	MaxDepositAmount  int64    `mapstructure:"max_deposit_amount"`
	MinMaturityBlocks int64    `mapstructure:"min_maturity_blocks"`
	MaxMaturityBlocks int64    `mapstructure:"max_maturity_blocks"`
	MinLockAmount     int64    `mapstructure:"min_lock_amount"`
	MaxLockAmount     int64    `mapstructure:"max_lock_amount"`
	AllowMultipleFDs  bool     `mapstructure:"allow_multiple_fds"`
	PenaltyRoute      string   `mapstructure:"penalty_route"` // burn | treasury
	AdminUsernames    []string `mapstructure:"admin_usernames"`
}

// ChainConfig parameterizes the block clock: heights are derived from
// wall time against a fixed genesis.
type ChainConfig struct {
	GenesisUnix   int64         `mapstructure:"genesis_unix"`
	BlockInterval time.Duration `mapstructure:"block_interval"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Validate rejects configurations the bank engine cannot run with.
func (c *Config) Validate() error {
	b := c.Bank
	if b.MinDepositAmount <= 0 || b.MaxDepositAmount < b.MinDepositAmount {
		return fmt.Errorf("bank: invalid deposit amount bounds [%d, %d]", b.MinDepositAmount, b.MaxDepositAmount)
	}
	if b.MinMaturityBlocks <= 0 || b.MaxMaturityBlocks < b.MinMaturityBlocks {
		return fmt.Errorf("bank: invalid maturity bounds [%d, %d]", b.MinMaturityBlocks, b.MaxMaturityBlocks)
	}
	if b.MinLockAmount <= 0 || b.MaxLockAmount < b.MinLockAmount {
		return fmt.Errorf("bank: invalid lock amount bounds [%d, %d]", b.MinLockAmount, b.MaxLockAmount)
	}
	if b.PenaltyRoute != PenaltyRouteBurn && b.PenaltyRoute != PenaltyRouteTreasury {
		return fmt.Errorf("bank: unknown penalty route %q", b.PenaltyRoute)
	}
	if c.Chain.BlockInterval <= 0 {
		return fmt.Errorf("chain: block interval must be positive")
	}
	return nil
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: FDB_ (Fixed Deposit Bank).
// Nested keys use underscore: FDB_DATABASE_HOST, FDB_JWT_SECRET, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "fd_bank")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "fixed-deposit-bank")
	v.SetDefault("bank.min_deposit_amount", 50)
	v.SetDefault("bank.max_deposit_amount", 200_000)
	v.SetDefault("bank.min_maturity_blocks", 10)
	v.SetDefault("bank.max_maturity_blocks", 1_000_000)
	v.SetDefault("bank.min_lock_amount", 20)
	v.SetDefault("bank.max_lock_amount", 10_000)
	v.SetDefault("bank.allow_multiple_fds", true)
	v.SetDefault("bank.penalty_route", PenaltyRouteBurn)
	v.SetDefault("bank.admin_usernames", []string{})
	v.SetDefault("chain.genesis_unix", 0)
	v.SetDefault("chain.block_interval", "6s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: FDB_DATABASE_HOST -> database.host
	v.SetEnvPrefix("FDB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required — env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}
