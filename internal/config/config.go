package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Futures  FuturesConfig
}

type ServerConfig struct {
	Port    string
	AppName string `mapstructure:"app_name"`
}

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	TimeZone    string
	TablePrefix string `mapstructure:"table_prefix"`
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret     string `mapstructure:"jwt_secret"`
	AdminEmail    string `mapstructure:"admin_email"`
	AdminPassword string `mapstructure:"admin_password"`
}

// FuturesConfig holds the venue bootstrap values. The percent fields
// seed the engine's parameter store; later changes go through the
// administrator operations, not config reloads.
type FuturesConfig struct {
	CollateralRequirementPercent int64  `mapstructure:"collateral_requirement_percent"`
	LiquidationThresholdPercent  int64  `mapstructure:"liquidation_threshold_percent"`
	PlatformFeePercent           int64  `mapstructure:"platform_fee_percent"`
	VaultAccount                 string `mapstructure:"vault_account"`
	PlatformAccount              string `mapstructure:"platform_account"`
}

func LoadConfig() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.port", ":8080")
	viper.SetDefault("server.app_name", "gpufutures")
	viper.SetDefault("futures.collateral_requirement_percent", 20)
	viper.SetDefault("futures.liquidation_threshold_percent", 10)
	viper.SetDefault("futures.platform_fee_percent", 1)
	viper.SetDefault("futures.vault_account", "vault")
	viper.SetDefault("futures.platform_account", "platform")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Error reading config file, %s", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	return &config
}
