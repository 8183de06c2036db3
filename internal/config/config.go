package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/tdex-network/tdex-nft-escrow/internal/core/application"
)

const (
	// ListeningPortKey is the port where the REST interface will listen on
	ListeningPortKey = "LISTENING_PORT"
	// DatadirKey is the local data directory to store the internal state of daemon
	DatadirKey = "DATADIR"
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// DBTypeKey is used to switch database type between those supported
	DBTypeKey = "DB_TYPE"
	// MinTradeDurationKey is the minimum lifetime in seconds accepted for a new trade
	MinTradeDurationKey = "MIN_TRADE_DURATION"
	// CustodyAddressKey is the address holding the NFTs and payments staked into trades
	CustodyAddressKey = "CUSTODY_ADDRESS"
	// WebhookTimeoutKey is the number of seconds to wait for a webhook endpoint to reply
	WebhookTimeoutKey = "WEBHOOK_TIMEOUT"
	// WebhookRateLimitKey is the max number of webhook requests per second
	WebhookRateLimitKey = "WEBHOOK_RATE_LIMIT"
	// EnableMetricsKey exposes prometheus metrics on the /metrics endpoint
	EnableMetricsKey = "ENABLE_METRICS"
	// EnableDevFaucetKey exposes the endpoints to mint NFTs and fund accounts
	// on the in-memory custody. Never enable this in production.
	EnableDevFaucetKey = "ENABLE_DEV_FAUCET"

	DbLocation = "db"
)

var vip *viper.Viper
var defaultDatadir = btcutil.AppDataDir("escrowd", false)

func InitConfig() error {
	vip = viper.New()
	vip.SetEnvPrefix("ESCROW")
	vip.AutomaticEnv()

	vip.SetDefault(ListeningPortKey, 9080)
	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(LogLevelKey, int(log.InfoLevel))
	vip.SetDefault(DBTypeKey, application.DBBadger)
	vip.SetDefault(MinTradeDurationKey, 600)
	vip.SetDefault(CustodyAddressKey, "escrow")
	vip.SetDefault(WebhookTimeoutKey, 15)
	vip.SetDefault(WebhookRateLimitKey, 50)
	vip.SetDefault(EnableMetricsKey, true)
	vip.SetDefault(EnableDevFaucetKey, false)

	if err := validate(); err != nil {
		return fmt.Errorf("error while validating config: %s", err)
	}

	if err := initDatadir(); err != nil {
		return fmt.Errorf("error while creating datadir: %s", err)
	}

	return nil
}

func GetString(key string) string {
	return vip.GetString(key)
}

func GetInt(key string) int {
	return vip.GetInt(key)
}

func GetInt64(key string) int64 {
	return vip.GetInt64(key)
}

func GetBool(key string) bool {
	return vip.GetBool(key)
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

func GetLogLevel() log.Level {
	return log.Level(GetInt(LogLevelKey))
}

func GetWebhookTimeout() time.Duration {
	return time.Duration(GetInt(WebhookTimeoutKey)) * time.Second
}

// GetDbDir returns the directory of the badger databases.
func GetDbDir() string {
	return filepath.Join(GetDatadir(), DbLocation)
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("missing datadir")
	}

	port := GetInt(ListeningPortKey)
	if port <= 0 || port > 65535 {
		return fmt.Errorf("%s must be in range (0, 65535]", ListeningPortKey)
	}

	level := GetInt(LogLevelKey)
	if level < int(log.PanicLevel) || level > int(log.TraceLevel) {
		return fmt.Errorf(
			"%s must be in range [%d, %d]",
			LogLevelKey, log.PanicLevel, log.TraceLevel,
		)
	}

	dbType := GetString(DBTypeKey)
	if _, ok := application.SupportedDBType[dbType]; !ok {
		return fmt.Errorf("unsupported %s %q", DBTypeKey, dbType)
	}

	if GetInt64(MinTradeDurationKey) < 0 {
		return fmt.Errorf("%s must not be negative", MinTradeDurationKey)
	}

	if GetString(CustodyAddressKey) == "" {
		return fmt.Errorf("missing custody address")
	}

	if GetInt(WebhookTimeoutKey) <= 0 {
		return fmt.Errorf("%s must be a positive number of seconds", WebhookTimeoutKey)
	}
	if GetInt(WebhookRateLimitKey) <= 0 {
		return fmt.Errorf("%s must be a positive number", WebhookRateLimitKey)
	}

	return nil
}

func initDatadir() error {
	if GetString(DBTypeKey) != application.DBBadger {
		return nil
	}
	return makeDirectoryIfNotExists(GetDbDir())
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
