package config

import (
	"time"
)

// BuildVersion is set at build time via -ldflags.
var BuildVersion = "development"

const (
	DurationUnitMonths  = "months"
	DurationUnitMinutes = "minutes"
)

// Validation tags described here: https://pkg.go.dev/github.com/go-playground/validator/v10
type Config struct {
	Blockchain struct {
		EthNodeAddress string        `env:"ETH_NODE_ADDRESS"   flag:"eth-node-address"   validate:"required,url"`
		EthLegacyTx    bool          `env:"ETH_NODE_LEGACY_TX" flag:"eth-node-legacy-tx" desc:"use it to disable EIP-1559 transactions"`
		TxTimeout      time.Duration `env:"ETH_TX_TIMEOUT"     flag:"eth-tx-timeout"     validate:"omitempty" desc:"time to wait for a transaction receipt before treating the transaction as failed"`
	}
	Contract struct {
		BytecodePath string `env:"CONTRACT_BYTECODE_PATH" flag:"contract-bytecode-path" validate:"required,file" desc:"path to the compiled rental agreement bytecode (hex)"`
		DurationUnit string `env:"CONTRACT_DURATION_UNIT" flag:"contract-duration-unit" validate:"omitempty,oneof=months minutes" desc:"unit for contract duration and renewal periods"`
	}
	DB struct {
		Dialect string `env:"DB_DIALECT" flag:"db-dialect" validate:"omitempty,oneof=sqlite postgres"`
		DSN     string `env:"DB_DSN"     flag:"db-dsn"     validate:"required" desc:"sqlite filepath or postgres connection string"`
	}
	Environment string `env:"ENVIRONMENT" flag:"environment"`
	Log         struct {
		Color         bool   `env:"LOG_COLOR"          flag:"log-color"`
		FolderPath    string `env:"LOG_FOLDER_PATH"    flag:"log-folder-path"    validate:"omitempty,dirpath" desc:"enables file logging and sets the folder path"`
		IsProd        bool   `env:"LOG_IS_PROD"        flag:"log-is-prod"        desc:"affects the format of the log output"`
		JSON          bool   `env:"LOG_JSON"           flag:"log-json"`
		LevelApp      string `env:"LOG_LEVEL_APP"      flag:"log-level-app"      validate:"omitempty,oneof=debug info warn error dpanic panic fatal"`
		LevelEthereum string `env:"LOG_LEVEL_ETHEREUM" flag:"log-level-ethereum" validate:"omitempty,oneof=debug info warn error dpanic panic fatal"`
		LevelRental   string `env:"LOG_LEVEL_RENTAL"   flag:"log-level-rental"   validate:"omitempty,oneof=debug info warn error dpanic panic fatal"`
	}
	Renewal struct {
		Enable           bool          `env:"RENEWAL_ENABLE"             flag:"renewal-enable"             desc:"run the periodic auto-renewal sweep"`
		Interval         time.Duration `env:"RENEWAL_INTERVAL"           flag:"renewal-interval"           validate:"omitempty" desc:"interval between auto-renewal sweeps"`
		Mnemonic         string        `env:"RENEWAL_MNEMONIC"           flag:"renewal-mnemonic"           desc:"mnemonic the landlord signing key is derived from"`
		AccountIndex     int           `env:"RENEWAL_ACCOUNT_INDEX"      flag:"renewal-account-index"      validate:"omitempty,number"`
		EncryptedKeyPath string        `env:"RENEWAL_ENCRYPTED_KEY_PATH" flag:"renewal-encrypted-key-path" validate:"omitempty,file" desc:"path to the sealed landlord key, decrypted only at point of use"`
		KeyPassphrase    string        `env:"RENEWAL_KEY_PASSPHRASE"     flag:"renewal-key-passphrase"`
	}
	Web struct {
		Address   string `env:"WEB_ADDRESS"    flag:"web-address"    validate:"required,hostname_port" desc:"http server address host:port"`
		PublicUrl string `env:"WEB_PUBLIC_URL" flag:"web-public-url" validate:"omitempty,url" desc:"public url of the service, falls back to web-address if empty"`
	}
}

func (cfg *Config) SetDefaults() {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	// Blockchain
	if cfg.Blockchain.TxTimeout == 0 {
		cfg.Blockchain.TxTimeout = 1 * time.Minute
	}

	// Contract
	if cfg.Contract.DurationUnit == "" {
		cfg.Contract.DurationUnit = DurationUnitMonths
	}

	// DB
	if cfg.DB.Dialect == "" {
		cfg.DB.Dialect = "sqlite"
	}

	// Log
	if cfg.Log.LevelApp == "" {
		cfg.Log.LevelApp = "debug"
	}
	if cfg.Log.LevelEthereum == "" {
		cfg.Log.LevelEthereum = "info"
	}
	if cfg.Log.LevelRental == "" {
		cfg.Log.LevelRental = "debug"
	}

	// Renewal
	if cfg.Renewal.Interval == 0 {
		cfg.Renewal.Interval = 1 * time.Hour
	}

	// Web
	if cfg.Web.Address == "" {
		cfg.Web.Address = "0.0.0.0:8080"
	}
	if cfg.Web.PublicUrl == "" {
		cfg.Web.PublicUrl = "http://localhost:8080"
	}
}

// GetSanitized returns a copy of the config with sensitive data removed;
// explicitly adding each field here to avoid accidentally leaking secrets
func (cfg *Config) GetSanitized() interface{} {
	publicCfg := Config{}

	publicCfg.Blockchain.EthNodeAddress = cfg.Blockchain.EthNodeAddress
	publicCfg.Blockchain.EthLegacyTx = cfg.Blockchain.EthLegacyTx
	publicCfg.Blockchain.TxTimeout = cfg.Blockchain.TxTimeout

	publicCfg.Contract.BytecodePath = cfg.Contract.BytecodePath
	publicCfg.Contract.DurationUnit = cfg.Contract.DurationUnit

	publicCfg.DB.Dialect = cfg.DB.Dialect

	publicCfg.Environment = cfg.Environment

	publicCfg.Log.Color = cfg.Log.Color
	publicCfg.Log.FolderPath = cfg.Log.FolderPath
	publicCfg.Log.IsProd = cfg.Log.IsProd
	publicCfg.Log.JSON = cfg.Log.JSON
	publicCfg.Log.LevelApp = cfg.Log.LevelApp
	publicCfg.Log.LevelEthereum = cfg.Log.LevelEthereum
	publicCfg.Log.LevelRental = cfg.Log.LevelRental

	publicCfg.Renewal.Enable = cfg.Renewal.Enable
	publicCfg.Renewal.Interval = cfg.Renewal.Interval
	publicCfg.Renewal.AccountIndex = cfg.Renewal.AccountIndex
	publicCfg.Renewal.EncryptedKeyPath = cfg.Renewal.EncryptedKeyPath

	publicCfg.Web.Address = cfg.Web.Address
	publicCfg.Web.PublicUrl = cfg.Web.PublicUrl

	return publicCfg
}
