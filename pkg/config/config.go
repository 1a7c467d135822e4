package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Device DeviceConfig `mapstructure:"device"`
	Policy PolicyConfig `mapstructure:"policy"`
	Token  TokenConfig  `mapstructure:"token"`
	Server ServerConfig `mapstructure:"server"`
	Wallet WalletConfig `mapstructure:"wallet"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type DeviceConfig struct {
	BlindSigning bool   `mapstructure:"blind_signing"`
	HeapCeiling  int    `mapstructure:"heap_ceiling"` // 解释器符号表上限 (字节)
	Version      string `mapstructure:"version"`      // major.minor.patch
}

// MoveCall 允许列表中的一项
type MoveCall struct {
	Package  string `mapstructure:"package"`
	Module   string `mapstructure:"module"`
	Function string `mapstructure:"function"`
	Kind     string `mapstructure:"kind"` // add_stake / add_stake_mul_coin / withdraw_stake / staking_pool_split
}

type PolicyConfig struct {
	MoveCalls []MoveCall `mapstructure:"move_calls"`
}

type TokenConfig struct {
	TrustedKey string        `mapstructure:"trusted_key"` // hex 压缩 secp256k1 公钥
	TTL        time.Duration `mapstructure:"ttl"`
}

type ServerConfig struct {
	HttpPort string `mapstructure:"http_port"`
}

type WalletConfig struct {
	KeystorePath string `mapstructure:"keystore_path"`
	Mnemonic     string `mapstructure:"mnemonic"` // 仅用于测试环境，设置后不再读取 keystore
	Password     string `mapstructure:"password"` // Keystore 密码 (通常通过环境变量 WALLET_PASSWORD 传入)
}

var Global Config

func Init() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// 环境变量设置
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("Warning: Config file not found, using defaults and environment variables")
		} else {
			log.Fatalf("Fatal error config file: %s \n", err)
		}
	}

	if err := viper.Unmarshal(&Global); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	log.Printf("Configuration loaded successfully. Env: %s", Global.App.Env)
}

// DefaultMoveCalls 质押相关的四个系统调用
func DefaultMoveCalls() []MoveCall {
	return []MoveCall{
		{Package: "0x3", Module: "sui_system", Function: "request_add_stake", Kind: "add_stake"},
		{Package: "0x3", Module: "sui_system", Function: "request_add_stake_mul_coin", Kind: "add_stake_mul_coin"},
		{Package: "0x3", Module: "sui_system", Function: "request_withdraw_stake", Kind: "withdraw_stake"},
		{Package: "0x3", Module: "staking_pool", Function: "split", Kind: "staking_pool_split"},
	}
}

func setDefaults() {
	viper.SetDefault("app.env", "development")

	viper.SetDefault("device.blind_signing", false)
	viper.SetDefault("device.heap_ceiling", 12*1024)
	viper.SetDefault("device.version", "1.0.0")

	calls := DefaultMoveCalls()
	entries := make([]map[string]any, 0, len(calls))
	for _, c := range calls {
		entries = append(entries, map[string]any{
			"package":  c.Package,
			"module":   c.Module,
			"function": c.Function,
			"kind":     c.Kind,
		})
	}
	viper.SetDefault("policy.move_calls", entries)

	viper.SetDefault("token.ttl", "10m")

	viper.SetDefault("server.http_port", "5000")

	viper.SetDefault("wallet.keystore_path", "wallet.json")
}
