package main

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix     = "BATCHBOOK"
	maxAssetScale = 18
)

// 配置键
const (
	keyConfigFile      = "config"
	keyHTTPAddr        = "http_addr"
	keyRedisAddr       = "redis_addr"
	keyRedisPassword   = "redis_password"
	keyRedisDB         = "redis_db"
	keyPostgresDSN     = "postgres_dsn"
	keyRefreshInterval = "refresh_interval"
	keyMarkets         = "markets"
)

// Market 交易对及其价格/数量精度（小数位数）
type Market struct {
	Pair          string `json:"pair"`
	PriceScale    int32  `json:"priceScale"`
	QuantityScale int32  `json:"quantityScale"`
}

// Config 服务配置
type Config struct {
	HTTPAddr        string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	PostgresDSN     string // 为空时不记录历史
	RefreshInterval time.Duration
	Markets         []Market
}

// newViper 带默认值的 viper 实例，环境变量前缀 BATCHBOOK_
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	v.SetDefault(keyHTTPAddr, ":8080")
	v.SetDefault(keyRedisAddr, "127.0.0.1:6379")
	v.SetDefault(keyRedisPassword, "")
	v.SetDefault(keyRedisDB, 0)
	v.SetDefault(keyPostgresDSN, "")
	v.SetDefault(keyRefreshInterval, 2*time.Second)
	v.SetDefault(keyMarkets, "BTC_USDT:8:8")
	return v
}

// registerFlags 注册命令行参数并绑定到 viper
func registerFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	flags.String("config", "", "配置文件路径 (yaml/toml/json)")
	flags.String("http-addr", v.GetString(keyHTTPAddr), "HTTP 监听地址")
	flags.String("redis-addr", v.GetString(keyRedisAddr), "Redis 地址")
	flags.String("postgres-dsn", v.GetString(keyPostgresDSN), "PostgreSQL DSN，为空则不记录历史")
	flags.Duration("refresh-interval", v.GetDuration(keyRefreshInterval), "盘口刷新间隔")
	flags.String("markets", v.GetString(keyMarkets), "交易对列表，格式 PAIR:价格精度:数量精度，逗号分隔")

	bindings := map[string]string{
		keyConfigFile:      "config",
		keyHTTPAddr:        "http-addr",
		keyRedisAddr:       "redis-addr",
		keyPostgresDSN:     "postgres-dsn",
		keyRefreshInterval: "refresh-interval",
		keyMarkets:         "markets",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("绑定参数 %s 失败: %w", flag, err)
		}
	}
	return nil
}

// loadDotEnv 加载当前目录的 .env，文件不存在时只记录日志
func loadDotEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("未加载 .env 文件，使用环境变量: %v", err)
	}
}

// LoadConfig 从 viper 读取并校验配置
func LoadConfig(v *viper.Viper) (Config, error) {
	if file := v.GetString(keyConfigFile); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	markets, err := ParseMarkets(v.GetString(keyMarkets))
	if err != nil {
		return Config{}, err
	}
	interval := v.GetDuration(keyRefreshInterval)
	if interval <= 0 {
		return Config{}, fmt.Errorf("刷新间隔必须大于 0: %s", interval)
	}

	return Config{
		HTTPAddr:        v.GetString(keyHTTPAddr),
		RedisAddr:       v.GetString(keyRedisAddr),
		RedisPassword:   v.GetString(keyRedisPassword),
		RedisDB:         v.GetInt(keyRedisDB),
		PostgresDSN:     v.GetString(keyPostgresDSN),
		RefreshInterval: interval,
		Markets:         markets,
	}, nil
}

// ParseMarkets 解析 "BTC_USDT:8:8,ETH_USDT:2:6"
func ParseMarkets(s string) ([]Market, error) {
	var markets []Market
	seen := make(map[string]bool)
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, ":")
		if len(parts) != 3 || parts[0] == "" {
			return nil, fmt.Errorf("无效的交易对配置 %q，格式应为 PAIR:价格精度:数量精度", item)
		}
		priceScale, err := parseScale(parts[1])
		if err != nil {
			return nil, fmt.Errorf("交易对 %s 价格精度: %w", parts[0], err)
		}
		quantityScale, err := parseScale(parts[2])
		if err != nil {
			return nil, fmt.Errorf("交易对 %s 数量精度: %w", parts[0], err)
		}
		if seen[parts[0]] {
			return nil, fmt.Errorf("交易对 %s 重复", parts[0])
		}
		seen[parts[0]] = true
		markets = append(markets, Market{Pair: parts[0], PriceScale: priceScale, QuantityScale: quantityScale})
	}
	if len(markets) == 0 {
		return nil, fmt.Errorf("至少需要配置一个交易对")
	}
	return markets, nil
}

func parseScale(s string) (int32, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("无效的精度 %q", s)
	}
	if n < 0 || n > maxAssetScale {
		return 0, fmt.Errorf("精度 %d 超出范围 [0, %d]", n, maxAssetScale)
	}
	return int32(n), nil
}
