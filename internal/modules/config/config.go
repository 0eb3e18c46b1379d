package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	databaseDSN       = "DATABASE_DSN"
	binanceKeyENV     = "BINANCE_API_KEY"
	binanceSecretENV  = "BINANCE_API_SECRET"
)

// Config ...
type Config struct {
	Binance struct {
		APIKey    string `yaml:"api_key"`
		APISecret string `yaml:"api_secret"`
		Testnet   bool   `yaml:"testnet"`
	} `yaml:"binance"`

	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	DB string `yaml:"db_dsn"`

	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`

	Jaeger struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"jaeger"`

	// Индикаторы
	RSIPeriod     int     `yaml:"rsi_period"`
	FastMA        int     `yaml:"fast_ma"`
	SlowMA        int     `yaml:"slow_ma"`
	VolumePeriod  int     `yaml:"volume_period"`
	BollPeriod    int     `yaml:"boll_period"`
	BollStd       float64 `yaml:"boll_std"`
	RSIOverbought float64 `yaml:"rsi_overbought"`
	RSIOversold   float64 `yaml:"rsi_oversold"`

	// Требования к сигналу
	MinConfidence  float64 `yaml:"min_confidence"`
	VolumeRatioMin float64 `yaml:"volume_ratio_min"`
	MinRiskReward  float64 `yaml:"min_risk_reward"`

	// Торговля
	MaxTrades     int     `yaml:"max_trades"`
	OrderNotional float64 `yaml:"order_notional"` // размер входа в USDT

	// Сканер
	MinQuoteVolume float64  `yaml:"min_quote_volume"` // суточный оборот для отбора пар
	Timeframes     []string `yaml:"timeframes"`
	CandleLimit    int      `yaml:"candle_limit"`
	ScanRPS        float64  `yaml:"scan_rps"` // запросов в секунду к провайдеру

	// Интервалы задаются только через env (yaml.v2 не знает time.Duration)
	PairRefreshInterval time.Duration `yaml:"-"`
	MonitorInterval     time.Duration `yaml:"-"`
	ProviderTimeout     time.Duration `yaml:"-"`
	EntryFillTimeout    time.Duration `yaml:"-"` // ждём исполнения входа, потом снимаем

	CommandQueueMax int `yaml:"command_queue_max"`

	// Статистика
	RiskFreeRate float64 `yaml:"risk_free_rate"` // % на сделку для Шарпа
}

func NewConfig() (*Config, error) {
	config := Config{
		RSIPeriod:     intFromEnv("RSI_PERIOD", 14),
		FastMA:        intFromEnv("FAST_MA", 12),
		SlowMA:        intFromEnv("SLOW_MA", 26),
		VolumePeriod:  intFromEnv("VOLUME_PERIOD", 20),
		BollPeriod:    intFromEnv("BOLL_PERIOD", 20),
		BollStd:       floatFromEnv("BOLL_STD", 2.0),
		RSIOverbought: floatFromEnv("RSI_OVERBOUGHT", 70),
		RSIOversold:   floatFromEnv("RSI_OVERSOLD", 30),

		MinConfidence:  floatFromEnv("MIN_CONFIDENCE", 70),
		VolumeRatioMin: floatFromEnv("VOLUME_RATIO_MIN", 1.5),
		MinRiskReward:  floatFromEnv("MIN_RISK_REWARD", 2.0),

		MaxTrades:     intFromEnv("MAX_TRADES", 5),
		OrderNotional: floatFromEnv("ORDER_NOTIONAL", 100),

		MinQuoteVolume:      floatFromEnv("MIN_QUOTE_VOLUME", 1_000_000),
		CandleLimit:         intFromEnv("CANDLE_LIMIT", 100),
		PairRefreshInterval: durationFromEnv("PAIR_REFRESH_INTERVAL", "30m"),
		ScanRPS:             floatFromEnv("SCAN_RPS", 1),

		MonitorInterval:  durationFromEnv("MONITOR_INTERVAL", "1s"),
		ProviderTimeout:  durationFromEnv("PROVIDER_TIMEOUT", "10s"),
		EntryFillTimeout: durationFromEnv("ENTRY_FILL_TIMEOUT", "2m"),
		CommandQueueMax: intFromEnv("COMMAND_QUEUE_MAX", 32),

		RiskFreeRate: floatFromEnv("RISK_FREE_RATE", 0),
	}

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	file, err := os.Open("configs/" + configFileName)
	if err != nil {
		return nil, errors.Wrap(err, "open config file")
	}
	defer func() {
		_ = file.Close()
	}()

	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, errors.Wrap(err, "decode config file")
	}

	if token := os.Getenv(tokenTelegramENV); token != "" {
		config.Telegram.Token = token
	}
	if dsn := os.Getenv(databaseDSN); dsn != "" {
		config.DB = dsn
	}
	if key := os.Getenv(binanceKeyENV); key != "" {
		config.Binance.APIKey = key
	}
	if sec := os.Getenv(binanceSecretENV); sec != "" {
		config.Binance.APISecret = sec
	}

	if len(config.Timeframes) == 0 {
		config.Timeframes = strings.Split(getenvDefault("TIMEFRAMES", "1m,5m,15m,1h,4h"), ",")
	}

	return &config, nil
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func floatFromEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationFromEnv(key, def string) time.Duration {
	val := getenvDefault(key, def)
	d, err := time.ParseDuration(val)
	if err != nil {
		d, _ = time.ParseDuration(def)
	}
	return d
}
