package config

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Kafka struct {
		Brokers          []string `yaml:"brokers"`
		EvaluationsTopic string   `yaml:"evaluations_topic"`
		PanelTopic       string   `yaml:"panel_topic"`
		RequiredAcks     int      `yaml:"required_acks"`
		Compression      string   `yaml:"compression"`
		Producer         struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Cache struct {
		Type  string        `yaml:"type"` // memory, redis, layered
		TTL   time.Duration `yaml:"ttl"`
		Redis struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Panel struct {
		LookbackDays     int           `yaml:"lookback_days"`
		EvaluateInterval time.Duration `yaml:"evaluate_interval"`
	} `yaml:"panel"`
	Analytics Analytics `yaml:"analytics"`
}

// Analytics holds every tunable of the four analysis engines. Engines take
// their section by value, so tests can build one without a YAML file.
type Analytics struct {
	Signal     SignalConfig     `yaml:"signal"`
	Indicators IndicatorsConfig `yaml:"indicators"`
	Judgment   JudgmentConfig   `yaml:"judgment"`
	Score      ScoreConfig      `yaml:"score"`
	Forward    ForwardConfig    `yaml:"forward"`
}

type SignalConfig struct {
	ChangeWindows    []int `yaml:"change_windows"`
	ZScoreWindow     int   `yaml:"zscore_window"`
	ZScoreMinObs     int   `yaml:"zscore_min_obs"`
	PercentileWindow int   `yaml:"percentile_window"`
	PercentileMinObs int   `yaml:"percentile_min_obs"`
}

type IndicatorsConfig struct {
	Tracked       []string `yaml:"tracked"`
	HigherTighter []string `yaml:"higher_tighter"`
	HigherLooser  []string `yaml:"higher_looser"`
	PriceLike     []string `yaml:"price_like"`
}

// IsPriceLike reports whether percentage changes apply to an indicator.
func (c IndicatorsConfig) IsPriceLike(name string) bool { return contains(c.PriceLike, name) }

// DirectionSign returns +1 for higher=looser indicators, -1 for
// higher=tighter, 0 for unclassified.
func (c IndicatorsConfig) DirectionSign(name string) int {
	if contains(c.HigherLooser, name) {
		return 1
	}
	if contains(c.HigherTighter, name) {
		return -1
	}
	return 0
}

type JudgmentConfig struct {
	NetLiqWeakThreshold5d     float64 `yaml:"net_liq_weak_threshold_5d"`    // billions
	SOFRStressThresholdBps5d  float64 `yaml:"sofr_stress_threshold_bps_5d"` // basis points
	VolStressThreshold        float64 `yaml:"vol_stress_threshold"`         // absolute level
	USDJPYStressThreshold5d   float64 `yaml:"usdjpy_stress_threshold_5d"`
	CarryNarrowThresholdBps5d float64 `yaml:"carry_narrow_threshold_bps_5d"`
	HYOASWidenThresholdBps5d  float64 `yaml:"hy_oas_widen_threshold_bps_5d"`
	SPXWeakThreshold5d        float64 `yaml:"spx_weak_threshold_5d"` // fractional return
	MinConfirmations          int     `yaml:"min_confirmations"`
	StaleDaysLimit            int     `yaml:"stale_days_limit"`
}

type ScoreConfig struct {
	Weights map[string]float64 `yaml:"weights"`
	// Directions maps each scored indicator to its bullish-direction sign:
	// +1 when a higher value is more favorable for risk assets, -1 when it
	// tightens conditions. Covers the scored universe, which extends the
	// signal label classes with curve slope and ON RRP.
	Directions map[string]int `yaml:"directions"`
	MinObs     int            `yaml:"min_obs"`
}

type ForwardConfig struct {
	TopAnalogues     int     `yaml:"top_analogues"`
	MinSimilarity    float64 `yaml:"min_similarity"`
	ExclusionDays    int     `yaml:"exclusion_days"`
	TrailingWindow   int     `yaml:"trailing_window"`
	MinProfileSize   int     `yaml:"min_profile_size"`
	MinTransitionObs int     `yaml:"min_transition_obs"`
}

// DefaultAnalytics returns the calibrated defaults used when the YAML file
// omits a value. Thresholds follow the daily macro panel's units.
func DefaultAnalytics() Analytics {
	return Analytics{
		Signal: SignalConfig{
			ChangeWindows:    []int{1, 5, 20},
			ZScoreWindow:     60,
			ZScoreMinObs:     20,
			PercentileWindow: 252,
			PercentileMinObs: 60,
		},
		Indicators: IndicatorsConfig{
			Tracked: []string{
				"net_liquidity", "sofr", "hy_oas", "vix", "move_proxy",
				"usdjpy", "carry_spread_bps", "curve_slope_bps",
				"us2y", "us10y", "spx", "btc", "dxy",
			},
			HigherTighter: []string{"sofr", "hy_oas", "vix", "move_proxy", "dxy"},
			HigherLooser:  []string{"net_liquidity", "usdjpy", "carry_spread_bps", "spx", "btc"},
			PriceLike:     []string{"spx", "btc", "usdjpy", "dxy"},
		},
		Judgment: JudgmentConfig{
			NetLiqWeakThreshold5d:     -50,
			SOFRStressThresholdBps5d:  5,
			VolStressThreshold:        25,
			USDJPYStressThreshold5d:   -2.0,
			CarryNarrowThresholdBps5d: -10,
			HYOASWidenThresholdBps5d:  15,
			SPXWeakThreshold5d:        -0.02,
			MinConfirmations:          2,
			StaleDaysLimit:            3,
		},
		Score: ScoreConfig{
			Weights: map[string]float64{
				"net_liquidity":    0.25,
				"vix":              0.15,
				"hy_oas":           0.15,
				"sofr":             0.10,
				"dxy":              0.10,
				"carry_spread_bps": 0.10,
				"curve_slope_bps":  0.08,
				"on_rrp":           0.07,
			},
			Directions: map[string]int{
				"net_liquidity":    1,
				"vix":              -1,
				"hy_oas":           -1,
				"sofr":             -1,
				"dxy":              -1,
				"carry_spread_bps": 1,
				"curve_slope_bps":  1,
				"on_rrp":           -1,
			},
			MinObs: 30,
		},
		Forward: ForwardConfig{
			TopAnalogues:     10,
			MinSimilarity:    0.7,
			ExclusionDays:    25,
			TrailingWindow:   60,
			MinProfileSize:   4,
			MinTransitionObs: 100,
		},
	}
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("EVALUATIONS_TOPIC"); v != "" {
		c.Kafka.EvaluationsTopic = v
	}
	if v := os.Getenv("PANEL_TOPIC"); v != "" {
		c.Kafka.PanelTopic = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Cache.Redis.Password = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required")
	}
	if c.ClickHouse.Database == "" {
		return fmt.Errorf("clickhouse.database is required")
	}
	switch c.Cache.Type {
	case "", "memory", "redis", "layered":
	default:
		return fmt.Errorf("cache.type must be 'memory', 'redis' or 'layered', got '%s'", c.Cache.Type)
	}
	if len(c.Analytics.Indicators.Tracked) == 0 {
		return fmt.Errorf("analytics.indicators.tracked cannot be empty")
	}
	sum := 0.0
	for _, w := range c.Analytics.Score.Weights {
		if w < 0 {
			return fmt.Errorf("analytics.score.weights must be non-negative")
		}
		sum += w
	}
	if sum <= 0 {
		return fmt.Errorf("analytics.score.weights must sum to a positive value")
	}
	if math.Abs(sum-1) > 0.05 {
		return fmt.Errorf("analytics.score.weights sum to %.3f, want ~1.0", sum)
	}
	for name, d := range c.Analytics.Score.Directions {
		if d != 1 && d != -1 {
			return fmt.Errorf("analytics.score.directions[%s] must be +1 or -1, got %d", name, d)
		}
	}
	return nil
}

// applyDefaults fills zero-valued fields from the
// calibrated defaults so partial YAML files stay usable.
func (c *Config) applyDefaults() {
	def := DefaultAnalytics()
	a := &c.Analytics

	if c.Panel.LookbackDays == 0 {
		c.Panel.LookbackDays = 1500
	}
	if c.Panel.EvaluateInterval == 0 {
		c.Panel.EvaluateInterval = 24 * time.Hour
	}

	if len(a.Signal.ChangeWindows) == 0 {
		a.Signal.ChangeWindows = def.Signal.ChangeWindows
	}
	if a.Signal.ZScoreWindow == 0 {
		a.Signal.ZScoreWindow = def.Signal.ZScoreWindow
	}
	if a.Signal.ZScoreMinObs == 0 {
		a.Signal.ZScoreMinObs = def.Signal.ZScoreMinObs
	}
	if a.Signal.PercentileWindow == 0 {
		a.Signal.PercentileWindow = def.Signal.PercentileWindow
	}
	if a.Signal.PercentileMinObs == 0 {
		a.Signal.PercentileMinObs = def.Signal.PercentileMinObs
	}

	if len(a.Indicators.Tracked) == 0 {
		a.Indicators = def.Indicators
	}

	j, dj := &a.Judgment, def.Judgment
	if j.NetLiqWeakThreshold5d == 0 {
		j.NetLiqWeakThreshold5d = dj.NetLiqWeakThreshold5d
	}
	if j.SOFRStressThresholdBps5d == 0 {
		j.SOFRStressThresholdBps5d = dj.SOFRStressThresholdBps5d
	}
	if j.VolStressThreshold == 0 {
		j.VolStressThreshold = dj.VolStressThreshold
	}
	if j.USDJPYStressThreshold5d == 0 {
		j.USDJPYStressThreshold5d = dj.USDJPYStressThreshold5d
	}
	if j.CarryNarrowThresholdBps5d == 0 {
		j.CarryNarrowThresholdBps5d = dj.CarryNarrowThresholdBps5d
	}
	if j.HYOASWidenThresholdBps5d == 0 {
		j.HYOASWidenThresholdBps5d = dj.HYOASWidenThresholdBps5d
	}
	if j.SPXWeakThreshold5d == 0 {
		j.SPXWeakThreshold5d = dj.SPXWeakThreshold5d
	}
	if j.MinConfirmations == 0 {
		j.MinConfirmations = dj.MinConfirmations
	}
	if j.StaleDaysLimit == 0 {
		j.StaleDaysLimit = dj.StaleDaysLimit
	}

	if len(a.Score.Weights) == 0 {
		a.Score.Weights = def.Score.Weights
	}
	if len(a.Score.Directions) == 0 {
		a.Score.Directions = def.Score.Directions
	}
	if a.Score.MinObs == 0 {
		a.Score.MinObs = def.Score.MinObs
	}

	f, df := &a.Forward, def.Forward
	if f.TopAnalogues == 0 {
		f.TopAnalogues = df.TopAnalogues
	}
	if f.MinSimilarity == 0 {
		f.MinSimilarity = df.MinSimilarity
	}
	if f.ExclusionDays == 0 {
		f.ExclusionDays = df.ExclusionDays
	}
	if f.TrailingWindow == 0 {
		f.TrailingWindow = df.TrailingWindow
	}
	if f.MinProfileSize == 0 {
		f.MinProfileSize = df.MinProfileSize
	}
	if f.MinTransitionObs == 0 {
		f.MinTransitionObs = df.MinTransitionObs
	}
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
