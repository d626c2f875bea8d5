package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nacos-group/nacos-sdk-go/v2/clients"
	"github.com/nacos-group/nacos-sdk-go/v2/common/constant"
	"github.com/nacos-group/nacos-sdk-go/v2/vo"
	"gopkg.in/yaml.v3"
)

// Config 服务配置
// 注意：时间字段统一使用秒为单位的整数

type Config struct {
	Server struct {
		Port     int    `yaml:"port" json:"port"`
		LogLevel string `yaml:"log_level" json:"log_level"`
	} `yaml:"server" json:"server"`

	Database struct {
		Driver             string `yaml:"driver" json:"driver"` // mysql / sqlite3
		DSN                string `yaml:"dsn" json:"dsn"`
		MaxOpenConns       int    `yaml:"max_open_conns" json:"max_open_conns"`
		MaxIdleConns       int    `yaml:"max_idle_conns" json:"max_idle_conns"`
		ConnMaxLifetimeSec int    `yaml:"conn_max_lifetime_sec" json:"conn_max_lifetime_sec"`
	} `yaml:"database" json:"database"`

	Redis struct {
		Enabled  bool   `yaml:"enabled" json:"enabled"`
		Addr     string `yaml:"addr" json:"addr"`
		Password string `yaml:"password" json:"password"`
		DB       int    `yaml:"db" json:"db"`
	} `yaml:"redis" json:"redis"`

	RocketMQ struct {
		Enabled       bool   `yaml:"enabled" json:"enabled"`
		Endpoint      string `yaml:"endpoint" json:"endpoint"`
		TopicEvents   string `yaml:"topic_events" json:"topic_events"`
		AccessKey     string `yaml:"access_key" json:"access_key"`
		SecretKey     string `yaml:"secret_key" json:"secret_key"`
		SendTimeoutMS int    `yaml:"send_timeout_ms" json:"send_timeout_ms"`
	} `yaml:"rocketmq" json:"rocketmq"`

	Observability struct {
		EnableProm bool `yaml:"enable_prom" json:"enable_prom"`
	} `yaml:"observability" json:"observability"`

	Auth struct {
		JWT struct {
			Secret         string `yaml:"secret" json:"secret"`
			AccessTokenTTL int    `yaml:"access_token_ttl" json:"access_token_ttl"` // 秒
			Issuer         string `yaml:"issuer" json:"issuer"`
		} `yaml:"jwt" json:"jwt"`
		Admin struct {
			Enabled bool   `yaml:"enabled" json:"enabled"`
			Token   string `yaml:"token" json:"token"`
		} `yaml:"admin" json:"admin"`
	} `yaml:"auth" json:"auth"`

	Payout struct {
		MaxAttempts        int    `yaml:"max_attempts" json:"max_attempts"`
		BackoffBaseSec     int    `yaml:"backoff_base_sec" json:"backoff_base_sec"`
		BackoffCapSec      int    `yaml:"backoff_cap_sec" json:"backoff_cap_sec"`
		PollIntervalSec    int    `yaml:"poll_interval_sec" json:"poll_interval_sec"`
		BatchSize          int    `yaml:"batch_size" json:"batch_size"`
		DispatchTimeoutSec int    `yaml:"dispatch_timeout_sec" json:"dispatch_timeout_sec"`
		Currency           string `yaml:"currency" json:"currency"`
	} `yaml:"payout" json:"payout"`

	Gateway struct {
		BaseURL    string `yaml:"base_url" json:"base_url"`
		APIToken   string `yaml:"api_token" json:"api_token"`
		TimeoutSec int    `yaml:"timeout_sec" json:"timeout_sec"`
	} `yaml:"gateway" json:"gateway"`

	Outbox struct {
		PollIntervalSec int `yaml:"poll_interval_sec" json:"poll_interval_sec"`
		BatchSize       int `yaml:"batch_size" json:"batch_size"`
		MaxRetry        int `yaml:"max_retry" json:"max_retry"`
	} `yaml:"outbox" json:"outbox"`
}

// FillDefaults 缺省值兜底，加载后调用一次
func (c *Config) FillDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Payout.MaxAttempts == 0 {
		c.Payout.MaxAttempts = 8
	}
	if c.Payout.BackoffBaseSec == 0 {
		c.Payout.BackoffBaseSec = 5
	}
	if c.Payout.BackoffCapSec == 0 {
		c.Payout.BackoffCapSec = 600
	}
	if c.Payout.PollIntervalSec == 0 {
		c.Payout.PollIntervalSec = 1
	}
	if c.Payout.BatchSize == 0 {
		c.Payout.BatchSize = 100
	}
	if c.Payout.DispatchTimeoutSec == 0 {
		c.Payout.DispatchTimeoutSec = 10
	}
	if c.Payout.Currency == "" {
		c.Payout.Currency = "USDT"
	}
	if c.Gateway.TimeoutSec == 0 {
		c.Gateway.TimeoutSec = 10
	}
	if c.Outbox.PollIntervalSec == 0 {
		c.Outbox.PollIntervalSec = 1
	}
	if c.Outbox.BatchSize == 0 {
		c.Outbox.BatchSize = 100
	}
	if c.Outbox.MaxRetry == 0 {
		c.Outbox.MaxRetry = 10
	}
}

// Load 优先从 Nacos 配置中心读取配置，如果失败则从本地文件读取（兜底）
// 支持以下环境变量：
//   - NACOS_SERVER_ADDR: Nacos 服务器地址（如 "127.0.0.1:8848"，如果设置则优先从 Nacos 加载）
//   - NACOS_DATA_ID: 配置 Data ID（如 "casino-server.yaml"）
//   - NACOS_NAMESPACE: 命名空间 ID（可选，默认 public）
//   - NACOS_GROUP: 配置分组（可选，默认 DEFAULT_GROUP）
//   - CONFIG_FILE: 配置文件路径（兜底方案，默认：conf/dev.yaml）
func Load(ctx context.Context) (*Config, error) {
	// 1. 优先尝试从 Nacos 加载
	nacosServerAddr := strings.TrimSpace(os.Getenv("NACOS_SERVER_ADDR"))
	if nacosServerAddr != "" {
		cfg, err := loadFromNacos(ctx)
		if err == nil {
			fmt.Printf("[Config] 配置已从 Nacos 加载: server=%s, dataId=%s\n",
				nacosServerAddr, os.Getenv("NACOS_DATA_ID"))
			cfg.FillDefaults()
			return cfg, nil
		}
		// Nacos 加载失败，记录错误并降级到本地文件
		fmt.Printf("[Config] 从 Nacos 加载配置失败，降级使用本地文件: error=%v\n", err)
	}

	// 2. 降级：从本地文件加载
	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = "conf/dev.yaml"
	}

	cfg, err := loadFromFile(configFile)
	if err == nil {
		fmt.Printf("[Config] 配置已从本地文件加载: file=%s\n", configFile)
		cfg.FillDefaults()
		return cfg, nil
	}

	return nil, fmt.Errorf("failed to load config from nacos and local file (%s): %w", configFile, err)
}

// loadFromFile 从本地 JSON 或 YAML 文件加载配置
func loadFromFile(filePath string) (*Config, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", filePath)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	ext := filepath.Ext(filePath)
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s (supported: .json, .yaml, .yml)", ext)
	}

	return &cfg, nil
}

// nacosEnv 解析 Nacos 相关环境变量，Load 与 Watch 共用
func nacosEnv() (serverConfigs []constant.ServerConfig, clientConfig constant.ClientConfig, dataID, group string, err error) {
	serverAddr := strings.TrimSpace(os.Getenv("NACOS_SERVER_ADDR"))
	if serverAddr == "" {
		err = errors.New("NACOS_SERVER_ADDR not set")
		return
	}

	dataID = strings.TrimSpace(os.Getenv("NACOS_DATA_ID"))
	if dataID == "" {
		err = errors.New("NACOS_DATA_ID not set")
		return
	}

	namespace := strings.TrimSpace(os.Getenv("NACOS_NAMESPACE"))
	if namespace == "" {
		namespace = "public"
	}

	group = strings.TrimSpace(os.Getenv("NACOS_GROUP"))
	if group == "" {
		group = "DEFAULT_GROUP"
	}

	timeoutMS := 5000
	if timeoutStr := strings.TrimSpace(os.Getenv("NACOS_TIMEOUT_MS")); timeoutStr != "" {
		if t, e := strconv.Atoi(timeoutStr); e == nil && t > 0 {
			timeoutMS = t
		}
	}

	for _, addr := range strings.Split(serverAddr, ",") {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		parts := strings.Split(addr, ":")
		if len(parts) != 2 {
			err = fmt.Errorf("invalid NACOS_SERVER_ADDR format: %s (expected host:port)", addr)
			return
		}
		port, e := strconv.ParseUint(parts[1], 10, 64)
		if e != nil {
			err = fmt.Errorf("invalid port in NACOS_SERVER_ADDR: %s", parts[1])
			return
		}
		serverConfigs = append(serverConfigs, constant.ServerConfig{
			IpAddr: parts[0],
			Port:   port,
		})
	}
	if len(serverConfigs) == 0 {
		err = errors.New("no valid server address in NACOS_SERVER_ADDR")
		return
	}

	clientConfig = constant.ClientConfig{
		NamespaceId:         namespace,
		TimeoutMs:           uint64(timeoutMS),
		NotLoadCacheAtStart: true,
		LogDir:              "/tmp/nacos/log",
		CacheDir:            "/tmp/nacos/cache",
		LogLevel:            "warn",
	}
	username := strings.TrimSpace(os.Getenv("NACOS_USERNAME"))
	password := strings.TrimSpace(os.Getenv("NACOS_PASSWORD"))
	if username != "" && password != "" {
		clientConfig.Username = username
		clientConfig.Password = password
	}
	return
}

// loadFromNacos 从 Nacos 配置中心加载配置
func loadFromNacos(_ context.Context) (*Config, error) {
	serverConfigs, clientConfig, dataID, group, err := nacosEnv()
	if err != nil {
		return nil, err
	}

	configClient, err := clients.NewConfigClient(
		vo.NacosClientParam{
			ClientConfig:  &clientConfig,
			ServerConfigs: serverConfigs,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create nacos config client: %w", err)
	}

	content, err := configClient.GetConfig(vo.ConfigParam{
		DataId: dataID,
		Group:  group,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get config from nacos: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("empty config content from nacos: dataId=%s", dataID)
	}

	var cfg Config
	if e := yaml.Unmarshal([]byte(content), &cfg); e != nil {
		if e2 := json.Unmarshal([]byte(content), &cfg); e2 != nil {
			return nil, fmt.Errorf("failed to parse nacos config: yaml=%v json=%v", e, e2)
		}
	}
	return &cfg, nil
}
