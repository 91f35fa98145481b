// Package config 统一配置管理
//
// 配置加载策略：
//  1. 从 .env 加载敏感信息（JWT 密钥、数据库口令）和 APP_ENV
//  2. 根据 APP_ENV 加载对应的 configs/{env}.yaml 配置文件
//  3. 环境变量可覆盖 YAML 配置
//
// 使用方式：
//   - 开发环境: APP_ENV=dev (默认)
//   - 测试环境: APP_ENV=test
//   - 生产环境: APP_ENV=prod
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment 环境类型
type Environment string

const (
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
	EnvDevelopment Environment = "dev"
)

// YAMLConfig YAML 配置文件结构
type YAMLConfig struct {
	Server ServerConfig `yaml:"server"`
	Mongo  MongoConfig  `yaml:"mongo"`
	Redis  RedisConfig  `yaml:"redis"`
	MinIO  MinIOConfig  `yaml:"minio"`
	Auth   AuthConfig   `yaml:"auth"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	DB      int    `yaml:"db"`
}

// MinIOConfig 对象存储配置，AccessKey/SecretKey 从环境变量读取
type MinIOConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
	AccessKey string `yaml:"-"`
	SecretKey string `yaml:"-"`
}

// AuthConfig 认证配置，JWTSecret 从环境变量读取
type AuthConfig struct {
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
	JWTSecret       string        `yaml:"-"`
}

// Config 应用配置（最终使用的配置）
type Config struct {
	Env           Environment
	APIPort       string
	MongoURI      string
	MongoDatabase string
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	MinIO         MinIOConfig
	Auth          AuthConfig
	AdminEmail    string
	AdminPassword string
}

var configPaths = []string{
	"configs",
	"../configs",
	"../../configs",
	"../../../configs",
}

var envPaths = []string{
	".env",
	"../.env",
	"../../.env",
	"../../../.env",
}

// Load 加载配置
// 1. 加载 .env（敏感信息 + APP_ENV）
// 2. 根据 APP_ENV 加载 configs/{env}.yaml
// 3. 构建最终配置
func Load() *Config {
	// 加载 .env
	for _, p := range envPaths {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	// 解析环境
	env := parseEnv(getEnv("APP_ENV", "dev"))

	// 加载 YAML 配置
	yamlCfg := loadYAMLConfig(env)

	cfg := &Config{
		Env:           env,
		APIPort:       getEnv("API_PORT", yamlCfg.Server.Port),
		MongoURI:      getEnv("MONGO_URI", yamlCfg.Mongo.URI),
		MongoDatabase: getEnv("MONGO_DATABASE", yamlCfg.Mongo.Database),
		RedisEnabled:  yamlCfg.Redis.Enabled,
		RedisAddr:     getEnv("REDIS_ADDR", yamlCfg.Redis.Addr),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       yamlCfg.Redis.DB,
		MinIO:         yamlCfg.MinIO,
		Auth:          yamlCfg.Auth,
		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
	}

	// 敏感信息只来自环境变量
	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", "")
	cfg.MinIO.AccessKey = getEnv("MINIO_ACCESS_KEY", "")
	cfg.MinIO.SecretKey = getEnv("MINIO_SECRET_KEY", "")

	return cfg
}

// loadYAMLConfig 加载 YAML 配置文件
// 加载顺序：默认值 → common.yaml → {env}.yaml
func loadYAMLConfig(env Environment) *YAMLConfig {
	cfg := &YAMLConfig{
		Server: ServerConfig{Port: "8080"},
		Mongo:  MongoConfig{URI: "mongodb://localhost:27017", Database: "sahayak"},
		Redis:  RedisConfig{Enabled: false, Addr: "localhost:6379", DB: 0},
		MinIO:  MinIOConfig{Enabled: false, Endpoint: "localhost:9000", Bucket: "sahayak-media"},
		Auth: AuthConfig{
			AccessTokenTTL:  24 * time.Hour,
			RefreshTokenTTL: 7 * 24 * time.Hour,
		},
	}

	for _, base := range configPaths {
		path := filepath.Join(base, "common.yaml")
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, cfg)
			break
		}
	}

	filename := fmt.Sprintf("%s.yaml", env)
	for _, base := range configPaths {
		path := filepath.Join(base, filename)
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, cfg)
			break
		}
	}

	return cfg
}

func parseEnv(s string) Environment {
	switch Environment(s) {
	case EnvProduction, EnvTest, EnvDevelopment:
		return Environment(s)
	default:
		return EnvDevelopment
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// String 返回可打印的配置摘要，不含任何敏感信息
func (c *Config) String() string {
	return fmt.Sprintf("env=%s port=%s mongo=%s/%s redis=%v minio=%v access_ttl=%s refresh_ttl=%s",
		c.Env, c.APIPort, c.MongoURI, c.MongoDatabase, c.RedisEnabled, c.MinIO.Enabled,
		c.Auth.AccessTokenTTL, c.Auth.RefreshTokenTTL)
}
