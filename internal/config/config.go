package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultJWTSecret solo sirve para desarrollo; Validate lo rechaza en prod.
const DefaultJWTSecret = "very-secret-demo-key"

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	Chain struct {
		RPCURL          string `yaml:"rpc_url"`
		ContractAddress string `yaml:"contract_address"`
		Timeout         string `yaml:"timeout"`
	} `yaml:"chain"`

	JWT struct {
		Secret string `yaml:"secret"`
		TTL    string `yaml:"ttl"`
		Issuer string `yaml:"issuer"`
	} `yaml:"jwt"`

	Nonce struct {
		TTLMs int64 `yaml:"ttl_ms"`
		// memory | redis | fs
		Store string `yaml:"store"`
		File  string `yaml:"file"`
	} `yaml:"nonce"`

	Ledger struct {
		// fs | postgres | sqlite | memory
		Driver      string `yaml:"driver"`
		File        string `yaml:"file"`
		DSN         string `yaml:"dsn"`
		HashAlg     string `yaml:"hash_alg"`
		AutoMigrate *bool  `yaml:"auto_migrate"`
	} `yaml:"ledger"`

	Redis struct {
		Addr   string `yaml:"addr"`
		DB     int    `yaml:"db"`
		Prefix string `yaml:"prefix"`
	} `yaml:"redis"`

	Rate struct {
		Enabled     *bool  `yaml:"enabled"`
		Window      string `yaml:"window"`
		MaxRequests int    `yaml:"max_requests"`
		// memory | redis
		Backend string `yaml:"backend"`
	} `yaml:"rate"`

	Auth struct {
		RecheckIssuer *bool `yaml:"recheck_issuer"`
	} `yaml:"auth"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Load lee path (si no es vacío), completa defaults, aplica overrides de
// entorno y valida. Sin archivo la config sale solo de defaults + env.
func Load(path string) (*Config, error) {
	var c Config
	if p := strings.TrimSpace(path); p != "" {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", p, err)
		}
		c.resolvePaths(filepath.Dir(p))
	}

	c.applyEnvOverrides()
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	t := true
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":4000"
	}
	if c.Server.CORSAllowedOrigins == nil {
		c.Server.CORSAllowedOrigins = []string{"*"}
	}
	if c.Chain.Timeout == "" {
		c.Chain.Timeout = "10s"
	}
	if c.JWT.Secret == "" {
		c.JWT.Secret = DefaultJWTSecret
	}
	if c.JWT.TTL == "" {
		c.JWT.TTL = "6h"
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "skillspassport"
	}
	if c.Nonce.TTLMs == 0 {
		c.Nonce.TTLMs = 300_000
	}
	if c.Nonce.Store == "" {
		c.Nonce.Store = "fs"
	}
	if c.Nonce.File == "" {
		c.Nonce.File = "./data/nonces.json"
	}
	if c.Ledger.Driver == "" {
		c.Ledger.Driver = "fs"
	}
	if c.Ledger.File == "" {
		c.Ledger.File = "./data/ledger.json"
	}
	if c.Ledger.HashAlg == "" {
		c.Ledger.HashAlg = "sha256"
	}
	if c.Ledger.AutoMigrate == nil {
		c.Ledger.AutoMigrate = &t
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "sp:"
	}
	if c.Rate.Enabled == nil {
		c.Rate.Enabled = &t
	}
	if c.Rate.Window == "" {
		c.Rate.Window = "1m"
	}
	if c.Rate.MaxRequests == 0 {
		c.Rate.MaxRequests = 30
	}
	if c.Rate.Backend == "" {
		c.Rate.Backend = "memory"
	}
	if c.Auth.RecheckIssuer == nil {
		c.Auth.RecheckIssuer = &t
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// resolvePaths hace relativas al YAML las rutas de archivos.
func (c *Config) resolvePaths(base string) {
	rel := func(p string) string {
		p = strings.TrimSpace(p)
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Clean(filepath.Join(base, p))
	}
	c.Nonce.File = rel(c.Nonce.File)
	c.Ledger.File = rel(c.Ledger.File)
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvInt64(key string) (int64, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// applyEnvOverrides: pisa el YAML con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}

	// SERVER (PORT como atajo de plataformas tipo Heroku)
	if v, ok := getEnvStr("PORT"); ok {
		c.Server.Addr = ":" + strings.TrimPrefix(strings.TrimSpace(v), ":")
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvCSV("SERVER_CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	}

	// CHAIN
	if v, ok := getEnvStr("RPC_URL"); ok {
		c.Chain.RPCURL = v
	}
	if v, ok := getEnvStr("CONTRACT_ADDRESS"); ok {
		c.Chain.ContractAddress = v
	}
	if v, ok := getEnvStr("CHAIN_TIMEOUT"); ok {
		c.Chain.Timeout = v
	}

	// JWT
	if v, ok := getEnvStr("JWT_SECRET"); ok {
		c.JWT.Secret = v
	}
	if v, ok := getEnvStr("JWT_TTL"); ok {
		c.JWT.TTL = v
	}
	if v, ok := getEnvStr("JWT_ISSUER"); ok {
		c.JWT.Issuer = v
	}

	// NONCE
	if v, ok := getEnvInt64("NONCE_EXPIRY_MS"); ok {
		c.Nonce.TTLMs = v
	}
	if v, ok := getEnvStr("NONCE_STORE"); ok {
		c.Nonce.Store = strings.ToLower(v)
	}
	if v, ok := getEnvStr("NONCE_FILE"); ok {
		c.Nonce.File = v
	}

	// LEDGER
	if v, ok := getEnvStr("LEDGER_DRIVER"); ok {
		c.Ledger.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LEDGER_FILE"); ok {
		c.Ledger.File = v
	}
	if v, ok := getEnvStr("LEDGER_DSN"); ok {
		c.Ledger.DSN = v
	}
	if v, ok := getEnvStr("LEDGER_HASH_ALG"); ok {
		c.Ledger.HashAlg = strings.ToLower(v)
	}
	if v, ok := getEnvBool("LEDGER_AUTO_MIGRATE"); ok {
		c.Ledger.AutoMigrate = &v
	}

	// REDIS
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Redis.Prefix = v
	}

	// RATE
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = &v
	}
	if v, ok := getEnvStr("RATE_WINDOW"); ok {
		c.Rate.Window = v
	}
	if v, ok := getEnvInt("RATE_MAX_REQUESTS"); ok {
		c.Rate.MaxRequests = v
	}
	if v, ok := getEnvStr("RATE_BACKEND"); ok {
		c.Rate.Backend = strings.ToLower(v)
	}

	// AUTH
	if v, ok := getEnvBool("AUTH_RECHECK_ISSUER"); ok {
		c.Auth.RecheckIssuer = &v
	}

	// LOG
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
}

// Validate chequea valores críticos. Corre después de defaults y env.
func (c *Config) Validate() error {
	var errs []error
	for name, v := range map[string]string{
		"chain.timeout": c.Chain.Timeout,
		"jwt.ttl":       c.JWT.TTL,
		"rate.window":   c.Rate.Window,
	} {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		} else if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.Nonce.TTLMs <= 0 {
		errs = append(errs, errors.New("nonce.ttl_ms must be positive"))
	}
	switch c.Nonce.Store {
	case "memory", "redis", "fs":
	default:
		errs = append(errs, fmt.Errorf("nonce.store: unknown backend %q", c.Nonce.Store))
	}
	switch c.Ledger.Driver {
	case "fs", "memory":
	case "postgres", "pg", "sqlite":
		if strings.TrimSpace(c.Ledger.DSN) == "" {
			errs = append(errs, fmt.Errorf("ledger.dsn is required for driver %q", c.Ledger.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("ledger.driver: unknown driver %q", c.Ledger.Driver))
	}
	switch c.Ledger.HashAlg {
	case "sha256", "blake2b", "legacy32":
	default:
		errs = append(errs, fmt.Errorf("ledger.hash_alg: unknown algorithm %q", c.Ledger.HashAlg))
	}
	switch c.Rate.Backend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("rate.backend: unknown backend %q", c.Rate.Backend))
	}
	if c.Rate.MaxRequests <= 0 {
		errs = append(errs, errors.New("rate.max_requests must be positive"))
	}
	if c.IsProd() && (c.JWT.Secret == DefaultJWTSecret || len(c.JWT.Secret) < 16) {
		errs = append(errs, errors.New("jwt.secret: set JWT_SECRET (>= 16 chars) in prod"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProd() bool { return strings.EqualFold(c.App.Env, "prod") }

// ---- Accessors tipados (los strings ya pasaron Validate) ----

func (c *Config) ChainTimeout() time.Duration { d, _ := time.ParseDuration(c.Chain.Timeout); return d }
func (c *Config) JWTTTL() time.Duration       { d, _ := time.ParseDuration(c.JWT.TTL); return d }
func (c *Config) RateWindow() time.Duration   { d, _ := time.ParseDuration(c.Rate.Window); return d }
func (c *Config) NonceTTL() time.Duration     { return time.Duration(c.Nonce.TTLMs) * time.Millisecond }
func (c *Config) RateEnabled() bool           { return c.Rate.Enabled == nil || *c.Rate.Enabled }
func (c *Config) RecheckIssuer() bool         { return c.Auth.RecheckIssuer == nil || *c.Auth.RecheckIssuer }
func (c *Config) AutoMigrate() bool           { return c.Ledger.AutoMigrate == nil || *c.Ledger.AutoMigrate }

// UsesRedis reporta si algún componente necesita un cliente Redis.
func (c *Config) UsesRedis() bool { return c.Nonce.Store == "redis" || c.Rate.Backend == "redis" }
