package config

import (
	"time"

	"github.com/victorgomez09/portal/internal/logger"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Portal is the root of portal.config.yaml.
type Portal struct {
	Server      Server                   `yaml:"server"`
	Database    Database                 `yaml:"database"`
	Auth        Auth                     `yaml:"auth"`
	Session     Session                  `yaml:"session"`
	Mail        Mail                     `yaml:"mail"`
	Middleware  Middleware               `yaml:"middleware"`
	Jobs        Jobs                     `yaml:"jobs"`
	HealthCheck HealthCheck              `yaml:"health_check"`
	Logging     map[string]logger.Config `yaml:"logging"`
}

type Server struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Env             string        `yaml:"env"` // development or production
	TLS             *TLS          `yaml:"tls"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AdminAllowedIPs []string      `yaml:"admin_allowed_ips"` // empty allows any address
	TrustedProxies  []string      `yaml:"trusted_proxies"`
	MetricsEnabled  bool          `yaml:"metrics_enabled"`
}

func (s Server) Development() bool {
	return s.Env == EnvDevelopment
}

type TLS struct {
	Enabled  bool     `yaml:"enabled"`
	CertFile string   `yaml:"cert_file"`
	KeyFile  string   `yaml:"key_file"`
	// ACME obtains certificates from Let's Encrypt for Domains when no key pair is given.
	ACME     bool     `yaml:"acme"`
	Domains  []string `yaml:"domains"`
	CacheDir string   `yaml:"cache_dir"`
}

type Database struct {
	Path string `yaml:"path"`
}

type Auth struct {
	JWTSecret       string         `yaml:"jwt_secret"`
	Issuer          string         `yaml:"issuer"`
	AccessTokenTTL  time.Duration  `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration  `yaml:"refresh_token_ttl"`
	BcryptCost      int            `yaml:"bcrypt_cost"`
	Password        PasswordPolicy `yaml:"password"`
}

type PasswordPolicy struct {
	MinLength        int  `yaml:"min_length"`
	RequireUppercase bool `yaml:"require_uppercase"`
	RequireNumber    bool `yaml:"require_number"`
	RequireSpecial   bool `yaml:"require_special"`
}

// Session holds the client-side session defaults used by portalctl.
type Session struct {
	BaseURL        string        `yaml:"base_url"`
	SettleDelay    time.Duration `yaml:"settle_delay"`
	RenewInterval  time.Duration `yaml:"renew_interval"`
	RenewJitter    time.Duration `yaml:"renew_jitter"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	StoreDir       string        `yaml:"store_dir"`
}

type Mail struct {
	Enabled  bool   `yaml:"enabled"`
	SMTPHost string `yaml:"smtp_host"`
	SMTPPort int    `yaml:"smtp_port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	// opportunistic, mandatory or none
	TLSPolicy string `yaml:"tls_policy"`
}

type Middleware struct {
	RateLimit     RateLimit `yaml:"rate_limit"`
	AuthRateLimit RateLimit `yaml:"auth_rate_limit"`
	Security      Security  `yaml:"security"`
	CORS          CORS      `yaml:"cors"`
	Compression   bool      `yaml:"compression"`
}

type RateLimit struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type Security struct {
	HSTS                  bool   `yaml:"hsts"`
	HSTSMaxAge            int    `yaml:"hsts_max_age"`
	HSTSIncludeSubDomains bool   `yaml:"hsts_include_subdomains"`
	FrameOptions          string `yaml:"frame_options"`
	ContentTypeOptions    bool   `yaml:"content_type_options"`
	ContentSecurityPolicy string `yaml:"content_security_policy"`
	ReferrerPolicy        string `yaml:"referrer_policy"`
}

type CORS struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowedMethods   []string `yaml:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers"`
	ExposedHeaders   []string `yaml:"exposed_headers"`
	AllowCredentials bool     `yaml:"allow_credentials"`
	MaxAge           int      `yaml:"max_age"`
}

type Jobs struct {
	RetentionSchedule     string        `yaml:"retention_schedule"`
	AuditRetention        time.Duration `yaml:"audit_retention"`
	NotificationRetention time.Duration `yaml:"notification_retention"`
}

type HealthCheck struct {
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}
