package logger

// Config describes one named zap logger.
type Config struct {
	Level        string       `yaml:"level"`
	OutputPaths  []string     `yaml:"output_paths"`
	Development  bool         `yaml:"development"`
	LogToConsole bool         `yaml:"log_to_console"`
	Async        bool         `yaml:"async"`
	Encoding     Encoding     `yaml:"encoding"`
	LogRotation  LogRotation  `yaml:"log_rotation"`
	Sanitization Sanitization `yaml:"sanitization"`
}

type Encoding struct {
	TimeKey         string `yaml:"time_key"`
	LevelKey        string `yaml:"level_key"`
	NameKey         string `yaml:"name_key"`
	CallerKey       string `yaml:"caller_key"`
	MessageKey      string `yaml:"message_key"`
	StacktraceKey   string `yaml:"stacktrace_key"`
	LevelEncoder    string `yaml:"level_encoder"`
	TimeEncoder     string `yaml:"time_encoder"`
	DurationEncoder string `yaml:"duration_encoder"`
	CallerEncoder   string `yaml:"caller_encoder"`
}

type LogRotation struct {
	Enabled    bool `yaml:"enabled"`
	MaxSizeMB  int  `yaml:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days"`
	Compress   bool `yaml:"compress"`
}

// Sanitization lists field keys whose values are masked before encoding.
type Sanitization struct {
	SensitiveFields []string `yaml:"sensitive_fields"`
	Mask            string   `yaml:"mask"`
}

// DefaultConfig is used for any logger the configuration does not mention.
var DefaultConfig = Config{
	Level:        "info",
	OutputPaths:  []string{"stdout"},
	LogToConsole: true,
	Encoding: Encoding{
		TimeKey:         "time",
		LevelKey:        "level",
		NameKey:         "logger",
		CallerKey:       "caller",
		MessageKey:      "msg",
		StacktraceKey:   "stacktrace",
		LevelEncoder:    "lowercase",
		TimeEncoder:     "iso8601",
		DurationEncoder: "string",
		CallerEncoder:   "short",
	},
	LogRotation: LogRotation{
		Enabled:    true,
		MaxSizeMB:  100,
		MaxBackups: 7,
		MaxAgeDays: 30,
		Compress:   true,
	},
	Sanitization: Sanitization{
		SensitiveFields: []string{
			"password",
			"password_hash",
			"token",
			"access_token",
			"refresh_token",
			"refreshToken",
			"authorization",
		},
		Mask: "****",
	},
}

// ApplyDefaults fills every empty field of cfg from DefaultConfig.
func ApplyDefaults(cfg *Config) {
	d := DefaultConfig
	if cfg.Level == "" {
		cfg.Level = d.Level
	}
	if len(cfg.OutputPaths) == 0 {
		cfg.OutputPaths = d.OutputPaths
	}

	e := &cfg.Encoding
	setIfEmpty(&e.TimeKey, d.Encoding.TimeKey)
	setIfEmpty(&e.LevelKey, d.Encoding.LevelKey)
	setIfEmpty(&e.NameKey, d.Encoding.NameKey)
	setIfEmpty(&e.CallerKey, d.Encoding.CallerKey)
	setIfEmpty(&e.MessageKey, d.Encoding.MessageKey)
	setIfEmpty(&e.StacktraceKey, d.Encoding.StacktraceKey)
	setIfEmpty(&e.LevelEncoder, d.Encoding.LevelEncoder)
	setIfEmpty(&e.TimeEncoder, d.Encoding.TimeEncoder)
	setIfEmpty(&e.DurationEncoder, d.Encoding.DurationEncoder)
	setIfEmpty(&e.CallerEncoder, d.Encoding.CallerEncoder)

	if cfg.LogRotation.MaxSizeMB == 0 {
		cfg.LogRotation.MaxSizeMB = d.LogRotation.MaxSizeMB
	}
	if cfg.LogRotation.MaxBackups == 0 {
		cfg.LogRotation.MaxBackups = d.LogRotation.MaxBackups
	}
	if cfg.LogRotation.MaxAgeDays == 0 {
		cfg.LogRotation.MaxAgeDays = d.LogRotation.MaxAgeDays
	}

	if len(cfg.Sanitization.SensitiveFields) == 0 {
		cfg.Sanitization.SensitiveFields = d.Sanitization.SensitiveFields
	}
	setIfEmpty(&cfg.Sanitization.Mask, d.Sanitization.Mask)
}

func setIfEmpty(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}
