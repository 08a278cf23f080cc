package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultServiceName se usa cuando Config.ServiceName viene vacío.
const DefaultServiceName = "skillspassport"

type Config struct {
	// Env: "prod" escribe JSON; cualquier otro valor usa consola con colores.
	Env string
	// Level: debug | info | warn | error. Default info.
	Level       string
	ServiceName string
	Version     string
	// Output reemplaza stderr (tests). Vacío = stderr.
	Output []string
}

func (c Config) prod() bool { return strings.EqualFold(strings.TrimSpace(c.Env), "prod") }

func build(cfg Config) *zap.Logger {
	var (
		zcfg zap.Config
		opts = []zap.Option{zap.AddCaller(), zap.AddCallerSkip(1)}
	)
	if cfg.prod() {
		zcfg = zap.NewProductionConfig()
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	} else {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zcfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		zcfg.DisableStacktrace = true
	}
	zcfg.Level = zap.NewAtomicLevelAt(parseLevel(cfg.Level))
	zcfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	if len(cfg.Output) > 0 {
		zcfg.OutputPaths = cfg.Output
	}

	l, err := zcfg.Build(opts...)
	if err != nil {
		l, _ = zap.NewProduction()
	}
	return l.With(baseFields(cfg)...)
}

func baseFields(cfg Config) []zap.Field {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = DefaultServiceName
	}
	fs := []zap.Field{zap.String("service", name)}
	if cfg.Version != "" {
		fs = append(fs, zap.String("version", cfg.Version))
	}
	if cfg.prod() {
		fs = append(fs, zap.String("env", "prod"))
	}
	return fs
}

func parseLevel(lvl string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(lvl)))); err != nil {
		// "warning" y valores desconocidos
		if strings.EqualFold(strings.TrimSpace(lvl), "warning") {
			return zapcore.WarnLevel
		}
		return zapcore.InfoLevel
	}
	return l
}
