package logger

import (
	"context"
	"sync"

	"github.com/athebyme/gomarket-platform/listing-service/internal/interfaces"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	instance *ZapLogger
	once     sync.Once
)

// ZapLogger адаптер для Zap, реализующий LoggerPort
type ZapLogger struct {
	logger *zap.SugaredLogger
}

// NewZapLogger создает новый логгер на основе Zap
func NewZapLogger(level string, isProduction bool) (interfaces.LoggerPort, error) {
	var err error
	once.Do(func() {
		instance = &ZapLogger{}
		err = instance.init(level, isProduction)
	})

	if err != nil {
		return nil, err
	}

	return instance, nil
}

// init инициализирует логгер
func (z *ZapLogger) init(levelStr string, isProduction bool) error {
	var config zap.Config

	if isProduction {
		config = zap.NewProductionConfig()
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		config.DisableCaller = false
		config.DisableStacktrace = false
	}

	// Парсинг уровня логирования
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		level = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(level)

	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}

	logger, err := config.Build()
	if err != nil {
		return err
	}

	z.logger = logger.Sugar()
	return nil
}

// convertToZapFields преобразует LogField в zap.Field
func convertToZapFields(args ...interface{}) []interface{} {
	for i, arg := range args {
		if field, ok := arg.(interfaces.LogField); ok {
			args[i] = zap.Any(field.Key, field.Value)
		}
	}
	return args
}

// extractFieldsFromContext извлекает поля из контекста
func (z *ZapLogger) extractFieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if reqID, ok := ctx.Value("request_id").(string); ok {
		fields = append(fields, zap.String("request_id", reqID))
	}

	if listingID, ok := ctx.Value("listing_id").(string); ok {
		fields = append(fields, zap.String("listing_id", listingID))
	}

	return fields
}

// Debug реализация интерфейса LoggerPort
func (z *ZapLogger) Debug(msg string, args ...interface{}) {
	z.logger.Debugw(msg, convertToZapFields(args...)...)
}

// Info реализация интерфейса LoggerPort
func (z *ZapLogger) Info(msg string, args ...interface{}) {
	z.logger.Infow(msg, convertToZapFields(args...)...)
}

// Warn реализация интерфейса LoggerPort
func (z *ZapLogger) Warn(msg string, args ...interface{}) {
	z.logger.Warnw(msg, convertToZapFields(args...)...)
}

// Error реализация интерфейса LoggerPort
func (z *ZapLogger) Error(msg string, args ...interface{}) {
	z.logger.Errorw(msg, convertToZapFields(args...)...)
}

// Fatal реализация интерфейса LoggerPort
func (z *ZapLogger) Fatal(msg string, args ...interface{}) {
	z.logger.Fatalw(msg, convertToZapFields(args...)...)
}

// DebugWithContext реализация интерфейса LoggerPort
func (z *ZapLogger) DebugWithContext(ctx context.Context, msg string, args ...interface{}) {
	fields := z.extractFieldsFromContext(ctx)
	z.logger.Debugw(msg, append(convertToZapFields(args...), fields...)...)
}

// InfoWithContext реализация интерфейса LoggerPort
func (z *ZapLogger) InfoWithContext(ctx context.Context, msg string, args ...interface{}) {
	fields := z.extractFieldsFromContext(ctx)
	z.logger.Infow(msg, append(convertToZapFields(args...), fields...)...)
}

// WarnWithContext реализация интерфейса LoggerPort
func (z *ZapLogger) WarnWithContext(ctx context.Context, msg string, args ...interface{}) {
	fields := z.extractFieldsFromContext(ctx)
	z.logger.Warnw(msg, append(convertToZapFields(args...), fields...)...)
}

// ErrorWithContext реализация интерфейса LoggerPort
func (z *ZapLogger) ErrorWithContext(ctx context.Context, msg string, args ...interface{}) {
	fields := z.extractFieldsFromContext(ctx)
	z.logger.Errorw(msg, append(convertToZapFields(args...), fields...)...)
}

// WithFields реализация интерфейса LoggerPort
func (z *ZapLogger) WithFields(fields ...interfaces.LogField) interfaces.LoggerPort {
	newLogger := &ZapLogger{}
	zapFields := make([]interface{}, 0, len(fields)*2)
	for _, field := range fields {
		zapFields = append(zapFields, field.Key, field.Value)
	}
	newLogger.logger = z.logger.With(zapFields...)
	return newLogger
}

// WithField реализация интерфейса LoggerPort
func (z *ZapLogger) WithField(key string, value interface{}) interfaces.LoggerPort {
	newLogger := &ZapLogger{}
	newLogger.logger = z.logger.With(key, value)
	return newLogger
}

// Sync реализация интерфейса LoggerPort
func (z *ZapLogger) Sync() error {
	return z.logger.Sync()
}
