package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// 未显式初始化时退化为 Nop，避免库内调用方空指针
var log = zap.NewNop()
var atomicLevel = zap.NewAtomicLevel()

// InitLogger 初始化全局日志器，支持通过环境变量控制：
// - LOG_LEVEL=debug|info|warn|error（默认：info）
// - LOG_TO_FILE=true|false（默认：false）或提供 LOG_FILE/LOG_DIR 之一则启用文件输出
// - LOG_FILE=./logs/casino.log（优先级高于 LOG_DIR）
// - LOG_MAX_SIZE_MB=100、LOG_MAX_BACKUPS=7、LOG_MAX_DAYS=14、LOG_COMPRESS=true
func InitLogger() {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.MessageKey = "msg"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

	atomicLevel = zap.NewAtomicLevelAt(parseLevel(os.Getenv("LOG_LEVEL")))

	enc := zapcore.NewJSONEncoder(encoderConfig)
	cores := []zapcore.Core{
		zapcore.NewCore(enc, zapcore.Lock(os.Stdout), atomicLevel),
	}

	// 文件日志（可选）
	logToFile := strings.EqualFold(strings.TrimSpace(os.Getenv("LOG_TO_FILE")), "true")
	logFile := strings.TrimSpace(os.Getenv("LOG_FILE"))
	logDir := strings.TrimSpace(os.Getenv("LOG_DIR"))
	if logFile == "" && logDir != "" {
		logFile = filepath.Join(logDir, "casino.log")
	}
	if logToFile || logFile != "" {
		if logFile == "" {
			logFile = filepath.Join(".", "logs", "casino.log")
		}
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			// 无法创建日志目录时仅输出到 stdout，不中断程序
			_, _ = fmt.Fprintf(os.Stderr, "warning: failed to create log directory: %v\n", err)
		} else {
			lw := &lumberjack.Logger{
				Filename:   logFile,
				MaxSize:    getenvInt("LOG_MAX_SIZE_MB", 100),
				MaxBackups: getenvInt("LOG_MAX_BACKUPS", 7),
				MaxAge:     getenvInt("LOG_MAX_DAYS", 14),
				Compress:   getenvBool("LOG_COMPRESS", true),
			}
			cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(lw), atomicLevel))
		}
	}

	log = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return def
}

func getenvBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	return def
}

func Info(msg string, fields ...zap.Field)  { log.Info(msg, fields...) }
func Error(msg string, fields ...zap.Field) { log.Error(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { log.Warn(msg, fields...) }
func Debug(msg string, fields ...zap.Field) { log.Debug(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { log.Fatal(msg, fields...) }
func Sync()                                 { _ = log.Sync() }

// SetLevel 动态调整日志级别（debug/info/warn/error），无效级别忽略
func SetLevel(level string) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		atomicLevel.SetLevel(zapcore.DebugLevel)
	case "info":
		atomicLevel.SetLevel(zapcore.InfoLevel)
	case "warn", "warning":
		atomicLevel.SetLevel(zapcore.WarnLevel)
	case "error":
		atomicLevel.SetLevel(zapcore.ErrorLevel)
	}
}
