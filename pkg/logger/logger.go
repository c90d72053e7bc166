package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	logDir     = "logs"
	permission = 0664
)

// Log 全局日志实例，未初始化时输出到控制台
var Log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.DateTime}).
	With().Timestamp().Logger()

// SetupLogger 初始化日志配置：同时输出到控制台和按日期命名的日志文件
func SetupLogger() error {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("创建日志目录失败: %v", err)
	}

	logFileName := filepath.Join(logDir, fmt.Sprintf("%s.log", time.Now().Format("2006-01-02")))
	logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, permission)
	if err != nil {
		return fmt.Errorf("打开日志文件失败: %v", err)
	}

	console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.DateTime}
	SetOutput(io.MultiWriter(console, zerolog.SyncWriter(logFile)))
	return nil
}

// SetOutput 替换日志输出目标，测试中可传入缓冲区
func SetOutput(w io.Writer) {
	Log = zerolog.New(w).With().Timestamp().CallerWithSkipFrameCount(3).Logger()
}

// SetLevel 设置日志级别: debug, info, warn, error
func SetLevel(level string) {
	switch strings.ToLower(level) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// Debug 记录调试级别的日志
func Debug(format string, v ...interface{}) {
	Log.Debug().Msgf(format, v...)
}

// Info 记录信息级别的日志
func Info(format string, v ...interface{}) {
	Log.Info().Msgf(format, v...)
}

// Warning 记录警告级别的日志
func Warning(format string, v ...interface{}) {
	Log.Warn().Msgf(format, v...)
}

// Error 记录错误级别的日志
func Error(format string, v ...interface{}) {
	Log.Error().Msgf(format, v...)
}
