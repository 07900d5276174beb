package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"emperror.dev/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig 日志配置结构体
type LogConfig struct {
	// 基础配置
	AppName   string
	LogLevel  string
	LogFormat string // "text" 或 "json"

	// 控制台输出，Output 为空时写 stderr，stdout 留给命令输出
	EnableConsole bool
	ConsoleColor  bool
	Output        io.Writer

	// 文件输出
	EnableFile bool
	FilePath   string // 目录
	FileName   string
	MaxSize    int  // MB
	MaxBackups int  // 最大备份数
	MaxAge     int  // 保留天数
	Compress   bool // 是否压缩备份

	// 统计配置
	EnableStats bool
}

// DefaultLogConfig 默认配置：文本格式、info 级别、只输出到控制台
func DefaultLogConfig() *LogConfig {
	return &LogConfig{
		AppName:       "duckreq",
		LogLevel:      "info",
		LogFormat:     "text",
		EnableConsole: true,
		FilePath:      "./logs",
		MaxSize:       100,
		MaxBackups:    10,
		MaxAge:        30,
		Compress:      true,
		EnableStats:   true,
	}
}

// Logger 带上下文字段和统计的日志记录器
type Logger struct {
	name     string
	logger   *logrus.Logger
	fileHook *lumberjack.Logger
	config   *LogConfig
	Stats    *Stats
	fields   logrus.Fields
}

// NewLogger 创建新的日志记录器，config 为 nil 时使用默认配置
func NewLogger(config *LogConfig) (*Logger, error) {
	if config == nil {
		config = DefaultLogConfig()
	}

	logger := logrus.New()
	logger.SetLevel(ParseLogLevel(config.LogLevel))

	if strings.ToLower(config.LogFormat) == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
			FullTimestamp:   true,
			ForceColors:     config.ConsoleColor,
			PadLevelText:    true,
		})
	}

	l := &Logger{
		name:   config.AppName,
		logger: logger,
		config: config,
		fields: logrus.Fields{},
	}

	if config.EnableStats {
		l.Stats = NewStats()
	}

	if config.EnableFile {
		if err := l.initFileOutput(config); err != nil {
			return nil, errors.Wrap(err, "初始化文件输出失败")
		}
	}

	var writers []io.Writer
	if config.EnableConsole {
		out := config.Output
		if out == nil {
			out = os.Stderr
		}
		writers = append(writers, out)
	}
	if l.fileHook != nil {
		writers = append(writers, l.fileHook)
	}

	switch len(writers) {
	case 0:
		logger.SetOutput(io.Discard)
	case 1:
		logger.SetOutput(writers[0])
	default:
		logger.SetOutput(io.MultiWriter(writers...))
	}

	return l, nil
}

// NewNop 什么也不输出的日志记录器，统计照常收集
func NewNop() *Logger {
	l, _ := NewLogger(&LogConfig{AppName: "nop", LogLevel: "panic", EnableStats: true})
	return l
}

// initFileOutput 初始化按大小滚动的文件输出
func (l *Logger) initFileOutput(config *LogConfig) error {
	dir := config.FilePath
	if dir == "" {
		dir = "./logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WithStack(err)
	}

	fileName := config.FileName
	if fileName == "" {
		fileName = fmt.Sprintf("%s.log", config.AppName)
	}

	l.fileHook = &lumberjack.Logger{
		Filename:   filepath.Join(dir, fileName),
		MaxSize:    config.MaxSize,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge,
		Compress:   config.Compress,
		LocalTime:  true,
	}
	return nil
}

// ParseLogLevel 解析日志级别，无法识别时为 info
func ParseLogLevel(levelStr string) logrus.Level {
	level, err := logrus.ParseLevel(strings.ToLower(levelStr))
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

func (l *Logger) clone(extra int) *Logger {
	fields := make(logrus.Fields, len(l.fields)+extra)
	for k, v := range l.fields {
		fields[k] = v
	}
	return &Logger{
		name:     l.name,
		logger:   l.logger,
		fileHook: l.fileHook,
		config:   l.config,
		Stats:    l.Stats,
		fields:   fields,
	}
}

// WithField 返回带新字段的副本，原记录器不变
func (l *Logger) WithField(key string, value any) *Logger {
	n := l.clone(1)
	n.fields[key] = value
	return n
}

// WithFields 批量添加字段
func (l *Logger) WithFields(fields map[string]any) *Logger {
	n := l.clone(len(fields))
	for k, v := range fields {
		n.fields[k] = v
	}
	return n
}

// WithError 添加 error 字段
func (l *Logger) WithError(err error) *Logger {
	return l.WithField(logrus.ErrorKey, err)
}

func (l *Logger) entry() *logrus.Entry {
	return l.logger.WithField("app", l.name).WithFields(l.fields)
}

func (l *Logger) Debug(args ...any) { l.entry().Debug(args...) }

func (l *Logger) Debugf(format string, args ...any) { l.entry().Debugf(format, args...) }

func (l *Logger) Info(args ...any) { l.entry().Info(args...) }

func (l *Logger) Infof(format string, args ...any) { l.entry().Infof(format, args...) }

func (l *Logger) Warn(args ...any) { l.entry().Warn(args...) }

func (l *Logger) Warnf(format string, args ...any) { l.entry().Warnf(format, args...) }

func (l *Logger) Error(args ...any) { l.entry().Error(args...) }

func (l *Logger) Errorf(format string, args ...any) { l.entry().Errorf(format, args...) }

func (l *Logger) Fatal(args ...any) { l.entry().Fatal(args...) }

func (l *Logger) Fatalf(format string, args ...any) { l.entry().Fatalf(format, args...) }

// PrintStats 把统计表写到 w
func (l *Logger) PrintStats(w io.Writer) {
	if l.Stats == nil {
		l.Warn("统计功能未启用")
		return
	}
	if err := l.Stats.OutTableInfo(w); err != nil {
		l.WithError(err).Error("输出统计信息失败")
	}
}

func (l *Logger) SetLevel(level string) {
	l.logger.SetLevel(ParseLogLevel(level))
}

func (l *Logger) GetLevel() logrus.Level {
	return l.logger.GetLevel()
}

// Close 关闭日志文件
func (l *Logger) Close() error {
	if l.fileHook != nil {
		return l.fileHook.Close()
	}
	return nil
}

var (
	defaultLogger *Logger
	defaultMu     sync.Mutex
)

// InitDefaultLogger 用 config 替换默认日志记录器
func InitDefaultLogger(config *LogConfig) error {
	l, err := NewLogger(config)
	if err != nil {
		return err
	}

	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
	return nil
}

// SetDefaultLogger 把已有的日志记录器设为默认，nil 时恢复为按默认配置懒创建
func SetDefaultLogger(l *Logger) {
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

// GetDefaultLogger 获取默认日志记录器，未初始化时按默认配置创建
func GetDefaultLogger() *Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultLogger == nil {
		defaultLogger, _ = NewLogger(nil)
	}
	return defaultLogger
}

// 全局便捷方法
func Debugf(format string, args ...any) {
	GetDefaultLogger().Debugf(format, args...)
}

func Infof(format string, args ...any) {
	GetDefaultLogger().Infof(format, args...)
}

func Warnf(format string, args ...any) {
	GetDefaultLogger().Warnf(format, args...)
}

func Errorf(format string, args ...any) {
	GetDefaultLogger().Errorf(format, args...)
}

func WithField(key string, value any) *Logger {
	return GetDefaultLogger().WithField(key, value)
}

func WithFields(fields map[string]any) *Logger {
	return GetDefaultLogger().WithFields(fields)
}

func WithError(err error) *Logger {
	return GetDefaultLogger().WithError(err)
}
