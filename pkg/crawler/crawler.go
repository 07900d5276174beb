package crawler

import (
	"context"
	"io"
	"path/filepath"

	"github.com/djskncxm/DuckRequest/internal/core"
	"github.com/djskncxm/DuckRequest/internal/metrics"
	"github.com/djskncxm/DuckRequest/internal/setting"
	"github.com/djskncxm/DuckRequest/pkg/httpc"
	"github.com/djskncxm/DuckRequest/pkg/logger"
)

// Config 创建 Crawler 需要的参数，全部可以为空
type Config struct {
	// ConfigPath YAML 配置文件，为空时使用默认配置
	ConfigPath string
	// LogOutput 控制台日志输出，为空时写 stderr
	LogOutput io.Writer
	Metrics   metrics.Client
}

// Crawler 配置、日志和引擎的组合
type Crawler struct {
	Engine  *core.Engine
	Setting *setting.Setting
	Logger  *logger.Logger
}

func New(cfg Config) (*Crawler, error) {
	s := setting.Default()
	if cfg.ConfigPath != "" {
		var err error
		s, err = setting.Load(cfg.ConfigPath)
		if err != nil {
			return nil, err
		}
	}

	log, err := logger.NewLogger(logConfig(s, cfg.LogOutput))
	if err != nil {
		return nil, err
	}
	// 包级日志函数跟随最近创建的 Crawler
	logger.SetDefaultLogger(log)
	if cfg.ConfigPath != "" {
		logger.WithField("config", cfg.ConfigPath).Debugf("已加载配置")
	}

	var opts []core.EngineOption
	if cfg.Metrics != nil {
		opts = append(opts, core.WithMetrics(cfg.Metrics))
	}
	engine, err := core.InitEngine(s, log, opts...)
	if err != nil {
		return nil, err
	}

	return &Crawler{
		Engine:  engine,
		Setting: s,
		Logger:  log,
	}, nil
}

func logConfig(s *setting.Setting, out io.Writer) *logger.LogConfig {
	cfg := logger.DefaultLogConfig()
	cfg.LogLevel = s.Log.LOGLEVEL
	if s.Log.Format != "" {
		cfg.LogFormat = s.Log.Format
	}
	cfg.Output = out
	if s.Log.LogFile != "" {
		cfg.EnableFile = true
		cfg.FilePath = filepath.Dir(s.Log.LogFile)
		cfg.FileName = filepath.Base(s.Log.LogFile)
	}
	return cfg
}

// Normalize 按配置规范化，不发送
func (c *Crawler) Normalize(req *httpc.Request) (*httpc.Descriptor, error) {
	return c.Engine.Prepare(req)
}

// Submit 规范化后入队，Start 时发送
func (c *Crawler) Submit(reqs ...*httpc.Request) ([]*httpc.Descriptor, error) {
	res := make([]*httpc.Descriptor, 0, len(reqs))
	for _, req := range reqs {
		d, err := c.Engine.Submit(req)
		if err != nil {
			return res, err
		}
		res = append(res, d)
	}
	return res, nil
}

func (c *Crawler) Start(ctx context.Context) error {
	return c.Engine.Run(ctx)
}

func (c *Crawler) Close() error {
	return c.Logger.Close()
}
