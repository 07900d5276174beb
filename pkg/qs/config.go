package qs

import (
	"emperror.dev/errors"
	"github.com/mitchellh/mapstructure"
)

// ArrayFormat 数组序列化方式
type ArrayFormat string

const (
	// a[0]=b&a[1]=c
	Indices ArrayFormat = "indices"
	// a[]=b&a[]=c
	Brackets ArrayFormat = "brackets"
	// a=b&a=c
	Repeat ArrayFormat = "repeat"
	// a=b,c
	Comma ArrayFormat = "comma"
)

const (
	DefaultDelimiter      = "&"
	DefaultDepth          = 5
	DefaultArrayLimit     = 20
	DefaultParameterLimit = 1000
)

// Config 编解码配置。字段名与请求 options 中的键一致，
// 所以可以直接从同一个 options 里读出来。
type Config struct {
	Delimiter         string      `mapstructure:"delimiter"`
	ArrayFormat       ArrayFormat `mapstructure:"arrayFormat"`
	Indices           *bool       `mapstructure:"indices"`
	AllowDots         bool        `mapstructure:"allowDots"`
	Encode            *bool       `mapstructure:"encode"`
	EncodeValuesOnly  bool        `mapstructure:"encodeValuesOnly"`
	SkipNulls         bool        `mapstructure:"skipNulls"`
	Depth             int         `mapstructure:"depth"`
	ArrayLimit        int         `mapstructure:"arrayLimit"`
	ParameterLimit    int         `mapstructure:"parameterLimit"`
	IgnoreQueryPrefix bool        `mapstructure:"ignoreQueryPrefix"`
	AddQueryPrefix    bool        `mapstructure:"addQueryPrefix"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

// ConfigFromOptions 从松散的 options 中读取编解码配置，无关的键被忽略
func ConfigFromOptions(opts map[string]any) (Config, error) {
	cfg := Config{}
	if len(opts) == 0 {
		return cfg.withDefaults(), nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		MatchName: func(mapKey, fieldName string) bool {
			return mapKey == fieldName
		},
	})
	if err != nil {
		return cfg, errors.WithStack(err)
	}

	if err := decoder.Decode(opts); err != nil {
		return cfg, errors.Wrap(err, "invalid query codec options")
	}

	switch cfg.ArrayFormat {
	case "", Indices, Brackets, Repeat, Comma:
	default:
		return cfg, errors.Errorf("unknown arrayFormat %q", cfg.ArrayFormat)
	}

	return cfg.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	if c.Delimiter == "" {
		c.Delimiter = DefaultDelimiter
	}
	if c.ArrayFormat == "" {
		c.ArrayFormat = Indices
		if c.Indices != nil && !*c.Indices {
			c.ArrayFormat = Repeat
		}
	}
	if c.Encode == nil {
		enc := true
		c.Encode = &enc
	}
	if c.Depth <= 0 {
		c.Depth = DefaultDepth
	}
	if c.ArrayLimit <= 0 {
		c.ArrayLimit = DefaultArrayLimit
	}
	if c.ParameterLimit <= 0 {
		c.ParameterLimit = DefaultParameterLimit
	}
	return c
}

func (c Config) encode() bool {
	return c.Encode == nil || *c.Encode
}
