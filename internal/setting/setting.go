package setting

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"emperror.dev/errors"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

type ClientSetting struct {
	Worker          int      `yaml:"Worker" validate:"gte=1,lte=256"`
	Timeout         int      `yaml:"Timeout" validate:"gte=0"`       // 毫秒，0 不限
	SocketTimeout   int      `yaml:"SocketTimeout" validate:"gte=0"` // 毫秒，0 不限
	MaxRedirects    int      `yaml:"MaxRedirects" validate:"gte=0"`
	FollowRedirects bool     `yaml:"FollowRedirects"`
	RateLimit       float64  `yaml:"RateLimit" validate:"gte=0"` // 每秒请求数，0 不限
	Burst           int      `yaml:"Burst" validate:"gte=0"`
	AllowedMethods  []string `yaml:"AllowedMethods" validate:"dive,oneof=GET HEAD POST PUT PATCH DELETE OPTIONS"`
}

type HeadersSetting struct {
	UserAgent string            `yaml:"UserAgent"`
	Extra     map[string]string `yaml:"Extra"`
}

type LogSetting struct {
	LOGLEVEL string `yaml:"LOGLEVEL" validate:"omitempty,oneof=trace debug info warn warning error"`
	Format   string `yaml:"Format" validate:"omitempty,oneof=text json"`
	LogFile  string `yaml:"LogFile"`
}

type Setting struct {
	Client  ClientSetting  `yaml:"Client"`
	Headers HeadersSetting `yaml:"Headers"`
	Log     LogSetting     `yaml:"Log"`
}

// Default 默认配置
func Default() *Setting {
	return &Setting{
		Client: ClientSetting{
			Worker:       3,
			MaxRedirects: 10,
		},
		Log: LogSetting{
			LOGLEVEL: "info",
			Format:   "text",
		},
	}
}

// Load 读取 YAML 配置文件，未出现的字段保留默认值
func Load(path string) (*Setting, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return Parse(data)
}

// Parse 解析 YAML 内容并校验
func Parse(data []byte) (*Setting, error) {
	s := Default()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, errors.Wrap(err, "解析配置失败")
	}

	for i, m := range s.Client.AllowedMethods {
		s.Client.AllowedMethods[i] = strings.ToUpper(m)
	}
	if s.Client.Burst == 0 && s.Client.RateLimit > 0 {
		s.Client.Burst = 1
	}

	if err := validate.Struct(s); err != nil {
		return nil, errors.WithStack(err)
	}
	return s, nil
}

func (c ClientSetting) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

func (c ClientSetting) SocketTimeoutDuration() time.Duration {
	return time.Duration(c.SocketTimeout) * time.Millisecond
}

// SettingsManager 扁平化的键值视图，键形如 "Client.Worker"
type SettingsManager struct {
	mu       sync.RWMutex
	Settings map[string]string
}

func NewSettingsManager() *SettingsManager {
	return &SettingsManager{
		Settings: make(map[string]string),
	}
}

func (sm *SettingsManager) GetSetting(key string) (string, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	val, ok := sm.Settings[key]
	return val, ok
}

func (sm *SettingsManager) SetSetting(key, value string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.Settings[key] = value
}

func (sm *SettingsManager) GetInt(key string, defaultVal int) int {
	val, ok := sm.GetSetting(key)
	if !ok {
		return defaultVal
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return intVal
}

func (sm *SettingsManager) GetFloat(key string, defaultVal float64) float64 {
	val, ok := sm.GetSetting(key)
	if !ok {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func (sm *SettingsManager) GetBool(key string, defaultVal bool) bool {
	val, ok := sm.GetSetting(key)
	if !ok {
		return defaultVal
	}
	boolVal, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return boolVal
}

// LoadFromSetting 递归加载结构体到 map[string]string
func (sm *SettingsManager) LoadFromSetting(s any) {
	sm.loadStruct(reflect.ValueOf(s), "")
}

func (sm *SettingsManager) loadStruct(v reflect.Value, prefix string) {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return
		}
		v = v.Elem()
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		val := v.Field(i)

		key := field.Name
		if prefix != "" {
			key = prefix + "." + key
		}

		switch val.Kind() {
		case reflect.Struct:
			sm.loadStruct(val, key) // 递归
		case reflect.String:
			sm.SetSetting(key, val.String())
		case reflect.Bool:
			sm.SetSetting(key, strconv.FormatBool(val.Bool()))
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			sm.SetSetting(key, strconv.FormatInt(val.Int(), 10))
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			sm.SetSetting(key, strconv.FormatUint(val.Uint(), 10))
		case reflect.Float32, reflect.Float64:
			sm.SetSetting(key, strconv.FormatFloat(val.Float(), 'f', -1, 64))
		case reflect.Map:
			// map 展开成 "prefix.key"
			iter := val.MapRange()
			for iter.Next() {
				sm.SetSetting(key+"."+fmt.Sprint(iter.Key().Interface()), fmt.Sprint(iter.Value().Interface()))
			}
		case reflect.Slice:
			parts := make([]string, val.Len())
			for j := 0; j < val.Len(); j++ {
				parts[j] = fmt.Sprint(val.Index(j).Interface())
			}
			sm.SetSetting(key, strings.Join(parts, ","))
		default:
			sm.SetSetting(key, fmt.Sprintf("%v", val.Interface()))
		}
	}
}
