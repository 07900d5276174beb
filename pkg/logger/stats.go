package logger

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"
)

// Stats 线程安全的统计信息收集器
type Stats struct {
	mu        sync.RWMutex
	values    map[string]any
	startTime time.Time
}

// NewStats 创建统计器
func NewStats() *Stats {
	return &Stats{
		values:    make(map[string]any),
		startTime: time.Now(),
	}
}

// AddInt 累加整数统计
func (s *Stats) AddInt(key string, value int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.values[key].(int); ok {
		s.values[key] = current + value
	} else {
		s.values[key] = value
	}
}

// Increment 递增计数器
func (s *Stats) Increment(key string) {
	s.AddInt(key, 1)
}

// Set 设置任意类型的值
func (s *Stats) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Get 获取统计值
func (s *Stats) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.values[key]
	return val, ok
}

// GetInt 获取整数统计值
func (s *Stats) GetInt(key string) (int, bool) {
	val, ok := s.Get(key)
	if !ok {
		return 0, false
	}

	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// Snapshot 复制一份当前统计
func (s *Stats) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make(map[string]any, len(s.values))
	for k, v := range s.values {
		res[k] = v
	}
	return res
}

// Clear 清空统计
func (s *Stats) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]any)
	s.startTime = time.Now()
}

// GetUptime 获取运行时间
func (s *Stats) GetUptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.startTime)
}

// OutTableInfo 以表格形式输出统计信息，按键排序
func (s *Stats) OutTableInfo(writer io.Writer) error {
	uptime := s.GetUptime()
	values := s.Snapshot()

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := tablewriter.NewWriter(writer)
	table.Header([]string{"统计项目", "信息"})
	if err := table.Append([]string{"运行时间", uptime.Round(time.Millisecond).String()}); err != nil {
		return err
	}

	for _, key := range keys {
		if err := table.Append([]string{key, formatValue(values[key])}); err != nil {
			return err
		}
	}

	return table.Render()
}

func formatValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case time.Time:
		return v.Format("2006-01-02 15:04:05")
	case time.Duration:
		return v.String()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
