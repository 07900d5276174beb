package middleware

import (
	"fmt"
	"net/http"
	"sort"
	"sync"

	"emperror.dev/errors"
	"github.com/thoas/go-funk"

	"github.com/djskncxm/DuckRequest/pkg/httpc"
)

// 中间件接口定义
type RequestProcessor interface {
	ProcessRequest(*httpc.Descriptor) error
}

type ResponseProcessor interface {
	ProcessResponse(*httpc.Descriptor, *http.Response) error
}

// ExceptionProcessor 处理传输层错误。handled 为 true 时链条停止，
// newErr 替换原错误；newErr 为 nil 时保留原错误。
type ExceptionProcessor interface {
	ProcessException(*httpc.Descriptor, error) (handled bool, newErr error)
}

type MiddlewarePriority int

const (
	PriorityFirst  MiddlewarePriority = 100
	PriorityHigh   MiddlewarePriority = 50
	PriorityNormal MiddlewarePriority = 0
	PriorityLow    MiddlewarePriority = -50
	PriorityLast   MiddlewarePriority = -100
)

type MiddlewareConfig struct {
	Name     string
	Priority MiddlewarePriority
	Disabled bool
	Group    string
}

type DecoratedMiddleware struct {
	ID         string
	Config     MiddlewareConfig
	Middleware any // 原始中间件实例
}

type MiddlewareManager struct {
	mu sync.RWMutex

	requestChain   []DecoratedMiddleware
	responseChain  []DecoratedMiddleware
	exceptionChain []DecoratedMiddleware

	middlewareMap  map[string]DecoratedMiddleware
	disabledGroups map[string]bool
}

func NewMiddlewareManager() *MiddlewareManager {
	return &MiddlewareManager{
		middlewareMap:  make(map[string]DecoratedMiddleware),
		disabledGroups: make(map[string]bool),
	}
}

// Register 注册中间件，按实现的接口自动放进对应的链。
// 同名中间件重复注册返回错误。
func (mm *MiddlewareManager) Register(middleware any, config ...MiddlewareConfig) error {
	cfg := MiddlewareConfig{}
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Name == "" {
		cfg.Name = fmt.Sprintf("%T", middleware)
	}

	mm.mu.Lock()
	defer mm.mu.Unlock()

	id := generateID(cfg.Name)
	if _, exists := mm.middlewareMap[id]; exists {
		return errors.Errorf("middleware %s already registered", cfg.Name)
	}

	dm := DecoratedMiddleware{
		ID:         id,
		Config:     cfg,
		Middleware: middleware,
	}

	registered := false
	if _, ok := middleware.(RequestProcessor); ok {
		mm.requestChain = append(mm.requestChain, dm)
		sortByPriority(mm.requestChain)
		registered = true
	}
	if _, ok := middleware.(ResponseProcessor); ok {
		mm.responseChain = append(mm.responseChain, dm)
		sortByPriority(mm.responseChain)
		registered = true
	}
	if _, ok := middleware.(ExceptionProcessor); ok {
		mm.exceptionChain = append(mm.exceptionChain, dm)
		sortByPriority(mm.exceptionChain)
		registered = true
	}
	if !registered {
		return errors.Errorf("middleware %s implements no processor interface", cfg.Name)
	}

	mm.middlewareMap[id] = dm
	return nil
}

// ProcessRequest 按优先级从高到低执行，第一个错误中止
func (mm *MiddlewareManager) ProcessRequest(d *httpc.Descriptor) error {
	for _, dm := range mm.enabled(func() []DecoratedMiddleware { return mm.requestChain }) {
		if err := dm.Middleware.(RequestProcessor).ProcessRequest(d); err != nil {
			return errors.WrapIf(err, "middleware "+dm.Config.Name+" failed")
		}
	}
	return nil
}

// ProcessResponse 按优先级从低到高执行，和请求链对称
func (mm *MiddlewareManager) ProcessResponse(d *httpc.Descriptor, res *http.Response) error {
	enabled := mm.enabled(func() []DecoratedMiddleware { return mm.responseChain })
	for i := len(enabled) - 1; i >= 0; i-- {
		dm := enabled[i]
		if err := dm.Middleware.(ResponseProcessor).ProcessResponse(d, res); err != nil {
			return errors.WrapIf(err, "middleware "+dm.Config.Name+" failed")
		}
	}
	return nil
}

// ProcessException 返回最终要交给回调的错误
func (mm *MiddlewareManager) ProcessException(d *httpc.Descriptor, err error) error {
	for _, dm := range mm.enabled(func() []DecoratedMiddleware { return mm.exceptionChain }) {
		handled, newErr := dm.Middleware.(ExceptionProcessor).ProcessException(d, err)
		if !handled {
			continue
		}
		if newErr != nil {
			return newErr
		}
		return err
	}
	return err
}

// enabled 在读锁内取出链并过滤掉被禁用的中间件
func (mm *MiddlewareManager) enabled(chainOf func() []DecoratedMiddleware) []DecoratedMiddleware {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	chain := chainOf()
	result := make([]DecoratedMiddleware, 0, len(chain))
	funk.ForEach(chain, func(dm DecoratedMiddleware) {
		if !dm.Config.Disabled && !mm.disabledGroups[dm.Config.Group] {
			result = append(result, dm)
		}
	})
	return result
}

// Names 返回已注册中间件的名字，按名字排序
func (mm *MiddlewareManager) Names() []string {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	names := make([]string, 0, len(mm.middlewareMap))
	for _, dm := range mm.middlewareMap {
		names = append(names, dm.Config.Name)
	}
	sort.Strings(names)
	return names
}

func (mm *MiddlewareManager) EnableGroup(group string) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	delete(mm.disabledGroups, group)
}

func (mm *MiddlewareManager) DisableGroup(group string) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.disabledGroups[group] = true
}

// GroupDisabled 判断分组是否被禁用
func (mm *MiddlewareManager) GroupDisabled(group string) bool {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return funk.Contains(funk.Keys(mm.disabledGroups), group)
}

// 优先级高的在前，相同优先级保持注册顺序
func sortByPriority(chain []DecoratedMiddleware) {
	sort.SliceStable(chain, func(i, j int) bool {
		return chain[i].Config.Priority > chain[j].Config.Priority
	})
}

func generateID(name string) string {
	return fmt.Sprintf("mw-%s", name)
}
