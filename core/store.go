package core

import "context"

// Store 是键值存储的领域接口。
//
// 定义在领域层（core），由基础设施层（store）实现：
//   - store.MemoryStore：测试/单进程
//   - store.RedisStore：多实例共享
//   - store.SQLiteStore：本地持久化（CLI）
//
// 偏好文档、旧版计数与浏览计数都以 JSON 值存放在各自的 key 下。
type Store interface {
	// Name 返回存储后端名称（用于日志/监控）
	Name() string

	// Get 读取单个 key 的值，不存在时返回 ErrStoreNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Set 写入单个 key-value，ttl 单位为秒
	Set(ctx context.Context, key string, value []byte, ttl ...int) error

	// Delete 删除单个 key
	Delete(ctx context.Context, key string) error

	// BatchGet 批量读取，不存在的 key 不出现在结果中
	BatchGet(ctx context.Context, keys []string) (map[string][]byte, error)

	// Close 关闭连接/释放资源
	Close() error
}

// Watcher 是 Store 的可选扩展：订阅其他写入方（其他进程/实例）对 key 的修改。
// 不支持的后端返回 ErrStoreNotSupported。
type Watcher interface {
	// Watch 在 key 被修改时回调 fn（参数为新值，删除时为 nil），返回取消函数。
	Watch(ctx context.Context, key string, fn func(value []byte)) (stop func(), err error)
}

// Store 错误定义（使用统一的 DomainError）
var (
	// ErrStoreNotFound 表示 key 不存在
	ErrStoreNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "store: key not found")

	// ErrStoreNotSupported 表示操作不支持
	ErrStoreNotSupported = NewDomainError(ModuleStore, ErrorCodeNotSupported, "store: operation not supported")

	// ErrStoreUnavailable 表示存储不可用（如隐私模式、连接失败）
	ErrStoreUnavailable = NewDomainError(ModuleStore, ErrorCodeUnavailable, "store: unavailable")
)

// IsStoreNotFound 检查错误是否为 key 不存在
func IsStoreNotFound(err error) bool {
	domainErr := GetDomainError(err)
	return domainErr != nil && domainErr.Module == ModuleStore && domainErr.Code == ErrorCodeNotFound
}

// IsStoreNotSupported 检查错误是否为操作不支持
func IsStoreNotSupported(err error) bool {
	domainErr := GetDomainError(err)
	return domainErr != nil && domainErr.Module == ModuleStore && domainErr.Code == ErrorCodeNotSupported
}
