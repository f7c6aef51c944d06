package core

import "errors"

// DomainError 是领域层的统一错误类型。
//
// 使用场景：
//   - Store 错误：NOT_FOUND, NOT_SUPPORTED, UNAVAILABLE
//   - 偏好文档错误：CORRUPT, NOT_SUPPORTED（未知版本）
//   - 输入错误：INVALID_INPUT（非法半衰期、非法权重、空 key）
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "CORRUPT"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "prefs"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is 按 Module + Code 比较，使 errors.Is 对包装后的错误同样生效。
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Module == t.Module && e.Code == t.Code
}

// IsDomainError 检查错误链中是否有 DomainError
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取错误链中的 DomainError，如果没有则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 服务不可用
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeCorrupt       = "CORRUPT"        // 持久化数据损坏
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误
)

// 模块名称常量
const (
	ModuleStore  = "store"
	ModulePrefs  = "prefs"
	ModuleRank   = "rank"
	ModuleEngine = "engine"
)

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool { return hasCode(err, ErrorCodeNotFound) }

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool { return hasCode(err, ErrorCodeNotSupported) }

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool { return hasCode(err, ErrorCodeUnavailable) }

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool { return hasCode(err, ErrorCodeInvalidInput) }

// IsCorrupt 检查错误是否为 CORRUPT
func IsCorrupt(err error) bool { return hasCode(err, ErrorCodeCorrupt) }
