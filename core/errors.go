package core

import (
	"errors"
	"fmt"
)

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供模块（Module）、错误代码（Code）和消息（Message）
//   - Err 保存底层原因，支持 errors.Unwrap
//   - errors.Is 按 Module + Code 匹配，与 Message 无关
//
// 使用场景：
//   - Catalog 错误：NOT_FOUND（产物不存在）, CORRUPT（产物无法解析）
//   - Recommend 错误：NOT_FOUND（片名不在目录中）, EMPTY_RESULT（目录不足 2 条）
//   - Enrich 错误：UNAVAILABLE（单个字段获取失败，不外传）
//   - Store 错误：NOT_FOUND
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "CORRUPT"）
	Message string // 错误消息
	Module  string // 模块名称（如 "catalog", "recommend", "enrich"）
	Err     error  // 底层原因，可为空
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is 让 errors.Is 按 Module + Code 匹配哨兵错误。
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Module == t.Module && e.Code == t.Code
}

// Wrap 基于哨兵错误派生一个带上下文和底层原因的新错误。
func (e *DomainError) Wrap(cause error, format string, args ...any) *DomainError {
	msg := e.Message
	if format != "" {
		msg = e.Message + ": " + fmt.Sprintf(format, args...)
	}
	return &DomainError{
		Module:  e.Module,
		Code:    e.Code,
		Message: msg,
		Err:     cause,
	}
}

// GetDomainError 获取错误链上的第一个 DomainError，如果不存在则返回 nil
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
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 服务不可用
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeCorrupt       = "CORRUPT"        // 数据损坏/无法解析
	ErrorCodeEmptyResult   = "EMPTY_RESULT"   // 没有可返回的结果
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误
)

// 模块名称常量
const (
	ModuleStore     = "store"
	ModuleCatalog   = "catalog"
	ModuleRecommend = "recommend"
	ModuleEnrich    = "enrich"
)

// Catalog / Recommend / Enrich 哨兵错误
var (
	// ErrCatalogNotFound 表示目录或相似度产物不存在（LoadError{NotFound}）
	ErrCatalogNotFound = NewDomainError(ModuleCatalog, ErrorCodeNotFound, "catalog: artifact not found")

	// ErrCatalogCorrupt 表示产物无法反序列化或维度不一致（LoadError{Corrupt}）
	ErrCatalogCorrupt = NewDomainError(ModuleCatalog, ErrorCodeCorrupt, "catalog: artifact corrupt")

	// ErrTitleNotFound 表示所选片名不在目录中
	ErrTitleNotFound = NewDomainError(ModuleRecommend, ErrorCodeNotFound, "recommend: title not found")

	// ErrEmptyResult 表示目录少于 2 条，不可能产生推荐
	ErrEmptyResult = NewDomainError(ModuleRecommend, ErrorCodeEmptyResult, "recommend: catalog too small")

	// ErrEnrichment 表示单个片名的单个字段获取失败，只用于日志与指标
	ErrEnrichment = NewDomainError(ModuleEnrich, ErrorCodeUnavailable, "enrich: metadata unavailable")
)

// IsNotFound 检查错误是否为 NOT_FOUND（任意模块）
func IsNotFound(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}
