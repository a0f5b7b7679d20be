package config

import "fmt"

// FieldError 提供字段路径与错误原因，便于 CLI 向用户反馈。
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// newFieldError 创建包含字段路径与原因的 error，便于 CLI 定位。
func newFieldError(field, reason string) error {
	return FieldError{Field: field, Reason: reason}
}

// mappingField 用于拼接 Mapping 级字段路径，输出 Mapping[/assets].Field 形式。
func mappingField(resourcePath, field string) string {
	if resourcePath == "" {
		return fmt.Sprintf("Mapping[].%s", field)
	}
	return fmt.Sprintf("Mapping[%s].%s", resourcePath, field)
}

// overrideField 拼接 Override 级字段路径。
func overrideField(uriPath, field string) string {
	if uriPath == "" {
		return fmt.Sprintf("Override[].%s", field)
	}
	return fmt.Sprintf("Override[%s].%s", uriPath, field)
}
