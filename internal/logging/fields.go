package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// RequestFields 提供请求路径/状态码/是否命中 Range 的字段，供资源请求日志复用。
func RequestFields(path string, status int, ranged bool) logrus.Fields {
	return logrus.Fields{
		"path":   path,
		"status": status,
		"ranged": ranged,
	}
}
