package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// FetchFields 提供形态/缓存键/来源字段，供协调器日志复用。
// 只记录派生键，不记录原始请求，保持请求在日志中同样匿名。
func FetchFields(shape, key, source string) logrus.Fields {
	fields := logrus.Fields{
		"shape":     shape,
		"cache_key": key,
	}
	if source != "" {
		fields["source"] = source
	}
	return fields
}
