package cache

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Spec 描述缓存的淘汰策略，由配置里的 spec 字符串解析而来。两种容量口径
// （条目数 / 字节权重）互斥，只能激活其一。
type Spec struct {
	// MaximumSize caps the number of cached entries. Zero means uncapped.
	MaximumSize int64
	// MaximumWeight caps the total body bytes held. Zero means uncapped.
	MaximumWeight int64
	// ExpireAfterWrite drops entries this long after they were loaded.
	ExpireAfterWrite time.Duration
	// ExpireAfterAccess drops entries this long after their last read.
	ExpireAfterAccess time.Duration
}

// ParseSpec parses a cache spec string such as "maximumSize=100" or
// "maximumWeight=1048576,expireAfterAccess=10m". Keys may appear at most
// once and maximumSize/maximumWeight are mutually exclusive.
func ParseSpec(raw string) (Spec, error) {
	var spec Spec
	seen := map[string]struct{}{}

	for _, clause := range strings.Split(raw, ",") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}

		key, value, ok := strings.Cut(clause, "=")
		if !ok {
			return Spec{}, fmt.Errorf("cache spec clause %q: missing '='", clause)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if _, dup := seen[key]; dup {
			return Spec{}, fmt.Errorf("cache spec key %q appears twice", key)
		}
		seen[key] = struct{}{}

		switch key {
		case "maximumSize":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil || n <= 0 {
				return Spec{}, fmt.Errorf("cache spec maximumSize %q: want positive integer", value)
			}
			spec.MaximumSize = n
		case "maximumWeight":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil || n <= 0 {
				return Spec{}, fmt.Errorf("cache spec maximumWeight %q: want positive integer", value)
			}
			spec.MaximumWeight = n
		case "expireAfterWrite":
			d, err := parseSpecDuration(value)
			if err != nil {
				return Spec{}, fmt.Errorf("cache spec expireAfterWrite %q: %w", value, err)
			}
			spec.ExpireAfterWrite = d
		case "expireAfterAccess":
			d, err := parseSpecDuration(value)
			if err != nil {
				return Spec{}, fmt.Errorf("cache spec expireAfterAccess %q: %w", value, err)
			}
			spec.ExpireAfterAccess = d
		default:
			return Spec{}, fmt.Errorf("cache spec key %q is not supported", key)
		}
	}

	if spec.MaximumSize > 0 && spec.MaximumWeight > 0 {
		return Spec{}, fmt.Errorf("cache spec: maximumSize and maximumWeight are mutually exclusive")
	}
	return spec, nil
}

// parseSpecDuration 额外支持 "2d" 这种以天为单位的写法。
func parseSpecDuration(value string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(value, "d"); ok {
		n, err := strconv.ParseInt(days, 10, 64)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("want positive day count")
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("want positive duration")
	}
	return d, nil
}
