// Package freshness decides whether a stored cache entry may be reused.
//
// RefreshAfter keeps the literal rule abs(now-storedAt) > d: an entry becomes
// usable only once it is OLDER than d, and is refetched while it is younger.
package freshness

import (
	"fmt"
	"strings"
	"time"
)

// Mode 对应配置中可选的新鲜度策略名称。
type Mode string

const (
	ModeAlwaysUseCache Mode = "alwaysUseCacheIfAvailable"
	ModeNewCall        Mode = "newCall"
	ModeRefreshAfter   Mode = "refreshAfter"
)

// Policy 描述缓存条目的复用规则，零值等价于 AlwaysUseCache。
type Policy struct {
	Mode  Mode
	After time.Duration
}

// AlwaysUseCache 只要磁盘上存在可解码条目就复用。
func AlwaysUseCache() Policy {
	return Policy{Mode: ModeAlwaysUseCache}
}

// NewCall 每次都回源，忽略已有缓存。
func NewCall() Policy {
	return Policy{Mode: ModeNewCall}
}

// RefreshAfter 按 abs(now-storedAt) > d 判断是否复用（见包注释中的极性说明）。
func RefreshAfter(d time.Duration) Policy {
	return Policy{Mode: ModeRefreshAfter, After: d}
}

// IsUsable 判断写入时间为 storedAt 的条目在 now 时刻能否直接返回。
func (p Policy) IsUsable(storedAt, now time.Time) bool {
	switch p.Mode {
	case ModeNewCall:
		return false
	case ModeRefreshAfter:
		age := now.Sub(storedAt)
		if age < 0 {
			age = -age
		}
		return age > p.After
	default:
		return true
	}
}

func (p Policy) String() string {
	if p.Mode == ModeRefreshAfter {
		return fmt.Sprintf("%s(%s)", p.Mode, p.After)
	}
	if p.Mode == "" {
		return string(ModeAlwaysUseCache)
	}
	return string(p.Mode)
}

// Parse 将配置值映射为 Policy，名称大小写不敏感。
func Parse(mode string, after time.Duration) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", strings.ToLower(string(ModeAlwaysUseCache)):
		return AlwaysUseCache(), nil
	case strings.ToLower(string(ModeNewCall)):
		return NewCall(), nil
	case strings.ToLower(string(ModeRefreshAfter)):
		if after <= 0 {
			return Policy{}, fmt.Errorf("refreshAfter requires a positive duration, got %s", after)
		}
		return RefreshAfter(after), nil
	default:
		return Policy{}, fmt.Errorf("unsupported freshness mode: %s", mode)
	}
}
