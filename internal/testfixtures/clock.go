// Package testfixtures 提供测试用的时钟与数据库夹具
package testfixtures

import (
	"sync"
	"time"
)

// Clock 可控时钟
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock 创建时钟
func NewClock(start time.Time) *Clock {
	return &Clock{current: start}
}

// Now 返回当前时间
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc 以函数形式注入
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Set 设置时间
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// Advance 前进指定时长并返回新时间
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	return c.current
}
