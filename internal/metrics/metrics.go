// Package metrics 提供Prometheus监控指标
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
)

// Registry 指标注册表
type Registry struct {
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
	mu         sync.RWMutex
}

// Counter 计数器
type Counter struct {
	Name   string
	Help   string
	Labels []string
	values map[string]float64
	mu     sync.RWMutex
}

// Gauge 仪表盘
type Gauge struct {
	Name   string
	Help   string
	Labels []string
	values map[string]float64
	mu     sync.RWMutex
}

// Histogram 直方图
type Histogram struct {
	Name    string
	Help    string
	Labels  []string
	Buckets []float64
	counts  map[string][]int
	sums    map[string]float64
	mu      sync.RWMutex
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// Default 获取全局注册表
func Default() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry 创建注册表并注册默认指标
func NewRegistry() *Registry {
	r := &Registry{
		counters:   make(map[string]*Counter),
		gauges:     make(map[string]*Gauge),
		histograms: make(map[string]*Histogram),
	}
	r.initDefaultMetrics()
	return r
}

const (
	metricHTTPRequests        = "replacement_http_requests_total"
	metricHTTPDuration        = "replacement_http_request_duration_seconds"
	metricCandidateScore      = "replacement_candidate_score"
	metricCandidateSubScore   = "replacement_candidate_subscore"
	metricCandidateEvaluation = "replacement_candidate_evaluations_total"
	metricRankingDuration     = "replacement_ranking_duration_seconds"
	metricViolations          = "replacement_compliance_violations_total"
	metricFairnessGini        = "replacement_fairness_gini"
	metricJobRuns             = "replacement_job_runs_total"
	metricJobDuration         = "replacement_job_duration_seconds"
	metricJobEmployees        = "replacement_job_employees_total"
	metricDBConnections       = "replacement_db_connections"
)

// initDefaultMetrics 初始化默认指标
func (r *Registry) initDefaultMetrics() {
	// 运维接口
	r.NewCounter(metricHTTPRequests, "HTTP请求总数", []string{"method", "path", "status"})
	r.NewHistogram(metricHTTPDuration, "HTTP请求延迟",
		[]string{"method", "path"},
		[]float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0})

	// 候选人排序
	scoreBuckets := []float64{10, 20, 30, 40, 50, 60, 70, 80, 85, 90, 100}
	r.NewHistogram(metricCandidateScore, "候选人总分分布", []string{"tier"}, scoreBuckets)
	r.NewHistogram(metricCandidateSubScore, "候选人分项得分分布", []string{"component"}, scoreBuckets)
	r.NewCounter(metricCandidateEvaluation, "候选人评估次数", []string{"shift_id"})
	r.NewHistogram(metricRankingDuration, "候选人排序耗时", []string{},
		[]float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0})

	// 合规
	r.NewCounter(metricViolations, "合规违规次数", []string{"type", "severity"})

	// 公平性
	r.NewGauge(metricFairnessGini, "公平性基尼系数", []string{"metric_type"})

	// 周期任务
	r.NewCounter(metricJobRuns, "周期任务执行次数", []string{"job", "status"})
	r.NewHistogram(metricJobDuration, "周期任务耗时", []string{"job"},
		[]float64{0.1, 0.5, 1.0, 5.0, 10.0, 30.0, 60.0, 300.0, 900.0})
	r.NewCounter(metricJobEmployees, "周期任务处理员工数", []string{"job", "result"})

	// 数据库连接池
	r.NewGauge(metricDBConnections, "数据库连接数", []string{"state"})
}

// NewCounter 创建计数器
func (r *Registry) NewCounter(name, help string, labels []string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()

	counter := &Counter{
		Name:   name,
		Help:   help,
		Labels: labels,
		values: make(map[string]float64),
	}
	r.counters[name] = counter
	return counter
}

// NewGauge 创建仪表盘
func (r *Registry) NewGauge(name, help string, labels []string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()

	gauge := &Gauge{
		Name:   name,
		Help:   help,
		Labels: labels,
		values: make(map[string]float64),
	}
	r.gauges[name] = gauge
	return gauge
}

// NewHistogram 创建直方图
func (r *Registry) NewHistogram(name, help string, labels []string, buckets []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()

	histogram := &Histogram{
		Name:    name,
		Help:    help,
		Labels:  labels,
		Buckets: buckets,
		counts:  make(map[string][]int),
		sums:    make(map[string]float64),
	}
	r.histograms[name] = histogram
	return histogram
}

// GetCounter 获取计数器
func (r *Registry) GetCounter(name string) *Counter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counters[name]
}

// GetGauge 获取仪表盘
func (r *Registry) GetGauge(name string) *Gauge {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gauges[name]
}

// GetHistogram 获取直方图
func (r *Registry) GetHistogram(name string) *Histogram {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.histograms[name]
}

// Inc 增加计数
func (c *Counter) Inc(labelValues ...string) {
	c.Add(1, labelValues...)
}

// Add 增加指定值
func (c *Counter) Add(value float64, labelValues ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[labelKey(labelValues)] += value
}

// Value 返回指定标签的当前值
func (c *Counter) Value(labelValues ...string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values[labelKey(labelValues)]
}

// Set 设置值
func (g *Gauge) Set(value float64, labelValues ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values[labelKey(labelValues)] = value
}

// Add 增加指定值
func (g *Gauge) Add(value float64, labelValues ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values[labelKey(labelValues)] += value
}

// Value 返回指定标签的当前值
func (g *Gauge) Value(labelValues ...string) float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.values[labelKey(labelValues)]
}

// Observe 记录观测值
func (h *Histogram) Observe(value float64, labelValues ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := labelKey(labelValues)
	if _, exists := h.counts[key]; !exists {
		h.counts[key] = make([]int, len(h.Buckets)+1)
	}

	// 各桶单独计数，输出时累加
	placed := false
	for i, bucket := range h.Buckets {
		if value <= bucket {
			h.counts[key][i]++
			placed = true
			break
		}
	}
	if !placed {
		h.counts[key][len(h.Buckets)]++
	}

	h.sums[key] += value
}

// Count 返回指定标签的观测次数
func (h *Histogram) Count(labelValues ...string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, c := range h.counts[labelKey(labelValues)] {
		total += c
	}
	return total
}

// labelKey 生成标签键
func labelKey(labels []string) string {
	return strings.Join(labels, ",")
}

// Handler 返回Prometheus格式的指标HTTP处理器
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		r.Expose(w)
	})
}

// Handler 返回全局注册表的HTTP处理器
func Handler() http.Handler {
	return Default().Handler()
}

// Expose 以文本格式输出全部指标，按名称与标签排序
func (r *Registry) Expose(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range sortedKeys(r.counters) {
		counter := r.counters[name]
		fmt.Fprintf(w, "# HELP %s %s\n", counter.Name, counter.Help)
		fmt.Fprintf(w, "# TYPE %s counter\n", counter.Name)

		counter.mu.RLock()
		for _, key := range sortedKeys(counter.values) {
			fmt.Fprintf(w, "%s%s %g\n", counter.Name, braced(formatLabels(counter.Labels, key)), counter.values[key])
		}
		counter.mu.RUnlock()
	}

	for _, name := range sortedKeys(r.gauges) {
		gauge := r.gauges[name]
		fmt.Fprintf(w, "# HELP %s %s\n", gauge.Name, gauge.Help)
		fmt.Fprintf(w, "# TYPE %s gauge\n", gauge.Name)

		gauge.mu.RLock()
		for _, key := range sortedKeys(gauge.values) {
			fmt.Fprintf(w, "%s%s %g\n", gauge.Name, braced(formatLabels(gauge.Labels, key)), gauge.values[key])
		}
		gauge.mu.RUnlock()
	}

	for _, name := range sortedKeys(r.histograms) {
		histogram := r.histograms[name]
		fmt.Fprintf(w, "# HELP %s %s\n", histogram.Name, histogram.Help)
		fmt.Fprintf(w, "# TYPE %s histogram\n", histogram.Name)

		histogram.mu.RLock()
		for _, key := range sortedKeys(histogram.counts) {
			counts := histogram.counts[key]
			labels := formatLabels(histogram.Labels, key)
			prefix := ""
			if labels != "" {
				prefix = labels + ","
			}

			cumulative := 0
			for i, bucket := range histogram.Buckets {
				cumulative += counts[i]
				fmt.Fprintf(w, "%s_bucket{%sle=\"%g\"} %d\n", histogram.Name, prefix, bucket, cumulative)
			}
			cumulative += counts[len(histogram.Buckets)]
			fmt.Fprintf(w, "%s_bucket{%sle=\"+Inf\"} %d\n", histogram.Name, prefix, cumulative)
			fmt.Fprintf(w, "%s_sum%s %g\n", histogram.Name, braced(labels), histogram.sums[key])
			fmt.Fprintf(w, "%s_count%s %d\n", histogram.Name, braced(labels), cumulative)
		}
		histogram.mu.RUnlock()
	}
}

// formatLabels 格式化标签
func formatLabels(names []string, key string) string {
	if len(names) == 0 {
		return ""
	}
	vals := strings.Split(key, ",")
	parts := make([]string, len(names))
	for i, name := range names {
		val := ""
		if i < len(vals) {
			val = vals[i]
		}
		parts[i] = fmt.Sprintf("%s=%q", name, val)
	}
	return strings.Join(parts, ",")
}

func braced(labels string) string {
	if labels == "" {
		return ""
	}
	return "{" + labels + "}"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
