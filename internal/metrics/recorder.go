package metrics

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/replacement/pkg/model"
	"github.com/paiban/replacement/pkg/scoring"
)

// Recorder 将业务事件写入注册表，供排序服务、合规检测与周期任务使用
type Recorder struct {
	reg *Registry
}

// NewRecorder 创建记录器，reg 为空时使用全局注册表
func NewRecorder(reg *Registry) *Recorder {
	if reg == nil {
		reg = Default()
	}
	return &Recorder{reg: reg}
}

// Registry 返回底层注册表
func (r *Recorder) Registry() *Registry {
	return r.reg
}

// ObserveCandidateScore 记录候选人总分（按推荐等级）与各分项得分
func (r *Recorder) ObserveCandidateScore(total float64, tier scoring.Recommendation, sub scoring.SubScores) {
	if h := r.reg.GetHistogram(metricCandidateScore); h != nil {
		h.Observe(total, string(tier))
	}
	if h := r.reg.GetHistogram(metricCandidateSubScore); h != nil {
		h.Observe(sub.Workload, "workload")
		h.Observe(sub.Compliance, "compliance")
		h.Observe(sub.Fairness, "fairness")
		h.Observe(sub.Preference, "preference")
	}
}

// IncCandidateEvaluations 班次的候选人评估计数
func (r *Recorder) IncCandidateEvaluations(shiftID uuid.UUID) {
	if c := r.reg.GetCounter(metricCandidateEvaluation); c != nil {
		c.Inc(shiftID.String())
	}
}

// ObserveRankingDuration 记录一次排序耗时
func (r *Recorder) ObserveRankingDuration(_ uuid.UUID, seconds float64) {
	if h := r.reg.GetHistogram(metricRankingDuration); h != nil {
		h.Observe(seconds)
	}
}

// IncComplianceViolation 违规计数
func (r *Recorder) IncComplianceViolation(vt model.ViolationType, severity model.Severity) {
	if c := r.reg.GetCounter(metricViolations); c != nil {
		c.Inc(string(vt), string(severity))
	}
}

// SetFairnessGini 设置公平性基尼系数
func (r *Recorder) SetFairnessGini(metricType string, gini float64) {
	if g := r.reg.GetGauge(metricFairnessGini); g != nil {
		g.Set(gini, metricType)
	}
}

// RecordJobRun 记录周期任务执行结果
func (r *Recorder) RecordJobRun(job, status string, duration time.Duration, succeeded, failed int) {
	if c := r.reg.GetCounter(metricJobRuns); c != nil {
		c.Inc(job, status)
	}
	if status == "skipped" {
		return
	}
	if h := r.reg.GetHistogram(metricJobDuration); h != nil {
		h.Observe(duration.Seconds(), job)
	}
	if c := r.reg.GetCounter(metricJobEmployees); c != nil {
		c.Add(float64(succeeded), job, "success")
		c.Add(float64(failed), job, "failure")
	}
}

// RecordRequest 记录运维接口请求
func (r *Recorder) RecordRequest(method, path string, status int, duration time.Duration) {
	if c := r.reg.GetCounter(metricHTTPRequests); c != nil {
		c.Inc(method, path, strconv.Itoa(status))
	}
	if h := r.reg.GetHistogram(metricHTTPDuration); h != nil {
		h.Observe(duration.Seconds(), method, path)
	}
}

// SetDBStats 记录连接池状态
func (r *Recorder) SetDBStats(stats sql.DBStats) {
	if g := r.reg.GetGauge(metricDBConnections); g != nil {
		g.Set(float64(stats.OpenConnections), "open")
		g.Set(float64(stats.InUse), "in_use")
		g.Set(float64(stats.Idle), "idle")
	}
}
