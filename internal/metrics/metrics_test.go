package metrics

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/replacement/pkg/model"
	"github.com/paiban/replacement/pkg/scoring"
)

func TestHistogram_Observe(t *testing.T) {
	r := NewRegistry()
	h := r.NewHistogram("test_latency", "测试", []string{"kind"}, []float64{1, 5})

	h.Observe(0.5, "a")
	h.Observe(3, "a")
	h.Observe(7, "a")

	assert.Equal(t, 3, h.Count("a"))
	assert.Equal(t, 0, h.Count("b"))

	var buf bytes.Buffer
	r.Expose(&buf)
	out := buf.String()

	assert.Contains(t, out, `test_latency_bucket{kind="a",le="1"} 1`)
	assert.Contains(t, out, `test_latency_bucket{kind="a",le="5"} 2`)
	assert.Contains(t, out, `test_latency_bucket{kind="a",le="+Inf"} 3`)
	assert.Contains(t, out, `test_latency_sum{kind="a"} 10.5`)
	assert.Contains(t, out, `test_latency_count{kind="a"} 3`)
}

func TestRecorder_Ranking(t *testing.T) {
	rec := NewRecorder(NewRegistry())
	shiftID := uuid.New()

	rec.ObserveCandidateScore(88, scoring.RecommendationOptimal, scoring.SubScores{Workload: 100, Compliance: 100, Fairness: 70, Preference: 60})
	rec.ObserveCandidateScore(40, scoring.RecommendationNotRecommended, scoring.SubScores{})
	rec.IncCandidateEvaluations(shiftID)
	rec.IncCandidateEvaluations(shiftID)
	rec.ObserveRankingDuration(shiftID, 0.2)

	reg := rec.Registry()
	assert.Equal(t, 1, reg.GetHistogram(metricCandidateScore).Count(string(scoring.RecommendationOptimal)))
	assert.Equal(t, 2, reg.GetHistogram(metricCandidateSubScore).Count("fairness"))
	assert.Equal(t, 2.0, reg.GetCounter(metricCandidateEvaluation).Value(shiftID.String()))
	assert.Equal(t, 1, reg.GetHistogram(metricRankingDuration).Count())
}

func TestRecorder_ComplianceAndJobs(t *testing.T) {
	rec := NewRecorder(NewRegistry())

	rec.IncComplianceViolation(model.ViolationRestTime, model.SeverityCritical)
	rec.SetFairnessGini("night_shifts", 0.25)
	rec.RecordJobRun("daily", "success", 2*time.Second, 10, 1)
	rec.RecordJobRun("daily", "skipped", 0, 0, 0)

	reg := rec.Registry()
	assert.Equal(t, 1.0, reg.GetCounter(metricViolations).Value(string(model.ViolationRestTime), string(model.SeverityCritical)))
	assert.Equal(t, 0.25, reg.GetGauge(metricFairnessGini).Value("night_shifts"))
	assert.Equal(t, 1.0, reg.GetCounter(metricJobRuns).Value("daily", "success"))
	assert.Equal(t, 1.0, reg.GetCounter(metricJobRuns).Value("daily", "skipped"))
	assert.Equal(t, 10.0, reg.GetCounter(metricJobEmployees).Value("daily", "success"))
	assert.Equal(t, 1, reg.GetHistogram(metricJobDuration).Count("daily"))
}

func TestHandler(t *testing.T) {
	rec := NewRecorder(NewRegistry())
	rec.RecordRequest("GET", "/health", 200, 3*time.Millisecond)
	rec.SetFairnessGini("replacements", 0.1)

	w := httptest.NewRecorder()
	rec.Registry().Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "# TYPE replacement_http_requests_total counter")
	assert.Contains(t, body, `replacement_http_requests_total{method="GET",path="/health",status="200"} 1`)
	assert.Contains(t, body, `replacement_fairness_gini{metric_type="replacements"} 0.1`)

	// 输出顺序稳定
	counterAt := strings.Index(body, "replacement_http_requests_total")
	gaugeAt := strings.Index(body, "replacement_fairness_gini")
	assert.Less(t, counterAt, gaugeAt)
}
