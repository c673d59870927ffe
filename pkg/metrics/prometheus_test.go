package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerExposesGeneratorMetrics(t *testing.T) {
	ImpressionsEmitted.WithLabelValues("camp-metrics-test").Inc()
	CampaignBoost.WithLabelValues("camp-metrics-test").Set(4)
	ProduceErrors.WithLabelValues("topic-a").Add(2)
	ProduceErrors.WithLabelValues("topic-b").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	body, _ := io.ReadAll(rec.Body)
	for _, name := range []string{
		`adsim_impressions_emitted_total{campaign_id="camp-metrics-test"} 1`,
		`adsim_campaign_boost{campaign_id="camp-metrics-test"} 4`,
		`adsim_produce_errors_total{topic="topic-a"} 2`,
		`adsim_produce_errors_total{topic="topic-b"} 1`,
	} {
		if !strings.Contains(string(body), name) {
			t.Errorf("metrics output missing %q", name)
		}
	}
}
