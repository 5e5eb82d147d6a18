package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestHandlerExposesRecordedSeries(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ObserveExtraction("binary_document", OutcomeSuccess, 120*time.Millisecond)
	ObservePDFPages(3)

	r := gin.New()
	r.Use(Middleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", Handler())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	body := resp.Body.String()
	for _, want := range []string{
		`docharvest_extractions_total{outcome="success",source="binary_document"}`,
		"docharvest_extraction_duration_seconds_bucket",
		"docharvest_pdf_pages_count",
		`docharvest_http_requests_total{method="GET",route="/ping",status="204"}`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}
