package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/narrativewatch/triage/internal/domain/model"
	"github.com/narrativewatch/triage/internal/service"
)

func TestNewRouter_Routes(t *testing.T) {
	router := NewRouter(RouterServices{
		Pipeline:  &fakePipeline{res: &service.PipelineResult{Summary: model.NewPipelineSummary()}},
		Retention: &fakeRetention{res: &service.RetentionResult{Summary: &model.RetentionSummary{}}},
	})

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodPost, "/api/pipeline/run", http.StatusOK},
		{http.MethodPost, "/api/retention/run", http.StatusOK},
		{http.MethodGet, "/api/pipeline/run", http.StatusMethodNotAllowed},
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodHead, "/healthz", http.StatusOK},
		{http.MethodGet, "/readyz", http.StatusOK},
		{http.MethodGet, "/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, rec.Code)
			assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
		})
	}
}
