package dispatch

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandlerDispatch(t *testing.T) {
	r := newTestRouter(newTestService(newFakeStore(), nil, nil))

	w := doJSON(t, r, http.MethodPost, "/api/v1/dispatch", DispatchRequest{
		Kind:       KindEmail,
		Content:    "Hi",
		Recipients: []string{"a@x.com", "b@x.com"},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var envelope struct {
		Success bool             `json:"success"`
		Data    DispatchResponse `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !envelope.Success {
		t.Fatal("expected success envelope")
	}
	if len(envelope.Data.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(envelope.Data.Results))
	}
}

func TestHandlerDispatchQueuedReturnsAccepted(t *testing.T) {
	r := newTestRouter(newTestService(newFakeStore(), &fakeEnqueuer{}, nil))

	w := doJSON(t, r, http.MethodPost, "/api/v1/dispatch", DispatchRequest{
		Kind:       KindPush,
		Content:    "Update",
		Recipients: []string{"tok1"},
		Mode:       ModeQueued,
	})

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", w.Code)
	}
}

func TestHandlerDispatchBadBody(t *testing.T) {
	r := newTestRouter(newTestService(newFakeStore(), nil, nil))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/dispatch", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestHandlerDispatchUnknownKindRejectedByBinding(t *testing.T) {
	r := newTestRouter(newTestService(newFakeStore(), nil, nil))

	w := doJSON(t, r, http.MethodPost, "/api/v1/dispatch", map[string]any{
		"kind":       "fax",
		"content":    "x",
		"recipients": []string{"a"},
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestHandlerGetDeliveryNotFound(t *testing.T) {
	r := newTestRouter(newTestService(newFakeStore(), nil, nil))

	w := doJSON(t, r, http.MethodGet, "/api/v1/deliveries/missing", nil)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestHandlerListChannels(t *testing.T) {
	r := newTestRouter(newTestService(newFakeStore(), nil, nil))

	w := doJSON(t, r, http.MethodGet, "/api/v1/channels", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var envelope struct {
		Data struct {
			Kinds []string `json:"kinds"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(envelope.Data.Kinds) != 3 {
		t.Fatalf("kinds = %v, want 3 entries", envelope.Data.Kinds)
	}
}

func TestHandlerMetrics(t *testing.T) {
	svc := newTestService(newFakeStore(), nil, nil)
	r := newTestRouter(svc)

	doJSON(t, r, http.MethodPost, "/api/v1/dispatch", DispatchRequest{
		Kind:       KindEmail,
		Content:    "Hi",
		Recipients: []string{"a@x.com"},
	})

	w := doJSON(t, r, http.MethodGet, "/api/v1/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var envelope struct {
		Data MetricsSnapshot `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.Total != 1 || envelope.Data.Success != 1 {
		t.Fatalf("metrics = %+v", envelope.Data)
	}
}
