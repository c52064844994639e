package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/storytime-app/storytime/internal/storage"
	"github.com/storytime-app/storytime/pkg/story"
)

func TestStoriesHandler_List(t *testing.T) {
	mockStorage := storage.NewMockStorage()
	mockStorage.Graphs["crossroads.json"] = crossroadsGraph()
	handler := NewStoriesHandler(testLogger(), mockStorage)

	req := httptest.NewRequest(http.MethodGet, "/v1/stories", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if rr.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %s", rr.Header().Get("Content-Type"))
	}

	var graphs map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&graphs); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if graphs["Crossroads"] != "crossroads.json" {
		t.Errorf("Expected 'Crossroads' -> 'crossroads.json', got %v", graphs)
	}
}

func TestStoriesHandler_Get(t *testing.T) {
	mockStorage := storage.NewMockStorage()
	mockStorage.Graphs["crossroads.json"] = crossroadsGraph()
	handler := NewStoriesHandler(testLogger(), mockStorage)

	tests := []struct {
		name           string
		path           string
		expectedStatus int
	}{
		{"existing story", "/v1/stories/crossroads.json", http.StatusOK},
		{"missing story", "/v1/stories/missing.json", http.StatusNotFound},
		{"path traversal", "/v1/stories/..%2fsecrets.json", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d. Response body: %s", tt.expectedStatus, rr.Code, rr.Body.String())
			}
			if tt.expectedStatus != http.StatusOK {
				return
			}

			var g story.Graph
			if err := json.NewDecoder(rr.Body).Decode(&g); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if g.Name != "Crossroads" || len(g.Scenarios) != 2 {
				t.Errorf("Unexpected graph: %+v", g)
			}
		})
	}
}

func TestStoriesHandler_MethodNotAllowed(t *testing.T) {
	handler := NewStoriesHandler(testLogger(), storage.NewMockStorage())

	req := httptest.NewRequest(http.MethodPost, "/v1/stories", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", rr.Code)
	}
}
