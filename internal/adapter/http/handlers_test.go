package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/arbiterhq/arbiter/internal/config"
	"github.com/arbiterhq/arbiter/internal/domain/decision"
	"github.com/arbiterhq/arbiter/internal/service"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := config.Defaults()
	gate := service.NewGate(cfg.Checkpoint)
	calibration := service.NewCalibrationService(cfg.Calibration, gate)
	checkpoints := service.NewCheckpointService(gate, calibration, nil, nil)

	r := chi.NewRouter()
	MountRoutes(r, &Handlers{
		Checkpoints: checkpoints,
		Calibration: calibration,
		Scorer:      service.NewScorer(),
		Gate:        gate,
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func checkpointBody(confidence float64) map[string]any {
	return map[string]any{
		"type":  "plan",
		"title": "Choose migration plan",
		"options": []map[string]any{
			{"id": "opt-1", "label": "Incremental"},
			{"id": "opt-2", "label": "Big bang"},
		},
		"recommendation_id": "opt-1",
		"confidence":        confidence,
	}
}

func TestCreateCheckpointAutoCompletes(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/checkpoints", checkpointBody(0.95))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	body := decodeBody[struct {
		Checkpoint    decision.Checkpoint `json:"checkpoint"`
		Chosen        decision.Option     `json:"chosen"`
		AutoCompleted bool                `json:"auto_completed"`
	}](t, resp)

	if !body.AutoCompleted {
		t.Error("confidence 0.95 should auto-complete")
	}
	if body.Chosen.ID != "opt-1" {
		t.Errorf("chosen = %s, want the recommendation", body.Chosen.ID)
	}
	if body.Checkpoint.Status != decision.StatusResolved {
		t.Errorf("status = %s, want resolved", body.Checkpoint.Status)
	}
}

func TestCreateCheckpointValidation(t *testing.T) {
	srv := newTestServer(t)

	body := checkpointBody(0.5)
	body["options"] = []map[string]any{{"id": "only", "label": "Only"}}
	body["recommendation_id"] = "only"

	resp := postJSON(t, srv.URL+"/api/v1/checkpoints", body)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for a single option", resp.StatusCode)
	}
}

// TestCheckpointReviewFlow walks the full review path: a low-confidence
// create suspends, the operator finds it via the list, overrides the
// recommendation, the create returns the override, and the outcome shows
// up in the calibration history as a rejection.
func TestCheckpointReviewFlow(t *testing.T) {
	srv := newTestServer(t)

	type createResult struct {
		Status        int
		Checkpoint    decision.Checkpoint `json:"checkpoint"`
		Chosen        decision.Option     `json:"chosen"`
		AutoCompleted bool                `json:"auto_completed"`
	}
	done := make(chan createResult, 1)
	go func() {
		data, _ := json.Marshal(checkpointBody(0.6))
		resp, err := http.Post(srv.URL+"/api/v1/checkpoints", "application/json", bytes.NewReader(data))
		if err != nil {
			t.Error(err)
			return
		}
		defer resp.Body.Close()
		res := createResult{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
			t.Errorf("decode create response: %v", err)
			return
		}
		done <- res
	}()

	// Poll the waiting list until the checkpoint appears.
	var id string
	deadline := time.Now().Add(2 * time.Second)
	for id == "" {
		if time.Now().After(deadline) {
			t.Fatal("checkpoint never appeared in the waiting list")
		}
		resp, err := http.Get(srv.URL + "/api/v1/checkpoints?type=plan")
		if err != nil {
			t.Fatal(err)
		}
		listing := decodeBody[struct {
			Checkpoints []decision.Checkpoint `json:"checkpoints"`
		}](t, resp)
		if len(listing.Checkpoints) > 0 {
			id = listing.Checkpoints[0].ID
		} else {
			time.Sleep(10 * time.Millisecond)
		}
	}

	resp := postJSON(t, srv.URL+"/api/v1/checkpoints/"+id+"/resolve", map[string]string{
		"chosen_id": "opt-2",
		"reasoning": "incremental is safer here",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("resolve status = %d, want 200", resp.StatusCode)
	}
	resolved := decodeBody[decision.Checkpoint](t, resp)
	if resolved.Status != decision.StatusResolved || resolved.ChosenID != "opt-2" {
		t.Errorf("resolved checkpoint = %+v", resolved)
	}

	select {
	case res := <-done:
		if res.Status != http.StatusOK {
			t.Fatalf("create status = %d, want 200", res.Status)
		}
		if res.AutoCompleted {
			t.Error("review path must not report auto-completion")
		}
		if res.Chosen.ID != "opt-2" {
			t.Errorf("agent received %s, want the override opt-2", res.Chosen.ID)
		}
		if res.Checkpoint.Reasoning != "incremental is safer here" {
			t.Errorf("reasoning not carried back: %+v", res.Checkpoint)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("suspended create never returned")
	}

	// A second resolve must conflict.
	resp = postJSON(t, srv.URL+"/api/v1/checkpoints/"+id+"/resolve", map[string]string{"chosen_id": "opt-1"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("double resolve status = %d, want 409", resp.StatusCode)
	}

	// The override is a rejection in the stats.
	resp, err := http.Get(srv.URL + "/api/v1/checkpoints/stats")
	if err != nil {
		t.Fatal(err)
	}
	stats := decodeBody[decision.Stats](t, resp)
	if stats.Resolved != 1 || stats.RecommendationAcceptanceRate != 0 {
		t.Errorf("stats = %+v, want 1 resolved with 0 acceptance", stats)
	}
}

func TestResolveUnknownCheckpoint(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/checkpoints/nope/resolve", map[string]string{"chosen_id": "opt-1"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestResolveInvalidOption(t *testing.T) {
	srv := newTestServer(t)

	go createInBackground(srv, checkpointBody(0.5))

	id := waitForCheckpoint(t, srv)
	resp := postJSON(t, srv.URL+"/api/v1/checkpoints/"+id+"/resolve", map[string]string{"chosen_id": "opt-9"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}

	// Clean completion so the suspended create can finish.
	resp = postJSON(t, srv.URL+"/api/v1/checkpoints/"+id+"/cancel", nil)
	resp.Body.Close()
}

func TestCancelCheckpoint(t *testing.T) {
	srv := newTestServer(t)

	go createInBackground(srv, checkpointBody(0.5))

	id := waitForCheckpoint(t, srv)
	resp := postJSON(t, srv.URL+"/api/v1/checkpoints/"+id+"/cancel", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel status = %d, want 200", resp.StatusCode)
	}
	cp := decodeBody[decision.Checkpoint](t, resp)
	if cp.Status != decision.StatusCancelled || cp.ChosenID != "opt-1" {
		t.Errorf("cancelled checkpoint = %+v, want recommendation fallback", cp)
	}
}

func TestScoreConfidence(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/score", map[string]any{
		"type": "execution",
		"factors": map[string]float64{
			"option_clarity":       0.9,
			"historical_success":   0.8,
			"risk_alignment":       0.3,
			"effort_certainty":     0.6,
			"context_completeness": 0.7,
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	body := decodeBody[struct {
		Score     decision.Score `json:"score"`
		Threshold float64        `json:"threshold"`
		Triggers  bool           `json:"triggers"`
	}](t, resp)

	if body.Threshold != 0.9 {
		t.Errorf("threshold = %v, want the execution override 0.9", body.Threshold)
	}
	if !body.Triggers {
		t.Error("a weak risk_alignment on an execution decision should trigger review")
	}
	if len(body.Score.Weaknesses) == 0 {
		t.Error("risk_alignment 0.3 should be labelled a weakness")
	}
}

func TestScoreConfidenceUnknownType(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/score", map[string]any{"type": "vibes"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCalibrationEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/calibration/stats")
	if err != nil {
		t.Fatal(err)
	}
	report := decodeBody[decision.CalibrationReport](t, resp)
	if report.Sufficient {
		t.Error("empty history must report insufficient data")
	}

	resp, err = http.Get(srv.URL + "/api/v1/calibration/suggestion?type=plan")
	if err != nil {
		t.Fatal(err)
	}
	adj := decodeBody[decision.Adjustment](t, resp)
	if adj.Sufficient {
		t.Error("empty history must not suggest an adjustment")
	}

	resp, err = http.Get(srv.URL + "/api/v1/calibration/suggestion")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("suggestion without type: status = %d, want 400", resp.StatusCode)
	}
}

func TestSweepEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/checkpoints/sweep", map[string]int{"max_age_ms": -1})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("negative age: status = %d, want 400", resp.StatusCode)
	}

	resp = postJSON(t, srv.URL+"/api/v1/checkpoints/sweep", map[string]int{"max_age_ms": 60000})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeBody[map[string]int](t, resp)
	if body["evicted"] != 0 {
		t.Errorf("evicted = %d, want 0 on an empty registry", body["evicted"])
	}
}

func TestListCheckpointsUnknownType(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/checkpoints?type=vibes")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

// createInBackground issues a suspending create without test helpers;
// goroutines must not call t.Fatal.
func createInBackground(srv *httptest.Server, body map[string]any) {
	data, _ := json.Marshal(body)
	resp, err := http.Post(srv.URL+"/api/v1/checkpoints", "application/json", bytes.NewReader(data))
	if err == nil {
		resp.Body.Close()
	}
}

// waitForCheckpoint polls until exactly one waiting checkpoint exists and
// returns its id.
func waitForCheckpoint(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(srv.URL + "/api/v1/checkpoints")
		if err != nil {
			t.Fatal(err)
		}
		listing := decodeBody[struct {
			Checkpoints []decision.Checkpoint `json:"checkpoints"`
		}](t, resp)
		if len(listing.Checkpoints) > 0 {
			return listing.Checkpoints[0].ID
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("checkpoint never appeared in the waiting list")
	return ""
}
