package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"LicenseOracle-TON/internal/agents"
	"LicenseOracle-TON/internal/license"
	"LicenseOracle-TON/internal/ocr"
	"LicenseOracle-TON/internal/verify"
)

type stubRecognizer struct{ result *ocr.Result }

func (s *stubRecognizer) Process(ctx context.Context, image []byte) (*ocr.Result, error) {
	return s.result, nil
}

type stubRecorder struct{ reference string }

func (s *stubRecorder) Record(ctx context.Context, record license.Record) string {
	return s.reference
}

type stubAsker struct{}

func (stubAsker) Ask(ctx context.Context, agentID int64, question string) (string, bool, error) {
	return "", false, nil
}

type stubLister struct{}

func (stubLister) ListAgents(ctx context.Context) ([]agents.Agent, error) {
	return []agents.Agent{{ID: 4, Name: "Research Assistant"}}, nil
}

func newTestServer(t *testing.T) (*Server, *verify.Pipeline) {
	t.Helper()
	pipeline := verify.NewPipeline(
		&stubRecognizer{result: &ocr.Result{Text: "DL A1234567", DocumentNumber: "A1234567"}},
		&stubRecorder{reference: "ref-1"},
		stubAsker{},
		agents.NewDirectory(stubLister{}, 4),
	)
	return NewServer(":0", pipeline), pipeline
}

func seedRecord(t *testing.T, pipeline *verify.Pipeline) {
	t.Helper()
	wallet := "EQDvE6RYrv2gKTi7dfytJ0_vNfCVh_c5pa8Dl3v4qCzPGAAc"
	if err := pipeline.RegisterWallet("user-1", wallet); err != nil {
		t.Fatalf("register wallet: %v", err)
	}
	if _, err := pipeline.HandlePhoto(context.Background(), "user-1", []byte("img")); err != nil {
		t.Fatalf("handle photo: %v", err)
	}
}

func TestHandleHealth(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	server.handleHealth(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status code: got %d want %d", rec.Code, http.StatusOK)
	}
	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got["status"] != "ok" {
		t.Fatalf("unexpected health payload: %v", got)
	}
}

func TestHandleLicenseByID(t *testing.T) {
	server, pipeline := newTestServer(t)
	seedRecord(t, pipeline)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/licenses/user-1", nil)
	rec := httptest.NewRecorder()
	server.handleLicenseByID(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status code: got %d want %d", rec.Code, http.StatusOK)
	}
	var got license.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.DocumentNumber != "A1234567" || got.LedgerReference != "ref-1" {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestHandleLicenseByIDErrors(t *testing.T) {
	server, _ := newTestServer(t)

	t.Run("invalid method", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/licenses/user-1", nil)
		rec := httptest.NewRecorder()
		server.handleLicenseByID(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
		}
	})

	t.Run("missing id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/licenses/", nil)
		rec := httptest.NewRecorder()
		server.handleLicenseByID(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})

	t.Run("not found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/licenses/ghost", nil)
		rec := httptest.NewRecorder()
		server.handleLicenseByID(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestHandleLicensesListsAll(t *testing.T) {
	server, pipeline := newTestServer(t)
	seedRecord(t, pipeline)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/licenses", nil)
	rec := httptest.NewRecorder()
	server.handleLicenses(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status code: got %d want %d", rec.Code, http.StatusOK)
	}
	var got []license.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got) != 1 || got[0].RequesterID != "user-1" {
		t.Fatalf("unexpected listing: %+v", got)
	}
}

func TestHandleAgents(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/agents", nil)
	rec := httptest.NewRecorder()
	server.handleAgents(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status code: got %d want %d", rec.Code, http.StatusOK)
	}
	var got struct {
		Current int64          `json:"current"`
		Agents  []agents.Agent `json:"agents"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Current != 4 || len(got.Agents) != 1 || got.Agents[0].Name != "Research Assistant" {
		t.Fatalf("unexpected agents payload: %+v", got)
	}
}
