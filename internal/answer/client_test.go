package answer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestAsk_FirstQuestionSendsMultipart(t *testing.T) {
	var gotQuestion, gotFilename string
	var gotData []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			t.Errorf("content type = %q, want multipart", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		gotQuestion = r.FormValue("question")
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer f.Close()
		gotFilename = hdr.Filename
		gotData, _ = io.ReadAll(f)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Response{
			Answer: "The term is five years.",
			Citations: []Citation{
				{Page: 3, Quote: "a term of five (5) years", Title: "Lease"},
			},
			CaseID: "case-123",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	resp, err := c.Ask(context.Background(), AskRequest{
		Question: "How long is the term?",
		FileName: "lease.pdf",
		FileData: []byte("%PDF-fake"),
	})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if gotQuestion != "How long is the term?" {
		t.Errorf("backend saw question %q", gotQuestion)
	}
	if gotFilename != "lease.pdf" {
		t.Errorf("backend saw filename %q", gotFilename)
	}
	if string(gotData) != "%PDF-fake" {
		t.Errorf("backend saw file data %q", gotData)
	}
	if resp.Answer != "The term is five years." {
		t.Errorf("answer = %q", resp.Answer)
	}
	if resp.CaseID != "case-123" {
		t.Errorf("case id = %q", resp.CaseID)
	}
	if len(resp.Citations) != 1 || resp.Citations[0].Page != 3 {
		t.Errorf("citations = %+v", resp.Citations)
	}
}

func TestAsk_FollowUpSendsCaseID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q, want application/json", ct)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["case_id"] != "case-123" {
			t.Errorf("case_id = %q", body["case_id"])
		}
		if body["question"] != "And the rent?" {
			t.Errorf("question = %q", body["question"])
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Response{Answer: "Rent is monthly.", CaseID: "case-123"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	resp, err := c.Ask(context.Background(), AskRequest{Question: "And the rent?", CaseID: "case-123"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if resp.Answer != "Rent is monthly." {
		t.Errorf("answer = %q", resp.Answer)
	}
}

func TestAsk_ServerFailuresAreRetryable(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "overloaded", status)
		}))
		c := NewClient(srv.URL, "")
		_, err := c.Ask(context.Background(), AskRequest{Question: "q?", CaseID: "c"})
		srv.Close()

		if err == nil {
			t.Fatalf("status %d: expected error", status)
		}
		if !IsRetryable(err) {
			t.Errorf("status %d: error %v should be retryable", status, err)
		}
	}
}

func TestAsk_ClientErrorNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad question", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.Ask(context.Background(), AskRequest{Question: "q?", CaseID: "c"})
	if err == nil {
		t.Fatal("expected error")
	}
	if IsRetryable(err) {
		t.Errorf("400 error %v should not be retryable", err)
	}
	if !strings.Contains(err.Error(), "400") {
		t.Errorf("error %v should mention the status", err)
	}
}

func TestAskWithRetry_RecoversAfterTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Response{Answer: "eventually"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	c.backoff = func(int) time.Duration { return 0 }

	resp, err := c.AskWithRetry(context.Background(), AskRequest{Question: "q?", CaseID: "c"})
	if err != nil {
		t.Fatalf("AskWithRetry: %v", err)
	}
	if resp.Answer != "eventually" {
		t.Errorf("answer = %q", resp.Answer)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("backend called %d times, want 3", got)
	}
}

func TestAskWithRetry_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	c.backoff = func(int) time.Duration { return 0 }

	_, err := c.AskWithRetry(context.Background(), AskRequest{Question: "q?", CaseID: "c"})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if !IsRetryable(err) {
		t.Errorf("final error %v should still be the retryable kind", err)
	}
	if got := calls.Load(); got != MaxRetries {
		t.Errorf("backend called %d times, want %d", got, MaxRetries)
	}
}

func TestAsk_InputValidation(t *testing.T) {
	c := NewClient("http://localhost:0", "")

	if _, err := c.Ask(context.Background(), AskRequest{Question: "   ", CaseID: "c"}); err == nil {
		t.Error("blank question accepted")
	}
	if _, err := c.Ask(context.Background(), AskRequest{Question: "q?"}); err == nil {
		t.Error("first question without file data accepted")
	}
}

func TestAsk_RecordsLatency(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Response{Answer: "ok"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	if _, err := c.Ask(context.Background(), AskRequest{Question: "q?", CaseID: "c"}); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if snap := c.Stats.Snapshot(); snap.Count != 1 {
		t.Errorf("stats count = %d, want 1", snap.Count)
	}
}
