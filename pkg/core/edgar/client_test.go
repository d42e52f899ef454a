package edgar

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(server *httptest.Server) *Client {
	c := NewClient(ClientConfig{
		UserAgent:         "test-agent",
		RequestsPerSecond: 100,
		RetryWait:         time.Millisecond,
	})
	c.submissionsURL = server.URL + "/submissions/CIK%s.json"
	c.archivesURL = server.URL + "/Archives/edgar/data/%s/%s/%s"
	return c
}

func TestFetchSubmissions(t *testing.T) {
	var gotPath, gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(`{"cik":"1045810","name":"NVIDIA CORP","tickers":["NVDA"],
			"filings":{"recent":{"accessionNumber":["acc-1"],"filingDate":["2025-07-18"],
			"form":["4"],"primaryDocument":["doc.xml"]}}}`))
	}))
	defer server.Close()

	subs, err := testClient(server).FetchSubmissions(context.Background(), "1045810")
	if err != nil {
		t.Fatalf("FetchSubmissions failed: %v", err)
	}
	if gotPath != "/submissions/CIK0001045810.json" {
		t.Errorf("CIK should be zero-padded in the URL, got %s", gotPath)
	}
	if gotUA != "test-agent" {
		t.Errorf("User-Agent not sent, got %q", gotUA)
	}
	if subs.Name != "NVIDIA CORP" || len(subs.Filings.Recent.AccessionNumber) != 1 {
		t.Errorf("Unexpected submissions payload: %+v", subs)
	}
}

func TestFetchDocument_StripsFolderPrefix(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`<?xml version="1.0"?><ownershipDocument/>`))
	}))
	defer server.Close()

	ref := FilingReference{
		AccessionNumber: "0001045810-25-000123",
		PrimaryDocument: "xslF345X05/wk-form4.xml",
	}
	doc, err := testClient(server).FetchDocument(context.Background(), "0001045810", ref)
	if err != nil {
		t.Fatalf("FetchDocument failed: %v", err)
	}
	want := "/Archives/edgar/data/1045810/000104581025000123/wk-form4.xml"
	if gotPath != want {
		t.Errorf("Expected request to %s, got %s", want, gotPath)
	}
	if !strings.Contains(doc, "ownershipDocument") {
		t.Errorf("Unexpected document body: %q", doc)
	}
}

func TestFetchDocument_FolderFallbackOnHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "primary.xml"):
			w.Write([]byte(`<html><body>styled viewer rendition</body></html>`))
		case strings.HasSuffix(r.URL.Path, "form4raw.xml"):
			w.Write([]byte(`<?xml version="1.0"?><ownershipDocument/>`))
		default: // folder index
			w.Write([]byte(`<html><body>
				<a href="xslF345X05/primary.xml">rendered</a>
				<a href="form4raw.xml">raw</a>
			</body></html>`))
		}
	}))
	defer server.Close()

	ref := FilingReference{AccessionNumber: "0001-25-0001", PrimaryDocument: "primary.xml"}
	doc, err := testClient(server).FetchDocument(context.Background(), "1045810", ref)
	if err != nil {
		t.Fatalf("FetchDocument failed: %v", err)
	}
	if !strings.Contains(doc, "ownershipDocument") {
		t.Errorf("Expected the raw XML member from the folder index, got %q", doc)
	}
}

func TestGet_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	c := testClient(server)
	body, err := c.get(context.Background(), server.URL, "text/plain")
	if err != nil {
		t.Fatalf("Expected retries to recover, got %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("Unexpected body: %q", body)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls)
	}
}

func TestGet_NotFoundIsPermanent(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := testClient(server)
	_, err := c.get(context.Background(), server.URL, "text/plain")
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("Expected TransportError, got %v", err)
	}
	if terr.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", terr.StatusCode)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("404 must not be retried, got %d attempts", calls)
	}
}
