package aemo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchFiveMin(t *testing.T) {
	var gotBody map[string][]string
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("User-Agent")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"5MIN":[
			{"SETTLEMENTDATE":"2026-08-23T14:05:00","REGIONID":"NSW1","RRP":82.9},
			{"SETTLEMENTDATE":"2026-08-23T14:05:00","REGIONID":"VIC1","RRP":74.0,"TOTALDEMAND":null}
		]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, map[string]string{"User-Agent": "gridpull-test"}, 5*time.Second)
	raws, err := c.FetchFiveMin(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if len(raws) != 2 {
		t.Fatalf("got %d records want 2", len(raws))
	}
	if raws[0].RegionID != "NSW1" || raws[0].RRP == nil || *raws[0].RRP != 82.9 {
		t.Fatalf("wrong first record: %+v", raws[0])
	}
	if raws[1].TotalDemand != nil {
		t.Fatalf("null attribute should decode to nil")
	}
	if gotHeader != "gridpull-test" {
		t.Fatalf("configured header not sent, got %q", gotHeader)
	}
	if len(gotBody["timeScale"]) != 1 || gotBody["timeScale"][0] != "5MIN" {
		t.Fatalf("wrong request body: %+v", gotBody)
	}
}

func TestFetchFiveMinMissingSeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"30MIN":[]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil, 5*time.Second)
	if _, err := c.FetchFiveMin(context.Background()); !errors.Is(err, ErrMissingSeries) {
		t.Fatalf("got %v want ErrMissingSeries", err)
	}
}

func TestFetchFiveMinUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, nil, 5*time.Second)
	if _, err := c.FetchFiveMin(context.Background()); err == nil {
		t.Fatalf("expected error for non-2xx response")
	}
}
