package airtable

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cosmos-nexus/nexus/internal/domain/record"
	"github.com/cosmos-nexus/nexus/internal/source"
)

func newTestSource(t *testing.T, handler http.HandlerFunc) *Source {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s, err := New(Config{
		APIKey:  "key-test",
		BaseID:  "appBASE",
		Table:   "Users",
		BaseURL: srv.URL,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestNew_Validation(t *testing.T) {
	cases := []Config{
		{BaseID: "app", Table: "t"},  // no key
		{APIKey: "k", Table: "t"},    // no base
		{APIKey: "k", BaseID: "app"}, // no table
	}
	for i, cfg := range cases {
		if _, err := New(cfg); err == nil {
			t.Errorf("case %d: expected config error", i)
		}
	}
}

func TestFetch_SinglePage(t *testing.T) {
	var gotAuth, gotPath string
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		fmt.Fprint(w, `{
			"records": [
				{"id": "rec1", "fields": {
					"Name": "Ada",
					"Age": 36,
					"Active": true,
					"Tags": ["engineer", "math"],
					"Avatar": [{"url": "https://x/y.png"}]
				}},
				{"id": "rec2", "fields": {"Name": "Grace"}}
			]
		}`)
	})

	records, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if gotAuth != "Bearer key-test" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotPath != "/appBASE/Users" {
		t.Errorf("path = %q", gotPath)
	}

	r := records[0]
	if r.ID() != "rec1" {
		t.Errorf("ID = %q", r.ID())
	}
	wantKinds := map[string]record.Kind{
		"Name":   record.String,
		"Age":    record.Number,
		"Active": record.Bool,
		"Tags":   record.StringList,
		"Avatar": record.Unsupported,
	}
	for field, kind := range wantKinds {
		v, ok := r.Field(field)
		if !ok {
			t.Errorf("field %q missing", field)
			continue
		}
		if v.Kind() != kind {
			t.Errorf("field %q kind = %v, want %v", field, v.Kind(), kind)
		}
	}
}

func TestFetch_Pagination(t *testing.T) {
	var offsets []string
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		offsets = append(offsets, r.URL.Query().Get("offset"))
		if len(offsets) == 1 {
			fmt.Fprint(w, `{"records": [{"id": "rec1", "fields": {}}], "offset": "itr/next"}`)
			return
		}
		fmt.Fprint(w, `{"records": [{"id": "rec2", "fields": {}}]}`)
	})

	records, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].ID() != "rec1" || records[1].ID() != "rec2" {
		t.Errorf("page order lost: %q, %q", records[0].ID(), records[1].ID())
	}
	if len(offsets) != 2 || offsets[0] != "" || offsets[1] != "itr/next" {
		t.Errorf("offsets = %v", offsets)
	}
}

func TestFetch_PartialFailure(t *testing.T) {
	calls := 0
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			fmt.Fprint(w, `{"records": [{"id": "rec1", "fields": {}}], "offset": "itr/next"}`)
			return
		}
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	records, err := src.Fetch(context.Background())
	if err == nil {
		t.Fatal("expected partial error")
	}

	var partial *source.PartialError
	if !errors.As(err, &partial) {
		t.Fatalf("expected *source.PartialError, got %T: %v", err, err)
	}
	if partial.Fetched != 1 {
		t.Errorf("Fetched = %d, want 1", partial.Fetched)
	}
	if len(records) != 1 || records[0].ID() != "rec1" {
		t.Errorf("expected the fetched subset alongside the error, got %v", records)
	}
}

func TestFetch_FirstPageError(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"NOT_AUTHORIZED"}`, http.StatusUnauthorized)
	})

	records, err := src.Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	var partial *source.PartialError
	if errors.As(err, &partial) {
		t.Error("a total failure must not be partial")
	}
	if records != nil {
		t.Errorf("expected no records, got %v", records)
	}
}

func TestFetch_SkipsRecordsWithoutID(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"records": [{"id": "", "fields": {}}, {"id": "rec2", "fields": {}}]}`)
	})

	records, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(records) != 1 || records[0].ID() != "rec2" {
		t.Errorf("records = %v, want only rec2", records)
	}
}

func TestFetch_ViewParameter(t *testing.T) {
	var gotView string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotView = r.URL.Query().Get("view")
		fmt.Fprint(w, `{"records": []}`)
	}))
	t.Cleanup(srv.Close)

	s, err := New(Config{APIKey: "k", BaseID: "app", Table: "t", View: "Grid view", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotView != "Grid view" {
		t.Errorf("view = %q, want %q", gotView, "Grid view")
	}
}
