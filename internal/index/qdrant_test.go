package index

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func testClient(srv *httptest.Server) *Client {
	return &Client{
		baseURL:    srv.URL,
		collection: "identities",
		http:       srv.Client(),
	}
}

func TestSearchDecodesHits(t *testing.T) {
	personID := uuid.New()
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/identities/points/search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Error(err)
		}
		fmt.Fprintf(w, `{"result":[{"id":%q,"score":0.91,"payload":{"name":"alice"}}]}`, personID)
	}))
	defer srv.Close()

	hits, err := testClient(srv).Search(context.Background(), []float32{1, 0}, 5, 0.78)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
	if hits[0].ID != personID || hits[0].Score != 0.91 || hits[0].Payload["name"] != "alice" {
		t.Errorf("hit = %+v", hits[0])
	}
	if gotBody["score_threshold"] != 0.78 {
		t.Errorf("score_threshold = %v, want 0.78", gotBody["score_threshold"])
	}
	if gotBody["with_payload"] != true {
		t.Error("with_payload not requested")
	}
}

func TestSearchRejectsMalformedHitID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":[{"id":"not-a-uuid","score":0.9}]}`)
	}))
	defer srv.Close()

	if _, err := testClient(srv).Search(context.Background(), []float32{1}, 5, 0); err == nil {
		t.Fatal("expected error for malformed hit id")
	}
}

func TestEnsureCollectionCreatesWhenMissing(t *testing.T) {
	var created bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/collections/identities/exists":
			fmt.Fprint(w, `{"result":{"exists":false}}`)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/identities":
			var body map[string]map[string]interface{}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Error(err)
			}
			if body["vectors"]["size"] != float64(512) || body["vectors"]["distance"] != "Cosine" {
				t.Errorf("create body = %v", body)
			}
			created = true
			fmt.Fprint(w, `{"result":true}`)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	if err := testClient(srv).EnsureCollection(context.Background(), 512, false); err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Error("collection was not created")
	}
}

func TestEnsureCollectionAcceptsMatchingSize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/collections/identities/exists":
			fmt.Fprint(w, `{"result":{"exists":true}}`)
		case "/collections/identities":
			if r.Method != http.MethodGet {
				t.Errorf("unexpected %s on collection info", r.Method)
			}
			fmt.Fprint(w, `{"result":{"config":{"params":{"vectors":{"size":512,"distance":"Cosine"}}}}}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	if err := testClient(srv).EnsureCollection(context.Background(), 512, false); err != nil {
		t.Fatal(err)
	}
}

func TestEnsureCollectionSizeMismatch(t *testing.T) {
	var deleted, recreated bool
	handler := func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/collections/identities/exists":
			fmt.Fprint(w, `{"result":{"exists":true}}`)
		case r.Method == http.MethodGet && r.URL.Path == "/collections/identities":
			fmt.Fprint(w, `{"result":{"config":{"params":{"vectors":{"size":128,"distance":"Cosine"}}}}}`)
		case r.Method == http.MethodDelete && r.URL.Path == "/collections/identities":
			deleted = true
			fmt.Fprint(w, `{"result":true}`)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/identities":
			recreated = true
			fmt.Fprint(w, `{"result":true}`)
		}
	}

	srv := httptest.NewServer(http.HandlerFunc(handler))
	defer srv.Close()

	// without recreate the mismatch is fatal
	if err := testClient(srv).EnsureCollection(context.Background(), 512, false); err == nil {
		t.Fatal("expected size mismatch error")
	}

	// with recreate the collection is dropped and rebuilt
	if err := testClient(srv).EnsureCollection(context.Background(), 512, true); err != nil {
		t.Fatal(err)
	}
	if !deleted || !recreated {
		t.Errorf("deleted=%v recreated=%v, want both", deleted, recreated)
	}
}

func TestCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/identities/points/count" {
			t.Errorf("path = %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"result":{"count":42}}`)
	}))
	defer srv.Close()

	count, err := testClient(srv).Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if count != 42 {
		t.Errorf("count = %d, want 42", count)
	}
}

func TestErrorStatusIsSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status":{"error":"wrong input"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	if err := testClient(srv).Ping(context.Background()); err == nil {
		t.Fatal("expected error for 400 response")
	}
}
