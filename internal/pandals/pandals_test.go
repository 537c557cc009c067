package pandals

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
)

// recordingAPI records the last request and replies with a canned body.
type recordingAPI struct {
	method string
	path   string
	in     any
	reply  string
	err    error
}

func (r *recordingAPI) Do(_ context.Context, method, path string, in, out any) error {
	r.method, r.path, r.in = method, path, in
	if r.err != nil {
		return r.err
	}
	if out == nil || r.reply == "" {
		return nil
	}
	return json.Unmarshal([]byte(r.reply), out)
}

func TestList(t *testing.T) {
	api := &recordingAPI{reply: `{"data":[{"id":"1","name":"Bagbazar Sarbojanin","area":"North Kolkata","location":{"type":"Point","coordinates":[88.36,22.6]}}]}`}
	c := New(api)

	got, err := c.List(context.Background(), nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if api.method != http.MethodGet || api.path != Path {
		t.Errorf("request = %s %s", api.method, api.path)
	}
	if len(got) != 1 || got[0].Name != "Bagbazar Sarbojanin" || got[0].Location.Coordinates[0] != 88.36 {
		t.Errorf("pandals = %+v", got)
	}
}

func TestListNullData(t *testing.T) {
	c := New(&recordingAPI{reply: `{"data":null}`})
	got, err := c.List(context.Background(), nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestListNear(t *testing.T) {
	tests := []struct {
		name      string
		near      Near
		wantQuery url.Values
		wantErr   bool
	}{
		{
			name:      "default radius",
			near:      Near{Lng: 88.3639, Lat: 22.5726},
			wantQuery: url.Values{"lng": {"88.3639"}, "lat": {"22.5726"}},
		},
		{
			name:      "explicit radius",
			near:      Near{Lng: 88.3639, Lat: 22.5726, Radius: 1500},
			wantQuery: url.Values{"lng": {"88.3639"}, "lat": {"22.5726"}, "radius": {"1500"}},
		},
		{name: "latitude out of range", near: Near{Lng: 88, Lat: 95}, wantErr: true},
		{name: "longitude out of range", near: Near{Lng: 200, Lat: 22}, wantErr: true},
		{name: "negative radius", near: Near{Lng: 88, Lat: 22, Radius: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &recordingAPI{reply: `{"data":[]}`}
			_, err := New(api).List(context.Background(), &tt.near)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if api.path != "" {
					t.Error("invalid search must not reach the API")
				}
				return
			}
			if err != nil {
				t.Fatalf("List: %v", err)
			}

			path, rawQuery, _ := strings.Cut(api.path, "?")
			if path != Path {
				t.Errorf("path = %q", path)
			}
			q, _ := url.ParseQuery(rawQuery)
			if q.Encode() != tt.wantQuery.Encode() {
				t.Errorf("query = %q, want %q", q.Encode(), tt.wantQuery.Encode())
			}
		})
	}
}

func TestCreate(t *testing.T) {
	tests := []struct {
		name   string
		reply  string
		wantID string
	}{
		{"string id", `{"message":"Pandal inserted","data":{"InsertedID":"665f1c"}}`, "665f1c"},
		{"extended json id", `{"message":"Pandal inserted","data":{"InsertedID":{"$oid":"665f1d"}}}`, "665f1d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &recordingAPI{reply: tt.reply}
			id, err := New(api).Create(context.Background(), Pandal{Name: "College Square", Location: NewPoint(88.36, 22.57)})
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if id != tt.wantID {
				t.Errorf("id = %q, want %q", id, tt.wantID)
			}
			if api.method != http.MethodPost || api.path != Path {
				t.Errorf("request = %s %s", api.method, api.path)
			}
			sent, ok := api.in.(Pandal)
			if !ok || sent.Images == nil {
				t.Errorf("expected images defaulted to empty list, sent %+v", api.in)
			}
		})
	}
}

func TestCreateValidation(t *testing.T) {
	api := &recordingAPI{}
	if _, err := New(api).Create(context.Background(), Pandal{Area: "South Kolkata"}); err == nil {
		t.Fatal("expected error for missing name")
	}
	if api.method != "" {
		t.Error("invalid pandal must not reach the API")
	}
}

func TestAPIErrorsPropagate(t *testing.T) {
	apiErr := errors.New("POST /pandals: 401 Unauthorized")
	_, err := New(&recordingAPI{err: apiErr}).Create(context.Background(), Pandal{Name: "x"})
	if !errors.Is(err, apiErr) {
		t.Fatalf("expected wrapped API error, got %v", err)
	}
}
