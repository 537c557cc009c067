// Package pandals is a client for the pandal listing endpoints.
package pandals

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Path of the pandal collection relative to the API base URL.
const Path = "/pandals"

// DefaultRadius is the search radius in meters the server applies when none is given.
const DefaultRadius = 5000.0

// Requester sends JSON requests to the API.
type Requester interface {
	Do(ctx context.Context, method, path string, in, out any) error
}

// Location is a GeoJSON point; Coordinates are [longitude, latitude].
type Location struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// NewPoint returns a GeoJSON point for the given coordinates.
func NewPoint(lng, lat float64) *Location {
	return &Location{Type: "Point", Coordinates: []float64{lng, lat}}
}

// Pandal is a festival venue.
type Pandal struct {
	ID          string    `json:"id,omitempty"`
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description,omitempty"`
	Area        string    `json:"area,omitempty"`
	Theme       string    `json:"theme,omitempty"`
	Location    *Location `json:"location,omitempty"`
	Images      []string  `json:"images,omitempty"`
	RatingAvg   float64   `json:"rating_avg,omitempty"`
	RatingCount int       `json:"rating_count,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
}

// Near restricts a listing to pandals within Radius meters of a point.
type Near struct {
	Lng float64 `validate:"longitude"`
	Lat float64 `validate:"latitude"`
	// Radius in meters; zero uses the server default.
	Radius float64 `validate:"gte=0"`
}

func (n *Near) query() url.Values {
	q := url.Values{}
	q.Set("lng", strconv.FormatFloat(n.Lng, 'f', -1, 64))
	q.Set("lat", strconv.FormatFloat(n.Lat, 'f', -1, 64))
	if n.Radius > 0 {
		q.Set("radius", strconv.FormatFloat(n.Radius, 'f', -1, 64))
	}
	return q
}

// Client lists and creates pandals.
type Client struct {
	api      Requester
	validate *validator.Validate
}

// New creates a Client.
func New(api Requester) *Client {
	return &Client{api: api, validate: validator.New()}
}

// List returns all pandals, or those near a point if near is non-nil.
func (c *Client) List(ctx context.Context, near *Near) ([]Pandal, error) {
	path := Path
	if near != nil {
		if err := c.validate.Struct(near); err != nil {
			return nil, fmt.Errorf("invalid search area: %w", err)
		}
		path += "?" + near.query().Encode()
	}

	var resp struct {
		Data []Pandal `json:"data"`
	}
	if err := c.api.Do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("listing pandals: %w", err)
	}
	if resp.Data == nil {
		resp.Data = []Pandal{}
	}
	return resp.Data, nil
}

// Create adds a pandal and returns its ID.
func (c *Client) Create(ctx context.Context, p Pandal) (string, error) {
	if err := c.validate.Struct(p); err != nil {
		return "", fmt.Errorf("invalid pandal: %w", err)
	}
	if p.Images == nil {
		p.Images = []string{}
	}

	var resp struct {
		Message string `json:"message"`
		Data    struct {
			InsertedID json.RawMessage `json:"InsertedID"`
		} `json:"data"`
	}
	if err := c.api.Do(ctx, http.MethodPost, Path, p, &resp); err != nil {
		return "", fmt.Errorf("creating pandal: %w", err)
	}
	return insertedID(resp.Data.InsertedID), nil
}

// insertedID accepts the ID as a plain string or as {"$oid": "..."}.
func insertedID(raw json.RawMessage) string {
	var id string
	if json.Unmarshal(raw, &id) == nil {
		return id
	}
	var oid struct {
		OID string `json:"$oid"`
	}
	if json.Unmarshal(raw, &oid) == nil {
		return oid.OID
	}
	return ""
}
