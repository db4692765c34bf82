package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// PointGeometry is a GeoJSON point. Coordinates are ordered lon, lat as the
// format requires.
type PointGeometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// NewPoint builds a point geometry from a lat/lon pair.
func NewPoint(lat, lon float64) PointGeometry {
	return PointGeometry{Type: "Point", Coordinates: []float64{lon, lat}}
}

// Feature is one GeoJSON feature with flat string-keyed properties.
type Feature struct {
	Type       string         `json:"type"`
	ID         string         `json:"id"`
	Geometry   PointGeometry  `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// FeatureCollection is the on-disk document of one layer.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Name     string    `json:"name"`
	Features []Feature `json:"features"`
}

// LayerSchema describes a layer to ensure: its display name and the
// attribute fields its features carry. An empty field list accepts any
// attributes.
type LayerSchema struct {
	Name   string
	Fields []string
}

// LayerHandle identifies an ensured layer for later appends.
type LayerHandle struct {
	path   string
	name   string
	fields []string
}

func (h *LayerHandle) Name() string { return h.name }

// LayerStore persists clicked-point results as map layer features.
type LayerStore interface {
	// EnsureLayer creates the layer if needed and returns a handle to it.
	// Ensuring an existing layer is a no-op on its contents.
	EnsureLayer(schema LayerSchema) (*LayerHandle, error)
	// AppendFeature adds one feature to the layer. Attributes outside the
	// layer's schema are dropped.
	AppendFeature(handle *LayerHandle, geometry PointGeometry, attrs map[string]any) error
}

// GeoJSONLayerStore keeps each layer as one GeoJSON file in a directory.
// Files are updated under an advisory lock, matching the settings store.
type GeoJSONLayerStore struct {
	dir string
}

func NewGeoJSONLayerStore(dir string) *GeoJSONLayerStore {
	return &GeoJSONLayerStore{dir: dir}
}

func (s *GeoJSONLayerStore) EnsureLayer(schema LayerSchema) (*LayerHandle, error) {
	if schema.Name == "" {
		return nil, fmt.Errorf("layer name is required")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create layer directory: %w", err)
	}

	path := filepath.Join(s.dir, layerFilename(schema.Name))
	err := updateJSONExclusive(path, func(doc *FeatureCollection) error {
		if doc.Type == "" {
			doc.Type = "FeatureCollection"
			doc.Name = schema.Name
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ensure layer %q: %w", schema.Name, err)
	}

	fields := make([]string, len(schema.Fields))
	copy(fields, schema.Fields)
	return &LayerHandle{path: path, name: schema.Name, fields: fields}, nil
}

func (s *GeoJSONLayerStore) AppendFeature(handle *LayerHandle, geometry PointGeometry, attrs map[string]any) error {
	if handle == nil {
		return fmt.Errorf("layer handle is nil")
	}

	props := attrs
	if len(handle.fields) > 0 {
		props = make(map[string]any, len(handle.fields))
		for _, field := range handle.fields {
			if v, ok := attrs[field]; ok {
				props[field] = v
			}
		}
	}

	feature := Feature{
		Type:       "Feature",
		ID:         uuid.NewString(),
		Geometry:   geometry,
		Properties: props,
	}

	err := updateJSONExclusive(handle.path, func(doc *FeatureCollection) error {
		if doc.Type == "" {
			doc.Type = "FeatureCollection"
			doc.Name = handle.name
		}
		doc.Features = append(doc.Features, feature)
		return nil
	})
	if err != nil {
		return fmt.Errorf("append feature to layer %q: %w", handle.name, err)
	}
	return nil
}

// layerFilename turns a display name into a stable file name.
func layerFilename(name string) string {
	slug := strings.ToLower(name)
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, string(filepath.Separator), "-")
	return slug + ".geojson"
}
