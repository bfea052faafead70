// Package geojson reads and writes routes as GeoJSON LineString features.
package geojson

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/Aoli/gravel-biking/internal/core/domain"
	"github.com/Aoli/gravel-biking/internal/core/route"
)

const (
	propLoopClosed = "loopClosed"
	propName       = "name"
	propDistance   = "distanceMeters"
)

// Codec implements ports.TrackCodec for GeoJSON.
type Codec struct{}

// NewCodec returns a GeoJSON codec.
func NewCodec() *Codec { return &Codec{} }

func (c *Codec) Format() string      { return "geojson" }
func (c *Codec) ContentType() string { return "application/geo+json" }

// Decode accepts a Feature, the first line feature of a FeatureCollection,
// or a bare LineString/MultiLineString geometry. A boolean loopClosed
// property wins over first/last point inference.
func (c *Codec) Decode(r io.Reader) (domain.Track, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.Track{}, fmt.Errorf("read geojson: %w", err)
	}

	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return domain.Track{}, fmt.Errorf("%w: %v", domain.ErrMalformedTrack, err)
	}

	var (
		geom  orb.Geometry
		props geojson.Properties
	)
	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return domain.Track{}, fmt.Errorf("%w: %v", domain.ErrMalformedTrack, err)
		}
		for _, f := range fc.Features {
			if isLine(f.Geometry) {
				geom, props = f.Geometry, f.Properties
				break
			}
		}
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return domain.Track{}, fmt.Errorf("%w: %v", domain.ErrMalformedTrack, err)
		}
		geom, props = f.Geometry, f.Properties
	case "LineString", "MultiLineString":
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return domain.Track{}, fmt.Errorf("%w: %v", domain.ErrMalformedTrack, err)
		}
		geom = g.Geometry()
	default:
		return domain.Track{}, fmt.Errorf("%w: unexpected type %q", domain.ErrMalformedTrack, head.Type)
	}

	points := linePoints(geom)
	if len(points) == 0 {
		return domain.Track{}, fmt.Errorf("%w: no LineString coordinates", domain.ErrMalformedTrack)
	}
	for i, p := range points {
		if !p.Valid() {
			return domain.Track{}, fmt.Errorf("%w: point %d out of range (%f, %f)", domain.ErrMalformedTrack, i, p.Lat, p.Lon)
		}
	}

	// An explicit loopClosed=false keeps a repeated last point as a real leg.
	explicit, hasProp := props[propLoopClosed].(bool)
	closed := false
	if !hasProp || explicit {
		points, closed = domain.TrimClosingPoint(points)
	}
	if hasProp {
		closed = explicit
	}
	return domain.Track{Name: props.MustString(propName, ""), Points: points, LoopClosed: closed}, nil
}

// Encode writes a single Feature with a LineString geometry. Loop closure
// travels in the loopClosed property, not as a repeated point.
func (c *Codec) Encode(w io.Writer, track domain.Track) error {
	ls := make(orb.LineString, 0, len(track.Points))
	for _, p := range track.Points {
		ls = append(ls, orb.Point{p.Lon, p.Lat})
	}

	f := geojson.NewFeature(ls)
	f.Properties[propLoopClosed] = track.LoopClosed
	f.Properties[propDistance] = route.New(track.Points, track.LoopClosed).TotalDistance()
	if track.Name != "" {
		f.Properties[propName] = track.Name
	}

	data, err := f.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode geojson: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func isLine(g orb.Geometry) bool {
	switch g.(type) {
	case orb.LineString, orb.MultiLineString:
		return true
	}
	return false
}

func linePoints(g orb.Geometry) []domain.Coordinate {
	var lines []orb.LineString
	switch v := g.(type) {
	case orb.LineString:
		lines = []orb.LineString{v}
	case orb.MultiLineString:
		lines = v
	default:
		return nil
	}

	var out []domain.Coordinate
	for _, ls := range lines {
		for _, p := range ls {
			out = append(out, domain.Coordinate{Lat: p.Lat(), Lon: p.Lon()})
		}
	}
	return out
}
