// Package gpx reads and writes routes as GPX 1.1 track files.
package gpx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/Aoli/gravel-biking/internal/core/domain"
)

const creator = "gravel-biking"

// Codec implements ports.TrackCodec for GPX.
type Codec struct{}

// NewCodec returns a GPX codec.
func NewCodec() *Codec { return &Codec{} }

func (c *Codec) Format() string      { return "gpx" }
func (c *Codec) ContentType() string { return "application/gpx+xml" }

// Decode collects every track point in document order across all tracks
// and segments. Files without tracks fall back to their route points.
// A track whose last point repeats the first is read as a closed loop.
func (c *Codec) Decode(r io.Reader) (domain.Track, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.Track{}, fmt.Errorf("read gpx: %w", err)
	}
	if err := checkCoordinateAttrs(data); err != nil {
		return domain.Track{}, err
	}

	g, err := gpx.ParseBytes(data)
	if err != nil {
		return domain.Track{}, fmt.Errorf("%w: %v", domain.ErrMalformedTrack, err)
	}

	var points []domain.Coordinate
	name := g.Name
	for _, trk := range g.Tracks {
		if name == "" {
			name = trk.Name
		}
		for _, seg := range trk.Segments {
			for i := range seg.Points {
				points = append(points, domain.Coordinate{Lat: seg.Points[i].Latitude, Lon: seg.Points[i].Longitude})
			}
		}
	}
	if len(points) == 0 {
		for _, rte := range g.Routes {
			if name == "" {
				name = rte.Name
			}
			for i := range rte.Points {
				points = append(points, domain.Coordinate{Lat: rte.Points[i].Latitude, Lon: rte.Points[i].Longitude})
			}
		}
	}
	if len(points) == 0 {
		return domain.Track{}, fmt.Errorf("%w: no track points", domain.ErrMalformedTrack)
	}

	for i, p := range points {
		if !p.Valid() {
			return domain.Track{}, fmt.Errorf("%w: point %d out of range (%f, %f)", domain.ErrMalformedTrack, i, p.Lat, p.Lon)
		}
	}

	points, closed := domain.TrimClosingPoint(points)
	return domain.Track{Name: name, Points: points, LoopClosed: closed}, nil
}

// checkCoordinateAttrs rejects track and route points that lack lat or lon.
// gpxgo reads a missing attribute as 0, which is a valid coordinate.
func checkCoordinateAttrs(data []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	n := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrMalformedTrack, err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || (se.Name.Local != "trkpt" && se.Name.Local != "rtept") {
			continue
		}
		var hasLat, hasLon bool
		for _, a := range se.Attr {
			switch a.Name.Local {
			case "lat":
				hasLat = true
			case "lon":
				hasLon = true
			}
		}
		if !hasLat || !hasLon {
			return fmt.Errorf("%w: %s %d has no lat/lon", domain.ErrMalformedTrack, se.Name.Local, n)
		}
		n++
	}
}

// Encode writes a single track with one segment. A closed loop repeats its
// first point at the end so other tools draw it closed.
func (c *Codec) Encode(w io.Writer, track domain.Track) error {
	g := &gpx.GPX{Creator: creator, Name: track.Name}

	seg := gpx.GPXTrackSegment{Points: make([]gpx.GPXPoint, 0, len(track.Points)+1)}
	for _, p := range domain.WithClosingPoint(track.Points, track.LoopClosed) {
		var gp gpx.GPXPoint
		gp.Latitude = p.Lat
		gp.Longitude = p.Lon
		seg.Points = append(seg.Points, gp)
	}
	g.Tracks = []gpx.GPXTrack{{Name: track.Name, Segments: []gpx.GPXTrackSegment{seg}}}

	data, err := g.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
	if err != nil {
		return fmt.Errorf("encode gpx: %w", err)
	}
	_, err = w.Write(data)
	return err
}
