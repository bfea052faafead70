package usecases

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Aoli/gravel-biking/internal/core/domain"
	"github.com/Aoli/gravel-biking/internal/core/ports"
	"github.com/Aoli/gravel-biking/internal/pkg/geospatial"
)

// maxParallelImports bounds ImportMany's worker goroutines.
const maxParallelImports = 4

// ImportService is the file boundary of the editor: it turns GPX/GeoJSON
// into plain tracks (decimating large ones) and back.
type ImportService struct {
	codecs map[string]ports.TrackCodec
}

// NewImportService registers the given codecs by their format name.
func NewImportService(codecs ...ports.TrackCodec) *ImportService {
	m := make(map[string]ports.TrackCodec, len(codecs))
	for _, c := range codecs {
		m[strings.ToLower(c.Format())] = c
	}
	return &ImportService{codecs: m}
}

// Formats lists the registered format names.
func (s *ImportService) Formats() []string {
	out := make([]string, 0, len(s.codecs))
	for f := range s.codecs {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Codec returns the codec for format.
func (s *ImportService) Codec(format string) (ports.TrackCodec, error) {
	c, ok := s.codecs[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, format)
	}
	return c, nil
}

// Import decodes one track and decimates it when it exceeds the threshold.
// Parsing and decimation run on a separate goroutine so that a cancelled
// ctx returns promptly; the work itself is not interrupted.
func (s *ImportService) Import(ctx context.Context, format string, r io.Reader) (*domain.ImportResult, error) {
	codec, err := s.Codec(format)
	if err != nil {
		return nil, err
	}

	type outcome struct {
		res *domain.ImportResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		track, err := codec.Decode(r)
		if err != nil {
			done <- outcome{err: err}
			return
		}
		res := PrepareTrack(track)
		done <- outcome{res: &res}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case o := <-done:
		return o.res, o.err
	}
}

// ImportMany imports several files of the same format concurrently.
// Results keep the input order; the first error cancels the rest.
func (s *ImportService) ImportMany(ctx context.Context, format string, readers []io.Reader) ([]domain.ImportResult, error) {
	if _, err := s.Codec(format); err != nil {
		return nil, err
	}

	results := make([]domain.ImportResult, len(readers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelImports)

	for i, r := range readers {
		g.Go(func() error {
			res, err := s.Import(gctx, format, r)
			if err != nil {
				return fmt.Errorf("file %d: %w", i, err)
			}
			results[i] = *res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Export writes track in format.
func (s *ImportService) Export(w io.Writer, format string, track domain.Track) error {
	codec, err := s.Codec(format)
	if err != nil {
		return err
	}
	return codec.Encode(w, track)
}

// PrepareTrack applies the import-time decimation rule to a decoded track.
func PrepareTrack(track domain.Track) domain.ImportResult {
	res := domain.ImportResult{
		Track:          track,
		OriginalPoints: len(track.Points),
		KeptPoints:     len(track.Points),
	}
	if geospatial.ShouldDecimate(len(track.Points)) {
		res.Track.Points = geospatial.Decimate(track.Points)
		res.KeptPoints = len(res.Track.Points)
		res.Decimated = true
	}
	return res
}
