// Command routetool inspects and converts route files offline.
//
//	routetool stats    [-profile] ride.gpx
//	routetool decimate [-o out.gpx] ride.gpx
//	routetool convert  [-o out.geojson] ride.gpx
//	routetool submit   [-name "Saturday loop"] ride.gpx
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.temporal.io/sdk/client"

	"github.com/Aoli/gravel-biking/internal/adapters/geojson"
	"github.com/Aoli/gravel-biking/internal/adapters/gpx"
	"github.com/Aoli/gravel-biking/internal/core/domain"
	"github.com/Aoli/gravel-biking/internal/core/route"
	"github.com/Aoli/gravel-biking/internal/core/usecases"
	"github.com/Aoli/gravel-biking/internal/pkg/config"
	"github.com/Aoli/gravel-biking/internal/pkg/geospatial"
	"github.com/Aoli/gravel-biking/internal/workflows"
)

var errUsage = errors.New("usage: routetool stats|decimate|convert|submit [flags] FILE")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	imports := usecases.NewImportService(gpx.NewCodec(), geojson.NewCodec())

	switch args[0] {
	case "stats":
		fs := flag.NewFlagSet("stats", flag.ContinueOnError)
		profile := fs.Bool("profile", false, "also print the distance from the start at every point")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		track, _, err := readTrack(imports, fs.Arg(0))
		if err != nil {
			return err
		}
		printStats(stdout, track, *profile)
		return nil

	case "decimate":
		fs := flag.NewFlagSet("decimate", flag.ContinueOnError)
		out := fs.String("o", "", "output file (default stdout)")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		track, format, err := readTrack(imports, fs.Arg(0))
		if err != nil {
			return err
		}
		before := len(track.Points)
		track.Points = geospatial.Decimate(track.Points)
		fmt.Fprintf(os.Stderr, "decimated %d -> %d points\n", before, len(track.Points))
		return writeTrack(imports, stdout, *out, format, track)

	case "convert":
		fs := flag.NewFlagSet("convert", flag.ContinueOnError)
		out := fs.String("o", "", "output file; its extension picks the format")
		to := fs.String("to", "", "output format when writing to stdout (gpx|geojson)")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		track, from, err := readTrack(imports, fs.Arg(0))
		if err != nil {
			return err
		}
		format := *to
		if *out != "" {
			if format, err = formatOf(*out); err != nil {
				return err
			}
		}
		if format == "" {
			format = otherFormat(from)
		}
		return writeTrack(imports, stdout, *out, format, track)

	case "submit":
		fs := flag.NewFlagSet("submit", flag.ContinueOnError)
		name := fs.String("name", "", "route name (default: name in file)")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		return submit(stdout, fs.Arg(0), *name)

	default:
		return errUsage
	}
}

func formatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gpx":
		return "gpx", nil
	case ".geojson", ".json":
		return "geojson", nil
	default:
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func otherFormat(format string) string {
	if format == "gpx" {
		return "geojson"
	}
	return "gpx"
}

func readTrack(imports *usecases.ImportService, path string) (domain.Track, string, error) {
	if path == "" {
		return domain.Track{}, "", errUsage
	}
	format, err := formatOf(path)
	if err != nil {
		return domain.Track{}, "", err
	}
	codec, err := imports.Codec(format)
	if err != nil {
		return domain.Track{}, "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return domain.Track{}, "", err
	}
	defer f.Close()

	track, err := codec.Decode(f)
	if err != nil {
		return domain.Track{}, "", fmt.Errorf("%s: %w", path, err)
	}
	return track, format, nil
}

func writeTrack(imports *usecases.ImportService, stdout io.Writer, path, format string, track domain.Track) error {
	if path == "" {
		return imports.Export(stdout, format, track)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := imports.Export(f, format, track); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printStats(w io.Writer, track domain.Track, profile bool) {
	m := route.New(track.Points, track.LoopClosed)

	fmt.Fprintf(w, "name:      %s\n", track.Name)
	fmt.Fprintf(w, "points:    %d\n", m.Len())
	fmt.Fprintf(w, "loop:      %t\n", m.LoopClosed())
	fmt.Fprintf(w, "segments:  %d\n", len(m.Segments()))
	fmt.Fprintf(w, "distance:  %.2f km\n", m.TotalDistance()/1000)
	if b, ok := m.Bounds(); ok {
		fmt.Fprintf(w, "bounds:    %.6f,%.6f .. %.6f,%.6f\n", b.MinLat, b.MinLon, b.MaxLat, b.MaxLon)
	}
	if geospatial.ShouldDecimate(m.Len()) {
		fmt.Fprintf(w, "decimate:  yes (%d points after import)\n", len(geospatial.Decimate(track.Points)))
	}
	if !profile {
		return
	}
	// A closed loop ends with one extra entry, back at the first point.
	points := m.Points()
	for i, d := range m.CumulativeDistances() {
		p := points[i%len(points)]
		fmt.Fprintf(w, "%5d  %.6f,%.6f  %8.3f km\n", i, p.Lat, p.Lon, d/1000)
	}
}

// submit hands the file to the importer worker and waits for the saved route.
func submit(stdout io.Writer, path, name string) error {
	format, err := formatOf(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	cfg, err := config.Load("gravel-routetool")
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		return fmt.Errorf("temporal client: %w", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	we, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "import-" + strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + "-" + time.Now().UTC().Format("20060102T150405"),
		TaskQueue: cfg.Temporal.TaskQueue,
	}, workflows.ImportWorkflow, workflows.ImportInput{Format: format, Data: data, Name: name})
	if err != nil {
		return fmt.Errorf("start import: %w", err)
	}

	var out workflows.ImportOutput
	if err := we.Get(ctx, &out); err != nil {
		return fmt.Errorf("import %s: %w", we.GetID(), err)
	}
	fmt.Fprintf(stdout, "route %s saved (%d of %d points kept)\n", out.RouteID, out.KeptPoints, out.OriginalPoints)
	return nil
}
