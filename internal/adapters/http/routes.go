package http

import (
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Aoli/gravel-biking/internal/core/domain"
	"github.com/Aoli/gravel-biking/internal/pkg/metrics"
	"github.com/Aoli/gravel-biking/internal/pkg/telemetry"
)

const maxBatchFiles = 20

// ListRoutesHandler returns a page of saved routes.
func ListRoutesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Routes == nil {
			return errUnavailable(c, "route storage is not configured")
		}
		offset, limit := pageFromQuery(c)

		routes, total, err := deps.Routes.List(c.UserContext(), limit, offset)
		if err != nil {
			return errFromDomain(c, err)
		}
		if routes == nil {
			routes = []domain.RouteSummary{}
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: routes, Pagination: pg})
	}
}

// GetRouteHandler returns a saved route with its points.
func GetRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Routes == nil {
			return errUnavailable(c, "route storage is not configured")
		}
		r, err := deps.Routes.GetByID(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(r)
	}
}

// DeleteRouteHandler removes a saved route.
func DeleteRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Routes == nil {
			return errUnavailable(c, "route storage is not configured")
		}
		if err := deps.Routes.Delete(c.UserContext(), c.Params("id")); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(204)
	}
}

// ImportRoutesHandler stores every file of a multipart "files" upload as a
// new saved route. All files must share ?format=.
func ImportRoutesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Routes == nil {
			return errUnavailable(c, "route storage is not configured")
		}
		format := strings.ToLower(c.Query("format", "gpx"))

		form, err := c.MultipartForm()
		if err != nil {
			return errBadRequest(c, "multipart form with files is required")
		}
		files := form.File["files"]
		if len(files) == 0 {
			return errBadRequest(c, "at least one file is required")
		}
		if len(files) > maxBatchFiles {
			return errBadRequest(c, "too many files (max 20)")
		}

		readers := make([]io.Reader, 0, len(files))
		for _, fh := range files {
			f, err := fh.Open()
			if err != nil {
				return errBadRequest(c, "cannot read "+fh.Filename)
			}
			defer f.Close()
			readers = append(readers, f)
		}

		ctx, span := telemetry.StartSpan(c.UserContext(), telemetry.SpanImportTrack, telemetry.AttrFormat.String(format))
		start := time.Now()
		results, err := deps.Imports.ImportMany(ctx, format, readers)
		telemetry.EndSpan(span, err)
		if err != nil {
			metrics.ObserveImport(format, start, 0, 0, err)
			return errFromDomain(c, err)
		}

		tracks := make([]domain.Track, len(results))
		for i, res := range results {
			metrics.ObserveImport(format, start, res.OriginalPoints, res.KeptPoints, nil)
			tracks[i] = res.Track
			if tracks[i].Name == "" {
				tracks[i].Name = strings.TrimSuffix(files[i].Filename, "."+format)
			}
		}

		routes, err := deps.Routes.SaveTracks(ctx, tracks)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.Status(201).JSON(routes)
	}
}
