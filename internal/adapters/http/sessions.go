package http

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Aoli/gravel-biking/internal/core/domain"
	"github.com/Aoli/gravel-biking/internal/core/route"
	"github.com/Aoli/gravel-biking/internal/core/usecases"
	"github.com/Aoli/gravel-biking/internal/pkg/metrics"
	"github.com/Aoli/gravel-biking/internal/pkg/telemetry"
)

// pointRequest is a coordinate in a request body. Pointers tell a missing
// field apart from a zero coordinate.
type pointRequest struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

func (p pointRequest) coordinate() (domain.Coordinate, error) {
	if p.Lat == nil || p.Lon == nil {
		return domain.Coordinate{}, fmt.Errorf("lat and lon are required")
	}
	c := domain.Coordinate{Lat: *p.Lat, Lon: *p.Lon}
	if !c.Valid() {
		return domain.Coordinate{}, fmt.Errorf("coordinate out of range: lat must be within ±90, lon within ±180")
	}
	return c, nil
}

type insertRequest struct {
	pointRequest
	Before  *int `json:"before"`
	Segment *int `json:"segment"`
}

type loadRequest struct {
	Points     []pointRequest `json:"points"`
	LoopClosed bool           `json:"loop_closed"`
}

type saveRequest struct {
	Name string `json:"name"`
}

type undoResponse struct {
	Restored bool                `json:"restored"`
	Session  domain.SessionState `json:"session"`
}

type importResponse struct {
	OriginalPoints int                 `json:"original_points"`
	KeptPoints     int                 `json:"kept_points"`
	Decimated      bool                `json:"decimated"`
	Session        domain.SessionState `json:"session"`
}

// edit runs fn on the session named in the path, records the outcome and
// replies with the resulting state.
func edit(c *fiber.Ctx, deps *Dependencies, op string, fn func(s *usecases.EditorSession) error) error {
	var st domain.SessionState
	err := deps.Sessions.Do(c.Params("id"), func(s *usecases.EditorSession) error {
		if err := fn(s); err != nil {
			return err
		}
		st = s.State()
		return nil
	})
	metrics.ObserveEdit(op, err)
	if err != nil {
		return errFromDomain(c, err)
	}
	publishState(c, deps, &st)
	return c.JSON(st)
}

func publishState(c *fiber.Ctx, deps *Dependencies, st *domain.SessionState) {
	if deps.Events == nil {
		return
	}
	if err := deps.Events.PublishSessionState(c.UserContext(), st); err != nil {
		LoggerFromCtx(c.UserContext()).Warn("publish session state failed", "session_id", st.ID, "error", err)
	}
}

func pathIndex(c *fiber.Ctx) (int, error) {
	i, err := c.ParamsInt("index")
	if err != nil {
		return 0, fmt.Errorf("index must be an integer")
	}
	return i, nil
}

// CreateSessionHandler starts a new empty editing session.
func CreateSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st := deps.Sessions.Create()
		metrics.ActiveSessions.Set(float64(deps.Sessions.Len()))
		LoggerFromCtx(c.UserContext()).Info("session created", "session_id", st.ID)
		return c.Status(201).JSON(st)
	}
}

// GetSessionHandler returns the current state of a session.
func GetSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var st domain.SessionState
		err := deps.Sessions.Do(c.Params("id"), func(s *usecases.EditorSession) error {
			st = s.State()
			return nil
		})
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Set("Cache-Control", "no-store")
		return c.JSON(st)
	}
}

// DeleteSessionHandler ends a session.
func DeleteSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Sessions.Delete(c.Params("id")); err != nil {
			return errFromDomain(c, err)
		}
		metrics.ActiveSessions.Set(float64(deps.Sessions.Len()))
		return c.SendStatus(204)
	}
}

// AddPointHandler appends a waypoint.
func AddPointHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req pointRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		p, err := req.coordinate()
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		return edit(c, deps, "add", func(s *usecases.EditorSession) error {
			s.AddPoint(p)
			return nil
		})
	}
}

// InsertPointHandler inserts a waypoint before an index, or at the
// midpoint of a segment when the body names a segment instead.
func InsertPointHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req insertRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		switch {
		case req.Segment != nil:
			seg := *req.Segment
			return edit(c, deps, "insert", func(s *usecases.EditorSession) error {
				return s.InsertMidpoint(seg)
			})
		case req.Before != nil:
			p, err := req.coordinate()
			if err != nil {
				return errBadRequest(c, err.Error())
			}
			before := *req.Before
			return edit(c, deps, "insert", func(s *usecases.EditorSession) error {
				return s.InsertPoint(before, p)
			})
		default:
			return errBadRequest(c, "before or segment is required")
		}
	}
}

// MovePointHandler moves the waypoint at :index.
func MovePointHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		i, err := pathIndex(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		var req pointRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		p, err := req.coordinate()
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		return edit(c, deps, "move", func(s *usecases.EditorSession) error {
			return s.MovePoint(i, p)
		})
	}
}

// DeletePointHandler removes the waypoint at :index.
func DeletePointHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		i, err := pathIndex(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		return edit(c, deps, "delete", func(s *usecases.EditorSession) error {
			return s.DeletePoint(i)
		})
	}
}

// SelectPointHandler marks the waypoint at :index as being edited.
func SelectPointHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		i, err := pathIndex(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		return edit(c, deps, "select", func(s *usecases.EditorSession) error {
			return s.SelectPoint(i)
		})
	}
}

// CancelSelectionHandler drops the current selection.
func CancelSelectionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return edit(c, deps, "cancel_selection", func(s *usecases.EditorSession) error {
			s.CancelSelection()
			return nil
		})
	}
}

// ToggleLoopHandler opens or closes the loop.
func ToggleLoopHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return edit(c, deps, "toggle_loop", func(s *usecases.EditorSession) error {
			s.ToggleLoop()
			return nil
		})
	}
}

// ClearRouteHandler empties the route.
func ClearRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return edit(c, deps, "clear", func(s *usecases.EditorSession) error {
			s.ClearRoute()
			return nil
		})
	}
}

// LoadPointsHandler replaces the route with the points in the body.
func LoadPointsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req loadRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		points := make([]domain.Coordinate, 0, len(req.Points))
		for i, pr := range req.Points {
			p, err := pr.coordinate()
			if err != nil {
				return errBadRequest(c, fmt.Sprintf("points[%d]: %v", i, err))
			}
			points = append(points, p)
		}
		return edit(c, deps, "load", func(s *usecases.EditorSession) error {
			s.LoadRoute(points, req.LoopClosed)
			return nil
		})
	}
}

// UndoHandler restores the previous state.
func UndoHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var (
			restored bool
			st       domain.SessionState
		)
		err := deps.Sessions.Do(c.Params("id"), func(s *usecases.EditorSession) error {
			restored = s.Undo()
			st = s.State()
			return nil
		})
		if err != nil {
			return errFromDomain(c, err)
		}
		metrics.UndoOperations.WithLabelValues(fmt.Sprint(restored)).Inc()
		if restored {
			publishState(c, deps, &st)
		}
		return c.JSON(undoResponse{Restored: restored, Session: st})
	}
}

// GenerateMarkersHandler places distance markers every ?interval= meters.
func GenerateMarkersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		interval := deps.MarkerInterval
		if raw := c.Query("interval"); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return errBadRequest(c, "interval must be a number")
			}
			interval = v
		}
		return edit(c, deps, "markers", func(s *usecases.EditorSession) error {
			return s.GenerateDistanceMarkers(interval)
		})
	}
}

// ClearMarkersHandler removes all distance markers.
func ClearMarkersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return edit(c, deps, "clear_markers", func(s *usecases.EditorSession) error {
			s.ClearDistanceMarkers()
			return nil
		})
	}
}

// ImportHandler replaces the session's route with an uploaded track file.
// The body is the raw file; ?format= selects the codec.
func ImportHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		format := strings.ToLower(c.Query("format", "gpx"))
		// Decoding may outlive the handler on timeout; fasthttp reuses c.Body().
		body := bytes.Clone(c.Body())
		if len(body) == 0 {
			return errBadRequest(c, "request body must contain the track file")
		}

		ctx, span := telemetry.StartSpan(c.UserContext(), telemetry.SpanImportTrack,
			telemetry.AttrFormat.String(format), telemetry.AttrSessionID.String(c.Params("id")))
		start := time.Now()
		res, err := deps.Imports.Import(ctx, format, bytes.NewReader(body))
		if err == nil {
			span.SetAttributes(
				telemetry.AttrOriginalPoints.Int(res.OriginalPoints),
				telemetry.AttrKeptPoints.Int(res.KeptPoints),
			)
			metrics.ObserveImport(format, start, res.OriginalPoints, res.KeptPoints, nil)
		} else {
			metrics.ObserveImport(format, start, 0, 0, err)
		}
		telemetry.EndSpan(span, err)
		if err != nil {
			return errFromDomain(c, err)
		}

		if name := c.Query("name"); name != "" {
			res.Track.Name = name
		}

		var st domain.SessionState
		err = deps.Sessions.Do(c.Params("id"), func(s *usecases.EditorSession) error {
			s.LoadTrack(res.Track)
			st = s.State()
			return nil
		})
		metrics.ObserveEdit("import", err)
		if err != nil {
			return errFromDomain(c, err)
		}
		publishState(c, deps, &st)

		LoggerFromCtx(ctx).Info("track imported",
			"session_id", st.ID, "format", format,
			"original_points", res.OriginalPoints, "kept_points", res.KeptPoints)

		return c.JSON(importResponse{
			OriginalPoints: res.OriginalPoints,
			KeptPoints:     res.KeptPoints,
			Decimated:      res.Decimated,
			Session:        st,
		})
	}
}

// ExportHandler downloads the session's route as ?format=gpx|geojson.
func ExportHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		format := strings.ToLower(c.Query("format", "gpx"))
		codec, err := deps.Imports.Codec(format)
		if err != nil {
			return errFromDomain(c, err)
		}

		var track domain.Track
		err = deps.Sessions.Do(c.Params("id"), func(s *usecases.EditorSession) error {
			track = s.Model().Track(s.RouteName())
			return nil
		})
		if err != nil {
			return errFromDomain(c, err)
		}

		_, span := telemetry.StartSpan(c.UserContext(), telemetry.SpanExportTrack, telemetry.AttrFormat.String(format))
		var buf bytes.Buffer
		err = codec.Encode(&buf, track)
		telemetry.EndSpan(span, err)
		if err != nil {
			return errFromDomain(c, err)
		}

		name := track.Name
		if name == "" {
			name = "route"
		}
		c.Set(fiber.HeaderContentType, codec.ContentType())
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, fileName(name)+"."+codec.Format()))
		c.Set("Cache-Control", "no-store")
		return c.Send(buf.Bytes())
	}
}

// SaveSessionHandler persists the session's route, updating the route it
// was loaded from if any.
func SaveSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Routes == nil {
			return errUnavailable(c, "route storage is not configured")
		}
		var req saveRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return errBadRequest(c, "invalid request body")
			}
		}

		// The model is immutable, so it can be saved outside the session lock.
		sessionID := c.Params("id")
		var model route.Model
		var id, name string
		err := deps.Sessions.Do(sessionID, func(s *usecases.EditorSession) error {
			model, id, name = s.Model(), s.RouteID(), s.RouteName()
			return nil
		})
		if err != nil {
			return errFromDomain(c, err)
		}
		if req.Name != "" {
			name = req.Name
		}

		ctx, span := telemetry.StartSpan(c.UserContext(), telemetry.SpanSaveRoute, telemetry.AttrSessionID.String(sessionID))
		saved, err := deps.Routes.Save(ctx, id, name, model)
		telemetry.EndSpan(span, err)
		if err != nil {
			return errFromDomain(c, err)
		}

		err = deps.Sessions.Do(sessionID, func(s *usecases.EditorSession) error {
			s.SetSaved(saved)
			return nil
		})
		if err != nil {
			LoggerFromCtx(c.UserContext()).Warn("attach saved route to session failed",
				"session_id", sessionID, "route_id", saved.ID, "error", err)
		}
		return c.Status(201).JSON(saved)
	}
}

// LoadSavedHandler replaces the session's route with a persisted route.
func LoadSavedHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Routes == nil {
			return errUnavailable(c, "route storage is not configured")
		}
		ctx, span := telemetry.StartSpan(c.UserContext(), telemetry.SpanLoadRoute, telemetry.AttrRouteID.String(c.Params("routeId")))
		r, err := deps.Routes.GetByID(ctx, c.Params("routeId"))
		telemetry.EndSpan(span, err)
		if err != nil {
			return errFromDomain(c, err)
		}
		return edit(c, deps, "load", func(s *usecases.EditorSession) error {
			s.LoadSaved(r)
			return nil
		})
	}
}

// fileName keeps letters, digits, dash and underscore of a route name.
func fileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "route"
	}
	return b.String()
}
