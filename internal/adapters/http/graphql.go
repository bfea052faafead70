package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/Aoli/gravel-biking/internal/core/domain"
	"github.com/Aoli/gravel-biking/internal/core/usecases"
)

// buildSchema creates the GraphQL schema wired to our services. Field
// names follow the JSON tags of the domain types so the default resolver
// can read them.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	coordinateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Coordinate",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	routeSummaryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteSummary",
		Fields: graphql.Fields{
			"id":              &graphql.Field{Type: graphql.String},
			"name":            &graphql.Field{Type: graphql.String},
			"loop_closed":     &graphql.Field{Type: graphql.Boolean},
			"distance_meters": &graphql.Field{Type: graphql.Float},
			"point_count":     &graphql.Field{Type: graphql.Int},
			"updated_at":      &graphql.Field{Type: graphql.DateTime},
		},
	})

	routeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Route",
		Fields: graphql.Fields{
			"id":              &graphql.Field{Type: graphql.String},
			"name":            &graphql.Field{Type: graphql.String},
			"points":          &graphql.Field{Type: graphql.NewList(coordinateType)},
			"loop_closed":     &graphql.Field{Type: graphql.Boolean},
			"distance_meters": &graphql.Field{Type: graphql.Float},
			"point_count":     &graphql.Field{Type: graphql.Int},
			"created_at":      &graphql.Field{Type: graphql.DateTime},
			"updated_at":      &graphql.Field{Type: graphql.DateTime},
		},
	})

	sessionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Session",
		Fields: graphql.Fields{
			"id":              &graphql.Field{Type: graphql.String},
			"points":          &graphql.Field{Type: graphql.NewList(coordinateType)},
			"loop_closed":     &graphql.Field{Type: graphql.Boolean},
			"segments":        &graphql.Field{Type: graphql.NewList(graphql.Float)},
			"total_meters":    &graphql.Field{Type: graphql.Float},
			"markers":         &graphql.Field{Type: graphql.NewList(coordinateType)},
			"marker_interval": &graphql.Field{Type: graphql.Float},
			"can_undo":        &graphql.Field{Type: graphql.Boolean},
			"selected_index":  &graphql.Field{Type: graphql.Int},
			"route_id":        &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"routes": &graphql.Field{
				Type:        graphql.NewList(routeSummaryType),
				Description: "List saved routes, most recently updated first",
				Args: graphql.FieldConfigArgument{
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.Routes == nil {
						return nil, errStorageMissing
					}
					limit := p.Args["limit"].(int)
					offset := p.Args["offset"].(int)
					routes, _, err := deps.Routes.List(p.Context, limit, offset)
					return routes, err
				},
			},
			"route": &graphql.Field{
				Type:        routeType,
				Description: "Get a saved route by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.Routes == nil {
						return nil, errStorageMissing
					}
					id := p.Args["id"].(string)
					return deps.Routes.GetByID(p.Context, id)
				},
			},
			"session": &graphql.Field{
				Type:        sessionType,
				Description: "Current state of an editing session",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					var st domain.SessionState
					err := deps.Sessions.Do(id, func(s *usecases.EditorSession) error {
						st = s.State()
						return nil
					})
					if err != nil {
						return nil, err
					}
					return st, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
