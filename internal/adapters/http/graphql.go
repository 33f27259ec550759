package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/wayfarelabs/wayfare/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lng": &graphql.Field{Type: graphql.Float},
		},
	})

	poiType := graphql.NewObject(graphql.ObjectConfig{
		Name: "POI",
		Fields: graphql.Fields{
			"id":            &graphql.Field{Type: graphql.String},
			"name":          &graphql.Field{Type: graphql.String},
			"location":      &graphql.Field{Type: geoPointType},
			"address":       &graphql.Field{Type: graphql.String},
			"category":      &graphql.Field{Type: graphql.String},
			"dwell_minutes": &graphql.Field{Type: graphql.Int},
			"themes":        &graphql.Field{Type: graphql.NewList(graphql.String)},
			"facts":         &graphql.Field{Type: graphql.NewList(graphql.String)},
		},
	})

	stopType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Stop",
		Fields: graphql.Fields{
			"id":            &graphql.Field{Type: graphql.String},
			"name":          &graphql.Field{Type: graphql.String},
			"location":      &graphql.Field{Type: geoPointType},
			"address":       &graphql.Field{Type: graphql.String},
			"category":      &graphql.Field{Type: graphql.String},
			"dwell_minutes": &graphql.Field{Type: graphql.Int},
		},
	})

	routeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Route",
		Fields: graphql.Fields{
			"stops":         &graphql.Field{Type: graphql.NewList(stopType)},
			"current_index": &graphql.Field{Type: graphql.Int},
		},
	})

	tourType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Tour",
		Fields: graphql.Fields{
			"id":           &graphql.Field{Type: graphql.String},
			"created_at":   &graphql.Field{Type: graphql.DateTime},
			"status":       &graphql.Field{Type: graphql.String},
			"route":        &graphql.Field{Type: routeType},
			"current_stop": &graphql.Field{Type: graphql.String},
		},
	})

	placeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Place",
		Fields: graphql.Fields{
			"place_id": &graphql.Field{Type: graphql.String},
			"name":     &graphql.Field{Type: graphql.String},
			"address":  &graphql.Field{Type: graphql.String},
			"rating":   &graphql.Field{Type: graphql.Float},
			"location": &graphql.Field{Type: geoPointType},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"pois": &graphql.Field{
				Type:        graphql.NewList(poiType),
				Description: "Curated catalog entries, optionally filtered by theme",
				Args: graphql.FieldConfigArgument{
					"theme": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if theme, ok := p.Args["theme"].(string); ok && theme != "" {
						return deps.Catalog.ByTheme(theme), nil
					}
					return deps.Catalog.All(), nil
				},
			},
			"tour": &graphql.Field{
				Type:        tourType,
				Description: "Snapshot of an active tour session",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					session, err := deps.Tours.Get(p.Args["id"].(string))
					if err != nil {
						return nil, err
					}
					return session.View(), nil
				},
			},
			"nearbyPlaces": &graphql.Field{
				Type:        graphql.NewList(placeType),
				Description: "Live place search around a point",
				Args: graphql.FieldConfigArgument{
					"query":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lng":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 1000},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.Places == nil {
						return []domain.Place{}, nil
					}
					near := domain.GeoPoint{
						Lat: p.Args["lat"].(float64),
						Lng: p.Args["lng"].(float64),
					}
					return deps.Places.SearchPlaces(p.Context, p.Args["query"].(string), near, p.Args["radius"].(int), false)
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
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
