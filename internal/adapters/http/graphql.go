package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"

	"github.com/samirrijal/geofields/internal/core/resource"
)

// jsonScalar carries arbitrary JSON values, used for dehydrated records
// whose shape depends on the resource.
var jsonScalar = graphql.NewScalar(graphql.ScalarConfig{
	Name:         "JSON",
	Description:  "Arbitrary JSON value",
	Serialize:    func(v interface{}) interface{} { return v },
	ParseValue:   func(v interface{}) interface{} { return v },
	ParseLiteral: literalValue,
})

func literalValue(v ast.Value) interface{} {
	switch v := v.(type) {
	case *ast.StringValue:
		return v.Value
	case *ast.BooleanValue:
		return v.Value
	case *ast.IntValue:
		n, err := strconv.ParseInt(v.Value, 10, 64)
		if err != nil {
			return nil
		}
		return n
	case *ast.FloatValue:
		f, err := strconv.ParseFloat(v.Value, 64)
		if err != nil {
			return nil
		}
		return f
	case *ast.ListValue:
		out := make([]interface{}, 0, len(v.Values))
		for _, item := range v.Values {
			out = append(out, literalValue(item))
		}
		return out
	case *ast.ObjectValue:
		out := make(map[string]interface{}, len(v.Fields))
		for _, f := range v.Fields {
			out[f.Name.Value] = literalValue(f.Value)
		}
		return out
	default:
		return nil
	}
}

// buildSchema creates the GraphQL schema wired to the resource service.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	resourceType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Resource",
		Fields: graphql.Fields{
			"name": &graphql.Field{
				Type:    graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) { return p.Source.(*resource.Resource).Name(), nil },
			},
			"table": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*resource.Resource).Def().Table, nil
				},
			},
			"geometry_format": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return string(p.Source.(*resource.Resource).Def().GeometryFormat), nil
				},
			},
			"list_endpoint": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*resource.Resource).ListURI(), nil
				},
			},
			"schema": &graphql.Field{
				Type:    jsonScalar,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) { return p.Source.(*resource.Resource).Schema(), nil },
			},
		},
	})

	pageType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RecordPage",
		Fields: graphql.Fields{
			"objects": &graphql.Field{Type: graphql.NewList(jsonScalar)},
			"total":   &graphql.Field{Type: graphql.Int},
		},
	})

	nameArg := &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)}
	idArg := &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"resources": &graphql.Field{
				Type:        graphql.NewList(resourceType),
				Description: "List the exposed resources",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Resources.Resources(), nil
				},
			},
			"records": &graphql.Field{
				Type:        pageType,
				Description: "A page of records of a resource",
				Args: graphql.FieldConfigArgument{
					"name":   nameArg,
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: resource.DefaultLimit},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					name := p.Args["name"].(string)
					offset := p.Args["offset"].(int)
					limit := min(p.Args["limit"].(int), maxLimit)
					page, err := deps.Resources.List(p.Context, name, offset, limit)
					if err != nil {
						return nil, err
					}
					objects := make([]interface{}, len(page.Objects))
					for i, o := range page.Objects {
						objects[i] = o
					}
					return map[string]interface{}{"objects": objects, "total": page.Total}, nil
				},
			},
			"record": &graphql.Field{
				Type:        jsonScalar,
				Description: "A single record by primary key",
				Args:        graphql.FieldConfigArgument{"name": nameArg, "id": idArg},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Resources.Get(p.Context, p.Args["name"].(string), p.Args["id"].(string))
				},
			},
		},
	})

	dataArg := &graphql.ArgumentConfig{Type: graphql.NewNonNull(jsonScalar)}

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createRecord": &graphql.Field{
				Type: jsonScalar,
				Args: graphql.FieldConfigArgument{"name": nameArg, "data": dataArg},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					data, _ := p.Args["data"].(map[string]interface{})
					return deps.Resources.Create(p.Context, p.Args["name"].(string), data)
				},
			},
			"updateRecord": &graphql.Field{
				Type: jsonScalar,
				Args: graphql.FieldConfigArgument{
					"name":    nameArg,
					"id":      idArg,
					"data":    dataArg,
					"partial": &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: true},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					data, _ := p.Args["data"].(map[string]interface{})
					return deps.Resources.Update(p.Context, p.Args["name"].(string), p.Args["id"].(string), data, p.Args["partial"].(bool))
				},
			},
			"deleteRecord": &graphql.Field{
				Type: graphql.Boolean,
				Args: graphql.FieldConfigArgument{"name": nameArg, "id": idArg},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if err := deps.Resources.Delete(p.Context, p.Args["name"].(string), p.Args["id"].(string)); err != nil {
						return false, err
					}
					return true, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
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
