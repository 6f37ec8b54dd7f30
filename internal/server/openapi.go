package server

import (
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/dbviz/dbviz/internal/config"
)

// NewOpenAPI describes the service for clients that discover it through
// /openapi.json. Title, version, description and server URL come from
// configuration.
func NewOpenAPI(svc config.ServiceConfig, baseURL string) *openapi3.T {
	errorSchema := withRequired(openapi3.NewObjectSchema().
		WithProperty("detail", openapi3.NewStringSchema()), "detail")

	resultSchema := withRequired(openapi3.NewObjectSchema().
		WithProperty("columns", openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())).
		WithProperty("data", openapi3.NewArraySchema().WithItems(
			openapi3.NewObjectSchema().WithAdditionalProperties(openapi3.NewSchema()),
		)), "columns", "data")

	columnSchema := openapi3.NewObjectSchema().
		WithProperty("column_name", openapi3.NewStringSchema()).
		WithProperty("data_type", openapi3.NewStringSchema())

	schemaInfoSchema := withRequired(openapi3.NewObjectSchema().
		WithProperty("total_tables", openapi3.NewInt64Schema()).
		WithProperty("tables", openapi3.NewObjectSchema().WithAdditionalProperties(
			openapi3.NewObjectSchema().WithProperty("columns", openapi3.NewArraySchema().WithItems(columnSchema)),
		)), "total_tables", "tables")

	jsonResponse := func(description string, s *openapi3.Schema) *openapi3.ResponseRef {
		return &openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription(description).WithJSONSchema(s)}
	}

	executeSQL := &openapi3.Operation{
		OperationID: "execute_sql_query",
		Summary:     "Execute SQL Query",
		Description: "Execute a raw SQL query and return the results including column names.",
		Parameters: openapi3.Parameters{
			{Value: openapi3.NewQueryParameter("query").
				WithDescription("SQL statement to execute verbatim").
				WithRequired(true).
				WithSchema(openapi3.NewStringSchema())},
		},
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(http.StatusOK, jsonResponse("Result set", resultSchema)),
			openapi3.WithStatus(http.StatusBadRequest, jsonResponse("Execution failed", errorSchema)),
			openapi3.WithStatus(http.StatusUnprocessableEntity, jsonResponse("Missing query", errorSchema)),
		),
	}

	databaseSchema := &openapi3.Operation{
		OperationID: "get_database_schema",
		Summary:     "Get Database Schema",
		Description: "Get the database schema including total tables, columns in each table, and column details.",
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(http.StatusOK, jsonResponse("Schema description", schemaInfoSchema)),
			openapi3.WithStatus(http.StatusBadRequest, jsonResponse("Introspection failed", errorSchema)),
		),
	}

	return &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       svc.Title,
			Version:     svc.Version,
			Description: svc.Description,
		},
		Servers: openapi3.Servers{
			{URL: baseURL, Description: svc.BaseURLDescription},
		},
		Paths: openapi3.NewPaths(
			openapi3.WithPath("/execute_sql", &openapi3.PathItem{Post: executeSQL}),
			openapi3.WithPath("/database_schema", &openapi3.PathItem{Get: databaseSchema}),
		),
	}
}

func withRequired(s *openapi3.Schema, names ...string) *openapi3.Schema {
	s.Required = names
	return s
}
