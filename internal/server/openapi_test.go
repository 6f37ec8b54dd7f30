package server

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbviz/dbviz/internal/config"
)

func TestNewOpenAPI(t *testing.T) {
	doc := NewOpenAPI(config.ServiceConfig{
		Title:              "Database Visualization API",
		Version:            "1.0.0",
		Description:        "API for running SQL against a database",
		BaseURLDescription: "Local",
	}, "http://localhost:8000")

	require.NoError(t, doc.Validate(context.Background()))

	assert.Equal(t, "Database Visualization API", doc.Info.Title)
	require.Len(t, doc.Servers, 1)
	assert.Equal(t, "http://localhost:8000", doc.Servers[0].URL)
	assert.Equal(t, "Local", doc.Servers[0].Description)

	execute := doc.Paths.Find("/execute_sql")
	require.NotNil(t, execute)
	require.NotNil(t, execute.Post)
	assert.Equal(t, "execute_sql_query", execute.Post.OperationID)
	query := execute.Post.Parameters.GetByInAndName("query", "query")
	require.NotNil(t, query)
	assert.True(t, query.Required)

	schema := doc.Paths.Find("/database_schema")
	require.NotNil(t, schema)
	require.NotNil(t, schema.Get)
	assert.Equal(t, "get_database_schema", schema.Get.OperationID)
	assert.NotNil(t, schema.Get.Responses.Status(200))
	assert.NotNil(t, schema.Get.Responses.Status(400))
}

func TestNewOpenAPI_JSON(t *testing.T) {
	doc := NewOpenAPI(config.ServiceConfig{Title: "dbviz", Version: "0.1.0"}, "http://127.0.0.1:8000")

	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "3.0.3", decoded["openapi"])
	assert.Equal(t, "dbviz", decoded["info"].(map[string]any)["title"])
}
