package api

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "ApiKeyAuth": {"type": "apiKey", "name": "X-API-Key", "in": "header"}
    },
    "security": [{"ApiKeyAuth": []}],
    "paths": {
        "/health": {"get": {"tags": ["health"], "summary": "Health check", "responses": {"200": {"description": "OK"}}}},
        "/schema": {"get": {"tags": ["rows"], "summary": "Row schema", "responses": {"200": {"description": "OK"}}}},
        "/bytes/encode": {"post": {"tags": ["bytes"], "summary": "Encode a byte payload", "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}},
        "/bytes/decode": {"post": {"tags": ["bytes"], "summary": "Decode a byte payload", "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}},
        "/rows": {"post": {"tags": ["rows"], "summary": "Create a row", "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}}}},
        "/rows/compare": {"post": {"tags": ["rows"], "summary": "Compare two rows", "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}}},
        "/rows/{id}": {
            "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
            "get": {"tags": ["rows"], "summary": "Get a row", "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "put": {"tags": ["rows"], "summary": "Replace a row", "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "delete": {"tags": ["rows"], "summary": "Delete a row", "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:9200",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "rowcodec REST API",
	Description:      "Encode byte payloads, store rows and compare them under a schema.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
