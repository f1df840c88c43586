package docs

import "github.com/swaggo/swag"

const docTemplate = `{
  "swagger": "2.0",
  "info": {
    "title": "Completion Estimation API",
    "description": "Ticket classification and capacity-aware completion estimates",
    "version": "1.0"
  },
  "basePath": "/",
  "securityDefinitions": {
    "AdminKey": {"type": "apiKey", "in": "header", "name": "X-Admin-Key"}
  },
  "paths": {
    "/healthz": {"get": {"tags": ["health"], "summary": "Database health", "responses": {"200": {"description": "ok"}, "503": {"description": "database unavailable"}}}},
    "/api/classify": {"post": {"tags": ["classify"], "summary": "Classify ticket text", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"200": {"description": "classification, escalation and complexity"}, "400": {"description": "invalid request"}}}},
    "/api/tickets/{id}/estimate": {
      "post": {"tags": ["estimates"], "summary": "Estimate ticket completion", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "estimate"}, "404": {"description": "ticket not found"}}},
      "get": {"tags": ["estimates"], "summary": "Latest completion estimate", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "estimate"}, "404": {"description": "no estimate"}}}
    },
    "/api/tickets/{id}/heuristic-estimate": {"post": {"tags": ["estimates"], "summary": "Quick heuristic estimate", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "estimate"}}}},
    "/api/organizations/{org}/staff/{id}/workload": {"get": {"tags": ["staff"], "summary": "Staff workload", "parameters": [{"name": "org", "in": "path", "required": true, "type": "string"}, {"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "workload analysis"}}}},
    "/api/organizations/{org}/staff/{id}/availability": {"get": {"tags": ["staff"], "summary": "Staff availability windows", "parameters": [{"name": "org", "in": "path", "required": true, "type": "string"}, {"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "days", "in": "query", "type": "integer", "minimum": 1, "maximum": 45}], "responses": {"200": {"description": "windows"}, "400": {"description": "days out of range"}}}},
    "/api/organizations/{org}/recompute": {"post": {"tags": ["estimates"], "summary": "Recompute organization estimates", "security": [{"AdminKey": []}], "parameters": [{"name": "org", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "run summary"}}}},
    "/api/runs/latest": {"get": {"tags": ["runs"], "summary": "Latest run", "security": [{"AdminKey": []}], "responses": {"200": {"description": "run"}, "404": {"description": "no runs"}}}},
    "/api/schedules/import": {"post": {"tags": ["import"], "summary": "Import schedules and calendar blocks", "security": [{"AdminKey": []}], "consumes": ["multipart/form-data"], "responses": {"200": {"description": "import summary"}, "400": {"description": "CSV errors"}}}}
  }
}`

func init() {
	swag.Register(swag.Name, &s{})
}

type s struct{}

func (s *s) ReadDoc() string {
	return docTemplate
}
