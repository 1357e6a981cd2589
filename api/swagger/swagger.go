package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "LMS KPI API",
        "description": "Academic KPI computation pipeline over Moodle web services",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Service-account token flow"},
        {"name": "Pipeline", "description": "ETL run management"},
        {"name": "Metrics", "description": "Observability snapshots"}
    ],
    "paths": {
        "/auth/token": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Issue access token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TokenRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/pipeline/runs": {
            "post": {
                "tags": ["Pipeline"],
                "summary": "Start a pipeline run",
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "A run is already in progress"}
                }
            },
            "get": {
                "tags": ["Pipeline"],
                "summary": "List pipeline runs",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/pipeline/runs/{id}": {
            "get": {
                "tags": ["Pipeline"],
                "summary": "Get a pipeline run",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Run not found"}
                }
            }
        },
        "/pipeline/runs/{id}/cancel": {
            "post": {
                "tags": ["Pipeline"],
                "summary": "Cancel a pipeline run",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Run not found"},
                    "409": {"description": "Run is not active"}
                }
            }
        },
        "/pipeline/runs/{id}/export": {
            "get": {
                "tags": ["Pipeline"],
                "summary": "Export a run report",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"], "default": "csv"}
                ],
                "responses": {
                    "200": {"description": "Rendered report"},
                    "400": {"description": "Unsupported format"},
                    "404": {"description": "Run not found"}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Metrics"],
                "summary": "System metrics snapshot",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "TokenRequest": {
            "type": "object",
            "properties": {
                "client_id": {"type": "string"},
                "client_secret": {"type": "string"}
            },
            "required": ["client_id", "client_secret"]
        },
        "TokenResponse": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string"},
                "token_type": {"type": "string"},
                "expires_in": {"type": "integer"}
            }
        },
        "CourseOutcome": {
            "type": "object",
            "properties": {
                "course_id": {"type": "integer"},
                "course_name": {"type": "string"},
                "status": {"type": "string", "enum": ["OK", "SKIPPED", "ERROR"]},
                "reason": {"type": "string"}
            }
        },
        "PipelineRun": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "status": {"type": "string", "enum": ["RUNNING", "COMPLETED", "CANCELLED", "FAILED"]},
                "params": {
                    "type": "object",
                    "properties": {
                        "start_date": {"type": "string"},
                        "end_date": {"type": "string"}
                    }
                },
                "total_courses": {"type": "integer"},
                "processed": {"type": "integer"},
                "succeeded": {"type": "integer"},
                "skipped": {"type": "integer"},
                "failed": {"type": "integer"},
                "started_at": {"type": "string"},
                "finished_at": {"type": "string"},
                "error": {"type": "string"},
                "outcomes": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/CourseOutcome"}
                }
            }
        },
        "SystemMetrics": {
            "type": "object",
            "properties": {
                "cache_hit_ratio": {"type": "number"},
                "cache_hits": {"type": "integer"},
                "cache_misses": {"type": "integer"},
                "requests_total": {"type": "integer"},
                "average_request_duration_ms": {"type": "number"},
                "courses_processed": {"type": "integer"},
                "courses_skipped": {"type": "integer"},
                "courses_failed": {"type": "integer"},
                "goroutines": {"type": "integer"},
                "generated_at": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
