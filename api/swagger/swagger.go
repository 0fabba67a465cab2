package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Accommodations API",
        "description": "Time-extension entitlements propagated as quiz and assignment deadline overrides",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Authentication"},
        {"name": "Types", "description": "Accommodation type catalog"},
        {"name": "Profiles", "description": "Per-user accommodation profiles"},
        {"name": "Overrides", "description": "Per-activity extension overrides"},
        {"name": "Activities", "description": "Activity accommodation status"},
        {"name": "Propagation", "description": "Deadline propagation"},
        {"name": "History", "description": "Append-only change log"},
        {"name": "Import", "description": "CSV bulk import"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate and issue an access token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Return the authenticated user's claims",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/types": {
            "get": {
                "tags": ["Types"],
                "summary": "List accommodation types",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Types"],
                "summary": "Create accommodation type",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateTypeRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Name already in use"}
                }
            }
        },
        "/types/{id}": {
            "get": {
                "tags": ["Types"],
                "summary": "Get accommodation type",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Types"],
                "summary": "Update accommodation type",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateTypeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Types"],
                "summary": "Delete accommodation type",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "409": {"description": "Type is referenced by profiles"}
                }
            }
        },
        "/profiles": {
            "get": {
                "tags": ["Profiles"],
                "summary": "List accommodation profiles",
                "parameters": [
                    {"name": "user_id", "in": "query", "type": "string"},
                    {"name": "type_id", "in": "query", "type": "string"},
                    {"name": "course_id", "in": "query", "type": "string"},
                    {"name": "category_id", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Profiles"],
                "summary": "Create accommodation profile",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateProfileRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/profiles/bulk": {
            "post": {
                "tags": ["Profiles"],
                "summary": "Delete or apply profiles in bulk",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkProfileRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/profiles/{id}": {
            "get": {
                "tags": ["Profiles"],
                "summary": "Get accommodation profile",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Profiles"],
                "summary": "Update accommodation profile",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateProfileRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Profiles"],
                "summary": "Delete profile and its overrides",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/profiles/{id}/overrides": {
            "get": {
                "tags": ["Overrides"],
                "summary": "List overrides attached to a profile",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/overrides": {
            "put": {
                "tags": ["Overrides"],
                "summary": "Create or replace the override for a profile and activity pair",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetOverrideRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/overrides/{id}": {
            "delete": {
                "tags": ["Overrides"],
                "summary": "Delete an override",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/activities/{id}/status": {
            "get": {
                "tags": ["Activities"],
                "summary": "Get accommodation status for an activity",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Activities"],
                "summary": "Enable or disable accommodations for an activity",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/activities/{id}/apply": {
            "post": {
                "tags": ["Activities"],
                "summary": "Apply accommodations to one activity",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "overwrite", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{id}/apply": {
            "post": {
                "tags": ["Propagation"],
                "summary": "Apply accommodations to every eligible activity in a course",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "overwrite", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Course not found"}
                }
            }
        },
        "/categories/{id}/apply": {
            "post": {
                "tags": ["Propagation"],
                "summary": "Apply accommodations across a category tree",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "overwrite", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Category not found"}
                }
            }
        },
        "/propagation/apply-all": {
            "post": {
                "tags": ["Propagation"],
                "summary": "Apply accommodations across every course with active profiles",
                "parameters": [
                    {"name": "overwrite", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/history": {
            "get": {
                "tags": ["History"],
                "summary": "List accommodation history entries",
                "parameters": [
                    {"name": "user_id", "in": "query", "type": "string"},
                    {"name": "course_id", "in": "query", "type": "string"},
                    {"name": "activity_id", "in": "query", "type": "string"},
                    {"name": "kind", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/history/export": {
            "get": {
                "tags": ["History"],
                "summary": "Export history entries as CSV or PDF",
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File download"}
                }
            }
        },
        "/import": {
            "post": {
                "tags": ["Import"],
                "summary": "Import accommodation profiles from a CSV file",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "required": true, "type": "file"},
                    {"name": "course_id", "in": "formData", "type": "string"},
                    {"name": "category_id", "in": "formData", "type": "string"},
                    {"name": "apply", "in": "formData", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/import/template": {
            "get": {
                "tags": ["Import"],
                "summary": "Download the CSV import template",
                "responses": {
                    "200": {"description": "File download"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "CreateTypeRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "description": {"type": "string"},
                "default_extension": {"type": "integer"}
            },
            "required": ["name"]
        },
        "UpdateTypeRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "description": {"type": "string"},
                "default_extension": {"type": "integer"}
            }
        },
        "CreateProfileRequest": {
            "type": "object",
            "properties": {
                "user_id": {"type": "string"},
                "type_id": {"type": "string"},
                "extension": {"type": "integer"},
                "course_id": {"type": "string"},
                "category_id": {"type": "string"},
                "start_date": {"type": "string", "format": "date-time"},
                "end_date": {"type": "string", "format": "date-time"},
                "notes": {"type": "string"}
            },
            "required": ["user_id", "type_id"]
        },
        "UpdateProfileRequest": {
            "type": "object",
            "properties": {
                "type_id": {"type": "string"},
                "extension": {"type": "integer"},
                "course_id": {"type": "string"},
                "category_id": {"type": "string"},
                "start_date": {"type": "string", "format": "date-time"},
                "end_date": {"type": "string", "format": "date-time"},
                "notes": {"type": "string"}
            }
        },
        "BulkProfileRequest": {
            "type": "object",
            "properties": {
                "action": {"type": "string", "enum": ["delete", "apply"]},
                "ids": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["action", "ids"]
        },
        "SetOverrideRequest": {
            "type": "object",
            "properties": {
                "profile_id": {"type": "string"},
                "activity_id": {"type": "string"},
                "extension": {"type": "integer"},
                "notes": {"type": "string"}
            },
            "required": ["profile_id", "activity_id"]
        },
        "SetStatusRequest": {
            "type": "object",
            "properties": {
                "disabled": {"type": "boolean"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
                "pagination": {"$ref": "#/definitions/Pagination"},
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
