package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Appointments API",
        "description": "Customer appointments with weekly recurring series and overlap protection",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Customers", "description": "Customer registry with soft delete"},
        {"name": "Appointments", "description": "Standalone and generated appointments of a customer"},
        {"name": "Series", "description": "Weekly recurring series and instance generation"},
        {"name": "System", "description": "Probes and metrics"}
    ],
    "paths": {
        "/customers": {
            "get": {
                "tags": ["Customers"],
                "summary": "List customers",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "per_page", "in": "query", "type": "integer", "maximum": 100}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Customers"],
                "summary": "Create customer",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CustomerRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/customers/{customerID}": {
            "parameters": [{"name": "customerID", "in": "path", "required": true, "type": "string"}],
            "get": {
                "tags": ["Customers"],
                "summary": "Get customer",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Customers"],
                "summary": "Update customer",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CustomerRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Customers"],
                "summary": "Soft delete customer",
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/customers/{customerID}/restore": {
            "post": {
                "tags": ["Customers"],
                "summary": "Restore a soft-deleted customer",
                "parameters": [{"name": "customerID", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Email taken by an active customer", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/customers/{customerID}/force-delete": {
            "delete": {
                "tags": ["Customers"],
                "summary": "Permanently delete customer with its series and appointments",
                "parameters": [{"name": "customerID", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/customers/{customerID}/appointments": {
            "parameters": [{"name": "customerID", "in": "path", "required": true, "type": "string"}],
            "get": {
                "tags": ["Appointments"],
                "summary": "List appointments of a customer",
                "parameters": [
                    {"name": "from", "in": "query", "type": "string", "description": "RFC3339 or YYYY-MM-DD"},
                    {"name": "to", "in": "query", "type": "string", "description": "RFC3339 or YYYY-MM-DD (whole day)"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["active", "trashed", "all"]},
                    {"name": "include_series", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "per_page", "in": "query", "type": "integer", "maximum": 100}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Appointments"],
                "summary": "Create standalone appointment",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AppointmentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Overlaps an active appointment", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/customers/{customerID}/appointments/export": {
            "get": {
                "tags": ["Appointments"],
                "summary": "Export agenda",
                "produces": ["text/csv", "application/pdf", "text/calendar"],
                "parameters": [
                    {"name": "customerID", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf", "ics"]},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"},
                    {"name": "timezone", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "Agenda file", "schema": {"type": "file"}}}
            }
        },
        "/customers/{customerID}/appointments/{appointmentID}": {
            "parameters": [
                {"name": "customerID", "in": "path", "required": true, "type": "string"},
                {"name": "appointmentID", "in": "path", "required": true, "type": "string"}
            ],
            "get": {
                "tags": ["Appointments"],
                "summary": "Get appointment",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "put": {
                "tags": ["Appointments"],
                "summary": "Update appointment",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AppointmentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Overlaps an active appointment", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Appointments"],
                "summary": "Soft delete appointment",
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/customers/{customerID}/series": {
            "parameters": [{"name": "customerID", "in": "path", "required": true, "type": "string"}],
            "get": {
                "tags": ["Series"],
                "summary": "List series",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "enum": ["active", "inactive", "all"]},
                    {"name": "include_weekdays", "in": "query", "type": "boolean"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Series"],
                "summary": "Create series",
                "parameters": [
                    {"name": "generate", "in": "query", "type": "boolean"},
                    {"name": "weeks", "in": "query", "type": "integer", "minimum": 1, "maximum": 52},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SeriesRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "A generated instance overlaps", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/customers/{customerID}/series/{seriesID}": {
            "parameters": [
                {"name": "customerID", "in": "path", "required": true, "type": "string"},
                {"name": "seriesID", "in": "path", "required": true, "type": "string"}
            ],
            "get": {
                "tags": ["Series"],
                "summary": "Get series",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "put": {
                "tags": ["Series"],
                "summary": "Update series, optionally regenerating future instances",
                "parameters": [
                    {"name": "regenerate", "in": "query", "type": "boolean"},
                    {"name": "weeks", "in": "query", "type": "integer", "minimum": 1, "maximum": 52},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SeriesRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "A generated instance overlaps", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Series"],
                "summary": "Deactivate series",
                "parameters": [{"name": "delete_future", "in": "query", "type": "boolean"}],
                "responses": {"204": {"description": "No Content"}}
            }
        }
    },
    "definitions": {
        "CustomerRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "email": {"type": "string"},
                "phone": {"type": "string"}
            }
        },
        "AppointmentRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "notes": {"type": "string"},
                "starts_at": {"type": "string", "format": "date-time"},
                "ends_at": {"type": "string", "format": "date-time"}
            }
        },
        "WeekdaySlot": {
            "type": "object",
            "properties": {
                "weekday": {"type": "integer", "minimum": 0, "maximum": 6, "description": "0 is Sunday"},
                "start_time": {"type": "string", "example": "09:00"},
                "end_time": {"type": "string", "example": "10:00"}
            }
        },
        "SeriesRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "notes": {"type": "string"},
                "timezone": {"type": "string", "example": "America/Sao_Paulo"},
                "starts_on": {"type": "string", "format": "date"},
                "ends_on": {"type": "string", "format": "date"},
                "is_active": {"type": "boolean"},
                "weekdays": {"type": "array", "items": {"$ref": "#/definitions/WeekdaySlot"}}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"},
                "total_pages": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "object"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "message": {"type": "string"},
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
