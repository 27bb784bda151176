package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "MedTrack API",
        "description": "School medication administration and supply tracking",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login and password reset"},
        {"name": "Medication Requests", "description": "Guardian requests and caretaker decisions"},
        {"name": "Schedules", "description": "Per-dose administration tracking"},
        {"name": "Supplies", "description": "Supply lots and FEFO consumption"},
        {"name": "Unit Conversions", "description": "Stored unit ratios"},
        {"name": "Notifications", "description": "Per-user notification feed"}
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/password-reset": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Request password reset code",
                "responses": {"204": {"description": "Code issued"}}
            }
        },
        "/auth/password-reset/confirm": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Redeem reset code",
                "responses": {
                    "204": {"description": "Password replaced"},
                    "401": {"description": "Code invalid or expired"}
                }
            }
        },
        "/medication-requests": {
            "get": {
                "tags": ["Medication Requests"],
                "summary": "List requests",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Medication Requests"],
                "summary": "Submit request",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created"},
                    "403": {"description": "Student not owned by guardian"}
                }
            }
        },
        "/medication-requests/{id}": {
            "get": {
                "tags": ["Medication Requests"],
                "summary": "Get request",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            },
            "put": {
                "tags": ["Medication Requests"],
                "summary": "Update pending request",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Request already decided"}
                }
            },
            "delete": {
                "tags": ["Medication Requests"],
                "summary": "Delete pending request",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "Deleted"},
                    "409": {"description": "Request already decided"}
                }
            }
        },
        "/medication-requests/{id}/approve": {
            "post": {
                "tags": ["Medication Requests"],
                "summary": "Approve request",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "Approved"},
                    "409": {"description": "Request already decided"}
                }
            }
        },
        "/medication-requests/{id}/reject": {
            "post": {
                "tags": ["Medication Requests"],
                "summary": "Reject request",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "Rejected"},
                    "409": {"description": "Request already decided"}
                }
            }
        },
        "/schedules": {
            "get": {
                "tags": ["Schedules"],
                "summary": "List dose schedules",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/schedules/{id}/status": {
            "put": {
                "tags": ["Schedules"],
                "summary": "Record dose outcome",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "Recorded"},
                    "403": {"description": "Not the approving caretaker"},
                    "409": {"description": "Dose already recorded"}
                }
            }
        },
        "/schedules/{id}/note": {
            "put": {
                "tags": ["Schedules"],
                "summary": "Update dose note",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "Updated"}}
            }
        },
        "/supplies": {
            "get": {
                "tags": ["Supplies"],
                "summary": "List supply lots",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Supplies"],
                "summary": "Register supply lot",
                "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/supplies/total": {
            "get": {
                "tags": ["Supplies"],
                "summary": "Total available stock for a supply name",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/supplies/consume": {
            "post": {
                "tags": ["Supplies"],
                "summary": "Consume stock across lots (soonest expiration first)",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Depleted"},
                    "409": {"description": "Insufficient stock"}
                }
            }
        },
        "/unit-conversions": {
            "get": {
                "tags": ["Unit Conversions"],
                "summary": "List conversions",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            },
            "put": {
                "tags": ["Unit Conversions"],
                "summary": "Create or update conversion",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Stored"}}
            },
            "delete": {
                "tags": ["Unit Conversions"],
                "summary": "Delete conversion",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List notifications",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
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
