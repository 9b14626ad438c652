package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Harmony Timetable API",
        "description": "Generates clash-free weekly timetables with harmony search and manages saved versions.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Timetables", "description": "Generation, proposals and stored versions"},
        {"name": "Exports", "description": "CSV, PDF and XLSX downloads"},
        {"name": "Metrics", "description": "Operational snapshots"}
    ],
    "paths": {
        "/timetables/generate": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Generate the best timetable proposal",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateTimetableRequest"}}
                ],
                "responses": {
                    "200": {"description": "Preview proposal", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "No clash-free timetable, error message carries the hint", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/generate-set": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Generate several distinct timetable proposals",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateTimetableSetRequest"}}
                ],
                "responses": {
                    "200": {"description": "Proposals ordered best first", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Infeasible", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/jobs": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Queue a timetable-set generation",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateTimetableSetRequest"}}
                ],
                "responses": {
                    "202": {"description": "Job accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Queue full", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/jobs/{id}": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Poll a generation job",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "Job status", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown or expired job", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/proposals/{id}": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Fetch a generated proposal before it expires",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "Proposal", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown or expired proposal", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/proposals/{id}/export": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a generated proposal",
                "produces": ["text/csv", "application/pdf", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf", "xlsx"], "default": "csv"}
                ],
                "responses": {"200": {"description": "File", "schema": {"type": "file"}}}
            }
        },
        "/timetables": {
            "get": {
                "tags": ["Timetables"],
                "summary": "List stored timetables",
                "parameters": [
                    {"name": "department", "in": "query", "type": "string"},
                    {"name": "shift", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["PENDING_APPROVAL", "APPROVED", "ARCHIVED"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "Timetables", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Timetables"],
                "summary": "Persist a proposal as a new timetable version",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SaveTimetableRequest"}}
                ],
                "responses": {
                    "201": {"description": "Stored timetable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Proposal expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/{id}": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Get a stored timetable",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "Timetable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Timetables"],
                "summary": "Delete a pending timetable",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "Deleted"},
                    "409": {"description": "Only pending timetables can be deleted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/{id}/slots": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Get the placed lectures of a stored timetable",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "Slots", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/timetables/{id}/status": {
            "patch": {
                "tags": ["Timetables"],
                "summary": "Approve or archive a stored timetable",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateTimetableStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "Updated timetable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Transition not allowed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/{id}/export": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a stored timetable",
                "produces": ["text/csv", "application/pdf", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf", "xlsx"], "default": "csv"}
                ],
                "responses": {"200": {"description": "File", "schema": {"type": "file"}}}
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Metrics"],
                "summary": "Generation and request metrics snapshot",
                "responses": {"200": {"description": "Snapshot", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        }
    },
    "definitions": {
        "DaySlot": {
            "type": "object",
            "properties": {
                "day": {"type": "string"},
                "slot": {"type": "integer"}
            }
        },
        "Room": {
            "type": "object",
            "required": ["id"],
            "properties": {
                "id": {"type": "string", "description": "Ids containing LAB are lab rooms unless category is set"},
                "capacity": {"type": "integer", "minimum": 1},
                "category": {"type": "string", "enum": ["lecture", "lab"]}
            }
        },
        "Teacher": {
            "type": "object",
            "required": ["id"],
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "unavailable": {"type": "array", "items": {"$ref": "#/definitions/DaySlot"}}
            }
        },
        "Batch": {
            "type": "object",
            "required": ["id"],
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "size": {"type": "integer", "minimum": 1}
            }
        },
        "Subject": {
            "type": "object",
            "required": ["id", "teacherId", "batchIds", "perWeek"],
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "teacherId": {"type": "string"},
                "batchIds": {"type": "array", "items": {"type": "string"}},
                "perWeek": {"type": "integer"},
                "needsLab": {"type": "boolean"}
            }
        },
        "GenerationOptions": {
            "type": "object",
            "properties": {
                "harmonyMemorySize": {"type": "integer"},
                "pitchAdjustmentRate": {"type": "number", "description": "Omit for the default, 0 disables swaps"},
                "generations": {"type": "integer", "description": "Omit for the default, 0 skips refinement"},
                "strategy": {"type": "string", "enum": ["greedy", "round_robin"]},
                "maxBuildAttempts": {"type": "integer"},
                "maxTeacherLoadPerDay": {"type": "integer"},
                "maxBatchLoadPerDay": {"type": "integer"},
                "validateMutations": {"type": "boolean"},
                "relaxedRetry": {"type": "boolean"},
                "seed": {"type": "integer"}
            }
        },
        "GenerateTimetableRequest": {
            "type": "object",
            "required": ["days", "slotsPerDay", "subjects"],
            "properties": {
                "department": {"type": "string"},
                "shift": {"type": "string"},
                "days": {"type": "array", "items": {"type": "string"}},
                "slotsPerDay": {"type": "integer"},
                "rooms": {"type": "array", "items": {"$ref": "#/definitions/Room"}},
                "teachers": {"type": "array", "items": {"$ref": "#/definitions/Teacher"}},
                "batches": {"type": "array", "items": {"$ref": "#/definitions/Batch"}},
                "subjects": {"type": "array", "items": {"$ref": "#/definitions/Subject"}},
                "options": {"$ref": "#/definitions/GenerationOptions"}
            }
        },
        "GenerateTimetableSetRequest": {
            "allOf": [
                {"$ref": "#/definitions/GenerateTimetableRequest"},
                {"type": "object", "required": ["count"], "properties": {"count": {"type": "integer"}}}
            ]
        },
        "SaveTimetableRequest": {
            "type": "object",
            "required": ["proposalId"],
            "properties": {
                "proposalId": {"type": "string"},
                "publish": {"type": "boolean"}
            }
        },
        "UpdateTimetableStatusRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string", "enum": ["PENDING_APPROVAL", "APPROVED", "ARCHIVED"]}
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
                "status": {"type": "integer"},
                "details": {"type": "object", "description": "Attempts and failure reasons for TIMETABLE_INFEASIBLE"}
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
