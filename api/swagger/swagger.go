package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Timetable Sync API",
        "description": "Scrapes the university timetable and mirrors it into Google Calendar",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Schedule", "description": "Timetable lookups and exports"},
        {"name": "Sync", "description": "Google Calendar synchronisation"}
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
                    "200": {"description": "Ready"},
                    "503": {"description": "A backing store is unreachable"}
                }
            }
        },
        "/": {
            "post": {
                "tags": ["Schedule"],
                "summary": "Fetch a group's timetable (form endpoint)",
                "consumes": ["application/x-www-form-urlencoded", "application/json"],
                "parameters": [
                    {"name": "group", "in": "formData", "type": "string", "required": true},
                    {"name": "sdate", "in": "formData", "type": "string", "required": true, "description": "dd.mm.yyyy"},
                    {"name": "edate", "in": "formData", "type": "string", "required": true, "description": "dd.mm.yyyy"}
                ],
                "responses": {
                    "200": {"description": "Lessons, or {\"message\": \"no sessions\"}", "schema": {"type": "array", "items": {"$ref": "#/definitions/LessonRecord"}}},
                    "400": {"description": "Invalid input", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "401": {"description": "Site sign in required", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "500": {"description": "Fetch failed", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/api/v1/schedule": {
            "post": {
                "tags": ["Schedule"],
                "summary": "Fetch a group's timetable",
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ScheduleRequest"}}
                ],
                "responses": {
                    "200": {"description": "Lessons, or {\"message\": \"no sessions\"}", "schema": {"type": "array", "items": {"$ref": "#/definitions/LessonRecord"}}},
                    "400": {"description": "Invalid input", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "401": {"description": "Site sign in required", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "500": {"description": "Fetch failed", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/api/v1/schedule/export": {
            "get": {
                "tags": ["Schedule"],
                "summary": "Download a group's timetable as CSV or PDF",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "group", "in": "query", "type": "string", "required": true},
                    {"name": "sdate", "in": "query", "type": "string", "required": true},
                    {"name": "edate", "in": "query", "type": "string", "required": true},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File download"},
                    "400": {"description": "Invalid input", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/api/v1/sync": {
            "post": {
                "tags": ["Sync"],
                "summary": "Sync the timetable into Google Calendar",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SyncRequest"}}
                ],
                "responses": {
                    "200": {"description": "Sync outcome", "schema": {"$ref": "#/definitions/SyncOutcome"}},
                    "400": {"description": "Invalid input", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "401": {"description": "Site sign in required", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "502": {"description": "Calendar unavailable", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/api/v1/sync/jobs": {
            "post": {
                "tags": ["Sync"],
                "summary": "Queue a background calendar sync",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SyncRequest"}}
                ],
                "responses": {
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/SyncJobAccepted"}},
                    "503": {"description": "Background sync disabled or queue full", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/api/v1/sync/jobs/{id}": {
            "get": {
                "tags": ["Sync"],
                "summary": "Inspect a background sync",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Job state", "schema": {"$ref": "#/definitions/SyncJob"}},
                    "404": {"description": "Unknown job", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        }
    },
    "definitions": {
        "ErrorBody": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "code": {"type": "string"}
            }
        },
        "LessonRecord": {
            "type": "object",
            "properties": {
                "date": {"type": "string", "example": "2024-09-02"},
                "lesson_number": {"type": "string"},
                "time": {"type": "string", "example": "08:00-09:20"},
                "start": {"type": "string"},
                "end": {"type": "string"},
                "room": {"type": "string"},
                "teacher": {"type": "string"},
                "group": {"type": "string"},
                "subject": {"type": "string"},
                "lesson_type": {"type": "string"},
                "remote": {"type": "boolean"}
            }
        },
        "ScheduleRequest": {
            "type": "object",
            "required": ["group", "sdate", "edate"],
            "properties": {
                "group": {"type": "string"},
                "sdate": {"type": "string", "example": "02.09.2024"},
                "edate": {"type": "string", "example": "06.09.2024"}
            }
        },
        "SyncRequest": {
            "type": "object",
            "required": ["access_token", "start_date", "end_date"],
            "properties": {
                "access_token": {"type": "string"},
                "start_date": {"type": "string", "example": "2024-09-02"},
                "end_date": {"type": "string", "example": "2024-09-06T23:59:59Z"},
                "group": {"type": "string"}
            }
        },
        "SyncFailure": {
            "type": "object",
            "properties": {
                "operation": {"type": "string", "enum": ["list", "delete", "insert"]},
                "event_id": {"type": "string"},
                "record_index": {"type": "integer"},
                "summary": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "SyncResult": {
            "type": "object",
            "properties": {
                "calendar_id": {"type": "string"},
                "listed": {"type": "integer"},
                "deleted": {"type": "integer"},
                "inserted": {"type": "integer"},
                "skipped": {"type": "array", "items": {"type": "object"}},
                "failures": {"type": "array", "items": {"$ref": "#/definitions/SyncFailure"}},
                "started_at": {"type": "string", "format": "date-time"},
                "finished_at": {"type": "string", "format": "date-time"}
            }
        },
        "SyncOutcome": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["synced", "partial", "unchanged", "no_sessions"]},
                "lessons": {"type": "array", "items": {"$ref": "#/definitions/LessonRecord"}},
                "sync": {"$ref": "#/definitions/SyncResult"}
            }
        },
        "SyncJobAccepted": {
            "type": "object",
            "properties": {
                "job_id": {"type": "string"},
                "status": {"type": "string"}
            }
        },
        "SyncJob": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "status": {"type": "string", "enum": ["QUEUED", "PROCESSING", "FINISHED", "FAILED"]},
                "group": {"type": "string"},
                "start_date": {"type": "string"},
                "end_date": {"type": "string"},
                "attempts": {"type": "integer"},
                "outcome": {"$ref": "#/definitions/SyncOutcome"},
                "error": {"type": "string"},
                "created_at": {"type": "string", "format": "date-time"},
                "finished_at": {"type": "string", "format": "date-time"}
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
