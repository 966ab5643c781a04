package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Campus Records API",
        "description": "Role-gated academic records: registrations, teaching assignments, grades, attendance and messaging",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Registration, login and token lifecycle"},
        {"name": "Approvals", "description": "Student registration approval workflow"},
        {"name": "Users", "description": "Account directory and group membership"},
        {"name": "Courses", "description": "Course catalog"},
        {"name": "Groups", "description": "Student groups and their catalogs"},
        {"name": "Assignments", "description": "Teaching authority and schedules"},
        {"name": "Grades", "description": "Per-course marks with derived averages"},
        {"name": "Attendance", "description": "Session attendance ledger"},
        {"name": "Notifications", "description": "System notifications"},
        {"name": "Messages", "description": "Direct messaging"},
        {"name": "Files", "description": "Course material"},
        {"name": "Timetables", "description": "Published group timetables"},
        {"name": "Exports", "description": "CSV and PDF reports"}
    ],
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Register a student account",
                "responses": {
                    "201": {"description": "Created, awaiting approval"},
                    "409": {"description": "Username or email taken"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate by username and password",
                "responses": {
                    "200": {"description": "Token pair issued"},
                    "401": {"description": "Invalid credentials"},
                    "403": {"description": "Account not approved"}
                }
            }
        },
        "/approvals/pending": {
            "get": {
                "tags": ["Approvals"],
                "summary": "List students awaiting approval",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/grades": {
            "post": {
                "tags": ["Grades"],
                "summary": "Record marks for a student in a course",
                "responses": {
                    "200": {"description": "Stored"},
                    "400": {"description": "Mark out of range"},
                    "403": {"description": "No teaching authority"}
                }
            }
        },
        "/attendance": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Mark attendance for one student session",
                "responses": {
                    "200": {"description": "Stored"},
                    "403": {"description": "No teaching authority"}
                }
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
