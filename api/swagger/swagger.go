package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "EscolaLink API",
        "description": "Grade composition and rubric evaluation engine",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Rubrics", "description": "Evaluation rubric catalog"},
        {"name": "Templates", "description": "Grade composition templates"},
        {"name": "Evaluations", "description": "Per-student rubric level assignments"},
        {"name": "Grades", "description": "Grade cells, sheets and exports"}
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
        "/rubrics": {
            "get": {
                "tags": ["Rubrics"],
                "summary": "List rubrics",
                "parameters": [
                    {"name": "scope", "in": "query", "type": "string", "enum": ["shared", "individual"]},
                    {"name": "mine", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Rubrics"],
                "summary": "Create rubric",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateRubricRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error"}
                }
            }
        },
        "/rubrics/{id}": {
            "get": {
                "tags": ["Rubrics"],
                "summary": "Get rubric by id",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Rubrics"],
                "summary": "Update rubric",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateRubricRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not the rubric owner"}
                }
            },
            "delete": {
                "tags": ["Rubrics"],
                "summary": "Deactivate rubric",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deactivated"},
                    "403": {"description": "Not the rubric owner"}
                }
            }
        },
        "/templates": {
            "get": {
                "tags": ["Templates"],
                "summary": "Get composition template for a cell scope",
                "parameters": [
                    {"name": "class_id", "in": "query", "required": true, "type": "string"},
                    {"name": "subject_id", "in": "query", "required": true, "type": "string"},
                    {"name": "bimester", "in": "query", "required": true, "type": "integer"},
                    {"name": "slot", "in": "query", "required": true, "type": "string", "enum": ["AV1", "AV2", "REC"]},
                    {"name": "year", "in": "query", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No template configured"}
                }
            },
            "put": {
                "tags": ["Templates"],
                "summary": "Create or replace a composition template",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SaveTemplateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Component weights do not sum to 10"}
                }
            }
        },
        "/templates/toggle-rubric": {
            "post": {
                "tags": ["Templates"],
                "summary": "Add or remove a rubric on a template component",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ToggleRubricRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Component already holds its configured rubric count"}
                }
            }
        },
        "/evaluations": {
            "get": {
                "tags": ["Evaluations"],
                "summary": "List a student's persisted evaluations in a cell scope",
                "parameters": [
                    {"name": "class_id", "in": "query", "required": true, "type": "string"},
                    {"name": "subject_id", "in": "query", "required": true, "type": "string"},
                    {"name": "bimester", "in": "query", "required": true, "type": "integer"},
                    {"name": "slot", "in": "query", "required": true, "type": "string", "enum": ["AV1", "AV2", "REC"]},
                    {"name": "year", "in": "query", "required": true, "type": "integer"},
                    {"name": "student_id", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/evaluations/flush": {
            "post": {
                "tags": ["Evaluations"],
                "summary": "Persist a batch of staged level selections",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/FlushEvaluationsRequest"}}
                ],
                "responses": {
                    "200": {"description": "All entries persisted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "207": {"description": "Partial success", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/grades/cell": {
            "get": {
                "tags": ["Grades"],
                "summary": "Resolve the display state of one grade cell",
                "parameters": [
                    {"name": "class_id", "in": "query", "required": true, "type": "string"},
                    {"name": "subject_id", "in": "query", "required": true, "type": "string"},
                    {"name": "bimester", "in": "query", "required": true, "type": "integer"},
                    {"name": "slot", "in": "query", "required": true, "type": "string", "enum": ["AV1", "AV2", "REC"]},
                    {"name": "year", "in": "query", "required": true, "type": "integer"},
                    {"name": "student_id", "in": "query", "required": true, "type": "string"},
                    {"name": "mode", "in": "query", "type": "string", "enum": ["locked", "manual", "composition"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/grades/breakdown": {
            "get": {
                "tags": ["Grades"],
                "summary": "Explain how one cell's grade is composed",
                "parameters": [
                    {"name": "class_id", "in": "query", "required": true, "type": "string"},
                    {"name": "subject_id", "in": "query", "required": true, "type": "string"},
                    {"name": "bimester", "in": "query", "required": true, "type": "integer"},
                    {"name": "slot", "in": "query", "required": true, "type": "string", "enum": ["AV1", "AV2", "REC"]},
                    {"name": "year", "in": "query", "required": true, "type": "integer"},
                    {"name": "student_id", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/grades": {
            "post": {
                "tags": ["Grades"],
                "summary": "Save one cell's final grade",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SaveGradeRequest"}}
                ],
                "responses": {
                    "200": {"description": "Saved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Composition not ready or invalid value"}
                }
            }
        },
        "/grades/bulk": {
            "post": {
                "tags": ["Grades"],
                "summary": "Save every dirty cell of a class grid",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkSaveRequest"}}
                ],
                "responses": {
                    "200": {"description": "All cells saved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "207": {"description": "Partial success", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/grades/sheet": {
            "get": {
                "tags": ["Grades"],
                "summary": "Assemble the resolved grade sheet of a class",
                "parameters": [
                    {"name": "class_id", "in": "query", "required": true, "type": "string"},
                    {"name": "subject_id", "in": "query", "required": true, "type": "string"},
                    {"name": "bimester", "in": "query", "required": true, "type": "integer"},
                    {"name": "year", "in": "query", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/grades/sheet/export": {
            "get": {
                "tags": ["Grades"],
                "summary": "Export the class grade sheet as CSV or PDF",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "class_id", "in": "query", "required": true, "type": "string"},
                    {"name": "subject_id", "in": "query", "required": true, "type": "string"},
                    {"name": "bimester", "in": "query", "required": true, "type": "integer"},
                    {"name": "year", "in": "query", "required": true, "type": "integer"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File download"}
                }
            }
        }
    },
    "definitions": {
        "RubricLevelRequest": {
            "type": "object",
            "properties": {
                "level": {"type": "string", "enum": ["A", "B", "C", "D", "E"]},
                "descriptor": {"type": "string"}
            }
        },
        "CreateRubricRequest": {
            "type": "object",
            "required": ["name", "levels", "scope"],
            "properties": {
                "name": {"type": "string"},
                "description": {"type": "string"},
                "levels": {"type": "array", "items": {"$ref": "#/definitions/RubricLevelRequest"}},
                "position": {"type": "integer"},
                "scope": {"type": "string", "enum": ["shared", "individual"]}
            }
        },
        "UpdateRubricRequest": {
            "type": "object",
            "required": ["name", "levels"],
            "properties": {
                "name": {"type": "string"},
                "description": {"type": "string"},
                "levels": {"type": "array", "items": {"$ref": "#/definitions/RubricLevelRequest"}},
                "position": {"type": "integer"}
            }
        },
        "ComponentRequest": {
            "type": "object",
            "required": ["name", "max_value", "required_rubric_count"],
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "max_value": {"type": "number"},
                "required_rubric_count": {"type": "integer"},
                "rubric_ids": {"type": "array", "items": {"type": "string"}}
            }
        },
        "SaveTemplateRequest": {
            "type": "object",
            "required": ["class_id", "subject_id", "bimester", "slot", "year", "components"],
            "properties": {
                "class_id": {"type": "string"},
                "subject_id": {"type": "string"},
                "bimester": {"type": "integer"},
                "slot": {"type": "string", "enum": ["AV1", "AV2", "REC"]},
                "year": {"type": "integer"},
                "components": {"type": "array", "items": {"$ref": "#/definitions/ComponentRequest"}}
            }
        },
        "ToggleRubricRequest": {
            "type": "object",
            "required": ["class_id", "subject_id", "bimester", "slot", "year", "component_id", "rubric_id"],
            "properties": {
                "class_id": {"type": "string"},
                "subject_id": {"type": "string"},
                "bimester": {"type": "integer"},
                "slot": {"type": "string", "enum": ["AV1", "AV2", "REC"]},
                "year": {"type": "integer"},
                "component_id": {"type": "string"},
                "rubric_id": {"type": "string"}
            }
        },
        "PendingLevelRequest": {
            "type": "object",
            "required": ["student_id", "rubric_id", "component_id", "level"],
            "properties": {
                "student_id": {"type": "string"},
                "rubric_id": {"type": "string"},
                "component_id": {"type": "string"},
                "level": {"type": "string", "enum": ["A", "B", "C", "D", "E"]}
            }
        },
        "FlushEvaluationsRequest": {
            "type": "object",
            "required": ["class_id", "subject_id", "bimester", "slot", "year", "entries"],
            "properties": {
                "class_id": {"type": "string"},
                "subject_id": {"type": "string"},
                "bimester": {"type": "integer"},
                "slot": {"type": "string", "enum": ["AV1", "AV2", "REC"]},
                "year": {"type": "integer"},
                "entries": {"type": "array", "items": {"$ref": "#/definitions/PendingLevelRequest"}}
            }
        },
        "SaveGradeRequest": {
            "type": "object",
            "required": ["class_id", "subject_id", "bimester", "slot", "year", "student_id", "mode"],
            "properties": {
                "class_id": {"type": "string"},
                "subject_id": {"type": "string"},
                "bimester": {"type": "integer"},
                "slot": {"type": "string", "enum": ["AV1", "AV2", "REC"]},
                "year": {"type": "integer"},
                "student_id": {"type": "string"},
                "mode": {"type": "string", "enum": ["manual", "composition"]},
                "value": {"type": "number"}
            }
        },
        "BulkSaveItem": {
            "type": "object",
            "required": ["student_id", "slot", "mode"],
            "properties": {
                "student_id": {"type": "string"},
                "slot": {"type": "string", "enum": ["AV1", "AV2", "REC"]},
                "mode": {"type": "string", "enum": ["manual", "composition"]},
                "value": {"type": "number"}
            }
        },
        "BulkSaveRequest": {
            "type": "object",
            "required": ["class_id", "subject_id", "bimester", "year", "items"],
            "properties": {
                "class_id": {"type": "string"},
                "subject_id": {"type": "string"},
                "bimester": {"type": "integer"},
                "year": {"type": "integer"},
                "items": {"type": "array", "items": {"$ref": "#/definitions/BulkSaveItem"}}
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
