// Package docs holds the Swagger 2.0 document served under /swagger by cmd/api.
// Keep it in step with the handler annotations; `go generate ./cmd/api` rewrites it with swag.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API Support"
        },
        "license": {
            "name": "Apache 2.0",
            "url": "http://www.apache.org/licenses/LICENSE-2.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.HealthResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/dto.HealthResponse"}}
                }
            }
        },
        "/uploads": {
            "post": {
                "description": "Stores one or more PDFs and returns an upload id used to generate quizzes",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["uploads"],
                "summary": "Upload PDF documents",
                "parameters": [
                    {"type": "file", "description": "PDF files", "name": "files", "in": "formData", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.UploadResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}}
                }
            }
        },
        "/quizzes": {
            "post": {
                "description": "Extracts the text of an upload and asks the LLM for multiple-choice questions",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["quiz"],
                "summary": "Generate a quiz",
                "parameters": [
                    {"description": "Upload and difficulty", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.CreateQuizRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.QuizSessionResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/middleware.ValidationErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}}
                }
            }
        },
        "/quizzes/{id}": {
            "get": {
                "description": "Returns questions and current selections without the answer key",
                "produces": ["application/json"],
                "tags": ["quiz"],
                "summary": "Get a quiz session",
                "parameters": [
                    {"type": "string", "description": "Session ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.QuizSessionResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}}
                }
            }
        },
        "/quizzes/{id}/answers/{index}": {
            "put": {
                "description": "Records the option chosen for one question",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["quiz"],
                "summary": "Select an answer",
                "parameters": [
                    {"type": "string", "description": "Session ID", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "description": "Question index", "name": "index", "in": "path", "required": true},
                    {"description": "Option key", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.SelectAnswerRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.QuizSessionResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}}
                }
            }
        },
        "/quizzes/{id}/submit": {
            "post": {
                "description": "Grades the session and returns the score with a per-question review",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["quiz"],
                "summary": "Submit a quiz",
                "parameters": [
                    {"type": "string", "description": "Session ID", "name": "id", "in": "path", "required": true},
                    {"description": "Answers to apply before grading", "name": "request", "in": "body", "schema": {"$ref": "#/definitions/dto.SubmitQuizRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.QuizResultResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}}
                }
            }
        },
        "/results": {
            "get": {
                "description": "Returns the most recent graded quizzes, newest first",
                "produces": ["application/json"],
                "tags": ["results"],
                "summary": "List recent results",
                "parameters": [
                    {"type": "integer", "description": "Maximum number of results (1-100)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.ResultsResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/middleware.ValidationErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.ValidationError": {
            "type": "object",
            "properties": {
                "field": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "dto.CreateQuizRequest": {
            "type": "object",
            "properties": {
                "level": {"type": "string", "example": "Medium"},
                "upload_id": {"type": "string", "example": "01HZY8Q2ZKX3V6B7N8M9P0QRST"}
            }
        },
        "dto.HealthResponse": {
            "type": "object",
            "properties": {
                "cache": {"type": "string"},
                "status": {"type": "string"}
            }
        },
        "dto.OptionView": {
            "type": "object",
            "properties": {
                "key": {"type": "string"},
                "text": {"type": "string"}
            }
        },
        "dto.QuestionReviewResponse": {
            "type": "object",
            "properties": {
                "correct_answer": {"type": "string"},
                "index": {"type": "integer"},
                "is_correct": {"type": "boolean"},
                "question": {"type": "string"},
                "selected": {"type": "string"}
            }
        },
        "dto.QuestionView": {
            "type": "object",
            "properties": {
                "correct_answer": {"type": "string"},
                "index": {"type": "integer"},
                "options": {"type": "array", "items": {"$ref": "#/definitions/dto.OptionView"}},
                "question": {"type": "string"},
                "selected": {"type": "string"}
            }
        },
        "dto.QuizResultResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "level": {"type": "string"},
                "review": {"type": "array", "items": {"$ref": "#/definitions/dto.QuestionReviewResponse"}},
                "score": {"type": "integer"},
                "session_id": {"type": "string"},
                "submitted_at": {"type": "string"},
                "summary": {"type": "string"},
                "total": {"type": "integer"}
            }
        },
        "dto.QuizSessionResponse": {
            "type": "object",
            "properties": {
                "answered": {"type": "integer"},
                "created_at": {"type": "string"},
                "id": {"type": "string"},
                "level": {"type": "string"},
                "notice": {"type": "string"},
                "questions": {"type": "array", "items": {"$ref": "#/definitions/dto.QuestionView"}},
                "score": {"type": "integer"},
                "submitted": {"type": "boolean"},
                "submitted_at": {"type": "string"},
                "total": {"type": "integer"},
                "upload_id": {"type": "string"}
            }
        },
        "dto.ResultsResponse": {
            "type": "object",
            "properties": {
                "results": {"type": "array", "items": {"$ref": "#/definitions/dto.QuizResultResponse"}}
            }
        },
        "dto.SelectAnswerRequest": {
            "type": "object",
            "properties": {
                "option": {"type": "string", "example": "b"}
            }
        },
        "dto.SubmitQuizRequest": {
            "type": "object",
            "properties": {
                "answers": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "dto.UploadResponse": {
            "type": "object",
            "properties": {
                "files": {"type": "array", "items": {"type": "string"}},
                "upload_id": {"type": "string"}
            }
        },
        "middleware.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "details": {"type": "object", "additionalProperties": true},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "middleware.ValidationErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "errors": {"type": "array", "items": {"$ref": "#/definitions/domain.ValidationError"}},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8090",
	BasePath:         "/api",
	Schemes:          []string{"http", "https"},
	Title:            "PDF Quiz API",
	Description:      "Turns uploaded PDF documents into multiple-choice quizzes generated by an LLM.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
