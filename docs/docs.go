// Package docs registers the swagger spec for the guestbook API.
// Regenerate with: swag init -g cmd/server/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/v1/entries": {
            "get": {
                "produces": ["application/json"],
                "tags": ["留言"],
                "summary": "最新留言（新的在前）",
                "parameters": [
                    {"type": "integer", "default": 100, "description": "条数", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            },
            "post": {
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["留言"],
                "summary": "新增留言",
                "parameters": [
                    {"description": "留言内容", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.createEntryRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Response"}},
                    "413": {"description": "Request Entity Too Large", "schema": {"$ref": "#/definitions/response.Response"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/response.Response"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/healthz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["系统"],
                "summary": "健康检查",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        }
    },
    "definitions": {
        "handler.createEntryRequest": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "name": {"type": "string"}
            }
        },
        "model.Entry": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "id": {"type": "integer"},
                "message": {"type": "string"},
                "name": {"type": "string"}
            }
        },
        "response.Response": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "data": {},
                "message": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Guestbook API",
	Description:      "Sign the guestbook and read recent entries.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
