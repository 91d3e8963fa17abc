// Package docs registra el documento OpenAPI servido en /swagger.
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
        "/health": {
            "get": {
                "produces": ["text/plain"],
                "tags": ["ops"],
                "summary": "Liveness",
                "responses": {
                    "200": {"description": "ok", "schema": {"type": "string"}}
                }
            }
        },
        "/iob": {
            "get": {
                "produces": ["application/json"],
                "tags": ["ops"],
                "summary": "Insulina activa",
                "parameters": [
                    {"type": "string", "description": "secret del webhook", "name": "X-Telegram-Bot-Api-Secret-Token", "in": "header"},
                    {"type": "string", "description": "instante RFC3339 (default ahora)", "name": "at", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/router.iobResponse"}},
                    "400": {"description": "at inválido", "schema": {"type": "string"}},
                    "401": {"description": "secret inválido", "schema": {"type": "string"}},
                    "503": {"description": "ledger ilegible", "schema": {"type": "string"}}
                }
            }
        },
        "/telegram/webhook": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["text/plain"],
                "tags": ["telegram"],
                "summary": "Update de la Bot API",
                "parameters": [
                    {"type": "string", "description": "secret del webhook", "name": "X-Telegram-Bot-Api-Secret-Token", "in": "header"},
                    {"description": "Update", "name": "update", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "ok", "schema": {"type": "string"}},
                    "400": {"description": "json inválido", "schema": {"type": "string"}},
                    "401": {"description": "secret inválido", "schema": {"type": "string"}}
                }
            }
        }
    },
    "definitions": {
        "router.iobResponse": {
            "type": "object",
            "properties": {
                "at": {"type": "string"},
                "iob": {"type": "number"},
                "window_hours": {"type": "number"}
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
	Title:            "glucobot",
	Description:      "Webhook de Telegram y endpoints operativos del bot de glucosa.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
