// Package docs registers the OpenAPI description served at /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/v1/room/state": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["room"],
                "summary": "Current room snapshot",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.RoomState"}},
                    "401": {"description": "Unauthorized"},
                    "500": {"description": "Internal Server Error"}
                }
            }
        },
        "/api/v1/room/commands": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["room"],
                "summary": "Apply a manual command",
                "parameters": [{
                    "in": "body",
                    "name": "body",
                    "required": true,
                    "schema": {"$ref": "#/definitions/handlers.CommandRequest"}
                }],
                "responses": {
                    "200": {"description": "applied or rejected"},
                    "400": {"description": "Bad Request"},
                    "503": {"description": "controller busy"}
                }
            }
        },
        "/api/v1/logs": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["logs"],
                "summary": "List session events",
                "parameters": [
                    {"type": "string", "name": "from", "in": "query"},
                    {"type": "string", "name": "to", "in": "query"},
                    {
                        "enum": ["ACCESS", "LIGHT", "FAN_AUTO", "FAN_MANUAL", "OCCUPANCY", "RECLAIM", "SENSOR_ERROR", "COMMAND_REJECTED", "SYSTEM"],
                        "type": "string",
                        "name": "type",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {"description": "count, events"},
                    "400": {"description": "Bad Request"},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/auth/sign-up": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Register an operator",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.authCredentials"}}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        },
        "/auth/sign-in": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Sign in",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.authCredentials"}}],
                "responses": {"200": {"description": "token"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Liveness",
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "handlers.CommandRequest": {
            "type": "object",
            "required": ["command"],
            "properties": {"command": {"type": "string", "example": "light:on"}}
        },
        "handlers.authCredentials": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {"username": {"type": "string"}, "password": {"type": "string"}}
        },
        "models.RoomState": {
            "type": "object",
            "properties": {
                "temperature_c": {"type": "integer"},
                "humidity_pct": {"type": "number"},
                "climate_sampled_at": {"type": "string", "description": "zero time until the first climate sample"},
                "occupied": {"type": "boolean"},
                "presence_confirmed": {"type": "boolean"},
                "light_on": {"type": "boolean"},
                "manual_override": {"type": "boolean"},
                "fan_auto_on": {"type": "boolean"},
                "fan_manual_on": {"type": "boolean"},
                "fan_on_threshold_c": {"type": "integer"},
                "fan_off_threshold_c": {"type": "integer"},
                "door": {"type": "string"},
                "door_holder": {"type": "string"},
                "feedback": {"type": "string"},
                "message": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Room Controller API",
	Description:      "Remote control surface of the single-room automation controller.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
