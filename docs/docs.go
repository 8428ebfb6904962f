// Package docs registers the OpenAPI document served under /swagger.
// Regenerate with: swag init -g cmd/server/main.go -o docs
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
        "/auth/signup": {"post": {"tags": ["Auth"], "summary": "Register a user", "operationId": "signup", "responses": {"201": {"description": "Created"}, "400": {"description": "Validation failed or email already registered"}}}},
        "/auth/login": {"post": {"tags": ["Auth"], "summary": "Log in by email", "operationId": "login", "responses": {"200": {"description": "OK"}, "404": {"description": "User not found"}}}},
        "/auth/user/{user_id}": {"get": {"tags": ["Auth"], "summary": "Get a user", "operationId": "getUser", "parameters": [{"type": "string", "name": "user_id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/auth/user/{user_id}/preferences": {"put": {"tags": ["Auth"], "summary": "Update voice and companion preferences", "operationId": "updatePreferences", "parameters": [{"type": "string", "name": "user_id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "400": {"description": "Unknown voice or gender"}, "404": {"description": "Not Found"}}}},
        "/auth/users": {"get": {"tags": ["Auth"], "summary": "List users", "operationId": "listUsers", "responses": {"200": {"description": "OK"}}}},
        "/companion/all": {"get": {"tags": ["Companions"], "summary": "List companions", "operationId": "listCompanions", "responses": {"200": {"description": "OK"}}}},
        "/companion/create": {"post": {"tags": ["Companions"], "summary": "Create a companion", "operationId": "createCompanion", "responses": {"201": {"description": "Created"}, "400": {"description": "Validation failed"}, "409": {"description": "Gender already taken"}}}},
        "/companion/get_story/{gender}": {"get": {"tags": ["Companions"], "summary": "Get the companion for a gender", "operationId": "getCompanionStory", "parameters": [{"enum": ["boy", "girl"], "type": "string", "name": "gender", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid gender"}, "404": {"description": "No companion for the gender"}}}},
        "/companion/{companion_id}": {
            "get": {"tags": ["Companions"], "summary": "Get a companion by id", "operationId": "getCompanion", "parameters": [{"type": "string", "name": "companion_id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "delete": {"tags": ["Companions"], "summary": "Delete a companion", "operationId": "deleteCompanion", "parameters": [{"type": "string", "name": "companion_id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/chat/send": {"post": {"tags": ["Chat"], "summary": "Send a message to a companion", "operationId": "sendChat", "parameters": [{"type": "string", "name": "Idempotency-Key", "in": "header"}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "User or companion not found"}, "429": {"description": "Too Many Requests"}}}},
        "/chat/history/{user_id}": {
            "get": {"tags": ["Chat"], "summary": "Recent chat turns of a user", "operationId": "getChatHistory", "parameters": [{"type": "string", "name": "user_id", "in": "path", "required": true}, {"enum": ["boy", "girl"], "type": "string", "name": "companion_gender", "in": "query"}, {"maximum": 100, "minimum": 1, "type": "integer", "default": 50, "name": "limit", "in": "query"}, {"type": "string", "name": "If-None-Match", "in": "header"}], "responses": {"200": {"description": "OK"}, "304": {"description": "Not Modified"}, "400": {"description": "Bad Request"}}},
            "delete": {"tags": ["Chat"], "summary": "Delete a user's chat history", "operationId": "clearChatHistory", "parameters": [{"type": "string", "name": "user_id", "in": "path", "required": true}, {"enum": ["boy", "girl"], "type": "string", "name": "companion_gender", "in": "query"}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}
        },
        "/chat/history/{user_id}/{chat_id}": {"get": {"tags": ["Chat"], "summary": "One chat turn of a user", "operationId": "getChatTurn", "parameters": [{"type": "string", "name": "user_id", "in": "path", "required": true}, {"type": "string", "name": "chat_id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/chat/stats/{user_id}": {"get": {"tags": ["Chat"], "summary": "Turn counts per companion gender", "operationId": "getChatStats", "parameters": [{"type": "string", "name": "user_id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/voice/chat": {"post": {"tags": ["Voice"], "summary": "Chat with audio reply", "operationId": "voiceChat", "parameters": [{"type": "string", "name": "Idempotency-Key", "in": "header"}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "User or companion not found"}}}},
        "/voice/tts": {"post": {"produces": ["audio/mpeg"], "tags": ["Voice"], "summary": "Synthesize speech", "operationId": "textToSpeech", "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "503": {"description": "Speech not configured"}}}},
        "/voice/check-tts": {"get": {"tags": ["Voice"], "summary": "Speech availability", "operationId": "checkTTS", "responses": {"200": {"description": "OK"}}}},
        "/voice/voices": {"get": {"tags": ["Voice"], "summary": "Selectable voices", "operationId": "listVoices", "responses": {"200": {"description": "OK"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "AI Companion Backend API",
	Description:      "Persona-driven companion chat with text and voice replies.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
