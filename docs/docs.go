// Package docs 提供 Swagger 文档模板。
//
// 模板按 swag init 的输出格式手动维护，修改接口注释后需同步更新。
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
        "/email/{id}": {
            "get": {
                "description": "返回邮件内容并标记为已读",
                "produces": ["application/json"],
                "tags": ["Messages"],
                "summary": "获取邮件详情",
                "parameters": [
                    {"type": "string", "description": "邮件ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.emailResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httptransport.Response"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["Messages"],
                "summary": "删除邮件",
                "parameters": [
                    {"type": "string", "description": "邮件ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.messageActionResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httptransport.Response"}}
                }
            }
        },
        "/generate-email": {
            "post": {
                "description": "生成一个新的临时地址，固定时间后过期",
                "produces": ["application/json"],
                "tags": ["Mailboxes"],
                "summary": "生成临时邮箱",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.generateEmailResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/httptransport.Response"}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["System"],
                "summary": "服务状态",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.healthResponse"}}
                }
            }
        },
        "/inbox/{email}": {
            "get": {
                "description": "按到达顺序返回地址收到的全部邮件",
                "produces": ["application/json"],
                "tags": ["Mailboxes"],
                "summary": "获取收件箱",
                "parameters": [
                    {"type": "string", "description": "邮箱地址", "name": "email", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.inboxResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httptransport.Response"}}
                }
            }
        },
        "/webhook/email": {
            "post": {
                "description": "外部发件方投递邮件的唯一入口",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Messages"],
                "summary": "接收邮件",
                "parameters": [
                    {"description": "邮件内容", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httptransport.webhookRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.webhookResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httptransport.Response"}},
                    "413": {"description": "Request Entity Too Large", "schema": {"$ref": "#/definitions/httptransport.Response"}}
                }
            }
        },
        "/ws": {
            "get": {
                "description": "升级为 WebSocket 连接并订阅单个地址的 new_mail、address_expired 事件",
                "tags": ["Realtime"],
                "summary": "订阅实时推送",
                "parameters": [
                    {"type": "string", "description": "邮箱地址", "name": "address", "in": "query", "required": true}
                ],
                "responses": {
                    "101": {"description": "Switching Protocols"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httptransport.Response"}}
                }
            }
        }
    },
    "definitions": {
        "httptransport.Response": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "success": {"type": "boolean"}
            }
        },
        "httptransport.emailResponse": {
            "type": "object",
            "properties": {
                "email": {"$ref": "#/definitions/httptransport.messageResponse"},
                "success": {"type": "boolean"}
            }
        },
        "httptransport.generateEmailResponse": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "expiresAt": {"type": "integer"},
                "success": {"type": "boolean"}
            }
        },
        "httptransport.healthResponse": {
            "type": "object",
            "properties": {
                "checks": {"type": "object", "additionalProperties": {"type": "string"}},
                "message": {"type": "string"},
                "success": {"type": "boolean"},
                "timestamp": {"type": "integer"}
            }
        },
        "httptransport.inboxResponse": {
            "type": "object",
            "properties": {
                "emails": {"type": "array", "items": {"$ref": "#/definitions/httptransport.messageResponse"}},
                "success": {"type": "boolean"}
            }
        },
        "httptransport.messageActionResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "success": {"type": "boolean"}
            }
        },
        "httptransport.messageResponse": {
            "type": "object",
            "properties": {
                "body": {"type": "string"},
                "from": {"type": "string"},
                "id": {"type": "string"},
                "read": {"type": "boolean"},
                "subject": {"type": "string"},
                "timestamp": {"type": "integer"}
            }
        },
        "httptransport.webhookRequest": {
            "type": "object",
            "properties": {
                "body": {"type": "string"},
                "from": {"type": "string"},
                "subject": {"type": "string"},
                "timestamp": {"type": "integer"},
                "to": {"type": "string"}
            }
        },
        "httptransport.webhookResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "message": {"type": "string"},
                "success": {"type": "boolean"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "TempMail Disposable API",
	Description:      "Disposable temporary email service.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
