// Package apidocs registers the OpenAPI description of the modelkeeper HTTP
// API with swag so it can be served by http-swagger.
package apidocs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/instances": {
            "get": {
                "produces": ["application/json"],
                "summary": "List instances under the managed name",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.InstancesResponse"}
                    },
                    "502": {"description": "Remote service error", "schema": {"$ref": "#/definitions/types.ErrorResponse"}
                    }
                }
            }
        },
        "/instances/current": {
            "get": {
                "produces": ["application/json"],
                "summary": "Current instance (never trains)",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.Instance"}
                    },
                    "404": {"description": "Nothing trained under the name", "schema": {"$ref": "#/definitions/types.ErrorResponse"}
                    },
                    "503": {"description": "No usable instance", "schema": {"$ref": "#/definitions/types.ErrorResponse"}
                    }
                }
            }
        },
        "/instances/{id}/status": {
            "get": {
                "produces": ["application/json"],
                "summary": "Single status check",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.Instance"}
                    }
                }
            }
        },
        "/instances/{id}/data": {
            "get": {
                "produces": ["application/json"],
                "summary": "Recorded training data grouped by label",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.InstanceDataResponse"}
                    },
                    "404": {"description": "No recorded data", "schema": {"$ref": "#/definitions/types.ErrorResponse"}
                    },
                    "501": {"description": "Ranker records are not grouped by label", "schema": {"$ref": "#/definitions/types.ErrorResponse"}
                    }
                }
            }
        },
        "/instances/{id}/monitor": {
            "post": {
                "produces": ["application/json"],
                "summary": "Monitor training (background unless wait=true)",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "boolean", "name": "wait", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Finished", "schema": {"$ref": "#/definitions/types.Instance"}
                    },
                    "202": {"description": "Monitoring", "schema": {"$ref": "#/definitions/types.MonitorResponse"}
                    },
                    "502": {"description": "Training failed or the remote service errored", "schema": {"$ref": "#/definitions/types.ErrorResponse"}
                    }
                }
            }
        },
        "/status": {
            "get": {
                "produces": ["application/json"],
                "summary": "Status of the current instance",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.Instance"}
                    }
                }
            }
        },
        "/train": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Start a new training job",
                "parameters": [
                    {"name": "request", "in": "body", "schema": {"$ref": "#/definitions/types.TrainRequest"}
                    }
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/types.Instance"}
                    },
                    "409": {"description": "Another process is launching", "schema": {"$ref": "#/definitions/types.ErrorResponse"}
                    }
                }
            }
        },
        "/train-if-needed": {
            "post": {
                "produces": ["application/json"],
                "summary": "Resolve, training only when nothing is usable",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.Instance"}
                    }
                }
            }
        },
        "/process": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Classify or rank text",
                "parameters": [
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.ProcessRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ProcessResponse"}
                    },
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}
                    },
                    "415": {"description": "Unsupported media type", "schema": {"$ref": "#/definitions/types.ErrorResponse"}
                    }
                }
            }
        }
    },
    "definitions": {
        "types.Instance": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "example": "c1f2"},
                "name": {"type": "string", "example": "default-classifier"},
                "kind": {"type": "string", "example": "classifier"},
                "status": {"type": "string", "example": "Available"},
                "created": {"type": "string", "format": "date-time"},
                "training_duration_minutes": {"type": "integer", "example": 12}
            }
        },
        "types.InstancesResponse": {
            "type": "object",
            "properties": {
                "instances": {"type": "array", "items": {"$ref": "#/definitions/types.Instance"}
                }
            }
        },
        "types.InstanceDataResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "classes": {"type": "object", "additionalProperties": {"type": "array", "items": {"type": "string"}
                    }
                }
            }
        },
        "types.MonitorResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "state": {"type": "string", "example": "monitoring"}
            }
        },
        "types.TrainRequest": {
            "type": "object",
            "properties": {
                "data": {"type": "string"}
            }
        },
        "types.ProcessRequest": {
            "type": "object",
            "properties": {
                "text": {"type": "string", "example": "what is the weather like"}
            }
        },
        "types.ProcessResponse": {
            "type": "object",
            "properties": {
                "instance": {"$ref": "#/definitions/types.Instance"},
                "pending": {"type": "boolean"},
                "result": {"type": "object"}
            }
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "code": {"type": "integer", "example": 404}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "modelkeeper API",
	Description:      "Keeps a trained classifier or ranker instance available on a remote service.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
