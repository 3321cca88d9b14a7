// Package docs registra la especificación OpenAPI de la API en swag.
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
        "/api/companies": {
            "post": {
                "tags": ["companies"],
                "summary": "Registrar emisor",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/dto.CreateCompanyRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.CompanyResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/api/companies/{id}": {
            "get": {
                "security": [{"Bearer": []}],
                "tags": ["companies"],
                "summary": "Obtener emisor",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "in": "path", "name": "id", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.CompanyResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            },
            "put": {
                "security": [{"Bearer": []}],
                "tags": ["companies"],
                "summary": "Actualizar emisor",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "in": "path", "name": "id", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/dto.UpdateCompanyRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.CompanyResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/api/companies/{id}/certificate": {
            "put": {
                "security": [{"Bearer": []}],
                "tags": ["companies"],
                "summary": "Cargar certificado de firma (.p12)",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "in": "path", "name": "id", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/dto.UploadCertificateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.CompanyResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/api/customers": {
            "post": {
                "security": [{"Bearer": []}],
                "tags": ["customers"],
                "summary": "Registrar receptor",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/dto.CreateCustomerRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.CustomerResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/api/documents/invoices": {
            "post": {
                "security": [{"Bearer": []}],
                "tags": ["documents"],
                "summary": "Emitir factura electrónica",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/dto.IssueDocumentRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.DocumentResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/api/documents/tickets": {
            "post": {
                "security": [{"Bearer": []}],
                "tags": ["documents"],
                "summary": "Emitir tiquete electrónico",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/dto.IssueDocumentRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.DocumentResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/api/documents/{id}": {
            "get": {
                "security": [{"Bearer": []}],
                "tags": ["documents"],
                "summary": "Consultar comprobante",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "in": "path", "name": "id", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.DocumentResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/api/documents/{id}/credit-notes": {
            "post": {
                "security": [{"Bearer": []}],
                "tags": ["documents"],
                "summary": "Emitir nota de crédito",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "in": "path", "name": "id", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/dto.CreateCreditNoteRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.DocumentResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/api/documents/{id}/xml": {
            "get": {
                "security": [{"Bearer": []}],
                "tags": ["documents"],
                "summary": "Descargar XML del comprobante",
                "produces": ["application/xml"],
                "parameters": [{"type": "string", "in": "path", "name": "id", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/documents/{id}/pdf": {
            "get": {
                "security": [{"Bearer": []}],
                "tags": ["documents"],
                "summary": "Descargar representación gráfica (PDF)",
                "produces": ["application/pdf"],
                "parameters": [{"type": "string", "in": "path", "name": "id", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "dto.ErrorResponse": {
            "type": "object",
            "properties": {"code": {"type": "string"}, "message": {"type": "string"}}
        },
        "dto.LocationDTO": {
            "type": "object",
            "properties": {
                "province": {"type": "string"}, "canton": {"type": "string"},
                "district": {"type": "string"}, "address": {"type": "string"}
            }
        },
        "dto.CreateCompanyRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"}, "commercial_name": {"type": "string"},
                "tax_id_type": {"type": "string"}, "tax_id": {"type": "string"},
                "activity_code": {"type": "string"}, "location": {"$ref": "#/definitions/dto.LocationDTO"},
                "phone_country": {"type": "string"}, "phone": {"type": "string"}, "email": {"type": "string"},
                "atv_username": {"type": "string"}, "atv_password": {"type": "string"}, "atv_client_id": {"type": "string"}
            }
        },
        "dto.UpdateCompanyRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"}, "activity_code": {"type": "string"},
                "location": {"$ref": "#/definitions/dto.LocationDTO"},
                "phone": {"type": "string"}, "email": {"type": "string"}, "status": {"type": "string"}
            }
        },
        "dto.UploadCertificateRequest": {
            "type": "object",
            "properties": {"certificate_base64": {"type": "string"}, "password": {"type": "string"}}
        },
        "dto.CompanyResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"}, "name": {"type": "string"}, "tax_id_type": {"type": "string"},
                "tax_id": {"type": "string"}, "activity_code": {"type": "string"},
                "location": {"$ref": "#/definitions/dto.LocationDTO"},
                "status": {"type": "string"}, "has_certificate": {"type": "boolean"}
            }
        },
        "dto.CreateCustomerRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"}, "tax_id_type": {"type": "string"}, "tax_id": {"type": "string"},
                "location": {"$ref": "#/definitions/dto.LocationDTO"}, "email": {"type": "string"},
                "exoneration": {"type": "object"}
            }
        },
        "dto.CustomerResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"}, "company_id": {"type": "string"}, "name": {"type": "string"},
                "tax_id_type": {"type": "string"}, "tax_id": {"type": "string"}, "email": {"type": "string"}
            }
        },
        "dto.DocumentLineRequest": {
            "type": "object",
            "properties": {
                "cabys_code": {"type": "string"}, "quantity": {"type": "string"}, "unit": {"type": "string"},
                "description": {"type": "string"}, "unit_price": {"type": "string"},
                "tax_rate_code": {"type": "string"}, "tax_rate": {"type": "string"}
            }
        },
        "dto.IssueDocumentRequest": {
            "type": "object",
            "properties": {
                "customer_id": {"type": "string"}, "sale_condition": {"type": "string"},
                "payment_method": {"type": "string"}, "currency_code": {"type": "string"},
                "lines": {"type": "array", "items": {"$ref": "#/definitions/dto.DocumentLineRequest"}}
            }
        },
        "dto.CreateCreditNoteRequest": {
            "type": "object",
            "properties": {
                "full_reversal": {"type": "boolean"},
                "affected_lines": {"type": "array", "items": {"type": "integer"}},
                "reason_code": {"type": "string"}, "reason_text": {"type": "string"}
            }
        },
        "dto.DocumentResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"}, "kind": {"type": "string"}, "key": {"type": "string"},
                "sequence": {"type": "string"}, "issued_at": {"type": "string"},
                "total_document": {"type": "string"}, "submission_state": {"type": "string"},
                "status_outcome": {"type": "string"}, "failure_stage": {"type": "string"},
                "failure_reason": {"type": "string"}, "provider_response": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "Bearer": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo información de la especificación exportada.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Comprobantes API",
	Description:      "Emisión de comprobantes electrónicos v4.4 ante el Ministerio de Hacienda de Costa Rica.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
