package openapi

import (
	"fmt"
	"strings"
)

const petstoreYAML = `
openapi: 3.0.3
info:
  title: Petstore
  version: 2.1.0
servers:
  - url: https://{region}.pets.example.com/v1
    variables:
      region:
        default: eu
paths:
  /pets:
    get:
      operationId: listPets
      summary: List pets
      parameters:
        - name: limit
          in: query
          description: Max items
          schema:
            type: integer
        - name: tags
          in: query
          schema:
            type: array
            items:
              type: string
    post:
      operationId: createPet
      description: Create a pet
      summary: ignored when description is set
      requestBody:
        content:
          application/json:
            schema:
              $ref: '#/components/schemas/Pet'
  /pets/{petId}:
    parameters:
      - name: petId
        in: path
        required: true
        description: Pet id
        schema:
          type: string
    get:
      summary: Show a pet
      parameters:
        - name: X-Trace
          in: header
          schema:
            type: string
    delete:
      summary: Delete a pet
components:
  schemas:
    Pet:
      type: object
      required: [name]
      properties:
        name:
          type: string
        tag:
          type: string
        parent:
          $ref: '#/components/schemas/Pet'
`

const swaggerJSON = `{
  "swagger": "2.0",
  "info": {"title": "Legacy", "version": "0.9"},
  "host": "legacy.example.com",
  "basePath": "/api",
  "schemes": ["https"],
  "consumes": ["application/json"],
  "paths": {
    "/items": {
      "post": {
        "operationId": "addItem",
        "summary": "Add item",
        "parameters": [
          {"name": "dryRun", "in": "query", "type": "boolean", "required": true},
          {"name": "body", "in": "body", "schema": {"type": "object", "properties": {"sku": {"type": "string"}}}}
        ],
        "responses": {"200": {"description": "ok"}}
      }
    }
  }
}`

// echoDocument describes a server at serverURL exposing one operation of
// every shape exercised by the dispatcher tests.
func echoDocument(serverURL string) string {
	return strings.TrimSpace(fmt.Sprintf(`
openapi: 3.0.0
info:
  title: Echo
  version: 1.0.0
servers:
  - url: %s
paths:
  /items/{itemId}:
    post:
      operationId: updateItem
      parameters:
        - name: itemId
          in: path
          required: true
          schema:
            type: string
        - name: verbose
          in: query
          schema:
            type: boolean
        - name: X-Mode
          in: header
          schema:
            type: string
        - name: session
          in: cookie
          schema:
            type: string
      requestBody:
        content:
          application/json:
            schema:
              type: object
              properties:
                note:
                  type: string
  /search:
    get:
      operationId: search
      parameters:
        - name: q
          in: query
          required: true
          schema:
            type: string
`, serverURL))
}
