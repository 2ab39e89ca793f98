package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var errInvalidBody = errors.New("invalid request body")

const schemaCredentials = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["email", "password"],
  "properties": {
    "email": { "type": "string", "minLength": 3 },
    "password": { "type": "string", "minLength": 1 }
  },
  "additionalProperties": false
}`

const schemaCartItem = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["product_id"],
  "properties": {
    "product_id": { "type": "string", "minLength": 1 }
  },
  "additionalProperties": false
}`

const schemaProfile = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["fullName", "phone", "houseNo", "street", "pincode"],
  "properties": {
    "fullName": { "type": "string", "minLength": 1 },
    "phone": { "type": "string", "pattern": "^[0-9+ -]{6,15}$" },
    "houseNo": { "type": "string", "minLength": 1 },
    "street": { "type": "string", "minLength": 1 },
    "landmark": { "type": "string" },
    "pincode": { "type": "string", "pattern": "^[0-9]{6}$" }
  },
  "additionalProperties": false
}`

const schemaLocate = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["address"],
  "properties": {
    "address": { "type": "string" }
  },
  "additionalProperties": false
}`

const schemaCheckout = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "idempotency_key": { "type": "string", "maxLength": 128 }
  },
  "additionalProperties": false
}`

const schemaOrderStatus = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["status"],
  "properties": {
    "status": { "type": "string" }
  },
  "additionalProperties": false
}`

const schemaProduct = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "price", "stock", "category"],
  "properties": {
    "name": { "type": "string", "minLength": 1 },
    "price": { "type": "integer", "minimum": 0 },
    "stock": { "type": "integer", "minimum": 0 },
    "category": { "type": "string" },
    "cut": { "type": "string" },
    "description": { "type": "string" },
    "imageUrl": { "type": "string" }
  },
  "additionalProperties": false
}`

var (
	credentialsLoader = gojsonschema.NewStringLoader(schemaCredentials)
	cartItemLoader    = gojsonschema.NewStringLoader(schemaCartItem)
	profileLoader     = gojsonschema.NewStringLoader(schemaProfile)
	locateLoader      = gojsonschema.NewStringLoader(schemaLocate)
	checkoutLoader    = gojsonschema.NewStringLoader(schemaCheckout)
	orderStatusLoader = gojsonschema.NewStringLoader(schemaOrderStatus)
	productLoader     = gojsonschema.NewStringLoader(schemaProduct)
)

func validateJSONSchema(schemaLoader gojsonschema.JSONLoader, body []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", errInvalidBody, strings.Join(msgs, "; "))
	}
	return nil
}

// decodeBody reads at most limit bytes, validates them against the schema and decodes into dst.
// An empty body is treated as {} so optional-only schemas accept it.
func decodeBody(r *http.Request, limit int64, schema gojsonschema.JSONLoader, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	if int64(len(body)) > limit {
		return fmt.Errorf("%w: body too large", errInvalidBody)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		body = []byte("{}")
	}
	if err := validateJSONSchema(schema, body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return nil
}
