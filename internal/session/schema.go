package session

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const userSchemaJSON = `{
  "type": "object",
  "required": ["id", "tenant_id"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "username": {"type": "string"},
    "email": {"type": "string"},
    "tenant_id": {"type": "integer", "minimum": 1},
    "can_access_all_tenants": {"type": "boolean"}
  }
}`

const tenantSchemaJSON = `{
  "type": "object",
  "required": ["id", "name"],
  "properties": {
    "id": {"type": "integer", "minimum": 1},
    "name": {"type": "string", "minLength": 1},
    "api_key": {"type": "string"},
    "status": {"type": "string", "enum": ["", "active", "inactive", "suspended"]}
  }
}`

const knowledgeBaseSchemaJSON = `{
  "type": "object",
  "required": ["id"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "name": {"type": "string"}
  }
}`

var (
	userSchema     = mustSchema(userSchemaJSON)
	tenantSchema   = mustSchema(tenantSchemaJSON)
	snapshotSchema = mustSchema(fmt.Sprintf(`{
  "type": "object",
  "required": ["session_id", "mode"],
  "properties": {
    "session_id": {"type": "string"},
    "mode": {"type": "string", "enum": ["local", "dynamic"]},
    "user": %s,
    "tenant": %s,
    "token": {"type": "string"},
    "refresh_token": {"type": "string"},
    "selected_tenant_id": {"type": "integer", "minimum": 0},
    "selected_tenant_name": {"type": "string"},
    "current_knowledge_base": %s,
    "knowledge_bases": {"type": "array", "items": %s}
  }
}`, userSchemaJSON, tenantSchemaJSON, knowledgeBaseSchemaJSON, knowledgeBaseSchemaJSON))
)

func mustSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("session schema: %v", err))
	}
	return schema
}

func validateAgainst(schema *gojsonschema.Schema, field string, raw []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return invalid(field, "not valid JSON: %v", err)
	}
	if !result.Valid() {
		var msgs []string
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return invalid(field, "%s", strings.Join(msgs, "; "))
	}
	return nil
}

// DecodeUser validates raw against the user schema and decodes it.
func DecodeUser(raw []byte) (User, error) {
	var u User
	if err := validateAgainst(userSchema, "user", raw); err != nil {
		return u, err
	}
	if err := json.Unmarshal(raw, &u); err != nil {
		return u, invalid("user", "%v", err)
	}
	return u, u.Validate()
}

// DecodeTenant validates raw against the tenant schema and decodes it.
func DecodeTenant(raw []byte) (Tenant, error) {
	var t Tenant
	if err := validateAgainst(tenantSchema, "tenant", raw); err != nil {
		return t, err
	}
	if err := json.Unmarshal(raw, &t); err != nil {
		return t, invalid("tenant", "%v", err)
	}
	return t, t.Validate()
}

// DecodeSnapshot validates a persisted snapshot and decodes it.
func DecodeSnapshot(raw []byte) (*Snapshot, error) {
	if err := validateAgainst(snapshotSchema, "snapshot", raw); err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, invalid("snapshot", "%v", err)
	}
	return &snap, nil
}
