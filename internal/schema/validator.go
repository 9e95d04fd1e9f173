// internal/schema/validator.go
// Package schema provides JSON schema validation for request payloads.
// It ensures that booth requests conform to their schemas before any record
// is written, and surfaces field-level detail on failure.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Payload names accepted by Validate.
const (
	PayloadFabricate = "fabricate" // Collectible fabrication batch
	PayloadClaim     = "claim"     // Claim-by-token request
	PayloadFanout    = "fanout"    // Edition fanout request
	PayloadPhoto     = "photo"     // Session photo upload
)

// FieldError is one field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`   // JSON path of the offending field
	Message string `json:"message"` // Human-readable description
}

// ValidationResult collects all field errors for one payload.
type ValidationResult struct {
	Errors []FieldError `json:"errors"`
}

func (r *ValidationResult) Error() string {
	return fmt.Sprintf("payload validation failed with %d error(s)", len(r.Errors))
}

// Validator validates request payloads against JSON schemas.
type Validator struct {
	schemas map[string]*gojsonschema.Schema // Map of payload names to compiled schemas
}

// NewValidator creates a new payload validator.
// It compiles all payload schemas up front so each request validates against a
// prebuilt schema.
// Returns:
//   - *Validator: Initialized validator instance
//   - error: Any error that occurred during initialization
func NewValidator() (*Validator, error) {
	v := &Validator{
		schemas: make(map[string]*gojsonschema.Schema),
	}

	if err := v.loadSchemas(); err != nil {
		return nil, fmt.Errorf("failed to load schemas: %w", err)
	}

	return v, nil
}

// loadSchemas compiles the JSON schemas for all request payloads.
func (v *Validator) loadSchemas() error {
	// Fabrication batch: every item needs an image, a template, and at least
	// one vibe tag
	fabricateSchema := `{
		"type": "object",
		"required": ["items"],
		"properties": {
			"items": {
				"type": "array",
				"minItems": 1,
				"items": {
					"type": "object",
					"required": ["imageUrl", "template", "vibes"],
					"properties": {
						"imageUrl": {"type": "string", "minLength": 1},
						"message": {"type": "string", "maxLength": 512},
						"template": {"type": "string", "minLength": 1},
						"vibes": {"type": "array", "minItems": 1, "items": {"type": "string"}},
						"claimEmail": {"type": "string", "format": "email"}
					}
				}
			}
		}
	}`
	if err := v.loadSchema(PayloadFabricate, fabricateSchema); err != nil {
		return fmt.Errorf("failed to load fabricate schema: %w", err)
	}

	// Claim request: the token is the sole credential
	claimSchema := `{
		"type": "object",
		"required": ["token"],
		"properties": {
			"token": {"type": "string", "minLength": 1},
			"email": {"type": "string", "format": "email"},
			"recipientName": {"type": "string", "maxLength": 128}
		}
	}`
	if err := v.loadSchema(PayloadClaim, claimSchema); err != nil {
		return fmt.Errorf("failed to load claim schema: %w", err)
	}

	// Fanout request: edition count bounded, recipients need an email
	fanoutSchema := `{
		"type": "object",
		"required": ["masterIds", "editionCount"],
		"properties": {
			"masterIds": {"type": "array", "minItems": 1, "items": {"type": "integer"}},
			"editionCount": {"type": "integer", "minimum": 1, "maximum": 50},
			"recipients": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["email"],
					"properties": {
						"name": {"type": "string", "maxLength": 128},
						"email": {"type": "string", "format": "email"}
					}
				}
			}
		}
	}`
	if err := v.loadSchema(PayloadFanout, fanoutSchema); err != nil {
		return fmt.Errorf("failed to load fanout schema: %w", err)
	}

	// Session photo upload
	photoSchema := `{
		"type": "object",
		"required": ["imageData"],
		"properties": {
			"sessionId": {"type": "string", "maxLength": 128},
			"imageData": {"type": "string", "minLength": 1}
		}
	}`
	if err := v.loadSchema(PayloadPhoto, photoSchema); err != nil {
		return fmt.Errorf("failed to load photo schema: %w", err)
	}

	return nil
}

// loadSchema compiles a single schema.
// Parameters:
//   - name: The payload name (e.g. "fabricate")
//   - schemaJSON: The JSON schema as a string
// Returns:
//   - error: Any error that occurred during schema loading
func (v *Validator) loadSchema(name, schemaJSON string) error {
	loader := gojsonschema.NewStringLoader(schemaJSON)

	schema, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return fmt.Errorf("invalid schema for %s: %w", name, err)
	}

	v.schemas[name] = schema
	return nil
}

// Validate validates a raw request body against the named payload schema.
// Parameters:
//   - name: The payload name (e.g. "fabricate")
//   - body: The raw JSON request body
// Returns:
//   - error: nil if valid, *ValidationResult with field detail if invalid
func (v *Validator) Validate(name string, body []byte) error {
	schema, exists := v.schemas[name]
	if !exists {
		return fmt.Errorf("unknown payload: %s", name)
	}

	if !json.Valid(body) {
		return &ValidationResult{Errors: []FieldError{
			{Field: "(body)", Message: "request body is not valid JSON"},
		}}
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		fieldErrs := make([]FieldError, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			fieldErrs = append(fieldErrs, FieldError{
				Field:   desc.Field(),
				Message: desc.Description(),
			})
		}
		return &ValidationResult{Errors: fieldErrs}
	}

	return nil
}
