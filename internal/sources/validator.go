package sources

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schemas/orders.schema.json
var ordersSchemaJSON []byte

//go:embed schemas/tracking.schema.json
var trackingSchemaJSON []byte

// SourceDataValidator validates and parses upstream payloads before any
// field is mapped into the store.
type SourceDataValidator interface {
	// ValidateOrders checks an order-list payload against the orders schema
	// and returns the parsed orders
	ValidateOrders(data []byte) ([]Order, error)

	// ValidateTracking checks a carrier payload against the tracking schema
	// and returns the parsed tracking state
	ValidateTracking(data []byte) (*TrackingInfo, error)
}

// defaultSourceDataValidator is the default implementation of SourceDataValidator
type defaultSourceDataValidator struct {
	ordersSchema   *jsonschema.Schema
	trackingSchema *jsonschema.Schema
}

var _ SourceDataValidator = (*defaultSourceDataValidator)(nil)

// NewSourceDataValidator creates a validator with the embedded schemas compiled
func NewSourceDataValidator() SourceDataValidator {
	return &defaultSourceDataValidator{
		ordersSchema:   mustCompileSchema("orders.schema.json", ordersSchemaJSON),
		trackingSchema: mustCompileSchema("tracking.schema.json", trackingSchemaJSON),
	}
}

// mustCompileSchema compiles an embedded schema document. The schemas ship
// inside the binary, so a failure here is a build defect.
func mustCompileSchema(name string, raw []byte) *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("embedded schema %s is not valid JSON: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		panic(fmt.Sprintf("failed to add schema resource %s: %v", name, err))
	}

	schema, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile schema %s: %v", name, err))
	}

	return schema
}

// orderListPayload is the order source's list response envelope
type orderListPayload struct {
	Orders []Order `json:"orders"`
	Total  int     `json:"total"`
}

// ValidateOrders checks an order-list payload against the orders schema
// and returns the parsed orders
func (v *defaultSourceDataValidator) ValidateOrders(data []byte) ([]Order, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("data cannot be empty")
	}

	if err := validate(v.ordersSchema, data); err != nil {
		return nil, fmt.Errorf("order payload failed schema validation: %w", err)
	}

	var payload orderListPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse order payload: %w", err)
	}

	return payload.Orders, nil
}

// ValidateTracking checks a carrier payload against the tracking schema
// and returns the parsed tracking state
func (v *defaultSourceDataValidator) ValidateTracking(data []byte) (*TrackingInfo, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("data cannot be empty")
	}

	if err := validate(v.trackingSchema, data); err != nil {
		return nil, fmt.Errorf("tracking payload failed schema validation: %w", err)
	}

	var info TrackingInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse tracking payload: %w", err)
	}

	return &info, nil
}

// validate runs one compiled schema over a raw payload
func validate(schema *jsonschema.Schema, data []byte) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("payload is not valid JSON: %w", err)
	}
	return schema.Validate(inst)
}
