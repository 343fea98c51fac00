// Package validation checks inbound request bodies: a JSON schema for their
// shape, then struct tags for field constraints.
package validation

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jengzang/dispatch-backend-go/internal/apperr"
	"github.com/jengzang/dispatch-backend-go/internal/models"
)

//go:embed schemas/record_location.schema.json
var recordLocationSchema string

const recordLocationSchemaURL = "https://dispatch.schemas.local/record_location.schema.json"

// Validator validates location requests
type Validator struct {
	schema *jsonschema.Schema
	fields *validator.Validate
}

// New compiles the request schema and prepares the field validator
func New() (*Validator, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(recordLocationSchemaURL, strings.NewReader(recordLocationSchema)); err != nil {
		return nil, fmt.Errorf("failed to load request schema: %w", err)
	}
	schema, err := c.Compile(recordLocationSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile request schema: %w", err)
	}

	fields := validator.New()
	fields.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{schema: schema, fields: fields}, nil
}

// DecodeLocationRequest parses body into a RecordLocationRequest. Bodies that
// are not JSON or do not match the schema fail with MALFORMED_REQUEST; field
// constraint violations fail with VALIDATION_FAILED.
func (v *Validator) DecodeLocationRequest(body []byte) (models.RecordLocationRequest, error) {
	var req models.RecordLocationRequest

	var doc any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return req, apperr.MalformedRequest(err)
	}
	if dec.More() {
		return req, apperr.MalformedRequest(errors.New("unexpected data after JSON body"))
	}
	if err := v.schema.Validate(doc); err != nil {
		return req, apperr.MalformedRequest(err)
	}

	if err := json.Unmarshal(body, &req); err != nil {
		return req, apperr.MalformedRequest(err)
	}

	if err := v.Struct(req); err != nil {
		return req, err
	}
	return req, nil
}

// Struct checks the validate tags of s and maps violations to a
// VALIDATION_FAILED error keyed by JSON field name
func (v *Validator) Struct(s any) error {
	err := v.fields.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("field validation: %w", err)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = message(fe)
	}
	return apperr.ValidationFailed(fields)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return fmt.Sprintf("failed %s constraint", fe.Tag())
	}
}
