package manifest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaName = "manifest.schema.json"

//go:embed manifest.schema.json
var schemaBytes []byte

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		comp := jsonschema.NewCompiler()
		if err := comp.AddResource(schemaName, bytes.NewReader(schemaBytes)); err != nil {
			schemaErr = fmt.Errorf("loading schema %q: %w", schemaName, err)
			return
		}
		compiledSchema, schemaErr = comp.Compile(schemaName)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compiling schema %q: %w", schemaName, schemaErr)
		}
	})
	return compiledSchema, schemaErr
}

// validateSchema checks raw manifest JSON against the embedded schema.
func validateSchema(data []byte) error {
	sch, err := loadSchema()
	if err != nil {
		return err
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return err
	}
	return nil
}
