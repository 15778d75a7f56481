package config

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const configSchemaURL = "tabstash://config.schema.json"

const configSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "storage_dsn": {"type": "string"},
    "http_bind": {"type": "string"},
    "http_port": {"type": "integer", "minimum": 0, "maximum": 65535},
    "log_level": {"enum": ["debug", "info", "warn", "error"]},
    "db_max_open_conns": {"type": "integer", "minimum": 0},
    "db_max_idle_conns": {"type": "integer", "minimum": 0},
    "disabled_tools": {"type": "array", "items": {"type": "string"}},
    "disabled_types": {"type": "array", "items": {"type": "string"}},
    "backup_dir": {"type": "string"},
    "backup_s3": {
      "type": "object",
      "additionalProperties": false,
      "required": ["bucket"],
      "properties": {
        "bucket": {"type": "string", "minLength": 1},
        "prefix": {"type": "string"},
        "region": {"type": "string"},
        "endpoint": {"type": "string"},
        "path_style": {"type": "boolean"}
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(configSchema))
		if err != nil {
			schemaErr = fmt.Errorf("parse config schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(configSchemaURL, doc); err != nil {
			schemaErr = fmt.Errorf("add config schema: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile(configSchemaURL)
	})
	return compiledSchema, schemaErr
}

// validateConfigDocument checks raw config.json bytes against the config schema.
func validateConfigDocument(data []byte) error {
	sch, err := loadSchema()
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
