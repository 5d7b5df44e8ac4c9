package cloud

import (
	"encoding/json"
	"sync"

	"github.com/anime-shed/ecoscan-go/pkg/models"

	"github.com/invopop/jsonschema"
)

var (
	schemaOnce sync.Once
	schema     map[string]interface{}
)

// AnalysisSchema is the JSON schema of models.AnalysisResult sent as the
// response schema. Fields computed locally are excluded.
func AnalysisSchema() map[string]interface{} {
	schemaOnce.Do(func() {
		schema = GenerateSchema[models.AnalysisResult]()
	})
	return schema
}

// GenerateSchema reflects T into an inline (reference-free) schema map
func GenerateSchema[T any]() map[string]interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	s := reflector.Reflect(v)

	b, err := s.MarshalJSON()
	if err != nil {
		panic(err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		panic(err)
	}
	delete(out, "$schema")
	delete(out, "$id")
	return out
}
