package imagga

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/kirillkom/photo-tagger/internal/core/domain"
)

// Only the first element of "uploaded" and "results" is read, so only the
// first one is validated; later elements may have any shape.
var (
	// {"uploaded": [<first>, ...]}
	uploadEnvelopeSchema = objectSchema(map[string]*openapi3.Schema{
		"uploaded": openapi3.NewArraySchema().WithMinItems(1),
	}, "uploaded")
	// {"id": "<non-empty string>"}
	uploadItemSchema = objectSchema(map[string]*openapi3.Schema{
		"id": openapi3.NewStringSchema().WithMinLength(1),
	}, "id")

	// {"results": [<first>, ...]}
	tagsEnvelopeSchema = objectSchema(map[string]*openapi3.Schema{
		"results": openapi3.NewArraySchema().WithMinItems(1),
	}, "results")
	// {"tags": [...]}. Tag entries are left unconstrained: malformed ones
	// are skipped during projection.
	tagsItemSchema = objectSchema(map[string]*openapi3.Schema{
		"tags": openapi3.NewArraySchema(),
	}, "tags")
)

type uploadItem struct {
	ID string `json:"id"`
}

type tagsItem struct {
	Tags []json.RawMessage `json:"tags"`
}

type tagEntry struct {
	Tag *string `json:"tag"`
}

func parseUploadResponse(body []byte) (domain.UploadResult, error) {
	var item uploadItem
	if err := decodeFirst(body, "uploaded", uploadEnvelopeSchema, uploadItemSchema, &item); err != nil {
		return domain.UploadResult{}, domain.WrapError(domain.ErrResponseShape, "parse upload response", err)
	}
	return domain.UploadResult{ContentID: item.ID}, nil
}

func parseTagsResponse(body []byte) (domain.TagQueryResult, error) {
	var item tagsItem
	if err := decodeFirst(body, "results", tagsEnvelopeSchema, tagsItemSchema, &item); err != nil {
		return domain.TagQueryResult{}, domain.WrapError(domain.ErrResponseShape, "parse tagging response", err)
	}

	result := domain.TagQueryResult{Tags: make([]string, 0, len(item.Tags))}
	for _, raw := range item.Tags {
		var entry tagEntry
		if err := json.Unmarshal(raw, &entry); err != nil || entry.Tag == nil {
			result.Skipped++
			continue
		}
		result.Tags = append(result.Tags, *entry.Tag)
	}
	return result, nil
}

// decodeFirst validates body against envelope, validates the first element of
// the array under key against item, and decodes that element into out.
func decodeFirst(body []byte, key string, envelope, item *openapi3.Schema, out any) error {
	var tree any
	if err := json.Unmarshal(body, &tree); err != nil {
		return err
	}
	if tree == nil {
		return errors.New("empty json document")
	}
	if err := envelope.VisitJSON(tree); err != nil {
		return err
	}

	list, ok := tree.(map[string]any)[key].([]any)
	if !ok || len(list) == 0 {
		return fmt.Errorf("%s: expected a non-empty array", key)
	}
	if err := item.VisitJSON(list[0]); err != nil {
		return fmt.Errorf("%s[0]: %w", key, err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return err
	}
	var elements []json.RawMessage
	if err := json.Unmarshal(fields[key], &elements); err != nil {
		return err
	}
	return json.Unmarshal(elements[0], out)
}

func objectSchema(properties map[string]*openapi3.Schema, required ...string) *openapi3.Schema {
	schema := openapi3.NewObjectSchema()
	for name, property := range properties {
		schema = schema.WithProperty(name, property)
	}
	schema.Required = required
	return schema
}
