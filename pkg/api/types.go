package api

import (
	"encoding/json"

	"github.com/segmentio/ksuid"
	"github.com/ssargent/rowcodec/pkg/row"
	"github.com/ssargent/rowcodec/pkg/schema"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// SchemaResponse describes the row schema served by the API
type SchemaResponse struct {
	Schema string          `json:"schema"`
	Fields []FieldResponse `json:"fields"`
}

// FieldResponse is one schema field
type FieldResponse struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// BytesRequest carries a byte payload. []byte fields travel as base64.
type BytesRequest struct {
	Data []byte `json:"data"`
}

// EncodedRequest carries an opaque-bytes encoding
type EncodedRequest struct {
	Encoded []byte `json:"encoded"`
}

// EncodedResponse is the result of encoding a payload
type EncodedResponse struct {
	Encoded []byte `json:"encoded"`
	Size    int    `json:"size"`
}

// DecodedResponse is the result of decoding a payload
type DecodedResponse struct {
	Data []byte `json:"data"`
	Size int    `json:"size"`
}

// RowResponse is a stored row
type RowResponse struct {
	ID  string          `json:"id"`
	Row json.RawMessage `json:"row"`
}

// CompareRequest compares two rows. Each side is either a row object or the
// string id of a stored row.
type CompareRequest struct {
	Left     json.RawMessage `json:"left"`
	Right    json.RawMessage `json:"right"`
	Strategy string          `json:"strategy,omitempty"`
}

// CompareResponse is the result of a comparison
type CompareResponse struct {
	Equal    bool   `json:"equal"`
	Strategy string `json:"strategy"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Bind   string
	Port   int
	APIKey string
	// Strategy is the equality strategy used when a compare request names none.
	Strategy string
}

// RowStore defines the row operations the API serves
type RowStore interface {
	Schema() *schema.Schema
	Create(r *row.Row) (ksuid.KSUID, error)
	Read(id ksuid.KSUID) (*row.Row, error)
	Update(id ksuid.KSUID, r *row.Row) error
	Delete(id ksuid.KSUID) error
	Count() (int, error)
}
