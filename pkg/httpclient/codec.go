package httpclient

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

// CodecOptions controls JSON (de)serialization on the client.
type CodecOptions struct {
	PrettyPrint bool
	// Lenient retries a body that fails strict parsing after normalising it
	// through a YAML reader, which accepts unquoted keys and strings, single
	// quotes and comments.
	Lenient           bool
	IgnoreUnknownKeys bool
	// UseAlternativeNames allows case-insensitive field matching.
	UseAlternativeNames bool
}

// DefaultCodecOptions returns the settings used by the users API client.
func DefaultCodecOptions() CodecOptions {
	return CodecOptions{
		PrettyPrint:       true,
		Lenient:           true,
		IgnoreUnknownKeys: true,
	}
}

// JSONCodec marshals request bodies and unmarshals response bodies.
type JSONCodec struct {
	api  jsoniter.API
	opts CodecOptions
}

// NewJSONCodec builds a codec for the given options.
func NewJSONCodec(opts CodecOptions) *JSONCodec {
	cfg := jsoniter.Config{
		EscapeHTML:             true,
		SortMapKeys:            true,
		ValidateJsonRawMessage: true,
		DisallowUnknownFields:  !opts.IgnoreUnknownKeys,
		CaseSensitive:          !opts.UseAlternativeNames,
	}
	if opts.PrettyPrint {
		cfg.IndentionStep = 4
	}
	return &JSONCodec{api: cfg.Froze(), opts: opts}
}

// Marshal encodes v, indented when pretty printing is enabled.
func (c *JSONCodec) Marshal(v any) ([]byte, error) {
	return c.api.Marshal(v)
}

// Unmarshal decodes data into v. Only bodies that are not valid JSON are
// retried leniently; a valid document that does not fit v fails as is.
func (c *JSONCodec) Unmarshal(data []byte, v any) error {
	err := c.api.Unmarshal(data, v)
	if err == nil || !c.opts.Lenient || c.api.Valid(data) {
		return err
	}

	normalized, nerr := c.normalize(data)
	if nerr != nil {
		return err
	}
	if lerr := c.api.Unmarshal(normalized, v); lerr != nil {
		return fmt.Errorf("lenient decode: %w", lerr)
	}
	return nil
}

func (c *JSONCodec) normalize(data []byte) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, errors.New("empty document")
	}
	plainTimestampsAsStrings(&doc)

	var tree any
	if err := doc.Decode(&tree); err != nil {
		return nil, err
	}
	if tree == nil {
		return nil, errors.New("empty document")
	}
	return c.api.Marshal(tree)
}

// plainTimestampsAsStrings keeps unquoted dates such as 1990-05-14 as the
// text they were written as instead of letting YAML turn them into times.
func plainTimestampsAsStrings(n *yaml.Node) {
	if n.Kind == yaml.ScalarNode && n.Style&(yaml.SingleQuotedStyle|yaml.DoubleQuotedStyle) == 0 && n.ShortTag() == "!!timestamp" {
		n.Tag = "!!str"
	}
	for _, child := range n.Content {
		plainTimestampsAsStrings(child)
	}
}
