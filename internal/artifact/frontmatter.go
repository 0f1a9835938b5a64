package artifact

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingFrontMatter indicates the document did not start with a YAML fence.
	ErrMissingFrontMatter = errors.New("artifact: missing frontmatter")
	// ErrMalformedFrontMatter indicates the fenced block is unterminated or
	// lacks the planrecon header.
	ErrMalformedFrontMatter = errors.New("artifact: malformed frontmatter")
)

const fence = "---\n"

// stubHeader is the `planrecon:` mapping written above a stub body.
type stubHeader struct {
	Artifact string    `yaml:"artifact"`
	Kind     Kind      `yaml:"kind"`
	Stub     bool      `yaml:"stub"`
	Source   string    `yaml:"source,omitempty"`
	Reason   string    `yaml:"reason,omitempty"`
	Created  time.Time `yaml:"created"`
}

// ParseFrontMatter splits a stub document into its metadata and body.
func ParseFrontMatter(content []byte) (Metadata, []byte, error) {
	content = bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	rest, ok := bytes.CutPrefix(content, []byte(fence))
	if !ok {
		return Metadata{}, nil, ErrMissingFrontMatter
	}
	block, body, ok := bytes.Cut(rest, []byte("\n"+fence))
	if !ok {
		return Metadata{}, nil, ErrMalformedFrontMatter
	}
	var doc struct {
		Planrecon stubHeader `yaml:"planrecon"`
	}
	if err := yaml.Unmarshal(block, &doc); err != nil {
		return Metadata{}, nil, fmt.Errorf("artifact: parse frontmatter: %w", err)
	}
	h := doc.Planrecon
	if h.Artifact == "" || h.Kind == "" {
		return Metadata{}, nil, ErrMalformedFrontMatter
	}
	kind, err := ParseKind(string(h.Kind))
	if err != nil {
		return Metadata{}, nil, err
	}
	meta := Metadata{
		ArtifactID: h.Artifact,
		Kind:       kind,
		Stub:       h.Stub,
		Source:     h.Source,
		Reason:     h.Reason,
		CreatedAt:  h.Created.UTC(),
	}
	return meta, bytes.TrimPrefix(body, []byte("\n")), nil
}

// WriteFrontMatter renders meta as a fenced planrecon header followed by body.
func WriteFrontMatter(meta Metadata, body []byte) ([]byte, error) {
	if meta.ArtifactID == "" {
		return nil, fmt.Errorf("artifact: metadata missing artifact id")
	}
	data, err := yaml.Marshal(map[string]stubHeader{"planrecon": {
		Artifact: meta.ArtifactID,
		Kind:     meta.Kind,
		Stub:     meta.Stub,
		Source:   meta.Source,
		Reason:   meta.Reason,
		Created:  meta.CreatedAt.UTC().Truncate(time.Second),
	}})
	if err != nil {
		return nil, fmt.Errorf("artifact: encode frontmatter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(fence)
	buf.Write(data)
	buf.WriteString(fence + "\n")
	buf.Write(body)
	return buf.Bytes(), nil
}
