// Package embed defines the pluggable embedder factory spec.md §1 and §9
// name as an external collaborator: the core calls into an Embedder it
// does not implement the model-serving side of. The shape is grounded on
// the pack's semantic_embeddings.go strategy (vvoland-cagent), narrowed
// from that file's LLM-summary-then-embed pipeline down to the single
// method the indexing pipeline actually needs: doc-comment text in,
// L2-normalized f32 vector out.
package embed

import (
	"context"
	"errors"

	"github.com/codanna/codanna/internal/store/vectorstore"
)

// ErrEmptyInput is returned when Embed is asked to embed an empty
// string; the pipeline should not call Embed for symbols with no doc
// comment (spec.md §4.J step 6), so this indicates a caller bug.
var ErrEmptyInput = errors.New("embed: empty input")

// Embedder turns text into a dense, L2-normalized vector of the model's
// native dimension. Implementations own model loading, batching, and any
// network calls; the indexing pipeline only ever calls Embed.
type Embedder interface {
	// Embed returns one L2-normalized vector per non-empty input. The
	// returned slice has the same length and order as inputs.
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
	// ModelID identifies the embedding model, stored in the vector
	// segment header and checked on open (spec.md §6, §9 Open Questions).
	ModelID() string
	// Dimension is this model's native vector width, one of {384, 768, 1024}.
	Dimension() int
}

// Factory constructs an Embedder for a configured model name, mirroring
// the pluggable embedder factory spec.md §1 calls out as an external
// collaborator the core depends on but does not implement.
type Factory func(modelName string) (Embedder, error)

// EmbedOne is a convenience wrapper around Embed for a single input,
// rejecting empty strings per ErrEmptyInput rather than silently
// embedding nothing.
func EmbedOne(ctx context.Context, e Embedder, input string) ([]float32, error) {
	if input == "" {
		return nil, ErrEmptyInput
	}
	out, err := e.Embed(ctx, []string{input})
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, errors.New("embed: embedder returned wrong result count")
	}
	return out[0], nil
}

// deterministicEmbedder is a fake Embedder for tests and for CLI
// invocations with no configured model: it hashes each input's bytes
// into a fixed-dimension vector, so the same text always produces the
// same vector without any network dependency, matching spec.md §8's
// Determinism property well enough to exercise the pipeline end to end.
type deterministicEmbedder struct {
	modelID   string
	dimension int
}

// NewDeterministic returns a fake embedder suitable for tests: it never
// calls out to a model, but still satisfies the L2-normalized-vector
// contract the vector store requires.
func NewDeterministic(modelID string, dimension int) Embedder {
	return &deterministicEmbedder{modelID: modelID, dimension: dimension}
}

func (d *deterministicEmbedder) ModelID() string { return d.modelID }
func (d *deterministicEmbedder) Dimension() int  { return d.dimension }

func (d *deterministicEmbedder) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, s := range inputs {
		v := make([]float32, d.dimension)
		var h uint32 = 2166136261
		for _, b := range []byte(s) {
			h ^= uint32(b)
			h *= 16777619
			v[int(h)%d.dimension] += 1
			h = h*31 + uint32(b)
		}
		vectorstore.Normalize(v)
		out[i] = v
	}
	return out, nil
}
