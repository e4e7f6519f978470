package img2aa

import (
	"context"
	"math"
)

// Classifier maps a patch to a probability distribution over a fixed
// glyph vocabulary.
type Classifier interface {
	Vocabulary() []rune
	Classify(ctx context.Context, p Patch) ([]float32, error)
}

// Embedder maps a patch to a unit vector matched against the glyph
// vector database.
type Embedder interface {
	Embed(ctx context.Context, p Patch) ([]float32, error)
}

// ReadinessChecker is implemented by backends that can report whether
// their model session is loaded.
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

// Mode selects which recognition backend drives decoding.
type Mode int

const (
	// ModeVector matches embeddings against the glyph vector database.
	ModeVector Mode = iota
	// ModeClassifier uses the classifier's fixed vocabulary.
	ModeClassifier
)

func (m Mode) String() string {
	if m == ModeClassifier {
		return "classifier"
	}
	return "vector"
}

// SelectMode picks classifier mode only for the reference font when
// every requested glyph is in the classifier vocabulary.
func SelectMode(fontID string, glyphs, vocab []rune) Mode {
	if fontID != ReferenceFontID || len(glyphs) == 0 || len(vocab) == 0 {
		return ModeVector
	}
	known := make(map[rune]bool, len(vocab))
	for _, r := range vocab {
		known[r] = true
	}
	for _, g := range glyphs {
		if !known[g] {
			return ModeVector
		}
	}
	return ModeClassifier
}

// PixelEmbedder embeds a patch as its normalized ink channel. It is the
// reference backend for vector mode.
type PixelEmbedder struct{}

// Embed returns the unit-length ink channel of p.
func (PixelEmbedder) Embed(_ context.Context, p Patch) ([]float32, error) {
	if len(p.Channels) == 0 {
		return make([]float32, p.Width*p.Height), nil
	}
	return Normalize(p.Channels[ChannelInk]), nil
}

// TemplateClassifier scores a patch against per-glyph ink templates with
// a softmax over negative squared distance.
type TemplateClassifier struct {
	vocab       []rune
	templates   [][]float32
	temperature float64
}

// NewTemplateClassifier builds templates by rendering each vocabulary
// glyph in the reference font at the cursor of an empty line.
func NewTemplateClassifier(vocab []rune, p Params) *TemplateClassifier {
	p = p.withDefaults()
	f := ReferenceFont()
	table := newMetricsTable(f, vocab, p)
	c := &TemplateClassifier{temperature: 0.05}
	for _, r := range vocab {
		w, ok := table.Width(r)
		if !ok {
			continue
		}
		patch := glyphPatch(f, renderGlyph(f, r, w), p)
		c.vocab = append(c.vocab, r)
		c.templates = append(c.templates, patch.Channels[ChannelInk])
	}
	return c
}

// Vocabulary returns the glyphs the classifier can emit.
func (c *TemplateClassifier) Vocabulary() []rune {
	return append([]rune(nil), c.vocab...)
}

// Classify returns a distribution aligned with Vocabulary.
func (c *TemplateClassifier) Classify(_ context.Context, p Patch) ([]float32, error) {
	out := make([]float32, len(c.vocab))
	if len(c.vocab) == 0 || len(p.Channels) == 0 {
		return out, nil
	}
	ink := p.Channels[ChannelInk]
	logits := make([]float64, len(c.templates))
	maxLogit := math.Inf(-1)
	for i, tmpl := range c.templates {
		var d float64
		for j := range tmpl {
			if j >= len(ink) {
				break
			}
			diff := float64(ink[j] - tmpl[j])
			d += diff * diff
		}
		logits[i] = -d / float64(len(tmpl)) / c.temperature
		maxLogit = math.Max(maxLogit, logits[i])
	}
	var sum float64
	for i, l := range logits {
		logits[i] = math.Exp(l - maxLogit)
		sum += logits[i]
	}
	for i, l := range logits {
		out[i] = float32(l / sum)
	}
	return out, nil
}
