package img2aa

// Params holds the tunable constants of the decoder. The defaults were
// tuned by hand against traced line art and are starting points, not
// optimal values.
type Params struct {
	// BeamWidth is the number of hypotheses kept after each step.
	BeamWidth int `yaml:"beam_width"`
	// TopK is the number of backend outputs considered per patch.
	TopK int `yaml:"top_k"`

	// PatchWidth and PatchHeight are the model input size in pixels.
	PatchWidth  int `yaml:"patch_width"`
	PatchHeight int `yaml:"patch_height"`
	// PatchWindow is the width of the source window sampled for one
	// patch. Zero means one and a half line heights.
	PatchWindow int `yaml:"patch_window"`
	// ContextWidth is how far the window reaches left of the cursor.
	ContextWidth int `yaml:"context_width"`
	// LeftMargin is the x offset of the text origin inside the features.
	LeftMargin int `yaml:"left_margin"`
	// RightMargin is the distance from the target width at which a
	// hypothesis counts as finished. Zero means one half-width space.
	RightMargin float64 `yaml:"right_margin"`

	// BlankDensity is the mean ink below which a position is blank.
	BlankDensity float64 `yaml:"blank_density"`
	// DraftBlankDensity is the blank cutoff of the lookahead pass.
	DraftBlankDensity float64 `yaml:"draft_blank_density"`
	// InkThreshold is the per-pixel intensity that counts as ink.
	InkThreshold float64 `yaml:"ink_threshold"`
	// NextInkMass is the column ink sum that marks the next ink column.
	NextInkMass float64 `yaml:"next_ink_mass"`

	// MinConfidence rejects near-zero classifier outputs.
	MinConfidence float64 `yaml:"min_confidence"`
	// DotConfidence and BarConfidence are the stricter floors for dot
	// and horizontal-bar glyphs.
	DotConfidence float64 `yaml:"dot_confidence"`
	BarConfidence float64 `yaml:"bar_confidence"`
	// DraftConfidence is the floor for committing a draft glyph.
	DraftConfidence float64 `yaml:"draft_confidence"`
	// MinSimilarity rejects vector matches below this cosine.
	MinSimilarity float64 `yaml:"min_similarity"`
	// Epsilon keeps log(probability) finite.
	Epsilon float64 `yaml:"epsilon"`

	SimilarityWeight float64 `yaml:"similarity_weight"`
	CoverageWeight   float64 `yaml:"coverage_weight"`
	ExcessWeight     float64 `yaml:"excess_weight"`
	ConnectWeight    float64 `yaml:"connect_weight"`

	// SpaceTolerance is how far a space may overshoot the next ink.
	SpaceTolerance float64 `yaml:"space_tolerance"`
	AlignBonus     float64 `yaml:"align_bonus"`
	HatchBonus     float64 `yaml:"hatch_bonus"`
	// FallbackPenalty is added when no glyph cleared its thresholds.
	FallbackPenalty float64 `yaml:"fallback_penalty"`
	// ForcedPenalty is added to a space emitted despite the distance check.
	ForcedPenalty float64 `yaml:"forced_penalty"`
	// HalfSpacePenalty and ThinSpacePenalty bias blank runs toward
	// full-width spaces.
	HalfSpacePenalty float64 `yaml:"half_space_penalty"`
	ThinSpacePenalty float64 `yaml:"thin_space_penalty"`

	// Space widths in pixels. Zero derives them from the font.
	HalfSpaceWidth float64 `yaml:"half_space_width"`
	FullSpaceWidth float64 `yaml:"full_space_width"`
	ThinSpaceWidth float64 `yaml:"thin_space_width"`

	// PaintAlpha is the alpha at or above which a paint pixel is opaque.
	PaintAlpha uint8 `yaml:"paint_alpha"`
}

// DefaultParams returns the default decoder constants.
func DefaultParams() Params {
	return Params{
		BeamWidth:         5,
		TopK:              8,
		PatchWidth:        32,
		PatchHeight:       16,
		ContextWidth:      4,
		BlankDensity:      0.03,
		DraftBlankDensity: 0.06,
		InkThreshold:      0.5,
		NextInkMass:       1.0,
		MinConfidence:     0.01,
		DotConfidence:     0.3,
		BarConfidence:     0.2,
		DraftConfidence:   0.5,
		MinSimilarity:     0.3,
		Epsilon:           1e-6,
		SimilarityWeight:  1.0,
		CoverageWeight:    1.0,
		ExcessWeight:      1.0,
		ConnectWeight:     0.3,
		SpaceTolerance:    1.0,
		AlignBonus:        0.5,
		HatchBonus:        2.0,
		FallbackPenalty:   -1.0,
		ForcedPenalty:     -3.0,
		HalfSpacePenalty:  -0.1,
		ThinSpacePenalty:  -0.2,
		PaintAlpha:        128,
	}
}

// withDefaults fills zero fields that would stall the decoder.
func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.BeamWidth <= 0 {
		p.BeamWidth = d.BeamWidth
	}
	if p.TopK <= 0 {
		p.TopK = d.TopK
	}
	if p.PatchWidth <= 0 {
		p.PatchWidth = d.PatchWidth
	}
	if p.PatchHeight <= 0 {
		p.PatchHeight = d.PatchHeight
	}
	if p.Epsilon <= 0 {
		p.Epsilon = d.Epsilon
	}
	if p.InkThreshold <= 0 {
		p.InkThreshold = d.InkThreshold
	}
	if p.NextInkMass <= 0 {
		p.NextInkMass = d.NextInkMass
	}
	return p
}
