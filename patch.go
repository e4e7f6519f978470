package img2aa

// samplerFor derives the patch geometry for a font's line height.
func samplerFor(p Params, lineHeight int) patchSampler {
	window := p.PatchWindow
	if window <= 0 {
		window = lineHeight * 3 / 2
	}
	if window < 1 {
		window = 1
	}
	return patchSampler{
		window:  window,
		context: p.ContextWidth,
		outW:    p.PatchWidth,
		outH:    p.PatchHeight,
	}
}

// glyphPatch is the patch a glyph would produce standing alone at the
// cursor of an empty line. Database embeddings and classifier templates
// are built from it.
func glyphPatch(f Font, g *raster, p Params) Patch {
	s := samplerFor(p, f.LineHeight())
	ink := newRaster(s.window, f.LineHeight())
	ink.stamp(g, s.context)
	channels := make([]*raster, NumChannels)
	channels[ChannelInk] = ink
	return s.sample(channels, 0)
}

// patchAt samples the decoder's view at cursor. ink is the feature ink
// in classifier mode and the hypothesis' residual in vector mode.
func (s patchSampler) patchAt(band *lineBand, ink, context *raster, cursor float64) Patch {
	x0 := band.origin + int(cursor) - s.context
	return s.sample([]*raster{
		ChannelInk:         ink,
		ChannelOrientation: band.orientation,
		ChannelDensity:     band.density,
		ChannelContext:     context,
		ChannelAbove:       band.above,
		ChannelBelow:       band.below,
	}, x0)
}
