package img2aa

import (
	"context"
	"image"
	"strings"

	"go.uber.org/zap"
)

// DocumentRequest describes a whole drawing to transcribe line by line.
type DocumentRequest struct {
	Features    *FeatureMaps
	Width       int
	BluePattern string
	RedPattern  string
	PaintMask   image.Image
	BBSMode     bool
	ThinSpace   bool
}

// Document is the result of SolveDocument, one Line per text row.
type Document struct {
	Lines []Line
}

// Text joins the decoded lines with newlines.
func (d Document) Text() string {
	texts := make([]string, len(d.Lines))
	for i, l := range d.Lines {
		texts[i] = l.Text
	}
	return strings.Join(texts, "\n")
}

// SolveDocument decodes the features top to bottom, one line height at
// a time, handing each line's raster to the next as PreviousLine.
//
// Cancellation is checked before each line. A line that has started
// always completes; on cancellation the lines finished so far are
// returned together with the context's error.
func (e *Engine) SolveDocument(ctx context.Context, req DocumentRequest) (Document, error) {
	var doc Document
	if req.Features == nil {
		return doc, nil
	}
	lineHeight := e.LineHeight()
	if lineHeight <= 0 {
		return doc, ErrNoFont
	}

	var prev *image.Gray
	for center := lineHeight / 2; center-lineHeight/2 < req.Features.Height; center += lineHeight {
		if err := ctx.Err(); err != nil {
			e.logger.Info("Document cancelled",
				zap.Int("lines_done", len(doc.Lines)),
				zap.Error(err),
			)
			return doc, err
		}
		line := e.SolveLine(context.WithoutCancel(ctx), LineRequest{
			Features:     req.Features,
			Width:        req.Width,
			BluePattern:  req.BluePattern,
			RedPattern:   req.RedPattern,
			PaintMask:    req.PaintMask,
			LineCenterY:  center,
			BBSMode:      req.BBSMode,
			ThinSpace:    req.ThinSpace,
			PreviousLine: prev,
		})
		doc.Lines = append(doc.Lines, line)
		prev = line.Raster
	}
	return doc, nil
}

// RenderText rasterizes text in the engine's font, as the decoder lays
// it out.
func (e *Engine) RenderText(text string) *image.Gray {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.built {
		return image.NewGray(image.Rectangle{})
	}
	return e.renderRunes([]rune(text), 0).gray()
}
