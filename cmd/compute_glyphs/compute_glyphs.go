package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/wbrown/img2aa"
	"github.com/wbrown/img2aa/internal/config"
	"github.com/wbrown/img2aa/internal/logger"
)

// boxChars are the box drawing characters added by -box.
var boxChars = []rune{
	'─', '━', '│', '┃', '┄', '┅', '┆', '┇', '┈', '┉', '┊', '┋',
	'┌', '┍', '┎', '┏', '┐', '┑', '┒', '┓',
	'└', '┕', '┖', '┗', '┘', '┙', '┚', '┛',
	'├', '┝', '┞', '┟', '┠', '┡', '┢', '┣',
	'┤', '┥', '┦', '┧', '┨', '┩', '┪', '┫',
	'┬', '┭', '┮', '┯', '┰', '┱', '┲', '┳',
	'┴', '┵', '┶', '┷', '┸', '┹', '┺', '┻',
	'┼', '╋', '═', '║', '╔', '╗', '╚', '╝', '╠', '╣', '╦', '╩', '╬',
}

// buildGlyphDB embeds every glyph of charset with the pixel embedder.
func buildGlyphDB(ctx context.Context, f img2aa.Font, charset []rune, p img2aa.Params, log *zap.Logger) (*img2aa.GlyphDB, error) {
	engine := img2aa.NewEngine(
		img2aa.WithParams(p),
		img2aa.WithLogger(log),
		img2aa.WithEmbedder(img2aa.PixelEmbedder{}),
	)
	if err := engine.Rebuild(ctx, f, charset); err != nil {
		return nil, fmt.Errorf("failed to build glyph db: %w", err)
	}
	return engine.GlyphDB(), nil
}

func main() {
	inputFont := flag.String("font", "", "Path to the input font file (default: built-in reference font)")
	fontSize := flag.Float64("size", 16, "Font size in pixels")
	charset := flag.String("charset", config.DefaultCharset, "Characters to include")
	box := flag.Bool("box", false, "Also include box drawing characters")
	outputFile := flag.String("output", "", "Path to save the glyph database (required)")
	flag.Parse()

	if *outputFile == "" {
		fmt.Println("The -output flag is required")
		flag.PrintDefaults()
		os.Exit(1)
	}

	log, err := logger.NewLogger("cli", "info")
	if err != nil {
		fmt.Printf("Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	f := img2aa.ReferenceFont()
	if *inputFont != "" {
		f, err = img2aa.LoadTrueTypeFont(*inputFont, *fontSize)
		if err != nil {
			log.Fatal("Failed to load font", zap.Error(err))
		}
	}
	glyphs := []rune(*charset)
	if *box {
		glyphs = append(glyphs, boxChars...)
	}

	log.Info("Computing glyphs", zap.String("font", f.ID), zap.Int("glyphs", len(glyphs)))
	db, err := buildGlyphDB(context.Background(), f, glyphs, img2aa.DefaultParams(), log)
	if err != nil {
		log.Fatal("Failed to compute glyphs", zap.Error(err))
	}

	var buf bytes.Buffer
	if err := img2aa.SaveGlyphDB(&buf, db); err != nil {
		log.Fatal("Failed to encode glyph db", zap.Error(err))
	}
	if err := os.WriteFile(*outputFile, buf.Bytes(), 0644); err != nil {
		log.Fatal("Failed to write glyph db", zap.Error(err))
	}

	baseName := strings.TrimSuffix(filepath.Base(*outputFile), filepath.Ext(*outputFile))
	log.Info("Saved glyph db",
		zap.String("path", *outputFile),
		zap.String("name", baseName),
		zap.Int("entries", len(db.Entries)),
		zap.Float64("kb", float64(buf.Len())/1024),
	)
}
