package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/draw"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/wbrown/img2aa"
	"github.com/wbrown/img2aa/embcache"
	"github.com/wbrown/img2aa/imageutil"
	"github.com/wbrown/img2aa/internal/config"
	"github.com/wbrown/img2aa/internal/logger"
	"github.com/wbrown/img2aa/internal/metrics"
)

func main() {
	inputFile := flag.String("input", "",
		"Path to the input image file (required)")
	outputFile := flag.String("output", "",
		"Path to save the text (if not specified, prints to stdout)")
	configFile := flag.String("config", "",
		"Path to a YAML configuration file")
	targetWidth := flag.Int("width", 0,
		"Resize the drawing to this many pixels wide, 0 keeps the source size")
	fontPath := flag.String("font", "",
		"Path to a TTF file (default: built-in reference font)")
	fontSize := flag.Float64("fontsize", 0,
		"Font size in pixels for TTF fonts")
	charset := flag.String("charset", "",
		"Characters the output may use")
	glyphDB := flag.String("glyphdb", "",
		"Prebuilt glyph database from compute_glyphs")
	encoding := flag.String("encoding", "",
		"Output encoding: utf8 or sjis")
	bbs := flag.Bool("bbs", false,
		"Forbid leading and doubled half-width spaces")
	thin := flag.Bool("thin", false,
		"Allow thin spaces")
	edges := flag.Bool("edges", false,
		"Trace Canny edges instead of dark lines")
	bluePattern := flag.String("blue", "",
		"Hatching pattern for blue paint")
	redPattern := flag.String("red", "",
		"Hatching pattern for red paint")
	preview := flag.String("preview", "",
		"Write a PNG rendering of the text to this path")
	metricsAddr := flag.String("metrics", "",
		"Serve prometheus metrics on this address while running")
	logLevel := flag.String("loglevel", "",
		"Log level: debug, info, warn, error")
	flag.Parse()

	if *inputFile == "" {
		fmt.Println("Please provide the image using the -input flag")
		flag.PrintDefaults()
		return
	}

	cfg := config.Default()
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// Flags given on the command line win over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "width":
			cfg.Input.Width = *targetWidth
		case "edges":
			cfg.Input.Edges = *edges
		case "font":
			cfg.Font.Path = *fontPath
		case "fontsize":
			cfg.Font.Size = *fontSize
		case "charset":
			cfg.Font.Charset = *charset
		case "glyphdb":
			cfg.Font.GlyphDB = *glyphDB
		case "encoding":
			cfg.Output.Encoding = *encoding
		case "bbs":
			cfg.Output.BBS = *bbs
		case "thin":
			cfg.Output.ThinSpace = *thin
		case "blue":
			cfg.Output.BluePattern = *bluePattern
		case "red":
			cfg.Output.RedPattern = *redPattern
		case "preview":
			cfg.Output.Preview = *preview
		case "metrics":
			cfg.Metrics.Addr = *metricsAddr
		case "loglevel":
			cfg.Logging.Level = *logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logging.Env, cfg.Logging.Level)
	if err != nil {
		fmt.Printf("Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, *inputFile, *outputFile, log); err != nil {
		log.Error("aaify failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg config.Config, inputFile, outputFile string, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	metrics.Register()
	if cfg.Metrics.Addr != "" {
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: promhttp.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Metrics server stopped", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	beginInit := time.Now()
	f := img2aa.ReferenceFont()
	if cfg.Font.Path != "" {
		var err error
		f, err = img2aa.LoadTrueTypeFont(cfg.Font.Path, cfg.Font.Size)
		if err != nil {
			return err
		}
	}
	glyphs := []rune(cfg.Font.Charset)

	embedder, closeStore, err := newEmbedder(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	engine := img2aa.NewEngine(
		img2aa.WithParams(cfg.Engine),
		img2aa.WithLogger(log),
		img2aa.WithClassifier(img2aa.NewTemplateClassifier(glyphs, cfg.Engine)),
		img2aa.WithEmbedder(embedder),
	)
	if cfg.Font.GlyphDB != "" {
		data, err := os.ReadFile(cfg.Font.GlyphDB)
		if err != nil {
			return fmt.Errorf("read glyph db: %w", err)
		}
		db, err := img2aa.LoadGlyphDBBytes(data)
		if err != nil {
			return err
		}
		err = engine.RebuildWithGlyphDB(ctx, f, glyphs, db)
		if err != nil {
			return err
		}
	} else if err := engine.Rebuild(ctx, f, glyphs); err != nil {
		return err
	}
	endInit := time.Now()

	img, err := imageutil.LoadImage(inputFile)
	if err != nil {
		return err
	}
	features, paint := img2aa.FeaturesFromImage(img, img2aa.FeatureOptions{
		Width: cfg.Input.Width,
		Edges: cfg.Input.Edges,
	})

	doc, err := engine.SolveDocument(ctx, img2aa.DocumentRequest{
		Features:    features,
		BluePattern: cfg.Output.BluePattern,
		RedPattern:  cfg.Output.RedPattern,
		PaintMask:   paint,
		BBSMode:     cfg.Output.BBS,
		ThinSpace:   cfg.Output.ThinSpace,
	})
	if err != nil {
		log.Warn("Transcription interrupted", zap.Int("lines", len(doc.Lines)), zap.Error(err))
	}
	endComputation := time.Now()

	lines := make([]string, len(doc.Lines))
	for i, l := range doc.Lines {
		lines[i] = l.Text
	}
	out, err := img2aa.EncodeDocument(lines, cfg.Output.Encoding)
	if err != nil {
		return err
	}
	if outputFile != "" {
		if err := os.WriteFile(outputFile, out, 0644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Printf("Output written to %s\n", outputFile)
	} else {
		os.Stdout.Write(out)
	}

	if cfg.Output.Preview != "" {
		if err := imageutil.SavePNG(previewImage(doc, engine.LineHeight()), cfg.Output.Preview); err != nil {
			return err
		}
		fmt.Printf("Preview written to %s\n", cfg.Output.Preview)
	}

	log.Info("Transcription finished",
		zap.String("mode", engine.Mode().String()),
		zap.Int("lines", len(doc.Lines)),
		zap.Duration("init", endInit.Sub(beginInit)),
		zap.Duration("computation", endComputation.Sub(endInit)),
	)
	return nil
}

// newEmbedder wraps the pixel embedder in an embedding cache, backed by
// Valkey when addresses are configured.
func newEmbedder(cfg config.Config, log *zap.Logger) (img2aa.Embedder, func(), error) {
	if len(cfg.Cache.Addrs) == 0 {
		store := embcache.NewMemoryStore()
		return embcache.New(img2aa.PixelEmbedder{}, store, cfg.Cache.KeyPrefix,
			metrics.EmbeddingCacheTotal, log), func() {}, nil
	}
	store, err := embcache.NewValkeyStore(embcache.ValkeyConfig{
		Addrs:    cfg.Cache.Addrs,
		Password: cfg.Cache.Password,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect embedding cache: %w", err)
	}
	return embcache.New(img2aa.PixelEmbedder{}, store, cfg.Cache.KeyPrefix,
		metrics.EmbeddingCacheTotal, log), store.Close, nil
}

// previewImage stacks the rendered lines into one page, dark ink on
// white.
func previewImage(doc img2aa.Document, lineHeight int) *image.Gray {
	width := 0
	for _, l := range doc.Lines {
		if l.Raster != nil && l.Raster.Bounds().Dx() > width {
			width = l.Raster.Bounds().Dx()
		}
	}
	page := image.NewGray(image.Rect(0, 0, width, lineHeight*len(doc.Lines)))
	for i, l := range doc.Lines {
		if l.Raster == nil {
			continue
		}
		r := l.Raster.Bounds().Add(image.Pt(0, i*lineHeight))
		draw.Draw(page, r, l.Raster, l.Raster.Bounds().Min, draw.Src)
	}
	for i, v := range page.Pix {
		page.Pix[i] = 255 - v
	}
	return page
}
