// Command tiler renders one georeferenced IIIF map annotation into a PNG
// for a fitted viewport. It exists to exercise the engine end to end
// from the command line, the way the original CLI's Task did for tile
// downloads.
package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/shiena/ansicolor"
	log "github.com/sirupsen/logrus"
	"github.com/teris-io/shortid"
	pb "gopkg.in/cheggaaa/pb.v1"

	"georef-tiler/internal/catalog"
	"georef-tiler/internal/config"
	"georef-tiler/internal/geom"
	"georef-tiler/internal/iiif"
	"georef-tiler/internal/maplist"
	"georef-tiler/internal/raster"
	"georef-tiler/internal/renderer"
	"georef-tiler/internal/tilecache"
	"georef-tiler/internal/viewport"
	"georef-tiler/internal/warpedmap"
)

var (
	hf          bool
	cf          string
	annotFile   string
	widthFlag   int
	heightFlag  int
	catalogFlag bool
)

func init() {
	flag.BoolVar(&hf, "h", false, "this help")
	flag.StringVar(&cf, "c", "conf.toml", "set config `file`")
	flag.StringVar(&annotFile, "a", "", "georeference annotation `file` (required)")
	flag.IntVar(&widthFlag, "w", 1024, "output viewport width in pixels")
	flag.IntVar(&heightFlag, "ht", 768, "output viewport height in pixels")
	flag.BoolVar(&catalogFlag, "catalog", false, "also write catalog.db, a spatialite inspection database")
	flag.Usage = usage

	log.SetFormatter(&nested.Formatter{
		HideKeys:        true,
		ShowFullLevel:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	log.SetOutput(ansicolor.NewAnsiColorWriter(os.Stdout))
}

func usage() {
	fmt.Fprintf(os.Stderr, `tiler version: tiler/v0.1.0
Usage: tiler [-h] [-c conf.toml] -a annotation.json [-w width] [-ht height]
`)
	flag.PrintDefaults()
}

func main() {
	flag.Parse()
	if hf {
		flag.Usage()
		return
	}
	if annotFile == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(cf)
	if err != nil {
		log.Fatal(err)
	}
	if lvl, err := log.ParseLevel(cfg.Log.Level); err == nil {
		log.SetLevel(lvl)
	}

	runID, _ := shortid.Generate()
	log.WithField("runId", runID).Infof("%s %s starting", cfg.App.Title, cfg.App.Version)

	if err := run(cfg, runID); err != nil {
		log.Fatal(err)
	}
}

func run(cfg *config.Config, runID string) error {
	data, err := os.ReadFile(annotFile)
	if err != nil {
		return fmt.Errorf("reading annotation file: %w", err)
	}
	ann, err := iiif.Decode(data)
	if err != nil {
		return fmt.Errorf("decoding annotation: %w", err)
	}

	ctx := context.Background()
	loader := newHTTPImageInfoLoader()
	wm, err := warpedmap.New(ctx, "map-1", ann, loader, nil)
	if err != nil {
		return fmt.Errorf("building warped map: %w", err)
	}

	list := maplist.New(geom.Bound{Min: geom.Point{-2e7, -2e7}, Max: geom.Point{2e7, 2e7}})
	if err := list.Add(wm.MapID, wm); err != nil {
		return err
	}

	if catalogFlag {
		if err := writeCatalog(wm); err != nil {
			log.WithError(err).Warn("catalog export failed, continuing without it")
		}
	}

	v, err := viewport.FromSizeAndMaps(widthFlag, heightFlag, wm.ConvexHull, viewport.Contain, 0, 1, 0)
	if err != nil {
		return fmt.Errorf("fitting viewport: %w", err)
	}

	cache := tilecache.New(newHTTPTileFetcher(), stdImageDecoder{}, nil)
	r := renderer.New(list, cache)
	r.BufferRatio = cfg.Render.BufferRatio
	r.MaxOffsetRatio = cfg.Render.MaxOffsetRatio
	r.MaxDepth = cfg.Render.MaxDepth
	if cfg.Render.APIVersion == "2" {
		r.APIVersion = iiif.APIv2
	}

	bar := pb.New(1).Prefix("Rendering : ")
	bar.Start()
	result, err := r.Render(ctx, v)
	if err != nil {
		return fmt.Errorf("render pass: %w", err)
	}
	if err := cache.AllRequestedTilesLoaded(ctx); err != nil {
		log.WithError(err).Warn("not every tile loaded before drawing; some pixels will be blank")
	}
	bar.Increment()
	bar.FinishPrint(fmt.Sprintf("run %s finished", runID))

	os.MkdirAll(cfg.Output.Directory, os.ModePerm)

	var fb *raster.Framebuffer
	if cfg.Render.Backend == "gpu" {
		fb = raster.DrawGPU(ctx, v, result, cache, 1.0, nil)
	} else {
		fb = raster.DrawCPU(ctx, v, result, cache, nil)
	}

	outPath := filepath.Join(cfg.Output.Directory, wm.MapID+".png")
	if err := writePNG(outPath, fb); err != nil {
		return fmt.Errorf("writing output PNG: %w", err)
	}
	log.WithField("path", outPath).Info("wrote render output")

	if cfg.Output.Format == "mbtiles-debug" {
		mbPath := filepath.Join(cfg.Output.Directory, wm.MapID+".mbtiles")
		if err := mbtilesDebugExport(mbPath, result, cache); err != nil {
			log.WithError(err).Warn("mbtiles debug export failed")
		} else {
			log.WithField("path", mbPath).Info("wrote mbtiles debug export")
		}
	}
	return nil
}

func writePNG(path string, fb *raster.Framebuffer) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, fb)
}

func writeCatalog(wm *warpedmap.WarpedMap) error {
	store, err := catalog.Open("catalog.db")
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Upsert(wm); err != nil {
		return err
	}
	log.WithField("mapId", wm.MapID).Debug("wrote catalog entry")
	return nil
}
