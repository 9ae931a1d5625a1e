package mapgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"git.home.luguber.info/inful/mapexporter/internal/artifact"
	merrors "git.home.luguber.info/inful/mapexporter/internal/errors"
	"git.home.luguber.info/inful/mapexporter/internal/generation"
	"git.home.luguber.info/inful/mapexporter/internal/logfields"
)

// Stage identifiers, used as keys for configured weights.
const (
	StageLoad    = "load"
	StageLayout  = "layout"
	StagePublish = "publish"
)

// StageIDs lists stage identifiers in pipeline order.
var StageIDs = []string{StageLoad, StageLayout, StagePublish}

// DefaultWeights reflect the relative cost of each stage.
var DefaultWeights = map[string]float64{StageLoad: 1, StageLayout: 3, StagePublish: 2}

// Region file names published per region.
const (
	FileMap   = "map.json"
	FileRooms = "rooms.json"
	FileNotes = "notes.html"
)

// Options configure a Generator.
type Options struct {
	// Source holds the region files.
	Source fs.FS
	// Pattern selects region files inside Source.
	Pattern string
	// RoomsPerAdvance bounds the layout work of one increment.
	RoomsPerAdvance int
	// StepBudget lets the layout stage repeat increments within one advance
	// until the budget is used. Zero runs a single increment.
	StepBudget time.Duration
	Clock      func() time.Time
}

// Generator turns region sources into published artifact regions.
type Generator struct {
	opts  Options
	store *artifact.Store
	md    goldmark.Markdown

	sources []RegionSource
	layouts []*Layout
}

// New creates a generator publishing into store.
func New(store *artifact.Store, opts Options) *Generator {
	if opts.Pattern == "" {
		opts.Pattern = "*.yaml"
	}
	if opts.RoomsPerAdvance < 1 {
		opts.RoomsPerAdvance = 1
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Generator{
		opts:  opts,
		store: store,
		md:    goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Store is the artifact the generator publishes into.
func (g *Generator) Store() *artifact.Store { return g.store }

// Stages builds the three generation stages. They share the generator state
// and are meant for a single pipeline.
func (g *Generator) Stages() []*generation.Stage {
	return []*generation.Stage{
		generation.NewStage("Loading region sources", g.loadProcess),
		generation.NewStage("Laying out rooms", g.layoutProcess),
		generation.NewStage("Publishing regions", g.publishProcess),
	}
}

// Pipeline wraps Stages in a pipeline weighted by weights (see Weights).
func (g *Generator) Pipeline(weights map[string]float64, opts ...generation.Option) (*generation.Pipeline, error) {
	opts = append([]generation.Option{generation.WithWeights(Weights(weights)...)}, opts...)
	return generation.NewPipeline(g.Stages(), opts...)
}

// Weights orders configured stage weights. Missing stages take their default.
func Weights(configured map[string]float64) []float64 {
	out := make([]float64, len(StageIDs))
	for i, id := range StageIDs {
		w, ok := configured[id]
		if !ok {
			w = DefaultWeights[id]
		}
		out[i] = w
	}
	return out
}

func (g *Generator) loadProcess(t generation.Tracker) generation.Step {
	var files []string
	discovered := false
	next := 0
	keys := make(map[string]string)

	return generation.StepFunc(func(ctx context.Context) (generation.Status, error) {
		if !discovered {
			if g.opts.Source == nil {
				return generation.Suspended, merrors.ValidationFailed("source.directory", "no region source configured")
			}
			matches, err := fs.Glob(g.opts.Source, g.opts.Pattern)
			if err != nil {
				return generation.Suspended, fmt.Errorf("discover region files: %w", err)
			}
			slices.Sort(matches)
			files = matches
			discovered = true
			slog.Debug("Discovered region sources", slog.Int("count", len(files)))
		}
		if next >= len(files) {
			t.SetProgress(1)
			return generation.Completed, nil
		}

		name := files[next]
		data, err := fs.ReadFile(g.opts.Source, name)
		if err != nil {
			return generation.Suspended, fmt.Errorf("read %s: %w", name, err)
		}
		src, err := ParseRegion(name, data)
		if err != nil {
			return generation.Suspended, err
		}
		if prev, dup := keys[src.Key]; dup {
			return generation.Suspended, merrors.ValidationFailed("region.key",
				fmt.Sprintf("region %q defined in both %s and %s", src.Key, prev, name))
		}
		keys[src.Key] = name
		g.sources = append(g.sources, src)
		next++
		t.SetProgress(float64(next) / float64(len(files)))
		if next >= len(files) {
			return generation.Completed, nil
		}
		return generation.Suspended, nil
	})
}

// roomRef addresses one room across all loaded regions.
type roomRef struct{ region, room int }

func (g *Generator) layoutProcess(t generation.Tracker) generation.Step {
	var refs []roomRef
	g.layouts = make([]*Layout, len(g.sources))
	for i, src := range g.sources {
		g.layouts[i] = newLayout(src)
		for j := range src.Rooms {
			refs = append(refs, roomRef{region: i, room: j})
		}
	}
	step := generation.Batched(t, len(refs), g.opts.RoomsPerAdvance, func(_ context.Context, lo, hi int) error {
		for _, ref := range refs[lo:hi] {
			g.layouts[ref.region].place(g.sources[ref.region], ref.room)
		}
		return nil
	})
	return generation.TimeSliced(step, g.opts.StepBudget, g.opts.Clock)
}

func (g *Generator) publishProcess(t generation.Tracker) generation.Step {
	return generation.Sequence(
		generation.Each(t, len(g.layouts), func(_ context.Context, i int) error {
			region, err := g.render(g.sources[i], g.layouts[i])
			if err != nil {
				return err
			}
			if err := g.store.Publish(region); err != nil {
				return err
			}
			slog.Info("Region published", logfields.Region(region.Key), logfields.Files(len(region.Files)))
			return nil
		}),
		generation.Once(func(context.Context) error {
			g.store.Seal()
			return nil
		}),
	)
}

func (g *Generator) render(src RegionSource, l *Layout) (artifact.Region, error) {
	mapJSON, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return artifact.Region{}, fmt.Errorf("encode %s for %s: %w", FileMap, src.Key, err)
	}
	roomsJSON, err := json.MarshalIndent(l.Rooms, "", "  ")
	if err != nil {
		return artifact.Region{}, fmt.Errorf("encode %s for %s: %w", FileRooms, src.Key, err)
	}
	var notes bytes.Buffer
	if err := g.md.Convert([]byte(src.Notes), &notes); err != nil {
		return artifact.Region{}, fmt.Errorf("render notes for %s: %w", src.Key, err)
	}
	return artifact.Region{
		Key:  src.Key,
		Name: src.Name,
		Files: map[string][]byte{
			FileMap:   mapJSON,
			FileRooms: roomsJSON,
			FileNotes: notes.Bytes(),
		},
		PublishedAt: g.opts.Clock(),
	}, nil
}
