package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"daf/internal/annotator"
	"daf/internal/codec"
	"daf/internal/config"
	"daf/internal/domain"
	"daf/internal/flow"
	"daf/internal/output"
	"daf/internal/repository"
	"daf/internal/repository/sqlite"
	"daf/internal/stats"
	"daf/internal/taxonomy"
)

// ErrNoInput is returned when a run names neither a dataset nor a snapshot
var ErrNoInput = errors.New("neither dataset nor reannotation snapshot given")

// Options selects the inputs of one run
type Options struct {
	// Dataset is the flow CSV to annotate
	Dataset string
	// Reannotation is a previously exported snapshot to reuse
	Reannotation string
}

// Result describes a finished run
type Result struct {
	Paths    output.Paths
	Records  []*domain.Record
	Snapshot domain.Snapshot
	Known    int
	Fresh    int
	Failures []annotator.Failure
	Report   *stats.Report
	// SnapshotSaved is false when data export is off or nothing new was annotated
	SnapshotSaved bool
}

// Pipeline runs the annotation workflow: select addresses, reuse what the
// snapshot knows, annotate the rest, vote and write the outputs.
type Pipeline struct {
	cfg      *config.Config
	registry *annotator.Registry
	engine   *Engine
	bus      *EventBus
}

// PipelineOption configures a Pipeline
type PipelineOption func(*Pipeline)

// WithEventBus publishes run and annotator events on bus
func WithEventBus(bus *EventBus) PipelineOption {
	return func(p *Pipeline) {
		p.bus = bus
	}
}

// WithEngine replaces the engine built from the configuration
func WithEngine(e *Engine) PipelineOption {
	return func(p *Pipeline) {
		p.engine = e
	}
}

// NewPipeline validates cfg and builds the configured annotators into
// registry. Configuration errors are returned before anything runs.
func NewPipeline(cfg *config.Config, registry *annotator.Registry, opts ...PipelineOption) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	p := &Pipeline{cfg: cfg, registry: registry}
	for _, opt := range opts {
		opt(p)
	}

	if p.engine == nil {
		var checker *taxonomy.Checker
		if cfg.DAF.OSTaxonomyPath != "" && cfg.DAF.DeviceTaxonomyPath != "" {
			c, err := taxonomy.Load(cfg.DAF.OSTaxonomyPath, cfg.DAF.DeviceTaxonomyPath)
			if err != nil {
				return nil, err
			}
			checker = c
		}
		engine, err := NewEngineFromConfig(cfg.DAF, checker)
		if err != nil {
			return nil, err
		}
		p.engine = engine
	}

	if err := registry.Build(cfg); err != nil {
		return nil, err
	}
	if p.bus != nil {
		registry.SetEventHandler(p.bus.annotatorHandler())
	}
	return p, nil
}

func (p *Pipeline) delimiter() rune {
	return []rune(p.cfg.DAF.Delimiter)[0]
}

// Run executes one annotation or reannotation run
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Dataset == "" && opts.Reannotation == "" {
		return nil, ErrNoInput
	}
	start := time.Now()
	res := &Result{Paths: output.PathsFor(opts.Dataset, opts.Reannotation)}
	p.bus.Publish(Event{Type: EventRunStarted, Payload: map[string]interface{}{
		"dataset":      opts.Dataset,
		"reannotation": opts.Reannotation,
	}})

	var loaded domain.Snapshot
	if opts.Reannotation != "" {
		s, err := p.loadSnapshot(ctx, opts.Reannotation)
		if err != nil {
			return nil, err
		}
		loaded = s
		log.Printf("Loaded snapshot %s with %d addresses", opts.Reannotation, len(loaded))
		p.bus.Publish(Event{Type: EventSnapshotLoaded, Payload: map[string]interface{}{
			"path":      opts.Reannotation,
			"addresses": len(loaded),
		}})
	}

	var (
		ds      *flow.Dataset
		idx     *flow.Index
		current []string
	)
	if opts.Dataset != "" {
		var err error
		ds, err = flow.ReadFile(opts.Dataset, p.delimiter())
		if err != nil {
			return nil, err
		}
		ranges, err := flow.LoadRanges(p.cfg.DAF.IPRanges)
		if err != nil {
			return nil, err
		}
		current, err = flow.SelectAddresses(ds, p.cfg.DAF.SrcIPField, p.cfg.DAF.DstIPField, ranges)
		if err != nil {
			return nil, err
		}
		idx, err = flow.NewIndex(ds, p.cfg.DAF.SrcIPField, p.cfg.DAF.DstIPField)
		if err != nil {
			return nil, err
		}
		log.Printf("Dataset %s: %d flows, %d selected addresses", opts.Dataset, ds.Len(), len(current))
	} else {
		current = loaded.Addresses()
	}

	known, unknown := Partition(current, loaded)
	res.Known = len(known)
	log.Printf("Partition: %d known, %d to annotate", len(known), len(unknown))
	p.bus.Publish(Event{Type: EventPartitioned, Payload: map[string]interface{}{
		"known":   len(known),
		"unknown": len(unknown),
	}})

	fresh, failures, err := p.annotate(ctx, unknown, idx)
	if err != nil {
		return nil, err
	}
	res.Fresh = len(fresh)
	res.Failures = failures

	res.Snapshot, res.Records = Merge(loaded, known, fresh)

	if err := p.writeOutputs(ctx, opts, ds, res); err != nil {
		return nil, err
	}

	log.Printf("Run finished in %s: %d addresses (%d reused, %d annotated, %d annotator failures)",
		time.Since(start).Round(time.Millisecond), len(res.Records), res.Known, res.Fresh, len(res.Failures))
	p.bus.Publish(Event{Type: EventRunFinished, Payload: map[string]interface{}{
		"addresses": len(res.Records),
		"reused":    res.Known,
		"annotated": res.Fresh,
		"failures":  len(res.Failures),
	}})
	return res, nil
}

func (p *Pipeline) loadSnapshot(ctx context.Context, path string) (domain.Snapshot, error) {
	// opening a SQLite path creates the database
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", path, err)
	}
	store, err := repository.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", path, err)
	}
	defer store.Close()
	return LoadSnapshot(ctx, store)
}

// annotate runs the annotators over the unknown addresses and votes each one.
// Nothing runs when every address is known.
func (p *Pipeline) annotate(ctx context.Context, unknown []string, idx *flow.Index) ([]*domain.Record, []annotator.Failure, error) {
	if len(unknown) == 0 {
		return nil, nil, nil
	}

	store, failures := p.registry.Run(ctx, unknown, idx, p.cfg.DAF.ExecutionMode())
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("annotation interrupted: %w", err)
	}
	for _, f := range failures {
		log.Printf("Annotator %s contributed nothing: %v", f.Annotator, f.Err)
	}
	counts := store.AnnotatorCounts()
	for _, name := range p.registry.Names() {
		log.Printf("  -- %s proposed values for %d addresses", name, counts[name])
	}

	fresh := make([]*domain.Record, 0, len(unknown))
	for _, addr := range store.Addresses() {
		in := Input{
			Address:   addr,
			Proposals: store.Proposals(addr),
			Signals:   store.Signals(addr),
		}
		fresh = append(fresh, &domain.Record{
			Address:   addr,
			Proposals: in.Proposals,
			Signals:   in.Signals,
			Entry:     p.engine.Finalize(in),
		})
	}
	return fresh, failures, nil
}

func (p *Pipeline) writeOutputs(ctx context.Context, opts Options, ds *flow.Dataset, res *Result) error {
	var full []string
	if p.cfg.DAF.ExportFullAnnotation {
		full = p.registry.Names()
	}
	if err := output.WriteIPList(res.Paths.IPList, res.Records, full, p.delimiter()); err != nil {
		return err
	}
	log.Printf("IP annotation list written to %s", res.Paths.IPList)

	annotatedFlows := 0
	if ds != nil {
		finals := make(map[string]domain.Annotation, len(res.Records))
		for _, r := range res.Records {
			finals[r.Address] = r.Entry.Final
		}
		n, err := output.WriteAnnotatedDataset(res.Paths.Annotated, ds, p.cfg.DAF.SrcIPField, finals, p.delimiter())
		if err != nil {
			return err
		}
		annotatedFlows = n
		log.Printf("Annotated dataset written to %s", res.Paths.Annotated)
	}

	if p.cfg.DAF.DataExport && (opts.Reannotation == "" || res.Fresh > 0) {
		if err := p.saveSnapshot(ctx, res.Paths.Snapshot, res.Snapshot); err != nil {
			return err
		}
		res.SnapshotSaved = true
	}

	if path := p.cfg.DAF.InventoryExport; path != "" {
		res.Paths.Inventory = path
		if err := writeInventory(path, res.Snapshot); err != nil {
			return err
		}
		log.Printf("Ansible inventory written to %s", path)
	}

	res.Report = stats.Collect(res.Records, p.registry.Names())
	if ds != nil {
		res.Report.SetFlows(ds.Len(), annotatedFlows)
	}
	res.Report.Log()
	return nil
}

func (p *Pipeline) saveSnapshot(ctx context.Context, path string, s domain.Snapshot) error {
	store, err := repository.Open(path)
	if err != nil {
		return fmt.Errorf("open snapshot %s: %w", path, err)
	}
	defer store.Close()

	if err := store.Save(ctx, s); err != nil {
		return fmt.Errorf("save snapshot %s: %w", path, err)
	}
	log.Printf("Snapshot with %d addresses saved to %s", len(s), path)

	if repo, ok := store.(*sqlite.Repository); ok && p.cfg.DAF.KeepRuns > 0 {
		pruned, err := repo.Prune(ctx, p.cfg.DAF.KeepRuns)
		if err != nil {
			return fmt.Errorf("prune snapshot runs: %w", err)
		}
		if pruned > 0 {
			log.Printf("Pruned %d old runs from %s", pruned, path)
		}
	}
	p.bus.Publish(Event{Type: EventSnapshotSaved, Payload: map[string]interface{}{
		"path":      path,
		"addresses": len(s),
	}})
	return nil
}

func writeInventory(path string, s domain.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create inventory: %w", err)
	}
	defer f.Close()

	if err := codec.NewAnsibleCodec().Export(s, f); err != nil {
		return err
	}
	return f.Close()
}
