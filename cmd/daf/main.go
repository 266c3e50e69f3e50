package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"daf/internal/annotator"
	"daf/internal/config"
	"daf/internal/service"
	"daf/internal/watcher"
)

func main() {
	configPath := flag.String("config", "", "Configuration file (default: search $DAF_CONFIG, ./daf.yaml, ...)")
	dataset := flag.String("dataset", "", "Flow dataset (CSV) to annotate")
	delimiter := flag.String("d", "", "Dataset delimiter (overrides daf.delimiter)")
	reannotation := flag.String("reannotation", "", "Snapshot of a previous run to reuse (.json, .yaml or SQLite .db)")
	logfile := flag.String("logfile", "true", "Log destination: true (stderr), false (disabled) or a file path")
	watch := flag.Bool("watch", false, "Re-run when the dataset changes")
	listAnnotators := flag.Bool("list-annotators", false, "List built-in annotators and exit")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	closeLog, err := setupLogging(*logfile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to load .env: %v", err)
	}

	registry := annotator.NewRegistry()
	if err := annotator.RegisterBuiltins(registry); err != nil {
		log.Fatalf("Failed to register annotators: %v", err)
	}
	if *listAnnotators {
		for _, name := range registry.Factories() {
			fmt.Println(name)
		}
		return
	}

	if *dataset == "" && *reannotation == "" {
		fmt.Fprintln(os.Stderr, "either -dataset or -reannotation is required")
		flag.Usage()
		os.Exit(2)
	}
	if *watch && *dataset == "" {
		log.Fatalf("-watch needs -dataset")
	}

	cfg, path, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if path != "" {
		log.Printf("Config loaded from %s", path)
	} else {
		log.Println("No config file found, using defaults")
	}
	if *delimiter != "" {
		cfg.DAF.Delimiter = *delimiter
	}
	log.Println(cfg.Summary())

	eventBus := service.NewEventBus()
	eventChan := make(chan service.Event, 100)
	eventBus.Subscribe(eventChan)
	go func() {
		for event := range eventChan {
			logEvent(event)
		}
	}()

	pipeline, err := service.NewPipeline(cfg, registry, service.WithEventBus(eventBus))
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Println("Shutting down...")
		cancel()
	}()

	opts := service.Options{Dataset: *dataset, Reannotation: *reannotation}
	res, err := pipeline.Run(ctx, opts)
	if err != nil {
		log.Fatalf("Run failed: %v", err)
	}
	if !*watch {
		return
	}

	// later runs reuse the newest saved snapshot so only new addresses are annotated
	if res.SnapshotSaved {
		opts.Reannotation = res.Paths.Snapshot
	}
	w := watcher.New([]string{*dataset}, func(ctx context.Context, _ string) {
		res, err := pipeline.Run(ctx, opts)
		if err != nil {
			log.Printf("Run failed: %v", err)
			return
		}
		if res.SnapshotSaved {
			opts.Reannotation = res.Paths.Snapshot
		}
	})
	if err := w.Watch(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("Watcher failed: %v", err)
	}
}

func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

// setupLogging points the standard logger at stderr, a file, or nowhere
func setupLogging(dest string) (func(), error) {
	switch dest {
	case "", "true":
		return func() {}, nil
	case "false":
		log.SetOutput(io.Discard)
		return func() {}, nil
	}

	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	log.SetOutput(f)
	return func() { f.Close() }, nil
}

func logEvent(event service.Event) {
	switch event.Type {
	case service.EventAnnotatorFailed, service.EventSnapshotSaved, service.EventRunFinished:
		log.Printf("Event %s: %v", event.Type, event.Payload)
	}
}
