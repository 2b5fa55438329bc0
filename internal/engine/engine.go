// Package engine wires the shared registries into every task and
// dispatches host requests by task kind.
package engine

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"filetasks/internal/compute"
	"filetasks/internal/fsutil"
	"filetasks/internal/index"
	"filetasks/internal/listing"
	"filetasks/internal/search"
	"filetasks/internal/task"
)

const prunerInterval = time.Minute

// SavePayload is the payload of a save-index request.
type SavePayload struct {
	Path          string        `json:"path"`
	Entries       []index.Entry `json:"entries"`
	LastIndexTime any           `json:"lastIndexTime"`
}

// LoadPayload is the payload of a load-index request.
type LoadPayload struct {
	Path string `json:"path"`
}

// Engine owns the process-shared state — cancellation registry,
// hidden-attribute cache, index read cache — and hands it to tasks.
// Tests construct isolated engines instead of sharing globals.
type Engine struct {
	Registry   *task.Registry
	Emitter    *task.Emitter
	Hidden     *fsutil.Resolver
	IndexCache *index.Cache

	log        *zap.Logger
	store      *index.Store
	builder    *index.Builder
	searcher   *search.Searcher
	lister     *listing.Lister
	calculator *compute.Calculator
	stopPruner chan struct{}
}

// Option customizes a new engine.
type Option func(*Engine)

// WithLogger installs a logger; the default is a nop logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// New builds an engine with fresh, isolated shared state and starts
// the registry pruner.
func New(opts ...Option) *Engine {
	e := &Engine{
		Registry:   task.NewRegistry(),
		Emitter:    task.NewEmitter(256),
		IndexCache: index.NewCache(),
		log:        zap.NewNop(),
		stopPruner: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.Hidden = fsutil.NewResolver(e.log)
	e.store = index.NewStore(e.log)
	e.builder = &index.Builder{Registry: e.Registry, Emitter: e.Emitter, Log: e.log}
	e.searcher = &search.Searcher{
		Registry:   e.Registry,
		Emitter:    e.Emitter,
		Hidden:     e.Hidden,
		IndexCache: e.IndexCache,
		Log:        e.log,
	}
	e.lister = &listing.Lister{
		Registry: e.Registry,
		Emitter:  e.Emitter,
		Hidden:   e.Hidden,
		Log:      e.log,
	}
	e.calculator = &compute.Calculator{
		Registry: e.Registry,
		Emitter:  e.Emitter,
		Log:      e.log,
	}
	e.Registry.StartPruner(prunerInterval, e.stopPruner)
	return e
}

// Events returns the progress channel the host drains.
func (e *Engine) Events() <-chan task.Message {
	return e.Emitter.Events()
}

// Cancel requests cancellation of a running operation.
func (e *Engine) Cancel(opID string) {
	e.Registry.RequestCancel(opID)
}

// Close stops the pruner and closes the progress channel. Call only
// after all tasks finished.
func (e *Engine) Close() {
	close(e.stopPruner)
	e.Emitter.Close()
}

// Run dispatches one task invocation. The operation id is optional;
// without it the task is neither cancellable by id nor reports
// progress.
func (e *Engine) Run(kind task.Kind, payload any, opID string) (result any, err error) {
	task.RecordStart(kind)
	start := time.Now()
	e.log.Info("task started",
		zap.String("task", string(kind)), zap.String("operation_id", opID))
	defer func() {
		task.RecordOutcome(kind, time.Since(start).Seconds(), err)
		e.log.Info("task finished",
			zap.String("task", string(kind)),
			zap.String("operation_id", opID),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
	}()

	switch kind {
	case task.KindBuildIndex:
		opts, ok := payload.(index.BuildOptions)
		if !ok {
			return nil, payloadErr(kind, payload)
		}
		return e.builder.Build(opts, opID)

	case task.KindSaveIndex:
		p, ok := payload.(SavePayload)
		if !ok {
			return nil, payloadErr(kind, payload)
		}
		if err := e.store.Save(p.Path, p.Entries, p.LastIndexTime); err != nil {
			return nil, err
		}
		// The next index-backed search must re-read, not serve the
		// previous parse.
		e.IndexCache.Reset()
		return len(p.Entries), nil

	case task.KindLoadIndex:
		p, ok := payload.(LoadPayload)
		if !ok {
			return nil, payloadErr(kind, payload)
		}
		return e.store.Load(p.Path)

	case task.KindSearchFiles:
		opts, ok := payload.(search.NameOptions)
		if !ok {
			return nil, payloadErr(kind, payload)
		}
		return e.searcher.Names(opts, opID)

	case task.KindSearchContent:
		opts, ok := payload.(search.ContentOptions)
		if !ok {
			return nil, payloadErr(kind, payload)
		}
		return e.searcher.Content(opts, opID)

	case task.KindSearchContentList:
		opts, ok := payload.(search.ContentListOptions)
		if !ok {
			return nil, payloadErr(kind, payload)
		}
		return e.searcher.ContentList(opts, opID)

	case task.KindSearchIndex:
		opts, ok := payload.(search.IndexOptions)
		if !ok {
			return nil, payloadErr(kind, payload)
		}
		return e.searcher.IndexNames(opts, opID)

	case task.KindSearchContentIndex:
		opts, ok := payload.(search.IndexOptions)
		if !ok {
			return nil, payloadErr(kind, payload)
		}
		return e.searcher.IndexContent(opts, opID)

	case task.KindListDirectory:
		opts, ok := payload.(listing.Options)
		if !ok {
			return nil, payloadErr(kind, payload)
		}
		return e.lister.List(opts, opID)

	case task.KindFolderSize:
		opts, ok := payload.(compute.SizeOptions)
		if !ok {
			return nil, payloadErr(kind, payload)
		}
		return e.calculator.FolderSize(opts, opID)

	case task.KindChecksum:
		opts, ok := payload.(compute.ChecksumOptions)
		if !ok {
			return nil, payloadErr(kind, payload)
		}
		return e.calculator.Checksum(opts, opID)

	default:
		return nil, fmt.Errorf("unknown task kind %q", kind)
	}
}

// Store exposes the index store for callers that orchestrate a build
// plus save as one operation.
func (e *Engine) Store() *index.Store {
	return e.store
}

func payloadErr(kind task.Kind, payload any) error {
	return fmt.Errorf("task %s: unexpected payload type %T", kind, payload)
}
