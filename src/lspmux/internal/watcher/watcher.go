// Package watcher observes the workspace tree and forwards file changes to
// every live language server as workspace/didChangeWatchedFiles, so servers
// stay consistent with edits made outside their own didOpen documents.
package watcher

import (
	"context"
	iofs "io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	tally "github.com/uber-go/tally/v4"
	"go.lsp.dev/protocol"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lspmux/lspmux/src/lspmux/internal/fs"
	"github.com/lspmux/lspmux/src/lspmux/mapper"
)

// Module provides a module to inject using fx.
var Module = fx.Provide(New)

const _debounceWindow = 100 * time.Millisecond

// Broadcaster fans a notification out to every live session.
type Broadcaster interface {
	Broadcast(ctx context.Context, method string, params interface{})
}

// Watcher follows the workspace tree for file changes.
type Watcher interface {
	// Start begins watching the workspace root and its subdirectories.
	Start(ctx context.Context, workspaceRoot string) error
	// Stop ends the watch and releases the underlying notify handles.
	Stop() error
}

// Params are inbound parameters to construct a new Watcher.
type Params struct {
	fx.In

	Broadcaster Broadcaster
	Logger      *zap.SugaredLogger
	Stats       tally.Scope
	FS          fs.MuxFS
}

type watcher struct {
	broadcaster Broadcaster
	logger      *zap.SugaredLogger
	stats       tally.Scope
	fs          fs.MuxFS

	mu      sync.Mutex
	notify  *fsnotify.Watcher
	stopped chan struct{}
	doneWG  sync.WaitGroup
}

// New creates a new workspace Watcher.
func New(p Params) Watcher {
	return &watcher{
		broadcaster: p.Broadcaster,
		logger:      p.Logger,
		stats:       p.Stats,
		fs:          p.FS,
	}
}

func (w *watcher) Start(ctx context.Context, workspaceRoot string) error {
	notify, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// Watch every directory up front; fsnotify has no recursive mode.
	err = w.fs.WalkDir(workspaceRoot, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if mapper.IgnoredDir(d.Name()) {
			return iofs.SkipDir
		}
		return notify.Add(path)
	})
	if err != nil {
		notify.Close()
		return err
	}

	w.mu.Lock()
	w.notify = notify
	w.stopped = make(chan struct{})
	w.mu.Unlock()

	w.doneWG.Add(1)
	go w.run(ctx, notify, w.stopped)
	w.logger.Infow("watching workspace for file changes", "workspaceRoot", workspaceRoot)
	return nil
}

func (w *watcher) Stop() error {
	w.mu.Lock()
	notify := w.notify
	stopped := w.stopped
	w.notify = nil
	w.mu.Unlock()

	if notify == nil {
		return nil
	}
	close(stopped)
	err := notify.Close()
	w.doneWG.Wait()
	return err
}

// run collects raw events, debounces them into batches, and broadcasts one
// didChangeWatchedFiles per batch.
func (w *watcher) run(ctx context.Context, notify *fsnotify.Watcher, stopped chan struct{}) {
	defer w.doneWG.Done()

	var pending []*protocol.FileEvent
	var flush <-chan time.Time

	for {
		select {
		case event, ok := <-notify.Events:
			if !ok {
				return
			}
			if fe, keep := w.translate(notify, event); keep {
				fe := fe
				pending = append(pending, &fe)
				flush = time.After(_debounceWindow)
			}

		case <-flush:
			w.stats.Counter("watch_batches").Inc(1)
			w.broadcaster.Broadcast(ctx, protocol.MethodWorkspaceDidChangeWatchedFiles, protocol.DidChangeWatchedFilesParams{
				Changes: pending,
			})
			pending = nil
			flush = nil

		case err, ok := <-notify.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("file watch error", "error", err)

		case <-stopped:
			return
		case <-ctx.Done():
			return
		}
	}
}

// translate maps one notify event to an LSP file event, dropping files no
// session cares about and picking up newly created directories.
func (w *watcher) translate(notify *fsnotify.Watcher, event fsnotify.Event) (protocol.FileEvent, bool) {
	if event.Has(fsnotify.Create) {
		if ok, err := w.fs.DirExists(event.Name); err == nil && ok {
			if !mapper.IgnoredDir(filepath.Base(event.Name)) {
				if err := notify.Add(event.Name); err != nil {
					w.logger.Warnw("watching new directory failed", "path", event.Name, "error", err)
				}
			}
			return protocol.FileEvent{}, false
		}
	}

	if _, err := mapper.PathToLanguage(event.Name); err != nil {
		if _, marker := mapper.MarkerToLanguage(filepath.Base(event.Name)); !marker {
			return protocol.FileEvent{}, false
		}
	}

	var changeType protocol.FileChangeType
	switch {
	case event.Has(fsnotify.Create):
		changeType = protocol.FileChangeTypeCreated
	case event.Has(fsnotify.Write):
		changeType = protocol.FileChangeTypeChanged
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		changeType = protocol.FileChangeTypeDeleted
	default:
		return protocol.FileEvent{}, false
	}

	return protocol.FileEvent{
		URI:  protocol.DocumentURI(mapper.PathToURI(event.Name)),
		Type: changeType,
	}, true
}
