package export

// Live preview: an HTTP server that renders the map file as the
// interactive page and tells connected browsers to reload (via Server-Sent
// Events) whenever the file changes on disk.

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// PreviewServer manages SSE connections and file watching for live preview.
type PreviewServer struct {
	path    string
	render  func() ([]byte, error)
	watcher *fsnotify.Watcher
	log     *zap.Logger

	// clients holds all connected SSE clients
	mu      sync.RWMutex
	clients map[chan struct{}]struct{}

	ctx    context.Context
	cancel context.CancelFunc

	// debounce rapid file changes
	lastEvent time.Time
	debounce  time.Duration
}

// NewPreviewServer creates a preview for the map file at path. render
// produces the page body on every request.
func NewPreviewServer(path string, render func() ([]byte, error), log *zap.Logger) (*PreviewServer, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &PreviewServer{
		path:     filepath.Clean(path),
		render:   render,
		watcher:  watcher,
		log:      log,
		clients:  make(map[chan struct{}]struct{}),
		ctx:      ctx,
		cancel:   cancel,
		debounce: 200 * time.Millisecond,
	}, nil
}

// Start begins watching the map file. The directory is watched rather than
// the file so atomic rename-on-save is seen.
func (p *PreviewServer) Start() error {
	if err := p.watcher.Add(filepath.Dir(p.path)); err != nil {
		return fmt.Errorf("watch map directory: %w", err)
	}
	go p.watchLoop()
	return nil
}

// Stop shuts down the watcher and disconnects every client.
func (p *PreviewServer) Stop() {
	p.cancel()
	p.watcher.Close()

	p.mu.Lock()
	defer p.mu.Unlock()
	for ch := range p.clients {
		close(ch)
	}
	p.clients = make(map[chan struct{}]struct{})
}

// ClientCount returns the number of connected clients.
func (p *PreviewServer) ClientCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.clients)
}

func (p *PreviewServer) watchLoop() {
	for {
		select {
		case <-p.ctx.Done():
			return

		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != p.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			now := time.Now()
			if now.Sub(p.lastEvent) < p.debounce {
				continue
			}
			p.lastEvent = now
			p.log.Debug("map changed, reloading previews", zap.String("path", p.path))
			p.notifyClients()

		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.log.Warn("preview watcher error", zap.Error(err))
		}
	}
}

// notifyClients sends a reload signal to all connected SSE clients.
func (p *PreviewServer) notifyClients() {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for ch := range p.clients {
		select {
		case ch <- struct{}{}:
		default:
			// Client already has a reload pending
		}
	}
}

// Handler serves the page at / and the event stream.
func (p *PreviewServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/__preview__/events", p.SSEHandler())
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" && r.URL.Path != "/index.html" {
			http.NotFound(w, r)
			return
		}
		body, err := p.render()
		if err != nil {
			p.log.Warn("preview render failed", zap.Error(err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(injectScript(body, []byte(LiveReloadScript)))
	})
	return mux
}

// SSEHandler returns an HTTP handler for the SSE endpoint.
func (p *PreviewServer) SSEHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "SSE not supported", http.StatusInternalServerError)
			return
		}

		clientCh := make(chan struct{}, 1)
		p.mu.Lock()
		p.clients[clientCh] = struct{}{}
		p.mu.Unlock()

		defer func() {
			p.mu.Lock()
			delete(p.clients, clientCh)
			p.mu.Unlock()
		}()

		fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\"}\n\n")
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-p.ctx.Done():
				return
			case _, ok := <-clientCh:
				if !ok {
					return
				}
				fmt.Fprintf(w, "event: reload\ndata: {\"action\":\"reload\"}\n\n")
				flusher.Flush()
			}
		}
	}
}

// LiveReloadScript connects to the SSE endpoint and reloads on events.
const LiveReloadScript = `<script>
(function() {
  if (typeof(EventSource) === 'undefined') return;
  var reconnectDelay = 1000;
  var maxReconnectDelay = 30000;

  function connect() {
    var es = new EventSource('/__preview__/events');

    es.addEventListener('connected', function() {
      reconnectDelay = 1000;
    });

    es.addEventListener('reload', function() {
      location.reload();
    });

    es.onerror = function() {
      es.close();
      setTimeout(connect, reconnectDelay);
      reconnectDelay = Math.min(reconnectDelay * 2, maxReconnectDelay);
    };
  }

  connect();
})();
</script>`

// injectScript inserts script before the last </body>, or appends it when
// the page has none.
func injectScript(page, script []byte) []byte {
	idx := bytes.LastIndex(page, []byte("</body>"))
	if idx < 0 {
		return append(append([]byte{}, page...), script...)
	}
	out := make([]byte, 0, len(page)+len(script))
	out = append(out, page[:idx]...)
	out = append(out, script...)
	return append(out, page[idx:]...)
}
