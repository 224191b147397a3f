// Package ruleserver serves a written rule graph to MCP clients.
//
// The server is read-only. It loads the graph document and the dangling
// report written by an extraction run, indexes them, and exposes three
// tools:
//
//   - "search_rule_graph": keyword search over entity names and text.
//   - "get_rule_entity": one entity by id or name, with reverse edges.
//   - "list_dangling": the dangling reference report, optionally filtered.
//
// While serving, the files are polled and the index is swapped atomically
// when their content changes, so a concurrent extraction run is picked up
// without a restart. A reload that fails keeps the previous graph.
package ruleserver

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/rulegraph/internal/infer"
	"github.com/MrWong99/rulegraph/internal/observe"
	"github.com/MrWong99/rulegraph/internal/persist"
)

// fileState is the last observed state of one watched file.
type fileState struct {
	mtime time.Time
	hash  [sha256.Size]byte
}

// Server holds the current graph snapshot and serves it over MCP.
// All methods are safe for concurrent use.
type Server struct {
	graphPath    string
	danglingPath string
	version      string
	interval     time.Duration
	metrics      *observe.Metrics

	mu       sync.RWMutex
	snap     *snapshot
	graph    fileState
	dangling fileState
}

// Option is a functional option for [New].
type Option func(*Server)

// WithReloadInterval sets the polling interval used by [Server.Serve]. Zero
// disables reloading. The default is 5 seconds.
func WithReloadInterval(d time.Duration) Option {
	return func(s *Server) {
		if d >= 0 {
			s.interval = d
		}
	}
}

// WithVersion sets the version reported to MCP clients.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithMetrics records into m instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// New loads the graph at graphPath and the report at danglingPath. The graph
// must exist; a missing report is served as empty.
func New(graphPath, danglingPath string, opts ...Option) (*Server, error) {
	s := &Server{
		graphPath:    graphPath,
		danglingPath: danglingPath,
		version:      "dev",
		interval:     5 * time.Second,
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}

	if _, err := s.Reload(context.Background()); err != nil {
		return nil, fmt.Errorf("ruleserver: initial load: %w", err)
	}
	return s, nil
}

// Len returns the number of entities currently served.
func (s *Server) Len() int {
	return len(s.current().records)
}

func (s *Server) current() *snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Reload re-reads both files if either changed since the last load and
// swaps in the new snapshot. It reports whether the snapshot was replaced.
// On error the previous snapshot stays in place.
func (s *Server) Reload(ctx context.Context) (bool, error) {
	changed, err := s.reload()
	switch {
	case err != nil:
		s.metrics.RecordReload(ctx, "error")
	case changed:
		s.metrics.RecordReload(ctx, "ok")
		s.metrics.GraphEntities.Record(ctx, int64(s.Len()))
	}
	return changed, err
}

func (s *Server) reload() (bool, error) {
	gInfo, err := os.Stat(s.graphPath)
	if err != nil {
		return false, fmt.Errorf("stat graph: %w", err)
	}
	var dMtime time.Time
	if dInfo, err := os.Stat(s.danglingPath); err == nil {
		dMtime = dInfo.ModTime()
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat dangling report: %w", err)
	}

	s.mu.RLock()
	unchanged := s.snap != nil && gInfo.ModTime().Equal(s.graph.mtime) && dMtime.Equal(s.dangling.mtime)
	s.mu.RUnlock()
	if unchanged {
		return false, nil
	}

	graphData, graphState, err := readState(s.graphPath)
	if err != nil {
		return false, fmt.Errorf("read graph: %w", err)
	}
	danglingData, danglingState, err := readState(s.danglingPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("read dangling report: %w", err)
	}

	s.mu.Lock()
	if s.snap != nil && graphState.hash == s.graph.hash && danglingState.hash == s.dangling.hash {
		// Touched but identical.
		s.graph, s.dangling = graphState, danglingState
		s.mu.Unlock()
		return false, nil
	}
	s.mu.Unlock()

	doc, err := persist.DecodeDocument(bytes.NewReader(graphData))
	if err != nil {
		return false, err
	}
	var ds []infer.Dangling
	if len(danglingData) > 0 {
		if ds, err = persist.DecodeDangling(bytes.NewReader(danglingData)); err != nil {
			return false, err
		}
	}

	snap := newSnapshot(doc, ds)
	s.mu.Lock()
	s.snap = snap
	s.graph, s.dangling = graphState, danglingState
	s.mu.Unlock()
	return true, nil
}

// readState reads path and returns its content, modification time and hash.
func readState(path string) ([]byte, fileState, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fileState{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fileState{}, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fileState{}, err
	}
	return data, fileState{mtime: info.ModTime(), hash: sha256.Sum256(data)}, nil
}

// Watch polls the files every interval and reloads on change until ctx is
// cancelled.
func (s *Server) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			changed, err := s.Reload(ctx)
			switch {
			case err != nil:
				observe.Logger(ctx).Warn("ruleserver: reload failed, keeping previous graph", "path", s.graphPath, "err", err)
			case changed:
				observe.Logger(ctx).Info("ruleserver: graph reloaded", "path", s.graphPath, "entities", s.Len())
			}
		}
	}
}

// MCPServer returns a new MCP server with the rule graph tools registered.
func (s *Server) MCPServer() *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "rulegraph", Version: s.version}, nil)
	s.registerTools(srv)
	return srv
}

// Serve runs the MCP server on t until the client disconnects or ctx is
// cancelled, reloading the graph in the background.
func (s *Server) Serve(ctx context.Context, t mcp.Transport) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.interval > 0 {
		go s.Watch(ctx, s.interval)
	}
	if err := s.MCPServer().Run(ctx, t); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("ruleserver: serve: %w", err)
	}
	return nil
}
