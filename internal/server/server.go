package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"kdindex/internal/kdtree"
	"kdindex/internal/models"
	"kdindex/internal/storage"
)

// Server answers spatial queries over stored datasets
type Server struct {
	storage     *storage.Storage
	port        int
	idleTimeout time.Duration
	httpServer  *http.Server

	// Trees are built on first use and shared by all requests
	mu    sync.Mutex
	trees map[string]*cachedTree

	// Idle timeout management
	activityMu   sync.Mutex
	lastActivity time.Time
	shutdownChan chan struct{}
}

// New creates a new Server
func New(store *storage.Storage, port int, idleTimeout time.Duration) *Server {
	return &Server{
		storage:      store,
		port:         port,
		idleTimeout:  idleTimeout,
		trees:        make(map[string]*cachedTree),
		lastActivity: time.Now(),
		shutdownChan: make(chan struct{}),
	}
}

// Handler returns the API routes
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/datasets", s.handleDatasets).Methods(http.MethodGet)
	api.HandleFunc("/nearest", s.handleNearest).Methods(http.MethodGet)
	api.HandleFunc("/knn", s.handleKNN).Methods(http.MethodGet)
	api.HandleFunc("/within", s.handleWithin).Methods(http.MethodGet)
	api.HandleFunc("/tree", s.handleTree).Methods(http.MethodGet)
	api.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet}),
	)
	return cors(router)
}

// Start starts the server and blocks until it shuts down
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: handlers.CombinedLoggingHandler(os.Stderr, s.Handler()),
	}

	// Start idle timeout checker
	if s.idleTimeout > 0 {
		go s.idleTimeoutChecker()
	}

	// Handle shutdown signals
	go s.handleShutdownSignals()

	log.Printf("listening on :%d", s.port)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleShutdownSignals() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Println("shutting down server")
	case <-s.shutdownChan:
		log.Println("idle timeout reached, shutting down server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.httpServer.Shutdown(ctx)
	s.storage.Close()
}

func (s *Server) idleTimeoutChecker() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.activityMu.Lock()
			idle := time.Since(s.lastActivity)
			s.activityMu.Unlock()

			if idle >= s.idleTimeout {
				close(s.shutdownChan)
				return
			}
		case <-s.shutdownChan:
			return
		}
	}
}

func (s *Server) recordActivity() {
	s.activityMu.Lock()
	s.lastActivity = time.Now()
	s.activityMu.Unlock()
}

// cachedTree is the index of one stored version of a dataset
type cachedTree struct {
	id   int64
	tree *kdtree.Tree
}

// tree returns the index for a dataset. It is rebuilt when the dataset has
// been re-imported since it was cached, and dropped when it has been removed.
func (s *Server) tree(name string) (*kdtree.Tree, error) {
	id, err := s.storage.GetDatasetID(name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.mu.Lock()
			delete(s.trees, name)
			s.mu.Unlock()
		}
		return nil, err
	}

	s.mu.Lock()
	cached, ok := s.trees[name]
	s.mu.Unlock()
	if ok && cached.id == id {
		return cached.tree, nil
	}

	// Built outside the lock; concurrent misses may both build
	ds, err := s.storage.GetDataset(name)
	if err != nil {
		return nil, err
	}
	t, err := kdtree.Build(ds.Points)
	if err != nil {
		return nil, fmt.Errorf("failed to index %s: %w", name, err)
	}

	s.mu.Lock()
	if cur, ok := s.trees[name]; !ok || cur.id <= ds.ID {
		s.trees[name] = &cachedTree{id: ds.ID, tree: t}
	}
	s.mu.Unlock()
	return t, nil
}

type neighbor struct {
	Point    kdtree.Point `json:"point"`
	Distance float64      `json:"distance"`
}

type queryResponse struct {
	Dataset   string       `json:"dataset"`
	Target    kdtree.Point `json:"target"`
	Neighbors []neighbor   `json:"neighbors"`
}

// API Handlers

func (s *Server) handleDatasets(w http.ResponseWriter, r *http.Request) {
	s.recordActivity()

	datasets, err := s.storage.ListDatasets()
	if err != nil {
		writeError(w, err)
		return
	}
	if datasets == nil {
		datasets = []*models.Dataset{}
	}

	writeJSON(w, datasets)
}

func (s *Server) handleNearest(w http.ResponseWriter, r *http.Request) {
	s.recordActivity()

	name, target, tree, err := s.parseQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	node, err := tree.Nearest(target)
	if err != nil {
		writeError(w, err)
		return
	}

	var nodes []*kdtree.Node
	if node != nil {
		nodes = append(nodes, node)
	}
	s.respond(w, name, target, models.QueryNearest, 0, nodeNeighbors(nodes, target))
}

func (s *Server) handleKNN(w http.ResponseWriter, r *http.Request) {
	s.recordActivity()

	k, err := strconv.Atoi(r.URL.Query().Get("k"))
	if err != nil {
		writeError(w, badRequest("k must be an integer"))
		return
	}

	name, target, tree, err := s.parseQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	nodes, err := tree.KNearest(target, k)
	if err != nil {
		writeError(w, err)
		return
	}

	s.respond(w, name, target, models.QueryKNN, float64(k), nodeNeighbors(nodes, target))
}

func (s *Server) handleWithin(w http.ResponseWriter, r *http.Request) {
	s.recordActivity()

	radius, err := strconv.ParseFloat(r.URL.Query().Get("radius"), 64)
	if err != nil {
		writeError(w, badRequest("radius must be a number"))
		return
	}

	name, target, tree, err := s.parseQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	points, err := tree.Within(target, radius)
	if err != nil {
		writeError(w, err)
		return
	}

	neighbors := make([]neighbor, len(points))
	for i, p := range points {
		d, _ := kdtree.Distance(p, target)
		neighbors[i] = neighbor{Point: p, Distance: d}
	}
	s.respond(w, name, target, models.QueryWithin, radius, neighbors)
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	s.recordActivity()

	name := r.URL.Query().Get("dataset")
	if name == "" {
		writeError(w, badRequest("dataset required"))
		return
	}

	tree, err := s.tree(name)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := tree.Dump(w); err != nil {
		log.Printf("failed to write tree for %s: %v", name, err)
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.recordActivity()

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, badRequest("limit must be an integer"))
			return
		}
		limit = n
	}

	records, err := s.storage.GetQueryHistory(r.URL.Query().Get("dataset"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if records == nil {
		records = []*models.QueryRecord{}
	}

	writeJSON(w, records)
}

// parseQuery reads the dataset and target parameters shared by all queries
func (s *Server) parseQuery(r *http.Request) (string, kdtree.Point, *kdtree.Tree, error) {
	q := r.URL.Query()

	name := q.Get("dataset")
	if name == "" {
		return "", nil, nil, badRequest("dataset required")
	}
	if q.Get("target") == "" {
		return "", nil, nil, badRequest("target required")
	}
	target, err := storage.ParsePoint(q.Get("target"))
	if err != nil {
		return "", nil, nil, badRequest(err.Error())
	}

	tree, err := s.tree(name)
	if err != nil {
		return "", nil, nil, err
	}
	return name, target, tree, nil
}

func (s *Server) respond(w http.ResponseWriter, name string, target kdtree.Point, kind string, param float64, neighbors []neighbor) {
	err := s.storage.RecordQuery(&models.QueryRecord{
		Dataset: name,
		Kind:    kind,
		Target:  target,
		Param:   param,
		Results: len(neighbors),
	})
	if err != nil {
		log.Printf("failed to record %s query on %s: %v", kind, name, err)
	}

	writeJSON(w, queryResponse{Dataset: name, Target: target, Neighbors: neighbors})
}

func nodeNeighbors(nodes []*kdtree.Node, target kdtree.Point) []neighbor {
	neighbors := make([]neighbor, len(nodes))
	for i, n := range nodes {
		p := n.Value()
		d, _ := kdtree.Distance(p, target)
		neighbors[i] = neighbor{Point: p, Distance: d}
	}
	return neighbors
}

// requestError marks errors caused by malformed request parameters
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(msg string) error {
	return &requestError{msg: msg}
}

func writeError(w http.ResponseWriter, err error) {
	var reqErr *requestError
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &reqErr),
		errors.Is(err, kdtree.ErrInvalidInput),
		errors.Is(err, kdtree.ErrDimensionMismatch):
		status = http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	}
	http.Error(w, strings.TrimSpace(err.Error()), status)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
