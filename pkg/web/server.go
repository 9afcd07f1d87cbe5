// Package web serves the session graph over a JSON API with SSE
// change notifications.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/netneighbors/netneighbors/pkg/discovery"
	"github.com/netneighbors/netneighbors/pkg/export"
	"github.com/netneighbors/netneighbors/pkg/logging"
	"github.com/netneighbors/netneighbors/pkg/model"
	"github.com/netneighbors/netneighbors/pkg/pubsub"
	"github.com/netneighbors/netneighbors/pkg/session"
	"github.com/netneighbors/netneighbors/pkg/store"
	"github.com/netneighbors/netneighbors/pkg/validate"
)

// Server exposes a session graph over HTTP
type Server struct {
	router    *mux.Router
	publisher *pubsub.SSEPublisher
	session   *session.Session
	engine    *discovery.Engine
	store     store.GraphStore
}

// NewServer creates a web server around one session
func NewServer(sess *session.Session, engine *discovery.Engine, st store.GraphStore) *Server {
	ssePublisher := pubsub.NewSSEPublisher()

	// graph: new subscribers only need the current state
	ssePublisher.ConfigureTopic(pubsub.TopicGraph, pubsub.TopicConfig{
		BufferSize: 5,
		ReplayAll:  false,
	})

	// store: replay the latest lifecycle event so clients learn
	// whether the store is ready without polling
	ssePublisher.ConfigureTopic(pubsub.TopicStore, pubsub.TopicConfig{
		BufferSize: 10,
		ReplayAll:  false,
	})

	s := &Server{
		router:    mux.NewRouter(),
		publisher: ssePublisher,
		session:   sess,
		engine:    engine,
		store:     st,
	}
	s.setupRoutes()
	return s
}

// Publisher exposes the event publisher so the dataset watcher can
// report store lifecycle events.
func (s *Server) Publisher() pubsub.Publisher {
	return s.publisher
}

func (s *Server) setupRoutes() {
	// SSE subscription endpoint
	s.router.HandleFunc("/api/subscribe/{topic}", s.handleSubscribe).Methods("GET")

	// Session mutations
	s.router.HandleFunc("/api/seeds", s.handleAddSeeds).Methods("POST")
	s.router.HandleFunc("/api/expand", s.handleExpand).Methods("POST")
	s.router.HandleFunc("/api/expand/confirm", s.handleConfirm).Methods("POST")
	s.router.HandleFunc("/api/expand/cancel", s.handleCancel).Methods("POST")
	s.router.HandleFunc("/api/nodes/delete", s.handleDeleteNodes).Methods("POST")
	s.router.HandleFunc("/api/clear", s.handleClear).Methods("POST")

	// Analyses
	s.router.HandleFunc("/api/intersect", s.handleIntersect).Methods("POST")
	s.router.HandleFunc("/api/validate", s.handleValidate).Methods("POST")

	// Reads
	s.router.HandleFunc("/api/graph", s.handleGraph).Methods("GET")
	s.router.HandleFunc("/api/state", s.handleState).Methods("GET")

	// Exports
	s.router.HandleFunc("/api/export/nodes.csv", s.handleExportNodes).Methods("GET")
	s.router.HandleFunc("/api/export/edges.csv", s.handleExportEdges).Methods("GET")
	s.router.HandleFunc("/api/export/graph.gexf", s.handleExportGEXF).Methods("GET")
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["topic"]
	if topic != pubsub.TopicGraph && topic != pubsub.TopicStore {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown topic %q", topic))
		return
	}

	// SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// Initial comment to establish the connection (Safari compatibility)
	fmt.Fprintf(w, ": connected\n\n")
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	sub, err := s.publisher.Subscribe(r.Context(), topic)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer sub.Close()

	for event := range sub.Events() {
		if err := pubsub.WriteSSE(w, event); err != nil {
			logging.WarnContext(r.Context(), "error writing SSE event", "error", err)
			return
		}
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}
	}
}

type addSeedsRequest struct {
	Domains []string `json:"domains"`
}

func (s *Server) handleAddSeeds(w http.ResponseWriter, r *http.Request) {
	var req addSeedsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}

	report, err := validate.Seeds(s.store, req.Domains)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, validate.ErrTooManySeeds) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}

	report.Added = s.session.AddSeeds(report.Found)
	s.publishGraph("seeds_added", report.Summary())
	writeJSON(w, http.StatusOK, report)
}

type expandRequest struct {
	Selected       []string `json:"selected"`
	MinConnections int      `json:"minConnections"`
	Direction      string   `json:"direction"`
}

func (s *Server) handleExpand(w http.ResponseWriter, r *http.Request) {
	var req expandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}
	direction := model.Backlinks
	if req.Direction != "" {
		var err error
		direction, err = model.ParseDirection(req.Direction)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	outcome, err := s.session.Expand(r.Context(), req.Selected, req.MinConnections, direction)
	switch {
	case errors.Is(err, session.ErrAwaitingConfirmation):
		writeError(w, http.StatusConflict, err)
		return
	case errors.Is(err, session.ErrNoSelection):
		writeError(w, http.StatusBadRequest, err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if outcome.Applied {
		s.publishGraph("merged", fmt.Sprintf("merged %d node(s), %d edge(s)", outcome.NewNodes, outcome.NewEdges))
		writeJSON(w, http.StatusOK, outcome)
		return
	}
	s.publishGraph("staged", fmt.Sprintf("%d new node(s) awaiting confirmation", outcome.NewNodes))
	writeJSON(w, http.StatusAccepted, outcome)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	outcome, err := s.session.ConfirmPendingMerge()
	if errors.Is(err, session.ErrNoPendingMerge) {
		writeError(w, http.StatusConflict, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.publishGraph("merged", fmt.Sprintf("confirmed merge of %d node(s)", outcome.NewNodes))
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.session.CancelPendingMerge(); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	s.publishGraph("cancelled", "staged merge discarded")
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

type deleteNodesRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) handleDeleteNodes(w http.ResponseWriter, r *http.Request) {
	var req deleteNodesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}

	removedNodes, removedEdges := s.session.DeleteNodes(req.IDs)
	s.publishGraph("deleted", fmt.Sprintf("removed %d node(s), %d edge(s)", removedNodes, removedEdges))
	writeJSON(w, http.StatusOK, map[string]int{
		"removedNodes": removedNodes,
		"removedEdges": removedEdges,
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.session.Clear()
	s.publishGraph("cleared", "session reset")
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

type intersectGroup struct {
	Kind           string   `json:"kind"`
	Seeds          []string `json:"seeds"`
	MinConnections int      `json:"minConnections"`
}

type intersectRequest struct {
	GroupA     intersectGroup `json:"groupA"`
	GroupB     intersectGroup `json:"groupB"`
	SharedKind string         `json:"sharedKind"`
}

func (s *Server) handleIntersect(w http.ResponseWriter, r *http.Request) {
	var req intersectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}
	if len(req.GroupA.Seeds) == 0 || len(req.GroupB.Seeds) == 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("both groups need seeds"))
		return
	}
	sharedKind := model.KindLinkSpam
	if req.SharedKind != "" {
		sharedKind = model.NodeKind(req.SharedKind)
	}

	graph, err := s.engine.IntersectBacklinkers(r.Context(),
		discovery.Group{Kind: model.NodeKind(req.GroupA.Kind), Seeds: req.GroupA.Seeds, MinConnections: req.GroupA.MinConnections},
		discovery.Group{Kind: model.NodeKind(req.GroupB.Kind), Seeds: req.GroupB.Seeds, MinConnections: req.GroupB.MinConnections},
		sharedKind,
	)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, graphResponse(graph))
}

type validateRequest struct {
	Domains []string `json:"domains"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}
	report, err := validate.Seeds(s.store, req.Domains)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, validate.ErrTooManySeeds) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, graphResponse(s.session.Snapshot()))
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"state": s.session.State(),
		"hop":   s.session.Hop(),
		"nodes": s.session.NodeCount(),
		"edges": s.session.EdgeCount(),
	})
}

func (s *Server) handleExportNodes(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="nodes.csv"`)
	if err := export.NodesCSV(w, s.session.Snapshot()); err != nil {
		logging.ErrorContext(r.Context(), "node export failed", "error", err)
	}
}

func (s *Server) handleExportEdges(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="edges.csv"`)
	if err := export.EdgesCSV(w, s.session.Snapshot()); err != nil {
		logging.ErrorContext(r.Context(), "edge export failed", "error", err)
	}
}

func (s *Server) handleExportGEXF(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("Content-Disposition", `attachment; filename="graph.gexf"`)
	if err := export.GEXF(w, s.session.Snapshot()); err != nil {
		logging.ErrorContext(r.Context(), "gexf export failed", "error", err)
	}
}

// publishGraph emits a graph update; delivery is best effort.
func (s *Server) publishGraph(eventType, message string) {
	update := pubsub.GraphUpdate{
		Nodes:   s.session.NodeCount(),
		Edges:   s.session.EdgeCount(),
		Hop:     s.session.Hop(),
		State:   string(s.session.State()),
		Message: message,
	}
	if err := s.publisher.Publish(pubsub.TopicGraph, eventType, update); err != nil {
		logging.Warn("failed to publish graph update", "error", err)
	}
}

// graphResponse flattens a model.Graph for JSON clients, with nodes
// and edges in deterministic order.
func graphResponse(g *model.Graph) map[string]interface{} {
	nodes := g.SortedNodes()
	edges := g.SortedEdges()
	if nodes == nil {
		nodes = []*model.Node{}
	}
	if edges == nil {
		edges = []model.Edge{}
	}
	return map[string]interface{}{
		"nodes": nodes,
		"edges": edges,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// Handler returns the full middleware-wrapped handler, for embedding
// in tests or another mux.
func (s *Server) Handler() http.Handler {
	return logging.RequestIDMiddleware(s.router)
}

// Start starts the web server on the specified port
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	logging.Info("starting web server", "addr", fmt.Sprintf("http://localhost%s", addr))
	return http.ListenAndServe(addr, s.Handler())
}
