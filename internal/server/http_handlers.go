package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"strconv"
	"strings"

	"github.com/sanonone/kektornav/pkg/core/astar"
	"github.com/sanonone/kektornav/pkg/core/navgraph"
	"github.com/sanonone/kektornav/pkg/engine"
)

// maxBodyBytes caps request bodies, inline import documents included.
const maxBodyBytes = 32 << 20

// registerHTTPHandlers sets up the REST routes.
func (s *Server) registerHTTPHandlers(mux *http.ServeMux) {
	// Graphs
	mux.HandleFunc("GET /graphs", s.handleListGraphs)
	mux.HandleFunc("POST /graphs", s.handleCreateGraph)
	mux.HandleFunc("POST /graphs/actions/import", s.handleImportGraph)
	mux.HandleFunc("GET /graphs/{name}", s.handleGetGraph)
	mux.HandleFunc("DELETE /graphs/{name}", s.handleDropGraph)
	mux.HandleFunc("GET /graphs/{name}/nodes", s.handleListNodes)
	mux.HandleFunc("POST /graphs/{name}/nodes", s.handleAddNode)
	mux.HandleFunc("GET /graphs/{name}/nodes/{id}", s.handleGetNode)
	mux.HandleFunc("DELETE /graphs/{name}/nodes/{id}", s.handleRemoveNode)
	mux.HandleFunc("POST /graphs/{name}/links", s.handleLink)
	mux.HandleFunc("DELETE /graphs/{name}/links", s.handleUnlink)
	mux.HandleFunc("POST /graphs/{name}/path", s.handleFindPath)

	// Grids
	mux.HandleFunc("GET /grids", s.handleListGrids)
	mux.HandleFunc("POST /grids", s.handleCreateGrid)
	mux.HandleFunc("GET /grids/{name}", s.handleGetGrid)
	mux.HandleFunc("DELETE /grids/{name}", s.handleDropGrid)
	mux.HandleFunc("POST /grids/{name}/cells", s.handleSetCells)
	mux.HandleFunc("POST /grids/{name}/path", s.handleFindGridPath)

	// System
	mux.HandleFunc("GET /system/tasks/{id}", s.handleGetTask)
	mux.HandleFunc("POST /system/aof-rewrite", s.handleAOFRewrite)

	if s.cfg.EnablePprof {
		mux.HandleFunc("GET /debug/pprof/", pprof.Index)
		mux.HandleFunc("GET /debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("GET /debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("GET /debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("GET /debug/pprof/trace", pprof.Trace)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeHTTPResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Graph handlers ---

func (s *Server) handleListGraphs(w http.ResponseWriter, r *http.Request) {
	s.writeHTTPResponse(w, http.StatusOK, s.Engine.ListGraphs())
}

func (s *Server) handleCreateGraph(w http.ResponseWriter, r *http.Request) {
	var req CreateGraphRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := s.Engine.CreateGraph(req.Name, req.Dimension); err != nil {
		s.writeEngineError(w, err)
		return
	}
	info, _ := s.Engine.GraphInfo(req.Name)
	s.writeHTTPResponse(w, http.StatusCreated, info)
}

func (s *Server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	info, err := s.Engine.GraphInfo(r.PathValue("name"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, info)
}

func (s *Server) handleDropGraph(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.DropGraph(r.PathValue("name")); err != nil {
		s.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeHTTPError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	nodes, err := s.Engine.ListNodes(r.PathValue("name"), r.URL.Query().Get("prefix"), limit)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, ListNodesResponse{Nodes: nodes})
}

func (s *Server) handleAddNode(w http.ResponseWriter, r *http.Request) {
	var req AddNodeRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	graph := r.PathValue("name")
	if err := s.Engine.AddNode(graph, req.ID, req.Pos, req.Area); err != nil {
		s.writeEngineError(w, err)
		return
	}
	node, err := s.Engine.GetNode(graph, req.ID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, node)
}

func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	node, err := s.Engine.GetNode(r.PathValue("name"), r.PathValue("id"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, node)
}

func (s *Server) handleRemoveNode(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.RemoveNode(r.PathValue("name"), r.PathValue("id")); err != nil {
		s.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLink(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := s.Engine.Link(r.PathValue("name"), req.Src, req.Dst, req.Cost, req.Bidirectional); err != nil {
		s.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUnlink(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := s.Engine.Unlink(r.PathValue("name"), req.Src, req.Dst, req.Bidirectional); err != nil {
		s.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFindPath(w http.ResponseWriter, r *http.Request) {
	var q engine.PathQuery
	if !s.decodeJSON(w, r, &q) {
		return
	}
	res, err := s.Engine.FindPath(r.Context(), r.PathValue("name"), q)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, res)
}

// handleImportGraph starts an asynchronous import and answers 202 with the
// task to poll.
func (s *Server) handleImportGraph(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if (req.Document == "") == (req.Path == "") {
		s.writeHTTPError(w, http.StatusBadRequest, "exactly one of 'document' and 'path' must be set")
		return
	}

	select {
	case s.tasks <- struct{}{}:
	default:
		s.writeHTTPError(w, http.StatusServiceUnavailable, "too many imports in progress")
		return
	}

	task := s.taskManager.NewTask()
	go func() {
		defer func() { <-s.tasks }()
		s.runImport(task, req)
	}()

	s.writeHTTPResponse(w, http.StatusAccepted, task.Info())
}

func (s *Server) runImport(task *Task, req ImportRequest) {
	task.SetStatus(TaskStatusRunning)

	var (
		doc *navgraph.Document
		err error
	)
	if req.Path != "" {
		task.SetProgress("reading " + req.Path)
		doc, err = navgraph.LoadDocumentFile(req.Path)
	} else {
		task.SetProgress("parsing inline document")
		doc, err = navgraph.LoadDocument(strings.NewReader(req.Document))
	}
	if err != nil {
		task.SetError(err)
		return
	}

	task.SetProgress(fmt.Sprintf("building %q: %d nodes, %d edges", doc.Name, len(doc.Nodes), len(doc.Edges)))
	info, err := s.Engine.ImportDocument(doc, req.Replace)
	if err != nil {
		slog.Warn("Graph import failed", "task", task.ID(), "graph", doc.Name, "error", err)
		task.SetError(err)
		return
	}
	task.SetProgress("")
	task.SetResult(info)
	slog.Info("Graph imported", "task", task.ID(), "graph", info.Name, "nodes", info.Nodes, "edges", info.Edges)
}

// --- Grid handlers ---

func (s *Server) handleListGrids(w http.ResponseWriter, r *http.Request) {
	s.writeHTTPResponse(w, http.StatusOK, s.Engine.ListGrids())
}

func (s *Server) handleCreateGrid(w http.ResponseWriter, r *http.Request) {
	var req CreateGridRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := s.Engine.CreateGrid(req.Name, req.Width, req.Height, req.Diagonal); err != nil {
		s.writeEngineError(w, err)
		return
	}
	info, _ := s.Engine.GridInfo(req.Name)
	s.writeHTTPResponse(w, http.StatusCreated, info)
}

func (s *Server) handleGetGrid(w http.ResponseWriter, r *http.Request) {
	info, err := s.Engine.GridInfo(r.PathValue("name"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, info)
}

func (s *Server) handleDropGrid(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.DropGrid(r.PathValue("name")); err != nil {
		s.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSetCells applies updates in order and stops at the first failure.
func (s *Server) handleSetCells(w http.ResponseWriter, r *http.Request) {
	var req SetCellsRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	name := r.PathValue("name")
	for i, cell := range req.Cells {
		if err := s.Engine.SetCell(name, cell); err != nil {
			s.writeEngineError(w, fmt.Errorf("cell %d: %w", i, err))
			return
		}
	}
	info, err := s.Engine.GridInfo(name)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, info)
}

func (s *Server) handleFindGridPath(w http.ResponseWriter, r *http.Request) {
	var q engine.GridQuery
	if !s.decodeJSON(w, r, &q) {
		return
	}
	res, err := s.Engine.FindGridPath(r.Context(), r.PathValue("name"), q)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, res)
}

// --- System handlers ---

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, ok := s.taskManager.GetTask(r.PathValue("id"))
	if !ok {
		s.writeHTTPError(w, http.StatusNotFound, "task not found")
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, task.Info())
}

func (s *Server) handleAOFRewrite(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.RewriteAOF(); err != nil {
		slog.Error("AOF rewrite failed", "error", err)
		s.writeHTTPError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, map[string]string{"status": "OK"})
}

// --- HTTP helpers ---

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		s.writeHTTPError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// statusForError maps engine and graph errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, engine.ErrGraphNotFound),
		errors.Is(err, engine.ErrGridNotFound),
		errors.Is(err, navgraph.ErrNodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrGraphExists):
		return http.StatusConflict
	case errors.Is(err, engine.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, engine.ErrInvalidName),
		errors.Is(err, engine.ErrInvalidArgument),
		errors.Is(err, astar.ErrInvalidPolicy),
		errors.Is(err, navgraph.ErrInvalidCost),
		errors.Is(err, navgraph.ErrDimensionMismatch),
		errors.Is(err, navgraph.ErrInvalidArea),
		errors.Is(err, navgraph.ErrInvalidNode),
		errors.Is(err, navgraph.ErrOutOfBounds),
		errors.Is(err, navgraph.ErrInvalidSize),
		errors.Is(err, navgraph.ErrUnknownHeuristic):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "error", err)
	}
	s.writeHTTPError(w, status, err.Error())
}

func (s *Server) writeHTTPResponse(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeHTTPError(w http.ResponseWriter, statusCode int, message string) {
	s.writeHTTPResponse(w, statusCode, map[string]string{"error": message})
}
