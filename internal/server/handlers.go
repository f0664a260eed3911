package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jonathan/recruiter-agent/internal/db"
	"github.com/jonathan/recruiter-agent/internal/delivery"
	"github.com/jonathan/recruiter-agent/internal/observability"
	"github.com/jonathan/recruiter-agent/internal/pipeline"
	"github.com/jonathan/recruiter-agent/internal/run"
	"github.com/jonathan/recruiter-agent/internal/types"
)

// deliveryTimeout bounds delivery once the run is terminal.
const deliveryTimeout = 2 * time.Minute

// ProcessResponse is the body of POST /process. Result is present only when
// delivery did not succeed, so the caller still gets the document.
type ProcessResponse struct {
	Status    string          `json:"status"`
	RunID     string          `json:"run_id"`
	Delivered bool            `json:"delivered"`
	Result    *types.Document `json:"result,omitempty"`
}

// RunResponse is the body of GET /runs/{id}.
type RunResponse struct {
	Run    *db.RunRecord    `json:"run"`
	Stages []db.StageRecord `json:"stages"`
}

// handleIndex describes the service.
func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]any{
		"service": "recruiter-agent",
		"version": s.cfg.Version,
		"endpoints": []string{
			"POST /process",
			"POST /process/stream",
			"GET /runs/{id}",
			"GET /health",
		},
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleProcess runs the pipeline synchronously and delivers the result.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	req, err := s.deps.Intake.Decode(r.Body)
	if err != nil {
		errorResponse(w, err)
		return
	}

	doc := s.execute(r.Context(), req)
	delivered := s.deliver(r.Context(), doc)

	resp := ProcessResponse{
		Status:    doc.Status,
		RunID:     doc.RunID,
		Delivered: delivered,
	}
	if !delivered {
		resp.Result = doc
	}
	jsonResponse(w, http.StatusOK, resp)
}

// handleProcessStream runs the pipeline and streams progress as server-sent events.
func (s *Server) handleProcessStream(w http.ResponseWriter, r *http.Request) {
	req, err := s.deps.Intake.Decode(r.Body)
	if err != nil {
		errorResponse(w, err)
		return
	}

	log := observability.FromContext(r.Context())
	stream, err := openStream(w)
	if err != nil {
		log.WithError(err).Warn("stream not opened")
		return
	}

	progress := pipeline.NewProgress(func(ev pipeline.ProgressEvent) {
		if err := stream.send("progress", ev); err != nil {
			log.WithError(err).Debug("progress event not written")
		}
	})
	ctx := pipeline.ContextWithObserver(r.Context(), progress)

	doc := s.execute(ctx, req)
	delivered := s.deliver(r.Context(), doc)

	if err := stream.send("result", ProcessResponse{
		Status:    doc.Status,
		RunID:     doc.RunID,
		Delivered: delivered,
		Result:    doc,
	}); err != nil {
		log.WithError(err).Debug("result event not written")
	}
	if err := stream.finish(doc); err != nil {
		log.WithError(err).Debug("complete event not written")
	}
}

// handleGetRun returns the audit trail of a run.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.deps.Audit == nil {
		jsonResponse(w, http.StatusNotImplemented, ErrorResponse{Error: "audit_disabled", Message: "no audit database configured"})
		return
	}

	id := r.PathValue("id")
	rec, err := s.deps.Audit.GetRun(r.Context(), id)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			observability.FromContext(r.Context()).WithError(err).Error("failed to load run")
		}
		errorResponse(w, err)
		return
	}
	stages, err := s.deps.Audit.ListStages(r.Context(), id)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("failed to load run stages")
		errorResponse(w, err)
		return
	}
	if stages == nil {
		stages = []db.StageRecord{}
	}
	jsonResponse(w, http.StatusOK, RunResponse{Run: rec, Stages: stages})
}

func (s *Server) execute(ctx context.Context, req types.ProcessRequest) *types.Document {
	var opts []run.Option
	if s.cfg.RunDeadline > 0 {
		opts = append(opts, run.WithDeadline(s.cfg.RunDeadline))
	}
	rn := run.New(req, opts...)
	ctx = observability.ContextWithFields(ctx, observability.Fields{observability.FieldRunID: rn.ID()})
	return s.deps.Pipeline.Execute(ctx, rn)
}

// deliver hands doc to the sink. Delivery outlives a disconnected client.
func (s *Server) deliver(ctx context.Context, doc *types.Document) bool {
	if s.deps.Sink == nil {
		return false
	}
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliveryTimeout)
	defer cancel()

	err := s.deps.Sink.Deliver(dctx, doc)
	switch {
	case err == nil:
		return true
	case errors.Is(err, delivery.ErrSkipped):
		return false
	default:
		observability.FromContext(ctx).WithError(err).
			WithField(observability.FieldRunID, doc.RunID).
			Warn("result not delivered")
		return false
	}
}
