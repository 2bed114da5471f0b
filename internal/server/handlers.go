package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/nao1215/patternscan/internal/audit"
	"github.com/nao1215/patternscan/internal/model"
)

// AnalyzeRequest is the body of POST /api/analyze.
type AnalyzeRequest struct {
	URL string `json:"url"`
}

// SnapshotSummary describes the scraped page without its markup or
// screenshot.
type SnapshotSummary struct {
	URL           string `json:"url"`
	Title         string `json:"title"`
	LoadTimeMs    int64  `json:"load_time_ms"`
	Forms         int    `json:"forms"`
	Buttons       int    `json:"buttons"`
	Links         int    `json:"links"`
	Modals        int    `json:"modals"`
	CookieNotices int    `json:"cookie_notices"`
}

// summarize builds the summary for a snapshot.
func summarize(s *model.PageSnapshot) *SnapshotSummary {
	if s == nil {
		return nil
	}
	return &SnapshotSummary{
		URL:           s.URL,
		Title:         s.Title,
		LoadTimeMs:    s.LoadTimeMs,
		Forms:         len(s.Forms),
		Buttons:       len(s.Buttons),
		Links:         len(s.Links),
		Modals:        len(s.Modals),
		CookieNotices: len(s.CookieNotices),
	}
}

// AnalyzeResponse is the body of every /api/analyze response.
type AnalyzeResponse struct {
	Success      bool                  `json:"success"`
	Data         *model.AnalysisResult `json:"data,omitempty"`
	Snapshot     *SnapshotSummary      `json:"snapshot,omitempty"`
	Cached       bool                  `json:"cached,omitempty"`
	Error        string                `json:"error,omitempty"`
	ErrorKind    model.ErrorKind       `json:"error_kind,omitempty"`
	RetryAfterMs int64                 `json:"retry_after_ms,omitempty"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// auditOutcome is a completed audit shared between coalesced requests and
// stored in the result cache.
type auditOutcome struct {
	result   model.AnalysisResult
	snapshot *SnapshotSummary
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: s.version})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if ok, wait := s.limiter.allow(clientAddress(r), s.now()); !ok {
		s.metrics.IncRateLimited()
		retry := max(int64(wait/time.Second), 1)
		w.Header().Set("Retry-After", strconv.FormatInt(retry, 10))
		writeJSON(w, http.StatusTooManyRequests, AnalyzeResponse{
			Error:        "rate limit exceeded, try again later",
			RetryAfterMs: wait.Milliseconds(),
		})
		return
	}

	var req AnalyzeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, AnalyzeResponse{Error: "invalid JSON body"})
		return
	}

	target, err := s.validator.Validate(r.Context(), req.URL)
	if err != nil {
		s.writeValidationError(w, err)
		return
	}

	if s.cache != nil {
		if cached, ok := s.cache.Get(target); ok {
			s.metrics.IncCacheHit()
			writeJSON(w, http.StatusOK, AnalyzeResponse{
				Success:  true,
				Data:     &cached.result,
				Snapshot: cached.snapshot,
				Cached:   true,
			})
			return
		}
	}

	outcome, err := s.audit(r.Context(), target)
	if err != nil {
		s.writeAuditError(w, target, err)
		return
	}

	writeJSON(w, http.StatusOK, AnalyzeResponse{
		Success:  true,
		Data:     &outcome.result,
		Snapshot: outcome.snapshot,
	})
}

// audit runs one audit per target at a time; concurrent requests for the
// same normalized URL wait for and share the first one's outcome.
func (s *Server) audit(ctx context.Context, target string) (auditOutcome, error) {
	ch := s.inflight.DoChan(target, func() (any, error) {
		// The audit outlives a disconnecting client so that other waiters
		// still get a result; the navigation timeout bounds it.
		snapshot, result, err := s.auditor.Audit(context.WithoutCancel(ctx), target)
		if err != nil {
			return auditOutcome{}, err
		}
		outcome := auditOutcome{result: result, snapshot: summarize(snapshot)}
		if s.cache != nil {
			s.cache.Add(target, outcome)
		}
		return outcome, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return auditOutcome{}, res.Err
		}
		return res.Val.(auditOutcome), nil //nolint:forcetypeassert // only auditOutcome is stored
	case <-ctx.Done():
		return auditOutcome{}, ctx.Err()
	}
}

// writeValidationError maps URL validation failures. Resolution failures
// are upstream problems and get 502.
func (s *Server) writeValidationError(w http.ResponseWriter, err error) {
	var resolveErr *ResolveError
	if errors.As(err, &resolveErr) {
		writeJSON(w, http.StatusBadGateway, AnalyzeResponse{
			Error:     "could not resolve the site's host name",
			ErrorKind: model.ErrorKindNetwork,
		})
		return
	}
	writeJSON(w, http.StatusBadRequest, AnalyzeResponse{Error: "invalid url: " + err.Error()})
}

// writeAuditError maps a failed audit to a status code and message.
// Unexpected failures get a generic message; details go to the log.
func (s *Server) writeAuditError(w http.ResponseWriter, target string, err error) {
	kind := audit.KindOf(err)
	if errors.Is(err, context.DeadlineExceeded) {
		kind = model.ErrorKindTimeout
	}

	resp := AnalyzeResponse{ErrorKind: kind}
	status := http.StatusInternalServerError

	switch kind {
	case model.ErrorKindTimeout:
		status = http.StatusGatewayTimeout
		resp.Error = "the site took too long to load"
	case model.ErrorKindNetwork:
		status = http.StatusBadGateway
		resp.Error = "could not connect to the site (DNS or connection failure)"
	case model.ErrorKindHTTPStatus:
		status = http.StatusBadGateway
		resp.Error = "the site returned an error: " + err.Error()
	default:
		resp.Error = "analysis failed"
		resp.ErrorKind = model.ErrorKindInternal
		s.logger.Error("analysis failed", "url", target, "error", err)
	}

	writeJSON(w, status, resp)
}

// clientAddress returns the host part of the remote address.
func clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
