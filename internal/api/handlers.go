package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"commentator/internal/services"
	"commentator/internal/session"
)

func (s *Server) handleEvent(c *gin.Context) {
	var ev session.Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		writeError(c, services.Wrap(services.ErrValidation, "api", "decode event", "", err))
		return
	}
	sess, err := s.session(c.Request.Context(), true)
	if err != nil {
		writeError(c, err)
		return
	}
	ctx, cancel := s.flowContext(c)
	defer cancel()
	outcome, err := sess.Handle(ctx, ev)
	if err != nil && outcome.Artifact == "" {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (s *Server) handleFinish(c *gin.Context) {
	var req FinishRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, services.Wrap(services.ErrValidation, "api", "decode finish", "", err))
			return
		}
	}
	sess, err := s.activeSession(c)
	if err != nil {
		writeError(c, err)
		return
	}
	ctx, cancel := s.flowContext(c)
	defer cancel()
	if req.Output == "" {
		report, err := sess.Cancel(ctx)
		s.retire(sess)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, FinishResponse{SessionID: sess.ID(), Cancelled: true, Removed: nonNil(report.Removed)})
		return
	}

	result, err := sess.Finish(ctx, req.Output)
	if err != nil {
		writeError(c, err)
		return
	}
	s.retire(sess)
	skipped := make([]string, 0, len(result.Skipped))
	for _, clip := range result.Skipped {
		skipped = append(skipped, clip.Name)
	}
	c.JSON(http.StatusOK, FinishResponse{
		SessionID:  sess.ID(),
		OutputPath: result.OutputPath,
		Clips:      len(result.Clips),
		Skipped:    skipped,
		Removed:    nonNil(result.Cleanup.Removed),
		ElapsedMs:  result.Elapsed.Milliseconds(),
	})
}

func (s *Server) handleCancel(c *gin.Context) {
	sess, err := s.activeSession(c)
	if err != nil {
		writeError(c, err)
		return
	}
	ctx, cancel := s.flowContext(c)
	defer cancel()
	report, err := sess.Cancel(ctx)
	s.retire(sess)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, CancelResponse{
		SessionID: sess.ID(),
		Removed:   nonNil(report.Removed),
		Missing:   nonNil(report.Missing),
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	sess, _ := s.session(c.Request.Context(), false)
	resp := StatusResponse{
		Uptime:  time.Since(s.started).Round(time.Second).String(),
		Clients: s.hub.count(),
		Now:     time.Now().UTC(),
	}
	if sess != nil {
		status := sess.Status()
		resp.Active = status.State == session.StateActive
		resp.Session = &status
	}
	c.JSON(http.StatusOK, resp)
}

var errNoSession = errors.New("no active session")

func (s *Server) activeSession(c *gin.Context) (Session, error) {
	sess, err := s.session(c.Request.Context(), false)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, services.Wrap(services.ErrValidation, "api", "session", "", errNoSession)
	}
	return sess, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
