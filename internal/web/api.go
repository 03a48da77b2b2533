package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"lintpad/internal/config"
	"lintpad/internal/diag"
	"lintpad/internal/editor"
	"lintpad/internal/projection"
	"lintpad/internal/share"
)

type shareRequest struct {
	Config config.Config `json:"config"`
	Source string        `json:"source"`
}

type shareResponse struct {
	Token string `json:"token"`
}

type decodedResponse struct {
	Config   config.Config `json:"config"`
	Source   string        `json:"source"`
	Fallback bool          `json:"fallback"`
	Reason   string        `json:"reason,omitempty"`
}

type checkRequest struct {
	Token  *string       `json:"token,omitempty"`
	Config config.Config `json:"config"`
	Source string        `json:"source"`
}

type checkResponse struct {
	Markers []editor.Marker `json:"markers"`
	// Fixes maps a 1-based row to the actions offered on it.
	Fixes map[string][]editor.FixAction `json:"fixes"`
	Error string                        `json:"error,omitempty"`
	// Fallback is set when the token could not be decoded and the defaults
	// were checked instead.
	Fallback bool   `json:"fallback,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

func (s *Server) handleSchema(c *gin.Context) {
	c.JSON(http.StatusOK, s.opts.Catalog)
}

func (s *Server) handleShareEncode(c *gin.Context) {
	var req shareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cfg, err := s.normalize(req.Config)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	token, err := share.Encode(cfg, req.Source)
	if err != nil {
		s.log.Error("encode token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, shareResponse{Token: token})
}

func (s *Server) handleShareDecode(c *gin.Context) {
	cfg, src, reason := s.restore(c.Param("token"))
	c.JSON(http.StatusOK, decodedResponse{Config: cfg, Source: src, Fallback: reason != "", Reason: reason})
}

// restore decodes token the way a session opening it would: an undecodable
// token yields the default config and source, with the failure reason.
func (s *Server) restore(token string) (config.Config, string, string) {
	cfg, src, err := share.Decode(token)
	if err == nil {
		return config.Normalize(s.opts.Catalog, cfg), src, ""
	}
	reason := "invalid token"
	var de *share.DecodeError
	if errors.As(err, &de) {
		reason = de.Reason.String()
	}
	s.log.Info("token fell back to defaults", "error", err)
	return config.Config{}, s.opts.DefaultSource, reason
}

func (s *Server) handleCheck(c *gin.Context) {
	var req checkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp := checkResponse{Markers: []editor.Marker{}, Fixes: map[string][]editor.FixAction{}}
	var (
		cfg config.Config
		src string
	)
	if req.Token != nil {
		cfg, src, resp.Reason = s.restore(*req.Token)
		resp.Fallback = resp.Reason != ""
	} else {
		var err error
		if cfg, err = s.normalize(req.Config); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		src = req.Source
	}

	res := s.runner.Run(c.Request.Context(), src, config.ToEngine(cfg))
	if res.Err != nil {
		resp.Error = res.Err.Message
		c.JSON(http.StatusOK, resp)
		return
	}
	resp.Markers = projection.ToMarkers(res.Diagnostics)
	resp.Fixes = fixesByRow(res.Diagnostics)
	c.JSON(http.StatusOK, resp)
}

func fixesByRow(diags []diag.Diagnostic) map[string][]editor.FixAction {
	out := make(map[string][]editor.FixAction)
	for _, d := range diags {
		key := strconv.Itoa(d.Location.Row)
		if _, done := out[key]; done || !d.HasFix() {
			continue
		}
		out[key] = projection.FixesAt(diags, d.Location.Row)
	}
	return out
}
