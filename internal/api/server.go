// Package api serves the decoder over HTTP. Request bodies are raw
// safetensors containers; responses are JSON.
package api

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/safedump/internal/export"
	"github.com/samcharles93/safedump/internal/logger"
	"github.com/samcharles93/safedump/pkg/safetensors"
)

// DefaultMaxBodyBytes caps request bodies when Config.MaxBodyBytes is unset.
const DefaultMaxBodyBytes = 256 << 20

type Config struct {
	Decoder      *safetensors.Decoder
	MaxBodyBytes int64
	Logger       logger.Logger
	Version      string
}

type Server struct {
	decoder *safetensors.Decoder
	maxBody int64
	log     logger.Logger
	version string
}

func NewServer(cfg Config) *Server {
	s := &Server{
		decoder: cfg.Decoder,
		maxBody: cfg.MaxBodyBytes,
		log:     cfg.Logger,
		version: cfg.Version,
	}
	if s.decoder == nil {
		s.decoder = safetensors.NewDecoder()
	}
	if s.maxBody <= 0 {
		s.maxBody = DefaultMaxBodyBytes
	}
	if s.log == nil {
		s.log = logger.Discard()
	}
	return s
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.POST("/v1/inspect", s.handleInspect)
	e.POST("/v1/decode", s.handleDecode)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: s.version})
}

func (s *Server) handleInspect(c *echo.Context) error {
	buf, err := readBody(c.Request().Body, s.maxBody)
	if err != nil {
		return writeDecodeError(c, err)
	}
	h, descs, err := s.decoder.Inspect(buf)
	if err != nil {
		s.log.Debug("inspect failed", "error", err)
		return writeDecodeError(c, err)
	}

	region := h.DataRegion(buf)
	summaries := make([]export.Summary, 0, len(descs))
	for _, d := range descs {
		summaries = append(summaries, export.Summarize(d, region))
	}
	return c.JSON(http.StatusOK, InspectResponse{
		ID:           newRequestID("insp"),
		Object:       "inspection",
		HeaderLength: h.Length,
		Metadata:     h.Metadata,
		Tensors:      summaries,
	})
}

func (s *Server) handleDecode(c *echo.Context) error {
	wanted := c.Request().URL.Query()["tensor"]
	for _, name := range wanted {
		if name == "" {
			return writeBadRequest(c, "tensor name must not be empty")
		}
	}

	buf, err := readBody(c.Request().Body, s.maxBody)
	if err != nil {
		return writeDecodeError(c, err)
	}
	h, descs, err := s.decoder.Inspect(buf)
	if err != nil {
		s.log.Debug("decode failed", "error", err)
		return writeDecodeError(c, err)
	}
	if len(wanted) > 0 {
		descs, err = safetensors.Select(descs, wanted)
		if err != nil {
			return writeError(c, http.StatusNotFound, "not_found_error", err.Error(), "tensor_not_found")
		}
	}

	region := h.DataRegion(buf)
	out := make([]DecodedTensor, 0, len(descs))
	for _, d := range descs {
		t, err := s.decoder.Extract(region, d)
		if err != nil {
			s.log.Debug("extract failed", "tensor", d.Name, "error", err)
			return writeDecodeError(c, err)
		}
		if err := export.CheckFinite(t); err != nil {
			return writeDecodeError(c, err)
		}
		out = append(out, DecodedTensor{
			Name:  t.Name,
			DType: t.DType.String(),
			Shape: t.Shape,
			Data:  t.Nested(),
		})
	}
	s.log.Info("decoded", "tensors", len(out), "bytes", len(buf))
	return c.JSON(http.StatusOK, DecodeResponse{
		ID:      newRequestID("dec"),
		Object:  "decode",
		Tensors: out,
	})
}
