package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/optionscalc/internal/codec"
	"github.com/alanyoungcy/optionscalc/internal/domain"
)

// CodecHandler serves token encoding and decoding.
type CodecHandler struct {
	logger *slog.Logger
}

// NewCodecHandler creates a CodecHandler.
func NewCodecHandler(logger *slog.Logger) *CodecHandler {
	return &CodecHandler{logger: logger}
}

type encodeRequest struct {
	State  domain.State `json:"state"`
	Format string       `json:"format,omitempty"`
}

type encodeResponse struct {
	Token  string       `json:"token"`
	Format codec.Format `json:"format"`
}

// Encode turns a state into a token, in the current format unless another
// is requested.
// POST /api/codec/encode
func (h *CodecHandler) Encode(w http.ResponseWriter, r *http.Request) {
	var req encodeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	format := codec.FormatV2
	if req.Format != "" {
		f, err := codec.ParseFormat(req.Format)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		format = f
	}

	token, err := codec.EncodeAs(req.State, format)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrEncode) {
			status = http.StatusUnprocessableEntity
		}
		h.logger.WarnContext(r.Context(), "handler: encode failed",
			slog.String("format", string(format)),
			slog.String("error", err.Error()),
		)
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, encodeResponse{Token: token, Format: format})
}

type decodeResponse struct {
	State  domain.State `json:"state"`
	OK     bool         `json:"ok"`
	Format codec.Format `json:"format,omitempty"`
}

// Decode reads a token. An unreadable token is not an error: the default
// state comes back with ok=false.
// GET /api/codec/decode?state=...
func (h *CodecHandler) Decode(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("state")
	state, format, err := codec.DecodeFormat(token)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: invalid state token",
			slog.Int("token_len", len(token)),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusOK, decodeResponse{State: domain.DefaultState()})
		return
	}
	writeJSON(w, http.StatusOK, decodeResponse{State: state, OK: true, Format: format})
}
