package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/GZTimeWalker/berry-pasty/cfg"
	"github.com/GZTimeWalker/berry-pasty/pkg/domain"
	"github.com/GZTimeWalker/berry-pasty/svc/svc"
	"github.com/GZTimeWalker/berry-pasty/svc/util"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
	"golang.org/x/text/unicode/norm"
)

type Hdl struct {
	pasty *svc.Pasty
	cfg   *cfg.Cfg
}

// MsgResp is the envelope for every non-content JSON response.
type MsgResp struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (h *Hdl) Index(w http.ResponseWriter, r *http.Request) {
	if h.cfg.IndexLink != "" {
		http.Redirect(w, r, h.cfg.IndexLink, http.StatusFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, h.cfg.IndexText)
}

func (h *Hdl) GetPasty(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	id := chi.URLParam(r, "id")
	pasty, err := h.pasty.Get(r.Context(), id)
	if err != nil {
		log.Warn().Err(err).Str("pasty_id", id).Msg("get failed")
		writeErr(w, r, err)
		return
	}
	log.Info().
		Str("pasty_id", id).
		Str("type", pasty.Type.String()).
		Str("client_ip", util.RedactIP(r.RemoteAddr)).
		Msg("pasty retrieved")
	if pasty.Type == domain.ContentTypeRedirect {
		http.Redirect(w, r, pasty.Content, http.StatusFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, pasty.Content)
}

func (h *Hdl) GetStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	stats, err := h.pasty.GetStats(r.Context(), id)
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Str("pasty_id", id).Msg("stats failed")
		writeErr(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(stats)
}

func (h *Hdl) ListAll(w http.ResponseWriter, r *http.Request) {
	infos, err := h.pasty.List(r.Context())
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("list failed")
		writeErr(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(infos)
}

func (h *Hdl) CreateRandom(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	content, t, err := h.readContent(w, r)
	if err != nil {
		log.Warn().Err(err).Msg("rejected create")
		writeErr(w, r, err)
		return
	}
	token := extractToken(r)
	id, err := h.pasty.CreateRandom(r.Context(), content, t, token)
	if err != nil {
		log.Error().Err(err).Msg("failed to create pasty")
		writeErr(w, r, err)
		return
	}
	log.Info().
		Str("pasty_id", id).
		Str("type", t.String()).
		Bool("token_protected", token != "").
		Msg("pasty created")
	writeMsg(w, http.StatusCreated, id)
}

func (h *Hdl) CreateOrUpdate(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	id := chi.URLParam(r, "id")
	content, t, err := h.readContent(w, r)
	if err != nil {
		log.Warn().Err(err).Str("pasty_id", id).Msg("rejected write")
		writeErr(w, r, err)
		return
	}
	token := extractToken(r)
	created, err := h.pasty.CreateOrUpdate(r.Context(), id, content, t, token)
	if err != nil {
		log.Warn().Err(err).Str("pasty_id", id).Msg("write failed")
		writeErr(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	log.Info().
		Str("pasty_id", id).
		Str("type", t.String()).
		Bool("created", created).
		Msg("pasty written")
	writeMsg(w, status, id)
}

func (h *Hdl) DeletePasty(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	id := chi.URLParam(r, "id")
	token := extractToken(r)
	if err := h.pasty.Delete(r.Context(), id, token); err != nil {
		log.Warn().Err(err).Str("pasty_id", id).Msg("delete failed")
		writeErr(w, r, err)
		return
	}
	writeMsg(w, http.StatusOK, "deleted")
}

func (h *Hdl) NotFound(w http.ResponseWriter, r *http.Request) {
	writeMsg(w, http.StatusNotFound, "not found")
}

// readContent consumes the request body as the pasty content and resolves
// the content type from the "type" query parameter. Links must parse as
// absolute URLs; plain text gets normalized.
func (h *Hdl) readContent(w http.ResponseWriter, r *http.Request) (string, domain.ContentType, error) {
	t, err := domain.ParseContentType(r.URL.Query().Get("type"))
	if err != nil {
		return "", 0, err
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxContentSize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "", 0, domain.ErrContentTooLarge
	}
	content := string(body)
	if content == "" {
		return "", 0, domain.ErrContentRequired
	}
	switch t {
	case domain.ContentTypeRedirect:
		content = strings.TrimSpace(content)
		u, err := url.Parse(content)
		if err != nil || !u.IsAbs() {
			return "", 0, domain.ErrInvalidURL
		}
	default:
		content = sanitizeContent(content)
		if content == "" {
			return "", 0, domain.ErrContentRequired
		}
	}
	return content, t, nil
}

func extractToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	return r.Header.Get("X-Token")
}

func sanitizeContent(s string) string {
	s = norm.NFC.String(s)
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for _, r := range s {
			if r != utf8.RuneError {
				v = append(v, r)
			}
		}
		s = string(v)
	}
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
}
