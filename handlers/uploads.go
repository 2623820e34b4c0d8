// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/danielhkuo/doudou/auth"
	"github.com/danielhkuo/doudou/cliparse"
	"github.com/danielhkuo/doudou/engine"
	"github.com/danielhkuo/doudou/middleware"
	"github.com/danielhkuo/doudou/models"
)

// room for multipart boundaries and headers on top of the image itself
const multipartOverhead = 64 << 10

type UploadHandler struct {
	engine   *engine.Engine
	identity auth.IdentityProvider
	cfg      cliparse.Config
}

func NewUploadHandler(eng *engine.Engine, identity auth.IdentityProvider, cfg cliparse.Config) *UploadHandler {
	return &UploadHandler{engine: eng, identity: identity, cfg: cfg}
}

// RequestSlot handles POST /sessions/{code}/uploads/slot
// Admits one upload and returns the single-use URL to PUT it to
func (h *UploadHandler) RequestSlot(w http.ResponseWriter, r *http.Request) {
	scope, ok := resolveScope(w, r, h.engine, h.identity, "request upload slot")
	if !ok {
		return
	}

	slot, err := h.engine.RequestUploadSlot(r.Context(), scope.session.ID, scope.participant.ID)
	if err != nil {
		writeEngineError(w, "request upload slot", err)
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, slot)
}

// Upload handles PUT /uploads/{token}
// The body is either the raw image or a multipart form with a "file" part.
// The slot token is the credential; no identity header is needed.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "token is required")
		return
	}

	if h.cfg.MaxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadSize+multipartOverhead)
	}
	defer r.Body.Close()

	in := engine.UploadInput{
		SlotToken:   token,
		Filename:    r.URL.Query().Get("filename"),
		ContentType: r.Header.Get("Content-Type"),
		Body:        r.Body,
	}

	mediaType, _, _ := mime.ParseMediaType(in.ContentType)
	if mediaType == "multipart/form-data" {
		part, err := filePart(r)
		if err != nil {
			middleware.CodedErrorResponse(w, http.StatusBadRequest, "invalid_input", err.Error())
			return
		}
		defer part.Close()
		in.Filename = part.FileName()
		in.ContentType = part.Header.Get("Content-Type")
		in.Body = part
	}

	img, err := h.engine.CompleteUpload(r.Context(), in)
	if err != nil {
		writeEngineError(w, "upload", err)
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, img)
}

// filePart streams to the "file" field without buffering the form
func filePart(r *http.Request) (*multipart.Part, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, errors.New("malformed multipart body")
	}
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			return nil, errors.New(`multipart body has no "file" part`)
		}
		if err != nil {
			return nil, errors.New("malformed multipart body")
		}
		if p.FormName() == "file" {
			return p, nil
		}
		p.Close()
	}
}

// ListImages handles GET /sessions/{code}/images
func (h *UploadHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	scope, ok := resolveScope(w, r, h.engine, h.identity, "list images")
	if !ok {
		return
	}

	images, err := h.engine.ListImages(r.Context(), scope.session.ID)
	if err != nil {
		writeEngineError(w, "list images", err)
		return
	}
	if images == nil {
		images = []models.Image{}
	}

	middleware.JSONResponse(w, http.StatusOK, models.ImageListResponse{Images: images})
}
