package server

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/goldlanka/goldmarket/internal/auth"
	"github.com/goldlanka/goldmarket/internal/blob"
	"github.com/goldlanka/goldmarket/internal/model"
)

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	u, err := s.db.GetUser(r.Context(), id.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

type profileRequest struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	PhotoURL    string `json:"photo_url"`
	Phone       string `json:"phone"`
}

// handleSaveMe creates or updates the caller's profile. Missing name and
// email default to the identity headers.
func (s *Server) handleSaveMe(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var req profileRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Phone != "" {
		if err := model.ValidatePhone(req.Phone); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	u := model.User{ID: id.UserID, DisplayName: req.DisplayName, Email: req.Email, PhotoURL: req.PhotoURL}
	if u.DisplayName == "" {
		u.DisplayName = id.Name()
	}
	if u.Email == "" {
		u.Email = id.Email
	}
	if err := s.db.SaveUser(r.Context(), &u); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Phone != "" {
		if err := s.db.UpdateUserPhone(r.Context(), u.ID, req.Phone); err != nil {
			s.writeError(w, r, err)
			return
		}
		u.Phone = req.Phone
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleDeleteMe(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	if err := s.db.DeleteUser(r.Context(), id.UserID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMyItems(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	items, err := s.db.ListItemsByOwner(r.Context(), id.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

var uploadPrefixes = map[string]bool{"items": true, "logos": true, "covers": true, "avatars": true}

// handleUpload stores the multipart "file" field and returns its URL.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes+(1<<16))
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.writeError(w, r, blob.ErrTooLarge)
			return
		}
		s.writeError(w, r, &model.ValidationError{Field: "file", Message: "No file provided."})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.opts.MaxUploadBytes+1))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if int64(len(data)) > s.opts.MaxUploadBytes {
		s.writeError(w, r, blob.ErrTooLarge)
		return
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	prefix := r.FormValue("prefix")
	if !uploadPrefixes[prefix] {
		prefix = "items"
	}

	key, err := s.blobs.Put(r.Context(), prefix, header.Filename, contentType, data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, _ := auth.FromContext(r.Context())
	s.logger.Info("stored upload", zap.String("key", key), zap.String("user_id", id.UserID), zap.Int("bytes", len(data)))
	writeJSON(w, http.StatusCreated, map[string]string{"key": key, "url": blob.URL(s.opts.BaseURL, key)})
}

func (s *Server) handleBlob(w http.ResponseWriter, r *http.Request) {
	obj, err := s.blobs.Get(chi.URLParam(r, "*"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeContent(w, r, "", obj.CreatedAt, bytes.NewReader(obj.Data))
}
