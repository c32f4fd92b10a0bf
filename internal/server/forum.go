package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/goldlanka/goldmarket/internal/auth"
	"github.com/goldlanka/goldmarket/internal/model"
)

func (s *Server) handleListForum(w http.ResponseWriter, r *http.Request) {
	servePage(s, w, r, false, s.db.QueryForumPosts)
}

type textRequest struct {
	Text string `json:"text"`
}

// handleCreatePost accepts anonymous posts.
func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	post := model.ForumPost{Text: req.Text}
	if id, ok := auth.FromContext(r.Context()); ok {
		post.UserID = id.UserID
		post.UserName = id.Name()
	}
	if err := s.db.CreateForumPost(r.Context(), &post); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (s *Server) handleListReplies(w http.ResponseWriter, r *http.Request) {
	replies, err := s.db.ListForumReplies(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if replies == nil {
		replies = []model.ForumReply{}
	}
	writeJSON(w, http.StatusOK, replies)
}

func (s *Server) handleCreateReply(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	reply := model.ForumReply{PostID: chi.URLParam(r, "id"), Text: req.Text}
	if id, ok := auth.FromContext(r.Context()); ok {
		reply.UserID = id.UserID
		reply.UserName = id.Name()
	}
	if err := s.db.CreateForumReply(r.Context(), &reply); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reply)
}
