package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/goldlanka/goldmarket/internal/auth"
	"github.com/goldlanka/goldmarket/internal/model"
)

func (s *Server) handleListShops(w http.ResponseWriter, r *http.Request) {
	servePage(s, w, r, true, s.db.QueryShops)
}

func (s *Server) handleAllShops(w http.ResponseWriter, r *http.Request) {
	serveAll(s, w, r, s.db.AllShops)
}

func (s *Server) handleShopTally(w http.ResponseWriter, r *http.Request) {
	serveTally(s, w, r, s.db.AllShops)
}

func (s *Server) handleShopRatings(w http.ResponseWriter, r *http.Request) {
	ratings, err := s.db.ShopRatings(r.Context(), r.URL.Query().Get("district"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ratings)
}

type shopRequest struct {
	ShopName     string          `json:"shop_name"`
	Description  string          `json:"description"`
	District     string          `json:"district"`
	Address      string          `json:"address"`
	ContactPhone string          `json:"contact_phone"`
	ContactEmail string          `json:"contact_email"`
	Facebook     string          `json:"facebook"`
	WhatsApp     string          `json:"whatsapp"`
	LogoURL      string          `json:"logo_url"`
	CoverURL     string          `json:"cover_url"`
	Location     *model.Location `json:"location"`
}

// handleSaveShop creates or edits the caller's shop.
func (s *Server) handleSaveShop(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var req shopRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	shop := model.Shop{
		OwnerID:      id.UserID,
		OwnerName:    id.Name(),
		ShopName:     req.ShopName,
		Description:  req.Description,
		District:     req.District,
		Address:      req.Address,
		ContactPhone: req.ContactPhone,
		ContactEmail: req.ContactEmail,
		Facebook:     req.Facebook,
		WhatsApp:     req.WhatsApp,
		LogoURL:      req.LogoURL,
		CoverURL:     req.CoverURL,
		Location:     req.Location,
	}
	if err := s.db.SaveShop(r.Context(), &shop); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shop)
}

func (s *Server) handleDeleteShop(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	if err := s.db.DeleteShop(r.Context(), id.UserID, id.UserID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type shopDetail struct {
	Shop    *model.Shop    `json:"shop"`
	Reviews []model.Review `json:"reviews"`
	Rating  model.Rating   `json:"rating"`
}

func (s *Server) handleGetShop(w http.ResponseWriter, r *http.Request) {
	shop, err := s.db.GetShop(r.Context(), itemParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	reviews, err := s.db.ListReviews(r.Context(), shop.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if reviews == nil {
		reviews = []model.Review{}
	}
	writeJSON(w, http.StatusOK, shopDetail{Shop: shop, Reviews: reviews, Rating: summarize(reviews)})
}

func summarize(reviews []model.Review) model.Rating {
	var sum int
	for _, rv := range reviews {
		sum += rv.Rating
	}
	if len(reviews) == 0 {
		return model.Rating{}
	}
	return model.Rating{Average: float64(sum) / float64(len(reviews)), Count: len(reviews)}
}

type reviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (s *Server) handleSaveReview(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var req reviewRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	review := model.Review{
		ShopID:   itemParam(r, "id"),
		UserID:   id.UserID,
		UserName: id.Name(),
		Rating:   req.Rating,
		Comment:  req.Comment,
	}
	if err := s.db.SaveReview(r.Context(), &review); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (s *Server) handleReplyToReview(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var req struct {
		Reply string `json:"reply"`
	}
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	review, err := s.db.ReplyToReview(r.Context(), itemParam(r, "id"), chi.URLParam(r, "rid"), id.UserID, req.Reply)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}
