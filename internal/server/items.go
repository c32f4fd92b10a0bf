package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/goldlanka/goldmarket/internal/auth"
	"github.com/goldlanka/goldmarket/internal/database"
	"github.com/goldlanka/goldmarket/internal/model"
)

// itemParam accepts either a bare item ID or a full slug.
func itemParam(r *http.Request, name string) string {
	return model.IDFromSlug(chi.URLParam(r, name))
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	servePage(s, w, r, true, s.db.QueryItems)
}

func (s *Server) handleAllItems(w http.ResponseWriter, r *http.Request) {
	serveAll(s, w, r, s.db.AllItems)
}

func (s *Server) handleItemTally(w http.ResponseWriter, r *http.Request) {
	serveTally(s, w, r, s.db.AllItems)
}

type itemRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Karat       int      `json:"karat"`
	Weight      float64  `json:"weight"`
	District    string   `json:"district"`
	Images      []string `json:"images"`
	ImageAlts   []string `json:"image_alts"`
}

func (req itemRequest) item() model.Item {
	return model.Item{
		Title:       req.Title,
		Description: req.Description,
		Karat:       req.Karat,
		Weight:      req.Weight,
		District:    req.District,
		Images:      req.Images,
		ImageAlts:   req.ImageAlts,
	}
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var req itemRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	it := req.item()
	it.OwnerID = id.UserID
	it.OwnerName = id.Name()
	if err := s.db.CreateItem(r.Context(), &it); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, it)
}

type itemDetail struct {
	Item *model.Item `json:"item"`
	Bids []model.Bid `json:"bids"`
}

// handleGetItem returns an item with its bids. Bidder phone numbers are
// only included for the item's owner.
func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	it, err := s.db.GetItem(r.Context(), itemParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	bids, err := s.db.ListBids(r.Context(), it.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itemDetail{Item: it, Bids: visibleBids(r, it, bids)})
}

func visibleBids(r *http.Request, it *model.Item, bids []model.Bid) []model.Bid {
	if bids == nil {
		return []model.Bid{}
	}
	if id, ok := auth.FromContext(r.Context()); ok && id.UserID == it.OwnerID {
		return bids
	}
	for i := range bids {
		bids[i].Phone = ""
	}
	return bids
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var req itemRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	it := req.item()
	it.ID = itemParam(r, "id")
	if err := s.db.UpdateItem(r.Context(), id.UserID, &it); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	if err := s.db.DeleteItem(r.Context(), itemParam(r, "id"), id.UserID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMarkSold(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	if err := s.db.MarkItemSold(r.Context(), itemParam(r, "id"), id.UserID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type bidRequest struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Contact     string  `json:"contact"`
}

type bidResponse struct {
	Item *model.Item `json:"item"`
	Bid  model.Bid   `json:"bid"`
}

// handlePlaceBid records a bid. The bidder's profile phone, if any, is
// attached so the seller can call back.
func (s *Server) handlePlaceBid(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var req bidRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	bid := model.Bid{
		ItemID:      itemParam(r, "id"),
		UserID:      id.UserID,
		UserName:    id.Name(),
		Contact:     req.Contact,
		Amount:      req.Amount,
		Description: req.Description,
	}
	if bid.Contact == "" {
		bid.Contact = id.Email
	}
	profile, err := s.db.GetUser(r.Context(), id.UserID)
	switch {
	case err == nil:
		bid.Phone = profile.Phone
	case !errors.Is(err, database.ErrNotFound):
		s.writeError(w, r, err)
		return
	}

	it, err := s.db.PlaceBid(r.Context(), &bid)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, bidResponse{Item: it, Bid: bid})
}
