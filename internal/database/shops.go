package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goldlanka/goldmarket/internal/feed"
	"github.com/goldlanka/goldmarket/internal/model"
)

const shopColumns = `id, owner_id, owner_name, shop_name, description, district, address,
	contact_phone, contact_email, facebook, whatsapp, logo_url, cover_url, lat, lng,
	created_at, updated_at`

var shopPages = pageSpec[model.Shop]{
	selectFrom: "SELECT " + shopColumns + " FROM shops",
	filterCol:  "district",
	createdCol: "created_at",
	idCol:      "id",
	scan:       scanShop,
}

func scanShop(row rowScanner) (model.Shop, error) {
	var s model.Shop
	var lat, lng sql.NullFloat64
	var created, updated int64
	err := row.Scan(&s.ID, &s.OwnerID, &s.OwnerName, &s.ShopName, &s.Description, &s.District,
		&s.Address, &s.ContactPhone, &s.ContactEmail, &s.Facebook, &s.WhatsApp, &s.LogoURL,
		&s.CoverURL, &lat, &lng, &created, &updated)
	if err != nil {
		return s, err
	}
	if lat.Valid && lng.Valid {
		s.Location = &model.Location{Lat: lat.Float64, Lng: lng.Float64}
	}
	s.CreatedAt = fromMicro(created)
	s.UpdatedAt = fromMicro(updated)
	return s, nil
}

// QueryShops returns one page of the shop directory.
func (db *DB) QueryShops(ctx context.Context, q feed.Query) (feed.Page[model.Shop], error) {
	return queryPage(ctx, db, shopPages, q)
}

// AllShops returns every shop, newest first.
func (db *DB) AllShops(ctx context.Context) ([]model.Shop, error) {
	return scanAll(ctx, db, db.conn, scanShop,
		"SELECT "+shopColumns+" FROM shops ORDER BY created_at DESC, id DESC")
}

// SaveShop creates or replaces the owner's shop. The shop is keyed by the
// owner's user ID; an existing shop keeps its creation time.
func (db *DB) SaveShop(ctx context.Context, s *model.Shop) error {
	if err := model.ValidateShop(s); err != nil {
		return err
	}
	s.ID = s.OwnerID
	now := stamp(time.Time{})
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.CreatedAt = stamp(s.CreatedAt)
	s.UpdatedAt = now

	_, err := db.exec(ctx, db.conn, `INSERT INTO shops (`+shopColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			owner_name = excluded.owner_name,
			shop_name = excluded.shop_name,
			description = excluded.description,
			district = excluded.district,
			address = excluded.address,
			contact_phone = excluded.contact_phone,
			contact_email = excluded.contact_email,
			facebook = excluded.facebook,
			whatsapp = excluded.whatsapp,
			logo_url = excluded.logo_url,
			cover_url = excluded.cover_url,
			lat = excluded.lat,
			lng = excluded.lng,
			updated_at = excluded.updated_at`,
		s.ID, s.OwnerID, s.OwnerName, s.ShopName, s.Description, s.District, s.Address,
		s.ContactPhone, s.ContactEmail, s.Facebook, s.WhatsApp, s.LogoURL, s.CoverURL,
		s.Location.Lat, s.Location.Lng, toMicro(s.CreatedAt), toMicro(s.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save shop: %w", err)
	}
	stored, err := db.GetShop(ctx, s.ID)
	if err != nil {
		return err
	}
	*s = *stored
	return nil
}

// GetShop returns a shop by ID.
func (db *DB) GetShop(ctx context.Context, id string) (*model.Shop, error) {
	return getShop(ctx, db, db.conn, "id", id)
}

// GetShopByOwner returns the shop owned by a user.
func (db *DB) GetShopByOwner(ctx context.Context, ownerID string) (*model.Shop, error) {
	return getShop(ctx, db, db.conn, "owner_id", ownerID)
}

func getShop(ctx context.Context, db *DB, q querier, col, v string) (*model.Shop, error) {
	s, err := scanShop(db.queryRow(ctx, q, "SELECT "+shopColumns+" FROM shops WHERE "+col+" = ?", v))
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// DeleteShop removes an owned shop and its reviews.
func (db *DB) DeleteShop(ctx context.Context, id, ownerID string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if err := db.checkOwner(ctx, tx, "shops", id, ownerID); err != nil {
			return err
		}
		_, err := deleteShop(ctx, db, tx, id)
		return err
	})
}

// deleteShop removes a shop and its reviews and reports whether the shop
// existed.
func deleteShop(ctx context.Context, db *DB, tx *sql.Tx, id string) (bool, error) {
	if _, err := db.exec(ctx, tx, "DELETE FROM reviews WHERE shop_id = ?", id); err != nil {
		return false, fmt.Errorf("delete reviews: %w", err)
	}
	res, err := db.exec(ctx, tx, "DELETE FROM shops WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete shop: %w", err)
	}
	n, err := affected(res)
	return n > 0, err
}

const reviewColumns = `id, shop_id, user_id, user_name, rating, comment, reply, replied_at,
	created_at, updated_at`

func scanReview(row rowScanner) (model.Review, error) {
	var r model.Review
	var created int64
	var replied, updated sql.NullInt64
	err := row.Scan(&r.ID, &r.ShopID, &r.UserID, &r.UserName, &r.Rating, &r.Comment, &r.Reply,
		&replied, &created, &updated)
	if err != nil {
		return r, err
	}
	r.CreatedAt = fromMicro(created)
	r.RepliedAt = nullMicro(replied)
	r.UpdatedAt = nullMicro(updated)
	return r, nil
}

// SaveReview adds the user's review of a shop, or edits it if the user has
// already reviewed that shop.
func (db *DB) SaveReview(ctx context.Context, r *model.Review) error {
	if err := model.ValidateReview(r); err != nil {
		return err
	}
	if _, err := db.GetShop(ctx, r.ShopID); err != nil {
		return err
	}
	if r.ID == "" {
		r.ID = model.NewID()
	}
	now := stamp(time.Time{})
	r.CreatedAt = stamp(r.CreatedAt)

	_, err := db.exec(ctx, db.conn, `INSERT INTO reviews (`+reviewColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, '', NULL, ?, NULL)
		ON CONFLICT (shop_id, user_id) DO UPDATE SET
			user_name = excluded.user_name,
			rating = excluded.rating,
			comment = excluded.comment,
			updated_at = ?`,
		r.ID, r.ShopID, r.UserID, r.UserName, r.Rating, r.Comment, toMicro(r.CreatedAt), toMicro(now))
	if err != nil {
		return fmt.Errorf("save review: %w", err)
	}
	stored, err := scanReview(db.queryRow(ctx, db.conn,
		"SELECT "+reviewColumns+" FROM reviews WHERE shop_id = ? AND user_id = ?", r.ShopID, r.UserID))
	if err != nil {
		return notFound(err)
	}
	*r = stored
	return nil
}

// ListReviews returns a shop's reviews, newest first.
func (db *DB) ListReviews(ctx context.Context, shopID string) ([]model.Review, error) {
	return scanAll(ctx, db, db.conn, scanReview,
		"SELECT "+reviewColumns+" FROM reviews WHERE shop_id = ? ORDER BY created_at DESC, id DESC", shopID)
}

// ReplyToReview stores the shop owner's answer to a review.
func (db *DB) ReplyToReview(ctx context.Context, shopID, reviewID, ownerID, reply string) (*model.Review, error) {
	reply, err := model.ValidateText(reply)
	if err != nil {
		return nil, err
	}
	shop, err := db.GetShop(ctx, shopID)
	if err != nil {
		return nil, err
	}
	if shop.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	res, err := db.exec(ctx, db.conn, "UPDATE reviews SET reply = ?, replied_at = ? WHERE id = ? AND shop_id = ?",
		reply, toMicro(stamp(time.Time{})), reviewID, shopID)
	if err != nil {
		return nil, fmt.Errorf("reply to review: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	r, err := scanReview(db.queryRow(ctx, db.conn, "SELECT "+reviewColumns+" FROM reviews WHERE id = ?", reviewID))
	if err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

// ShopRatings returns the average rating and review count per shop,
// optionally limited to shops in one district. Shops without reviews are
// absent.
func (db *DB) ShopRatings(ctx context.Context, district string) (map[string]model.Rating, error) {
	query := "SELECT r.shop_id, AVG(r.rating), COUNT(*) FROM reviews r"
	var args []any
	if district = model.NormalizeFilter(district); district != "" {
		query += " JOIN shops s ON s.id = r.shop_id WHERE s.district = ?"
		args = append(args, district)
	}
	query += " GROUP BY r.shop_id"

	rows, err := db.query(ctx, db.conn, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]model.Rating)
	for rows.Next() {
		var id string
		var r model.Rating
		if err := rows.Scan(&id, &r.Average, &r.Count); err != nil {
			return nil, err
		}
		out[id] = r
	}
	return out, rows.Err()
}
