package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/goldlanka/goldmarket/internal/feed"
	"github.com/goldlanka/goldmarket/internal/model"
)

const itemColumns = `id, owner_id, owner_name, title, description, karat, weight, district,
	images, image_alts, highest_bid, bids_count, sold, created_at`

var itemPages = pageSpec[model.Item]{
	selectFrom: "SELECT " + itemColumns + " FROM items",
	filterCol:  "district",
	createdCol: "created_at",
	idCol:      "id",
	scan:       scanItem,
}

func scanItem(row rowScanner) (model.Item, error) {
	var it model.Item
	var images, alts string
	var created int64
	err := row.Scan(&it.ID, &it.OwnerID, &it.OwnerName, &it.Title, &it.Description, &it.Karat,
		&it.Weight, &it.District, &images, &alts, &it.HighestBid, &it.BidsCount, &it.Sold, &created)
	if err != nil {
		return it, err
	}
	if err := json.Unmarshal([]byte(images), &it.Images); err != nil {
		return it, fmt.Errorf("item %s images: %w", it.ID, err)
	}
	if err := json.Unmarshal([]byte(alts), &it.ImageAlts); err != nil {
		return it, fmt.Errorf("item %s image alts: %w", it.ID, err)
	}
	it.CreatedAt = fromMicro(created)
	return it, nil
}

func marshalStrings(v []string) string {
	if v == nil {
		v = []string{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

// QueryItems returns one page of items, optionally restricted to a district.
func (db *DB) QueryItems(ctx context.Context, q feed.Query) (feed.Page[model.Item], error) {
	return queryPage(ctx, db, itemPages, q)
}

// AllItems returns every item, newest first.
func (db *DB) AllItems(ctx context.Context) ([]model.Item, error) {
	return scanAll(ctx, db, db.conn, scanItem,
		"SELECT "+itemColumns+" FROM items ORDER BY created_at DESC, id DESC")
}

// CreateItem validates and inserts a new listing. ID and CreatedAt are
// assigned when empty; bid bookkeeping starts at zero.
func (db *DB) CreateItem(ctx context.Context, it *model.Item) error {
	if err := model.ValidateItem(it); err != nil {
		return err
	}
	if it.ID == "" {
		it.ID = model.NewID()
	}
	it.CreatedAt = stamp(it.CreatedAt)
	it.HighestBid, it.BidsCount, it.Sold = 0, 0, false

	_, err := db.exec(ctx, db.conn, `INSERT INTO items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.ID, it.OwnerID, it.OwnerName, it.Title, it.Description, it.Karat, it.Weight, it.District,
		marshalStrings(it.Images), marshalStrings(it.ImageAlts), it.HighestBid, it.BidsCount, it.Sold,
		toMicro(it.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

// GetItem returns an item by ID.
func (db *DB) GetItem(ctx context.Context, id string) (*model.Item, error) {
	return getItem(ctx, db, db.conn, id)
}

func getItem(ctx context.Context, db *DB, q querier, id string) (*model.Item, error) {
	it, err := scanItem(db.queryRow(ctx, q, "SELECT "+itemColumns+" FROM items WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err)
	}
	return &it, nil
}

// ListItemsByOwner returns a user's listings, newest first.
func (db *DB) ListItemsByOwner(ctx context.Context, ownerID string) ([]model.Item, error) {
	return scanAll(ctx, db, db.conn, scanItem,
		"SELECT "+itemColumns+" FROM items WHERE owner_id = ? ORDER BY created_at DESC, id DESC", ownerID)
}

// UpdateItem edits the descriptive fields of an owned item. Bids, sold
// state and creation time are left alone.
func (db *DB) UpdateItem(ctx context.Context, ownerID string, it *model.Item) error {
	if err := model.ValidateItem(it); err != nil {
		return err
	}
	res, err := db.exec(ctx, db.conn, `UPDATE items SET title = ?, description = ?, karat = ?, weight = ?,
		district = ?, images = ?, image_alts = ? WHERE id = ? AND owner_id = ?`,
		it.Title, it.Description, it.Karat, it.Weight, it.District,
		marshalStrings(it.Images), marshalStrings(it.ImageAlts), it.ID, ownerID)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return db.checkOwner(ctx, db.conn, "items", it.ID, ownerID)
	}
	stored, err := db.GetItem(ctx, it.ID)
	if err != nil {
		return err
	}
	*it = *stored
	return nil
}

// MarkItemSold flags an owned item as sold. Further bids are refused.
func (db *DB) MarkItemSold(ctx context.Context, id, ownerID string) error {
	res, err := db.exec(ctx, db.conn, "UPDATE items SET sold = ? WHERE id = ? AND owner_id = ?", true, id, ownerID)
	if err != nil {
		return fmt.Errorf("mark sold: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return db.checkOwner(ctx, db.conn, "items", id, ownerID)
	}
	return nil
}

// DeleteItem removes an owned item and its bids.
func (db *DB) DeleteItem(ctx context.Context, id, ownerID string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if err := db.checkOwner(ctx, tx, "items", id, ownerID); err != nil {
			return err
		}
		if _, err := db.exec(ctx, tx, "DELETE FROM bids WHERE item_id = ?", id); err != nil {
			return fmt.Errorf("delete bids: %w", err)
		}
		if _, err := db.exec(ctx, tx, "DELETE FROM items WHERE id = ?", id); err != nil {
			return fmt.Errorf("delete item: %w", err)
		}
		return nil
	})
}

const bidColumns = "id, item_id, user_id, user_name, contact, phone, amount, description, created_at"

func scanBid(row rowScanner) (model.Bid, error) {
	var b model.Bid
	var created int64
	err := row.Scan(&b.ID, &b.ItemID, &b.UserID, &b.UserName, &b.Contact, &b.Phone,
		&b.Amount, &b.Description, &created)
	b.CreatedAt = fromMicro(created)
	return b, err
}

// PlaceBid records a bid and raises the item's highest bid and bid count
// in the same transaction. It returns the updated item.
func (db *DB) PlaceBid(ctx context.Context, b *model.Bid) (*model.Item, error) {
	if err := model.ValidateBid(b); err != nil {
		return nil, err
	}
	if b.ID == "" {
		b.ID = model.NewID()
	}
	b.CreatedAt = stamp(b.CreatedAt)

	var updated *model.Item
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		it, err := getItem(ctx, db, tx, b.ItemID)
		if err != nil {
			return err
		}
		if it.Sold {
			return ErrItemSold
		}
		if _, err := db.exec(ctx, tx, `INSERT INTO bids (`+bidColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			b.ID, b.ItemID, b.UserID, b.UserName, b.Contact, b.Phone, b.Amount, b.Description,
			toMicro(b.CreatedAt)); err != nil {
			return fmt.Errorf("insert bid: %w", err)
		}
		if _, err := db.exec(ctx, tx, `UPDATE items SET
			highest_bid = CASE WHEN highest_bid < ? THEN ? ELSE highest_bid END,
			bids_count = bids_count + 1
			WHERE id = ?`, b.Amount, b.Amount, b.ItemID); err != nil {
			return fmt.Errorf("update bid totals: %w", err)
		}
		updated, err = getItem(ctx, db, tx, b.ItemID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ListBids returns the bids on an item, highest amount first.
func (db *DB) ListBids(ctx context.Context, itemID string) ([]model.Bid, error) {
	return scanAll(ctx, db, db.conn, scanBid,
		"SELECT "+bidColumns+" FROM bids WHERE item_id = ? ORDER BY amount DESC, created_at ASC", itemID)
}
