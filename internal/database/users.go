package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goldlanka/goldmarket/internal/model"
)

const userColumns = "id, display_name, email, phone, photo_url, created_at"

func scanUser(row rowScanner) (model.User, error) {
	var u model.User
	var created int64
	err := row.Scan(&u.ID, &u.DisplayName, &u.Email, &u.Phone, &u.PhotoURL, &created)
	u.CreatedAt = fromMicro(created)
	return u, err
}

// SaveUser creates or updates a profile. The phone number is only changed
// through UpdateUserPhone; an existing profile keeps its creation time.
func (db *DB) SaveUser(ctx context.Context, u *model.User) error {
	if u.Phone != "" {
		if err := model.ValidatePhone(u.Phone); err != nil {
			return err
		}
	}
	u.CreatedAt = stamp(u.CreatedAt)
	_, err := db.exec(ctx, db.conn, `INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			display_name = excluded.display_name,
			email = excluded.email,
			photo_url = excluded.photo_url`,
		u.ID, u.DisplayName, u.Email, u.Phone, u.PhotoURL, toMicro(u.CreatedAt))
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	stored, err := db.GetUser(ctx, u.ID)
	if err != nil {
		return err
	}
	*u = *stored
	return nil
}

// GetUser returns a profile by user ID.
func (db *DB) GetUser(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(db.queryRow(ctx, db.conn, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// UpdateUserPhone sets the phone number shown to sellers the user bids with.
func (db *DB) UpdateUserPhone(ctx context.Context, id, phone string) error {
	if err := model.ValidatePhone(phone); err != nil {
		return err
	}
	res, err := db.exec(ctx, db.conn, "UPDATE users SET phone = ? WHERE id = ?", phone, id)
	if err != nil {
		return fmt.Errorf("update phone: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes a profile together with the user's shop and listings.
// A user who never saved a profile can still remove their shop and
// listings; ErrNotFound means there was nothing at all to delete.
func (db *DB) DeleteUser(ctx context.Context, id string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		hadShop, err := deleteShop(ctx, db, tx, id)
		if err != nil {
			return err
		}
		if _, err := db.exec(ctx, tx,
			"DELETE FROM bids WHERE item_id IN (SELECT id FROM items WHERE owner_id = ?)", id); err != nil {
			return fmt.Errorf("delete bids: %w", err)
		}
		res, err := db.exec(ctx, tx, "DELETE FROM items WHERE owner_id = ?", id)
		if err != nil {
			return fmt.Errorf("delete items: %w", err)
		}
		items, err := affected(res)
		if err != nil {
			return err
		}
		res, err = db.exec(ctx, tx, "DELETE FROM users WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		profiles, err := affected(res)
		if err != nil {
			return err
		}
		if profiles == 0 && items == 0 && !hadShop {
			return ErrNotFound
		}
		return nil
	})
}
