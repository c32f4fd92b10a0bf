package browse

import (
	"fmt"
	"time"

	"github.com/goldlanka/goldmarket/internal/model"
)

// ItemRow renders an item as one line.
func ItemRow(it model.Item) string {
	status := "no bids"
	switch {
	case it.Sold:
		status = "SOLD"
	case it.BidsCount > 0:
		status = fmt.Sprintf("Rs. %.0f (%d bids)", it.HighestBid, it.BidsCount)
	}
	return fmt.Sprintf("%-32.32s %3dK %7.2fg  %-12.12s %s",
		it.Title, it.Karat, it.Weight, model.DisplayDistrict(it.District), status)
}

// ShopRow renders a shop as one line.
func ShopRow(s model.Shop) string {
	return fmt.Sprintf("%-32.32s %-12.12s %s", s.ShopName, model.DisplayDistrict(s.District), s.ContactPhone)
}

// ForumRow renders a forum post as one line.
func ForumRow(p model.ForumPost) string {
	return fmt.Sprintf("%-48.48s %-16.16s %2d replies  %s",
		p.Text, p.UserName, p.ReplyCount, p.CreatedAt.Local().Format(time.DateOnly))
}
