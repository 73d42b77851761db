package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Client is a storefront: one tenant of the marketplace.
type Client struct {
	ID                  uuid.UUID `json:"id"`
	Name                string    `json:"name"`
	LogoURL             string    `json:"logo_url,omitempty"`
	ThemeColorPrimary   string    `json:"theme_color_primary,omitempty"`
	ThemeColorSecondary string    `json:"theme_color_secondary,omitempty"`
	TimeToDelivery      string    `json:"time_to_delivery,omitempty"`
	Address             string    `json:"address,omitempty"`
	Phone               string    `json:"phone,omitempty"`
	Email               string    `json:"email,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

type Category struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	ClientID uuid.UUID `json:"client_id"`
}

type Product struct {
	ID          uuid.UUID       `json:"id"`
	Description string          `json:"description"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	ImageURL    string          `json:"image_url,omitempty"`
	ClientID    uuid.UUID       `json:"client_id"`
	CategoryID  *uuid.UUID      `json:"category_id,omitempty"`
}
