package model

import (
	"time"
)

// Item types the catalog tracks ownership for.
const (
	ItemTypeFile      = "file"
	ItemTypeMultipart = "multipart"
)

// Owner assigns a catalog item to an owning entity. The composite
// primary key (ItemID, ItemType) enforces at most one owner per item. A
// pinned owner can only be reassigned with force.
type Owner struct {
	ItemID    string    `json:"item_id" gorm:"primaryKey"`
	ItemType  string    `json:"item_type" gorm:"primaryKey"`
	OwnerID   string    `json:"owner_id" gorm:"index:idx_owners_owner"`
	OwnerType string    `json:"owner_type" gorm:"index:idx_owners_owner"`
	Pinned    bool      `json:"pinned"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Owner) TableName() string {
	return "depot_owners"
}

func (o Owner) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"item_id":    o.ItemID,
		"item_type":  o.ItemType,
		"owner_id":   o.OwnerID,
		"owner_type": o.OwnerType,
		"pinned":     o.Pinned,
	}
}

// TransferHistory is an append-only audit trail of ownership changes.
type TransferHistory struct {
	ID        int       `json:"id"`
	ItemID    string    `json:"item_id" gorm:"index:idx_transfer_history_item"`
	ItemType  string    `json:"item_type" gorm:"index:idx_transfer_history_item"`
	OwnerID   string    `json:"owner_id"`
	OwnerType string    `json:"owner_type"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	CreatedAt time.Time `json:"at"`
}

func (TransferHistory) TableName() string {
	return "depot_transfer_history"
}
