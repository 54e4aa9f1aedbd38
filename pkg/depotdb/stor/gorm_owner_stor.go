package stor

import (
	"github.com/materials-commons/depot/pkg/depotdb/model"
	"gorm.io/gorm"
)

// Transfer history actions.
const (
	HistoryActionAssign   = "assign"
	HistoryActionTransfer = "transfer"
)

type GormOwnerStor struct {
	db *gorm.DB
}

func NewGormOwnerStor(db *gorm.DB) *GormOwnerStor {
	return &GormOwnerStor{db: db}
}

func (s *GormOwnerStor) GetOwner(itemID, itemType string) (*model.Owner, error) {
	var owner model.Owner
	err := s.db.Where("item_id = ?", itemID).
		Where("item_type = ?", itemType).
		First(&owner).Error
	if err != nil {
		return nil, err
	}

	return &owner, nil
}

// AssignOwner creates the owner row for an item that doesn't have one
// yet and appends the first history row. Reassignment goes through
// TransferOwner so the pinned policy applies.
func (s *GormOwnerStor) AssignOwner(itemID, itemType, ownerType, ownerID, actor string) (*model.Owner, error) {
	owner := &model.Owner{
		ItemID:    itemID,
		ItemType:  itemType,
		OwnerID:   ownerID,
		OwnerType: ownerType,
	}

	err := WithTxRetry(s.db, func(tx *gorm.DB) error {
		if err := tx.Create(owner).Error; err != nil {
			return err
		}

		return tx.Create(historyRow(owner, HistoryActionAssign, actor)).Error
	})
	if err != nil {
		return nil, err
	}

	return owner, nil
}

// TransferOwner reassigns the item to a new owner and appends a history
// row, in one transaction. Pinned/authorization policy is the caller's
// responsibility.
func (s *GormOwnerStor) TransferOwner(owner *model.Owner, ownerType, ownerID, actor string) (*model.Owner, error) {
	err := WithTxRetry(s.db, func(tx *gorm.DB) error {
		err := tx.Model(owner).Updates(map[string]interface{}{
			"owner_type": ownerType,
			"owner_id":   ownerID,
		}).Error
		if err != nil {
			return err
		}

		updated := &model.Owner{
			ItemID:    owner.ItemID,
			ItemType:  owner.ItemType,
			OwnerID:   ownerID,
			OwnerType: ownerType,
		}

		return tx.Create(historyRow(updated, HistoryActionTransfer, actor)).Error
	})
	if err != nil {
		return nil, err
	}

	owner.OwnerType = ownerType
	owner.OwnerID = ownerID

	return owner, nil
}

func (s *GormOwnerStor) SetPinned(owner *model.Owner, pinned bool) (*model.Owner, error) {
	err := WithTxRetry(s.db, func(tx *gorm.DB) error {
		return tx.Model(owner).Update("pinned", pinned).Error
	})
	if err != nil {
		return nil, err
	}

	owner.Pinned = pinned

	return owner, nil
}

func (s *GormOwnerStor) GetTransferHistory(itemID, itemType string) ([]model.TransferHistory, error) {
	var history []model.TransferHistory
	err := s.db.Where("item_id = ?", itemID).
		Where("item_type = ?", itemType).
		Order("id").
		Find(&history).Error
	if err != nil {
		return nil, err
	}

	return history, nil
}

func historyRow(owner *model.Owner, action, actor string) *model.TransferHistory {
	if actor == "" {
		actor = "system"
	}

	return &model.TransferHistory{
		ItemID:    owner.ItemID,
		ItemType:  owner.ItemType,
		OwnerID:   owner.OwnerID,
		OwnerType: owner.OwnerType,
		Action:    action,
		Actor:     actor,
	}
}
