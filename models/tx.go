package models

import (
	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"
)

// Transaction runs fn inside one database transaction, rolling back when fn
// fails.
func Transaction(DB *gorm.DB, fn func(tx *gorm.DB) error) error {
	tx := DB.Begin()
	if tx.Error != nil {
		return errors.Wrap(tx.Error, "could not begin transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit().Error, "could not commit transaction")
}
