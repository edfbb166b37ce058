package persistence

import (
	"database/sql"

	"github.com/jinzhu/gorm"
)

// InTransaction runs fn inside a transaction. If db already carries a transaction, fn joins it and the outermost
// caller decides on commit. Any error or panic rolls the transaction back; the panic is re-raised afterwards.
func InTransaction(db *gorm.DB, fn func(tx *gorm.DB) error) (err error) {
	if IsInTransaction(db) {
		return fn(db)
	}

	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
		tx.Rollback()
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit().Error; err != nil {
		return err
	}
	committed = true
	return nil
}

func IsInTransaction(db *gorm.DB) bool {
	_, ok := db.CommonDB().(*sql.Tx)
	return ok
}

// ForUpdate locks the selected rows until the surrounding transaction ends.
func ForUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Set("gorm:query_option", "FOR UPDATE")
}
