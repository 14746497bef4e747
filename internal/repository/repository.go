package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrVersionConflict 乐观锁版本不匹配，调用方应重试整个事务
var ErrVersionConflict = errors.New("record version conflict")

// forUpdate 行锁读取。sqlite 不支持行锁，驱动会忽略该子句，由 version 字段兜底
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// IsNotFound 是否为记录不存在
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
