package repository

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/johnquangdev/call-insight/internal/domain/entities"
	"github.com/johnquangdev/call-insight/internal/domain/repositories"
)

// scopeTenant restricts a query to one organization. A nil organization id
// poisons the statement so no unscoped query can reach the database.
func scopeTenant(orgID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if orgID == uuid.Nil {
			_ = db.AddError(entities.ErrMissingTenant)
			return db
		}
		return db.Where("organization_id = ?", orgID)
	}
}

// paginate applies ordering and paging. sortColumns maps API sort keys to
// columns; unknown keys fall back to fallback.
func paginate(filters repositories.Filters, sortColumns map[string]string, fallback string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		column, ok := sortColumns[filters.SortBy]
		if !ok {
			column = fallback
		}
		order := "DESC"
		if strings.EqualFold(filters.SortOrder, "asc") {
			order = "ASC"
		}
		db = db.Order(fmt.Sprintf("%s %s", column, order))
		if filters.Limit > 0 {
			db = db.Limit(filters.Limit)
		}
		if filters.Offset > 0 {
			db = db.Offset(filters.Offset)
		}
		return db
	}
}
