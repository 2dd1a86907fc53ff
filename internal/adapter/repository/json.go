package repository

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// jsonColumn encodes values for jsonb columns written through map updates,
// where gorm's serializer tag does not apply.
func jsonColumn(v interface{}) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(b)
}
