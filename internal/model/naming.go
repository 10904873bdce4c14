package model

import (
	"bytes"
	"unicode"
)

// ToSnakeCase converts a lowerCamelCase or UpperCamelCase identifier into its
// snake_case equivalent, e.g. for deriving table and column names from
// entity and property names.
func ToSnakeCase(s string) string {
	var b bytes.Buffer
	for i, c := range s {
		if i > 0 && unicode.IsUpper(c) {
			b.WriteRune('_')
		}
		b.WriteRune(unicode.ToLower(c))
	}
	return b.String()
}

// TableName derives the backing table name for an entity.
func TableName(entityName string) string {
	return ToSnakeCase(entityName)
}

// ColumnName derives the column name for a scalar/enum/list/object/union
// property.
func ColumnName(propName string) string {
	return ToSnakeCase(propName)
}

// FKColumnName derives the column name for an fk property.
func FKColumnName(propName string) string {
	return ToSnakeCase(propName) + "_id"
}

// FTSColumnNames derives the two generated columns for a named full-text
// search query.
func FTSColumnNames(queryName string) (tsv, doc string) {
	base := ToSnakeCase(queryName)
	return base + "_tsv", base + "_doc"
}
