package testutil

import (
	"testing"

	"gorm.io/gorm"
)

// Seed inserts the given rows, failing the test on the first error.
func Seed(t *testing.T, db *gorm.DB, rows ...interface{}) {
	t.Helper()

	for _, row := range rows {
		if err := db.Create(row).Error; err != nil {
			t.Fatalf("failed to seed %T: %v", row, err)
		}
	}
}

// Count returns the number of rows of the model matching the query. An empty
// query counts every row.
func Count(t *testing.T, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()

	q := db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}

	var n int64
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("failed to count %T: %v", model, err)
	}

	return n
}
