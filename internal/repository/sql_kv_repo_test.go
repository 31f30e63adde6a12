package repository

import (
	"testing"
	"time"

	"invoicegen/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// dryRun opens a dialect without connecting; statements are only rendered
func dryRun(t *testing.T, dialector gorm.Dialector) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(dialector, &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)
	return db
}

func TestKVStatements(t *testing.T) {
	cases := map[string]struct {
		db     *gorm.DB
		key    string
		upsert string
	}{
		"postgres": {
			db:     dryRun(t, postgres.New(postgres.Config{DSN: "host=localhost user=app dbname=invoicegen sslmode=disable"})),
			key:    `"kv_entries"."key"`,
			upsert: `ON CONFLICT ("key") DO UPDATE SET`,
		},
		"mysql": {
			db:     dryRun(t, mysql.New(mysql.Config{DSN: "app:secret@tcp(localhost:3306)/invoicegen", SkipInitializeWithVersion: true})),
			key:    "`kv_entries`.`key`",
			upsert: "ON DUPLICATE KEY UPDATE",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			get := tc.db.ToSQL(func(tx *gorm.DB) *gorm.DB {
				var entry model.KVEntry
				return byKey(tx, model.KeyInvoiceData).First(&entry)
			})
			assert.Contains(t, get, tc.key+" = 'invoiceData'")

			del := tc.db.ToSQL(func(tx *gorm.DB) *gorm.DB {
				return byKey(tx, model.KeyInvoiceData, model.KeySelectedTemplate).Delete(&model.KVEntry{})
			})
			assert.Contains(t, del, tc.key+" IN ('invoiceData','selectedTemplate')")

			set := tc.db.ToSQL(func(tx *gorm.DB) *gorm.DB {
				return upsert(tx, &model.KVEntry{Key: model.KeySelectedTemplate, Value: "classic", UpdatedAt: time.Now()})
			})
			assert.Contains(t, set, "kv_entries")
			assert.Contains(t, set, tc.upsert)
		})
	}
}
