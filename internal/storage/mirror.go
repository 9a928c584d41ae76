// Package storage mirrors the in-memory state to a local sqlite database.
// One row per top-level collection, keyed by a stable name, value produced by
// the persistence codec. Writes are best-effort: a failed mirror write is
// recoverable on the next pull, so it logs instead of failing the mutation.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/anvargas/tiendaluz-core/internal/state"
	"github.com/anvargas/tiendaluz-core/pkg/codec"
	"github.com/anvargas/tiendaluz-core/pkg/config"
	"github.com/anvargas/tiendaluz-core/pkg/logger"
)

const (
	keyUsers         = "users"
	keyProducts      = "products"
	keyTransactions  = "transactions"
	keyCustomers     = "customers"
	keySuppliers     = "suppliers"
	keyCashMovements = "cash_movements"
	keyOrders        = "orders"
	keyPurchases     = "purchases"
	keyInvites       = "invites"
	keyActivity      = "activity"
	keySettings      = "settings"
	keySessionUser   = "session:user"
)

// Record is one durable entry.
type Record struct {
	Key       string    `gorm:"column:key;primaryKey"`
	Value     string    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides GORM's pluralization.
func (Record) TableName() string { return "kv" }

// Mirror persists snapshots and the authenticated session.
type Mirror struct {
	db    *gorm.DB
	codec *codec.Codec
	logg  *logger.Logger
}

// Open creates or migrates the local database file.
func Open(cfg config.StorageConfig, c *codec.Codec, logg *logger.Logger) (*Mirror, error) {
	gormLogger := gormlogger.New(
		log.New(io.Discard, "", log.LstdFlags),
		gormlogger.Config{LogLevel: gormlogger.Silent},
	)

	conn, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening local storage: %w", err)
	}
	if err := conn.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrating local storage: %w", err)
	}
	return &Mirror{db: conn, codec: c, logg: logg}, nil
}

// Close shuts down the underlying connection.
func (m *Mirror) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Flush implements state.Flusher: every collection is written under its key.
func (m *Mirror) Flush(snap state.Snapshot) {
	m.put(keyUsers, snap.Users)
	m.put(keyProducts, snap.Products)
	m.put(keyTransactions, snap.Transactions)
	m.put(keyCustomers, snap.Customers)
	m.put(keySuppliers, snap.Suppliers)
	m.put(keyCashMovements, snap.CashMovements)
	m.put(keyOrders, snap.Orders)
	m.put(keyPurchases, snap.Purchases)
	m.put(keyInvites, snap.Invites)
	m.put(keyActivity, snap.Activity)
	m.put(keySettings, snap.Settings)
}

// Load rebuilds a snapshot, degrading corrupt entries to empty defaults so
// the system starts even with unreadable storage.
func (m *Mirror) Load() state.Snapshot {
	return state.Snapshot{
		Users:         load(m, keyUsers, []state.User(nil)),
		Products:      load(m, keyProducts, []state.Product(nil)),
		Transactions:  load(m, keyTransactions, []state.Transaction(nil)),
		Customers:     load(m, keyCustomers, []state.Customer(nil)),
		Suppliers:     load(m, keySuppliers, []state.Supplier(nil)),
		CashMovements: load(m, keyCashMovements, []state.CashMovement(nil)),
		Orders:        load(m, keyOrders, []state.Order(nil)),
		Purchases:     load(m, keyPurchases, []state.Purchase(nil)),
		Invites:       load(m, keyInvites, []state.UserInvite(nil)),
		Activity:      load(m, keyActivity, []state.ActivityEntry(nil)),
		Settings:      load(m, keySettings, state.DefaultSettings()),
	}
}

// SaveSession stores the authenticated user under its own key.
func (m *Mirror) SaveSession(u state.User) {
	m.put(keySessionUser, u)
}

// LoadSession returns the persisted session user, if any.
func (m *Mirror) LoadSession() (state.User, bool) {
	token, ok := m.get(keySessionUser)
	if !ok {
		return state.User{}, false
	}
	var u state.User
	if !m.codec.DecodeInto(token, &u) {
		return state.User{}, false
	}
	return u, true
}

// ClearSession removes the session entry on logout.
func (m *Mirror) ClearSession() {
	if err := m.db.Delete(&Record{}, "key = ?", keySessionUser).Error; err != nil {
		m.warn("clearing session", err)
	}
}

func (m *Mirror) put(key string, value any) {
	token := m.codec.Encode(value)
	if token == "" {
		return
	}
	err := m.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&Record{Key: key, Value: token, UpdatedAt: time.Now()}).Error
	if err != nil {
		m.warn("writing "+key, err)
	}
}

func (m *Mirror) get(key string) (string, bool) {
	var rec Record
	err := m.db.First(&rec, "key = ?", key).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			m.warn("reading "+key, err)
		}
		return "", false
	}
	return rec.Value, true
}

func load[T any](m *Mirror, key string, fallback T) T {
	token, ok := m.get(key)
	if !ok {
		return fallback
	}
	return codec.Decode(m.codec, token, fallback)
}

func (m *Mirror) warn(what string, err error) {
	if m.logg != nil {
		m.logg.Error(context.Background(), "local storage "+what+" failed", err)
	}
}
