package handlers

import (
	"database/sql"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newOverdueTestDB(t *testing.T) *sql.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	db, err := gdb.DB()
	if err != nil {
		t.Fatalf("failed to unwrap sql.DB: %v", err)
	}

	stmts := []string{
		`CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT, first_name TEXT, last_name TEXT)`,
		`CREATE TABLE accounts (id INTEGER PRIMARY KEY, name TEXT)`,
		`CREATE TABLE sales_controls (id INTEGER PRIMARY KEY, folio TEXT, assignee_id INTEGER, account_id INTEGER)`,
		`INSERT INTO users (id, email, first_name, last_name) VALUES (7, 'jane@onquota.test', 'Jane', 'Doe')`,
		`INSERT INTO accounts (id, name) VALUES (3, 'Acme Industrial')`,
		`INSERT INTO sales_controls (id, folio, assignee_id, account_id) VALUES (1, 'SC/AB12345', 7, 3)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("failed to set up schema: %v", err)
		}
	}
	return db
}

func TestLoadOverdueRecipient(t *testing.T) {
	db := newOverdueTestDB(t)

	recipient, err := loadOverdueRecipient(db, 1)
	if err != nil {
		t.Fatalf("loadOverdueRecipient: %v", err)
	}
	if recipient.Email != "jane@onquota.test" {
		t.Errorf("email = %q", recipient.Email)
	}
	if recipient.Name != "Jane Doe" {
		t.Errorf("name should join first and last name, got %q", recipient.Name)
	}
	if recipient.AccountName != "Acme Industrial" {
		t.Errorf("account name = %q", recipient.AccountName)
	}
}

func TestLoadOverdueRecipient_UnknownControl(t *testing.T) {
	db := newOverdueTestDB(t)

	if _, err := loadOverdueRecipient(db, 99); err == nil {
		t.Error("expected an error for a control that does not exist")
	}
}
