package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"planora/internal/config"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// Open connects to the configured database for the given driver type.
func Open(dbType string, cfg *config.Config) (*sql.DB, error) {
	dbCfg, ok := cfg.Databases[dbType]
	if !ok {
		return nil, fmt.Errorf("database config for %s not found", dbType)
	}

	var (
		db  *sql.DB
		err error
	)

	switch strings.ToLower(dbType) {
	case "sqlite", "sqlite3":
		if dbCfg.DSN == "" {
			return nil, fmt.Errorf("sqlite dsn must be provided")
		}
		db, err = sql.Open("sqlite3", dbCfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
		}
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
			dbCfg.Username,
			dbCfg.Password,
			dbCfg.Host,
			dbCfg.Port,
			dbCfg.DBName,
			dbCfg.Params,
		)
		db, err = sql.Open("mysql", dsn)
		if err != nil {
			return nil, fmt.Errorf("open mysql database: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", dbType)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Migrate ensures the required tables are present.
func Migrate(db *sql.DB, driver string) error {
	var stmts []string
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS users (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				email TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				user_type TEXT NOT NULL,
				created_at DATETIME NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS user_tokens (
				token TEXT PRIMARY KEY,
				user_id INTEGER NOT NULL,
				created_at DATETIME NOT NULL,
				expires_at DATETIME NOT NULL,
				FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
			)`,
			`CREATE INDEX IF NOT EXISTS idx_user_tokens_user ON user_tokens(user_id)`,
			`CREATE TABLE IF NOT EXISTS venues (
				id TEXT PRIMARY KEY,
				owner_id INTEGER NOT NULL,
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				address TEXT NOT NULL DEFAULT '',
				capacity INTEGER NOT NULL DEFAULT 0,
				created_at DATETIME NOT NULL,
				FOREIGN KEY(owner_id) REFERENCES users(id) ON DELETE CASCADE
			)`,
			`CREATE INDEX IF NOT EXISTS idx_venues_owner ON venues(owner_id)`,
			`CREATE TABLE IF NOT EXISTS events (
				id TEXT PRIMARY KEY,
				client_id INTEGER NOT NULL,
				venue_id TEXT,
				name TEXT NOT NULL,
				event_date DATETIME NOT NULL,
				guest_count INTEGER NOT NULL DEFAULT 0,
				budget_total REAL NOT NULL DEFAULT 0,
				status TEXT NOT NULL DEFAULT 'planning',
				created_at DATETIME NOT NULL,
				FOREIGN KEY(client_id) REFERENCES users(id) ON DELETE CASCADE,
				FOREIGN KEY(venue_id) REFERENCES venues(id) ON DELETE SET NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_events_client ON events(client_id)`,
			`CREATE INDEX IF NOT EXISTS idx_events_venue ON events(venue_id)`,
			`CREATE TABLE IF NOT EXISTS tasks (
				id TEXT PRIMARY KEY,
				event_id TEXT NOT NULL,
				title TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'pending',
				due_date DATETIME,
				created_at DATETIME NOT NULL,
				FOREIGN KEY(event_id) REFERENCES events(id) ON DELETE CASCADE
			)`,
			`CREATE INDEX IF NOT EXISTS idx_tasks_event ON tasks(event_id)`,
			`CREATE TABLE IF NOT EXISTS guests (
				id TEXT PRIMARY KEY,
				event_id TEXT NOT NULL,
				name TEXT NOT NULL,
				rsvp_status TEXT NOT NULL DEFAULT 'pending',
				party_size INTEGER NOT NULL DEFAULT 1,
				FOREIGN KEY(event_id) REFERENCES events(id) ON DELETE CASCADE
			)`,
			`CREATE INDEX IF NOT EXISTS idx_guests_event ON guests(event_id)`,
			`CREATE TABLE IF NOT EXISTS event_messages (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				event_id TEXT NOT NULL,
				sender_name TEXT NOT NULL,
				body TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				FOREIGN KEY(event_id) REFERENCES events(id) ON DELETE CASCADE
			)`,
			`CREATE INDEX IF NOT EXISTS idx_event_messages_event ON event_messages(event_id)`,
			`CREATE TABLE IF NOT EXISTS booking_inquiries (
				id TEXT PRIMARY KEY,
				venue_id TEXT NOT NULL,
				contact_name TEXT NOT NULL,
				event_date DATETIME NOT NULL,
				guest_count INTEGER NOT NULL DEFAULT 0,
				status TEXT NOT NULL DEFAULT 'new',
				created_at DATETIME NOT NULL,
				FOREIGN KEY(venue_id) REFERENCES venues(id) ON DELETE CASCADE
			)`,
			`CREATE INDEX IF NOT EXISTS idx_booking_inquiries_venue ON booking_inquiries(venue_id)`,
			`CREATE TABLE IF NOT EXISTS chats (
				id TEXT PRIMARY KEY,
				user_id INTEGER NOT NULL,
				persona TEXT NOT NULL,
				agent_type TEXT NOT NULL,
				event_id TEXT,
				venue_id TEXT,
				title TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
			)`,
			`CREATE INDEX IF NOT EXISTS idx_chats_user ON chats(user_id)`,
			`CREATE TABLE IF NOT EXISTS chat_messages (
				chat_id TEXT NOT NULL,
				id TEXT NOT NULL,
				role TEXT NOT NULL,
				parts TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				PRIMARY KEY (chat_id, id),
				FOREIGN KEY(chat_id) REFERENCES chats(id) ON DELETE CASCADE
			)`,
			`CREATE INDEX IF NOT EXISTS idx_chat_messages_chat ON chat_messages(chat_id, created_at)`,
		}
	case "mysql":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS users (
				id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
				email VARCHAR(255) NOT NULL UNIQUE,
				password_hash VARCHAR(255) NOT NULL,
				user_type VARCHAR(50) NOT NULL,
				created_at DATETIME NOT NULL,
				PRIMARY KEY (id)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS user_tokens (
				token VARCHAR(255) NOT NULL PRIMARY KEY,
				user_id BIGINT UNSIGNED NOT NULL,
				created_at DATETIME NOT NULL,
				expires_at DATETIME NOT NULL,
				INDEX idx_user_tokens_user (user_id),
				CONSTRAINT fk_user_tokens_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS venues (
				id VARCHAR(64) NOT NULL PRIMARY KEY,
				owner_id BIGINT UNSIGNED NOT NULL,
				name VARCHAR(255) NOT NULL,
				description TEXT,
				address VARCHAR(512),
				capacity INT NOT NULL DEFAULT 0,
				created_at DATETIME NOT NULL,
				INDEX idx_venues_owner (owner_id),
				CONSTRAINT fk_venues_owner FOREIGN KEY (owner_id) REFERENCES users(id) ON DELETE CASCADE
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS events (
				id VARCHAR(64) NOT NULL PRIMARY KEY,
				client_id BIGINT UNSIGNED NOT NULL,
				venue_id VARCHAR(64),
				name VARCHAR(255) NOT NULL,
				event_date DATETIME NOT NULL,
				guest_count INT NOT NULL DEFAULT 0,
				budget_total DOUBLE NOT NULL DEFAULT 0,
				status VARCHAR(50) NOT NULL DEFAULT 'planning',
				created_at DATETIME NOT NULL,
				INDEX idx_events_client (client_id),
				INDEX idx_events_venue (venue_id),
				CONSTRAINT fk_events_client FOREIGN KEY (client_id) REFERENCES users(id) ON DELETE CASCADE,
				CONSTRAINT fk_events_venue FOREIGN KEY (venue_id) REFERENCES venues(id) ON DELETE SET NULL
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS tasks (
				id VARCHAR(64) NOT NULL PRIMARY KEY,
				event_id VARCHAR(64) NOT NULL,
				title VARCHAR(512) NOT NULL,
				status VARCHAR(50) NOT NULL DEFAULT 'pending',
				due_date DATETIME,
				created_at DATETIME NOT NULL,
				INDEX idx_tasks_event (event_id),
				CONSTRAINT fk_tasks_event FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS guests (
				id VARCHAR(64) NOT NULL PRIMARY KEY,
				event_id VARCHAR(64) NOT NULL,
				name VARCHAR(255) NOT NULL,
				rsvp_status VARCHAR(50) NOT NULL DEFAULT 'pending',
				party_size INT NOT NULL DEFAULT 1,
				INDEX idx_guests_event (event_id),
				CONSTRAINT fk_guests_event FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS event_messages (
				id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
				event_id VARCHAR(64) NOT NULL,
				sender_name VARCHAR(255) NOT NULL,
				body MEDIUMTEXT NOT NULL,
				created_at DATETIME NOT NULL,
				PRIMARY KEY (id),
				INDEX idx_event_messages_event (event_id),
				CONSTRAINT fk_event_messages_event FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS booking_inquiries (
				id VARCHAR(64) NOT NULL PRIMARY KEY,
				venue_id VARCHAR(64) NOT NULL,
				contact_name VARCHAR(255) NOT NULL,
				event_date DATETIME NOT NULL,
				guest_count INT NOT NULL DEFAULT 0,
				status VARCHAR(50) NOT NULL DEFAULT 'new',
				created_at DATETIME NOT NULL,
				INDEX idx_booking_inquiries_venue (venue_id),
				CONSTRAINT fk_booking_inquiries_venue FOREIGN KEY (venue_id) REFERENCES venues(id) ON DELETE CASCADE
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS chats (
				id VARCHAR(128) NOT NULL PRIMARY KEY,
				user_id BIGINT UNSIGNED NOT NULL,
				persona VARCHAR(50) NOT NULL,
				agent_type VARCHAR(50) NOT NULL,
				event_id VARCHAR(64),
				venue_id VARCHAR(64),
				title VARCHAR(255) NOT NULL,
				created_at DATETIME NOT NULL,
				INDEX idx_chats_user (user_id),
				CONSTRAINT fk_chats_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS chat_messages (
				chat_id VARCHAR(128) NOT NULL,
				id VARCHAR(128) NOT NULL,
				role VARCHAR(50) NOT NULL,
				parts MEDIUMTEXT NOT NULL,
				created_at DATETIME NOT NULL,
				PRIMARY KEY (chat_id, id),
				INDEX idx_chat_messages_chat (chat_id, created_at),
				CONSTRAINT fk_chat_messages_chat FOREIGN KEY (chat_id) REFERENCES chats(id) ON DELETE CASCADE
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		}
	default:
		return fmt.Errorf("unsupported driver for migration: %s", driver)
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate (%s): %w", driver, err)
		}
	}
	return nil
}
