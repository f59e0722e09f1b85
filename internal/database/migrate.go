package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order by Migrate. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		role ENUM('OWNER','CUSTOMER') NOT NULL DEFAULT 'CUSTOMER',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS venues (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		owner_id BIGINT UNSIGNED NOT NULL,
		name VARCHAR(150) NOT NULL,
		address VARCHAR(255) NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_venue_owner_name (owner_id, name),
		CONSTRAINT fk_venue_owner FOREIGN KEY (owner_id) REFERENCES users(id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS resources (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		venue_id BIGINT UNSIGNED NOT NULL,
		kind ENUM('TABLE','ROOM') NOT NULL,
		name VARCHAR(100) NOT NULL,
		capacity INT NOT NULL,
		status ENUM('AVAILABLE','RESERVED','OCCUPIED','DISABLED') NOT NULL DEFAULT 'AVAILABLE',
		location VARCHAR(50) NULL,
		minimum_charge_cents BIGINT NOT NULL DEFAULT 0,
		price_per_night_cents BIGINT NOT NULL DEFAULT 0,
		amenities JSON NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_resource_name (venue_id, kind, name),
		KEY idx_resource_venue (venue_id, kind, status),
		CONSTRAINT fk_resource_venue FOREIGN KEY (venue_id) REFERENCES venues(id),
		CONSTRAINT chk_resource_capacity CHECK (capacity > 0)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		booking_number VARCHAR(32) NOT NULL UNIQUE,
		kind ENUM('TABLE','ROOM','VENUE') NOT NULL,
		user_id BIGINT UNSIGNED NOT NULL,
		venue_id BIGINT UNSIGNED NOT NULL,
		resource_id BIGINT UNSIGNED NULL,
		starts_at DATETIME NOT NULL,
		ends_at DATETIME NOT NULL,
		duration_minutes INT NOT NULL DEFAULT 0,
		guests INT NOT NULL,
		amount_cents BIGINT NOT NULL DEFAULT 0,
		special_request TEXT NULL,
		status ENUM('PENDING','CONFIRMED','CHECKED_IN','CHECKED_OUT','COMPLETED','CANCELLED','NO_SHOW') NOT NULL DEFAULT 'PENDING',
		payment_ref VARCHAR(128) NULL,
		cancelled_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_booking_resource_window (resource_id, status, starts_at, ends_at),
		KEY idx_booking_venue_start (venue_id, starts_at),
		KEY idx_booking_user (user_id, starts_at),
		CONSTRAINT fk_booking_user FOREIGN KEY (user_id) REFERENCES users(id),
		CONSTRAINT fk_booking_venue FOREIGN KEY (venue_id) REFERENCES venues(id),
		CONSTRAINT fk_booking_resource FOREIGN KEY (resource_id) REFERENCES resources(id),
		CONSTRAINT chk_booking_window CHECK (ends_at > starts_at),
		CONSTRAINT chk_booking_guests CHECK (guests > 0)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS orders (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		order_number VARCHAR(32) NOT NULL UNIQUE,
		venue_id BIGINT UNSIGNED NOT NULL,
		user_id BIGINT UNSIGNED NOT NULL,
		order_type ENUM('DINE_IN','TAKEAWAY','DELIVERY') NOT NULL,
		table_id BIGINT UNSIGNED NULL,
		driver_id BIGINT UNSIGNED NULL,
		total_cents BIGINT NOT NULL DEFAULT 0,
		status ENUM('PENDING','PREPARING','READY','OUT_FOR_DELIVERY','DELIVERED','COMPLETED','CANCELLED') NOT NULL DEFAULT 'PENDING',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_order_venue (venue_id, status),
		CONSTRAINT fk_order_venue FOREIGN KEY (venue_id) REFERENCES venues(id),
		CONSTRAINT fk_order_table FOREIGN KEY (table_id) REFERENCES resources(id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS order_status_history (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		order_id BIGINT UNSIGNED NOT NULL,
		from_status VARCHAR(32) NULL,
		to_status VARCHAR(32) NOT NULL,
		notes TEXT NULL,
		changed_by BIGINT UNSIGNED NOT NULL,
		changed_at DATETIME NOT NULL,
		KEY idx_history_order (order_id, id),
		CONSTRAINT fk_history_order FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE
	) ENGINE=InnoDB`,
}

// Migrate creates the tables the service needs when they are missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
