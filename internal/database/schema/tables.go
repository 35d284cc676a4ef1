// Package schema holds the table definitions applied at startup.
package schema

// TableDefinitions are applied in order and must stay idempotent
var TableDefinitions = []string{
	`CREATE TABLE IF NOT EXISTS content (
		id VARCHAR(36) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		type VARCHAR(20) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'active',
		metadata JSONB,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	// the refresh batch lists active templates on every tick
	`CREATE INDEX IF NOT EXISTS idx_content_type_status ON content(type, status)`,
}

// TableNames lists all tables in creation order
var TableNames = []string{
	"content",
}
