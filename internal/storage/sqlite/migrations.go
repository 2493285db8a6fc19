package sqlite

import (
	"context"
	"database/sql"
)

// schema sets up the payout tables. It runs on startup to ensure tables exist.
// Amounts are decimal strings (TEXT) so no precision is lost in storage.
// IMPORTANT: payout_schemes must be created BEFORE shows and show_payouts due
// to foreign key constraints.
const schema = `
CREATE TABLE IF NOT EXISTS payout_schemes (
    id TEXT PRIMARY KEY,
    production_id TEXT NOT NULL,
    name TEXT NOT NULL,
    rules TEXT NOT NULL,
    version INTEGER NOT NULL DEFAULT 1,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    UNIQUE (production_id, name)
);

-- One row per production; replacing it is a single atomic statement.
CREATE TABLE IF NOT EXISTS production_default_schemes (
    production_id TEXT PRIMARY KEY,
    scheme_id TEXT NOT NULL,
    FOREIGN KEY (scheme_id) REFERENCES payout_schemes(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS shows (
    id TEXT PRIMARY KEY,
    production_id TEXT NOT NULL,
    date_and_time INTEGER NOT NULL DEFAULT 0,
    payout_scheme_id TEXT,
    updated_at INTEGER NOT NULL,
    FOREIGN KEY (payout_scheme_id) REFERENCES payout_schemes(id)
);

CREATE TABLE IF NOT EXISTS show_financials (
    show_id TEXT PRIMARY KEY,
    revenue_type TEXT NOT NULL CHECK (revenue_type IN ('ticket_sales', 'flat_fee')),
    ticket_count INTEGER NOT NULL DEFAULT 0,
    ticket_revenue TEXT NOT NULL DEFAULT '0',
    flat_fee TEXT NOT NULL DEFAULT '0',
    other_revenue TEXT NOT NULL DEFAULT '0',
    expenses TEXT NOT NULL DEFAULT '0',
    expense_items TEXT NOT NULL DEFAULT '[]',
    ticket_fees TEXT NOT NULL DEFAULT '[]',
    production_expense_allocations TEXT NOT NULL DEFAULT '[]',
    data_confirmed INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (show_id) REFERENCES shows(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS role_assignments (
    show_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    role_name TEXT NOT NULL DEFAULT '',
    payee_type TEXT NOT NULL CHECK (payee_type IN ('Person', 'Group', 'Guest')),
    payee_id TEXT,
    guest_name TEXT,
    PRIMARY KEY (show_id, position),
    CHECK ((payee_type = 'Guest' AND guest_name IS NOT NULL AND payee_id IS NULL)
        OR (payee_type <> 'Guest' AND payee_id IS NOT NULL AND guest_name IS NULL)),
    FOREIGN KEY (show_id) REFERENCES shows(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS show_payouts (
    id TEXT PRIMARY KEY,
    show_id TEXT NOT NULL UNIQUE,
    status TEXT NOT NULL CHECK (status IN ('draft', 'approved', 'paid')),
    scheme_id TEXT,
    scheme_version INTEGER NOT NULL DEFAULT 0,
    override_rules TEXT,
    total_payout TEXT NOT NULL DEFAULT '0',
    version INTEGER NOT NULL DEFAULT 1,
    calculated_at INTEGER NOT NULL DEFAULT 0,
    approved_at INTEGER NOT NULL DEFAULT 0,
    paid_at INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    FOREIGN KEY (show_id) REFERENCES shows(id) ON DELETE CASCADE,
    FOREIGN KEY (scheme_id) REFERENCES payout_schemes(id)
);

CREATE TABLE IF NOT EXISTS show_payout_line_items (
    id TEXT PRIMARY KEY,
    show_payout_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    payee_type TEXT NOT NULL CHECK (payee_type IN ('Person', 'Group', 'Guest')),
    payee_id TEXT,
    guest_name TEXT,
    amount TEXT NOT NULL CHECK (CAST(amount AS REAL) >= 0),
    advance_deduction TEXT NOT NULL DEFAULT '0',
    calculation_details TEXT NOT NULL,
    manually_paid INTEGER NOT NULL DEFAULT 0,
    payment_method TEXT NOT NULL DEFAULT '',
    payout_status TEXT NOT NULL DEFAULT 'pending' CHECK (payout_status IN ('pending', 'paid')),
    payout_reference_id TEXT NOT NULL DEFAULT '',
    paid_at INTEGER NOT NULL DEFAULT 0,
    CHECK ((payee_type = 'Guest' AND guest_name IS NOT NULL AND payee_id IS NULL)
        OR (payee_type <> 'Guest' AND payee_id IS NOT NULL AND guest_name IS NULL)),
    FOREIGN KEY (show_payout_id) REFERENCES show_payouts(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS payout_events (
    id TEXT PRIMARY KEY,
    show_payout_id TEXT NOT NULL,
    from_status TEXT NOT NULL,
    to_status TEXT NOT NULL,
    actor TEXT NOT NULL DEFAULT '',
    reason TEXT NOT NULL DEFAULT '',
    total TEXT NOT NULL,
    snapshot TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (show_payout_id) REFERENCES show_payouts(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS person_advances (
    id TEXT PRIMARY KEY,
    person_id TEXT NOT NULL,
    production_id TEXT NOT NULL,
    show_id TEXT,
    original_amount TEXT NOT NULL,
    remaining_balance TEXT NOT NULL,
    status TEXT NOT NULL CHECK (status IN ('pending', 'partial', 'settled', 'written_off')),
    note TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

-- Recoveries block deletion of their line item; they must be reversed first.
CREATE TABLE IF NOT EXISTS advance_recoveries (
    id TEXT PRIMARY KEY,
    advance_id TEXT NOT NULL,
    line_item_id TEXT NOT NULL,
    amount TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    UNIQUE (advance_id, line_item_id),
    FOREIGN KEY (advance_id) REFERENCES person_advances(id),
    FOREIGN KEY (line_item_id) REFERENCES show_payout_line_items(id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_line_items_named_payee
    ON show_payout_line_items(show_payout_id, payee_type, payee_id) WHERE payee_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_line_items_payout_id ON show_payout_line_items(show_payout_id);
CREATE INDEX IF NOT EXISTS idx_payout_schemes_production_id ON payout_schemes(production_id);
CREATE INDEX IF NOT EXISTS idx_shows_scheme_id ON shows(payout_scheme_id);
CREATE INDEX IF NOT EXISTS idx_show_payouts_scheme_id ON show_payouts(scheme_id);
CREATE INDEX IF NOT EXISTS idx_payout_events_payout_id ON payout_events(show_payout_id);
CREATE INDEX IF NOT EXISTS idx_person_advances_person ON person_advances(person_id, production_id);
CREATE INDEX IF NOT EXISTS idx_advance_recoveries_line_item ON advance_recoveries(line_item_id);
`

// runMigrations executes the schema setup.
func runMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
