package migrations

import (
	"github.com/jmoiron/sqlx"
)

// Run creates the database schema required for the field-force backend.
// Statements are idempotent and executed in order. invoice_audit has no
// foreign key to invoices: audit rows must outlive a deleted invoice.
func Run(db *sqlx.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS invoices (
			id VARCHAR(36) PRIMARY KEY,
			invoice_no VARCHAR(64) NOT NULL UNIQUE,
			agent_id VARCHAR(36) NOT NULL,
			created_by VARCHAR(255) NOT NULL,
			customer_id VARCHAR(36),
			customer_snapshot TEXT,
			company_name VARCHAR(255),
			company_address VARCHAR(500),
			company_gst VARCHAR(50),
			company_mobile VARCHAR(50),
			company_email VARCHAR(255),
			agent_name VARCHAR(255),
			agent_phone VARCHAR(50),
			agent_email VARCHAR(255),
			agent_department VARCHAR(255),
			pan_card VARCHAR(50),
			aadhaar_card VARCHAR(50),
			customer_address VARCHAR(500),
			customer_gst VARCHAR(50),
			customer_mobile VARCHAR(50),
			customer_email VARCHAR(255),
			subtotal NUMERIC(15,2) NOT NULL,
			total_discount NUMERIC(15,2) NOT NULL,
			tax_amount NUMERIC(15,2) NOT NULL,
			shipping NUMERIC(15,2) NOT NULL,
			total NUMERIC(15,2) NOT NULL,
			currency VARCHAR(8) NOT NULL,
			status VARCHAR(32) NOT NULL,
			notes VARCHAR(1000),
			bank_name VARCHAR(255),
			bank_account_number VARCHAR(255),
			bank_holder_name VARCHAR(255),
			ifsc_code VARCHAR(50),
			account_type VARCHAR(50),
			upi_id VARCHAR(255),
			terms_and_conditions VARCHAR(2000),
			payment_terms VARCHAR(500),
			company_logo_url VARCHAR(1000),
			company_stamp_url VARCHAR(1000),
			invoice_pdf_url VARCHAR(1000),
			invoice_date TIMESTAMPTZ NOT NULL,
			due_date TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_invoices_agent ON invoices (agent_id);`,
		`CREATE TABLE IF NOT EXISTS invoice_items (
			id SERIAL PRIMARY KEY,
			invoice_id VARCHAR(36) NOT NULL REFERENCES invoices(id),
			product_id BIGINT,
			name VARCHAR(255) NOT NULL,
			sku VARCHAR(100),
			unit_price NUMERIC(15,2) NOT NULL,
			quantity INTEGER NOT NULL,
			discount NUMERIC(15,2) NOT NULL,
			tax NUMERIC(15,2) NOT NULL,
			line_total NUMERIC(15,2) NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS invoice_audit (
			id SERIAL PRIMARY KEY,
			invoice_id VARCHAR(36) NOT NULL,
			action VARCHAR(50) NOT NULL,
			actor_id VARCHAR(36) NOT NULL,
			details VARCHAR(1000),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_invoice_audit_invoice ON invoice_audit (invoice_id, created_at);`,
		`CREATE TABLE IF NOT EXISTS invoice_counters (
			year INTEGER PRIMARY KEY,
			last_seq BIGINT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS attendance_records (
			id VARCHAR(36) PRIMARY KEY,
			agent_id VARCHAR(36) NOT NULL,
			agent_name VARCHAR(255) NOT NULL,
			day VARCHAR(10) NOT NULL,
			check_in_time TIMESTAMPTZ NOT NULL,
			check_out_time TIMESTAMPTZ,
			status VARCHAR(50) NOT NULL,
			work_type VARCHAR(20),
			reason VARCHAR(100),
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			address VARCHAR(500),
			image_url VARCHAR(500),
			punch_out_latitude DOUBLE PRECISION,
			punch_out_longitude DOUBLE PRECISION,
			punch_out_address VARCHAR(500),
			punch_out_image_url VARCHAR(500)
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_agent_day ON attendance_records (agent_id, day);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
