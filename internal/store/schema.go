package store

// schemaSQL is the DDL for all tables. A report row is keyed by patient
// and test date; re-saving the same report replaces its child rows.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS reports (
    id INTEGER PRIMARY KEY,
    patient_id TEXT NOT NULL,
    test_date TEXT NOT NULL DEFAULT '',
    age INTEGER,
    language TEXT,
    source_path TEXT,
    inattentive_met INTEGER NOT NULL DEFAULT 0,
    hyperactive_met INTEGER NOT NULL DEFAULT 0,
    classification TEXT,
    epworth_total INTEGER,
    epworth_interpretation TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(patient_id, test_date)
);

CREATE TABLE IF NOT EXISTS domain_scores (
    id INTEGER PRIMARY KEY,
    report_id INTEGER NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
    domain TEXT NOT NULL,
    patient_score TEXT NOT NULL,
    standard_score TEXT NOT NULL,
    percentile TEXT NOT NULL,
    validity_index TEXT NOT NULL,
    UNIQUE(report_id, domain)
);

CREATE TABLE IF NOT EXISTS metrics (
    id INTEGER PRIMARY KEY,
    report_id INTEGER NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
    test_name TEXT NOT NULL,
    metric TEXT NOT NULL,
    sub_part TEXT NOT NULL DEFAULT '',
    raw TEXT NOT NULL,
    standard TEXT NOT NULL,
    percentile TEXT NOT NULL,
    strategy TEXT NOT NULL,
    placeholder INTEGER NOT NULL DEFAULT 0,
    valid INTEGER NOT NULL DEFAULT 1,
    UNIQUE(report_id, test_name, metric, sub_part)
);

CREATE TABLE IF NOT EXISTS asrs_responses (
    id INTEGER PRIMARY KEY,
    report_id INTEGER NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
    question INTEGER NOT NULL,
    part TEXT NOT NULL,
    category TEXT NOT NULL,
    UNIQUE(report_id, question)
);

CREATE TABLE IF NOT EXISTS criteria (
    id INTEGER PRIMARY KEY,
    report_id INTEGER NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
    criterion_id TEXT NOT NULL,
    category TEXT NOT NULL,
    question INTEGER NOT NULL,
    met INTEGER NOT NULL,
    UNIQUE(report_id, criterion_id)
);

CREATE TABLE IF NOT EXISTS npq_domains (
    id INTEGER PRIMARY KEY,
    report_id INTEGER NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
    domain TEXT NOT NULL,
    score INTEGER NOT NULL,
    severity TEXT NOT NULL,
    UNIQUE(report_id, domain)
);

CREATE TABLE IF NOT EXISTS npq_responses (
    id INTEGER PRIMARY KEY,
    report_id INTEGER NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
    domain TEXT NOT NULL,
    question INTEGER NOT NULL,
    question_text TEXT NOT NULL,
    score INTEGER NOT NULL,
    severity TEXT NOT NULL,
    UNIQUE(report_id, domain, question)
);

CREATE TABLE IF NOT EXISTS epworth_responses (
    id INTEGER PRIMARY KEY,
    report_id INTEGER NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
    question INTEGER NOT NULL,
    situation TEXT NOT NULL,
    score INTEGER NOT NULL,
    description TEXT NOT NULL,
    UNIQUE(report_id, question)
);

CREATE TABLE IF NOT EXISTS degradations (
    id INTEGER PRIMARY KEY,
    report_id INTEGER NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
    section TEXT NOT NULL,
    mode TEXT NOT NULL,
    detail TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_metrics_report ON metrics(report_id);
CREATE INDEX IF NOT EXISTS idx_reports_patient ON reports(patient_id);
`
