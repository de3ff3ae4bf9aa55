package database

const schema = `
CREATE TABLE IF NOT EXISTS reports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    report_type TEXT NOT NULL,
    description TEXT DEFAULT '',
    latitude REAL NOT NULL,
    longitude REAL NOT NULL,
    image_path TEXT,
    risk_level TEXT NOT NULL DEFAULT 'low',
    has_weapon BOOLEAN NOT NULL DEFAULT 0,
    has_vehicle BOOLEAN NOT NULL DEFAULT 0,
    plate_text TEXT,
    status TEXT NOT NULL DEFAULT 'pending',
    source TEXT NOT NULL DEFAULT 'citizen',
    ai_raw_summary TEXT DEFAULT '',
    ai_confidence REAL DEFAULT 0,
    ai_outcome TEXT DEFAULT '',
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS track_points (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    report_id INTEGER NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
    latitude REAL NOT NULL,
    longitude REAL NOT NULL,
    created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS panic_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    report_id INTEGER NOT NULL UNIQUE REFERENCES reports(id) ON DELETE CASCADE,
    user_id INTEGER,
    mode TEXT NOT NULL DEFAULT 'normal',
    under_duress BOOLEAN NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS hseq_reports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    type TEXT NOT NULL,
    area TEXT DEFAULT '',
    shift TEXT DEFAULT '',
    description TEXT DEFAULT '',
    latitude REAL,
    longitude REAL,
    image_path TEXT,
    risk_level TEXT NOT NULL DEFAULT 'medium',
    status TEXT NOT NULL DEFAULT 'open',
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reports_created ON reports(created_at);
CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status);
CREATE INDEX IF NOT EXISTS idx_reports_lat ON reports(latitude);
CREATE INDEX IF NOT EXISTS idx_track_points_report ON track_points(report_id);
CREATE INDEX IF NOT EXISTS idx_hseq_created ON hseq_reports(created_at);
CREATE INDEX IF NOT EXISTS idx_hseq_status ON hseq_reports(status);
`
