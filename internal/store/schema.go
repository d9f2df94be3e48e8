package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS boards (
    board_path           TEXT PRIMARY KEY,
    name                 TEXT NOT NULL,
    content_hash         INTEGER NOT NULL,
    objects              INTEGER NOT NULL,
    gaps                 INTEGER NOT NULL DEFAULT 0,
    synced_at            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS allocation_state (
    board_path           TEXT NOT NULL REFERENCES boards(board_path) ON DELETE CASCADE,
    item_id              TEXT NOT NULL,
    PRIMARY KEY (board_path, item_id)
);

CREATE TABLE IF NOT EXISTS synced_summaries (
    board_path           TEXT NOT NULL REFERENCES boards(board_path) ON DELETE CASCADE,
    container_id         TEXT NOT NULL,
    container_name       TEXT,
    recorded_at          TEXT NOT NULL,
    income_total         REAL NOT NULL,
    expense_total        REAL NOT NULL,
    savings_total        REAL NOT NULL,
    currency             TEXT,
    mixed                INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (board_path, container_id)
);
`
