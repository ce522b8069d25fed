package store

// schemaSQL is the base DDL. Later changes go into migrations.
const schemaSQL = `
-- Model API endpoints registered by a user
CREATE TABLE IF NOT EXISTS api_integrations (
    id INTEGER PRIMARY KEY,
    user_id INTEGER NOT NULL,
    name TEXT NOT NULL,
    api_url TEXT NOT NULL,
    api_key TEXT NOT NULL DEFAULT '',
    description TEXT,
    is_active BOOLEAN NOT NULL DEFAULT 1,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Named models served through an integration
CREATE TABLE IF NOT EXISTS user_models (
    id INTEGER PRIMARY KEY,
    user_id INTEGER NOT NULL,
    integration_id INTEGER REFERENCES api_integrations(id) ON DELETE SET NULL,
    name TEXT NOT NULL,
    model_name TEXT NOT NULL DEFAULT '',
    provider TEXT NOT NULL DEFAULT '',
    description TEXT,
    color TEXT NOT NULL DEFAULT '#808080',
    is_active BOOLEAN NOT NULL DEFAULT 1,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Uploaded prompt datasets
CREATE TABLE IF NOT EXISTS user_datasets (
    id INTEGER PRIMARY KEY,
    user_id INTEGER NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    filename TEXT NOT NULL,
    file_path TEXT NOT NULL,
    file_size INTEGER DEFAULT 0,
    row_count INTEGER DEFAULT 0,
    column_count INTEGER DEFAULT 0,
    columns_info JSON,
    format_validated BOOLEAN NOT NULL DEFAULT 0,
    prompt_column TEXT,
    reference_column TEXT,
    is_active BOOLEAN NOT NULL DEFAULT 1,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Per-user settings
CREATE TABLE IF NOT EXISTS user_settings (
    user_id INTEGER PRIMARY KEY,
    judge_model_id INTEGER REFERENCES user_models(id) ON DELETE SET NULL
);

CREATE INDEX IF NOT EXISTS idx_integrations_user ON api_integrations(user_id);
CREATE INDEX IF NOT EXISTS idx_models_user ON user_models(user_id);
CREATE INDEX IF NOT EXISTS idx_models_integration ON user_models(integration_id);
CREATE INDEX IF NOT EXISTS idx_datasets_user ON user_datasets(user_id);
`
