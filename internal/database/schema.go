package database

// Scenes are stored as three tables: the scene header, one row per object
// with its parent and sibling position, and one row per element. Parent
// index -1 is the root.

var postgresSchema = []string{
	`CREATE EXTENSION IF NOT EXISTS postgis`,
	`CREATE TABLE IF NOT EXISTS scenes (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		saved_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS scene_objects (
		scene_id    TEXT NOT NULL REFERENCES scenes(id) ON DELETE CASCADE,
		idx         INTEGER NOT NULL,
		object_id   UUID NOT NULL,
		parent_idx  INTEGER NOT NULL,
		position    INTEGER NOT NULL,
		name        TEXT NOT NULL,
		floor       INTEGER,
		height      DOUBLE PRECISION,
		annotations TEXT,
		PRIMARY KEY (scene_id, idx)
	)`,
	`CREATE TABLE IF NOT EXISTS scene_elements (
		scene_id   TEXT NOT NULL REFERENCES scenes(id) ON DELETE CASCADE,
		element_id UUID NOT NULL,
		object_idx INTEGER NOT NULL,
		position   INTEGER NOT NULL,
		layer      TEXT NOT NULL,
		groups     INTEGER[] NOT NULL,
		geom       geometry NOT NULL,
		PRIMARY KEY (scene_id, element_id)
	)`,
	`CREATE INDEX IF NOT EXISTS scene_elements_geom_idx ON scene_elements USING GIST (geom)`,
}

// SQLite keeps geometries as GeoJSON text and group paths as JSON arrays.
var sqliteSchema = []string{
	`PRAGMA foreign_keys = ON`,
	`CREATE TABLE IF NOT EXISTS scenes (
		id       TEXT PRIMARY KEY,
		name     TEXT NOT NULL,
		saved_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS scene_objects (
		scene_id    TEXT NOT NULL REFERENCES scenes(id) ON DELETE CASCADE,
		idx         INTEGER NOT NULL,
		object_id   TEXT NOT NULL,
		parent_idx  INTEGER NOT NULL,
		position    INTEGER NOT NULL,
		name        TEXT NOT NULL,
		floor       INTEGER,
		height      REAL,
		annotations TEXT,
		PRIMARY KEY (scene_id, idx)
	)`,
	`CREATE TABLE IF NOT EXISTS scene_elements (
		scene_id   TEXT NOT NULL REFERENCES scenes(id) ON DELETE CASCADE,
		element_id TEXT NOT NULL,
		object_idx INTEGER NOT NULL,
		position   INTEGER NOT NULL,
		layer      TEXT NOT NULL,
		groups     TEXT NOT NULL,
		geom       TEXT NOT NULL,
		PRIMARY KEY (scene_id, element_id)
	)`,
}
