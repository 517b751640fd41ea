package database

const schema = `
CREATE TABLE IF NOT EXISTS "user" (
    id            UUID PRIMARY KEY,
    name          TEXT NOT NULL,
    username      TEXT NOT NULL UNIQUE,
    email         TEXT NOT NULL UNIQUE,
    is_active     BOOLEAN NOT NULL DEFAULT TRUE,
    roles         TEXT[] NOT NULL DEFAULT '{}',
    password_hash BYTEA,
    created_at    TIMESTAMP NOT NULL,
    updated_at    TIMESTAMP NOT NULL,
    last_login    TIMESTAMP
);

CREATE TABLE IF NOT EXISTS lead (
    id          UUID PRIMARY KEY,
    parent_name TEXT NOT NULL,
    email       TEXT NOT NULL,
    phone       TEXT NOT NULL DEFAULT '',
    child_name  TEXT NOT NULL,
    instrument  TEXT NOT NULL DEFAULT '',
    note        TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL,
    assignee_id UUID REFERENCES "user" (id) ON DELETE SET NULL,
    created_at  TIMESTAMP NOT NULL,
    updated_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS lead_status_idx ON lead (status);

CREATE TABLE IF NOT EXISTS event (
    id         UUID PRIMARY KEY,
    name       TEXT NOT NULL,
    venue      TEXT NOT NULL,
    starts_at  TIMESTAMP NOT NULL,
    ends_at    TIMESTAMP NOT NULL,
    capacity   INT NOT NULL,
    published  BOOLEAN NOT NULL DEFAULT FALSE,
    notes      TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS class (
    id         UUID PRIMARY KEY,
    event_id   UUID NOT NULL REFERENCES event (id) ON DELETE CASCADE,
    name       TEXT NOT NULL,
    teacher_id UUID NOT NULL,
    instrument TEXT NOT NULL DEFAULT '',
    slots      INT NOT NULL,
    roster     JSONB NOT NULL DEFAULT '[]',
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS class_event_idx ON class (event_id);
CREATE INDEX IF NOT EXISTS class_teacher_idx ON class (teacher_id);

CREATE TABLE IF NOT EXISTS batch (
    id           UUID PRIMARY KEY,
    number       INT NOT NULL UNIQUE,
    status       TEXT NOT NULL,
    cutoff       TIMESTAMP NOT NULL,
    order_ids    TEXT[] NOT NULL DEFAULT '{}',
    submitted_at TIMESTAMP,
    fulfilled_at TIMESTAMP,
    created_at   TIMESTAMP NOT NULL,
    updated_at   TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS "order" (
    id           UUID PRIMARY KEY,
    teacher_id   UUID NOT NULL,
    class_id     UUID NOT NULL,
    student_name TEXT NOT NULL,
    garment      TEXT NOT NULL,
    size         TEXT NOT NULL,
    quantity     INT NOT NULL,
    note         TEXT NOT NULL DEFAULT '',
    status       TEXT NOT NULL,
    batch_id     UUID REFERENCES batch (id) ON DELETE SET NULL,
    created_at   TIMESTAMP NOT NULL,
    updated_at   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS order_teacher_idx ON "order" (teacher_id);
CREATE INDEX IF NOT EXISTS order_status_idx ON "order" (status);

CREATE TABLE IF NOT EXISTS task (
    id           UUID PRIMARY KEY,
    title        TEXT NOT NULL,
    body         TEXT NOT NULL DEFAULT '',
    audience     TEXT[] NOT NULL DEFAULT '{}',
    visible_from TIMESTAMP NOT NULL,
    due_at       TIMESTAMP NOT NULL,
    grace        BIGINT NOT NULL DEFAULT 0,
    done_by      JSONB NOT NULL DEFAULT '{}',
    created_by   UUID NOT NULL,
    created_at   TIMESTAMP NOT NULL,
    updated_at   TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS resource (
    id           UUID PRIMARY KEY,
    title        TEXT NOT NULL,
    description  TEXT NOT NULL DEFAULT '',
    filename     TEXT NOT NULL,
    path         TEXT NOT NULL,
    content_type TEXT NOT NULL DEFAULT '',
    size         BIGINT NOT NULL DEFAULT 0,
    uploaded_by  UUID NOT NULL,
    created_at   TIMESTAMP NOT NULL,
    updated_at   TIMESTAMP NOT NULL
);
`
