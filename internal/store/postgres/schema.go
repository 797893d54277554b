package postgres

import (
	"context"
	"fmt"
)

// Schema creates the result tables. Every statement is idempotent.
//
// Children of a container cascade on delete so that replacing the results
// of a container is one DELETE per child table followed by bulk inserts.
const Schema = `
CREATE TABLE IF NOT EXISTS votes (
	id          TEXT PRIMARY KEY,
	title       JSONB NOT NULL DEFAULT '{}',
	short_code  TEXT NOT NULL DEFAULT '',
	date        DATE NOT NULL,
	domain      TEXT NOT NULL,
	type        TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'unknown',
	expats      BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS ballots (
	id       UUID PRIMARY KEY,
	vote_id  TEXT NOT NULL REFERENCES votes (id) ON DELETE CASCADE,
	type     TEXT NOT NULL,
	title    JSONB NOT NULL DEFAULT '{}',
	UNIQUE (vote_id, type)
);

CREATE TABLE IF NOT EXISTS ballot_results (
	id               UUID PRIMARY KEY,
	ballot_id        UUID NOT NULL REFERENCES ballots (id) ON DELETE CASCADE,
	grp              TEXT NOT NULL DEFAULT '',
	entity_id        INTEGER NOT NULL,
	name             TEXT NOT NULL DEFAULT '',
	district         TEXT NOT NULL DEFAULT '',
	counted          BOOLEAN NOT NULL,
	yeas             INTEGER NOT NULL DEFAULT 0,
	nays             INTEGER NOT NULL DEFAULT 0,
	empty            INTEGER NOT NULL DEFAULT 0,
	invalid          INTEGER NOT NULL DEFAULT 0,
	eligible_voters  INTEGER NOT NULL DEFAULT 0,
	UNIQUE (ballot_id, entity_id)
);

CREATE TABLE IF NOT EXISTS elections (
	id                    TEXT PRIMARY KEY,
	title                 JSONB NOT NULL DEFAULT '{}',
	short_code            TEXT NOT NULL DEFAULT '',
	date                  DATE NOT NULL,
	domain                TEXT NOT NULL,
	domain_segment        TEXT NOT NULL DEFAULT '',
	type                  TEXT NOT NULL,
	number_of_mandates    INTEGER NOT NULL DEFAULT 0,
	majority_type         TEXT NOT NULL DEFAULT '',
	absolute_majority     INTEGER,
	status                TEXT NOT NULL DEFAULT 'unknown',
	tacit                 BOOLEAN NOT NULL DEFAULT FALSE,
	expats                BOOLEAN NOT NULL DEFAULT FALSE,
	is_distinct           BOOLEAN NOT NULL DEFAULT FALSE,
	after_pukelsheim      BOOLEAN NOT NULL DEFAULT FALSE,
	pukelsheim_completed  BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS list_connections (
	id             UUID PRIMARY KEY,
	election_id    TEXT NOT NULL REFERENCES elections (id) ON DELETE CASCADE,
	connection_id  TEXT NOT NULL,
	parent_id      UUID REFERENCES list_connections (id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS lists (
	id                  UUID PRIMARY KEY,
	election_id         TEXT NOT NULL REFERENCES elections (id) ON DELETE CASCADE,
	list_id             TEXT NOT NULL,
	name                TEXT NOT NULL DEFAULT '',
	number_of_mandates  INTEGER NOT NULL DEFAULT 0,
	connection_id       UUID REFERENCES list_connections (id) ON DELETE SET NULL,
	UNIQUE (election_id, list_id)
);

CREATE TABLE IF NOT EXISTS candidates (
	id            UUID PRIMARY KEY,
	election_id   TEXT NOT NULL REFERENCES elections (id) ON DELETE CASCADE,
	candidate_id  TEXT NOT NULL,
	family_name   TEXT NOT NULL DEFAULT '',
	first_name    TEXT NOT NULL DEFAULT '',
	elected       BOOLEAN NOT NULL DEFAULT FALSE,
	party         TEXT NOT NULL DEFAULT '',
	list_id       UUID REFERENCES lists (id) ON DELETE CASCADE,
	UNIQUE (election_id, candidate_id)
);

CREATE TABLE IF NOT EXISTS election_results (
	id                UUID PRIMARY KEY,
	election_id       TEXT NOT NULL REFERENCES elections (id) ON DELETE CASCADE,
	grp               TEXT NOT NULL DEFAULT '',
	entity_id         INTEGER NOT NULL,
	name              TEXT NOT NULL DEFAULT '',
	district          TEXT NOT NULL DEFAULT '',
	counted           BOOLEAN NOT NULL,
	eligible_voters   INTEGER NOT NULL DEFAULT 0,
	received_ballots  INTEGER NOT NULL DEFAULT 0,
	blank_ballots     INTEGER NOT NULL DEFAULT 0,
	invalid_ballots   INTEGER NOT NULL DEFAULT 0,
	blank_votes       INTEGER NOT NULL DEFAULT 0,
	invalid_votes     INTEGER NOT NULL DEFAULT 0,
	UNIQUE (election_id, entity_id)
);

CREATE TABLE IF NOT EXISTS candidate_results (
	id                  UUID PRIMARY KEY,
	election_result_id  UUID NOT NULL REFERENCES election_results (id) ON DELETE CASCADE,
	candidate_id        UUID NOT NULL REFERENCES candidates (id) ON DELETE CASCADE,
	votes               INTEGER NOT NULL DEFAULT 0,
	UNIQUE (election_result_id, candidate_id)
);

CREATE TABLE IF NOT EXISTS list_results (
	id                  UUID PRIMARY KEY,
	election_result_id  UUID NOT NULL REFERENCES election_results (id) ON DELETE CASCADE,
	list_id             UUID NOT NULL REFERENCES lists (id) ON DELETE CASCADE,
	votes               INTEGER NOT NULL DEFAULT 0,
	UNIQUE (election_result_id, list_id)
);

CREATE TABLE IF NOT EXISTS list_panachage_results (
	id           UUID PRIMARY KEY,
	election_id  TEXT NOT NULL REFERENCES elections (id) ON DELETE CASCADE,
	target       TEXT NOT NULL,
	source       TEXT NOT NULL,
	votes        INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS election_compounds (
	id                    TEXT PRIMARY KEY,
	title                 JSONB NOT NULL DEFAULT '{}',
	short_code            TEXT NOT NULL DEFAULT '',
	date                  DATE NOT NULL,
	domain                TEXT NOT NULL,
	domain_elections      TEXT NOT NULL DEFAULT '',
	after_pukelsheim      BOOLEAN NOT NULL DEFAULT FALSE,
	pukelsheim_completed  BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS election_compound_elections (
	compound_id  TEXT NOT NULL REFERENCES election_compounds (id) ON DELETE CASCADE,
	election_id  TEXT NOT NULL REFERENCES elections (id) ON DELETE CASCADE,
	position     INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (compound_id, election_id)
);

-- owner_id is the id of an election or an election compound.
CREATE TABLE IF NOT EXISTS party_results (
	id                  UUID PRIMARY KEY,
	owner_id            TEXT NOT NULL,
	year                INTEGER NOT NULL,
	total_votes         INTEGER NOT NULL DEFAULT 0,
	name                TEXT NOT NULL DEFAULT '',
	party_id            TEXT NOT NULL DEFAULT '',
	color               TEXT NOT NULL DEFAULT '',
	number_of_mandates  INTEGER NOT NULL DEFAULT 0,
	votes               INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS party_panachage_results (
	id        UUID PRIMARY KEY,
	owner_id  TEXT NOT NULL,
	target    TEXT NOT NULL,
	source    TEXT NOT NULL,
	votes     INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_ballot_results_ballot ON ballot_results (ballot_id);
CREATE INDEX IF NOT EXISTS idx_election_results_election ON election_results (election_id);
CREATE INDEX IF NOT EXISTS idx_candidate_results_result ON candidate_results (election_result_id);
CREATE INDEX IF NOT EXISTS idx_list_results_result ON list_results (election_result_id);
CREATE INDEX IF NOT EXISTS idx_party_results_owner ON party_results (owner_id);
CREATE INDEX IF NOT EXISTS idx_party_panachage_owner ON party_panachage_results (owner_id);
`

// Migrate creates the result tables if they do not exist.
func Migrate(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}
