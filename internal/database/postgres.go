package database

import (
	"database/sql"
)

type PgAskRoomRepository struct {
	conn *sql.DB
}

func NewPgAskRoomRepository(dsn string) (*PgAskRoomRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PgAskRoomRepository{conn: db}, nil
}

func (db *PgAskRoomRepository) Ping() error {
	return db.conn.Ping()
}

func (db *PgAskRoomRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
