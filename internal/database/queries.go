package database

import (
	"fmt"
	"time"
)

func (db *PgAskRoomRepository) CreateAccount(params CreateAccountParams) (Account, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (name, email, password_hash, avatar_url, created_at) "+
			"VALUES ($1, $2, $3, $4, $5) RETURNING id, name, email, avatar_url",
		params.Name,
		params.EmailAddress,
		params.PasswordHash,
		params.AvatarUrl,
		time.Now().UTC(),
	)

	var a Account
	err := res.Scan(
		&a.Id,
		&a.Name,
		&a.EmailAddress,
		&a.AvatarUrl,
	)

	return a, err
}

func (db *PgAskRoomRepository) GetAccountById(accountId int) (Account, error) {
	row := db.conn.QueryRow(
		"SELECT id, name, email, avatar_url, created_at, updated_at FROM accounts "+
			"WHERE id = $1 LIMIT 1",
		accountId,
	)

	var a Account
	err := row.Scan(
		&a.Id,
		&a.Name,
		&a.EmailAddress,
		&a.AvatarUrl,
		&a.CreatedAt,
		&a.UpdatedAt,
	)

	return a, err
}

func (db *PgAskRoomRepository) GetAccountByEmail(email string) (Account, error) {
	row := db.conn.QueryRow(
		"SELECT id, name, email, password_hash, avatar_url FROM accounts "+
			"WHERE email = $1 LIMIT 1",
		email,
	)

	var a Account
	err := row.Scan(
		&a.Id,
		&a.Name,
		&a.EmailAddress,
		&a.PasswordHash,
		&a.AvatarUrl,
	)

	return a, err
}

// UpsertGoogleAccount creates an account for a Google identity on first
// sign-in, or refreshes name and avatar on subsequent sign-ins. Questions
// keep the author data they were created with either way.
func (db *PgAskRoomRepository) UpsertGoogleAccount(params UpsertGoogleAccountParams) (Account, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (google_id, name, email, avatar_url, created_at) "+
			"VALUES ($1, $2, $3, $4, $5) "+
			"ON CONFLICT (google_id) DO UPDATE SET name = $2, avatar_url = $4, updated_at = $5 "+
			"RETURNING id, name, email, avatar_url",
		params.GoogleId,
		params.Name,
		params.EmailAddress,
		params.AvatarUrl,
		time.Now().UTC(),
	)

	var a Account
	err := res.Scan(
		&a.Id,
		&a.Name,
		&a.EmailAddress,
		&a.AvatarUrl,
	)

	return a, err
}

func (db *PgAskRoomRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	res := db.conn.QueryRow(
		"INSERT INTO rooms (code, title, owner_id, created_at) "+
			"VALUES ($1, $2, $3, $4) RETURNING id, code, title, owner_id, created_at",
		params.Code,
		params.Title,
		params.OwnerId,
		time.Now().UTC(),
	)

	var room Room
	err := res.Scan(
		&room.Id,
		&room.Code,
		&room.Title,
		&room.OwnerId,
		&room.CreatedAt,
	)

	return room, err
}

func (db *PgAskRoomRepository) GetRoomByCode(code string) (Room, error) {
	row := db.conn.QueryRow(
		"SELECT id, code, title, owner_id, ended_at, created_at, updated_at FROM rooms "+
			"WHERE code = $1 LIMIT 1",
		code,
	)

	var room Room
	err := row.Scan(
		&room.Id,
		&room.Code,
		&room.Title,
		&room.OwnerId,
		&room.EndedAt,
		&room.CreatedAt,
		&room.UpdatedAt,
	)

	return room, err
}

func (db *PgAskRoomRepository) EndRoom(roomId int) (Room, error) {
	res := db.conn.QueryRow(
		"UPDATE rooms SET ended_at = $2, updated_at = $2 WHERE id = $1 "+
			"RETURNING id, code, title, owner_id, ended_at",
		roomId,
		time.Now().UTC(),
	)

	var room Room
	err := res.Scan(
		&room.Id,
		&room.Code,
		&room.Title,
		&room.OwnerId,
		&room.EndedAt,
	)

	return room, err
}

func (db *PgAskRoomRepository) CreateQuestion(params CreateQuestionParams) (Question, error) {
	res := db.conn.QueryRow(
		"INSERT INTO questions (id, room_id, content, author_name, author_avatar, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6) "+
			"RETURNING id, room_id, content, author_name, author_avatar, is_answered, is_highlighted, created_at",
		params.Id,
		params.RoomId,
		params.Content,
		params.AuthorName,
		params.AuthorAvatar,
		time.Now().UTC(),
	)

	var q Question
	err := res.Scan(
		&q.Id,
		&q.RoomId,
		&q.Content,
		&q.AuthorName,
		&q.AuthorAvatar,
		&q.IsAnswered,
		&q.IsHighlighted,
		&q.CreatedAt,
	)

	return q, err
}

// DeleteQuestion removes a question. Deleting an id that does not exist is
// not an error.
func (db *PgAskRoomRepository) DeleteQuestion(questionId string) error {
	_, err := db.conn.Exec("DELETE FROM questions WHERE id = $1", questionId)
	return err
}

func (db *PgAskRoomRepository) MarkQuestionAnswered(questionId string) error {
	_, err := db.conn.Exec(
		"UPDATE questions SET is_answered = TRUE WHERE id = $1",
		questionId,
	)
	return err
}

// ToggleQuestionHighlight inverts the highlight flag in a single statement,
// so concurrent toggles compose instead of racing on a read-then-write.
func (db *PgAskRoomRepository) ToggleQuestionHighlight(questionId string) (bool, error) {
	row := db.conn.QueryRow(
		"UPDATE questions SET is_highlighted = NOT is_highlighted WHERE id = $1 "+
			"RETURNING is_highlighted",
		questionId,
	)

	var highlighted bool
	err := row.Scan(&highlighted)

	return highlighted, err
}

func (db *PgAskRoomRepository) GetQuestions(roomId int) (map[string]Question, error) {
	rows, err := db.conn.Query(
		"SELECT id, room_id, content, author_name, author_avatar, is_answered, is_highlighted, created_at "+
			"FROM questions WHERE room_id = $1",
		roomId,
	)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	questions := make(map[string]Question)
	for rows.Next() {
		var q Question
		if err := rows.Scan(
			&q.Id,
			&q.RoomId,
			&q.Content,
			&q.AuthorName,
			&q.AuthorAvatar,
			&q.IsAnswered,
			&q.IsHighlighted,
			&q.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions[q.Id] = q
	}

	return questions, rows.Err()
}
