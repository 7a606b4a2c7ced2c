package database

import (
	"database/sql"
	"errors"
	"time"
)

const roomColumns = "id, external_id, creator_id, receiver_id, kind, status, pair_key, created_at, updated_at, deleted_at"

func scanRoom(row *sql.Row) (Room, error) {
	var room Room
	err := row.Scan(
		&room.Id,
		&room.ExternalId,
		&room.CreatorId,
		&room.ReceiverId,
		&room.Kind,
		&room.Status,
		&room.PairKey,
		&room.CreatedAt,
		&room.UpdatedAt,
		&room.DeletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Room{}, ErrNotFound
	}

	return room, err
}

func (db *PgRepository) CreateAccount(params CreateAccountParams) (Account, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (email, username, first_name, last_name, avatar, password_hash, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $7) "+
			"RETURNING id, email, username, first_name, last_name, avatar, created_at, updated_at",
		params.EmailAddress,
		params.Username,
		params.FirstName,
		params.LastName,
		params.Avatar,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var a Account
	err := res.Scan(
		&a.Id,
		&a.EmailAddress,
		&a.Username,
		&a.FirstName,
		&a.LastName,
		&a.Avatar,
		&a.CreatedAt,
		&a.UpdatedAt,
	)

	return a, err
}

func (db *PgRepository) GetAccountById(accountId int) (Account, error) {
	row := db.conn.QueryRow(
		"SELECT id, email, username, first_name, last_name, avatar, created_at, updated_at "+
			"FROM accounts WHERE id = $1 LIMIT 1",
		accountId,
	)

	var a Account
	err := row.Scan(
		&a.Id,
		&a.EmailAddress,
		&a.Username,
		&a.FirstName,
		&a.LastName,
		&a.Avatar,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNotFound
	}

	return a, err
}

func (db *PgRepository) GetAccountByEmail(email string) (Account, error) {
	row := db.conn.QueryRow(
		"SELECT id, email, username, first_name, last_name, avatar, password_hash, created_at, updated_at "+
			"FROM accounts WHERE email = $1 LIMIT 1",
		email,
	)

	var a Account
	err := row.Scan(
		&a.Id,
		&a.EmailAddress,
		&a.Username,
		&a.FirstName,
		&a.LastName,
		&a.Avatar,
		&a.PasswordHash,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNotFound
	}

	return a, err
}

func (db *PgRepository) GetAccountSummary(accountId int) (AccountSummary, error) {
	row := db.conn.QueryRow(
		"SELECT id, first_name, last_name, avatar FROM accounts WHERE id = $1 LIMIT 1",
		accountId,
	)

	var s AccountSummary
	err := row.Scan(&s.Id, &s.FirstName, &s.LastName, &s.Avatar)
	if errors.Is(err, sql.ErrNoRows) {
		return AccountSummary{}, ErrNotFound
	}

	return s, err
}

func (db *PgRepository) IsGroupMember(accountId, groupId int) (bool, error) {
	row := db.conn.QueryRow(
		"SELECT 1 FROM group_members WHERE group_id = $1 AND account_id = $2 LIMIT 1",
		groupId,
		accountId,
	)

	var one int
	err := row.Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

func (db *PgRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	var pairKey sql.NullString
	if params.PairKey != "" {
		pairKey = sql.NullString{String: params.PairKey, Valid: true}
	}

	row := db.conn.QueryRow(
		"INSERT INTO rooms (external_id, creator_id, receiver_id, kind, status, pair_key, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $7) RETURNING "+roomColumns,
		params.ExternalId,
		params.CreatorId,
		params.ReceiverId,
		params.Kind,
		params.Status,
		pairKey,
		time.Now().UTC(),
	)

	room, err := scanRoom(row)
	if isUniqueViolation(err) {
		return Room{}, ErrDuplicateRoom
	}

	return room, err
}

func (db *PgRepository) GetRoomByExternalId(externalId string) (Room, error) {
	row := db.conn.QueryRow(
		"SELECT "+roomColumns+" FROM rooms WHERE external_id = $1 LIMIT 1",
		externalId,
	)

	return scanRoom(row)
}

func (db *PgRepository) GetDirectRoom(pairKey string) (Room, error) {
	row := db.conn.QueryRow(
		"SELECT "+roomColumns+" FROM rooms "+
			"WHERE pair_key = $1 AND kind = 'direct' AND status = 'accepted' LIMIT 1",
		pairKey,
	)

	return scanRoom(row)
}

func (db *PgRepository) GetGroupRoom(groupId int) (Room, error) {
	row := db.conn.QueryRow(
		"SELECT "+roomColumns+" FROM rooms "+
			"WHERE receiver_id = $1 AND kind = 'group' AND status = 'accepted' LIMIT 1",
		groupId,
	)

	return scanRoom(row)
}

func (db *PgRepository) TouchRoom(roomId int, at time.Time) error {
	_, err := db.conn.Exec("UPDATE rooms SET updated_at = $2 WHERE id = $1", roomId, at)

	return err
}

func (db *PgRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	row := db.conn.QueryRow(
		"INSERT INTO messages (room_id, sender_id, content, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $4) RETURNING id, room_id, sender_id, content, created_at, updated_at",
		params.RoomId,
		params.SenderId,
		params.Content,
		time.Now().UTC(),
	)

	var msg Message
	err := row.Scan(
		&msg.Id,
		&msg.RoomId,
		&msg.SenderId,
		&msg.Content,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)

	return msg, err
}

func (db *PgRepository) GetMessagesPage(roomId, limit, offset int) ([]Message, error) {
	rows, err := db.conn.Query(
		"SELECT id, room_id, sender_id, content, created_at, updated_at FROM messages "+
			"WHERE room_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3",
		roomId,
		limit,
		offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages = make([]Message, 0, limit)
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.Id, &msg.RoomId, &msg.SenderId, &msg.Content, &msg.CreatedAt, &msg.UpdatedAt); err != nil {
			return nil, err
		}

		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

func (db *PgRepository) CountMessages(roomId int) (int, error) {
	row := db.conn.QueryRow("SELECT COUNT(*) FROM messages WHERE room_id = $1", roomId)

	var total int
	err := row.Scan(&total)

	return total, err
}
