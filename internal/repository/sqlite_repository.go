package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"flow-ai/chatsync/internal/model"
)

const messageColumns = `id, conversation_id, role, content, version_of, version_number, branch_id,
	attachments, referenced_conversations, referenced_folders, reasoning_metadata, created_at`

type sqliteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) ConversationRepository {
	return &sqliteRepository{db: db}
}

func (r *sqliteRepository) CreateConversation(ctx context.Context, c *model.Conversation) error {
	query := "INSERT INTO conversations (id, project_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)"
	_, err := r.db.ExecContext(ctx, query, c.ID, c.ProjectID, c.Title, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *sqliteRepository) GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	query := "SELECT id, project_id, title, created_at, updated_at FROM conversations WHERE id = ?"
	var c model.Conversation
	err := r.db.QueryRowContext(ctx, query, conversationID).Scan(&c.ID, &c.ProjectID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *sqliteRepository) UpdateConversationTitle(ctx context.Context, conversationID, title string) error {
	query := "UPDATE conversations SET title = ?, updated_at = ? WHERE id = ?"
	res, err := r.db.ExecContext(ctx, query, title, time.Now().UTC(), conversationID)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// AddMessage inserts the message and bumps the conversation's updated_at in
// one transaction.
func (r *sqliteRepository) AddMessage(ctx context.Context, m *model.Message) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertMessage(ctx, tx, m); err != nil {
		return err
	}
	if err := touchConversation(ctx, tx, m.ConversationID); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *sqliteRepository) GetMessage(ctx context.Context, messageID string) (*model.Message, error) {
	query := "SELECT " + messageColumns + " FROM messages WHERE id = ? AND deleted = FALSE"
	m, err := scanMessage(r.db.QueryRowContext(ctx, query, messageID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *sqliteRepository) ListMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	query := "SELECT " + messageColumns + ` FROM messages
		WHERE conversation_id = ? AND deleted = FALSE
		ORDER BY created_at ASC, id ASC`
	return r.queryMessages(ctx, query, conversationID)
}

func (r *sqliteRepository) PageMessages(ctx context.Context, conversationID string, limit int, cursor string) ([]model.Message, string, error) {
	if limit <= 0 {
		limit = 50
	}

	query := "SELECT " + messageColumns + " FROM messages WHERE conversation_id = ? AND deleted = FALSE"
	args := []any{conversationID}
	if cursor != "" {
		mc, err := decodeMessageCursor(cursor, conversationID)
		if err != nil {
			return nil, "", err
		}
		query += " AND (created_at < ? OR (created_at = ? AND id < ?))"
		args = append(args, mc.CreatedAt, mc.CreatedAt, mc.ID)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit+1)

	newestFirst, err := r.queryMessages(ctx, query, args...)
	if err != nil {
		return nil, "", err
	}

	var next string
	if len(newestFirst) > limit {
		newestFirst = newestFirst[:limit]
		oldest := newestFirst[limit-1]
		next, err = encodeMessageCursor(conversationID, oldest.CreatedAt.UnixNano(), oldest.ID)
		if err != nil {
			return nil, "", fmt.Errorf("could not encode cursor: %w", err)
		}
	}

	page := make([]model.Message, len(newestFirst))
	for i, m := range newestFirst {
		page[len(newestFirst)-1-i] = m
	}
	return page, next, nil
}

func (r *sqliteRepository) GetVersions(ctx context.Context, rootID string) ([]model.Message, error) {
	query := "SELECT " + messageColumns + ` FROM messages
		WHERE (id = ? OR version_of = ?) AND deleted = FALSE
		ORDER BY version_number ASC`
	members, err := r.queryMessages(ctx, query, rootID, rootID)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, ErrNotFound
	}
	return members, nil
}

// AddVersion inserts a new member of messageID's version group numbered one
// above the group's current maximum. The new member starts its own branch.
func (r *sqliteRepository) AddVersion(ctx context.Context, messageID string, edit *model.EditRequest) (*model.Message, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := "SELECT " + messageColumns + " FROM messages WHERE id = ? AND deleted = FALSE"
	source, err := scanMessage(tx.QueryRowContext(ctx, query, messageID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("could not load message: %w", err)
	}

	root := source.RootID()
	var latest int
	err = tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version_number), 0) FROM messages WHERE id = ? OR version_of = ?",
		root, root).Scan(&latest)
	if err != nil {
		return nil, fmt.Errorf("could not read latest version: %w", err)
	}

	id := uuid.NewString()
	version := &model.Message{
		ID:                      id,
		ConversationID:          source.ConversationID,
		Role:                    source.Role,
		Content:                 edit.Content,
		Attachments:             edit.Attachments,
		VersionOf:               &root,
		VersionNumber:           latest + 1,
		BranchID:                &id,
		ReferencedConversations: edit.ReferencedConversations,
		ReferencedFolders:       edit.ReferencedFolders,
		CreatedAt:               time.Now().UTC(),
	}
	if err := insertMessage(ctx, tx, version); err != nil {
		return nil, err
	}
	if err := touchConversation(ctx, tx, version.ConversationID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("could not commit version: %w", err)
	}
	return version, nil
}

func (r *sqliteRepository) UpdateMessage(ctx context.Context, messageID string, patch *model.MessagePatch) error {
	if patch.Content == nil && patch.ReasoningMetadata == nil {
		return nil
	}
	query := "UPDATE messages SET content = COALESCE(?, content), reasoning_metadata = COALESCE(?, reasoning_metadata) WHERE id = ? AND deleted = FALSE"

	var content sql.NullString
	if patch.Content != nil {
		content = sql.NullString{String: *patch.Content, Valid: true}
	}
	meta, err := nullJSON(patch.ReasoningMetadata)
	if err != nil {
		return fmt.Errorf("could not encode reasoning metadata: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, content, meta, messageID)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// DeleteMessage soft-deletes a message so version numbers are never reused.
func (r *sqliteRepository) DeleteMessage(ctx context.Context, messageID string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE messages SET deleted = TRUE WHERE id = ? AND deleted = FALSE", messageID)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *sqliteRepository) queryMessages(ctx context.Context, query string, args ...any) ([]model.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []model.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *m)
	}
	return messages, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*model.Message, error) {
	var (
		m                      model.Message
		role                   string
		versionOf, branchID    sql.NullString
		attachments, reasoning sql.NullString
		convRefs, folderRefs   sql.NullString
		createdAt              int64
	)
	err := row.Scan(&m.ID, &m.ConversationID, &role, &m.Content, &versionOf, &m.VersionNumber, &branchID,
		&attachments, &convRefs, &folderRefs, &reasoning, &createdAt)
	if err != nil {
		return nil, err
	}

	m.Role = model.Role(role)
	m.CreatedAt = time.Unix(0, createdAt).UTC()
	if versionOf.Valid {
		m.VersionOf = &versionOf.String
	}
	if branchID.Valid {
		m.BranchID = &branchID.String
	}
	for _, col := range []struct {
		raw  sql.NullString
		dest any
	}{
		{attachments, &m.Attachments},
		{convRefs, &m.ReferencedConversations},
		{folderRefs, &m.ReferencedFolders},
		{reasoning, &m.ReasoningMetadata},
	} {
		if !col.raw.Valid || col.raw.String == "" {
			continue
		}
		if err := json.Unmarshal([]byte(col.raw.String), col.dest); err != nil {
			return nil, fmt.Errorf("could not decode message %s: %w", m.ID, err)
		}
	}
	return &m, nil
}

func insertMessage(ctx context.Context, tx *sql.Tx, m *model.Message) error {
	if m.VersionNumber == 0 {
		m.VersionNumber = 1
	}
	encoded := make([]sql.NullString, 4)
	for i, v := range []any{m.Attachments, m.ReferencedConversations, m.ReferencedFolders, m.ReasoningMetadata} {
		ns, err := nullJSON(v)
		if err != nil {
			return fmt.Errorf("could not encode message %s: %w", m.ID, err)
		}
		encoded[i] = ns
	}

	query := `INSERT INTO messages (` + messageColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, query,
		m.ID,
		m.ConversationID,
		string(m.Role),
		m.Content,
		m.VersionOf,
		m.VersionNumber,
		m.BranchID,
		encoded[0], encoded[1], encoded[2], encoded[3],
		m.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("could not insert message: %w", err)
	}
	return nil
}

func touchConversation(ctx context.Context, tx *sql.Tx, conversationID string) error {
	res, err := tx.ExecContext(ctx, "UPDATE conversations SET updated_at = ? WHERE id = ?", time.Now().UTC(), conversationID)
	if err != nil {
		return fmt.Errorf("could not update conversation timestamp: %w", err)
	}
	return expectOneRow(res)
}

// nullJSON encodes v, storing NULL for nil pointers and empty slices.
func nullJSON(v any) (sql.NullString, error) {
	switch t := v.(type) {
	case nil:
		return sql.NullString{}, nil
	case []model.Attachment:
		if len(t) == 0 {
			return sql.NullString{}, nil
		}
	case []string:
		if len(t) == 0 {
			return sql.NullString{}, nil
		}
	case *model.ReasoningMetadata:
		if t == nil {
			return sql.NullString{}, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
