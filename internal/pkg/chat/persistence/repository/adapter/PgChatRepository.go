package adapter

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	chat "relove-chat/internal/pkg/chat/domain"
)

type PgChatRepository struct {
	pool *pgxpool.Pool
}

func NewPgChatRepository(pool *pgxpool.Pool) *PgChatRepository {
	return &PgChatRepository{pool: pool}
}

var errNilPool = errors.New("PgChatRepository: nil pool")

const conversationColumns = `
	id, created_at, buyer_id, seller_id, buyer_name, seller_name, product_id, product_name,
	last_message, last_message_at, unread_count_buyer, unread_count_seller`

func (r *PgChatRepository) ListConversationsFor(ctx context.Context, viewer chat.Identity) ([]chat.ConversationRecord, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	column := "buyer_id"
	if viewer.Role == chat.RoleSeller {
		column = "seller_id"
	}
	rows, err := r.pool.Query(ctx, `
		SELECT`+conversationColumns+`
		FROM chat.conversation
		WHERE `+column+` = $1
		ORDER BY last_message_at DESC NULLS LAST, id DESC
	`, viewer.ID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[chat.ConversationRecord])
}

func (r *PgChatRepository) GetConversation(ctx context.Context, id int64) (*chat.ConversationRecord, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	rows, err := r.pool.Query(ctx, `SELECT`+conversationColumns+` FROM chat.conversation WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	rec, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[chat.ConversationRecord])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, chat.ErrConversationNotFound
	}
	return rec, err
}

func (r *PgChatRepository) FindOrCreateConversation(ctx context.Context, c chat.ConversationRecord) (*chat.ConversationRecord, bool, error) {
	if r == nil || r.pool == nil {
		return nil, false, errNilPool
	}
	// xmax = 0 only for freshly inserted rows
	rows, err := r.pool.Query(ctx, `
		INSERT INTO chat.conversation (buyer_id, seller_id, product_id, buyer_name, seller_name, product_name)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (buyer_id, seller_id, product_id)
		DO UPDATE SET
			buyer_name   = COALESCE(NULLIF(EXCLUDED.buyer_name, ''), chat.conversation.buyer_name),
			seller_name  = COALESCE(NULLIF(EXCLUDED.seller_name, ''), chat.conversation.seller_name),
			product_name = COALESCE(NULLIF(EXCLUDED.product_name, ''), chat.conversation.product_name)
		RETURNING`+conversationColumns+`, (xmax = 0) AS created
	`, c.BuyerID, c.SellerID, c.ProductID, c.BuyerName, c.SellerName, c.ProductName)
	if err != nil {
		return nil, false, err
	}
	type result struct {
		chat.ConversationRecord
		Created bool `db:"created"`
	}
	res, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[result])
	if err != nil {
		return nil, false, err
	}
	return &res.ConversationRecord, res.Created, nil
}

func (r *PgChatRepository) SaveMessage(ctx context.Context, m chat.Message) (*chat.Message, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	saved := m
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO chat.message (conversation_id, sender_id, sender_type, body, temp_id, created_at)
			VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
			RETURNING id
		`, m.ConversationID, m.SenderID, string(m.SenderType), m.Body, m.TempID, m.CreatedAt).Scan(&saved.ID)
		if err != nil {
			return err
		}

		ct, err := tx.Exec(ctx, `
			UPDATE chat.conversation
			SET last_message        = $2,
			    last_message_at     = $3,
			    unread_count_seller = unread_count_seller + CASE WHEN $4 = 'buyer' THEN 1 ELSE 0 END,
			    unread_count_buyer  = unread_count_buyer + CASE WHEN $4 = 'seller' THEN 1 ELSE 0 END
			WHERE id = $1
		`, m.ConversationID, m.Body, m.CreatedAt, string(m.SenderType))
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return chat.ErrConversationNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *PgChatRepository) GetMessages(ctx context.Context, conversationID int64) ([]chat.Message, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, conversation_id, sender_id, sender_type, body, read, COALESCE(temp_id, ''), created_at
		FROM chat.message
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := make([]chat.Message, 0)
	for rows.Next() {
		var (
			msg        chat.Message
			senderType string
		)
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &senderType, &msg.Body, &msg.Read, &msg.TempID, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msg.SenderType = chat.Role(senderType)
		msgs = append(msgs, msg)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return msgs, nil
}

func (r *PgChatRepository) MarkRead(ctx context.Context, conversationID int64, viewer chat.Role) error {
	if r == nil || r.pool == nil {
		return errNilPool
	}
	counter := "unread_count_buyer"
	if viewer == chat.RoleSeller {
		counter = "unread_count_seller"
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, `UPDATE chat.conversation SET `+counter+` = 0 WHERE id = $1`, conversationID)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return chat.ErrConversationNotFound
		}
		_, err = tx.Exec(ctx, `
			UPDATE chat.message
			SET read = TRUE
			WHERE conversation_id = $1 AND sender_type <> $2 AND NOT read
		`, conversationID, string(viewer))
		return err
	})
}
