package postgres

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"

	"github.com/splax/modulehub/internal/domain"
)

// InsertNotifications writes inbox rows in a single batch.
func (r *Repository) InsertNotifications(ctx context.Context, notifications []domain.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	const query = `INSERT INTO notifications (id, recipient_id, type, title, message, related_package_id, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	batch := &pgx.Batch{}
	for _, n := range notifications {
		var related any
		if n.RelatedPackageID != "" {
			related = n.RelatedPackageID
		}
		batch.Queue(query, n.ID, n.RecipientID, n.Type, n.Title, n.Message, related, n.Read, n.CreatedAt)
	}
	return mapError(r.inTx(ctx, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	}))
}

// listNotificationsQuery orders by id after created_at so rows written in one
// batch share a stable order.
const listNotificationsQuery = `SELECT n.id, n.recipient_id, n.type, n.title, n.message, n.related_package_id, n.read, n.created_at, p.name
		FROM notifications n
		LEFT JOIN packages p ON p.id = n.related_package_id
		WHERE n.recipient_id = $1
		ORDER BY n.created_at DESC, n.id DESC
		LIMIT $2`

// ListNotifications returns the newest notifications for recipientID with the package name resolved.
func (r *Repository) ListNotifications(ctx context.Context, recipientID string, limit int) ([]domain.NotificationView, error) {
	rows, err := r.pool.Query(ctx, listNotificationsQuery, recipientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	views := make([]domain.NotificationView, 0)
	for rows.Next() {
		var (
			view        domain.NotificationView
			related     sql.NullString
			packageName sql.NullString
		)
		n := &view.Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Type, &n.Title, &n.Message, &related, &n.Read, &n.CreatedAt, &packageName); err != nil {
			return nil, err
		}
		n.RelatedPackageID = related.String
		if packageName.Valid {
			view.RelatedPackage = &domain.PackageRef{ID: related.String, Name: packageName.String}
		}
		views = append(views, view)
	}
	return views, rows.Err()
}

// MarkAllRead flags every unread notification of recipientID as read.
func (r *Repository) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE recipient_id = $1 AND read = FALSE`, recipientID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
