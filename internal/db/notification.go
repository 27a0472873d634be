package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ukydev/service-center/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoNotificationCollection implements NotificationCollection for MongoDB
type MongoNotificationCollection struct {
	Collection *mongo.Collection
}

// InsertNotification stores a new, unread notification.
func (c *MongoNotificationCollection) InsertNotification(ctx context.Context, n *models.Notification) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	n.Read = false
	n.ReadAt = nil
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	_, err := c.Collection.InsertOne(ctx, n)
	return translateError(err)
}

// FindNotificationsByRecipient lists a user's notifications, newest first.
// A limit of zero means no limit.
func (c *MongoNotificationCollection) FindNotificationsByRecipient(ctx context.Context, recipient primitive.ObjectID, unreadOnly bool, limit int64) ([]models.Notification, error) {
	filter := bson.M{"recipient": recipient}
	if unreadOnly {
		filter["read"] = false
	}

	opts := newestFirst()
	if limit > 0 {
		opts.SetLimit(limit)
	}

	notifications := []models.Notification{}
	if err := findAll(ctx, c.Collection, filter, &notifications, opts); err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkNotificationRead flags one notification as read. The recipient must
// match, so a user cannot touch someone else's notification. Marking an
// already read notification returns it unchanged.
func (c *MongoNotificationCollection) MarkNotificationRead(ctx context.Context, id string, recipient primitive.ObjectID, at time.Time) (*models.Notification, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	objectID, err := objectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	filter := bson.M{"_id": objectID, "recipient": recipient, "read": false}
	update := bson.M{"$set": bson.M{"read": true, "readAt": at}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var n models.Notification
	err = translateError(c.Collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&n))
	if err == ErrNotFound {
		// Either missing, not owned, or already read.
		if err := findOne(ctx, c.Collection, bson.M{"_id": objectID, "recipient": recipient}, &n); err != nil {
			return nil, err
		}
		return &n, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkAllNotificationsRead flags every unread notification of a user and
// returns how many changed.
func (c *MongoNotificationCollection) MarkAllNotificationsRead(ctx context.Context, recipient primitive.ObjectID, at time.Time) (int64, error) {
	if c.Collection == nil {
		return 0, fmt.Errorf("mongo collection is nil")
	}
	result, err := c.Collection.UpdateMany(ctx,
		bson.M{"recipient": recipient, "read": false},
		bson.M{"$set": bson.M{"read": true, "readAt": at}},
	)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

// CountUnread counts a user's unread notifications.
func (c *MongoNotificationCollection) CountUnread(ctx context.Context, recipient primitive.ObjectID) (int64, error) {
	if c.Collection == nil {
		return 0, fmt.Errorf("mongo collection is nil")
	}
	return c.Collection.CountDocuments(ctx, bson.M{"recipient": recipient, "read": false})
}
