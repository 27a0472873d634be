package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ukydev/service-center/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoUserCollection implements UserCollection for MongoDB
type MongoUserCollection struct {
	Collection *mongo.Collection
}

// InsertUser inserts a new user into the database
func (c *MongoUserCollection) InsertUser(ctx context.Context, user *models.User) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.IsActive = true
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	_, err := c.Collection.InsertOne(ctx, user)
	return translateError(err)
}

// FindUserByID finds a user by their ID
func (c *MongoUserCollection) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	objectID, err := objectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := findOne(ctx, c.Collection, bson.M{"_id": objectID}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindUserByEmail finds a user by their email
func (c *MongoUserCollection) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	filter := bson.M{"email": strings.ToLower(strings.TrimSpace(email))}
	if err := findOne(ctx, c.Collection, filter, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindUsers lists users, optionally restricted to one role
func (c *MongoUserCollection) FindUsers(ctx context.Context, role models.Role) ([]models.User, error) {
	filter := bson.M{}
	if role != "" {
		filter["role"] = role
	}

	users := []models.User{}
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	if err := findAll(ctx, c.Collection, filter, &users, opts); err != nil {
		return nil, err
	}
	return users, nil
}

// FindActiveUsersByRole resolves the current active members of a role
func (c *MongoUserCollection) FindActiveUsersByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	users := []models.User{}
	if err := findAll(ctx, c.Collection, bson.M{"role": role, "isActive": true}, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateUser replaces a user in the database
func (c *MongoUserCollection) UpdateUser(ctx context.Context, id string, user models.User) error {
	objectID, err := objectIDFromHex(id)
	if err != nil {
		return err
	}

	user.UpdatedAt = time.Now()
	user.ID = objectID

	return replaceByID(ctx, c.Collection, objectID, user)
}

// SetUserRole changes the role of a user
func (c *MongoUserCollection) SetUserRole(ctx context.Context, id string, role models.Role) error {
	return updateByID(ctx, c.Collection, id, bson.M{"$set": bson.M{"role": role, "updatedAt": time.Now()}})
}

// SetUserActive activates or deactivates a user
func (c *MongoUserCollection) SetUserActive(ctx context.Context, id string, active bool) error {
	return updateByID(ctx, c.Collection, id, bson.M{"$set": bson.M{"isActive": active, "updatedAt": time.Now()}})
}

// SetUserPermissions replaces the explicit permission grants of a user
func (c *MongoUserCollection) SetUserPermissions(ctx context.Context, id string, permissions []models.Permission) error {
	if permissions == nil {
		permissions = []models.Permission{}
	}
	return updateByID(ctx, c.Collection, id, bson.M{"$set": bson.M{"permissions": permissions, "updatedAt": time.Now()}})
}

// UpdateLastLogin updates the last login time for a user
func (c *MongoUserCollection) UpdateLastLogin(ctx context.Context, id string) error {
	now := time.Now()
	return updateByID(ctx, c.Collection, id, bson.M{"$set": bson.M{"lastLogin": now, "updatedAt": now}})
}
