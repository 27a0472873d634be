package db

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/service-center/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// testStore connects to the database named by MONGO_URI and returns a store
// backed by a fresh database. Tests are skipped when no server is reachable.
func testStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set, skipping integration test")
	}
	client, err := ConnectMongo(uri)
	if err != nil {
		t.Skipf("failed to create client: %v, skipping integration test", err)
	}
	database := client.Database("test_service_center")
	require.NoError(t, database.Drop(context.Background()))
	t.Cleanup(func() {
		_ = database.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})

	store := NewStore(database)
	require.NoError(t, store.EnsureIndexes(context.Background()))
	return store
}

func TestConnectMongo_BadURI(t *testing.T) {
	client, err := ConnectMongo("mongodb://bad:uri")
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestObjectIDFromHex(t *testing.T) {
	_, err := objectIDFromHex("not-an-id")
	assert.True(t, errors.Is(err, ErrInvalidID))

	id := primitive.NewObjectID()
	parsed, err := objectIDFromHex(id.Hex())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestTranslateError(t *testing.T) {
	assert.NoError(t, translateError(nil))
	assert.Equal(t, ErrNotFound, translateError(mongo.ErrNoDocuments))

	other := errors.New("boom")
	assert.Equal(t, other, translateError(other))
}

func TestNilCollection(t *testing.T) {
	ctx := context.Background()

	err := (&MongoVehicleCollection{}).InsertVehicle(ctx, &models.Vehicle{})
	assert.Error(t, err)

	_, err = (&MongoProgressCollection{}).FindAllProgress(ctx)
	assert.Error(t, err)

	_, err = (&MongoNotificationCollection{}).CountUnread(ctx, primitive.NewObjectID())
	assert.Error(t, err)
}

func TestNormalizePlate(t *testing.T) {
	assert.Equal(t, "CAB1234", normalizePlate(" cab 1234 "))
	assert.Equal(t, "WP-KA-9", normalizePlate("wp-ka-9"))
}

func TestMongoVehicleCollection_DuplicateRegistration(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	owner := primitive.NewObjectID()

	first := &models.Vehicle{Owner: owner, RegistrationNumber: "cab 1234", Make: "Toyota", Model: "Axio", Year: 2018}
	require.NoError(t, store.Vehicles.InsertVehicle(ctx, first))
	assert.Equal(t, "CAB1234", first.RegistrationNumber)

	second := &models.Vehicle{Owner: owner, RegistrationNumber: "CAB1234", Make: "Honda", Model: "Fit", Year: 2019}
	err := store.Vehicles.InsertVehicle(ctx, second)
	assert.True(t, errors.Is(err, ErrDuplicate))

	vehicles, err := store.Vehicles.FindVehiclesByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, vehicles, 1)

	require.NoError(t, store.Vehicles.DeleteVehicle(ctx, first.ID.Hex()))
	assert.Equal(t, ErrNotFound, store.Vehicles.DeleteVehicle(ctx, first.ID.Hex()))
}

func TestMongoProgressCollection_Thread(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	service, vehicle, customer := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()

	log := &models.ProgressLog{
		Service:  service,
		Vehicle:  vehicle,
		Customer: customer,
		Status:   models.ProgressInProgress,
		Progress: 40,
	}
	require.NoError(t, store.Progress.InsertProgress(ctx, log))

	found, err := store.Progress.FindProgressByThread(ctx, service, vehicle, customer)
	require.NoError(t, err)
	assert.Equal(t, log.ID, found.ID)

	found.Progress = 80
	found.Status = models.ProgressQualityCheck
	require.NoError(t, store.Progress.UpdateProgress(ctx, found))

	logs, err := store.Progress.FindProgressByCustomer(ctx, customer)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, 80, logs[0].Progress)

	_, err = store.Progress.FindProgressByThread(ctx, service, vehicle, primitive.NewObjectID())
	assert.Equal(t, ErrNotFound, err)

	require.NoError(t, store.ProgressEvents.InsertProgressEvent(ctx, &models.ProgressEvent{ProgressLog: log.ID, Progress: 40}))
	require.NoError(t, store.ProgressEvents.InsertProgressEvent(ctx, &models.ProgressEvent{ProgressLog: log.ID, Progress: 80}))
	events, err := store.ProgressEvents.FindProgressEvents(ctx, log.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, 40, events[0].Progress)
}

func TestMongoNotificationCollection_ReadState(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	alice, bob := primitive.NewObjectID(), primitive.NewObjectID()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Notifications.InsertNotification(ctx, &models.Notification{
			Recipient: alice,
			Type:      models.NotifProgressUpdate,
			Title:     "Service Progress Update",
		}))
	}
	other := &models.Notification{Recipient: bob, Type: models.NotifStatusChange, Title: "Appointment Status Updated"}
	require.NoError(t, store.Notifications.InsertNotification(ctx, other))

	count, err := store.Notifications.CountUnread(ctx, alice)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	// A user cannot mark someone else's notification.
	_, err = store.Notifications.MarkNotificationRead(ctx, other.ID.Hex(), alice, other.CreatedAt)
	assert.Equal(t, ErrNotFound, err)

	list, err := store.Notifications.FindNotificationsByRecipient(ctx, alice, true, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)

	read, err := store.Notifications.MarkNotificationRead(ctx, list[0].ID.Hex(), alice, list[0].CreatedAt)
	require.NoError(t, err)
	assert.True(t, read.Read)
	require.NotNil(t, read.ReadAt)

	again, err := store.Notifications.MarkNotificationRead(ctx, list[0].ID.Hex(), alice, list[0].CreatedAt.Add(1))
	require.NoError(t, err)
	assert.True(t, again.Read)

	changed, err := store.Notifications.MarkAllNotificationsRead(ctx, alice, list[0].CreatedAt)
	require.NoError(t, err)
	assert.EqualValues(t, 2, changed)

	count, err = store.Notifications.CountUnread(ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = store.Notifications.CountUnread(ctx, bob)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}
