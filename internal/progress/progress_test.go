package progress

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/service-center/internal/db"
	"github.com/ukydev/service-center/internal/db/dbtest"
	"github.com/ukydev/service-center/internal/models"
	"github.com/ukydev/service-center/internal/notify"
	"github.com/ukydev/service-center/internal/realtime"
	"github.com/ukydev/service-center/internal/realtime/realtimetest"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fixture struct {
	store    *dbtest.Store
	recorder *realtimetest.Recorder
	hook     *test.Hook
	svc      *Service
}

func newFixture() *fixture {
	logger, hook := test.NewNullLogger()
	store := dbtest.NewStore()
	recorder := &realtimetest.Recorder{}
	notifier := notify.NewService(store.Notifications, store.Users, recorder, logger)
	return &fixture{
		store:    store,
		recorder: recorder,
		hook:     hook,
		svc:      NewService(store.Progress, store.ProgressEvents, notifier, logger),
	}
}

func statusPtr(s models.ProgressStatus) *models.ProgressStatus { return &s }
func intPtr(i int) *int                                        { return &i }
func strPtr(s string) *string                                  { return &s }

func newInput() CreateInput {
	return CreateInput{
		ServiceID:  primitive.NewObjectID().Hex(),
		VehicleID:  primitive.NewObjectID().Hex(),
		CustomerID: primitive.NewObjectID().Hex(),
	}
}

func TestCreateOrUpdate_EndToEnd(t *testing.T) {
	f := newFixture()
	employee := primitive.NewObjectID()
	in := newInput()
	in.Status = statusPtr(models.ProgressInProgress)
	in.Progress = intPtr(40)

	res, err := f.svc.CreateOrUpdate(context.Background(), in, employee)
	require.NoError(t, err)
	assert.True(t, res.Created)

	log := res.ProgressLog
	assert.Equal(t, in.ServiceID, log.Service.Hex())
	assert.Equal(t, in.VehicleID, log.Vehicle.Hex())
	assert.Equal(t, in.CustomerID, log.Customer.Hex())
	assert.Equal(t, models.ProgressInProgress, log.Status)
	assert.Equal(t, 40, log.Progress)
	assert.Equal(t, employee, log.UpdatedBy)

	notifications := f.store.Notifications.For(log.Customer)
	require.Len(t, notifications, 1)
	n := notifications[0]
	assert.Equal(t, models.NotifProgressUpdate, n.Type)
	assert.Contains(t, n.Message, "40")
	assert.Contains(t, n.Message, "In Progress")
	require.NotNil(t, n.RelatedTo)
	assert.Equal(t, models.KindProgressLog, n.RelatedTo.Kind)
	assert.Equal(t, log.ID, n.RelatedTo.ID)
	assert.Len(t, f.store.Notifications.All(), 1)

	events := f.recorder.Events()
	require.Len(t, events, 1)
	assert.Equal(t, realtime.UserRoom(in.CustomerID), events[0].Room)
	assert.Equal(t, realtime.EventProgressUpdate, events[0].Event)
	payload, ok := events[0].Payload.(realtime.ProgressUpdatePayload)
	require.True(t, ok)
	assert.Equal(t, log.ID, payload.ProgressLog.ID)
	assert.Equal(t, n.ID, payload.Notification.ID)

	// The live event carries the persisted state.
	stored, err := f.store.Progress.FindProgressByID(context.Background(), log.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 40, stored.Progress)
}

func TestCreateOrUpdate_Defaults(t *testing.T) {
	f := newFixture()

	res, err := f.svc.CreateOrUpdate(context.Background(), newInput(), primitive.NewObjectID())
	require.NoError(t, err)
	assert.Equal(t, models.ProgressPending, res.ProgressLog.Status)
	assert.Equal(t, 0, res.ProgressLog.Progress)
}

func TestCreateOrUpdate_ExistingThreadIsUpdated(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	in := newInput()
	in.Status = statusPtr(models.ProgressUnderRepair)
	in.Progress = intPtr(50)

	first, err := f.svc.CreateOrUpdate(ctx, in, primitive.NewObjectID())
	require.NoError(t, err)

	again := CreateInput{ServiceID: in.ServiceID, VehicleID: in.VehicleID, CustomerID: in.CustomerID, Notes: strPtr("waiting on pads")}
	second, err := f.svc.CreateOrUpdate(ctx, again, primitive.NewObjectID())
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.ProgressLog.ID, second.ProgressLog.ID)
	assert.Equal(t, models.ProgressUnderRepair, second.ProgressLog.Status)
	assert.Equal(t, 50, second.ProgressLog.Progress)
	assert.Equal(t, "waiting on pads", second.ProgressLog.Notes)

	all, err := f.svc.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreateOrUpdate_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *CreateInput)
	}{
		{"missing service", func(in *CreateInput) { in.ServiceID = "" }},
		{"missing vehicle", func(in *CreateInput) { in.VehicleID = " " }},
		{"missing customer", func(in *CreateInput) { in.CustomerID = "" }},
		{"bad customer id", func(in *CreateInput) { in.CustomerID = "nope" }},
		{"progress above range", func(in *CreateInput) { in.Progress = intPtr(101) }},
		{"progress below range", func(in *CreateInput) { in.Progress = intPtr(-1) }},
		{"unknown status", func(in *CreateInput) { in.Status = statusPtr("Teleporting") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			in := newInput()
			tt.mutate(&in)

			_, err := f.svc.CreateOrUpdate(context.Background(), in, primitive.NewObjectID())
			assert.ErrorIs(t, err, ErrInvalidInput)

			all, _ := f.svc.All(context.Background())
			assert.Empty(t, all, "no partial write")
			assert.Empty(t, f.store.Notifications.All())
			assert.Empty(t, f.recorder.Events())
		})
	}
}

func TestUpdate_PartialIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	in := newInput()
	in.Status = statusPtr(models.ProgressQualityCheck)
	in.Progress = intPtr(90)

	created, err := f.svc.CreateOrUpdate(ctx, in, primitive.NewObjectID())
	require.NoError(t, err)
	id := created.ProgressLog.ID.Hex()

	notes := UpdateInput{Notes: strPtr("final road test")}
	one, err := f.svc.Update(ctx, id, notes, primitive.NewObjectID())
	require.NoError(t, err)
	two, err := f.svc.Update(ctx, id, notes, primitive.NewObjectID())
	require.NoError(t, err)

	for _, res := range []*Result{one, two} {
		assert.Equal(t, models.ProgressQualityCheck, res.ProgressLog.Status)
		assert.Equal(t, 90, res.ProgressLog.Progress)
		assert.Equal(t, "final road test", res.ProgressLog.Notes)
	}

	// Every successful write notifies once.
	assert.Len(t, f.store.Notifications.For(created.ProgressLog.Customer), 3)
	assert.Len(t, f.recorder.Events(), 3)

	history, err := f.svc.History(ctx, created.ProgressLog)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, 90, history[0].Progress)
	assert.Equal(t, "final road test", history[2].Notes)
}

func TestUpdate_Errors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Update(ctx, primitive.NewObjectID().Hex(), UpdateInput{}, primitive.NewObjectID())
	assert.ErrorIs(t, err, db.ErrNotFound)

	_, err = f.svc.Update(ctx, "bad", UpdateInput{}, primitive.NewObjectID())
	assert.ErrorIs(t, err, db.ErrInvalidID)

	_, err = f.svc.Update(ctx, primitive.NewObjectID().Hex(), UpdateInput{Progress: intPtr(150)}, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, f.store.Notifications.All())
}

// staleThreadLookup misses the thread on its first lookup, as a request
// racing another request's insert would.
type staleThreadLookup struct {
	*dbtest.Progress
	mu     sync.Mutex
	missed bool
}

func (s *staleThreadLookup) FindProgressByThread(ctx context.Context, service, vehicle, customer primitive.ObjectID) (*models.ProgressLog, error) {
	s.mu.Lock()
	first := !s.missed
	s.missed = true
	s.mu.Unlock()
	if first {
		return nil, db.ErrNotFound
	}
	return s.Progress.FindProgressByThread(ctx, service, vehicle, customer)
}

func TestCreateOrUpdate_LostInsertRaceUpdatesWinner(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	logger, _ := test.NewNullLogger()
	notifier := notify.NewService(f.store.Notifications, f.store.Users, f.recorder, logger)
	svc := NewService(&staleThreadLookup{Progress: f.store.Progress}, f.store.ProgressEvents, notifier, logger)

	in := newInput()
	winner, err := f.svc.CreateOrUpdate(ctx, in, primitive.NewObjectID())
	require.NoError(t, err)

	in.Progress = intPtr(55)
	res, err := svc.CreateOrUpdate(ctx, in, primitive.NewObjectID())
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, winner.ProgressLog.ID, res.ProgressLog.ID)
	assert.Equal(t, 55, res.ProgressLog.Progress)

	all, err := f.svc.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 55, all[0].Progress)
	assert.Len(t, f.store.Notifications.All(), 2)
}

func TestCreateOrUpdate_ConcurrentFirstWritesShareOneThread(t *testing.T) {
	f := newFixture()
	in := newInput()

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateOrUpdate(context.Background(), in, primitive.NewObjectID())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	all, err := f.svc.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Len(t, f.store.Notifications.All(), writers)
}

func TestWrite_SideEffectFailuresDoNotFailTheWrite(t *testing.T) {
	f := newFixture()
	f.store.ProgressEvents.Err = errors.New("history down")
	f.store.Notifications.Err = errors.New("notifications down")

	res, err := f.svc.CreateOrUpdate(context.Background(), newInput(), primitive.NewObjectID())
	require.NoError(t, err)
	require.NotNil(t, res.ProgressLog)
	assert.Nil(t, res.Notification)

	all, _ := f.svc.All(context.Background())
	assert.Len(t, all, 1)
	assert.Empty(t, f.recorder.Events(), "no live event without a persisted notification")
	assert.Len(t, f.hook.AllEntries(), 2)
}

func TestWrite_PersistFailure(t *testing.T) {
	f := newFixture()
	f.store.Progress.Err = errors.New("db down")

	_, err := f.svc.CreateOrUpdate(context.Background(), newInput(), primitive.NewObjectID())
	assert.Error(t, err)
	assert.Empty(t, f.store.Notifications.All())
	assert.Empty(t, f.recorder.Events())
}

func TestForCustomer(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	customer := primitive.NewObjectID()

	for i := 0; i < 2; i++ {
		in := newInput()
		in.CustomerID = customer.Hex()
		_, err := f.svc.CreateOrUpdate(ctx, in, primitive.NewObjectID())
		require.NoError(t, err)
	}
	_, err := f.svc.CreateOrUpdate(ctx, newInput(), primitive.NewObjectID())
	require.NoError(t, err)

	mine, err := f.svc.ForCustomer(ctx, customer)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	for _, l := range mine {
		assert.Equal(t, customer, l.Customer)
	}
}

func TestMessage(t *testing.T) {
	log := &models.ProgressLog{Status: models.ProgressReadyForPickup, Progress: 100}
	assert.Equal(t, "Service progress updated: Ready for Pickup (100% complete)", Message(log))
}
