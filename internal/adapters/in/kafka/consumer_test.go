package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"courier-dispatch/internal/core/application/geostore"
	"courier-dispatch/internal/core/application/usecases/commands"
	"courier-dispatch/internal/core/domain/model/kernel"
	"courier-dispatch/internal/pkg/errs"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	ctx context.Context

	mu     sync.Mutex
	marked []int64
}

func (s *fakeSession) Context() context.Context { return s.ctx }

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, msg.Offset)
}

func (s *fakeSession) MarkOffset(string, int32, int64, string)  {}
func (s *fakeSession) Commit()                                  {}
func (s *fakeSession) ResetOffset(string, int32, int64, string) {}
func (s *fakeSession) Claims() map[string][]int32               { return nil }
func (s *fakeSession) MemberID() string                         { return "" }
func (s *fakeSession) GenerationID() int32                      { return 0 }

type fakeClaim struct {
	ch chan *sarama.ConsumerMessage
}

func (c fakeClaim) Topic() string                            { return "delivery.courier.location.v1" }
func (c fakeClaim) Partition() int32                         { return 0 }
func (c fakeClaim) InitialOffset() int64                     { return 0 }
func (c fakeClaim) HighWaterMarkOffset() int64               { return 0 }
func (c fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.ch }

type handlerFunc func(ctx context.Context, command commands.UpdateLocationCommand) (geostore.RecordResult, error)

func (f handlerFunc) Handle(ctx context.Context, command commands.UpdateLocationCommand) (geostore.RecordResult, error) {
	return f(ctx, command)
}

func claimOf(values ...string) fakeClaim {
	ch := make(chan *sarama.ConsumerMessage, len(values))
	for i, v := range values {
		ch <- &sarama.ConsumerMessage{Offset: int64(i), Value: []byte(v)}
	}
	close(ch)
	return fakeClaim{ch: ch}
}

func report(id kernel.UUID) string {
	return fmt.Sprintf(`{"courier_id":%q,"latitude":52.52,"longitude":13.405,"accuracy":5,"timestamp":%q,"speed":12}`,
		id.String(), time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC).Format(time.RFC3339))
}

func TestConsumeClaim(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	t.Run("should record reports and skip malformed ones", func(t *testing.T) {
		id := kernel.NewUUID()
		var got []commands.UpdateLocationCommand
		c := newConsumer(nil, "t", handlerFunc(func(_ context.Context, cmd commands.UpdateLocationCommand) (geostore.RecordResult, error) {
			got = append(got, cmd)
			return geostore.RecordResult{}, nil
		}), logger)
		sess := &fakeSession{ctx: context.Background()}

		err := (&groupHandler{c: c}).ConsumeClaim(sess, claimOf(
			"not-json",
			`{"courier_id":"`+id.String()+`","longitude":1,"timestamp":"2026-10-14T10:00:00Z"}`,
			report(id),
		))

		require.NoError(t, err)
		assert.Equal(t, []int64{0, 1, 2}, sess.marked)
		require.Len(t, got, 1)
		assert.True(t, got[0].Snapshot().CourierID().IsEqual(id))
		require.NotNil(t, got[0].Snapshot().SpeedKmh())
		assert.InDelta(t, 12.0, *got[0].Snapshot().SpeedKmh(), 1e-9)
	})

	t.Run("should mark reports of unknown couriers", func(t *testing.T) {
		c := newConsumer(nil, "t", handlerFunc(func(context.Context, commands.UpdateLocationCommand) (geostore.RecordResult, error) {
			return geostore.RecordResult{}, errs.NewObjectNotFoundError("courier", "x")
		}), logger)
		sess := &fakeSession{ctx: context.Background()}

		err := (&groupHandler{c: c}).ConsumeClaim(sess, claimOf(report(kernel.NewUUID())))

		require.NoError(t, err)
		assert.Equal(t, []int64{0}, sess.marked)
	})

	t.Run("should stop without marking on downstream errors", func(t *testing.T) {
		boom := errors.New("history unavailable")
		c := newConsumer(nil, "t", handlerFunc(func(context.Context, commands.UpdateLocationCommand) (geostore.RecordResult, error) {
			return geostore.RecordResult{}, boom
		}), logger)
		sess := &fakeSession{ctx: context.Background()}

		err := (&groupHandler{c: c}).ConsumeClaim(sess, claimOf(report(kernel.NewUUID()), report(kernel.NewUUID())))

		require.ErrorIs(t, err, boom)
		assert.Empty(t, sess.marked)
	})
}

func TestNewConsumer_Unconfigured(t *testing.T) {
	c, err := NewConsumer(nil, "group", "topic", nil, slog.New(slog.DiscardHandler))

	require.NoError(t, err)
	assert.Nil(t, c)
	require.NoError(t, c.Run(context.Background()))
	require.NoError(t, c.Close())
}
