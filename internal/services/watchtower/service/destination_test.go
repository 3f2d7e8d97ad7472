package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perr "watchtower/internal/platform/errors"
	"watchtower/internal/services/watchtower/domain"
)

func TestLocateDestination_ReusesActiveAndArchived(t *testing.T) {
	r := newRig()
	r.ch.active = []domain.Thread{{ID: "a1", Name: "alice | " + steam}}
	r.ch.archived = []domain.Thread{{ID: "z9", Name: steam}}

	d, err := r.svc.LocateDestination(context.Background(), "alice | "+steam)
	require.NoError(t, err)
	assert.Equal(t, domain.Destination{ID: "a1", Name: "alice | " + steam}, d)

	d, err = r.svc.LocateDestination(context.Background(), steam)
	require.NoError(t, err)
	assert.Equal(t, "z9", d.ID)
	assert.False(t, d.Created)
	assert.Empty(t, r.ch.created)
}

func TestLocateDestination_NameMatchIsExact(t *testing.T) {
	r := newRig()
	r.ch.active = []domain.Thread{{ID: "a1", Name: "Alice"}}

	d, err := r.svc.LocateDestination(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, d.Created)
	assert.Equal(t, []string{"alice"}, r.ch.created)
}

func TestLocateDestination_ForumCreatesPost(t *testing.T) {
	r := newRig()
	d, err := r.svc.LocateDestination(context.Background(), steam)
	require.NoError(t, err)
	assert.True(t, d.Created)
	assert.Equal(t, steam, d.Name)
	assert.Empty(t, r.ch.contents(auditChannel), "forum posts carry their own starter")
}

func TestLocateDestination_TextFallsBackToStarter(t *testing.T) {
	r := newRig()
	r.ch.shape = domain.ShapeText
	r.ch.threadErr = errBoom

	d, err := r.svc.LocateDestination(context.Background(), steam)
	require.NoError(t, err)
	assert.True(t, d.Created)
	assert.Equal(t, []string{StarterText}, r.ch.contents(auditChannel))
}

func TestLocateDestination_UnsupportedShapeUsesStarter(t *testing.T) {
	r := newRig()
	r.ch.shape = domain.ShapeUnsupported

	_, err := r.svc.LocateDestination(context.Background(), steam)
	require.NoError(t, err)
	assert.Equal(t, []string{StarterText}, r.ch.contents(auditChannel))
}

func TestLocateDestination_AllStrategiesFail(t *testing.T) {
	r := newRig()
	r.ch.forumErr = errBoom
	r.ch.starterErr = errBoom

	_, err := r.svc.LocateDestination(context.Background(), steam)
	require.Error(t, err)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeUpstream))
}

func TestLocateDestination_LookupAndShapeErrors(t *testing.T) {
	r := newRig()
	r.ch.listErr = errBoom
	_, err := r.svc.LocateDestination(context.Background(), steam)
	require.Error(t, err)
	assert.Empty(t, r.ch.created, "a failed lookup never creates")

	r = newRig()
	r.ch.shapeErr = errBoom
	_, err = r.svc.LocateDestination(context.Background(), steam)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeUnavailable))

	_, err = r.svc.LocateDestination(context.Background(), "")
	assert.True(t, perr.IsCode(err, perr.ErrorCodeInvalidArgument))
}

func TestLocateDestination_ConcurrentSameNameCreatesOnce(t *testing.T) {
	r := newRig()
	// widen the window between lookup and create
	r.ch.listHook = func() { time.Sleep(5 * time.Millisecond) }

	var (
		wg  sync.WaitGroup
		ids = make([]string, 4)
	)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := r.svc.LocateDestination(context.Background(), steam)
			assert.NoError(t, err)
			ids[i] = d.ID
		}(i)
	}
	wg.Wait()

	assert.Equal(t, []string{steam}, r.ch.created)
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}
