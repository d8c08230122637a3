package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	ri "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GreenNest/internal/wizard"
)

type fakeKV struct {
	data map[string]string
	ttl  map[string]time.Duration
	err  error
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (f *fakeKV) Get(ctx context.Context, key string) *ri.StringCmd {
	if f.err != nil {
		return ri.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return ri.NewStringResult("", ri.Nil)
	}
	return ri.NewStringResult(v, nil)
}

func (f *fakeKV) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *ri.StatusCmd {
	if f.err != nil {
		return ri.NewStatusResult("", f.err)
	}
	f.data[key] = string(value.([]byte))
	f.ttl[key] = expiration
	return ri.NewStatusResult("OK", nil)
}

func (f *fakeKV) Del(ctx context.Context, keys ...string) *ri.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return ri.NewIntResult(n, nil)
}

func TestRedisPersister_RoundTrip(t *testing.T) {
	kv := newFakeKV()
	p := NewRedisPersister(kv, "signup-storage", time.Hour)
	ctx := context.Background()

	_, ok, err := p.Load(ctx, "w1")
	require.NoError(t, err)
	assert.False(t, ok)

	state := wizard.DefaultPersistent()
	state.CurrentStep = 2
	state.Step1 = wizard.Step1Data{AgreeTerms: true, AgreePrivacy: true}
	state.StepValid[1] = true
	state.Step3.Image = &wizard.ImageFile{Filename: "a.png", Data: []byte{1}}
	require.NoError(t, p.Save(ctx, "w1", state))

	assert.Contains(t, kv.data, "gnst:wizard:signup-storage:w1")
	assert.Equal(t, time.Hour, kv.ttl["gnst:wizard:signup-storage:w1"])

	got, ok, err := p.Load(ctx, "w1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, got.CurrentStep)
	assert.True(t, got.StepValid[1])
	assert.Nil(t, got.Step3.Image)

	require.NoError(t, p.Delete(ctx, "w1"))
	_, ok, err = p.Load(ctx, "w1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisPersister_CorruptDraft(t *testing.T) {
	kv := newFakeKV()
	kv.data["gnst:wizard:signup-storage:w1"] = "{not json"
	p := NewRedisPersister(kv, "signup-storage", time.Hour)

	_, ok, err := p.Load(context.Background(), "w1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisPersister_BackendError(t *testing.T) {
	kv := newFakeKV()
	kv.err = errors.New("connection refused")
	p := NewRedisPersister(kv, "signup-storage", time.Hour)

	_, _, err := p.Load(context.Background(), "w1")
	assert.Error(t, err)
	assert.Error(t, p.Save(context.Background(), "w1", wizard.DefaultPersistent()))
}

func TestRedisPersister_ReloadKeepsPersistentOnly(t *testing.T) {
	kv := newFakeKV()
	p := NewRedisPersister(kv, "signup-storage", time.Hour)
	ctx := context.Background()

	s, err := wizard.Open(ctx, "w2", p)
	require.NoError(t, err)
	agree := true
	s.SetStep1(wizard.Step1Patch{AgreeTerms: &agree})
	s.SetError("boom")
	require.NoError(t, s.Save(ctx))

	reloaded, err := wizard.Open(ctx, "w2", p)
	require.NoError(t, err)
	assert.True(t, reloaded.Step1().AgreeTerms)
	assert.Empty(t, reloaded.Session().Error)
}
