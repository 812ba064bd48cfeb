package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryPreservesOrderAndCopies(t *testing.T) {
	registry := NewRegistry()
	jobA := &stubJob{name: "a"}
	jobB := &stubJob{name: "b"}
	require.NoError(t, registry.Register(jobA))
	require.NoError(t, registry.Register(jobB))

	jobs := registry.Jobs()
	require.Len(t, jobs, 2)
	assert.Same(t, jobA, jobs[0])
	assert.Same(t, jobB, jobs[1])

	jobs[0] = nil
	assert.NotNil(t, registry.Jobs()[0], "internal slice leaked")
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	registry := NewRegistry(&stubJob{name: "attribution-refresh"}, nil, &stubJob{name: "attribution-refresh"})
	assert.Len(t, registry.Jobs(), 1)
	assert.Error(t, registry.Register(&stubJob{name: "attribution-refresh"}))
	assert.NoError(t, registry.Register(nil))
}

func TestRegistryLookup(t *testing.T) {
	var registry Registry
	job := &stubJob{name: "attribution-refresh"}
	require.NoError(t, registry.Register(job))

	got, ok := registry.Lookup("attribution-refresh")
	require.True(t, ok)
	assert.Same(t, job, got)

	_, ok = registry.Lookup("missing")
	assert.False(t, ok)
}
