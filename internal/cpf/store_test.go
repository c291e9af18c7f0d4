package cpf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreEmpty(t *testing.T) {
	s := NewStore()
	assert.Nil(t, s.Get())
	assert.Nil(t, s.Find("starlette"))
	assert.Equal(t, -1.0, s.AgeSeconds())
}

func TestStoreFind(t *testing.T) {
	s := NewStore()
	s.Set(&Dataset{
		Source:    "test",
		FetchedAt: time.Now().Add(-time.Minute),
		Targets: []*Ephemeris{
			{TargetName: "starlette"},
			{TargetName: "lageos1"},
		},
	})

	require.NotNil(t, s.Find("lageos1"))
	assert.Equal(t, "starlette", s.Find("Starlette").TargetName)
	assert.Nil(t, s.Find("nosuch"))
	assert.Greater(t, s.AgeSeconds(), 59.0)
}

func TestStoreReplace(t *testing.T) {
	s := NewStore()
	s.Set(&Dataset{Targets: []*Ephemeris{{TargetName: "starlette"}}})
	s.Set(&Dataset{Targets: []*Ephemeris{{TargetName: "lageos1"}}})

	assert.Nil(t, s.Find("starlette"))
	assert.NotNil(t, s.Find("lageos1"))
}
