package service

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHostStatus(t *testing.T) {
	s := &ServerService{}
	status := s.GetHostStatus()
	require.NotNil(t, status)
	assert.NotEmpty(t, status.Version)
	assert.Positive(t, status.CPUCores)
}

func TestGetProcessUsage(t *testing.T) {
	s := &ServerService{}
	assert.Nil(t, s.GetProcessUsage(0))

	usage := s.GetProcessUsage(os.Getpid())
	require.NotNil(t, usage)
	assert.Positive(t, usage.MemoryRSS)
}
