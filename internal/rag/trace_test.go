package rag

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRoundMs(t *testing.T) {
	require.Equal(t, 0.0, roundMs(0))
	require.Equal(t, 1.5, roundMs(1500*time.Microsecond))
	require.Equal(t, 0.12, roundMs(123456*time.Nanosecond))
	require.Equal(t, 1000.0, roundMs(time.Second))
}

func TestTraceAdd(t *testing.T) {
	trace := &Trace{}
	trace.Add("Embed question", 2*time.Millisecond, "model=m")
	require.Len(t, trace.Steps, 1)
	require.Equal(t, "Embed question", trace.Steps[0].Name)
	require.Equal(t, 2.0, trace.Steps[0].Ms)
	require.Equal(t, "model=m", trace.Steps[0].Detail)
}
