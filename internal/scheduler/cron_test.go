package scheduler

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPruner struct {
	calls  int
	maxAge time.Duration
}

func (p *countingPruner) PruneStale(_ context.Context, maxAge time.Duration) (int, error) {
	p.calls++
	p.maxAge = maxAge
	return 2, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	s := NewScheduler(nil, nil, &countingPruner{}, "not a schedule", time.Hour, quietLogger())
	assert.Error(t, s.Start())
}

func TestStartRegistersJobs(t *testing.T) {
	s := NewScheduler(nil, nil, &countingPruner{}, "0 3 * * *", time.Hour, quietLogger())
	require.NoError(t, s.Start())
	defer s.Stop()
	assert.Len(t, s.cron.Entries(), 3)
}

func TestLedgerPruneUsesStaleAge(t *testing.T) {
	pruner := &countingPruner{}
	s := NewScheduler(nil, nil, pruner, "0 3 * * *", 2*time.Hour, quietLogger())
	s.runLedgerPrune()
	assert.Equal(t, 1, pruner.calls)
	assert.Equal(t, 2*time.Hour, pruner.maxAge)
}
