package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/dispatch-backend-go/internal/models"
	"github.com/jengzang/dispatch-backend-go/internal/service"
)

func TestReportCreated(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	speed := 4.0
	outcome := &service.ArchiveOutcome{
		Status: service.ArchiveCreated,
		Archive: &models.TrajectoryArchive{
			TaskID:     42,
			AgentID:    3,
			PointCount: 4,
			PathLength: 720,
			AvgSpeed:   &speed,
			StartTime:  start,
			EndTime:    start.Add(3 * time.Minute),
		},
	}

	var out bytes.Buffer
	require.NoError(t, report(&out, outcome))

	text := out.String()
	assert.Contains(t, text, "archive created")
	assert.Contains(t, text, "720.0 m")
	assert.Contains(t, text, "4.00 m/s")
	assert.Contains(t, text, "3m0s")
}

func TestReportNoLocations(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, report(&out, &service.ArchiveOutcome{Status: service.ArchiveNoLocations}))
	assert.Equal(t, "no locations recorded for this task\n", out.String())
}

func TestReportAlreadyExistsWithoutSpeed(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, report(&out, &service.ArchiveOutcome{
		Status:  service.ArchiveAlreadyExists,
		Archive: &models.TrajectoryArchive{TaskID: 1, AgentID: 1, PointCount: 1},
	}))
	assert.Contains(t, out.String(), "archive already exists")
	assert.Regexp(t, `avg speed\s+-\n`, out.String())
}
