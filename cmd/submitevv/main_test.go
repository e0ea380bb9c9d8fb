package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAgencyFailure(t *testing.T) {
	msg := agencyFailure("sunrise", errors.New("bucket unreachable"))
	assert.Equal(t, "EVV submission failed for agency sunrise: bucket unreachable", msg)
}

func TestAgencySummary(t *testing.T) {
	msg := agencySummary("sunrise", 12, "careloop-evv-archive")
	assert.Equal(t, "agency sunrise: submitted 12 EVV records to s3://careloop-evv-archive", msg)
}
