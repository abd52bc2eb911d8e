package main

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/CloudNativeWorks/hwlicense/hwlicense"
)

func TestDescribe(t *testing.T) {
	expired := &hwlicense.ExpiredError{ExpirationDate: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)}

	assert.Equal(t, "License expired on 2024-01-31.", describe(fmt.Errorf("validate: %w", expired)))
	assert.Equal(t, "License key not found.", describe(hwlicense.ErrLicenseNotFound))
	assert.Equal(t, "This key is bound to another machine.", describe(hwlicense.ErrHardwareMismatch))
	assert.Equal(t, "connection refused", describe(errors.New("connection refused")))
}
