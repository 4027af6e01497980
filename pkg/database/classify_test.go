package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/VPRamon/TSI-sub000/pkg/config"
	appErrors "github.com/VPRamon/TSI-sub000/pkg/errors"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		kind      appErrors.Kind
		retryable bool
	}{
		{"no rows", sql.ErrNoRows, appErrors.KindNotFound, false},
		{"bad conn", fmt.Errorf("exec: %w", driver.ErrBadConn), appErrors.KindConnection, true},
		{"deadline", context.DeadlineExceeded, appErrors.KindConnection, true},
		{"admin shutdown", &pq.Error{Code: "57P01"}, appErrors.KindConnection, true},
		{"connection failure", &pq.Error{Code: "08006"}, appErrors.KindConnection, true},
		{"serialization", &pq.Error{Code: "40001"}, appErrors.KindConnection, true},
		{"unique violation", &pq.Error{Code: "23505"}, appErrors.KindQuery, false},
		{"syntax", &pq.Error{Code: "42601"}, appErrors.KindQuery, false},
		{"other", errors.New("boom"), appErrors.KindQuery, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.err)
			assert.Equal(t, tc.kind, appErrors.KindOf(got))
			assert.Equal(t, tc.retryable, appErrors.IsRetryable(got))
			assert.ErrorIs(t, got, tc.err)
		})
	}
}

func TestClassifyKeepsApplicationErrors(t *testing.T) {
	err := appErrors.Clone(appErrors.ErrScheduleNotFound, "schedule 7 not found")
	assert.Same(t, err, Classify(err))
	assert.Nil(t, Classify(nil))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
}

func TestDSN(t *testing.T) {
	cfg := config.DatabaseConfig{Host: "db", Port: 5432, User: "tsi", Password: "secret", Name: "tsi", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=tsi password=secret dbname=tsi sslmode=disable", DSN(cfg))
}
