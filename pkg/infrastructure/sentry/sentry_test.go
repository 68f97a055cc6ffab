package sentry

import (
	"errors"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
)

func TestInit_NoDSNIsNoop(t *testing.T) {
	assert.NoError(t, Init(Config{}, nil))
}

func TestScrubEvent(t *testing.T) {
	event := &sentry.Event{Request: &sentry.Request{
		Headers: map[string]string{"Authorization": "Bearer x", "Cookie": "c", "Accept": "*/*"},
		Data:    "Company Name,Email\nAcme,a@acme.test",
	}}

	got := scrubEvent(event, nil)

	assert.Equal(t, map[string]string{"Accept": "*/*"}, got.Request.Headers)
	assert.Empty(t, got.Request.Data)
}

func TestCaptureUploadFailure_NilErrorIgnored(t *testing.T) {
	assert.NotPanics(t, func() {
		CaptureUploadFailure(nil, nil, nil, nil)
		CaptureUploadFailure(errors.New("boom"), map[string]string{"run_id": "r"}, nil, nil)
	})
}
