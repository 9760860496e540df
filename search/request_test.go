package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jonwraymond/fhirstore/cache"
	"github.com/jonwraymond/fhirstore/observe"
	"github.com/jonwraymond/fhirstore/resource"
)

func captureLogger() (observe.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return observe.NewZapLogger(zap.New(core)), logs
}

func TestRequest_Normalize(t *testing.T) {
	r := Request{ResourceType: " Observation ", Patient: " p1"}.Normalize()
	assert.Equal(t, "Observation", r.ResourceType)
	assert.Equal(t, "p1", r.Patient)
	assert.Equal(t, DefaultCount, r.Count)

	assert.Equal(t, 5, Request{Count: 5}.Normalize().Count)
}

func TestRequest_Predicate(t *testing.T) {
	doc := resource.MustParse(`{"subject":{"reference":"Patient/p1"},"category":[{"coding":[{"code":"lab"}]}]}`)

	assert.Nil(t, Request{ResourceType: "Observation"}.Predicate())
	assert.True(t, Request{Patient: "p1"}.Predicate()(doc))
	assert.True(t, Request{Patient: "p1", Category: "lab"}.Predicate()(doc))
	assert.False(t, Request{Patient: "p1", Category: "vital-signs"}.Predicate()(doc))
}

func TestRequest_SelfURL(t *testing.T) {
	tests := []struct {
		req  Request
		want string
	}{
		{Request{ResourceType: "Patient", Count: DefaultCount}, "/Patient"},
		{Request{ResourceType: "Observation", Patient: "p1", Category: "lab", Count: 5}, "/Observation?patient=p1&category=lab&_count=5"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.req.SelfURL())
	}
}

func TestRequest_ArgsRoundTrip(t *testing.T) {
	req := Request{ResourceType: "Observation", Patient: "p1", Category: "lab", Count: 7}
	assert.Equal(t, req, requestFromArgs(req.args()))

	k := cache.NewDefaultKeyer()
	a, _ := k.Key("search", req.args())
	b, _ := k.Key("search", cache.Kw(map[string]any{"count": 7, "category": "lab", "patient": "p1", "type": "Observation"}))
	assert.Equal(t, a, b)
}
