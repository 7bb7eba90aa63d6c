package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoute(t *testing.T) {
	cases := map[string]string{
		"":                   "/",
		"/":                  "/",
		"/static/style.css":  "/static/*",
		"/dashboard":         "/dashboard",
		"/videos/export.csv": "/videos/export.csv",
		"/wp-login.php":      "other",
		"/dashboard/extra":   "other",
	}
	for path, want := range cases {
		assert.Equal(t, want, Route(path), path)
	}
}

func TestRegisterSessionGaugeTwice(t *testing.T) {
	assert.NotPanics(t, func() {
		RegisterSessionGauge(func() float64 { return 1 })
		RegisterSessionGauge(func() float64 { return 2 })
	})
}
