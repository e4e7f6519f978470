package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegister(t *testing.T) {
	Register()
	Register()

	LinesTotal.WithLabelValues("vector", "ok").Inc()
	DecodeSteps.Observe(12)

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	found := map[string]bool{}
	for _, mf := range families {
		found[mf.GetName()] = true
	}
	for _, name := range []string{"img2aa_lines_total", "img2aa_decode_steps"} {
		if !found[name] {
			t.Errorf("Expected %s in the default registry", name)
		}
	}
}
