package observability

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

type alertRule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for"`
	Labels      map[string]string `yaml:"labels"`
	Annotations map[string]string `yaml:"annotations"`
}

type alertGroup struct {
	Name  string      `yaml:"name"`
	Rules []alertRule `yaml:"rules"`
}

type alertFile struct {
	Groups []alertGroup `yaml:"groups"`
}

func TestCampusAlertRules(t *testing.T) {
	path := filepath.Join("..", "..", "deploy", "prometheus", "alerts", "campus.yml")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read alert file: %v", err)
	}

	var rules alertFile
	if err := yaml.Unmarshal(data, &rules); err != nil {
		t.Fatalf("failed to unmarshal alert file: %v", err)
	}

	var group *alertGroup
	for i := range rules.Groups {
		if rules.Groups[i].Name == "campus" {
			group = &rules.Groups[i]
			break
		}
	}
	if group == nil {
		t.Fatal("campus alert group missing")
	}

	expected := map[string]struct {
		severity string
		metric   string
	}{
		"HighErrorRate":     {severity: "critical", metric: "campus_http_requests_total"},
		"ActionLogFailures": {severity: "warning", metric: "campus_action_log_failures_total"},
		"LoginThrottling":   {severity: "warning", metric: "campus_login_attempts_total"},
	}

	if len(group.Rules) != len(expected) {
		t.Fatalf("expected %d rules, got %d", len(expected), len(group.Rules))
	}

	for _, rule := range group.Rules {
		want, ok := expected[rule.Alert]
		if !ok {
			t.Fatalf("unexpected rule %q", rule.Alert)
		}
		if rule.Labels["severity"] != want.severity {
			t.Fatalf("rule %s severity mismatch: %s", rule.Alert, rule.Labels["severity"])
		}
		if !strings.Contains(rule.Expr, want.metric) {
			t.Fatalf("rule %s must reference %s", rule.Alert, want.metric)
		}
		if rule.Annotations["summary"] == "" || rule.Annotations["description"] == "" || rule.Annotations["runbook"] == "" {
			t.Fatalf("rule %s must include summary, description and runbook annotations", rule.Alert)
		}
		if rule.For == "" {
			t.Fatalf("rule %s must define a hold duration", rule.Alert)
		}
	}
}

func TestAlertRulesReferenceRegisteredMetrics(t *testing.T) {
	metrics := NewMetrics()
	families, err := metrics.registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, family := range families {
		names[family.GetName()] = true
	}
	for _, name := range []string{"campus_action_log_failures_total", "campus_login_attempts_total"} {
		if !names[name] {
			t.Fatalf("metric %s not registered", name)
		}
	}
}
