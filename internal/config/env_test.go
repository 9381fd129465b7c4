package config

import (
	"testing"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("TEST_DOCKBAR_VAR", "test_value")
	t.Setenv("TEST_DOCKBAR_FONT", "GoMono")
	t.Setenv("TEST_DOCKBAR_PATH", "/home/user/.config")
	t.Setenv("TEST_DOCKBAR_EMPTY", "")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "no variables",
			input:    "plain text without variables",
			expected: "plain text without variables",
		},
		{
			name:     "simple ${VAR} format",
			input:    "prefix ${TEST_DOCKBAR_VAR} suffix",
			expected: "prefix test_value suffix",
		},
		{
			name:     "simple $VAR format",
			input:    "prefix $TEST_DOCKBAR_VAR suffix",
			expected: "prefix test_value suffix",
		},
		{
			name:     "unset variable becomes empty",
			input:    "prefix ${UNSET_VAR_12345} suffix",
			expected: "prefix  suffix",
		},
		{
			name:     "unset variable with default",
			input:    "prefix ${UNSET_VAR_12345:-default_value} suffix",
			expected: "prefix default_value suffix",
		},
		{
			name:     "empty variable uses default",
			input:    "${TEST_DOCKBAR_EMPTY:-fallback}",
			expected: "fallback",
		},
		{
			name:     "set variable ignores default",
			input:    "font: ${TEST_DOCKBAR_FONT:-fallback}",
			expected: "font: GoMono",
		},
		{
			name:     "adjacent variables",
			input:    "${TEST_DOCKBAR_PATH}/${TEST_DOCKBAR_VAR}",
			expected: "/home/user/.config/test_value",
		},
		{
			name:     "default with colon",
			input:    "${UNSET:-value:with:colons}",
			expected: "value:with:colons",
		},
		{
			name:     "escaped dollar",
			input:    "echo $$HOME costs $$5",
			expected: "echo $HOME costs $5",
		},
		{
			name:     "escaped next to variable",
			input:    "$$$TEST_DOCKBAR_VAR",
			expected: "$test_value",
		},
		{
			name:     "variable cannot start with number",
			input:    "$123VAR",
			expected: "$123VAR",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ExpandEnv(tt.input)
			if result != tt.expected {
				t.Errorf("ExpandEnv(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestParsersExpandEnv(t *testing.T) {
	t.Setenv("TEST_DOCKBAR_LOG", "/var/log/syslog")

	p, err := NewParser()
	if err != nil {
		t.Fatalf("NewParser failed: %v", err)
	}
	defer p.Close()

	inputs := map[string]string{
		"yaml": "widgets:\n  - type: file\n    path: ${TEST_DOCKBAR_LOG}\n",
		"lua":  "bar.config = {}\nbar.widgets = { { type = 'file', path = '${TEST_DOCKBAR_LOG}' } }\n",
	}
	for name, content := range inputs {
		cfg, err := p.Parse([]byte(content))
		if err != nil {
			t.Fatalf("%s: Parse failed: %v", name, err)
		}
		if got := cfg.Widgets[0].Path; got != "/var/log/syslog" {
			t.Errorf("%s: path = %q", name, got)
		}
	}
}
