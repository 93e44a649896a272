package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecgen/internal/ecgen"
)

func TestCountPoints(t *testing.T) {
	n, err := countPoints(strings.NewReader("-1 -1\n0 0\n2 0\n3 0\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = countPoints(strings.NewReader(""))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestParseReport(t *testing.T) {
	r, err := parseReport([]byte(`{"command":"count","p":"17","a":"6","groupOrder":"10","counting":"analytic","hasseLow":"10","hasseHigh":"26","cyclic":true}`))
	require.NoError(t, err)
	assert.Equal(t, "10", r.GroupOrder)
	assert.True(t, r.Cyclic)

	_, err = parseReport([]byte("Curve: y^2"))
	assert.Error(t, err)
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "points=9", summary(result{Points: 9}))
	rep := &ecgen.Report{P: "17", A: "6", GroupOrder: "10", Counting: "analytic", Attempts: 3}
	assert.Equal(t, "p=17 a=6 order=10 counting=analytic attempts=3", summary(result{Report: rep, Duration: time.Millisecond}))
}

func TestScenarioCommands(t *testing.T) {
	for _, sc := range defaultScenarios {
		assert.Contains(t, []string{"generate", "count", "points"}, sc.Command, sc.Name)
	}
}
