package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"

	"ecgen/internal/ecgen"
)

type scenario struct {
	Name    string
	Command string // generate | count | points
	Args    []string
}

var defaultScenarios = []scenario{
	{Name: "count p=17 a=6 (analytic)", Command: "count", Args: []string{"--p", "17", "--a", "6"}},
	{Name: "count p=10009 a=3 (enumerate)", Command: "count", Args: []string{"--p", "10009", "--a", "3", "--counting", "enumerate"}},
	{Name: "count p=10009 a=3 (analytic)", Command: "count", Args: []string{"--p", "10009", "--a", "3", "--counting", "analytic"}},
	{Name: "points p=100049 a=3", Command: "points", Args: []string{"--p", "100049", "--a", "3"}},
	{Name: "generate 12 bits", Command: "generate", Args: []string{"--bits", "12", "--seed", "1", "--max-attempts", "50"}},
	{Name: "generate 16 bits", Command: "generate", Args: []string{"--bits", "16", "--seed", "1", "--max-attempts", "50"}},
}

type result struct {
	Duration time.Duration
	Report   *ecgen.Report // count, generate
	Points   int64         // points: affine points, O excluded
}

func runOnce(ctx context.Context, bin string, sc scenario, timeout time.Duration) (result, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	args := append([]string{sc.Command}, sc.Args...)
	if sc.Command != "points" {
		args = append(args, "--format", "json")
	}
	args = append(args, "--log-level", "error")

	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	t0 := time.Now()
	err := cmd.Run()
	dur := time.Since(t0)
	if ctx.Err() == context.DeadlineExceeded {
		return result{Duration: dur}, errors.Errorf("timeout: %s", sc.Name)
	}
	if err != nil {
		return result{Duration: dur}, errors.Wrapf(err, "%s failed\n%s", sc.Name, stderr.String())
	}

	res := result{Duration: dur}
	if sc.Command == "points" {
		res.Points, err = countPoints(&stdout)
	} else {
		res.Report, err = parseReport(stdout.Bytes())
	}
	return res, errors.Wrap(err, sc.Name)
}

func parseReport(b []byte) (*ecgen.Report, error) {
	var r ecgen.Report
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, errors.Wrapf(err, "parse json, raw=%s", b)
	}
	return &r, nil
}

// countPoints counts "x y" lines, leaving out the "-1 -1" sentinel for O.
func countPoints(r io.Reader) (int64, error) {
	var n int64
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line == "-1 -1" {
			continue
		}
		n++
	}
	return n, errors.Wrap(sc.Err(), "scan points")
}
