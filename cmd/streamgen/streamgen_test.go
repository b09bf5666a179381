// Copyright 2026 streamgen Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestGenerateModuleAndBench(t *testing.T) {
	dir := t.TempDir()
	mod := filepath.Join(dir, "wht.v")
	tb := filepath.Join(dir, "wht_tb.v")

	_, err := run(t,
		"generate", "--transform", "wht", "--n", "3", "--k", "1",
		"--type", "fixed:16.8", "--verify",
		"--out", mod, "--testbench", tb)
	require.NoError(t, err)

	src, err := os.ReadFile(mod)
	require.NoError(t, err)
	assert.Contains(t, string(src), "module wht8_w2 (")
	assert.Contains(t, string(src), "always @(posedge clk)")

	bench, err := os.ReadFile(tb)
	require.NoError(t, err)
	assert.Contains(t, string(bench), "module wht8_w2_tb;")
	assert.Contains(t, string(bench), "wht8_w2 dut (")
}

func TestGenerateToStdout(t *testing.T) {
	out, err := run(t,
		"generate", "--transform", "dft", "--n", "3", "--radix", "2", "--k", "2",
		"--type", "complex:float64", "--name", "fft8")
	require.NoError(t, err)
	assert.Contains(t, out, "module fft8 (")
	assert.Contains(t, out, "x0_im")
}

func TestGenerateRejectsBadConfig(t *testing.T) {
	_, err := run(t, "generate", "--transform", "fht", "--n", "3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown transform")

	_, err = run(t, "generate", "--transform", "dft", "--n", "3", "--k", "2",
		"--type", "fixed:16.8")
	require.Error(t, err)

	_, err = run(t, "generate", "--transform", "itpease", "--n", "4", "--k", "2",
		"--control", "single")
	require.Error(t, err)
}

func TestInfoSchedule(t *testing.T) {
	out, err := run(t, "info", "--transform", "itpease", "--n", "4", "--k", "2",
		"--control", "dual")
	require.NoError(t, err)
	assert.Contains(t, out, "Itpease")
	assert.Contains(t, out, "period:  4 cycles")
	assert.Contains(t, out, "min gap: 16 cycles")
}

func TestBatchArchive(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "wht.zip")

	msg, err := run(t,
		"batch", "--transform", "wht", "--n", "4", "--widths", "1,2",
		"--type", "fixed:16.8", "--testbench", "--out", out)
	require.NoError(t, err)
	assert.Contains(t, msg, "wrote 4 files")

	zr, err := zip.OpenReader(out)
	require.NoError(t, err)
	defer zr.Close()

	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	for _, want := range []string{"wht16_w2.v", "wht16_w2_tb.v", "wht16_w4.v", "wht16_w4_tb.v"} {
		assert.True(t, names[want], "archive missing %s", want)
	}
}
