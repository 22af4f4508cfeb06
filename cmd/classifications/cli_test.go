package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/FrenchMajesty/descriptor-classifier/internal/config"
	"github.com/FrenchMajesty/descriptor-classifier/pkg/descriptor"
	"github.com/FrenchMajesty/descriptor-classifier/pkg/vector"
)

type fakeIndex struct {
	vectors map[string]vector.Array
	closed  int
}

func (f *fakeIndex) Elements(uids ...string) []descriptor.Element {
	out := make([]descriptor.Element, len(uids))
	for i, uid := range uids {
		e := descriptor.NewMemoryElement("fake", uid)
		if v, ok := f.vectors[uid]; ok {
			e.SetVector(v)
		}
		out[i] = e
	}
	return out
}

func (f *fakeIndex) GetManyVectors(ctx context.Context, elems []descriptor.Element) ([]*vector.Array, error) {
	return descriptor.GetManyVectors(ctx, elems)
}

func (f *fakeIndex) SetVector(ctx context.Context, uid string, v vector.Array) error {
	f.vectors[uid] = v
	return nil
}

func (f *fakeIndex) Close() error {
	f.closed++
	return nil
}

func useFakeIndex(t *testing.T, vectors map[string]vector.Array) *fakeIndex {
	t.Helper()
	ix := &fakeIndex{vectors: vectors}
	original := openIndex
	t.Cleanup(func() { openIndex = original })
	openIndex = func(cfg config.PineconeConfig, log *zerolog.Logger) (vectorIndex, error) {
		return ix, nil
	}
	return ix
}

// fileStoreConfig writes a config storing classifications under a temp dir
func fileStoreConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "classification:\n  type: file\n  config:\n    dir: " + filepath.Join(dir, "store") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// sqliteStoreConfig writes a config storing classifications in a temp database
func sqliteStoreConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "classification:\n  type: sqlite\n  config:\n    path: " + filepath.Join(dir, "store.db") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := executeWithLogs(t, args...)
	return out, err
}

func executeWithLogs(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	out := &bytes.Buffer{}
	logs := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(logs)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), logs.String(), err
}

func TestVersionCommandOutputsBuildInfo(t *testing.T) {
	originalVersion, originalCommit, originalDate := version, commit, date
	t.Cleanup(func() {
		version, commit, date = originalVersion, originalCommit, originalDate
	})

	version = "1.2.3"
	commit = "abcdef1"
	date = "2026-10-19"

	output, err := execute(t, "version")
	require.NoError(t, err)
	require.Contains(t, output, "1.2.3")
	require.Contains(t, output, "abcdef1")
	require.Contains(t, output, "2026-10-19")
}

func TestImplsCommandListsBackends(t *testing.T) {
	output, err := execute(t, "impls")
	require.NoError(t, err)

	names := strings.Fields(output)
	require.Contains(t, names, "memory")
	require.Contains(t, names, "file")
	require.Contains(t, names, "sqlite")
}

func TestImplsCommandDefaults(t *testing.T) {
	output, err := execute(t, "impls", "--defaults")
	require.NoError(t, err)
	require.Contains(t, output, "type: sqlite")
	require.Contains(t, output, "dir: ./classifications")
	require.NotContains(t, output, "uuid")
}

func TestSetThenShow(t *testing.T) {
	cfg := fileStoreConfig(t)

	_, err := execute(t, "--config", cfg, "set", "Sentiment", "abc", "pos=0.8", "neg=0.2")
	require.NoError(t, err)

	output, err := execute(t, "--config", cfg, "show", "--json", "Sentiment", "abc")
	require.NoError(t, err)

	var view struct {
		TypeName       string             `json:"type_name"`
		UID            string             `json:"uuid"`
		MaxLabel       string             `json:"max_label"`
		Classification map[string]float64 `json:"classification"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &view))
	require.Equal(t, "Sentiment", view.TypeName)
	require.Equal(t, "abc", view.UID)
	require.Equal(t, "pos", view.MaxLabel)
	require.Equal(t, map[string]float64{"pos": 0.8, "neg": 0.2}, view.Classification)
}

func TestSetReplacesUnlessMerge(t *testing.T) {
	cfg := fileStoreConfig(t)

	_, err := execute(t, "--config", cfg, "set", "Topic", "x", "a=0.5", "b=0.5")
	require.NoError(t, err)

	_, err = execute(t, "--config", cfg, "set", "--merge", "Topic", "x", "b=0.9")
	require.NoError(t, err)
	output, err := execute(t, "--config", cfg, "show", "Topic", "x")
	require.NoError(t, err)
	require.Contains(t, output, "a")
	require.Contains(t, output, "0.9000")

	_, err = execute(t, "--config", cfg, "set", "Topic", "x", "c=1")
	require.NoError(t, err)
	output, err = execute(t, "--config", cfg, "show", "--json", "Topic", "x")
	require.NoError(t, err)
	require.Contains(t, output, `"c": 1`)
	require.NotContains(t, output, `"a"`)
}

func TestSetRejectsBadPairs(t *testing.T) {
	cfg := fileStoreConfig(t)

	for _, pair := range []string{"novalue", "=0.5", "a=high", "a=1.5"} {
		_, err := execute(t, "--config", cfg, "set", "Topic", "x", pair)
		require.Error(t, err, pair)
	}
}

func TestShowMissing(t *testing.T) {
	cfg := fileStoreConfig(t)

	_, err := execute(t, "--config", cfg, "show", "Topic", "absent")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Topic/absent")
}

func TestVectorsCommand(t *testing.T) {
	ix := useFakeIndex(t, map[string]vector.Array{"a": vector.New(1, 0)})

	_, err := execute(t, "vectors", "--put", "1.5, 2", "b")
	require.NoError(t, err)
	require.True(t, ix.vectors["b"].Equal(vector.New(1.5, 2)))

	output, err := execute(t, "vectors", "a", "b", "c")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(output), "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[0], "a\t"))
	require.Equal(t, "c\t<missing>", lines[2])
	require.Equal(t, 2, ix.closed)

	_, err = execute(t, "vectors", "--put", "1,2", "a", "b")
	require.Error(t, err)
}

func TestClassifyCommand(t *testing.T) {
	useFakeIndex(t, map[string]vector.Array{
		"up":    vector.New(0, 1),
		"right": vector.New(1, 0),
	})
	cfg := fileStoreConfig(t)

	centroids := filepath.Join(t.TempDir(), "centroids.csv")
	require.NoError(t, os.WriteFile(centroids, []byte("label,x,y\nnorth,0,1\neast,1,0\n"), 0o644))

	output, err := execute(t, "--config", cfg, "classify", "--centroids", centroids, "up", "right")
	require.NoError(t, err)
	require.Contains(t, output, "up")
	require.Contains(t, output, "north")
	require.Contains(t, output, "east")

	output, err = execute(t, "--config", cfg, "show", "--json", "Centroid", "right")
	require.NoError(t, err)
	require.Contains(t, output, `"max_label": "east"`)

	_, err = execute(t, "--config", cfg, "classify", "--centroids", centroids, "up", "nowhere")
	require.ErrorContains(t, err, "no vector stored")
}

func TestClassifyFailureClosesIndex(t *testing.T) {
	ix := useFakeIndex(t, map[string]vector.Array{"up": vector.New(0, 1)})
	cfg := fileStoreConfig(t)

	centroids := filepath.Join(t.TempDir(), "centroids.csv")
	require.NoError(t, os.WriteFile(centroids, []byte("north,0,1\n"), 0o644))

	_, logs, err := executeWithLogs(t, "--config", cfg, "classify", "--centroids", centroids, "up", "nowhere")
	require.ErrorContains(t, err, "no vector stored")
	require.Equal(t, 1, ix.closed)
	require.Contains(t, logs, "classification failed")
	require.Contains(t, logs, `"command":"classify"`)
}

func TestUnsetAndCount(t *testing.T) {
	cfg := sqliteStoreConfig(t)

	for _, uid := range []string{"a", "b"} {
		_, err := execute(t, "--config", cfg, "set", "Topic", uid, "x=1")
		require.NoError(t, err)
	}

	output, err := execute(t, "--config", cfg, "count")
	require.NoError(t, err)
	require.Equal(t, "2", strings.TrimSpace(output))

	_, err = execute(t, "--config", cfg, "unset", "Topic", "a")
	require.NoError(t, err)

	output, err = execute(t, "--config", cfg, "count")
	require.NoError(t, err)
	require.Equal(t, "1", strings.TrimSpace(output))

	_, err = execute(t, "--config", cfg, "show", "Topic", "a")
	require.Error(t, err)
}

func TestUnsetFileStore(t *testing.T) {
	cfg := fileStoreConfig(t)

	_, err := execute(t, "--config", cfg, "set", "Topic", "a", "x=1")
	require.NoError(t, err)
	_, err = execute(t, "--config", cfg, "unset", "Topic", "a")
	require.NoError(t, err)
	_, err = execute(t, "--config", cfg, "show", "Topic", "a")
	require.Error(t, err)

	_, err = execute(t, "--config", cfg, "count")
	require.ErrorContains(t, err, "cannot count")
}
