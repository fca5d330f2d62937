package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevecastle/recon3d/cache"
	"github.com/stevecastle/recon3d/pointcloud"
)

func TestSeedSurfaceAndList(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "r.db")
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, run(ctx, []string{"-db", db, "-name", "blob", "-surface", "dual_cluster", "-count", "300", "-seed", "7"}, &out))
	assert.Contains(t, out.String(), "sqlite:blob")

	out.Reset()
	require.NoError(t, run(ctx, []string{"-db", db, "-list"}, &out))
	assert.Contains(t, out.String(), "blob")
	assert.Contains(t, out.String(), "300")

	export := filepath.Join(dir, "blob.json")
	require.NoError(t, run(ctx, []string{"-db", db, "-name", "blob", "-export", export}, &out))
	pc, err := cache.LoadFile(export)
	require.NoError(t, err)
	assert.Equal(t, 300, pc.Len())

	require.NoError(t, run(ctx, []string{"-db", db, "-name", "blob", "-delete"}, &out))
	assert.Error(t, run(ctx, []string{"-db", db, "-name", "blob", "-delete"}, &out))
}

func TestSeedFromFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pcd")
	pc := pointcloud.New()
	pc.Append(r3.Vector{X: 1, Y: 2, Z: 3}, pointcloud.Color{G: 1})
	var buf bytes.Buffer
	require.NoError(t, pointcloud.WritePCD(pc, &buf, pointcloud.PCDAscii))
	require.NoError(t, os.WriteFile(in, buf.Bytes(), 0644))

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-db", filepath.Join(dir, "r.db"), "-name", "one", "-in", in}, &out))
	assert.Contains(t, out.String(), "stored one (1 points)")
}

func TestSeedUsageErrors(t *testing.T) {
	db := filepath.Join(t.TempDir(), "r.db")
	var out bytes.Buffer
	assert.Error(t, run(context.Background(), []string{"-db", db}, &out))
	assert.Error(t, run(context.Background(), []string{"-db", db, "-name", "x"}, &out))
	assert.Error(t, run(context.Background(), []string{"-db", db, "-name", "x", "-in", "a.pcd", "-surface", "sphere"}, &out))
	assert.Error(t, run(context.Background(), []string{"-db", db, "-name", "x", "-surface", "cube"}, &out))
}

func TestExportRejectsUnknownExtension(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "r.db")
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-db", db, "-name", "s", "-surface", "sphere", "-count", "10"}, &out))

	target := filepath.Join(dir, "s.txt")
	assert.Error(t, run(context.Background(), []string{"-db", db, "-name", "s", "-export", target}, &out))
	_, err := os.Stat(target)
	assert.True(t, os.IsNotExist(err))
}
