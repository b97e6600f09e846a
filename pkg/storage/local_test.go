package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestLocalSaveExistsOpen(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := NewLocal(fs, "artifacts", zerolog.New(io.Discard))
	require.NoError(t, err)
	ctx := context.Background()

	ref, err := store.Save(ctx, "attendance_report_1.pdf", strings.NewReader("%PDF-1.4 fake"))
	require.NoError(t, err)
	require.Equal(t, "artifacts/attendance_report_1.pdf", ref)

	exists, err := store.Exists(ctx, ref)
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = store.Exists(ctx, "artifacts/missing.pdf")
	require.NoError(t, err)
	require.False(t, exists)

	reader, err := store.Open(ctx, ref)
	require.NoError(t, err)
	defer reader.Close()

	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4 fake", string(content))
}

func TestLocalSaveStripsDirectoryTraversal(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := NewLocal(fs, "artifacts", zerolog.New(io.Discard))
	require.NoError(t, err)

	ref, err := store.Save(context.Background(), "../../etc/report.pdf", strings.NewReader("data"))
	require.NoError(t, err)
	require.Equal(t, "artifacts/report.pdf", ref)
}

func TestLocalSaveOverwrites(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := NewLocal(fs, "artifacts", zerolog.New(io.Discard))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Save(ctx, "report.pdf", strings.NewReader("first"))
	require.NoError(t, err)
	ref, err := store.Save(ctx, "report.pdf", strings.NewReader("second"))
	require.NoError(t, err)

	reader, err := store.Open(ctx, ref)
	require.NoError(t, err)
	defer reader.Close()

	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.Equal(t, "second", string(content))
}
