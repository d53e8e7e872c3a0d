package incident_test

import (
	"testing"
	"time"

	"github.com/gdumair1-a11y/EchoSave/internal/analysis"
	"github.com/gdumair1-a11y/EchoSave/internal/incident"
	"github.com/stretchr/testify/require"
)

func TestArchive_RoundTrip(t *testing.T) {
	t.Parallel()

	arch := incident.NewArchive(t.TempDir())

	inc := &incident.Incident{
		ID:              "4e6d1c2a-archived",
		CreatedAt:       time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		DurationSeconds: 300,
		Audio:           []byte{1, 2, 3, 4},
	}

	require.NoError(t, arch.Write(inc))

	loaded, err := arch.Read(inc.ID)
	require.NoError(t, err)
	require.Equal(t, inc.ID, loaded.ID)
	require.True(t, inc.CreatedAt.Equal(loaded.CreatedAt))
	require.Equal(t, 300, loaded.DurationSeconds)
	require.Equal(t, []byte{1, 2, 3, 4}, loaded.Audio)
	require.Nil(t, loaded.Analysis)
}

func TestArchive_RewritePersistsAnalysis(t *testing.T) {
	t.Parallel()

	arch := incident.NewArchive(t.TempDir())

	inc := &incident.Incident{ID: "with-analysis", Audio: []byte{9}}
	require.NoError(t, arch.Write(inc))

	inc.Analysis = &analysis.Result{
		Summary:     "shouting nearby",
		ThreatLevel: analysis.ThreatHigh,
	}
	require.NoError(t, arch.Write(inc))

	loaded, err := arch.Read(inc.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Analysis)
	require.Equal(t, analysis.ThreatHigh, loaded.Analysis.ThreatLevel)
}

func TestArchive_IDs(t *testing.T) {
	t.Parallel()

	arch := incident.NewArchive(t.TempDir())

	require.NoError(t, arch.Write(&incident.Incident{ID: "a", Audio: []byte{1}}))
	require.NoError(t, arch.Write(&incident.Incident{ID: "b", Audio: []byte{2}}))

	ids, err := arch.IDs()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "b"}, ids)
}

func TestArchive_RemoveIdempotent(t *testing.T) {
	t.Parallel()

	arch := incident.NewArchive(t.TempDir())

	require.NoError(t, arch.Write(&incident.Incident{ID: "gone", Audio: []byte{1}}))
	require.NoError(t, arch.Remove("gone"))
	require.NoError(t, arch.Remove("gone"))

	ids, err := arch.IDs()
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestArchive_ReadMissing(t *testing.T) {
	t.Parallel()

	arch := incident.NewArchive(t.TempDir())

	_, err := arch.Read("nope")
	require.Error(t, err)
}
