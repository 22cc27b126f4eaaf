package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPendingRecordDefaults(t *testing.T) {
	t.Parallel()

	rec := NewPendingRecord("r1", "", "", "  ")
	assert.Equal(t, "r1", rec.ID)
	assert.Equal(t, "Unknown", rec.AppName)
	assert.Equal(t, "", rec.Text)
	assert.Equal(t, "0", rec.Rating)
	assert.Equal(t, StatusPending, rec.Status)
	assert.Nil(t, rec.Sentiment)

	rec = NewPendingRecord("r2", "X", "great app", "5")
	assert.Equal(t, "X", rec.AppName)
	assert.Equal(t, "great app", rec.Text)
	assert.Equal(t, "5", rec.Rating)
}

func TestResolveID(t *testing.T) {
	t.Parallel()

	gen := func() string { return "generated" }
	assert.Equal(t, "abc", ResolveID("  abc ", gen))
	assert.Equal(t, "generated", ResolveID("", gen))
	assert.Equal(t, "generated", ResolveID(" \t", gen))
}

func TestStatusTransitions(t *testing.T) {
	t.Parallel()

	assert.True(t, StatusPending.CanTransitionTo(StatusCompleted))
	assert.False(t, StatusCompleted.CanTransitionTo(StatusPending))
	assert.False(t, StatusCompleted.CanTransitionTo(StatusCompleted))
	assert.False(t, StatusPending.CanTransitionTo(StatusPending))
	assert.True(t, StatusCompleted.Terminal())

	s, err := ParseStatus("completed")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, s)
	_, err = ParseStatus("DONE")
	assert.Error(t, err)
}

func TestRecordCompleteIsMonotonic(t *testing.T) {
	t.Parallel()

	rec := NewPendingRecord("r1", "X", "great", "5")
	s, err := NewSentiment("POSITIVE", 0.9, 0.02, 0.05, 0.03)
	require.NoError(t, err)

	require.NoError(t, rec.Complete(s))
	assert.Equal(t, StatusCompleted, rec.Status)
	require.NotNil(t, rec.Sentiment)
	assert.Equal(t, LabelPositive, rec.Sentiment.Label)

	assert.ErrorIs(t, rec.Complete(s), ErrAlreadyCompleted)
	assert.Equal(t, StatusCompleted, rec.Status)
}

func TestNewScoresNormalizes(t *testing.T) {
	t.Parallel()

	cases := [][4]float64{
		{0.9, 0.02, 0.05, 0.03},
		{1, 1, 1, 1},
		{0.3, 0.3, 0.3, 0.3},
		{0, 0, 0.0001, 0},
		{12, 0, 3, 5},
	}
	for _, c := range cases {
		s, err := NewScores(c[0], c[1], c[2], c[3])
		require.NoError(t, err)
		assert.True(t, s.Valid(), "scores %v", s)
		assert.InDelta(t, 1.0, s.Sum(), ScoreTolerance)
	}
}

func TestNewScoresRejectsInvalid(t *testing.T) {
	t.Parallel()

	cases := [][4]float64{
		{-0.1, 0.5, 0.3, 0.3},
		{0, 0, 0, 0},
		{math.NaN(), 0, 0, 1},
		{math.Inf(1), 0, 0, 0},
	}
	for _, c := range cases {
		_, err := NewScores(c[0], c[1], c[2], c[3])
		assert.ErrorIs(t, err, ErrInvalidScores, "input %v", c)
	}
}

func TestParseLabel(t *testing.T) {
	t.Parallel()

	l, err := ParseLabel(" mixed ")
	require.NoError(t, err)
	assert.Equal(t, LabelMixed, l)

	_, err = ParseLabel("ANGRY")
	assert.ErrorIs(t, err, ErrInvalidScores)
}

func TestArtifactKeyIsDeterministic(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "processed/review_r1.json", ArtifactKey("", "r1"))
	assert.Equal(t, ArtifactKey(DefaultArtifactKeyTemplate, "abc"), ArtifactKey(DefaultArtifactKeyTemplate, "abc"))
	assert.Equal(t, "out/x/x.json", ArtifactKey("out/{review_id}/{review_id}.json", "x"))
	assert.NotEqual(t, ArtifactKey("", "a"), ArtifactKey("", "b"))
}

func TestNewArtifactFlattensScores(t *testing.T) {
	t.Parallel()

	s, err := NewSentiment("POSITIVE", 0.9, 0.02, 0.05, 0.03)
	require.NoError(t, err)
	at := time.Unix(1700000000, 0)

	a := NewArtifact("r1", "great app", s, at)
	assert.Equal(t, "r1", a.ReviewID)
	assert.Equal(t, LabelPositive, a.Sentiment)
	assert.InDelta(t, 0.9, a.Positive, 1e-9)
	assert.InDelta(t, 0.03, a.Mixed, 1e-9)
	assert.Equal(t, int64(1700000000), a.Timestamp)
}

func TestEventKind(t *testing.T) {
	t.Parallel()

	assert.True(t, NormalizeEventKind("insert").TriggersEnrichment())
	assert.True(t, NormalizeEventKind(" MODIFY").TriggersEnrichment())
	assert.False(t, NormalizeEventKind("REMOVE").TriggersEnrichment())
	assert.False(t, NormalizeEventKind("").TriggersEnrichment())
}
