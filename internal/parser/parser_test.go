package parser

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gearxr/gear/pkg/core"
)

func newTestParser() *Parser {
	return NewParser(slog.Default())
}

func TestNewParser(t *testing.T) {
	require.NotNil(t, NewParser(nil))
}

func TestParseVec3(t *testing.T) {
	p := newTestParser()
	last := core.Vec3{X: 9, Y: 9, Z: 9}

	tests := []struct {
		name    string
		input   string
		want    core.Vec3
		errKeys int
	}{
		{"plain keys", `{"x":1.5,"y":2,"z":-3}`, core.Vec3{X: 1.5, Y: 2, Z: -3}, 0},
		{"underscored keys", `{"_x":0.1,"_y":0.2,"_z":0.3,"_order":"XYZ"}`, core.Vec3{X: 0.1, Y: 0.2, Z: 0.3}, 0},
		{"numeric strings", `{"x":"1","y":" 2.5 ","z":"0"}`, core.Vec3{X: 1, Y: 2.5, Z: 0}, 0},
		{"one bad field keeps last", `{"x":1,"y":"abc","z":3}`, core.Vec3{X: 1, Y: 9, Z: 3}, 1},
		{"missing field keeps last", `{"x":1}`, core.Vec3{X: 1, Y: 9, Z: 9}, 2},
		{"not json", `garbage`, last, 1},
		{"empty", ``, last, 1},
		{"null", `null`, last, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, errs := p.ParseVec3(tt.input, last)
			assert.Equal(t, tt.want, got)
			assert.Len(t, errs, tt.errKeys)
		})
	}
}

func TestParseEuler_FieldError(t *testing.T) {
	p := newTestParser()

	_, errs := p.ParseEuler(`{"x":true,"y":0,"z":0}`, core.Euler{})
	require.Len(t, errs, 1)

	var fe FieldError
	require.ErrorAs(t, errs[0], &fe)
	assert.Equal(t, "x", fe.Field)
}

func TestParsePose_HalvesIndependent(t *testing.T) {
	p := newTestParser()
	last := core.Pose{
		Position: core.Vec3{X: 1, Y: 1, Z: 1},
		Rotation: core.Euler{X: 0.5},
	}

	got := p.ParsePose(`{"x":2,"y":3,"z":4}`, `not json`, last)

	assert.Equal(t, core.Vec3{X: 2, Y: 3, Z: 4}, got.Position)
	assert.Equal(t, last.Rotation, got.Rotation)
}

func TestParseHotspotConfig(t *testing.T) {
	p := newTestParser()

	t.Run("quiz", func(t *testing.T) {
		cfg := p.ParseHotspotConfig(`{"options":["a","b","c"],"correctAnswer":"1","points":20}`)
		assert.Equal(t, []string{"a", "b", "c"}, cfg.Options)
		require.NotNil(t, cfg.CorrectAnswer)
		assert.Equal(t, 1, *cfg.CorrectAnswer)
		require.NotNil(t, cfg.Points)
		assert.Equal(t, 20, *cfg.Points)
	})

	t.Run("options as csv", func(t *testing.T) {
		cfg := p.ParseHotspotConfig(`{"options":"red, green ,,blue"}`)
		assert.Equal(t, []string{"red", "green", "blue"}, cfg.Options)
	})

	t.Run("audio", func(t *testing.T) {
		cfg := p.ParseHotspotConfig(`{"audioUrl":"https://x/a.mp3"}`)
		assert.Equal(t, "https://x/a.mp3", cfg.AudioURL)
	})

	t.Run("bad field keeps the rest", func(t *testing.T) {
		cfg := p.ParseHotspotConfig(`{"options":["a","b"],"correctAnswer":1.5,"points":"x"}`)
		assert.Equal(t, []string{"a", "b"}, cfg.Options)
		assert.Nil(t, cfg.CorrectAnswer)
		assert.Nil(t, cfg.Points)
	})

	t.Run("explicit zero points", func(t *testing.T) {
		cfg := p.ParseHotspotConfig(`{"options":["a","b"],"correctAnswer":0,"points":0}`)
		require.NotNil(t, cfg.Points)
		assert.Zero(t, cfg.QuizPoints())
		assert.False(t, cfg.IsZero())
	})

	t.Run("unreadable", func(t *testing.T) {
		assert.True(t, p.ParseHotspotConfig(`{`).IsZero())
		assert.True(t, p.ParseHotspotConfig(``).IsZero())
		assert.True(t, p.ParseHotspotConfig(`null`).IsZero())
	})
}

func TestSplitOptions(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitOptions(" a , b "))
	assert.Nil(t, SplitOptions(""))
	assert.Nil(t, SplitOptions(" , ,"))
	assert.Equal(t, []string{"only"}, SplitOptions("only,"))
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFence("```\n{\"a\":1}\n```"))
	assert.Equal(t, `plain`, StripCodeFence("  plain  "))
}

func TestParseGeneratedQuiz(t *testing.T) {
	q, err := ParseGeneratedQuiz("```json\n{\"question\":\"2+2?\",\"options\":[\"3\",\"4\"],\"correct\":1,\"points\":10}\n```")
	require.NoError(t, err)
	assert.Equal(t, "2+2?", q.Question)
	assert.Equal(t, 1, q.Correct)

	for _, bad := range []string{
		"Sure! Here is a quiz about planets.",
		`{"question":"","options":["a","b"]}`,
		`{"question":"q","options":["a"]}`,
		`{"question":"q","options":["a","b"],"correct":5}`,
	} {
		_, err := ParseGeneratedQuiz(bad)
		assert.Error(t, err, bad)
	}
}
