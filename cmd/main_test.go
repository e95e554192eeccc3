package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/szgerii/Safari-sub001/models"
)

func TestValidateConfig(t *testing.T) {
	valid := config{FrameDuration: time.Millisecond}
	require.NoError(t, validateConfig(valid))

	tests := []struct {
		name string
		conf config
	}{
		{name: "zero frame duration", conf: config{}},
		{name: "negative rebuild interval", conf: config{FrameDuration: time.Millisecond, RebuildInterval: -1}},
		{name: "negative summary interval", conf: config{FrameDuration: time.Millisecond, LogSummaryInterval: -time.Second}},
		{name: "missing level file", conf: config{FrameDuration: time.Millisecond, LevelFile: "/does/not/exist.yaml"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Error(t, validateConfig(test.conf))
		})
	}
}

func TestLoadLevelConfig(t *testing.T) {
	t.Run("built-in savanna", func(t *testing.T) {
		levelConf, err := loadLevelConfig(config{})
		require.NoError(t, err)
		require.Equal(t, models.DefaultConfig(), levelConf)
	})

	t.Run("sample level file", func(t *testing.T) {
		levelConf, err := loadLevelConfig(config{LevelFile: "../levels/savanna.yaml"})
		require.NoError(t, err)
		require.Equal(t, "savanna", levelConf.Name)
		require.NotEmpty(t, levelConf.Spawns)
	})
}
