package netlog

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestNewDefaultsToInfo(t *testing.T) {
	t.Setenv(LevelEnvVar, "")
	log := New()
	if log.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("level = %v, want info", log.GetLevel())
	}
}

func TestNewHonorsEnvVar(t *testing.T) {
	t.Setenv(LevelEnvVar, "debug")
	log := New()
	if log.GetLevel() != zerolog.DebugLevel {
		t.Fatalf("level = %v, want debug", log.GetLevel())
	}
}

func TestNewFallsBackOnUnparseableLevel(t *testing.T) {
	t.Setenv(LevelEnvVar, "not-a-level")
	log := New()
	if log.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("level = %v, want info fallback", log.GetLevel())
	}
}
