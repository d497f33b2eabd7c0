package models

import (
	"testing"
	"time"
)

func TestCredential(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

	t.Run("Expired", func(t *testing.T) {
		tt := []struct {
			name      string
			expiresAt time.Time
			want      bool
		}{
			{name: "in the past", expiresAt: now.Add(-time.Second), want: true},
			{name: "exactly now", expiresAt: now, want: true},
			{name: "in the future", expiresAt: now.Add(time.Second), want: false},
		}

		for _, tc := range tt {
			t.Run(tc.name, func(t *testing.T) {
				c := &Credential{ExpiresAt: tc.expiresAt}
				if got := c.Expired(now); got != tc.want {
					t.Errorf("Expired() = %v, want %v", got, tc.want)
				}
			})
		}
	})

	t.Run("Validate", func(t *testing.T) {
		valid := Credential{Identity: "alice", AccessSecret: "a", RefreshSecret: "r", ExpiresAt: now}
		if err := valid.Validate(); err != nil {
			t.Errorf("expected valid credential, got %v", err)
		}

		missing := valid
		missing.RefreshSecret = ""
		if err := missing.Validate(); err == nil {
			t.Error("expected error for missing refresh secret")
		}

		noExpiry := valid
		noExpiry.ExpiresAt = time.Time{}
		if err := noExpiry.Validate(); err == nil {
			t.Error("expected error for zero expiry")
		}
	})

	t.Run("Scopes", func(t *testing.T) {
		c := &Credential{Scopes: ParseScopes("user-read-playback-state  user-modify-playback-state")}
		if len(c.Scopes) != 2 {
			t.Fatalf("expected 2 scopes, got %v", c.Scopes)
		}
		if c.ScopeString() != "user-read-playback-state user-modify-playback-state" {
			t.Errorf("unexpected scope string %q", c.ScopeString())
		}
	})
}

func TestNewProgress(t *testing.T) {
	tt := []struct {
		name      string
		elapsed   int64
		duration  int64
		want      float64
		wantKnown bool
	}{
		{name: "quarter", elapsed: 50000, duration: 200000, want: 0.25, wantKnown: true},
		{name: "clamped above", elapsed: 250000, duration: 200000, want: 1, wantKnown: true},
		{name: "clamped below", elapsed: -10, duration: 200000, want: 0, wantKnown: true},
		{name: "zero duration", elapsed: 1000, duration: 0, want: 0, wantKnown: false},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got := NewProgress(tc.elapsed, tc.duration)
			if got.Fraction != tc.want || got.Known != tc.wantKnown {
				t.Errorf("NewProgress() = %+v, want {%v %v}", got, tc.want, tc.wantKnown)
			}
		})
	}
}

func TestPlaybackSnapshotActiveID(t *testing.T) {
	var nilSnap *PlaybackSnapshot
	if nilSnap.ActiveID() != "" {
		t.Error("expected empty id for nil snapshot")
	}

	s := &PlaybackSnapshot{Active: &TrackRef{ID: "track-1"}}
	if s.ActiveID() != "track-1" {
		t.Errorf("expected track-1, got %s", s.ActiveID())
	}
}
