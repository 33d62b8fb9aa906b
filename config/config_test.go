// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package config

import (
	"testing"

	"github.com/go-core-stack/tokenpool/errors"
)

func Test_ResolveDefaults(t *testing.T) {
	t.Setenv(EnvDatabaseURL, "")
	t.Setenv(EnvPort, "")
	t.Setenv(EnvNodes, "")
	t.Setenv(EnvNodeBudget, "")
	t.Setenv(EnvAllocStrategy, "")
	t.Setenv(EnvLargeRequestRatio, "")
	t.Setenv(EnvRateLimitEnabled, "")

	s, err := Resolve()
	if err != nil {
		t.Fatalf("unexpected error resolving defaults: %s", err)
	}
	if s.Port != defaultPort {
		t.Errorf("Port = %d, want %d", s.Port, defaultPort)
	}
	if s.Nodes != defaultNodes {
		t.Errorf("Nodes = %d, want %d", s.Nodes, defaultNodes)
	}
	if s.NodeBudget != defaultNodeBudget {
		t.Errorf("NodeBudget = %d, want %d", s.NodeBudget, defaultNodeBudget)
	}
	if s.AllocStrategy != "best" {
		t.Errorf("AllocStrategy = %q, want best", s.AllocStrategy)
	}
	if !s.RateLimitEnabled {
		t.Errorf("RateLimitEnabled = false, want true")
	}
	if got, want := s.LargeRequestThreshold(), 150; got != want {
		t.Errorf("LargeRequestThreshold() = %d, want %d", got, want)
	}
}

func Test_ResolveOverrides(t *testing.T) {
	t.Setenv(EnvNodes, "6")
	t.Setenv(EnvNodeBudget, "500")
	t.Setenv(EnvAllocStrategy, "largest")
	t.Setenv(EnvLargeRequestRatio, "0.25")
	t.Setenv(EnvRateLimitEnabled, "false")

	s, err := Resolve()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if s.Nodes != 6 || s.NodeBudget != 500 {
		t.Fatalf("unexpected Nodes/NodeBudget: %+v", s)
	}
	if s.AllocStrategy != "largest" {
		t.Errorf("AllocStrategy = %q, want largest", s.AllocStrategy)
	}
	if s.RateLimitEnabled {
		t.Errorf("RateLimitEnabled = true, want false")
	}
	if got, want := s.LargeRequestThreshold(), 125; got != want {
		t.Errorf("LargeRequestThreshold() = %d, want %d", got, want)
	}
}

func Test_ResolveInvalidStrategy(t *testing.T) {
	t.Setenv(EnvAllocStrategy, "worst")
	_, err := Resolve()
	if !errors.IsInvalidArgument(err) {
		t.Fatalf("expected InvalidArgument error, got %v", err)
	}
}

func Test_ResolveInvalidNodes(t *testing.T) {
	t.Setenv(EnvAllocStrategy, "")
	t.Setenv(EnvNodes, "0")
	_, err := Resolve()
	if !errors.IsInvalidArgument(err) {
		t.Fatalf("expected InvalidArgument error, got %v", err)
	}
}
