// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

package rules

import (
	"testing"

	"github.com/sitewarden/sitewarden/internal/identity"
)

func derive(t *testing.T, rawURL string) *identity.Resource {
	t.Helper()
	res, err := identity.NewDeriver("test-salt").DeriveURL(rawURL)
	if err != nil {
		t.Fatalf("DeriveURL(%q): %v", rawURL, err)
	}
	return res
}

func TestScorePhishingScenario(t *testing.T) {
	// Risky TLD + plain HTTP + keyword hits; domain shape must not fire
	// at only two hyphens.
	result := Score(derive(t, "http://free-giftcard-verify.zip/login"))

	if result.RiskScore < 60 {
		t.Errorf("risk score = %d, want >= 60", result.RiskScore)
	}
	if len(result.Reasons) != 3 {
		t.Fatalf("reasons = %v, want exactly 3", result.Reasons)
	}

	want := []string{ReasonRiskyTLD, ReasonNoHTTPS, ReasonKeyword}
	for i, reason := range want {
		if result.Reasons[i] != reason {
			t.Errorf("reason[%d] = %q, want %q", i, result.Reasons[i], reason)
		}
	}
}

func TestScoreCleanSite(t *testing.T) {
	result := Score(derive(t, "https://example.org/about"))

	if result.RiskScore != 0 {
		t.Errorf("risk score = %d, want 0", result.RiskScore)
	}
	if len(result.Reasons) != 0 {
		t.Errorf("reasons = %v, want none", result.Reasons)
	}
}

func TestScoreDeterministic(t *testing.T) {
	res := derive(t, "http://crypto-refund4u2025.xyz/claim")

	first := Score(res)
	second := Score(res)

	if first.RiskScore != second.RiskScore || len(first.Reasons) != len(second.Reasons) {
		t.Errorf("scoring not deterministic: %+v vs %+v", first, second)
	}
}

func TestScoreDomainShape(t *testing.T) {
	tests := []struct {
		url       string
		wantShape bool
	}{
		{"https://pay1234secure.com/checkout", true},   // 4+ digits
		{"https://my-very-cheap-deals.com/", true},     // 3+ hyphens
		{"https://two-hyphens-only.com/", false},       // 2 hyphens: allowed
		{"https://shop24.com/", false},                 // 2 digits: allowed
	}

	for _, tt := range tests {
		result := Score(derive(t, tt.url))
		fired := false
		for _, r := range result.Reasons {
			if r == ReasonDomainShape {
				fired = true
			}
		}
		if fired != tt.wantShape {
			t.Errorf("Score(%q) domain-shape fired = %v, want %v", tt.url, fired, tt.wantShape)
		}
	}
}

func TestScoreClampedAt100(t *testing.T) {
	// Every rule fires: 20 + 15 + 25 + 25 = 85, still within bounds;
	// the clamp guards future weight changes.
	result := Score(derive(t, "http://free-crypto-verify-login9999.zip/claim"))

	if result.RiskScore > 100 || result.RiskScore < 0 {
		t.Errorf("risk score %d outside [0,100]", result.RiskScore)
	}
	if len(result.Reasons) != 4 {
		t.Errorf("reasons = %v, want all 4 rules", result.Reasons)
	}
}

func TestKeywordReportedOnce(t *testing.T) {
	// Multiple keyword hits yield a single keyword reason.
	result := Score(derive(t, "https://example.com/free-giftcard-login-verify"))

	count := 0
	for _, r := range result.Reasons {
		if r == ReasonKeyword {
			count++
		}
	}
	if count != 1 {
		t.Errorf("keyword reason appeared %d times, want 1", count)
	}
}
