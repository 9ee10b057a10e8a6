// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

// Package rules scores a URL with deterministic static heuristics: risky
// top-level domains, missing transport security, high-risk keywords, and
// suspicious domain shapes. Rule scoring never performs I/O.
package rules

import (
	"strings"

	"github.com/sitewarden/sitewarden/internal/identity"
)

// riskyTLDs are top-level domains with a high observed abuse rate.
var riskyTLDs = map[string]struct{}{
	"zip":   {},
	"mov":   {},
	"top":   {},
	"xyz":   {},
	"click": {},
	"loan":  {},
	"work":  {},
}

// highRiskKeywords are terms common in credential-phishing and scam URLs.
var highRiskKeywords = []string{
	"verify",
	"login",
	"account",
	"free",
	"giveaway",
	"crypto",
	"giftcard",
	"refund",
	"support",
}

// Rule weights. The sum is clamped to 100.
const (
	weightRiskyTLD    = 20
	weightNoHTTPS     = 15
	weightKeyword     = 25
	weightDomainShape = 25
)

// Reason strings produced by the scorer. Stable: they are persisted in
// verdicts and matched by downstream deduplication.
const (
	ReasonRiskyTLD    = "Suspicious top-level domain"
	ReasonNoHTTPS     = "Site is not using HTTPS"
	ReasonKeyword     = "URL contains high-risk keywords"
	ReasonDomainShape = "Domain format looks risky"
)

// Result is the rule-scoring outcome for one URL.
type Result struct {
	// RiskScore is in [0,100].
	RiskScore int

	// Reasons lists the rules that fired, in evaluation order.
	Reasons []string
}

// Score evaluates all rules against the resource.
// Deterministic: identical input always yields an identical result.
func Score(res *identity.Resource) Result {
	score := 0
	var reasons []string

	if tld := lastLabel(res.Domain); tld != "" {
		if _, risky := riskyTLDs[tld]; risky {
			score += weightRiskyTLD
			reasons = append(reasons, ReasonRiskyTLD)
		}
	}

	if res.URL.Scheme != "https" {
		score += weightNoHTTPS
		reasons = append(reasons, ReasonNoHTTPS)
	}

	lowered := strings.ToLower(res.URL.String())
	for _, keyword := range highRiskKeywords {
		if strings.Contains(lowered, keyword) {
			score += weightKeyword
			reasons = append(reasons, ReasonKeyword)
			break
		}
	}

	if suspiciousDomainShape(res.Domain) {
		score += weightDomainShape
		reasons = append(reasons, ReasonDomainShape)
	}

	return Result{RiskScore: clamp(score), Reasons: reasons}
}

// suspiciousDomainShape flags domains with heavy digit use or excessive
// hyphenation, both common in throwaway phishing registrations.
func suspiciousDomainShape(domain string) bool {
	digits := 0
	hyphens := 0
	for _, r := range domain {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '-':
			hyphens++
		}
	}
	return digits >= 4 || hyphens >= 3
}

// lastLabel returns the final dot-separated label of domain.
func lastLabel(domain string) string {
	idx := strings.LastIndexByte(domain, '.')
	if idx < 0 || idx == len(domain)-1 {
		return ""
	}
	return domain[idx+1:]
}

// clamp bounds score to [0,100].
func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
