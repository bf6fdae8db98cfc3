package secrets

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/fyrsmithlabs/meetextract/internal/transcript"
	gitleaksconfig "github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
	gitleaksregexp "github.com/zricethezav/gitleaks/v8/regexp"
)

// Finding is one detected secret. The secret value itself is not kept.
type Finding struct {
	RuleID  string `json:"rule_id"`
	Segment int    `json:"segment"`
	Length  int    `json:"length"`
}

// Summary aggregates the findings of one redaction pass.
type Summary struct {
	Findings   []Finding      `json:"findings"`
	RuleCounts map[string]int `json:"rule_counts"`
}

// Total returns the number of redacted secrets.
func (s Summary) Total() int {
	return len(s.Findings)
}

// Redactor wraps a Gitleaks detector built once at startup.
type Redactor struct {
	mu       sync.Mutex
	detector *detect.Detector
}

// NewRedactor loads the default Gitleaks rules plus the optional allowlist.
func NewRedactor(allowlist *Allowlist) (*Redactor, error) {
	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("creating gitleaks detector: %w", err)
	}
	if !allowlist.Empty() {
		if err := applyAllowlist(&detector.Config, allowlist); err != nil {
			return nil, err
		}
	}
	return &Redactor{detector: detector}, nil
}

func applyAllowlist(cfg *gitleaksconfig.Config, allowlist *Allowlist) error {
	entry := &gitleaksconfig.Allowlist{
		Description: "meetextract allowlist",
		StopWords:   allowlist.StopWords,
	}
	for _, pattern := range allowlist.Regexes {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidRegex, pattern, err)
		}
		entry.Regexes = append(entry.Regexes, (*gitleaksregexp.Regexp)(re))
	}
	cfg.Allowlists = append(cfg.Allowlists, entry)
	return nil
}

// Redact replaces every detected secret in text with a marker. Segment is
// left zero in the returned findings.
func (r *Redactor) Redact(text string) (string, []Finding) {
	if text == "" {
		return text, nil
	}

	r.mu.Lock()
	found := r.detector.DetectString(text)
	r.mu.Unlock()
	if len(found) == 0 {
		return text, nil
	}

	// Longest first so a secret that contains another is replaced whole.
	sort.SliceStable(found, func(i, j int) bool {
		return len(found[i].Secret) > len(found[j].Secret)
	})

	findings := make([]Finding, 0, len(found))
	for _, f := range found {
		if f.Secret == "" || !strings.Contains(text, f.Secret) {
			continue
		}
		text = strings.ReplaceAll(text, f.Secret, marker(f.RuleID))
		findings = append(findings, Finding{RuleID: f.RuleID, Length: len(f.Secret)})
	}
	return text, findings
}

// RedactSegments returns a redacted copy of segs. The input is not
// modified.
func (r *Redactor) RedactSegments(segs []transcript.Segment) ([]transcript.Segment, Summary) {
	out := make([]transcript.Segment, len(segs))
	summary := Summary{RuleCounts: map[string]int{}}
	for i, seg := range segs {
		out[i] = seg
		text, findings := r.Redact(seg.Text)
		out[i].Text = text
		for _, f := range findings {
			f.Segment = i
			summary.Findings = append(summary.Findings, f)
			summary.RuleCounts[f.RuleID]++
		}
	}
	return out, summary
}

func marker(ruleID string) string {
	return "[REDACTED:" + ruleID + "]"
}
