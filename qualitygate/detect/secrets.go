package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"

	"github.com/opsplatform/core/pkg/common"
	"github.com/opsplatform/core/qualitygate/domain"
)

// SecretsDetector shells out to `detect-secrets scan --all-files`, grounded
// on aegis's scanners/secrets_scanner.py. Every real finding this detector
// produces is CRITICAL, which is what drives the verdict's CRITICAL
// short-circuit in practice.
type SecretsDetector struct {
	Binary string
}

func (d *SecretsDetector) Name() string { return "detect-secrets" }

type secretsOutput struct {
	Results map[string][]struct {
		Type         string `json:"type"`
		LineNumber   int    `json:"line_number"`
		HashedSecret string `json:"hashed_secret"`
	} `json:"results"`
}

func (d *SecretsDetector) Scan(ctx context.Context, repoPath string) []domain.Finding {
	bin := d.Binary
	if bin == "" {
		bin = "detect-secrets"
	}

	ctx, cancel := context.WithTimeout(ctx, SubprocessTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, "scan", repoPath, "--all-files")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	err := cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return []domain.Finding{{
			RuleID:   "secrets-timeout",
			Message:  "secrets scanner timed out",
			Severity: common.SeverityMedium,
		}}
	}
	if err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			return []domain.Finding{{
				RuleID:   "secrets-not-found",
				Message:  "detect-secrets binary not found in PATH",
				Severity: common.SeverityInfo,
			}}
		}
	}

	if stdout.Len() == 0 {
		return nil
	}
	var out secretsOutput
	if jerr := json.Unmarshal(stdout.Bytes(), &out); jerr != nil {
		return []domain.Finding{{
			RuleID:   "secrets-error",
			Message:  "secrets scanner failed: " + jerr.Error(),
			Severity: common.SeverityMedium,
		}}
	}

	var findings []domain.Finding
	for path, secrets := range out.Results {
		for _, secret := range secrets {
			findings = append(findings, domain.Finding{
				RuleID:   "secret-" + orUnknown(secret.Type),
				Message:  "potential secret detected: " + orUnknown(secret.Type),
				Severity: common.SeverityCritical,
				Path:     path,
				Line:     secret.LineNumber,
				Extra: map[string]any{
					"type":          secret.Type,
					"hashed_secret": secret.HashedSecret,
				},
			})
		}
	}
	return findings
}
