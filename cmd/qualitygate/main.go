// Command qualitygate is the scan-orchestrator CLI: run detectors against
// a repository, compute a baseline-delta verdict, and optionally persist
// the resulting scan report.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/opsplatform/core/pkg/common"
	"github.com/opsplatform/core/pkg/dbutil"
	"github.com/opsplatform/core/qualitygate/detect"
	"github.com/opsplatform/core/qualitygate/domain"
	"github.com/opsplatform/core/qualitygate/store/postgres"
	"github.com/opsplatform/core/qualitygate/verdict"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

var rootCmd = &cobra.Command{
	Use:   "qualitygate",
	Short: "QualityGate — scan orchestrator and baseline-delta verdict CLI",
}

func init() {
	rootCmd.AddCommand(scanCmd, persistCmd)
}

var (
	flagRepo     string
	flagCommit   string
	flagOutput   string
	flagFailOn   string
	flagBaseline string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run detectors against a repository and emit a JSON scan report",
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().StringVar(&flagRepo, "repo", ".", "repository path")
	scanCmd.Flags().StringVar(&flagCommit, "commit", "HEAD", "commit/ref being scanned")
	scanCmd.Flags().StringVar(&flagOutput, "output", "-", "output file (- for stdout)")
	scanCmd.Flags().StringVar(&flagFailOn, "fail-on", string(common.SeverityHigh), "fail if any finding >= this severity")
	scanCmd.Flags().StringVar(&flagBaseline, "baseline", "", "path to baseline JSON file")
}

func runScan(cmd *cobra.Command, _ []string) error {
	failOn := common.Severity(flagFailOn)
	if !failOn.Valid() {
		log.Error().Str("fail_on", flagFailOn).Msg("unrecognized severity")
		os.Exit(2)
	}

	scanner := detect.New(&detect.RuffDetector{}, &detect.SecretsDetector{})
	ctx, cancel := context.WithTimeout(cmd.Context(), detect.SubprocessTimeout+10*time.Second)
	defer cancel()

	findings := scanner.Run(ctx, flagRepo)
	scan := domain.Scan{
		Repo:     flagRepo,
		Commit:   flagCommit,
		Ts:       common.SystemClock{}.Now(),
		Findings: findings,
	}

	out, err := json.MarshalIndent(scan, "", "  ")
	if err != nil {
		return err
	}
	if err := writeOutput(flagOutput, out); err != nil {
		return err
	}

	var baseline *domain.Baseline
	if flagBaseline != "" {
		b, err := loadBaseline(flagBaseline)
		if err != nil {
			log.Error().Err(err).Str("baseline", flagBaseline).Msg("unable to read baseline file")
			os.Exit(2)
		}
		baseline = &b
	}

	result := verdict.Compute(findings, baseline, failOn)
	if !result.Pass {
		log.Warn().Str("reason", result.Reason).Strs("fingerprints", result.FailedOn).Msg("scan verdict: fail")
		os.Exit(1)
	}
	log.Info().Msg("scan verdict: pass")
	return nil
}

func writeOutput(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(append(data, '\n'))
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func loadBaseline(path string) (domain.Baseline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Baseline{}, err
	}
	var b domain.Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return domain.Baseline{}, err
	}
	return b, nil
}

var (
	flagInput    string
	flagStoreURI string
)

var persistCmd = &cobra.Command{
	Use:   "persist",
	Short: "Persist a JSON scan report to the configured document store",
	RunE:  runPersist,
}

func init() {
	persistCmd.Flags().StringVar(&flagInput, "input", "-", "JSON report file (- for stdin)")
	persistCmd.Flags().StringVar(&flagStoreURI, "store-uri", "", "document-store URI (overrides DOCUMENT_STORE_URI)")
}

func runPersist(cmd *cobra.Command, _ []string) error {
	var r io.Reader = os.Stdin
	if flagInput != "-" {
		f, err := os.Open(flagInput)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	var scan domain.Scan
	if err := json.Unmarshal(data, &scan); err != nil {
		return err
	}

	if flagStoreURI != "" {
		os.Setenv("DOCUMENT_STORE_URI", flagStoreURI)
	}
	cfg, err := dbutil.LoadConfigFromEnv("DOCUMENT_STORE")
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	pool, err := dbutil.Open(ctx, cfg, postgres.Migrations, postgres.MigrationsDir)
	if err != nil {
		return err
	}
	defer pool.Close()

	repo := postgres.NewScanStore(pool)
	id, err := repo.Save(ctx, scan)
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}
