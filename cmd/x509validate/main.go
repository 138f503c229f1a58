// Command x509validate loads a leaf certificate (and optional
// intermediates) and validates it against a configured trust anchor
// pool, printing the resulting core.ValidationResult as human-readable
// text or, with -json, as JSON. With -serve it instead starts the
// administrative HTTP surface (SPEC_FULL.md §7.1, §7.3).
package main

import (
	"context"
	"encoding/json"
	"encoding/pem"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/jmhodges/clock"
	"golang.org/x/term"

	"github.com/tourze/tls-certificate/chainvalidate"
	"github.com/tourze/tls-certificate/cmd"
	"github.com/tourze/tls-certificate/codec"
	"github.com/tourze/tls-certificate/core"
	"github.com/tourze/tls-certificate/crlcache"
	"github.com/tourze/tls-certificate/crlupdate"
	"github.com/tourze/tls-certificate/fetcher"
	"github.com/tourze/tls-certificate/goodkey"
	"github.com/tourze/tls-certificate/ocspclient"
	"github.com/tourze/tls-certificate/revocation"
	"github.com/tourze/tls-certificate/sigverify"
	"github.com/tourze/tls-certificate/telemetry"
	"github.com/tourze/tls-certificate/validate"
	"github.com/tourze/tls-certificate/web"
)

func loadCertsFromDir(dir string) ([]*core.Certificate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []*core.Certificate
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		der, err := cmd.LoadCert(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", entry.Name(), err)
		}
		cert, err := codec.DecodeCertificateDER(der)
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", entry.Name(), err)
		}
		out = append(out, cert)
	}
	return out, nil
}

func main() {
	certPath := flag.String("cert", "", "path to the leaf certificate (PEM)")
	intermediatesPath := flag.String("intermediates", "", "path to a PEM file of intermediate certificates")
	configPath := flag.String("config", "", "path to the JSON config file")
	jsonOutput := flag.Bool("json", false, "print the result as JSON instead of human-readable text")
	serveAddr := flag.String("serve", "", "if set, start the administrative HTTP surface on this address instead of validating -cert")
	flag.Parse()

	config, err := cmd.LoadConfig(*configPath)
	cmd.FailOnError(err, "loading config")

	stats, logger := cmd.StatsAndLogging("x509validate")

	ctx := context.Background()
	_, shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:   config.Validate.Telemetry.ServiceName,
		CollectorAddr: config.Validate.Telemetry.CollectorAddr,
	})
	cmd.FailOnError(err, "setting up telemetry")
	defer func() { _ = shutdownTelemetry(ctx) }()

	verifier := sigverify.NewDefaultVerifier()
	fetch := fetcher.NewHTTPFetcher()
	clk := clock.New()

	cache := crlcache.New(clk, config.Validate.CRLCache.MaxEntries)
	updater := crlupdate.New(cache, fetch)
	ocsp := ocspclient.New(fetch, verifier, clk)
	revChecker := revocation.New(cache, updater, ocsp, verifier, clk)
	chainValidator := chainvalidate.New(verifier, revChecker, clk)

	anchors, err := loadCertsFromDir(config.Validate.TrustAnchorDir)
	cmd.FailOnError(err, "loading trust anchors")

	engine := validate.New(chainValidator, anchors, config.Validate.MaxChainLength, logger, stats)
	if config.Validate.WeakKeyBlacklistDir != "" {
		weakKeys, err := goodkey.LoadBlacklistDir(config.Validate.WeakKeyBlacklistDir)
		cmd.FailOnError(err, "loading weak-key blacklist")
		engine = engine.WithWeakKeyChecker(weakKeys)
	}

	if config.Validate.DebugAddr != "" {
		go cmd.DebugServer(config.Validate.DebugAddr)
	}

	if *serveAddr != "" {
		handler := web.NewHandler(engine, logger)
		logger.Info("serving administrative validate HTTP surface on " + *serveAddr)
		cmd.FailOnError(http.ListenAndServe(*serveAddr, handler.Mux(clk, nil)), "serving HTTP")
		return
	}

	if *certPath == "" {
		cmd.FailOnError(fmt.Errorf("-cert is required unless -serve is set"), "invalid invocation")
	}

	leafDER, err := cmd.LoadCert(*certPath)
	cmd.FailOnError(err, "loading leaf certificate")
	leaf, err := codec.DecodeCertificateDER(leafDER)
	cmd.FailOnError(err, "decoding leaf certificate")

	var intermediates []*core.Certificate
	if *intermediatesPath != "" {
		data, err := os.ReadFile(*intermediatesPath)
		cmd.FailOnError(err, "reading intermediates file")
		intermediates, err = decodeCertificatesPEM(data)
		cmd.FailOnError(err, "decoding intermediates")
	}

	opts := core.DefaultValidationOptions()
	opts.RunLints = true

	result := engine.Validate(ctx, leaf, intermediates, opts)
	printResult(result, *jsonOutput)
	if !result.IsValid() {
		os.Exit(1)
	}
}

// printResult prints a human-readable summary colorized with ANSI codes
// when stdout is a terminal (golang.org/x/term), or plain text when piped
// -- e.g. into a file or another process expecting -json instead.
func printResult(result *core.ValidationResult, asJSON bool) {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(validate.ResultJSON(result))
		return
	}

	colorize := term.IsTerminal(int(os.Stdout.Fd()))
	verdict := "VALID"
	color := "\x1b[32m"
	if !result.IsValid() {
		verdict = "INVALID"
		color = "\x1b[31m"
	}
	if colorize {
		fmt.Printf("%s%s\x1b[0m\n", color, verdict)
	} else {
		fmt.Println(verdict)
	}

	for _, e := range result.Errors {
		fmt.Println("  error:", e)
	}
	for _, w := range result.Warnings {
		fmt.Println("  warning:", w)
	}
	for _, s := range result.Successes {
		fmt.Println("  ok:", s)
	}
}

// decodeCertificatesPEM splits a file containing zero or more
// concatenated "CERTIFICATE" PEM blocks -- the conventional intermediate
// bundle format -- into decoded certificates.
func decodeCertificatesPEM(data []byte) ([]*core.Certificate, error) {
	var out []*core.Certificate
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		cert, err := codec.DecodeCertificateDER(block.Bytes)
		if err != nil {
			return nil, err
		}
		out = append(out, cert)
	}
	return out, nil
}
