// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ttbt-io/uiverify/harness"
)

var (
	chromeURL         = flag.String("chrome-url", "", "The url of the remote debugging port. If empty, Chrome is started locally.")
	chromePath        = flag.String("chrome-path", "", "Path to the Chrome binary")
	headless          = flag.Bool("headless", true, "Run Chrome headless")
	baseURL           = flag.String("base-url", "", "Override the base URL of every scenario")
	outputDir         = flag.String("output-dir", "screenshots", "Directory to save screenshots")
	lookupTimeout     = flag.Duration("lookup-timeout", harness.DefaultLookupTimeout, "How long actions look for their element")
	pollInterval      = flag.Duration("poll-interval", harness.DefaultPollInterval, "How often waits re-check their condition")
	overallTimeout    = flag.Duration("timeout", 5*time.Minute, "Upper bound for the whole run")
	concurrency       = flag.Int("concurrency", 1, "Number of scenarios to run at once, each in its own browser")
	disableAnimations = flag.Bool("disable-animations", false, "Disable CSS transitions and animations after each navigation")
	consoleLog        = flag.Bool("console-log", false, "Log the page's console messages")
	dataDir           = flag.String("data-dir", "", "Directory for run history. Empty disables it.")
	goldenDir         = flag.String("golden-dir", "", "Compare each scenario's report with <golden-dir>/<scenario>.golden")
	updateGoldens     = flag.Bool("update-goldens", false, "Write golden files instead of comparing")
	listenAddr        = flag.String("listen", "", "Serve live events and run history on this address")
	authCookie        = flag.String("auth-cookie", "", "Name of the auth cookie to install before the first step")
	authValue         = flag.String("auth-value", "", "Fixed value of the auth cookie (mock auth)")
	authEmail         = flag.String("auth-email", "", "Email to sign a JWT for")
	authJWK           = flag.String("auth-jwk", "", "Private key (JWK file) used to sign the auth JWT")
	authTTL           = flag.Duration("auth-ttl", time.Hour, "Lifetime of the signed auth JWT")
	authIssuer        = flag.String("auth-issuer", "", "Issuer (iss claim) of the signed auth JWT")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] scenario.yaml...\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(harness.ExitSetup)
	}
	os.Exit(run(flag.Args()))
}

// run executes the scenarios and returns the process exit code.
func run(paths []string) int {
	scenarios := make([]harness.Scenario, 0, len(paths))
	for _, p := range paths {
		sc, err := harness.LoadScenarioFile(p, *baseURL)
		if err != nil {
			log.Printf("Failed to load scenario: %v", err)
			return harness.ExitSetup
		}
		scenarios = append(scenarios, sc)
	}

	var store *harness.RunStore
	if *dataDir != "" {
		st, err := harness.OpenStorage(*dataDir, os.Getenv("UIVERIFY_MASTER_KEY"), nil)
		if err != nil {
			log.Printf("Failed to open data dir: %v", err)
			return harness.ExitSetup
		}
		store = harness.NewRunStore(*dataDir, st)
	}

	var observers harness.Observers
	if *listenAddr != "" {
		monitor := harness.NewMonitor(store)
		defer monitor.Close()
		stop, err := serveMonitor(*listenAddr, monitor)
		if err != nil {
			log.Printf("Failed to start monitor: %v", err)
			return harness.ExitSetup
		}
		defer stop()
		observers = append(observers, monitor)
	}

	creds, err := credentials()
	if err != nil {
		log.Printf("Failed to set up credentials: %v", err)
		return harness.ExitSetup
	}

	opts := harness.Options{
		Launch: harness.LaunchOptions{
			RemoteURL:         *chromeURL,
			ExecPath:          *chromePath,
			Headless:          *headless,
			LookupTimeout:     *lookupTimeout,
			DisableAnimations: *disableAnimations,
			ConsoleLog:        *consoleLog,
		},
		OutputDir: *outputDir,
		Waiter:    harness.Waiter{Interval: *pollInterval},
		Observer:  observers,
	}
	if creds != nil {
		opts.Credentials = creds
	}
	runner := harness.NewRunner(opts)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx, cancel = context.WithTimeout(ctx, *overallTimeout)
	defer cancel()

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Printf("Failed to create output dir: %v", err)
		return harness.ExitSetup
	}

	log.Printf("Running %d scenario(s)...", len(scenarios))
	results := harness.RunSuite(ctx, runner, scenarios, *concurrency)

	code := harness.ExitCode(results)
	for _, res := range results {
		log.Printf("%s", res)
		if store != nil {
			if err := store.SaveRun(res); err != nil {
				log.Printf("Failed to save run %s: %v", res.ID, err)
			}
		}
		if *goldenDir != "" {
			golden := filepath.Join(*goldenDir, res.Scenario+".golden")
			if err := harness.CompareGolden(golden, harness.Report(res), *updateGoldens); err != nil {
				log.Printf("Golden check for %s failed: %v", res.Scenario, err)
				code = max(code, harness.ExitFailed)
			} else if *updateGoldens {
				log.Printf("Updated golden file: %s", golden)
			}
		}
	}
	return code
}

func credentials() (*harness.Credentials, error) {
	switch {
	case *authCookie == "":
		if *authValue != "" || *authJWK != "" {
			return nil, errors.New("--auth-cookie is required with --auth-value or --auth-jwk")
		}
		return nil, nil
	case *authJWK != "":
		if *authEmail == "" {
			return nil, errors.New("--auth-email is required with --auth-jwk")
		}
		creds, err := harness.JWTCredentials(*authCookie, *authEmail, *authJWK, *authTTL)
		if err != nil {
			return nil, err
		}
		creds.Issuer = *authIssuer
		return creds, nil
	case *authValue != "":
		return harness.MockCredentials(*authCookie, *authValue), nil
	}
	return nil, errors.New("--auth-cookie needs --auth-value or --auth-jwk")
}

// serveMonitor starts the monitor's HTTP server and returns a function
// that shuts it down.
func serveMonitor(addr string, m *harness.Monitor) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{Handler: m.Handler()}
	go func() {
		log.Printf("Monitor listening on %s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Monitor server error: %v", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Monitor shutdown error: %v", err)
		}
	}, nil
}
