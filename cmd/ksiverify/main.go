/*
 * Copyright 2020 Guardtime, Inc.
 *
 * This file is part of the Guardtime client SDK.
 *
 * Licensed under the Apache License, Version 2.0 (the "License").
 * You may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *     http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES, CONDITIONS, OR OTHER LICENSES OF ANY KIND, either
 * express or implied. See the License for the specific language governing
 * permissions and limitations under the License.
 * "Guardtime" and "KSI" are trademarks or registered trademarks of
 * Guardtime, Inc., and no license to trademarks is granted; Guardtime
 * reserves and retains all trademark rights.
 */

// Command ksiverify verifies a KSI signature file against the configured verification policy.
//
// Usage:
//   ksiverify [-config <conf.yaml>] [-document <file>] [-policy <name>] <sig-file>
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/guardtime/ksicore/conf"
	"github.com/guardtime/ksicore/errors"
	"github.com/guardtime/ksicore/hash"
	"github.com/guardtime/ksicore/log"
	"github.com/guardtime/ksicore/pdu"
	"github.com/guardtime/ksicore/publications"
	"github.com/guardtime/ksicore/signature"
	"github.com/guardtime/ksicore/signature/verify/result"
)

const (
	exitOK      = 0
	exitFail    = 1
	exitNA      = 2
	exitUsage   = 3
	exitUnknown = 0xff
)

type options struct {
	config   string
	document string
	alg      string
	policy   string
	logFile  string
	noColor  bool
	sigFile  string
}

func parseArgs(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("ksiverify", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.config, "config", "", "Path to the YAML configuration file.")
	fs.StringVar(&opts.document, "document", "", "Path to the signed document.")
	fs.StringVar(&opts.alg, "alg", "", "Document hash algorithm. Defaults to the signature input hash algorithm.")
	fs.StringVar(&opts.policy, "policy", "", "Verification policy, overrides the configuration.")
	fs.StringVar(&opts.logFile, "log", "", "Path to the log file. Defaults to stderr.")
	fs.BoolVar(&opts.noColor, "no-color", false, "Disable colored output.")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage:\n  %s [options] <sig-file>\n", fs.Name())
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, errors.New(errors.KsiInvalidArgumentError).SetExtError(err)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, errors.New(errors.KsiInvalidArgumentError).AppendMessage("Expected exactly one signature file.")
	}
	opts.sigFile = fs.Arg(0)
	return opts, nil
}

func loadConfig(opts *options) (*conf.Config, error) {
	var (
		cfg *conf.Config
		err error
	)
	if opts.config != "" {
		cfg, err = conf.Load(opts.config)
	} else {
		cfg, err = conf.Parse(nil)
	}
	if err != nil {
		return nil, err
	}
	if opts.policy != "" {
		cfg.Verification.Policy = opts.policy
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func newLogger(cfg *conf.Config, w io.Writer) log.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(log.LogrusLevel(cfg.LogLevel()))
	if cfg.Log.Format == conf.FormatJSON {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	}
	return log.NewLogrus(l, logrus.Fields{"app": "ksiverify"})
}

func selectPolicy(name string) (*signature.Policy, error) {
	switch name {
	case conf.PolicyDefault, "":
		return signature.DefaultPolicy, nil
	case conf.PolicyInternal:
		return signature.InternalPolicy, nil
	case conf.PolicyCalendar:
		return signature.CalendarBasedPolicy, nil
	case conf.PolicyKey:
		return signature.KeyBasedPolicy, nil
	case conf.PolicyPublicationsFile:
		return signature.PublicationsFileBasedPolicy, nil
	case conf.PolicyUserPublication:
		return signature.UserProvidedPublicationBasedPolicy, nil
	}
	return nil, errors.New(errors.KsiInvalidArgumentError).AppendMessage(fmt.Sprintf("Unknown policy: %s.", name))
}

func newFileHandler(cfg *conf.Config) (*publications.FileHandler, io.Closer, error) {
	p := cfg.Publications
	settings := []publications.FileHandlerSetting{}

	switch {
	case p.File != "":
		file, err := publications.NewFile(publications.FileFromFile(p.File))
		if err != nil {
			return nil, nil, err
		}
		settings = append(settings, publications.FileHandlerSetFile(file))
	case p.URL != "":
		settings = append(settings, publications.FileHandlerSetPublicationsURL(p.URL))
	default:
		return nil, nil, errors.New(errors.KsiInvalidStateError).AppendMessage("Missing publications file source.")
	}

	if p.CertConstraints != "" {
		cnstrs, err := publications.ParseCertConstraints(p.CertConstraints)
		if err != nil {
			return nil, nil, err
		}
		settings = append(settings, publications.FileHandlerSetFileCertConstraints(cnstrs))
	}
	if p.TrustedCertDir != "" {
		settings = append(settings, publications.FileHandlerSetTrustedCertificateDir(p.TrustedCertDir))
	} else {
		settings = append(settings, publications.FileHandlerUseSystemCertStore())
	}
	if p.TTL > 0 {
		settings = append(settings, publications.FileHandlerSetFileTTL(p.TTL))
	}

	var closer io.Closer
	if r := cfg.Cache.Redis; r.Addr != "" && p.URL != "" {
		cache, err := publications.NewRedisCache(r.Addr, r.Password, r.DB)
		if err != nil {
			return nil, nil, err
		}
		key := ""
		if r.KeyPrefix != "" {
			key = r.KeyPrefix + p.URL
		}
		settings = append(settings, publications.FileHandlerSetCache(cache, key))
		closer = cache
	}

	handler, err := publications.NewFileHandler(settings...)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, nil, err
	}
	return handler, closer, nil
}

func documentHash(path, algName string, sig *signature.Signature) (hash.DataHash, error) {
	alg := sig.InputHash().Algorithm()
	if algName != "" {
		var err error
		if alg, err = hash.ByName(algName); err != nil {
			return hash.DataHash{}, err
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return hash.DataHash{}, errors.New(errors.KsiIoError).SetExtError(err)
	}
	defer f.Close()

	hsr, err := alg.New()
	if err != nil {
		return hash.DataHash{}, err
	}
	if _, err := io.Copy(hsr, f); err != nil {
		return hash.DataHash{}, errors.New(errors.KsiIoError).SetExtError(err)
	}
	return hsr.Sum()
}

func printResult(w io.Writer, res *signature.VerificationResult) {
	fmt.Fprintln(w, "Verification info:")
	fmt.Fprintln(w, "Verification ID:", res.ID())
	for _, pr := range res.PolicyResults() {
		fmt.Fprintln(w, "Policy:", pr.PolicyName())
		for _, rr := range pr.RuleResults() {
			fmt.Fprintln(w, "Rule result:", rr)
		}
	}
	fmt.Fprintln(w, "Final result:", res.FinalResult())

	switch res.ResultCode() {
	case result.OK:
		color.New(color.FgGreen).Fprintln(w, "Verification successful.")
	case result.NA:
		color.New(color.FgYellow).Fprintln(w, "Verification inconclusive.")
	case result.FAIL:
		color.New(color.FgRed).Fprintln(w, "Verification failed.")
	default:
		fmt.Fprintln(w, "Unexpected verification result.")
	}
}

func exitCode(c result.Code) int {
	switch c {
	case result.OK:
		return exitOK
	case result.FAIL:
		return exitFail
	case result.NA:
		return exitNA
	}
	return exitUnknown
}

func errExit(w io.Writer, msg string, err error) int {
	color.New(color.FgRed).Fprintln(w, msg, err)
	if code := int(errors.KsiErr(err).Code()); code != 0 {
		return code
	}
	return exitUnknown
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		return exitUsage
	}
	if opts.noColor {
		color.NoColor = true
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return errExit(stderr, "Failed to load configuration:", err)
	}

	logOut := stderr
	if opts.logFile != "" {
		f, err := os.Create(opts.logFile)
		if err != nil {
			return errExit(stderr, "Failed to create log file:", errors.New(errors.KsiIoError).SetExtError(err))
		}
		defer f.Close()
		logOut = f
	}
	log.SetLogger(newLogger(cfg, logOut))

	policy, err := selectPolicy(cfg.Verification.Policy)
	if err != nil {
		return errExit(stderr, "Failed to select policy:", err)
	}

	sig, err := signature.New(signature.BuildNoVerify(signature.BuildFromFile(opts.sigFile)))
	if err != nil {
		return errExit(stderr, "Failed to open signature file:", err)
	}

	ctxOpts := []signature.VerCtxOption{
		signature.VerCtxOptExtendingPermitted(cfg.Verification.ExtendingAllowed),
	}
	if opts.document != "" {
		docHash, err := documentHash(opts.document, opts.alg, sig)
		if err != nil {
			return errExit(stderr, "Failed to hash document:", err)
		}
		ctxOpts = append(ctxOpts, signature.VerCtxOptDocumentHash(docHash))
	}
	if cfg.Verification.UserPublication != "" {
		pub, err := pdu.PublicationDataFromString(cfg.Verification.UserPublication)
		if err != nil {
			return errExit(stderr, "Failed to parse user publication:", err)
		}
		ctxOpts = append(ctxOpts, signature.VerCtxOptUserPublication(pub))
	}
	if cfg.NeedsPublicationsFile() {
		handler, closer, err := newFileHandler(cfg)
		if err != nil {
			return errExit(stderr, "Failed to initialize publications file handler:", err)
		}
		if closer != nil {
			defer closer.Close()
		}
		ctxOpts = append(ctxOpts, signature.VerCtxOptPublicationsFileProvider(handler))
	}

	ctx, err := signature.NewVerificationContext(sig, ctxOpts...)
	if err != nil {
		return errExit(stderr, "Failed to initialize verification context:", err)
	}

	fmt.Fprintln(stdout, "Verifying signature...")
	res, err := signature.NewVerifier().Verify(ctx, policy)
	if err != nil {
		return errExit(stderr, "Failed to complete signature verification due to an error:", err)
	}
	printResult(stdout, res)
	return exitCode(res.ResultCode())
}

func main() {
	// Handle exit code.
	exit := exitUnknown
	defer func() { os.Exit(exit) }()

	exit = run(os.Args[1:], os.Stdout, os.Stderr)
}
