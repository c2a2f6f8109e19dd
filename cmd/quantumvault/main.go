package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"quantumvault/entropy"
	"quantumvault/marshalling"
	"quantumvault/secretsharing"
	"quantumvault/selftest"
	"quantumvault/tree"
)

/*
	quantumvault splits a root secret through the Cardinal, State and District
	levels and rebuilds it from the shares guardians send back. The logging
	level is read from the GLOG environment variable.
*/

func main() {
	err := newApp(os.Stdout).Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:   "quantumvault",
		Usage:  "split and recover a secret through a tree of guardians",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "the path to a yaml config file describing the levels",
			},
			&cli.IntFlag{
				Name:  "districts",
				Usage: "the number of shares of the last level, overwrites the config file",
			},
			&cli.IntFlag{
				Name:  "district-threshold",
				Usage: "the threshold of the last level, overwrites the config file",
			},
			&cli.StringFlag{
				Name: "entropy",
				Usage: "a file of external random bytes, for example from a quantum " +
					"generator, mixed with the system generator",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "selftest",
				Usage: "split a secret and check the recovery paths",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "secret",
						Usage: "the hex secret to test with, random when empty",
					},
				},
				Action: selftestAction,
			},
			{
				Name:      "split",
				Usage:     "split a secret and print the share of every guardian",
				ArgsUsage: "[SECRET], a fresh secret is drawn and printed first when missing",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "envelopes",
						Usage: "print hex encoded envelopes instead of labeled shares",
					},
				},
				Action: splitAction,
			},
			{
				Name:  "recover",
				Usage: "recover the secret from the shares returned by guardians",
				ArgsUsage: "PATH=SHARE... or ENVELOPE... with --envelopes, for example " +
					"\"North/State 2=2-0a1b...\"",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "envelopes",
						Usage: "read hex encoded envelopes",
					},
				},
				Action: recoverAction,
			},
		},
	}
}

// source returns the random source used for splits and fresh secrets. Bytes
// read from --entropy are mixed with the system generator, never used alone.
func source(c *cli.Context) (*entropy.Source, error) {
	if !c.IsSet("entropy") {
		return entropy.Crypto(), nil
	}

	buf, err := os.ReadFile(c.String("entropy"))
	if err != nil {
		return nil, xerrors.Errorf("failed to read entropy file: %v", err)
	}
	if len(buf) == 0 {
		return nil, xerrors.Errorf("entropy file %q is empty", c.String("entropy"))
	}

	return entropy.Mixed(bytes.NewReader(buf)), nil
}

// hierarchy builds the hierarchy described by the global flags together with
// its random source.
func hierarchy(c *cli.Context) (*tree.Hierarchy, *entropy.Source, error) {
	conf := tree.DefaultConfig()

	if c.IsSet("config") {
		var err error
		conf, err = tree.LoadConfig(c.String("config"))
		if err != nil {
			return nil, nil, err
		}
	}

	if c.IsSet("districts") || c.IsSet("district-threshold") {
		last := conf.Levels[len(conf.Levels)-1]
		t, n := last.Threshold, last.Count
		if c.IsSet("district-threshold") {
			t = c.Int("district-threshold")
		}
		if c.IsSet("districts") {
			n = c.Int("districts")
		}
		if len(last.Labels) > 0 && n != len(last.Labels) {
			return nil, nil, xerrors.Errorf("level %s has %d labels", last.Name, len(last.Labels))
		}
		conf = conf.WithDistricts(t, n)
	}

	src, err := source(c)
	if err != nil {
		return nil, nil, err
	}

	scheme, err := conf.Scheme(src, true)
	if err != nil {
		return nil, nil, xerrors.Errorf("failed to create scheme: %v", err)
	}

	h, err := tree.NewHierarchy(conf, scheme)
	if err != nil {
		return nil, nil, err
	}
	return h, src, nil
}

func selftestAction(c *cli.Context) error {
	h, src, err := hierarchy(c)
	if err != nil {
		return err
	}

	secret := c.String("secret")
	if secret == "" {
		secret = h.Scheme().Field().RandomSecret(src)
	}

	report, err := selftest.Run(h, secret)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "%d nodes\n", report.Nodes)
	for _, check := range report.Checks {
		status := "ok"
		if check.Err != nil {
			status = "FAILED: " + check.Err.Error()
		}
		fmt.Fprintf(c.App.Writer, "%s: %s\n", check.Name, status)
	}

	if !report.Passed() {
		return xerrors.Errorf("%d checks failed", len(report.Failed()))
	}
	return nil
}

func splitAction(c *cli.Context) error {
	if c.NArg() > 1 {
		return xerrors.New("expected at most one secret")
	}

	h, src, err := hierarchy(c)
	if err != nil {
		return err
	}

	secret := c.Args().First()
	if secret == "" {
		secret = h.Scheme().Field().RandomSecret(src)
		fmt.Fprintf(c.App.Writer, "secret=%s\n", secret)
	}

	t, err := h.Build(secret)
	if err != nil {
		return err
	}

	if c.Bool("envelopes") {
		envelopes, err := marshalling.Envelopes(t, h.Scheme().Field())
		if err != nil {
			return err
		}
		for _, e := range envelopes {
			bs, err := marshalling.MarshalEnvelope(e)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, hex.EncodeToString(bs))
		}
		return nil
	}

	return t.Walk(func(n *tree.Node) error {
		if n.IsRoot() {
			return nil
		}
		fmt.Fprintf(c.App.Writer, "%s=%s\n", n.Path, n.Share)
		return nil
	})
}

func recoverAction(c *cli.Context) error {
	h, _, err := hierarchy(c)
	if err != nil {
		return err
	}
	f := h.Scheme().Field()

	var holdings map[string]*secretsharing.Share
	if c.Bool("envelopes") {
		holdings, err = readEnvelopes(c.Args().Slice(), f)
	} else {
		holdings, err = readShares(c.Args().Slice(), f)
	}
	if err != nil {
		return err
	}

	secret, err := h.RecoverFrom(holdings)
	if err != nil {
		return err
	}

	fmt.Fprintln(c.App.Writer, secret)
	return nil
}

func readShares(args []string, f *secretsharing.Field) (map[string]*secretsharing.Share, error) {
	holdings := make(map[string]*secretsharing.Share, len(args))
	for _, arg := range args {
		path, str, found := strings.Cut(arg, "=")
		if !found {
			return nil, xerrors.Errorf("%q is not PATH=SHARE", arg)
		}

		path = tree.ParsePath(path).String()
		if _, ok := holdings[path]; ok {
			return nil, xerrors.Errorf("two shares for %q: %w", path, secretsharing.ErrInconsistentShares)
		}

		share, err := f.ParseShare(str)
		if err != nil {
			return nil, err
		}
		holdings[path] = share
	}
	return holdings, nil
}

func readEnvelopes(args []string, f *secretsharing.Field) (map[string]*secretsharing.Share, error) {
	envelopes := make([]*marshalling.Envelope, len(args))
	for i, arg := range args {
		bs, err := hex.DecodeString(arg)
		if err != nil {
			return nil, xerrors.Errorf("envelope %d is not hex: %v", i, err)
		}
		envelopes[i], err = marshalling.UnmarshalEnvelope(bs)
		if err != nil {
			return nil, err
		}
	}
	return marshalling.Holdings(envelopes, f)
}
