package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/CloudNativeWorks/hwlicense/cmd/flags"
	"github.com/CloudNativeWorks/hwlicense/common"
	"github.com/CloudNativeWorks/hwlicense/hwlicense"
)

var flagServer = &cli.StringFlag{
	Name:    "server",
	Value:   "http://127.0.0.1:8000",
	Usage:   "license server base URL",
	EnvVars: []string{"HWLICENSE_SERVER"},
}
var flagKey = &cli.StringFlag{
	Name:     "key",
	Required: true,
	Usage:    "license key to validate",
}
var flagHWID = &cli.StringFlag{
	Name:  "hwid",
	Usage: "hardware id to bind; defaults to this machine's fingerprint",
}
var flagTimeout = &cli.DurationFlag{
	Name:  "timeout",
	Value: 10 * time.Second,
	Usage: "request timeout",
}

func main() {
	app := &cli.App{
		Name:           "license-client",
		Usage:          "Validate license keys against a license server",
		DefaultCommand: "validate",
		Flags:          flags.LogFlags,
		Commands: []*cli.Command{
			{
				Name:  "validate",
				Usage: "Validate a key for this machine",
				Flags: []cli.Flag{flagServer, flagKey, flagHWID, flagTimeout},
				Action: func(cCtx *cli.Context) error {
					logger := flags.SetupLogger(cCtx)

					client := hwlicense.NewOnlineClient(cCtx.String(flagServer.Name),
						hwlicense.WithTimeout(cCtx.Duration(flagTimeout.Name)),
						hwlicense.WithUserAgent(common.PackageName+"-client/"+common.Version),
					)
					resp, err := client.Validate(cCtx.Context, hwlicense.ValidateRequest{
						Key:  cCtx.String(flagKey.Name),
						HWID: cCtx.String(flagHWID.Name),
					})
					if err != nil {
						logger.Debug("validation failed", "err", err)
						return cli.Exit(describe(err), 1)
					}

					fmt.Println(resp.Message)
					return nil
				},
			},
			{
				Name:  "fingerprint",
				Usage: "Print this machine's hardware id",
				Action: func(cCtx *cli.Context) error {
					fp, err := hwlicense.GenerateFingerprint()
					if err != nil {
						return err
					}
					fmt.Println(fp)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func describe(err error) string {
	var expired *hwlicense.ExpiredError
	switch {
	case errors.As(err, &expired):
		return fmt.Sprintf("License expired on %s.", expired.ExpirationDate.Format("2006-01-02"))
	case errors.Is(err, hwlicense.ErrLicenseNotFound):
		return "License key not found."
	case errors.Is(err, hwlicense.ErrHardwareMismatch):
		return "This key is bound to another machine."
	default:
		return err.Error()
	}
}
