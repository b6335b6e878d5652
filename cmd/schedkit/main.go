package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/me/schedkit/internal/cli"
)

func main() {
	err := cli.NewRootCmd().Execute()
	var status *cli.ExitStatus
	if err != nil && (!errors.As(err, &status) || status.Err != nil) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.ExitCode(err))
}
