// aiv-upload queues local folders of test datasets or test models and uploads
// each folder to AI Verify as one submission.
//
// Build with: go build -ldflags "-X github.com/aiverify/aiv-upload/internal/version.Version=vX.Y.Z"
package main

import (
	"os"

	"github.com/aiverify/aiv-upload/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
