package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}
