package main

import (
	"github.com/sirupsen/logrus"

	"account-provisioner-go/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		logrus.Fatalf("Fatal error: %v", err)
	}
}
