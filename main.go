package main

import (
	"os"

	"github.com/ktr0731/protomsg/app"
)

func main() {
	os.Exit(app.New().Run(os.Args[1:]))
}
