// Web server for the go-pdfweb PDF toolkit page
package main

import (
	"os"
)

var appVersion = "-unset-"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
